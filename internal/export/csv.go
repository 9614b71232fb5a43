package export

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/DeafMist/cnyes-news/internal/models"
)

// utf8BOM lets spreadsheet tools detect UTF-8 for CJK titles.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV writes a BOM, the header row and one row per record.
func WriteCSV(w io.Writer, records []models.NewsRecord) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(models.CSVHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, rec := range records {
		if err := cw.Write(rec.CSVRow()); err != nil {
			return fmt.Errorf("write record %s: %w", rec.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteCSVFile creates or truncates path and writes records to it.
// It returns the size of the written file.
func WriteCSVFile(path string, records []models.NewsRecord) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if err := WriteCSV(bw, records); err != nil {
		return 0, err
	}
	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("flush %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	return info.Size(), nil
}
