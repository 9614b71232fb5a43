package export_test

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/cnyes-news/internal/export"
	"github.com/DeafMist/cnyes-news/internal/models"
)

var sample = []models.NewsRecord{
	{ID: "5012345", Title: "台股收紅", Summary: "加權指數上漲, 成交量放大", PublishedAt: "1700000000", Category: "台股", Link: "https://news.cnyes.com/news/id/5012345"},
	{ID: "5012346", Title: `Fed "holds"`, Summary: "Unchanged.", Category: "uncategorized", Link: "https://news.cnyes.com/news/id/5012346"},
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteCSV(&buf, sample))

	data := buf.Bytes()
	require.Equal(t, []byte{0xEF, 0xBB, 0xBF}, data[:3])

	rows, err := csv.NewReader(bytes.NewReader(data[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, models.CSVHeader, rows[0])
	require.Equal(t, sample[0].CSVRow(), rows[1])
	require.Equal(t, `Fed "holds"`, rows[2][1])
	require.Equal(t, "", rows[2][3])
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteCSV(&buf, nil))

	rows, err := csv.NewReader(bytes.NewReader(buf.Bytes()[3:])).ReadAll()
	require.NoError(t, err)
	require.Equal(t, [][]string{models.CSVHeader}, rows)
}

func TestWriteCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "news.csv")

	size, err := export.WriteCSVFile(path, sample)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, info.Size(), size)
	require.Positive(t, size)
}
