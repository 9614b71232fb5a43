package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"

	"github.com/DeafMist/cnyes-news/internal/config"
	"github.com/DeafMist/cnyes-news/internal/export"
	"github.com/DeafMist/cnyes-news/internal/lenient"
	"github.com/DeafMist/cnyes-news/internal/logger"
	"github.com/DeafMist/cnyes-news/internal/models"
)

func main() {
	log := logger.New("extract")
	cfg, err := config.LoadExtract()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	if err := newRootCmd(cfg, log).Execute(); err != nil {
		log.Error("extract failed", slog.Any("err", err))
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Extract, log *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract [input]",
		Short: "Extract cnyes news records from a saved listing response",
		Long: `Read a saved headline listing response, which may be hand-edited or
cut off mid-record, recover every complete news record and write them
as CSV.

Unless --repair=false is given the input file is first repaired in place
and the original is kept next to it with a .backup suffix.

Examples:
  extract                         # paste.txt -> cnyes_news_extract.csv
  extract dump.json -o news.csv
  extract dump.json --deep        # allow general-purpose JSON repair`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				cfg.InputPath = args[0]
			}
			_, err := run(log, cfg)
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&cfg.OutputPath, "output", "o", cfg.OutputPath, "CSV output path")
	flags.BoolVar(&cfg.Repair, "repair", cfg.Repair, "repair the input file in place before extracting")
	flags.BoolVar(&cfg.Deep, "deep", cfg.Deep, "fall back to general-purpose JSON repair")
	flags.StringVar(&cfg.LinkTemplate, "link-template", cfg.LinkTemplate, "article URL template containing {id}")

	return cmd
}

// run extracts the records of cfg.InputPath into cfg.OutputPath.
func run(log *slog.Logger, cfg *config.Extract) ([]models.NewsRecord, error) {
	if !strings.Contains(cfg.LinkTemplate, "{id}") {
		return nil, fmt.Errorf("link template %q must contain {id}", cfg.LinkTemplate)
	}
	extractor := lenient.New(cfg.Lenient(), log.With("component", "extractor"))

	if cfg.Repair {
		report, err := extractor.RepairFile(cfg.InputPath, cfg.Deep)
		switch {
		case errors.Is(err, lenient.ErrUnrepairable):
			log.Warn("input could not be repaired, extracting as is", slog.Any("err", err))
		case err != nil:
			return nil, err
		default:
			log.Info("input checked",
				slog.String("method", report.Method),
				slog.Int("before", report.Before),
				slog.Int("after", report.After),
			)
		}
	}

	raw, err := os.ReadFile(cfg.InputPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", cfg.InputPath, err)
	}

	records := extractor.Extract(string(raw))
	if len(records) == 0 {
		log.Warn("no records extracted", slog.String("input", cfg.InputPath))
	}

	size, err := export.WriteCSVFile(cfg.OutputPath, records)
	if err != nil {
		return records, err
	}

	log.Info("extraction finished",
		slog.Int("records", len(records)),
		slog.String("fields", strings.Join(models.CSVHeader, ",")),
		slog.String("output", cfg.OutputPath),
		slog.Int64("bytes", size),
	)
	return records, nil
}
