package lenient

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/DeafMist/cnyes-news/internal/logger"
	"github.com/DeafMist/cnyes-news/internal/models"
)

// Fields names the source keys a record is read from.
type Fields struct {
	ID          string
	Title       string
	Summary     string
	PublishedAt string
	Category    string
}

// Config is the fixed configuration of an Extractor.
type Config struct {
	Fields          Fields
	LinkTemplate    string // must contain {id}
	DefaultCategory string

	// MaxTruncations bounds the truncation recovery recursion.
	MaxTruncations int
	// MinRecoverOffset is the failure position at or below which recovery is not attempted.
	MinRecoverOffset int
	// TruncateBackoff is how far before the failure position the boundary search starts.
	TruncateBackoff int
}

// DefaultConfig returns the configuration for the cnyes headline listing.
func DefaultConfig() Config {
	return Config{
		Fields: Fields{
			ID:          "newsId",
			Title:       "title",
			Summary:     "summary",
			PublishedAt: "publishAt",
			Category:    "categoryName",
		},
		LinkTemplate:     "https://news.cnyes.com/news/id/{id}",
		DefaultCategory:  "uncategorized",
		MaxTruncations:   5,
		MinRecoverOffset: 100,
		TruncateBackoff:  10,
	}
}

// Extractor turns possibly malformed JSON listings into NewsRecords.
// It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	cfg Config
	log *slog.Logger
}

// New builds an Extractor. A nil logger discards diagnostics.
func New(cfg Config, log *slog.Logger) *Extractor {
	if log == nil {
		log = logger.Discard()
	}
	return &Extractor{cfg: cfg, log: log}
}

// Config returns the extractor configuration.
func (e *Extractor) Config() Config {
	return e.cfg
}

// Link renders the record URL for id.
func (e *Extractor) Link(id string) string {
	return strings.ReplaceAll(e.cfg.LinkTemplate, "{id}", id)
}

// Extract repairs text as far as it can and returns the records found in it.
// Malformed input never fails; it yields an empty, non-nil slice.
func (e *Extractor) Extract(text string) []models.NewsRecord {
	return e.extract(text, 0)
}

func (e *Extractor) extract(text string, depth int) []models.NewsRecord {
	fixed := AdvancedFix(strings.TrimSpace(text))

	tree, err := parseTree(fixed)
	if err == nil {
		return e.collect(tree)
	}

	var pe *ParseError
	if !errors.As(err, &pe) {
		e.log.Error("unexpected parse failure", slog.Any("err", err))
		return []models.NewsRecord{}
	}
	e.log.Warn("json parse failed",
		slog.Any("err", pe.Err),
		slog.Int("pos", pe.Pos),
		slog.Int("length", len(fixed)),
		slog.Int("depth", depth),
	)

	if depth >= e.cfg.MaxTruncations {
		e.log.Warn("truncation recovery exhausted", slog.Int("attempts", depth))
		return []models.NewsRecord{}
	}

	truncated, ok := truncateAtBoundary(fixed, pe.Pos, e.cfg.MinRecoverOffset, e.cfg.TruncateBackoff)
	if !ok {
		e.log.Warn("no recoverable boundary before parse failure", slog.Int("pos", pe.Pos))
		return []models.NewsRecord{}
	}

	e.log.Info("retrying with truncated document",
		slog.Int("from", len(fixed)),
		slog.Int("to", len(truncated)),
	)
	return e.extract(sealOpen(truncated), depth+1)
}

func (e *Extractor) collect(tree any) []models.NewsRecord {
	out := []models.NewsRecord{}

	top, ok := tree.(map[string]any)
	if !ok {
		e.log.Warn("unexpected json top level", slog.String("kind", kindOf(tree)))
		return out
	}
	e.log.Debug("json parsed", slog.Any("keys", sortedKeys(top)))

	items, path := e.locate(top)
	if items == nil {
		e.log.Warn("no record collection found", slog.Any("keys", sortedKeys(top)))
		return out
	}
	e.log.Info("record collection found", slog.String("path", path), slog.Int("count", len(items)))

	for idx, raw := range items {
		rec, missing, ok := e.record(raw)
		if !ok {
			e.log.Warn("skipping element",
				slog.Int("index", idx),
				slog.Any("missing", missing),
				slog.Any("available", sortedKeys(asMap(raw))),
			)
			continue
		}
		out = append(out, rec)
	}
	return out
}

// locate picks items.data first, then a top-level data array.
func (e *Extractor) locate(top map[string]any) ([]any, string) {
	if items, ok := top["items"].(map[string]any); ok {
		if data, ok := items["data"].([]any); ok {
			return data, "items.data"
		}
	}
	if data, ok := top["data"].([]any); ok {
		return data, "data"
	}
	return nil, ""
}

func (e *Extractor) record(raw any) (models.NewsRecord, []string, bool) {
	f := e.cfg.Fields
	item := asMap(raw)

	var missing []string
	required := func(key string) string {
		v, ok := scalar(item[key])
		if !ok {
			missing = append(missing, key)
		}
		return v
	}
	id := required(f.ID)
	title := required(f.Title)
	summary := required(f.Summary)
	if len(missing) > 0 {
		return models.NewsRecord{}, missing, false
	}

	published, _ := scalar(item[f.PublishedAt])
	category, ok := scalar(item[f.Category])
	if !ok {
		category = e.cfg.DefaultCategory
	}

	return models.NewsRecord{
		ID:          id,
		Title:       strings.TrimSpace(title),
		Summary:     strings.TrimSpace(summary),
		PublishedAt: published,
		Category:    category,
		Link:        e.Link(id),
	}, nil, true
}

// scalar renders strings, numbers and booleans. Null, objects and arrays report false.
func scalar(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func kindOf(v any) string {
	switch v.(type) {
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case nil:
		return "null"
	default:
		return "scalar"
	}
}
