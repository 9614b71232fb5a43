package lenient

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/kaptinlin/jsonrepair"
)

// ErrUnrepairable is returned when no repair path yields parseable JSON.
var ErrUnrepairable = errors.New("json could not be repaired")

// Repair methods reported by RepairFile.
const (
	MethodUnchanged = "unchanged"
	MethodAdvanced  = "advanced"
	MethodTruncated = "truncated"
	MethodDeep      = "jsonrepair"
)

// RepairReport describes what RepairFile did.
type RepairReport struct {
	Method     string
	BackupPath string
	Before     int
	After      int
}

// RepairText returns a parseable version of text and the method that produced it.
// deep enables the general-purpose jsonrepair fallback after the built-in heuristics.
func (e *Extractor) RepairText(text string, deep bool) (string, string, error) {
	fixed := AdvancedFix(text)
	_, err := parseTree(fixed)
	if err == nil {
		if fixed == text {
			return text, MethodUnchanged, nil
		}
		return fixed, MethodAdvanced, nil
	}
	e.log.Warn("standard repair failed", slog.Any("err", err))

	var pe *ParseError
	if errors.As(err, &pe) {
		if truncated, ok := truncateAtBoundary(fixed, pe.Pos, e.cfg.MinRecoverOffset, e.cfg.TruncateBackoff); ok {
			truncated = sealOpen(truncated)
			if _, terr := parseTree(truncated); terr == nil {
				return truncated, MethodTruncated, nil
			}
		}
	}

	if deep {
		repaired, rerr := jsonrepair.JSONRepair(text)
		if rerr == nil {
			if _, perr := parseTree(repaired); perr == nil {
				return repaired, MethodDeep, nil
			}
		}
		e.log.Warn("jsonrepair fallback failed", slog.Any("err", rerr))
	}

	return "", "", fmt.Errorf("%w: %v", ErrUnrepairable, err)
}

// RepairFile rewrites path with repaired JSON, keeping the original at path+".backup".
func (e *Extractor) RepairFile(path string, deep bool) (RepairReport, error) {
	info, err := os.Stat(path)
	if err != nil {
		return RepairReport{}, fmt.Errorf("stat %s: %w", path, err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return RepairReport{}, fmt.Errorf("read %s: %w", path, err)
	}
	original := string(raw)

	repaired, method, err := e.RepairText(original, deep)
	if err != nil {
		return RepairReport{}, fmt.Errorf("repair %s: %w", path, err)
	}

	report := RepairReport{Method: method, Before: len(original), After: len(repaired)}
	if method == MethodUnchanged {
		return report, nil
	}

	report.BackupPath = path + ".backup"
	if err := os.WriteFile(report.BackupPath, raw, info.Mode().Perm()); err != nil {
		return RepairReport{}, fmt.Errorf("write backup: %w", err)
	}
	if err := os.WriteFile(path, []byte(repaired), info.Mode().Perm()); err != nil {
		return RepairReport{}, fmt.Errorf("write repaired %s: %w", path, err)
	}

	e.log.Info("repaired json file",
		slog.String("path", path),
		slog.String("method", method),
		slog.String("backup", report.BackupPath),
	)
	return report, nil
}
