package lenient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ParseError reports where a structural parse stopped.
// Pos is the zero-based byte index of the offending character, or len(text) at end of input.
type ParseError struct {
	Pos int
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse json at byte %d: %v", e.Pos, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// parseTree decodes text into a generic tree of map[string]any, []any and scalars.
// Numbers are kept as json.Number so ids keep their literal digits.
func parseTree(text string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, &ParseError{Pos: failurePos(text, err), Err: err}
	}

	off := int(dec.InputOffset())
	if rest := strings.TrimLeft(text[off:], " \t\r\n"); rest != "" {
		return nil, &ParseError{
			Pos: len(text) - len(rest),
			Err: errors.New("extra data after top-level value"),
		}
	}
	return tree, nil
}

func failurePos(text string, err error) int {
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &syntaxErr):
		// Offset counts the offending byte itself.
		return clamp(int(syntaxErr.Offset)-1, 0, len(text))
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return len(text)
	default:
		return 0
	}
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
