package lenient

import (
	"regexp"
	"strings"
)

var (
	trailingCommaObject = regexp.MustCompile(`,(\s*})`)
	trailingCommaArray  = regexp.MustCompile(`,(\s*])`)
)

// RepairSyntax removes commas that directly precede a closing brace or bracket.
func RepairSyntax(text string) string {
	text = trailingCommaObject.ReplaceAllString(text, "$1")
	return trailingCommaArray.ReplaceAllString(text, "$1")
}

// NormalizeWhitespace drops blank and `//` comment lines and joins the rest with single spaces.
func NormalizeWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") {
			continue
		}
		kept = append(kept, trimmed)
	}
	return strings.Join(kept, " ")
}

// BalanceDelimiters appends missing closers at the end of text: braces first, then brackets.
// Excess closers are left alone.
func BalanceDelimiters(text string) string {
	braces := strings.Count(text, "{") - strings.Count(text, "}")
	brackets := strings.Count(text, "[") - strings.Count(text, "]")
	if braces <= 0 && brackets <= 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text) + max(braces, 0) + max(brackets, 0))
	b.WriteString(text)
	if braces > 0 {
		b.WriteString(strings.Repeat("}", braces))
	}
	if brackets > 0 {
		b.WriteString(strings.Repeat("]", brackets))
	}
	return b.String()
}

// AdvancedFix runs NormalizeWhitespace, RepairSyntax and BalanceDelimiters in that order.
func AdvancedFix(text string) string {
	return BalanceDelimiters(RepairSyntax(NormalizeWhitespace(text)))
}

// truncateAtBoundary cuts text back to the last '}' found before offset-backoff.
// It reports false when offset is within minOffset or no brace exists.
func truncateAtBoundary(text string, offset, minOffset, backoff int) (string, bool) {
	if offset <= minOffset {
		return "", false
	}
	end := min(offset-backoff, len(text))
	if end <= 0 {
		return "", false
	}
	last := strings.LastIndexByte(text[:end], '}')
	if last <= 0 {
		return "", false
	}
	return text[:last+1], true
}

// sealOpen closes the containers left open in text in nesting order.
// String literals are skipped so braces inside titles do not count.
func sealOpen(text string) string {
	var (
		stack    []byte
		inString bool
		escaped  bool
	)
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if n := len(stack); n > 0 && stack[n-1] == c {
				stack = stack[:n-1]
			}
		}
	}
	if len(stack) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text) + len(stack))
	b.WriteString(text)
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}
	return b.String()
}
