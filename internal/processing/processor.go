package processing

import (
	"html"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/DeafMist/cnyes-news/internal/models"
)

var urlRegex = regexp.MustCompile(`https?://[^\s"'<>]+`)

var (
	whitespace  = regexp.MustCompile(`\s+`)
	punctuation = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "to": {}, "in": {}, "for": {}, "and": {}, "of": {}, "on": {},
	"表示": {}, "指出": {}, "以及": {}, "今天": {}, "可能": {}, "一個": {}, "因為": {}, "我們": {},
}

// StripHTML returns the visible text of an HTML fragment with whitespace squeezed.
func StripHTML(input string) string {
	if input == "" {
		return ""
	}
	var text string
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(input)); err == nil {
		text = doc.Text()
	} else {
		text = html.UnescapeString(input)
	}
	return strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
}

// ExtractURLs extracts all HTTP(S) URLs from the input text.
func ExtractURLs(input string) []string {
	if input == "" {
		return nil
	}
	matches := urlRegex.FindAllString(input, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{})
	var urls []string
	for _, url := range matches {
		if _, ok := seen[url]; !ok {
			seen[url] = struct{}{}
			urls = append(urls, url)
		}
	}
	return urls
}

// RemoveURLs removes all URLs from the input text.
func RemoveURLs(input string) string {
	return urlRegex.ReplaceAllString(input, " ")
}

// CleanText strips markup, URLs and punctuation and squeezes whitespace.
func CleanText(input string) string {
	if input == "" {
		return ""
	}
	text := StripHTML(input)
	text = RemoveURLs(text)
	text = punctuation.ReplaceAllString(text, " ")
	text = whitespace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Tokenize splits text into lower-cased words. Runs of Han characters have
// no spaces between words, so they are emitted as overlapping bigrams.
func Tokenize(text string) []string {
	var (
		tokens []string
		word   []rune
		han    []rune
	)
	flushWord := func() {
		if len(word) > 0 {
			tokens = append(tokens, strings.ToLower(string(word)))
			word = word[:0]
		}
	}
	flushHan := func() {
		switch {
		case len(han) == 1:
			tokens = append(tokens, string(han))
		case len(han) > 1:
			for i := 0; i+1 < len(han); i++ {
				tokens = append(tokens, string(han[i:i+2]))
			}
		}
		han = han[:0]
	}

	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			flushWord()
			han = append(han, r)
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			flushHan()
			word = append(word, r)
		default:
			flushWord()
			flushHan()
		}
	}
	flushWord()
	flushHan()
	return tokens
}

// ExtractKeywords returns the most frequent tokens that are not stop-words.
func ExtractKeywords(text string, limit, minLen int) []string {
	clean := CleanText(text)
	if clean == "" {
		return nil
	}

	freq := make(map[string]int)
	for _, token := range Tokenize(clean) {
		if len([]rune(token)) < minLen {
			continue
		}
		if _, skip := stopwords[token]; skip {
			continue
		}
		freq[token]++
	}

	if len(freq) == 0 {
		return nil
	}

	type kv struct {
		word  string
		count int
	}

	pairs := make([]kv, 0, len(freq))
	for word, count := range freq {
		pairs = append(pairs, kv{word: word, count: count})
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].count == pairs[j].count {
			return pairs[i].word < pairs[j].word
		}
		return pairs[i].count > pairs[j].count
	})

	n := limit
	if n <= 0 || n > len(pairs) {
		n = len(pairs)
	}

	keywords := make([]string, 0, n)
	for i := 0; i < n; i++ {
		keywords = append(keywords, pairs[i].word)
	}

	return keywords
}

// ParsePublished reads a publishAt value: unix seconds, RFC 3339 or "2006-01-02 15:04:05".
// It returns nil when raw is empty or unrecognized.
func ParsePublished(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil && secs > 0 {
		ts := time.Unix(secs, 0).UTC()
		return &ts
	}

	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		if ts, err := time.Parse(f, raw); err == nil {
			ts = ts.UTC()
			return &ts
		}
	}

	return nil
}

// BuildDocument turns a record into the indexed document.
func BuildDocument(rec models.NewsRecord, keywordLimit, keywordMinLen int, now time.Time) models.IndexedNews {
	text := StripHTML(rec.Summary)
	return models.IndexedNews{
		ID:          rec.ID,
		Title:       rec.Title,
		Summary:     rec.Summary,
		Text:        text,
		Category:    rec.Category,
		Link:        rec.Link,
		Keywords:    ExtractKeywords(rec.Title+" "+text, keywordLimit, keywordMinLen),
		URLs:        ExtractURLs(rec.Summary),
		PublishedAt: ParsePublished(rec.PublishedAt),
		IndexedAt:   now.UTC(),
	}
}
