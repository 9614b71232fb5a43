package models

import "time"

// NewsRecord is one normalized row of the cnyes headline listing.
type NewsRecord struct {
	ID          string `json:"newsId"`
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	PublishedAt string `json:"publishAt"`
	Category    string `json:"categoryName"`
	Link        string `json:"link"`
}

// CSVHeader lists the export columns in order.
var CSVHeader = []string{"newsId", "title", "summary", "publishAt", "categoryName", "link"}

// CSVRow returns the record's fields in CSVHeader order.
func (r NewsRecord) CSVRow() []string {
	return []string{r.ID, r.Title, r.Summary, r.PublishedAt, r.Category, r.Link}
}

// IndexedNews is the document stored in Elasticsearch for a NewsRecord.
type IndexedNews struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Summary     string     `json:"summary"`
	Text        string     `json:"text"`
	Category    string     `json:"category"`
	Link        string     `json:"link"`
	Keywords    []string   `json:"keywords"`
	URLs        []string   `json:"urls"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	IndexedAt   time.Time  `json:"indexed_at"`
}
