package cnyes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/DeafMist/cnyes-news/internal/lenient"
	"github.com/DeafMist/cnyes-news/internal/logger"
	"github.com/DeafMist/cnyes-news/internal/models"
)

// ErrMalformedPage is returned when a page's pagination block cannot be read.
var ErrMalformedPage = errors.New("malformed listing page")

const userAgent = "cnyes-news/1.0 (+https://github.com/DeafMist/cnyes-news)"

// Query selects the headline window to fetch.
type Query struct {
	Start    time.Time
	End      time.Time
	PageSize int
}

// NewQuery covers the last days days ending at now.
func NewQuery(now time.Time, days, pageSize int) Query {
	return Query{
		Start:    now.AddDate(0, 0, -days),
		End:      now,
		PageSize: pageSize,
	}
}

// Page is one fetched listing page.
type Page struct {
	Number   int
	LastPage int
	Raw      string
	Records  []models.NewsRecord
}

// Result aggregates a scrape run.
type Result struct {
	Pages   int
	Records []models.NewsRecord
}

// Options configure a Client.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	PageDelay time.Duration
	// HTTPClient overrides the default client built from Timeout.
	HTTPClient *http.Client
}

// Client talks to the cnyes headline listing API.
type Client struct {
	http      *http.Client
	baseURL   string
	pageDelay time.Duration
	extractor *lenient.Extractor
	log       *slog.Logger
}

// New instantiates the API client.
func New(opts Options, extractor *lenient.Extractor, log *slog.Logger) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Client{
		http:      httpClient,
		baseURL:   opts.BaseURL,
		pageDelay: opts.PageDelay,
		extractor: extractor,
		log:       log,
	}
}

// FetchPage returns the raw body of one listing page.
func (c *Client) FetchPage(ctx context.Context, q Query, page int) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	params := u.Query()
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(q.PageSize))
	params.Set("isCategoryHeadline", "1")
	params.Set("startAt", strconv.FormatInt(q.Start.Unix(), 10))
	params.Set("endAt", strconv.FormatInt(q.End.Unix(), 10))
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	res, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("get page %d: %w", page, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("read page %d: %w", page, err)
	}
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("get page %d: status %s: %s", page, res.Status, truncate(string(body), 200))
	}

	return string(body), nil
}

// Page fetches one page and extracts its records.
func (c *Client) Page(ctx context.Context, q Query, number int) (*Page, error) {
	raw, err := c.FetchPage(ctx, q, number)
	if err != nil {
		return nil, err
	}

	lastPage, err := lastPageOf(raw)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", number, err)
	}

	return &Page{
		Number:   number,
		LastPage: lastPage,
		Raw:      raw,
		Records:  c.extractor.Extract(raw),
	}, nil
}

// Scrape walks pages 1..last_page, capped at limit when limit > 0.
// Pages are fetched sequentially; the first failure stops the run.
// onPage, when non-nil, sees every page before the next one is requested.
func (c *Client) Scrape(ctx context.Context, q Query, limit int, onPage func(*Page) error) (*Result, error) {
	first, err := c.Page(ctx, q, 1)
	if err != nil {
		return nil, err
	}

	total := max(first.LastPage, 1)
	if limit > 0 && limit < total {
		total = limit
	}
	c.log.Info("listing discovered",
		slog.Int("last_page", first.LastPage),
		slog.Int("pages", total),
	)

	result := &Result{}
	handle := func(p *Page) error {
		c.log.Info("page done",
			slog.Int("page", p.Number),
			slog.Int("of", total),
			slog.Int("records", len(p.Records)),
		)
		result.Pages++
		result.Records = append(result.Records, p.Records...)
		if onPage != nil {
			if err := onPage(p); err != nil {
				return fmt.Errorf("handle page %d: %w", p.Number, err)
			}
		}
		return nil
	}

	if err := handle(first); err != nil {
		return result, err
	}

	for n := 2; n <= total; n++ {
		if c.pageDelay > 0 {
			select {
			case <-time.After(c.pageDelay):
			case <-ctx.Done():
				return result, ctx.Err()
			}
		}

		p, err := c.Page(ctx, q, n)
		if err != nil {
			return result, err
		}
		if err := handle(p); err != nil {
			return result, err
		}
	}

	return result, nil
}

func lastPageOf(raw string) (int, error) {
	var meta struct {
		Items struct {
			LastPage int `json:"last_page"`
		} `json:"items"`
	}
	if err := json.Unmarshal([]byte(lenient.AdvancedFix(raw)), &meta); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedPage, err)
	}
	return meta.Items.LastPage, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
