package sitemap

import (
	"context"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

const (
	DefaultUserAgent   = "claro-sitemaps-bot/1.0 (+https://github.com/)"
	DefaultTimeout     = 30 * time.Second
	DefaultMaxBodySize = 50 * 1024 * 1024
	acceptHeader       = "application/xml,text/xml,*/*"
)

// Document is a fetched sitemap body with the Content-Type it was served with.
type Document struct {
	Body        []byte
	ContentType string
}

// DecodedUTF8 reports whether the transport already converted Body to UTF-8.
// colly transcodes every response whose Content-Type mentions a charset, so
// the XML declaration's encoding must not be applied a second time.
func (d *Document) DecodedUTF8() bool {
	return strings.Contains(strings.ToLower(d.ContentType), "charset")
}

// Fetcher retrieves a sitemap document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Document, error)
}

type FetcherConfig struct {
	UserAgent   string
	Timeout     time.Duration
	MaxBodySize int
}

// CollyFetcher fetches documents with a colly collector. Each call works on a
// clone so callbacks never leak between concurrent fetches.
type CollyFetcher struct {
	collector *colly.Collector
}

func NewCollyFetcher(config FetcherConfig) *CollyFetcher {
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = DefaultMaxBodySize
	}

	// Revisits are allowed: the collector keeps its own visited set.
	c := colly.NewCollector(
		colly.UserAgent(config.UserAgent),
		colly.MaxBodySize(config.MaxBodySize),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(config.Timeout)

	return &CollyFetcher{collector: c}
}

func (f *CollyFetcher) Fetch(ctx context.Context, url string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := f.collector.Clone()
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", acceptHeader)
	})

	doc := &Document{}
	c.OnResponse(func(r *colly.Response) {
		doc.Body = r.Body
		if r.Headers != nil {
			doc.ContentType = r.Headers.Get("Content-Type")
		}
	})

	if err := c.Visit(url); err != nil {
		return nil, err
	}
	return doc, nil
}
