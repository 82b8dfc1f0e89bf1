package sitemap

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/javiercastrodev/claro-urls-duplicates/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

// DefaultMaxDocuments bounds the number of distinct sitemap documents a single
// collection may visit.
const DefaultMaxDocuments = 2000

var (
	gzipPrefix = []byte("\x1f\x8b\x08")
	utf8BOM    = []byte("\xef\xbb\xbf")
)

type CollectorConfig struct {
	MaxDocuments int
	// RequestsPerSecond throttles document fetches; zero disables throttling.
	RequestsPerSecond float64
}

// Collector walks a sitemap tree breadth-first and gathers every <url> entry.
// A Collector holds no per-run state and may be shared between goroutines.
type Collector struct {
	fetcher Fetcher
	config  CollectorConfig
	log     logrus.FieldLogger
}

func NewCollector(fetcher Fetcher, config CollectorConfig, log logrus.FieldLogger) *Collector {
	if config.MaxDocuments <= 0 {
		config.MaxDocuments = DefaultMaxDocuments
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Collector{
		fetcher: fetcher,
		config:  config,
		log:     log,
	}
}

// WithLogger returns a copy of c that logs to log.
func (c *Collector) WithLogger(log logrus.FieldLogger) *Collector {
	clone := *c
	if log != nil {
		clone.log = log
	}
	return &clone
}

// Collect builds a collector around a CollyFetcher and runs it once.
func Collect(ctx context.Context, rootURL string, timeout time.Duration, maxDocuments int) (models.PageIndex, error) {
	fetcher := NewCollyFetcher(FetcherConfig{Timeout: timeout})
	return NewCollector(fetcher, CollectorConfig{MaxDocuments: maxDocuments}, nil).Collect(ctx, rootURL)
}

// Collect returns every page URL reachable from rootURL mapped to its lastmod.
// The first fetch, parse or root-element failure aborts the whole run.
func (c *Collector) Collect(ctx context.Context, rootURL string) (models.PageIndex, error) {
	queue, err := c.seed(ctx, rootURL)
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if c.config.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(c.config.RequestsPerSecond), 1)
	}

	visited := make(map[string]struct{})
	pages := make(models.PageIndex)

	for len(queue) > 0 {
		docURL := queue[0]
		queue = queue[1:]

		// The same child can be queued twice before its first visit.
		if _, ok := visited[docURL]; ok {
			continue
		}
		visited[docURL] = struct{}{}

		if len(visited) > c.config.MaxDocuments {
			return nil, &LimitExceededError{Limit: c.config.MaxDocuments, URL: docURL}
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		docLog := c.log.WithFields(logrus.Fields{"sitemap": docURL, "visited": len(visited)})
		docLog.Debug("Fetching sitemap document")

		fetched, err := c.fetcher.Fetch(ctx, docURL)
		if err != nil {
			return nil, &FetchError{URL: docURL, Err: err}
		}

		doc, err := decodeDocument(fetched)
		if err != nil {
			return nil, &ParseError{URL: docURL, Err: err}
		}

		switch root := doc.XMLName.Local; root {
		case "sitemapindex":
			queued := 0
			for _, entry := range doc.Sitemaps {
				loc := strings.TrimSpace(entry.Loc)
				if loc == "" {
					continue
				}
				if _, seen := visited[loc]; seen {
					continue
				}
				queue = append(queue, loc)
				queued++
			}
			docLog.WithField("children", queued).Debug("Expanded sitemap index")

		case "urlset":
			added := 0
			for _, entry := range doc.URLs {
				loc := strings.TrimSpace(entry.Loc)
				if loc == "" {
					continue
				}
				if _, exists := pages[loc]; exists {
					continue
				}
				pages[loc] = lastModified(entry.LastMod)
				added++
			}
			docLog.WithField("urls", added).Debug("Collected url set")

		default:
			return nil, &UnsupportedRootError{URL: docURL, Root: root}
		}
	}

	c.log.WithFields(logrus.Fields{
		"root":      rootURL,
		"documents": len(visited),
		"urls":      len(pages),
	}).Info("Sitemap collection completed")

	return pages, nil
}

// seed returns the initial queue. A robots.txt root contributes its Sitemap:
// directives instead of being parsed as XML.
func (c *Collector) seed(ctx context.Context, rootURL string) ([]string, error) {
	if !isRobotsTxt(rootURL) {
		return []string{rootURL}, nil
	}

	fetched, err := c.fetcher.Fetch(ctx, rootURL)
	if err != nil {
		return nil, &FetchError{URL: rootURL, Err: err}
	}
	robots, err := robotstxt.FromBytes(fetched.Body)
	if err != nil {
		return nil, &ParseError{URL: rootURL, Err: err}
	}

	c.log.WithFields(logrus.Fields{"robots": rootURL, "sitemaps": len(robots.Sitemaps)}).
		Info("Discovered sitemaps from robots.txt")

	seeds := make([]string, 0, len(robots.Sitemaps))
	for _, loc := range robots.Sitemaps {
		if loc = strings.TrimSpace(loc); loc != "" {
			seeds = append(seeds, loc)
		}
	}
	return seeds, nil
}

func isRobotsTxt(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.HasSuffix(u.Path, "/robots.txt")
}

// decodeDocument parses a single well-formed XML document. Anything other than
// whitespace, comments and processing instructions around the root element is
// rejected.
func decodeDocument(fetched *Document) (*models.SitemapDocument, error) {
	body := fetched.Body
	if bytes.HasPrefix(body, gzipPrefix) {
		unzipped, err := gunzip(body)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress sitemap: %w", err)
		}
		body = unzipped
	}
	body = bytes.TrimPrefix(body, utf8BOM)

	decoder := xml.NewDecoder(bytes.NewReader(body))
	decoder.CharsetReader = charset.NewReaderLabel
	if fetched.DecodedUTF8() {
		decoder.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
			return input, nil
		}
	}

	root, err := rootElement(decoder)
	if err != nil {
		return nil, err
	}

	var doc models.SitemapDocument
	if err := decoder.DecodeElement(&doc, root); err != nil {
		return nil, err
	}

	if err := trailingContent(decoder); err != nil {
		return nil, err
	}
	return &doc, nil
}

func rootElement(decoder *xml.Decoder) (*xml.StartElement, error) {
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			return nil, errors.New("no root element")
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return &t, nil
		case xml.CharData:
			if !isXMLSpace(t) {
				return nil, errors.New("content before root element")
			}
		}
	}
}

func trailingContent(decoder *xml.Decoder) error {
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement, xml.Directive:
			return errors.New("junk after document element")
		case xml.CharData:
			if !isXMLSpace(t) {
				return errors.New("junk after document element")
			}
		}
	}
}

func isXMLSpace(data []byte) bool {
	return len(bytes.Trim(data, " \t\r\n")) == 0
}

func gunzip(content []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	return io.ReadAll(reader)
}

func lastModified(raw string) *string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil
	}
	return &value
}
