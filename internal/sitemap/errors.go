package sitemap

import "fmt"

// FetchError reports a transport failure or a non-2xx response for a document.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch sitemap %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports a document that is not well-formed XML.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid XML at %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// UnsupportedRootError reports a document whose root element is neither
// <sitemapindex> nor <urlset>.
type UnsupportedRootError struct {
	URL  string
	Root string
}

func (e *UnsupportedRootError) Error() string {
	return fmt.Sprintf("unsupported sitemap root element '%s' at %s", e.Root, e.URL)
}

// LimitExceededError is returned once more than Limit distinct documents have
// been visited. URL is the document that crossed the limit; it is never fetched.
type LimitExceededError struct {
	Limit int
	URL   string
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("max sitemaps exceeded (%d). Last: %s", e.Limit, e.URL)
}
