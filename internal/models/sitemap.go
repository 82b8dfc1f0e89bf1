// internal/models/sitemap.go
package models

import "encoding/xml"

// SitemapDocument is either a <sitemapindex> or a <urlset>. Field tags carry no
// namespace so elements match on their local name whether or not the document
// declares the sitemaps.org default namespace.
type SitemapDocument struct {
	XMLName  xml.Name
	Sitemaps []SitemapEntry `xml:"sitemap"`
	URLs     []URL          `xml:"url"`
}

// SitemapEntry represents a <sitemap> element of a sitemap index.
type SitemapEntry struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// URL represents a single URL entry in the sitemap.
type URL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

// PageIndex maps a page URL to its optional <lastmod> value.
type PageIndex map[string]*string
