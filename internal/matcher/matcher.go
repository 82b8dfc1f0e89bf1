// Package matcher flags sitemap URLs whose path carries a stale-content suffix.
package matcher

import (
	"net/url"
	"sort"
	"strings"

	"github.com/javiercastrodev/claro-urls-duplicates/internal/models"
)

// DefaultSuffixes are the suffixes used when none are configured.
var DefaultSuffixes = []string{"_test", "-test", "_1", "_bkp", "_2"}

// FindDeletionCandidates returns the pages where any path segment, not only the
// last one, ends with one of suffixes. So /blog_test/article matches "_test".
// Matching is literal and case-sensitive. The result is sorted by URL.
//
// URLs rejected by url.Parse are skipped even when they carry a suffix, so
// https://x.com/%zz_test (bad percent escape) is never a candidate. A lenient
// parser that splits such a URL anyway would report it.
func FindDeletionCandidates(pages models.PageIndex, suffixes []string) []models.Candidate {
	candidates := make([]models.Candidate, 0)

	suffixes = nonEmpty(suffixes)
	if len(suffixes) == 0 {
		return candidates
	}

	for rawURL, lastModified := range pages {
		loc := strings.TrimSpace(rawURL)
		if loc == "" {
			continue
		}
		u, err := url.Parse(loc)
		if err != nil {
			continue
		}
		if hasSuffixedSegment(rawPath(u), suffixes) {
			candidates = append(candidates, models.Candidate{URL: loc, LastModified: lastModified})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].URL < candidates[j].URL
	})
	return candidates
}

func hasSuffixedSegment(path string, suffixes []string) bool {
	for _, segment := range strings.Split(path, "/") {
		if segment == "" {
			continue
		}
		for _, suffix := range suffixes {
			if strings.HasSuffix(segment, suffix) {
				return true
			}
		}
	}
	return false
}

// rawPath returns the path as written in the sitemap, without percent-decoding.
func rawPath(u *url.URL) string {
	if u.RawPath != "" {
		return u.RawPath
	}
	return u.Path
}

func nonEmpty(suffixes []string) []string {
	out := make([]string, 0, len(suffixes))
	for _, s := range suffixes {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// OptionalSuffixes parses a suffix argument that may be omitted. A blank value
// returns nil so callers apply their defaults. Anything else goes through
// ParseSuffixes, so "," or "''" select an explicitly empty set.
func OptionalSuffixes(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return ParseSuffixes(value)
}

// ParseSuffixes parses a comma separated suffix list such as "_test,-test".
// One pair of matching surrounding quotes is removed, items are trimmed and
// empty items dropped.
func ParseSuffixes(csv string) []string {
	raw := strings.TrimSpace(csv)
	if len(raw) >= 2 && (raw[0] == '\'' || raw[0] == '"') && raw[len(raw)-1] == raw[0] {
		raw = strings.TrimSpace(raw[1 : len(raw)-1])
	}

	suffixes := make([]string, 0)
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			suffixes = append(suffixes, s)
		}
	}
	return suffixes
}
