// Package extract holds the file based helpers used to prepare URL lists
// outside of a sitemap run.
package extract

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"regexp"
	"sort"
	"strings"
)

var urlPattern = regexp.MustCompile(`https?://[^\s]+`)

// ExtractURLs returns every distinct http(s) URL found in r, sorted.
func ExtractURLs(r io.Reader) ([]string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	urls := make([]string, 0)
	for _, u := range urlPattern.FindAllString(string(content), -1) {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}
	sort.Strings(urls)

	return urls, nil
}

// FindDuplicates keeps the URLs that, without trailing slashes, end with one
// of suffixes. Blank lines are dropped and input order is preserved.
func FindDuplicates(urls []string, suffixes []string) []string {
	matches := make([]string, 0)
	for _, raw := range urls {
		u := strings.TrimSpace(raw)
		if u == "" {
			continue
		}
		trimmed := strings.TrimRight(u, "/")
		for _, suffix := range suffixes {
			if suffix != "" && strings.HasSuffix(trimmed, suffix) {
				matches = append(matches, u)
				break
			}
		}
	}
	return matches
}

func ReadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

// WriteLines writes lines joined by newlines, with a final newline when
// trailingNewline is set.
func WriteLines(path string, lines []string, trailingNewline bool) error {
	content := strings.Join(lines, "\n")
	if trailingNewline && len(lines) > 0 {
		content += "\n"
	}
	return os.WriteFile(path, []byte(content), 0644)
}

// ExtractFile extracts the URLs in input into output, one per line.
func ExtractFile(input, output string) (int, error) {
	f, err := os.Open(input)
	if err != nil {
		return 0, fmt.Errorf("input file %s not found: %w", input, err)
	}
	defer f.Close()

	urls, err := ExtractURLs(f)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", input, err)
	}
	if err := WriteLines(output, urls, false); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", output, err)
	}
	return len(urls), nil
}

// FindDuplicatesFile filters the URL list in input into output. When nothing
// matches, an existing output is left untouched and a missing one is created
// empty.
func FindDuplicatesFile(input, output string, suffixes []string) (int, error) {
	urls, err := ReadLines(input)
	if err != nil {
		return 0, fmt.Errorf("input file %s not found: %w", input, err)
	}

	matches := FindDuplicates(urls, suffixes)
	if len(matches) > 0 {
		if err := WriteLines(output, matches, true); err != nil {
			return 0, fmt.Errorf("failed to write %s: %w", output, err)
		}
		return len(matches), nil
	}

	if _, err := os.Stat(output); errors.Is(err, fs.ErrNotExist) {
		if err := os.WriteFile(output, nil, 0644); err != nil {
			return 0, fmt.Errorf("failed to create %s: %w", output, err)
		}
	} else if err != nil {
		return 0, err
	}
	return 0, nil
}
