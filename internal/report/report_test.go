package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/javiercastrodev/claro-urls-duplicates/internal/mailer"
	"github.com/javiercastrodev/claro-urls-duplicates/internal/models"
	"github.com/javiercastrodev/claro-urls-duplicates/internal/sitemap"
	"github.com/javiercastrodev/claro-urls-duplicates/internal/storage"
	"github.com/sirupsen/logrus"
)

const rootURL = "https://x.com/sitemap.xml"

type mapFetcher map[string]string

func (f mapFetcher) Fetch(_ context.Context, url string) (*sitemap.Document, error) {
	body, ok := f[url]
	if !ok {
		return nil, errors.New("404 Not Found")
	}
	return &sitemap.Document{Body: []byte(body)}, nil
}

type recordingSender struct {
	messages []*mailer.Message
	err      error
}

func (s *recordingSender) Send(_ context.Context, msg *mailer.Message) (mailer.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.messages = append(s.messages, msg)
	return mailer.Result{"status": "sent"}, nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func strPtr(s string) *string { return &s }

func fixtures() mapFetcher {
	return mapFetcher{
		rootURL: `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://x.com/a_test</loc><lastmod>2024-01-01</lastmod></url>
  <url><loc>https://x.com/b</loc></url>
  <url><loc>https://x.com/c-test/d</loc></url>
</urlset>`,
	}
}

func newTestService(t *testing.T, store storage.Store, config Config) *Service {
	t.Helper()
	log := quietLogger()
	collector := sitemap.NewCollector(fixtures(), sitemap.CollectorConfig{}, log)
	return NewService(collector, store, config, log)
}

func TestService_Build(t *testing.T) {
	service := newTestService(t, nil, Config{SitemapURL: rootURL, Suffixes: []string{"_test", "-test"}})

	record, err := service.Build(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if record.Sitemap != rootURL {
		t.Errorf("expected default sitemap, got %s", record.Sitemap)
	}
	if record.TotalURLs != 3 || record.Count != 2 {
		t.Errorf("expected 3 total / 2 candidates, got %d / %d", record.TotalURLs, record.Count)
	}
	if record.URLsToDelete[0].URL != "https://x.com/a_test" || *record.URLsToDelete[0].LastModified != "2024-01-01" {
		t.Errorf("unexpected first candidate %+v", record.URLsToDelete[0])
	}
	if record.URLsToDelete[1].URL != "https://x.com/c-test/d" || record.URLsToDelete[1].LastModified != nil {
		t.Errorf("unexpected second candidate %+v", record.URLsToDelete[1])
	}
	if record.ElapsedMS < 0 {
		t.Errorf("negative elapsed time %d", record.ElapsedMS)
	}
}

func TestService_BuildOverrides(t *testing.T) {
	service := newTestService(t, nil, Config{SitemapURL: "https://unused.example/sitemap.xml"})

	record, err := service.Build(context.Background(), "  "+rootURL+" ", []string{"_zzz"})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if record.Sitemap != rootURL {
		t.Errorf("expected trimmed sitemap, got %q", record.Sitemap)
	}
	if record.Count != 0 || record.URLsToDelete == nil {
		t.Errorf("expected empty non-nil candidates, got %#v", record.URLsToDelete)
	}
}

func TestService_BuildExplicitlyEmptySuffixes(t *testing.T) {
	service := newTestService(t, nil, Config{SitemapURL: rootURL, Suffixes: []string{"_test"}})

	record, err := service.Build(context.Background(), "", []string{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if record.Suffixes == nil || len(record.Suffixes) != 0 {
		t.Errorf("expected empty suffixes, got %#v", record.Suffixes)
	}
	if record.Count != 0 || len(record.URLsToDelete) != 0 {
		t.Errorf("expected no candidates, got %#v", record.URLsToDelete)
	}
	if record.TotalURLs == 0 {
		t.Error("expected the sitemap to be collected")
	}
}

func TestService_BuildFetchError(t *testing.T) {
	service := newTestService(t, nil, Config{SitemapURL: "https://x.com/missing.xml"})

	_, err := service.Build(context.Background(), "", nil)
	var fetchErr *sitemap.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
}

func TestService_BuildArchives(t *testing.T) {
	store, err := storage.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if err := store.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer store.Close()

	service := newTestService(t, store, Config{SitemapURL: rootURL})
	if !service.Archived() {
		t.Fatal("expected archiving to be enabled")
	}

	record, err := service.Build(context.Background(), "", []string{"_test"})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	saved, err := store.GetReport(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if saved == nil || saved.Count != 1 {
		t.Errorf("expected archived report with 1 candidate, got %+v", saved)
	}
}

func TestService_BuildArchiveFailureIsNotFatal(t *testing.T) {
	store, err := storage.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	// No Initialize: the reports table is missing and every save fails.
	defer store.Close()

	service := newTestService(t, store, Config{SitemapURL: rootURL})
	if _, err := service.Build(context.Background(), "", nil); err != nil {
		t.Fatalf("archive failure should not fail the build: %v", err)
	}
}

func TestService_BuildRunLog(t *testing.T) {
	dir := t.TempDir()
	service := newTestService(t, nil, Config{SitemapURL: rootURL, LogDir: dir})

	if _, err := service.Build(context.Background(), "", nil); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "x_com", "report_x_com_*.log"))
	if err != nil || len(files) != 1 {
		t.Fatalf("expected one run log, got %v (%v)", files, err)
	}
	data, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "Report built") {
		t.Errorf("run log missing completion entry: %s", data)
	}
}

func TestJSON(t *testing.T) {
	out, err := JSON(models.Report{
		Sitemap:      rootURL,
		Suffixes:     []string{"_test"},
		TotalURLs:    1,
		URLsToDelete: []models.Candidate{{URL: "https://x.com/página_test?a=1&b=2"}},
		Count:        1,
	})
	if err != nil {
		t.Fatalf("JSON() error = %v", err)
	}

	text := string(out)
	if !strings.Contains(text, "\n  \"sitemap\": ") {
		t.Errorf("expected two space indentation:\n%s", text)
	}
	if !strings.Contains(text, "página_test?a=1&b=2") {
		t.Errorf("expected raw non-ASCII and ampersand:\n%s", text)
	}
	if !strings.Contains(text, `"ultima_actualizacion": null`) {
		t.Errorf("expected null last-modified:\n%s", text)
	}
	if strings.HasSuffix(text, "\n") {
		t.Error("expected no trailing newline")
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	for _, key := range []string{"sitemap", "suffixes", "total_urls", "urls_to_delete", "count", "elapsed_ms"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("missing key %s", key)
		}
	}
}

func TestJSON_EmptyLists(t *testing.T) {
	out, err := JSON(models.Report{Sitemap: rootURL})
	if err != nil {
		t.Fatalf("JSON() error = %v", err)
	}
	if !strings.Contains(string(out), `"urls_to_delete": []`) || !strings.Contains(string(out), `"suffixes": []`) {
		t.Errorf("expected empty arrays, got %s", out)
	}
}

func TestHTMLTable(t *testing.T) {
	tests := []struct {
		name       string
		candidates []models.Candidate
		wantRows   int
		check      func(t *testing.T, doc *goquery.Document)
	}{
		{
			name: "rows",
			candidates: []models.Candidate{
				{URL: "https://x.com/a_test", LastModified: strPtr("2024-01-01")},
				{URL: "https://x.com/<b>_1"},
			},
			wantRows: 2,
			check: func(t *testing.T, doc *goquery.Document) {
				first := doc.Find("tbody tr").First()
				if href, _ := first.Find("a").Attr("href"); href != "https://x.com/a_test" {
					t.Errorf("unexpected href %q", href)
				}
				if got := first.Find("td").Eq(1).Text(); got != "2024-01-01" {
					t.Errorf("unexpected last-modified cell %q", got)
				}
				second := doc.Find("tbody tr").Eq(1)
				if got := second.Find("a").Text(); got != "https://x.com/<b>_1" {
					t.Errorf("unexpected link text %q", got)
				}
				if second.Find("b").Length() != 0 {
					t.Error("URL markup was not escaped")
				}
				if got := second.Find("td").Eq(1).Text(); got != "" {
					t.Errorf("expected empty last-modified cell, got %q", got)
				}
			},
		},
		{
			name:     "empty",
			wantRows: 1,
			check: func(t *testing.T, doc *goquery.Document) {
				cell := doc.Find("tbody tr td")
				if cell.Text() != "Sin resultados" {
					t.Errorf("unexpected placeholder %q", cell.Text())
				}
				if colspan, _ := cell.Attr("colspan"); colspan != "2" {
					t.Errorf("unexpected colspan %q", colspan)
				}
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			out, err := HTMLTable(test.candidates)
			if err != nil {
				t.Fatalf("HTMLTable() error = %v", err)
			}
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(out))
			if err != nil {
				t.Fatalf("invalid HTML: %v", err)
			}
			if got := doc.Find("thead th").Length(); got != 2 {
				t.Errorf("expected 2 header cells, got %d", got)
			}
			if got := doc.Find("thead th").Eq(1).Text(); got != "Ultima actualización" {
				t.Errorf("unexpected header %q", got)
			}
			if got := doc.Find("tbody tr").Length(); got != test.wantRows {
				t.Errorf("expected %d rows, got %d", test.wantRows, got)
			}
			test.check(t, doc)
		})
	}
}

func TestHTMLPreAndSubject(t *testing.T) {
	if got := HTMLPre([]byte(`{"url": "a<b>"}`)); got != `<pre>{&#34;url&#34;: &#34;a&lt;b&gt;&#34;}</pre>` {
		t.Errorf("unexpected pre block %q", got)
	}
	if got := Subject(3); got != "Claro sitemap - URLs a eliminar (3)" {
		t.Errorf("unexpected subject %q", got)
	}
}

func TestService_Send(t *testing.T) {
	r := models.Report{
		Sitemap:      rootURL,
		Suffixes:     []string{"_test"},
		TotalURLs:    2,
		URLsToDelete: []models.Candidate{{URL: "https://x.com/a_test"}},
		Count:        1,
	}

	tests := []struct {
		name           string
		opts           EmailOptions
		wantTable      bool
		wantAttachment bool
	}{
		{name: "api layout", opts: EmailOptions{AttachJSON: true}, wantAttachment: true},
		{name: "cli layout", opts: EmailOptions{Table: true}, wantTable: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			sender := &recordingSender{}
			service := newTestService(t, nil, Config{SitemapURL: rootURL})

			result, err := service.Send(context.Background(), r, sender, test.opts)
			if err != nil {
				t.Fatalf("Send() error = %v", err)
			}
			if result["status"] != "sent" {
				t.Errorf("unexpected result %v", result)
			}
			if len(sender.messages) != 1 {
				t.Fatalf("expected 1 message, got %d", len(sender.messages))
			}

			msg := sender.messages[0]
			reportJSON, _ := JSON(r)
			if msg.Subject != "Claro sitemap - URLs a eliminar (1)" {
				t.Errorf("unexpected subject %q", msg.Subject)
			}
			if msg.Text != string(reportJSON) {
				t.Errorf("text part should be the report JSON, got %q", msg.Text)
			}
			if test.wantTable != strings.Contains(msg.HTML, "<table") {
				t.Errorf("unexpected html layout %q", msg.HTML)
			}
			if !test.wantTable && !strings.HasPrefix(msg.HTML, "<pre>") {
				t.Errorf("expected <pre> body, got %q", msg.HTML)
			}
			if test.wantAttachment {
				if len(msg.Attachments) != 1 || msg.Attachments[0].Filename != "urls_a_eliminar.json" {
					t.Fatalf("unexpected attachments %+v", msg.Attachments)
				}
				if !bytes.Equal(msg.Attachments[0].Content, reportJSON) {
					t.Error("attachment should hold the report JSON")
				}
			} else if len(msg.Attachments) != 0 {
				t.Errorf("expected no attachments, got %d", len(msg.Attachments))
			}
		})
	}
}

func TestService_SendError(t *testing.T) {
	service := newTestService(t, nil, Config{SitemapURL: rootURL})
	sender := &recordingSender{err: errors.New("mailersend returned status 401")}

	_, err := service.Send(context.Background(), models.Report{}, sender, EmailOptions{})
	if err == nil || !strings.Contains(err.Error(), "status 401") {
		t.Errorf("expected wrapped sender error, got %v", err)
	}
}
