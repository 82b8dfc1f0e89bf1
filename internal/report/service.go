// Package report runs a sitemap collection, flags deletion candidates and
// turns the result into JSON, HTML and email.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/javiercastrodev/claro-urls-duplicates/internal/mailer"
	"github.com/javiercastrodev/claro-urls-duplicates/internal/matcher"
	"github.com/javiercastrodev/claro-urls-duplicates/internal/models"
	"github.com/javiercastrodev/claro-urls-duplicates/internal/sitemap"
	"github.com/javiercastrodev/claro-urls-duplicates/internal/storage"
	"github.com/javiercastrodev/claro-urls-duplicates/internal/utils"
	"github.com/sirupsen/logrus"
)

type Config struct {
	SitemapURL string
	Suffixes   []string
	// LogDir enables a dedicated log file per run when set.
	LogDir string
}

type Service struct {
	collector *sitemap.Collector
	store     storage.Store
	config    Config
	log       *logrus.Logger
}

// NewService wires a report service. store may be nil to disable archiving.
func NewService(collector *sitemap.Collector, store storage.Store, config Config, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if len(config.Suffixes) == 0 {
		config.Suffixes = matcher.DefaultSuffixes
	}
	return &Service{
		collector: collector,
		store:     store,
		config:    config,
		log:       log,
	}
}

// Archived reports whether finished reports are persisted.
func (s *Service) Archived() bool {
	return s.store != nil
}

// ResolveSitemap returns the trimmed sitemapURL or the configured default
// when it is blank.
func (s *Service) ResolveSitemap(sitemapURL string) string {
	if sitemapURL = strings.TrimSpace(sitemapURL); sitemapURL == "" {
		return s.config.SitemapURL
	}
	return sitemapURL
}

// Build collects sitemapURL and matches its pages against suffixes. A blank
// sitemap and nil suffixes fall back to the configured defaults; an empty
// non-nil suffix list is honoured and matches nothing. The returned record
// always carries an ID, but it is only stored when an archive is configured.
func (s *Service) Build(ctx context.Context, sitemapURL string, suffixes []string) (*models.ReportRecord, error) {
	sitemapURL = s.ResolveSitemap(sitemapURL)
	if suffixes == nil {
		suffixes = s.config.Suffixes
	}

	log, done := s.runLogger(sitemapURL)
	defer done()

	log.WithFields(logrus.Fields{
		"sitemap":  sitemapURL,
		"suffixes": suffixes,
	}).Info("Starting report")

	started := time.Now()
	pages, err := s.collector.WithLogger(log).Collect(ctx, sitemapURL)
	if err != nil {
		log.WithError(err).Error("Sitemap collection failed")
		return nil, err
	}

	candidates := matcher.FindDeletionCandidates(pages, suffixes)

	record := models.NewReportRecord(models.Report{
		Sitemap:      sitemapURL,
		Suffixes:     suffixes,
		TotalURLs:    len(pages),
		URLsToDelete: candidates,
		Count:        len(candidates),
		ElapsedMS:    time.Since(started).Milliseconds(),
	})

	log.WithFields(logrus.Fields{
		"report_id":  record.ID,
		"total_urls": record.TotalURLs,
		"count":      record.Count,
		"elapsed_ms": record.ElapsedMS,
	}).Info("Report built")

	if s.store != nil {
		if err := s.store.SaveReport(ctx, record); err != nil {
			log.WithError(err).WithField("report_id", record.ID).Warn("Failed to archive report")
		}
	}

	return record, nil
}

// EmailOptions selects the email body layout.
type EmailOptions struct {
	// Table renders the candidates as an HTML table; otherwise the HTML part
	// is the report JSON inside <pre>.
	Table bool
	// AttachJSON adds the report JSON as urls_a_eliminar.json.
	AttachJSON bool
}

// Compose builds the report email. The text part is always the report JSON.
func Compose(r models.Report, opts EmailOptions) (*mailer.Message, error) {
	reportJSON, err := JSON(r)
	if err != nil {
		return nil, err
	}

	msg := &mailer.Message{
		Subject: Subject(r.Count),
		Text:    string(reportJSON),
	}

	if opts.Table {
		if msg.HTML, err = HTMLTable(r.URLsToDelete); err != nil {
			return nil, err
		}
	} else {
		msg.HTML = HTMLPre(reportJSON)
	}

	if opts.AttachJSON {
		msg.Attachments = append(msg.Attachments, mailer.Attachment{
			Filename:    AttachmentName,
			ContentType: "application/json",
			Content:     reportJSON,
		})
	}

	return msg, nil
}

// Send emails r through sender.
func (s *Service) Send(ctx context.Context, r models.Report, sender mailer.Sender, opts EmailOptions) (mailer.Result, error) {
	msg, err := Compose(r, opts)
	if err != nil {
		return nil, err
	}

	result, err := sender.Send(ctx, msg)
	if err != nil {
		s.log.WithError(err).WithField("subject", msg.Subject).Error("Failed to send report")
		return nil, fmt.Errorf("failed to send report: %w", err)
	}

	s.log.WithField("subject", msg.Subject).Info("Report sent")
	return result, nil
}

func (s *Service) runLogger(sitemapURL string) (logrus.FieldLogger, func()) {
	if s.config.LogDir == "" {
		return s.log, func() {}
	}

	run, err := utils.NewRunLogger(s.log, s.config.LogDir, sitemapURL)
	if err != nil {
		s.log.WithError(err).Warn("Failed to create run log, using process logger")
		return s.log, func() {}
	}
	return run, func() {
		if err := run.Close(); err != nil {
			s.log.WithError(err).Warn("Failed to close run log")
		}
	}
}
