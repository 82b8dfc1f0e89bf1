package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/javiercastrodev/claro-urls-duplicates/config"
	"github.com/javiercastrodev/claro-urls-duplicates/internal/api"
	"github.com/javiercastrodev/claro-urls-duplicates/internal/extract"
	"github.com/javiercastrodev/claro-urls-duplicates/internal/mailer"
	"github.com/javiercastrodev/claro-urls-duplicates/internal/matcher"
	"github.com/javiercastrodev/claro-urls-duplicates/internal/report"
	"github.com/javiercastrodev/claro-urls-duplicates/internal/sitemap"
	"github.com/javiercastrodev/claro-urls-duplicates/internal/storage"
	"github.com/javiercastrodev/claro-urls-duplicates/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

type runtime struct {
	cfg     *config.Config
	log     *logrus.Logger
	store   storage.Store
	reports *report.Service
}

// setup loads configuration and wires the report service shared by every
// report command.
func setup(c *cli.Context) (*runtime, error) {
	var paths []string
	if dir := c.String("config"); dir != "" {
		paths = append(paths, dir)
	}

	cfg, err := config.LoadConfig(paths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := utils.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	fetcher := sitemap.NewCollyFetcher(cfg.FetcherConfig())
	collector := sitemap.NewCollector(fetcher, cfg.CollectorConfig(), log)
	reports := report.NewService(collector, store, report.Config{
		SitemapURL: cfg.Sitemap.URL,
		Suffixes:   cfg.Sitemap.Suffixes,
		LogDir:     cfg.Log.Dir,
	}, log)

	return &runtime{cfg: cfg, log: log, store: store, reports: reports}, nil
}

func (rt *runtime) Close() {
	if rt.store != nil {
		if err := rt.store.Close(); err != nil {
			rt.log.WithError(err).Warn("Failed to close storage")
		}
	}
}

func ServeAction(c *cli.Context) error {
	rt, err := setup(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	port := rt.cfg.Server.Port
	if c.IsSet("port") {
		port = c.Int("port")
	} else if arg := c.Args().First(); arg != "" {
		if port, err = strconv.Atoi(arg); err != nil {
			return fmt.Errorf("invalid port %q", arg)
		}
	}

	if rt.log.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	newSender := func() (mailer.Sender, error) {
		return mailer.New(rt.cfg.MailerConfig())
	}
	handler := api.NewHandler(rt.reports, rt.store, newSender, rt.cfg.Report.CronSecret, rt.log)
	server := api.NewServer(port, handler, rt.log)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errCh <- err
		}
	}()

	return waitForShutdown(server, errCh, rt.log)
}

func waitForShutdown(server *api.Server, errCh <-chan error, log logrus.FieldLogger) error {
	// Handle system signals for shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errCh:
		return fmt.Errorf("API server stopped: %w", err)
	case <-sigChan:
	}

	log.Info("Shutting down...")

	// Graceful server shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Error shutting down server")
		return err
	}
	log.Info("Server shut down gracefully")
	return nil
}

func URLsAction(c *cli.Context) error {
	rt, err := setup(c)
	if err != nil {
		return err
	}
	defer rt.Close()
	// stdout carries the report
	rt.log.SetOutput(os.Stderr)

	record, err := rt.reports.Build(c.Context, c.Args().Get(0), argSuffixes(c, 1))
	if err != nil {
		return err
	}

	body, err := report.JSON(record.Report)
	if err != nil {
		return err
	}
	fmt.Println(string(body))
	return nil
}

func SendReportAction(c *cli.Context) error {
	rt, err := setup(c)
	if err != nil {
		return err
	}
	defer rt.Close()
	rt.log.SetOutput(os.Stderr)

	sender, err := mailer.NewSMTPSenderFromConfig(rt.cfg.MailerConfig())
	if err != nil {
		return err
	}

	record, err := rt.reports.Build(c.Context, c.Args().Get(0), argSuffixes(c, 1))
	if err != nil {
		return err
	}

	result, err := rt.reports.Send(c.Context, record.Report, sender, report.EmailOptions{Table: true})
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println("OK - delivery response:")
	fmt.Println(string(out))
	return nil
}

func ExtractURLsAction(c *cli.Context) error {
	input, output := c.String("input"), c.String("output")

	n, err := extract.ExtractFile(input, output)
	if err != nil {
		return err
	}

	fmt.Printf("Extracted %d URLs into '%s'.\n", n, output)
	return nil
}

func FindDuplicatesAction(c *cli.Context) error {
	input, output := c.String("input"), c.String("output")
	suffixes := matcher.ParseSuffixes(c.String("suffixes"))

	n, err := extract.FindDuplicatesFile(input, output, suffixes)
	if err != nil {
		return err
	}

	if n == 0 {
		fmt.Printf("No URLs ending in %s found in '%s'.\n", strings.Join(suffixes, ", "), input)
		return nil
	}
	fmt.Printf("Saved %d URLs to delete into '%s'.\n", n, output)
	return nil
}
