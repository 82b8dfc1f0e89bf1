package main

import (
	"fmt"
	"os"

	"github.com/javiercastrodev/claro-urls-duplicates/internal/matcher"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "sitemaps",
		Usage: "Find stale sitemap URLs and report them over HTTP or email",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "directory holding config.yaml and .env",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "serve",
				Usage:     "Run the HTTP API",
				ArgsUsage: "[port]",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "port", Usage: "listen port (overrides PORT)"},
				},
				Action: ServeAction,
			},
			{
				Name:      "urls",
				Usage:     "Print the deletion report as JSON",
				ArgsUsage: "[sitemap_url] [suffixes_csv]",
				Action:    URLsAction,
			},
			{
				Name:      "send-report",
				Usage:     "Build the deletion report and email it over SMTP",
				ArgsUsage: "[sitemap_url] [suffixes_csv]",
				Action:    SendReportAction,
			},
			{
				Name:  "extract-urls",
				Usage: "Extract unique URLs from a text file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "input", Value: "urls-sitemaps.txt"},
					&cli.StringFlag{Name: "output", Value: "claro_urls.txt"},
				},
				Action: ExtractURLsAction,
			},
			{
				Name:  "find-duplicates",
				Usage: "Keep the URLs of a list that end with a duplicate suffix",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "input", Value: "claro_urls.txt"},
					&cli.StringFlag{Name: "output", Value: "urls_a_eliminar.txt"},
					&cli.StringFlag{Name: "suffixes", Value: "_test,-test,_1"},
				},
				Action: FindDuplicatesAction,
			},
		},
	}
}

// argSuffixes parses an optional CSV argument; a blank one keeps the defaults.
func argSuffixes(c *cli.Context, index int) []string {
	return matcher.OptionalSuffixes(c.Args().Get(index))
}
