// Package scrape implements the scrape command, a one-off scrape of one
// or all sources with the results printed as a table.
package scrape

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tenderwatch/crawler/internal/app"
	"github.com/tenderwatch/crawler/internal/config"
	"github.com/tenderwatch/crawler/internal/sources"
	"github.com/tenderwatch/crawler/internal/tender"
)

const nameColumnWidth = 70

// Command returns the scrape command.
func Command() *cobra.Command {
	var (
		all   bool
		limit int
	)

	cmd := &cobra.Command{
		Use:   "scrape [source]",
		Short: "Scrape tender notices from a source and print them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("provide a source ID or --all")
			}

			cfg, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}
			// One-off runs have no use for external stores.
			cfg.Cache.Backend = config.BackendMemory
			cfg.Archive.Enabled = false
			cfg.Search.Enabled = false

			application, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer application.Close()

			if all {
				return scrapeAll(cmd.Context(), application, limit)
			}
			return scrapeOne(cmd.Context(), application, args[0], limit)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "scrape every configured source")
	cmd.Flags().IntVar(&limit, "limit", 0,
		"stop once this many unique tenders are collected, probing page variants (0 = first page only)")
	return cmd
}

func scrapeOne(ctx context.Context, application *app.App, sourceID string, limit int) error {
	src, err := application.Sources.Get(sourceID)
	if err != nil {
		return err
	}

	records, err := scrapeSource(ctx, application, src, limit)
	if err != nil {
		return fmt.Errorf("scraping %s: %w", src.ID, err)
	}

	printRecords(src, records)
	return nil
}

func scrapeAll(ctx context.Context, application *app.App, limit int) error {
	var failed int
	for _, src := range application.Sources.All() {
		records, err := scrapeSource(ctx, application, src, limit)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "scraping %s failed: %v\n", src.ID, err)
			continue
		}
		printRecords(src, records)
	}

	if failed > 0 {
		return fmt.Errorf("%d source(s) failed", failed)
	}
	return nil
}

func scrapeSource(ctx context.Context, application *app.App, src sources.Source, limit int) ([]tender.Record, error) {
	if limit > 0 {
		return application.Adapter.ScrapeUpTo(ctx, src, limit)
	}
	return application.Adapter.Scrape(ctx, src)
}

func printRecords(src sources.Source, records []tender.Record) {
	fmt.Printf("\n%s (%s): %d tender(s)\n", src.Name, src.ID, len(records))

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Name", WidthMax: nameColumnWidth},
	})

	t.AppendHeader(table.Row{"#", "Name", "Posted", "Closing", "Links"})
	for i, record := range records {
		t.AppendRow(table.Row{
			i + 1,
			record.Name,
			record.PostedDate,
			record.ClosingDate,
			len(record.DownloadLinks),
		})
	}
	t.Render()
}
