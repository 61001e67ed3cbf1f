// Package sources implements the sources command, which lists the
// configured campus websites.
package sources

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/tenderwatch/crawler/internal/sources"
)

// Command returns the sources command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the configured tender sources",
		RunE: func(_ *cobra.Command, _ []string) error {
			manager, err := sources.NewManager(sources.Defaults())
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"ID", "Name", "Listing URL", "Page Variants"})

			for _, src := range manager.All() {
				t.AppendRow(table.Row{
					src.ID,
					src.Name,
					src.ListingURL(),
					len(src.Strategy.PageVariants),
				})
			}
			t.Render()
			return nil
		},
	}
}
