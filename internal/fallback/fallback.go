// Package fallback supplies static placeholder tender data served when
// both the live scrape and the cache are unavailable for a source.
package fallback

import (
	"fmt"

	"github.com/tenderwatch/crawler/internal/sources"
	"github.com/tenderwatch/crawler/internal/tender"
)

// Provider builds placeholder records. It performs no I/O; everything it
// returns is derived from the compiled-in source configuration.
type Provider struct{}

// NewProvider creates a fallback provider.
func NewProvider() *Provider {
	return &Provider{}
}

// Records returns the placeholder record set for the source: a single
// notice pointing readers at the official tenders page. Never empty.
func (p *Provider) Records(src sources.Source) []tender.Record {
	return []tender.Record{
		{
			Name: fmt.Sprintf(
				"Tender information for %s is temporarily unavailable. Please check the official website.",
				src.Name,
			),
			PostedDate:  "",
			ClosingDate: "",
			DownloadLinks: []tender.DownloadLink{
				{
					Text: fmt.Sprintf("%s tenders page", src.Name),
					URL:  src.FallbackURL(),
				},
			},
		},
	}
}
