package scraper

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/tenderwatch/crawler/internal/logger"
	"github.com/tenderwatch/crawler/internal/sources"
)

const defaultMaxDiscoveredPages = 5

// paginationKeys are query parameters that mark a link as a pagination
// variant of the listing page.
var paginationKeys = []string{"page", "pg", "start", "offset"}

// Discoverer crawls a source's listing page looking for pagination links
// that point back at the same listing. It complements the statically
// configured page variants for sources whose pagination shape drifts.
type Discoverer struct {
	log       logger.Interface
	userAgent string
	timeout   time.Duration
	maxPages  int
}

// NewDiscoverer creates a pagination discoverer. maxPages caps how many
// pagination links a single discovery pass may return.
func NewDiscoverer(log logger.Interface, userAgent string, timeout time.Duration, maxPages int) *Discoverer {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if maxPages <= 0 {
		maxPages = defaultMaxDiscoveredPages
	}
	return &Discoverer{
		log:       log,
		userAgent: userAgent,
		timeout:   timeout,
		maxPages:  maxPages,
	}
}

// ListingVariants visits the listing page and returns same-host links
// that look like further pages of the same listing.
func (d *Discoverer) ListingVariants(ctx context.Context, src sources.Source) ([]string, error) {
	listing, err := url.Parse(src.ListingURL())
	if err != nil {
		return nil, fmt.Errorf("parse listing url: %w", err)
	}

	collector := colly.NewCollector(
		colly.StdlibContext(ctx),
		colly.UserAgent(d.userAgent),
		colly.AllowedDomains(listing.Hostname()),
		colly.MaxDepth(1),
	)
	collector.SetRequestTimeout(d.timeout)

	seen := make(map[string]struct{})
	var variants []string

	collector.OnHTML("a[href]", func(e *colly.HTMLElement) {
		if len(variants) >= d.maxPages {
			return
		}

		link := e.Request.AbsoluteURL(e.Attr("href"))
		if link == "" || link == src.ListingURL() {
			return
		}
		if _, dup := seen[link]; dup {
			return
		}

		if isListingVariant(listing, link) {
			seen[link] = struct{}{}
			variants = append(variants, link)
		}
	})

	if visitErr := collector.Visit(src.ListingURL()); visitErr != nil {
		return nil, fmt.Errorf("visit listing: %w", visitErr)
	}
	collector.Wait()

	d.log.Debug("pagination discovery finished",
		"source", src.ID,
		"variants", len(variants))

	return variants, nil
}

// isListingVariant reports whether link is the same listing path with a
// pagination query parameter.
func isListingVariant(listing *url.URL, link string) bool {
	parsed, err := url.Parse(link)
	if err != nil {
		return false
	}
	if parsed.Path != listing.Path {
		return false
	}

	query := parsed.Query()
	for _, key := range paginationKeys {
		if query.Has(key) {
			return true
		}
	}
	return false
}
