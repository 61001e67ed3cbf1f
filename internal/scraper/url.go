package scraper

import "net/url"

// ResolveURL resolves href against base and returns an absolute URL.
// Already-absolute hrefs are returned unchanged regardless of base.
// Malformed inputs are returned as-is rather than dropped, so a record
// keeps tentative link info instead of disappearing.
func ResolveURL(base, href string) string {
	if href == "" {
		return href
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	if parsed.IsAbs() {
		return href
	}

	baseURL, err := url.Parse(base)
	if err != nil || !baseURL.IsAbs() {
		return href
	}

	return baseURL.ResolveReference(parsed).String()
}
