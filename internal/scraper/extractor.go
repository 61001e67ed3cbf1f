package scraper

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/tenderwatch/crawler/internal/sources"
	"github.com/tenderwatch/crawler/internal/tender"
)

// ExtractRecords parses a listing page body into normalized tender records
// using the source's parsing strategy.
//
// Zero matched rows on an otherwise well-formed page is valid output — a
// campus can legitimately have no open tenders. A page with no body text
// at all is surfaced as ErrEmptyPage instead, since it usually means an
// error page or a broken response.
func ExtractRecords(src sources.Source, body []byte) ([]tender.Record, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	rows := findRows(doc, &src.Strategy)
	if rows == nil {
		if pageLooksEmpty(doc) {
			return nil, ErrEmptyPage
		}
		return []tender.Record{}, nil
	}

	records := make([]tender.Record, 0, rows.Length())

	rows.Each(func(_ int, row *goquery.Selection) {
		record, ok := extractRow(src, row)
		if ok {
			records = append(records, record)
		}
	})

	return tender.Dedupe(records), nil
}

// findRows tries each configured row selector in order and returns the
// first non-empty match with header rows skipped, or nil when no selector
// matches anything.
func findRows(doc *goquery.Document, strategy *sources.Strategy) *goquery.Selection {
	for _, selector := range strategy.RowSelectors {
		rows := doc.Find(selector)
		if rows.Length() > strategy.HeaderRows {
			return rows.Slice(strategy.HeaderRows, rows.Length())
		}
	}
	return nil
}

// pageLooksEmpty reports whether the document has no text content.
func pageLooksEmpty(doc *goquery.Document) bool {
	return strings.TrimSpace(doc.Find("body").Text()) == ""
}

// extractRow maps one table row to a record. Rows without enough cells or
// without a name are dropped rather than producing partial records.
func extractRow(src sources.Source, row *goquery.Selection) (tender.Record, bool) {
	strategy := &src.Strategy

	cells := row.Find("td")
	if cells.Length() <= strategy.NameColumn {
		return tender.Record{}, false
	}

	name := cellText(cells.Eq(strategy.NameColumn), strategy.StripSelectors)
	if name == "" {
		return tender.Record{}, false
	}

	record := tender.Record{
		Name:          name,
		PostedDate:    columnText(cells, strategy.PostedColumn, strategy.StripSelectors),
		ClosingDate:   columnText(cells, strategy.ClosingColumn, strategy.StripSelectors),
		DownloadLinks: extractLinks(src.BaseURL, cells, strategy.LinkCell()),
	}

	return record, true
}

// columnText returns cleaned text from the given cell index, or an empty
// string when the column is unconfigured or out of range.
func columnText(cells *goquery.Selection, column int, strip []string) string {
	if column < 0 || column >= cells.Length() {
		return ""
	}
	return cellText(cells.Eq(column), strip)
}

// cellText strips configured icon/badge markup and collapses whitespace.
func cellText(cell *goquery.Selection, strip []string) string {
	for _, selector := range strip {
		cell.Find(selector).Remove()
	}
	return strings.Join(strings.Fields(cell.Text()), " ")
}

// extractLinks collects anchor links from the link cell, resolving each
// href to an absolute URL against the source base.
func extractLinks(baseURL string, cells *goquery.Selection, column int) []tender.DownloadLink {
	if column < 0 || column >= cells.Length() {
		return nil
	}

	var links []tender.DownloadLink

	cells.Eq(column).Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if href == "" || strings.HasPrefix(href, "javascript:") {
			return
		}

		text := strings.Join(strings.Fields(a.Text()), " ")
		if text == "" {
			text = "Download"
		}

		links = append(links, tender.DownloadLink{
			Text: text,
			URL:  ResolveURL(baseURL, href),
		})
	})

	return links
}
