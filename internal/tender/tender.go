// Package tender defines the normalized tender record types shared by the
// scraper, cache, and API layers.
package tender

// DownloadLink is one document link attached to a tender notice.
type DownloadLink struct {
	// Text is the link label as shown on the source page.
	Text string `db:"text" json:"text"`
	// URL is the absolute document URL. Relative URLs are resolved against
	// the source's base URL at parse time.
	URL string `db:"url" json:"url"`
}

// Record is one discovered tender notice in its normalized shape.
// Records are created fresh on every successful scrape and never mutated;
// the next successful scrape of the same source supersedes them wholesale.
type Record struct {
	// Name is the tender title or description. Never empty on a
	// successfully parsed record; rows without a name are dropped.
	Name string `db:"name" json:"name"`
	// PostedDate is the source-reported posting date. Sources do not share
	// a date format, so this is kept verbatim.
	PostedDate string `db:"posted_date" json:"postedDate"`
	// ClosingDate is the source-reported closing date/time, or empty when
	// the source does not supply one.
	ClosingDate string `db:"closing_date" json:"closingDate"`
	// DownloadLinks are the document links in source order. May be empty.
	DownloadLinks []DownloadLink `db:"download_links" json:"downloadLinks"`
}

// Key returns the in-process deduplication key for a record. Two rows with
// the same name and posted date are considered the same notice within one
// scrape pass. The key is not persisted.
func (r *Record) Key() string {
	return r.Name + "\x00" + r.PostedDate
}

// Dedupe returns records with duplicate (name, postedDate) pairs removed,
// keeping the first occurrence and preserving order.
func Dedupe(records []Record) []Record {
	seen := make(map[string]struct{}, len(records))
	out := make([]Record, 0, len(records))

	for i := range records {
		key := records[i].Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, records[i])
	}

	return out
}
