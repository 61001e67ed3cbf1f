package sources

import "errors"

// Strategy describes how to parse one source's listing markup into tender
// records. Every configured source carries a fully populated strategy, so
// the extractor never dispatches on ad hoc selector strings.
type Strategy struct {
	// RowSelectors is the selector chain for tender rows. The first
	// selector is the primary one; the rest are alternates tried in order
	// when the primary yields zero matches. Campus sites change markup
	// without notice, so the chain is a resilience feature.
	RowSelectors []string `mapstructure:"row_selectors" yaml:"row_selectors"`
	// HeaderRows is the number of leading rows to skip per match set.
	HeaderRows int `mapstructure:"header_rows" yaml:"header_rows"`
	// NameColumn is the zero-based cell index holding the tender title.
	NameColumn int `mapstructure:"name_column" yaml:"name_column"`
	// PostedColumn is the cell index holding the posted date, or -1 when
	// the source does not publish one.
	PostedColumn int `mapstructure:"posted_column" yaml:"posted_column"`
	// ClosingColumn is the cell index holding the closing date, or -1.
	ClosingColumn int `mapstructure:"closing_column" yaml:"closing_column"`
	// LinkColumn is the cell index holding download links, or -1 when the
	// links live inside the name cell.
	LinkColumn int `mapstructure:"link_column" yaml:"link_column"`
	// StripSelectors are removed from a cell before its text is taken,
	// e.g. "new" icons and badge markup embedded in title cells.
	StripSelectors []string `mapstructure:"strip_selectors" yaml:"strip_selectors"`
	// PageVariants are relative URL or query-string variants probed in
	// order by the enumeration scrape until enough unique records are
	// accumulated. May be empty for single-page sources.
	PageVariants []string `mapstructure:"page_variants" yaml:"page_variants"`
}

// Validate validates the parsing strategy.
func (s *Strategy) Validate() error {
	if len(s.RowSelectors) == 0 {
		return errors.New("at least one row selector is required")
	}
	if s.NameColumn < 0 {
		return errors.New("name column is required")
	}
	if s.HeaderRows < 0 {
		return errors.New("header_rows must be non-negative")
	}
	return nil
}

// LinkCell returns the cell index to scan for download links. When no
// dedicated link column is configured the name cell is used.
func (s *Strategy) LinkCell() int {
	if s.LinkColumn >= 0 {
		return s.LinkColumn
	}
	return s.NameColumn
}
