package sources

// defaultStripSelectors removes icon and badge markup that campus sites
// embed inside title cells before the cell text is taken.
var defaultStripSelectors = []string{"img", "sup", "span.blink", "marquee"}

// Defaults returns the compiled-in configuration for the six campus
// sources. A config file can override or replace these, but a bare
// deployment scrapes all campuses out of the box.
func Defaults() []Source {
	return []Source{
		{
			ID:          "basar",
			Name:        "RGUKT Basar",
			BaseURL:     "https://www.rgukt.ac.in",
			ListingPath: "/tenders.html",
			Strategy: Strategy{
				RowSelectors:   []string{"table.tender-table tbody tr", "table#tenders tr", "div.tenders table tr"},
				HeaderRows:     1,
				NameColumn:     0,
				PostedColumn:   1,
				ClosingColumn:  2,
				LinkColumn:     3,
				StripSelectors: defaultStripSelectors,
				PageVariants:   []string{"/tenders.html?page=2", "/tenders-archive.html"},
			},
		},
		{
			ID:          "rkvalley",
			Name:        "RGUKT RK Valley",
			BaseURL:     "https://www.rguktrkv.ac.in",
			ListingPath: "/Institute.php?view=Tenders",
			Strategy: Strategy{
				RowSelectors:   []string{"div#tenders table tr", "table.table-striped tr", "table tr"},
				HeaderRows:     1,
				NameColumn:     1,
				PostedColumn:   2,
				ClosingColumn:  3,
				LinkColumn:     -1,
				StripSelectors: defaultStripSelectors,
				PageVariants:   []string{"/Institute.php?view=Tenders&page=2"},
			},
		},
		{
			ID:          "ongole",
			Name:        "RGUKT Ongole",
			BaseURL:     "https://www.rguktong.ac.in",
			ListingPath: "/tenders.php",
			Strategy: Strategy{
				RowSelectors:   []string{"table.tenders tbody tr", "div.content table tr"},
				HeaderRows:     1,
				NameColumn:     0,
				PostedColumn:   1,
				ClosingColumn:  2,
				LinkColumn:     -1,
				StripSelectors: defaultStripSelectors,
			},
		},
		{
			ID:          "sklm",
			Name:        "RGUKT Srikakulam",
			BaseURL:     "https://rguktsklm.ac.in",
			ListingPath: "/tenders/",
			Strategy: Strategy{
				RowSelectors:   []string{"table#tender-list tr", "main table tr", "table tr"},
				HeaderRows:     1,
				NameColumn:     0,
				PostedColumn:   1,
				ClosingColumn:  2,
				LinkColumn:     3,
				StripSelectors: defaultStripSelectors,
				PageVariants:   []string{"/tenders/?pg=2", "/tenders/archive/"},
			},
		},
		{
			ID:          "nuzvidu",
			Name:        "RGUKT Nuzvid",
			BaseURL:     "https://www.rguktn.ac.in",
			ListingPath: "/tenders/",
			Strategy: Strategy{
				RowSelectors:   []string{"div.tender-listing table tr", "table.table tr"},
				HeaderRows:     1,
				NameColumn:     0,
				PostedColumn:   1,
				ClosingColumn:  2,
				LinkColumn:     -1,
				StripSelectors: defaultStripSelectors,
			},
		},
		{
			ID:          "rgukt-main",
			Name:        "RGUKT Main",
			BaseURL:     "https://rgukt.in",
			ListingPath: "/tenders.html",
			Strategy: Strategy{
				RowSelectors:   []string{"table.list tr", "div#main table tr", "table tr"},
				HeaderRows:     1,
				NameColumn:     0,
				PostedColumn:   1,
				ClosingColumn:  2,
				LinkColumn:     -1,
				StripSelectors: defaultStripSelectors,
				PageVariants:   []string{"/tenders.html?start=20"},
			},
		},
	}
}
