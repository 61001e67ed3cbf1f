package tender_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenderwatch/crawler/internal/tender"
)

func makeRecords(n int) []tender.Record {
	records := make([]tender.Record, 0, n)
	for i := range n {
		records = append(records, tender.Record{
			Name:       fmt.Sprintf("Tender %02d", i),
			PostedDate: "01-08-2026",
		})
	}
	return records
}

func TestPage_SliceSizes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		total     int
		page      int
		limit     int
		wantLen   int
		wantPages int
	}{
		{"first full page", 10, 1, 4, 4, 3},
		{"middle page", 10, 2, 4, 4, 3},
		{"short last page", 10, 3, 4, 2, 3},
		{"page past end", 10, 4, 4, 0, 3},
		{"limit larger than set", 3, 1, 10, 3, 1},
		{"empty set", 0, 1, 5, 0, 0},
		{"page zero treated as first", 10, 0, 4, 4, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			slice, totalPages := tender.Page(makeRecords(tt.total), tt.page, tt.limit)
			assert.Len(t, slice, tt.wantLen)
			assert.Equal(t, tt.wantPages, totalPages)
		})
	}
}

func TestPage_ConcatenationReconstructsSet(t *testing.T) {
	t.Parallel()

	records := makeRecords(23)
	limit := 5

	var rebuilt []tender.Record
	for page := 1; ; page++ {
		slice, totalPages := tender.Page(records, page, limit)
		rebuilt = append(rebuilt, slice...)
		if page >= totalPages {
			break
		}
	}

	require.Equal(t, records, rebuilt)
}

func TestPaginate_Envelope(t *testing.T) {
	t.Parallel()

	resp := tender.NewResponse("basar", makeRecords(7), true, false)
	paged := tender.Paginate(resp, 2, 3)

	assert.True(t, paged.Success)
	assert.Equal(t, "basar", paged.Source)
	assert.Equal(t, 7, paged.TotalCount)
	assert.Equal(t, 2, paged.CurrentPage)
	assert.Equal(t, 3, paged.TotalPages)
	assert.Len(t, paged.Data, 3)
	assert.True(t, paged.Cached)
	assert.False(t, paged.Fallback)
}

func TestDedupe(t *testing.T) {
	t.Parallel()

	records := []tender.Record{
		{Name: "Canteen services", PostedDate: "01-08-2026"},
		{Name: "Canteen services", PostedDate: "01-08-2026"},
		{Name: "Canteen services", PostedDate: "15-07-2026"},
		{Name: "Lab equipment", PostedDate: "01-08-2026"},
	}

	deduped := tender.Dedupe(records)
	require.Len(t, deduped, 3)
	assert.Equal(t, "Canteen services", deduped[0].Name)
	assert.Equal(t, "15-07-2026", deduped[1].PostedDate)
	assert.Equal(t, "Lab equipment", deduped[2].Name)
}
