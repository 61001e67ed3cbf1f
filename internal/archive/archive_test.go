package archive_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenderwatch/crawler/internal/archive"
	"github.com/tenderwatch/crawler/internal/tender"
)

func TestSnapshot_Tenders(t *testing.T) {
	t.Parallel()

	records := []tender.Record{
		{
			Name:        "construction of seminar hall",
			PostedDate:  "02-06-2026",
			ClosingDate: "20-06-2026",
			DownloadLinks: []tender.DownloadLink{
				{Text: "Download", URL: "https://www.rgukt.ac.in/docs/seminar-hall.pdf"},
			},
		},
	}
	payload, err := json.Marshal(records)
	require.NoError(t, err)

	snapshot := archive.Snapshot{ID: "a2b9", SourceID: "basar", Records: payload}

	decoded, err := snapshot.Tenders()
	require.NoError(t, err)
	assert.Equal(t, records, decoded)
}

func TestSnapshot_TendersRejectsCorruptPayload(t *testing.T) {
	t.Parallel()

	snapshot := archive.Snapshot{ID: "a2b9", Records: []byte("{not json")}

	_, err := snapshot.Tenders()
	assert.ErrorContains(t, err, "a2b9")
}
