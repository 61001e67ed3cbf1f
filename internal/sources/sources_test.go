package sources_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenderwatch/crawler/internal/sources"
)

func TestDefaults_AllValid(t *testing.T) {
	t.Parallel()

	mgr, err := sources.NewManager(sources.Defaults())
	require.NoError(t, err)

	ids := mgr.IDs()
	assert.Equal(t, []string{"basar", "nuzvidu", "ongole", "rgukt-main", "rkvalley", "sklm"}, ids)
}

func TestManager_GetUnknown(t *testing.T) {
	t.Parallel()

	mgr, err := sources.NewManager(sources.Defaults())
	require.NoError(t, err)

	_, err = mgr.Get("nowhere")
	require.ErrorIs(t, err, sources.ErrUnknownSource)
}

func TestManager_RejectsDuplicateIDs(t *testing.T) {
	t.Parallel()

	src := sources.Defaults()[0]
	_, err := sources.NewManager([]sources.Source{src, src})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate source id")
}

func TestManager_RejectsEmpty(t *testing.T) {
	t.Parallel()

	_, err := sources.NewManager(nil)
	require.Error(t, err)
}

func TestSource_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*sources.Source)
		wantErr string
	}{
		{"missing id", func(s *sources.Source) { s.ID = "" }, "id is required"},
		{"missing base url", func(s *sources.Source) { s.BaseURL = "" }, "base_url is required"},
		{"no row selectors", func(s *sources.Source) { s.Strategy.RowSelectors = nil }, "row selector"},
		{"negative name column", func(s *sources.Source) { s.Strategy.NameColumn = -1 }, "name column"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := sources.Defaults()[0]
			tt.mutate(&src)

			err := src.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStrategy_LinkCell(t *testing.T) {
	t.Parallel()

	s := sources.Strategy{NameColumn: 1, LinkColumn: 3}
	assert.Equal(t, 3, s.LinkCell())

	s.LinkColumn = -1
	assert.Equal(t, 1, s.LinkCell())
}

func TestSource_FallbackURL(t *testing.T) {
	t.Parallel()

	src := sources.Source{BaseURL: "https://example.ac.in", ListingPath: "/tenders.html"}
	assert.Equal(t, "https://example.ac.in/tenders.html", src.FallbackURL())

	src.TendersURL = "https://example.ac.in/notices"
	assert.Equal(t, "https://example.ac.in/notices", src.FallbackURL())
}
