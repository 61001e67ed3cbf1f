package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenderwatch/crawler/internal/cache"
	"github.com/tenderwatch/crawler/internal/tender"
)

func sampleRecords(name string) []tender.Record {
	return []tender.Record{
		{
			Name:        name,
			PostedDate:  "01-06-2026",
			ClosingDate: "15-06-2026",
			DownloadLinks: []tender.DownloadLink{
				{Text: "Download", URL: "https://www.rgukt.ac.in/docs/" + name + ".pdf"},
			},
		},
	}
}

func TestMemoryStore_GetFreshEntry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := cache.NewMemoryStore()
	key := cache.Key("basar")

	require.NoError(t, store.Set(ctx, key, sampleRecords("civil works"), time.Hour))

	entry, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "basar", entry.SourceID)
	assert.Equal(t, "civil works", entry.Data[0].Name)
	assert.False(t, entry.Fallback)
}

func TestMemoryStore_GetMissingKey(t *testing.T) {
	t.Parallel()

	store := cache.NewMemoryStore()

	_, err := store.Get(context.Background(), cache.Key("basar"))
	assert.ErrorIs(t, err, cache.ErrNotFound)
}

func TestMemoryStore_ExpiredEntryHiddenFromGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := cache.NewMemoryStore()
	key := cache.Key("ongole")

	require.NoError(t, store.Set(ctx, key, sampleRecords("lab equipment"), -time.Second))

	_, err := store.Get(ctx, key)
	assert.ErrorIs(t, err, cache.ErrNotFound)

	// The stale read path still sees it.
	entry, err := store.GetStale(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "lab equipment", entry.Data[0].Name)
	assert.True(t, entry.Expired(time.Now()))
}

func TestMemoryStore_IndependentTTLs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := cache.NewMemoryStore()

	require.NoError(t, store.Set(ctx, cache.Key("basar"), sampleRecords("a"), -time.Second))
	require.NoError(t, store.Set(ctx, cache.Key("rkvalley"), sampleRecords("b"), time.Hour))

	_, err := store.Get(ctx, cache.Key("basar"))
	assert.ErrorIs(t, err, cache.ErrNotFound)

	entry, err := store.Get(ctx, cache.Key("rkvalley"))
	require.NoError(t, err)
	assert.Equal(t, "b", entry.Data[0].Name)
}

func TestMemoryStore_SetFallbackFlagsEntry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := cache.NewMemoryStore()
	key := cache.Key("sklm")

	require.NoError(t, store.SetFallback(ctx, key, sampleRecords("placeholder"), time.Minute))

	entry, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, entry.Fallback)
}

func TestMemoryStore_GetWithRefresh(t *testing.T) {
	t.Parallel()

	t.Run("fresh entry skips refresh", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := cache.NewMemoryStore()
		key := cache.Key("basar")
		require.NoError(t, store.Set(ctx, key, sampleRecords("existing"), time.Hour))

		calls := 0
		entry, err := store.GetWithRefresh(ctx, key, time.Hour, func(context.Context) ([]tender.Record, error) {
			calls++
			return sampleRecords("new"), nil
		})
		require.NoError(t, err)
		assert.Zero(t, calls)
		assert.Equal(t, "existing", entry.Data[0].Name)
	})

	t.Run("miss refreshes synchronously", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := cache.NewMemoryStore()
		key := cache.Key("nuzvidu")

		calls := 0
		entry, err := store.GetWithRefresh(ctx, key, time.Hour, func(context.Context) ([]tender.Record, error) {
			calls++
			return sampleRecords("scraped"), nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
		assert.Equal(t, "scraped", entry.Data[0].Name)

		// Stored for subsequent reads.
		entry, err = store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "scraped", entry.Data[0].Name)
	})

	t.Run("refresh failure leaves stale entry intact", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := cache.NewMemoryStore()
		key := cache.Key("rkvalley")
		require.NoError(t, store.Set(ctx, key, sampleRecords("old"), -time.Second))

		refreshErr := errors.New("site unreachable")
		_, err := store.GetWithRefresh(ctx, key, time.Hour, func(context.Context) ([]tender.Record, error) {
			return nil, refreshErr
		})
		assert.ErrorIs(t, err, refreshErr)

		entry, err := store.GetStale(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "old", entry.Data[0].Name)
	})
}
