// internal/common/cache/cache_test.go
package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewWithClient(client, 30*24*time.Hour)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestContentHash(t *testing.T) {
	a := ContentHash([]byte("<hris-structure/>"))
	b := ContentHash([]byte("<hris-structure/>"))
	c := ContentHash([]byte("<hris-structure version=\"2\"/>"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 16)
}

func TestPutGetRoundTrip(t *testing.T) {
	store, _ := testStore(t)
	ctx := context.Background()

	entry := Entry{
		VersionID:  "140726_v1",
		Hash:       ContentHash([]byte("payload")),
		Client:     "acme",
		Consultant: "jdoe",
		CreatedAt:  time.Date(2026, 7, 14, 9, 0, 0, 0, time.UTC),
		Metadata:   []byte(`{"version":"1.0.0"}`),
		GoldenCSV:  []byte("a,b\r\n1,2\r\n"),
	}
	require.NoError(t, store.Put(ctx, entry))

	got, ok, err := store.Get(ctx, entry.Hash)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, entry, *got)
}

func TestGetMissIsNotAnError(t *testing.T) {
	store, _ := testStore(t)

	got, ok, err := store.Get(context.Background(), "ffffffffffffffff")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestNextVersionID(t *testing.T) {
	store, _ := testStore(t)
	ctx := context.Background()
	day := time.Date(2026, 7, 14, 0, 0, 0, 0, time.UTC)

	v1, err := store.NextVersionID(ctx, day)
	require.NoError(t, err)
	v2, err := store.NextVersionID(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, "140726_v1", v1)
	assert.Equal(t, "140726_v2", v2)

	next, err := store.NextVersionID(ctx, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, "150726_v1", next)
}

func TestEntriesExpire(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewWithClient(client, time.Minute)
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	entry := Entry{VersionID: "140726_v1", Hash: "abc", CreatedAt: time.Now().UTC()}
	require.NoError(t, store.Put(ctx, entry))

	mr.FastForward(2 * time.Minute)

	_, ok, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)
}
