package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iitslamaa/travel-scorer/internal/cache"
	"github.com/iitslamaa/travel-scorer/internal/cost"
	"github.com/iitslamaa/travel-scorer/internal/facts"
)

func newTestCache(t *testing.T, ttl time.Duration) (*cache.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return cache.NewCache(client, ttl), mr
}

func sampleRecords() []facts.Record {
	ease := 100.0
	ds := cost.NewDailySpend(20, 8, 10, 50, nil)
	return []facts.Record{
		{ISO2: "TH", ISO3: "THA", Name: "Thailand", Facts: facts.Facts{VisaEase: &ease, DailySpend: &ds}},
		{ISO2: "TV", ISO3: "TUV", Name: "Tuvalu"},
	}
}

func TestCache_SetAndGet(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "2026-07", sampleRecords()))

	got, err := c.Get(ctx, "2026-07")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, sampleRecords(), got)
	assert.Nil(t, got[1].Advisory)
}

func TestCache_Get_Miss(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)

	got, err := c.Get(context.Background(), "2026-07")
	require.NoError(t, err)
	assert.Nil(t, got, "cache miss should return nil, nil")
}

func TestCache_PeriodsAreSeparate(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "2026-07", sampleRecords()))

	got, err := c.Get(ctx, "2026-08")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPeriod(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	assert.Equal(t, "2026-06", cache.Period(time.Date(2026, 7, 1, 5, 0, 0, 0, loc)))
}

func TestCache_Delete(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "2026-07", sampleRecords()))
	require.NoError(t, c.Delete(ctx, "2026-07"))

	got, err := c.Get(ctx, "2026-07")
	require.NoError(t, err)
	assert.Nil(t, got, "entry should be gone after delete")
}

func TestCache_Delete_NonExistent(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)
	require.NoError(t, c.Delete(context.Background(), "1999-01"))
}

func TestCache_Set_Empty(t *testing.T) {
	c, mr := newTestCache(t, time.Hour)
	require.NoError(t, c.Set(context.Background(), "2026-07", nil))
	assert.Empty(t, mr.Keys())
}

func TestCache_TTL(t *testing.T) {
	c, mr := newTestCache(t, 6*time.Hour)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "2026-07", sampleRecords()))

	mr.FastForward(5 * time.Hour)
	got, err := c.Get(ctx, "2026-07")
	require.NoError(t, err)
	assert.NotNil(t, got)

	mr.FastForward(time.Hour)
	got, err = c.Get(ctx, "2026-07")
	require.NoError(t, err)
	assert.Nil(t, got, "entry should be expired after TTL")
}

func TestCache_CorruptEntry(t *testing.T) {
	c, mr := newTestCache(t, time.Hour)
	require.NoError(t, mr.Set("countries:records:v1:2026-07", "{not json"))

	_, err := c.Get(context.Background(), "2026-07")
	require.Error(t, err)
}

func TestNewCache_DefaultTTL(t *testing.T) {
	c, mr := newTestCache(t, 0)
	require.NoError(t, c.Set(context.Background(), "2026-07", sampleRecords()))
	assert.Equal(t, cache.DefaultTTL, mr.TTL("countries:records:v1:2026-07"))
}

func TestConnect_InvalidURL(t *testing.T) {
	_, err := cache.Connect(context.Background(), "not-a-url")
	require.Error(t, err)
}

func TestConnect_UnreachableServer(t *testing.T) {
	_, err := cache.Connect(context.Background(), "redis://localhost:19999")
	require.Error(t, err)
}
