package visitors

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rufoof/tracking-api/internal/enrich"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewStore(rdb, nil), mr
}

func TestRecordFirstVisit(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	attr := enrich.Attribution{Source: "google", Medium: "organic", Campaign: "none"}
	snap := store.Record(ctx, "v1", "s1", attr)

	assert.False(t, snap.IsReturning)
	assert.Equal(t, 1, snap.VisitCount)
	assert.Equal(t, 1, snap.PageViews)
	assert.Equal(t, attr, snap.FirstTouch)
	assert.Equal(t, attr, snap.LastTouch)
}

func TestFirstTouchIsWriteOnce(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	first := enrich.Attribution{Source: "google", Medium: "organic"}
	later := enrich.Attribution{Source: "facebook", Medium: "social"}

	store.Record(ctx, "v1", "s1", first)
	snap := store.Record(ctx, "v1", "s2", later)

	assert.True(t, snap.IsReturning)
	assert.Equal(t, first, snap.FirstTouch, "first touch must never be overwritten")
	assert.Equal(t, later, snap.LastTouch, "last touch follows the current session")
}

func TestVisitCountBumpsPerSessionNotPerPageView(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	attr := enrich.Attribution{Source: "direct"}

	store.Record(ctx, "v1", "s1", attr)
	store.Record(ctx, "v1", "s1", attr)
	snap := store.Record(ctx, "v1", "s1", attr)
	assert.Equal(t, 1, snap.VisitCount)
	assert.Equal(t, 3, snap.PageViews)

	snap = store.Record(ctx, "v1", "s2", attr)
	assert.Equal(t, 2, snap.VisitCount)
	assert.Equal(t, 1, snap.PageViews)
}

func TestSessionDuration(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	attr := enrich.Attribution{Source: "direct"}

	base := time.Now()
	store.nowFunc = func() time.Time { return base }
	store.Record(ctx, "v1", "s1", attr)

	_ = mr // keys persist within miniredis for the second call
	store.nowFunc = func() time.Time { return base.Add(45 * time.Second) }
	snap := store.Record(ctx, "v1", "s1", attr)
	assert.Equal(t, 45, snap.SessionDuration)
}

func TestRecordFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStore(rdb, nil)
	mr.Close()

	snap := store.Record(context.Background(), "v1", "s1", enrich.Attribution{Source: "direct"})
	assert.Equal(t, Snapshot{}, snap)
}

func TestRecordWithoutVisitorID(t *testing.T) {
	store, _ := newTestStore(t)
	snap := store.Record(context.Background(), "", "s1", enrich.Attribution{})
	assert.Equal(t, Snapshot{}, snap)
}

func TestRecordWithoutSession(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	snap := store.Record(ctx, "v1", "", enrich.Attribution{Source: "direct"})
	require.False(t, snap.IsReturning)
	assert.Zero(t, snap.PageViews)
	assert.Zero(t, snap.VisitCount)
	assert.Equal(t, "direct", snap.FirstTouch.Source)
}
