// Package visitors keeps per-visitor and per-session attribution state in
// Redis: first-touch attribution is written once for a visitor's lifetime,
// last-touch and page-view counters are refreshed every session. The store
// is best-effort telemetry; Redis being down never fails a submission.
package visitors

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rufoof/tracking-api/internal/enrich"
	"github.com/rufoof/tracking-api/pkg/logging"
)

const (
	visitorTTL = 365 * 24 * time.Hour
	sessionTTL = 30 * time.Minute
)

// Snapshot is the accumulated attribution state for one visitor/session pair.
type Snapshot struct {
	IsReturning     bool
	VisitCount      int
	PageViews       int
	SessionDuration int
	FirstTouch      enrich.Attribution
	LastTouch       enrich.Attribution
}

// Store records visits against Redis.
type Store struct {
	rdb     *redis.Client
	log     *logging.Logger
	nowFunc func() time.Time
}

// NewStore creates a visitor store. The logger may be nil.
func NewStore(rdb *redis.Client, log *logging.Logger) *Store {
	if log == nil {
		log = logging.Default()
	}
	return &Store{rdb: rdb, log: log, nowFunc: time.Now}
}

func visitorKey(id, field string) string { return fmt.Sprintf("visitor:%s:%s", id, field) }
func sessionKey(id, field string) string { return fmt.Sprintf("sess:%s:%s", id, field) }

// Record registers one page view for the visitor/session pair and returns
// the accumulated snapshot. All Redis failures are logged and swallowed;
// the zero snapshot is returned so enrichment degrades to absent fields.
func (s *Store) Record(ctx context.Context, visitorID, sessionID string, attr enrich.Attribution) Snapshot {
	if s == nil || s.rdb == nil || visitorID == "" {
		return Snapshot{}
	}

	snap, err := s.record(ctx, visitorID, sessionID, attr)
	if err != nil {
		s.log.Warn("visitor store unavailable, continuing without attribution",
			"visitor_id", visitorID,
			"error", err,
		)
		return Snapshot{}
	}
	return snap
}

func (s *Store) record(ctx context.Context, visitorID, sessionID string, attr enrich.Attribution) (Snapshot, error) {
	now := s.nowFunc()
	var snap Snapshot

	// First-touch attribution is write-once for the visitor's lifetime.
	attrJSON, err := json.Marshal(attr)
	if err != nil {
		return Snapshot{}, fmt.Errorf("visitors: marshal attribution: %w", err)
	}
	firstVisit, err := s.rdb.SetNX(ctx, visitorKey(visitorID, "first_touch"), attrJSON, visitorTTL).Result()
	if err != nil {
		return Snapshot{}, fmt.Errorf("visitors: write first touch: %w", err)
	}
	snap.IsReturning = !firstVisit

	if sessionID != "" {
		// A new session start bumps the lifetime visit counter.
		newSession, err := s.rdb.SetNX(ctx, sessionKey(sessionID, "start"), now.UnixMilli(), sessionTTL).Result()
		if err != nil {
			return Snapshot{}, fmt.Errorf("visitors: write session start: %w", err)
		}
		if newSession {
			if err := s.rdb.Incr(ctx, visitorKey(visitorID, "visit_count")).Err(); err != nil {
				return Snapshot{}, fmt.Errorf("visitors: bump visit count: %w", err)
			}
			if err := s.rdb.Expire(ctx, visitorKey(visitorID, "visit_count"), visitorTTL).Err(); err != nil {
				return Snapshot{}, fmt.Errorf("visitors: expire visit count: %w", err)
			}
		}

		pageViews, err := s.rdb.Incr(ctx, sessionKey(sessionID, "page_views")).Result()
		if err != nil {
			return Snapshot{}, fmt.Errorf("visitors: bump page views: %w", err)
		}
		if err := s.rdb.Expire(ctx, sessionKey(sessionID, "page_views"), sessionTTL).Err(); err != nil {
			return Snapshot{}, fmt.Errorf("visitors: expire page views: %w", err)
		}
		snap.PageViews = int(pageViews)

		// Last touch follows the session.
		if err := s.rdb.Set(ctx, sessionKey(sessionID, "last_touch"), attrJSON, sessionTTL).Err(); err != nil {
			return Snapshot{}, fmt.Errorf("visitors: write last touch: %w", err)
		}
		snap.LastTouch = attr

		startMillis, err := s.rdb.Get(ctx, sessionKey(sessionID, "start")).Int64()
		if err == nil && startMillis > 0 {
			snap.SessionDuration = int((now.UnixMilli() - startMillis) / 1000)
		}
	}

	count, err := s.rdb.Get(ctx, visitorKey(visitorID, "visit_count")).Int()
	if err != nil && err != redis.Nil {
		return Snapshot{}, fmt.Errorf("visitors: read visit count: %w", err)
	}
	snap.VisitCount = count

	firstJSON, err := s.rdb.Get(ctx, visitorKey(visitorID, "first_touch")).Bytes()
	if err != nil && err != redis.Nil {
		return Snapshot{}, fmt.Errorf("visitors: read first touch: %w", err)
	}
	if len(firstJSON) > 0 {
		if err := json.Unmarshal(firstJSON, &snap.FirstTouch); err != nil {
			return Snapshot{}, fmt.Errorf("visitors: decode first touch: %w", err)
		}
	}

	return snap, nil
}
