package leveling

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/levelbot/backend/internal/metrics"
	"github.com/levelbot/backend/internal/roster"
)

// Event is one activity notification from the platform adapter. At is
// the platform's wall-clock timestamp for the message; Bot marks events
// authored by other bots.
type Event struct {
	UserID   string
	Username string
	At       time.Time
	Bot      bool
}

// Snapshot is a read-only view of one user's progress.
type Snapshot struct {
	UserID   string
	Username string
	XP       int
	Level    int
}

// GrantResult reports what a Grant call did. Awarded is false when the
// event was dropped by policy or by the cooldown gate.
type GrantResult struct {
	Awarded      bool
	LevelsGained int
	Snapshot     Snapshot
}

// LevelUpCallback is invoked after a grant that raised the user's level.
type LevelUpCallback func(snap Snapshot, levelsGained int)

// Engine grants XP for activity events and answers stats queries. All
// durable state lives in the roster table; the engine serializes its
// load→mutate→save sequences so concurrent grants cannot overwrite each
// other's updates.
type Engine struct {
	table      *roster.Table
	cooldown   *Cooldown
	xpPerEvent int
	ignoreBots bool
	log        *zap.Logger

	mu        sync.Mutex // guards the table read-modify-write cycle
	onLevelUp LevelUpCallback
}

// NewEngine creates an Engine. Non-positive xpPerEvent falls back to 10.
func NewEngine(table *roster.Table, cooldown *Cooldown, xpPerEvent int, ignoreBots bool, log *zap.Logger) *Engine {
	if xpPerEvent <= 0 {
		xpPerEvent = 10
	}
	return &Engine{
		table:      table,
		cooldown:   cooldown,
		xpPerEvent: xpPerEvent,
		ignoreBots: ignoreBots,
		log:        log,
	}
}

// OnLevelUp registers a callback invoked whenever a grant raises a
// user's level. Must be called before the engine starts receiving events.
func (e *Engine) OnLevelUp(cb LevelUpCallback) {
	e.onLevelUp = cb
}

// Grant awards XP for one activity event.
//
// The cooldown is checked and consumed before any store I/O, so a burst
// of messages from one user cannot trigger overlapping awards while the
// first award's write is still pending. A failed save does not return
// the consumed cooldown window.
func (e *Engine) Grant(ctx context.Context, ev Event) (GrantResult, error) {
	if e.ignoreBots && ev.Bot {
		metrics.EventsRejectedTotal.Inc()
		return GrantResult{}, nil
	}
	if e.cooldown.OnCooldown(ev.UserID, ev.At) {
		metrics.AwardsOnCooldownTotal.Inc()
		return GrantResult{}, nil
	}
	e.cooldown.Record(ev.UserID, ev.At)

	e.mu.Lock()
	res, err := e.apply(ev)
	e.mu.Unlock()
	if err != nil {
		return GrantResult{}, err
	}

	// Fire the callback outside the lock so a slow subscriber cannot
	// stall awards.
	if res.LevelsGained > 0 && e.onLevelUp != nil {
		e.onLevelUp(res.Snapshot, res.LevelsGained)
	}
	return res, nil
}

// apply performs one full read-modify-write of the table. Callers must
// hold e.mu.
func (e *Engine) apply(ev Event) (GrantResult, error) {
	records, err := e.table.LoadAll()
	if err != nil {
		metrics.StoreLoadErrorsTotal.Inc()
		return GrantResult{}, fmt.Errorf("loading user table: %w", err)
	}

	idx := roster.FindByUserID(records, ev.UserID)
	if idx < 0 {
		records = append(records, roster.UserRecord{
			UserID:   ev.UserID,
			Username: ev.Username,
			XP:       e.xpPerEvent,
			Level:    1,
		})
		idx = len(records) - 1
	} else {
		records[idx].XP += e.xpPerEvent
		records[idx].Username = ev.Username
	}
	gained := normalize(&records[idx])

	if err := e.table.SaveAll(records); err != nil {
		metrics.StoreSaveErrorsTotal.Inc()
		return GrantResult{}, fmt.Errorf("saving user table: %w", err)
	}

	metrics.AwardsGrantedTotal.Inc()
	rec := records[idx]
	if gained > 0 {
		metrics.LevelUpsTotal.Add(float64(gained))
		e.log.Info("level up",
			zap.String("user_id", rec.UserID),
			zap.String("username", rec.Username),
			zap.Int("level", rec.Level))
	}

	return GrantResult{
		Awarded:      true,
		LevelsGained: gained,
		Snapshot: Snapshot{
			UserID:   rec.UserID,
			Username: rec.Username,
			XP:       rec.XP,
			Level:    rec.Level,
		},
	}, nil
}

// Stats returns the current snapshot for userID. A user with no record
// yields ok=false and no error.
func (e *Engine) Stats(ctx context.Context, userID string) (Snapshot, bool, error) {
	records, err := e.table.LoadAll()
	if err != nil {
		metrics.StoreLoadErrorsTotal.Inc()
		return Snapshot{}, false, fmt.Errorf("loading user table: %w", err)
	}

	idx := roster.FindByUserID(records, userID)
	if idx < 0 {
		return Snapshot{}, false, nil
	}
	rec := records[idx]
	return Snapshot{
		UserID:   rec.UserID,
		Username: rec.Username,
		XP:       rec.XP,
		Level:    rec.Level,
	}, true, nil
}

// normalize rolls surplus XP into level increments until the record
// satisfies 0 <= xp < XPForNextLevel(level), and returns the number of
// levels gained. The loop terminates because the threshold grows with
// every level.
func normalize(r *roster.UserRecord) int {
	gained := 0
	for r.XP >= XPForNextLevel(r.Level) {
		r.XP -= XPForNextLevel(r.Level)
		r.Level++
		gained++
	}
	return gained
}
