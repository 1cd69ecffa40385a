package leveling

import (
	"context"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"

	"github.com/levelbot/backend/internal/roster"
)

func newTestEngine(t *testing.T, xpPerEvent int, ignoreBots bool) (*Engine, *roster.Table) {
	t.Helper()
	table := roster.NewTable(t.TempDir(), "userdata.csv", zap.NewNop())
	if err := table.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists() error: %v", err)
	}
	engine := NewEngine(table, NewCooldown(10*time.Second), xpPerEvent, ignoreBots, zap.NewNop())
	return engine, table
}

func TestGrant_NewUserBootstrap(t *testing.T) {
	engine, table := newTestEngine(t, 10, true)

	res, err := engine.Grant(context.Background(), Event{UserID: "u1", Username: "alice", At: time.Now()})
	if err != nil {
		t.Fatalf("Grant() error: %v", err)
	}
	if !res.Awarded {
		t.Fatal("expected award")
	}
	if res.Snapshot.Level != 1 || res.Snapshot.XP != 10 {
		t.Errorf("snapshot = level %d xp %d, want level 1 xp 10", res.Snapshot.Level, res.Snapshot.XP)
	}

	records, err := table.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	want := roster.UserRecord{UserID: "u1", Username: "alice", XP: 10, Level: 1}
	if records[0] != want {
		t.Errorf("record = %+v, want %+v", records[0], want)
	}
}

func TestGrant_AccumulatesAndRefreshesUsername(t *testing.T) {
	engine, table := newTestEngine(t, 10, true)
	now := time.Now()

	if _, err := engine.Grant(context.Background(), Event{UserID: "u1", Username: "alice", At: now}); err != nil {
		t.Fatalf("first Grant() error: %v", err)
	}
	if _, err := engine.Grant(context.Background(), Event{UserID: "u1", Username: "alice2", At: now.Add(time.Minute)}); err != nil {
		t.Fatalf("second Grant() error: %v", err)
	}

	records, _ := table.LoadAll()
	if records[0].XP != 20 {
		t.Errorf("XP = %d, want 20", records[0].XP)
	}
	if records[0].Username != "alice2" {
		t.Errorf("Username = %q, want %q (last seen wins)", records[0].Username, "alice2")
	}
}

func TestGrant_CooldownGate(t *testing.T) {
	engine, table := newTestEngine(t, 10, true)
	now := time.Now()

	res, err := engine.Grant(context.Background(), Event{UserID: "u1", Username: "alice", At: now})
	if err != nil || !res.Awarded {
		t.Fatalf("first grant: res=%+v err=%v", res, err)
	}

	res, err = engine.Grant(context.Background(), Event{UserID: "u1", Username: "alice", At: now.Add(5 * time.Second)})
	if err != nil {
		t.Fatalf("second Grant() error: %v", err)
	}
	if res.Awarded {
		t.Error("second grant within the window should be a no-op")
	}

	records, _ := table.LoadAll()
	if records[0].XP != 10 {
		t.Errorf("XP = %d, want 10 (single persisted change)", records[0].XP)
	}
}

func TestGrant_MultiLevelRollover(t *testing.T) {
	engine, table := newTestEngine(t, 250, true)
	seed := []roster.UserRecord{{UserID: "u1", Username: "alice", XP: 95, Level: 1}}
	if err := table.SaveAll(seed); err != nil {
		t.Fatalf("SaveAll() error: %v", err)
	}

	res, err := engine.Grant(context.Background(), Event{UserID: "u1", Username: "alice", At: time.Now()})
	if err != nil {
		t.Fatalf("Grant() error: %v", err)
	}

	// 95+250 = 345; -120 (level 1 threshold) = 225; -144 (level 2) = 81.
	if res.Snapshot.Level != 3 {
		t.Errorf("Level = %d, want 3", res.Snapshot.Level)
	}
	if res.Snapshot.XP != 81 {
		t.Errorf("XP = %d, want 81", res.Snapshot.XP)
	}
	if res.LevelsGained != 2 {
		t.Errorf("LevelsGained = %d, want 2", res.LevelsGained)
	}
}

func TestGrant_LevelUpCallback(t *testing.T) {
	engine, table := newTestEngine(t, 10, true)
	seed := []roster.UserRecord{{UserID: "u1", Username: "alice", XP: 115, Level: 1}}
	if err := table.SaveAll(seed); err != nil {
		t.Fatalf("SaveAll() error: %v", err)
	}

	var gotSnap Snapshot
	var gotGained int
	calls := 0
	engine.OnLevelUp(func(snap Snapshot, gained int) {
		gotSnap = snap
		gotGained = gained
		calls++
	})

	if _, err := engine.Grant(context.Background(), Event{UserID: "u1", Username: "alice", At: time.Now()}); err != nil {
		t.Fatalf("Grant() error: %v", err)
	}

	if calls != 1 {
		t.Fatalf("callback calls = %d, want 1", calls)
	}
	if gotSnap.Level != 2 || gotSnap.XP != 5 {
		t.Errorf("callback snapshot = level %d xp %d, want level 2 xp 5", gotSnap.Level, gotSnap.XP)
	}
	if gotGained != 1 {
		t.Errorf("callback gained = %d, want 1", gotGained)
	}
}

func TestGrant_NoCallbackWithoutLevelUp(t *testing.T) {
	engine, _ := newTestEngine(t, 10, true)

	calls := 0
	engine.OnLevelUp(func(Snapshot, int) { calls++ })

	if _, err := engine.Grant(context.Background(), Event{UserID: "u1", Username: "alice", At: time.Now()}); err != nil {
		t.Fatalf("Grant() error: %v", err)
	}
	if calls != 0 {
		t.Errorf("callback calls = %d, want 0", calls)
	}
}

func TestGrant_IgnoresBotAuthors(t *testing.T) {
	engine, table := newTestEngine(t, 10, true)

	res, err := engine.Grant(context.Background(), Event{UserID: "b1", Username: "botty", At: time.Now(), Bot: true})
	if err != nil {
		t.Fatalf("Grant() error: %v", err)
	}
	if res.Awarded {
		t.Error("bot-authored event should not award with ignoreBots enabled")
	}

	records, _ := table.LoadAll()
	if len(records) != 0 {
		t.Errorf("got %d records, want 0", len(records))
	}
}

func TestGrant_AwardsBotsWhenPolicyDisabled(t *testing.T) {
	engine, _ := newTestEngine(t, 10, false)

	res, err := engine.Grant(context.Background(), Event{UserID: "b1", Username: "botty", At: time.Now(), Bot: true})
	if err != nil {
		t.Fatalf("Grant() error: %v", err)
	}
	if !res.Awarded {
		t.Error("expected award with ignoreBots disabled")
	}
}

func TestGrant_PreservesRowOrder(t *testing.T) {
	engine, table := newTestEngine(t, 10, true)
	seed := []roster.UserRecord{
		{UserID: "u1", Username: "alice", XP: 5, Level: 1},
		{UserID: "u2", Username: "bob", XP: 7, Level: 2},
	}
	if err := table.SaveAll(seed); err != nil {
		t.Fatalf("SaveAll() error: %v", err)
	}

	now := time.Now()
	if _, err := engine.Grant(context.Background(), Event{UserID: "u1", Username: "alice", At: now}); err != nil {
		t.Fatalf("Grant() error: %v", err)
	}
	if _, err := engine.Grant(context.Background(), Event{UserID: "u3", Username: "carol", At: now}); err != nil {
		t.Fatalf("Grant() error: %v", err)
	}

	records, _ := table.LoadAll()
	ids := []string{"u1", "u2", "u3"}
	if len(records) != len(ids) {
		t.Fatalf("got %d records, want %d", len(records), len(ids))
	}
	for i, id := range ids {
		if records[i].UserID != id {
			t.Errorf("records[%d].UserID = %q, want %q (existing rows keep position, new rows append)", i, records[i].UserID, id)
		}
	}
}

func TestGrant_LoadErrorPropagates(t *testing.T) {
	// No EnsureExists: the table file is missing, so the load fails.
	table := roster.NewTable(t.TempDir(), "userdata.csv", zap.NewNop())
	engine := NewEngine(table, NewCooldown(10*time.Second), 10, true, zap.NewNop())

	_, err := engine.Grant(context.Background(), Event{UserID: "u1", Username: "alice", At: time.Now()})
	if err == nil {
		t.Fatal("expected error when table is unreadable")
	}
}

func TestStats_PresentAndAbsent(t *testing.T) {
	engine, table := newTestEngine(t, 10, true)
	seed := []roster.UserRecord{{UserID: "u1", Username: "alice", XP: 42, Level: 3}}
	if err := table.SaveAll(seed); err != nil {
		t.Fatalf("SaveAll() error: %v", err)
	}

	snap, ok, err := engine.Stats(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if !ok {
		t.Fatal("expected record for u1")
	}
	if snap.Level != 3 || snap.XP != 42 || snap.Username != "alice" {
		t.Errorf("snapshot = %+v", snap)
	}

	_, ok, err = engine.Stats(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Stats() for absent user should not error, got: %v", err)
	}
	if ok {
		t.Error("expected ok=false for absent user")
	}
}

func TestStats_LoadErrorPropagates(t *testing.T) {
	table := roster.NewTable(t.TempDir(), "userdata.csv", zap.NewNop())
	engine := NewEngine(table, NewCooldown(10*time.Second), 10, true, zap.NewNop())

	if _, _, err := engine.Stats(context.Background(), "u1"); err == nil {
		t.Fatal("expected error when table is unreadable")
	}
}

func TestNormalize_Invariant(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("post-normalization xp is within the level threshold", prop.ForAll(
		func(level, xp int) bool {
			rec := roster.UserRecord{UserID: "u", Username: "u", XP: xp, Level: level}
			normalize(&rec)
			return rec.XP >= 0 && rec.XP < XPForNextLevel(rec.Level) && rec.Level >= level
		},
		gen.IntRange(1, 20),
		gen.IntRange(0, 100000),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
