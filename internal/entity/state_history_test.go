package entity

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// setupStateHistoryTestDB creates an in-memory SQLite database with the state_history table.
func setupStateHistoryTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE state_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			entity_id TEXT NOT NULL,
			state TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT 'bridge',
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
		CREATE INDEX idx_state_history_entity ON state_history(entity_id, created_at DESC);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// insertStateHistoryRow inserts a state history row with a specific timestamp.
func insertStateHistoryRow(t *testing.T, db *sql.DB, entityID, stateJSON, source string, createdAt time.Time) {
	t.Helper()

	_, err := db.Exec(
		"INSERT INTO state_history (entity_id, state, source, created_at) VALUES (?, ?, ?, ?)",
		entityID,
		stateJSON,
		source,
		createdAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		t.Fatalf("failed to insert state history row: %v", err)
	}
}

func TestRecordStateChange(t *testing.T) {
	db := setupStateHistoryTestDB(t)
	repo := NewSQLiteStateHistoryRepository(db)
	ctx := context.Background()

	if err := repo.RecordStateChange(ctx, "climate-1", State{"hvac_mode": "heat"}, StateHistorySourceBridge); err != nil {
		t.Fatalf("RecordStateChange() error = %v", err)
	}

	entries, err := repo.GetHistory(ctx, "climate-1", 10)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("GetHistory() len = %d, want 1", len(entries))
	}
	if entries[0].EntityID != "climate-1" {
		t.Errorf("EntityID = %q, want %q", entries[0].EntityID, "climate-1")
	}
	if entries[0].State["hvac_mode"] != "heat" {
		t.Errorf("State[hvac_mode] = %v, want heat", entries[0].State["hvac_mode"])
	}
	if entries[0].Source != StateHistorySourceBridge {
		t.Errorf("Source = %q, want %q", entries[0].Source, StateHistorySourceBridge)
	}
}

func TestRecordStateChange_Defaults(t *testing.T) {
	db := setupStateHistoryTestDB(t)
	repo := NewSQLiteStateHistoryRepository(db)
	ctx := context.Background()

	// Empty source and nil state fall back to defaults.
	if err := repo.RecordStateChange(ctx, "climate-1", nil, ""); err != nil {
		t.Fatalf("RecordStateChange() error = %v", err)
	}

	entries, err := repo.GetHistory(ctx, "climate-1", 10)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("GetHistory() len = %d, want 1", len(entries))
	}
	if entries[0].Source != StateHistorySourceBridge {
		t.Errorf("Source = %q, want default %q", entries[0].Source, StateHistorySourceBridge)
	}
}

func TestRecordStateChange_EmptyEntityID(t *testing.T) {
	db := setupStateHistoryTestDB(t)
	repo := NewSQLiteStateHistoryRepository(db)

	if err := repo.RecordStateChange(context.Background(), "", State{}, ""); err == nil {
		t.Error("RecordStateChange() with empty entity id should error")
	}
}

func TestGetHistory(t *testing.T) {
	db := setupStateHistoryTestDB(t)
	repo := NewSQLiteStateHistoryRepository(db)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	insertStateHistoryRow(t, db, "binary-1", `{"state":"off"}`, "bridge", base)
	insertStateHistoryRow(t, db, "binary-1", `{"state":"on"}`, "bridge", base.Add(time.Minute))
	insertStateHistoryRow(t, db, "other", `{"state":"on"}`, "bridge", base)

	entries, err := repo.GetHistory(ctx, "binary-1", 10)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("GetHistory() len = %d, want 2", len(entries))
	}

	// Newest first
	if entries[0].State["state"] != "on" {
		t.Errorf("entries[0] = %v, want the newer 'on' snapshot", entries[0].State)
	}
	if entries[1].State["state"] != "off" {
		t.Errorf("entries[1] = %v, want the older 'off' snapshot", entries[1].State)
	}
}

func TestGetHistory_LimitClamping(t *testing.T) {
	db := setupStateHistoryTestDB(t)
	repo := NewSQLiteStateHistoryRepository(db)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		insertStateHistoryRow(t, db, "binary-1", `{"state":"on"}`, "bridge", base.Add(time.Duration(i)*time.Second))
	}

	// Zero limit uses the default
	entries, err := repo.GetHistory(ctx, "binary-1", 0)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(entries) != 5 {
		t.Errorf("GetHistory(limit=0) len = %d, want 5", len(entries))
	}

	// Explicit small limit
	entries, err = repo.GetHistory(ctx, "binary-1", 2)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("GetHistory(limit=2) len = %d, want 2", len(entries))
	}
}

func TestPruneHistory(t *testing.T) {
	db := setupStateHistoryTestDB(t)
	repo := NewSQLiteStateHistoryRepository(db)
	ctx := context.Background()

	old := time.Now().UTC().Add(-48 * time.Hour)
	recent := time.Now().UTC().Add(-time.Minute)
	insertStateHistoryRow(t, db, "binary-1", `{"state":"on"}`, "bridge", old)
	insertStateHistoryRow(t, db, "binary-1", `{"state":"off"}`, "bridge", recent)

	deleted, err := repo.PruneHistory(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("PruneHistory() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("PruneHistory() deleted = %d, want 1", deleted)
	}

	entries, err := repo.GetHistory(ctx, "binary-1", 10)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("GetHistory() len = %d after prune, want 1", len(entries))
	}
}

func TestPruneHistory_InvalidDuration(t *testing.T) {
	db := setupStateHistoryTestDB(t)
	repo := NewSQLiteStateHistoryRepository(db)

	if _, err := repo.PruneHistory(context.Background(), 0); err == nil {
		t.Error("PruneHistory(0) should error")
	}
}
