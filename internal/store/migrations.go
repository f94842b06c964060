package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "work_moments: captured units of effort",
		SQL: `
CREATE TABLE work_moments (
    id           TEXT PRIMARY KEY,
    user_id      TEXT NOT NULL,
    effort_text  TEXT NOT NULL CHECK (length(effort_text) > 0),
    context_note TEXT,
    state_after  TEXT NOT NULL CHECK (state_after IN ('advanced', 'stuck', 'resolved')),
    energy_cost  TEXT NOT NULL CHECK (energy_cost IN ('low', 'medium', 'heavy')),
    created_at   INTEGER NOT NULL
);

CREATE INDEX idx_moments_user       ON work_moments(user_id);
CREATE INDEX idx_moments_created_at ON work_moments(created_at DESC);
CREATE INDEX idx_moments_state      ON work_moments(state_after);
`,
	},
	{
		Version:     2,
		Description: "work_entries: structured work log",
		SQL: `
CREATE TABLE work_entries (
    id          TEXT PRIMARY KEY,
    user_id     TEXT NOT NULL,
    title       TEXT NOT NULL CHECK (length(title) BETWEEN 1 AND 255),
    description TEXT NOT NULL,
    category    TEXT NOT NULL CHECK (category IN ('project', 'study', 'personal', 'client')),
    time_spent  INTEGER CHECK (time_spent IS NULL OR time_spent > 0),
    outcome     TEXT NOT NULL CHECK (outcome IN ('done', 'partial', 'stuck')),
    blockers    TEXT,
    created_at  INTEGER NOT NULL,
    updated_at  INTEGER NOT NULL
);

CREATE INDEX idx_entries_user_created ON work_entries(user_id, created_at DESC);
CREATE INDEX idx_entries_category     ON work_entries(category);
`,
	},
	{
		Version:     3,
		Description: "threads and thread_moments: recurring lines of effort",
		SQL: `
CREATE TABLE threads (
    id             TEXT PRIMARY KEY,
    user_id        TEXT NOT NULL,
    name           TEXT NOT NULL CHECK (length(name) BETWEEN 1 AND 255),
    first_seen     INTEGER NOT NULL,
    last_seen      INTEGER NOT NULL,
    status         TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'dormant')),
    friction_score REAL NOT NULL DEFAULT 0 CHECK (friction_score BETWEEN 0 AND 1),
    version        INTEGER NOT NULL DEFAULT 1,
    created_at     INTEGER NOT NULL
);

CREATE INDEX idx_threads_user_last_seen ON threads(user_id, last_seen DESC);
CREATE INDEX idx_threads_status         ON threads(status);

CREATE TABLE thread_moments (
    thread_id      TEXT NOT NULL,
    work_moment_id TEXT NOT NULL,
    created_at     INTEGER NOT NULL,
    PRIMARY KEY (thread_id, work_moment_id),
    FOREIGN KEY (thread_id) REFERENCES threads(id) ON DELETE CASCADE,
    FOREIGN KEY (work_moment_id) REFERENCES work_moments(id) ON DELETE CASCADE
);

CREATE INDEX idx_thread_moments_moment ON thread_moments(work_moment_id);
`,
	},
}

func (db *DB) migrate() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	var applied []int
	if err := db.Select(&applied, "SELECT version FROM schema_versions"); err != nil {
		return fmt.Errorf("read schema_versions: %w", err)
	}
	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	for _, m := range migrations {
		if done[m.Version] {
			continue
		}
		err := db.withTx(context.Background(), func(tx *sqlx.Tx) error {
			if _, err := tx.Exec(m.SQL); err != nil {
				return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
			}
			if _, err := tx.Exec(
				"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
				m.Version, m.Description,
			); err != nil {
				return fmt.Errorf("record migration %d: %w", m.Version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.Get(&version, "SELECT COALESCE(MAX(version), 0) FROM schema_versions")
	return version, err
}
