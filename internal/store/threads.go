package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lazypower/forgeone/internal/model"
)

const threadColumns = `id, user_id, name, first_seen, last_seen, status, friction_score, version, created_at`

type threadRow struct {
	ID            string  `db:"id"`
	UserID        string  `db:"user_id"`
	Name          string  `db:"name"`
	FirstSeen     int64   `db:"first_seen"`
	LastSeen      int64   `db:"last_seen"`
	Status        string  `db:"status"`
	FrictionScore float64 `db:"friction_score"`
	Version       int64   `db:"version"`
	CreatedAt     int64   `db:"created_at"`
}

func (r threadRow) toModel() model.Thread {
	return model.Thread{
		ID:            r.ID,
		OwnerID:       r.UserID,
		Name:          r.Name,
		FirstSeen:     fromMillis(r.FirstSeen),
		LastSeen:      fromMillis(r.LastSeen),
		Status:        model.ThreadStatus(r.Status),
		FrictionScore: r.FrictionScore,
		Version:       r.Version,
		CreatedAt:     fromMillis(r.CreatedAt),
	}
}

// ThreadFilter narrows ListThreads. Zero values match everything.
type ThreadFilter struct {
	Status model.ThreadStatus
	Limit  int
	Offset int
}

// InsertThread stores a new thread, assigning id and version.
func (db *DB) InsertThread(ctx context.Context, t *model.Thread) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	t.Version = 1
	_, err := db.ExecContext(ctx, `
		INSERT INTO threads (`+threadColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.OwnerID, t.Name, toMillis(t.FirstSeen), toMillis(t.LastSeen),
		string(t.Status), t.FrictionScore, t.Version, toMillis(t.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert thread: %w", err)
	}
	return nil
}

// GetThread returns a thread by id, or nil if not found.
func (db *DB) GetThread(ctx context.Context, id string) (*model.Thread, error) {
	return getThread(ctx, db, id)
}

func getThread(ctx context.Context, q sqlx.QueryerContext, id string) (*model.Thread, error) {
	var r threadRow
	err := sqlx.GetContext(ctx, q, &r, `SELECT `+threadColumns+` FROM threads WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get thread: %w", err)
	}
	t := r.toModel()
	return &t, nil
}

// ListThreads returns one page of an owner's threads by last_seen descending,
// and the total number of matches.
func (db *DB) ListThreads(ctx context.Context, owner string, f ThreadFilter) ([]model.Thread, int, error) {
	clauses := []string{"user_id = ?"}
	args := []any{owner}
	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(f.Status))
	}
	where := strings.Join(clauses, " AND ")

	var total int
	if err := db.GetContext(ctx, &total, `SELECT COUNT(*) FROM threads WHERE `+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count threads: %w", err)
	}

	query, args := paginate(`SELECT `+threadColumns+` FROM threads WHERE `+where+` ORDER BY last_seen DESC, id`, args, f.Limit, f.Offset)
	var rows []threadRow
	if err := db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list threads: %w", err)
	}
	out := make([]model.Thread, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, total, nil
}

// UpdateThread writes the set fields of a thread if its version still equals
// version, bumping the version. It returns ErrNotFound for a missing thread
// and ErrVersionConflict when another writer got there first.
func (db *DB) UpdateThread(ctx context.Context, id string, version int64, f model.ThreadFields) (*model.Thread, error) {
	sets := []string{"version = version + 1"}
	var args []any
	if f.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *f.Name)
	}
	if f.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*f.Status))
	}
	if f.LastSeen != nil {
		sets = append(sets, "last_seen = ?")
		args = append(args, toMillis(*f.LastSeen))
	}
	if f.FrictionScore != nil {
		sets = append(sets, "friction_score = ?")
		args = append(args, *f.FrictionScore)
	}
	args = append(args, id, version)

	var updated *model.Thread
	err := db.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE threads SET `+strings.Join(sets, ", ")+` WHERE id = ? AND version = ?`, args...)
		if err != nil {
			return fmt.Errorf("update thread: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		updated, err = getThread(ctx, tx, id)
		if err != nil {
			return err
		}
		if updated == nil {
			return ErrNotFound
		}
		if n == 0 {
			return ErrVersionConflict
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteThread removes a thread; its links cascade.
func (db *DB) DeleteThread(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM threads WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete thread: %w", err)
	}
	return expectOneRow(res)
}

// UpsertLink associates a moment with a thread. created is false when the
// pair already existed.
func (db *DB) UpsertLink(ctx context.Context, threadID, momentID string) (bool, error) {
	res, err := db.ExecContext(ctx, `
		INSERT INTO thread_moments (thread_id, work_moment_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (thread_id, work_moment_id) DO NOTHING
	`, threadID, momentID, toMillis(time.Now()))
	if err != nil {
		return false, fmt.Errorf("upsert link: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// DeleteLink removes a single thread/moment association. A missing pair is
// ErrNotFound.
func (db *DB) DeleteLink(ctx context.Context, threadID, momentID string) error {
	res, err := db.ExecContext(ctx, `
		DELETE FROM thread_moments WHERE thread_id = ? AND work_moment_id = ?
	`, threadID, momentID)
	if err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetLinksByThread returns the ids of the moments linked to a thread.
func (db *DB) GetLinksByThread(ctx context.Context, threadID string) ([]string, error) {
	var ids []string
	err := db.SelectContext(ctx, &ids, `
		SELECT work_moment_id FROM thread_moments WHERE thread_id = ? ORDER BY created_at, work_moment_id
	`, threadID)
	if err != nil {
		return nil, fmt.Errorf("get links: %w", err)
	}
	return ids, nil
}

// GetThreadsByMoment returns the ids of the threads a moment is linked to.
func (db *DB) GetThreadsByMoment(ctx context.Context, momentID string) ([]string, error) {
	var ids []string
	err := db.SelectContext(ctx, &ids, `
		SELECT thread_id FROM thread_moments WHERE work_moment_id = ? ORDER BY thread_id
	`, momentID)
	if err != nil {
		return nil, fmt.Errorf("get threads by moment: %w", err)
	}
	return ids, nil
}
