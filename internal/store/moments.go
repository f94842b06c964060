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

const momentColumns = `id, user_id, effort_text, context_note, state_after, energy_cost, created_at`

type momentRow struct {
	ID          string         `db:"id"`
	UserID      string         `db:"user_id"`
	EffortText  string         `db:"effort_text"`
	ContextNote sql.NullString `db:"context_note"`
	StateAfter  string         `db:"state_after"`
	EnergyCost  string         `db:"energy_cost"`
	CreatedAt   int64          `db:"created_at"`
}

func (r momentRow) toModel() model.WorkMoment {
	return model.WorkMoment{
		ID:          r.ID,
		OwnerID:     r.UserID,
		EffortText:  r.EffortText,
		ContextNote: r.ContextNote.String,
		StateAfter:  model.StateAfter(r.StateAfter),
		EnergyCost:  model.EnergyCost(r.EnergyCost),
		CreatedAt:   fromMillis(r.CreatedAt),
	}
}

func momentsFromRows(rows []momentRow) []model.WorkMoment {
	out := make([]model.WorkMoment, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out
}

// MomentFilter narrows ListMoments. Zero values match everything.
type MomentFilter struct {
	From       time.Time // inclusive
	To         time.Time // exclusive
	StateAfter model.StateAfter
	EnergyCost model.EnergyCost
	Limit      int
	Offset     int
}

// InsertMoment stores a new moment, assigning an id and created_at when unset.
func (db *DB) InsertMoment(ctx context.Context, m *model.WorkMoment) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO work_moments (`+momentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.OwnerID, m.EffortText, nullString(m.ContextNote),
		string(m.StateAfter), string(m.EnergyCost), toMillis(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert moment: %w", err)
	}
	return nil
}

// GetMoment returns a moment by id, or nil if not found.
func (db *DB) GetMoment(ctx context.Context, id string) (*model.WorkMoment, error) {
	var r momentRow
	err := db.GetContext(ctx, &r, `SELECT `+momentColumns+` FROM work_moments WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get moment: %w", err)
	}
	m := r.toModel()
	return &m, nil
}

// GetMomentsByIDs returns the moments with the given ids, oldest first.
// Unknown ids are skipped.
func (db *DB) GetMomentsByIDs(ctx context.Context, ids []string) ([]model.WorkMoment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT `+momentColumns+` FROM work_moments WHERE id IN (?) ORDER BY created_at ASC`, ids)
	if err != nil {
		return nil, fmt.Errorf("build moments query: %w", err)
	}
	var rows []momentRow
	if err := db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("get moments by ids: %w", err)
	}
	return momentsFromRows(rows), nil
}

// ListMoments returns one page of an owner's moments, newest first, and the
// total number of matches.
func (db *DB) ListMoments(ctx context.Context, owner string, f MomentFilter) ([]model.WorkMoment, int, error) {
	where, args := momentWhere(owner, f)

	var total int
	if err := db.GetContext(ctx, &total, `SELECT COUNT(*) FROM work_moments WHERE `+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count moments: %w", err)
	}

	query := `SELECT ` + momentColumns + ` FROM work_moments WHERE ` + where + ` ORDER BY created_at DESC`
	query, args = paginate(query, args, f.Limit, f.Offset)

	var rows []momentRow
	if err := db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list moments: %w", err)
	}
	return momentsFromRows(rows), total, nil
}

func momentWhere(owner string, f MomentFilter) (string, []any) {
	clauses := []string{"user_id = ?"}
	args := []any{owner}
	if !f.From.IsZero() {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, toMillis(f.From))
	}
	if !f.To.IsZero() {
		clauses = append(clauses, "created_at < ?")
		args = append(args, toMillis(f.To))
	}
	if f.StateAfter != "" {
		clauses = append(clauses, "state_after = ?")
		args = append(args, string(f.StateAfter))
	}
	if f.EnergyCost != "" {
		clauses = append(clauses, "energy_cost = ?")
		args = append(args, string(f.EnergyCost))
	}
	return strings.Join(clauses, " AND "), args
}

// UpdateMoment rewrites the mutable columns of a moment.
func (db *DB) UpdateMoment(ctx context.Context, m *model.WorkMoment) error {
	res, err := db.ExecContext(ctx, `
		UPDATE work_moments SET effort_text = ?, context_note = ?, state_after = ?, energy_cost = ?
		WHERE id = ?
	`, m.EffortText, nullString(m.ContextNote), string(m.StateAfter), string(m.EnergyCost), m.ID)
	if err != nil {
		return fmt.Errorf("update moment: %w", err)
	}
	return expectOneRow(res)
}

// DeleteMoment removes a moment; its thread links cascade.
func (db *DB) DeleteMoment(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM work_moments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete moment: %w", err)
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// paginate appends LIMIT/OFFSET when limit is positive.
func paginate(query string, args []any, limit, offset int) (string, []any) {
	if limit <= 0 {
		return query, args
	}
	if offset < 0 {
		offset = 0
	}
	return query + ` LIMIT ? OFFSET ?`, append(args, limit, offset)
}
