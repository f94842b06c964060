package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lazypower/forgeone/internal/model"
)

const entryColumns = `id, user_id, title, description, category, time_spent, outcome, blockers, created_at, updated_at`

type entryRow struct {
	ID          string         `db:"id"`
	UserID      string         `db:"user_id"`
	Title       string         `db:"title"`
	Description string         `db:"description"`
	Category    string         `db:"category"`
	TimeSpent   sql.NullInt64  `db:"time_spent"`
	Outcome     string         `db:"outcome"`
	Blockers    sql.NullString `db:"blockers"`
	CreatedAt   int64          `db:"created_at"`
	UpdatedAt   int64          `db:"updated_at"`
}

func (r entryRow) toModel() model.WorkEntry {
	e := model.WorkEntry{
		ID:          r.ID,
		OwnerID:     r.UserID,
		Title:       r.Title,
		Description: r.Description,
		Category:    model.Category(r.Category),
		Outcome:     model.Outcome(r.Outcome),
		Blockers:    r.Blockers.String,
		CreatedAt:   fromMillis(r.CreatedAt),
		UpdatedAt:   fromMillis(r.UpdatedAt),
	}
	if r.TimeSpent.Valid {
		v := int(r.TimeSpent.Int64)
		e.TimeSpent = &v
	}
	return e
}

func entriesFromRows(rows []entryRow) []model.WorkEntry {
	out := make([]model.WorkEntry, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out
}

func nullMinutes(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

// EntryFilter narrows ListEntries. Zero values match everything.
type EntryFilter struct {
	From     time.Time // inclusive
	To       time.Time // inclusive
	Category model.Category
	Limit    int
	Offset   int
}

// InsertEntry stores a new entry, assigning id and timestamps when unset.
func (db *DB) InsertEntry(ctx context.Context, e *model.WorkEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = e.CreatedAt
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO work_entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.OwnerID, e.Title, e.Description, string(e.Category), nullMinutes(e.TimeSpent),
		string(e.Outcome), nullString(e.Blockers), toMillis(e.CreatedAt), toMillis(e.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

// GetEntry returns an entry by id, or nil if not found.
func (db *DB) GetEntry(ctx context.Context, id string) (*model.WorkEntry, error) {
	var r entryRow
	err := db.GetContext(ctx, &r, `SELECT `+entryColumns+` FROM work_entries WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	e := r.toModel()
	return &e, nil
}

// GetEntriesByOwnerInRange returns an owner's entries with created_at in
// [start, end], newest first.
func (db *DB) GetEntriesByOwnerInRange(ctx context.Context, owner string, start, end time.Time) ([]model.WorkEntry, error) {
	var rows []entryRow
	err := db.SelectContext(ctx, &rows, `
		SELECT `+entryColumns+` FROM work_entries
		WHERE user_id = ? AND created_at >= ? AND created_at <= ?
		ORDER BY created_at DESC
	`, owner, toMillis(start), toMillis(end))
	if err != nil {
		return nil, fmt.Errorf("get entries in range: %w", err)
	}
	return entriesFromRows(rows), nil
}

// GetAllEntriesByOwner returns every entry an owner ever recorded, newest first.
func (db *DB) GetAllEntriesByOwner(ctx context.Context, owner string) ([]model.WorkEntry, error) {
	var rows []entryRow
	err := db.SelectContext(ctx, &rows, `
		SELECT `+entryColumns+` FROM work_entries
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("get all entries: %w", err)
	}
	return entriesFromRows(rows), nil
}

// ListEntries returns one page of an owner's entries, newest first, and the
// total number of matches.
func (db *DB) ListEntries(ctx context.Context, owner string, f EntryFilter) ([]model.WorkEntry, int, error) {
	clauses := []string{"user_id = ?"}
	args := []any{owner}
	if !f.From.IsZero() {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, toMillis(f.From))
	}
	if !f.To.IsZero() {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, toMillis(f.To))
	}
	if f.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, string(f.Category))
	}
	where := strings.Join(clauses, " AND ")

	var total int
	if err := db.GetContext(ctx, &total, `SELECT COUNT(*) FROM work_entries WHERE `+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count entries: %w", err)
	}

	query, args := paginate(`SELECT `+entryColumns+` FROM work_entries WHERE `+where+` ORDER BY created_at DESC`, args, f.Limit, f.Offset)
	var rows []entryRow
	if err := db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list entries: %w", err)
	}
	return entriesFromRows(rows), total, nil
}

// SearchEntries returns an owner's entries whose title, description or
// blockers contain q (case-insensitive), newest first.
func (db *DB) SearchEntries(ctx context.Context, owner, q string, category model.Category, limit int) ([]model.WorkEntry, error) {
	pattern := "%" + escapeLike(strings.ToLower(q)) + "%"
	query := `
		SELECT ` + entryColumns + ` FROM work_entries
		WHERE user_id = ?
		  AND (lower(title) LIKE ? ESCAPE '\' OR lower(description) LIKE ? ESCAPE '\' OR lower(COALESCE(blockers, '')) LIKE ? ESCAPE '\')`
	args := []any{owner, pattern, pattern, pattern}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, string(category))
	}
	query += ` ORDER BY created_at DESC`
	query, args = paginate(query, args, limit, 0)

	var rows []entryRow
	if err := db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("search entries: %w", err)
	}
	return entriesFromRows(rows), nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// UpdateEntry rewrites the mutable columns of an entry and bumps updated_at.
func (db *DB) UpdateEntry(ctx context.Context, e *model.WorkEntry) error {
	e.UpdatedAt = time.Now().UTC()
	res, err := db.ExecContext(ctx, `
		UPDATE work_entries SET title = ?, description = ?, category = ?, time_spent = ?,
			outcome = ?, blockers = ?, updated_at = ?
		WHERE id = ?
	`, e.Title, e.Description, string(e.Category), nullMinutes(e.TimeSpent),
		string(e.Outcome), nullString(e.Blockers), toMillis(e.UpdatedAt), e.ID)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	return expectOneRow(res)
}

// DeleteEntry removes an entry.
func (db *DB) DeleteEntry(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM work_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return expectOneRow(res)
}
