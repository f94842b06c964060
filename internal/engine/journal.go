package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lazypower/forgeone/internal/apperr"
	"github.com/lazypower/forgeone/internal/model"
	"github.com/lazypower/forgeone/internal/store"
)

const (
	// DefaultTimelineDays is the timeline lookback when none is given.
	DefaultTimelineDays = 7
	// MaxTimelineDays caps the timeline lookback.
	MaxTimelineDays = 365
	// DefaultSearchLimit caps search results when none is given.
	DefaultSearchLimit = 20
)

// MomentQuery narrows a moment listing. A non-zero Day restricts results
// to that calendar date.
type MomentQuery struct {
	Day        time.Time
	StateAfter model.StateAfter
	EnergyCost model.EnergyCost
	Limit      int
	Offset     int
}

// EntryQuery narrows an entry listing. Day wins over From/To.
type EntryQuery struct {
	Day      time.Time
	From     time.Time
	To       time.Time
	Category model.Category
	Limit    int
	Offset   int
}

// Journal records and reads an owner's moments and entries.
type Journal struct {
	store JournalStore
	loc   *time.Location
	now   func() time.Time
}

// NewJournal creates a Journal that evaluates calendar dates in loc.
func NewJournal(s JournalStore, loc *time.Location) *Journal {
	if loc == nil {
		loc = time.UTC
	}
	return &Journal{store: s, loc: loc, now: time.Now}
}

// Location is the zone calendar dates are evaluated in.
func (j *Journal) Location() *time.Location { return j.loc }

// CreateMoment validates and stores a moment.
func (j *Journal) CreateMoment(ctx context.Context, owner string, in model.MomentInput) (*model.WorkMoment, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	m := &model.WorkMoment{
		OwnerID:     owner,
		EffortText:  in.EffortText,
		ContextNote: in.ContextNote,
		StateAfter:  in.StateAfter,
		EnergyCost:  in.EnergyCost,
		CreatedAt:   j.now().UTC(),
	}
	if err := j.store.InsertMoment(ctx, m); err != nil {
		return nil, apperr.Internal(err, "failed to create work moment")
	}
	return m, nil
}

// GetMoment returns one of the owner's moments.
func (j *Journal) GetMoment(ctx context.Context, owner, id string) (*model.WorkMoment, error) {
	m, err := j.store.GetMoment(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err, "failed to fetch work moment")
	}
	if m == nil || m.OwnerID != owner {
		return nil, apperr.NotFound("Work moment")
	}
	return m, nil
}

// ListMoments returns a page of the owner's moments, newest first.
func (j *Journal) ListMoments(ctx context.Context, owner string, q MomentQuery) (Page[model.WorkMoment], error) {
	limit, offset, err := pageBounds(q.Limit, q.Offset)
	if err != nil {
		return Page[model.WorkMoment]{}, err
	}
	if q.StateAfter != "" && !q.StateAfter.Valid() {
		return Page[model.WorkMoment]{}, apperr.Validation("Invalid input data", `state_after has unknown value "`+string(q.StateAfter)+`"`)
	}
	if q.EnergyCost != "" && !q.EnergyCost.Valid() {
		return Page[model.WorkMoment]{}, apperr.Validation("Invalid input data", `energy_cost has unknown value "`+string(q.EnergyCost)+`"`)
	}
	f := store.MomentFilter{StateAfter: q.StateAfter, EnergyCost: q.EnergyCost, Limit: limit, Offset: offset}
	if !q.Day.IsZero() {
		f.From = StartOfDay(q.Day, j.loc)
		f.To = f.From.AddDate(0, 0, 1)
	}
	moments, total, err := j.store.ListMoments(ctx, owner, f)
	if err != nil {
		return Page[model.WorkMoment]{}, apperr.Internal(err, "failed to fetch work moments")
	}
	return newPage(moments, total, offset), nil
}

// TodayMoments returns every moment from the current calendar date,
// newest first.
func (j *Journal) TodayMoments(ctx context.Context, owner string) ([]model.WorkMoment, error) {
	from := StartOfDay(j.now(), j.loc)
	moments, _, err := j.store.ListMoments(ctx, owner, store.MomentFilter{From: from, To: from.AddDate(0, 0, 1)})
	if err != nil {
		return nil, apperr.Internal(err, "failed to fetch today's moments")
	}
	if moments == nil {
		moments = []model.WorkMoment{}
	}
	return moments, nil
}

// MomentTimeline groups the last days of moments by calendar date.
func (j *Journal) MomentTimeline(ctx context.Context, owner string, days int) (Timeline[model.WorkMoment], error) {
	from, err := j.lookback(days)
	if err != nil {
		return nil, err
	}
	moments, _, err := j.store.ListMoments(ctx, owner, store.MomentFilter{From: from})
	if err != nil {
		return nil, apperr.Internal(err, "failed to fetch timeline")
	}
	return GroupByDay(moments, j.loc), nil
}

// UpdateMoment applies patch to one of the owner's moments. It also returns
// the ids of threads the moment is linked to, whose friction may now be
// out of date.
func (j *Journal) UpdateMoment(ctx context.Context, owner, id string, patch model.MomentPatch) (*model.WorkMoment, []string, error) {
	if err := patch.Validate(); err != nil {
		return nil, nil, err
	}
	m, err := j.GetMoment(ctx, owner, id)
	if err != nil {
		return nil, nil, err
	}
	patch.Apply(m)
	if err := j.store.UpdateMoment(ctx, m); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, apperr.NotFound("Work moment")
		}
		return nil, nil, apperr.Internal(err, "failed to update work moment")
	}
	threads, err := j.store.GetThreadsByMoment(ctx, id)
	if err != nil {
		return nil, nil, apperr.Internal(err, "failed to load moment threads")
	}
	return m, threads, nil
}

// DeleteMoment removes one of the owner's moments and its links, returning
// the ids of the threads it was linked to.
func (j *Journal) DeleteMoment(ctx context.Context, owner, id string) ([]string, error) {
	if _, err := j.GetMoment(ctx, owner, id); err != nil {
		return nil, err
	}
	threads, err := j.store.GetThreadsByMoment(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err, "failed to load moment threads")
	}
	if err := j.store.DeleteMoment(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Work moment")
		}
		return nil, apperr.Internal(err, "failed to delete work moment")
	}
	return threads, nil
}

// CreateEntry validates and stores an entry.
func (j *Journal) CreateEntry(ctx context.Context, owner string, in model.EntryInput) (*model.WorkEntry, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	now := j.now().UTC()
	e := &model.WorkEntry{
		OwnerID:     owner,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		TimeSpent:   in.TimeSpent,
		Outcome:     in.Outcome,
		Blockers:    in.Blockers,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := j.store.InsertEntry(ctx, e); err != nil {
		return nil, apperr.Internal(err, "failed to create work entry")
	}
	return e, nil
}

// GetEntry returns one of the owner's entries.
func (j *Journal) GetEntry(ctx context.Context, owner, id string) (*model.WorkEntry, error) {
	e, err := j.store.GetEntry(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err, "failed to fetch work entry")
	}
	if e == nil || e.OwnerID != owner {
		return nil, apperr.NotFound("Work entry")
	}
	return e, nil
}

// ListEntries returns a page of the owner's entries, newest first.
func (j *Journal) ListEntries(ctx context.Context, owner string, q EntryQuery) (Page[model.WorkEntry], error) {
	limit, offset, err := pageBounds(q.Limit, q.Offset)
	if err != nil {
		return Page[model.WorkEntry]{}, err
	}
	if q.Category != "" && !q.Category.Valid() {
		return Page[model.WorkEntry]{}, apperr.Validation("Invalid input data", `category has unknown value "`+string(q.Category)+`"`)
	}
	f := store.EntryFilter{From: q.From, To: q.To, Category: q.Category, Limit: limit, Offset: offset}
	if !q.Day.IsZero() {
		f.From = StartOfDay(q.Day, j.loc)
		f.To = f.From.AddDate(0, 0, 1).Add(-time.Millisecond)
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return Page[model.WorkEntry]{}, apperr.Validation("Invalid input data", "endDate must not be before startDate")
	}
	entries, total, err := j.store.ListEntries(ctx, owner, f)
	if err != nil {
		return Page[model.WorkEntry]{}, apperr.Internal(err, "failed to fetch work entries")
	}
	return newPage(entries, total, offset), nil
}

// EntryTimeline groups the last days of entries by calendar date.
func (j *Journal) EntryTimeline(ctx context.Context, owner string, days int) (Timeline[model.WorkEntry], error) {
	from, err := j.lookback(days)
	if err != nil {
		return nil, err
	}
	entries, _, err := j.store.ListEntries(ctx, owner, store.EntryFilter{From: from})
	if err != nil {
		return nil, apperr.Internal(err, "failed to fetch timeline")
	}
	return GroupByDay(entries, j.loc), nil
}

// UpdateEntry applies patch to one of the owner's entries.
func (j *Journal) UpdateEntry(ctx context.Context, owner, id string, patch model.EntryPatch) (*model.WorkEntry, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	e, err := j.GetEntry(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(e)
	if err := j.store.UpdateEntry(ctx, e); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Work entry")
		}
		return nil, apperr.Internal(err, "failed to update work entry")
	}
	return e, nil
}

// DeleteEntry removes one of the owner's entries.
func (j *Journal) DeleteEntry(ctx context.Context, owner, id string) error {
	if _, err := j.GetEntry(ctx, owner, id); err != nil {
		return err
	}
	if err := j.store.DeleteEntry(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("Work entry")
		}
		return apperr.Internal(err, "failed to delete work entry")
	}
	return nil
}

// SearchEntries matches q as a case-insensitive substring of title,
// description or blockers.
func (j *Journal) SearchEntries(ctx context.Context, owner, q string, category model.Category, limit int) ([]model.WorkEntry, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, apperr.Validation("Invalid input data", "q is required")
	}
	if category != "" && !category.Valid() {
		return nil, apperr.Validation("Invalid input data", `category has unknown value "`+string(category)+`"`)
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	entries, err := j.store.SearchEntries(ctx, owner, q, category, limit)
	if err != nil {
		return nil, apperr.Internal(err, "failed to search work entries")
	}
	if entries == nil {
		entries = []model.WorkEntry{}
	}
	return entries, nil
}

func (j *Journal) lookback(days int) (time.Time, error) {
	if days == 0 {
		days = DefaultTimelineDays
	}
	if days < 0 || days > MaxTimelineDays {
		return time.Time{}, apperr.Validation("Invalid input data", "days must be between 1 and 365")
	}
	return j.now().Add(-time.Duration(days) * 24 * time.Hour), nil
}
