package engine

import (
	"context"
	"errors"
	"time"

	"github.com/lazypower/forgeone/internal/apperr"
	"github.com/lazypower/forgeone/internal/logging"
	"github.com/lazypower/forgeone/internal/model"
	"github.com/lazypower/forgeone/internal/store"
)

const (
	// maxWriteAttempts bounds compare-and-set retries on a contended thread.
	maxWriteAttempts = 3
	// ActiveLimit is how many threads Active returns.
	ActiveLimit = 10
	// DefaultPageSize applies when a listing asks for no limit.
	DefaultPageSize = 50
	// MaxPageSize caps any listing.
	MaxPageSize = 200
)

// Registry maintains threads, their moment links, and the derived
// recency and friction fields.
type Registry struct {
	store ThreadStore
	log   logging.Logger
	now   func() time.Time
}

// NewRegistry creates a Registry over s.
func NewRegistry(s ThreadStore, log logging.Logger) *Registry {
	if log == nil {
		log = logging.Nop()
	}
	return &Registry{store: s, log: log, now: time.Now}
}

// Create makes an active thread with zero friction. When in.MomentID is set
// the moment is checked first and linked after insertion, so first_seen and
// last_seen both start at the creation time and last_seen then follows the
// link.
func (r *Registry) Create(ctx context.Context, owner string, in model.ThreadInput) (*model.Thread, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if in.MomentID != "" {
		if _, err := r.ownedMoment(ctx, owner, in.MomentID); err != nil {
			return nil, err
		}
	}

	now := r.now().UTC()
	t := &model.Thread{
		OwnerID:   owner,
		Name:      in.Name,
		FirstSeen: now,
		LastSeen:  now,
		Status:    model.ThreadActive,
		CreatedAt: now,
	}
	if err := r.store.InsertThread(ctx, t); err != nil {
		return nil, apperr.Internal(err, "failed to create thread")
	}
	r.log.Debug(ctx, "thread created", "thread", t.ID, "owner", owner)

	if in.MomentID == "" {
		return t, nil
	}
	if err := r.Link(ctx, owner, t.ID, in.MomentID); err != nil {
		return nil, err
	}
	return r.owned(ctx, owner, t.ID)
}

// Link associates a moment with a thread and recomputes the thread's
// friction from the full link set. A new link moves last_seen to the
// moment's creation time; a repeated link only refreshes the score.
// If the thread write fails, a link created by this call is removed again
// so that a retry is treated as a new link.
//
// Both records must belong to owner, otherwise the missing one is reported
// as not found.
func (r *Registry) Link(ctx context.Context, owner, threadID, momentID string) error {
	if _, err := r.owned(ctx, owner, threadID); err != nil {
		return err
	}
	moment, err := r.ownedMoment(ctx, owner, momentID)
	if err != nil {
		return err
	}

	created, err := r.store.UpsertLink(ctx, threadID, momentID)
	if err != nil {
		return apperr.Internal(err, "failed to link moment")
	}

	seen := moment.CreatedAt
	_, err = r.write(ctx, owner, threadID, func(_ *model.Thread) (model.ThreadFields, error) {
		var f model.ThreadFields
		if created {
			f.LastSeen = &seen
		}
		score, ok, err := r.score(ctx, threadID)
		if err != nil {
			return f, err
		}
		if ok {
			f.FrictionScore = &score
		}
		return f, nil
	})
	if err != nil {
		if created {
			r.unlink(ctx, threadID, momentID)
		}
		return err
	}
	r.log.Debug(ctx, "moment linked", "thread", threadID, "moment", momentID, "new", created)
	return nil
}

// SetStatus sets a thread's status. Recency and score are untouched.
func (r *Registry) SetStatus(ctx context.Context, owner, threadID string, status model.ThreadStatus) (*model.Thread, error) {
	if !status.Valid() {
		return nil, apperr.Validation("Invalid input data", `status has unknown value "`+string(status)+`"`)
	}
	return r.Update(ctx, owner, threadID, model.ThreadPatch{Status: &status})
}

// Toggle flips a thread between active and dormant.
func (r *Registry) Toggle(ctx context.Context, owner, threadID string) (*model.Thread, error) {
	t, err := r.owned(ctx, owner, threadID)
	if err != nil {
		return nil, err
	}
	return r.SetStatus(ctx, owner, threadID, t.Status.Toggle())
}

// Update applies a rename and/or status change.
func (r *Registry) Update(ctx context.Context, owner, threadID string, patch model.ThreadPatch) (*model.Thread, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	return r.write(ctx, owner, threadID, func(_ *model.Thread) (model.ThreadFields, error) {
		return model.ThreadFields{Name: patch.Name, Status: patch.Status}, nil
	})
}

// Refresh recomputes friction for each thread from its current link set.
// Used after a linked moment is edited or deleted. Threads left with no
// links keep their previous score; threads that no longer exist are skipped.
func (r *Registry) Refresh(ctx context.Context, threadIDs ...string) error {
	for _, id := range threadIDs {
		t, err := r.store.GetThread(ctx, id)
		if err != nil {
			return apperr.Internal(err, "failed to load thread")
		}
		if t == nil {
			continue
		}
		_, err = r.write(ctx, t.OwnerID, id, func(_ *model.Thread) (model.ThreadFields, error) {
			var f model.ThreadFields
			score, ok, err := r.score(ctx, id)
			if ok {
				f.FrictionScore = &score
			}
			return f, err
		})
		if err != nil && !apperr.IsNotFound(err) {
			return err
		}
	}
	return nil
}

// List returns a page of the owner's threads, most recently seen first.
func (r *Registry) List(ctx context.Context, owner string, status model.ThreadStatus, limit, offset int) (Page[model.Thread], error) {
	if status != "" && !status.Valid() {
		return Page[model.Thread]{}, apperr.Validation("Invalid input data", `status has unknown value "`+string(status)+`"`)
	}
	limit, offset, err := pageBounds(limit, offset)
	if err != nil {
		return Page[model.Thread]{}, err
	}
	threads, total, err := r.store.ListThreads(ctx, owner, store.ThreadFilter{Status: status, Limit: limit, Offset: offset})
	if err != nil {
		return Page[model.Thread]{}, apperr.Internal(err, "failed to list threads")
	}
	return newPage(threads, total, offset), nil
}

// Active returns the owner's most recently seen active threads.
func (r *Registry) Active(ctx context.Context, owner string) ([]model.Thread, error) {
	page, err := r.List(ctx, owner, model.ThreadActive, ActiveLimit, 0)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// Get returns a thread with its linked moments, oldest first.
func (r *Registry) Get(ctx context.Context, owner, threadID string) (*model.ThreadDetail, error) {
	t, err := r.owned(ctx, owner, threadID)
	if err != nil {
		return nil, err
	}
	moments, err := r.linkedMoments(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if moments == nil {
		moments = []model.WorkMoment{}
	}
	return &model.ThreadDetail{Thread: *t, Moments: moments}, nil
}

// Delete removes a thread and its links. The moments survive.
func (r *Registry) Delete(ctx context.Context, owner, threadID string) error {
	if _, err := r.owned(ctx, owner, threadID); err != nil {
		return err
	}
	if err := r.store.DeleteThread(ctx, threadID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("Thread")
		}
		return apperr.Internal(err, "failed to delete thread")
	}
	return nil
}

// write runs a compare-and-set update on a thread. build sees the freshly
// read thread and returns the fields to write; it is re-run on every
// attempt so derived values are computed against current state.
func (r *Registry) write(ctx context.Context, owner, threadID string, build func(*model.Thread) (model.ThreadFields, error)) (*model.Thread, error) {
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		t, err := r.owned(ctx, owner, threadID)
		if err != nil {
			return nil, err
		}
		fields, err := build(t)
		if err != nil {
			return nil, err
		}
		if fields == (model.ThreadFields{}) {
			return t, nil
		}

		updated, err := r.store.UpdateThread(ctx, threadID, t.Version, fields)
		switch {
		case err == nil:
			return updated, nil
		case errors.Is(err, store.ErrVersionConflict):
			r.log.Debug(ctx, "thread write conflict", "thread", threadID, "attempt", attempt+1)
			continue
		case errors.Is(err, store.ErrNotFound):
			return nil, apperr.NotFound("Thread")
		default:
			return nil, apperr.Internal(err, "failed to update thread")
		}
	}
	return nil, apperr.Conflict("thread was modified concurrently, retry the request")
}

// unlink drops a link whose thread write never landed. The context may
// already be done, so the delete runs detached from its cancellation.
func (r *Registry) unlink(ctx context.Context, threadID, momentID string) {
	err := r.store.DeleteLink(context.WithoutCancel(ctx), threadID, momentID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		r.log.Error(ctx, "failed to roll back link", "thread", threadID, "moment", momentID, "err", err)
	}
}

// score computes friction over the thread's current links.
func (r *Registry) score(ctx context.Context, threadID string) (float64, bool, error) {
	moments, err := r.linkedMoments(ctx, threadID)
	if err != nil {
		return 0, false, err
	}
	score, ok := ComputeFriction(moments)
	return score, ok, nil
}

func (r *Registry) linkedMoments(ctx context.Context, threadID string) ([]model.WorkMoment, error) {
	ids, err := r.store.GetLinksByThread(ctx, threadID)
	if err != nil {
		return nil, apperr.Internal(err, "failed to load thread links")
	}
	if len(ids) == 0 {
		return nil, nil
	}
	moments, err := r.store.GetMomentsByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Internal(err, "failed to load linked moments")
	}
	return moments, nil
}

// owned loads a thread and hides other owners' threads as not found.
func (r *Registry) owned(ctx context.Context, owner, threadID string) (*model.Thread, error) {
	t, err := r.store.GetThread(ctx, threadID)
	if err != nil {
		return nil, apperr.Internal(err, "failed to load thread")
	}
	if t == nil || t.OwnerID != owner {
		return nil, apperr.NotFound("Thread")
	}
	return t, nil
}

func (r *Registry) ownedMoment(ctx context.Context, owner, momentID string) (*model.WorkMoment, error) {
	moments, err := r.store.GetMomentsByIDs(ctx, []string{momentID})
	if err != nil {
		return nil, apperr.Internal(err, "failed to load moment")
	}
	if len(moments) == 0 || moments[0].OwnerID != owner {
		return nil, apperr.NotFound("Work moment")
	}
	return &moments[0], nil
}

func pageBounds(limit, offset int) (int, int, error) {
	if limit < 0 || offset < 0 {
		return 0, 0, apperr.Validation("Invalid input data", "limit and offset must not be negative")
	}
	if limit == 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return limit, offset, nil
}
