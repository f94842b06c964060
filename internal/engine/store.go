package engine

import (
	"context"
	"time"

	"github.com/lazypower/forgeone/internal/model"
	"github.com/lazypower/forgeone/internal/store"
)

// The interfaces below are the slices of the record store each component
// consumes. *store.DB satisfies all of them.

// MomentReader loads moments by id.
type MomentReader interface {
	GetMomentsByIDs(ctx context.Context, ids []string) ([]model.WorkMoment, error)
}

// EntryReader loads an owner's entries for insights.
type EntryReader interface {
	GetEntriesByOwnerInRange(ctx context.Context, owner string, start, end time.Time) ([]model.WorkEntry, error)
	GetAllEntriesByOwner(ctx context.Context, owner string) ([]model.WorkEntry, error)
}

// ThreadStore is what the Registry needs to maintain threads and links.
type ThreadStore interface {
	MomentReader
	InsertThread(ctx context.Context, t *model.Thread) error
	GetThread(ctx context.Context, id string) (*model.Thread, error)
	ListThreads(ctx context.Context, owner string, f store.ThreadFilter) ([]model.Thread, int, error)
	UpdateThread(ctx context.Context, id string, version int64, f model.ThreadFields) (*model.Thread, error)
	DeleteThread(ctx context.Context, id string) error
	UpsertLink(ctx context.Context, threadID, momentID string) (bool, error)
	DeleteLink(ctx context.Context, threadID, momentID string) error
	GetLinksByThread(ctx context.Context, threadID string) ([]string, error)
}

// JournalStore is what the Journal needs for moment and entry records.
type JournalStore interface {
	InsertMoment(ctx context.Context, m *model.WorkMoment) error
	GetMoment(ctx context.Context, id string) (*model.WorkMoment, error)
	ListMoments(ctx context.Context, owner string, f store.MomentFilter) ([]model.WorkMoment, int, error)
	UpdateMoment(ctx context.Context, m *model.WorkMoment) error
	DeleteMoment(ctx context.Context, id string) error
	GetThreadsByMoment(ctx context.Context, momentID string) ([]string, error)

	InsertEntry(ctx context.Context, e *model.WorkEntry) error
	GetEntry(ctx context.Context, id string) (*model.WorkEntry, error)
	ListEntries(ctx context.Context, owner string, f store.EntryFilter) ([]model.WorkEntry, int, error)
	UpdateEntry(ctx context.Context, e *model.WorkEntry) error
	DeleteEntry(ctx context.Context, id string) error
	SearchEntries(ctx context.Context, owner, q string, category model.Category, limit int) ([]model.WorkEntry, error)
}

var (
	_ ThreadStore  = (*store.DB)(nil)
	_ EntryReader  = (*store.DB)(nil)
	_ JournalStore = (*store.DB)(nil)
)

// Page is one slice of a paginated listing.
type Page[T any] struct {
	Items   []T
	Total   int
	HasMore bool
}

func newPage[T any](items []T, total, offset int) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Total: total, HasMore: offset+len(items) < total}
}
