package engine

import (
	"context"
	"time"

	"github.com/lazypower/forgeone/internal/logging"
	"github.com/lazypower/forgeone/internal/model"
)

// Store is the full record store the engine runs on.
type Store interface {
	ThreadStore
	EntryReader
	JournalStore
}

// Options configures an Engine. Zero values are usable.
type Options struct {
	// Location is the zone calendar dates are evaluated in. Defaults to UTC.
	Location *time.Location
	Logger   logging.Logger
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Engine bundles the journal, the thread registry and insights over one
// store, and keeps thread friction in step with moment edits.
type Engine struct {
	Journal  *Journal
	Threads  *Registry
	Insights *Insights

	log logging.Logger
}

// New creates an Engine over s.
func New(s Store, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	e := &Engine{
		Journal:  NewJournal(s, opts.Location),
		Threads:  NewRegistry(s, opts.Logger),
		Insights: NewInsights(s, opts.Location),
		log:      opts.Logger,
	}
	if opts.Now != nil {
		e.Journal.now = opts.Now
		e.Threads.now = opts.Now
		e.Insights.now = opts.Now
	}
	return e
}

// UpdateMoment edits a moment and recomputes friction on its threads.
// The edit stands even if the recompute fails; the failure is logged.
func (e *Engine) UpdateMoment(ctx context.Context, owner, id string, patch model.MomentPatch) (*model.WorkMoment, error) {
	m, threads, err := e.Journal.UpdateMoment(ctx, owner, id, patch)
	if err != nil {
		return nil, err
	}
	e.refresh(ctx, threads)
	return m, nil
}

// DeleteMoment removes a moment and recomputes friction on the threads it
// was linked to. Threads left empty keep their score.
func (e *Engine) DeleteMoment(ctx context.Context, owner, id string) error {
	threads, err := e.Journal.DeleteMoment(ctx, owner, id)
	if err != nil {
		return err
	}
	e.refresh(ctx, threads)
	return nil
}

func (e *Engine) refresh(ctx context.Context, threads []string) {
	if len(threads) == 0 {
		return
	}
	if err := e.Threads.Refresh(ctx, threads...); err != nil {
		e.log.Error(ctx, "refresh thread friction", "threads", threads, "err", err)
	}
}
