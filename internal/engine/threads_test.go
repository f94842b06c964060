package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/forgeone/internal/apperr"
	"github.com/lazypower/forgeone/internal/model"
	"github.com/lazypower/forgeone/internal/store"
)

func testRegistry(t *testing.T, s ThreadStore) *Registry {
	t.Helper()
	r := NewRegistry(s, nil)
	r.now = func() time.Time { return now }
	return r
}

// conflictStore fails the first n thread updates with a version conflict.
type conflictStore struct {
	ThreadStore
	conflicts int
	updates   int
}

func (s *conflictStore) UpdateThread(ctx context.Context, id string, version int64, f model.ThreadFields) (*model.Thread, error) {
	s.updates++
	if s.updates <= s.conflicts {
		return nil, store.ErrVersionConflict
	}
	return s.ThreadStore.UpdateThread(ctx, id, version, f)
}

// brokenLinksStore fails every link read.
type brokenLinksStore struct {
	ThreadStore
}

func (brokenLinksStore) GetLinksByThread(context.Context, string) ([]string, error) {
	return nil, errors.New("disk I/O error")
}

func TestCreateThread(t *testing.T) {
	r := testRegistry(t, testStore(t))

	th, err := r.Create(context.Background(), "u1", model.ThreadInput{Name: "  auth flow "})
	require.NoError(t, err)
	assert.NotEmpty(t, th.ID)
	assert.Equal(t, "auth flow", th.Name)
	assert.Equal(t, model.ThreadActive, th.Status)
	assert.Zero(t, th.FrictionScore)
	assert.Equal(t, now, th.FirstSeen)
	assert.Equal(t, now, th.LastSeen)
}

func TestCreateThreadValidation(t *testing.T) {
	r := testRegistry(t, testStore(t))

	_, err := r.Create(context.Background(), "u1", model.ThreadInput{Name: "   "})
	assert.True(t, apperr.IsValidation(err))
}

func TestCreateThreadWithMoment(t *testing.T) {
	db := testStore(t)
	r := testRegistry(t, db)
	m := moment(t, db, "u1", model.StateStuck, now.Add(-3*time.Hour))

	th, err := r.Create(context.Background(), "u1", model.ThreadInput{Name: "parser", MomentID: m.ID})
	require.NoError(t, err)
	assert.Equal(t, 1.0, th.FrictionScore)
	assert.Equal(t, m.CreatedAt, th.LastSeen)
	assert.Equal(t, now, th.FirstSeen)

	links, err := db.GetLinksByThread(context.Background(), th.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{m.ID}, links)
}

func TestCreateThreadWithForeignMoment(t *testing.T) {
	db := testStore(t)
	r := testRegistry(t, db)
	m := moment(t, db, "u2", model.StateStuck, now)

	_, err := r.Create(context.Background(), "u1", model.ThreadInput{Name: "parser", MomentID: m.ID})
	assert.True(t, apperr.IsNotFound(err))

	page, err := r.List(context.Background(), "u1", "", 0, 0)
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestLinkRecomputesFriction(t *testing.T) {
	db := testStore(t)
	r := testRegistry(t, db)
	ctx := context.Background()

	th, err := r.Create(ctx, "u1", model.ThreadInput{Name: "parser"})
	require.NoError(t, err)

	want := []float64{1, 0.5, 0.33, 0.25}
	for i, s := range []model.StateAfter{model.StateStuck, model.StateAdvanced, model.StateResolved, model.StateAdvanced} {
		m := moment(t, db, "u1", s, now.Add(time.Duration(i)*time.Minute))
		require.NoError(t, r.Link(ctx, "u1", th.ID, m.ID))

		got, err := db.GetThread(ctx, th.ID)
		require.NoError(t, err)
		assert.Equal(t, want[i], got.FrictionScore, "after %d links", i+1)
		assert.Equal(t, m.CreatedAt, got.LastSeen)
	}
}

func TestLinkDuplicateIsNoop(t *testing.T) {
	db := testStore(t)
	r := testRegistry(t, db)
	ctx := context.Background()

	th, err := r.Create(ctx, "u1", model.ThreadInput{Name: "parser"})
	require.NoError(t, err)
	older := moment(t, db, "u1", model.StateStuck, now.Add(-2*time.Hour))
	newer := moment(t, db, "u1", model.StateAdvanced, now.Add(-time.Hour))
	require.NoError(t, r.Link(ctx, "u1", th.ID, older.ID))
	require.NoError(t, r.Link(ctx, "u1", th.ID, newer.ID))

	before, err := db.GetThread(ctx, th.ID)
	require.NoError(t, err)

	require.NoError(t, r.Link(ctx, "u1", th.ID, older.ID))

	after, err := db.GetThread(ctx, th.ID)
	require.NoError(t, err)
	assert.Equal(t, before.FrictionScore, after.FrictionScore)
	assert.Equal(t, newer.CreatedAt, after.LastSeen)

	links, err := db.GetLinksByThread(ctx, th.ID)
	require.NoError(t, err)
	assert.Len(t, links, 2)
}

func TestLinkOwnership(t *testing.T) {
	db := testStore(t)
	r := testRegistry(t, db)
	ctx := context.Background()

	mine, err := r.Create(ctx, "u1", model.ThreadInput{Name: "mine"})
	require.NoError(t, err)
	theirs, err := r.Create(ctx, "u2", model.ThreadInput{Name: "theirs"})
	require.NoError(t, err)
	myMoment := moment(t, db, "u1", model.StateStuck, now)
	theirMoment := moment(t, db, "u2", model.StateStuck, now)

	tests := []struct {
		name     string
		threadID string
		momentID string
	}{
		{"foreign moment", mine.ID, theirMoment.ID},
		{"foreign thread", theirs.ID, myMoment.ID},
		{"missing moment", mine.ID, "00000000-0000-0000-0000-000000000000"},
		{"missing thread", "00000000-0000-0000-0000-000000000000", myMoment.ID},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := r.Link(ctx, "u1", tc.threadID, tc.momentID)
			assert.True(t, apperr.IsNotFound(err), "got %v", err)
		})
	}

	links, err := db.GetLinksByThread(ctx, mine.ID)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestLinkRetriesOnConflict(t *testing.T) {
	db := testStore(t)
	cs := &conflictStore{ThreadStore: db, conflicts: 2}
	r := testRegistry(t, cs)
	ctx := context.Background()

	th, err := r.Create(ctx, "u1", model.ThreadInput{Name: "parser"})
	require.NoError(t, err)
	m := moment(t, db, "u1", model.StateStuck, now)

	require.NoError(t, r.Link(ctx, "u1", th.ID, m.ID))
	assert.Equal(t, 3, cs.updates)

	got, err := db.GetThread(ctx, th.ID)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.FrictionScore)
}

func TestLinkGivesUpAfterRepeatedConflicts(t *testing.T) {
	db := testStore(t)
	cs := &conflictStore{ThreadStore: db, conflicts: maxWriteAttempts}
	r := testRegistry(t, cs)
	ctx := context.Background()

	th, err := r.Create(ctx, "u1", model.ThreadInput{Name: "parser"})
	require.NoError(t, err)
	m := moment(t, db, "u1", model.StateStuck, now)

	err = r.Link(ctx, "u1", th.ID, m.ID)
	assert.True(t, apperr.IsConflict(err), "got %v", err)
	assert.Equal(t, maxWriteAttempts, cs.updates)
}

func TestLinkRetryAfterGivingUpMovesLastSeen(t *testing.T) {
	db := testStore(t)
	cs := &conflictStore{ThreadStore: db, conflicts: maxWriteAttempts}
	ctx := context.Background()

	th, err := testRegistry(t, db).Create(ctx, "u1", model.ThreadInput{Name: "parser"})
	require.NoError(t, err)
	m := moment(t, db, "u1", model.StateStuck, now.Add(-48*time.Hour))

	err = testRegistry(t, cs).Link(ctx, "u1", th.ID, m.ID)
	require.True(t, apperr.IsConflict(err), "got %v", err)

	links, err := db.GetLinksByThread(ctx, th.ID)
	require.NoError(t, err)
	assert.Empty(t, links)

	require.NoError(t, testRegistry(t, db).Link(ctx, "u1", th.ID, m.ID))
	got, err := db.GetThread(ctx, th.ID)
	require.NoError(t, err)
	assert.True(t, got.LastSeen.Equal(m.CreatedAt), "last_seen %v, moment %v", got.LastSeen, m.CreatedAt)
	assert.Equal(t, 1.0, got.FrictionScore)
}

func TestLinkFailureKeepsExistingLink(t *testing.T) {
	db := testStore(t)
	ctx := context.Background()

	r := testRegistry(t, db)
	th, err := r.Create(ctx, "u1", model.ThreadInput{Name: "parser"})
	require.NoError(t, err)
	m := moment(t, db, "u1", model.StateStuck, now)
	require.NoError(t, r.Link(ctx, "u1", th.ID, m.ID))

	err = testRegistry(t, brokenLinksStore{ThreadStore: db}).Link(ctx, "u1", th.ID, m.ID)
	require.Error(t, err)

	links, err := db.GetLinksByThread(ctx, th.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{m.ID}, links)
}

func TestLinkStoreFailureIsInternal(t *testing.T) {
	db := testStore(t)
	r := testRegistry(t, brokenLinksStore{ThreadStore: db})
	ctx := context.Background()

	th, err := r.Create(ctx, "u1", model.ThreadInput{Name: "parser"})
	require.NoError(t, err)
	m := moment(t, db, "u1", model.StateStuck, now)

	err = r.Link(ctx, "u1", th.ID, m.ID)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.CodeInternal, appErr.Code)
	assert.NotContains(t, appErr.Message, "disk I/O")
	assert.ErrorContains(t, errors.Unwrap(err), "disk I/O")
}

func TestSetStatusToggleTwice(t *testing.T) {
	db := testStore(t)
	r := testRegistry(t, db)
	ctx := context.Background()

	m := moment(t, db, "u1", model.StateStuck, now.Add(-time.Hour))
	orig, err := r.Create(ctx, "u1", model.ThreadInput{Name: "parser", MomentID: m.ID})
	require.NoError(t, err)

	once, err := r.Toggle(ctx, "u1", orig.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ThreadDormant, once.Status)

	twice, err := r.Toggle(ctx, "u1", orig.ID)
	require.NoError(t, err)

	if diff := cmp.Diff(*orig, *twice, cmpopts.IgnoreFields(model.Thread{}, "Version")); diff != "" {
		t.Errorf("thread changed after two toggles (-orig +got):\n%s", diff)
	}
}

func TestSetStatus(t *testing.T) {
	r := testRegistry(t, testStore(t))
	ctx := context.Background()
	th, err := r.Create(ctx, "u1", model.ThreadInput{Name: "parser"})
	require.NoError(t, err)

	got, err := r.SetStatus(ctx, "u1", th.ID, model.ThreadDormant)
	require.NoError(t, err)
	assert.Equal(t, model.ThreadDormant, got.Status)
	assert.Equal(t, th.LastSeen, got.LastSeen)

	_, err = r.SetStatus(ctx, "u1", th.ID, "paused")
	assert.True(t, apperr.IsValidation(err))

	_, err = r.SetStatus(ctx, "u2", th.ID, model.ThreadActive)
	assert.True(t, apperr.IsNotFound(err))
}

func TestUpdateRename(t *testing.T) {
	r := testRegistry(t, testStore(t))
	ctx := context.Background()
	th, err := r.Create(ctx, "u1", model.ThreadInput{Name: "parser"})
	require.NoError(t, err)

	name := " lexer "
	got, err := r.Update(ctx, "u1", th.ID, model.ThreadPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "lexer", got.Name)
	assert.Equal(t, model.ThreadActive, got.Status)

	same, err := r.Update(ctx, "u1", th.ID, model.ThreadPatch{})
	require.NoError(t, err)
	assert.Equal(t, got.Version, same.Version)
}

func TestActiveThreads(t *testing.T) {
	db := testStore(t)
	r := testRegistry(t, db)
	ctx := context.Background()

	var last string
	for i := 0; i < 12; i++ {
		m := moment(t, db, "u1", model.StateAdvanced, now.Add(time.Duration(i)*time.Minute))
		th, err := r.Create(ctx, "u1", model.ThreadInput{Name: "t", MomentID: m.ID})
		require.NoError(t, err)
		last = th.ID
	}
	dormant, err := r.Create(ctx, "u1", model.ThreadInput{Name: "old"})
	require.NoError(t, err)
	_, err = r.SetStatus(ctx, "u1", dormant.ID, model.ThreadDormant)
	require.NoError(t, err)

	active, err := r.Active(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, active, ActiveLimit)
	assert.Equal(t, last, active[0].ID)
	for i := 1; i < len(active); i++ {
		assert.False(t, active[i].LastSeen.After(active[i-1].LastSeen))
		assert.Equal(t, model.ThreadActive, active[i].Status)
	}

	page, err := r.List(ctx, "u1", model.ThreadDormant, 0, 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, dormant.ID, page.Items[0].ID)
	assert.False(t, page.HasMore)

	page, err = r.List(ctx, "u1", "", 5, 10)
	require.NoError(t, err)
	assert.Equal(t, 13, page.Total)
	assert.Len(t, page.Items, 3)
	assert.False(t, page.HasMore)
}

func TestGetThreadDetail(t *testing.T) {
	db := testStore(t)
	r := testRegistry(t, db)
	ctx := context.Background()

	th, err := r.Create(ctx, "u1", model.ThreadInput{Name: "parser"})
	require.NoError(t, err)
	newer := moment(t, db, "u1", model.StateAdvanced, now.Add(-time.Hour))
	older := moment(t, db, "u1", model.StateStuck, now.Add(-2*time.Hour))
	require.NoError(t, r.Link(ctx, "u1", th.ID, newer.ID))
	require.NoError(t, r.Link(ctx, "u1", th.ID, older.ID))

	detail, err := r.Get(ctx, "u1", th.ID)
	require.NoError(t, err)
	assert.Equal(t, th.ID, detail.ID)
	assert.Equal(t, []string{older.ID, newer.ID}, ids(detail.Moments))

	empty, err := r.Create(ctx, "u1", model.ThreadInput{Name: "empty"})
	require.NoError(t, err)
	detail, err = r.Get(ctx, "u1", empty.ID)
	require.NoError(t, err)
	assert.NotNil(t, detail.Moments)
	assert.Empty(t, detail.Moments)

	_, err = r.Get(ctx, "u2", th.ID)
	assert.True(t, apperr.IsNotFound(err))
}

func TestDeleteThreadKeepsMoments(t *testing.T) {
	db := testStore(t)
	r := testRegistry(t, db)
	ctx := context.Background()

	m := moment(t, db, "u1", model.StateStuck, now)
	th, err := r.Create(ctx, "u1", model.ThreadInput{Name: "parser", MomentID: m.ID})
	require.NoError(t, err)

	assert.True(t, apperr.IsNotFound(r.Delete(ctx, "u2", th.ID)))
	require.NoError(t, r.Delete(ctx, "u1", th.ID))
	assert.True(t, apperr.IsNotFound(r.Delete(ctx, "u1", th.ID)))

	got, err := db.GetMoment(ctx, m.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestRefreshSkipsMissingThreads(t *testing.T) {
	r := testRegistry(t, testStore(t))
	assert.NoError(t, r.Refresh(context.Background(), "00000000-0000-0000-0000-000000000000"))
}
