package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/forgeone/internal/model"
)

func addThread(t *testing.T, db *DB, owner, name string, lastSeen time.Time) model.Thread {
	t.Helper()
	th := model.Thread{
		OwnerID:   owner,
		Name:      name,
		FirstSeen: lastSeen,
		LastSeen:  lastSeen,
		Status:    model.ThreadActive,
	}
	require.NoError(t, db.InsertThread(context.Background(), &th))
	return th
}

func TestInsertAndGetThread(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	th := addThread(t, db, "u1", "auth flow", base)
	assert.EqualValues(t, 1, th.Version)

	got, err := db.GetThread(ctx, th.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "auth flow", got.Name)
	assert.Equal(t, model.ThreadActive, got.Status)
	assert.Equal(t, 0.0, got.FrictionScore)
	assert.Equal(t, base, got.LastSeen)

	missing, err := db.GetThread(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestListThreadsOrderAndFilter(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	older := addThread(t, db, "u1", "older", base)
	newer := addThread(t, db, "u1", "newer", base.Add(time.Hour))
	addThread(t, db, "u2", "someone else", base)

	dormant := model.ThreadDormant
	_, err := db.UpdateThread(ctx, older.ID, older.Version, model.ThreadFields{Status: &dormant})
	require.NoError(t, err)

	all, total, err := db.ListThreads(ctx, "u1", ThreadFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, all, 2)
	assert.Equal(t, newer.ID, all[0].ID)

	active, total, err := db.ListThreads(ctx, "u1", ThreadFilter{Status: model.ThreadActive})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, active, 1)
	assert.Equal(t, newer.ID, active[0].ID)
}

func TestUpdateThreadCompareAndSet(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	th := addThread(t, db, "u1", "auth flow", base)
	score := 0.25
	seen := base.Add(3 * time.Hour)

	updated, err := db.UpdateThread(ctx, th.ID, th.Version, model.ThreadFields{FrictionScore: &score, LastSeen: &seen})
	require.NoError(t, err)
	assert.EqualValues(t, 2, updated.Version)
	assert.Equal(t, 0.25, updated.FrictionScore)
	assert.Equal(t, seen, updated.LastSeen)
	assert.Equal(t, base, updated.FirstSeen)

	stale := 0.9
	_, err = db.UpdateThread(ctx, th.ID, th.Version, model.ThreadFields{FrictionScore: &stale})
	assert.ErrorIs(t, err, ErrVersionConflict)

	got, err := db.GetThread(ctx, th.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.25, got.FrictionScore, "stale write must not land")

	_, err = db.UpdateThread(ctx, "nope", 1, model.ThreadFields{FrictionScore: &score})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertLinkIdempotent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	th := addThread(t, db, "u1", "auth flow", base)
	m := addMoment(t, db, "u1", model.StateStuck, base)

	created, err := db.UpsertLink(ctx, th.ID, m.ID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = db.UpsertLink(ctx, th.ID, m.ID)
	require.NoError(t, err)
	assert.False(t, created)

	ids, err := db.GetLinksByThread(ctx, th.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{m.ID}, ids)

	threads, err := db.GetThreadsByMoment(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{th.ID}, threads)
}

func TestDeleteLink(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	th := addThread(t, db, "u1", "auth flow", base)
	m := addMoment(t, db, "u1", model.StateStuck, base)
	_, err := db.UpsertLink(ctx, th.ID, m.ID)
	require.NoError(t, err)

	require.NoError(t, db.DeleteLink(ctx, th.ID, m.ID))
	ids, err := db.GetLinksByThread(ctx, th.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.ErrorIs(t, db.DeleteLink(ctx, th.ID, m.ID), ErrNotFound)

	got, err := db.GetMoment(ctx, m.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestLinksCascade(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	th := addThread(t, db, "u1", "auth flow", base)
	m1 := addMoment(t, db, "u1", model.StateStuck, base)
	m2 := addMoment(t, db, "u1", model.StateAdvanced, base.Add(time.Minute))
	_, err := db.UpsertLink(ctx, th.ID, m1.ID)
	require.NoError(t, err)
	_, err = db.UpsertLink(ctx, th.ID, m2.ID)
	require.NoError(t, err)

	require.NoError(t, db.DeleteMoment(ctx, m1.ID))
	ids, err := db.GetLinksByThread(ctx, th.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{m2.ID}, ids)

	require.NoError(t, db.DeleteThread(ctx, th.ID))
	ids, err = db.GetLinksByThread(ctx, th.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.ErrorIs(t, db.DeleteThread(ctx, th.ID), ErrNotFound)
}

func TestUpsertLinkRequiresRows(t *testing.T) {
	db := testDB(t)

	_, err := db.UpsertLink(context.Background(), "no-thread", "no-moment")
	assert.Error(t, err, "foreign keys reject dangling links")
}

func threadScore(s float64) model.ThreadFields {
	return model.ThreadFields{FrictionScore: &s}
}
