package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/forgeone/internal/model"
)

func addEntry(t *testing.T, db *DB, owner, title string, cat model.Category, minutes int, at time.Time) model.WorkEntry {
	t.Helper()
	e := model.WorkEntry{
		OwnerID:     owner,
		Title:       title,
		Description: "worked on " + title,
		Category:    cat,
		Outcome:     model.OutcomeDone,
		CreatedAt:   at,
	}
	if minutes > 0 {
		e.TimeSpent = &minutes
	}
	require.NoError(t, db.InsertEntry(context.Background(), &e))
	return e
}

func TestInsertAndGetEntry(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	e := addEntry(t, db, "u1", "API work", model.CategoryProject, 90, base)
	got, err := db.GetEntry(ctx, e.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "API work", got.Title)
	assert.Equal(t, 90, got.Minutes())
	assert.Equal(t, base, got.CreatedAt)
	assert.Equal(t, base, got.UpdatedAt)

	noTime := addEntry(t, db, "u1", "reading", model.CategoryStudy, 0, base)
	got, err = db.GetEntry(ctx, noTime.ID)
	require.NoError(t, err)
	assert.Nil(t, got.TimeSpent)

	missing, err := db.GetEntry(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestEntriesInRangeAndAll(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	addEntry(t, db, "u1", "old", model.CategoryClient, 10, base.AddDate(0, 0, -20))
	addEntry(t, db, "u1", "edge", model.CategoryProject, 10, base.AddDate(0, 0, -7))
	addEntry(t, db, "u1", "new", model.CategoryStudy, 10, base)
	addEntry(t, db, "u2", "other", model.CategoryStudy, 10, base)

	inRange, err := db.GetEntriesByOwnerInRange(ctx, "u1", base.AddDate(0, 0, -7), base)
	require.NoError(t, err)
	require.Len(t, inRange, 2, "both bounds inclusive")
	assert.Equal(t, "new", inRange[0].Title)

	all, err := db.GetAllEntriesByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "old", all[2].Title)
}

func TestListEntries(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	addEntry(t, db, "u1", "a", model.CategoryProject, 10, base)
	addEntry(t, db, "u1", "b", model.CategoryStudy, 10, base.Add(time.Hour))
	addEntry(t, db, "u1", "c", model.CategoryProject, 10, base.Add(2*time.Hour))

	got, total, err := db.ListEntries(ctx, "u1", EntryFilter{Category: model.CategoryProject})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].Title)

	page, total, err := db.ListEntries(ctx, "u1", EntryFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, page, 2)
}

func TestSearchEntries(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	addEntry(t, db, "u1", "Postgres Migration", model.CategoryClient, 10, base)
	e := addEntry(t, db, "u1", "docs", model.CategoryStudy, 10, base.Add(time.Hour))
	e.Blockers = "waiting on 100% review"
	require.NoError(t, db.UpdateEntry(ctx, &e))
	addEntry(t, db, "u2", "postgres tuning", model.CategoryClient, 10, base)

	got, err := db.SearchEntries(ctx, "u1", "postgres", "", 20)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Postgres Migration", got[0].Title)

	got, err = db.SearchEntries(ctx, "u1", "100%", "", 20)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "docs", got[0].Title)

	got, err = db.SearchEntries(ctx, "u1", "postgres", model.CategoryStudy, 20)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUpdateEntryBumpsUpdatedAt(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	e := addEntry(t, db, "u1", "API work", model.CategoryProject, 30, base)
	e.Outcome = model.OutcomePartial
	require.NoError(t, db.UpdateEntry(ctx, &e))

	got, err := db.GetEntry(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomePartial, got.Outcome)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))

	require.NoError(t, db.DeleteEntry(ctx, e.ID))
	assert.ErrorIs(t, db.DeleteEntry(ctx, e.ID), ErrNotFound)
}
