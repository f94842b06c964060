package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/forgeone/internal/engine"
	"github.com/lazypower/forgeone/internal/model"
	"github.com/lazypower/forgeone/internal/store"
)

var now = time.Date(2024, 3, 13, 15, 0, 0, 0, time.UTC)

func TestPrintInsights(t *testing.T) {
	mins := 90
	e := model.WorkEntry{Title: "Compiler", Category: model.CategoryProject, TimeSpent: &mins, Outcome: model.OutcomeDone, CreatedAt: now.Add(-time.Hour)}
	old := model.WorkEntry{Title: "Garden", Category: model.CategoryPersonal, Outcome: model.OutcomeDone, CreatedAt: now.AddDate(0, 0, -21)}
	rep := engine.BuildReport(engine.PeriodWeek, now, time.UTC, []model.WorkEntry{e}, []model.WorkEntry{e, old})

	var buf bytes.Buffer
	printInsights(&buf, rep, now)
	out := buf.String()

	assert.Contains(t, out, "week, 2024-03-06 to 2024-03-13")
	assert.Contains(t, out, "Time logged: 90 min")
	assert.Contains(t, out, "Top focus:   project")
	assert.Contains(t, out, "Inactive days (6)")
	assert.Contains(t, out, "Garden (last worked 3 weeks ago)")
}

func TestPrintThreads(t *testing.T) {
	var buf bytes.Buffer
	printThreads(&buf, engine.Page[model.Thread]{}, now)
	assert.Equal(t, "No threads found.\n", buf.String())

	buf.Reset()
	page := engine.Page[model.Thread]{
		Items:   []model.Thread{{Name: "parser", Status: model.ThreadActive, FrictionScore: 0.25, LastSeen: now.Add(-2 * time.Hour)}},
		Total:   3,
		HasMore: true,
	}
	printThreads(&buf, page, now)
	assert.Contains(t, buf.String(), " 25% friction  parser  (seen 2 hours ago)")
	assert.Contains(t, buf.String(), "1 of 3 shown")
}

func TestPrintTimeline(t *testing.T) {
	moments := []model.WorkMoment{
		{EffortText: "late fix", StateAfter: model.StateResolved, EnergyCost: model.EnergyLow, CreatedAt: now},
		{EffortText: "morning", StateAfter: model.StateStuck, EnergyCost: model.EnergyHeavy, CreatedAt: now.AddDate(0, 0, -1)},
	}
	tl := engine.GroupByDay(moments, time.UTC)

	var buf bytes.Buffer
	printTimeline(&buf, tl, time.UTC, func(m model.WorkMoment) string { return m.EffortText })
	assert.Equal(t, "## 2024-03-13\n  15:00  late fix\n\n## 2024-03-12\n  15:00  morning\n\n", buf.String())

	buf.Reset()
	printTimeline(&buf, engine.GroupByDay[model.WorkMoment](nil, time.UTC), time.UTC, func(m model.WorkMoment) string { return "" })
	assert.Equal(t, "Nothing recorded in this range.\n", buf.String())
}

func TestThreadsCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "forgeone.db")
	db, err := store.Open(dbPath)
	require.NoError(t, err)
	th := model.Thread{OwnerID: "u1", Name: "release prep", Status: model.ThreadActive, FirstSeen: time.Now(), LastSeen: time.Now()}
	require.NoError(t, db.InsertThread(context.Background(), &th))
	require.NoError(t, db.Close())

	t.Setenv("FORGEONE_JWT_SECRET", "")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"threads", "--db", dbPath, "--env-file", writeEmptyEnv(t), "--owner", "u1"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		dbFlag, envFiles, reportOwner = "", nil, ""
	})

	require.NoError(t, Execute())
	assert.Contains(t, out.String(), "release prep")
}

func writeEmptyEnv(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "empty.env")
	require.NoError(t, writeFile(path, ""))
	return path
}

func writeFile(path, body string) error {
	return os.WriteFile(path, []byte(body), 0o600)
}
