package engine

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	"github.com/lazypower/forgeone/internal/apperr"
	"github.com/lazypower/forgeone/internal/model"
)

// Period selects the insights window.
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

const (
	// StaleAfter is how long a project title must go untouched to be stale.
	StaleAfter = 14 * 24 * time.Hour
	// MaxStaleProjects caps the stale list.
	MaxStaleProjects = 5
)

// ParsePeriod accepts "week" or "month"; empty means week.
func ParsePeriod(s string) (Period, error) {
	switch Period(strings.ToLower(strings.TrimSpace(s))) {
	case "", PeriodWeek:
		return PeriodWeek, nil
	case PeriodMonth:
		return PeriodMonth, nil
	}
	return "", apperr.Validation("Invalid input data", `period must be "week" or "month"`)
}

// Days is the number of calendar dates the period covers, today included.
func (p Period) Days() int {
	if p == PeriodMonth {
		return 30
	}
	return 7
}

// StaleProject is a title the owner has not worked on recently.
type StaleProject struct {
	Title        string    `json:"title"`
	LastWorkedOn time.Time `json:"lastWorkedOn"`
	DaysSince    int       `json:"daysSince"`
}

// TimeStats summarizes logged minutes over entries that recorded time.
type TimeStats struct {
	MeanMinutes   float64 `json:"meanMinutes"`
	MedianMinutes float64 `json:"medianMinutes"`
}

// Report is the insights summary for one owner and period.
type Report struct {
	Period               Period                 `json:"period"`
	WindowStart          time.Time              `json:"windowStart"`
	WindowEnd            time.Time              `json:"windowEnd"`
	TotalTimeLogged      int                    `json:"totalTimeLogged"`
	EntryCount           int                    `json:"entryCount"`
	MostFrequentCategory *model.Category        `json:"mostFrequentCategory"`
	CategoryBreakdown    map[model.Category]int `json:"categoryBreakdown"`
	OutcomeBreakdown     map[model.Outcome]int  `json:"outcomeBreakdown"`
	TimeStats            TimeStats              `json:"timeStats"`
	InactiveDays         []string               `json:"inactiveDays"`
	StaleProjects        []StaleProject         `json:"staleProjects"`
}

// Insights computes reports from an owner's entries.
type Insights struct {
	entries EntryReader
	loc     *time.Location
	now     func() time.Time
}

// NewInsights creates an Insights that evaluates calendar dates in loc.
func NewInsights(entries EntryReader, loc *time.Location) *Insights {
	if loc == nil {
		loc = time.UTC
	}
	return &Insights{entries: entries, loc: loc, now: time.Now}
}

// Window returns the period's entry bounds: the N days of 24 hours ending
// at now.
func Window(period Period, now time.Time) (time.Time, time.Time) {
	return now.Add(-time.Duration(period.Days()) * 24 * time.Hour), now
}

// firstDay is midnight of the oldest calendar date the period covers. The
// inactive-day walk spans exactly N dates ending today.
func firstDay(period Period, now time.Time, loc *time.Location) time.Time {
	return StartOfDay(now, loc).AddDate(0, 0, -(period.Days() - 1))
}

// Compute builds the owner's report. The window entries and the full
// history are read concurrently; either failing fails the whole report.
func (in *Insights) Compute(ctx context.Context, owner string, period Period) (*Report, error) {
	if owner == "" {
		return nil, apperr.Validation("Invalid input data", "owner is required")
	}
	now := in.now()
	start, end := Window(period, now)

	var window, all []model.WorkEntry
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		window, err = in.entries.GetEntriesByOwnerInRange(gctx, owner, start, end)
		return err
	})
	g.Go(func() error {
		var err error
		all, err = in.entries.GetAllEntriesByOwner(gctx, owner)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Internal(err, "failed to generate insights")
	}
	return BuildReport(period, now, in.loc, window, all), nil
}

// BuildReport derives a report from already-loaded entries. window is
// filtered to the period bounds so callers may pass a superset.
func BuildReport(period Period, now time.Time, loc *time.Location, window, all []model.WorkEntry) *Report {
	if loc == nil {
		loc = time.UTC
	}
	start, end := Window(period, now)
	rep := &Report{
		Period:            period,
		WindowStart:       start,
		WindowEnd:         end,
		CategoryBreakdown: make(map[model.Category]int, len(model.Categories)),
		OutcomeBreakdown:  make(map[model.Outcome]int, len(model.Outcomes)),
		InactiveDays:      []string{},
		StaleProjects:     []StaleProject{},
	}
	for _, c := range model.Categories {
		rep.CategoryBreakdown[c] = 0
	}
	for _, o := range model.Outcomes {
		rep.OutcomeBreakdown[o] = 0
	}

	active := make(map[string]bool)
	var minutes stats.Float64Data
	for _, e := range window {
		if e.CreatedAt.Before(start) || e.CreatedAt.After(end) {
			continue
		}
		rep.EntryCount++
		rep.TotalTimeLogged += e.Minutes()
		rep.CategoryBreakdown[e.Category]++
		rep.OutcomeBreakdown[e.Outcome]++
		active[DayKey(e.CreatedAt, loc)] = true
		if e.TimeSpent != nil {
			minutes = append(minutes, float64(*e.TimeSpent))
		}
	}

	rep.MostFrequentCategory = mostFrequent(rep.CategoryBreakdown)
	rep.TimeStats = timeStats(minutes)

	for d := firstDay(period, now, loc); !d.After(end); d = d.AddDate(0, 0, 1) {
		key := d.Format(DayLayout)
		if !active[key] {
			rep.InactiveDays = append(rep.InactiveDays, key)
		}
	}

	rep.StaleProjects = staleProjects(all, now)
	return rep
}

// mostFrequent returns the highest-count category, preferring earlier
// entries of model.Categories on ties. Nil when every count is zero.
func mostFrequent(counts map[model.Category]int) *model.Category {
	var best *model.Category
	bestCount := 0
	for _, c := range model.Categories {
		if counts[c] > bestCount {
			best, bestCount = &c, counts[c]
		}
	}
	return best
}

func timeStats(minutes stats.Float64Data) TimeStats {
	if minutes.Len() == 0 {
		return TimeStats{}
	}
	mean, _ := minutes.Mean()
	median, _ := minutes.Median()
	return TimeStats{MeanMinutes: roundScore(mean), MedianMinutes: roundScore(median)}
}

// staleProjects lists titles whose latest entry is older than StaleAfter and
// that have no entry within StaleAfter, most recently worked first.
func staleProjects(all []model.WorkEntry, now time.Time) []StaleProject {
	cutoff := now.Add(-StaleAfter)

	recent := make(map[string]bool)
	for _, e := range all {
		if !e.CreatedAt.Before(cutoff) {
			recent[model.NormalizeTitle(e.Title)] = true
		}
	}

	sorted := make([]model.WorkEntry, len(all))
	copy(sorted, all)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	out := []StaleProject{}
	seen := make(map[string]bool)
	for _, e := range sorted {
		key := model.NormalizeTitle(e.Title)
		if seen[key] {
			continue
		}
		seen[key] = true
		if recent[key] || !e.CreatedAt.Before(cutoff) {
			continue
		}
		out = append(out, StaleProject{
			Title:        e.Title,
			LastWorkedOn: e.CreatedAt,
			DaysSince:    int(now.Sub(e.CreatedAt) / (24 * time.Hour)),
		})
		if len(out) == MaxStaleProjects {
			break
		}
	}
	return out
}
