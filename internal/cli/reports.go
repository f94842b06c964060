package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/lazypower/forgeone/internal/engine"
	"github.com/lazypower/forgeone/internal/logging"
	"github.com/lazypower/forgeone/internal/model"
)

// The report commands read the local database directly; --owner selects
// whose records to show.

var (
	reportOwner   string
	reportJSON    bool
	insightPeriod string
	threadStatus  string
	threadLimit   int
	timelineDays  int
	timelineEntry bool
)

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Summarize logged time, categories, gaps and stale projects",
	RunE:  runInsights,
}

var threadsCmd = &cobra.Command{
	Use:   "threads",
	Short: "List threads, most recently seen first",
	RunE:  runThreads,
}

var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Show recent moments (or entries) grouped by day",
	RunE:  runTimeline,
}

func init() {
	for _, c := range []*cobra.Command{insightsCmd, threadsCmd, timelineCmd} {
		c.Flags().StringVar(&reportOwner, "owner", "", "Owner id whose records to read")
		c.Flags().BoolVar(&reportJSON, "json", false, "Print JSON instead of text")
		_ = c.MarkFlagRequired("owner")
	}
	insightsCmd.Flags().StringVarP(&insightPeriod, "period", "p", "week", "Period: week or month")
	threadsCmd.Flags().StringVarP(&threadStatus, "status", "s", "", "Filter by status: active or dormant")
	threadsCmd.Flags().IntVarP(&threadLimit, "limit", "n", engine.DefaultPageSize, "Maximum number of threads")
	timelineCmd.Flags().IntVarP(&timelineDays, "days", "d", engine.DefaultTimelineDays, "Days to look back")
	timelineCmd.Flags().BoolVar(&timelineEntry, "entries", false, "Show entries instead of moments")
}

// withEngine opens the configured database and runs fn against an engine.
func withEngine(fn func(ctx context.Context, eng *engine.Engine) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	eng, err := newEngine(db, cfg, logging.Nop())
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return fn(ctx, eng)
}

func runInsights(cmd *cobra.Command, args []string) error {
	period, err := engine.ParsePeriod(insightPeriod)
	if err != nil {
		return err
	}
	return withEngine(func(ctx context.Context, eng *engine.Engine) error {
		rep, err := eng.Insights.Compute(ctx, reportOwner, period)
		if err != nil {
			return err
		}
		if reportJSON {
			return printJSON(cmd.OutOrStdout(), rep)
		}
		printInsights(cmd.OutOrStdout(), rep, time.Now())
		return nil
	})
}

func runThreads(cmd *cobra.Command, args []string) error {
	return withEngine(func(ctx context.Context, eng *engine.Engine) error {
		page, err := eng.Threads.List(ctx, reportOwner, model.ThreadStatus(threadStatus), threadLimit, 0)
		if err != nil {
			return err
		}
		if reportJSON {
			return printJSON(cmd.OutOrStdout(), page.Items)
		}
		printThreads(cmd.OutOrStdout(), page, time.Now())
		return nil
	})
}

func runTimeline(cmd *cobra.Command, args []string) error {
	return withEngine(func(ctx context.Context, eng *engine.Engine) error {
		out := cmd.OutOrStdout()
		loc := eng.Journal.Location()
		if timelineEntry {
			tl, err := eng.Journal.EntryTimeline(ctx, reportOwner, timelineDays)
			if err != nil {
				return err
			}
			if reportJSON {
				return printJSON(out, tl)
			}
			printTimeline(out, tl, loc, func(e model.WorkEntry) string {
				line := fmt.Sprintf("%s [%s, %s]", e.Title, e.Category, e.Outcome)
				if e.TimeSpent != nil {
					line += fmt.Sprintf(" %s min", humanize.Comma(int64(*e.TimeSpent)))
				}
				return line
			})
			return nil
		}

		tl, err := eng.Journal.MomentTimeline(ctx, reportOwner, timelineDays)
		if err != nil {
			return err
		}
		if reportJSON {
			return printJSON(out, tl)
		}
		printTimeline(out, tl, loc, func(m model.WorkMoment) string {
			return fmt.Sprintf("%s [%s, %s energy]", m.EffortText, m.StateAfter, m.EnergyCost)
		})
		return nil
	})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printInsights(w io.Writer, rep *engine.Report, now time.Time) {
	fmt.Fprintf(w, "## Insights (%s, %s to %s)\n\n", rep.Period,
		rep.WindowStart.Format(engine.DayLayout), rep.WindowEnd.Format(engine.DayLayout))

	fmt.Fprintf(w, "Entries:     %s\n", humanize.Comma(int64(rep.EntryCount)))
	fmt.Fprintf(w, "Time logged: %s min\n", humanize.Comma(int64(rep.TotalTimeLogged)))
	if rep.TimeStats.MeanMinutes > 0 {
		fmt.Fprintf(w, "Per entry:   mean %.0f min, median %.0f min\n", rep.TimeStats.MeanMinutes, rep.TimeStats.MedianMinutes)
	}
	if rep.MostFrequentCategory != nil {
		fmt.Fprintf(w, "Top focus:   %s\n", *rep.MostFrequentCategory)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Categories:")
	for _, c := range model.Categories {
		fmt.Fprintf(w, "  %-9s %d\n", c, rep.CategoryBreakdown[c])
	}
	fmt.Fprintln(w, "Outcomes:")
	for _, o := range model.Outcomes {
		fmt.Fprintf(w, "  %-9s %d\n", o, rep.OutcomeBreakdown[o])
	}
	fmt.Fprintln(w)

	if len(rep.InactiveDays) > 0 {
		fmt.Fprintf(w, "Inactive days (%d): %s\n", len(rep.InactiveDays), strings.Join(rep.InactiveDays, ", "))
	} else {
		fmt.Fprintln(w, "No inactive days.")
	}

	if len(rep.StaleProjects) == 0 {
		return
	}
	fmt.Fprintln(w, "\nStale projects:")
	for _, p := range rep.StaleProjects {
		fmt.Fprintf(w, "  - %s (last worked %s)\n", p.Title, humanize.RelTime(p.LastWorkedOn, now, "ago", "from now"))
	}
}

func printThreads(w io.Writer, page engine.Page[model.Thread], now time.Time) {
	if len(page.Items) == 0 {
		fmt.Fprintln(w, "No threads found.")
		return
	}
	for _, t := range page.Items {
		fmt.Fprintf(w, "%-8s %3.0f%% friction  %s  (seen %s)\n",
			t.Status, t.FrictionScore*100, t.Name, humanize.RelTime(t.LastSeen, now, "ago", "from now"))
	}
	if page.HasMore {
		fmt.Fprintf(w, "... %d of %d shown\n", len(page.Items), page.Total)
	}
}

func printTimeline[T engine.Timestamped](w io.Writer, tl engine.Timeline[T], loc *time.Location, line func(T) string) {
	if tl.Len() == 0 {
		fmt.Fprintln(w, "Nothing recorded in this range.")
		return
	}
	for _, day := range tl.Days() {
		fmt.Fprintf(w, "## %s\n", day)
		for _, r := range tl[day] {
			fmt.Fprintf(w, "  %s  %s\n", r.CreatedTime().In(loc).Format("15:04"), line(r))
		}
		fmt.Fprintln(w)
	}
}
