package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"taskquest/adapters/excel"
	"taskquest/domain/core"
	"taskquest/domain/metrics"
	"taskquest/domain/rules"
	"taskquest/internal/analysis/classify"
	"taskquest/internal/analysis/heuristics"
	"taskquest/internal/analysis/recommend"
	"taskquest/internal/analysis/trend"
	"taskquest/internal/config"
	"taskquest/internal/container"
	"taskquest/models"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var rulesPath string
	var noColor bool

	rootCmd := &cobra.Command{
		Use:           "taskquest",
		Short:         "TaskQuest CLI for scoring, trends and report exports",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setColor(!noColor)
		},
	}
	rootCmd.PersistentFlags().StringVar(&rulesPath, "rules", "", "YAML rules file overriding the built-in tables")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	loadRules := func() (*rules.RuleSet, error) {
		return config.LoadRules(rulesPath)
	}

	rootCmd.AddCommand(
		newClassifyCmd(loadRules),
		newTrendCmd(),
		newBurnoutCmd(loadRules),
		newExportCmd(),
	)
	return rootCmd
}

type rulesLoader func() (*rules.RuleSet, error)

func newClassifyCmd(loadRules rulesLoader) *cobra.Command {
	var table string

	cmd := &cobra.Command{
		Use:   "classify [score]",
		Short: "Map a score to its category",
		Long: `Classify a score against one of the threshold tables.

Tables: wellness, burnout, productivity, goal_achievement, networking

Example: taskquest classify 7.5 --table wellness`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			score, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid score %q: %w", args[0], err)
			}
			set, err := loadRules()
			if err != nil {
				return err
			}
			return runClassify(cmd.OutOrStdout(), set, table, score)
		},
	}

	cmd.Flags().StringVar(&table, "table", rules.TableWellness, "Threshold table to classify against")
	return cmd
}

func runClassify(out io.Writer, set *rules.RuleSet, table string, score float64) error {
	c, err := classify.ClassifyNamed(score, set, table)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %.2f -> %s\n", table, c.Raw, paint(c.ColorHint, c.Category))
	return nil
}

func newTrendCmd() *cobra.Command {
	var column string
	var horizon int
	var height int

	cmd := &cobra.Command{
		Use:   "trend [file]",
		Short: "Plot a numeric column and project it forward",
		Long: `Plot one numeric column of a CSV or XLSX file (for example a daily report
written by the export command) and fit a linear projection.

Example: taskquest trend daily.csv --column xp_earned --horizon 7`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := excel.NewDataReader(args[0]).ReadData()
			if err != nil {
				return err
			}
			return runTrend(cmd.OutOrStdout(), table, column, horizon, height)
		},
	}

	cmd.Flags().StringVar(&column, "column", "xp_earned", "Column to plot")
	cmd.Flags().IntVar(&horizon, "horizon", 7, "Steps to project past the last value")
	cmd.Flags().IntVar(&height, "height", 10, "Chart height in rows")
	return cmd
}

func runTrend(out io.Writer, table *excel.Table, column string, horizon, height int) error {
	values, skipped, err := table.Floats(column)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return fmt.Errorf("column %q has no numeric values", column)
	}
	if skipped > 0 {
		fmt.Fprintf(out, "skipped %d non-numeric cells\n", skipped)
	}

	fmt.Fprintln(out, chart(values, height, column))

	t := trend.DetectSeries(values)
	fmt.Fprintf(out, "last step: %s\n", paintTrend(t))

	p, err := trend.Forecast(values, horizon)
	if err != nil {
		fmt.Fprintln(out, "not enough points to project")
		return nil
	}
	fmt.Fprintf(out, "projection: %.2f in %d steps (slope %.3f, r² %.2f)\n", p.Projected, p.Horizon, p.Slope, p.RSquared)
	return nil
}

func newBurnoutCmd(loadRules rulesLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "burnout [file]",
		Short: "Score burnout risk from wellness check-ins",
		Long: `Average the check-ins in a CSV or XLSX file and score burnout risk.

Columns: stress, energy, work_life_balance, satisfaction, sleep, social and
optionally workload, each on a 0-10 scale.

Example: taskquest burnout checkins.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := excel.NewDataReader(args[0]).ReadData()
			if err != nil {
				return err
			}
			entries, err := wellnessEntries(table)
			if err != nil {
				return err
			}
			set, err := loadRules()
			if err != nil {
				return err
			}
			return runBurnout(cmd.OutOrStdout(), set, entries)
		},
	}
	return cmd
}

func runBurnout(out io.Writer, set *rules.RuleSet, entries []models.WellnessEntry) error {
	avg, ok := heuristics.AverageEntry(entries)
	if !ok {
		return fmt.Errorf("no check-ins to score")
	}
	score := heuristics.BurnoutScore(avg, set.Burnout)
	c, err := classify.ClassifyNamed(score, set, rules.TableBurnout)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "burnout score %.2f over %d check-ins -> risk %s\n", score, len(entries), paint(c.ColorHint, c.Category))

	state := recommend.State{
		Stress:          avg.Stress,
		Energy:          avg.Energy,
		Workload:        avg.Workload,
		Sleep:           avg.Sleep,
		Social:          avg.Social,
		WorkLifeBalance: avg.WorkLifeBalance,
		Satisfaction:    avg.Satisfaction,
	}.WithScore(c)
	recs, err := recommend.NewGenerator().Generate(set, rules.DomainBurnout, state)
	if err != nil {
		return err
	}
	for _, r := range recs {
		fmt.Fprintf(out, "  [%s] %s\n", paintPriority(r.Priority), r.Text)
	}
	return nil
}

// wellnessEntries reads one check-in per row; blank cells count as 0
func wellnessEntries(t *excel.Table) ([]models.WellnessEntry, error) {
	entries := make([]models.WellnessEntry, 0, len(t.Rows))
	for i, row := range t.Rows {
		var e models.WellnessEntry
		fields := map[string]*float64{
			"stress":            &e.Stress,
			"energy":            &e.Energy,
			"work_life_balance": &e.WorkLifeBalance,
			"satisfaction":      &e.Satisfaction,
			"sleep":             &e.Sleep,
			"social":            &e.Social,
			"workload":          &e.Workload,
		}
		for column, dst := range fields {
			raw := strings.TrimSpace(row[column])
			if raw == "" {
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid %s %q", i+2, column, raw)
			}
			*dst = v
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func newExportCmd() *cobra.Command {
	var user string
	var days int
	var granularity string
	var format string
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a user's completed-task report from the configured backend",
		Long: `Export completed tasks and XP per window for the last N days.

The backend is configured through the same environment variables as the server
(BACKEND, DATABASE_URL, SQLITE_PATH, SUPABASE_URL, ...).

Example: taskquest export --user 42 --days 30 --granularity weekly --format xlsx -o report.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" {
				return fmt.Errorf("--user is required")
			}
			g := metrics.Granularity(granularity)
			if !g.Valid() {
				return fmt.Errorf("granularity must be daily, weekly or monthly")
			}
			var out io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			return runExport(cmd.Context(), out, core.UserID(user), days, g, format)
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "User ID to export")
	cmd.Flags().IntVar(&days, "days", 14, "Number of whole days ending today")
	cmd.Flags().StringVar(&granularity, "granularity", string(metrics.Daily), "daily|weekly|monthly")
	cmd.Flags().StringVar(&format, "format", "csv", "csv|xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}

func runExport(ctx context.Context, out io.Writer, user core.UserID, days int, g metrics.Granularity, format string) error {
	if format != "csv" && format != "xlsx" {
		return fmt.Errorf("format must be csv or xlsx")
	}
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	c, err := container.New(cfg)
	if err != nil {
		return err
	}
	if err := c.Init(ctx); err != nil {
		return err
	}
	defer c.Shutdown(context.Background())

	r := core.LastNDays(time.Now(), days)
	windows, err := c.Analytics.Windows(ctx, user, r, g)
	if err != nil {
		return err
	}
	table := excel.DailyTable(windows, time.Local)
	if format == "xlsx" {
		return excel.WriteXLSX(out, table, excel.DailySheet)
	}
	return excel.WriteCSV(out, table)
}
