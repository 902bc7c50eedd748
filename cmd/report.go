package cmd

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/vitalstack/vitals-engine/internal/archive"
	"github.com/vitalstack/vitals-engine/internal/models"
	"github.com/vitalstack/vitals-engine/internal/utils"
)

var (
	reportDB       string
	reportPage     string
	reportMetric   string
	reportSince    string
	reportLimit    int
	reportIssues   bool
	reportPatterns bool
)

var (
	goodColor = color.New(color.FgGreen)
	niColor   = color.New(color.FgYellow, color.Bold)
	poorColor = color.New(color.FgRed, color.Bold)
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize archived sessions, issues and patterns",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runReport(cmd)
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportDB, "db", "vitals.db", "path to the session archive")
	reportCmd.Flags().StringVar(&reportPage, "page", "", "filter sessions by page")
	reportCmd.Flags().StringVar(&reportMetric, "metric", "", "filter sessions by metric (cls or inp)")
	reportCmd.Flags().StringVar(&reportSince, "since", "", "only include sessions recorded after this RFC3339 time")
	reportCmd.Flags().IntVar(&reportLimit, "limit", 20, "maximum sessions to list (0 for all)")
	reportCmd.Flags().BoolVar(&reportIssues, "issues", false, "also list archived issues")
	reportCmd.Flags().BoolVar(&reportPatterns, "patterns", false, "also list mined issue patterns")
}

func runReport(cmd *cobra.Command) error {
	since, err := parseSince(reportSince)
	if err != nil {
		return err
	}

	store, err := archive.Open(reportDB, nil)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	sessions, err := store.ListSessions(ctx, reportPage, models.Metric(reportMetric), since, reportLimit)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("No archived sessions match the requested filters.")
		return nil
	}

	printSessionTable(sessions)

	if reportIssues {
		issues, err := store.ListIssues(ctx, since)
		if err != nil {
			return err
		}
		printIssueTable(issues)
	}

	if reportPatterns {
		patterns, err := store.ListPatterns(ctx)
		if err != nil {
			return err
		}
		printPatternTable(patterns)
	}
	return nil
}

func printSessionTable(sessions []archive.SessionRecord) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header([]string{"ID", "Page", "Metric", "Value", "Rating", "Entries", "Dropped", "Recorded"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, s := range sessions {
		data = append(data, []string{
			strconv.FormatInt(s.ID, 10),
			s.Page,
			string(s.Metric),
			formatMetricValue(s.Metric, s.Value),
			ratingLabel(s.Rating),
			strconv.Itoa(s.EntryCount),
			strconv.Itoa(s.Dropped),
			s.RecordedAt.Format(time.RFC3339),
		})
	}
	if err := table.Bulk(data); err != nil {
		fmt.Fprintln(os.Stderr, "table render failed:", err)
		return
	}
	_ = table.Render()
}

func printIssueTable(issues []archive.IssueRecord) {
	if len(issues) == 0 {
		fmt.Println("\nNo archived issues in range.")
		return
	}
	fmt.Println()
	table := tablewriter.NewWriter(os.Stdout)
	table.Header([]string{"Session", "Page", "Type", "Element", "Contribution", "Suggestion"})

	var data [][]string
	for _, rec := range issues {
		data = append(data, []string{
			strconv.FormatInt(rec.SessionID, 10),
			rec.Page,
			string(rec.Issue.Type),
			rec.Issue.ElementDescriptor,
			fmt.Sprintf("%.4f", rec.Issue.Contribution),
			rec.Issue.Suggestion,
		})
	}
	if err := table.Bulk(data); err != nil {
		fmt.Fprintln(os.Stderr, "table render failed:", err)
		return
	}
	_ = table.Render()
}

func printPatternTable(patterns []models.IssuePattern) {
	if len(patterns) == 0 {
		fmt.Println("\nNo mined patterns yet. Run `vitals-engine mine` first.")
		return
	}
	fmt.Println()
	table := tablewriter.NewWriter(os.Stdout)
	table.Header([]string{"Type", "Element", "Sessions", "Prevalence", "Avg Contribution", "Last Seen"})

	var data [][]string
	for _, p := range patterns {
		data = append(data, []string{
			string(p.Type),
			p.ElementDescriptor,
			strconv.Itoa(p.Sessions),
			fmt.Sprintf("%.1f%%", p.Prevalence*100),
			fmt.Sprintf("%.4f", p.AverageContribution),
			p.LastSeen.Format(time.RFC3339),
		})
	}
	if err := table.Bulk(data); err != nil {
		fmt.Fprintln(os.Stderr, "table render failed:", err)
		return
	}
	_ = table.Render()
}

func formatMetricValue(metric models.Metric, value *float64) string {
	if value == nil {
		return "-"
	}
	if metric == models.MetricINP {
		return utils.FormatMillis(*value)
	}
	return fmt.Sprintf("%.4f", *value)
}

func ratingLabel(r models.Rating) string {
	switch r {
	case models.RatingGood:
		return goodColor.Sprint("good")
	case models.RatingNeedsImprovement:
		return niColor.Sprint("needs-improvement")
	case models.RatingPoor:
		return poorColor.Sprint("poor")
	default:
		return "-"
	}
}

func parseSince(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := utils.ParseRFC3339(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --since value: %w", err)
	}
	return t, nil
}
