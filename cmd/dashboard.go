package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/mathmatrix/internal/analysis"
	"github.com/KaramelBytes/mathmatrix/internal/metrics"
	"github.com/KaramelBytes/mathmatrix/internal/parser"
	"github.com/KaramelBytes/mathmatrix/internal/utils"
)

var (
	dashMetrics  string
	dashFeedback string
	dashRecent   int
	dashJSON     bool
	dashOutput   string
	dashExport   string
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Summarize solver performance and user feedback from CSV exports",
	Example: `  mathmatrix dashboard
  mathmatrix dashboard --metrics data/performance_metrics.csv --feedback data/feedback.csv
  mathmatrix dashboard --metrics https://example.org/metrics.csv --json --output dash.json
  mathmatrix dashboard --metrics exports/metrics.xlsx --export data/`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		metricsLoc, feedbackLoc := c.MetricsCSV, c.FeedbackCSV
		if dashMetrics != "" {
			metricsLoc = dashMetrics
		}
		if dashFeedback != "" {
			feedbackLoc = dashFeedback
		}
		n := c.RecentFeedback
		if dashRecent > 0 {
			n = dashRecent
		}

		perf, feedback := newLoader(c).LoadPair(cmd.Context(), metricsLoc, feedbackLoc)
		metrics.DashboardRecords.WithLabelValues("metrics").Set(float64(perf.Len()))
		metrics.DashboardRecords.WithLabelValues("feedback").Set(float64(feedback.Len()))
		d := analysis.BuildDashboard(perf, feedback, analysis.BuildOptions{RecentFeedback: n})

		if dashExport != "" {
			for name, t := range map[string]parser.Table{
				"performance_metrics.csv": perf,
				"feedback.csv":            feedback,
			} {
				if t.Empty() {
					continue
				}
				dst := filepath.Join(dashExport, name)
				if err := utils.SafeWriteFile(dst, []byte(parser.Format(t))); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "✓ Exported %d rows to %s\n", t.Len(), dst)
			}
		}

		var data []byte
		if dashJSON {
			data, err = utils.PrettyJSON(d)
			if err != nil {
				return err
			}
			data = append(data, '\n')
		} else {
			data = []byte(d.Markdown())
		}
		if dashOutput != "" {
			if err := utils.SafeWriteFile(dashOutput, data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "✓ Dashboard written to %s\n", dashOutput)
			return nil
		}
		if perf.Empty() && feedback.Empty() {
			fmt.Fprintln(cmd.ErrOrStderr(), "⚠ Warning: no dashboard data could be loaded")
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
	dashboardCmd.Flags().StringVar(&dashMetrics, "metrics", "", "performance metrics CSV path or URL (overrides config)")
	dashboardCmd.Flags().StringVar(&dashFeedback, "feedback", "", "feedback CSV path or URL (overrides config)")
	dashboardCmd.Flags().IntVar(&dashRecent, "recent", 0, "number of recent feedback entries to show")
	dashboardCmd.Flags().BoolVar(&dashJSON, "json", false, "output JSON")
	dashboardCmd.Flags().StringVarP(&dashOutput, "output", "o", "", "write to file instead of stdout")
	dashboardCmd.Flags().StringVar(&dashExport, "export", "", "directory to write the loaded tables as normalized CSV")
}
