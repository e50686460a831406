package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/mindtrace/internal/pipeline"
)

func init() {
	analyze := &cobra.Command{
		Use:   "analyze",
		Short: "Find recurring chains and render the primary observation",
		Long: "Group sessions by confirmed tag, keep chains that are long, coherent and\n" +
			"show measurable drift, then render the strongest one through the safety guard.",
		Run: runAnalyze,
	}
	analyze.Flags().String("since", "", "Only sessions starting at or after this time (RFC 3339)")
	analyze.Flags().Bool("skip-render", false, "Stop after aggregation")

	summary := &cobra.Command{
		Use:   "summary",
		Short: "List every observation as a neutral summary",
		Run:   runSummary,
	}
	summary.Flags().String("since", "", "Only sessions starting at or after this time (RFC 3339)")

	RootCmd.AddCommand(analyze, summary)
}

func analyzeOptions(cmd *cobra.Command) pipeline.AnalyzeOptions {
	var opts pipeline.AnalyzeOptions
	if since, _ := cmd.Flags().GetString("since"); since != "" {
		t, err := parseTime(since)
		if err != nil {
			exitErr("parse --since", err)
		}
		opts.Since = t
	}
	return opts
}

func runAnalyze(cmd *cobra.Command, args []string) {
	opts := analyzeOptions(cmd)
	opts.SkipRender, _ = cmd.Flags().GetBool("skip-render")

	eng, closeFn := engineFor(cmd)
	defer closeFn()

	a, err := eng.Analyze(cmd.Context(), opts)
	if err != nil {
		exitErr("analyze", err)
	}

	printOut(a, func(w io.Writer) {
		switch {
		case a.Primary == nil:
			fmt.Fprintln(w, "No recurring patterns observed.")
		case a.Suppressed:
			fmt.Fprintf(w, "Observation on %q withheld: every rendering was rejected (%s).\n",
				a.Primary.Tag, strings.Join(a.Rejections, ", "))
		case a.Text == "":
			fmt.Fprintf(w, "Primary observation: %s across %d sessions (confidence %.2f).\n",
				a.Primary.Tag, len(a.Primary.SessionIDs), a.Primary.Confidence)
		default:
			fmt.Fprintln(w, a.Text)
		}
	})
}

func runSummary(cmd *cobra.Command, args []string) {
	opts := analyzeOptions(cmd)
	opts.SkipRender = true

	eng, closeFn := engineFor(cmd)
	defer closeFn()

	a, err := eng.Analyze(cmd.Context(), opts)
	if err != nil {
		exitErr("summary", err)
	}

	printOut(a.Summaries, func(w io.Writer) {
		if len(a.Summaries) == 0 {
			fmt.Fprintln(w, "No recurring patterns observed.")
			return
		}
		for _, sum := range a.Summaries {
			fmt.Fprintf(w, "%s  sessions=%d  confidence=%.2f  signals=%s\n",
				sum.Topic, sum.Sessions, sum.Confidence, strings.Join(sum.Signals, ","))
		}
	})
}
