package cli

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rcliao/mindtrace/internal/metrics"
	"github.com/rcliao/mindtrace/internal/model"
	"github.com/rcliao/mindtrace/internal/pipeline"
)

func init() {
	reflect := &cobra.Command{
		Use:   "reflect [text]",
		Short: "Record a reflection and plan the response",
		Long:  "Record a reflection for a user, update their behavioral patterns and print the response plan and prompt.",
		Run:   runReflect,
	}
	reflect.Flags().StringP("user", "u", "", "User ID")
	reflect.Flags().Bool("new-user", false, "Generate a new user ID")
	reflect.Flags().StringP("session", "s", "", "Session the reflection belongs to")

	plan := &cobra.Command{
		Use:   "plan",
		Short: "Plan a response from stored memory without recording anything",
		Run:   runPlan,
	}
	plan.Flags().StringP("user", "u", "", "User ID (required)")
	plan.MarkFlagRequired("user")

	patterns := &cobra.Command{
		Use:   "patterns",
		Short: "List a user's long-term cognitive patterns",
		Run:   runPatterns,
	}
	patterns.Flags().StringP("user", "u", "", "User ID (required)")
	patterns.MarkFlagRequired("user")

	RootCmd.AddCommand(reflect, plan, patterns)
}

func runReflect(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")
	newUser, _ := cmd.Flags().GetBool("new-user")
	sessionID, _ := cmd.Flags().GetString("session")

	switch {
	case newUser && user != "":
		exitErr("reflect", fmt.Errorf("--user and --new-user are exclusive"))
	case newUser:
		user = uuid.NewString()
	case user == "":
		exitErr("reflect", fmt.Errorf("--user or --new-user is required"))
	}

	text, err := readText(args)
	if err != nil {
		exitErr("reflect", err)
	}
	if text == "" {
		exitErr("reflect", fmt.Errorf("text is required (positional arg or stdin)"))
	}

	eng, closeFn := engineFor(cmd)
	defer closeFn()

	ref, err := eng.Reflect(cmd.Context(), user, text, sessionID)
	if err != nil {
		exitErr("reflect", err)
	}
	printOut(ref, func(w io.Writer) {
		fmt.Fprintf(w, "user: %s\nmode: %s\nrisk: %s\n\n", user, ref.Plan.Mode, ref.Patterns.RiskLevel)
		fmt.Fprintln(w, ref.Prompt)
	})
}

func runPlan(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")

	eng, closeFn := engineFor(cmd)
	defer closeFn()

	view, err := eng.Plan(cmd.Context(), user)
	if err != nil {
		exitErr("plan", err)
	}
	printOut(view, func(w io.Writer) {
		fmt.Fprintf(w, "mode: %s\nrisk: %s\n\n", view.Plan.Mode, view.Snapshot.RiskLevel)
		fmt.Fprintln(w, view.Prompt)
	})
}

func runPatterns(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")

	eng, closeFn := engineFor(cmd)
	defer closeFn()

	patterns, err := eng.Patterns(cmd.Context(), user)
	if err != nil {
		exitErr("patterns", err)
	}
	printOut(patterns, func(w io.Writer) {
		if len(patterns) == 0 {
			fmt.Fprintln(w, "No cognitive patterns recorded.")
			return
		}
		for _, p := range patterns {
			writePattern(w, p)
		}
	})
}

func writePattern(w io.Writer, p model.CognitivePattern) {
	fmt.Fprintf(w, "%s  recurrence=%s  first=%s  last=%s\n  %s\n",
		p.PatternType, p.RecurrenceLevel,
		p.FirstDetected.Format("2006-01-02"), p.LastDetected.Format("2006-01-02"),
		p.Description)
}

// engineFor opens the store and an engine over it. The returned func closes
// the store.
func engineFor(cmd *cobra.Command) (*pipeline.Engine, func()) {
	s, err := openStore(cmd)
	if err != nil {
		exitErr("open store", err)
	}
	eng, err := openEngine(s, metrics.NoOpManager())
	if err != nil {
		s.Close()
		exitErr("engine", err)
	}
	return eng, func() { s.Close() }
}
