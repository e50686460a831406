package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/mindtrace/internal/guard"
)

type guardResult struct {
	Allowed   bool   `json:"allowed" yaml:"allowed"`
	Sentences int    `json:"sentences" yaml:"sentences"`
	Reason    string `json:"reason,omitempty" yaml:"reason,omitempty"`
	Phrase    string `json:"phrase,omitempty" yaml:"phrase,omitempty"`
}

func init() {
	cmd := &cobra.Command{
		Use:   "guard [text]",
		Short: "Check text against the safety guard",
		Long:  "Check text against the safety guard. Exits 2 when the text would be rejected.",
		Run:   runGuard,
	}

	RootCmd.AddCommand(cmd)
}

func runGuard(cmd *cobra.Command, args []string) {
	text, err := readText(args)
	if err != nil {
		exitErr("guard", err)
	}

	g := guard.New(cfg.Thresholds.MaxSentences)
	res := guardResult{Allowed: true, Sentences: guard.SentenceCount(text)}

	var v *guard.Violation
	if err := g.Check(text); errors.As(err, &v) {
		res.Allowed = false
		res.Reason = v.Reason()
		res.Phrase = v.Phrase
	}

	printOut(res, func(w io.Writer) {
		if res.Allowed {
			fmt.Fprintln(w, "allowed")
			return
		}
		if res.Phrase != "" {
			fmt.Fprintf(w, "rejected: %s %q\n", res.Reason, res.Phrase)
			return
		}
		fmt.Fprintf(w, "rejected: %s (%d)\n", res.Reason, res.Sentences)
	})
	if !res.Allowed {
		closeLogger()
		os.Exit(2)
	}
}
