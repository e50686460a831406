package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	s, err := openStore(cmd)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	stats, err := s.Stats(cmd.Context())
	if err != nil {
		exitErr("stats", err)
	}

	printOut(stats, func(w io.Writer) {
		fmt.Fprintf(w, "db:         %s (%d bytes)\n", stats.DBPath, stats.DBSizeBytes)
		fmt.Fprintf(w, "sessions:   %d\n", stats.Sessions)
		fmt.Fprintf(w, "embeddings: %d\n", stats.Embeddings)
		fmt.Fprintf(w, "entries:    %d\n", stats.Entries)
		fmt.Fprintf(w, "patterns:   %d\n", stats.Patterns)
		fmt.Fprintf(w, "users:      %d\n", stats.Users)
		for _, t := range stats.Tags {
			fmt.Fprintf(w, "  %-20s %d\n", t.Tag, t.Sessions)
		}
	})
}
