package cli

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export sessions and memory as JSON",
		Long:  "Export every session plus episodic, behavioral and pattern memory. Filter memory by user with -u.",
		Run:   runExport,
	}

	cmd.Flags().StringP("user", "u", "", "Only this user's memory")
	cmd.Flags().StringP("out", "o", "", "Write to a file instead of stdout")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")
	out, _ := cmd.Flags().GetString("out")

	s, err := openStore(cmd)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	dump, err := s.ExportAll(cmd.Context(), user)
	if err != nil {
		exitErr("export", err)
	}

	if out == "" {
		printOut(dump, nil)
		return
	}
	b, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		exitErr("export", err)
	}
	if err := os.WriteFile(out, append(b, '\n'), 0o600); err != nil {
		exitErr("write export", err)
	}
}
