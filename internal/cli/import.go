package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/mindtrace/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a JSON export",
		Long:  "Import records from a file or stdin. Expects the format produced by export. Existing IDs are skipped.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	var r io.Reader = os.Stdin
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			exitErr("open import", err)
		}
		defer f.Close()
		r = f
	}

	var dump store.Export
	if err := json.NewDecoder(r).Decode(&dump); err != nil {
		exitErr("parse json", err)
	}
	if dump.Version > store.ExportVersion {
		exitErr("import", fmt.Errorf("export version %d is newer than supported %d", dump.Version, store.ExportVersion))
	}

	s, err := openStore(cmd)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	res, err := s.Import(cmd.Context(), &dump)
	if err != nil {
		exitErr("import", err)
	}
	printOut(res, func(w io.Writer) {
		fmt.Fprintf(w, "imported %d sessions, %d entries, %d patterns\n", res.Sessions, res.Entries, res.Patterns)
	})
}
