package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
	formatText = "text"
)

// printOut writes v in the selected format. text renders the human form;
// when it is nil text output falls back to JSON.
func printOut(v any, text func(w io.Writer)) {
	if err := writeOut(os.Stdout, formatFlag, v, text); err != nil {
		exitErr("write output", err)
	}
}

func writeOut(w io.Writer, format string, v any, text func(w io.Writer)) error {
	switch {
	case format == formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case format == formatText && text != nil:
		text(w)
		return nil
	default:
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	}
}
