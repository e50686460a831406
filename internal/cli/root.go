// Package cli implements the mindtrace CLI commands.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/mindtrace/internal/config"
	"github.com/rcliao/mindtrace/internal/embedding"
	"github.com/rcliao/mindtrace/internal/log"
	"github.com/rcliao/mindtrace/internal/metrics"
	"github.com/rcliao/mindtrace/internal/pipeline"
	"github.com/rcliao/mindtrace/internal/render"
	"github.com/rcliao/mindtrace/internal/store"
)

var (
	dbPath     string
	formatFlag string
	envFile    string
	debugFlag  bool

	cfg         *config.Config
	closeLogger = func() {}
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "mindtrace",
	Short: "Observe recurring patterns across journaling sessions",
	Long: "mindtrace stores tagged sessions and short reflections, detects recurring\n" +
		"chains and behavioral patterns, and plans neutral, non-interpretive responses.",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) { closeLogger() },
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $MINDTRACE_DB or ~/.mindtrace/mindtrace.db)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json, yaml or text")
	RootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional dotenv file read before the environment")
	RootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Debug logging")
}

func setup(cmd *cobra.Command, _ []string) error {
	switch formatFlag {
	case formatJSON, formatYAML, formatText:
	default:
		return fmt.Errorf("unknown format %q", formatFlag)
	}

	ctx, cleanup := log.NewContextWithLogger(cmd.Context(), debugFlag)
	closeLogger = cleanup

	c, err := config.Load(ctx, envFile)
	if err != nil {
		return err
	}
	if c.Debug && !debugFlag {
		cleanup()
		ctx, closeLogger = log.NewContextWithLogger(cmd.Context(), true)
	}
	if dbPath != "" {
		c.DBPath = dbPath
	}
	cfg = c
	cmd.SetContext(ctx)
	return nil
}

func openStore(cmd *cobra.Command) (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(cmd.Context(), cfg.DBPath)
}

// openEngine builds an engine over s from the loaded configuration.
func openEngine(s store.Store, m *metrics.Manager) (*pipeline.Engine, error) {
	emb, err := embedding.NewFromConfig(cfg.Embed)
	if err != nil {
		return nil, err
	}
	r, err := render.NewFromConfig(cfg.Render)
	if err != nil {
		return nil, err
	}
	return pipeline.New(*cfg, pipeline.Deps{
		Store:    s,
		Embedder: emb,
		Renderer: r,
		Metrics:  m,
	})
}

// readText joins args, or reads stdin when it is piped.
func readText(args []string) (string, error) {
	if len(args) > 0 {
		return strings.TrimSpace(strings.Join(args, " ")), nil
	}
	stat, err := os.Stdin.Stat()
	if err != nil {
		return "", err
	}
	if stat.Mode()&os.ModeCharDevice != 0 {
		return "", nil
	}
	b, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func exitErr(msg string, err error) {
	closeLogger()
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
