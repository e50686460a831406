package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rcliao/mindtrace/internal/api"
	"github.com/rcliao/mindtrace/internal/log"
	"github.com/rcliao/mindtrace/internal/metrics"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Run:   runServe,
	}

	cmd.Flags().String("addr", "", "Listen address (default: $MINDTRACE_SERVER_ADDR)")
	cmd.Flags().Bool("no-metrics", false, "Do not expose /metrics")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	addr, _ := cmd.Flags().GetString("addr")
	noMetrics, _ := cmd.Flags().GetBool("no-metrics")
	if addr == "" {
		addr = cfg.Server.Addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openStore(cmd)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	m := metrics.NewManager()
	if noMetrics {
		m = metrics.NoOpManager()
	}
	eng, err := openEngine(s, m)
	if err != nil {
		exitErr("engine", err)
	}

	router := api.NewRouter(*log.FromCtx(ctx), api.NewHandlers(eng, s), m)
	if err := api.NewServer(addr, router).Run(ctx); err != nil {
		exitErr("serve", err)
	}
}
