package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rcliao/alphamind/internal/server"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat API over HTTP",
		Long:  "Serve POST /chat and GET /healthz. Each session_id is a separate conversation.",
		Args:  cobra.NoArgs,
		Run:   runServe,
	}

	cmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().Bool("watch", false, "Rebuild the index when corpus files change")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := mustOpenApp(cmd)
	defer a.Close()

	cfg := a.cfg
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	if w, _ := cmd.Flags().GetBool("watch"); w || cfg.Watch {
		startWatcher(ctx, cfg, a.assistant)
	}

	srv := server.New(a.assistant, server.Options{
		Addr:         cfg.Server.Addr,
		ChatDir:      cfg.ChatDir,
		HistoryDepth: cfg.HistoryDepth,
		RateLimit:    cfg.Server.RateLimit,
		Burst:        cfg.Server.Burst,
		SessionTTL:   cfg.Server.SessionTTL.Duration,
	})
	if err := srv.Run(ctx); err != nil {
		exitErr("serve", err)
	}
}
