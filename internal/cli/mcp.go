package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rcliao/alphamind/internal/mcpserver"
)

func init() {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the assistant as MCP tools over stdio",
		Args:  cobra.NoArgs,
		Run:   runMCP,
	}

	RootCmd.AddCommand(cmd)
}

func runMCP(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := mustOpenApp(cmd)
	defer a.Close()

	s, err := mcpserver.New(a.assistant, a.cfg.HistoryDepth)
	if err != nil {
		exitErr("mcp", err)
	}
	if err := s.Run(ctx); err != nil && ctx.Err() == nil {
		exitErr("mcp", err)
	}
}
