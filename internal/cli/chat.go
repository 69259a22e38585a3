package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rcliao/alphamind/internal/assistant"
	"github.com/rcliao/alphamind/internal/config"
	"github.com/rcliao/alphamind/internal/session"
	"github.com/rcliao/alphamind/internal/watch"
)

// ExitCommand ends the chat loop, compared case-insensitively after trimming.
const ExitCommand = "exit"

func init() {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive session",
		Long:  "Start an interactive session. Type 'exit' to quit. Each session is logged under chat_dir.",
		Args:  cobra.NoArgs,
		Run:   runChat,
	}

	cmd.Flags().Bool("watch", false, "Rebuild the index when corpus files change")

	RootCmd.AddCommand(cmd)
}

func runChat(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a := mustOpenApp(cmd)
	defer a.Close()

	if w, _ := cmd.Flags().GetBool("watch"); w || a.cfg.Watch {
		startWatcher(ctx, a.cfg, a.assistant)
	}

	sess, err := session.New(a.cfg.ChatDir, a.cfg.HistoryDepth, time.Now())
	if err != nil {
		exitErr("start session", err)
	}
	defer sess.Close()
	slog.Debug("session started", "id", sess.ID(), "log", sess.LogPath())

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if err := chatLoop(ctx, a.assistant, sess, os.Stdin, os.Stdout, interactive); err != nil {
		exitErr("chat", err)
	}
}

// replier is the part of the assistant the chat loop needs.
type replier interface {
	Handle(ctx context.Context, sess *session.Session, input string) (assistant.Reply, error)
	AssistantName() string
}

// chatLoop reads one input per line until EOF, exit or cancellation.
// Prompts and the banner are written only when interactive. Per-turn
// failures are reported in-band and the loop continues.
func chatLoop(ctx context.Context, r replier, sess *session.Session, in io.Reader, out io.Writer, interactive bool) error {
	name := r.AssistantName()
	if interactive {
		fmt.Fprintf(out, "%s is ready. Type '%s' to quit.\n", name, ExitCommand)
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		if interactive {
			fmt.Fprint(out, "\nYou: ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(input, ExitCommand) {
			return nil
		}
		if input == "" {
			continue
		}
		if ctx.Err() != nil {
			return nil
		}

		reply, err := r.Handle(ctx, sess, input)
		if err != nil {
			slog.Error("turn failed", "error", err)
			if reply.Text == "" {
				fmt.Fprintf(out, "%s: [ERROR] %v\n", name, err)
				continue
			}
		}
		if reply.Kind == assistant.KindRetry {
			fmt.Fprintln(out, reply.Text)
			continue
		}
		fmt.Fprintf(out, "%s: %s\n", name, reply.Text)
	}
}

func startWatcher(ctx context.Context, cfg *config.Config, a *assistant.Assistant) {
	opts := loaderOptions(cfg)
	w := watch.New(cfg.DataDir, opts, watch.DefaultDebounce, a.Rebuild)
	go func() {
		if err := w.Run(ctx); err != nil {
			slog.Error("corpus watcher stopped", "error", err)
		}
	}()
}
