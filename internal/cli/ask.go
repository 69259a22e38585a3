package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/alphamind/internal/session"
)

func init() {
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer one question",
		Long:  "Answer one question in a fresh session. Teach commands work here too.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runAsk,
	}

	cmd.Flags().Bool("no-log", false, "Do not write a session log")

	RootCmd.AddCommand(cmd)
}

func runAsk(cmd *cobra.Command, args []string) {
	noLog, _ := cmd.Flags().GetBool("no-log")
	question := strings.Join(args, " ")

	a := mustOpenApp(cmd)
	defer a.Close()

	sess := session.Memory(a.cfg.HistoryDepth)
	if !noLog {
		var err error
		sess, err = session.New(a.cfg.ChatDir, a.cfg.HistoryDepth, time.Now())
		if err != nil {
			exitErr("start session", err)
		}
	}
	defer sess.Close()

	reply, err := a.assistant.Handle(cmd.Context(), sess, question)
	if err != nil {
		exitErr("ask", err)
	}

	if formatFlag == "text" {
		fmt.Println(reply.Text)
		return
	}
	b, _ := json.MarshalIndent(reply, "", "  ")
	fmt.Println(string(b))
}
