package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "teach [fact]",
		Short: "Remember a fact",
		Long:  "Append a fact to the memory file. The fact can be a positional arg or piped via stdin.",
		Run:   runTeach,
	}

	RootCmd.AddCommand(cmd)
}

func runTeach(cmd *cobra.Command, args []string) {
	var fact string
	if len(args) > 0 {
		fact = strings.Join(args, " ")
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			fact = string(b)
		}
	}

	cfg := loadConfig()
	s, err := openStore(cmd.Context(), cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	f, err := s.Append(cmd.Context(), fact)
	if err != nil {
		exitErr("teach", err)
	}

	if formatFlag == "text" {
		fmt.Printf("Got it! I'll remember: %s\n", f.Text)
		return
	}
	b, _ := json.Marshal(f)
	fmt.Println(string(b))
}
