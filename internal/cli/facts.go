package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "facts",
		Short: "List learned facts",
		Run:   runFacts,
	}

	cmd.Flags().IntP("limit", "l", 0, "Show only the last N facts (0 for all)")

	RootCmd.AddCommand(cmd)
}

func runFacts(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	cfg := loadConfig()
	s, err := openStore(cmd.Context(), cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	facts := s.Facts()
	if limit > 0 && len(facts) > limit {
		facts = facts[len(facts)-limit:]
	}

	if formatFlag == "text" {
		for _, f := range facts {
			fmt.Printf("%d\t%s\n", f.Seq, f.Text)
		}
		return
	}
	if len(facts) == 0 {
		fmt.Println("[]")
		return
	}
	b, _ := json.MarshalIndent(facts, "", "  ")
	fmt.Println(string(b))
}
