package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export facts as JSON",
		Long:  "Export every learned fact as a JSON array, in teaching order.",
		Run:   runExport,
	}

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	s, err := openStore(cmd.Context(), cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	facts, err := s.Export(cmd.Context())
	if err != nil {
		exitErr("export", err)
	}
	if facts == nil {
		fmt.Println("[]")
		return
	}

	b, _ := json.MarshalIndent(facts, "", "  ")
	fmt.Println(string(b))
}
