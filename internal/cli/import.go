package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/alphamind/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import facts from JSON",
		Long:  "Import facts from JSON on stdin. Expects the format produced by export.",
		Run:   runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		exitErr("read stdin", err)
	}

	var facts []model.Fact
	if err := json.Unmarshal(data, &facts); err != nil {
		exitErr("parse json", err)
	}

	cfg := loadConfig()
	s, err := openStore(cmd.Context(), cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	imported, err := s.Import(cmd.Context(), facts)
	if err != nil {
		exitErr("import", err)
	}

	fmt.Printf(`{"ok":true,"imported":%d}`+"\n", imported)
}
