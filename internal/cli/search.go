package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/alphamind/internal/retrieval"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Show the context retrieved for a query",
		Long:  "Run fact and document retrieval for a query without calling the model.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	RootCmd.AddCommand(cmd)
}

type searchOutput struct {
	Query    string          `json:"query"`
	Resolved string          `json:"resolved_query"`
	Stage    retrieval.Stage `json:"stage"`
	Context  string          `json:"context"`
}

func runSearch(cmd *cobra.Command, args []string) {
	query := strings.Join(args, " ")

	a := mustOpenApp(cmd)
	defer a.Close()

	resolved, res, err := a.assistant.Retrieve(cmd.Context(), query, nil)
	if err != nil {
		exitErr("search", err)
	}

	if formatFlag == "text" {
		fmt.Printf("[%s]\n%s\n", res.Stage, res.Context)
		return
	}
	b, _ := json.MarshalIndent(searchOutput{
		Query:    query,
		Resolved: resolved,
		Stage:    res.Stage,
		Context:  res.Context,
	}, "", "  ")
	fmt.Println(string(b))
}
