package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tyr/internal/engine/rulestore"
	"tyr/internal/engine/suggest"
)

var (
	suggestMinCountFlag int
	suggestAllFlag      bool
	suggestProjectFlag  bool
	suggestGlobalFlag   bool
	suggestJSONFlag     bool
)

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Mine frequently-allowed commands not yet covered by a rule",
	RunE:  runSuggest,
}

func init() {
	suggestCmd.Flags().IntVar(&suggestMinCountFlag, "min-count", 3, "minimum occurrence count to suggest a rule")
	suggestCmd.Flags().BoolVar(&suggestAllFlag, "all", true, "consult every scope's allow list for the exclusion check")
	suggestCmd.Flags().BoolVar(&suggestProjectFlag, "project", false, "consult only the project (local+shared) allow lists")
	suggestCmd.Flags().BoolVar(&suggestGlobalFlag, "global", false, "consult only the user-global allow list")
	suggestCmd.Flags().BoolVar(&suggestJSONFlag, "json", false, "emit JSON")
	rootCmd.AddCommand(suggestCmd)
}

func runSuggest(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	scopePaths := rulestore.DefaultScopePaths(cwd)

	scope := suggest.AllScopes
	switch {
	case suggestGlobalFlag:
		scope = suggest.GlobalScope
	case suggestProjectFlag:
		scope = suggest.ProjectScope
	}

	results, err := suggest.Mine(db, scopePaths, scope, suggestMinCountFlag)
	if err != nil {
		return err
	}

	if suggestJSONFlag {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(results)
	}
	for _, r := range results {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  (%d)\n", suggest.FormatBashPattern(r.Pattern), r.Count)
	}
	return nil
}
