package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tyr/internal/engine/config"
)

var (
	statsSinceFlag string
	statsJSONFlag  bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize audit log totals and decision rates",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsSinceFlag, "since", "", "only entries at or after this time (N[smhd] or ISO-8601)")
	statsCmd.Flags().BoolVar(&statsJSONFlag, "json", false, "emit JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	now := time.Now()
	var since int64
	if statsSinceFlag != "" {
		since, err = config.ParseTimeGrammar(statsSinceFlag, now)
		if err != nil {
			return err
		}
	}

	retentionSeconds, _, err := config.ParseRetentionSeconds(cfg.LogRetention)
	if err != nil {
		retentionSeconds = 0
	}
	summary, err := db.Stats(since, 0, retentionSeconds, now.UnixMilli())
	if err != nil {
		return err
	}

	if statsJSONFlag {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(summary)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "total:           %d\n", summary.Total)
	fmt.Fprintf(out, "auto-approvals:  %d\n", summary.AutoApprovals)
	fmt.Fprintf(out, "cache hit rate:  %.1f%%\n", summary.CacheHitRate()*100)
	fmt.Fprintln(out, "by decision:")
	for decision, n := range summary.ByDecision {
		fmt.Fprintf(out, "  %-8s %d\n", decision, n)
	}
	fmt.Fprintln(out, "by provider:")
	for provider, n := range summary.ByProvider {
		fmt.Fprintf(out, "  %-16s %d\n", provider, n)
	}
	return nil
}
