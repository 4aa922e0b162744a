package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tyr/internal/engine/config"
	"tyr/internal/engine/store"
)

var (
	logLastFlag     int
	logJSONFlag     bool
	logSinceFlag    string
	logUntilFlag    string
	logDecisionFlag string
	logProviderFlag string
	logCwdFlag      string
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show audit log entries",
	RunE:  runLog,
}

var logClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every audit log entry",
	RunE:  runLogClear,
}

func init() {
	logCmd.Flags().IntVar(&logLastFlag, "last", 0, "show only the last N entries")
	logCmd.Flags().BoolVar(&logJSONFlag, "json", false, "emit newline-delimited JSON")
	logCmd.Flags().StringVar(&logSinceFlag, "since", "", "only entries at or after this time (N[smhd] or ISO-8601)")
	logCmd.Flags().StringVar(&logUntilFlag, "until", "", "only entries at or before this time (N[smhd] or ISO-8601)")
	logCmd.Flags().StringVar(&logDecisionFlag, "decision", "", "filter by decision (allow|deny|abstain|error)")
	logCmd.Flags().StringVar(&logProviderFlag, "provider", "", "filter by the provider that produced the decision")
	logCmd.Flags().StringVar(&logCwdFlag, "cwd", "", "filter by a cwd path prefix")
	logCmd.AddCommand(logClearCmd)
	rootCmd.AddCommand(logCmd)
}

func runLog(cmd *cobra.Command, args []string) error {
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
	filter := store.LogFilter{
		LastN:     logLastFlag,
		Decision:  logDecisionFlag,
		Provider:  logProviderFlag,
		CwdPrefix: logCwdFlag,
	}
	if logSinceFlag != "" {
		ts, err := config.ParseTimeGrammar(logSinceFlag, now)
		if err != nil {
			return err
		}
		filter.Since = ts
	}
	if logUntilFlag != "" {
		ts, err := config.ParseTimeGrammar(logUntilFlag, now)
		if err != nil {
			return err
		}
		filter.Until = ts
	}

	retentionSeconds, _, err := config.ParseRetentionSeconds(cfg.LogRetention)
	if err != nil {
		retentionSeconds = 0
	}
	entries, err := db.Tail(filter, retentionSeconds, now.UnixMilli())
	if err != nil {
		return err
	}

	if logJSONFlag {
		enc := json.NewEncoder(cmd.OutOrStdout())
		for _, e := range entries {
			if err := enc.Encode(e); err != nil {
				return err
			}
		}
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(cmd.OutOrStdout(), "%d %-8s %-12s %-20s %s\n", e.Timestamp, e.Decision, e.Provider, e.ToolName, e.ToolInput)
	}
	return nil
}

func runLogClear(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()
	return db.ClearLogs()
}
