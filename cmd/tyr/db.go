package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tyr/internal/engine/store"
	"tyr/internal/judge"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage tyr's persistence file",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Upgrade the persistence file's schema to the current version",
	RunE:  runDBMigrate,
}

var dbRenameCmd = &cobra.Command{
	Use:   "rename <old-prefix> <new-prefix>",
	Short: "Rewrite a cwd path prefix across logs and cache rows",
	Args:  cobra.ExactArgs(2),
	RunE:  runDBRename,
}

var dbGCCmd = &cobra.Command{
	Use:   "gc",
	Short: "Delete cache rows stamped with a config hash that is no longer current",
	RunE:  runDBGC,
}

func init() {
	dbCmd.AddCommand(dbMigrateCmd, dbRenameCmd, dbGCCmd)
	rootCmd.AddCommand(dbCmd)
}

func runDBMigrate(cmd *cobra.Command, args []string) error {
	db, err := store.OpenForMigration(resolvedDBPath())
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "migration complete")
	return nil
}

func runDBRename(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()
	n, err := db.RenamePathPrefix(args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "rewrote %d row(s)\n", n)
	return nil
}

// runDBGC reclaims cache rows left behind by a rule or config change: a
// stale row's config_hash never matches a live lookup again, so it is
// pure dead weight (spec §4.7). The current hash is computed from the
// rules that apply to the working directory gc runs in, so rows written
// under other projects' rule sets are removed as well.
func runDBGC(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	rules, cleanupLog, err := openRules(cwd)
	if err != nil {
		return err
	}
	defer cleanupLog()
	defer rules.Close()

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	eng := judge.Build(cfg, rules, db, nil)
	current := eng.ConfigHash(judge.Options{Cwd: cwd})
	n, err := db.CacheGC(current)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %d stale cache row(s)\n", n)
	return nil
}
