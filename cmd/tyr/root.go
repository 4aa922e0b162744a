// Command tyr is the permission-decision hook binary: it reads a
// PermissionRequest from stdin and writes a HookResponse (or nothing)
// to stdout, classifying each tool invocation as allow, deny, or
// abstain.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"

	"github.com/spf13/cobra"

	"tyr/internal/engine"
	"tyr/internal/engine/config"
	"tyr/internal/engine/rulestore"
	"tyr/internal/engine/store"
	"tyr/internal/logging"
)

var (
	configPathFlag string
	dbPathFlag     string
	verboseFlag    bool
)

var rootCmd = &cobra.Command{
	Use:   "tyr",
	Short: "Permission-decision hook for AI coding assistants",
	Long: `tyr classifies tool invocations (chiefly Bash commands) as allow,
deny, or abstain, so a host agent can skip its own confirmation prompt
for commands a project's rules already settle.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPathFlag, "config", "", "path to tyr's config file (default: $TYR_CONFIG_FILE or ~/.config/tyr/config.jsonc)")
	rootCmd.PersistentFlags().StringVar(&dbPathFlag, "db-path", "", "path to tyr's persistence file (default: $TYR_DB_PATH or ~/.config/tyr/tyr.db)")
	rootCmd.PersistentFlags().BoolVar(&verboseFlag, "verbose", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps an error's sentinel kind to the exit code spec §7
// assigns it. Defaults to 1, the flag-usage-error code, since that is
// the catch-all cobra itself uses for command errors.
func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrMalformedInput):
		return 2
	default:
		return 1
	}
}

// resolvedConfigPath applies spec §6's override chain: --config, then
// $TYR_CONFIG_FILE, then the conventional default.
func resolvedConfigPath() string {
	if configPathFlag != "" {
		return configPathFlag
	}
	if v := os.Getenv("TYR_CONFIG_FILE"); v != "" {
		return v
	}
	return filepath.Join(configDir(), "config.jsonc")
}

// resolvedDBPath applies the analogous override chain for the
// persistence file.
func resolvedDBPath() string {
	if dbPathFlag != "" {
		return dbPathFlag
	}
	if v := os.Getenv("TYR_DB_PATH"); v != "" {
		return v
	}
	if v := os.Getenv("TYR_LOG_FILE"); v != "" {
		return v
	}
	return filepath.Join(configDir(), "tyr.db")
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		if u, uerr := user.Current(); uerr == nil {
			home = u.HomeDir
		}
	}
	return filepath.Join(home, ".config", "tyr")
}

// loadConfig loads TyrConfig and the env dotfile, the latter applied
// before the former is consulted for anything environment-derived.
func loadConfig() (*config.TyrConfig, error) {
	if err := config.LoadEnvDotfile(config.EnvFilePath()); err != nil {
		return nil, err
	}
	return config.Load(resolvedConfigPath())
}

// openStore opens the persistence file, creating its parent directory
// if necessary.
func openStore() (*store.Store, error) {
	path := resolvedDBPath()
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("tyr: create db directory: %w", err)
		}
	}
	return store.Open(path)
}

func openRules(cwd string) (*rulestore.Store, func(), error) {
	log, cleanup, err := logging.New(verboseFlag, debugLogPath())
	if err != nil {
		return nil, func() {}, err
	}
	rules, err := rulestore.Init(cwd, nil, log)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	return rules, cleanup, nil
}

func debugLogPath() string {
	return filepath.Join(configDir(), "debug.log")
}
