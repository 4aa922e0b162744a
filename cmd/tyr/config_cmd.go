package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	tyrconfig "tyr/internal/engine/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect tyr's configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as JSON",
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the resolved configuration file path",
	RunE:  runConfigPath,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set one top-level configuration key and rewrite the config file",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configEnvCmd = &cobra.Command{
	Use:   "env",
	Short: "Inspect tyr's env dotfile",
}

var configEnvShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the env dotfile's contents",
	RunE:  runConfigEnvShow,
}

var configEnvPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the env dotfile's path",
	RunE:  runConfigEnvPath,
}

var configEnvSetCmd = &cobra.Command{
	Use:   "set <KEY=VALUE>",
	Short: "Append one KEY=VALUE assignment to the env dotfile",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigEnvSet,
}

func init() {
	configCmd.AddCommand(configShowCmd, configPathCmd, configSetCmd, configEnvCmd)
	configEnvCmd.AddCommand(configEnvShowCmd, configEnvPathCmd, configEnvSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(cfg)
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	fmt.Fprintln(cmd.OutOrStdout(), resolvedConfigPath())
	return nil
}

// runConfigSet rewrites only the one key/value pair the caller named,
// leaving every other field of the file untouched by round-tripping
// through a generic map rather than the typed TyrConfig.
func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]
	path := resolvedConfigPath()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		data = []byte("{}")
	}
	stripped := tyrconfig.StripJSONC(data)

	var generic map[string]json.RawMessage
	if err := json.Unmarshal(stripped, &generic); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	if generic == nil {
		generic = map[string]json.RawMessage{}
	}

	var encodedValue json.RawMessage
	if err := json.Unmarshal([]byte(value), &encodedValue); err != nil {
		// Not already valid JSON: treat it as a bare string.
		quoted, err := json.Marshal(value)
		if err != nil {
			return err
		}
		encodedValue = quoted
	}
	generic[key] = encodedValue

	out, err := json.MarshalIndent(generic, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o600)
}

func runConfigEnvShow(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(tyrconfig.EnvFilePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runConfigEnvPath(cmd *cobra.Command, args []string) error {
	fmt.Fprintln(cmd.OutOrStdout(), tyrconfig.EnvFilePath())
	return nil
}

func runConfigEnvSet(cmd *cobra.Command, args []string) error {
	path := tyrconfig.EnvFilePath()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintln(f, args[0])
	return err
}
