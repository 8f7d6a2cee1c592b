// Package cmd contains all CLI commands for the effects tool.
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/config"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/pipeline"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/registry"
)

var (
	env          config.Env
	configPath   string
	registryPath string
	dbPath       string
	logger       = log.New(os.Stderr, "", log.LstdFlags)
)

// exitError carries a process exit code through cobra.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// ExitCode maps an Execute error to a process exit code: 2 for usage and
// load failures, otherwise the code carried by the error, default 1.
func ExitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

func fail(code int, format string, args ...any) error {
	return &exitError{code: code, err: fmt.Errorf(format, args...)}
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "effects",
	Short: "Effect admission controller for narrative text",
	Long: `effects decides, segment by segment, which sensory effects an analyzed
book may surface. Admission is deterministic: the same document, configuration
and registry always produce the same timeline.

Settings come from flags, then EFFECTS_* environment variables (a .env file in
the working directory is loaded first), then built-in defaults.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadEnv,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "TOML configuration file (default: built-in defaults)")
	rootCmd.PersistentFlags().StringVar(&registryPath, "registry", "", "YAML theme/effect registry (default: embedded registry)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite run store")
}

// loadEnv fills unset flags from the environment.
func loadEnv(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fail(2, "load .env: %w", err)
	}
	var err error
	env, err = config.LoadEnv()
	if err != nil {
		return fail(2, "environment: %w", err)
	}
	if configPath == "" {
		configPath = env.ConfigPath
	}
	if registryPath == "" {
		registryPath = env.RegistryPath
	}
	if dbPath == "" {
		dbPath = env.DBPath
	}
	return nil
}

// #region loaders
func loadConfig() (config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.LoadFile(configPath)
}

func loadRegistry() (*registry.Registry, error) {
	if registryPath == "" {
		return registry.Default()
	}
	return registry.LoadFile(registryPath)
}

func loadDocument(path string) (pipeline.Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pipeline.Input{}, fmt.Errorf("read document %s: %w", path, err)
	}
	var in pipeline.Input
	if err := json.Unmarshal(data, &in); err != nil {
		return pipeline.Input{}, fmt.Errorf("parse document %s: %w", path, err)
	}
	return in, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	data = append(data, '\n')
	if path == "" || path == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
// #endregion loaders
