package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ppiankov/pagegate/internal/logging"
	"github.com/ppiankov/pagegate/internal/server"
)

var (
	rootPolicy    string
	rootAddr      string
	rootFixtures  string
	rootLogLevel  string
	rootLogFormat string
	rootEnvFile   string

	logger = logrus.StandardLogger()
)

// envOverrides maps persistent flags to the environment variables that set
// them when the flag is not given explicitly.
var envOverrides = map[string]string{
	"policy":     "PAGEGATE_POLICY",
	"addr":       "PAGEGATE_ADDR",
	"fixtures":   "PAGEGATE_FIXTURES",
	"log-level":  "PAGEGATE_LOG_LEVEL",
	"log-format": "PAGEGATE_LOG_FORMAT",
}

var rootCmd = &cobra.Command{
	Use:   "pagegate",
	Short: "Action mediator for autonomous browser agents",
	Long: "Every action a browsing agent proposes passes an allowlist, is scored against\n" +
		"the current page's prompt-injection signals, and either runs, is blocked,\n" +
		"or waits for a human verdict.",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootPolicy, "policy", "", "Path to policy YAML (default ~/.pagegate/policy.yaml)")
	pf.StringVar(&rootAddr, "addr", server.DefaultAddr, "Policy server address")
	pf.StringVar(&rootFixtures, "fixtures", "", "Path to page snapshot fixtures YAML")
	pf.StringVar(&rootLogLevel, "log-level", "info", "Log level (debug|info|warn|error)")
	pf.StringVar(&rootLogFormat, "log-format", "text", "Log format (text|json)")
	pf.StringVar(&rootEnvFile, "env-file", "", "Load environment from this file (default .env when present)")
}

func setup(cmd *cobra.Command, args []string) error {
	if err := loadEnv(rootEnvFile); err != nil {
		return err
	}
	if err := applyEnv(cmd); err != nil {
		return err
	}

	l, err := logging.New(rootLogLevel, rootLogFormat, os.Stderr)
	if err != nil {
		return err
	}
	logger = l
	return nil
}

// loadEnv reads path, or ./.env when path is empty and the file exists.
// Variables already set in the environment win.
func loadEnv(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

func applyEnv(cmd *cobra.Command) error {
	for name, env := range envOverrides {
		f := cmd.Flag(name)
		if f == nil || f.Changed {
			continue
		}
		if v, ok := os.LookupEnv(env); ok {
			if err := f.Value.Set(v); err != nil {
				return fmt.Errorf("invalid %s=%q: %w", env, v, err)
			}
		}
	}
	return nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
