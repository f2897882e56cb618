package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/pagegate/internal/policy"
)

func init() {
	rootCmd.AddCommand(initPolicyCmd)
}

var initPolicyCmd = &cobra.Command{
	Use:   "init-policy",
	Short: "Generate default policy.yaml with comments",
	Long: "Creates ~/.pagegate/policy.yaml (or the --policy path) with the default\n" +
		"allowlist, sensitive keywords, and risk threshold.",
	RunE: runInitPolicy,
}

func runInitPolicy(cmd *cobra.Command, args []string) error {
	path, err := writeDefaultPolicy(rootPolicy)
	if err != nil {
		return err
	}
	fmt.Printf("Created %s\n", path)
	return nil
}

func writeDefaultPolicy(path string) (string, error) {
	if path == "" {
		path = policy.DefaultPath()
		if path == "" {
			return "", fmt.Errorf("cannot determine home directory")
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("cannot create config directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("policy.yaml already exists at %s", path)
	}
	if err := os.WriteFile(path, []byte(policy.DefaultConfigYAML()), 0644); err != nil {
		return "", fmt.Errorf("failed to write policy.yaml: %w", err)
	}
	return path, nil
}
