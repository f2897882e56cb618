package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/pagegate/internal/mediator"
	"github.com/ppiankov/pagegate/internal/model"
	"github.com/ppiankov/pagegate/internal/policy"
	"github.com/ppiankov/pagegate/internal/scan"
	"github.com/ppiankov/pagegate/internal/server"
)

func init() {
	rootCmd.AddCommand(scanCmd)
}

var scanCmd = &cobra.Command{
	Use:   "scan <url>",
	Short: "Print the threat signal for a page",
	Long: "Scans one page with the configured scanner (fixtures when --fixtures is\n" +
		"given, otherwise the URL heuristic) and prints the signal as JSON.\n" +
		"A failed or slow scan prints the neutral signal.",
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := policy.LoadConfig(rootPolicy)
	if err != nil {
		return fmt.Errorf("failed to load policy config: %w", err)
	}
	scanner, err := server.NewScanner(rootFixtures)
	if err != nil {
		return err
	}

	guard := scan.NewGuard(scanner, cfg.ScanTimeout, logger)
	sig := guard.Scan(context.Background(), mediator.NormalizeURL(args[0]))

	out := struct {
		Signal       model.ThreatSignal `json:"signal"`
		RiskDetected bool               `json:"risk_detected"`
	}{sig, sig.RiskDetected(cfg.SuspiciousScriptThreshold)}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
