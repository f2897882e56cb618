package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/pagegate/internal/policy"
	"github.com/ppiankov/pagegate/internal/scenario"
	"github.com/ppiankov/pagegate/internal/server"
)

var simFormat string

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().StringVarP(&simFormat, "format", "f", "text", "Output format (text|json)")
}

var simulateCmd = &cobra.Command{
	Use:   "simulate [scenario.yaml...]",
	Short: "Run mediation scenarios against the current policy",
	Long: "Runs each scenario's cases through a fresh mediator and compares the\n" +
		"outcome with the expected status and score. Without arguments, runs the\n" +
		"built-in flight-search-under-attack scenario.\n\n" +
		"Exits 1 when any case fails.",
	RunE: runSimulate,
}

func runSimulate(cmd *cobra.Command, args []string) error {
	results, err := simulate(context.Background(), args)
	if err != nil {
		return err
	}

	switch simFormat {
	case "json":
		out, err := scenario.FormatJSON(results)
		if err != nil {
			return err
		}
		fmt.Println(out)
	default:
		fmt.Print(scenario.FormatText(results))
	}

	for _, r := range results {
		if r.Failed > 0 {
			os.Exit(1)
		}
	}
	return nil
}

func simulate(ctx context.Context, files []string) ([]*scenario.RunResult, error) {
	cfg, err := policy.LoadConfig(rootPolicy)
	if err != nil {
		return nil, fmt.Errorf("failed to load policy config: %w", err)
	}
	scanner, err := server.NewScanner(rootFixtures)
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		r, err := scenario.Run(ctx, scenario.Presets(), cfg, scanner)
		if err != nil {
			return nil, err
		}
		return []*scenario.RunResult{r}, nil
	}

	var results []*scenario.RunResult
	for _, f := range files {
		r, err := scenario.LoadAndRun(ctx, f, cfg, scanner)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}
