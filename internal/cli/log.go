package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/pagegate/internal/model"
)

var (
	logSession string
	logFormat  string
)

func init() {
	rootCmd.AddCommand(logCmd)
	logCmd.Flags().StringVar(&logSession, "session", "", "Only show this session (default all)")
	logCmd.Flags().StringVarP(&logFormat, "format", "f", "text", "Output format (text|json)")
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show the server's action log and overall risk",
	RunE:  runLog,
}

func runLog(cmd *cobra.Command, args []string) error {
	c, err := newRemoteClient(logSession)
	if err != nil {
		return err
	}
	defer c.Close()

	records, risk, err := c.Log(context.Background())
	if err != nil {
		return fmt.Errorf("failed to read action log: %w", err)
	}

	if logFormat == "json" {
		out, err := json.MarshalIndent(struct {
			Records     []model.ActionRecord `json:"records"`
			OverallRisk int                  `json:"overall_risk"`
		}{records, risk}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	printTable(os.Stdout, records)
	fmt.Printf("\nOverall risk: %d/100 (%s)\n", risk, model.LevelFor(float64(risk)))
	return nil
}
