package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"kabu-chart/internal/signals"
)

func newSignalsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signals <code>",
		Short: "Show moving-average signal metrics for a security",
		Long:  "Computes MA streak chips, trend strength, and exhaustion risk from stored daily bars.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := args[0]
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if app.Store == nil {
				output.Error("Store not initialized.")
				return fmt.Errorf("store unavailable")
			}

			bars, err := app.LoadBars(ctx, code)
			if err != nil {
				return fmt.Errorf("loading bars: %w", err)
			}

			metrics := signals.ComputeSignalMetrics(bars, app.Config.Signals.MaxSignals)

			if output.IsJSON() {
				return output.JSON(metrics)
			}

			output.Bold("Signals: %s", code)
			if len(metrics.Signals) == 0 {
				output.Dim("No active streak signals.")
			} else {
				table := NewTable(output, "Chip", "Period", "Count", "Level")
				for _, s := range metrics.Signals {
					table.AddRow(s.Label, fmt.Sprintf("%d", s.Period), fmt.Sprintf("%d", s.Count), string(s.Level))
				}
				table.Render()
			}

			output.Println()
			output.Print("Trend strength:  %s\n", output.ColoredString(output.PnLColor(metrics.TrendStrength), fmt.Sprintf("%+.1f", metrics.TrendStrength)))
			risk := fmt.Sprintf("%.1f", metrics.ExhaustionRisk)
			if metrics.ExhaustionRisk >= 50 {
				risk = output.ColoredString(ColorYellow, risk)
			}
			output.Print("Exhaustion risk: %s\n", risk)
			return nil
		},
	}
	return cmd
}
