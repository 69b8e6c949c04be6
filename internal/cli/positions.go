package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"kabu-chart/internal/errors"
	"kabu-chart/internal/ledger"
	"kabu-chart/internal/logging"
	"kabu-chart/internal/models"
)

func newPositionsCmd(app *App) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "positions <code>",
		Short: "Show the daily position ledger for a security",
		Long:  "Computes per-day lot holdings, average entry prices, and realized/unrealized P&L per broker group.",
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
				var de *errors.DataError
				if errors.As(err, &de) {
					output.Error("Loading %s for %s failed: %s", de.DataType, de.Code, de.Message)
				}
				return fmt.Errorf("loading bars: %w", err)
			}
			trades, err := app.LoadTrades(ctx, code)
			if err != nil {
				return fmt.Errorf("loading trades: %w", err)
			}

			logger := logging.WithCode(app.Logger, code)
			start := time.Now()
			engine := ledger.New(app.Classifier, logger)
			result := engine.Compute(bars, trades)
			logging.LogCompute(logger, code, len(bars), len(trades), len(result.Warnings), time.Since(start))

			if output.IsJSON() {
				return output.JSON(result)
			}

			for _, w := range result.Warnings {
				output.Warning("%s: %s (%s)", FormatDay(w.Date), w.Message, w.BrokerKey)
			}

			positions := result.DailyPositions
			if days > 0 && len(positions) > days {
				positions = positions[len(positions)-days:]
			}
			if len(positions) == 0 {
				output.Info("No bars for %s.", code)
				return nil
			}

			output.Bold("Positions: %s", code)
			table := NewTable(output, "Date", "Broker", "Pos", "Avg Long", "Avg Short", "Realized", "Unrealized", "Total")
			for _, p := range positions {
				table.AddRow(
					FormatDay(p.Time),
					p.BrokerKey,
					p.PosText,
					FormatPrice(p.AvgLongPrice),
					FormatPrice(p.AvgShortPrice),
					output.FormatPnL(p.RealizedPnL),
					output.FormatPnL(p.UnrealizedPnL),
					output.FormatPnL(p.TotalPnL),
				)
			}
			table.Render()

			if len(result.TradeMarkers) > 0 {
				output.Println()
				output.Bold("Trade days")
				markers := NewTable(output, "Date", "Broker", "Buy", "Sell", "Trades")
				for _, m := range result.TradeMarkers {
					markers.AddRow(
						FormatDay(m.Time),
						m.BrokerKey,
						models.FormatLots(m.BuyLots),
						models.FormatLots(m.SellLots),
						fmt.Sprintf("%d", len(m.Trades)),
					)
				}
				markers.Render()
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 30, "Number of trailing days to show (0 for all)")
	return cmd
}
