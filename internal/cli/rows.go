package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"kabu-chart/internal/ledger"
	"kabu-chart/internal/logging"
	"kabu-chart/internal/models"
)

func newRowsCmd(app *App) *cobra.Command {
	var brokerFilter string

	cmd := &cobra.Command{
		Use:   "rows <code>",
		Short: "Show the per-trade ledger audit for a security",
		Long:  "Lists every trade with the ledger state immediately after applying it.",
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

			trades, err := app.LoadTrades(ctx, code)
			if err != nil {
				return fmt.Errorf("loading trades: %w", err)
			}
			if brokerFilter != "" {
				var filtered []models.TradeEvent
				for _, t := range trades {
					if app.Classifier.GroupKey(t.Broker, t.Account) == brokerFilter {
						filtered = append(filtered, t)
					}
				}
				trades = filtered
			}

			engine := ledger.New(app.Classifier, logging.WithCode(app.Logger, code))
			rows := engine.ComputeRows(trades)

			if output.IsJSON() {
				return output.JSON(rows)
			}
			if len(rows) == 0 {
				output.Info("No trades for %s.", code)
				return nil
			}

			output.Bold("Ledger: %s", code)
			table := NewTable(output, "Date", "Broker", "Side", "Action", "Units", "Price", "Pos", "Delta", "Realized")
			for _, r := range rows {
				kind := string(r.Trade.Side)
				if r.Trade.Kind.IsTransfer() {
					kind = r.Trade.Kind.String()
				}
				table.AddRow(
					FormatDay(r.Trade.Date),
					r.BrokerKey,
					kind,
					string(r.Trade.Action),
					models.FormatLots(r.Trade.Units),
					FormatPrice(r.Trade.Price),
					models.PositionText(r.ShortLots, r.LongLots),
					output.FormatPnL(r.RealizedDelta),
					output.FormatPnL(r.RealizedPnL),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&brokerFilter, "broker", "", "Only include trades for this broker group key (e.g. SBI/main)")
	return cmd
}
