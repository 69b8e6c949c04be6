package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"kabu-chart/internal/errors"
	"kabu-chart/internal/logging"
	"kabu-chart/internal/store"
)

func newImportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import bars or broker statements from CSV",
	}
	cmd.AddCommand(newImportTradesCmd(app))
	cmd.AddCommand(newImportBarsCmd(app))
	return cmd
}

func newImportTradesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "trades <code> <file.csv>",
		Short: "Import a broker statement CSV",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, path := args[0], args[1]
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if app.Store == nil {
				return fmt.Errorf("store unavailable")
			}

			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("opening %s: %w", path, err)
			}
			defer f.Close()

			trades, err := store.ImportTradesCSV(f)
			if err != nil {
				if errors.Is(err, errors.ErrInvalidCSV) {
					output.Error("%s does not look like a statement CSV.", path)
				}
				return fmt.Errorf("parsing %s: %w", path, err)
			}
			if err := app.Store.SaveTrades(ctx, code, trades); err != nil {
				return fmt.Errorf("saving trades: %w", err)
			}
			app.Invalidate(code)

			logging.LogImport(app.Logger, code, path, len(trades))
			output.Success("Imported %d trade events for %s.", len(trades), code)
			return nil
		},
	}
}

func newImportBarsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "bars <code> <file.csv>",
		Short: "Import daily OHLCV bars from CSV",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, path := args[0], args[1]
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if app.Store == nil {
				return fmt.Errorf("store unavailable")
			}

			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("opening %s: %w", path, err)
			}
			defer f.Close()

			bars, err := store.ImportBarsCSV(f)
			if err != nil {
				if errors.Is(err, errors.ErrInvalidCSV) {
					output.Error("%s does not look like a bar CSV.", path)
				}
				return fmt.Errorf("parsing %s: %w", path, err)
			}
			if err := app.Store.SaveBars(ctx, code, bars); err != nil {
				return fmt.Errorf("saving bars: %w", err)
			}
			app.Invalidate(code)

			logging.LogImport(app.Logger, code, path, len(bars))
			output.Success("Imported %d bars for %s.", len(bars), code)
			return nil
		},
	}
}
