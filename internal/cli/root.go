package cli

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"kabu-chart/internal/broker"
	"kabu-chart/internal/config"
	"kabu-chart/internal/fetch"
	"kabu-chart/internal/models"
	"kabu-chart/internal/store"
)

// Version information
const Version = "0.1.0"

// loadTTL bounds how long coalesced store loads stay cached; imports
// invalidate eagerly, so staleness only matters across processes.
const loadTTL = 30 * time.Second

// App holds the application dependencies. Bar and trade loads go through
// per-kind coordinators so commands repeating a load for the same code
// coalesce instead of hitting the store again.
type App struct {
	Config     *config.Config
	Logger     zerolog.Logger
	Store      store.DataStore
	Classifier broker.Classifier

	bars   *fetch.Coordinator
	trades *fetch.Coordinator
}

func newApp(cfg *config.Config, logger zerolog.Logger, dataStore store.DataStore) *App {
	classifier := broker.NewAliasClassifier()
	for substr, id := range cfg.Brokers.Aliases {
		classifier.AddAlias(substr, id)
	}

	app := &App{
		Config:     cfg,
		Logger:     logger,
		Store:      dataStore,
		Classifier: classifier,
	}
	if dataStore != nil {
		app.bars = fetch.NewCoordinator(func(ctx context.Context, code string) (interface{}, error) {
			return dataStore.GetBars(ctx, code)
		}, loadTTL)
		app.trades = fetch.NewCoordinator(func(ctx context.Context, code string) (interface{}, error) {
			return dataStore.GetTrades(ctx, code)
		}, loadTTL)
	}
	return app
}

// LoadBars loads bars for a code through the coordinator.
func (a *App) LoadBars(ctx context.Context, code string) ([]models.Bar, error) {
	v, err := a.bars.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	return v.([]models.Bar), nil
}

// LoadTrades loads trade events for a code through the coordinator.
func (a *App) LoadTrades(ctx context.Context, code string) ([]models.TradeEvent, error) {
	v, err := a.trades.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	return v.([]models.TradeEvent), nil
}

// Invalidate drops cached loads for a code after an import changed it.
func (a *App) Invalidate(code string) {
	if a.bars != nil {
		a.bars.Invalidate(code)
	}
	if a.trades != nil {
		a.trades.Invalidate(code)
	}
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	var dataStore store.DataStore
	if s, err := store.NewSQLiteStore(cfg.Store.Path); err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, some commands may be unavailable")
	} else {
		dataStore = s
		logger.Debug().Str("path", cfg.Store.Path).Msg("SQLite store initialized")
	}

	app := newApp(cfg, logger, dataStore)

	rootCmd := &cobra.Command{
		Use:     "kabu-chart",
		Short:   "Position ledger and signal metrics for the charting dashboard",
		Long:    "Computes per-day position/PnL ledgers and moving-average signal metrics from stored bars and broker statements.",
		Version: Version,
	}

	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")

	rootCmd.AddCommand(newPositionsCmd(app))
	rootCmd.AddCommand(newRowsCmd(app))
	rootCmd.AddCommand(newSignalsCmd(app))
	rootCmd.AddCommand(newImportCmd(app))

	return rootCmd
}
