// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"kabu-chart/internal/models"
)

// DataStore defines the interface for bar and trade-event persistence. Both
// Get methods return series sorted ascending, the ordering the engines
// expect.
type DataStore interface {
	SaveBars(ctx context.Context, code string, bars []models.Bar) error
	GetBars(ctx context.Context, code string) ([]models.Bar, error)

	SaveTrades(ctx context.Context, code string, trades []models.TradeEvent) error
	GetTrades(ctx context.Context, code string) ([]models.TradeEvent, error)

	Close() error
}
