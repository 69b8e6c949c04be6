package ledger

import (
	"sort"

	"kabu-chart/internal/marketdata"
	"kabu-chart/internal/models"
)

// actionPriority orders same-day trades for the audit view: opens settle
// before closes, anything else last.
func actionPriority(a models.TradeAction) int {
	switch a {
	case models.TradeActionOpen:
		return 0
	case models.TradeActionClose:
		return 1
	default:
		return 2
	}
}

// ComputeRows produces the per-trade audit view: trades ordered by (date,
// action priority, input order), one row per trade with the ledger state
// immediately after applying it. Rows fold a single shared ledger; callers
// wanting per-account audit trails filter the trade list first.
func (e *Engine) ComputeRows(trades []models.TradeEvent) []models.PositionLedgerRow {
	ordered := make([]models.TradeEvent, len(trades))
	copy(ordered, trades)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		da, db := marketdata.DayKey(a.Date), marketdata.DayKey(b.Date)
		if da != db {
			return da < db
		}
		return actionPriority(a.Action) < actionPriority(b.Action)
	})

	var state bookState
	rows := make([]models.PositionLedgerRow, 0, len(ordered))
	for _, t := range ordered {
		// No bar context here, so an inbound transfer without a price
		// enters the book at 0.
		delta := state.apply(t, t.Price)
		rows = append(rows, models.PositionLedgerRow{
			Trade:         t,
			BrokerKey:     e.classifier.GroupKey(t.Broker, t.Account),
			LongLots:      state.longLots,
			ShortLots:     state.shortLots,
			AvgLongPrice:  state.avgLong,
			AvgShortPrice: state.avgShort,
			RealizedDelta: delta,
			RealizedPnL:   state.realized,
		})
	}
	return rows
}
