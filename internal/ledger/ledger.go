// Package ledger implements the position/PnL accounting engine. It folds a
// chronological list of trade events over a daily bar series, per broker
// group, and emits per-bar position snapshots, per-day trade markers, and a
// per-trade audit view.
package ledger

import (
	"sort"

	"github.com/rs/zerolog"

	"kabu-chart/internal/broker"
	"kabu-chart/internal/marketdata"
	"kabu-chart/internal/models"
)

// Engine computes ledgers. It is pure and stateless: every call recomputes
// from the full inputs, so one Engine is safe to share across goroutines.
type Engine struct {
	classifier broker.Classifier
	log        zerolog.Logger
}

// New creates a ledger engine. A nil classifier falls back to the default
// alias classifier.
func New(classifier broker.Classifier, log zerolog.Logger) *Engine {
	if classifier == nil {
		classifier = broker.NewAliasClassifier()
	}
	return &Engine{classifier: classifier, log: log}
}

// Result holds the merged per-group outputs of one Compute call. All three
// slices are sorted by (time, group key), so repeated computes on identical
// inputs are deep-equal.
type Result struct {
	DailyPositions []models.DailyPosition
	TradeMarkers   []models.TradeMarker
	Warnings       []Warning
}

// Warning is a non-fatal data-quality note. It never alters the computed
// values; a trade whose date has no matching bar is simply never applied.
type Warning struct {
	BrokerKey string
	Date      int64
	Message   string
}

// tradeGroup keeps one broker group's trades in input order.
type tradeGroup struct {
	key    string
	trades []models.TradeEvent
}

// Compute walks bars ascending per broker group and emits one DailyPosition
// per bar per group plus a TradeMarker for every day a group had non-transfer
// trades. Bars are sanitized first, so callers may pass raw feed order and
// duplicate-day rows.
func (e *Engine) Compute(bars []models.Bar, trades []models.TradeEvent) Result {
	bars = marketdata.SanitizeBars(bars)
	groups := e.partition(trades)

	var res Result
	for _, g := range groups {
		e.computeGroup(bars, g, &res)
	}

	sort.SliceStable(res.DailyPositions, func(i, j int) bool {
		a, b := res.DailyPositions[i], res.DailyPositions[j]
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		return a.BrokerKey < b.BrokerKey
	})
	sort.SliceStable(res.TradeMarkers, func(i, j int) bool {
		a, b := res.TradeMarkers[i], res.TradeMarkers[j]
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		return a.BrokerKey < b.BrokerKey
	})
	sort.SliceStable(res.Warnings, func(i, j int) bool {
		a, b := res.Warnings[i], res.Warnings[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		return a.BrokerKey < b.BrokerKey
	})

	for _, w := range res.Warnings {
		e.log.Warn().
			Str("broker_key", w.BrokerKey).
			Int64("date", w.Date).
			Msg(w.Message)
	}
	return res
}

// partition splits trades into broker groups, preserving input order within
// each group and first-seen order across groups.
func (e *Engine) partition(trades []models.TradeEvent) []tradeGroup {
	byKey := make(map[string]int)
	var groups []tradeGroup
	for _, t := range trades {
		key := e.classifier.GroupKey(t.Broker, t.Account)
		i, ok := byKey[key]
		if !ok {
			i = len(groups)
			byKey[key] = i
			groups = append(groups, tradeGroup{key: key})
		}
		groups[i].trades = append(groups[i].trades, t)
	}
	return groups
}

func (e *Engine) computeGroup(bars []models.Bar, g tradeGroup, res *Result) {
	byDay := make(map[int64][]models.TradeEvent)
	for _, t := range g.trades {
		day := marketdata.DayKey(t.Date)
		byDay[day] = append(byDay[day], t)
	}

	barIdx := marketdata.BarIndex(bars)
	for day := range byDay {
		if _, ok := barIdx[day]; !ok {
			res.Warnings = append(res.Warnings, Warning{
				BrokerKey: g.key,
				Date:      day,
				Message:   "trade date not found among bars",
			})
		}
	}

	var state bookState
	for _, bar := range bars {
		day := marketdata.DayKey(bar.Time)
		dayTrades := byDay[day]

		var buyLots, sellLots float64
		var marked []models.TradeEvent
		for _, t := range dayTrades {
			state.apply(t, bar.Close)
			if t.Kind.IsTransfer() {
				continue
			}
			units := marketdata.ClampNonNegative(t.Units)
			if t.Side == models.TradeSideBuy {
				buyLots += units
			} else if t.Side == models.TradeSideSell {
				sellLots += units
			}
			marked = append(marked, t)
		}

		res.DailyPositions = append(res.DailyPositions, state.snapshot(bar.Time, g.key, bar.Close))
		if len(marked) > 0 {
			res.TradeMarkers = append(res.TradeMarkers, models.TradeMarker{
				Time:      bar.Time,
				BrokerKey: g.key,
				BuyLots:   buyLots,
				SellLots:  sellLots,
				Trades:    marked,
			})
		}
	}
}
