package ledger

import (
	"kabu-chart/internal/marketdata"
	"kabu-chart/internal/models"
)

// bookState is the fold accumulator for one broker group. avgLong is nonzero
// only while longLots > 0 and resets to 0 exactly when longLots returns to 0;
// same for the short book.
type bookState struct {
	longLots  float64
	shortLots float64
	avgLong   float64
	avgShort  float64
	realized  float64
}

// apply folds one trade into the state and returns the realized P&L delta.
// fallbackPrice is the day's close, used when an inbound transfer carries no
// price. Malformed units/prices clamp to 0; over-closing clamps to the held
// quantity; weighted averages short-circuit to 0 instead of dividing by zero.
func (s *bookState) apply(t models.TradeEvent, fallbackPrice float64) float64 {
	units := marketdata.ClampNonNegative(t.Units)
	price := marketdata.ClampNonNegative(t.Price)

	switch t.Kind {
	case models.TransferDelivery:
		// Physical delivery settles both books, no price effect.
		s.longLots = floorZero(s.longLots - units)
		s.shortLots = floorZero(s.shortLots - units)
		s.settleAverages()
		return 0
	case models.TransferTakeDelivery:
		return 0
	case models.TransferInbound:
		in := price
		if in == 0 {
			in = marketdata.ClampNonNegative(fallbackPrice)
		}
		s.avgLong = weightedAvg(s.avgLong, s.longLots, in, units)
		s.longLots += units
		return 0
	case models.TransferOutbound:
		s.longLots = floorZero(s.longLots - units)
		s.settleAverages()
		return 0
	}

	switch {
	case t.Side == models.TradeSideBuy && t.Action == models.TradeActionOpen:
		s.avgLong = weightedAvg(s.avgLong, s.longLots, price, units)
		s.longLots += units
		return 0
	case t.Side == models.TradeSideSell && t.Action == models.TradeActionClose:
		closed := minFloat(units, s.longLots)
		delta := (price - s.avgLong) * closed * models.LotMultiplier
		if t.RealizedPnLNet != nil && marketdata.IsFinite(*t.RealizedPnLNet) {
			delta = *t.RealizedPnLNet
		}
		s.longLots = floorZero(s.longLots - closed)
		s.settleAverages()
		s.realized += delta
		return delta
	case t.Side == models.TradeSideSell && t.Action == models.TradeActionOpen:
		s.avgShort = weightedAvg(s.avgShort, s.shortLots, price, units)
		s.shortLots += units
		return 0
	case t.Side == models.TradeSideBuy && t.Action == models.TradeActionClose:
		closed := minFloat(units, s.shortLots)
		delta := (s.avgShort - price) * closed * models.LotMultiplier
		if t.RealizedPnLNet != nil && marketdata.IsFinite(*t.RealizedPnLNet) {
			delta = *t.RealizedPnLNet
		}
		s.shortLots = floorZero(s.shortLots - closed)
		s.settleAverages()
		s.realized += delta
		return delta
	}

	// Unrecognized side/action combination leaves the books untouched.
	return 0
}

// unrealized marks both books to the given close.
func (s *bookState) unrealized(close float64) float64 {
	var pnl float64
	if s.longLots > 0 {
		pnl += (close - s.avgLong) * s.longLots * models.LotMultiplier
	}
	if s.shortLots > 0 {
		pnl += (s.avgShort - close) * s.shortLots * models.LotMultiplier
	}
	return pnl
}

// settleAverages resets an average entry price whenever its book empties.
func (s *bookState) settleAverages() {
	if s.longLots == 0 {
		s.avgLong = 0
	}
	if s.shortLots == 0 {
		s.avgShort = 0
	}
}

func (s *bookState) snapshot(t int64, brokerKey string, close float64) models.DailyPosition {
	unrealized := s.unrealized(close)
	return models.DailyPosition{
		Time:          t,
		BrokerKey:     brokerKey,
		LongLots:      s.longLots,
		ShortLots:     s.shortLots,
		AvgLongPrice:  s.avgLong,
		AvgShortPrice: s.avgShort,
		RealizedPnL:   s.realized,
		UnrealizedPnL: unrealized,
		TotalPnL:      s.realized + unrealized,
		PosText:       models.PositionText(s.shortLots, s.longLots),
	}
}

// weightedAvg blends an existing average with an added lot at px. A zero
// total short-circuits to 0 rather than dividing by zero.
func weightedAvg(avg, lots, px, addedLots float64) float64 {
	total := lots + addedLots
	if total <= 0 {
		return 0
	}
	return (avg*lots + px*addedLots) / total
}

func floorZero(f float64) float64 {
	if f < 0 {
		return 0
	}
	return f
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
