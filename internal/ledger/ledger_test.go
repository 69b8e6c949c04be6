package ledger

import (
	"math"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"kabu-chart/internal/models"
)

const day = int64(86400)

// 2024-01-02 00:00:00 UTC
const baseDay = int64(1704153600)

func bar(t int64, close float64) models.Bar {
	return models.Bar{Time: t, Open: close, High: close, Low: close, Close: close}
}

func newTestEngine() *Engine {
	return New(nil, zerolog.Nop())
}

func TestComputeLongRoundTrip(t *testing.T) {
	bars := []models.Bar{
		bar(baseDay, 1000),
		bar(baseDay+day, 1100),
	}
	trades := []models.TradeEvent{
		{Date: baseDay, Side: models.TradeSideBuy, Action: models.TradeActionOpen, Units: 1, Price: 1000, Broker: "SBI証券", Account: "main"},
	}

	res := newTestEngine().Compute(bars, trades)

	if len(res.DailyPositions) != 2 {
		t.Fatalf("expected 2 daily positions, got %d", len(res.DailyPositions))
	}

	first := res.DailyPositions[0]
	if first.LongLots != 1 || first.AvgLongPrice != 1000 {
		t.Errorf("day 1: got longLots=%v avg=%v", first.LongLots, first.AvgLongPrice)
	}
	if first.UnrealizedPnL != 0 {
		t.Errorf("day 1: expected zero unrealized, got %v", first.UnrealizedPnL)
	}
	if first.PosText != "0-1" {
		t.Errorf("day 1: posText = %q", first.PosText)
	}
	if first.BrokerKey != "SBI/main" {
		t.Errorf("day 1: brokerKey = %q", first.BrokerKey)
	}

	second := res.DailyPositions[1]
	if second.UnrealizedPnL != 10000 {
		t.Errorf("day 2: expected unrealized 10000, got %v", second.UnrealizedPnL)
	}
	if second.TotalPnL != 10000 {
		t.Errorf("day 2: expected total 10000, got %v", second.TotalPnL)
	}
}

func TestComputeSellCloseRealizes(t *testing.T) {
	bars := []models.Bar{
		bar(baseDay, 1000),
		bar(baseDay+day, 1100),
	}
	trades := []models.TradeEvent{
		{Date: baseDay, Side: models.TradeSideBuy, Action: models.TradeActionOpen, Units: 2, Price: 1000},
		{Date: baseDay + day, Side: models.TradeSideSell, Action: models.TradeActionClose, Units: 1, Price: 1100},
	}

	res := newTestEngine().Compute(bars, trades)
	last := res.DailyPositions[1]

	if last.RealizedPnL != 10000 {
		t.Errorf("realized = %v, want 10000", last.RealizedPnL)
	}
	if last.LongLots != 1 {
		t.Errorf("longLots = %v, want 1", last.LongLots)
	}
	// one lot still open at 1000, marked to 1100
	if last.UnrealizedPnL != 10000 {
		t.Errorf("unrealized = %v, want 10000", last.UnrealizedPnL)
	}
	if last.AvgLongPrice != 1000 {
		t.Errorf("avgLong = %v, want 1000", last.AvgLongPrice)
	}
}

func TestComputeRealizedPnLNetOverride(t *testing.T) {
	override := 1234.5
	bars := []models.Bar{bar(baseDay, 1000), bar(baseDay+day, 1100)}
	trades := []models.TradeEvent{
		{Date: baseDay, Side: models.TradeSideBuy, Action: models.TradeActionOpen, Units: 1, Price: 1000},
		{Date: baseDay + day, Side: models.TradeSideSell, Action: models.TradeActionClose, Units: 1, Price: 1100, RealizedPnLNet: &override},
	}

	res := newTestEngine().Compute(bars, trades)
	if got := res.DailyPositions[1].RealizedPnL; got != override {
		t.Errorf("realized = %v, want override %v", got, override)
	}
}

func TestComputeShortBook(t *testing.T) {
	bars := []models.Bar{
		bar(baseDay, 1000),
		bar(baseDay+day, 900),
	}
	trades := []models.TradeEvent{
		{Date: baseDay, Side: models.TradeSideSell, Action: models.TradeActionOpen, Units: 1, Price: 1000},
		{Date: baseDay + day, Side: models.TradeSideBuy, Action: models.TradeActionClose, Units: 1, Price: 900},
	}

	res := newTestEngine().Compute(bars, trades)

	first := res.DailyPositions[0]
	if first.ShortLots != 1 || first.AvgShortPrice != 1000 {
		t.Errorf("day 1: shortLots=%v avgShort=%v", first.ShortLots, first.AvgShortPrice)
	}
	if first.PosText != "1-0" {
		t.Errorf("day 1: posText = %q", first.PosText)
	}

	last := res.DailyPositions[1]
	if last.RealizedPnL != 10000 {
		t.Errorf("realized = %v, want 10000", last.RealizedPnL)
	}
	if last.ShortLots != 0 || last.AvgShortPrice != 0 {
		t.Errorf("short book not settled: lots=%v avg=%v", last.ShortLots, last.AvgShortPrice)
	}
}

func TestComputeDeliveryExcludedFromMarker(t *testing.T) {
	bars := []models.Bar{
		bar(baseDay, 1000),
		bar(baseDay+day, 1100),
	}
	trades := []models.TradeEvent{
		{Date: baseDay, Side: models.TradeSideBuy, Action: models.TradeActionOpen, Units: 1, Price: 1000},
		{Date: baseDay + day, Side: models.TradeSideSell, Action: models.TradeActionClose, Units: 1, Price: 1100},
		{Date: baseDay + day, Side: models.TradeSideBuy, Action: models.TradeActionOpen, Units: 1, Price: 1100},
	}
	res := newTestEngine().Compute(bars, trades)
	realizedBefore := res.DailyPositions[1].RealizedPnL

	// Now deliver out the remaining lot on a third day.
	bars = append(bars, bar(baseDay+2*day, 1200))
	trades = append(trades, models.TradeEvent{
		Date: baseDay + 2 * day, Kind: models.TransferDelivery, Units: 1,
	})

	res = newTestEngine().Compute(bars, trades)
	last := res.DailyPositions[2]

	if last.LongLots != 0 {
		t.Errorf("longLots = %v, want 0 after delivery", last.LongLots)
	}
	if last.RealizedPnL != realizedBefore {
		t.Errorf("delivery changed realized: %v != %v", last.RealizedPnL, realizedBefore)
	}
	for _, m := range res.TradeMarkers {
		if m.Time == baseDay+2*day {
			t.Errorf("delivery day has a trade marker: %+v", m)
		}
	}
}

func TestComputeInboundOutbound(t *testing.T) {
	bars := []models.Bar{
		bar(baseDay, 500),
		bar(baseDay+day, 600),
	}
	trades := []models.TradeEvent{
		// Inbound without price enters at the day's close.
		{Date: baseDay, Kind: models.TransferInbound, Units: 2},
		{Date: baseDay + day, Kind: models.TransferOutbound, Units: 1},
	}

	res := newTestEngine().Compute(bars, trades)

	first := res.DailyPositions[0]
	if first.LongLots != 2 || first.AvgLongPrice != 500 {
		t.Errorf("inbound: longLots=%v avg=%v", first.LongLots, first.AvgLongPrice)
	}

	last := res.DailyPositions[1]
	if last.LongLots != 1 {
		t.Errorf("outbound: longLots = %v, want 1", last.LongLots)
	}
	if last.AvgLongPrice != 500 {
		t.Errorf("outbound changed avg price: %v", last.AvgLongPrice)
	}
	if len(res.TradeMarkers) != 0 {
		t.Errorf("transfers produced markers: %+v", res.TradeMarkers)
	}
}

func TestComputeTakeDeliveryNoEffect(t *testing.T) {
	bars := []models.Bar{bar(baseDay, 1000)}
	trades := []models.TradeEvent{
		{Date: baseDay, Side: models.TradeSideBuy, Action: models.TradeActionOpen, Units: 1, Price: 1000},
		{Date: baseDay, Kind: models.TransferTakeDelivery, Units: 5, Price: 1},
	}

	res := newTestEngine().Compute(bars, trades)
	p := res.DailyPositions[0]
	if p.LongLots != 1 || p.AvgLongPrice != 1000 {
		t.Errorf("take-delivery altered state: %+v", p)
	}
}

func TestComputeOverCloseClamps(t *testing.T) {
	bars := []models.Bar{bar(baseDay, 1000)}
	trades := []models.TradeEvent{
		{Date: baseDay, Side: models.TradeSideBuy, Action: models.TradeActionOpen, Units: 1, Price: 900},
		{Date: baseDay, Side: models.TradeSideSell, Action: models.TradeActionClose, Units: 5, Price: 1000},
	}

	res := newTestEngine().Compute(bars, trades)
	p := res.DailyPositions[0]
	if p.LongLots != 0 {
		t.Errorf("longLots = %v, want 0", p.LongLots)
	}
	if p.AvgLongPrice != 0 {
		t.Errorf("avgLong = %v, want reset to 0", p.AvgLongPrice)
	}
	// Only the held lot realizes.
	if p.RealizedPnL != 10000 {
		t.Errorf("realized = %v, want 10000", p.RealizedPnL)
	}
}

func TestComputeMalformedNumbersClamp(t *testing.T) {
	bars := []models.Bar{bar(baseDay, 1000)}
	trades := []models.TradeEvent{
		{Date: baseDay, Side: models.TradeSideBuy, Action: models.TradeActionOpen, Units: math.NaN(), Price: 1000},
		{Date: baseDay, Side: models.TradeSideBuy, Action: models.TradeActionOpen, Units: -3, Price: 1000},
		{Date: baseDay, Side: models.TradeSideBuy, Action: models.TradeActionOpen, Units: 1, Price: math.Inf(1)},
	}

	res := newTestEngine().Compute(bars, trades)
	p := res.DailyPositions[0]
	if p.LongLots != 1 {
		t.Errorf("longLots = %v, want 1", p.LongLots)
	}
	// price of the only counted lot clamped to 0
	if p.AvgLongPrice != 0 {
		t.Errorf("avgLong = %v, want 0", p.AvgLongPrice)
	}
	if math.IsNaN(p.UnrealizedPnL) || math.IsInf(p.UnrealizedPnL, 0) {
		t.Errorf("unrealized not finite: %v", p.UnrealizedPnL)
	}
}

func TestComputeMissingTradeDateWarns(t *testing.T) {
	bars := []models.Bar{bar(baseDay, 1000)}
	trades := []models.TradeEvent{
		{Date: baseDay + 7*day, Side: models.TradeSideBuy, Action: models.TradeActionOpen, Units: 1, Price: 1000},
	}

	res := newTestEngine().Compute(bars, trades)

	if len(res.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(res.Warnings))
	}
	// Unapplied trade leaves the ledger flat.
	if res.DailyPositions[0].LongLots != 0 {
		t.Errorf("trade without a bar was applied: %+v", res.DailyPositions[0])
	}
}

func TestComputeWarningsOrdered(t *testing.T) {
	bars := []models.Bar{bar(baseDay, 1000)}
	trades := []models.TradeEvent{
		{Date: baseDay + 5*day, Side: models.TradeSideBuy, Action: models.TradeActionOpen, Units: 1, Price: 1000},
		{Date: baseDay + 2*day, Side: models.TradeSideBuy, Action: models.TradeActionOpen, Units: 1, Price: 1000},
		{Date: baseDay + 9*day, Side: models.TradeSideSell, Action: models.TradeActionClose, Units: 1, Price: 1000},
		{Date: baseDay + 7*day, Side: models.TradeSideBuy, Action: models.TradeActionOpen, Units: 1, Price: 1000},
	}

	e := newTestEngine()
	first := e.Compute(bars, trades)
	if len(first.Warnings) != 4 {
		t.Fatalf("expected 4 warnings, got %d", len(first.Warnings))
	}
	for i := 1; i < len(first.Warnings); i++ {
		if first.Warnings[i-1].Date > first.Warnings[i].Date {
			t.Fatalf("warnings out of date order: %+v", first.Warnings)
		}
	}
	for i := 0; i < 100; i++ {
		if !reflect.DeepEqual(first, e.Compute(bars, trades)) {
			t.Fatalf("iteration %d: repeated compute differs", i)
		}
	}
}

func TestComputeDuplicateDayBars(t *testing.T) {
	bars := []models.Bar{
		bar(baseDay, 1000),
		bar(baseDay+3600, 1010), // same trading day, later close wins
		bar(baseDay+day, 1100),
	}
	trades := []models.TradeEvent{
		{Date: baseDay, Side: models.TradeSideBuy, Action: models.TradeActionOpen, Units: 1, Price: 1000},
	}

	res := newTestEngine().Compute(bars, trades)

	if len(res.DailyPositions) != 2 {
		t.Fatalf("expected one snapshot per day, got %d", len(res.DailyPositions))
	}
	first := res.DailyPositions[0]
	if first.LongLots != 1 {
		t.Errorf("longLots = %v, want 1 (trade applied once)", first.LongLots)
	}
	if first.UnrealizedPnL != 1000 {
		t.Errorf("unrealized = %v, want 1000 marked to the surviving close", first.UnrealizedPnL)
	}
}

func TestComputeBrokerGroupsIndependent(t *testing.T) {
	bars := []models.Bar{bar(baseDay, 1000)}
	trades := []models.TradeEvent{
		{Date: baseDay, Side: models.TradeSideBuy, Action: models.TradeActionOpen, Units: 1, Price: 1000, Broker: "SBI", Account: "a"},
		{Date: baseDay, Side: models.TradeSideBuy, Action: models.TradeActionOpen, Units: 2, Price: 1000, Broker: "楽天 rakuten", Account: "a"},
	}

	res := newTestEngine().Compute(bars, trades)

	if len(res.DailyPositions) != 2 {
		t.Fatalf("expected a snapshot per group, got %d", len(res.DailyPositions))
	}
	byKey := map[string]float64{}
	for _, p := range res.DailyPositions {
		byKey[p.BrokerKey] = p.LongLots
	}
	if byKey["SBI/a"] != 1 || byKey["RAKUTEN/a"] != 2 {
		t.Errorf("unexpected group lots: %v", byKey)
	}
}

func TestComputeMarkerAggregation(t *testing.T) {
	bars := []models.Bar{bar(baseDay, 1000)}
	trades := []models.TradeEvent{
		{Date: baseDay, Side: models.TradeSideBuy, Action: models.TradeActionOpen, Units: 2, Price: 1000},
		{Date: baseDay, Side: models.TradeSideSell, Action: models.TradeActionClose, Units: 1, Price: 1010},
		{Date: baseDay, Kind: models.TransferInbound, Units: 4, Price: 990},
	}

	res := newTestEngine().Compute(bars, trades)
	if len(res.TradeMarkers) != 1 {
		t.Fatalf("expected 1 marker, got %d", len(res.TradeMarkers))
	}
	m := res.TradeMarkers[0]
	if m.BuyLots != 2 || m.SellLots != 1 {
		t.Errorf("tally = buy %v / sell %v, want 2 / 1", m.BuyLots, m.SellLots)
	}
	if len(m.Trades) != 2 {
		t.Errorf("marker retained %d trades, want 2 non-transfer", len(m.Trades))
	}
}

func TestComputeEmptyInputs(t *testing.T) {
	res := newTestEngine().Compute(nil, nil)
	if len(res.DailyPositions) != 0 || len(res.TradeMarkers) != 0 || len(res.Warnings) != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
}

func TestComputeDeterministic(t *testing.T) {
	bars := []models.Bar{
		bar(baseDay, 1000), bar(baseDay+day, 1050), bar(baseDay+2*day, 990),
	}
	trades := []models.TradeEvent{
		{Date: baseDay, Side: models.TradeSideBuy, Action: models.TradeActionOpen, Units: 2, Price: 1000, Broker: "sbi", Account: "x"},
		{Date: baseDay + day, Side: models.TradeSideSell, Action: models.TradeActionClose, Units: 1, Price: 1050, Broker: "sbi", Account: "x"},
		{Date: baseDay + day, Side: models.TradeSideSell, Action: models.TradeActionOpen, Units: 1, Price: 1050, Broker: "rakuten", Account: "y"},
	}

	e := newTestEngine()
	a := e.Compute(bars, trades)
	b := e.Compute(bars, trades)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("repeated computes differ")
	}
}
