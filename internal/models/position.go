package models

import "strconv"

// DailyPosition is an immutable per-bar snapshot of one broker group's
// ledger state after that day's trades were applied.
type DailyPosition struct {
	Time          int64   `json:"time"`
	BrokerKey     string  `json:"brokerKey"`
	LongLots      float64 `json:"longLots"`
	ShortLots     float64 `json:"shortLots"`
	AvgLongPrice  float64 `json:"avgLongPrice"`
	AvgShortPrice float64 `json:"avgShortPrice"`
	RealizedPnL   float64 `json:"realizedPnl"`
	UnrealizedPnL float64 `json:"unrealizedPnl"`
	TotalPnL      float64 `json:"totalPnl"`
	PosText       string  `json:"posText"`
}

// TradeMarker aggregates one broker group's same-day non-transfer trades for
// chart overlay rendering.
type TradeMarker struct {
	Time      int64        `json:"time"`
	BrokerKey string       `json:"brokerKey"`
	BuyLots   float64      `json:"buyLots"`
	SellLots  float64      `json:"sellLots"`
	Trades    []TradeEvent `json:"trades"`
}

// PositionLedgerRow is the row-audit view: ledger state immediately after
// applying one trade, with the trade's realized delta and running totals.
type PositionLedgerRow struct {
	Trade         TradeEvent `json:"trade"`
	BrokerKey     string     `json:"brokerKey"`
	LongLots      float64    `json:"longLots"`
	ShortLots     float64    `json:"shortLots"`
	AvgLongPrice  float64    `json:"avgLongPrice"`
	AvgShortPrice float64    `json:"avgShortPrice"`
	RealizedDelta float64    `json:"realizedDelta"`
	RealizedPnL   float64    `json:"realizedPnl"`
}

// PositionText renders the compact "{shortLots}-{longLots}" position label.
func PositionText(shortLots, longLots float64) string {
	return FormatLots(shortLots) + "-" + FormatLots(longLots)
}

// FormatLots renders a lot count without trailing zeros.
func FormatLots(lots float64) string {
	return strconv.FormatFloat(lots, 'f', -1, 64)
}
