// Package models provides domain models for the charting dashboard engines.
package models

// LotMultiplier is the number of underlying shares per lot. All P&L that
// derives from a price delta is scaled by this factor.
const LotMultiplier = 100

// TradeSide represents the side of a trade event.
type TradeSide string

const (
	TradeSideBuy  TradeSide = "BUY"
	TradeSideSell TradeSide = "SELL"
)

// TradeAction represents whether a trade opens or closes a position.
type TradeAction string

const (
	TradeActionOpen  TradeAction = "OPEN"
	TradeActionClose TradeAction = "CLOSE"
)

// TransferKind is the closed set of non-ordinary trade kinds. The zero value
// TransferNone marks an ordinary buy/sell trade; a kind string a statement
// file carries that is not one of the known kinds parses to TransferNone and
// gets ordinary-trade handling.
type TransferKind int

const (
	TransferNone TransferKind = iota
	TransferDelivery
	TransferTakeDelivery
	TransferInbound
	TransferOutbound
)

// String returns the statement-file spelling of the kind.
func (k TransferKind) String() string {
	switch k {
	case TransferDelivery:
		return "DELIVERY"
	case TransferTakeDelivery:
		return "TAKE_DELIVERY"
	case TransferInbound:
		return "INBOUND"
	case TransferOutbound:
		return "OUTBOUND"
	default:
		return ""
	}
}

// ParseTransferKind maps a statement-file kind string to a TransferKind.
func ParseTransferKind(s string) TransferKind {
	switch s {
	case "DELIVERY":
		return TransferDelivery
	case "TAKE_DELIVERY":
		return TransferTakeDelivery
	case "INBOUND":
		return TransferInbound
	case "OUTBOUND":
		return TransferOutbound
	default:
		return TransferNone
	}
}

// IsTransfer reports whether the kind is excluded from the visual buy/sell
// tally on the chart.
func (k TransferKind) IsTransfer() bool {
	return k != TransferNone
}

// Bar represents one daily OHLCV bar. Time is Unix epoch seconds aligned to
// the trading day.
type Bar struct {
	Time   int64   `json:"time" csv:"time"`
	Open   float64 `json:"open" csv:"open"`
	High   float64 `json:"high" csv:"high"`
	Low    float64 `json:"low" csv:"low"`
	Close  float64 `json:"close" csv:"close"`
	Volume int64   `json:"volume" csv:"volume"`
}

// TradeEvent represents one buy/sell or transfer event from a broker
// statement. Units are lots. RealizedPnLNet, when present, is the broker's
// authoritative net figure and overrides the computed realized delta.
type TradeEvent struct {
	ID             string       `json:"id,omitempty"`
	Date           int64        `json:"date"`
	Side           TradeSide    `json:"side"`
	Action         TradeAction  `json:"action"`
	Units          float64      `json:"units"`
	Price          float64      `json:"price"`
	Kind           TransferKind `json:"kind,omitempty"`
	Broker         string       `json:"broker"`
	Account        string       `json:"account"`
	RealizedPnLNet *float64     `json:"realizedPnlNet,omitempty"`
}
