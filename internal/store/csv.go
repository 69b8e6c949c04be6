package store

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"kabu-chart/internal/errors"
	"kabu-chart/internal/models"
)

// tradeRecord is the CSV shape of a broker statement line.
type tradeRecord struct {
	Date           string  `csv:"date"`
	Side           string  `csv:"side"`
	Action         string  `csv:"action"`
	Units          float64 `csv:"units"`
	Price          float64 `csv:"price"`
	Kind           string  `csv:"kind"`
	Broker         string  `csv:"broker"`
	Account        string  `csv:"account"`
	RealizedPnLNet string  `csv:"realized_pnl_net"`
}

// barRecord is the CSV shape of one daily bar line.
type barRecord struct {
	Date   string  `csv:"date"`
	Open   float64 `csv:"open"`
	High   float64 `csv:"high"`
	Low    float64 `csv:"low"`
	Close  float64 `csv:"close"`
	Volume int64   `csv:"volume"`
}

const csvDateLayout = "2006-01-02"

// ImportTradesCSV parses a broker statement CSV into trade events. Dates are
// "YYYY-MM-DD" and become epoch seconds at UTC midnight.
func ImportTradesCSV(r io.Reader) ([]models.TradeEvent, error) {
	var records []*tradeRecord
	if err := gocsv.Unmarshal(r, &records); err != nil {
		return nil, errors.Wrap(errors.ErrInvalidCSV, err.Error())
	}

	trades := make([]models.TradeEvent, 0, len(records))
	for i, rec := range records {
		date, err := parseCSVDate(rec.Date)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+2, err)
		}
		t := models.TradeEvent{
			Date:    date,
			Side:    models.TradeSide(strings.ToUpper(strings.TrimSpace(rec.Side))),
			Action:  models.TradeAction(strings.ToUpper(strings.TrimSpace(rec.Action))),
			Units:   rec.Units,
			Price:   rec.Price,
			Kind:    models.ParseTransferKind(strings.TrimSpace(rec.Kind)),
			Broker:  rec.Broker,
			Account: rec.Account,
		}
		if v := strings.TrimSpace(rec.RealizedPnLNet); v != "" {
			pnl, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: realized_pnl_net %q: %w", i+2, v, err)
			}
			t.RealizedPnLNet = &pnl
		}
		trades = append(trades, t)
	}
	return trades, nil
}

// ImportBarsCSV parses a daily OHLCV CSV into bars.
func ImportBarsCSV(r io.Reader) ([]models.Bar, error) {
	var records []*barRecord
	if err := gocsv.Unmarshal(r, &records); err != nil {
		return nil, errors.Wrap(errors.ErrInvalidCSV, err.Error())
	}

	bars := make([]models.Bar, 0, len(records))
	for i, rec := range records {
		t, err := parseCSVDate(rec.Date)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+2, err)
		}
		bars = append(bars, models.Bar{
			Time:   t,
			Open:   rec.Open,
			High:   rec.High,
			Low:    rec.Low,
			Close:  rec.Close,
			Volume: rec.Volume,
		})
	}
	return bars, nil
}

// ExportTradesCSV writes trade events in the statement CSV shape.
func ExportTradesCSV(w io.Writer, trades []models.TradeEvent) error {
	records := make([]*tradeRecord, 0, len(trades))
	for _, t := range trades {
		rec := &tradeRecord{
			Date:    time.Unix(t.Date, 0).UTC().Format(csvDateLayout),
			Side:    string(t.Side),
			Action:  string(t.Action),
			Units:   t.Units,
			Price:   t.Price,
			Kind:    t.Kind.String(),
			Broker:  t.Broker,
			Account: t.Account,
		}
		if t.RealizedPnLNet != nil {
			rec.RealizedPnLNet = strconv.FormatFloat(*t.RealizedPnLNet, 'f', -1, 64)
		}
		records = append(records, rec)
	}
	return gocsv.Marshal(&records, w)
}

func parseCSVDate(s string) (int64, error) {
	t, err := time.Parse(csvDateLayout, strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return t.Unix(), nil
}
