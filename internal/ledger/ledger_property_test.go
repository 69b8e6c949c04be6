package ledger

import (
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"

	"kabu-chart/internal/broker"
	"kabu-chart/internal/models"
)

// Property: for any trade list over a fixed bar window, lot counts never go
// negative, average prices reset exactly when their book empties, computes
// are deterministic, and running broker partitions separately then merging
// equals running the combined list once.

const propDays = 10

func propBars() []models.Bar {
	bars := make([]models.Bar, propDays)
	for i := range bars {
		close := 1000 + float64(i*10)
		bars[i] = models.Bar{Time: baseDay + int64(i)*day, Open: close, High: close, Low: close, Close: close}
	}
	return bars
}

func tradeGen() gopter.Gen {
	return gen.Struct(reflect.TypeOf(models.TradeEvent{}), map[string]gopter.Gen{
		"Date": gen.Int64Range(0, propDays+1).Map(func(i int64) int64 {
			// occasionally lands past the bar window to exercise warnings
			return baseDay + i*day
		}),
		"Side":   gen.OneConstOf(models.TradeSideBuy, models.TradeSideSell),
		"Action": gen.OneConstOf(models.TradeActionOpen, models.TradeActionClose),
		"Units":  gen.Float64Range(0, 5),
		"Price":  gen.Float64Range(100, 2000),
		"Kind": gen.OneConstOf(
			models.TransferNone, models.TransferNone, models.TransferNone, models.TransferNone,
			models.TransferDelivery, models.TransferTakeDelivery,
			models.TransferInbound, models.TransferOutbound,
		),
		"Broker":  gen.OneConstOf("SBI証券", "Rakuten", "Monex", ""),
		"Account": gen.OneConstOf("main", "nisa"),
	})
}

func tradesGen(maxLen int) gopter.Gen {
	return gen.SliceOfN(maxLen, tradeGen())
}

func TestProperty_LotsNeverNegative(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())
	parameters.MaxShrinkCount = 0

	properties := gopter.NewProperties(parameters)
	bars := propBars()
	engine := New(nil, zerolog.Nop())

	properties.Property("long and short lots stay non-negative", prop.ForAll(
		func(trades []models.TradeEvent) bool {
			res := engine.Compute(bars, trades)
			for _, p := range res.DailyPositions {
				if p.LongLots < 0 || p.ShortLots < 0 {
					return false
				}
			}
			for _, r := range engine.ComputeRows(trades) {
				if r.LongLots < 0 || r.ShortLots < 0 {
					return false
				}
			}
			return true
		},
		tradesGen(30),
	))

	properties.TestingRun(t)
}

func TestProperty_AveragePriceResetsWithEmptyBook(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())
	parameters.MaxShrinkCount = 0

	properties := gopter.NewProperties(parameters)
	bars := propBars()
	engine := New(nil, zerolog.Nop())

	properties.Property("avg price is zero exactly while its book is empty", prop.ForAll(
		func(trades []models.TradeEvent) bool {
			res := engine.Compute(bars, trades)
			for _, p := range res.DailyPositions {
				if p.LongLots == 0 && p.AvgLongPrice != 0 {
					return false
				}
				if p.ShortLots == 0 && p.AvgShortPrice != 0 {
					return false
				}
			}
			return true
		},
		tradesGen(30),
	))

	properties.TestingRun(t)
}

func TestProperty_ComputeDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())
	parameters.MaxShrinkCount = 0

	properties := gopter.NewProperties(parameters)
	bars := propBars()
	engine := New(nil, zerolog.Nop())

	properties.Property("identical inputs yield deep-equal outputs", prop.ForAll(
		func(trades []models.TradeEvent) bool {
			a := engine.Compute(bars, trades)
			b := engine.Compute(bars, trades)
			return reflect.DeepEqual(a, b)
		},
		tradesGen(30),
	))

	properties.TestingRun(t)
}

func TestProperty_BrokerPartitionsIsolated(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())
	parameters.MaxShrinkCount = 0

	properties := gopter.NewProperties(parameters)
	bars := propBars()
	classifier := broker.NewAliasClassifier()
	engine := New(classifier, zerolog.Nop())

	properties.Property("split-per-broker runs merge to the combined run", prop.ForAll(
		func(trades []models.TradeEvent) bool {
			combined := engine.Compute(bars, trades)

			partitions := make(map[string][]models.TradeEvent)
			var keys []string
			for _, tr := range trades {
				key := classifier.GroupKey(tr.Broker, tr.Account)
				if _, ok := partitions[key]; !ok {
					keys = append(keys, key)
				}
				partitions[key] = append(partitions[key], tr)
			}

			var merged []models.DailyPosition
			for _, key := range keys {
				part := engine.Compute(bars, partitions[key])
				merged = append(merged, part.DailyPositions...)
			}
			sort.SliceStable(merged, func(i, j int) bool {
				if merged[i].Time != merged[j].Time {
					return merged[i].Time < merged[j].Time
				}
				return merged[i].BrokerKey < merged[j].BrokerKey
			})

			return reflect.DeepEqual(combined.DailyPositions, merged)
		},
		tradesGen(24),
	))

	properties.TestingRun(t)
}
