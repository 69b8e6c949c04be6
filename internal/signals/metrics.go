// Package signals computes moving-average trend and exhaustion metrics with
// hysteresis-protected streak counters.
package signals

import (
	"fmt"
	"sort"

	"kabu-chart/internal/marketdata"
	"kabu-chart/internal/models"
)

// DefaultMaxSignals is the chip list length used when the caller passes a
// non-positive limit.
const DefaultMaxSignals = 5

// Periods are the fixed moving-average windows, shortest first.
var Periods = []int{7, 20, 60, 100}

// achieveThreshold is roughly 80% of each period; a streak at or past it
// surfaces as a chip.
var achieveThreshold = map[int]int{7: 6, 20: 16, 60: 48, 100: 80}

var trendWeight = map[int]float64{7: 0.25, 20: 0.40, 60: 0.25, 100: 0.10}

var riskWeight = map[int]float64{7: 0.35, 20: 0.45, 60: 0.15, 100: 0.05}

// chip priority: longer periods first, achieved over warning.
var priorityBase = map[int]int{100: 40, 60: 30, 20: 20, 7: 10}

const achievedBonus = 50

// SignalLevel grades a chip.
type SignalLevel string

const (
	LevelWarning  SignalLevel = "warning"
	LevelAchieved SignalLevel = "achieved"
)

// Signal is one prioritized streak chip for the tile/detail UI.
type Signal struct {
	Period   int         `json:"period"`
	Side     Side        `json:"side"`
	Count    int         `json:"count"`
	Level    SignalLevel `json:"level"`
	Label    string      `json:"label"`
	Priority int         `json:"priority"`
}

// SignalMetrics is the full output of one ComputeSignalMetrics call.
type SignalMetrics struct {
	Counts         map[int]MaCountState `json:"counts"`
	Signals        []Signal             `json:"signals"`
	TrendStrength  float64              `json:"trendStrength"`
	ExhaustionRisk float64              `json:"exhaustionRisk"`
}

// ComputeSignalMetrics derives streak counters, the chip list, and the
// trend/exhaustion scores from raw daily bars. Bars may arrive in either
// order; unusable rows are skipped. Periods without enough bars simply omit
// their contribution. The call never fails.
func ComputeSignalMetrics(bars []models.Bar, maxSignals int) SignalMetrics {
	if maxSignals <= 0 {
		maxSignals = DefaultMaxSignals
	}
	clean := marketdata.SanitizeBars(bars)

	counts := make(map[int]MaCountState, len(Periods))
	for _, p := range Periods {
		counts[p] = computeStreak(clean, p)
	}

	return SignalMetrics{
		Counts:         counts,
		Signals:        buildSignals(counts, maxSignals),
		TrendStrength:  trendStrength(counts),
		ExhaustionRisk: exhaustionRisk(counts),
	}
}

// computeStreak walks the bars once with an O(1)-amortized sliding sum of the
// last p closes, updating the hysteresis counter from the first bar that has
// a full window.
func computeStreak(bars []models.Bar, period int) MaCountState {
	var state MaCountState
	var sum float64
	for i, b := range bars {
		sum += b.Close
		if i >= period {
			sum -= bars[i-period].Close
		}
		if i >= period-1 {
			state.Update(b.Close, sum/float64(period))
		}
	}
	return state
}

func buildSignals(counts map[int]MaCountState, maxSignals int) []Signal {
	var signals []Signal
	for _, p := range Periods {
		state := counts[p]
		side, count := state.Dominant()
		if side == SideNone || count < achieveThreshold[p] {
			continue
		}
		level := LevelWarning
		priority := priorityBase[p]
		if count >= p {
			level = LevelAchieved
			priority += achievedBonus
		}
		signals = append(signals, Signal{
			Period:   p,
			Side:     side,
			Count:    count,
			Level:    level,
			Label:    fmt.Sprintf("%d%s:%d", p, side, count),
			Priority: priority,
		})
	}

	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].Priority > signals[j].Priority
	})
	if len(signals) > maxSignals {
		signals = signals[:maxSignals]
	}
	return signals
}

// trendStrength blends signed streaks across periods into a [-100, 100]
// score; each period saturates once its streak reaches the period length.
func trendStrength(counts map[int]MaCountState) float64 {
	var score float64
	for _, p := range Periods {
		state := counts[p]
		streak := state.Streak()
		if streak == 0 {
			continue
		}
		mag := streak
		sign := 1.0
		if mag < 0 {
			mag = -mag
			sign = -1.0
		}
		if mag > p {
			mag = p
		}
		score += trendWeight[p] * sign * float64(mag) / float64(p)
	}
	return clamp(100*score, -100, 100)
}

// exhaustionRisk measures how deep each streak has run past its chip
// threshold, scaled to [0, 100].
func exhaustionRisk(counts map[int]MaCountState) float64 {
	var score float64
	for _, p := range Periods {
		state := counts[p]
		_, count := state.Dominant()
		thr := achieveThreshold[p]
		score += riskWeight[p] * clamp(float64(count-thr)/float64(p-thr), 0, 1)
	}
	return clamp(100*score, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
