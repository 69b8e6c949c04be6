// Package marketdata provides bar and trading-day normalization helpers
// shared by the ledger and signal engines.
package marketdata

import (
	"math"
	"sort"

	"kabu-chart/internal/models"
)

const secondsPerDay = 86400

// DayKey truncates an epoch-second timestamp to its UTC trading day.
func DayKey(t int64) int64 {
	if t < 0 {
		return t - (secondsPerDay+t%secondsPerDay)%secondsPerDay
	}
	return t - t%secondsPerDay
}

// IsFinite reports whether f is a usable number.
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ClampNonNegative coerces a non-finite or negative value to 0.
func ClampNonNegative(f float64) float64 {
	if !IsFinite(f) || f < 0 {
		return 0
	}
	return f
}

// SanitizeBars returns bars in ascending time order with unusable rows
// dropped and days de-duplicated. A descending input is reversed rather than
// resorted, matching how chart feeds usually arrive; anything else gets a
// full sort. Rows with any non-finite OHLC field are skipped; when several
// bars fall on one trading day, the last one in ascending order wins. The
// input slice is never mutated.
func SanitizeBars(bars []models.Bar) []models.Bar {
	out := make([]models.Bar, 0, len(bars))
	for _, b := range bars {
		if !IsFinite(b.Open) || !IsFinite(b.High) || !IsFinite(b.Low) || !IsFinite(b.Close) {
			continue
		}
		out = append(out, b)
	}

	if isDescending(out) {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	} else if !sort.SliceIsSorted(out, func(i, j int) bool { return out[i].Time < out[j].Time }) {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	}
	return dedupDays(out)
}

// dedupDays keeps the last bar per trading day of an ascending slice.
func dedupDays(bars []models.Bar) []models.Bar {
	n := 0
	for _, b := range bars {
		if n > 0 && DayKey(b.Time) == DayKey(bars[n-1].Time) {
			bars[n-1] = b
			continue
		}
		bars[n] = b
		n++
	}
	return bars[:n]
}

func isDescending(bars []models.Bar) bool {
	if len(bars) < 2 {
		return false
	}
	for i := 1; i < len(bars); i++ {
		if bars[i].Time > bars[i-1].Time {
			return false
		}
	}
	return true
}

// BarIndex maps trading-day keys to bar positions for trade/date matching.
func BarIndex(bars []models.Bar) map[int64]int {
	idx := make(map[int64]int, len(bars))
	for i, b := range bars {
		idx[DayKey(b.Time)] = i
	}
	return idx
}
