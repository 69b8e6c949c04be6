package cli

import (
	"fmt"
	"strings"
	"time"
)

// FormatYen formats an amount as Japanese yen with thousands separators.
func FormatYen(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	str := fmt.Sprintf("%.0f", amount)
	result := "¥" + groupThousands(str)
	if negative {
		result = "-" + result
	}
	return result
}

func groupThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	var parts []string
	for n > 3 {
		parts = append([]string{s[n-3:]}, parts...)
		s = s[:n-3]
		n = len(s)
	}
	return s + "," + strings.Join(parts, ",")
}

// FormatDay formats an epoch-second trading day as YYYY-MM-DD.
func FormatDay(t int64) string {
	return time.Unix(t, 0).UTC().Format("2006-01-02")
}

// FormatPrice formats a price with two decimals, or "-" for an empty book.
func FormatPrice(p float64) string {
	if p == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f", p)
}
