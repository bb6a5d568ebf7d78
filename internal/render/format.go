package render

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatMoney formats v as dollars with thousands separators and two
// decimals, e.g. $89,795.00.
func FormatMoney(v float64) string {
	if v < 0 {
		return "-$" + humanize.FormatFloat("#,###.##", -v)
	}
	return "$" + humanize.FormatFloat("#,###.##", v)
}

// FormatPercent formats a percentage with an explicit sign, e.g. +1.25%.
func FormatPercent(p float64) string {
	if p >= 0 {
		return fmt.Sprintf("+%.2f%%", p)
	}
	return fmt.Sprintf("%.2f%%", p)
}

// FormatVolatility renders a fractional volatility as a percentage with
// one decimal: 0.012 is 1.2%.
func FormatVolatility(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

// FormatQuantity drops the fraction of whole quantities.
func FormatQuantity(q float64) string {
	if q == math.Trunc(q) {
		return humanize.Comma(int64(q))
	}
	return humanize.FormatFloat("#,###.####", q)
}

// Finished is shown once the competition has ended.
const Finished = "FINALIZADO"

// Countdown formats the time left until end as DDd HHh MMm SSs, or
// Finished when end has passed.
func Countdown(now, end time.Time) string {
	d := end.Sub(now)
	if d < 0 {
		return Finished
	}
	total := int64(d / time.Second)
	days := total / 86400
	hours := total % 86400 / 3600
	minutes := total % 3600 / 60
	seconds := total % 60
	return fmt.Sprintf("%02dd %02dh %02dm %02ds", days, hours, minutes, seconds)
}
