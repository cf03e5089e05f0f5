// Package season computes the canonical lease season windows.
// Berth leases run 10.6-14.9, winter storage leases 15.9-10.6.
package season

import (
	"fmt"
	"time"
)

const (
	summerStartDay, summerStartMonth = 10, time.June
	summerEndDay, summerEndMonth     = 14, time.September
	winterStartDay, winterStartMonth = 15, time.September
	winterEndDay, winterEndMonth     = 10, time.June
)

func dateOf(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// SummerStart returns the start of the summer season for the year of ref.
// When ref is past that year's season end, the next year's start is returned.
func SummerStart(ref time.Time) time.Time {
	start := dateOf(ref.Year(), summerStartMonth, summerStartDay)
	if ref.After(dateOf(ref.Year(), summerEndMonth, summerEndDay)) {
		return start.AddDate(1, 0, 0)
	}
	return start
}

// SummerEnd returns the end of the summer season matching SummerStart(ref).
func SummerEnd(ref time.Time) time.Time {
	return dateOf(SummerStart(ref).Year(), summerEndMonth, summerEndDay)
}

// WinterStart returns the start of the winter season for the year of ref.
// A reference date in January-June belongs to the season that started the
// previous calendar year.
func WinterStart(ref time.Time) time.Time {
	start := dateOf(ref.Year(), winterStartMonth, winterStartDay)
	end := dateOf(ref.Year(), winterEndMonth, winterEndDay)
	if ref.Before(start) && !ref.After(end) {
		return start.AddDate(-1, 0, 0)
	}
	return start
}

// WinterEnd returns the end of the winter season matching WinterStart(ref).
func WinterEnd(ref time.Time) time.Time {
	return dateOf(WinterStart(ref).Year()+1, winterEndMonth, winterEndDay)
}

// StickerSeason formats the winter season label used to name the per-season
// sticker number sequences, e.g. "2020_2021" for a lease starting 15.9.2020.
func StickerSeason(leaseStart time.Time) string {
	start := WinterStart(leaseStart)
	return fmt.Sprintf("%d_%d", start.Year(), start.Year()+1)
}
