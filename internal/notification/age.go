package notification

import (
	"fmt"
	"time"
)

// RelativeAge formats how long ago created is relative to now, in Indonesian
// ("baru saja", "5 menit yang lalu", "2 hari yang lalu").
func RelativeAge(created, now time.Time) string {
	d := now.Sub(created)
	if d < time.Minute {
		return "baru saja"
	}

	const (
		day   = 24 * time.Hour
		week  = 7 * day
		month = 30 * day
		year  = 365 * day
	)
	var (
		n    int64
		unit string
	)
	switch {
	case d < time.Hour:
		n, unit = int64(d/time.Minute), "menit"
	case d < day:
		n, unit = int64(d/time.Hour), "jam"
	case d < week:
		n, unit = int64(d/day), "hari"
	case d < month:
		n, unit = int64(d/week), "minggu"
	case d < year:
		n, unit = int64(d/month), "bulan"
	default:
		n, unit = int64(d/year), "tahun"
	}
	return fmt.Sprintf("%d %s yang lalu", n, unit)
}
