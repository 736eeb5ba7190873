package service

import (
	"time"

	"github.com/shopspring/decimal"
)

var dayNanos = decimal.NewFromInt(int64(24 * time.Hour))

// RentalDays returns the billable days of [start, end]: the duration rounded
// up to whole days, never less than one.
func RentalDays(start, end time.Time) int {
	days := decimal.NewFromInt(int64(end.Sub(start))).Div(dayNanos).Ceil().IntPart()
	if days < 1 {
		return 1
	}
	return int(days)
}

// Owed prices a rental of [start, end] at dailyRate per day.
func Owed(start, end time.Time, dailyRate int) int {
	return int(decimal.NewFromInt(int64(RentalDays(start, end))).
		Mul(decimal.NewFromInt(int64(dailyRate))).
		IntPart())
}
