package service

import (
	"time"

	"carrental/internal/model"
)

// Overlaps reports whether the inclusive intervals [start, end] and
// [otherStart, otherEnd] share at least one instant.
func Overlaps(start, end, otherStart, otherEnd time.Time) bool {
	return !start.After(otherEnd) && !end.Before(otherStart)
}

// IsIntervalFree reports whether no live booking in bookings overlaps [start, end].
// Bookings whose rent was returned or cancelled no longer hold the car.
func IsIntervalFree(bookings []model.CarRentDetail, start, end time.Time) bool {
	for _, b := range bookings {
		if b.Status.IsTerminal() {
			continue
		}
		if Overlaps(start, end, b.StartDate, b.EndDate) {
			return false
		}
	}
	return true
}
