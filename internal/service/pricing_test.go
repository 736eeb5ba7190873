package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"carrental/internal/model"
)

func day(d int) time.Time {
	return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestRentalDays(t *testing.T) {
	tests := []struct {
		name       string
		start, end time.Time
		want       int
	}{
		{name: "same day", start: day(1), end: day(1), want: 1},
		{name: "two days", start: day(1), end: day(3), want: 2},
		{name: "partial day rounds up", start: day(1), end: day(2).Add(time.Hour), want: 2},
		{name: "a minute", start: day(1), end: day(1).Add(time.Minute), want: 1},
		{name: "reversed clamps to one", start: day(3), end: day(1), want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RentalDays(tt.start, tt.end))
		})
	}
}

func TestOwed(t *testing.T) {
	assert.Equal(t, 20000, Owed(day(1), day(3), 10000))
	assert.Equal(t, 10000, Owed(day(1), day(1), 10000))
	assert.Equal(t, 0, Owed(day(1), day(9), 0))
}

func TestIsIntervalFree(t *testing.T) {
	booked := []model.CarRentDetail{
		{CarRent: model.CarRent{StartDate: day(10), EndDate: day(12)}, Status: model.RentStatusRequest},
		{CarRent: model.CarRent{StartDate: day(20), EndDate: day(22)}, Status: model.RentStatusCancelled},
	}

	tests := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{name: "before", start: day(1), end: day(9), want: true},
		{name: "after", start: day(13), end: day(15), want: true},
		{name: "touches start", start: day(8), end: day(10), want: false},
		{name: "touches end", start: day(12), end: day(14), want: false},
		{name: "inside", start: day(11), end: day(11), want: false},
		{name: "spans whole booking", start: day(9), end: day(13), want: false},
		{name: "cancelled booking ignored", start: day(20), end: day(22), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsIntervalFree(booked, tt.start, tt.end))
		})
	}
}
