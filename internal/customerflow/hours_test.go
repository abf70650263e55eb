package customerflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(weekday time.Weekday, hour, min int) time.Time {
	// 2025-06-01 is a Sunday.
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, int(weekday)).Add(time.Duration(hour)*time.Hour + time.Duration(min)*time.Minute)
}

func TestWithinHoursDayRange(t *testing.T) {
	hours := "Lun a Vie 11:00-23:00"

	assert.True(t, withinHours(hours, at(time.Monday, 11, 0)))
	assert.True(t, withinHours(hours, at(time.Friday, 22, 59)))
	assert.False(t, withinHours(hours, at(time.Monday, 10, 59)))
	assert.False(t, withinHours(hours, at(time.Monday, 23, 0)))
	assert.False(t, withinHours(hours, at(time.Saturday, 12, 0)))
	assert.False(t, withinHours(hours, at(time.Sunday, 12, 0)))
}

func TestWithinHoursMultipleSegments(t *testing.T) {
	hours := "Lun a Vie 11:00-15:00, Sab 19:00-23:00"

	assert.True(t, withinHours(hours, at(time.Tuesday, 12, 0)))
	assert.False(t, withinHours(hours, at(time.Tuesday, 19, 30)))
	assert.True(t, withinHours(hours, at(time.Saturday, 19, 30)))
	assert.False(t, withinHours(hours, at(time.Saturday, 12, 0)))
}

func TestWithinHoursMidnightWrap(t *testing.T) {
	hours := "Vie a Sab 20:00-02:00"

	assert.True(t, withinHours(hours, at(time.Friday, 21, 0)))
	assert.True(t, withinHours(hours, at(time.Friday, 1, 30)))
	assert.False(t, withinHours(hours, at(time.Friday, 12, 0)))
	assert.False(t, withinHours(hours, at(time.Friday, 2, 0)))
}

func TestWithinHoursEveryDay(t *testing.T) {
	hours := "Todos los días 10:00-22:00"

	assert.True(t, withinHours(hours, at(time.Sunday, 10, 0)))
	assert.True(t, withinHours(hours, at(time.Wednesday, 21, 59)))
	assert.False(t, withinHours(hours, at(time.Wednesday, 9, 59)))
}

func TestWithinHoursUnparsableStaysOpen(t *testing.T) {
	assert.True(t, withinHours("consultar por WhatsApp", at(time.Monday, 3, 0)))
	assert.True(t, withinHours("", at(time.Monday, 3, 0)))
}

func TestWithinHoursAccentsAndAbbreviations(t *testing.T) {
	hours := "Miércoles a Sábado 18:00-23:30"

	assert.True(t, withinHours(hours, at(time.Wednesday, 18, 0)))
	assert.True(t, withinHours(hours, at(time.Saturday, 23, 0)))
	assert.False(t, withinHours(hours, at(time.Tuesday, 18, 30)))
	assert.False(t, withinHours(hours, at(time.Wednesday, 23, 30)))
}
