package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Natts95/line-checkin-bot/clock"
)

func TestDailySpec(t *testing.T) {
	assert.Equal(t, "30 9 * * *", dailySpec(clock.TimeOfDay{Hour: 9, Minute: 30}))
	assert.Equal(t, "0 0 * * *", dailySpec(clock.TimeOfDay{}))
}

func TestWeeklySpec(t *testing.T) {
	assert.Equal(t, "0 18 * * 6", weeklySpec(time.Saturday, clock.TimeOfDay{Hour: 18}))
	assert.Equal(t, "15 9 * * 0", weeklySpec(time.Sunday, clock.TimeOfDay{Hour: 9, Minute: 15}))
}
