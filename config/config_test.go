package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Natts95/line-checkin-bot/clock"
	"github.com/Natts95/line-checkin-bot/config"
)

func setRequired(t *testing.T) {
	t.Setenv("LINE_CHANNEL_SECRET", "secret")
	t.Setenv("LINE_CHANNEL_TOKEN", "token")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "Asia/Bangkok", cfg.Timezone.String())
	assert.Equal(t, clock.TimeOfDay{Hour: 9, Minute: 30}, cfg.CheckinCutoff)
	assert.Equal(t, time.Sunday, cfg.RestDay)
	assert.True(t, cfg.RestDayAppliesAdmins)
	assert.Equal(t, time.Wednesday, cfg.AdvanceWindow.Day)
	assert.Equal(t, time.Friday, cfg.RepayWindow.Day)
	assert.Equal(t, time.Saturday, cfg.PayrollDay)
	assert.Equal(t, []clock.TimeOfDay{{Hour: 9}, {Hour: 9, Minute: 20}}, cfg.ReminderTimes)
	assert.Equal(t, "advance", cfg.AdvanceKeyword)
	assert.False(t, cfg.FloorNetPayAtZero)
	assert.False(t, cfg.UseSheets())
}

func TestLoad_MissingCredentials(t *testing.T) {
	t.Setenv("LINE_CHANNEL_SECRET", "")
	t.Setenv("LINE_CHANNEL_TOKEN", "")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "3000")
	t.Setenv("REST_DAY", "monday")
	t.Setenv("ADVANCE_KEYWORD", "LOAN")
	t.Setenv("SHEETS_SPREADSHEET_ID", "sheet-123")
	t.Setenv("REMINDER_TIMES", "08:00, 08:45, 09:15")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, time.Monday, cfg.RestDay)
	assert.Equal(t, "loan", cfg.AdvanceKeyword, "keywords are folded to lower case")
	assert.True(t, cfg.UseSheets())
	assert.Len(t, cfg.ReminderTimes, 3)
}

func TestLoad_RejectsInvertedWindow(t *testing.T) {
	setRequired(t)
	t.Setenv("ADVANCE_START", "18:00")
	t.Setenv("ADVANCE_END", "09:00")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_RejectsBadTime(t *testing.T) {
	setRequired(t)
	t.Setenv("CHECKIN_CUTOFF", "25:99")

	_, err := config.Load()
	assert.Error(t, err)
}
