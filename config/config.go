/*
Package config loads runtime configuration from the environment.

PURPOSE:
  One Load() call at startup produces a validated Config. Every knob has a
  default suitable for a small shop on a Monday-to-Saturday week; only the
  LINE credentials are mandatory.

ENVIRONMENT VARIABLES:
  PORT                      HTTP port (default 8080)
  TIMEZONE                  IANA business timezone (default Asia/Bangkok)
  DB_PATH                   SQLite path; ignored when Sheets is configured
  LINE_CHANNEL_SECRET       webhook signature secret (required)
  LINE_CHANNEL_TOKEN        push/reply access token (required)
  SHEETS_SPREADSHEET_ID     Google Sheets store; empty selects SQLite
  SHEETS_CREDENTIALS_FILE   service account key file
  SUPER_ADMIN_ID            always-admin person id
  CHECKIN_CUTOFF            "HH:MM" (default 09:30)
  REST_DAY                  weekday name (default Sunday)
  REST_DAY_APPLIES_ADMINS   "true"/"false" (default true)
  ADVANCE_DAY/START/END     advance window (default Wednesday 09:00-18:00)
  REPAY_DAY/START/END       repayment window (default Friday 09:00-18:00)
  PAYROLL_DAY / PAYROLL_TIME  weekly close (default Saturday 18:00)
  REMINDER_TIMES            comma-separated "HH:MM" (default 09:00,09:20)
  REPORT_TIME               daily report (default 09:45)
  ADVANCE_KEYWORD           command word (default "advance")
  REPAY_KEYWORD             command word (default "repay")
  FLOOR_NET_PAY             clamp net pay at zero (default false)
  RETENTION_DAYS            attendance retention; 0 keeps all (default 0)
  PUSH_CONCURRENCY          parallel pushes (default 4)
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Natts95/line-checkin-bot/clock"
	"github.com/Natts95/line-checkin-bot/payroll"
)

type Config struct {
	Port     int
	Timezone *time.Location
	DBPath   string

	LineChannelSecret string
	LineChannelToken  string

	SpreadsheetID   string
	CredentialsFile string

	SuperAdminID string

	CheckinCutoff        clock.TimeOfDay
	RestDay              time.Weekday
	RestDayAppliesAdmins bool

	AdvanceWindow payroll.Window
	RepayWindow   payroll.Window

	PayrollDay  time.Weekday
	PayrollTime clock.TimeOfDay

	ReminderTimes []clock.TimeOfDay
	ReportTime    clock.TimeOfDay

	AdvanceKeyword string
	RepayKeyword   string

	FloorNetPayAtZero       bool
	AttendanceRetentionDays int
	PushConcurrency         int
}

// Load reads the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		DBPath:         envOr("DB_PATH", "checkin.db"),
		SuperAdminID:   os.Getenv("SUPER_ADMIN_ID"),
		AdvanceKeyword: strings.ToLower(envOr("ADVANCE_KEYWORD", "advance")),
		RepayKeyword:   strings.ToLower(envOr("REPAY_KEYWORD", "repay")),

		LineChannelSecret: os.Getenv("LINE_CHANNEL_SECRET"),
		LineChannelToken:  os.Getenv("LINE_CHANNEL_TOKEN"),
		SpreadsheetID:     os.Getenv("SHEETS_SPREADSHEET_ID"),
		CredentialsFile:   envOr("SHEETS_CREDENTIALS_FILE", "credentials.json"),
	}

	if cfg.LineChannelSecret == "" || cfg.LineChannelToken == "" {
		return nil, fmt.Errorf("LINE_CHANNEL_SECRET and LINE_CHANNEL_TOKEN are required")
	}

	var err error
	if cfg.Port, err = envInt("PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.Timezone, err = time.LoadLocation(envOr("TIMEZONE", "Asia/Bangkok")); err != nil {
		return nil, fmt.Errorf("TIMEZONE: %w", err)
	}

	if cfg.CheckinCutoff, err = envTime("CHECKIN_CUTOFF", "09:30"); err != nil {
		return nil, err
	}
	if cfg.RestDay, err = envWeekday("REST_DAY", "Sunday"); err != nil {
		return nil, err
	}
	if cfg.RestDayAppliesAdmins, err = envBool("REST_DAY_APPLIES_ADMINS", true); err != nil {
		return nil, err
	}

	if cfg.AdvanceWindow, err = envWindow("ADVANCE", "Wednesday", "09:00", "18:00"); err != nil {
		return nil, err
	}
	if cfg.RepayWindow, err = envWindow("REPAY", "Friday", "09:00", "18:00"); err != nil {
		return nil, err
	}

	if cfg.PayrollDay, err = envWeekday("PAYROLL_DAY", "Saturday"); err != nil {
		return nil, err
	}
	if cfg.PayrollTime, err = envTime("PAYROLL_TIME", "18:00"); err != nil {
		return nil, err
	}

	for _, s := range strings.Split(envOr("REMINDER_TIMES", "09:00,09:20"), ",") {
		t, err := clock.ParseTimeOfDay(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("REMINDER_TIMES: %w", err)
		}
		cfg.ReminderTimes = append(cfg.ReminderTimes, t)
	}
	if cfg.ReportTime, err = envTime("REPORT_TIME", "09:45"); err != nil {
		return nil, err
	}

	if cfg.FloorNetPayAtZero, err = envBool("FLOOR_NET_PAY", false); err != nil {
		return nil, err
	}
	if cfg.AttendanceRetentionDays, err = envInt("RETENTION_DAYS", 0); err != nil {
		return nil, err
	}
	if cfg.PushConcurrency, err = envInt("PUSH_CONCURRENCY", 4); err != nil {
		return nil, err
	}

	return cfg, nil
}

// UseSheets reports whether the Google Sheets store is selected.
func (c *Config) UseSheets() bool { return c.SpreadsheetID != "" }

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func envTime(key, def string) (clock.TimeOfDay, error) {
	t, err := clock.ParseTimeOfDay(envOr(key, def))
	if err != nil {
		return clock.TimeOfDay{}, fmt.Errorf("%s: %w", key, err)
	}
	return t, nil
}

func envWeekday(key, def string) (time.Weekday, error) {
	d, err := clock.ParseWeekday(envOr(key, def))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func envWindow(prefix, defDay, defStart, defEnd string) (payroll.Window, error) {
	day, err := envWeekday(prefix+"_DAY", defDay)
	if err != nil {
		return payroll.Window{}, err
	}
	start, err := envTime(prefix+"_START", defStart)
	if err != nil {
		return payroll.Window{}, err
	}
	end, err := envTime(prefix+"_END", defEnd)
	if err != nil {
		return payroll.Window{}, err
	}
	if start.Minutes() >= end.Minutes() {
		return payroll.Window{}, fmt.Errorf("%s window: start %s is not before end %s", prefix, start, end)
	}
	return payroll.Window{Day: day, Start: start, End: end}, nil
}
