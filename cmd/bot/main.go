/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the attendance bot. Handles configuration, store
  selection, startup reconciliation, dependency wiring, and graceful
  shutdown.

STARTUP SEQUENCE:
  1. Load configuration from the environment
  2. Open the durable store (Google Sheets when configured, SQLite otherwise)
  3. Fold the append-only logs into in-memory state
  4. Wire the ledgers, bot dispatcher, LINE client, and scheduler
  5. Start the HTTP server and the cron loop

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler and wait for running jobs
  4. Close the store

EXAMPLES:
  # SQLite store
  LINE_CHANNEL_SECRET=... LINE_CHANNEL_TOKEN=... ./bot -db=./data/checkin.db

  # Google Sheets store
  LINE_CHANNEL_SECRET=... LINE_CHANNEL_TOKEN=... \
    SHEETS_SPREADSHEET_ID=... SHEETS_CREDENTIALS_FILE=key.json ./bot

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - store/reconcile.go: The startup fold
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Natts95/line-checkin-bot/api"
	"github.com/Natts95/line-checkin-bot/attendance"
	"github.com/Natts95/line-checkin-bot/bot"
	"github.com/Natts95/line-checkin-bot/clock"
	"github.com/Natts95/line-checkin-bot/config"
	"github.com/Natts95/line-checkin-bot/line"
	"github.com/Natts95/line-checkin-bot/notify"
	"github.com/Natts95/line-checkin-bot/payroll"
	"github.com/Natts95/line-checkin-bot/roster"
	"github.com/Natts95/line-checkin-bot/store"
	"github.com/Natts95/line-checkin-bot/store/sheets"
	"github.com/Natts95/line-checkin-bot/store/sqlite"
)

func main() {
	port := flag.Int("port", 0, "HTTP server port (overrides PORT)")
	dbPath := flag.String("db", "", "SQLite database path (overrides DB_PATH)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	clk := clock.NewSystemFrom(cfg.Timezone)
	ctx := context.Background()

	// Durable store
	var inner store.Store
	if cfg.UseSheets() {
		inner, err = sheets.New(ctx, cfg.SpreadsheetID, cfg.CredentialsFile)
		if err != nil {
			log.Fatalf("Failed to open Google Sheets store: %v", err)
		}
		log.Printf("[Main] Using Google Sheets store (%s)", cfg.SpreadsheetID)
	} else {
		inner, err = sqlite.New(cfg.DBPath)
		if err != nil {
			log.Fatalf("Failed to open SQLite store: %v", err)
		}
		log.Printf("[Main] Using SQLite store (%s)", cfg.DBPath)
	}
	st := store.WithRetry(inner)
	defer st.Close()

	// In-memory ledgers
	dir := roster.New(cfg.SuperAdminID)
	att := attendance.NewLedger(dir, attendance.Rules{
		Cutoff:               cfg.CheckinCutoff,
		RestDay:              cfg.RestDay,
		RestDayAppliesAdmins: cfg.RestDayAppliesAdmins,
	})
	finance := payroll.NewCycleLedger(dir, cfg.AdvanceWindow, cfg.RepayWindow)

	// Startup reconciliation: fold the logs back into memory
	cycle := payroll.CurrentPeriod(clk.Now(), cfg.PayrollDay)
	state, err := store.Load(ctx, st, cycle)
	if err != nil {
		log.Fatalf("Startup reconciliation failed: %v", err)
	}
	for _, p := range state.People {
		rate, debt := p.DailyRate, p.TotalDebt
		dir.RegisterOrUpdate(roster.Upsert{
			ID:        p.ID,
			Name:      p.Name,
			Role:      p.Role,
			Active:    p.Active,
			DailyRate: &rate,
			TotalDebt: &debt,
		})
	}
	for _, e := range state.Entries {
		att.Restore(e)
	}
	for _, tx := range state.Transactions {
		finance.Restore(tx)
	}
	log.Printf("[Main] Restored %d people, %d entries, %d open-cycle transactions",
		len(state.People), len(state.Entries), len(state.Transactions))

	// LINE client
	lc, err := line.NewClient(cfg.LineChannelSecret, cfg.LineChannelToken, clk)
	if err != nil {
		log.Fatalf("Failed to create LINE client: %v", err)
	}

	dispatcher := &bot.Dispatcher{
		Roster:         dir,
		Attendance:     att,
		Finance:        finance,
		Store:          st,
		Clock:          clk,
		AdvanceKeyword: cfg.AdvanceKeyword,
		RepayKeyword:   cfg.RepayKeyword,
	}

	notifier := &notify.Dispatcher{
		Pusher:         lc,
		Roster:         dir,
		Attendance:     att,
		Clock:          clk,
		RestDay:        cfg.RestDay,
		Concurrency:    cfg.PushConcurrency,
		AdvanceKeyword: cfg.AdvanceKeyword,
		RepayKeyword:   cfg.RepayKeyword,
	}

	calculator := &payroll.Calculator{
		Roster:            dir,
		Attendance:        att,
		Ledger:            finance,
		ClosingDay:        cfg.PayrollDay,
		FloorNetPayAtZero: cfg.FloorNetPayAtZero,
	}

	scheduler := &api.Scheduler{
		Bot:        dispatcher,
		Notify:     notifier,
		Calculator: calculator,
		Finance:    finance,
		Attendance: att,
		Store:      st,
		Clock:      clk,
		Schedule: api.Schedule{
			ReminderTimes:           cfg.ReminderTimes,
			ReportTime:              cfg.ReportTime,
			PayrollDay:              cfg.PayrollDay,
			PayrollTime:             cfg.PayrollTime,
			AttendanceRetentionDays: cfg.AttendanceRetentionDays,
		},
	}
	if err := scheduler.Start(cfg.Timezone); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	handler := &api.Handler{
		Roster:             dir,
		Attendance:         att,
		Finance:            finance,
		Clock:              clk,
		PayCycleClosingDay: cfg.PayrollDay,
	}
	router := api.NewRouter(handler, lc.Webhook(dispatcher))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("[Main] Server starting on :%d", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	scheduler.Stop()

	log.Println("Server stopped")
}
