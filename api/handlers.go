/*
handlers.go - HTTP handlers for the read-only status API

PURPOSE:
  Exposes the live in-memory state for dashboards and monitoring. These
  endpoints never mutate; all writes go through the webhook and the
  scheduler.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status. The handlers
  read from in-memory ledgers, so failures are effectively limited to
  serialization.

SEE ALSO:
  - dto.go: Response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sort"
	"time"

	"github.com/Natts95/line-checkin-bot/attendance"
	"github.com/Natts95/line-checkin-bot/clock"
	"github.com/Natts95/line-checkin-bot/payroll"
	"github.com/Natts95/line-checkin-bot/roster"
)

// Handler holds the read surfaces for the status endpoints.
type Handler struct {
	Roster     *roster.Directory
	Attendance *attendance.Ledger
	Finance    *payroll.CycleLedger
	Clock      clock.Clock

	// PayCycleClosingDay anchors the reported cycle period.
	PayCycleClosingDay time.Weekday
}

// Health is the liveness probe.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetRoster returns every person, active and deactivated, sorted by name.
func (h *Handler) GetRoster(w http.ResponseWriter, _ *http.Request) {
	people := h.Roster.All()
	dtos := make([]PersonDTO, 0, len(people))
	for _, p := range people {
		dtos = append(dtos, toPersonDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetAttendanceToday returns today's entries, sorted by person id.
func (h *Handler) GetAttendanceToday(w http.ResponseWriter, _ *http.Request) {
	today := clock.DateOf(h.Clock.Now())
	entries := h.Attendance.EntriesForDate(today)
	sort.Slice(entries, func(i, j int) bool { return entries[i].PersonID < entries[j].PersonID })

	dtos := make([]EntryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, toEntryDTO(e))
	}
	writeJSON(w, http.StatusOK, struct {
		Date    string     `json:"date"`
		Entries []EntryDTO `json:"entries"`
	}{Date: today.String(), Entries: dtos})
}

// GetCycle returns the open pay cycle period with its pending transactions.
func (h *Handler) GetCycle(w http.ResponseWriter, _ *http.Request) {
	period := payroll.CurrentPeriod(h.Clock.Now(), h.PayCycleClosingDay)
	writeJSON(w, http.StatusOK, toCycleDTO(period, h.Finance))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] encode response failed: %v", err)
	}
}
