/*
dto.go - Data Transfer Objects for API responses

PURPOSE:
  Defines the JSON structures for the read-only status API. These types
  decouple the internal domain model from the external contract; money is
  rendered as strings to avoid float drift in clients.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/Natts95/line-checkin-bot/attendance"
	"github.com/Natts95/line-checkin-bot/payroll"
	"github.com/Natts95/line-checkin-bot/roster"
)

// PersonDTO represents one roster entry in API responses.
type PersonDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	Active    bool   `json:"active"`
	DailyRate string `json:"dailyRate"`
	TotalDebt string `json:"totalDebt"`
}

func toPersonDTO(p roster.Person) PersonDTO {
	return PersonDTO{
		ID:        p.ID,
		Name:      p.Name,
		Role:      string(p.Role),
		Active:    p.Active,
		DailyRate: p.DailyRate.String(),
		TotalDebt: p.TotalDebt.String(),
	}
}

// EntryDTO represents one attendance entry.
type EntryDTO struct {
	PersonID     string    `json:"personId"`
	Date         string    `json:"date"`
	WorkType     string    `json:"workType"`
	RecordedAt   time.Time `json:"recordedAt"`
	OverriddenBy string    `json:"overriddenBy,omitempty"`
}

func toEntryDTO(e attendance.Entry) EntryDTO {
	return EntryDTO{
		PersonID:     e.PersonID,
		Date:         e.Date.String(),
		WorkType:     string(e.Type),
		RecordedAt:   e.RecordedAt,
		OverriddenBy: e.OverriddenBy,
	}
}

// CycleDTO represents the open pay cycle.
type CycleDTO struct {
	PeriodStart string            `json:"periodStart"`
	PeriodEnd   string            `json:"periodEnd"`
	Advances    map[string]string `json:"advances"`
	Repayments  map[string]string `json:"repayments"`
}

func toCycleDTO(period payroll.Period, ledger *payroll.CycleLedger) CycleDTO {
	dto := CycleDTO{
		PeriodStart: period.Start.String(),
		PeriodEnd:   period.End.String(),
		Advances:    map[string]string{},
		Repayments:  map[string]string{},
	}
	for id, amount := range ledger.AdvancesForCycle() {
		dto.Advances[id] = amount.String()
	}
	for id, amount := range ledger.RepaymentsForCycle() {
		dto.Repayments[id] = amount.String()
	}
	return dto
}
