/*
Package roster owns the directory of known persons.

PURPOSE:
  The Directory is the single owner of Person records: employees and admins,
  their active flag, daily pay rate, and running debt balance. The attendance
  and transaction ledgers reference persons by id only; they never mutate
  roster state except through AdjustDebt.

LIFECYCLE:
  Persons are created on first contact or by an admin command, and are never
  deleted - only deactivated. Historical ledger entries must stay
  attributable, so the id lives forever.

INVARIANTS:
  - Upsert is idempotent: re-registering is not an error
  - TotalDebt >= 0 always (AdjustDebt clamps at zero)
  - Deactivating an unknown id is a no-op, never a crash

SEE ALSO:
  - attendance: consults Find/IsAdmin for check-in policy
  - payroll: consults rates and applies repayments via AdjustDebt
*/
package roster

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// Role determines what a person may do.
type Role string

const (
	RoleEmployee   Role = "employee"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// Person is one member of the roster. The ID is the messaging platform's
// opaque user id.
type Person struct {
	ID        string
	Name      string
	Role      Role
	Active    bool
	DailyRate decimal.Decimal
	TotalDebt decimal.Decimal
}

// Upsert carries the fields of a register-or-update operation.
// DailyRate and TotalDebt are optional: nil preserves the current value on
// update and defaults to zero on first creation.
type Upsert struct {
	ID        string
	Name      string
	Role      Role
	Active    bool
	DailyRate *decimal.Decimal
	TotalDebt *decimal.Decimal
}

// =============================================================================
// DIRECTORY
// =============================================================================

// Directory holds the roster. Safe for concurrent use.
type Directory struct {
	mu           sync.RWMutex
	people       map[string]Person
	superAdminID string
}

// New creates an empty directory. superAdminID is the out-of-band configured
// identity that is always treated as an admin, registered or not.
func New(superAdminID string) *Directory {
	return &Directory{
		people:       make(map[string]Person),
		superAdminID: superAdminID,
	}
}

// RegisterOrUpdate upserts a person and returns the resulting record.
// Unset rate/debt default to zero on creation and are preserved on update.
func (d *Directory) RegisterOrUpdate(u Upsert) Person {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, exists := d.people[u.ID]
	if !exists {
		p = Person{ID: u.ID, DailyRate: decimal.Zero, TotalDebt: decimal.Zero}
	}
	p.Name = u.Name
	p.Role = u.Role
	p.Active = u.Active
	if u.DailyRate != nil {
		p.DailyRate = *u.DailyRate
	}
	if u.TotalDebt != nil {
		p.TotalDebt = clampDebt(*u.TotalDebt)
	}
	d.people[u.ID] = p
	return p
}

// RefreshName updates only the display name of a known person.
// Unknown ids are ignored; first contact goes through RegisterOrUpdate.
func (d *Directory) RefreshName(id, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.people[id]; ok && name != "" {
		p.Name = name
		d.people[id] = p
	}
}

// Deactivate sets active=false. No-op for unknown ids: the system must not
// crash on a stale id arriving from an admin command or an old log.
func (d *Directory) Deactivate(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.people[id]; ok {
		p.Active = false
		d.people[id] = p
	}
}

// Find returns the person and whether they are known.
func (d *Directory) Find(id string) (Person, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.people[id]
	return p, ok
}

// IsAdmin reports whether the id may perform admin actions: an active person
// with an admin role, or the configured superadmin identity.
func (d *Directory) IsAdmin(id string) bool {
	if id != "" && id == d.superAdminID {
		return true
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.people[id]
	return ok && p.Active && (p.Role == RoleAdmin || p.Role == RoleSuperAdmin)
}

// AdjustDebt applies delta to the person's running debt, clamping at zero.
// The clamp is a defensive floor: an over-repayment is rejected upstream
// (payroll.ErrExceedsDebt) before it ever reaches here.
func (d *Directory) AdjustDebt(id string, delta decimal.Decimal) (Person, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.people[id]
	if !ok {
		return Person{}, false
	}
	p.TotalDebt = clampDebt(p.TotalDebt.Add(delta))
	d.people[id] = p
	return p, true
}

// Debt returns the person's current running debt.
func (d *Directory) Debt(id string) (decimal.Decimal, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.people[id]
	if !ok {
		return decimal.Zero, false
	}
	return p.TotalDebt, true
}

// =============================================================================
// LISTINGS
// =============================================================================

// Active returns all active persons, sorted by name for stable output.
func (d *Directory) Active() []Person {
	return d.list(func(p Person) bool { return p.Active })
}

// Admins returns all active persons with an admin role.
func (d *Directory) Admins() []Person {
	return d.list(func(p Person) bool {
		return p.Active && (p.Role == RoleAdmin || p.Role == RoleSuperAdmin)
	})
}

// All returns every person, active or not.
func (d *Directory) All() []Person {
	return d.list(func(Person) bool { return true })
}

func (d *Directory) list(keep func(Person) bool) []Person {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []Person
	for _, p := range d.people {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func clampDebt(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}
