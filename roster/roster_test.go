package roster_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Natts95/line-checkin-bot/roster"
)

func dec(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func decPtr(n int64) *decimal.Decimal {
	d := decimal.NewFromInt(n)
	return &d
}

// =============================================================================
// UPSERT SEMANTICS
// =============================================================================

func TestRegisterOrUpdate_CreateDefaultsToZero(t *testing.T) {
	dir := roster.New("")

	p := dir.RegisterOrUpdate(roster.Upsert{
		ID: "emp-1", Name: "Alice", Role: roster.RoleEmployee, Active: true,
	})

	assert.True(t, p.DailyRate.IsZero())
	assert.True(t, p.TotalDebt.IsZero())
}

func TestRegisterOrUpdate_NilPreservesRateAndDebt(t *testing.T) {
	// GIVEN: A person with a rate and a debt
	// WHEN: Re-registering without rate/debt (e.g. an admin renames them)
	// THEN: The money fields survive

	dir := roster.New("")
	dir.RegisterOrUpdate(roster.Upsert{
		ID: "emp-1", Name: "Alice", Role: roster.RoleEmployee, Active: true,
		DailyRate: decPtr(500), TotalDebt: decPtr(1000),
	})

	p := dir.RegisterOrUpdate(roster.Upsert{
		ID: "emp-1", Name: "Alice B.", Role: roster.RoleEmployee, Active: true,
	})

	assert.Equal(t, "Alice B.", p.Name)
	assert.True(t, p.DailyRate.Equal(dec(500)))
	assert.True(t, p.TotalDebt.Equal(dec(1000)))
}

func TestRegisterOrUpdate_Idempotent(t *testing.T) {
	dir := roster.New("")
	u := roster.Upsert{ID: "emp-1", Name: "Alice", Role: roster.RoleEmployee, Active: true}

	first := dir.RegisterOrUpdate(u)
	second := dir.RegisterOrUpdate(u)

	assert.Equal(t, first, second)
	assert.Len(t, dir.All(), 1)
}

func TestRefreshName_OnlyTouchesKnownPeople(t *testing.T) {
	dir := roster.New("")
	dir.RegisterOrUpdate(roster.Upsert{ID: "emp-1", Name: "Alice", Role: roster.RoleEmployee, Active: true})

	dir.RefreshName("emp-1", "Alice B.")
	dir.RefreshName("stranger", "Nobody")

	p, ok := dir.Find("emp-1")
	require.True(t, ok)
	assert.Equal(t, "Alice B.", p.Name)

	_, ok = dir.Find("stranger")
	assert.False(t, ok)
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func TestDeactivate_KeepsTheRecord(t *testing.T) {
	dir := roster.New("")
	dir.RegisterOrUpdate(roster.Upsert{
		ID: "emp-1", Name: "Alice", Role: roster.RoleEmployee, Active: true,
		TotalDebt: decPtr(300),
	})

	dir.Deactivate("emp-1")

	p, ok := dir.Find("emp-1")
	require.True(t, ok, "deactivation never deletes")
	assert.False(t, p.Active)
	assert.True(t, p.TotalDebt.Equal(dec(300)), "debt survives deactivation")
	assert.Empty(t, dir.Active())
}

func TestDeactivate_UnknownIsNoOp(t *testing.T) {
	dir := roster.New("")
	assert.NotPanics(t, func() { dir.Deactivate("stranger") })
}

// =============================================================================
// ADMIN RESOLUTION
// =============================================================================

func TestIsAdmin_RoleAndSuperAdmin(t *testing.T) {
	dir := roster.New("boss-id")
	dir.RegisterOrUpdate(roster.Upsert{ID: "adm-1", Name: "Carol", Role: roster.RoleAdmin, Active: true})
	dir.RegisterOrUpdate(roster.Upsert{ID: "emp-1", Name: "Alice", Role: roster.RoleEmployee, Active: true})

	assert.True(t, dir.IsAdmin("adm-1"))
	assert.False(t, dir.IsAdmin("emp-1"))
	assert.True(t, dir.IsAdmin("boss-id"), "the configured super admin needs no roster entry")
	assert.False(t, dir.IsAdmin("stranger"))
}

func TestIsAdmin_DeactivatedAdminLosesPowers(t *testing.T) {
	dir := roster.New("")
	dir.RegisterOrUpdate(roster.Upsert{ID: "adm-1", Name: "Carol", Role: roster.RoleAdmin, Active: true})
	dir.Deactivate("adm-1")

	assert.False(t, dir.IsAdmin("adm-1"))
}

// =============================================================================
// DEBT
// =============================================================================

func TestAdjustDebt_ClampsAtZero(t *testing.T) {
	// The balance is a non-negative invariant, not a signed account.
	dir := roster.New("")
	dir.RegisterOrUpdate(roster.Upsert{
		ID: "emp-1", Name: "Alice", Role: roster.RoleEmployee, Active: true,
		TotalDebt: decPtr(100),
	})

	p, ok := dir.AdjustDebt("emp-1", dec(-250))
	require.True(t, ok)
	assert.True(t, p.TotalDebt.IsZero())
}

func TestAdjustDebt_UnknownPerson(t *testing.T) {
	dir := roster.New("")
	_, ok := dir.AdjustDebt("stranger", dec(10))
	assert.False(t, ok)
}

// =============================================================================
// LISTINGS
// =============================================================================

func TestListings_SortedByName(t *testing.T) {
	dir := roster.New("")
	dir.RegisterOrUpdate(roster.Upsert{ID: "c", Name: "Carol", Role: roster.RoleAdmin, Active: true})
	dir.RegisterOrUpdate(roster.Upsert{ID: "a", Name: "Alice", Role: roster.RoleEmployee, Active: true})
	dir.RegisterOrUpdate(roster.Upsert{ID: "b", Name: "Bob", Role: roster.RoleEmployee, Active: false})

	active := dir.Active()
	require.Len(t, active, 2)
	assert.Equal(t, "Alice", active[0].Name)
	assert.Equal(t, "Carol", active[1].Name)

	admins := dir.Admins()
	require.Len(t, admins, 1)
	assert.Equal(t, "Carol", admins[0].Name)

	assert.Len(t, dir.All(), 3)
}
