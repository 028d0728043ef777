package service

import (
	"github.com/dlfdkwl/discord-tiket/internal/registry"
)

// Admission gates ticket creation on the per-user concurrent ticket quota.
// The quota is counted against the registry's owner field, never against
// channel-name matching.
type Admission struct {
	settings *SettingsService
	registry *registry.Registry
}

// NewAdmission constructs the controller.
func NewAdmission(settings *SettingsService, reg *registry.Registry) *Admission {
	return &Admission{settings: settings, registry: reg}
}

// CanCreate reports whether the owner is below the tenant's quota. A false
// return is a refusal, never an error.
func (a *Admission) CanCreate(tenantID string, ownerID uint64) bool {
	cfg, ok := a.settings.Get(tenantID)
	if !ok {
		return false
	}
	return a.registry.CountByOwner(tenantID, ownerID) < cfg.MaxTickets()
}

// Reserve atomically checks the quota and holds a pending slot. The slot
// must be committed with the created session or released on failure.
func (a *Admission) Reserve(tenantID string, ownerID uint64) (registry.Reservation, int, bool) {
	cfg, ok := a.settings.Get(tenantID)
	if !ok {
		return registry.Reservation{}, 0, false
	}
	max := cfg.MaxTickets()
	res, ok := a.registry.Reserve(tenantID, ownerID, max)
	return res, max, ok
}
