// Package registry holds the in-memory directory of active ticket sessions.
// It is the single source of truth for whether a channel is a tracked ticket.
package registry

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/dlfdkwl/discord-tiket/internal/domain"
)

// ErrDuplicateSession signals a channel ID already registered or reserved.
var ErrDuplicateSession = errors.New("session already registered for channel")

// Reservation is a pending admission slot. It counts toward the owner's
// quota until committed with a session or released.
type Reservation struct {
	Token    string
	TenantID string
	OwnerID  uint64
}

// Registry maps channel IDs to live ticket sessions. All operations are safe
// under concurrent invocation; Reserve composes the quota check and slot
// reservation atomically so simultaneous creations cannot both pass.
type Registry struct {
	mu           sync.Mutex
	sessions     map[uint64]*domain.TicketSession
	reservations map[string]Reservation
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		sessions:     make(map[uint64]*domain.TicketSession),
		reservations: make(map[string]Reservation),
	}
}

// Reserve checks the owner's quota and, when below max, records a pending
// slot in the same critical section. Returns ok=false when the quota is
// exhausted; that is a refusal, not an error.
func (r *Registry) Reserve(tenantID string, ownerID uint64, max int) (Reservation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.countByOwnerLocked(tenantID, ownerID) >= max {
		return Reservation{}, false
	}
	res := Reservation{Token: uuid.NewString(), TenantID: tenantID, OwnerID: ownerID}
	r.reservations[res.Token] = res
	return res, true
}

// Commit converts a reservation into a registered session.
func (r *Registry) Commit(res Reservation, session *domain.TicketSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[session.ChannelID]; exists {
		return ErrDuplicateSession
	}
	delete(r.reservations, res.Token)
	r.sessions[session.ChannelID] = session
	return nil
}

// Release frees a reservation whose channel creation failed.
func (r *Registry) Release(res Reservation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.reservations, res.Token)
}

// Insert registers a session without a prior reservation.
func (r *Registry) Insert(session *domain.TicketSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[session.ChannelID]; exists {
		return ErrDuplicateSession
	}
	r.sessions[session.ChannelID] = session
	return nil
}

// Get looks up the session for a channel.
func (r *Registry) Get(channelID uint64) (*domain.TicketSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[channelID]
	return session, ok
}

// Remove unregisters a channel after successful deletion.
func (r *Registry) Remove(channelID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, channelID)
}

// CountByOwner counts live sessions plus pending reservations for an owner.
func (r *Registry) CountByOwner(tenantID string, ownerID uint64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.countByOwnerLocked(tenantID, ownerID)
}

func (r *Registry) countByOwnerLocked(tenantID string, ownerID uint64) int {
	count := 0
	for _, session := range r.sessions {
		if session.TenantID == tenantID && session.OwnerID == ownerID {
			count++
		}
	}
	for _, res := range r.reservations {
		if res.TenantID == tenantID && res.OwnerID == ownerID {
			count++
		}
	}
	return count
}

// ListByTenant returns the sessions belonging to a tenant.
func (r *Registry) ListByTenant(tenantID string) []*domain.TicketSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*domain.TicketSession
	for _, session := range r.sessions {
		if session.TenantID == tenantID {
			result = append(result, session)
		}
	}
	return result
}
