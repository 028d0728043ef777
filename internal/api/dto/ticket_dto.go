package dto

import (
	"time"

	"github.com/dlfdkwl/discord-tiket/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	OwnerID    uint64 `json:"owner_id"`
	TicketType string `json:"ticket_type"`
}

// AddParticipantRequest payload.
type AddParticipantRequest struct {
	UserID uint64 `json:"user_id"`
}

// SetPriorityRequest payload.
type SetPriorityRequest struct {
	Priority string `json:"priority"`
}

// CloseTicketRequest payload.
type CloseTicketRequest struct {
	ActorID uint64 `json:"actor_id"`
}

// TicketResponse describes a live ticket session.
type TicketResponse struct {
	ChannelID   uint64                `json:"channel_id"`
	TenantID    string                `json:"tenant_id"`
	OwnerID     uint64                `json:"owner_id"`
	TicketType  string                `json:"ticket_type"`
	ChannelName string                `json:"channel_name"`
	State       domain.TicketState    `json:"state"`
	Priority    domain.TicketPriority `json:"priority"`
	CreatedAt   time.Time             `json:"created_at"`
	ClosedAt    *time.Time            `json:"closed_at,omitempty"`
}

// CloseTicketResponse reports a completed close.
type CloseTicketResponse struct {
	Ticket        TicketResponse `json:"ticket"`
	Duration      string         `json:"duration"`
	TranscriptRef string         `json:"transcript_ref"`
}

// TicketEventResponse is one durable audit entry.
type TicketEventResponse struct {
	ID        int64          `json:"id"`
	EventType string         `json:"event_type"`
	ActorID   *uint64        `json:"actor_id,omitempty"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

// StatsResponse summarizes a tenant's active tickets.
type StatsResponse struct {
	Total  int            `json:"total"`
	ByType map[string]int `json:"by_type"`
}

// FromTicketEvent maps a durable audit entry to its response shape.
func FromTicketEvent(event *domain.TicketEvent) TicketEventResponse {
	return TicketEventResponse{
		ID:        event.ID,
		EventType: event.EventType,
		ActorID:   event.ActorID,
		Payload:   event.Payload,
		CreatedAt: event.CreatedAt,
	}
}

// FromSession maps a domain session to its response shape.
func FromSession(session *domain.TicketSession) TicketResponse {
	return TicketResponse{
		ChannelID:   session.ChannelID,
		TenantID:    session.TenantID,
		OwnerID:     session.OwnerID,
		TicketType:  session.TicketType,
		ChannelName: session.ChannelName,
		State:       session.State,
		Priority:    session.Priority,
		CreatedAt:   session.CreatedAt,
		ClosedAt:    session.ClosedAt,
	}
}
