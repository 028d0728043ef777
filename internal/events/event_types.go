package events

import (
	"time"

	"github.com/dlfdkwl/discord-tiket/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventTicketClosed          EventType = "ticket_closed"
	EventTicketDeleted         EventType = "ticket_deleted"
	EventSettingsUpdated       EventType = "settings_updated"
)

// Event represents a domain event emitted by the ticket engine.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TenantID  string      `json:"tenant_id"`
	ChannelID uint64      `json:"channel_id,omitempty"`
	ActorID   *uint64     `json:"actor_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	OwnerID     uint64 `json:"owner_id"`
	TicketType  string `json:"ticket_type"`
	ChannelName string `json:"channel_name"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
	ChannelName string                `json:"channel_name"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	OwnerID       uint64        `json:"owner_id"`
	ChannelName   string        `json:"channel_name"`
	Duration      time.Duration `json:"duration"`
	TranscriptRef string        `json:"transcript_ref"`
}

// TicketDeletedPayload payload.
type TicketDeletedPayload struct {
	ChannelName string `json:"channel_name"`
}

// SettingsUpdatedPayload payload.
type SettingsUpdatedPayload struct {
	TicketTypes []string `json:"ticket_types"`
}
