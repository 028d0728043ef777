package domain

import "time"

// TicketState enumerates lifecycle states for ticket sessions. The sequence
// is strictly forward: OPEN, CLOSING, ARCHIVED, DELETED.
type TicketState string

const (
	TicketStateOpen     TicketState = "OPEN"
	TicketStateClosing  TicketState = "CLOSING"
	TicketStateArchived TicketState = "ARCHIVED"
	TicketStateDeleted  TicketState = "DELETED"
)

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityNone   TicketPriority = "NONE"
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// ParsePriority validates a priority label.
func ParsePriority(value string) (TicketPriority, bool) {
	switch TicketPriority(value) {
	case TicketPriorityNone, TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return TicketPriority(value), true
	}
	return "", false
}

// TicketSession is the live runtime record of one ticket, keyed by channel ID.
type TicketSession struct {
	ChannelID   uint64
	TenantID    string
	OwnerID     uint64
	TicketType  string
	ChannelName string
	State       TicketState
	Priority    TicketPriority
	CreatedAt   time.Time
	ClosedAt    *time.Time
}

// Duration reports how long the ticket has been (or was) open.
func (s *TicketSession) Duration(now time.Time) time.Duration {
	if s.ClosedAt != nil {
		return s.ClosedAt.Sub(s.CreatedAt)
	}
	return now.Sub(s.CreatedAt)
}

// TicketEvent is a durable audit entry for a ticket lifecycle change.
type TicketEvent struct {
	ID        int64
	TenantID  string
	ChannelID uint64
	EventType string
	ActorID   *uint64
	Payload   map[string]any
	CreatedAt time.Time
}
