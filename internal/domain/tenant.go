package domain

// EmbedKind identifies a customizable embed template.
type EmbedKind string

const (
	EmbedPanel   EmbedKind = "panel"
	EmbedCreated EmbedKind = "created"
	EmbedClosed  EmbedKind = "closed"
)

// EmbedTemplate describes a tenant-customizable embed.
type EmbedTemplate struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
	Footer      string `json:"footer,omitempty"`
}

const defaultEmbedColor = 0x3498db

var defaultEmbeds = map[EmbedKind]EmbedTemplate{
	EmbedPanel: {
		Title:       "Ticket Panel",
		Description: "Click a button below to open a new ticket.",
		Color:       defaultEmbedColor,
		Footer:      "Open a ticket if you need help.",
	},
	EmbedCreated: {
		Title:       "New Ticket",
		Description: "Your ticket has been created.\nA staff member will respond shortly.",
		Color:       defaultEmbedColor,
	},
	EmbedClosed: {
		Title:       "Ticket Closed",
		Description: "This ticket has been closed.",
		Color:       0xe74c3c,
	},
}

// DefaultEmbed returns the built-in template for a kind.
func DefaultEmbed(kind EmbedKind) EmbedTemplate {
	return defaultEmbeds[kind]
}

// IsValidEmbedKind reports whether kind names a known template slot.
func IsValidEmbedKind(kind EmbedKind) bool {
	_, ok := defaultEmbeds[kind]
	return ok
}

// DefaultMaxTicketsPerUser applies when a tenant does not set its own limit.
const DefaultMaxTicketsPerUser = 3

// MaxPanelTypes caps the ticket types the presentation layer can render as buttons.
const MaxPanelTypes = 5

// TenantConfig holds the durable per-tenant ticket settings. Written wholesale
// on every configuration submission, never partially.
type TenantConfig struct {
	CategoryID        uint64                      `json:"category_id"`
	SupportRoleIDs    []uint64                    `json:"support_role_ids"`
	TicketTypes       []string                    `json:"ticket_types"`
	LogChannelID      uint64                      `json:"log_channel_id"`
	MaxTicketsPerUser int                         `json:"max_tickets_per_user"`
	EmbedTemplates    map[EmbedKind]EmbedTemplate `json:"embed_templates,omitempty"`
}

// IsComplete reports whether the config can support ticket creation.
func (c *TenantConfig) IsComplete() bool {
	if c == nil {
		return false
	}
	return c.CategoryID != 0 &&
		c.LogChannelID != 0 &&
		len(c.SupportRoleIDs) > 0 &&
		len(c.TicketTypes) > 0
}

// HasTicketType reports whether t is one of the configured types.
func (c *TenantConfig) HasTicketType(t string) bool {
	for _, candidate := range c.TicketTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// MaxTickets returns the per-user concurrent ticket limit.
func (c *TenantConfig) MaxTickets() int {
	if c == nil || c.MaxTicketsPerUser <= 0 {
		return DefaultMaxTicketsPerUser
	}
	return c.MaxTicketsPerUser
}

// PanelTypes returns the ticket types selectable from the panel, capped at
// MaxPanelTypes the way the presentation layer caps its buttons.
func (c *TenantConfig) PanelTypes() []string {
	if len(c.TicketTypes) <= MaxPanelTypes {
		return append([]string(nil), c.TicketTypes...)
	}
	return append([]string(nil), c.TicketTypes[:MaxPanelTypes]...)
}

// Embed resolves a template, falling back to the built-in default.
func (c *TenantConfig) Embed(kind EmbedKind) EmbedTemplate {
	if c != nil {
		if tmpl, ok := c.EmbedTemplates[kind]; ok {
			return tmpl
		}
	}
	return DefaultEmbed(kind)
}

// Clone returns a deep copy so callers can read without racing writers.
func (c *TenantConfig) Clone() *TenantConfig {
	if c == nil {
		return nil
	}
	out := *c
	out.SupportRoleIDs = append([]uint64(nil), c.SupportRoleIDs...)
	out.TicketTypes = append([]string(nil), c.TicketTypes...)
	if c.EmbedTemplates != nil {
		out.EmbedTemplates = make(map[EmbedKind]EmbedTemplate, len(c.EmbedTemplates))
		for k, v := range c.EmbedTemplates {
			out.EmbedTemplates[k] = v
		}
	}
	return &out
}
