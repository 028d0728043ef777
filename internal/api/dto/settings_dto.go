package dto

import "github.com/dlfdkwl/discord-tiket/internal/domain"

// PutSettingsRequest is a wholesale tenant configuration submission.
type PutSettingsRequest struct {
	CategoryID        uint64   `json:"category_id"`
	SupportRoleIDs    []uint64 `json:"support_role_ids"`
	TicketTypes       []string `json:"ticket_types"`
	LogChannelID      uint64   `json:"log_channel_id"`
	MaxTicketsPerUser int      `json:"max_tickets_per_user"`
}

// EmbedRequest customizes one embed template.
type EmbedRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
	Footer      string `json:"footer"`
}

// SettingsResponse mirrors the stored tenant configuration.
type SettingsResponse struct {
	CategoryID        uint64                                    `json:"category_id"`
	SupportRoleIDs    []uint64                                  `json:"support_role_ids"`
	TicketTypes       []string                                  `json:"ticket_types"`
	LogChannelID      uint64                                    `json:"log_channel_id"`
	MaxTicketsPerUser int                                       `json:"max_tickets_per_user"`
	Complete          bool                                      `json:"complete"`
	EmbedTemplates    map[domain.EmbedKind]domain.EmbedTemplate `json:"embed_templates,omitempty"`
}

// PanelResponse carries what the presentation layer needs to render a panel.
type PanelResponse struct {
	TicketTypes []string             `json:"ticket_types"`
	Embed       domain.EmbedTemplate `json:"embed"`
}

// TokenRequest exchanges the staff secret for an API token.
type TokenRequest struct {
	Secret string `json:"secret"`
}

// TokenResponse returns an issued token.
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// FromConfig maps a tenant config to its response shape.
func FromConfig(cfg *domain.TenantConfig) SettingsResponse {
	return SettingsResponse{
		CategoryID:        cfg.CategoryID,
		SupportRoleIDs:    cfg.SupportRoleIDs,
		TicketTypes:       cfg.TicketTypes,
		LogChannelID:      cfg.LogChannelID,
		MaxTicketsPerUser: cfg.MaxTickets(),
		Complete:          cfg.IsComplete(),
		EmbedTemplates:    cfg.EmbedTemplates,
	}
}
