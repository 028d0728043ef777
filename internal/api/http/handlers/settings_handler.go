package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/dlfdkwl/discord-tiket/internal/api/dto"
	"github.com/dlfdkwl/discord-tiket/internal/domain"
	"github.com/dlfdkwl/discord-tiket/internal/events"
	"github.com/dlfdkwl/discord-tiket/internal/service"
	apperrors "github.com/dlfdkwl/discord-tiket/pkg/util"
)

// SettingsHandler exposes tenant configuration operations.
type SettingsHandler struct {
	settings   *service.SettingsService
	dispatcher events.Dispatcher
}

// NewSettingsHandler constructs handler.
func NewSettingsHandler(settings *service.SettingsService, dispatcher events.Dispatcher) *SettingsHandler {
	return &SettingsHandler{settings: settings, dispatcher: dispatcher}
}

// Get GET /tenants/:tenantID/settings.
func (h *SettingsHandler) Get(c *fiber.Ctx) error {
	cfg, ok := h.settings.Get(c.Params("tenantID"))
	if !ok {
		return apperrors.NewNotFound("tenant settings", map[string]any{"tenant_id": c.Params("tenantID")})
	}
	return c.JSON(fiber.Map{"data": dto.FromConfig(cfg)})
}

// Put PUT /tenants/:tenantID/settings. A submission always replaces the
// tenant's configuration wholesale; existing embed templates are carried
// over since the submission form does not include them.
func (h *SettingsHandler) Put(c *fiber.Ctx) error {
	var req dto.PutSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.CategoryID == 0 || req.LogChannelID == 0 {
		return apperrors.NewValidationError("category_id and log_channel_id required", nil)
	}
	if len(req.SupportRoleIDs) == 0 || len(req.TicketTypes) == 0 {
		return apperrors.NewValidationError("support_role_ids and ticket_types required", nil)
	}
	if !distinctLabels(req.TicketTypes) {
		return apperrors.NewValidationError("ticket_types must be distinct", nil)
	}

	tenantID := c.Params("tenantID")
	cfg := &domain.TenantConfig{
		CategoryID:        req.CategoryID,
		SupportRoleIDs:    req.SupportRoleIDs,
		TicketTypes:       req.TicketTypes,
		LogChannelID:      req.LogChannelID,
		MaxTicketsPerUser: req.MaxTicketsPerUser,
	}
	if existing, ok := h.settings.Get(tenantID); ok {
		cfg.EmbedTemplates = existing.EmbedTemplates
	}
	if err := h.settings.Put(c.UserContext(), tenantID, cfg); err != nil {
		return err
	}
	h.publishUpdated(c, tenantID, cfg.TicketTypes)
	return c.JSON(fiber.Map{"data": dto.FromConfig(cfg)})
}

// PutEmbed PUT /tenants/:tenantID/settings/embeds/:kind.
func (h *SettingsHandler) PutEmbed(c *fiber.Ctx) error {
	var req dto.EmbedRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Title == "" || req.Description == "" {
		return apperrors.NewValidationError("title and description required", nil)
	}
	color := req.Color
	if color == 0 {
		color = 0x3498db
	}

	tmpl := domain.EmbedTemplate{
		Title:       req.Title,
		Description: req.Description,
		Color:       color,
		Footer:      req.Footer,
	}
	tenantID := c.Params("tenantID")
	if err := h.settings.PutEmbed(c.UserContext(), tenantID, domain.EmbedKind(c.Params("kind")), tmpl); err != nil {
		return err
	}
	var ticketTypes []string
	if cfg, ok := h.settings.Get(tenantID); ok {
		ticketTypes = cfg.TicketTypes
	}
	h.publishUpdated(c, tenantID, ticketTypes)
	return c.JSON(fiber.Map{"data": tmpl})
}

// Panel GET /tenants/:tenantID/panel.
func (h *SettingsHandler) Panel(c *fiber.Ctx) error {
	cfg, ok := h.settings.Get(c.Params("tenantID"))
	if !ok || !cfg.IsComplete() {
		return apperrors.NewConfigIncomplete(c.Params("tenantID"))
	}
	return c.JSON(fiber.Map{"data": dto.PanelResponse{
		TicketTypes: cfg.PanelTypes(),
		Embed:       cfg.Embed(domain.EmbedPanel),
	}})
}

func (h *SettingsHandler) publishUpdated(c *fiber.Ctx, tenantID string, ticketTypes []string) {
	if h.dispatcher == nil {
		return
	}
	_ = h.dispatcher.Publish(c.UserContext(), events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventSettingsUpdated,
		TenantID:  tenantID,
		Timestamp: time.Now(),
		Payload:   events.SettingsUpdatedPayload{TicketTypes: ticketTypes},
	})
}

func distinctLabels(labels []string) bool {
	seen := make(map[string]struct{}, len(labels))
	for _, label := range labels {
		if _, dup := seen[label]; dup {
			return false
		}
		seen[label] = struct{}{}
	}
	return true
}
