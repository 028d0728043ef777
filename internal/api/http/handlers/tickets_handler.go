package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/dlfdkwl/discord-tiket/internal/api/dto"
	"github.com/dlfdkwl/discord-tiket/internal/auth"
	"github.com/dlfdkwl/discord-tiket/internal/domain"
	"github.com/dlfdkwl/discord-tiket/internal/repository"
	"github.com/dlfdkwl/discord-tiket/internal/service"
	apperrors "github.com/dlfdkwl/discord-tiket/pkg/util"
)

// TicketsHandler exposes the ticket lifecycle operations. The history
// repository is optional; without it the audit endpoint reports not found.
type TicketsHandler struct {
	tickets *service.TicketService
	history repository.HistoryRepository
	logger  *zap.Logger
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, history repository.HistoryRepository, logger *zap.Logger) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, history: history, logger: logger}
}

// Create POST /tenants/:tenantID/tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.OwnerID == 0 || req.TicketType == "" {
		return apperrors.NewValidationError("owner_id and ticket_type required", nil)
	}

	session, err := h.tickets.Create(c.UserContext(), c.Params("tenantID"), req.OwnerID, req.TicketType)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.FromSession(session)})
}

// List GET /tenants/:tenantID/tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	sessions := h.tickets.ListByTenant(c.Params("tenantID"))
	items := make([]dto.TicketResponse, 0, len(sessions))
	for i := range sessions {
		items = append(items, dto.FromSession(&sessions[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Stats GET /tenants/:tenantID/stats.
func (h *TicketsHandler) Stats(c *fiber.Ctx) error {
	stats := h.tickets.Stats(c.Params("tenantID"))
	return c.JSON(fiber.Map{"data": dto.StatsResponse{Total: stats.Total, ByType: stats.ByType}})
}

// Get GET /tickets/:channelID.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	channelID, err := parseChannelID(c)
	if err != nil {
		return err
	}
	session, ok := h.tickets.Get(channelID)
	if !ok {
		return apperrors.NewNotFound("ticket session", map[string]any{"channel_id": channelID})
	}
	return c.JSON(fiber.Map{"data": dto.FromSession(session)})
}

// AddParticipant POST /tickets/:channelID/participants.
func (h *TicketsHandler) AddParticipant(c *fiber.Ctx) error {
	channelID, err := parseChannelID(c)
	if err != nil {
		return err
	}
	var req dto.AddParticipantRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.UserID == 0 {
		return apperrors.NewValidationError("user_id required", nil)
	}
	if err := h.tickets.AddParticipant(c.UserContext(), channelID, req.UserID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"added": req.UserID}})
}

// SetPriority PUT /tickets/:channelID/priority.
func (h *TicketsHandler) SetPriority(c *fiber.Ctx) error {
	channelID, err := parseChannelID(c)
	if err != nil {
		return err
	}
	var req dto.SetPriorityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.tickets.SetPriority(c.UserContext(), channelID, domain.TicketPriority(req.Priority)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"priority": req.Priority}})
}

// Close POST /tickets/:channelID/close.
func (h *TicketsHandler) Close(c *fiber.Ctx) error {
	channelID, err := parseChannelID(c)
	if err != nil {
		return err
	}
	var req dto.CloseTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.tickets.Close(c.UserContext(), channelID, req.ActorID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.CloseTicketResponse{
		Ticket:        dto.FromSession(result.Session),
		Duration:      service.FormatDuration(result.Duration),
		TranscriptRef: result.TranscriptRef,
	}})
}

// History GET /tickets/:channelID/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	channelID, err := parseChannelID(c)
	if err != nil {
		return err
	}
	if h.history == nil {
		return apperrors.NewNotFound("ticket history", map[string]any{"channel_id": channelID})
	}

	entries, err := h.history.ListByChannel(c.UserContext(), channelID)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if principal, ok := auth.PrincipalFromContext(c); ok {
		h.logger.Debug("ticket history viewed",
			zap.String("subject", principal.SubjectID),
			zap.Uint64("channel_id", channelID))
	}

	items := make([]dto.TicketEventResponse, 0, len(entries))
	for i := range entries {
		items = append(items, dto.FromTicketEvent(&entries[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func parseChannelID(c *fiber.Ctx) (uint64, error) {
	channelID, err := strconv.ParseUint(c.Params("channelID"), 10, 64)
	if err != nil || channelID == 0 {
		return 0, apperrors.NewValidationError("malformed channel id", map[string]any{"channel_id": c.Params("channelID")})
	}
	return channelID, nil
}
