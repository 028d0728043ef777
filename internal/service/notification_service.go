package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dlfdkwl/discord-tiket/internal/domain"
	"github.com/dlfdkwl/discord-tiket/internal/events"
	"github.com/dlfdkwl/discord-tiket/internal/platform"
)

const (
	logColorCreated = 0x2ecc71
	logColorClosed  = 0xe74c3c
)

// NotificationService delivers log-channel notices for ticket events.
// Delivery is best effort: a failed notice is logged, never surfaced to the
// operation that triggered it.
type NotificationService struct {
	dispatcher events.Dispatcher
	settings   *SettingsService
	platform   platform.Client
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, settings *SettingsService, client platform.Client, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		settings:   settings,
		platform:   client,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to the events that produce log notices.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketClosed, n.handleTicketClosed)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	cfg, ok := n.settings.Get(event.TenantID)
	if !ok || cfg.LogChannelID == 0 {
		return nil
	}
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return nil
	}

	embed := &platform.Embed{
		Title: "New Ticket Created",
		Description: fmt.Sprintf("**Channel:** %s\n**Creator:** %s\n**Type:** %s",
			platform.MentionChannel(event.ChannelID),
			platform.MentionUser(payload.OwnerID),
			payload.TicketType),
		Color: logColorCreated,
	}
	if err := n.platform.SendMessage(ctx, cfg.LogChannelID, platform.Outbound{Embed: embed}); err != nil {
		n.logger.Warn("failed to send ticket created notice",
			zap.String("tenant_id", event.TenantID),
			zap.Uint64("log_channel_id", cfg.LogChannelID),
			zap.Error(err))
	}
	return nil
}

func (n *NotificationService) handleTicketClosed(ctx context.Context, event events.Event) error {
	cfg, ok := n.settings.Get(event.TenantID)
	if !ok || cfg.LogChannelID == 0 {
		return nil
	}
	payload, ok := event.Payload.(events.TicketClosedPayload)
	if !ok {
		return nil
	}

	tmpl := cfg.Embed(domain.EmbedClosed)
	closer := ""
	if event.ActorID != nil {
		closer = platform.MentionUser(*event.ActorID)
	}
	embed := &platform.Embed{
		Title: tmpl.Title,
		Description: fmt.Sprintf("**Ticket:** %s\n**Closed by:** %s",
			payload.ChannelName, closer),
		Color:  logColorClosed,
		Footer: tmpl.Footer,
		Fields: []platform.EmbedField{
			{Name: "Time open", Value: FormatDuration(payload.Duration)},
		},
	}
	msg := platform.Outbound{Embed: embed, AttachmentRef: payload.TranscriptRef}
	if err := n.platform.SendMessage(ctx, cfg.LogChannelID, msg); err != nil {
		n.logger.Warn("failed to send ticket closed notice",
			zap.String("tenant_id", event.TenantID),
			zap.Uint64("log_channel_id", cfg.LogChannelID),
			zap.Error(err))
	}
	return nil
}

// FormatDuration renders a duration as H:MM:SS with sub-second precision
// dropped.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
}
