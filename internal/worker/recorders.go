package worker

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/dlfdkwl/discord-tiket/internal/domain"
	"github.com/dlfdkwl/discord-tiket/internal/events"
	"github.com/dlfdkwl/discord-tiket/internal/repository"
	"github.com/dlfdkwl/discord-tiket/internal/service"
)

// StartNotificationWorker registers log-channel notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// StartHistoryRecorder subscribes a durable audit recorder for ticket
// lifecycle events. Recording is best effort and skipped entirely when no
// history repository is configured.
func StartHistoryRecorder(dispatcher events.Dispatcher, history repository.HistoryRepository, logger *zap.Logger) {
	if dispatcher == nil || history == nil {
		return
	}

	record := func(ctx context.Context, event events.Event) error {
		entry := &domain.TicketEvent{
			TenantID:  event.TenantID,
			ChannelID: event.ChannelID,
			EventType: string(event.Type),
			ActorID:   event.ActorID,
			Payload:   payloadMap(event.Payload),
		}
		if err := history.Record(ctx, entry); err != nil {
			logger.Warn("failed to record ticket event",
				zap.String("event_type", string(event.Type)),
				zap.Uint64("channel_id", event.ChannelID),
				zap.Error(err))
		}
		return nil
	}

	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketPriorityChanged,
		events.EventTicketClosed,
		events.EventTicketDeleted,
	} {
		dispatcher.Subscribe(eventType, record)
	}
}

func payloadMap(payload any) map[string]any {
	if payload == nil {
		return map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]any{}
	}
	return out
}
