package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dlfdkwl/discord-tiket/internal/events"
	"github.com/dlfdkwl/discord-tiket/internal/persistence"
	"github.com/dlfdkwl/discord-tiket/internal/platform/platformtest"
	"github.com/dlfdkwl/discord-tiket/internal/repository"
)

func newNotificationFixture(t *testing.T) (*platformtest.Fake, events.Dispatcher) {
	t.Helper()
	logger := zap.NewNop()
	store, err := persistence.NewFileStore(t.TempDir())
	require.NoError(t, err)
	settings := NewSettingsService(repository.NewSettingsRepository(store, "settings.json"), logger)
	require.NoError(t, settings.Put(context.Background(), testTenant, baseConfig()))

	fake := platformtest.New()
	disp := events.NewInMemoryDispatcher()
	NewNotificationService(disp, settings, fake, logger).RegisterHandlers()
	return fake, disp
}

func TestCreatedNoticeGoesToLogChannel(t *testing.T) {
	fake, disp := newNotificationFixture(t)

	actor := uint64(42)
	require.NoError(t, disp.Publish(context.Background(), events.Event{
		Type:      events.EventTicketCreated,
		TenantID:  testTenant,
		ChannelID: 1001,
		ActorID:   &actor,
		Payload: events.TicketCreatedPayload{
			OwnerID:     42,
			TicketType:  "billing",
			ChannelName: "ticket-billing-42",
		},
	}))

	sent := fake.SentTo(600)
	require.Len(t, sent, 1)
	require.NotNil(t, sent[0].Embed)
	require.Contains(t, sent[0].Embed.Description, "<#1001>")
	require.Contains(t, sent[0].Embed.Description, "<@42>")
	require.Contains(t, sent[0].Embed.Description, "billing")
}

func TestClosedNoticeCarriesTranscriptAndDuration(t *testing.T) {
	fake, disp := newNotificationFixture(t)

	actor := uint64(7)
	require.NoError(t, disp.Publish(context.Background(), events.Event{
		Type:      events.EventTicketClosed,
		TenantID:  testTenant,
		ChannelID: 1001,
		ActorID:   &actor,
		Payload: events.TicketClosedPayload{
			OwnerID:       42,
			ChannelName:   "ticket-billing-42",
			Duration:      90*time.Minute + 5*time.Second,
			TranscriptRef: "transcripts/ticket-billing-42.txt",
		},
	}))

	sent := fake.SentTo(600)
	require.Len(t, sent, 1)
	require.Equal(t, "transcripts/ticket-billing-42.txt", sent[0].AttachmentRef)
	require.NotNil(t, sent[0].Embed)
	require.Contains(t, sent[0].Embed.Description, "<@7>")
	require.Len(t, sent[0].Embed.Fields, 1)
	require.Equal(t, "1:30:05", sent[0].Embed.Fields[0].Value)
}

func TestNoticeSkippedForUnknownTenant(t *testing.T) {
	fake, disp := newNotificationFixture(t)

	require.NoError(t, disp.Publish(context.Background(), events.Event{
		Type:     events.EventTicketCreated,
		TenantID: "tenant-b",
		Payload:  events.TicketCreatedPayload{OwnerID: 42},
	}))
	require.Empty(t, fake.SentTo(600))
}

func TestFormatDuration(t *testing.T) {
	require.Equal(t, "0:00:00", FormatDuration(0))
	require.Equal(t, "0:00:59", FormatDuration(59*time.Second))
	require.Equal(t, "1:05:09", FormatDuration(time.Hour+5*time.Minute+9*time.Second))
	require.Equal(t, "26:00:00", FormatDuration(26*time.Hour))
	require.Equal(t, "0:00:00", FormatDuration(-time.Minute))
}
