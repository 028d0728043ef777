package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dlfdkwl/discord-tiket/internal/domain"
	"github.com/dlfdkwl/discord-tiket/internal/persistence"
	"github.com/dlfdkwl/discord-tiket/internal/platform"
)

// nonTextPlaceholder stands in for messages that carry no text content,
// such as bare embeds or attachments.
const nonTextPlaceholder = "[embed or attachment]"

// ArchiveService captures a channel's ordered message log at close time and
// persists it as a plain text transcript.
type ArchiveService struct {
	platform platform.Client
	store    persistence.BlobStore
	logger   *zap.Logger
}

// NewArchiveService constructs the archiver.
func NewArchiveService(client platform.Client, store persistence.BlobStore, logger *zap.Logger) *ArchiveService {
	return &ArchiveService{platform: client, store: store, logger: logger}
}

// Capture fetches the channel's full history, oldest first. An empty channel
// yields zero entries, not an error.
func (s *ArchiveService) Capture(ctx context.Context, channelID uint64) ([]domain.TranscriptEntry, error) {
	messages, err := s.platform.History(ctx, channelID)
	if err != nil {
		return nil, err
	}
	entries := make([]domain.TranscriptEntry, 0, len(messages))
	for _, msg := range messages {
		content := msg.Content
		if content == "" {
			content = nonTextPlaceholder
		}
		entries = append(entries, domain.TranscriptEntry{
			Timestamp:  msg.Timestamp,
			AuthorName: msg.AuthorName,
			Content:    content,
		})
	}
	return entries, nil
}

// Persist writes the rendered transcript to durable storage keyed by channel
// name and returns the storage reference.
func (s *ArchiveService) Persist(ctx context.Context, tenantID, channelName string, entries []domain.TranscriptEntry) (string, error) {
	ref := TranscriptRef(channelName)
	if err := s.store.Write(ctx, ref, []byte(RenderTranscript(entries))); err != nil {
		return "", err
	}
	s.logger.Info("transcript archived",
		zap.String("tenant_id", tenantID),
		zap.String("ref", ref),
		zap.Int("messages", len(entries)))
	return ref, nil
}

// TranscriptRef derives the storage reference for a channel's transcript.
func TranscriptRef(channelName string) string {
	return "transcripts/" + channelName + ".txt"
}

// RenderTranscript formats entries one per line, chronological order.
func RenderTranscript(entries []domain.TranscriptEntry) string {
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, fmt.Sprintf("[%s] %s: %s",
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.AuthorName,
			entry.Content))
	}
	return strings.Join(lines, "\n")
}
