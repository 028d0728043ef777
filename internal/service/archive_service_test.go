package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dlfdkwl/discord-tiket/internal/domain"
	"github.com/dlfdkwl/discord-tiket/internal/persistence"
	"github.com/dlfdkwl/discord-tiket/internal/platform"
	"github.com/dlfdkwl/discord-tiket/internal/platform/platformtest"
)

func newArchiver(t *testing.T) (*ArchiveService, *platformtest.Fake, *persistence.FileStore) {
	t.Helper()
	store, err := persistence.NewFileStore(t.TempDir())
	require.NoError(t, err)
	fake := platformtest.New()
	return NewArchiveService(fake, store, zap.NewNop()), fake, store
}

func TestCapturePreservesOrderAndSubstitutesPlaceholder(t *testing.T) {
	archiver, fake, _ := newArchiver(t)
	ts := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	fake.Histories[1001] = []platform.Message{
		{Timestamp: ts, AuthorName: "alice", Content: "first"},
		{Timestamp: ts.Add(time.Second), AuthorName: "bob", Content: ""},
		{Timestamp: ts.Add(2 * time.Second), AuthorName: "alice", Content: "last"},
	}

	entries, err := archiver.Capture(context.Background(), 1001)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "first", entries[0].Content)
	require.Equal(t, "[embed or attachment]", entries[1].Content)
	require.Equal(t, "last", entries[2].Content)
}

func TestCaptureEmptyChannel(t *testing.T) {
	archiver, _, _ := newArchiver(t)
	entries, err := archiver.Capture(context.Background(), 1001)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestCapturePropagatesHistoryFailure(t *testing.T) {
	archiver, fake, _ := newArchiver(t)
	fake.HistoryErr = errors.New("gateway down")
	_, err := archiver.Capture(context.Background(), 1001)
	require.Error(t, err)
}

func TestPersistWritesTranscriptBlob(t *testing.T) {
	archiver, _, store := newArchiver(t)
	entries := []domain.TranscriptEntry{
		{Timestamp: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC), AuthorName: "alice", Content: "hello"},
	}

	ref, err := archiver.Persist(context.Background(), testTenant, "ticket-billing-42", entries)
	require.NoError(t, err)
	require.Equal(t, "transcripts/ticket-billing-42.txt", ref)

	data, err := store.Read(context.Background(), ref)
	require.NoError(t, err)
	require.Equal(t, "[2026-08-01 09:00:00] alice: hello", string(data))
}

func TestPersistEmptyTranscript(t *testing.T) {
	archiver, _, store := newArchiver(t)
	ref, err := archiver.Persist(context.Background(), testTenant, "ticket-billing-42", nil)
	require.NoError(t, err)

	data, err := store.Read(context.Background(), ref)
	require.NoError(t, err)
	require.Empty(t, data)
}

func TestRenderTranscript(t *testing.T) {
	ts := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	out := RenderTranscript([]domain.TranscriptEntry{
		{Timestamp: ts, AuthorName: "alice", Content: "one"},
		{Timestamp: ts.Add(time.Minute), AuthorName: "bob", Content: "two"},
	})
	require.Equal(t, "[2026-08-01 09:00:00] alice: one\n[2026-08-01 09:01:00] bob: two", out)
}
