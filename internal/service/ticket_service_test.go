package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dlfdkwl/discord-tiket/internal/domain"
	"github.com/dlfdkwl/discord-tiket/internal/events"
	"github.com/dlfdkwl/discord-tiket/internal/persistence"
	"github.com/dlfdkwl/discord-tiket/internal/platform"
	"github.com/dlfdkwl/discord-tiket/internal/platform/platformtest"
	"github.com/dlfdkwl/discord-tiket/internal/registry"
	"github.com/dlfdkwl/discord-tiket/internal/repository"
	"github.com/dlfdkwl/discord-tiket/internal/scheduler"
	apperrors "github.com/dlfdkwl/discord-tiket/pkg/util"
)

const testTenant = "tenant-a"

type ticketFixture struct {
	svc      *TicketService
	settings *SettingsService
	registry *registry.Registry
	fake     *platformtest.Fake
	sched    *scheduler.Manual
	store    *persistence.FileStore
	disp     events.Dispatcher

	mu  sync.Mutex
	now time.Time
}

func (f *ticketFixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *ticketFixture) advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func baseConfig() *domain.TenantConfig {
	return &domain.TenantConfig{
		CategoryID:        500,
		SupportRoleIDs:    []uint64{10, 11},
		TicketTypes:       []string{"billing", "support"},
		LogChannelID:      600,
		MaxTicketsPerUser: 3,
	}
}

func newTicketFixture(t *testing.T, cfg *domain.TenantConfig) *ticketFixture {
	t.Helper()
	logger := zap.NewNop()

	store, err := persistence.NewFileStore(t.TempDir())
	require.NoError(t, err)
	settings := NewSettingsService(repository.NewSettingsRepository(store, "settings.json"), logger)
	if cfg != nil {
		require.NoError(t, settings.Put(context.Background(), testTenant, cfg))
	}

	fx := &ticketFixture{
		settings: settings,
		registry: registry.New(),
		fake:     platformtest.New(),
		sched:    scheduler.NewManual(),
		store:    store,
		disp:     events.NewInMemoryDispatcher(),
		now:      time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	fx.svc = NewTicketService(TicketDependencies{
		Settings:   settings,
		Registry:   fx.registry,
		Admission:  NewAdmission(settings, fx.registry),
		Archiver:   NewArchiveService(fx.fake, store, logger),
		Platform:   fx.fake,
		Dispatcher: fx.disp,
		Scheduler:  fx.sched,
		Logger:     logger,
		Clock:      fx.clock,
		GraceDelay: time.Second,
	})
	return fx
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	require.Equal(t, code, domainErr.Code)
}

func TestCreateOpensChannelWithOverlay(t *testing.T) {
	fx := newTicketFixture(t, baseConfig())

	session, err := fx.svc.Create(context.Background(), testTenant, 42, "billing")
	require.NoError(t, err)
	require.Equal(t, domain.TicketStateOpen, session.State)
	require.Equal(t, domain.TicketPriorityNone, session.Priority)
	require.Equal(t, "ticket-billing-42", session.ChannelName)
	require.Equal(t, fx.clock(), session.CreatedAt)

	ch, ok := fx.fake.Channel(session.ChannelID)
	require.True(t, ok)
	require.Equal(t, uint64(500), ch.ParentID)
	require.Equal(t, "ticket-billing-42", ch.Name)
	require.Equal(t, []domain.Grant{
		{Kind: domain.PrincipalEveryone, Level: domain.AccessDenied},
		{Kind: domain.PrincipalUser, ID: 42, Level: domain.AccessReadWrite},
		{Kind: domain.PrincipalRole, ID: 10, Level: domain.AccessReadWrite},
		{Kind: domain.PrincipalRole, ID: 11, Level: domain.AccessReadWrite},
	}, ch.Overlay)

	got, ok := fx.svc.Get(session.ChannelID)
	require.True(t, ok)
	require.Equal(t, *session, *got)

	sent := fx.fake.SentTo(session.ChannelID)
	require.Len(t, sent, 1)
	require.Contains(t, sent[0].Content, "<@42>")
	require.Contains(t, sent[0].Content, "<@&10>")
	require.Contains(t, sent[0].Content, "<@&11>")
	require.NotNil(t, sent[0].Embed)
	require.Equal(t, domain.DefaultEmbed(domain.EmbedCreated).Title, sent[0].Embed.Title)
}

func TestCreateRefusesUnconfiguredTenant(t *testing.T) {
	fx := newTicketFixture(t, nil)

	_, err := fx.svc.Create(context.Background(), testTenant, 42, "billing")
	requireCode(t, err, "CONFIG_INCOMPLETE")
}

func TestCreateRefusesIncompleteConfig(t *testing.T) {
	cfg := baseConfig()
	cfg.LogChannelID = 0
	fx := newTicketFixture(t, cfg)

	_, err := fx.svc.Create(context.Background(), testTenant, 42, "billing")
	requireCode(t, err, "CONFIG_INCOMPLETE")
}

func TestCreateRefusesUnknownType(t *testing.T) {
	fx := newTicketFixture(t, baseConfig())

	_, err := fx.svc.Create(context.Background(), testTenant, 42, "refunds")
	requireCode(t, err, "UNKNOWN_TICKET_TYPE")
	require.Empty(t, fx.fake.Channels)
	require.Equal(t, 0, fx.registry.CountByOwner(testTenant, 42))
}

func TestCreateEnforcesQuotaPerOwner(t *testing.T) {
	cfg := baseConfig()
	cfg.MaxTicketsPerUser = 1
	fx := newTicketFixture(t, cfg)

	_, err := fx.svc.Create(context.Background(), testTenant, 42, "billing")
	require.NoError(t, err)

	_, err = fx.svc.Create(context.Background(), testTenant, 42, "support")
	requireCode(t, err, "QUOTA_EXCEEDED")

	// The limit is per owner, not per tenant.
	_, err = fx.svc.Create(context.Background(), testTenant, 43, "support")
	require.NoError(t, err)
}

func TestCreateReleasesSlotWhenChannelCreationFails(t *testing.T) {
	cfg := baseConfig()
	cfg.MaxTicketsPerUser = 1
	fx := newTicketFixture(t, cfg)

	fx.fake.CreateErr = errors.New("gateway down")
	_, err := fx.svc.Create(context.Background(), testTenant, 42, "billing")
	requireCode(t, err, "COLLABORATOR_FAILED")
	require.Equal(t, 0, fx.registry.CountByOwner(testTenant, 42))

	// The reserved slot must not leak: a retry still fits under max=1.
	fx.fake.CreateErr = nil
	_, err = fx.svc.Create(context.Background(), testTenant, 42, "billing")
	require.NoError(t, err)
}

func TestConcurrentCreatesNeverExceedQuota(t *testing.T) {
	cfg := baseConfig()
	cfg.MaxTicketsPerUser = 3
	fx := newTicketFixture(t, cfg)

	const attempts = 8
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := fx.svc.Create(context.Background(), testTenant, 42, "billing")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		requireCode(t, err, "QUOTA_EXCEEDED")
	}
	require.Equal(t, 3, succeeded)
	require.Equal(t, 3, fx.registry.CountByOwner(testTenant, 42))
}

func TestAddParticipantGrantsAccess(t *testing.T) {
	fx := newTicketFixture(t, baseConfig())
	session, err := fx.svc.Create(context.Background(), testTenant, 42, "billing")
	require.NoError(t, err)

	require.NoError(t, fx.svc.AddParticipant(context.Background(), session.ChannelID, 77))
	// A second grant for the same user is a no-op success.
	require.NoError(t, fx.svc.AddParticipant(context.Background(), session.ChannelID, 77))

	ch, _ := fx.fake.Channel(session.ChannelID)
	require.Equal(t, domain.AccessReadWrite, ch.Grants[77])
}

func TestAddParticipantUnknownChannel(t *testing.T) {
	fx := newTicketFixture(t, baseConfig())
	err := fx.svc.AddParticipant(context.Background(), 9999, 77)
	requireCode(t, err, "NOT_FOUND")
}

func TestAddParticipantRefusedAfterClose(t *testing.T) {
	fx := newTicketFixture(t, baseConfig())
	session, err := fx.svc.Create(context.Background(), testTenant, 42, "billing")
	require.NoError(t, err)
	_, err = fx.svc.Close(context.Background(), session.ChannelID, 1)
	require.NoError(t, err)

	err = fx.svc.AddParticipant(context.Background(), session.ChannelID, 77)
	requireCode(t, err, "INVALID_STATE")
}

func TestSetPriorityRenamesWithSingleToken(t *testing.T) {
	fx := newTicketFixture(t, baseConfig())
	session, err := fx.svc.Create(context.Background(), testTenant, 42, "billing")
	require.NoError(t, err)

	require.NoError(t, fx.svc.SetPriority(context.Background(), session.ChannelID, domain.TicketPriorityHigh))
	ch, _ := fx.fake.Channel(session.ChannelID)
	require.Equal(t, "ticket-billing-42-HIGH", ch.Name)

	// Changing again replaces the token instead of stacking a second one.
	require.NoError(t, fx.svc.SetPriority(context.Background(), session.ChannelID, domain.TicketPriorityUrgent))
	ch, _ = fx.fake.Channel(session.ChannelID)
	require.Equal(t, "ticket-billing-42-URGENT", ch.Name)
	require.Equal(t, domain.TicketPriorityUrgent, session.Priority)

	// NONE strips the token entirely.
	require.NoError(t, fx.svc.SetPriority(context.Background(), session.ChannelID, domain.TicketPriorityNone))
	ch, _ = fx.fake.Channel(session.ChannelID)
	require.Equal(t, "ticket-billing-42", ch.Name)
}

func TestSetPriorityRejectsUnknownLabel(t *testing.T) {
	fx := newTicketFixture(t, baseConfig())
	session, err := fx.svc.Create(context.Background(), testTenant, 42, "billing")
	require.NoError(t, err)

	err = fx.svc.SetPriority(context.Background(), session.ChannelID, domain.TicketPriority("CRITICAL"))
	requireCode(t, err, "VALIDATION_FAILED")
}

func TestSetPriorityKeepsStateOnRenameFailure(t *testing.T) {
	fx := newTicketFixture(t, baseConfig())
	session, err := fx.svc.Create(context.Background(), testTenant, 42, "billing")
	require.NoError(t, err)

	fx.fake.RenameErr = errors.New("gateway down")
	err = fx.svc.SetPriority(context.Background(), session.ChannelID, domain.TicketPriorityHigh)
	requireCode(t, err, "COLLABORATOR_FAILED")
	require.Equal(t, domain.TicketPriorityNone, session.Priority)
	require.Equal(t, "ticket-billing-42", session.ChannelName)
}

func TestCloseArchivesTranscriptAndSchedulesDeletion(t *testing.T) {
	fx := newTicketFixture(t, baseConfig())
	session, err := fx.svc.Create(context.Background(), testTenant, 42, "billing")
	require.NoError(t, err)

	base := fx.clock()
	fx.advance(90 * time.Minute)

	result, err := fx.svc.Close(context.Background(), session.ChannelID, 1)
	require.NoError(t, err)
	require.Equal(t, domain.TicketStateArchived, session.State)
	require.Equal(t, 90*time.Minute, result.Duration)
	require.Equal(t, "transcripts/ticket-billing-42.txt", result.TranscriptRef)
	require.NotNil(t, session.ClosedAt)
	require.Equal(t, base.Add(90*time.Minute), *session.ClosedAt)

	// Deletion waits for the grace period.
	require.Equal(t, 1, fx.sched.Pending())
	ch, _ := fx.fake.Channel(session.ChannelID)
	require.False(t, ch.Deleted)

	require.Equal(t, 1, fx.sched.Fire())
	ch, _ = fx.fake.Channel(session.ChannelID)
	require.True(t, ch.Deleted)
	_, found := fx.registry.Get(session.ChannelID)
	require.False(t, found)
}

func TestCloseRendersOrderedTranscript(t *testing.T) {
	fx := newTicketFixture(t, baseConfig())
	session, err := fx.svc.Create(context.Background(), testTenant, 42, "billing")
	require.NoError(t, err)

	ts := time.Date(2026, 8, 1, 12, 5, 0, 0, time.UTC)
	fx.fake.Histories[session.ChannelID] = []platform.Message{
		{Timestamp: ts, AuthorName: "alice", Content: "hello"},
		{Timestamp: ts.Add(time.Minute), AuthorName: "bob", Content: ""},
	}

	result, err := fx.svc.Close(context.Background(), session.ChannelID, 1)
	require.NoError(t, err)

	data, err := fx.store.Read(context.Background(), result.TranscriptRef)
	require.NoError(t, err)
	require.Equal(t,
		"[2026-08-01 12:05:00] alice: hello\n[2026-08-01 12:06:00] bob: [embed or attachment]",
		string(data))
}

func TestDoubleCloseIsRefusedWithoutRecapture(t *testing.T) {
	fx := newTicketFixture(t, baseConfig())
	session, err := fx.svc.Create(context.Background(), testTenant, 42, "billing")
	require.NoError(t, err)

	_, err = fx.svc.Close(context.Background(), session.ChannelID, 1)
	require.NoError(t, err)
	captures := fx.fake.HistoryCalls

	_, err = fx.svc.Close(context.Background(), session.ChannelID, 1)
	requireCode(t, err, "INVALID_STATE")
	require.Equal(t, captures, fx.fake.HistoryCalls)
	require.Equal(t, 1, fx.sched.Pending(), "no second deletion scheduled")
}

func TestCloseReopensWhenCaptureFails(t *testing.T) {
	fx := newTicketFixture(t, baseConfig())
	session, err := fx.svc.Create(context.Background(), testTenant, 42, "billing")
	require.NoError(t, err)

	fx.fake.HistoryErr = errors.New("gateway down")
	_, err = fx.svc.Close(context.Background(), session.ChannelID, 1)
	requireCode(t, err, "COLLABORATOR_FAILED")
	require.Equal(t, domain.TicketStateOpen, session.State)
	require.Nil(t, session.ClosedAt)
	require.Equal(t, 0, fx.sched.Pending())

	// Close is retryable once the collaborator recovers.
	fx.fake.HistoryErr = nil
	_, err = fx.svc.Close(context.Background(), session.ChannelID, 1)
	require.NoError(t, err)
	require.Equal(t, domain.TicketStateArchived, session.State)
}

func TestDeletionFailureLeavesSessionArchived(t *testing.T) {
	fx := newTicketFixture(t, baseConfig())
	session, err := fx.svc.Create(context.Background(), testTenant, 42, "billing")
	require.NoError(t, err)
	_, err = fx.svc.Close(context.Background(), session.ChannelID, 1)
	require.NoError(t, err)

	fx.fake.DeleteErr = errors.New("gateway down")
	fx.sched.Fire()
	require.Equal(t, domain.TicketStateArchived, session.State)
	_, found := fx.registry.Get(session.ChannelID)
	require.True(t, found, "session stays registered after a failed delete")
}

func TestCancelDeletionStopsPendingDelete(t *testing.T) {
	fx := newTicketFixture(t, baseConfig())
	session, err := fx.svc.Create(context.Background(), testTenant, 42, "billing")
	require.NoError(t, err)
	_, err = fx.svc.Close(context.Background(), session.ChannelID, 1)
	require.NoError(t, err)

	require.True(t, fx.svc.CancelDeletion(session.ChannelID))
	require.False(t, fx.svc.CancelDeletion(session.ChannelID))
	require.Equal(t, 0, fx.sched.Fire())

	ch, _ := fx.fake.Channel(session.ChannelID)
	require.False(t, ch.Deleted)
}

func TestClosedSlotReturnsToQuotaAfterDeletion(t *testing.T) {
	cfg := baseConfig()
	cfg.MaxTicketsPerUser = 1
	fx := newTicketFixture(t, cfg)

	session, err := fx.svc.Create(context.Background(), testTenant, 42, "billing")
	require.NoError(t, err)
	_, err = fx.svc.Close(context.Background(), session.ChannelID, 1)
	require.NoError(t, err)

	// Until the channel is gone the slot is still held.
	_, err = fx.svc.Create(context.Background(), testTenant, 42, "billing")
	requireCode(t, err, "QUOTA_EXCEEDED")

	fx.sched.Fire()
	_, err = fx.svc.Create(context.Background(), testTenant, 42, "billing")
	require.NoError(t, err)
}

func TestGetReturnsIndependentSnapshot(t *testing.T) {
	fx := newTicketFixture(t, baseConfig())
	session, err := fx.svc.Create(context.Background(), testTenant, 42, "billing")
	require.NoError(t, err)

	snap, ok := fx.svc.Get(session.ChannelID)
	require.True(t, ok)
	require.NotSame(t, session, snap)

	// Writing through the snapshot must not touch the live session.
	snap.State = domain.TicketStateDeleted
	again, ok := fx.svc.Get(session.ChannelID)
	require.True(t, ok)
	require.Equal(t, domain.TicketStateOpen, again.State)
}

func TestGetDuringCloseSeesConsistentSession(t *testing.T) {
	fx := newTicketFixture(t, baseConfig())
	session, err := fx.svc.Create(context.Background(), testTenant, 42, "billing")
	require.NoError(t, err)

	stop := make(chan struct{})
	var torn atomic.Bool
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap, ok := fx.svc.Get(session.ChannelID)
				if !ok {
					continue
				}
				// Close sets ClosedAt together with leaving OPEN; a snapshot
				// must never show one without the other.
				if snap.State == domain.TicketStateOpen && snap.ClosedAt != nil {
					torn.Store(true)
				}
				if snap.State == domain.TicketStateArchived && snap.ClosedAt == nil {
					torn.Store(true)
				}
			}
		}()
	}

	result, err := fx.svc.Close(context.Background(), session.ChannelID, 1)
	close(stop)
	wg.Wait()
	require.NoError(t, err)
	require.False(t, torn.Load())

	// The close result is a snapshot too: the grace-period delete must not
	// reach through it.
	require.NotSame(t, session, result.Session)
	fx.sched.Fire()
	require.Equal(t, domain.TicketStateArchived, result.Session.State)
	require.Equal(t, domain.TicketStateDeleted, session.State)
}

func TestFailedDeletionDropsPendingHandle(t *testing.T) {
	fx := newTicketFixture(t, baseConfig())
	session, err := fx.svc.Create(context.Background(), testTenant, 42, "billing")
	require.NoError(t, err)
	_, err = fx.svc.Close(context.Background(), session.ChannelID, 1)
	require.NoError(t, err)

	fx.fake.DeleteErr = errors.New("gateway down")
	require.Equal(t, 1, fx.sched.Fire())

	// The handle already fired; nothing is left to cancel.
	require.False(t, fx.svc.CancelDeletion(session.ChannelID))
	require.Equal(t, domain.TicketStateArchived, session.State)

	// Session operations still serialize normally afterwards.
	err = fx.svc.AddParticipant(context.Background(), session.ChannelID, 77)
	requireCode(t, err, "INVALID_STATE")
}

func TestStatsCountsByType(t *testing.T) {
	fx := newTicketFixture(t, baseConfig())
	_, err := fx.svc.Create(context.Background(), testTenant, 42, "billing")
	require.NoError(t, err)
	_, err = fx.svc.Create(context.Background(), testTenant, 43, "billing")
	require.NoError(t, err)
	_, err = fx.svc.Create(context.Background(), testTenant, 44, "support")
	require.NoError(t, err)

	stats := fx.svc.Stats(testTenant)
	require.Equal(t, 3, stats.Total)
	require.Equal(t, map[string]int{"billing": 2, "support": 1}, stats.ByType)

	require.Zero(t, fx.svc.Stats("tenant-b").Total)
}

func TestLifecycleEventsArePublished(t *testing.T) {
	fx := newTicketFixture(t, baseConfig())

	var mu sync.Mutex
	var seen []events.EventType
	record := func(ctx context.Context, event events.Event) error {
		mu.Lock()
		seen = append(seen, event.Type)
		mu.Unlock()
		return nil
	}
	fx.disp.Subscribe(events.EventTicketCreated, record)
	fx.disp.Subscribe(events.EventTicketPriorityChanged, record)
	fx.disp.Subscribe(events.EventTicketClosed, record)
	fx.disp.Subscribe(events.EventTicketDeleted, record)

	session, err := fx.svc.Create(context.Background(), testTenant, 42, "billing")
	require.NoError(t, err)
	require.NoError(t, fx.svc.SetPriority(context.Background(), session.ChannelID, domain.TicketPriorityHigh))
	_, err = fx.svc.Close(context.Background(), session.ChannelID, 1)
	require.NoError(t, err)
	fx.sched.Fire()

	require.Equal(t, []events.EventType{
		events.EventTicketCreated,
		events.EventTicketPriorityChanged,
		events.EventTicketClosed,
		events.EventTicketDeleted,
	}, seen)
}

func TestTicketChannelName(t *testing.T) {
	require.Equal(t, "ticket-billing-42", ticketChannelName("billing", 42))
	require.Equal(t, "ticket-bug-report-7", ticketChannelName("Bug Report", 7))
}

func TestWithPriorityToken(t *testing.T) {
	cases := []struct {
		name     string
		priority domain.TicketPriority
		want     string
	}{
		{"ticket-billing-42", domain.TicketPriorityHigh, "ticket-billing-42-HIGH"},
		{"ticket-billing-42-LOW", domain.TicketPriorityUrgent, "ticket-billing-42-URGENT"},
		{"ticket-billing-42-HIGH", domain.TicketPriorityNone, "ticket-billing-42"},
		{"ticket-billing-42", domain.TicketPriorityNone, "ticket-billing-42"},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s_%s", tc.name, tc.priority), func(t *testing.T) {
			require.Equal(t, tc.want, withPriorityToken(tc.name, tc.priority))
		})
	}
}
