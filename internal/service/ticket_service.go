package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dlfdkwl/discord-tiket/internal/domain"
	"github.com/dlfdkwl/discord-tiket/internal/events"
	"github.com/dlfdkwl/discord-tiket/internal/platform"
	"github.com/dlfdkwl/discord-tiket/internal/registry"
	"github.com/dlfdkwl/discord-tiket/internal/scheduler"
	apperrors "github.com/dlfdkwl/discord-tiket/pkg/util"
)

// TicketService orchestrates the ticket lifecycle: creation under quota,
// participant grants, priority changes, and the close/archive/delete path.
// Operations on a given channel serialize on a per-session lock; admission
// and slot reservation compose atomically inside the registry.
type TicketService struct {
	settings   *SettingsService
	registry   *registry.Registry
	admission  *Admission
	archiver   *ArchiveService
	platform   platform.Client
	dispatcher events.Dispatcher
	scheduler  scheduler.Scheduler
	logger     *zap.Logger
	clock      func() time.Time
	grace      time.Duration

	mu        sync.Mutex
	sessionMu map[uint64]*sync.Mutex
	deletions map[uint64]scheduler.Handle
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Settings   *SettingsService
	Registry   *registry.Registry
	Admission  *Admission
	Archiver   *ArchiveService
	Platform   platform.Client
	Dispatcher events.Dispatcher
	Scheduler  scheduler.Scheduler
	Logger     *zap.Logger
	Clock      func() time.Time
	GraceDelay time.Duration
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	grace := deps.GraceDelay
	if grace <= 0 {
		grace = 5 * time.Second
	}
	return &TicketService{
		settings:   deps.Settings,
		registry:   deps.Registry,
		admission:  deps.Admission,
		archiver:   deps.Archiver,
		platform:   deps.Platform,
		dispatcher: deps.Dispatcher,
		scheduler:  deps.Scheduler,
		logger:     deps.Logger,
		clock:      clock,
		grace:      grace,
		sessionMu:  make(map[uint64]*sync.Mutex),
		deletions:  make(map[uint64]scheduler.Handle),
	}
}

// CloseResult reports the outcome of a successful close.
type CloseResult struct {
	Session       *domain.TicketSession
	Duration      time.Duration
	TranscriptRef string
}

// TicketStats summarizes a tenant's active tickets.
type TicketStats struct {
	Total  int
	ByType map[string]int
}

// Create opens a new ticket channel for the owner. The quota check and slot
// reservation happen atomically; a channel-creation failure releases the
// reserved slot.
func (s *TicketService) Create(ctx context.Context, tenantID string, ownerID uint64, ticketType string) (*domain.TicketSession, error) {
	cfg, ok := s.settings.Get(tenantID)
	if !ok || !cfg.IsComplete() {
		return nil, apperrors.NewConfigIncomplete(tenantID)
	}
	if !cfg.HasTicketType(ticketType) {
		return nil, apperrors.NewUnknownTicketType(ticketType)
	}

	res, max, ok := s.admission.Reserve(tenantID, ownerID)
	if !ok {
		return nil, apperrors.NewQuotaExceeded(ownerID, max)
	}

	name := ticketChannelName(ticketType, ownerID)
	overlay := ComputeOverlay(cfg, ownerID)

	channelID, err := s.platform.CreateChannel(ctx, cfg.CategoryID, name, overlay)
	if err != nil {
		s.registry.Release(res)
		return nil, apperrors.NewCollaboratorError("channel creation", err)
	}

	session := &domain.TicketSession{
		ChannelID:   channelID,
		TenantID:    tenantID,
		OwnerID:     ownerID,
		TicketType:  ticketType,
		ChannelName: name,
		State:       domain.TicketStateOpen,
		Priority:    domain.TicketPriorityNone,
		CreatedAt:   s.clock(),
	}

	if err := s.registry.Commit(res, session); err != nil {
		s.registry.Release(res)
		if delErr := s.platform.DeleteChannel(ctx, channelID); delErr != nil {
			s.logger.Warn("failed to remove orphaned ticket channel", zap.Uint64("channel_id", channelID), zap.Error(delErr))
		}
		return nil, apperrors.NewDuplicateSession(channelID)
	}

	s.sendOpenedMessage(ctx, cfg, session)

	s.publishEvent(ctx, events.Event{
		Type:      events.EventTicketCreated,
		TenantID:  tenantID,
		ChannelID: channelID,
		ActorID:   &ownerID,
		Payload: events.TicketCreatedPayload{
			OwnerID:     ownerID,
			TicketType:  ticketType,
			ChannelName: name,
		},
	})

	s.logger.Info("ticket created",
		zap.String("tenant_id", tenantID),
		zap.Uint64("channel_id", channelID),
		zap.Uint64("owner_id", ownerID),
		zap.String("ticket_type", ticketType))
	return session, nil
}

// AddParticipant grants a user access to an open ticket. Granting access to
// an already-granted user is a no-op success.
func (s *TicketService) AddParticipant(ctx context.Context, channelID, userID uint64) error {
	lock := s.sessionLock(channelID)
	lock.Lock()
	defer lock.Unlock()

	session, ok := s.registry.Get(channelID)
	if !ok {
		return apperrors.NewNotFound("ticket session", map[string]any{"channel_id": channelID})
	}
	if session.State != domain.TicketStateOpen {
		return apperrors.NewInvalidState("adding a participant", string(session.State))
	}

	if err := s.platform.GrantAccess(ctx, channelID, userID, domain.AccessReadWrite); err != nil {
		return apperrors.NewCollaboratorError("participant grant", err)
	}
	return nil
}

// SetPriority updates an open ticket's priority and renames the channel so
// its label carries exactly one priority token.
func (s *TicketService) SetPriority(ctx context.Context, channelID uint64, priority domain.TicketPriority) error {
	if _, ok := domain.ParsePriority(string(priority)); !ok {
		return apperrors.NewValidationError("unknown priority", map[string]any{"priority": string(priority)})
	}

	lock := s.sessionLock(channelID)
	lock.Lock()
	defer lock.Unlock()

	session, ok := s.registry.Get(channelID)
	if !ok {
		return apperrors.NewNotFound("ticket session", map[string]any{"channel_id": channelID})
	}
	if session.State != domain.TicketStateOpen {
		return apperrors.NewInvalidState("setting priority", string(session.State))
	}

	newName := withPriorityToken(session.ChannelName, priority)
	if err := s.platform.RenameChannel(ctx, channelID, newName); err != nil {
		return apperrors.NewCollaboratorError("channel rename", err)
	}

	oldPriority := session.Priority
	session.Priority = priority
	session.ChannelName = newName

	s.publishEvent(ctx, events.Event{
		Type:      events.EventTicketPriorityChanged,
		TenantID:  session.TenantID,
		ChannelID: channelID,
		Payload: events.TicketPriorityChangedPayload{
			OldPriority: oldPriority,
			NewPriority: priority,
			ChannelName: newName,
		},
	})
	return nil
}

// Close transitions an open ticket through CLOSING to ARCHIVED, captures and
// persists the transcript, and schedules channel deletion after the grace
// delay. A second close fails with INVALID_STATE. A transcript failure rolls
// the session back to OPEN so close can be retried.
func (s *TicketService) Close(ctx context.Context, channelID, actorID uint64) (*CloseResult, error) {
	lock := s.sessionLock(channelID)
	lock.Lock()
	defer lock.Unlock()

	session, ok := s.registry.Get(channelID)
	if !ok {
		return nil, apperrors.NewNotFound("ticket session", map[string]any{"channel_id": channelID})
	}
	if session.State != domain.TicketStateOpen {
		return nil, apperrors.NewInvalidState("close", string(session.State))
	}

	session.State = domain.TicketStateClosing
	now := s.clock()
	session.ClosedAt = &now

	entries, err := s.archiver.Capture(ctx, channelID)
	if err != nil {
		s.reopenAfterFailedClose(session)
		return nil, apperrors.NewCollaboratorError("history capture", err)
	}
	ref, err := s.archiver.Persist(ctx, session.TenantID, session.ChannelName, entries)
	if err != nil {
		s.reopenAfterFailedClose(session)
		return nil, apperrors.NewCollaboratorError("transcript persist", err)
	}

	session.State = domain.TicketStateArchived
	duration := session.Duration(now)

	s.publishEvent(ctx, events.Event{
		Type:      events.EventTicketClosed,
		TenantID:  session.TenantID,
		ChannelID: channelID,
		ActorID:   &actorID,
		Payload: events.TicketClosedPayload{
			OwnerID:       session.OwnerID,
			ChannelName:   session.ChannelName,
			Duration:      duration,
			TranscriptRef: ref,
		},
	})

	handle := s.scheduler.AfterFunc(s.grace, func() {
		s.finalizeDelete(channelID)
	})
	s.mu.Lock()
	s.deletions[channelID] = handle
	s.mu.Unlock()

	s.logger.Info("ticket closed",
		zap.String("tenant_id", session.TenantID),
		zap.Uint64("channel_id", channelID),
		zap.Uint64("actor_id", actorID),
		zap.Duration("duration", duration))

	// Hand back a snapshot; the grace-period delete mutates the live session.
	snapshot := *session
	return &CloseResult{Session: &snapshot, Duration: duration, TranscriptRef: ref}, nil
}

// CancelDeletion stops a pending grace-period deletion. The hook exists for
// a future reopen feature; the engine itself never calls it today.
func (s *TicketService) CancelDeletion(channelID uint64) bool {
	s.mu.Lock()
	handle, ok := s.deletions[channelID]
	if ok {
		delete(s.deletions, channelID)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	return handle.Cancel()
}

// Get returns a snapshot of the session for a channel. The copy is taken
// under the per-session lock so readers never observe a half-applied close.
func (s *TicketService) Get(channelID uint64) (*domain.TicketSession, bool) {
	if _, ok := s.registry.Get(channelID); !ok {
		return nil, false
	}
	lock := s.sessionLock(channelID)
	lock.Lock()
	defer lock.Unlock()
	session, ok := s.registry.Get(channelID)
	if !ok {
		return nil, false
	}
	snapshot := *session
	return &snapshot, true
}

// ListByTenant returns a snapshot of the tenant's sessions.
func (s *TicketService) ListByTenant(tenantID string) []domain.TicketSession {
	sessions := s.registry.ListByTenant(tenantID)
	result := make([]domain.TicketSession, 0, len(sessions))
	for _, session := range sessions {
		lock := s.sessionLock(session.ChannelID)
		lock.Lock()
		result = append(result, *session)
		lock.Unlock()
	}
	return result
}

// Stats summarizes the tenant's active tickets by type.
func (s *TicketService) Stats(tenantID string) TicketStats {
	stats := TicketStats{ByType: make(map[string]int)}
	for _, session := range s.ListByTenant(tenantID) {
		stats.Total++
		stats.ByType[session.TicketType]++
	}
	return stats
}

func (s *TicketService) finalizeDelete(channelID uint64) {
	lock := s.sessionLock(channelID)
	lock.Lock()
	defer lock.Unlock()

	session, ok := s.registry.Get(channelID)
	if !ok {
		return
	}

	ctx := context.Background()
	if err := s.platform.DeleteChannel(ctx, channelID); err != nil {
		// No automatic retry; the session stays ARCHIVED and the failure is
		// visible in the logs. The fired handle is dropped so CancelDeletion
		// stops reporting a deletion that can no longer be stopped. The
		// session lock entry stays: the session is still registered.
		s.logger.Error("channel deletion failed",
			zap.String("tenant_id", session.TenantID),
			zap.Uint64("channel_id", channelID),
			zap.Error(err))
		s.mu.Lock()
		delete(s.deletions, channelID)
		s.mu.Unlock()
		return
	}

	session.State = domain.TicketStateDeleted
	s.registry.Remove(channelID)

	s.mu.Lock()
	delete(s.deletions, channelID)
	delete(s.sessionMu, channelID)
	s.mu.Unlock()

	s.publishEvent(ctx, events.Event{
		Type:      events.EventTicketDeleted,
		TenantID:  session.TenantID,
		ChannelID: channelID,
		Payload:   events.TicketDeletedPayload{ChannelName: session.ChannelName},
	})
	s.logger.Info("ticket channel deleted",
		zap.String("tenant_id", session.TenantID),
		zap.Uint64("channel_id", channelID))
}

func (s *TicketService) reopenAfterFailedClose(session *domain.TicketSession) {
	session.State = domain.TicketStateOpen
	session.ClosedAt = nil
}

func (s *TicketService) sendOpenedMessage(ctx context.Context, cfg *domain.TenantConfig, session *domain.TicketSession) {
	mentions := make([]string, 0, 1+len(cfg.SupportRoleIDs))
	mentions = append(mentions, platform.MentionUser(session.OwnerID))
	for _, roleID := range cfg.SupportRoleIDs {
		mentions = append(mentions, platform.MentionRole(roleID))
	}

	tmpl := cfg.Embed(domain.EmbedCreated)
	msg := platform.Outbound{
		Content: strings.Join(mentions, " "),
		Embed: &platform.Embed{
			Title:       tmpl.Title,
			Description: tmpl.Description,
			Color:       tmpl.Color,
			Footer:      tmpl.Footer,
		},
	}
	if err := s.platform.SendMessage(ctx, session.ChannelID, msg); err != nil {
		s.logger.Warn("failed to send ticket opened message",
			zap.Uint64("channel_id", session.ChannelID),
			zap.Error(err))
	}
}

func (s *TicketService) sessionLock(channelID uint64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.sessionMu[channelID]
	if !ok {
		lock = &sync.Mutex{}
		s.sessionMu[channelID] = lock
	}
	return lock
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

var priorityTokens = []domain.TicketPriority{
	domain.TicketPriorityLow,
	domain.TicketPriorityMedium,
	domain.TicketPriorityHigh,
	domain.TicketPriorityUrgent,
}

func ticketChannelName(ticketType string, ownerID uint64) string {
	label := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(ticketType), " ", "-"))
	return fmt.Sprintf("ticket-%s-%d", label, ownerID)
}

// withPriorityToken strips any existing priority token from the label before
// appending the new one, so two tokens never stack.
func withPriorityToken(name string, priority domain.TicketPriority) string {
	parts := strings.Split(name, "-")
	kept := parts[:0]
	for _, part := range parts {
		if isPriorityToken(part) {
			continue
		}
		kept = append(kept, part)
	}
	base := strings.Join(kept, "-")
	if priority == domain.TicketPriorityNone {
		return base
	}
	return base + "-" + string(priority)
}

func isPriorityToken(part string) bool {
	for _, token := range priorityTokens {
		if part == string(token) {
			return true
		}
	}
	return false
}
