package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/dlfdkwl/discord-tiket/internal/domain"
	"github.com/dlfdkwl/discord-tiket/internal/repository"
	apperrors "github.com/dlfdkwl/discord-tiket/pkg/util"
)

// SettingsService is the durable per-tenant configuration store. Reads are
// served from an in-memory mirror; writes update the mirror first and then
// persist the whole document. A persistence failure is logged but does not
// roll back the in-memory mutation, so the engine stays available until the
// next restart.
type SettingsService struct {
	repo   *repository.SettingsRepository
	logger *zap.Logger

	mu     sync.RWMutex
	mirror map[string]*domain.TenantConfig

	tenantMu  map[string]*sync.Mutex
	tenantsMu sync.Mutex

	persistMu sync.Mutex
}

// NewSettingsService constructs the store.
func NewSettingsService(repo *repository.SettingsRepository, logger *zap.Logger) *SettingsService {
	return &SettingsService{
		repo:     repo,
		logger:   logger,
		mirror:   make(map[string]*domain.TenantConfig),
		tenantMu: make(map[string]*sync.Mutex),
	}
}

// LoadAll populates the mirror at startup. An absent backing document means
// no tenants are configured yet.
func (s *SettingsService) LoadAll(ctx context.Context) error {
	all, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.mirror = all
	s.mu.Unlock()
	s.logger.Info("tenant settings loaded", zap.Int("tenants", len(all)))
	return nil
}

// Get returns a copy of the tenant's config, or absent.
func (s *SettingsService) Get(tenantID string) (*domain.TenantConfig, bool) {
	s.mu.RLock()
	cfg, ok := s.mirror[tenantID]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return cfg.Clone(), true
}

// Put replaces the tenant's config wholesale and persists.
func (s *SettingsService) Put(ctx context.Context, tenantID string, cfg *domain.TenantConfig) error {
	if cfg == nil {
		return apperrors.NewValidationError("config must not be empty", nil)
	}

	lock := s.lockFor(tenantID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	s.mirror[tenantID] = cfg.Clone()
	s.mu.Unlock()

	s.persist(ctx, tenantID)
	return nil
}

// PutEmbed updates one embed template, keeping the rest of the tenant's
// config intact. Serialized against full Put submissions for the tenant.
func (s *SettingsService) PutEmbed(ctx context.Context, tenantID string, kind domain.EmbedKind, tmpl domain.EmbedTemplate) error {
	if !domain.IsValidEmbedKind(kind) {
		return apperrors.NewValidationError("unknown embed kind", map[string]any{"kind": string(kind)})
	}

	lock := s.lockFor(tenantID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	cfg, ok := s.mirror[tenantID]
	if !ok {
		cfg = &domain.TenantConfig{}
		s.mirror[tenantID] = cfg
	}
	if cfg.EmbedTemplates == nil {
		cfg.EmbedTemplates = make(map[domain.EmbedKind]domain.EmbedTemplate)
	}
	cfg.EmbedTemplates[kind] = tmpl
	s.mu.Unlock()

	s.persist(ctx, tenantID)
	return nil
}

func (s *SettingsService) lockFor(tenantID string) *sync.Mutex {
	s.tenantsMu.Lock()
	defer s.tenantsMu.Unlock()
	lock, ok := s.tenantMu[tenantID]
	if !ok {
		lock = &sync.Mutex{}
		s.tenantMu[tenantID] = lock
	}
	return lock
}

func (s *SettingsService) persist(ctx context.Context, tenantID string) {
	s.mu.RLock()
	snapshot := make(map[string]*domain.TenantConfig, len(s.mirror))
	for id, cfg := range s.mirror {
		snapshot[id] = cfg.Clone()
	}
	s.mu.RUnlock()

	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if err := s.repo.Save(ctx, snapshot); err != nil {
		// In-memory state stays authoritative until the next restart.
		s.logger.Error("failed to persist tenant settings", zap.String("tenant_id", tenantID), zap.Error(err))
	}
}
