package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dlfdkwl/discord-tiket/internal/domain"
	"github.com/dlfdkwl/discord-tiket/internal/persistence"
)

// SettingsRepository persists the tenant settings document. The whole
// document is rewritten on every save so a crash never leaves partial JSON.
type SettingsRepository struct {
	store persistence.BlobStore
	name  string
}

// NewSettingsRepository binds the repository to a blob name.
func NewSettingsRepository(store persistence.BlobStore, name string) *SettingsRepository {
	return &SettingsRepository{store: store, name: name}
}

// Load reads all tenant configs. A missing or empty document is not an
// error; it means no tenants are configured yet.
func (r *SettingsRepository) Load(ctx context.Context) (map[string]*domain.TenantConfig, error) {
	data, err := r.store.Read(ctx, r.name)
	if err != nil {
		if errors.Is(err, persistence.ErrBlobNotFound) {
			return map[string]*domain.TenantConfig{}, nil
		}
		return nil, fmt.Errorf("read settings: %w", err)
	}
	if len(data) == 0 {
		return map[string]*domain.TenantConfig{}, nil
	}

	var all map[string]*domain.TenantConfig
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	if all == nil {
		all = map[string]*domain.TenantConfig{}
	}
	return all, nil
}

// Save rewrites the full document.
func (r *SettingsRepository) Save(ctx context.Context, all map[string]*domain.TenantConfig) error {
	data, err := json.MarshalIndent(all, "", "    ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := r.store.Write(ctx, r.name, data); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}
