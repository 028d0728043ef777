package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dlfdkwl/discord-tiket/internal/domain"
	"github.com/dlfdkwl/discord-tiket/internal/persistence"
)

func newRepo(t *testing.T) *SettingsRepository {
	t.Helper()
	store, err := persistence.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return NewSettingsRepository(store, "settings.json")
}

func TestLoadAbsentDocument(t *testing.T) {
	repo := newRepo(t)
	all, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, all)
	require.Empty(t, all)
}

func TestSaveLoadRoundtrip(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	in := map[string]*domain.TenantConfig{
		"tenant-a": {
			CategoryID:        500,
			SupportRoleIDs:    []uint64{10, 11},
			TicketTypes:       []string{"billing", "support"},
			LogChannelID:      600,
			MaxTicketsPerUser: 2,
			EmbedTemplates: map[domain.EmbedKind]domain.EmbedTemplate{
				domain.EmbedPanel: {Title: "Help", Description: "Pick one.", Color: 0x112233},
			},
		},
		"tenant-b": {
			CategoryID:     700,
			SupportRoleIDs: []uint64{20},
			TicketTypes:    []string{"general"},
			LogChannelID:   800,
		},
	}
	require.NoError(t, repo.Save(ctx, in))

	out, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestSaveReplacesDocumentWholesale(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, map[string]*domain.TenantConfig{
		"tenant-a": {CategoryID: 500},
		"tenant-b": {CategoryID: 700},
	}))
	require.NoError(t, repo.Save(ctx, map[string]*domain.TenantConfig{
		"tenant-a": {CategoryID: 501},
	}))

	out, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, uint64(501), out["tenant-a"].CategoryID)
}

func TestLoadRejectsCorruptDocument(t *testing.T) {
	store, err := persistence.NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Write(context.Background(), "settings.json", []byte("{not json")))

	repo := NewSettingsRepository(store, "settings.json")
	_, err = repo.Load(context.Background())
	require.Error(t, err)
}
