package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dlfdkwl/discord-tiket/internal/domain"
)

func TestComputeOverlay(t *testing.T) {
	cfg := &domain.TenantConfig{SupportRoleIDs: []uint64{10, 11}}

	grants := ComputeOverlay(cfg, 42)
	require.Equal(t, []domain.Grant{
		{Kind: domain.PrincipalEveryone, Level: domain.AccessDenied},
		{Kind: domain.PrincipalUser, ID: 42, Level: domain.AccessReadWrite},
		{Kind: domain.PrincipalRole, ID: 10, Level: domain.AccessReadWrite},
		{Kind: domain.PrincipalRole, ID: 11, Level: domain.AccessReadWrite},
	}, grants)
}

func TestComputeOverlayNoRoles(t *testing.T) {
	grants := ComputeOverlay(&domain.TenantConfig{}, 42)
	require.Len(t, grants, 2)
	require.Equal(t, domain.PrincipalEveryone, grants[0].Kind)
	require.Equal(t, domain.AccessDenied, grants[0].Level)
	require.Equal(t, uint64(42), grants[1].ID)
}

func TestComputeOverlayDoesNotMutateConfig(t *testing.T) {
	cfg := &domain.TenantConfig{SupportRoleIDs: []uint64{10}}
	_ = ComputeOverlay(cfg, 42)
	require.Equal(t, []uint64{10}, cfg.SupportRoleIDs)
}
