package service

import "github.com/dlfdkwl/discord-tiket/internal/domain"

// ComputeOverlay builds the access grants applied to a new ticket channel:
// deny-all for the tenant's everyone principal, read-write for the owner,
// read-write for every configured support role. Pure function; grant order
// is deterministic (everyone, owner, roles in config order).
func ComputeOverlay(cfg *domain.TenantConfig, ownerID uint64) []domain.Grant {
	grants := make([]domain.Grant, 0, 2+len(cfg.SupportRoleIDs))
	grants = append(grants, domain.Grant{Kind: domain.PrincipalEveryone, Level: domain.AccessDenied})
	grants = append(grants, domain.Grant{Kind: domain.PrincipalUser, ID: ownerID, Level: domain.AccessReadWrite})
	for _, roleID := range cfg.SupportRoleIDs {
		grants = append(grants, domain.Grant{Kind: domain.PrincipalRole, ID: roleID, Level: domain.AccessReadWrite})
	}
	return grants
}
