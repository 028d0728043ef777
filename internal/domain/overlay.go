package domain

// AccessLevel enumerates the channel access a principal is granted.
type AccessLevel string

const (
	AccessDenied    AccessLevel = "DENIED"
	AccessReadWrite AccessLevel = "READ_WRITE"
)

// PrincipalKind identifies what a grant applies to.
type PrincipalKind string

const (
	PrincipalEveryone PrincipalKind = "EVERYONE"
	PrincipalUser     PrincipalKind = "USER"
	PrincipalRole     PrincipalKind = "ROLE"
)

// Grant pairs a principal with an access level inside a ticket channel.
type Grant struct {
	Kind  PrincipalKind
	ID    uint64
	Level AccessLevel
}
