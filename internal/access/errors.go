package access

import "errors"

var (
	ErrNotAuthenticated = errors.New("not_authenticated")
	ErrNotVerified      = errors.New("not_verified")
	ErrTenantNotFound   = errors.New("tenant_not_found")
	ErrLookupFailed     = errors.New("lookup_failed")
	ErrNotATeamMember   = errors.New("not_a_team_member")
	ErrInsufficientRole = errors.New("insufficient_role")
)
