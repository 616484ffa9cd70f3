package authorization

import (
	"context"
	"errors"
)

var (
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidTenant = errors.New("invalid_tenant")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = errors.New("forbidden")
)

// Service answers whether an actor may perform an action on an object within
// a tenant. Coarse route gating happens upstream; this covers the destructive
// operations that need a per-action check on top of the admin role.
type Service interface {
	Authorize(ctx context.Context, actor string, tenantID string, object string, action string) error
}
