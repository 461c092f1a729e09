package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by repositories when the requested row does
	// not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidSignal means every identity input was empty or unparseable.
	// Callers must reject the registration rather than admit under a
	// wildcard identity.
	ErrInvalidSignal = errors.New("identity signal cannot be derived from the request")

	// ErrInvitationUnavailable means the invitation is missing, expired, or
	// deactivated from the guest's point of view.
	ErrInvitationUnavailable = errors.New("invitation is not open for registration")
)

// GuestLimitReachedError reports capacity exhaustion for one guest kind. The
// two quotas fail independently and are surfaced distinctly.
type GuestLimitReachedError struct {
	Kind GuestKind
}

func (e *GuestLimitReachedError) Error() string {
	if e.Kind == GuestKindTest {
		return "test guest limit reached"
	}
	return "guest limit reached"
}

// InvalidOrderTransitionError reports an attempted move the lifecycle graph
// does not allow. No side effects are performed.
type InvalidOrderTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidOrderTransitionError) Error() string {
	return fmt.Sprintf("invalid order transition from %s to %s", e.From, e.To)
}

// TemplatePlanMismatchError reports a template above the order's plan tier.
type TemplatePlanMismatchError struct {
	TemplateTier PlanTier
	OrderTier    PlanTier
}

func (e *TemplatePlanMismatchError) Error() string {
	return fmt.Sprintf("template requires plan tier %s but order is on %s", e.TemplateTier, e.OrderTier)
}
