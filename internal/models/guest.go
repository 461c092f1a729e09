package models

import "time"

// GuestKind selects which of the two independently budgeted quotas an
// admission consumes.
type GuestKind string

const (
	GuestKindRegular GuestKind = "REGULAR"
	GuestKindTest    GuestKind = "TEST"
)

func GuestKindFor(isTest bool) GuestKind {
	if isTest {
		return GuestKindTest
	}
	return GuestKindRegular
}

// SignalSource records how an identity signal was derived. The fallback path
// (source IP + User-Agent) is a degraded-confidence signal: distinct visitors
// behind one NAT can collide on it.
type SignalSource string

const (
	SignalSourceClient   SignalSource = "client"
	SignalSourceFallback SignalSource = "fallback"
)

// IdentitySignal is the deduplication key for an anonymous visitor. It is
// derived, never persisted standalone.
type IdentitySignal struct {
	Value  string       `json:"value"`
	Source SignalSource `json:"source"`
}

// Guest is one distinct registered visitor identity against an invitation.
// At most one row exists per (invitation, identity signal) pair; repeat
// visits only bump LastSeenAt.
type Guest struct {
	ID             string       `json:"id"`
	InvitationID   string       `json:"invitation_id"`
	DisplayName    string       `json:"display_name"`
	IsTest         bool         `json:"is_test"`
	IdentitySignal string       `json:"-"`
	SignalSource   SignalSource `json:"signal_source"`
	FirstSeenAt    time.Time    `json:"first_seen_at"`
	LastSeenAt     time.Time    `json:"last_seen_at"`
}

func (g Guest) Kind() GuestKind {
	return GuestKindFor(g.IsTest)
}

// AdmitOutcome is the result of one capacity-ledger admission attempt.
type AdmitOutcome string

const (
	AdmitOutcomeAdmitted     AdmitOutcome = "admitted"
	AdmitOutcomeExisting     AdmitOutcome = "existing"
	AdmitOutcomeLimitReached AdmitOutcome = "limit_reached"
	AdmitOutcomeNotActive    AdmitOutcome = "not_active"
)
