package models

import "time"

type InvitationStatus string

const (
	InvitationStatusActive      InvitationStatus = "ACTIVE"
	InvitationStatusExpired     InvitationStatus = "EXPIRED"
	InvitationStatusDeactivated InvitationStatus = "DEACTIVATED"
)

// Invitation is the activated, shareable artifact carrying a capacity budget.
// It is created in a single transaction with its order's approval and is never
// persisted in a draft state.
type Invitation struct {
	ID           string           `json:"id"`
	OrderID      string           `json:"order_id"`
	Slug         string           `json:"slug"`
	EventTitle   string           `json:"event_title"`
	Status       InvitationStatus `json:"status"`
	RegularLimit int              `json:"regular_limit"`
	TestLimit    int              `json:"test_limit"`
	RegularUsed  int              `json:"regular_used"`
	TestUsed     int              `json:"test_used"`
	ActivatedAt  time.Time        `json:"activated_at"`
	ExpiresAt    time.Time        `json:"expires_at"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// IsExpired derives expiry from the clock rather than trusting the stored
// status; the sweeper may not have run yet.
func (i Invitation) IsExpired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// EffectiveStatus folds lazy expiry into the stored status.
func (i Invitation) EffectiveStatus(now time.Time) InvitationStatus {
	if i.Status == InvitationStatusActive && i.IsExpired(now) {
		return InvitationStatusExpired
	}
	return i.Status
}

// AcceptsGuests reports whether a new admission could succeed right now,
// capacity permitting.
func (i Invitation) AcceptsGuests(now time.Time) bool {
	return i.EffectiveStatus(now) == InvitationStatusActive
}

// Remaining returns the unused slots for the given kind.
func (i Invitation) Remaining(kind GuestKind) int {
	if kind == GuestKindTest {
		return i.TestLimit - i.TestUsed
	}
	return i.RegularLimit - i.RegularUsed
}
