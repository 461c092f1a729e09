package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInvitationLazyExpiry(t *testing.T) {
	expiry := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	inv := Invitation{Status: InvitationStatusActive, ExpiresAt: expiry}

	before := expiry.Add(-time.Second)
	assert.False(t, inv.IsExpired(before))
	assert.Equal(t, InvitationStatusActive, inv.EffectiveStatus(before))
	assert.True(t, inv.AcceptsGuests(before))

	// The boundary instant itself is already closed.
	assert.True(t, inv.IsExpired(expiry))
	assert.Equal(t, InvitationStatusExpired, inv.EffectiveStatus(expiry))
	assert.False(t, inv.AcceptsGuests(expiry))
}

func TestInvitationDeactivatedIgnoresClock(t *testing.T) {
	inv := Invitation{Status: InvitationStatusDeactivated, ExpiresAt: time.Now().Add(time.Hour)}

	assert.Equal(t, InvitationStatusDeactivated, inv.EffectiveStatus(time.Now()))
	assert.False(t, inv.AcceptsGuests(time.Now()))
}

func TestInvitationRemaining(t *testing.T) {
	inv := Invitation{RegularLimit: 50, RegularUsed: 48, TestLimit: 5, TestUsed: 5}

	assert.Equal(t, 2, inv.Remaining(GuestKindRegular))
	assert.Equal(t, 0, inv.Remaining(GuestKindTest))
}
