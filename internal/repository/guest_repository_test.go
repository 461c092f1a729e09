package repository

import (
	"testing"
	"time"

	"github.com/eventra/eventra-api/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestRejectionOutcome(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	open := now.Add(time.Hour)
	lapsed := now.Add(-time.Hour)

	cases := []struct {
		name string
		inv  models.Invitation
		want models.AdmitOutcome
	}{
		{
			name: "full quota on open invitation",
			inv:  models.Invitation{Status: models.InvitationStatusActive, ExpiresAt: open, RegularLimit: 5, RegularUsed: 5},
			want: models.AdmitOutcomeLimitReached,
		},
		{
			name: "expiry lapsed but status not yet swept",
			inv:  models.Invitation{Status: models.InvitationStatusActive, ExpiresAt: lapsed},
			want: models.AdmitOutcomeNotActive,
		},
		{
			name: "deactivated",
			inv:  models.Invitation{Status: models.InvitationStatusDeactivated, ExpiresAt: open},
			want: models.AdmitOutcomeNotActive,
		},
		{
			name: "expired status",
			inv:  models.Invitation{Status: models.InvitationStatusExpired, ExpiresAt: open},
			want: models.AdmitOutcomeNotActive,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, rejectionOutcome(tc.inv, now))
		})
	}
}
