package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderEnsureTransition(t *testing.T) {
	cases := []struct {
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{OrderStatusDraft, OrderStatusPendingPayment, true},
		{OrderStatusDraft, OrderStatusPendingApproval, false},
		{OrderStatusDraft, OrderStatusActive, false},
		{OrderStatusPendingPayment, OrderStatusPendingApproval, true},
		{OrderStatusPendingPayment, OrderStatusApproved, false},
		{OrderStatusPendingApproval, OrderStatusApproved, true},
		{OrderStatusPendingApproval, OrderStatusRejected, true},
		{OrderStatusPendingApproval, OrderStatusActive, false},
		{OrderStatusApproved, OrderStatusActive, true},
		{OrderStatusRejected, OrderStatusPendingApproval, false},
		{OrderStatusRejected, OrderStatusApproved, false},
		{OrderStatusActive, OrderStatusRejected, false},
		{OrderStatusActive, OrderStatusDraft, false},
	}

	for _, tc := range cases {
		t.Run(string(tc.from)+"_to_"+string(tc.to), func(t *testing.T) {
			err := Order{Status: tc.from}.EnsureTransition(tc.to)
			if tc.allowed {
				assert.NoError(t, err)
				return
			}
			var transitionErr *InvalidOrderTransitionError
			assert.ErrorAs(t, err, &transitionErr)
			assert.Equal(t, tc.from, transitionErr.From)
			assert.Equal(t, tc.to, transitionErr.To)
		})
	}
}

func TestOrderAcceptsAdminAdjustments(t *testing.T) {
	assert.False(t, Order{Status: OrderStatusDraft}.AcceptsAdminAdjustments())
	assert.False(t, Order{Status: OrderStatusRejected}.AcceptsAdminAdjustments())
	assert.True(t, Order{Status: OrderStatusPendingPayment}.AcceptsAdminAdjustments())
	assert.True(t, Order{Status: OrderStatusPendingApproval}.AcceptsAdminAdjustments())
	assert.True(t, Order{Status: OrderStatusActive}.AcceptsAdminAdjustments())
}

func TestPlanTierCovers(t *testing.T) {
	assert.True(t, TierLuxury.Covers(TierBasic))
	assert.True(t, TierLuxury.Covers(TierLuxury))
	assert.True(t, TierPremium.Covers(TierBasic))
	assert.False(t, TierBasic.Covers(TierPremium))
	assert.False(t, TierPremium.Covers(TierLuxury))
}

func TestGuestLimitReachedErrorMessages(t *testing.T) {
	assert.Equal(t, "guest limit reached", (&GuestLimitReachedError{Kind: GuestKindRegular}).Error())
	assert.Equal(t, "test guest limit reached", (&GuestLimitReachedError{Kind: GuestKindTest}).Error())
}
