package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/eventra/eventra-api/internal/lifecycle"
	"github.com/eventra/eventra-api/internal/models"
	"github.com/eventra/eventra-api/internal/notification"
	"github.com/eventra/eventra-api/internal/repository/memory"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedInvitation activates one invitation whose validity window started at
// the given instant.
func seedInvitation(t *testing.T, store *memory.Store, activatedAt time.Time) models.Invitation {
	t.Helper()
	ctx := context.Background()

	notifications := notification.NewService(store.Notifications(), zerolog.Nop())
	svc := lifecycle.NewService(store.Orders(), store.Invitations(), store.Catalog(), notifications, zerolog.Nop())
	svc.WithClock(func() time.Time { return activatedAt })

	order, err := svc.CreateOrder(ctx, "user-1", "basic", "Garden Party")
	require.NoError(t, err)
	_, err = svc.FinalizeOrder(ctx, order.ID, "tpl-classic")
	require.NoError(t, err)
	_, err = svc.ClaimPayment(ctx, order.ID)
	require.NoError(t, err)
	_, inv, err := svc.Approve(ctx, order.ID, "admin-1", "")
	require.NoError(t, err)
	return inv
}

func TestSweepFlipsOnlyLapsedInvitations(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	lapsed := seedInvitation(t, store, time.Now().Add(-400*time.Hour))
	fresh := seedInvitation(t, store, time.Now())

	sw := New(store.Invitations(), time.Minute, zerolog.Nop())
	require.NoError(t, sw.Sweep(ctx))

	got, err := store.Invitations().GetByID(ctx, lapsed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationStatusExpired, got.Status)

	got, err = store.Invitations().GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationStatusActive, got.Status)
}

func TestSweepIsIdempotent(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	seedInvitation(t, store, time.Now().Add(-400*time.Hour))

	sw := New(store.Invitations(), time.Minute, zerolog.Nop())
	require.NoError(t, sw.Sweep(ctx))

	flipped, err := store.Invitations().ExpireStale(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(0), flipped)
}

func TestStartStopsOnContextCancel(t *testing.T) {
	store := memory.NewStore()
	sw := New(store.Invitations(), time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sw.Start(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancellation")
	}
}
