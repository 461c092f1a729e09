package registry

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eventra/eventra-api/internal/fingerprint"
	"github.com/eventra/eventra-api/internal/lifecycle"
	"github.com/eventra/eventra-api/internal/models"
	"github.com/eventra/eventra-api/internal/notification"
	"github.com/eventra/eventra-api/internal/repository/memory"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) (*memory.Store, *lifecycle.Service, *Registry) {
	t.Helper()
	store := memory.NewStore()
	notifications := notification.NewService(store.Notifications(), zerolog.Nop())
	svc := lifecycle.NewService(store.Orders(), store.Invitations(), store.Catalog(), notifications, zerolog.Nop())
	reg := New(store.Invitations(), store.Guests(), zerolog.Nop())
	return store, svc, reg
}

// activeInvitation drives an order through payment and approval and returns
// the resulting invitation.
func activeInvitation(t *testing.T, svc *lifecycle.Service, planCode string) models.Invitation {
	t.Helper()
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, "user-1", planCode, "Garden Party")
	require.NoError(t, err)
	_, err = svc.FinalizeOrder(ctx, order.ID, "tpl-classic")
	require.NoError(t, err)
	_, err = svc.ConfirmPayment(ctx, models.PaymentEvent{
		OrderID:           order.ID,
		ProviderReference: "pay-" + order.ID,
		Status:            models.PaymentStatusReceived,
	})
	require.NoError(t, err)
	_, inv, err := svc.Approve(ctx, order.ID, "admin-1", "")
	require.NoError(t, err)
	return inv
}

func clientAttrs(seed string) fingerprint.ClientAttributes {
	return fingerprint.ClientAttributes{
		UserAgent:        "Mozilla/5.0 (X11; Linux x86_64)",
		ScreenResolution: "1920x1080",
		CanvasHash:       seed,
		Platform:         "Linux",
	}
}

func TestRegisterAdmitsNewGuest(t *testing.T) {
	store, svc, reg := newTestRegistry(t)
	inv := activeInvitation(t, svc, "basic")
	ctx := context.Background()

	guest, wasNew, err := reg.Register(ctx, RegisterRequest{
		Slug:        inv.Slug,
		DisplayName: "Ada",
		Attributes:  clientAttrs("c-1"),
	})
	require.NoError(t, err)
	assert.True(t, wasNew)
	assert.Equal(t, "Ada", guest.DisplayName)
	assert.False(t, guest.IsTest)
	assert.Equal(t, models.SignalSourceClient, guest.SignalSource)

	updated, err := store.Invitations().GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.RegularUsed)
	assert.Equal(t, 0, updated.TestUsed)
}

func TestRepeatVisitNeverConsumesCapacity(t *testing.T) {
	store, svc, reg := newTestRegistry(t)
	inv := activeInvitation(t, svc, "basic")
	ctx := context.Background()

	req := RegisterRequest{Slug: inv.Slug, DisplayName: "Ada", Attributes: clientAttrs("c-1")}

	first, wasNew, err := reg.Register(ctx, req)
	require.NoError(t, err)
	require.True(t, wasNew)

	// Even with a different display name the identity signal wins.
	req.DisplayName = "Ada again"
	second, wasNew, err := reg.Register(ctx, req)
	require.NoError(t, err)
	assert.False(t, wasNew)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Ada", second.DisplayName)
	assert.True(t, second.LastSeenAt.After(first.LastSeenAt) || second.LastSeenAt.Equal(first.LastSeenAt))

	updated, err := store.Invitations().GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.RegularUsed)

	guests, err := reg.Guests(ctx, inv.ID)
	require.NoError(t, err)
	assert.Len(t, guests, 1)
}

func TestConcurrentDistinctSignalsNeverOversubscribe(t *testing.T) {
	store, svc, reg := newTestRegistry(t)
	inv := activeInvitation(t, svc, "basic") // test quota is 5
	ctx := context.Background()

	const attempts = 12
	var admitted, limited int64
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, wasNew, err := reg.Register(ctx, RegisterRequest{
				Slug:        inv.Slug,
				DisplayName: fmt.Sprintf("tester-%d", i),
				IsTest:      true,
				Attributes:  clientAttrs(fmt.Sprintf("c-%d", i)),
			})
			var limitErr *models.GuestLimitReachedError
			switch {
			case err == nil && wasNew:
				atomic.AddInt64(&admitted, 1)
			case assert.ErrorAs(t, err, &limitErr):
				atomic.AddInt64(&limited, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(5), admitted)
	assert.Equal(t, int64(attempts-5), limited)

	updated, err := store.Invitations().GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, updated.TestUsed)
	assert.Equal(t, 0, updated.RegularUsed)
}

func TestConcurrentSameSignalCreatesOneGuest(t *testing.T) {
	store, svc, reg := newTestRegistry(t)
	inv := activeInvitation(t, svc, "basic")
	ctx := context.Background()

	const attempts = 8
	var created int64
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, wasNew, err := reg.Register(ctx, RegisterRequest{
				Slug:        inv.Slug,
				DisplayName: "Ada",
				Attributes:  clientAttrs("same"),
			})
			if !assert.NoError(t, err) {
				return
			}
			if wasNew {
				atomic.AddInt64(&created, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), created)

	updated, err := store.Invitations().GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.RegularUsed)

	guests, err := reg.Guests(ctx, inv.ID)
	require.NoError(t, err)
	assert.Len(t, guests, 1)
}

func TestRepeatVisitRecognizedAtFullCapacity(t *testing.T) {
	store, svc, reg := newTestRegistry(t)
	inv := activeInvitation(t, svc, "basic")
	ctx := context.Background()

	// Fill the test quota; the last admitted signal will return.
	for i := 0; i < 5; i++ {
		_, _, err := reg.Register(ctx, RegisterRequest{
			Slug:        inv.Slug,
			DisplayName: fmt.Sprintf("tester-%d", i),
			IsTest:      true,
			Attributes:  clientAttrs(fmt.Sprintf("t-%d", i)),
		})
		require.NoError(t, err)
	}

	// A registered visitor's repeat must never surface as a limit error,
	// even with zero slots left.
	guest, wasNew, err := reg.Register(ctx, RegisterRequest{
		Slug:        inv.Slug,
		DisplayName: "tester-4",
		IsTest:      true,
		Attributes:  clientAttrs("t-4"),
	})
	require.NoError(t, err)
	assert.False(t, wasNew)
	assert.Equal(t, "tester-4", guest.DisplayName)

	updated, err := store.Invitations().GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, updated.TestUsed)
}

func TestQuotasAreIndependent(t *testing.T) {
	_, svc, reg := newTestRegistry(t)
	inv := activeInvitation(t, svc, "basic")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _, err := reg.Register(ctx, RegisterRequest{
			Slug:        inv.Slug,
			DisplayName: fmt.Sprintf("tester-%d", i),
			IsTest:      true,
			Attributes:  clientAttrs(fmt.Sprintf("t-%d", i)),
		})
		require.NoError(t, err)
	}

	_, _, err := reg.Register(ctx, RegisterRequest{
		Slug:        inv.Slug,
		DisplayName: "one too many",
		IsTest:      true,
		Attributes:  clientAttrs("t-overflow"),
	})
	var limitErr *models.GuestLimitReachedError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, models.GuestKindTest, limitErr.Kind)

	// The regular quota is untouched by test-guest exhaustion.
	_, wasNew, err := reg.Register(ctx, RegisterRequest{
		Slug:        inv.Slug,
		DisplayName: "Ada",
		Attributes:  clientAttrs("r-1"),
	})
	require.NoError(t, err)
	assert.True(t, wasNew)
}

func TestGrantedLinksReopenAdmission(t *testing.T) {
	_, svc, reg := newTestRegistry(t)
	inv := activeInvitation(t, svc, "basic")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _, err := reg.Register(ctx, RegisterRequest{
			Slug:        inv.Slug,
			DisplayName: fmt.Sprintf("tester-%d", i),
			IsTest:      true,
			Attributes:  clientAttrs(fmt.Sprintf("t-%d", i)),
		})
		require.NoError(t, err)
	}

	var limitErr *models.GuestLimitReachedError
	_, _, err := reg.Register(ctx, RegisterRequest{
		Slug: inv.Slug, DisplayName: "blocked", IsTest: true, Attributes: clientAttrs("t-blocked"),
	})
	require.ErrorAs(t, err, &limitErr)

	_, err = svc.GrantLinks(ctx, inv.OrderID, "admin-1", 0, 3, "support ticket 812")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, wasNew, err := reg.Register(ctx, RegisterRequest{
			Slug:        inv.Slug,
			DisplayName: fmt.Sprintf("granted-%d", i),
			IsTest:      true,
			Attributes:  clientAttrs(fmt.Sprintf("g-%d", i)),
		})
		require.NoError(t, err)
		assert.True(t, wasNew)
	}

	_, _, err = reg.Register(ctx, RegisterRequest{
		Slug: inv.Slug, DisplayName: "still blocked", IsTest: true, Attributes: clientAttrs("g-overflow"),
	})
	assert.ErrorAs(t, err, &limitErr)
}

func TestFallbackSignalAdmits(t *testing.T) {
	_, svc, reg := newTestRegistry(t)
	inv := activeInvitation(t, svc, "basic")
	ctx := context.Background()

	guest, wasNew, err := reg.Register(ctx, RegisterRequest{
		Slug:        inv.Slug,
		DisplayName: "Ada",
		Meta:        fingerprint.RequestMeta{SourceIP: "203.0.113.9", UserAgent: "Mozilla/5.0"},
	})
	require.NoError(t, err)
	assert.True(t, wasNew)
	assert.Equal(t, models.SignalSourceFallback, guest.SignalSource)

	// A different address behind the same browser is a different visitor.
	_, wasNew, err = reg.Register(ctx, RegisterRequest{
		Slug:        inv.Slug,
		DisplayName: "Ben",
		Meta:        fingerprint.RequestMeta{SourceIP: "203.0.113.10", UserAgent: "Mozilla/5.0"},
	})
	require.NoError(t, err)
	assert.True(t, wasNew)
}

func TestRegisterRejectsWithoutAnySignal(t *testing.T) {
	_, svc, reg := newTestRegistry(t)
	inv := activeInvitation(t, svc, "basic")

	_, _, err := reg.Register(context.Background(), RegisterRequest{Slug: inv.Slug, DisplayName: "Ada"})
	assert.ErrorIs(t, err, models.ErrInvalidSignal)
}

func TestUnknownSlug(t *testing.T) {
	_, _, reg := newTestRegistry(t)

	_, _, err := reg.Register(context.Background(), RegisterRequest{
		Slug: "no-such-invite", DisplayName: "Ada", Attributes: clientAttrs("c-1"),
	})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestLapsedInvitationRejectsBeforeSweep(t *testing.T) {
	store, svc, reg := newTestRegistry(t)

	// Activate far enough in the past that the validity window has closed,
	// without running any sweep.
	svc.WithClock(func() time.Time { return time.Now().Add(-400 * time.Hour) })
	inv := activeInvitation(t, svc, "basic")

	_, _, err := reg.Register(context.Background(), RegisterRequest{
		Slug: inv.Slug, DisplayName: "Ada", Attributes: clientAttrs("c-1"),
	})
	assert.ErrorIs(t, err, models.ErrInvitationUnavailable)

	// The stored status is still ACTIVE; only the clock says otherwise.
	stored, err := store.Invitations().GetByID(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationStatusActive, stored.Status)
	assert.Equal(t, 0, stored.RegularUsed)
}

func TestDeactivatedInvitationRejects(t *testing.T) {
	_, svc, reg := newTestRegistry(t)
	inv := activeInvitation(t, svc, "basic")
	ctx := context.Background()

	_, err := svc.DeactivateInvitation(ctx, inv.ID, "admin-1")
	require.NoError(t, err)

	_, _, err = reg.Register(ctx, RegisterRequest{
		Slug: inv.Slug, DisplayName: "Ada", Attributes: clientAttrs("c-1"),
	})
	assert.ErrorIs(t, err, models.ErrInvitationUnavailable)
}

func TestRepeatVisitOnLapsedInvitationStillRecognized(t *testing.T) {
	_, svc, reg := newTestRegistry(t)
	inv := activeInvitation(t, svc, "basic")
	ctx := context.Background()

	req := RegisterRequest{Slug: inv.Slug, DisplayName: "Ada", Attributes: clientAttrs("c-1")}
	first, wasNew, err := reg.Register(ctx, req)
	require.NoError(t, err)
	require.True(t, wasNew)

	_, err = svc.DeactivateInvitation(ctx, inv.ID, "admin-1")
	require.NoError(t, err)

	// Known identities are recognized even once the invitation is closed;
	// only new admissions are refused.
	second, wasNew, err := reg.Register(ctx, req)
	require.NoError(t, err)
	assert.False(t, wasNew)
	assert.Equal(t, first.ID, second.ID)
}
