package memory

import (
	"context"
	"sort"
	"time"

	"github.com/eventra/eventra-api/internal/models"
	"github.com/eventra/eventra-api/internal/repository"
)

type invitationRepo struct {
	s *Store
}

// Invitations returns the invitation view of the store.
func (s *Store) Invitations() repository.InvitationRepository {
	return invitationRepo{s: s}
}

func (r invitationRepo) GetByID(ctx context.Context, invitationID string) (models.Invitation, error) {
	sh := r.s.shardFor(invitationID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if inv, ok := sh.invitations[invitationID]; ok {
		return cloneInvitation(inv), nil
	}
	return models.Invitation{}, models.ErrNotFound
}

func (r invitationRepo) GetBySlug(ctx context.Context, slug string) (models.Invitation, error) {
	r.s.mu.RLock()
	invitationID, ok := r.s.slugs[slug]
	r.s.mu.RUnlock()
	if !ok {
		return models.Invitation{}, models.ErrNotFound
	}
	return r.GetByID(ctx, invitationID)
}

func (r invitationRepo) GetByOrderID(ctx context.Context, orderID string) (models.Invitation, error) {
	for _, sh := range r.s.shards {
		sh.mu.Lock()
		for _, inv := range sh.invitations {
			if inv.OrderID == orderID {
				out := cloneInvitation(inv)
				sh.mu.Unlock()
				return out, nil
			}
		}
		sh.mu.Unlock()
	}
	return models.Invitation{}, models.ErrNotFound
}

func (r invitationRepo) List(ctx context.Context) ([]models.Invitation, error) {
	var invitations []models.Invitation
	for _, sh := range r.s.shards {
		sh.mu.Lock()
		for _, inv := range sh.invitations {
			invitations = append(invitations, cloneInvitation(inv))
		}
		sh.mu.Unlock()
	}
	sort.Slice(invitations, func(i, j int) bool {
		return invitations[i].ActivatedAt.After(invitations[j].ActivatedAt)
	})
	return invitations, nil
}

func (r invitationRepo) ExtendValidity(ctx context.Context, invitationID string, newExpiresAt time.Time) (models.Invitation, error) {
	sh := r.s.shardFor(invitationID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	inv, ok := sh.invitations[invitationID]
	if !ok || inv.Status == models.InvitationStatusDeactivated || !newExpiresAt.After(inv.ExpiresAt) {
		return models.Invitation{}, models.ErrNotFound
	}

	now := time.Now()
	inv.ExpiresAt = newExpiresAt
	if inv.Status == models.InvitationStatusExpired && newExpiresAt.After(now) {
		inv.Status = models.InvitationStatusActive
	}
	inv.UpdatedAt = now
	return cloneInvitation(inv), nil
}

func (r invitationRepo) Deactivate(ctx context.Context, invitationID string) (models.Invitation, error) {
	sh := r.s.shardFor(invitationID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	inv, ok := sh.invitations[invitationID]
	if !ok {
		return models.Invitation{}, models.ErrNotFound
	}
	inv.Status = models.InvitationStatusDeactivated
	inv.UpdatedAt = time.Now()
	return cloneInvitation(inv), nil
}

func (r invitationRepo) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	var flipped int64
	for _, sh := range r.s.shards {
		sh.mu.Lock()
		for _, inv := range sh.invitations {
			if inv.Status == models.InvitationStatusActive && inv.IsExpired(now) {
				inv.Status = models.InvitationStatusExpired
				inv.UpdatedAt = now
				flipped++
			}
		}
		sh.mu.Unlock()
	}
	return flipped, nil
}
