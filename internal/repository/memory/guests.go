package memory

import (
	"context"
	"sort"
	"time"

	"github.com/eventra/eventra-api/internal/models"
	"github.com/eventra/eventra-api/internal/repository"
	"github.com/google/uuid"
)

type guestRepo struct {
	s *Store
}

// Guests returns the guest registry view of the store.
func (s *Store) Guests() repository.GuestRepository {
	return guestRepo{s: s}
}

func (r guestRepo) Find(ctx context.Context, invitationID, identitySignal string) (models.Guest, error) {
	sh := r.s.shardFor(invitationID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if guest, ok := sh.guests[invitationID][identitySignal]; ok {
		return cloneGuest(guest), nil
	}
	return models.Guest{}, models.ErrNotFound
}

func (r guestRepo) Touch(ctx context.Context, guestID string, seenAt time.Time) (models.Guest, error) {
	for _, sh := range r.s.shards {
		sh.mu.Lock()
		for _, signals := range sh.guests {
			for _, guest := range signals {
				if guest.ID == guestID {
					guest.LastSeenAt = seenAt
					out := cloneGuest(guest)
					sh.mu.Unlock()
					return out, nil
				}
			}
		}
		sh.mu.Unlock()
	}
	return models.Guest{}, models.ErrNotFound
}

// Admit holds only the invitation's shard lock for the whole
// check-increment-insert sequence, which makes the compare-and-increment and
// the duplicate check one indivisible step for that invitation.
func (r guestRepo) Admit(ctx context.Context, params repository.AdmitGuestParams) (models.Guest, models.AdmitOutcome, error) {
	sh := r.s.shardFor(params.InvitationID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	inv, ok := sh.invitations[params.InvitationID]
	if !ok {
		return models.Guest{}, models.AdmitOutcomeNotActive, nil
	}

	// The same-signal race resolves here: the loser observes the winner's
	// row and is treated as a repeat visit.
	if existing, ok := sh.guests[params.InvitationID][params.Signal.Value]; ok {
		return cloneGuest(existing), models.AdmitOutcomeExisting, nil
	}

	if !inv.AcceptsGuests(params.Now) {
		return models.Guest{}, models.AdmitOutcomeNotActive, nil
	}
	if inv.Remaining(params.Kind) <= 0 {
		return models.Guest{}, models.AdmitOutcomeLimitReached, nil
	}

	if params.Kind == models.GuestKindTest {
		inv.TestUsed++
	} else {
		inv.RegularUsed++
	}
	inv.UpdatedAt = params.Now

	guest := &models.Guest{
		ID:             uuid.NewString(),
		InvitationID:   params.InvitationID,
		DisplayName:    params.DisplayName,
		IsTest:         params.Kind == models.GuestKindTest,
		IdentitySignal: params.Signal.Value,
		SignalSource:   params.Signal.Source,
		FirstSeenAt:    params.Now,
		LastSeenAt:     params.Now,
	}
	if sh.guests[params.InvitationID] == nil {
		sh.guests[params.InvitationID] = make(map[string]*models.Guest)
	}
	sh.guests[params.InvitationID][params.Signal.Value] = guest

	return cloneGuest(guest), models.AdmitOutcomeAdmitted, nil
}

func (r guestRepo) ListByInvitation(ctx context.Context, invitationID string) ([]models.Guest, error) {
	sh := r.s.shardFor(invitationID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	guests := make([]models.Guest, 0, len(sh.guests[invitationID]))
	for _, guest := range sh.guests[invitationID] {
		guests = append(guests, cloneGuest(guest))
	}
	sort.Slice(guests, func(i, j int) bool {
		return guests[i].FirstSeenAt.Before(guests[j].FirstSeenAt)
	})
	return guests, nil
}
