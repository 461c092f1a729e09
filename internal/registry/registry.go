// Package registry is the request-level entry point for guest registration.
// It combines identity resolution, duplicate lookup, and capacity admission
// into one operation with the invariant that a repeat visit from the same
// identity signal never consumes capacity or creates a second row.
package registry

import (
	"context"
	"errors"
	"time"

	"github.com/eventra/eventra-api/internal/fingerprint"
	"github.com/eventra/eventra-api/internal/models"
	"github.com/eventra/eventra-api/internal/repository"
	"github.com/rs/zerolog"
)

type Registry struct {
	invitations repository.InvitationRepository
	guests      repository.GuestRepository
	logger      zerolog.Logger
	now         func() time.Time
}

func New(invitations repository.InvitationRepository, guests repository.GuestRepository, logger zerolog.Logger) *Registry {
	return &Registry{
		invitations: invitations,
		guests:      guests,
		logger:      logger.With().Str("component", "guest_registry").Logger(),
		now:         time.Now,
	}
}

// WithClock overrides the registry clock; used by tests.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

// RegisterRequest carries one registration attempt against an invitation
// slug.
type RegisterRequest struct {
	Slug        string
	DisplayName string
	IsTest      bool
	Attributes  fingerprint.ClientAttributes
	Meta        fingerprint.RequestMeta
}

// Register admits or recognizes a guest. It returns the guest record and
// whether it was newly created. Errors: models.ErrNotFound for an unknown
// slug, models.ErrInvalidSignal when no identity can be derived,
// models.ErrInvitationUnavailable when the invitation is not open, and
// *models.GuestLimitReachedError when the kind's quota is exhausted.
func (r *Registry) Register(ctx context.Context, req RegisterRequest) (models.Guest, bool, error) {
	inv, err := r.invitations.GetBySlug(ctx, req.Slug)
	if err != nil {
		return models.Guest{}, false, err
	}

	signal, err := fingerprint.Resolve(req.Attributes, req.Meta)
	if err != nil {
		return models.Guest{}, false, err
	}

	now := r.now()

	// A known identity is always free: no capacity check, no counter
	// mutation, just a last-seen bump.
	existing, err := r.guests.Find(ctx, inv.ID, signal.Value)
	if err == nil {
		touched, tErr := r.guests.Touch(ctx, existing.ID, now)
		if tErr != nil {
			return models.Guest{}, false, tErr
		}
		return touched, false, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return models.Guest{}, false, err
	}

	kind := models.GuestKindFor(req.IsTest)
	guest, outcome, err := r.guests.Admit(ctx, repository.AdmitGuestParams{
		InvitationID: inv.ID,
		DisplayName:  req.DisplayName,
		Kind:         kind,
		Signal:       signal,
		Now:          now,
	})
	if err != nil {
		return models.Guest{}, false, err
	}

	switch outcome {
	case models.AdmitOutcomeAdmitted:
		r.logger.Debug().
			Str("invitation_id", inv.ID).
			Str("kind", string(guest.Kind())).
			Str("signal_source", string(signal.Source)).
			Msg("guest admitted")
		return guest, true, nil
	case models.AdmitOutcomeExisting:
		// Lost the first-registration race to an identical signal; the
		// winner's row is authoritative.
		return guest, false, nil
	case models.AdmitOutcomeLimitReached:
		return models.Guest{}, false, &models.GuestLimitReachedError{Kind: kind}
	default:
		return models.Guest{}, false, models.ErrInvitationUnavailable
	}
}

// Preview returns the invitation behind a slug for the public landing page.
func (r *Registry) Preview(ctx context.Context, slugValue string) (models.Invitation, error) {
	return r.invitations.GetBySlug(ctx, slugValue)
}

// Guests lists the registered guests of an invitation, oldest first.
func (r *Registry) Guests(ctx context.Context, invitationID string) ([]models.Guest, error) {
	return r.guests.ListByInvitation(ctx, invitationID)
}
