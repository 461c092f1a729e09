package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/eventra/eventra-api/internal/models"
)

const guestColumns = `id, invitation_id, display_name, is_test, identity_signal, signal_source,
		first_seen_at, last_seen_at`

// AdmitGuestParams describes one admission attempt against the capacity
// ledger.
type AdmitGuestParams struct {
	InvitationID string
	DisplayName  string
	Kind         models.GuestKind
	Signal       models.IdentitySignal
	Now          time.Time
}

type GuestRepository interface {
	Find(ctx context.Context, invitationID, identitySignal string) (models.Guest, error)
	Touch(ctx context.Context, guestID string, seenAt time.Time) (models.Guest, error)

	// Admit consumes one capacity slot and creates the guest row as a
	// single atomic unit. The conditional counter increment and the insert
	// share one transaction, so a lost race or a cancelled request never
	// leaves a half-admitted state. A unique-constraint loss on
	// (invitation, signal) rolls back the increment and reports the
	// already-existing row; a zero-row increment is likewise re-checked
	// for an existing row before being reported as closed or full.
	Admit(ctx context.Context, params AdmitGuestParams) (models.Guest, models.AdmitOutcome, error)

	ListByInvitation(ctx context.Context, invitationID string) ([]models.Guest, error)
}

type guestRepository struct {
	db *sql.DB
}

func NewGuestRepository(db *sql.DB) GuestRepository {
	return &guestRepository{db: db}
}

func (r *guestRepository) Find(ctx context.Context, invitationID, identitySignal string) (models.Guest, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM guests
		WHERE invitation_id = $1 AND identity_signal = $2`, guestColumns)

	guest, err := scanGuest(r.db.QueryRowContext(ctx, query, invitationID, identitySignal))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Guest{}, models.ErrNotFound
	}
	return guest, err
}

func (r *guestRepository) Touch(ctx context.Context, guestID string, seenAt time.Time) (models.Guest, error) {
	query := fmt.Sprintf(`
		UPDATE guests SET last_seen_at = $2
		WHERE id = $1
		RETURNING %s`, guestColumns)

	guest, err := scanGuest(r.db.QueryRowContext(ctx, query, guestID, seenAt))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Guest{}, models.ErrNotFound
	}
	return guest, err
}

func (r *guestRepository) Admit(ctx context.Context, params AdmitGuestParams) (models.Guest, models.AdmitOutcome, error) {
	usedColumn, limitColumn := "regular_used", "regular_limit"
	if params.Kind == models.GuestKindTest {
		usedColumn, limitColumn = "test_used", "test_limit"
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Guest{}, "", err
	}
	defer tx.Rollback()

	// Compare-and-increment in one statement. Status and expiry are
	// re-checked here regardless of sweeper cadence.
	increment := fmt.Sprintf(`
		UPDATE invitations
		SET %[1]s = %[1]s + 1, updated_at = now()
		WHERE id = $1 AND status = 'ACTIVE' AND expires_at > $2 AND %[1]s < %[2]s`,
		usedColumn, limitColumn)

	res, err := tx.ExecContext(ctx, increment, params.InvitationID, params.Now)
	if err != nil {
		return models.Guest{}, "", err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.Guest{}, "", err
	}
	if affected == 0 {
		return r.resolveRejection(ctx, tx, params)
	}

	insert := fmt.Sprintf(`
		INSERT INTO guests (invitation_id, display_name, is_test, identity_signal, signal_source, first_seen_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING %s`, guestColumns)

	guest, err := scanGuest(tx.QueryRowContext(ctx, insert,
		params.InvitationID,
		params.DisplayName,
		params.Kind == models.GuestKindTest,
		params.Signal.Value,
		params.Signal.Source,
		params.Now,
	))
	if err != nil {
		if isUniqueViolation(err, "guests_invitation_id_identity_signal_key") {
			// Lost the first-registration race; the rollback undoes
			// our increment and the winner's row stands.
			tx.Rollback()
			existing, findErr := r.Find(ctx, params.InvitationID, params.Signal.Value)
			if findErr != nil {
				return models.Guest{}, "", findErr
			}
			return existing, models.AdmitOutcomeExisting, nil
		}
		return models.Guest{}, "", err
	}

	if err := tx.Commit(); err != nil {
		return models.Guest{}, "", err
	}
	return guest, models.AdmitOutcomeAdmitted, nil
}

// resolveRejection decides why the conditional increment matched no rows. An
// existing row for the signal is checked first and wins over every other
// explanation: a visitor who already holds a row is a repeat visit no matter
// what the invitation's status or remaining capacity says. A concurrent
// registration may have taken the last slot, so skipping this check would
// turn a registered visitor's repeat into a limit error.
func (r *guestRepository) resolveRejection(ctx context.Context, tx *sql.Tx, params AdmitGuestParams) (models.Guest, models.AdmitOutcome, error) {
	find := fmt.Sprintf(`
		SELECT %s FROM guests
		WHERE invitation_id = $1 AND identity_signal = $2`, guestColumns)

	existing, err := scanGuest(tx.QueryRowContext(ctx, find, params.InvitationID, params.Signal.Value))
	if err == nil {
		return existing, models.AdmitOutcomeExisting, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Guest{}, "", err
	}

	var inv models.Invitation
	err = tx.QueryRowContext(ctx, `
		SELECT status, regular_limit, test_limit, regular_used, test_used, expires_at
		FROM invitations WHERE id = $1`, params.InvitationID).Scan(
		&inv.Status, &inv.RegularLimit, &inv.TestLimit, &inv.RegularUsed, &inv.TestUsed, &inv.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Guest{}, models.AdmitOutcomeNotActive, nil
		}
		return models.Guest{}, "", err
	}

	return models.Guest{}, rejectionOutcome(inv, params.Now), nil
}

// rejectionOutcome maps an invitation's state to the admission outcome once a
// duplicate row has been ruled out.
func rejectionOutcome(inv models.Invitation, now time.Time) models.AdmitOutcome {
	if !inv.AcceptsGuests(now) {
		return models.AdmitOutcomeNotActive
	}
	return models.AdmitOutcomeLimitReached
}

func (r *guestRepository) ListByInvitation(ctx context.Context, invitationID string) ([]models.Guest, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM guests
		WHERE invitation_id = $1
		ORDER BY first_seen_at ASC`, guestColumns)

	rows, err := r.db.QueryContext(ctx, query, invitationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var guests []models.Guest
	for rows.Next() {
		guest, err := scanGuest(rows)
		if err != nil {
			return nil, err
		}
		guests = append(guests, guest)
	}
	return guests, rows.Err()
}

func scanGuest(row rowScanner) (models.Guest, error) {
	var guest models.Guest
	err := row.Scan(
		&guest.ID,
		&guest.InvitationID,
		&guest.DisplayName,
		&guest.IsTest,
		&guest.IdentitySignal,
		&guest.SignalSource,
		&guest.FirstSeenAt,
		&guest.LastSeenAt,
	)
	if err != nil {
		return models.Guest{}, err
	}
	return guest, nil
}
