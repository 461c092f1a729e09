package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/eventra/eventra-api/internal/models"
)

const invitationColumns = `id, order_id, slug, event_title, status, regular_limit, test_limit,
		regular_used, test_used, activated_at, expires_at, created_at, updated_at`

type InvitationRepository interface {
	GetByID(ctx context.Context, invitationID string) (models.Invitation, error)
	GetBySlug(ctx context.Context, slug string) (models.Invitation, error)
	GetByOrderID(ctx context.Context, orderID string) (models.Invitation, error)
	List(ctx context.Context) ([]models.Invitation, error)

	// ExtendValidity pushes the expiry forward. An invitation the sweeper
	// already marked EXPIRED flips back to ACTIVE when the new expiry is in
	// the future; a DEACTIVATED one stays off.
	ExtendValidity(ctx context.Context, invitationID string, newExpiresAt time.Time) (models.Invitation, error)

	Deactivate(ctx context.Context, invitationID string) (models.Invitation, error)

	// ExpireStale flips ACTIVE invitations whose expiry has lapsed to
	// EXPIRED and returns how many were flipped.
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}

type invitationRepository struct {
	db *sql.DB
}

func NewInvitationRepository(db *sql.DB) InvitationRepository {
	return &invitationRepository{db: db}
}

func (r *invitationRepository) GetByID(ctx context.Context, invitationID string) (models.Invitation, error) {
	return r.getWhere(ctx, "id = $1", invitationID)
}

func (r *invitationRepository) GetBySlug(ctx context.Context, slug string) (models.Invitation, error) {
	return r.getWhere(ctx, "slug = $1", slug)
}

func (r *invitationRepository) GetByOrderID(ctx context.Context, orderID string) (models.Invitation, error) {
	return r.getWhere(ctx, "order_id = $1", orderID)
}

func (r *invitationRepository) getWhere(ctx context.Context, where string, arg interface{}) (models.Invitation, error) {
	query := fmt.Sprintf(`SELECT %s FROM invitations WHERE %s`, invitationColumns, where)
	inv, err := scanInvitation(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Invitation{}, models.ErrNotFound
	}
	return inv, err
}

func (r *invitationRepository) List(ctx context.Context) ([]models.Invitation, error) {
	query := fmt.Sprintf(`SELECT %s FROM invitations ORDER BY activated_at DESC`, invitationColumns)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invitations []models.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invitations = append(invitations, inv)
	}
	return invitations, rows.Err()
}

func (r *invitationRepository) ExtendValidity(ctx context.Context, invitationID string, newExpiresAt time.Time) (models.Invitation, error) {
	query := fmt.Sprintf(`
		UPDATE invitations
		SET expires_at = $2,
		    status = CASE WHEN status = 'EXPIRED' AND $2 > now() THEN 'ACTIVE' ELSE status END,
		    updated_at = now()
		WHERE id = $1 AND status <> 'DEACTIVATED' AND $2 > expires_at
		RETURNING %s`, invitationColumns)

	inv, err := scanInvitation(r.db.QueryRowContext(ctx, query, invitationID, newExpiresAt))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Invitation{}, models.ErrNotFound
	}
	return inv, err
}

func (r *invitationRepository) Deactivate(ctx context.Context, invitationID string) (models.Invitation, error) {
	query := fmt.Sprintf(`
		UPDATE invitations
		SET status = 'DEACTIVATED', updated_at = now()
		WHERE id = $1
		RETURNING %s`, invitationColumns)

	inv, err := scanInvitation(r.db.QueryRowContext(ctx, query, invitationID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Invitation{}, models.ErrNotFound
	}
	return inv, err
}

func (r *invitationRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE invitations
		SET status = 'EXPIRED', updated_at = now()
		WHERE status = 'ACTIVE' AND expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanInvitation(row rowScanner) (models.Invitation, error) {
	var inv models.Invitation
	err := row.Scan(
		&inv.ID,
		&inv.OrderID,
		&inv.Slug,
		&inv.EventTitle,
		&inv.Status,
		&inv.RegularLimit,
		&inv.TestLimit,
		&inv.RegularUsed,
		&inv.TestUsed,
		&inv.ActivatedAt,
		&inv.ExpiresAt,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return models.Invitation{}, err
	}
	return inv, nil
}
