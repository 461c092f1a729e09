package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/eventra/eventra-api/internal/models"
	"github.com/lib/pq"
)

const orderColumns = `id, user_id, plan_code, template_id, event_title, status, payment_status,
		granted_regular_links, granted_test_links, admin_notes, decided_by, decided_at, created_at, updated_at`

type OrderRepository interface {
	Create(ctx context.Context, userID, planCode, eventTitle string) (models.Order, error)
	GetByID(ctx context.Context, orderID string) (models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
	List(ctx context.Context, status models.OrderStatus) ([]models.Order, error)

	// Finalize moves DRAFT to PENDING_PAYMENT, recording the chosen template.
	Finalize(ctx context.Context, orderID, templateID string) (models.Order, error)

	// RecordPayment applies a payment-confirmation event. The provider
	// reference is the idempotency key: a replayed reference returns the
	// current order with applied=false and no state change.
	RecordPayment(ctx context.Context, evt models.PaymentEvent) (models.Order, bool, error)

	// ActivateWithInvitation performs the approval transaction: the order
	// moves PENDING_APPROVAL -> ACTIVE and the invitation row is inserted,
	// atomically. Capacity limits are computed from the granted link counts
	// read inside the same transaction. Returns ErrSlugTaken when the slug
	// collides so the caller can retry with a fresh one.
	ActivateWithInvitation(ctx context.Context, orderID, decidedBy, note string, inv models.Invitation) (models.Order, models.Invitation, error)

	Reject(ctx context.Context, orderID, decidedBy, note string, decidedAt time.Time) (models.Order, error)

	// GrantLinks raises the granted link counts and, when the order is
	// already ACTIVE, raises the invitation's limits in the same
	// transaction. Deltas are additive only.
	GrantLinks(ctx context.Context, orderID string, regularDelta, testDelta int, note string) (models.Order, error)

	AddNote(ctx context.Context, orderID, note string) (models.Order, error)
}

type orderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, userID, planCode, eventTitle string) (models.Order, error) {
	query := fmt.Sprintf(`
		INSERT INTO orders (user_id, plan_code, event_title, status, payment_status)
		VALUES ($1, $2, $3, 'DRAFT', 'NONE')
		RETURNING %s`, orderColumns)

	return scanOrder(r.db.QueryRowContext(ctx, query, userID, planCode, eventTitle))
}

func (r *orderRepository) GetByID(ctx context.Context, orderID string) (models.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Order{}, models.ErrNotFound
	}
	return order, err
}

func (r *orderRepository) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, orderColumns)
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

func (r *orderRepository) List(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders`, orderColumns)
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

func (r *orderRepository) Finalize(ctx context.Context, orderID, templateID string) (models.Order, error) {
	query := fmt.Sprintf(`
		UPDATE orders
		SET status = 'PENDING_PAYMENT', template_id = $2, updated_at = now()
		WHERE id = $1 AND status = 'DRAFT'
		RETURNING %s`, orderColumns)

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, orderID, templateID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Order{}, r.transitionError(ctx, orderID, models.OrderStatusPendingPayment)
	}
	return order, err
}

func (r *orderRepository) RecordPayment(ctx context.Context, evt models.PaymentEvent) (models.Order, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Order{}, false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO payment_events (provider_reference, order_id, amount, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (provider_reference) DO NOTHING`,
		evt.ProviderReference, evt.OrderID, evt.Amount, evt.Status)
	if err != nil {
		return models.Order{}, false, err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return models.Order{}, false, err
	}
	if inserted == 0 {
		// Replay of a reference already processed; downstream effects
		// must not fire again.
		order, err := r.GetByID(ctx, evt.OrderID)
		return order, false, err
	}

	var (
		order models.Order
		query string
	)
	switch evt.Status {
	case models.PaymentStatusReceived:
		query = fmt.Sprintf(`
			UPDATE orders
			SET status = 'PENDING_APPROVAL', payment_status = 'RECEIVED', updated_at = now()
			WHERE id = $1 AND status = 'PENDING_PAYMENT'
			RETURNING %s`, orderColumns)
	case models.PaymentStatusFailed:
		query = fmt.Sprintf(`
			UPDATE orders
			SET payment_status = 'FAILED', updated_at = now()
			WHERE id = $1 AND status = 'PENDING_PAYMENT'
			RETURNING %s`, orderColumns)
	default:
		return models.Order{}, false, fmt.Errorf("unsupported payment status %q", evt.Status)
	}

	order, err = scanOrder(tx.QueryRowContext(ctx, query, evt.OrderID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Order{}, false, r.transitionError(ctx, evt.OrderID, models.OrderStatusPendingApproval)
	}
	if err != nil {
		return models.Order{}, false, err
	}

	return order, true, tx.Commit()
}

func (r *orderRepository) ActivateWithInvitation(ctx context.Context, orderID, decidedBy, note string, inv models.Invitation) (models.Order, models.Invitation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Order{}, models.Invitation{}, err
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		UPDATE orders
		SET status = 'ACTIVE',
		    admin_notes = CASE WHEN $2 <> '' THEN array_append(admin_notes, $2) ELSE admin_notes END,
		    decided_by = $3, decided_at = $4, updated_at = now()
		WHERE id = $1 AND status = 'PENDING_APPROVAL'
		RETURNING %s`, orderColumns)

	order, err := scanOrder(tx.QueryRowContext(ctx, query, orderID, note, decidedBy, inv.ActivatedAt))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Order{}, models.Invitation{}, r.transitionError(ctx, orderID, models.OrderStatusApproved)
	}
	if err != nil {
		return models.Order{}, models.Invitation{}, err
	}

	// Limits come from the plan base plus the granted counts as of this
	// transaction, so a concurrent grant is never lost.
	const insert = `
		INSERT INTO invitations (order_id, slug, event_title, status, regular_limit, test_limit,
			regular_used, test_used, activated_at, expires_at)
		VALUES ($1, $2, $3, 'ACTIVE', $4 + $5, $6 + $7, 0, 0, $8, $9)
		RETURNING id, order_id, slug, event_title, status, regular_limit, test_limit,
			regular_used, test_used, activated_at, expires_at, created_at, updated_at`

	created, err := scanInvitation(tx.QueryRowContext(ctx, insert,
		order.ID,
		inv.Slug,
		order.EventTitle,
		inv.RegularLimit, order.GrantedRegularLinks,
		inv.TestLimit, order.GrantedTestLinks,
		inv.ActivatedAt,
		inv.ExpiresAt,
	))
	if err != nil {
		if isUniqueViolation(err, "invitations_slug_key") {
			return models.Order{}, models.Invitation{}, ErrSlugTaken
		}
		return models.Order{}, models.Invitation{}, err
	}

	return order, created, tx.Commit()
}

func (r *orderRepository) Reject(ctx context.Context, orderID, decidedBy, note string, decidedAt time.Time) (models.Order, error) {
	query := fmt.Sprintf(`
		UPDATE orders
		SET status = 'REJECTED',
		    admin_notes = CASE WHEN $2 <> '' THEN array_append(admin_notes, $2) ELSE admin_notes END,
		    decided_by = $3, decided_at = $4, updated_at = now()
		WHERE id = $1 AND status = 'PENDING_APPROVAL'
		RETURNING %s`, orderColumns)

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, orderID, note, decidedBy, decidedAt))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Order{}, r.transitionError(ctx, orderID, models.OrderStatusRejected)
	}
	return order, err
}

func (r *orderRepository) GrantLinks(ctx context.Context, orderID string, regularDelta, testDelta int, note string) (models.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Order{}, err
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		UPDATE orders
		SET granted_regular_links = granted_regular_links + $2,
		    granted_test_links = granted_test_links + $3,
		    admin_notes = CASE WHEN $4 <> '' THEN array_append(admin_notes, $4) ELSE admin_notes END,
		    updated_at = now()
		WHERE id = $1 AND status NOT IN ('DRAFT', 'REJECTED')
		RETURNING %s`, orderColumns)

	order, err := scanOrder(tx.QueryRowContext(ctx, query, orderID, regularDelta, testDelta, note))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Order{}, r.adjustmentError(ctx, orderID)
	}
	if err != nil {
		return models.Order{}, err
	}

	if order.Status == models.OrderStatusActive {
		_, err = tx.ExecContext(ctx, `
			UPDATE invitations
			SET regular_limit = regular_limit + $2, test_limit = test_limit + $3, updated_at = now()
			WHERE order_id = $1`, orderID, regularDelta, testDelta)
		if err != nil {
			return models.Order{}, err
		}
	}

	return order, tx.Commit()
}

func (r *orderRepository) AddNote(ctx context.Context, orderID, note string) (models.Order, error) {
	query := fmt.Sprintf(`
		UPDATE orders
		SET admin_notes = array_append(admin_notes, $2), updated_at = now()
		WHERE id = $1 AND status NOT IN ('DRAFT', 'REJECTED')
		RETURNING %s`, orderColumns)

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, orderID, note))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Order{}, r.adjustmentError(ctx, orderID)
	}
	return order, err
}

// transitionError distinguishes a missing order from a guarded transition
// that lost to the order's actual state.
func (r *orderRepository) transitionError(ctx context.Context, orderID string, to models.OrderStatus) error {
	order, err := r.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	return &models.InvalidOrderTransitionError{From: order.Status, To: to}
}

func (r *orderRepository) adjustmentError(ctx context.Context, orderID string) error {
	order, err := r.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	return &models.InvalidOrderTransitionError{From: order.Status, To: order.Status}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (models.Order, error) {
	var (
		order      models.Order
		templateID sql.NullString
		notes      pq.StringArray
		decidedBy  sql.NullString
		decidedAt  sql.NullTime
	)
	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.PlanCode,
		&templateID,
		&order.EventTitle,
		&order.Status,
		&order.PaymentStatus,
		&order.GrantedRegularLinks,
		&order.GrantedTestLinks,
		&notes,
		&decidedBy,
		&decidedAt,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return models.Order{}, err
	}

	order.AdminNotes = notes
	if templateID.Valid {
		order.TemplateID = &templateID.String
	}
	if decidedBy.Valid {
		order.DecidedBy = &decidedBy.String
	}
	if decidedAt.Valid {
		order.DecidedAt = &decidedAt.Time
	}
	return order, nil
}

func collectOrders(rows *sql.Rows) ([]models.Order, error) {
	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}
