package models

import "time"

type OrderStatus string

const (
	OrderStatusDraft           OrderStatus = "DRAFT"
	OrderStatusPendingPayment  OrderStatus = "PENDING_PAYMENT"
	OrderStatusPendingApproval OrderStatus = "PENDING_APPROVAL"
	OrderStatusApproved        OrderStatus = "APPROVED"
	OrderStatusRejected        OrderStatus = "REJECTED"
	OrderStatusActive          OrderStatus = "ACTIVE"
)

type PaymentStatus string

const (
	PaymentStatusNone     PaymentStatus = "NONE"
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusReceived PaymentStatus = "RECEIVED"
	PaymentStatusFailed   PaymentStatus = "FAILED"
)

// Order tracks a capacity purchase from draft through admin decision. Once
// ACTIVE it is immutable except for link grants and notes.
type Order struct {
	ID                  string        `json:"id"`
	UserID              string        `json:"user_id"`
	PlanCode            string        `json:"plan_code"`
	TemplateID          *string       `json:"template_id,omitempty"`
	EventTitle          string        `json:"event_title"`
	Status              OrderStatus   `json:"status"`
	PaymentStatus       PaymentStatus `json:"payment_status"`
	GrantedRegularLinks int           `json:"granted_regular_links"`
	GrantedTestLinks    int           `json:"granted_test_links"`
	AdminNotes          []string      `json:"admin_notes"`
	DecidedBy           *string       `json:"decided_by,omitempty"`
	DecidedAt           *time.Time    `json:"decided_at,omitempty"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

// orderTransitions is the full lifecycle graph. APPROVED is a transient state:
// approval and activation happen in one transaction, so persisted orders only
// ever hold the other five statuses.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusDraft:           {OrderStatusPendingPayment},
	OrderStatusPendingPayment:  {OrderStatusPendingApproval},
	OrderStatusPendingApproval: {OrderStatusApproved, OrderStatusRejected},
	OrderStatusApproved:        {OrderStatusActive},
	OrderStatusRejected:        {},
	OrderStatusActive:          {},
}

// EnsureTransition validates a status change against the lifecycle graph.
func (o Order) EnsureTransition(to OrderStatus) error {
	for _, allowed := range orderTransitions[o.Status] {
		if allowed == to {
			return nil
		}
	}
	return &InvalidOrderTransitionError{From: o.Status, To: to}
}

// AcceptsAdminAdjustments reports whether link grants and notes may still be
// attached. Draft orders have nothing to annotate; rejected orders are closed.
func (o Order) AcceptsAdminAdjustments() bool {
	return o.Status != OrderStatusDraft && o.Status != OrderStatusRejected
}

// PaymentEvent is the external payment-confirmation contract. The provider
// reference doubles as the idempotency key: replays of the same reference are
// silently ignored.
type PaymentEvent struct {
	OrderID           string        `json:"order_id"`
	Amount            int64         `json:"amount"`
	ProviderReference string        `json:"provider_reference"`
	Status            PaymentStatus `json:"status"`
}
