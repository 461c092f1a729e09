package memory

import (
	"context"
	"sort"
	"time"

	"github.com/eventra/eventra-api/internal/models"
	"github.com/eventra/eventra-api/internal/repository"
	"github.com/google/uuid"
)

type orderRepo struct {
	s *Store
}

// Orders returns the order view of the store.
func (s *Store) Orders() repository.OrderRepository {
	return orderRepo{s: s}
}

func (r orderRepo) Create(ctx context.Context, userID, planCode, eventTitle string) (models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now()
	order := &models.Order{
		ID:            uuid.NewString(),
		UserID:        userID,
		PlanCode:      planCode,
		EventTitle:    eventTitle,
		Status:        models.OrderStatusDraft,
		PaymentStatus: models.PaymentStatusNone,
		AdminNotes:    []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	r.s.orders[order.ID] = order
	return cloneOrder(order), nil
}

func (r orderRepo) GetByID(ctx context.Context, orderID string) (models.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if order, ok := r.s.orders[orderID]; ok {
		return cloneOrder(order), nil
	}
	return models.Order{}, models.ErrNotFound
}

func (r orderRepo) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var orders []models.Order
	for _, order := range r.s.orders {
		if order.UserID == userID {
			orders = append(orders, cloneOrder(order))
		}
	}
	sortOrders(orders)
	return orders, nil
}

func (r orderRepo) List(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var orders []models.Order
	for _, order := range r.s.orders {
		if status == "" || order.Status == status {
			orders = append(orders, cloneOrder(order))
		}
	}
	sortOrders(orders)
	return orders, nil
}

func (r orderRepo) Finalize(ctx context.Context, orderID, templateID string) (models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	order, ok := r.s.orders[orderID]
	if !ok {
		return models.Order{}, models.ErrNotFound
	}
	if order.Status != models.OrderStatusDraft {
		return models.Order{}, &models.InvalidOrderTransitionError{From: order.Status, To: models.OrderStatusPendingPayment}
	}

	order.Status = models.OrderStatusPendingPayment
	order.TemplateID = &templateID
	order.UpdatedAt = time.Now()
	return cloneOrder(order), nil
}

func (r orderRepo) RecordPayment(ctx context.Context, evt models.PaymentEvent) (models.Order, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	order, ok := r.s.orders[evt.OrderID]
	if !ok {
		return models.Order{}, false, models.ErrNotFound
	}
	if _, seen := r.s.payments[evt.ProviderReference]; seen {
		return cloneOrder(order), false, nil
	}
	if order.Status != models.OrderStatusPendingPayment {
		return models.Order{}, false, &models.InvalidOrderTransitionError{From: order.Status, To: models.OrderStatusPendingApproval}
	}

	r.s.payments[evt.ProviderReference] = evt
	switch evt.Status {
	case models.PaymentStatusReceived:
		order.Status = models.OrderStatusPendingApproval
		order.PaymentStatus = models.PaymentStatusReceived
	case models.PaymentStatusFailed:
		order.PaymentStatus = models.PaymentStatusFailed
	}
	order.UpdatedAt = time.Now()
	return cloneOrder(order), true, nil
}

func (r orderRepo) ActivateWithInvitation(ctx context.Context, orderID, decidedBy, note string, inv models.Invitation) (models.Order, models.Invitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	order, ok := r.s.orders[orderID]
	if !ok {
		return models.Order{}, models.Invitation{}, models.ErrNotFound
	}
	if order.Status != models.OrderStatusPendingApproval {
		return models.Order{}, models.Invitation{}, &models.InvalidOrderTransitionError{From: order.Status, To: models.OrderStatusApproved}
	}
	if _, taken := r.s.slugs[inv.Slug]; taken {
		return models.Order{}, models.Invitation{}, repository.ErrSlugTaken
	}

	order.Status = models.OrderStatusActive
	if note != "" {
		order.AdminNotes = append(order.AdminNotes, note)
	}
	order.DecidedBy = &decidedBy
	decidedAt := inv.ActivatedAt
	order.DecidedAt = &decidedAt
	order.UpdatedAt = decidedAt

	created := &models.Invitation{
		ID:           uuid.NewString(),
		OrderID:      order.ID,
		Slug:         inv.Slug,
		EventTitle:   order.EventTitle,
		Status:       models.InvitationStatusActive,
		RegularLimit: inv.RegularLimit + order.GrantedRegularLinks,
		TestLimit:    inv.TestLimit + order.GrantedTestLinks,
		ActivatedAt:  inv.ActivatedAt,
		ExpiresAt:    inv.ExpiresAt,
		CreatedAt:    decidedAt,
		UpdatedAt:    decidedAt,
	}
	r.s.slugs[created.Slug] = created.ID

	sh := r.s.shardFor(created.ID)
	sh.mu.Lock()
	sh.invitations[created.ID] = created
	sh.mu.Unlock()

	return cloneOrder(order), cloneInvitation(created), nil
}

func (r orderRepo) Reject(ctx context.Context, orderID, decidedBy, note string, decidedAt time.Time) (models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	order, ok := r.s.orders[orderID]
	if !ok {
		return models.Order{}, models.ErrNotFound
	}
	if order.Status != models.OrderStatusPendingApproval {
		return models.Order{}, &models.InvalidOrderTransitionError{From: order.Status, To: models.OrderStatusRejected}
	}

	order.Status = models.OrderStatusRejected
	if note != "" {
		order.AdminNotes = append(order.AdminNotes, note)
	}
	order.DecidedBy = &decidedBy
	order.DecidedAt = &decidedAt
	order.UpdatedAt = decidedAt
	return cloneOrder(order), nil
}

func (r orderRepo) GrantLinks(ctx context.Context, orderID string, regularDelta, testDelta int, note string) (models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	order, ok := r.s.orders[orderID]
	if !ok {
		return models.Order{}, models.ErrNotFound
	}
	if !order.AcceptsAdminAdjustments() {
		return models.Order{}, &models.InvalidOrderTransitionError{From: order.Status, To: order.Status}
	}

	order.GrantedRegularLinks += regularDelta
	order.GrantedTestLinks += testDelta
	if note != "" {
		order.AdminNotes = append(order.AdminNotes, note)
	}
	order.UpdatedAt = time.Now()

	if order.Status == models.OrderStatusActive {
		for _, sh := range r.s.shards {
			sh.mu.Lock()
			for _, inv := range sh.invitations {
				if inv.OrderID == orderID {
					inv.RegularLimit += regularDelta
					inv.TestLimit += testDelta
					inv.UpdatedAt = order.UpdatedAt
				}
			}
			sh.mu.Unlock()
		}
	}

	return cloneOrder(order), nil
}

func (r orderRepo) AddNote(ctx context.Context, orderID, note string) (models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	order, ok := r.s.orders[orderID]
	if !ok {
		return models.Order{}, models.ErrNotFound
	}
	if !order.AcceptsAdminAdjustments() {
		return models.Order{}, &models.InvalidOrderTransitionError{From: order.Status, To: order.Status}
	}

	order.AdminNotes = append(order.AdminNotes, note)
	order.UpdatedAt = time.Now()
	return cloneOrder(order), nil
}

func sortOrders(orders []models.Order) {
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}
