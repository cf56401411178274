package services

import (
	"context"
	"fmt"
	"strings"

	"order-board/internal/ordersync/domain/dto"
	"order-board/internal/simulator/app/core"
	"order-board/internal/xpkg/logger"
)

// allowed transitions of the order lifecycle. Cancellation is reachable from
// every non-terminal state.
var transitions = map[string][]string{
	"pending":   {"preparing", "cancelled"},
	"preparing": {"ready", "cancelled"},
	"ready":     {"completed", "cancelled"},
}

type OrderService struct {
	store core.IOrderStore
	hub   core.IBroadcaster
	mylog logger.Logger
}

func NewOrderService(store core.IOrderStore, hub core.IBroadcaster, mylog logger.Logger) *OrderService {
	return &OrderService{
		store: store,
		hub:   hub,
		mylog: mylog,
	}
}

// Create validates and stores a walk-in order, then announces it.
func (s *OrderService) Create(ctx context.Context, req dto.CreateOrderRequest) (dto.OrderPayload, error) {
	mylog := s.mylog.Action("order_create")

	if err := validateRequest(req); err != nil {
		mylog.Warn("Rejected order request", "reason", err.Error())
		return dto.OrderPayload{}, err
	}

	order, err := s.store.Create(ctx, req)
	if err != nil {
		mylog.Error("Failed to store order", err)
		return dto.OrderPayload{}, err
	}
	mylog.Info("Order created", "order_number", order.OrderNumber, "total_amount", order.TotalAmount)

	s.hub.Broadcast(dto.Frame{Type: dto.TypeNewOrder, Order: &order})
	return order, nil
}

func (s *OrderService) Get(ctx context.Context, id int64) (dto.OrderPayload, error) {
	return s.store.Get(ctx, id)
}

func (s *OrderService) ListActive(ctx context.Context) ([]dto.OrderPayload, error) {
	return s.store.ListActive(ctx)
}

func (s *OrderService) ListFiltered(ctx context.Context, status, date string) ([]dto.OrderPayload, error) {
	return s.store.ListFiltered(ctx, status, date)
}

// ChangeStatus moves an order through its lifecycle and announces the
// transition. Cancellations additionally get a toast-style notification
// frame so boards that do not track the order still tell the staff.
func (s *OrderService) ChangeStatus(ctx context.Context, id int64, status string) (dto.OrderPayload, error) {
	mylog := s.mylog.Action("status_change").With("order_id", id)

	status = strings.ToLower(strings.TrimSpace(status))
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return dto.OrderPayload{}, err
	}

	allowed := transitions[current.Status]
	ok := false
	for _, next := range allowed {
		if next == status {
			ok = true
			break
		}
	}
	if !ok {
		mylog.Warn("Transition rejected", "from", current.Status, "to", status)
		return dto.OrderPayload{}, fmt.Errorf("%w: %s -> %s", core.ErrInvalidTransition, current.Status, status)
	}

	order, err := s.store.UpdateStatus(ctx, id, status)
	if err != nil {
		mylog.Error("Failed to update status", err)
		return dto.OrderPayload{}, err
	}
	mylog.Info("Status changed", "from", current.Status, "to", status)

	s.hub.Broadcast(dto.Frame{Type: dto.TypeOrderStatusChange, Order: &order, OrderID: order.ID, OrderNumber: order.OrderNumber, Status: order.Status})
	if status == "cancelled" {
		s.hub.Broadcast(dto.Frame{
			Type:        dto.TypeOrderCancelled,
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			Message:     fmt.Sprintf("Order %s was cancelled", order.OrderNumber),
		})
	}
	return order, nil
}

// ConfirmPayment marks the order paid and announces the update, which is
// what lets it through payment-gated kitchen views.
func (s *OrderService) ConfirmPayment(ctx context.Context, id int64) (dto.OrderPayload, error) {
	mylog := s.mylog.Action("payment_confirm").With("order_id", id)

	order, err := s.store.UpdatePayment(ctx, id, "paid")
	if err != nil {
		mylog.Error("Failed to update payment status", err)
		return dto.OrderPayload{}, err
	}
	mylog.Info("Payment confirmed", "order_number", order.OrderNumber)

	s.hub.Broadcast(dto.Frame{Type: dto.TypeOrderUpdate, Order: &order})
	return order, nil
}

func validateRequest(req dto.CreateOrderRequest) error {
	if len(req.Items) == 0 {
		return core.ErrEmptyOrder
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return fmt.Errorf("item %q: quantity must be positive", item.MenuItemName)
		}
		if item.Price < 0 {
			return fmt.Errorf("item %q: price must not be negative", item.MenuItemName)
		}
	}
	return nil
}
