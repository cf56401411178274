package db

import (
	"context"
	"strings"
	"sync"
	"time"

	"order-board/internal/ordersync/domain/dto"
	"order-board/internal/simulator/app/core"
)

// MemStore keeps orders in memory. It is the default store so the simulator
// runs with no external services at all.
type MemStore struct {
	mu         sync.Mutex
	orders     map[int64]dto.OrderPayload
	nextID     int64
	nextItemID int64
	daySeq     map[string]int
}

func NewMemStore() *MemStore {
	return &MemStore{
		orders: make(map[int64]dto.OrderPayload),
		daySeq: make(map[string]int),
	}
}

func (s *MemStore) Create(_ context.Context, req dto.CreateOrderRequest) (dto.OrderPayload, error) {
	if len(req.Items) == 0 {
		return dto.OrderPayload{}, core.ErrEmptyOrder
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	day := now.Format("20060102")
	s.daySeq[day]++
	s.nextID++

	orderType := req.OrderType
	if orderType == "" {
		orderType = core.DefaultOrderType
	}

	order := dto.OrderPayload{
		ID:            s.nextID,
		OrderNumber:   orderNumber(day, s.daySeq[day]),
		Status:        "pending",
		PaymentStatus: "pending",
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		OrderType:     orderType,
		CreatedAt:     now,
		Notes:         req.Notes,
		OrderItems:    make([]dto.OrderItemPayload, 0, len(req.Items)),
	}

	total := 0.0
	for _, item := range req.Items {
		s.nextItemID++
		order.OrderItems = append(order.OrderItems, dto.OrderItemPayload{
			ID:           s.nextItemID,
			Quantity:     item.Quantity,
			Price:        item.Price,
			MenuItemName: item.MenuItemName,
		})
		total += float64(item.Quantity) * item.Price
	}
	order.TotalAmount = total

	s.orders[order.ID] = order
	return clone(order), nil
}

func (s *MemStore) Get(_ context.Context, id int64) (dto.OrderPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return dto.OrderPayload{}, core.ErrOrderNotFound
	}
	return clone(order), nil
}

func (s *MemStore) ListActive(_ context.Context) ([]dto.OrderPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]dto.OrderPayload, 0, len(s.orders))
	for _, order := range s.orders {
		if order.Status == "completed" || order.Status == "cancelled" {
			continue
		}
		out = append(out, clone(order))
	}
	return out, nil
}

func (s *MemStore) ListFiltered(_ context.Context, status, date string) ([]dto.OrderPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]dto.OrderPayload, 0)
	for _, order := range s.orders {
		if status != "" && !strings.EqualFold(order.Status, status) {
			continue
		}
		if date != "" && order.CreatedAt.Format("2006-01-02") != date {
			continue
		}
		out = append(out, clone(order))
	}
	return out, nil
}

func (s *MemStore) UpdateStatus(_ context.Context, id int64, status string) (dto.OrderPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return dto.OrderPayload{}, core.ErrOrderNotFound
	}
	order.Status = status
	s.orders[id] = order
	return clone(order), nil
}

func (s *MemStore) UpdatePayment(_ context.Context, id int64, paymentStatus string) (dto.OrderPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return dto.OrderPayload{}, core.ErrOrderNotFound
	}
	order.PaymentStatus = paymentStatus
	s.orders[id] = order
	return clone(order), nil
}

func (s *MemStore) Close() error { return nil }

func clone(order dto.OrderPayload) dto.OrderPayload {
	out := order
	out.OrderItems = make([]dto.OrderItemPayload, len(order.OrderItems))
	copy(out.OrderItems, order.OrderItems)
	return out
}
