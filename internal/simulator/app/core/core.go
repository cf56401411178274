package core

import (
	"context"
	"errors"

	"order-board/internal/ordersync/domain/dto"
)

const (
	WaitTime = 10 // seconds, shutdown and request timeouts

	DefaultOrderType = "walk-in"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrEmptyOrder        = errors.New("order has no items")
	ErrInvalidStatus     = errors.New("invalid status value")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrDBConn            = errors.New("db connection failure")
)

// IOrderStore is the persistence boundary. Two implementations exist: an
// in-memory store for self-contained runs and a postgres store selected by
// DSN.
type IOrderStore interface {
	Create(ctx context.Context, req dto.CreateOrderRequest) (dto.OrderPayload, error)
	Get(ctx context.Context, id int64) (dto.OrderPayload, error)
	ListActive(ctx context.Context) ([]dto.OrderPayload, error)
	ListFiltered(ctx context.Context, status, date string) ([]dto.OrderPayload, error)
	UpdateStatus(ctx context.Context, id int64, status string) (dto.OrderPayload, error)
	UpdatePayment(ctx context.Context, id int64, paymentStatus string) (dto.OrderPayload, error)
	Close() error
}

// IBroadcaster pushes frames to every connected websocket client.
type IBroadcaster interface {
	Broadcast(frame dto.Frame)
}
