package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"order-board/internal/ordersync/domain/dto"
	"order-board/internal/simulator/app/core"
)

func orderNumber(day string, seq int) string {
	return fmt.Sprintf("ORD_%s_%03d", day, seq)
}

// OrderRepo is the postgres-backed store, used when a DSN is configured so
// simulator state survives restarts.
type OrderRepo struct {
	pool *pgxpool.Pool
}

func NewOrderRepo(ctx context.Context, dsn string) (*OrderRepo, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrDBConn, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", core.ErrDBConn, err)
	}

	repo := &OrderRepo{pool: pool}
	if err := repo.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return repo, nil
}

func (r *OrderRepo) migrate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS orders (
			id BIGSERIAL PRIMARY KEY,
			order_number TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			payment_status TEXT NOT NULL DEFAULT 'pending',
			customer_name TEXT NOT NULL DEFAULT '',
			customer_phone TEXT NOT NULL DEFAULT '',
			order_type TEXT NOT NULL DEFAULT 'walk-in',
			total_amount NUMERIC(10,2) NOT NULL DEFAULT 0,
			notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS order_items (
			id BIGSERIAL PRIMARY KEY,
			order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			menu_item_name TEXT NOT NULL DEFAULT '',
			quantity INT NOT NULL,
			price NUMERIC(10,2) NOT NULL,
			special_instructions TEXT NOT NULL DEFAULT ''
		);
	`)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (r *OrderRepo) Create(ctx context.Context, req dto.CreateOrderRequest) (dto.OrderPayload, error) {
	if len(req.Items) == 0 {
		return dto.OrderPayload{}, core.ErrEmptyOrder
	}

	day := time.Now().UTC().Format("20060102")

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return dto.OrderPayload{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Number orders per day the same way the original kitchen does.
	var todayCount int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM orders WHERE created_at::DATE = $1::DATE`,
		time.Now().UTC().Format("2006-01-02"),
	).Scan(&todayCount)
	if err != nil {
		return dto.OrderPayload{}, fmt.Errorf("count today's orders: %w", err)
	}

	total := 0.0
	for _, item := range req.Items {
		total += float64(item.Quantity) * item.Price
	}

	orderType := req.OrderType
	if orderType == "" {
		orderType = core.DefaultOrderType
	}

	order := dto.OrderPayload{
		OrderNumber:   orderNumber(day, todayCount+1),
		Status:        "pending",
		PaymentStatus: "pending",
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		OrderType:     orderType,
		TotalAmount:   total,
		Notes:         req.Notes,
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO orders (order_number, status, payment_status, customer_name,
			customer_phone, order_type, total_amount, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`,
		order.OrderNumber, order.Status, order.PaymentStatus, order.CustomerName,
		order.CustomerPhone, order.OrderType, order.TotalAmount, order.Notes,
	).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return dto.OrderPayload{}, fmt.Errorf("insert order: %w", err)
	}

	order.OrderItems = make([]dto.OrderItemPayload, 0, len(req.Items))
	for _, item := range req.Items {
		var itemID int64
		err = tx.QueryRow(ctx, `
			INSERT INTO order_items (order_id, menu_item_name, quantity, price)
			VALUES ($1, $2, $3, $4)
			RETURNING id`,
			order.ID, item.MenuItemName, item.Quantity, item.Price,
		).Scan(&itemID)
		if err != nil {
			return dto.OrderPayload{}, fmt.Errorf("insert order item: %w", err)
		}
		order.OrderItems = append(order.OrderItems, dto.OrderItemPayload{
			ID:           itemID,
			Quantity:     item.Quantity,
			Price:        item.Price,
			MenuItemName: item.MenuItemName,
		})
	}

	if err := tx.Commit(ctx); err != nil {
		return dto.OrderPayload{}, fmt.Errorf("commit order: %w", err)
	}
	return order, nil
}

func (r *OrderRepo) Get(ctx context.Context, id int64) (dto.OrderPayload, error) {
	orders, err := r.query(ctx, `WHERE o.id = $1`, id)
	if err != nil {
		return dto.OrderPayload{}, err
	}
	if len(orders) == 0 {
		return dto.OrderPayload{}, core.ErrOrderNotFound
	}
	return orders[0], nil
}

func (r *OrderRepo) ListActive(ctx context.Context) ([]dto.OrderPayload, error) {
	return r.query(ctx, `WHERE o.status NOT IN ('completed', 'cancelled')`)
}

func (r *OrderRepo) ListFiltered(ctx context.Context, status, date string) ([]dto.OrderPayload, error) {
	switch {
	case status != "" && date != "":
		return r.query(ctx, `WHERE o.status = $1 AND o.created_at::DATE = $2::DATE`, status, date)
	case status != "":
		return r.query(ctx, `WHERE o.status = $1`, status)
	case date != "":
		return r.query(ctx, `WHERE o.created_at::DATE = $1::DATE`, date)
	default:
		return r.query(ctx, ``)
	}
}

func (r *OrderRepo) UpdateStatus(ctx context.Context, id int64, status string) (dto.OrderPayload, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE orders SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return dto.OrderPayload{}, fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return dto.OrderPayload{}, core.ErrOrderNotFound
	}
	return r.Get(ctx, id)
}

func (r *OrderRepo) UpdatePayment(ctx context.Context, id int64, paymentStatus string) (dto.OrderPayload, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE orders SET payment_status = $1 WHERE id = $2`, paymentStatus, id)
	if err != nil {
		return dto.OrderPayload{}, fmt.Errorf("update payment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return dto.OrderPayload{}, core.ErrOrderNotFound
	}
	return r.Get(ctx, id)
}

func (r *OrderRepo) Close() error {
	r.pool.Close()
	return nil
}

func (r *OrderRepo) query(ctx context.Context, where string, args ...any) ([]dto.OrderPayload, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT o.id, o.order_number, o.status, o.payment_status, o.customer_name,
			o.customer_phone, o.order_type, o.total_amount, o.notes, o.created_at
		FROM orders o `+where+` ORDER BY o.created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]dto.OrderPayload, 0)
	for rows.Next() {
		var o dto.OrderPayload
		if err := rows.Scan(&o.ID, &o.OrderNumber, &o.Status, &o.PaymentStatus,
			&o.CustomerName, &o.CustomerPhone, &o.OrderType, &o.TotalAmount,
			&o.Notes, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.OrderItems = make([]dto.OrderItemPayload, 0)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		if err := r.loadItems(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *OrderRepo) loadItems(ctx context.Context, order *dto.OrderPayload) error {
	rows, err := r.pool.Query(ctx, `
		SELECT id, menu_item_name, quantity, price, special_instructions
		FROM order_items WHERE order_id = $1 ORDER BY id`, order.ID)
	if err != nil {
		return fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item dto.OrderItemPayload
		if err := rows.Scan(&item.ID, &item.MenuItemName, &item.Quantity,
			&item.Price, &item.SpecialInstructions); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		order.OrderItems = append(order.OrderItems, item)
	}
	return rows.Err()
}
