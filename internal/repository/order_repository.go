package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cake-haven/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderAlreadyPaid  = errors.New("order is already paid")
	ErrInvalidTransition = errors.New("order status transition not allowed")
	ErrNoOrderItems      = errors.New("order has no items")
)

// OrderFilter narrows order listings for the back office.
type OrderFilter struct {
	Status string
	Search string // matches customer name or email
}

// ProductSales is an aggregate of quantity sold per product.
type ProductSales struct {
	ProductID     uuid.UUID `json:"product_id"`
	Name          string    `json:"name"`
	TotalQuantity int       `json:"total_quantity"`
}

// OrderRepository defines the interface for order data access
type OrderRepository interface {
	// CreateWithItems writes the order header and all item rows in one
	// transaction so they become visible together or not at all.
	CreateWithItems(ctx context.Context, order *domain.Order, items []*domain.OrderItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListItems(ctx context.Context, orderID uuid.UUID) ([]*domain.OrderItem, error)
	List(ctx context.Context, filter OrderFilter, page, pageSize int) ([]*domain.Order, int, error)
	// MarkPaid moves a pending order to paid. Returns ErrOrderAlreadyPaid
	// when the order already left the pending state, so redelivered payment
	// notifications stay no-ops.
	MarkPaid(ctx context.Context, id uuid.UUID) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error
	SetAdminNotes(ctx context.Context, id uuid.UUID, notes string) error
	SalesTotalSince(ctx context.Context, since time.Time) (float64, error)
	TopProducts(ctx context.Context, limit int) ([]*ProductSales, error)
	RecentOrders(ctx context.Context, limit int) ([]*domain.Order, error)
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = "id, customer_name, email, phone, address, total, status, notes, admin_notes, created_at, fulfilled_at"

func scanOrder(row interface{ Scan(...any) error }) (*domain.Order, error) {
	o := &domain.Order{}
	var phone, notes, adminNotes sql.NullString
	var address []byte
	var fulfilledAt sql.NullTime
	err := row.Scan(
		&o.ID,
		&o.CustomerName,
		&o.Email,
		&phone,
		&address,
		&o.Total,
		&o.Status,
		&notes,
		&adminNotes,
		&o.CreatedAt,
		&fulfilledAt,
	)
	if err != nil {
		return nil, err
	}
	o.Phone = phone.String
	o.Notes = notes.String
	o.AdminNotes = adminNotes.String
	if fulfilledAt.Valid {
		t := fulfilledAt.Time
		o.FulfilledAt = &t
	}
	if len(address) > 0 {
		if err := json.Unmarshal(address, &o.Address); err != nil {
			return nil, fmt.Errorf("failed to decode order address: %w", err)
		}
	}
	return o, nil
}

// CreateWithItems inserts the order header and every item row inside a
// single transaction.
func (r *orderRepository) CreateWithItems(ctx context.Context, order *domain.Order, items []*domain.OrderItem) error {
	if len(items) == 0 {
		return ErrNoOrderItems
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	address, err := json.Marshal(order.Address)
	if err != nil {
		return fmt.Errorf("failed to encode order address: %w", err)
	}

	orderQuery := `
		INSERT INTO orders (id, customer_name, email, phone, address, total, status, notes, admin_notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = tx.ExecContext(
		ctx,
		orderQuery,
		order.ID,
		order.CustomerName,
		order.Email,
		order.Phone,
		address,
		order.Total,
		order.Status,
		order.Notes,
		order.AdminNotes,
		order.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, product_id, name, price, quantity, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for _, item := range items {
		_, err = tx.ExecContext(
			ctx,
			itemQuery,
			item.ID,
			item.OrderID,
			item.ProductID,
			item.Name,
			item.Price,
			item.Quantity,
			item.ImageURL,
		)
		if err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order transaction: %w", err)
	}

	return nil
}

// FindByID retrieves an order with its items.
func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order by ID: %w", err)
	}

	items, err := r.ListItems(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return order, nil
}

// ListItems retrieves all item rows for an order.
func (r *orderRepository) ListItems(ctx context.Context, orderID uuid.UUID) ([]*domain.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, name, price, quantity, image_url
		FROM order_items
		WHERE order_id = $1
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	defer rows.Close()

	items := []*domain.OrderItem{}
	for rows.Next() {
		item := &domain.OrderItem{}
		var imageURL sql.NullString
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Name,
			&item.Price,
			&item.Quantity,
			&imageURL,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		item.ImageURL = imageURL.String
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}

// List retrieves orders for the back office with filtering and pagination.
func (r *orderRepository) List(ctx context.Context, filter OrderFilter, page, pageSize int) ([]*domain.Order, int, error) {
	whereClause := ""
	args := []interface{}{}
	argIndex := 1

	if filter.Status != "" {
		whereClause = fmt.Sprintf("WHERE status = $%d", argIndex)
		args = append(args, filter.Status)
		argIndex++
	}

	if filter.Search != "" {
		cond := fmt.Sprintf("(customer_name ILIKE $%d OR email ILIKE $%d)", argIndex, argIndex)
		if whereClause == "" {
			whereClause = "WHERE " + cond
		} else {
			whereClause += " AND " + cond
		}
		args = append(args, "%"+filter.Search+"%")
		argIndex++
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM orders %s", whereClause)
	var total int
	err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`
		SELECT %s
		FROM orders
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, orderColumns, whereClause, argIndex, argIndex+1)

	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, total, nil
}

// MarkPaid transitions an order from pending to paid.
func (r *orderRepository) MarkPaid(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE orders
		SET status = $2
		WHERE id = $1 AND status = $3
	`

	result, err := r.db.ExecContext(ctx, query, id, domain.OrderStatusPaid, domain.OrderStatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark order paid: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		// Distinguish a missing order from one that already moved on.
		var status domain.OrderStatus
		err := r.db.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&status)
		if err == sql.ErrNoRows {
			return ErrOrderNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check order status: %w", err)
		}
		return ErrOrderAlreadyPaid
	}

	return nil
}

// UpdateStatus applies an admin-driven status change, enforcing the allowed
// transitions. Moving to fulfilled records the fulfillment time.
func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error {
	current, err := r.currentStatus(ctx, id)
	if err != nil {
		return err
	}

	if !domain.CanTransition(current, status) {
		return ErrInvalidTransition
	}

	var result sql.Result
	if status == domain.OrderStatusFulfilled {
		result, err = r.db.ExecContext(ctx,
			`UPDATE orders SET status = $2, fulfilled_at = $3 WHERE id = $1 AND status = $4`,
			id, status, time.Now(), current)
	} else {
		result, err = r.db.ExecContext(ctx,
			`UPDATE orders SET status = $2 WHERE id = $1 AND status = $3`,
			id, status, current)
	}
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		// Lost the race against a concurrent status change.
		return ErrInvalidTransition
	}

	return nil
}

func (r *orderRepository) currentStatus(ctx context.Context, id uuid.UUID) (domain.OrderStatus, error) {
	var status domain.OrderStatus
	err := r.db.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&status)
	if err == sql.ErrNoRows {
		return "", ErrOrderNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read order status: %w", err)
	}
	return status, nil
}

// SetAdminNotes replaces the back-office notes on an order.
func (r *orderRepository) SetAdminNotes(ctx context.Context, id uuid.UUID, notes string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE orders SET admin_notes = $2 WHERE id = $1`, id, notes)
	if err != nil {
		return fmt.Errorf("failed to set admin notes: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrOrderNotFound
	}

	return nil
}

// SalesTotalSince sums order totals created at or after since.
func (r *orderRepository) SalesTotalSince(ctx context.Context, since time.Time) (float64, error) {
	var total float64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(total), 0) FROM orders WHERE created_at >= $1 AND status <> $2`,
		since, domain.OrderStatusCanceled,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum sales: %w", err)
	}
	return total, nil
}

// TopProducts returns the best-selling products by total quantity ordered.
func (r *orderRepository) TopProducts(ctx context.Context, limit int) ([]*ProductSales, error) {
	query := `
		SELECT oi.product_id, MAX(oi.name) AS name, SUM(oi.quantity) AS total_quantity
		FROM order_items oi
		GROUP BY oi.product_id
		ORDER BY total_quantity DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list top products: %w", err)
	}
	defer rows.Close()

	stats := []*ProductSales{}
	for rows.Next() {
		s := &ProductSales{}
		if err := rows.Scan(&s.ProductID, &s.Name, &s.TotalQuantity); err != nil {
			return nil, fmt.Errorf("failed to scan product sales: %w", err)
		}
		stats = append(stats, s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating top products: %w", err)
	}

	return stats, nil
}

// RecentOrders returns the newest orders for the dashboard.
func (r *orderRepository) RecentOrders(ctx context.Context, limit int) ([]*domain.Order, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM orders
		ORDER BY created_at DESC
		LIMIT $1
	`, orderColumns)

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recent orders: %w", err)
	}

	return orders, nil
}
