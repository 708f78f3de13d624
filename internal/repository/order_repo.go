package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/FindMalek/dukkani-sub000/internal/database"
	"github.com/FindMalek/dukkani-sub000/internal/models"
	"github.com/FindMalek/dukkani-sub000/internal/utils"
)

const (
	orderColumns = `id, store_id, customer_id, address_id, status, payment_method,
        is_whatsapp, notes, created_at, updated_at`
	orderItemColumns = `id, order_id, product_id, variant_id, quantity, price, created_at`
)

// OrderRepository handles data access for orders and order items.
type OrderRepository struct {
	db *sqlx.DB
}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts the order header. A taken id surfaces as ErrBadRequest.
func (r *OrderRepository) Create(ctx context.Context, q database.Queryer, o *models.Order) error {
	const query = `INSERT INTO orders (id, store_id, customer_id, address_id, status, payment_method, is_whatsapp, notes)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING created_at, updated_at`

	err := conn(r.db, q).QueryRowxContext(ctx, query,
		o.ID, o.StoreID, o.CustomerID, o.AddressID, o.Status, o.PaymentMethod, o.IsWhatsApp, o.Notes,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	return mapError(err, "order "+o.ID)
}

// CreateItems inserts the lines of an order.
func (r *OrderRepository) CreateItems(ctx context.Context, q database.Queryer, items []models.OrderItem) error {
	const query = `INSERT INTO order_items (id, order_id, product_id, variant_id, quantity, price)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING created_at`

	c := conn(r.db, q)
	for i := range items {
		it := &items[i]
		err := c.QueryRowxContext(ctx, query,
			it.ID, it.OrderID, it.ProductID, it.VariantID, it.Quantity, it.Price,
		).Scan(&it.CreatedAt)
		if err != nil {
			return mapError(err, "order item")
		}
	}
	return nil
}

// GetByID returns an order header. With forUpdate the row stays locked until
// the surrounding transaction ends.
func (r *OrderRepository) GetByID(ctx context.Context, q database.Queryer, id string, forUpdate bool) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var o models.Order
	if err := sqlx.GetContext(ctx, conn(r.db, q), &o, query, id); err != nil {
		return nil, mapError(err, "order "+id)
	}
	return &o, nil
}

// GetItems returns the items of an order in insertion order.
func (r *OrderRepository) GetItems(ctx context.Context, q database.Queryer, orderID string) ([]models.OrderItem, error) {
	query := `SELECT ` + orderItemColumns + ` FROM order_items WHERE order_id = $1 ORDER BY created_at, id`

	items := []models.OrderItem{}
	if err := sqlx.SelectContext(ctx, conn(r.db, q), &items, query, orderID); err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateStatus overwrites the order status and refreshes updated_at on o.
func (r *OrderRepository) UpdateStatus(ctx context.Context, q database.Queryer, o *models.Order, status models.OrderStatus) error {
	const query = `UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING updated_at`

	if err := conn(r.db, q).QueryRowxContext(ctx, query, o.ID, status).Scan(&o.UpdatedAt); err != nil {
		return mapError(err, "order "+o.ID)
	}
	o.Status = status
	return nil
}

// Delete removes an order; its items go with it.
func (r *OrderRepository) Delete(ctx context.Context, q database.Queryer, id string) error {
	res, err := conn(r.db, q).ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "order "+id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return utils.NotFoundf("order %s not found", id)
	}
	return nil
}
