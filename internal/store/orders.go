package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/safar/framely/internal/database"
	"github.com/safar/framely/internal/models"
	"github.com/shopspring/decimal"
)

type CreateOrderRequest struct {
	CustomerName string
	Email        string
	MobileNumber string
	Address      string
	Items        []OrderItemRequest
}

type OrderItemRequest struct {
	ProductID int64
	Quantity  int
}

// MissingProductError names the product an order line referenced that does
// not exist. It matches database.ErrProductNotFound.
type MissingProductError struct {
	ProductID int64
}

func (e *MissingProductError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

func (e *MissingProductError) Unwrap() error {
	return database.ErrProductNotFound
}

type ListOrdersParams struct {
	PageRequest
	// Status, when set, is matched case-insensitively.
	Status string
	SortBy string
	Desc   bool
}

var orderSortColumns = map[string]string{
	"date":   "order_date",
	"amount": "total_amount",
	"status": "status",
}

const orderColumns = `id, order_date, user_id, customer_name, email, mobile_number, address, total_amount, status`

func scanOrder(row rowScanner, order *models.Order) error {
	return row.Scan(
		&order.ID,
		&order.OrderDate,
		&order.UserID,
		&order.CustomerName,
		&order.Email,
		&order.MobileNumber,
		&order.Address,
		&order.TotalAmount,
		&order.Status,
	)
}

// CreateOrder prices every line from the catalog at the time of the call and
// persists the order with its lines in one transaction. Unit prices are copied
// onto the lines; later catalog changes never affect a placed order.
func (s *Store) CreateOrder(ctx context.Context, userID string, req CreateOrderRequest) (*models.Order, error) {
	var order *models.Order

	err := database.WithRetry(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		items := make([]models.OrderItem, 0, len(req.Items))

		for _, item := range req.Items {
			var price decimal.Decimal
			var name string

			err := tx.QueryRowContext(ctx,
				`SELECT price, name FROM products WHERE id = $1 FOR SHARE`,
				item.ProductID).Scan(&price, &name)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return &MissingProductError{ProductID: item.ProductID}
				}
				return fmt.Errorf("read price for product %d: %w", item.ProductID, err)
			}

			items = append(items, models.NewOrderItem(item.ProductID, name, item.Quantity, price))
		}

		total := models.SumItems(items)
		if !models.AmountFits(total) {
			return fmt.Errorf("order total %s: %w", total.StringFixed(2), database.ErrConstraint)
		}

		created := &models.Order{}
		err := scanOrder(tx.QueryRowContext(ctx,
			`INSERT INTO orders (order_date, user_id, customer_name, email, mobile_number, address, total_amount, status)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING `+orderColumns,
			time.Now().UTC(), userID, req.CustomerName, req.Email, req.MobileNumber, req.Address,
			total, models.OrderStatusPending), created)
		if err != nil {
			if database.IsConstraintViolation(err) {
				return fmt.Errorf("create order: %w", database.ErrConstraint)
			}
			return fmt.Errorf("create order: %w", err)
		}

		for i := range items {
			items[i].OrderID = created.ID
			err := tx.QueryRowContext(ctx,
				`INSERT INTO order_items (order_id, product_id, quantity, unit_price, subtotal)
				 VALUES ($1, $2, $3, $4, $5)
				 RETURNING id`,
				created.ID, items[i].ProductID, items[i].Quantity, items[i].UnitPrice, items[i].Subtotal).
				Scan(&items[i].ID)
			if err != nil {
				if database.IsConstraintViolation(err) {
					return fmt.Errorf("create order item: %w", database.ErrConstraint)
				}
				return fmt.Errorf("create order item: %w", err)
			}
		}

		created.Items = items
		order = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

func (s *Store) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	order := &models.Order{}

	err := scanOrder(s.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id), order)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	if err := attachItems(ctx, s.db, []*models.Order{order}); err != nil {
		return nil, err
	}

	return order, nil
}

// ListOrders returns one page of orders, newest first unless params say
// otherwise.
func (s *Store) ListOrders(ctx context.Context, params ListOrdersParams) (*OffsetPage[models.Order], error) {
	where := ""
	var args []any
	if params.Status != "" {
		where = "WHERE LOWER(status) = LOWER($1)"
		args = append(args, params.Status)
	}

	countQuery := `SELECT COUNT(*) FROM orders ` + where
	pageQuery := fmt.Sprintf(`
		SELECT %s
		FROM orders
		%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`,
		orderColumns, where,
		sortClause(orderSortColumns, params.SortBy, "date", "id", params.Desc),
		len(args)+1, len(args)+2)
	pageArgs := append(append([]any{}, args...), params.PageSize, params.Offset())

	var (
		total  int64
		orders []models.Order
	)
	// count and page share one snapshot so totals agree with the data
	err := database.WithTransaction(ctx, s.db, database.TxOptions{
		IsolationLevel: sql.LevelRepeatableRead,
		ReadOnly:       true,
	}, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
			return fmt.Errorf("count orders: %w", err)
		}
		var err error
		orders, err = queryOrders(ctx, tx, pageQuery, pageArgs...)
		if err != nil {
			return fmt.Errorf("list orders: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return newOffsetPage(orders, total, params.PageRequest), nil
}

// ListOrdersByUser returns every order owned by userID, newest first.
func (s *Store) ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	orders, err := queryOrders(ctx, s.db,
		`SELECT `+orderColumns+`
		 FROM orders
		 WHERE user_id = $1
		 ORDER BY order_date DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders by user: %w", err)
	}
	return orders, nil
}

// UpdateOrderStatus overwrites the status without consulting the current one.
func (s *Store) UpdateOrderStatus(ctx context.Context, id int64, status models.OrderStatus) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE orders SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return expectOneRow(result, database.ErrOrderNotFound)
}

// CancelPendingOrder moves a Pending order to Cancelled. The status check and
// the write are a single statement, so a concurrent transition cannot be
// overwritten.
func (s *Store) CancelPendingOrder(ctx context.Context, id int64) error {
	var cancelled, exists bool

	err := s.db.QueryRowContext(ctx,
		`WITH updated AS (
		     UPDATE orders SET status = $2
		     WHERE id = $1 AND status = $3
		     RETURNING id
		 )
		 SELECT EXISTS (SELECT 1 FROM updated),
		        EXISTS (SELECT 1 FROM orders WHERE id = $1)`,
		id, models.OrderStatusCancelled, models.OrderStatusPending).Scan(&cancelled, &exists)
	if err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}

	switch {
	case !exists:
		return database.ErrOrderNotFound
	case !cancelled:
		return database.ErrOrderNotPending
	}
	return nil
}

func (s *Store) DeleteOrder(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return expectOneRow(result, database.ErrOrderNotFound)
}

func queryOrders(ctx context.Context, q querier, query string, args ...any) ([]models.Order, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var order models.Order
		if err := scanOrder(rows, &order); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	ptrs := make([]*models.Order, len(orders))
	for i := range orders {
		ptrs[i] = &orders[i]
	}
	if err := attachItems(ctx, q, ptrs); err != nil {
		return nil, err
	}

	return orders, nil
}

// attachItems loads the lines of all given orders in one round trip.
func attachItems(ctx context.Context, q querier, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	byID := make(map[int64]*models.Order, len(orders))
	for i, order := range orders {
		ids[i] = order.ID
		order.Items = []models.OrderItem{}
		byID[order.ID] = order
	}

	rows, err := q.QueryContext(ctx,
		`SELECT oi.id, oi.order_id, oi.product_id, p.name, oi.quantity, oi.unit_price, oi.subtotal
		 FROM order_items oi
		 JOIN products p ON p.id = oi.product_id
		 WHERE oi.order_id = ANY($1)
		 ORDER BY oi.order_id, oi.id`,
		pq.Array(ids))
	if err != nil {
		return fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.ProductName,
			&item.Quantity,
			&item.UnitPrice,
			&item.Subtotal,
		)
		if err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if order, ok := byID[item.OrderID]; ok {
			order.Items = append(order.Items, item)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}

	return nil
}
