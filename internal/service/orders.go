package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/safar/framely/internal/auth"
	"github.com/safar/framely/internal/database"
	"github.com/safar/framely/internal/logging"
	"github.com/safar/framely/internal/metrics"
	"github.com/safar/framely/internal/models"
	"github.com/safar/framely/internal/store"
	"go.uber.org/zap"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// OrderRepository is the persistence the order lifecycle needs.
type OrderRepository interface {
	CreateOrder(ctx context.Context, userID string, req store.CreateOrderRequest) (*models.Order, error)
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	ListOrders(ctx context.Context, params store.ListOrdersParams) (*store.OffsetPage[models.Order], error)
	ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status models.OrderStatus) error
	CancelPendingOrder(ctx context.Context, id int64) error
	DeleteOrder(ctx context.Context, id int64) error
}

type CreateOrderInput struct {
	CustomerName string
	Email        string
	MobileNumber string
	Address      string
	Items        []OrderLineInput
}

type OrderLineInput struct {
	ProductID int64
	Quantity  int
}

// ListOrdersQuery is the admin listing request. Zero values select the
// defaults: first page, DefaultPageSize, newest first.
type ListOrdersQuery struct {
	Page      int
	PageSize  int
	Status    string
	SortBy    string
	SortOrder string
}

// CancelOutcome tells the caller what CancelOrDelete did.
type CancelOutcome int

const (
	OrderCancelled CancelOutcome = iota + 1
	OrderDeleted
)

type OrderService struct {
	orders OrderRepository
}

func NewOrderService(orders OrderRepository) *OrderService {
	return &OrderService{orders: orders}
}

// Create prices the cart against the catalog and persists it as a Pending
// order owned by the caller.
func (s *OrderService) Create(ctx context.Context, caller *auth.Caller, input CreateOrderInput) (*models.Order, error) {
	if err := Authorize(caller, RequireAuthenticated()); err != nil {
		return nil, err
	}

	var v violations
	if len(input.Items) == 0 {
		v.add("order must contain at least one item")
	}
	for i, item := range input.Items {
		if item.ProductID <= 0 {
			v.add("items[%d]: product id must be positive", i)
		}
		if item.Quantity <= 0 {
			v.add("items[%d]: quantity must be a positive integer", i)
		} else if item.Quantity > math.MaxInt32 {
			v.add("items[%d]: quantity must not exceed %d", i, math.MaxInt32)
		}
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	req := store.CreateOrderRequest{
		CustomerName: strings.TrimSpace(input.CustomerName),
		Email:        strings.TrimSpace(input.Email),
		MobileNumber: strings.TrimSpace(input.MobileNumber),
		Address:      strings.TrimSpace(input.Address),
		Items:        make([]store.OrderItemRequest, len(input.Items)),
	}
	for i, item := range input.Items {
		req.Items[i] = store.OrderItemRequest{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	order, err := s.orders.CreateOrder(ctx, caller.UserID, req)
	if err != nil {
		var missing *store.MissingProductError
		if errors.As(err, &missing) {
			return nil, newError(ErrNotFound, "product %d not found", missing.ProductID)
		}
		if errors.Is(err, database.ErrConstraint) {
			return nil, invalid("order amounts exceed the maximum storable value")
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	metrics.OrdersCreated.Inc()
	metrics.OrderAmount.Observe(order.TotalAmount.InexactFloat64())
	logging.FromContext(ctx).Info("order created",
		zap.Int64("order_id", order.ID),
		zap.String("user_id", order.UserID),
		zap.String("total", order.TotalAmount.StringFixed(2)),
		zap.Int("lines", len(order.Items)),
	)

	return order, nil
}

// Get returns the order if the caller owns it or is an admin.
func (s *OrderService) Get(ctx context.Context, caller *auth.Caller, id int64) (*models.Order, error) {
	if err := Authorize(caller, RequireAuthenticated()); err != nil {
		return nil, err
	}

	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := Authorize(caller, RequireOwnerOrAdmin(order.UserID)); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderService) List(ctx context.Context, caller *auth.Caller, query ListOrdersQuery) (*store.OffsetPage[models.Order], error) {
	if err := Authorize(caller, RequireAdmin()); err != nil {
		return nil, err
	}

	params, err := query.params()
	if err != nil {
		return nil, err
	}

	page, err := s.orders.ListOrders(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return page, nil
}

// ListMine returns the caller's own orders, newest first.
func (s *OrderService) ListMine(ctx context.Context, caller *auth.Caller) ([]models.Order, error) {
	if err := Authorize(caller, RequireAuthenticated()); err != nil {
		return nil, err
	}
	return s.listByUser(ctx, caller.UserID)
}

func (s *OrderService) ListByUser(ctx context.Context, caller *auth.Caller, userID string) ([]models.Order, error) {
	if err := Authorize(caller, RequireAdmin()); err != nil {
		return nil, err
	}
	return s.listByUser(ctx, userID)
}

func (s *OrderService) listByUser(ctx context.Context, userID string) ([]models.Order, error) {
	orders, err := s.orders.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders by user: %w", err)
	}
	return orders, nil
}

// UpdateStatus overwrites the status of an order. Any of the four statuses
// may follow any other on this path; only the spelling is checked.
func (s *OrderService) UpdateStatus(ctx context.Context, caller *auth.Caller, id int64, raw string) error {
	if err := Authorize(caller, RequireAdmin()); err != nil {
		return err
	}

	status, ok := models.ParseOrderStatus(raw)
	if !ok {
		return invalid(fmt.Sprintf("status %q is not one of %s", raw, statusList()))
	}

	if err := s.orders.UpdateOrderStatus(ctx, id, status); err != nil {
		if errors.Is(err, database.ErrOrderNotFound) {
			return orderNotFound(id)
		}
		return fmt.Errorf("update order status: %w", err)
	}

	metrics.OrderStatusChanges.WithLabelValues(string(status)).Inc()
	logging.FromContext(ctx).Info("order status updated",
		zap.Int64("order_id", id),
		zap.String("status", string(status)),
		zap.String("admin_id", caller.UserID),
	)
	return nil
}

// CancelOrDelete permanently deletes the order when the caller is an admin.
// An owner may only cancel, and only while the order is Pending.
func (s *OrderService) CancelOrDelete(ctx context.Context, caller *auth.Caller, id int64) (CancelOutcome, error) {
	if err := Authorize(caller, RequireAuthenticated()); err != nil {
		return 0, err
	}

	order, err := s.load(ctx, id)
	if err != nil {
		return 0, err
	}

	if err := Authorize(caller, RequireOwnerOrAdmin(order.UserID)); err != nil {
		return 0, err
	}

	logger := logging.FromContext(ctx).With(zap.Int64("order_id", id), zap.String("caller_id", caller.UserID))

	if caller.IsAdmin() {
		if err := s.orders.DeleteOrder(ctx, id); err != nil {
			if errors.Is(err, database.ErrOrderNotFound) {
				return 0, orderNotFound(id)
			}
			return 0, fmt.Errorf("delete order: %w", err)
		}
		logger.Info("order deleted")
		return OrderDeleted, nil
	}

	if order.Status != models.OrderStatusPending {
		return 0, newError(ErrInvalidState, "cannot cancel a non-pending order")
	}

	if err := s.orders.CancelPendingOrder(ctx, id); err != nil {
		switch {
		case errors.Is(err, database.ErrOrderNotPending):
			return 0, newError(ErrInvalidState, "cannot cancel a non-pending order")
		case errors.Is(err, database.ErrOrderNotFound):
			return 0, orderNotFound(id)
		}
		return 0, fmt.Errorf("cancel order: %w", err)
	}

	metrics.OrderStatusChanges.WithLabelValues(string(models.OrderStatusCancelled)).Inc()
	logger.Info("order cancelled by owner")
	return OrderCancelled, nil
}

func (s *OrderService) load(ctx context.Context, id int64) (*models.Order, error) {
	order, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrOrderNotFound) {
			return nil, orderNotFound(id)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

func (q ListOrdersQuery) params() (store.ListOrdersParams, error) {
	params := store.ListOrdersParams{
		PageRequest: store.PageRequest{Page: q.Page, PageSize: q.PageSize},
		SortBy:      strings.ToLower(strings.TrimSpace(q.SortBy)),
		Desc:        true,
	}
	if params.Page == 0 {
		params.Page = 1
	}
	if params.PageSize == 0 {
		params.PageSize = DefaultPageSize
	}
	if params.SortBy == "" {
		params.SortBy = "date"
	}

	var v violations
	if params.Page < 1 {
		v.add("page must be at least 1")
	}
	if params.PageSize < 1 || params.PageSize > MaxPageSize {
		v.add("pageSize must be between 1 and %d", MaxPageSize)
	}
	switch params.SortBy {
	case "date", "amount", "status":
	default:
		v.add("sortBy must be one of date, amount, status")
	}
	switch strings.ToLower(strings.TrimSpace(q.SortOrder)) {
	case "", "desc":
	case "asc":
		params.Desc = false
	default:
		v.add("sortOrder must be asc or desc")
	}
	if q.Status != "" {
		status, ok := models.MatchOrderStatus(q.Status)
		if !ok {
			v.add("status %q is not one of %s", q.Status, statusList())
		}
		params.Status = string(status)
	}

	if err := v.err(); err != nil {
		return store.ListOrdersParams{}, err
	}
	return params, nil
}

func orderNotFound(id int64) error {
	return newError(ErrNotFound, "order %d not found", id)
}

func statusList() string {
	statuses := models.OrderStatuses()
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
