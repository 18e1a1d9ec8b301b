package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/safar/framely/internal/auth"
	"github.com/safar/framely/internal/database"
	"github.com/safar/framely/internal/models"
	"github.com/safar/framely/internal/store"
	"github.com/shopspring/decimal"
)

// memStore is an in-memory stand-in for store.Store.
type memStore struct {
	mu         sync.Mutex
	nextID     int64
	categories map[int64]models.Category
	products   map[int64]models.Product
	orders     map[int64]models.Order
	users      map[string]models.User
	clock      time.Time
}

func newMemStore() *memStore {
	return &memStore{
		categories: map[int64]models.Category{},
		products:   map[int64]models.Product{},
		orders:     map[int64]models.Order{},
		users:      map[string]models.User{},
		clock:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) addProduct(name string, price string) models.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := models.Product{ID: m.id(), Name: name, Price: decimal.RequireFromString(price)}
	m.products[p.ID] = p
	return p
}

func (m *memStore) addOrder(userID string, status models.OrderStatus) models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = m.clock.Add(time.Minute)
	o := models.Order{ID: m.id(), UserID: userID, Status: status, OrderDate: m.clock, Items: []models.OrderItem{}}
	m.orders[o.ID] = o
	return o
}

func (m *memStore) status(id int64) models.OrderStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[id].Status
}

func (m *memStore) CreateOrder(_ context.Context, userID string, req store.CreateOrderRequest) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := make([]models.OrderItem, 0, len(req.Items))
	for _, line := range req.Items {
		p, ok := m.products[line.ProductID]
		if !ok {
			return nil, &store.MissingProductError{ProductID: line.ProductID}
		}
		items = append(items, models.NewOrderItem(p.ID, p.Name, line.Quantity, p.Price))
	}

	total := models.SumItems(items)
	if !models.AmountFits(total) {
		return nil, fmt.Errorf("order total %s: %w", total.StringFixed(2), database.ErrConstraint)
	}

	m.clock = m.clock.Add(time.Minute)
	order := models.Order{
		ID:           m.id(),
		OrderDate:    m.clock,
		UserID:       userID,
		CustomerName: req.CustomerName,
		Email:        req.Email,
		TotalAmount:  total,
		Status:       models.OrderStatusPending,
		Items:        items,
	}
	m.orders[order.ID] = order
	return &order, nil
}

func (m *memStore) GetOrder(_ context.Context, id int64) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, database.ErrOrderNotFound
	}
	return &o, nil
}

func (m *memStore) ListOrders(_ context.Context, params store.ListOrdersParams) (*store.OffsetPage[models.Order], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var all []models.Order
	for _, o := range m.orders {
		if params.Status == "" || strings.EqualFold(string(o.Status), params.Status) {
			all = append(all, o)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		less := all[i].OrderDate.Before(all[j].OrderDate)
		if params.Desc {
			return !less
		}
		return less
	})

	start := params.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + params.PageSize
	if end > len(all) {
		end = len(all)
	}

	return &store.OffsetPage[models.Order]{
		TotalItems:  int64(len(all)),
		TotalPages:  store.TotalPages(int64(len(all)), params.PageSize),
		CurrentPage: params.Page,
		PageSize:    params.PageSize,
		Data:        append([]models.Order{}, all[start:end]...),
	}, nil
}

func (m *memStore) ListOrdersByUser(_ context.Context, userID string) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Order{}
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderDate.After(out[j].OrderDate) })
	return out, nil
}

func (m *memStore) UpdateOrderStatus(_ context.Context, id int64, status models.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return database.ErrOrderNotFound
	}
	o.Status = status
	m.orders[id] = o
	return nil
}

func (m *memStore) CancelPendingOrder(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return database.ErrOrderNotFound
	}
	if o.Status != models.OrderStatusPending {
		return database.ErrOrderNotPending
	}
	o.Status = models.OrderStatusCancelled
	m.orders[id] = o
	return nil
}

func (m *memStore) DeleteOrder(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return database.ErrOrderNotFound
	}
	delete(m.orders, id)
	return nil
}

func (m *memStore) CreateCategory(_ context.Context, name, description string) (*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := models.Category{ID: m.id(), Name: name, Description: description}
	m.categories[c.ID] = c
	return &c, nil
}

func (m *memStore) GetCategory(_ context.Context, id int64) (*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok {
		return nil, database.ErrCategoryNotFound
	}
	return &c, nil
}

func (m *memStore) CategoryExists(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.categories[id]
	return ok, nil
}

func (m *memStore) UpdateCategory(_ context.Context, category *models.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[category.ID]; !ok {
		return database.ErrCategoryNotFound
	}
	m.categories[category.ID] = *category
	return nil
}

func (m *memStore) DeleteCategory(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[id]; !ok {
		return database.ErrCategoryNotFound
	}
	for _, p := range m.products {
		if p.CategoryID == id && m.referenced(p.ID) {
			return database.ErrReferenced
		}
	}
	for pid, p := range m.products {
		if p.CategoryID == id {
			delete(m.products, pid)
		}
	}
	delete(m.categories, id)
	return nil
}

func (m *memStore) ListCategories(_ context.Context, params store.ListCategoriesParams) (*store.OffsetPage[models.Category], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Category{}
	for _, c := range m.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return &store.OffsetPage[models.Category]{
		TotalItems:  int64(len(out)),
		TotalPages:  store.TotalPages(int64(len(out)), params.PageSize),
		CurrentPage: params.Page,
		PageSize:    params.PageSize,
		Data:        out,
	}, nil
}

func (m *memStore) CreateProduct(_ context.Context, product *models.Product) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[product.CategoryID]; !ok {
		return nil, database.ErrCategoryNotFound
	}
	p := *product
	p.ID = m.id()
	p.Price = p.Price.Round(2)
	m.products[p.ID] = p
	return &p, nil
}

func (m *memStore) GetProduct(_ context.Context, id int64) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, database.ErrProductNotFound
	}
	return &p, nil
}

func (m *memStore) UpdateProduct(_ context.Context, product *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[product.ID]; !ok {
		return database.ErrProductNotFound
	}
	m.products[product.ID] = *product
	return nil
}

func (m *memStore) DeleteProduct(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return database.ErrProductNotFound
	}
	if m.referenced(id) {
		return database.ErrReferenced
	}
	delete(m.products, id)
	return nil
}

func (m *memStore) ListProducts(_ context.Context, params store.ListProductsParams) (*store.OffsetPage[models.Product], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Product{}
	for _, p := range m.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return &store.OffsetPage[models.Product]{
		TotalItems:  int64(len(out)),
		TotalPages:  store.TotalPages(int64(len(out)), params.PageSize),
		CurrentPage: params.Page,
		PageSize:    params.PageSize,
		Data:        out,
	}, nil
}

func (m *memStore) ListProductsByCategoryName(context.Context, string) ([]models.Product, error) {
	return []models.Product{}, nil
}

func (m *memStore) ListProductsByBrand(context.Context, string) ([]models.Product, error) {
	return []models.Product{}, nil
}

func (m *memStore) SearchProducts(context.Context, string) ([]models.Product, error) {
	return []models.Product{}, nil
}

func (m *memStore) CreateUser(_ context.Context, user *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return nil, database.ErrDuplicateEmail
		}
	}
	u := *user
	u.ID = uuid.NewString()
	u.CreatedAt = m.clock
	m.users[u.ID] = u
	return &u, nil
}

func (m *memStore) GetUser(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, database.ErrUserNotFound
	}
	return &u, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			return &u, nil
		}
	}
	return nil, database.ErrUserNotFound
}

func (m *memStore) UpdatePasswordHash(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return database.ErrUserNotFound
	}
	u.PasswordHash = hash
	m.users[id] = u
	return nil
}

func (m *memStore) referenced(productID int64) bool {
	for _, o := range m.orders {
		for _, item := range o.Items {
			if item.ProductID == productID {
				return true
			}
		}
	}
	return false
}

var (
	_ OrderRepository   = (*memStore)(nil)
	_ CatalogRepository = (*memStore)(nil)
	_ UserRepository    = (*memStore)(nil)
)

func admin() *auth.Caller {
	return &auth.Caller{UserID: "admin-1", Role: models.RoleAdmin}
}

func user(id string) *auth.Caller {
	return &auth.Caller{UserID: id, Role: models.RoleUser}
}
