package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/safar/framely/internal/auth"
	"github.com/safar/framely/internal/blob"
	"github.com/safar/framely/internal/httpx"
	"github.com/safar/framely/internal/metrics"
	"github.com/safar/framely/internal/models"
	"github.com/safar/framely/internal/service"
	"github.com/safar/framely/internal/store"
	"go.uber.org/zap"
)

const (
	apiPrefix      = "/api/v1"
	requestTimeout = 60 * time.Second
)

type AccountService interface {
	Register(ctx context.Context, input service.RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (*service.LoginResult, error)
	ChangeAdminPassword(ctx context.Context, caller *auth.Caller, current, next string) error
}

type CatalogService interface {
	ListCategories(ctx context.Context, query service.ListQuery) (*store.OffsetPage[models.Category], error)
	GetCategory(ctx context.Context, id int64) (*models.Category, error)
	CreateCategory(ctx context.Context, caller *auth.Caller, input service.CategoryInput) (*models.Category, error)
	UpdateCategory(ctx context.Context, caller *auth.Caller, id int64, input service.CategoryInput) error
	DeleteCategory(ctx context.Context, caller *auth.Caller, id int64) error
	ListProducts(ctx context.Context, query service.ListQuery) (*store.OffsetPage[models.Product], error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	CreateProduct(ctx context.Context, caller *auth.Caller, input service.ProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, caller *auth.Caller, id int64, input service.ProductInput) error
	DeleteProduct(ctx context.Context, caller *auth.Caller, id int64) error
	ProductsByCategory(ctx context.Context, name string) ([]models.Product, error)
	ProductsByBrand(ctx context.Context, brand string) ([]models.Product, error)
	SearchProducts(ctx context.Context, term string) ([]models.Product, error)
}

type OrderService interface {
	Create(ctx context.Context, caller *auth.Caller, input service.CreateOrderInput) (*models.Order, error)
	Get(ctx context.Context, caller *auth.Caller, id int64) (*models.Order, error)
	List(ctx context.Context, caller *auth.Caller, query service.ListOrdersQuery) (*store.OffsetPage[models.Order], error)
	ListMine(ctx context.Context, caller *auth.Caller) ([]models.Order, error)
	ListByUser(ctx context.Context, caller *auth.Caller, userID string) ([]models.Order, error)
	UpdateStatus(ctx context.Context, caller *auth.Caller, id int64, raw string) error
	CancelOrDelete(ctx context.Context, caller *auth.Caller, id int64) (service.CancelOutcome, error)
}

// ImageStore is the product image bucket. A nil store disables /blob.
type ImageStore interface {
	Upload(ctx context.Context, r io.Reader, name, contentType string) (string, error)
	Delete(ctx context.Context, name string) error
	SignedURLs(name string) (blob.SignedURLs, error)
}

type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Deps wires the services behind the router.
type Deps struct {
	Logger   *zap.Logger
	Verifier auth.Verifier
	Accounts AccountService
	Catalog  CatalogService
	Orders   OrderService
	Images   ImageStore
	Health   HealthChecker
}

type handlers struct {
	accounts AccountService
	catalog  CatalogService
	orders   OrderService
	images   ImageStore
	health   HealthChecker
}

// NewRouter builds the HTTP surface: /healthz and /metrics at the root and
// the storefront API under /api/v1.
func NewRouter(deps Deps) chi.Router {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handlers{
		accounts: deps.Accounts,
		catalog:  deps.Catalog,
		orders:   deps.Orders,
		images:   deps.Images,
		health:   deps.Health,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(recoverer)
	r.Use(metrics.Middleware)
	r.Use(middleware.Timeout(requestTimeout))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("route_not_found", fmt.Sprintf("no route for %s", req.URL.Path), http.StatusNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("method_not_allowed", fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path), http.StatusMethodNotAllowed))
	})

	r.Get("/healthz", h.healthz)
	r.Handle("/metrics", metrics.Handler())

	r.Route(apiPrefix, func(api chi.Router) {
		if deps.Verifier != nil {
			api.Use(auth.Authenticate(deps.Verifier))
		}

		api.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.register)
			r.Post("/login", h.login)
		})
		api.With(auth.RequireAuth).Post("/password-reset/admin", h.resetAdminPassword)

		api.Route("/categories", func(r chi.Router) {
			r.Get("/", h.listCategories)
			r.Post("/", h.createCategory)
			r.Get("/{id}", h.getCategory)
			r.Put("/{id}", h.updateCategory)
			r.Delete("/{id}", h.deleteCategory)
		})

		api.Route("/products", func(r chi.Router) {
			r.Get("/", h.listProducts)
			r.Post("/", h.createProduct)
			r.Get("/category", h.productsByCategory)
			r.Get("/brand", h.productsByBrand)
			r.Get("/search", h.searchProducts)
			r.Get("/{id}", h.getProduct)
			r.Put("/{id}", h.updateProduct)
			r.Delete("/{id}", h.deleteProduct)
		})

		api.Route("/orders", func(r chi.Router) {
			r.Use(auth.RequireAuth)
			r.Get("/", h.listOrders)
			r.Post("/", h.createOrder)
			r.Get("/my", h.myOrders)
			r.Get("/user/{userId}", h.userOrders)
			r.Get("/{id}", h.getOrder)
			r.Put("/{id}/status", h.updateOrderStatus)
			r.Delete("/{id}", h.cancelOrder)
		})

		api.Route("/blob", func(r chi.Router) {
			r.Use(requireAdmin)
			r.Get("/sas-token", h.signedURL)
			r.Post("/upload", h.uploadImage)
			r.Delete("/{fileName}", h.deleteImage)
		})
	})

	return r
}

func caller(r *http.Request) *auth.Caller {
	return auth.CallerFromContext(r.Context())
}

func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.Ping(r.Context()); err != nil {
			httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
