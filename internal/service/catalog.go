package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/safar/framely/internal/auth"
	"github.com/safar/framely/internal/database"
	"github.com/safar/framely/internal/logging"
	"github.com/safar/framely/internal/models"
	"github.com/safar/framely/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	maxCategoryName        = 100
	maxCategoryDescription = 250
)

type CatalogRepository interface {
	CreateCategory(ctx context.Context, name, description string) (*models.Category, error)
	GetCategory(ctx context.Context, id int64) (*models.Category, error)
	CategoryExists(ctx context.Context, id int64) (bool, error)
	UpdateCategory(ctx context.Context, category *models.Category) error
	DeleteCategory(ctx context.Context, id int64) error
	ListCategories(ctx context.Context, params store.ListCategoriesParams) (*store.OffsetPage[models.Category], error)

	CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	UpdateProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, id int64) error
	ListProducts(ctx context.Context, params store.ListProductsParams) (*store.OffsetPage[models.Product], error)
	ListProductsByCategoryName(ctx context.Context, name string) ([]models.Product, error)
	ListProductsByBrand(ctx context.Context, brand string) ([]models.Product, error)
	SearchProducts(ctx context.Context, term string) ([]models.Product, error)
}

// CategoryInput is the writable part of a category. ID must match the path
// on update.
type CategoryInput struct {
	ID          int64
	Name        string
	Description string
}

type ProductInput struct {
	ID          int64
	Name        string
	Brand       string
	Description string
	Price       decimal.Decimal
	ImageURL    string
	CategoryID  int64
}

// ListQuery is a paginated, sorted catalog listing request.
type ListQuery struct {
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

type CatalogService struct {
	catalog CatalogRepository
}

func NewCatalogService(catalog CatalogRepository) *CatalogService {
	return &CatalogService{catalog: catalog}
}

func (s *CatalogService) ListCategories(ctx context.Context, query ListQuery) (*store.OffsetPage[models.Category], error) {
	page, sortBy, desc, err := query.resolve("name", "name", "id")
	if err != nil {
		return nil, err
	}

	result, err := s.catalog.ListCategories(ctx, store.ListCategoriesParams{PageRequest: page, SortBy: sortBy, Desc: desc})
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return result, nil
}

func (s *CatalogService) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	category, err := s.catalog.GetCategory(ctx, id)
	if err != nil {
		return nil, mapCatalogError(err, id)
	}
	return category, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, caller *auth.Caller, input CategoryInput) (*models.Category, error) {
	if err := Authorize(caller, RequireAdmin()); err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	category, err := s.catalog.CreateCategory(ctx, strings.TrimSpace(input.Name), strings.TrimSpace(input.Description))
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	logging.FromContext(ctx).Info("category created", zap.Int64("category_id", category.ID))
	return category, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, caller *auth.Caller, id int64, input CategoryInput) error {
	if err := Authorize(caller, RequireAdmin()); err != nil {
		return err
	}
	if input.ID != id {
		return invalid("id in path and body must match")
	}
	if err := input.validate(); err != nil {
		return err
	}

	err := s.catalog.UpdateCategory(ctx, &models.Category{
		ID:          id,
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
	})
	if err != nil {
		return mapCatalogError(err, id)
	}
	return nil
}

// DeleteCategory removes the category together with its products.
func (s *CatalogService) DeleteCategory(ctx context.Context, caller *auth.Caller, id int64) error {
	if err := Authorize(caller, RequireAdmin()); err != nil {
		return err
	}
	if err := s.catalog.DeleteCategory(ctx, id); err != nil {
		return mapCatalogError(err, id)
	}

	logging.FromContext(ctx).Info("category deleted", zap.Int64("category_id", id))
	return nil
}

func (s *CatalogService) ListProducts(ctx context.Context, query ListQuery) (*store.OffsetPage[models.Product], error) {
	page, sortBy, desc, err := query.resolve("name", "name", "price", "brand")
	if err != nil {
		return nil, err
	}

	result, err := s.catalog.ListProducts(ctx, store.ListProductsParams{PageRequest: page, SortBy: sortBy, Desc: desc})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return result, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	product, err := s.catalog.GetProduct(ctx, id)
	if err != nil {
		return nil, mapCatalogError(err, id)
	}
	return product, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, caller *auth.Caller, input ProductInput) (*models.Product, error) {
	if err := Authorize(caller, RequireAdmin()); err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	product, err := s.catalog.CreateProduct(ctx, input.product(0))
	if err != nil {
		if errors.Is(err, database.ErrCategoryNotFound) {
			return nil, invalid(fmt.Sprintf("category %d does not exist", input.CategoryID))
		}
		if errors.Is(err, database.ErrConstraint) {
			return nil, mapCatalogError(err, 0)
		}
		return nil, fmt.Errorf("create product: %w", err)
	}

	logging.FromContext(ctx).Info("product created",
		zap.Int64("product_id", product.ID),
		zap.String("price", product.Price.StringFixed(2)),
	)
	return product, nil
}

// UpdateProduct replaces every writable field. Existing orders keep the
// prices they were placed at.
func (s *CatalogService) UpdateProduct(ctx context.Context, caller *auth.Caller, id int64, input ProductInput) error {
	if err := Authorize(caller, RequireAdmin()); err != nil {
		return err
	}
	if input.ID != id {
		return invalid("id in path and body must match")
	}
	if err := input.validate(); err != nil {
		return err
	}

	if _, err := s.catalog.GetProduct(ctx, id); err != nil {
		return mapCatalogError(err, id)
	}

	exists, err := s.catalog.CategoryExists(ctx, input.CategoryID)
	if err != nil {
		return fmt.Errorf("check category: %w", err)
	}
	if !exists {
		return invalid(fmt.Sprintf("category %d does not exist", input.CategoryID))
	}

	if err := s.catalog.UpdateProduct(ctx, input.product(id)); err != nil {
		if errors.Is(err, database.ErrCategoryNotFound) {
			return invalid(fmt.Sprintf("category %d does not exist", input.CategoryID))
		}
		return mapCatalogError(err, id)
	}
	return nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, caller *auth.Caller, id int64) error {
	if err := Authorize(caller, RequireAdmin()); err != nil {
		return err
	}
	if err := s.catalog.DeleteProduct(ctx, id); err != nil {
		return mapCatalogError(err, id)
	}

	logging.FromContext(ctx).Info("product deleted", zap.Int64("product_id", id))
	return nil
}

func (s *CatalogService) ProductsByCategory(ctx context.Context, name string) ([]models.Product, error) {
	if strings.TrimSpace(name) == "" {
		return nil, invalid("category name is required")
	}
	products, err := s.catalog.ListProductsByCategoryName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("list products by category: %w", err)
	}
	return products, nil
}

func (s *CatalogService) ProductsByBrand(ctx context.Context, brand string) ([]models.Product, error) {
	brand = strings.TrimSpace(brand)
	if brand == "" {
		return nil, invalid("brand name is required")
	}
	products, err := s.catalog.ListProductsByBrand(ctx, brand)
	if err != nil {
		return nil, fmt.Errorf("list products by brand: %w", err)
	}
	return products, nil
}

func (s *CatalogService) SearchProducts(ctx context.Context, term string) ([]models.Product, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, invalid("search term is required")
	}
	products, err := s.catalog.SearchProducts(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	return products, nil
}

func (in CategoryInput) validate() error {
	var v violations
	name := strings.TrimSpace(in.Name)
	if name == "" {
		v.add("category name is required")
	} else if utf8.RuneCountInString(name) > maxCategoryName {
		v.add("category name must be at most %d characters", maxCategoryName)
	}
	if utf8.RuneCountInString(strings.TrimSpace(in.Description)) > maxCategoryDescription {
		v.add("description must be at most %d characters", maxCategoryDescription)
	}
	return v.err()
}

func (in ProductInput) validate() error {
	var v violations
	if strings.TrimSpace(in.Name) == "" {
		v.add("product name is required")
	}
	if !in.Price.IsPositive() {
		v.add("product price must be greater than 0")
	}
	if in.CategoryID <= 0 {
		v.add("categoryId is required")
	}
	return v.err()
}

func (in ProductInput) product(id int64) *models.Product {
	return &models.Product{
		ID:          id,
		Name:        strings.TrimSpace(in.Name),
		Brand:       strings.TrimSpace(in.Brand),
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		ImageURL:    strings.TrimSpace(in.ImageURL),
		CategoryID:  in.CategoryID,
	}
}

// resolve applies listing defaults and checks sortBy against allowed.
func (q ListQuery) resolve(defaultSort string, allowed ...string) (store.PageRequest, string, bool, error) {
	page := store.PageRequest{Page: q.Page, PageSize: q.PageSize}
	if page.Page == 0 {
		page.Page = 1
	}
	if page.PageSize == 0 {
		page.PageSize = DefaultPageSize
	}
	sortBy := strings.ToLower(strings.TrimSpace(q.SortBy))
	if sortBy == "" {
		sortBy = defaultSort
	}

	var v violations
	if page.Page < 1 {
		v.add("page must be at least 1")
	}
	if page.PageSize < 1 || page.PageSize > MaxPageSize {
		v.add("pageSize must be between 1 and %d", MaxPageSize)
	}
	known := false
	for _, a := range allowed {
		if a == sortBy {
			known = true
			break
		}
	}
	if !known {
		v.add("sortBy must be one of %s", strings.Join(allowed, ", "))
	}

	desc := false
	switch strings.ToLower(strings.TrimSpace(q.SortOrder)) {
	case "", "asc":
	case "desc":
		desc = true
	default:
		v.add("sortOrder must be asc or desc")
	}

	if err := v.err(); err != nil {
		return store.PageRequest{}, "", false, err
	}
	return page, sortBy, desc, nil
}

func mapCatalogError(err error, id int64) error {
	switch {
	case errors.Is(err, database.ErrCategoryNotFound):
		return newError(ErrNotFound, "category %d not found", id)
	case errors.Is(err, database.ErrProductNotFound):
		return newError(ErrNotFound, "product %d not found", id)
	case errors.Is(err, database.ErrReferenced):
		return newError(ErrConflict, "cannot delete: referenced by existing orders")
	case errors.Is(err, database.ErrConstraint):
		return invalid("product values violate catalog constraints")
	}
	return err
}
