package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/safar/framely/internal/database"
	"github.com/safar/framely/internal/models"
)

const productColumns = `
	p.id, p.name, p.brand, p.description, p.price, p.image_url,
	p.category_id, c.name, p.created_at, p.updated_at`

const productFrom = `
	FROM products p
	JOIN categories c ON c.id = p.category_id`

var productSortColumns = map[string]string{
	"name":  "LOWER(p.name)",
	"price": "p.price",
	"brand": "LOWER(p.brand)",
}

type ListProductsParams struct {
	PageRequest
	SortBy string
	Desc   bool
}

func scanProduct(row rowScanner, product *models.Product) error {
	return row.Scan(
		&product.ID,
		&product.Name,
		&product.Brand,
		&product.Description,
		&product.Price,
		&product.ImageURL,
		&product.CategoryID,
		&product.CategoryName,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
}

func (s *Store) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	var id int64

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO products (name, brand, description, price, image_url, category_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		 RETURNING id`,
		product.Name, product.Brand, product.Description, product.Price.Round(2),
		product.ImageURL, product.CategoryID).Scan(&id)
	if err != nil {
		switch {
		case database.IsForeignKeyViolation(err):
			return nil, database.ErrCategoryNotFound
		case database.IsConstraintViolation(err):
			return nil, fmt.Errorf("create product: %w", database.ErrConstraint)
		}
		return nil, fmt.Errorf("create product: %w", err)
	}

	return s.GetProduct(ctx, id)
}

func (s *Store) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	product := &models.Product{}

	query := `SELECT ` + productColumns + productFrom + ` WHERE p.id = $1`

	if err := scanProduct(s.db.QueryRowContext(ctx, query, id), product); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product *models.Product) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE products
		 SET name = $1, brand = $2, description = $3, price = $4,
		     image_url = $5, category_id = $6, updated_at = NOW()
		 WHERE id = $7`,
		product.Name, product.Brand, product.Description, product.Price.Round(2),
		product.ImageURL, product.CategoryID, product.ID)
	if err != nil {
		switch {
		case database.IsForeignKeyViolation(err):
			return database.ErrCategoryNotFound
		case database.IsConstraintViolation(err):
			return fmt.Errorf("update product: %w", database.ErrConstraint)
		}
		return fmt.Errorf("update product: %w", err)
	}
	return expectOneRow(result, database.ErrProductNotFound)
}

// DeleteProduct fails with ErrReferenced when the product appears on an order;
// order lines keep their product reference for history.
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return database.ErrReferenced
		}
		return fmt.Errorf("delete product: %w", err)
	}
	return expectOneRow(result, database.ErrProductNotFound)
}

func (s *Store) ListProducts(ctx context.Context, params ListProductsParams) (*OffsetPage[models.Product], error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&total); err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	query := `SELECT ` + productColumns + productFrom + `
		ORDER BY ` + sortClause(productSortColumns, params.SortBy, "name", "p.id", params.Desc) + `
		LIMIT $1 OFFSET $2`

	products, err := s.queryProducts(ctx, query, params.PageSize, params.Offset())
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	return newOffsetPage(products, total, params.PageRequest), nil
}

// ListProductsByCategoryName matches the category name exactly, ignoring case
// and surrounding whitespace.
func (s *Store) ListProductsByCategoryName(ctx context.Context, name string) ([]models.Product, error) {
	query := `SELECT ` + productColumns + productFrom + `
		WHERE LOWER(c.name) = LOWER($1)
		ORDER BY p.id`

	products, err := s.queryProducts(ctx, query, strings.TrimSpace(name))
	if err != nil {
		return nil, fmt.Errorf("list products by category: %w", err)
	}
	return products, nil
}

func (s *Store) ListProductsByBrand(ctx context.Context, brand string) ([]models.Product, error) {
	query := `SELECT ` + productColumns + productFrom + `
		WHERE p.brand <> '' AND p.brand ILIKE '%' || $1 || '%'
		ORDER BY p.id`

	products, err := s.queryProducts(ctx, query, escapeLike(brand))
	if err != nil {
		return nil, fmt.Errorf("list products by brand: %w", err)
	}
	return products, nil
}

// SearchProducts does a case-insensitive substring match over name, brand and
// description.
func (s *Store) SearchProducts(ctx context.Context, term string) ([]models.Product, error) {
	query := `SELECT ` + productColumns + productFrom + `
		WHERE p.name ILIKE '%' || $1 || '%'
		   OR p.brand ILIKE '%' || $1 || '%'
		   OR p.description ILIKE '%' || $1 || '%'
		ORDER BY p.id`

	products, err := s.queryProducts(ctx, query, escapeLike(term))
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	return products, nil
}

func (s *Store) queryProducts(ctx context.Context, query string, args ...any) ([]models.Product, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var product models.Product
		if err := scanProduct(rows, &product); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
