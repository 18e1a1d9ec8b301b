package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/framely/internal/database"
	"github.com/safar/framely/internal/models"
)

var categorySortColumns = map[string]string{
	"name": "LOWER(name)",
	"id":   "id",
}

type ListCategoriesParams struct {
	PageRequest
	SortBy string
	Desc   bool
}

func (s *Store) CreateCategory(ctx context.Context, name, description string) (*models.Category, error) {
	category := &models.Category{}

	query := `
		INSERT INTO categories (name, description)
		VALUES ($1, $2)
		RETURNING id, name, description`

	err := s.db.QueryRowContext(ctx, query, name, description).Scan(
		&category.ID,
		&category.Name,
		&category.Description,
	)
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	return category, nil
}

func (s *Store) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	category := &models.Category{}

	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description FROM categories WHERE id = $1`, id).Scan(
		&category.ID,
		&category.Name,
		&category.Description,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("get category: %w", err)
	}

	return category, nil
}

func (s *Store) CategoryExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM categories WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check category exists: %w", err)
	}
	return exists, nil
}

func (s *Store) UpdateCategory(ctx context.Context, category *models.Category) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE categories SET name = $1, description = $2 WHERE id = $3`,
		category.Name, category.Description, category.ID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return expectOneRow(result, database.ErrCategoryNotFound)
}

// DeleteCategory removes the category and, by cascade, its products. It fails
// with ErrReferenced when any of those products appear on an order.
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return database.ErrReferenced
		}
		return fmt.Errorf("delete category: %w", err)
	}
	return expectOneRow(result, database.ErrCategoryNotFound)
}

func (s *Store) ListCategories(ctx context.Context, params ListCategoriesParams) (*OffsetPage[models.Category], error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&total); err != nil {
		return nil, fmt.Errorf("count categories: %w", err)
	}

	query := `
		SELECT id, name, description
		FROM categories
		ORDER BY ` + sortClause(categorySortColumns, params.SortBy, "name", "id", params.Desc) + `
		LIMIT $1 OFFSET $2`

	rows, err := s.db.QueryContext(ctx, query, params.PageSize, params.Offset())
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var category models.Category
		if err := rows.Scan(&category.ID, &category.Name, &category.Description); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, category)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return newOffsetPage(categories, total, params.PageRequest), nil
}

func expectOneRow(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
