package postgres

import (
	"context"
	"errors"
	"fmt"

	"forkfast/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CategoriesStore struct {
	pool *pgxpool.Pool
}

func NewCategoriesStore(pool *pgxpool.Pool) *CategoriesStore {
	return &CategoriesStore{pool: pool}
}

func (s *CategoriesStore) CreateCategory(ctx context.Context, c domain.Category) (domain.Category, error) {
	const q = `
		INSERT INTO categories (name, image)
		VALUES ($1, $2)
		RETURNING id, created_at
	`

	var idUUID pgtype.UUID
	err := s.pool.QueryRow(ctx, q, c.Name, c.Image).Scan(&idUUID, &c.CreatedAt)
	if err != nil {
		return domain.Category{}, fmt.Errorf("create category: %w", err)
	}

	c.ID = uuidOrEmpty(idUUID)
	return c, nil
}

func (s *CategoriesStore) GetCategory(ctx context.Context, id string) (domain.Category, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Category{}, domain.ErrNotFound
	}

	const q = `SELECT id, name, image, created_at FROM categories WHERE id = $1`

	var (
		c      domain.Category
		idUUID pgtype.UUID
	)
	err := s.pool.QueryRow(ctx, q, id).Scan(&idUUID, &c.Name, &c.Image, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Category{}, domain.ErrNotFound
		}
		return domain.Category{}, fmt.Errorf("get category: %w", err)
	}

	c.ID = uuidOrEmpty(idUUID)
	return c, nil
}

func (s *CategoriesStore) ListCategories(ctx context.Context) ([]domain.Category, error) {
	const q = `SELECT id, name, image, created_at FROM categories ORDER BY name`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []domain.Category
	for rows.Next() {
		var (
			c      domain.Category
			idUUID pgtype.UUID
		)
		if err := rows.Scan(&idUUID, &c.Name, &c.Image, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.ID = uuidOrEmpty(idUUID)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

func (s *CategoriesStore) UpdateCategory(ctx context.Context, c domain.Category) (domain.Category, error) {
	if _, err := uuid.Parse(c.ID); err != nil {
		return domain.Category{}, domain.ErrNotFound
	}

	const q = `
		UPDATE categories SET name = $2, image = $3 WHERE id = $1
		RETURNING created_at
	`

	err := s.pool.QueryRow(ctx, q, c.ID, c.Name, c.Image).Scan(&c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Category{}, domain.ErrNotFound
		}
		return domain.Category{}, fmt.Errorf("update category: %w", err)
	}
	return c, nil
}

func (s *CategoriesStore) DeleteCategory(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
