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
	"github.com/shopspring/decimal"
)

type FoodsStore struct {
	pool *pgxpool.Pool
}

func NewFoodsStore(pool *pgxpool.Pool) *FoodsStore {
	return &FoodsStore{pool: pool}
}

func (s *FoodsStore) CreateFood(ctx context.Context, f domain.Food) (domain.Food, error) {
	const q = `
		INSERT INTO foods (name, description, price, image, category)
		VALUES ($1, $2, $3::numeric, $4, $5)
		RETURNING id, created_at
	`

	var idUUID pgtype.UUID
	err := s.pool.QueryRow(ctx, q, f.Name, f.Description, f.Price.String(), f.Image, f.Category).Scan(&idUUID, &f.CreatedAt)
	if err != nil {
		return domain.Food{}, fmt.Errorf("create food: %w", err)
	}

	f.ID = uuidOrEmpty(idUUID)
	return f, nil
}

func (s *FoodsStore) GetFood(ctx context.Context, id string) (domain.Food, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Food{}, domain.ErrNotFound
	}

	const q = `
		SELECT id, name, description, price::text, image, category, created_at
		FROM foods
		WHERE id = $1
	`

	f, err := scanFood(s.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Food{}, domain.ErrNotFound
		}
		return domain.Food{}, fmt.Errorf("get food: %w", err)
	}
	return f, nil
}

// ListFoods returns one page of the menu, newest first, plus the total count
// for pagination.
func (s *FoodsStore) ListFoods(ctx context.Context, page, limit int) ([]domain.Food, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 12
	}

	const q = `
		SELECT id, name, description, price::text, image, category, created_at
		FROM foods
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := s.pool.Query(ctx, q, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list foods: %w", err)
	}
	defer rows.Close()

	foods := make([]domain.Food, 0, limit)
	for rows.Next() {
		f, err := scanFood(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan food: %w", err)
		}
		foods = append(foods, f)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list foods: %w", err)
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM foods`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count foods: %w", err)
	}

	return foods, total, nil
}

func (s *FoodsStore) UpdateFood(ctx context.Context, f domain.Food) (domain.Food, error) {
	if _, err := uuid.Parse(f.ID); err != nil {
		return domain.Food{}, domain.ErrNotFound
	}

	const q = `
		UPDATE foods
		SET name = $2, description = $3, price = $4::numeric, image = $5, category = $6
		WHERE id = $1
		RETURNING created_at
	`

	err := s.pool.QueryRow(ctx, q, f.ID, f.Name, f.Description, f.Price.String(), f.Image, f.Category).Scan(&f.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Food{}, domain.ErrNotFound
		}
		return domain.Food{}, fmt.Errorf("update food: %w", err)
	}
	return f, nil
}

func (s *FoodsStore) DeleteFood(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM foods WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete food: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanFood(row pgx.Row) (domain.Food, error) {
	var (
		f        domain.Food
		idUUID   pgtype.UUID
		priceRaw string
	)
	if err := row.Scan(&idUUID, &f.Name, &f.Description, &priceRaw, &f.Image, &f.Category, &f.CreatedAt); err != nil {
		return domain.Food{}, err
	}

	price, err := decimal.NewFromString(priceRaw)
	if err != nil {
		return domain.Food{}, fmt.Errorf("parse price %q: %w", priceRaw, err)
	}

	f.ID = uuidOrEmpty(idUUID)
	f.Price = price
	return f, nil
}
