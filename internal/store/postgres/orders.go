package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"forkfast/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type OrdersStore struct {
	pool *pgxpool.Pool
}

func NewOrdersStore(pool *pgxpool.Pool) *OrdersStore {
	return &OrdersStore{pool: pool}
}

func (s *OrdersStore) CreateOrder(ctx context.Context, o domain.Order) (domain.Order, error) {
	address, err := json.Marshal(o.Address)
	if err != nil {
		return domain.Order{}, fmt.Errorf("marshal address: %w", err)
	}
	items, err := json.Marshal(o.Items)
	if err != nil {
		return domain.Order{}, fmt.Errorf("marshal items: %w", err)
	}

	const q = `
		INSERT INTO orders (user_id, address, items, amount, status, payment)
		VALUES ($1, $2, $3, $4::numeric, $5, $6)
		RETURNING id, created_at
	`

	if o.Status == "" {
		o.Status = domain.OrderStatusProcessing
	}

	var idUUID pgtype.UUID
	err = s.pool.QueryRow(ctx, q, o.UserID, address, items, o.Amount.String(), string(o.Status), o.Payment).Scan(&idUUID, &o.CreatedAt)
	if err != nil {
		return domain.Order{}, fmt.Errorf("create order: %w", err)
	}

	o.ID = uuidOrEmpty(idUUID)
	return o, nil
}

func (s *OrdersStore) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Order{}, domain.ErrNotFound
	}

	const q = orderColumns + ` WHERE id = $1`

	o, err := scanOrder(s.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Order{}, domain.ErrNotFound
		}
		return domain.Order{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func (s *OrdersStore) ListOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	const q = orderColumns + ` WHERE user_id = $1 ORDER BY created_at DESC`
	return s.list(ctx, q, userID)
}

func (s *OrdersStore) ListOrders(ctx context.Context) ([]domain.Order, error) {
	const q = orderColumns + ` ORDER BY created_at DESC`
	return s.list(ctx, q)
}

func (s *OrdersStore) list(ctx context.Context, q string, args ...any) ([]domain.Order, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return out, nil
}

func (s *OrdersStore) MarkOrderPaid(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}

	tag, err := s.pool.Exec(ctx, `UPDATE orders SET payment = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark order paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *OrdersStore) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}

	tag, err := s.pool.Exec(ctx, `UPDATE orders SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *OrdersStore) DeleteOrder(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

const orderColumns = `
	SELECT id, user_id, address, items, amount::text, status, payment, created_at
	FROM orders`

func scanOrder(row pgx.Row) (domain.Order, error) {
	var (
		o         domain.Order
		idUUID    pgtype.UUID
		userIDUU  pgtype.UUID
		address   []byte
		items     []byte
		amountRaw string
		status    string
	)
	if err := row.Scan(&idUUID, &userIDUU, &address, &items, &amountRaw, &status, &o.Payment, &o.CreatedAt); err != nil {
		return domain.Order{}, err
	}

	if err := json.Unmarshal(address, &o.Address); err != nil {
		return domain.Order{}, fmt.Errorf("unmarshal address: %w", err)
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return domain.Order{}, fmt.Errorf("unmarshal items: %w", err)
	}

	amount, err := decimal.NewFromString(amountRaw)
	if err != nil {
		return domain.Order{}, fmt.Errorf("parse amount %q: %w", amountRaw, err)
	}

	o.ID = uuidOrEmpty(idUUID)
	o.UserID = uuidOrEmpty(userIDUU)
	o.Amount = amount
	o.Status = domain.OrderStatus(status)
	return o, nil
}
