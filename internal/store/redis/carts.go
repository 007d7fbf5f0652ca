package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// CartsStore keeps each user's cart as a Redis hash of itemID -> quantity.
// Carts are hot, small and disposable, which is why they live here instead of
// the users table.
type CartsStore struct {
	client *redis.Client
}

func NewCartsStore(client *redis.Client) *CartsStore {
	return &CartsStore{client: client}
}

func cartKey(userID string) string { return "cart:" + userID }

func (s *CartsStore) AddItem(ctx context.Context, userID, itemID string) error {
	if err := s.client.HIncrBy(ctx, cartKey(userID), itemID, 1).Err(); err != nil {
		return fmt.Errorf("cart add item: %w", err)
	}
	return nil
}

// RemoveItem decrements the quantity, never below zero. A field that reaches
// zero is deleted so the cart map stays clean.
func (s *CartsStore) RemoveItem(ctx context.Context, userID, itemID string) error {
	key := cartKey(userID)

	qty, err := s.client.HGet(ctx, key, itemID).Int64()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cart get item: %w", err)
	}

	if qty <= 1 {
		if err := s.client.HDel(ctx, key, itemID).Err(); err != nil {
			return fmt.Errorf("cart remove item: %w", err)
		}
		return nil
	}
	if err := s.client.HIncrBy(ctx, key, itemID, -1).Err(); err != nil {
		return fmt.Errorf("cart remove item: %w", err)
	}
	return nil
}

func (s *CartsStore) GetCart(ctx context.Context, userID string) (map[string]int, error) {
	raw, err := s.client.HGetAll(ctx, cartKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("cart get: %w", err)
	}

	cart := make(map[string]int, len(raw))
	for item, qtyRaw := range raw {
		qty, err := strconv.Atoi(qtyRaw)
		if err != nil {
			return nil, fmt.Errorf("cart qty for %q: %w", item, err)
		}
		if qty > 0 {
			cart[item] = qty
		}
	}
	return cart, nil
}

func (s *CartsStore) ClearCart(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("cart clear: %w", err)
	}
	return nil
}
