package service

import (
	"context"

	"forkfast/internal/domain"
)

type CartsStore interface {
	AddItem(ctx context.Context, userID, itemID string) error
	RemoveItem(ctx context.Context, userID, itemID string) error
	GetCart(ctx context.Context, userID string) (map[string]int, error)
	ClearCart(ctx context.Context, userID string) error
}

// CartService keeps one cart per user, a map of food id to quantity.
type CartService struct {
	Carts CartsStore
}

func (s *CartService) AddToCart(ctx context.Context, userID, foodID string) error {
	if foodID == "" {
		return domain.NewValidationError(map[string]string{"itemId": "required"})
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return s.Carts.AddItem(ctx, userID, foodID)
}

func (s *CartService) RemoveFromCart(ctx context.Context, userID, foodID string) error {
	if foodID == "" {
		return domain.NewValidationError(map[string]string{"itemId": "required"})
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return s.Carts.RemoveItem(ctx, userID, foodID)
}

func (s *CartService) GetCart(ctx context.Context, userID string) (map[string]int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return s.Carts.GetCart(ctx, userID)
}
