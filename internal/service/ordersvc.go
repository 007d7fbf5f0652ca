package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"forkfast/internal/domain"
)

type OrdersStore interface {
	CreateOrder(ctx context.Context, o domain.Order) (domain.Order, error)
	GetOrder(ctx context.Context, id string) (domain.Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error)
	ListOrders(ctx context.Context) ([]domain.Order, error)
	MarkOrderPaid(ctx context.Context, id string) error
	UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) error
	DeleteOrder(ctx context.Context, id string) error
}

// CheckoutLine is one priced row on a payment page, delivery fee included.
type CheckoutLine struct {
	Name     string
	Amount   decimal.Decimal
	Quantity int
}

// CheckoutProvider turns a pending order into a hosted payment page URL.
// The provider redirects the customer back to successURL or cancelURL.
type CheckoutProvider interface {
	CreateCheckout(ctx context.Context, orderID string, lines []CheckoutLine, successURL, cancelURL string) (string, error)
}

const deliveryLineName = "Delivery Charges"

// OrderService places orders from cart contents and settles them after the
// payment redirect comes back.
type OrderService struct {
	Orders   OrdersStore
	Carts    CartsStore
	Checkout CheckoutProvider
	Logger   *slog.Logger

	// FrontendURL is the absolute base the payment provider redirects back
	// to, trailing slash included.
	FrontendURL string
	DeliveryFee decimal.Decimal
}

func (s *OrderService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// PlaceOrder creates an unpaid order from the submitted items, opens a
// checkout session for its total plus the delivery fee, and empties the
// user's cart. The payment URL goes back to the caller for the redirect.
func (s *OrderService) PlaceOrder(ctx context.Context, userID string, address map[string]string, items []domain.OrderItem) (domain.Order, string, error) {
	if len(items) == 0 {
		return domain.Order{}, "", domain.NewValidationError(map[string]string{"items": "required"})
	}
	if len(address) == 0 {
		return domain.Order{}, "", domain.NewValidationError(map[string]string{"address": "required"})
	}

	amount := decimal.Zero
	lines := make([]CheckoutLine, 0, len(items)+1)
	for i, it := range items {
		if it.Quantity <= 0 || it.Price.LessThanOrEqual(decimal.Zero) {
			return domain.Order{}, "", domain.NewValidationError(map[string]string{
				fmt.Sprintf("items[%d]", i): "price and quantity must be positive",
			})
		}
		amount = amount.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		lines = append(lines, CheckoutLine{Name: it.Name, Amount: it.Price, Quantity: it.Quantity})
	}
	amount = amount.Add(s.DeliveryFee)
	lines = append(lines, CheckoutLine{Name: deliveryLineName, Amount: s.DeliveryFee, Quantity: 1})

	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	order, err := s.Orders.CreateOrder(qctx, domain.Order{
		UserID:  userID,
		Address: address,
		Items:   items,
		Amount:  amount,
		Status:  domain.OrderStatusProcessing,
	})
	if err != nil {
		return domain.Order{}, "", err
	}

	successURL := fmt.Sprintf("%sverifyorder?success=true&orderId=%s", s.FrontendURL, order.ID)
	cancelURL := fmt.Sprintf("%sverifyorder?success=false&orderId=%s", s.FrontendURL, order.ID)

	payURL, err := s.Checkout.CreateCheckout(ctx, order.ID, lines, successURL, cancelURL)
	if err != nil {
		// The unpaid order is not left dangling if checkout never opened.
		if derr := s.Orders.DeleteOrder(qctx, order.ID); derr != nil {
			s.logger().Error("delete order after checkout failure", "order_id", order.ID, "err", derr)
		}
		return domain.Order{}, "", err
	}

	if err := s.Carts.ClearCart(qctx, userID); err != nil {
		s.logger().Error("clear cart after order", "user_id", userID, "err", err)
	}

	return order, payURL, nil
}

// SettleOrder finalizes the payment redirect: a successful return marks the
// order paid, a cancelled one deletes it.
func (s *OrderService) SettleOrder(ctx context.Context, orderID string, success bool) error {
	if orderID == "" {
		return domain.NewValidationError(map[string]string{"orderId": "required"})
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if success {
		return s.Orders.MarkOrderPaid(ctx, orderID)
	}
	return s.Orders.DeleteOrder(ctx, orderID)
}

// GetOrder returns a single order, visible only to the user who placed it.
// A hit on someone else's order reads the same as no order at all.
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	o, err := s.Orders.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if o.UserID != userID {
		return domain.Order{}, domain.ErrNotFound
	}
	return o, nil
}

func (s *OrderService) UserOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return s.Orders.ListOrdersByUser(ctx, userID)
}

func (s *OrderService) AllOrders(ctx context.Context) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return s.Orders.ListOrders(ctx)
}

func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	if !domain.ValidOrderStatus(status) {
		return domain.NewValidationError(map[string]string{"status": "unknown status"})
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return s.Orders.UpdateOrderStatus(ctx, orderID, status)
}
