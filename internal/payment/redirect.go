// Package payment provides checkout providers for order placement.
package payment

import (
	"context"

	"forkfast/internal/service"
)

// RedirectCheckout is the no-provider checkout: it skips the hosted payment
// page and sends the customer straight to the success redirect. Used when no
// payment gateway is configured, typically in development.
type RedirectCheckout struct{}

func (RedirectCheckout) CreateCheckout(_ context.Context, _ string, _ []service.CheckoutLine, successURL, _ string) (string, error) {
	return successURL, nil
}
