package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PasswordHistoryLimit is how many recent password hashes are kept per user,
// most recent first. A new password must not match any of them.
const PasswordHistoryLimit = 3

type User struct {
	ID                string
	Name              string
	Email             string
	IsAccountVerified bool
	IsAdmin           bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// UserWithSecrets carries the credential and OTP state alongside the public
// user fields. Only the auth paths load it; everything else works with User.
type UserWithSecrets struct {
	User
	PasswordHash    string
	PasswordHistory []string

	VerifyOTPHash     string
	VerifyOTPExpireAt time.Time
	VerifyOTPAttempts int

	ResetOTPHash     string
	ResetOTPExpireAt time.Time
	ResetOTPAttempts int

	FailedLoginAttempts int
	LockUntil           time.Time
}

// Locked reports whether the account lockout window is still in effect.
func (u UserWithSecrets) Locked(now time.Time) bool {
	return !u.LockUntil.IsZero() && u.LockUntil.After(now)
}

// Session is the server-side root of trust for a refresh token. Revoking or
// expiring it invalidates the token chain regardless of the JWT's own expiry.
type Session struct {
	ID            string
	UserID        string
	UserAgent     string
	IP            string
	CreatedAt     time.Time
	ExpiresAt     time.Time
	Revoked       bool
	RevokedAt     *time.Time
	RevokedReason string
}

type Food struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Image       string
	Category    string
	CreatedAt   time.Time
}

type Category struct {
	ID        string
	Name      string
	Image     string
	CreatedAt time.Time
}

type OrderStatus string

const (
	OrderStatusProcessing     OrderStatus = "Order Processing"
	OrderStatusOutForDelivery OrderStatus = "Out for delivery"
	OrderStatusDelivered      OrderStatus = "Delivered"
	OrderStatusCancelled      OrderStatus = "Cancelled"
)

func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusProcessing, OrderStatusOutForDelivery, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

type OrderItem struct {
	FoodID   string          `json:"foodId"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

type Order struct {
	ID        string
	UserID    string
	Address   map[string]string
	Items     []OrderItem
	Amount    decimal.Decimal
	Status    OrderStatus
	Payment   bool
	CreatedAt time.Time
}
