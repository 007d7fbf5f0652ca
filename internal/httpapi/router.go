package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"forkfast/internal/auth"
	"forkfast/internal/service"
)

// LoginLimiter throttles login attempts per key. Implementations may fail
// open when their backing store is unreachable.
type LoginLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type RouterOpts struct {
	Logger *slog.Logger
	IsProd bool

	DBPing func(context.Context) error

	Auth    *service.AuthService
	Catalog *service.CatalogService
	Cart    *service.CartService
	Orders  *service.OrderService

	Tokens       *auth.TokenIssuer
	Cookies      auth.CookieWriter
	LoginLimiter LoginLimiter
}

func NewRouter(opts RouterOpts) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	api := &api{
		logger:       logger,
		isProd:       opts.IsProd,
		dbPing:       opts.DBPing,
		authSvc:      opts.Auth,
		catalogSvc:   opts.Catalog,
		cartSvc:      opts.Cart,
		orderSvc:     opts.Orders,
		tokens:       opts.Tokens,
		cookies:      opts.Cookies,
		loginLimiter: opts.LoginLimiter,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", api.handleHealthz)

	mux.HandleFunc("POST /auth/register", api.handleRegister)
	mux.HandleFunc("POST /auth/login", api.handleLogin)
	mux.HandleFunc("POST /auth/logout", api.handleLogout)
	mux.HandleFunc("POST /auth/logout-all", api.requireAuth(api.handleLogoutAll))
	mux.HandleFunc("POST /auth/refresh", api.handleRefresh)
	mux.HandleFunc("POST /auth/send-verify-otp", api.handleSendVerifyOTP)
	mux.HandleFunc("POST /auth/verify-account", api.handleVerifyAccount)
	mux.HandleFunc("POST /auth/send-reset-otp", api.handleSendResetOTP)
	mux.HandleFunc("POST /auth/reset-password", api.handleResetPassword)

	mux.HandleFunc("GET /api/user/fetchrole", api.requireAuth(api.handleFetchRole))

	if api.catalogSvc != nil {
		mux.HandleFunc("GET /api/food/list", api.handleFoodList)
		mux.HandleFunc("GET /api/food/{id}", api.handleFoodGet)
		mux.HandleFunc("POST /api/food/add", api.requireAdmin(api.handleFoodAdd))
		mux.HandleFunc("POST /api/food/update", api.requireAdmin(api.handleFoodUpdate))
		mux.HandleFunc("POST /api/food/remove", api.requireAdmin(api.handleFoodRemove))

		mux.HandleFunc("GET /api/category/list", api.handleCategoryList)
		mux.HandleFunc("GET /api/category/{id}", api.handleCategoryGet)
		mux.HandleFunc("POST /api/category/add", api.requireAdmin(api.handleCategoryAdd))
		mux.HandleFunc("POST /api/category/update", api.requireAdmin(api.handleCategoryUpdate))
		mux.HandleFunc("POST /api/category/remove", api.requireAdmin(api.handleCategoryRemove))
	}

	if api.cartSvc != nil {
		mux.HandleFunc("POST /api/cart/add", api.requireAuth(api.handleCartAdd))
		mux.HandleFunc("POST /api/cart/remove", api.requireAuth(api.handleCartRemove))
		mux.HandleFunc("POST /api/cart/get", api.requireAuth(api.handleCartGet))
	}

	if api.orderSvc != nil {
		mux.HandleFunc("POST /api/order/place", api.requireAuth(api.handleOrderPlace))
		mux.HandleFunc("POST /api/order/verify", api.handleOrderVerify)
		mux.HandleFunc("GET /api/order/userorders", api.requireAuth(api.handleOrderListMine))
		mux.HandleFunc("GET /api/order/{id}", api.requireAuth(api.handleOrderGet))
		mux.HandleFunc("GET /api/order/list", api.requireAdmin(api.handleOrderListAll))
		mux.HandleFunc("POST /api/order/status", api.requireAdmin(api.handleOrderStatus))
	}

	var h http.Handler = mux
	h = RequestLogger(logger)(h)
	h = RequestID()(h)
	h = Recoverer(logger, opts.IsProd)(h)
	return h
}

type api struct {
	logger *slog.Logger
	isProd bool

	dbPing func(context.Context) error

	authSvc    *service.AuthService
	catalogSvc *service.CatalogService
	cartSvc    *service.CartService
	orderSvc   *service.OrderService

	tokens       *auth.TokenIssuer
	cookies      auth.CookieWriter
	loginLimiter LoginLimiter
}

func (a *api) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if a.dbPing != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()
		if err := a.dbPing(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db down"))
			return
		}
	}

	_, _ = w.Write([]byte("ok"))
}
