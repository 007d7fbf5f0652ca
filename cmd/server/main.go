package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/redis/go-redis/v9"

	"forkfast/internal/auth"
	"forkfast/internal/config"
	"forkfast/internal/email"
	"forkfast/internal/httpapi"
	"forkfast/internal/payment"
	"forkfast/internal/service"
	"forkfast/internal/store/postgres"
	redisstore "forkfast/internal/store/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	logger := newLogger(cfg)

	var (
		authSvc    *service.AuthService
		catalogSvc *service.CatalogService
		cartSvc    *service.CartService
		orderSvc   *service.OrderService
		limiter    httpapi.LoginLimiter
		dbPing     func(context.Context) error
	)

	tokens := &auth.TokenIssuer{
		AccessSecret:  []byte(cfg.JWTAccessSecret),
		RefreshSecret: []byte(cfg.JWTRefreshSecret),
		RefreshTTL:    cfg.RefreshTokenTTL,
	}

	mailer := &email.SMTPMailer{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.SenderEmail,
	}

	if cfg.DBDSN != "" {
		if err := postgres.Migrate(context.Background(), cfg.DBDSN); err != nil {
			logger.Error("db migrate failed", "err", err)
			os.Exit(1)
		}

		pgPool, err := postgres.Open(context.Background(), cfg.DBDSN)
		if err != nil {
			logger.Error("db open failed", "err", err)
			os.Exit(1)
		}
		defer pgPool.Close()

		users := postgres.NewUsersStore(pgPool)
		sessions := postgres.NewSessionsStore(pgPool)
		foods := postgres.NewFoodsStore(pgPool)
		categories := postgres.NewCategoriesStore(pgPool)
		orders := postgres.NewOrdersStore(pgPool)

		authSvc = &service.AuthService{
			Users:            users,
			Sessions:         sessions,
			Tokens:           tokens,
			Mailer:           mailer,
			Logger:           logger,
			RefreshTTL:       cfg.RefreshTokenTTL,
			MaxLoginAttempts: cfg.MaxLoginAttempts,
			AccountLockTime:  cfg.AccountLockTime,
			MaxOTPAttempts:   cfg.MaxOTPAttempts,
		}
		catalogSvc = &service.CatalogService{
			Foods:      foods,
			Categories: categories,
		}

		if cfg.RedisAddr != "" {
			rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
			defer func() { _ = rdb.Close() }()

			carts := redisstore.NewCartsStore(rdb)
			limiter = redisstore.NewLoginLimiter(rdb)
			cartSvc = &service.CartService{Carts: carts}
			orderSvc = &service.OrderService{
				Orders:      orders,
				Carts:       carts,
				Checkout:    payment.RedirectCheckout{},
				Logger:      logger,
				FrontendURL: cfg.FrontendURL.String(),
				DeliveryFee: cfg.DeliveryFee,
			}
		} else {
			logger.Info("redis disabled, cart and ordering unavailable")
		}

		dbPing = pgPool.Ping
	}

	handler := httpapi.NewRouter(httpapi.RouterOpts{
		Logger:       logger,
		IsProd:       cfg.IsProd(),
		DBPing:       dbPing,
		Auth:         authSvc,
		Catalog:      catalogSvc,
		Cart:         cartSvc,
		Orders:       orderSvc,
		Tokens:       tokens,
		Cookies:      auth.CookieWriter{IsProd: cfg.IsProd(), RefreshTTL: cfg.RefreshTokenTTL},
		LoginLimiter: limiter,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "env", cfg.Env, "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsProd() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
