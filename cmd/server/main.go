package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/elitcards/storefront/internal/cart"
	"github.com/elitcards/storefront/internal/catalog"
	"github.com/elitcards/storefront/internal/config"
	"github.com/elitcards/storefront/internal/currency"
	"github.com/elitcards/storefront/internal/events"
	"github.com/elitcards/storefront/internal/httpserver"
	"github.com/elitcards/storefront/internal/kvstore"
	"github.com/elitcards/storefront/internal/logging"
	"github.com/elitcards/storefront/internal/netpolicy"
	"github.com/elitcards/storefront/internal/payment"
	"github.com/elitcards/storefront/internal/pocketbase"
	"github.com/elitcards/storefront/internal/session"
)

func main() {
	cfg := config.Load()
	config.MustNonEmptyBytes(cfg.JWTSecret, "JWT_SECRET")

	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	kv, err := kvstore.Open(cfg.DataPath)
	if err != nil {
		log.Fatalf("kv store init error: %v", err)
	}

	pb := pocketbase.New(cfg.PocketBaseURL)
	policy := netpolicy.New(cfg.AppOrigin, cfg.PocketBaseURL)
	if policy.MixedContent() {
		logger.Warn("mixed content detected: HTTPS origin with HTTP PocketBase, remote calls limited",
			"app_origin", cfg.AppOrigin, "pocketbase_url", cfg.PocketBaseURL)
	}

	healthCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := pb.Health(healthCtx); err != nil {
		logger.Warn("pocketbase unreachable at startup, running on local fallback", "error", err)
	}
	cancel()

	producer := events.NewProducer(cfg.KafkaBrokers)
	defer producer.Close()

	catalogSvc := catalog.New(pb, policy)
	cartSvc := cart.New(kv, catalogSvc)
	currencySvc := currency.New(kv)
	sessionSvc := session.New(kv, pb, policy)
	paymentSvc := payment.New(kv, pb, policy, producer)

	if err := sessionSvc.Seed(); err != nil {
		log.Fatalf("user directory seed error: %v", err)
	}
	// Normalizes a corrupted cart key before the first request hits it.
	if _, err := cartSvc.Items(); err != nil {
		log.Fatalf("cart init error: %v", err)
	}

	e := echo.New()
	e.HideBanner = true

	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(httpserver.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		Catalog:   &httpserver.CatalogHTTP{Svc: catalogSvc},
		Cart:      &httpserver.CartHTTP{Svc: cartSvc, Currency: currencySvc},
		Auth:      &httpserver.AuthHTTP{Svc: sessionSvc, Events: producer, JWTSecret: cfg.JWTSecret},
		Checkout:  &httpserver.CheckoutHTTP{Payments: paymentSvc, Cart: cartSvc, Currency: currencySvc},
		Orders:    &httpserver.OrdersHTTP{Svc: paymentSvc},
		Rates:     &httpserver.RatesHTTP{Svc: currencySvc},
		JWTSecret: cfg.JWTSecret,
	})

	go func() {
		logger.Info("starting storefront server", "port", cfg.ServerPort)
		if err := e.Start(":" + strconv.Itoa(cfg.ServerPort)); err != nil && err != http.ErrServerClosed {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("echo shutdown", "error", err)
	}
	if err := kv.Close(); err != nil {
		logger.Error("kv store close", "error", err)
	}
}
