package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/elitcards/storefront/internal/logging"
	"github.com/elitcards/storefront/internal/payment"
)

type OrdersHTTP struct {
	Svc *payment.Service
}

// GetRecentOrders returns the authenticated user's 5 most recent orders.
func (h *OrdersHTTP) GetRecentOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.recent")

	email, ok := emailFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, "unauthorized")
	}

	orders, err := h.Svc.RecentOrders(ctx, email)
	if err != nil {
		l.Error("recent_orders_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, orders)
}

// GetPayments returns the authenticated user's full payment history.
func (h *OrdersHTTP) GetPayments(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.payments")

	email, ok := emailFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, "unauthorized")
	}

	payments, source, err := h.Svc.UserPayments(ctx, email)
	if err != nil {
		l.Error("payments_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"data": payments,
		"meta": map[string]any{"source": source},
	})
}
