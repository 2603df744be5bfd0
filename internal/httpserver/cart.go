package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/elitcards/storefront/internal/cart"
	"github.com/elitcards/storefront/internal/currency"
	"github.com/elitcards/storefront/internal/logging"
)

// ServiceFeeUSD is added on top of the cart subtotal at checkout.
const ServiceFeeUSD = 1.0

type CartHTTP struct {
	Svc      *cart.Service
	Currency *currency.Service
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get")

	lines, err := h.Svc.Items()
	if err != nil {
		l.Error("get_cart_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, lines)
}

func (h *CartHTTP) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add")

	var req struct {
		ProductID string `json:"product_id"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("add_to_cart_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, "invalid body")
	}
	if req.ProductID == "" {
		return c.JSON(http.StatusBadRequest, "product_id required")
	}

	if err := h.Svc.Add(req.ProductID); err != nil {
		if errors.Is(err, cart.ErrValidation) {
			return c.JSON(http.StatusBadRequest, err.Error())
		}
		l.Error("add_to_cart_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}

	count, err := h.Svc.Count()
	if err != nil {
		l.Error("add_to_cart_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}

	l.Info("item added to cart", "product_id", req.ProductID)
	return c.JSON(http.StatusCreated, map[string]any{"count": count})
}

func (h *CartHTTP) RemoveFromCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove")

	var req struct {
		ProductID string `json:"product_id"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("remove_from_cart_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, "invalid body")
	}
	if req.ProductID == "" {
		return c.JSON(http.StatusBadRequest, "product_id required")
	}

	if err := h.Svc.Remove(req.ProductID); err != nil {
		l.Error("remove_from_cart_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CartHTTP) ClearCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.clear")

	if err := h.Svc.Clear(); err != nil {
		l.Error("clear_cart_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}
	l.Info("cart cleared")
	return c.NoContent(http.StatusNoContent)
}

// GetSummary returns the checkout totals: item count, subtotal, service
// fee, and the combined USD/GHS total.
func (h *CartHTTP) GetSummary(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.summary")

	count, err := h.Svc.Count()
	if err != nil {
		l.Error("cart_summary_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}
	subtotal, err := h.Svc.Subtotal(ctx)
	if err != nil {
		l.Error("cart_summary_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}

	total := subtotal
	if count > 0 {
		total += ServiceFeeUSD
	}
	totalGHS := h.Currency.ToGHS(total)

	return c.JSON(http.StatusOK, map[string]any{
		"count":       count,
		"subtotal":    subtotal,
		"service_fee": ServiceFeeUSD,
		"total":       total,
		"total_ghs":   totalGHS,
		"display":     currency.FormatTotal(total, totalGHS),
	})
}
