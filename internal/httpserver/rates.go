package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/elitcards/storefront/internal/currency"
	"github.com/elitcards/storefront/internal/logging"
)

type RatesHTTP struct {
	Svc *currency.Service
}

func (h *RatesHTTP) GetRate(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]float64{"usd_to_ghs": h.Svc.Rate()})
}

func (h *RatesHTTP) UpdateRate(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "rates.update")

	var req struct {
		USDToGHS float64 `json:"usd_to_ghs"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("update_rate_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, "invalid body")
	}

	if err := h.Svc.UpdateRate(req.USDToGHS); err != nil {
		if errors.Is(err, currency.ErrValidation) {
			return c.JSON(http.StatusBadRequest, err.Error())
		}
		l.Error("update_rate_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}

	l.Info("exchange rate updated", "usd_to_ghs", req.USDToGHS)
	return c.JSON(http.StatusOK, map[string]float64{"usd_to_ghs": req.USDToGHS})
}
