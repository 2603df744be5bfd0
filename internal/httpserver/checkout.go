package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/elitcards/storefront/internal/cart"
	"github.com/elitcards/storefront/internal/currency"
	"github.com/elitcards/storefront/internal/logging"
	"github.com/elitcards/storefront/internal/payment"
)

// maxScreenshotSize caps the payment proof upload at 10 MiB.
const maxScreenshotSize = 10 * 1024 * 1024

var allowedScreenshotTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

type CheckoutHTTP struct {
	Payments *payment.Service
	Cart     *cart.Service
	Currency *currency.Service
}

// Confirm handles the checkout confirmation: a multipart form carrying the
// payer email and a payment screenshot. Input is validated before any
// remote call; the remote submission itself can fail without failing the
// checkout — the response message tells the user which happened.
func (h *CheckoutHTTP) Confirm(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.confirm")

	email := c.FormValue("email")
	if email == "" {
		l.Warn("checkout_error", "status", 400, "reason", "missing email")
		return c.JSON(http.StatusBadRequest, "please enter your email")
	}

	fh, err := c.FormFile("screenshot")
	if err != nil {
		l.Warn("checkout_error", "status", 400, "reason", "missing screenshot")
		return c.JSON(http.StatusBadRequest, "please upload payment screenshot")
	}
	if !allowedScreenshotTypes[fh.Header.Get("Content-Type")] {
		l.Warn("checkout_error", "status", 400, "reason", "bad screenshot type", "type", fh.Header.Get("Content-Type"))
		return c.JSON(http.StatusBadRequest, "screenshot must be a JPEG, PNG, GIF or WebP image")
	}
	if fh.Size > maxScreenshotSize {
		l.Warn("checkout_error", "status", 400, "reason", "screenshot too large", "size", fh.Size)
		return c.JSON(http.StatusBadRequest, "file size must be less than 10MB")
	}

	count, err := h.Cart.Count()
	if err != nil {
		l.Error("checkout_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}
	if count == 0 {
		return c.JSON(http.StatusBadRequest, "your cart is empty")
	}

	subtotal, err := h.Cart.Subtotal(ctx)
	if err != nil {
		l.Error("checkout_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}
	items, err := h.Cart.Snapshot(ctx)
	if err != nil {
		l.Error("checkout_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}

	total := subtotal + ServiceFeeUSD

	file, err := fh.Open()
	if err != nil {
		l.Error("checkout_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}
	defer file.Close()

	rec, err := h.Payments.Record(ctx, payment.Input{
		Email:          email,
		Amount:         total,
		Currency:       "USD",
		AmountGHS:      h.Currency.ToGHS(total),
		CartItems:      items,
		ScreenshotName: fh.Filename,
		Screenshot:     file,
	})
	if err != nil {
		l.Error("checkout_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}

	if err := h.Cart.Clear(); err != nil {
		l.Error("cart clear after checkout failed", "error", err)
	}

	message := "Payment submitted successfully"
	if !rec.RemoteOK {
		message = "Payment submitted (saved locally due to connection issue)"
	}

	l.Info("checkout_success", "remote_ok", rec.RemoteOK, "amount", total)
	return c.JSON(http.StatusCreated, map[string]any{
		"payment": rec,
		"message": message,
	})
}
