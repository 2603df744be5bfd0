package httpserver

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elitcards/storefront/internal/cart"
	"github.com/elitcards/storefront/internal/catalog"
	"github.com/elitcards/storefront/internal/currency"
	"github.com/elitcards/storefront/internal/kvstore"
	"github.com/elitcards/storefront/internal/netpolicy"
	"github.com/elitcards/storefront/internal/payment"
	"github.com/elitcards/storefront/internal/pocketbase"
)

type checkoutFixture struct {
	handler *CheckoutHTTP
	cart    *cart.Service
}

// newCheckoutFixture wires a checkout handler against an unreachable remote,
// so the catalog resolves from the fallback and payment submissions are
// saved locally.
func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	kv, err := kvstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	client := pocketbase.New("http://127.0.0.1:1")
	policy := netpolicy.New("http://localhost:8000", "http://127.0.0.1:1")

	cartSvc := cart.New(kv, catalog.New(client, policy))
	return &checkoutFixture{
		handler: &CheckoutHTTP{
			Payments: payment.New(kv, client, policy, nil),
			Cart:     cartSvc,
			Currency: currency.New(kv),
		},
		cart: cartSvc,
	}
}

type formOptions struct {
	email       string
	file        bool
	filename    string
	contentType string
	size        int
}

func multipartBody(t *testing.T, opts formOptions) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if opts.email != "" {
		require.NoError(t, w.WriteField("email", opts.email))
	}
	if opts.file {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="screenshot"; filename="`+opts.filename+`"`)
		header.Set("Content-Type", opts.contentType)
		part, err := w.CreatePart(header)
		require.NoError(t, err)
		if opts.size == 0 {
			opts.size = 16
		}
		_, err = part.Write(bytes.Repeat([]byte("x"), opts.size))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func doConfirm(t *testing.T, h *CheckoutHTTP, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/checkout", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	require.NoError(t, h.Confirm(e.NewContext(req, rec)))
	return rec
}

func TestConfirm_MissingEmail(t *testing.T) {
	t.Parallel()

	fx := newCheckoutFixture(t)
	body, ct := multipartBody(t, formOptions{file: true, filename: "proof.png", contentType: "image/png"})

	rec := doConfirm(t, fx.handler, body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "please enter your email")
}

func TestConfirm_MissingScreenshot(t *testing.T) {
	t.Parallel()

	fx := newCheckoutFixture(t)
	body, ct := multipartBody(t, formOptions{email: "john@example.com"})

	rec := doConfirm(t, fx.handler, body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "please upload payment screenshot")
}

func TestConfirm_RejectsNonImageUpload(t *testing.T) {
	t.Parallel()

	fx := newCheckoutFixture(t)
	body, ct := multipartBody(t, formOptions{
		email: "john@example.com", file: true,
		filename: "proof.pdf", contentType: "application/pdf",
	})

	rec := doConfirm(t, fx.handler, body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "JPEG, PNG, GIF or WebP")
}

func TestConfirm_RejectsOversizedUpload(t *testing.T) {
	t.Parallel()

	fx := newCheckoutFixture(t)
	body, ct := multipartBody(t, formOptions{
		email: "john@example.com", file: true,
		filename: "proof.png", contentType: "image/png",
		size: maxScreenshotSize + 1,
	})

	rec := doConfirm(t, fx.handler, body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "less than 10MB")
}

func TestConfirm_EmptyCart(t *testing.T) {
	t.Parallel()

	fx := newCheckoutFixture(t)
	body, ct := multipartBody(t, formOptions{
		email: "john@example.com", file: true,
		filename: "proof.png", contentType: "image/png",
	})

	rec := doConfirm(t, fx.handler, body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "your cart is empty")
}

func TestConfirm_UnreachableRemoteSavesLocally(t *testing.T) {
	t.Parallel()

	fx := newCheckoutFixture(t)
	// Fallback catalog: id "1" costs $35.
	require.NoError(t, fx.cart.Add("1"))
	require.NoError(t, fx.cart.Add("1"))

	body, ct := multipartBody(t, formOptions{
		email: "john@example.com", file: true,
		filename: "proof.png", contentType: "image/png",
	})

	rec := doConfirm(t, fx.handler, body, ct)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Message string `json:"message"`
		Payment struct {
			Amount    float64 `json:"amount"`
			AmountGHS float64 `json:"amountGHS"`
			RemoteOK  bool    `json:"pbSuccess"`
			RemoteErr string  `json:"pbError"`
			Status    string  `json:"status"`
		} `json:"payment"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "Payment submitted (saved locally due to connection issue)", resp.Message)
	assert.False(t, resp.Payment.RemoteOK)
	assert.NotEmpty(t, resp.Payment.RemoteErr)
	assert.Equal(t, "pending", resp.Payment.Status)

	// $35 x 2 plus the $1 service fee, converted at the default rate.
	assert.Equal(t, 71.0, resp.Payment.Amount)
	assert.Equal(t, 887.5, resp.Payment.AmountGHS)

	// The cart is cleared even when the remote write failed.
	count, err := fx.cart.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}
