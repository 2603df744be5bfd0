package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elitcards/storefront/internal/kvstore"
	"github.com/elitcards/storefront/internal/models"
	"github.com/elitcards/storefront/internal/netpolicy"
	"github.com/elitcards/storefront/internal/pocketbase"
)

func newTestService(t *testing.T, remoteURL string) *Service {
	t.Helper()
	kv, err := kvstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	client := pocketbase.New(remoteURL)
	policy := netpolicy.New("http://localhost:8000", remoteURL)
	return New(kv, client, policy, nil)
}

func sampleInput() Input {
	return Input{
		Email:     "john@example.com",
		Amount:    71,
		Currency:  "USD",
		AmountGHS: 887.5,
		CartItems: []models.PaymentItem{
			{Title: "Titanium Discover", Price: 35, Quantity: 2, Total: 70},
		},
		ScreenshotName: "proof.png",
		Screenshot:     strings.NewReader("png-bytes"),
	}
}

func TestRecord_RemoteSuccess(t *testing.T) {
	t.Parallel()

	var gotNote noteBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "john@example.com", r.FormValue("email"))
		assert.Equal(t, "john@example.com", r.FormValue("name"))
		assert.Contains(t, r.MultipartForm.Value, "Card_type")
		require.NoError(t, json.Unmarshal([]byte(r.FormValue("note")), &gotNote))

		_, header, err := r.FormFile("Screenshot")
		require.NoError(t, err)
		assert.Equal(t, "proof.png", header.Filename)

		_, _ = w.Write([]byte(`{"id":"pay1","email":"john@example.com"}`))
	}))
	defer srv.Close()

	svc := newTestService(t, srv.URL)
	svc.now = func() time.Time { return time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC) }

	rec, err := svc.Record(context.Background(), sampleInput())
	require.NoError(t, err)

	assert.True(t, rec.RemoteOK)
	assert.Empty(t, rec.RemoteErr)
	assert.Equal(t, "pay1", rec.RemoteID)
	assert.Equal(t, models.StatusPending, rec.Status)
	assert.Equal(t, "2026-08-28T10:00:00Z", rec.SubmittedAt)

	assert.Equal(t, 71.0, gotNote.Amount)
	assert.Equal(t, "USD", gotNote.Currency)
	assert.Equal(t, 887.5, gotNote.AmountGHS)
	assert.Equal(t, models.StatusPending, gotNote.Status)
	require.Len(t, gotNote.CartItems, 1)
	assert.Equal(t, "Titanium Discover", gotNote.CartItems[0].Title)

	// Appended to the local log as well.
	var log []models.PaymentRecord
	require.NoError(t, svc.KV.Get(kvstore.KeyPayments, &log))
	require.Len(t, log, 1)
	assert.True(t, log[0].RemoteOK)
}

func TestRecord_RemoteRejectionSavedLocally(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":400,"message":"Failed to create record."}`))
	}))
	defer srv.Close()

	svc := newTestService(t, srv.URL)

	rec, err := svc.Record(context.Background(), sampleInput())
	require.NoError(t, err, "checkout never fails on a remote error")

	assert.False(t, rec.RemoteOK)
	assert.Contains(t, rec.RemoteErr, "Failed to create record")
	assert.Empty(t, rec.RemoteID)

	var log []models.PaymentRecord
	require.NoError(t, svc.KV.Get(kvstore.KeyPayments, &log))
	require.Len(t, log, 1)
	assert.False(t, log[0].RemoteOK)
	assert.NotEmpty(t, log[0].RemoteErr)
}

func TestRecord_AttemptsRemoteUnderMixedContent(t *testing.T) {
	t.Parallel()

	kv, err := kvstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte(`{"id":"pay1"}`))
	}))
	defer srv.Close()

	// HTTPS app origin with an HTTP remote blocks reads, never payments.
	policy := netpolicy.New("https://shop.example.com", srv.URL)
	svc := New(kv, pocketbase.New(srv.URL), policy, nil)

	rec, err := svc.Record(context.Background(), sampleInput())
	require.NoError(t, err)
	assert.Equal(t, 1, hits)
	assert.True(t, rec.RemoteOK)
}

func TestRecord_EmailRequired(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, "http://127.0.0.1:1")
	in := sampleInput()
	in.Email = ""

	_, err := svc.Record(context.Background(), in)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUserPayments_RemoteList(t *testing.T) {
	t.Parallel()

	note := `{"amount":71,"currency":"USD","amountGHS":887.5,"cartItems":[{"title":"Titanium Discover","price":35,"quantity":2,"total":70}],"status":"pending","submittedAt":"2026-08-20T09:00:00Z"}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, `email = "john@example.com"`, r.URL.Query().Get("filter"))
		assert.Equal(t, "-created", r.URL.Query().Get("sort"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"page": 1, "totalItems": 1,
			"items": []map[string]any{
				{"id": "pay1", "email": "john@example.com", "note": note, "Screenshot": "proof.png", "created": "2026-08-20 09:00:01.000Z"},
			},
		})
	}))
	defer srv.Close()

	svc := newTestService(t, srv.URL)

	payments, source, err := svc.UserPayments(context.Background(), "john@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.SourceRemote, source)
	require.Len(t, payments, 1)

	p := payments[0]
	assert.Equal(t, "pay1", p.RemoteID)
	assert.Equal(t, 71.0, p.Amount)
	assert.Equal(t, 887.5, p.AmountGHS)
	assert.Equal(t, models.StatusPending, p.Status)
	assert.Equal(t, srv.URL+"/api/files/payment_proofs/pay1/proof.png", p.Screenshot)
}

func TestUserPayments_EmptyRemoteFallsBackLocal(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"page": 1, "items": []any{}})
	}))
	defer srv.Close()

	svc := newTestService(t, srv.URL)
	require.NoError(t, svc.appendLocal(models.PaymentRecord{UserEmail: "john@example.com", Amount: 36, SubmittedAt: "2026-08-01T00:00:00Z"}))
	require.NoError(t, svc.appendLocal(models.PaymentRecord{UserEmail: "jane@example.com", Amount: 51, SubmittedAt: "2026-08-02T00:00:00Z"}))
	require.NoError(t, svc.appendLocal(models.PaymentRecord{UserEmail: "john@example.com", Amount: 71, SubmittedAt: "2026-08-03T00:00:00Z"}))

	payments, source, err := svc.UserPayments(context.Background(), "john@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.SourceLocal, source)
	require.Len(t, payments, 2)

	// Newest first, other users filtered out.
	assert.Equal(t, 71.0, payments[0].Amount)
	assert.Equal(t, 36.0, payments[1].Amount)
}

func TestUserPayments_RemoteFailureFallsBackLocal(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, "http://127.0.0.1:1")
	require.NoError(t, svc.appendLocal(models.PaymentRecord{UserEmail: "john@example.com", Amount: 36}))

	payments, source, err := svc.UserPayments(context.Background(), "john@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.SourceLocal, source)
	assert.Len(t, payments, 1)
}

func TestRecentOrders_CapsAtFive(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, "http://127.0.0.1:1")
	for i := 0; i < 7; i++ {
		require.NoError(t, svc.appendLocal(models.PaymentRecord{
			UserEmail:   "john@example.com",
			Amount:      float64(10 + i),
			AmountGHS:   float64(10+i) * 12.5,
			Status:      models.StatusPending,
			SubmittedAt: "2026-08-03T00:00:00Z",
		}))
	}

	orders, err := svc.RecentOrders(context.Background(), "john@example.com")
	require.NoError(t, err)
	require.Len(t, orders, 5)

	assert.Equal(t, "$16 (GHS 200)", orders[0].Total, "newest payment first")
	assert.Equal(t, "8/3/2026", orders[0].Date)
	assert.Equal(t, models.StatusPending, orders[0].Status)
	assert.True(t, strings.HasPrefix(orders[0].ID, "local_"), "local records get a synthetic id")
}
