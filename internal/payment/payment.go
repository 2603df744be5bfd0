package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/elitcards/storefront/internal/currency"
	"github.com/elitcards/storefront/internal/events"
	"github.com/elitcards/storefront/internal/kvstore"
	"github.com/elitcards/storefront/internal/logging"
	"github.com/elitcards/storefront/internal/models"
	"github.com/elitcards/storefront/internal/netpolicy"
	"github.com/elitcards/storefront/internal/pocketbase"
)

var ErrValidation = errors.New("validation")

// proofRecord is the payment_proofs collection shape on PocketBase. The
// structured payment data travels inside the JSON note field.
type proofRecord struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Note       string `json:"note"`
	Screenshot string `json:"Screenshot"`
	Created    string `json:"created"`
}

type noteBody struct {
	Amount      float64              `json:"amount"`
	Currency    string               `json:"currency"`
	AmountGHS   float64              `json:"amountGHS"`
	CartItems   []models.PaymentItem `json:"cartItems"`
	Status      string               `json:"status"`
	SubmittedAt string               `json:"submittedAt"`
}

// Input is one checkout confirmation.
type Input struct {
	Email          string
	Amount         float64
	Currency       string
	AmountGHS      float64
	CartItems      []models.PaymentItem
	ScreenshotName string
	Screenshot     io.Reader
}

// Service records manual mobile-money payment proofs. Remote submission is
// always attempted (payments are exempt from the mixed-content skip), its
// failure is captured on the record, and the record is appended to the
// local payment log in every case. Checkout never fails on a remote error.
type Service struct {
	KV     *kvstore.Store
	Client *pocketbase.Client
	Policy *netpolicy.Policy
	Events *events.Producer

	now func() time.Time
}

func New(kv *kvstore.Store, client *pocketbase.Client, policy *netpolicy.Policy, producer *events.Producer) *Service {
	return &Service{KV: kv, Client: client, Policy: policy, Events: producer, now: time.Now}
}

// Record submits a payment proof. The returned record carries RemoteOK and
// RemoteErr so callers can distinguish "submitted to server" from "saved
// locally only". The only errors returned are local-log write failures.
func (s *Service) Record(ctx context.Context, in Input) (*models.PaymentRecord, error) {
	l := logging.FromContext(ctx).With("svc", "payment.record", "email", in.Email)

	if in.Email == "" {
		return nil, fmt.Errorf("email required: %w", ErrValidation)
	}
	if in.Currency == "" {
		in.Currency = "USD"
	}

	rec := models.PaymentRecord{
		UserEmail:   in.Email,
		Amount:      in.Amount,
		Currency:    in.Currency,
		AmountGHS:   in.AmountGHS,
		CartItems:   in.CartItems,
		Screenshot:  in.ScreenshotName,
		Status:      models.StatusPending,
		SubmittedAt: s.now().UTC().Format(time.RFC3339),
	}

	// Payments always attempt the remote write, mixed content or not.
	if s.Policy.AllowRemote(netpolicy.OpCreatePayment) {
		if err := s.submitRemote(ctx, &rec, in); err != nil {
			rec.RemoteErr = err.Error()
			l.Error("remote payment submission failed", "error", err)
		} else {
			rec.RemoteOK = true
			l.Info("payment recorded remotely", "pb_id", rec.RemoteID)
		}
	}

	if err := s.appendLocal(rec); err != nil {
		return nil, err
	}

	if err := s.Events.Publish(ctx, in.Email, map[string]any{
		"type":       "payment_recorded",
		"email":      in.Email,
		"amount":     in.Amount,
		"currency":   in.Currency,
		"remote_ok":  rec.RemoteOK,
		"recorded_at": rec.SubmittedAt,
	}); err != nil {
		l.Warn("event publish failed", "error", err)
	}

	return &rec, nil
}

func (s *Service) submitRemote(ctx context.Context, rec *models.PaymentRecord, in Input) error {
	note, err := json.Marshal(noteBody{
		Amount:      rec.Amount,
		Currency:    rec.Currency,
		AmountGHS:   rec.AmountGHS,
		CartItems:   rec.CartItems,
		Status:      rec.Status,
		SubmittedAt: rec.SubmittedAt,
	})
	if err != nil {
		return err
	}

	fields := map[string]string{
		"email": rec.UserEmail,
		"name":  rec.UserEmail,
		// Card_type is required by the collection but carries nothing here.
		"Card_type": "",
		"note":      string(note),
	}

	raw, err := s.Client.CreateMultipart(ctx, pocketbase.CollectionPayments, fields, "Screenshot", in.ScreenshotName, in.Screenshot)
	if err != nil {
		return err
	}
	var created proofRecord
	if err := json.Unmarshal(raw, &created); err != nil {
		return fmt.Errorf("decode payment record: %w", err)
	}
	rec.RemoteID = created.ID
	return nil
}

func (s *Service) appendLocal(rec models.PaymentRecord) error {
	log, err := s.localLog()
	if err != nil {
		return err
	}
	log = append(log, rec)
	return s.KV.Set(kvstore.KeyPayments, log)
}

func (s *Service) localLog() ([]models.PaymentRecord, error) {
	var log []models.PaymentRecord
	err := s.KV.Get(kvstore.KeyPayments, &log)
	switch {
	case err == nil:
		return log, nil
	case errors.Is(err, kvstore.ErrNotFound):
		return []models.PaymentRecord{}, nil
	default:
		if err := s.KV.Set(kvstore.KeyPayments, []models.PaymentRecord{}); err != nil {
			return nil, err
		}
		return []models.PaymentRecord{}, nil
	}
}

// UserPayments lists payments for email: remote filtered list first, local
// log when the remote call fails or yields nothing.
func (s *Service) UserPayments(ctx context.Context, email string) ([]models.PaymentRecord, models.Source, error) {
	l := logging.FromContext(ctx).With("svc", "payment.user_payments", "email", email)

	if s.Policy.AllowRemote(netpolicy.OpListPayments) {
		res, err := s.Client.List(ctx, pocketbase.CollectionPayments, 1, 50, pocketbase.ListOptions{
			Filter: fmt.Sprintf("email = %q", email),
			Sort:   "-created",
		})
		if err != nil {
			l.Warn("remote payment list failed, local fallback", "error", err)
		} else if len(res.Items) > 0 {
			payments := make([]models.PaymentRecord, 0, len(res.Items))
			for _, raw := range res.Items {
				var rec proofRecord
				if err := json.Unmarshal(raw, &rec); err != nil {
					l.Warn("skipping malformed payment record", "error", err)
					continue
				}
				payments = append(payments, s.fromProof(rec))
			}
			return payments, models.SourceRemote, nil
		}
	}

	log, err := s.localLog()
	if err != nil {
		return nil, "", err
	}
	// The local log is append-ordered; walk it backwards so callers see
	// newest first, matching the remote sort.
	payments := make([]models.PaymentRecord, 0)
	for i := len(log) - 1; i >= 0; i-- {
		if log[i].UserEmail == email {
			payments = append(payments, log[i])
		}
	}
	return payments, models.SourceLocal, nil
}

func (s *Service) fromProof(rec proofRecord) models.PaymentRecord {
	var note noteBody
	if rec.Note != "" {
		if err := json.Unmarshal([]byte(rec.Note), &note); err != nil {
			note = noteBody{}
		}
	}
	out := models.PaymentRecord{
		RemoteID:    rec.ID,
		UserEmail:   rec.Email,
		Amount:      note.Amount,
		Currency:    note.Currency,
		AmountGHS:   note.AmountGHS,
		CartItems:   note.CartItems,
		Status:      note.Status,
		SubmittedAt: note.SubmittedAt,
		RemoteOK:    true,
	}
	if out.Currency == "" {
		out.Currency = "USD"
	}
	if out.Status == "" {
		out.Status = models.StatusPending
	}
	if out.SubmittedAt == "" {
		out.SubmittedAt = rec.Created
	}
	if rec.Screenshot != "" {
		out.Screenshot = s.Client.FileURL(pocketbase.CollectionPayments, rec.ID, rec.Screenshot)
	}
	return out
}

// RecentOrders maps the user's payments into display summaries, capped at
// the 5 most recent.
func (s *Service) RecentOrders(ctx context.Context, email string) ([]models.OrderSummary, error) {
	payments, _, err := s.UserPayments(ctx, email)
	if err != nil {
		return nil, err
	}

	orders := make([]models.OrderSummary, 0, len(payments))
	for _, p := range payments {
		id := p.RemoteID
		if id == "" {
			id = "local_" + uuid.NewString()
		}
		orders = append(orders, models.OrderSummary{
			ID:         id,
			Date:       formatDate(p.SubmittedAt),
			Items:      p.CartItems,
			Total:      currency.FormatTotal(p.Amount, p.AmountGHS),
			Status:     p.Status,
			Screenshot: p.Screenshot,
		})
	}
	if len(orders) > 5 {
		orders = orders[:5]
	}
	return orders, nil
}

func formatDate(submittedAt string) string {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05.000Z"} {
		if t, err := time.Parse(layout, submittedAt); err == nil {
			return t.Format("1/2/2006")
		}
	}
	return submittedAt
}
