package pocketbase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Collection names on the hosted PocketBase instance.
const (
	CollectionCards    = "Cards"
	CollectionUsers    = "users"
	CollectionPayments = "payment_proofs"
)

const requestTimeout = 30 * time.Second

// APIError is a non-2xx response from PocketBase.
type APIError struct {
	Status  int    `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pocketbase: %d %s", e.Status, e.Message)
}

// Client talks to a PocketBase instance over its REST API. All requests go
// through a circuit breaker so a dead backend degrades to fast local
// fallback instead of serial 30s timeouts. Client errors (4xx) do not count
// against the breaker; only transport failures and 5xx responses do.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
}

func New(baseURL string) *Client {
	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "pocketbase",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var apiErr *APIError
			return errors.As(err, &apiErr) && apiErr.Status < 500
		},
	})
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: requestTimeout},
		breaker: cb,
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

// FileURL builds the download URL for a stored file.
func (c *Client) FileURL(collection, recordID, filename string) string {
	return fmt.Sprintf("%s/api/files/%s/%s/%s", c.baseURL, collection, recordID, filename)
}

// ListResult is one page of records. Items are raw so each accessor can
// unmarshal its own collection shape.
type ListResult struct {
	Page       int               `json:"page"`
	PerPage    int               `json:"perPage"`
	TotalItems int               `json:"totalItems"`
	Items      []json.RawMessage `json:"items"`
}

type ListOptions struct {
	Sort   string
	Filter string
}

// List fetches one page of a collection.
func (c *Client) List(ctx context.Context, collection string, page, perPage int, opts ListOptions) (*ListResult, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("perPage", strconv.Itoa(perPage))
	if opts.Sort != "" {
		q.Set("sort", opts.Sort)
	}
	if opts.Filter != "" {
		q.Set("filter", opts.Filter)
	}

	body, err := c.do(ctx, http.MethodGet, c.recordsURL(collection)+"?"+q.Encode(), "", nil)
	if err != nil {
		return nil, err
	}
	var res ListResult
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("decode list response: %w", err)
	}
	return &res, nil
}

// GetOne fetches a single record by id.
func (c *Client) GetOne(ctx context.Context, collection, id string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, c.recordsURL(collection)+"/"+url.PathEscape(id), "", nil)
}

// Create creates a record from a JSON body.
func (c *Client) Create(ctx context.Context, collection string, record any) (json.RawMessage, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return c.do(ctx, http.MethodPost, c.recordsURL(collection), "application/json", bytes.NewReader(data))
}

// CreateMultipart creates a record from form fields plus an optional file.
func (c *Client) CreateMultipart(ctx context.Context, collection string, fields map[string]string, fileField, fileName string, file io.Reader) (json.RawMessage, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("write form field %q: %w", k, err)
		}
	}
	if file != nil {
		fw, err := w.CreateFormFile(fileField, fileName)
		if err != nil {
			return nil, fmt.Errorf("create form file: %w", err)
		}
		if _, err := io.Copy(fw, file); err != nil {
			return nil, fmt.Errorf("copy file: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPost, c.recordsURL(collection), w.FormDataContentType(), &buf)
}

// AuthResponse is the result of a password authentication.
type AuthResponse struct {
	Token  string          `json:"token"`
	Record json.RawMessage `json:"record"`
}

// AuthWithPassword authenticates against an auth collection.
func (c *Client) AuthWithPassword(ctx context.Context, collection, identity, password string) (*AuthResponse, error) {
	data, err := json.Marshal(map[string]string{
		"identity": identity,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s/api/collections/%s/auth-with-password", c.baseURL, url.PathEscape(collection))
	body, err := c.do(ctx, http.MethodPost, u, "application/json", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var res AuthResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("decode auth response: %w", err)
	}
	return &res, nil
}

// Health checks the instance health endpoint.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, c.baseURL+"/api/health", "", nil)
	return err
}

func (c *Client) recordsURL(collection string) string {
	return fmt.Sprintf("%s/api/collections/%s/records", c.baseURL, url.PathEscape(collection))
}

func (c *Client) do(ctx context.Context, method, rawURL, contentType string, body io.Reader) ([]byte, error) {
	return c.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
		if err != nil {
			return nil, err
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("pocketbase request: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode >= 400 {
			apiErr := &APIError{Status: resp.StatusCode}
			if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Message == "" {
				apiErr.Message = http.StatusText(resp.StatusCode)
			}
			apiErr.Status = resp.StatusCode
			return nil, apiErr
		}
		return data, nil
	})
}
