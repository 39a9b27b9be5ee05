// Package client talks to the foodshop HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/foodshop/pkg/identity"
	"github.com/example/foodshop/pkg/models"
	"github.com/example/foodshop/pkg/shop"
)

// APIError is a non-2xx answer. It unwraps to the matching shop sentinel so callers can
// use errors.Is the same way they would against the services.
type APIError struct {
	Status   int
	Message  string
	Fields   map[string]string
	Redirect string
}

func (e *APIError) Error() string {
	if len(e.Fields) > 0 {
		return (&shop.ValidationError{Fields: e.Fields}).Error()
	}
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest:
		if len(e.Fields) > 0 {
			return &shop.ValidationError{Fields: e.Fields}
		}
	case http.StatusUnauthorized:
		return identity.ErrInvalidSession
	case http.StatusForbidden:
		return shop.ErrForbidden
	case http.StatusNotFound:
		if e.Message == "User not found. Please register first." {
			return shop.ErrUserNotRegistered
		}
		return shop.ErrNotFound
	case http.StatusConflict:
		// Sent when the session's user row is gone.
		if e.Redirect != "" {
			return shop.ErrUserNotRegistered
		}
		return shop.ErrConflict
	}
	if e.Status >= http.StatusInternalServerError {
		return shop.ErrOperationFailed
	}
	return nil
}

type Client struct {
	baseURL string
	http    *http.Client
	token   string
	apiKey  string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	Success  bool              `json:"success"`
	Data     json.RawMessage   `json:"data"`
	Error    string            `json:"error"`
	Fields   map[string]string `json:"fields"`
	Redirect string            `json:"redirect"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}, headers map[string]string, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	if resp.StatusCode >= 300 || !env.Success {
		return &APIError{Status: resp.StatusCode, Message: env.Error, Fields: env.Fields, Redirect: env.Redirect}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

func pageQuery(p shop.Page) url.Values {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	return q
}

// Catalog

func (c *Client) ListCategories(ctx context.Context, p shop.Page) (*shop.Paged[models.Category], error) {
	var out shop.Paged[models.Category]
	return &out, c.do(ctx, http.MethodGet, "/api/v1/categories", pageQuery(p), nil, nil, &out)
}

func (c *Client) ListProducts(ctx context.Context, f shop.ProductFilter) (*shop.Paged[models.Product], error) {
	q := pageQuery(f.Page)
	for k, v := range map[string]string{"category_id": f.CategoryID, "search": f.Search, "sort": f.Sort} {
		if v != "" {
			q.Set(k, v)
		}
	}
	if f.MinPrice != nil {
		q.Set("min_price", f.MinPrice.String())
	}
	if f.MaxPrice != nil {
		q.Set("max_price", f.MaxPrice.String())
	}

	var out shop.Paged[models.Product]
	return &out, c.do(ctx, http.MethodGet, "/api/v1/products", q, nil, nil, &out)
}

func (c *Client) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var out models.Product
	return &out, c.do(ctx, http.MethodGet, "/api/v1/products/"+url.PathEscape(id), nil, nil, nil, &out)
}

// Accounts

func (c *Client) Register(ctx context.Context, idToken, fullName string) (*identity.Session, error) {
	var out identity.Session
	body := map[string]string{"id_token": idToken, "full_name": fullName}
	return &out, c.do(ctx, http.MethodPost, "/api/v1/auth/register", nil, body, nil, &out)
}

func (c *Client) Login(ctx context.Context, idToken string) (*identity.Session, error) {
	var out identity.Session
	return &out, c.do(ctx, http.MethodPost, "/api/v1/auth/login", nil, map[string]string{"id_token": idToken}, nil, &out)
}

// CheckUserExists looks up the signed-in user's own number.
func (c *Client) CheckUserExists(ctx context.Context, mobile string) (*models.User, bool, error) {
	var out struct {
		Exists bool         `json:"exists"`
		User   *models.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/users/lookup", url.Values{"mobile": {mobile}}, nil, nil, &out); err != nil {
		return nil, false, err
	}
	return out.User, out.Exists, nil
}

// Orders

func (c *Client) PlaceOrder(ctx context.Context, req shop.PlaceOrderRequest) (*models.Order, error) {
	var headers map[string]string
	if req.IdempotencyKey != "" {
		headers = map[string]string{"Idempotency-Key": req.IdempotencyKey}
	}
	var out models.Order
	return &out, c.do(ctx, http.MethodPost, "/api/v1/orders", nil, req, headers, &out)
}

func (c *Client) ListOrders(ctx context.Context, p shop.Page) (*shop.Paged[models.Order], error) {
	var out shop.Paged[models.Order]
	return &out, c.do(ctx, http.MethodGet, "/api/v1/orders", pageQuery(p), nil, nil, &out)
}

// Admin

func (c *Client) Dashboard(ctx context.Context) (*shop.Summary, error) {
	var out shop.Summary
	return &out, c.do(ctx, http.MethodGet, "/api/v1/admin/dashboard", nil, nil, nil, &out)
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id, status string) (*models.Order, error) {
	var out models.Order
	path := "/api/v1/admin/orders/" + url.PathEscape(id) + "/status"
	return &out, c.do(ctx, http.MethodPut, path, nil, map[string]string{"status": status}, nil, &out)
}

// ExportProducts streams the product workbook into w.
func (c *Client) ExportProducts(ctx context.Context, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/admin/products/export", nil)
	if err != nil {
		return 0, err
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to call export: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var env envelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			return 0, &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return 0, &APIError{Status: resp.StatusCode, Message: env.Error}
	}
	return io.Copy(w, resp.Body)
}
