// Package client is a REST client for the order service API.
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

	"bazaar/internal/model"

	"github.com/rs/zerolog"
)

const (
	defaultTimeout   = 10 * time.Second
	maxResponseBytes = 1 << 20
)

// Client calls the order service on behalf of an authenticated user. Every
// method takes the caller's bearer token; requests are never retried.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// New creates a client for the API at baseURL. A zero timeout uses 10 seconds.
func New(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "api-client").Logger(),
	}
}

// ListProducts fetches a page of the catalog.
func (c *Client) ListProducts(ctx context.Context, token string, filter model.ProductFilter) (*model.Page[model.ProductView], error) {
	q := url.Values{}
	setInt(q, "page", filter.Page)
	setInt(q, "limit", filter.Limit)
	if filter.ShopID > 0 {
		q.Set("shopId", strconv.FormatInt(filter.ShopID, 10))
	}
	setString(q, "status", filter.Status)
	setString(q, "category", filter.Category)
	setString(q, "search", filter.Search)
	setString(q, "sort", filter.Sort)

	var page model.Page[model.ProductView]
	if err := c.do(ctx, token, http.MethodGet, "/api/products", q, nil, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetProduct fetches one product with its resolved price.
func (c *Client) GetProduct(ctx context.Context, token string, id int64) (*model.ProductView, error) {
	var view model.ProductView
	if err := c.do(ctx, token, http.MethodGet, "/api/products/"+strconv.FormatInt(id, 10), nil, nil, nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// CreateOrder places an order. The idempotency key travels in both the body
// and the Idempotency-Key header.
func (c *Client) CreateOrder(ctx context.Context, token string, req *model.CreateOrderRequest) (*model.OrderCreated, error) {
	if req == nil {
		return nil, model.ErrMissingOrderRequest
	}

	header := http.Header{}
	if req.IdempotencyKey != "" {
		header.Set("Idempotency-Key", req.IdempotencyKey)
	}

	var created model.OrderCreated
	if err := c.do(ctx, token, http.MethodPost, "/api/orders", nil, header, req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// GetOrder fetches an order with its items.
func (c *Client) GetOrder(ctx context.Context, token string, id int64) (*model.Order, error) {
	var order model.Order
	if err := c.do(ctx, token, http.MethodGet, orderPath(id, ""), nil, nil, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrders fetches a page of the caller's orders.
func (c *Client) ListOrders(ctx context.Context, token string, filter model.OrderFilter) (*model.Page[model.Order], error) {
	q := url.Values{}
	setInt(q, "page", filter.Page)
	setInt(q, "limit", filter.Limit)
	setString(q, "status", filter.Status)
	setString(q, "role", filter.Role)

	var page model.Page[model.Order]
	if err := c.do(ctx, token, http.MethodGet, "/api/orders", q, nil, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Transitions fetches the statuses the caller may move the order to.
func (c *Client) Transitions(ctx context.Context, token string, id int64) (*model.TransitionsResponse, error) {
	var resp model.TransitionsResponse
	if err := c.do(ctx, token, http.MethodGet, orderPath(id, "/transitions"), nil, nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateOrderStatus asks the service to move an order as its seller.
func (c *Client) UpdateOrderStatus(ctx context.Context, token string, orderID int64, status model.OrderStatus) (*model.Order, error) {
	var order model.Order
	body := model.StatusUpdateRequest{Status: status}
	if err := c.do(ctx, token, http.MethodPatch, orderPath(orderID, "/status"), nil, nil, body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// CancelOrder asks the service to cancel an order as its buyer.
func (c *Client) CancelOrder(ctx context.Context, token string, orderID int64, reason string) (*model.Order, error) {
	var order model.Order
	body := model.CancelRequest{Reason: reason}
	if err := c.do(ctx, token, http.MethodPost, orderPath(orderID, "/cancel"), nil, nil, body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// do sends one request and decodes a 2xx body into out. Other statuses become
// remote domain errors carrying the server's code and message.
func (c *Client) do(ctx context.Context, token, method, path string, query url.Values, header http.Header, in, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if len(respBody) > maxResponseBytes {
		c.logger.Error().Str("method", method).Str("path", path).Msg("response too large")
		return fmt.Errorf("%s %s: response exceeds %d bytes", method, path, maxResponseBytes)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		remote := decodeError(resp.StatusCode, respBody)
		c.logger.Warn().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Str("code", remote.Code).
			Msg("request rejected")
		return remote
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(status int, body []byte) *model.DomainError {
	var errResp model.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return model.NewRemoteError("", fmt.Sprintf("unexpected status %d: %s", status, strings.TrimSpace(string(body))))
	}
	return model.NewRemoteError(errResp.Error, errResp.Message)
}

func orderPath(id int64, suffix string) string {
	return "/api/orders/" + strconv.FormatInt(id, 10) + suffix
}

func setInt(q url.Values, key string, v int) {
	if v > 0 {
		q.Set(key, strconv.Itoa(v))
	}
}

func setString(q url.Values, key, v string) {
	if v != "" {
		q.Set(key, v)
	}
}
