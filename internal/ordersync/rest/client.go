package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"order-board/internal/ordersync/domain/dto"
)

// Client talks to the order REST endpoints: initial load, poll
// reconciliation, walk-in submission and user-triggered status changes.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// ListActive fetches the authoritative list of non-terminal orders.
func (c *Client) ListActive(ctx context.Context) ([]dto.OrderPayload, error) {
	return c.list(ctx, nil)
}

// ListFiltered fetches orders by status and/or date (YYYY-MM-DD). Empty
// values are omitted from the query.
func (c *Client) ListFiltered(ctx context.Context, status, date string) ([]dto.OrderPayload, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if date != "" {
		q.Set("date", date)
	}
	return c.list(ctx, q)
}

func (c *Client) list(ctx context.Context, q url.Values) ([]dto.OrderPayload, error) {
	endpoint := c.baseURL + "/orders"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch orders: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch orders: unexpected status %d", resp.StatusCode)
	}

	var payloads []dto.OrderPayload
	if err := json.NewDecoder(resp.Body).Decode(&payloads); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return payloads, nil
}

// ChangeStatus requests a lifecycle transition for one order. The caller
// applies the change optimistically; the websocket confirms or corrects it.
func (c *Client) ChangeStatus(ctx context.Context, orderID int64, status string) error {
	body, err := json.Marshal(dto.StatusChangeRequest{Status: status})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/orders/%d/status", c.baseURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("change status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("change status: server said %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

// SubmitOrder places a walk-in order and returns the created payload.
func (c *Client) SubmitOrder(ctx context.Context, order dto.CreateOrderRequest) (dto.OrderPayload, error) {
	body, err := json.Marshal(order)
	if err != nil {
		return dto.OrderPayload{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return dto.OrderPayload{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return dto.OrderPayload{}, fmt.Errorf("submit order: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return dto.OrderPayload{}, fmt.Errorf("submit order: server said %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var created dto.OrderPayload
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return dto.OrderPayload{}, fmt.Errorf("decode created order: %w", err)
	}
	return created, nil
}
