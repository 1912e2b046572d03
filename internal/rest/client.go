package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/mise/clients/counter/internal/models"
)

// Client talks to the backend's order REST API. It is the degraded-mode
// data path when the real-time channel is down, and the request path for
// status transitions.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// apiError is the backend's error envelope.
type apiError struct {
	Error string `json:"error"`
}

// ListOrders fetches the most recent orders, newest first.
func (c *Client) ListOrders(ctx context.Context, limit int) ([]models.Order, error) {
	url := fmt.Sprintf("%s/orders?limit=%d", c.baseURL, limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build list orders request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch orders")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("list orders returned status %d", resp.StatusCode)
	}

	var orders []models.Order
	if err := json.NewDecoder(resp.Body).Decode(&orders); err != nil {
		return nil, errors.Wrap(err, "failed to decode order list")
	}
	return orders, nil
}

// UpdateOrderStatus requests a status transition. The returned order is
// the backend's authoritative snapshot; a rejected transition comes back
// as an error and the caller must not keep its optimistic guess.
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus, changedBy string) (*models.Order, error) {
	body, err := json.Marshal(map[string]string{
		"status":    string(status),
		"changedBy": changedBy,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode status update")
	}

	url := fmt.Sprintf("%s/orders/%s/status", c.baseURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build status update request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to request status update")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return nil, errors.Errorf("status update rejected: %s", apiErr.Error)
		}
		return nil, errors.Errorf("status update returned status %d", resp.StatusCode)
	}

	var order models.Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, errors.Wrap(err, "failed to decode updated order")
	}
	return &order, nil
}

// RegisterDevice announces this install to the backend. Best-effort: a
// failure is logged and never blocks connecting.
func (c *Client) RegisterDevice(ctx context.Context, restaurantID string, reg models.DeviceRegistration) error {
	body, err := json.Marshal(reg)
	if err != nil {
		return errors.Wrap(err, "failed to encode device registration")
	}

	url := fmt.Sprintf("%s/restaurant/%s/devices/register", c.baseURL, restaurantID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "failed to build device registration request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to register device")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return errors.Errorf("device registration returned status %d", resp.StatusCode)
	}

	log.Debug().Str("device_id", reg.DeviceID).Str("restaurant_id", restaurantID).
		Msg("Device registered")
	return nil
}
