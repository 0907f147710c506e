package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"marketplace/apps/marketplace/internal/model"
)

// ErrOrderNotFound is returned by Client.GetOrder for an unknown order id.
var ErrOrderNotFound = errors.New("order not found")

// Client reads stored orders from the order API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type apiResponse struct {
	Success bool          `json:"success"`
	Order   model.Order   `json:"order"`
	Orders  []model.Order `json:"orders"`
	Error   string        `json:"error"`
}

// GetOrder fetches a single order by id.
func (c *Client) GetOrder(ctx context.Context, id string) (model.Order, error) {
	resp, err := c.get(ctx, "/order/"+url.PathEscape(id))
	if err != nil {
		if errors.Is(err, errNotFoundStatus) {
			return model.Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
		}
		return model.Order{}, err
	}
	return resp.Order, nil
}

// ListOrders fetches every order, or the orders of seller when it is not empty.
func (c *Client) ListOrders(ctx context.Context, seller string) ([]model.Order, error) {
	path := "/orders"
	if seller != "" {
		path += "/" + url.PathEscape(seller)
	}

	resp, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

var errNotFoundStatus = errors.New("not found")

func (c *Client) get(ctx context.Context, path string) (*apiResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call order API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errNotFoundStatus
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode order API response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || !body.Success {
		return nil, fmt.Errorf("order API returned status %d: %s", resp.StatusCode, body.Error)
	}
	return &body, nil
}
