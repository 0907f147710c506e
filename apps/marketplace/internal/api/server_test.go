package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"marketplace/apps/marketplace/internal/model"
	"marketplace/apps/marketplace/internal/orders"
	"marketplace/apps/marketplace/internal/repository"
)

const listingBody = `{
	"tokenId": "5",
	"price": "1000",
	"nftContract": "0xA",
	"marketplaceContract": "0xB",
	"sellerAddress": "0xSeller",
	"seaportOrder": {"parameters": {"offerer": "0xSeller"}, "signature": "0x"}
}`

type brokenStore struct {
	repository.MemoryStore
}

func (s *brokenStore) Append(ctx context.Context, order model.Order) (model.Order, error) {
	return model.Order{}, fmt.Errorf("%w: disk full", repository.ErrStorageUnavailable)
}

func (s *brokenStore) ListAll(ctx context.Context) ([]model.Order, error) {
	return nil, fmt.Errorf("%w: disk gone", repository.ErrStorageUnavailable)
}

func newTestServer(t *testing.T, store repository.OrderStore) *httptest.Server {
	t.Helper()
	logger := zap.NewNop()
	srv := NewServer(0, "*", orders.NewService(store, nil, logger), logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postOrder(t *testing.T, ts *httptest.Server, body string) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	resp, err := http.Post(ts.URL+"/order", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func getOrders(t *testing.T, ts *httptest.Server, path string) (int, OrdersResponse) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded OrdersResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

func withOrderHash(body, hash string) string {
	return strings.Replace(body, `"tokenId"`, `"orderHash": "`+hash+`", "tokenId"`, 1)
}

func TestOrderLifecycle(t *testing.T) {
	ts := newTestServer(t, repository.NewJSONStore(filepath.Join(t.TempDir(), "db.json"), zap.NewNop()))

	var first, second model.Order

	t.Run("CreateOffChainOrder", func(t *testing.T) {
		resp, body := postOrder(t, ts, listingBody)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `true`, string(body["success"]))

		require.NoError(t, json.Unmarshal(body["order"], &first))
		assert.False(t, first.OnChain)
		assert.Equal(t, "5", first.TokenID)
		assert.NotEmpty(t, first.ID)
		assert.Nil(t, first.OrderHash)
		assert.Contains(t, string(body["order"]), `"orderHash":null`)
	})

	t.Run("CreateOnChainOrder", func(t *testing.T) {
		resp, body := postOrder(t, ts, withOrderHash(listingBody, "0xHash"))
		require.Equal(t, http.StatusOK, resp.StatusCode)

		require.NoError(t, json.Unmarshal(body["order"], &second))
		assert.True(t, second.OnChain)
		require.NotNil(t, second.OrderHash)
		assert.Equal(t, "0xHash", *second.OrderHash)
		assert.NotEqual(t, first.ID, second.ID)
	})

	t.Run("MissingPrice", func(t *testing.T) {
		resp, body := postOrder(t, ts, strings.Replace(listingBody, `"price": "1000",`, "", 1))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.JSONEq(t, `false`, string(body["success"]))
		assert.JSONEq(t, `"Missing parameters"`, string(body["error"]))
	})

	t.Run("ListBySellerIgnoresCase", func(t *testing.T) {
		status, body := getOrders(t, ts, "/orders/0xSELLER")
		assert.Equal(t, http.StatusOK, status)
		assert.True(t, body.Success)
		require.Len(t, body.Orders, 2)
		assert.Equal(t, first.ID, body.Orders[0].ID)
		assert.Equal(t, second.ID, body.Orders[1].ID)
	})

	t.Run("ListUnknownSeller", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/orders/0xNobody")
		require.NoError(t, err)
		defer resp.Body.Close()

		var raw map[string]json.RawMessage
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `[]`, string(raw["orders"]))
	})

	t.Run("ListAll", func(t *testing.T) {
		status, body := getOrders(t, ts, "/orders")
		assert.Equal(t, http.StatusOK, status)
		require.Len(t, body.Orders, 2)
		assert.Equal(t, first.ID, body.Orders[0].ID)
	})

	t.Run("ListAllTrailingSlash", func(t *testing.T) {
		status, body := getOrders(t, ts, "/orders/")
		assert.Equal(t, http.StatusOK, status)
		assert.True(t, body.Success)
		require.Len(t, body.Orders, 2)
		assert.Equal(t, second.ID, body.Orders[1].ID)
	})

	t.Run("GetByID", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/order/" + second.ID)
		require.NoError(t, err)
		defer resp.Body.Close()

		var body OrderResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, second.ID, body.Order.ID)
	})

	t.Run("GetUnknownID", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/order/missing")
		require.NoError(t, err)
		defer resp.Body.Close()

		var body ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, errOrderNotFound, body.Error)
	})
}

func TestCreateOrderNumericTokenID(t *testing.T) {
	ts := newTestServer(t, repository.NewMemoryStore())

	resp, body := postOrder(t, ts, strings.Replace(listingBody, `"tokenId": "5"`, `"tokenId": 5`, 1))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var order model.Order
	require.NoError(t, json.Unmarshal(body["order"], &order))
	assert.Equal(t, "5", order.TokenID)
}

func TestCreateOrderMalformedBody(t *testing.T) {
	ts := newTestServer(t, repository.NewMemoryStore())

	resp, body := postOrder(t, ts, `{"tokenId":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `"Missing parameters"`, string(body["error"]))
}

func TestStorageFailuresReturnServerError(t *testing.T) {
	ts := newTestServer(t, &brokenStore{})

	resp, body := postOrder(t, ts, listingBody)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `false`, string(body["success"]))
	assert.JSONEq(t, `"Server error"`, string(body["error"]))

	listResp, err := http.Get(ts.URL + "/orders")
	require.NoError(t, err)
	defer listResp.Body.Close()

	var listBody ErrorResponse
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&listBody))
	assert.Equal(t, http.StatusInternalServerError, listResp.StatusCode)
	assert.False(t, listBody.Success)
	assert.Equal(t, errServer, listBody.Error)
}

func TestCORSAndSecurityHeaders(t *testing.T) {
	ts := newTestServer(t, repository.NewMemoryStore())

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/order", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://shop.example", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

func TestCORSRestrictedOrigin(t *testing.T) {
	logger := zap.NewNop()
	srv := NewServer(0, "https://shop.example", orders.NewService(repository.NewMemoryStore(), nil, logger), logger)

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://shop.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealthCheck(t *testing.T) {
	logger := zap.NewNop()
	srv := NewServer(0, "*", orders.NewService(repository.NewMemoryStore(), nil, logger), logger)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
}
