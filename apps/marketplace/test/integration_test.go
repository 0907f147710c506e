//go:build integration

package test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

// These tests run against a live order API: go test -tags integration ./apps/marketplace/test

func postOrder(t *testing.T, body any) *http.Response {
	t.Helper()

	reqBody, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}

	resp, err := http.Post(BaseURL()+"/order", "application/json", bytes.NewBuffer(reqBody))
	if err != nil {
		t.Fatalf("Failed to make POST request: %v", err)
	}
	return resp
}

func TestCreateAndListOrder(t *testing.T) {
	req := CreateOrderRequest{
		TokenID:             "5",
		Price:               "1000000000000000000",
		NFTContract:         TestNFTContract,
		MarketplaceContract: TestMarketplaceContract,
		SellerAddress:       TestSellerAddress,
		SeaportOrder:        json.RawMessage(`{"parameters":{"offerer":"` + TestSellerAddress + `"},"signature":"0x01"}`),
	}

	resp := postOrder(t, req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errorResp ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errorResp)
		t.Fatalf("Expected status 200, got %d. Error: %s", resp.StatusCode, errorResp.Error)
	}

	var created OrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !created.Success || created.Order.ID == "" {
		t.Fatalf("Expected a stored order with an id, got %+v", created)
	}
	if created.Order.OnChain || created.Order.OrderHash != nil {
		t.Errorf("Order without hash should be off-chain, got onChain=%v", created.Order.OnChain)
	}
	t.Logf("Created order %s", created.Order.ID)

	t.Run("ListBySellerIgnoresCase", func(t *testing.T) {
		resp, err := http.Get(BaseURL() + "/orders/0x" + strings.ToUpper(TestSellerAddress[2:]))
		if err != nil {
			t.Fatalf("Failed to make GET request: %v", err)
		}
		defer resp.Body.Close()

		var listed OrdersResponse
		if err := json.NewDecoder(resp.Body).Decode(&listed); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		found := false
		for _, order := range listed.Orders {
			if order.ID == created.Order.ID {
				found = true
			}
		}
		if !found {
			t.Errorf("Order %s missing from seller listing", created.Order.ID)
		}
	})

	t.Run("GetOrderByID", func(t *testing.T) {
		resp, err := http.Get(fmt.Sprintf("%s/order/%s", BaseURL(), created.Order.ID))
		if err != nil {
			t.Fatalf("Failed to make GET request: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", resp.StatusCode)
		}
	})
}

func TestCreateOrderMissingParameters(t *testing.T) {
	resp := postOrder(t, map[string]string{"tokenId": "5"})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", resp.StatusCode)
	}

	var errorResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errorResp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	if errorResp.Error != "Missing parameters" {
		t.Errorf("Unexpected error message: %q", errorResp.Error)
	}
}

func TestGetUnknownOrder(t *testing.T) {
	resp, err := http.Get(BaseURL() + "/order/does-not-exist")
	if err != nil {
		t.Fatalf("Failed to make GET request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown order, got %d", resp.StatusCode)
	}
}
