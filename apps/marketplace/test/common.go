package test

import (
	"encoding/json"
	"os"
	"time"
)

const (
	// Test wallet address (example address)
	TestSellerAddress = "0x0B8fA6F76eB75ae3a4ca28eb3020DFC4503F2136"

	// Seaport 1.5
	TestMarketplaceContract = "0x00000000000000ADc04C56Bf30aC9d3c0aAF14dC"

	TestNFTContract = "0x5401b8620E5FB570064CA9114fd1e135fd77D57c"
)

// BaseURL is the running order API, overridable with API_URL.
func BaseURL() string {
	if url := os.Getenv("API_URL"); url != "" {
		return url
	}
	return "http://localhost:3000"
}

// CreateOrderRequest is the body of POST /order
type CreateOrderRequest struct {
	TokenID             string          `json:"tokenId"`
	Price               string          `json:"price"`
	NFTContract         string          `json:"nftContract"`
	MarketplaceContract string          `json:"marketplaceContract"`
	SellerAddress       string          `json:"sellerAddress"`
	SeaportOrder        json.RawMessage `json:"seaportOrder"`
	OrderHash           string          `json:"orderHash,omitempty"`
}

// Order is a stored order as returned by the API
type Order struct {
	ID                  string          `json:"id"`
	TokenID             string          `json:"tokenId"`
	Price               json.RawMessage `json:"price"`
	NFTContract         string          `json:"nftContract"`
	MarketplaceContract string          `json:"marketplaceContract"`
	Seller              string          `json:"seller"`
	SeaportOrder        json.RawMessage `json:"seaportOrder"`
	OrderHash           *string         `json:"orderHash"`
	OnChain             bool            `json:"onChain"`
	CreatedAt           time.Time       `json:"createdAt"`
}

type OrderResponse struct {
	Success bool  `json:"success"`
	Order   Order `json:"order"`
}

type OrdersResponse struct {
	Success bool    `json:"success"`
	Orders  []Order `json:"orders"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
