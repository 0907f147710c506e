package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Order is an off-chain signed listing. Orders are never modified once stored.
type Order struct {
	ID                  string          `json:"id"`
	TokenID             string          `json:"tokenId"`
	Price               json.RawMessage `json:"price"`        // string or number, passed through
	NFTContract         string          `json:"nftContract"`
	MarketplaceContract string          `json:"marketplaceContract"`
	Seller              string          `json:"seller"`
	SeaportOrder        json.RawMessage `json:"seaportOrder"` // signed Seaport order, opaque to the store
	OrderHash           *string         `json:"orderHash"`
	OnChain             bool            `json:"onChain"`
	CreatedAt           time.Time       `json:"createdAt"`
}

// SoldBy reports whether the order's seller matches address, ignoring case.
func (o Order) SoldBy(address string) bool {
	return o.Seller != "" && strings.EqualFold(o.Seller, address)
}
