package events

import (
	"time"

	"marketplace/apps/marketplace/internal/model"
)

const OrderCreatedEventType = "order_created"

type OrderCreatedEvent struct {
	EventType           string    `json:"event_type"`
	OrderID             string    `json:"order_id"`
	TokenID             string    `json:"token_id"`
	NFTContract         string    `json:"nft_contract"`
	MarketplaceContract string    `json:"marketplace_contract"`
	Seller              string    `json:"seller"`
	OnChain             bool      `json:"on_chain"`
	OrderHash           *string   `json:"order_hash,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	Timestamp           time.Time `json:"timestamp"`
}

// NewOrderCreatedEvent describes a stored order. The signed Seaport payload is not included.
func NewOrderCreatedEvent(order model.Order, now time.Time) OrderCreatedEvent {
	return OrderCreatedEvent{
		EventType:           OrderCreatedEventType,
		OrderID:             order.ID,
		TokenID:             order.TokenID,
		NFTContract:         order.NFTContract,
		MarketplaceContract: order.MarketplaceContract,
		Seller:              order.Seller,
		OnChain:             order.OnChain,
		OrderHash:           order.OrderHash,
		CreatedAt:           order.CreatedAt,
		Timestamp:           now,
	}
}
