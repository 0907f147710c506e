package api

import (
	"marketplace/apps/marketplace/internal/model"
)

const (
	errMissingParameters = "Missing parameters"
	errServer            = "Server error"
	errOrderNotFound     = "Order not found"
)

// OrderResponse is returned by POST /order and GET /order/{id}
type OrderResponse struct {
	Success bool        `json:"success"`
	Order   model.Order `json:"order"`
}

// OrdersResponse is returned by GET /orders and GET /orders/{address}
type OrdersResponse struct {
	Success bool          `json:"success"`
	Orders  []model.Order `json:"orders"`
}

// ErrorResponse represents the API error response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
