package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"marketplace/apps/marketplace/internal/model"
	"marketplace/apps/marketplace/internal/orders"
)

const maxRequestBodyBytes = 1 << 20

// OrderHandler handles order-related API endpoints
type OrderHandler struct {
	service *orders.Service
	logger  *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(service *orders.Service, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{service: service, logger: logger}
}

// CreateOrder handles POST /order
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req orders.CreateOrderRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(&req); err != nil {
		h.logger.Debug("Rejected undecodable order body", zap.Error(err))
		writeErrorResponse(w, h.logger, http.StatusBadRequest, errMissingParameters)
		return
	}

	order, err := h.service.Create(r.Context(), req)
	if err != nil {
		if errors.Is(err, orders.ErrInvalidInput) {
			h.logger.Debug("Rejected order", zap.Error(err))
			writeErrorResponse(w, h.logger, http.StatusBadRequest, errMissingParameters)
			return
		}
		h.logger.Error("POST /order failed", zap.Error(err))
		writeErrorResponse(w, h.logger, http.StatusInternalServerError, errServer)
		return
	}

	h.logger.Info("Created order",
		zap.String("order_id", order.ID),
		zap.String("token_id", order.TokenID),
		zap.String("seller", order.Seller),
		zap.Bool("on_chain", order.OnChain))

	writeJSONResponse(w, h.logger, http.StatusOK, OrderResponse{Success: true, Order: order})
}

// ListOrders handles GET /orders and GET /orders/{address}
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	list, err := h.service.List(r.Context(), address)
	if err != nil {
		h.logger.Error("GET /orders failed", zap.String("address", address), zap.Error(err))
		writeErrorResponse(w, h.logger, http.StatusInternalServerError, errServer)
		return
	}
	if list == nil {
		list = []model.Order{}
	}

	writeJSONResponse(w, h.logger, http.StatusOK, OrdersResponse{Success: true, Orders: list})
}

// GetOrder handles GET /order/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			writeErrorResponse(w, h.logger, http.StatusNotFound, errOrderNotFound)
			return
		}
		h.logger.Error("GET /order failed", zap.String("order_id", id), zap.Error(err))
		writeErrorResponse(w, h.logger, http.StatusInternalServerError, errServer)
		return
	}

	writeJSONResponse(w, h.logger, http.StatusOK, OrderResponse{Success: true, Order: order})
}

// writeJSONResponse writes a JSON response with the specified status code
func writeJSONResponse(w http.ResponseWriter, logger *zap.Logger, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}

// writeErrorResponse writes an error response
func writeErrorResponse(w http.ResponseWriter, logger *zap.Logger, statusCode int, message string) {
	writeJSONResponse(w, logger, statusCode, ErrorResponse{Success: false, Error: message})
}
