// Package orders implements the create and list operations over an order store.
package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"marketplace/apps/marketplace/internal/model"
	"marketplace/apps/marketplace/internal/repository"
)

var (
	// ErrInvalidInput is returned when a required listing field is missing.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned when no order has the requested id.
	ErrNotFound = errors.New("order not found")
)

// CreateOrderRequest is the listing submitted by a seller. Fields are kept raw so that
// presence can be checked the same way regardless of the JSON type used by the client.
type CreateOrderRequest struct {
	TokenID             json.RawMessage `json:"tokenId"`
	Price               json.RawMessage `json:"price"`
	NFTContract         json.RawMessage `json:"nftContract"`
	MarketplaceContract json.RawMessage `json:"marketplaceContract"`
	SellerAddress       json.RawMessage `json:"sellerAddress"`
	SeaportOrder        json.RawMessage `json:"seaportOrder"`
	OrderHash           json.RawMessage `json:"orderHash"`
}

// Publisher is notified after an order has been stored.
type Publisher interface {
	PublishOrderCreated(ctx context.Context, order model.Order) error
}

// Service validates listings and hands them to the store.
type Service struct {
	store     repository.OrderStore
	publisher Publisher
	logger    *zap.Logger

	publishTimeout time.Duration

	newID func() string
	now   func() time.Time
}

// DefaultPublishTimeout bounds how long Create waits for the order_created event.
const DefaultPublishTimeout = 5 * time.Second

// NewService creates a Service. publisher may be nil.
func NewService(store repository.OrderStore, publisher Publisher, logger *zap.Logger) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		logger:    logger,

		publishTimeout: DefaultPublishTimeout,

		newID: func() string { return uuid.New().String() },
		now:   time.Now,
	}
}

// WithPublishTimeout changes how long Create waits for the event publisher. Non-positive
// values keep the current timeout.
func (s *Service) WithPublishTimeout(timeout time.Duration) *Service {
	if timeout > 0 {
		s.publishTimeout = timeout
	}
	return s
}

// Create validates req, stores a new order and returns it.
func (s *Service) Create(ctx context.Context, req CreateOrderRequest) (model.Order, error) {
	if missing := req.missingFields(); len(missing) > 0 {
		return model.Order{}, fmt.Errorf("%w: missing %s", ErrInvalidInput, strings.Join(missing, ", "))
	}

	tokenID, err := scalarString(req.TokenID)
	if err != nil {
		return model.Order{}, fmt.Errorf("%w: tokenId: %v", ErrInvalidInput, err)
	}
	nftContract, err := scalarString(req.NFTContract)
	if err != nil {
		return model.Order{}, fmt.Errorf("%w: nftContract: %v", ErrInvalidInput, err)
	}
	marketplaceContract, err := scalarString(req.MarketplaceContract)
	if err != nil {
		return model.Order{}, fmt.Errorf("%w: marketplaceContract: %v", ErrInvalidInput, err)
	}
	seller, err := scalarString(req.SellerAddress)
	if err != nil {
		return model.Order{}, fmt.Errorf("%w: sellerAddress: %v", ErrInvalidInput, err)
	}

	var orderHash *string
	if truthy(req.OrderHash) {
		hash, err := scalarString(req.OrderHash)
		if err != nil {
			return model.Order{}, fmt.Errorf("%w: orderHash: %v", ErrInvalidInput, err)
		}
		orderHash = &hash
	}

	order := model.Order{
		ID:                  s.newID(),
		TokenID:             tokenID,
		Price:               compact(req.Price),
		NFTContract:         nftContract,
		MarketplaceContract: marketplaceContract,
		Seller:              seller,
		SeaportOrder:        compact(req.SeaportOrder),
		OrderHash:           orderHash,
		OnChain:             orderHash != nil,
		CreatedAt:           s.now().UTC(),
	}

	stored, err := s.store.Append(ctx, order)
	if err != nil {
		return model.Order{}, err
	}

	if s.publisher != nil {
		publishCtx, cancel := context.WithTimeout(ctx, s.publishTimeout)
		err := s.publisher.PublishOrderCreated(publishCtx, stored)
		cancel()
		if err != nil {
			s.logger.Error("Failed to publish order created event",
				zap.String("order_id", stored.ID),
				zap.Duration("timeout", s.publishTimeout),
				zap.Error(err))
		}
	}

	return stored, nil
}

// List returns every order, or only those sold by seller when it is not empty.
func (s *Service) List(ctx context.Context, seller string) ([]model.Order, error) {
	if seller == "" {
		return s.store.ListAll(ctx)
	}
	return s.store.ListBySeller(ctx, seller)
}

// Get returns the order with the given id.
func (s *Service) Get(ctx context.Context, id string) (model.Order, error) {
	order, err := s.store.GetOrderByID(ctx, id)
	if err != nil {
		return model.Order{}, err
	}
	if order == nil {
		return model.Order{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return *order, nil
}

func (r CreateOrderRequest) missingFields() []string {
	required := []struct {
		name  string
		value json.RawMessage
	}{
		{"tokenId", r.TokenID},
		{"price", r.Price},
		{"nftContract", r.NFTContract},
		{"marketplaceContract", r.MarketplaceContract},
		{"sellerAddress", r.SellerAddress},
		{"seaportOrder", r.SeaportOrder},
	}

	var missing []string
	for _, field := range required {
		if !truthy(field.value) {
			missing = append(missing, field.name)
		}
	}
	return missing
}

// truthy treats absent, null, false, "" and numeric zero as missing.
func truthy(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}

	switch raw[0] {
	case 'n', 'f':
		return false
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return false
		}
		return s != ""
	case '{', '[', 't':
		return true
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return false
		}
		f, err := n.Float64()
		return err != nil || f != 0
	}
}

// scalarString renders a JSON string, number or boolean as text. Integral numbers are written
// as plain integers (5.0 and 5e0 become "5") without losing precision.
func scalarString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", errors.New("empty value")
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	case '{', '[':
		return "", errors.New("expected a string or number")
	case 't', 'f', 'n':
		return string(raw), nil
	default:
		return numberString(string(raw))
	}
}

// maxNumberExponent keeps exponent-heavy literals like 1e999999999 from being expanded.
const maxNumberExponent = 80

func numberString(literal string) (string, error) {
	if i := strings.IndexAny(literal, "eE"); i >= 0 {
		exp, err := strconv.Atoi(strings.TrimPrefix(literal[i+1:], "+"))
		if err != nil {
			return "", fmt.Errorf("invalid number %q", literal)
		}
		if exp > maxNumberExponent || exp < -maxNumberExponent {
			return literal, nil
		}
	}

	r, ok := new(big.Rat).SetString(literal)
	if !ok {
		return "", fmt.Errorf("invalid number %q", literal)
	}
	if r.IsInt() {
		return r.Num().String(), nil
	}
	f, _ := r.Float64()
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}

func compact(raw json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return json.RawMessage(buf.Bytes())
}
