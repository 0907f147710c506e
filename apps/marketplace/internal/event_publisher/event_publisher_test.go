package event_publisher

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"marketplace/apps/marketplace/internal/model"
)

// Nothing listens on the broker address, so delivery never completes.
func TestPublishOrderCreatedHonoursContext(t *testing.T) {
	publisher, err := NewEventPublisher("127.0.0.1:1", "orders.created", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = publisher.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err = publisher.PublishOrderCreated(ctx, model.Order{
		ID:           "order-1",
		TokenID:      "5",
		Price:        json.RawMessage(`"1"`),
		Seller:       "0x0B8fA6F76eB75ae3a4ca28eb3020DFC4503F2136",
		SeaportOrder: json.RawMessage(`{}`),
		CreatedAt:    time.Now().UTC(),
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
