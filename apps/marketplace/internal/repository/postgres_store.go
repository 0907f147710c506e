package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/lib/pq"
	"go.uber.org/zap"
	"marketplace/apps/marketplace/internal/model"
)

// uniqueViolation is the Postgres SQLSTATE for a duplicate key.
const uniqueViolation = pq.ErrorCode("23505")

const orderColumns = `id, token_id, price, nft_contract, marketplace_contract, seller, seaport_order, order_hash, on_chain, created_at`

// PostgresStore keeps orders one row per order. seq preserves creation order.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger

	mu       sync.Mutex
	migrated bool
}

func NewPostgresStore(db *sql.DB, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

// EnsureLoaded creates the schema on first use. A failed attempt is retried on the next call.
func (r *PostgresStore) EnsureLoaded(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.migrated {
		return nil
	}
	if err := InitMigration(ctx, r.db); err != nil {
		return storageError("initialize order table", err)
	}
	r.migrated = true
	return nil
}

func (r *PostgresStore) Append(ctx context.Context, order model.Order) (model.Order, error) {
	if err := r.EnsureLoaded(ctx); err != nil {
		return model.Order{}, err
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO marketplace_orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, order.ID, order.TokenID, string(order.Price), order.NFTContract, order.MarketplaceContract,
		order.Seller, string(order.SeaportOrder), order.OrderHash, order.OnChain, order.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return model.Order{}, fmt.Errorf("%w: %s", ErrDuplicateOrderID, order.ID)
		}
		return model.Order{}, storageError("insert order", err)
	}

	r.logger.Info("Created order",
		zap.String("order_id", order.ID),
		zap.String("seller", order.Seller),
		zap.Bool("on_chain", order.OnChain))
	return order, nil
}

func (r *PostgresStore) ListAll(ctx context.Context) ([]model.Order, error) {
	if err := r.EnsureLoaded(ctx); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM marketplace_orders
		ORDER BY seq
	`)
	if err != nil {
		return nil, storageError("list orders", err)
	}
	return scanOrders(rows)
}

func (r *PostgresStore) ListBySeller(ctx context.Context, address string) ([]model.Order, error) {
	if err := r.EnsureLoaded(ctx); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM marketplace_orders
		WHERE lower(seller) = lower($1)
		ORDER BY seq
	`, address)
	if err != nil {
		return nil, storageError("list orders by seller", err)
	}
	return scanOrders(rows)
}

func (r *PostgresStore) GetOrderByID(ctx context.Context, id string) (*model.Order, error) {
	if err := r.EnsureLoaded(ctx); err != nil {
		return nil, err
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM marketplace_orders
		WHERE id = $1
	`, id)

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storageError("get order by id", err)
	}
	return &order, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (model.Order, error) {
	var (
		order        model.Order
		price        []byte
		seaportOrder []byte
		orderHash    sql.NullString
	)
	if err := row.Scan(&order.ID, &order.TokenID, &price, &order.NFTContract, &order.MarketplaceContract,
		&order.Seller, &seaportOrder, &orderHash, &order.OnChain, &order.CreatedAt); err != nil {
		return model.Order{}, err
	}

	order.Price = json.RawMessage(price)
	order.SeaportOrder = json.RawMessage(seaportOrder)
	if orderHash.Valid {
		order.OrderHash = &orderHash.String
	}
	return order, nil
}

func scanOrders(rows *sql.Rows) ([]model.Order, error) {
	defer rows.Close()

	orders := make([]model.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, storageError("scan order", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("iterate orders", err)
	}
	return orders, nil
}
