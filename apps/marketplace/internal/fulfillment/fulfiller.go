// Package fulfillment submits stored listings to the Seaport contract on behalf of a buyer.
package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"marketplace/apps/marketplace/internal/model"
)

// ErrTransactionReverted is returned when the fulfillment transaction was mined but failed.
var ErrTransactionReverted = errors.New("fulfillment transaction reverted")

// Backend is the subset of an Ethereum client used to submit and confirm transactions.
// *ethclient.Client satisfies it.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Signer is a connected wallet.
type Signer interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// Fulfiller builds, signs and submits Seaport fulfillOrder transactions.
type Fulfiller struct {
	backend      Backend
	seaport      common.Address
	seaportABI   abi.ABI
	logger       *zap.Logger
	pollInterval time.Duration
}

// NewFulfiller creates a Fulfiller for the Seaport deployment at seaportAddress.
func NewFulfiller(backend Backend, seaportAddress string, logger *zap.Logger) (*Fulfiller, error) {
	if !common.IsHexAddress(seaportAddress) {
		return nil, fmt.Errorf("invalid seaport address %q", seaportAddress)
	}

	seaportABI, err := abi.JSON(strings.NewReader(SeaportABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse seaport ABI: %w", err)
	}

	return &Fulfiller{
		backend:      backend,
		seaport:      common.HexToAddress(seaportAddress),
		seaportABI:   seaportABI,
		logger:       logger,
		pollInterval: 2 * time.Second,
	}, nil
}

// BuildFulfillCall returns the calldata and native value for fulfilling order.
func (f *Fulfiller) BuildFulfillCall(order model.Order) ([]byte, *big.Int, error) {
	seaportOrder, err := DecodeSeaportOrder(order.SeaportOrder)
	if err != nil {
		return nil, nil, err
	}

	// No fulfiller conduit: approvals are made directly to Seaport.
	var fulfillerConduitKey [32]byte
	data, err := f.seaportABI.Pack("fulfillOrder", seaportOrder, fulfillerConduitKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to pack fulfillOrder method: %w", err)
	}

	return data, seaportOrder.NativeValue(), nil
}

// Fulfill submits a fulfillOrder transaction signed by signer and waits until it is mined.
func (f *Fulfiller) Fulfill(ctx context.Context, signer Signer, order model.Order) (*types.Receipt, error) {
	if common.IsHexAddress(order.MarketplaceContract) && common.HexToAddress(order.MarketplaceContract) != f.seaport {
		f.logger.Warn("Order was listed for a different marketplace contract",
			zap.String("order_id", order.ID),
			zap.String("marketplace_contract", order.MarketplaceContract),
			zap.String("seaport", f.seaport.Hex()))
	}

	data, value, err := f.BuildFulfillCall(order)
	if err != nil {
		return nil, err
	}

	from := signer.Address()

	chainID, err := f.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}

	nonce, err := f.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce from blockchain: %w", err)
	}

	gasPrice, err := f.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price from blockchain: %w", err)
	}

	gasLimit, err := f.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &f.seaport,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to estimate gas: %w", err)
	}
	gasLimit += gasLimit / 5

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &f.seaport,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signedTx, err := signer.SignTx(tx, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := f.backend.SendTransaction(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}

	f.logger.Info("Submitted fulfillment transaction",
		zap.String("order_id", order.ID),
		zap.String("token_id", order.TokenID),
		zap.String("tx_hash", signedTx.Hash().Hex()),
		zap.String("value", value.String()),
		zap.Uint64("gas_limit", gasLimit))

	receipt, err := f.waitMined(ctx, signedTx.Hash())
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: %s", ErrTransactionReverted, signedTx.Hash().Hex())
	}

	f.logger.Info("Fulfillment transaction confirmed",
		zap.String("order_id", order.ID),
		zap.String("tx_hash", signedTx.Hash().Hex()),
		zap.Uint64("block_number", receipt.BlockNumber.Uint64()))
	return receipt, nil
}

func (f *Fulfiller) waitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := f.backend.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			f.logger.Warn("Failed to get transaction receipt", zap.String("tx_hash", hash.Hex()), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for transaction %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}
