package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
	"marketplace/apps/marketplace/internal/config"
	"marketplace/apps/marketplace/internal/fulfillment"
	"marketplace/apps/marketplace/internal/logger"
	"marketplace/apps/marketplace/internal/model"
)

func main() {
	orderID := flag.String("order", "", "id of the order to fulfill")
	seller := flag.String("seller", "", "only consider orders listed by this seller address")
	flag.Parse()

	cfg, err := config.NewFulfillConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log, *orderID, *seller); err != nil {
		log.Error("Fulfillment failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Purchase failed: %v\n", err)
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.FulfillConfig, log *zap.Logger, orderID, seller string) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConfirmTimeout)
	defer cancel()

	signer, err := fulfillment.Connect(cfg.PrivateKey)
	if err != nil {
		return err
	}

	order, err := selectOrder(ctx, fulfillment.NewClient(cfg.APIURL), orderID, seller, signer.Address().Hex())
	if err != nil {
		return err
	}

	client, err := ethclient.DialContext(ctx, cfg.RpcURL)
	if err != nil {
		return fmt.Errorf("failed to connect to RPC: %w", err)
	}
	defer client.Close()

	fulfiller, err := fulfillment.NewFulfiller(client, cfg.SeaportAddress, log)
	if err != nil {
		return err
	}

	log.Info("Fulfilling order",
		zap.String("order_id", order.ID),
		zap.String("token_id", order.TokenID),
		zap.String("buyer", signer.Address().Hex()))

	receipt, err := fulfiller.Fulfill(ctx, signer, order)
	if err != nil {
		return err
	}

	fmt.Printf("NFT #%s purchased, tx %s\n", order.TokenID, receipt.TxHash.Hex())
	return nil
}

// selectOrder returns the order with orderID, or the newest listing not sold by buyer.
func selectOrder(ctx context.Context, client *fulfillment.Client, orderID, seller, buyer string) (model.Order, error) {
	if orderID != "" {
		return client.GetOrder(ctx, orderID)
	}

	listed, err := client.ListOrders(ctx, seller)
	if err != nil {
		return model.Order{}, err
	}
	for i := len(listed) - 1; i >= 0; i-- {
		if !listed[i].SoldBy(buyer) {
			return listed[i], nil
		}
	}
	return model.Order{}, errors.New("no orders available to purchase")
}
