// Package solana wraps the Solana JSON-RPC endpoint. Solana speaks plain
// JSON-RPC 2.0, so the transport is go-ethereum's generic rpc client.
package solana

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var lamportsPerSol = decimal.NewFromInt(1_000_000_000)

// Options parameterise the RPC client.
type Options struct {
	URL     string
	Timeout time.Duration
}

// Client provides read-only access to the Solana RPC endpoint.
type Client struct {
	opts      Options
	logger    zerolog.Logger
	client    *rpc.Client
	clientMux sync.Mutex
}

// NewClient builds a Solana RPC client. The connection is established lazily.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	return &Client{opts: opts, logger: logger.With().Str("component", "solana_rpc").Logger()}
}

// CheckHealth calls getHealth and fails unless the node reports "ok". Used as
// the startup reachability gate.
func (c *Client) CheckHealth(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	client, err := c.getClient(ctx)
	if err != nil {
		return err
	}

	var status string
	if err := client.CallContext(ctx, &status, "getHealth"); err != nil {
		return fmt.Errorf("rpc getHealth: %w", err)
	}
	if status != "ok" {
		return fmt.Errorf("rpc endpoint unhealthy: %s", status)
	}
	return nil
}

// Balance returns the SOL balance for a base58 account address.
func (c *Client) Balance(ctx context.Context, account string) (decimal.Decimal, error) {
	if account == "" {
		return decimal.Decimal{}, errors.New("account address required")
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	client, err := c.getClient(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}

	var res struct {
		Value uint64 `json:"value"`
	}
	if err := client.CallContext(ctx, &res, "getBalance", account); err != nil {
		return decimal.Decimal{}, fmt.Errorf("rpc getBalance: %w", err)
	}

	return decimal.NewFromInt(int64(res.Value)).Div(lamportsPerSol), nil
}

// Version returns the node software version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	client, err := c.getClient(ctx)
	if err != nil {
		return "", err
	}

	var res struct {
		SolanaCore string `json:"solana-core"`
	}
	if err := client.CallContext(ctx, &res, "getVersion"); err != nil {
		return "", fmt.Errorf("rpc getVersion: %w", err)
	}
	return res.SolanaCore, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := c.opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

func (c *Client) getClient(ctx context.Context) (*rpc.Client, error) {
	c.clientMux.Lock()
	defer c.clientMux.Unlock()

	if c.client != nil {
		return c.client, nil
	}
	if c.opts.URL == "" {
		return nil, errors.New("rpc url not configured")
	}

	client, err := rpc.DialContext(ctx, c.opts.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	c.client = client
	return client, nil
}
