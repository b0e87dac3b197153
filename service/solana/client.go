package solana

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/brojonat/solwatch/service/metrics"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// RPCClient is an interface for the Solana RPC operations we need.
// This allows us to mock the RPC layer in tests without hitting real
// Solana nodes. *rpc.Client satisfies it.
type RPCClient interface {
	GetTransaction(
		ctx context.Context,
		signature solana.Signature,
		opts *rpc.GetTransactionOpts,
	) (*rpc.GetTransactionResult, error)

	RPCCallForInto(
		ctx context.Context,
		out interface{},
		method string,
		params []interface{},
	) error
}

// Client provides methods for fetching full transaction detail after a
// subscription notification. It wraps the RPC client with retry and
// rate-limit handling.
type Client struct {
	rpc      RPCClient
	logger   *slog.Logger
	metrics  *metrics.Metrics
	endpoint string // RPC endpoint identifier for metrics (e.g., "mainnet", rpc host)
}

// NewClient creates a new Solana client.
// The endpoint parameter is used for metrics labeling (e.g., "mainnet" or the
// RPC hostname). If m is nil, no metrics will be recorded.
func NewClient(rpcClient RPCClient, endpoint string, m *metrics.Metrics, logger *slog.Logger) *Client {
	return &Client{
		rpc:      rpcClient,
		logger:   logger,
		metrics:  m,
		endpoint: endpoint,
	}
}

// RPCCallForInto exposes the raw call path so the token resolver can issue
// methods the typed client doesn't cover (getAsset).
func (c *Client) RPCCallForInto(ctx context.Context, out interface{}, method string, params []interface{}) error {
	start := time.Now()
	err := c.rpc.RPCCallForInto(ctx, out, method, params)
	if c.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		c.metrics.RecordRPCCall(method, status, c.endpoint, time.Since(start).Seconds())
	}
	return err
}

// GetTransactionDetail fetches the full transaction record for a signature
// delivered by a logs subscription. The request asks for confirmed
// commitment and versioned transaction support, matching the subscription's
// commitment level.
//
// Transient failures are retried with exponential backoff; 429 responses get
// a longer backoff. The retry policy here is independent of the
// subscription's reconnect policy.
func (c *Client) GetTransactionDetail(ctx context.Context, signature solana.Signature) (*rpc.GetTransactionResult, error) {
	var result *rpc.GetTransactionResult
	var err error

	maxVersion := uint64(0)
	opts := &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVersion,
	}

	const maxAttempts = 3
	for attempt := range maxAttempts {
		start := time.Now()
		result, err = c.rpc.GetTransaction(ctx, signature, opts)
		duration := time.Since(start).Seconds()

		status := "success"
		if err != nil {
			status = "error"
		}
		if c.metrics != nil {
			c.metrics.RecordRPCCall("GetTransaction", status, c.endpoint, duration)
		}

		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}

		// Handle rate limiting (429 Too Many Requests) with longer backoff
		if strings.Contains(err.Error(), "429") {
			backoff := time.Duration(2<<uint(attempt)) * time.Second // 2s, 4s, 8s
			c.logger.WarnContext(ctx, "rate limited, sleeping before retry",
				"signature", signature.String(),
				"attempt", attempt+1,
				"backoff_seconds", backoff.Seconds(),
			)
			if c.metrics != nil {
				c.metrics.RecordRateLimitHit(c.endpoint)
				c.metrics.RecordRPCRetry("GetTransaction", "rate_limit")
			}
			if !sleepCtx(ctx, backoff) {
				return nil, ctx.Err()
			}
			continue
		}

		// Exponential backoff for other errors (timeout, network, etc.)
		backoff := time.Duration(1<<uint(attempt)) * time.Second // 1s, 2s, 4s
		c.logger.WarnContext(ctx, "failed to get transaction on attempt",
			"signature", signature.String(),
			"attempt", attempt+1,
			"error", err,
			"backoff_seconds", backoff.Seconds(),
		)
		if c.metrics != nil {
			c.metrics.RecordRPCRetry("GetTransaction", "timeout_or_error")
		}
		if !sleepCtx(ctx, backoff) {
			return nil, ctx.Err()
		}
	}

	return nil, err
}

// sleepCtx sleeps for d or until the context is done, whichever comes first.
// Returns false if the context ended the wait.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
