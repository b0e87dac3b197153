package stream

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/brojonat/solwatch/service/metrics"
	solsvc "github.com/brojonat/solwatch/service/solana"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
)

// Default reconnect policy: 3 attempts with linear backoff (2s, 4s, 6s),
// then permanent give-up for the wallet.
const (
	DefaultMaxReconnects  = 3
	DefaultReconnectDelay = 2 * time.Second
)

// detailFetchTimeout bounds the getTransaction round trips (including
// retries) for a single notification.
const detailFetchTimeout = 30 * time.Second

// LogStream is one active logs subscription on an open transport.
// *ws.LogSubscription satisfies it.
type LogStream interface {
	Recv(ctx context.Context) (*ws.LogResult, error)
}

// DialFunc opens a transport and subscribes to logs mentioning the wallet.
// The returned close function tears down the subscription and the transport;
// it must be safe to call exactly once.
type DialFunc func(ctx context.Context, wallet solana.PublicKey) (LogStream, func(), error)

// WebSocketDialer returns a DialFunc that connects to the given websocket
// endpoint and issues a logsSubscribe scoped to mentions of the wallet at
// confirmed commitment.
func WebSocketDialer(wsURL string) DialFunc {
	return func(ctx context.Context, wallet solana.PublicKey) (LogStream, func(), error) {
		client, err := ws.Connect(ctx, wsURL)
		if err != nil {
			return nil, nil, err
		}
		sub, err := client.LogsSubscribeMentions(wallet, rpc.CommitmentConfirmed)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		return sub, func() {
			sub.Unsubscribe()
			client.Close()
		}, nil
	}
}

// DetailFetcher fetches the full transaction record for a signature.
// Satisfied by *solana.Client.
type DetailFetcher interface {
	GetTransactionDetail(ctx context.Context, signature solana.Signature) (*rpc.GetTransactionResult, error)
}

// TransactionParser normalizes a raw transaction record for one wallet.
// Satisfied by *solana.Parser.
type TransactionParser interface {
	Parse(ctx context.Context, result *rpc.GetTransactionResult, wallet solana.PublicKey) (*solsvc.Transaction, error)
}

// Subscription owns one streaming subscription to one wallet address. The
// whole lifecycle runs in a single goroutine (Run): connect, subscribe,
// receive notifications, fetch and parse details, and reconnect with bounded
// linear backoff when the transport drops.
//
// Results flow upward through the events/status channels owned by the
// Manager rather than by mutating shared state.
type Subscription struct {
	wallet  solana.PublicKey
	dial    DialFunc
	fetcher DetailFetcher
	parser  TransactionParser

	events chan<- *solsvc.Transaction
	status chan<- StatusUpdate

	maxReconnects  int
	reconnectDelay time.Duration

	// closed is the liveness flag: once set, completion handlers for
	// in-flight work become no-ops instead of emitting into a torn-down
	// consumer.
	closed atomic.Bool

	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewSubscription creates a subscription for one wallet. Events and status
// updates are delivered on the provided channels until Close is called or
// the Run context is cancelled.
func NewSubscription(
	wallet solana.PublicKey,
	dial DialFunc,
	fetcher DetailFetcher,
	parser TransactionParser,
	events chan<- *solsvc.Transaction,
	status chan<- StatusUpdate,
	maxReconnects int,
	reconnectDelay time.Duration,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Subscription {
	if maxReconnects <= 0 {
		maxReconnects = DefaultMaxReconnects
	}
	if reconnectDelay <= 0 {
		reconnectDelay = DefaultReconnectDelay
	}
	return &Subscription{
		wallet:         wallet,
		dial:           dial,
		fetcher:        fetcher,
		parser:         parser,
		events:         events,
		status:         status,
		maxReconnects:  maxReconnects,
		reconnectDelay: reconnectDelay,
		logger:         logger,
		metrics:        m,
	}
}

// Run drives the subscription until the context is cancelled or the
// reconnect budget is exhausted. It is the only goroutine that touches the
// transport.
func (s *Subscription) Run(ctx context.Context) {
	wallet := s.wallet.String()
	attempts := 0

	for {
		if ctx.Err() != nil {
			return
		}

		s.setState(ctx, StateConnecting)
		stream, closeStream, err := s.dial(ctx, s.wallet)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.WarnContext(ctx, "failed to connect subscription",
				"wallet", wallet,
				"error", err,
			)
			if s.metrics != nil {
				s.metrics.RecordWSConnect(wallet, "error")
			}
			s.setState(ctx, StateError)
			if !s.scheduleReconnect(ctx, &attempts) {
				return
			}
			continue
		}

		// Counter resets on a successful open, matching the reconnect
		// budget being per-outage rather than per-session.
		attempts = 0
		s.logger.InfoContext(ctx, "subscription connected", "wallet", wallet)
		if s.metrics != nil {
			s.metrics.RecordWSConnect(wallet, "success")
		}
		s.setState(ctx, StateConnected)

		err = s.consume(ctx, stream)
		closeStream()
		s.setState(ctx, StateDisconnected)
		if s.metrics != nil {
			s.metrics.RecordWSDisconnect(wallet)
		}
		if ctx.Err() != nil {
			return
		}

		s.logger.WarnContext(ctx, "subscription closed",
			"wallet", wallet,
			"error", err,
		)
		if !s.scheduleReconnect(ctx, &attempts) {
			return
		}
	}
}

// scheduleReconnect sleeps for the linear backoff delay and reports whether
// another attempt should be made. After the budget is spent the wallet stays
// permanently degraded until an external reconnect request.
func (s *Subscription) scheduleReconnect(ctx context.Context, attempts *int) bool {
	*attempts++
	if *attempts > s.maxReconnects {
		s.logger.ErrorContext(ctx, "max reconnect attempts reached, giving up",
			"wallet", s.wallet.String(),
			"attempts", s.maxReconnects,
		)
		return false
	}

	delay := time.Duration(*attempts) * s.reconnectDelay
	s.logger.InfoContext(ctx, "scheduling reconnect",
		"wallet", s.wallet.String(),
		"attempt", *attempts,
		"delay", delay,
	)
	if s.metrics != nil {
		s.metrics.RecordWSReconnect(s.wallet.String())
	}
	return sleepCtx(ctx, delay)
}

// consume receives notifications until the transport errors or the context
// is cancelled.
func (s *Subscription) consume(ctx context.Context, stream LogStream) error {
	for {
		result, err := stream.Recv(ctx)
		if err != nil {
			return err
		}
		if result == nil {
			continue
		}
		s.handleNotification(ctx, result)
	}
}

// handleNotification fetches full transaction detail for a pushed signature,
// parses it, and emits the normalized record. Fetch and parse failures are
// logged and swallowed; they never terminate the subscription.
func (s *Subscription) handleNotification(ctx context.Context, result *ws.LogResult) {
	wallet := s.wallet.String()
	signature := result.Value.Signature

	if s.metrics != nil {
		s.metrics.RecordNotification(wallet)
	}

	// Bound the detail fetch so one slow RPC call cannot stall the
	// subscription's receive loop indefinitely.
	fetchCtx, cancel := context.WithTimeout(ctx, detailFetchTimeout)
	defer cancel()

	detail, err := s.fetcher.GetTransactionDetail(fetchCtx, signature)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to fetch transaction detail",
			"wallet", wallet,
			"signature", signature.String(),
			"error", err,
		)
		return
	}

	txn, err := s.parser.Parse(ctx, detail, s.wallet)
	if err != nil {
		if isSkip(err) {
			s.logger.DebugContext(ctx, "skipping transaction",
				"wallet", wallet,
				"signature", signature.String(),
				"reason", err,
			)
			if s.metrics != nil {
				s.metrics.RecordTransactionParsed(wallet, "skipped")
			}
		} else {
			s.logger.WarnContext(ctx, "failed to parse transaction",
				"wallet", wallet,
				"signature", signature.String(),
				"error", err,
			)
			if s.metrics != nil {
				s.metrics.RecordTransactionParsed(wallet, "error")
			}
		}
		return
	}

	if s.metrics != nil {
		s.metrics.RecordTransactionParsed(wallet, "success")
	}

	// The detail fetch may outlive a teardown; check liveness before
	// emitting so a stale completion is a safe no-op.
	if s.closed.Load() {
		return
	}
	select {
	case s.events <- txn:
	case <-ctx.Done():
	}
}

// setState publishes a state transition unless the subscription was closed.
func (s *Subscription) setState(ctx context.Context, state State) {
	if s.closed.Load() {
		return
	}
	select {
	case s.status <- StatusUpdate{Wallet: s.wallet.String(), State: state}:
	case <-ctx.Done():
	}
}

// Close marks the subscription dead. Idempotent, safe from any state; the
// Run goroutine itself is stopped by cancelling its context.
func (s *Subscription) Close() {
	s.closed.Store(true)
}

// isSkip reports whether a parse error is an expected skip rather than a
// malformed transaction.
func isSkip(err error) bool {
	return errors.Is(err, solsvc.ErrTransactionFailed) ||
		errors.Is(err, solsvc.ErrWalletNotInvolved) ||
		errors.Is(err, solsvc.ErrBelowThreshold)
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
