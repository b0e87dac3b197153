package stream

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/brojonat/solwatch/service/metrics"
	solsvc "github.com/brojonat/solwatch/service/solana"
	"github.com/gagliardetto/solana-go"
)

// DefaultStagger is the delay between consecutive subscription startups,
// spreading connection-establishment load instead of opening every socket
// at once.
const DefaultStagger = 500 * time.Millisecond

// ManagerConfig carries the dependencies and tuning for a Manager.
// Zero tuning values fall back to the defaults.
type ManagerConfig struct {
	Wallets        []solana.PublicKey
	Dial           DialFunc
	Fetcher        DetailFetcher
	Parser         TransactionParser
	Stagger        time.Duration
	MaxReconnects  int
	ReconnectDelay time.Duration
}

// Manager fans out one Subscription per tracked wallet, aggregates their
// connection states into a single overall status, and exposes one
// transaction stream plus one status stream to the consumer.
type Manager struct {
	cfg     ManagerConfig
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu        sync.Mutex
	running   bool
	subs      map[string]*Subscription
	states    map[string]State
	connected map[string]struct{}
	onTxn     func(*solsvc.Transaction)
	onStatus  func(State, int)
	cancel    context.CancelFunc
	done      chan struct{}
	wg        sync.WaitGroup

	events chan *solsvc.Transaction
	status chan StatusUpdate
}

// NewManager creates a manager for the configured wallet set.
// If m is nil, no metrics are recorded.
func NewManager(cfg ManagerConfig, m *metrics.Metrics, logger *slog.Logger) *Manager {
	if cfg.Stagger <= 0 {
		cfg.Stagger = DefaultStagger
	}
	if cfg.MaxReconnects <= 0 {
		cfg.MaxReconnects = DefaultMaxReconnects
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	return &Manager{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
	}
}

// OnTransaction registers the callback invoked once per normalized
// transaction. Must be set before Connect.
func (m *Manager) OnTransaction(fn func(*solsvc.Transaction)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onTxn = fn
}

// OnStatus registers the callback invoked on every overall-status change
// with the current connected wallet count. Must be set before Connect.
func (m *Manager) OnStatus(fn func(State, int)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStatus = fn
}

// Connect starts one subscription per wallet, staggering each wallet's
// startup by its ordinal index times the stagger interval. No-op if already
// running.
func (m *Manager) Connect(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.events = make(chan *solsvc.Transaction, 64)
	m.status = make(chan StatusUpdate, 64)
	m.subs = make(map[string]*Subscription, len(m.cfg.Wallets))
	m.states = make(map[string]State, len(m.cfg.Wallets))
	m.connected = make(map[string]struct{})

	for i, wallet := range m.cfg.Wallets {
		sub := NewSubscription(
			wallet,
			m.cfg.Dial,
			m.cfg.Fetcher,
			m.cfg.Parser,
			m.events,
			m.status,
			m.cfg.MaxReconnects,
			m.cfg.ReconnectDelay,
			m.metrics,
			m.logger,
		)
		m.subs[wallet.String()] = sub
		m.states[wallet.String()] = StateIdle

		delay := time.Duration(i) * m.cfg.Stagger
		m.wg.Add(1)
		go func(sub *Subscription, delay time.Duration) {
			defer m.wg.Done()
			if delay > 0 && !sleepCtx(runCtx, delay) {
				return
			}
			sub.Run(runCtx)
		}(sub, delay)
	}
	total := len(m.subs)
	m.mu.Unlock()

	m.logger.Info("subscription manager starting",
		"wallets", total,
		"stagger", m.cfg.Stagger,
	)

	go m.dispatch(runCtx)
}

// dispatch is the single consumer of the event and status channels. It is
// the only goroutine that mutates the connected set, so status aggregation
// needs no per-key locking.
func (m *Manager) dispatch(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case txn := <-m.events:
			m.mu.Lock()
			fn := m.onTxn
			m.mu.Unlock()
			if m.metrics != nil {
				m.metrics.RecordTransactionEmitted(txn.FullWalletAddress, txn.Type)
			}
			if fn != nil {
				fn(txn)
			}

		case upd := <-m.status:
			m.applyStatus(upd)

		case <-ctx.Done():
			return
		}
	}
}

// applyStatus folds one wallet's state change into the aggregate and
// re-emits the overall status.
func (m *Manager) applyStatus(upd StatusUpdate) {
	m.mu.Lock()
	m.states[upd.Wallet] = upd.State
	if upd.State == StateConnected {
		m.connected[upd.Wallet] = struct{}{}
	} else {
		delete(m.connected, upd.Wallet)
	}
	overall := m.overallLocked()
	count := len(m.connected)
	fn := m.onStatus
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.SetConnectedWallets(count)
	}
	if fn != nil {
		fn(overall, count)
	}
}

// overallLocked computes the aggregate status. At least one connected wallet
// means connected; none connected while subscriptions exist means error;
// otherwise disconnected. Partial connectivity is not an error: consumers
// get the connected count alongside the status.
func (m *Manager) overallLocked() State {
	if len(m.connected) > 0 {
		return StateConnected
	}
	if len(m.subs) > 0 {
		return StateError
	}
	return StateDisconnected
}

// Status returns the current overall state plus connected and total wallet
// counts.
func (m *Manager) Status() (State, int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.overallLocked(), len(m.connected), len(m.subs)
}

// Disconnect tears down every subscription and clears internal tracking.
// Safe to call multiple times.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	done := m.done
	subs := m.subs
	m.mu.Unlock()

	// Mark subscriptions dead before cancelling so in-flight completions
	// cannot emit into the closing channels.
	for _, sub := range subs {
		sub.Close()
	}
	cancel()
	m.wg.Wait()
	<-done

	m.mu.Lock()
	m.subs = nil
	m.states = nil
	m.connected = nil
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.SetConnectedWallets(0)
	}
	m.logger.Info("subscription manager stopped")
}
