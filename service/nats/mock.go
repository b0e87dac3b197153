package nats

import (
	"context"
	"sync"

	solsvc "github.com/brojonat/solwatch/service/solana"
)

// MockPublisher is a mock implementation of Publisher for testing.
type MockPublisher struct {
	mu           sync.RWMutex
	published    []*solsvc.Transaction
	publishError error
	closed       bool
}

// NewMockPublisher creates a new mock publisher for testing.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		published: make([]*solsvc.Transaction, 0),
	}
}

// PublishTransaction records the transaction and returns any configured error.
func (m *MockPublisher) PublishTransaction(ctx context.Context, txn *solsvc.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishError != nil {
		return m.publishError
	}

	m.published = append(m.published, txn)
	return nil
}

// Close marks the publisher as closed.
func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// GetPublished returns all published transactions (for testing).
func (m *MockPublisher) GetPublished() []*solsvc.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Return a copy to avoid race conditions
	out := make([]*solsvc.Transaction, len(m.published))
	copy(out, m.published)
	return out
}

// GetPublishedForWallet returns transactions published for a specific wallet.
func (m *MockPublisher) GetPublishedForWallet(address string) []*solsvc.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*solsvc.Transaction, 0)
	for _, txn := range m.published {
		if txn.FullWalletAddress == address {
			out = append(out, txn)
		}
	}
	return out
}

// SetPublishError configures the mock to return an error on PublishTransaction.
func (m *MockPublisher) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishError = err
}

// IsClosed returns whether the publisher has been closed.
func (m *MockPublisher) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
