package nats

import (
	"context"
	"errors"
	"testing"

	solsvc "github.com/brojonat/solwatch/service/solana"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockPublisher_RecordsTransactions(t *testing.T) {
	pub := NewMockPublisher()

	txn := &solsvc.Transaction{ID: "sig1", FullWalletAddress: "walletA"}
	require.NoError(t, pub.PublishTransaction(context.Background(), txn))
	require.NoError(t, pub.PublishTransaction(context.Background(), &solsvc.Transaction{ID: "sig2", FullWalletAddress: "walletB"}))

	assert.Len(t, pub.GetPublished(), 2)
	forA := pub.GetPublishedForWallet("walletA")
	require.Len(t, forA, 1)
	assert.Equal(t, "sig1", forA[0].ID)
}

func TestMockPublisher_PublishError(t *testing.T) {
	pub := NewMockPublisher()
	pub.SetPublishError(errors.New("nats down"))

	err := pub.PublishTransaction(context.Background(), &solsvc.Transaction{ID: "sig"})
	require.Error(t, err)
	assert.Empty(t, pub.GetPublished())
}

func TestMockPublisher_Close(t *testing.T) {
	pub := NewMockPublisher()
	require.False(t, pub.IsClosed())
	require.NoError(t, pub.Close())
	assert.True(t, pub.IsClosed())
}
