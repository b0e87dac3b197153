package solana

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRPC is a scripted RPCClient.
type fakeRPC struct {
	calls    int
	lastOpts *rpc.GetTransactionOpts
	results  []*rpc.GetTransactionResult
	errs     []error
}

func (f *fakeRPC) GetTransaction(ctx context.Context, signature solana.Signature, opts *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error) {
	i := f.calls
	f.calls++
	f.lastOpts = opts
	var result *rpc.GetTransactionResult
	var err error
	if i < len(f.results) {
		result = f.results[i]
	}
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return result, err
}

func (f *fakeRPC) RPCCallForInto(ctx context.Context, out interface{}, method string, params []interface{}) error {
	return nil
}

func TestGetTransactionDetail_RequestOptions(t *testing.T) {
	fake := &fakeRPC{
		results: []*rpc.GetTransactionResult{{Slot: 42}},
		errs:    []error{nil},
	}
	client := NewClient(fake, "test", nil, testLogger())

	result, err := client.GetTransactionDetail(context.Background(), testSig)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), result.Slot)
	assert.Equal(t, 1, fake.calls)

	require.NotNil(t, fake.lastOpts)
	assert.Equal(t, solana.EncodingBase64, fake.lastOpts.Encoding)
	assert.Equal(t, rpc.CommitmentConfirmed, fake.lastOpts.Commitment)
	require.NotNil(t, fake.lastOpts.MaxSupportedTransactionVersion)
	assert.Equal(t, uint64(0), *fake.lastOpts.MaxSupportedTransactionVersion)
}

func TestGetTransactionDetail_CancelledContextStopsRetries(t *testing.T) {
	fake := &fakeRPC{
		errs: []error{errors.New("connection refused"), errors.New("connection refused"), errors.New("connection refused")},
	}
	client := NewClient(fake, "test", nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetTransactionDetail(ctx, testSig)
	require.Error(t, err)
	assert.Equal(t, 1, fake.calls)
}
