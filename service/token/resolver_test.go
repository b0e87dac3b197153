package token

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

// fakeCaller is a scripted RPCCaller for getAsset lookups.
type fakeCaller struct {
	calls   int32
	payload []byte
	err     error
}

func (f *fakeCaller) RPCCallForInto(ctx context.Context, out interface{}, method string, params []interface{}) error {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return f.err
	}
	return json.Unmarshal(f.payload, out)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func TestResolve_AssetRPCSuccess(t *testing.T) {
	caller := &fakeCaller{payload: []byte(`{
		"interface": "FungibleToken",
		"content": {
			"metadata": {"name": "Bonk", "symbol": "BONK"},
			"links": {"image": "https://example.com/bonk.png"}
		},
		"token_info": {"decimals": 5}
	}`)}
	r := NewResolver(caller, "http://unused", nil, nil, testLogger())

	md := r.Resolve(context.Background(), testMint)
	require.NotNil(t, md)
	assert.Equal(t, "Bonk", md.Name)
	assert.Equal(t, "BONK", md.Symbol)
	assert.Equal(t, uint8(5), md.Decimals)
	assert.Equal(t, "https://example.com/bonk.png", md.LogoURI)
	assert.False(t, md.IsNFT)

	// Second lookup is served from cache.
	again := r.Resolve(context.Background(), testMint)
	assert.Same(t, md, again)
	assert.Equal(t, int32(1), atomic.LoadInt32(&caller.calls))
	assert.Equal(t, 1, r.CacheSize())
}

func TestResolve_NFTDetection(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		isNFT   bool
	}{
		{
			name:    "non-fungible interface",
			payload: `{"interface": "NonFungible", "content": {"metadata": {"name": "Mad Lad", "symbol": "MAD"}}}`,
			isNFT:   true,
		},
		{
			name:    "programmable NFT interface",
			payload: `{"interface": "ProgrammableNFT", "content": {"metadata": {"name": "Mad Lad", "symbol": "MAD"}}}`,
			isNFT:   true,
		},
		{
			name:    "supply one with zero decimals",
			payload: `{"interface": "Custom", "content": {"metadata": {"name": "One Of One", "symbol": "OOO"}}, "token_info": {"supply": 1, "decimals": 0}}`,
			isNFT:   true,
		},
		{
			name:    "fungible supply",
			payload: `{"interface": "FungibleToken", "content": {"metadata": {"name": "Bonk", "symbol": "BONK"}}, "token_info": {"supply": 1000000, "decimals": 5}}`,
			isNFT:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(&fakeCaller{payload: []byte(tt.payload)}, "http://unused", nil, nil, testLogger())
			md := r.Resolve(context.Background(), testMint)
			assert.Equal(t, tt.isNFT, md.IsNFT)
		})
	}
}

func TestResolve_TokenListFallback(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		json.NewEncoder(w).Encode([]listEntry{
			{Address: "other", Name: "Other", Symbol: "OTH", Decimals: 9},
			{Address: testMint, Name: "USD Coin", Symbol: "USDC", Decimals: 6, LogoURI: "https://example.com/usdc.png"},
		})
	}))
	defer srv.Close()

	caller := &fakeCaller{err: errors.New("getAsset unavailable")}
	r := NewResolver(caller, srv.URL, srv.Client(), nil, testLogger())

	md := r.Resolve(context.Background(), testMint)
	assert.Equal(t, "USD Coin", md.Name)
	assert.Equal(t, "USDC", md.Symbol)
	assert.Equal(t, uint8(6), md.Decimals)

	// Cached; no second download.
	r.Resolve(context.Background(), testMint)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestResolve_FallbackWhenAllSourcesFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	caller := &fakeCaller{err: errors.New("getAsset unavailable")}
	r := NewResolver(caller, srv.URL, srv.Client(), nil, testLogger())

	md := r.Resolve(context.Background(), testMint)
	assert.Equal(t, "Unknown Token", md.Name)
	assert.Equal(t, testMint[:6]+"...", md.Symbol)
	assert.Equal(t, uint8(6), md.Decimals)

	// The fallback is cached too: the mint is never retried this session.
	again := r.Resolve(context.Background(), testMint)
	assert.Same(t, md, again)
	assert.Equal(t, int32(1), atomic.LoadInt32(&caller.calls))
}

func TestResolve_CoalescesConcurrentLookups(t *testing.T) {
	release := make(chan struct{})
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		<-release
		json.NewEncoder(w).Encode([]listEntry{
			{Address: testMint, Name: "USD Coin", Symbol: "USDC", Decimals: 6},
		})
	}))
	defer srv.Close()

	caller := &fakeCaller{err: errors.New("getAsset unavailable")}
	r := NewResolver(caller, srv.URL, srv.Client(), nil, testLogger())

	const concurrency = 8
	results := make([]*Metadata, concurrency)
	var start, done sync.WaitGroup
	start.Add(concurrency)
	done.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(i int) {
			defer done.Done()
			start.Done()
			start.Wait()
			results[i] = r.Resolve(context.Background(), testMint)
		}(i)
	}

	start.Wait()
	close(release)
	done.Wait()

	// One outbound fetch served every caller.
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	for _, md := range results {
		require.NotNil(t, md)
		assert.Equal(t, "USDC", md.Symbol)
	}
}
