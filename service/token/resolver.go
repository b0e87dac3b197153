package token

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/brojonat/solwatch/service/metrics"
	"golang.org/x/sync/singleflight"
)

// Metadata describes a token mint for display purposes.
// Entries are immutable once cached.
type Metadata struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	URI      string `json:"uri,omitempty"`
	Decimals uint8  `json:"decimals"`
	IsNFT    bool   `json:"is_nft"`
	LogoURI  string `json:"logo_uri,omitempty"`
}

// RPCCaller is the slice of the Solana RPC client the resolver needs.
// *rpc.Client from gagliardetto/solana-go satisfies this via RPCCallForInto,
// which lets us issue the DAS getAsset method the typed client doesn't cover.
type RPCCaller interface {
	RPCCallForInto(ctx context.Context, out interface{}, method string, params []interface{}) error
}

// assetResult mirrors the getAsset DAS response fields we consume.
type assetResult struct {
	Interface string `json:"interface"`
	Content   struct {
		Metadata struct {
			Name   string `json:"name"`
			Symbol string `json:"symbol"`
			URI    string `json:"uri"`
		} `json:"metadata"`
		Links struct {
			Image string `json:"image"`
		} `json:"links"`
	} `json:"content"`
	TokenInfo struct {
		Decimals *uint8  `json:"decimals"`
		Supply   *uint64 `json:"supply"`
	} `json:"token_info"`
}

// listEntry is one token in the strict token list fallback.
type listEntry struct {
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
	LogoURI  string `json:"logoURI"`
}

const defaultDecimals = uint8(6)

// Resolver resolves token mints to metadata through a multi-source lookup
// chain with a session-permanent cache and in-flight request coalescing.
// One instance is shared by all wallet subscriptions; the lifecycle is
// scoped to one tracking session so nothing leaks across sessions.
type Resolver struct {
	rpc          RPCCaller
	httpClient   *http.Client
	tokenListURL string
	logger       *slog.Logger
	metrics      *metrics.Metrics

	mu    sync.RWMutex
	cache map[string]*Metadata
	group singleflight.Group
}

// NewResolver creates a resolver backed by the given RPC caller for getAsset
// lookups and an HTTP client for the token list fallback. If httpClient is
// nil, http.DefaultClient is used. If m is nil, no metrics are recorded.
func NewResolver(rpc RPCCaller, tokenListURL string, httpClient *http.Client, m *metrics.Metrics, logger *slog.Logger) *Resolver {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Resolver{
		rpc:          rpc,
		httpClient:   httpClient,
		tokenListURL: tokenListURL,
		logger:       logger,
		metrics:      m,
		cache:        make(map[string]*Metadata),
	}
}

// Resolve returns metadata for the given mint. It never fails: if every
// source errors out it returns a fallback record, and the fallback is cached
// so the mint is not retried for the rest of the session.
//
// Concurrent calls for the same mint share a single outbound fetch; all
// callers receive the same resolved value.
func (r *Resolver) Resolve(ctx context.Context, mint string) *Metadata {
	r.mu.RLock()
	md, ok := r.cache[mint]
	r.mu.RUnlock()
	if ok {
		if r.metrics != nil {
			r.metrics.RecordMetadataCacheHit()
		}
		return md
	}

	// Coalesce concurrent lookups for the same mint: the first caller fetches,
	// later callers wait on the same in-flight result. The singleflight entry
	// is dropped on completion, but the resolved value lands in the cache so
	// no second fetch is ever issued for a resolved mint.
	v, _, shared := r.group.Do(mint, func() (interface{}, error) {
		return r.fetch(ctx, mint), nil
	})
	if shared && r.metrics != nil {
		r.metrics.RecordMetadataCoalesced()
	}
	return v.(*Metadata)
}

// fetch runs the source chain for a single mint and caches the result.
func (r *Resolver) fetch(ctx context.Context, mint string) *Metadata {
	if md, err := r.fetchAsset(ctx, mint); err == nil {
		if r.metrics != nil {
			r.metrics.RecordMetadataLookup("asset_rpc", "success")
		}
		return r.store(mint, md)
	} else {
		r.logger.DebugContext(ctx, "asset metadata lookup failed, trying token list",
			"mint", mint,
			"error", err,
		)
		if r.metrics != nil {
			r.metrics.RecordMetadataLookup("asset_rpc", "error")
		}
	}

	if md, err := r.fetchFromTokenList(ctx, mint); err == nil {
		if r.metrics != nil {
			r.metrics.RecordMetadataLookup("token_list", "success")
		}
		return r.store(mint, md)
	} else {
		r.logger.WarnContext(ctx, "all metadata sources failed, using fallback",
			"mint", mint,
			"error", err,
		)
		if r.metrics != nil {
			r.metrics.RecordMetadataLookup("token_list", "error")
		}
	}

	return r.store(mint, fallbackMetadata(mint))
}

// fetchAsset queries the getAsset DAS method for the mint.
func (r *Resolver) fetchAsset(ctx context.Context, mint string) (*Metadata, error) {
	var asset assetResult
	params := []interface{}{map[string]interface{}{"id": mint}}
	if err := r.rpc.RPCCallForInto(ctx, &asset, "getAsset", params); err != nil {
		return nil, fmt.Errorf("getAsset call failed: %w", err)
	}
	if asset.Content.Metadata.Name == "" && asset.Content.Metadata.Symbol == "" {
		return nil, fmt.Errorf("getAsset returned no content for mint %s", mint)
	}

	md := &Metadata{
		Name:     asset.Content.Metadata.Name,
		Symbol:   asset.Content.Metadata.Symbol,
		URI:      asset.Content.Metadata.URI,
		Decimals: defaultDecimals,
		IsNFT:    isNFT(&asset),
		LogoURI:  asset.Content.Links.Image,
	}
	if md.Name == "" {
		md.Name = "Unknown Token"
	}
	if md.Symbol == "" {
		md.Symbol = "UNK"
	}
	if asset.TokenInfo.Decimals != nil {
		md.Decimals = *asset.TokenInfo.Decimals
	}
	return md, nil
}

// isNFT reports whether the asset is non-fungible: either the provider says
// so via the interface type, or supply/decimals make it unambiguous.
func isNFT(asset *assetResult) bool {
	switch asset.Interface {
	case "ProgrammableNFT", "NonFungible":
		return true
	}
	return asset.TokenInfo.Supply != nil && *asset.TokenInfo.Supply == 1 &&
		asset.TokenInfo.Decimals != nil && *asset.TokenInfo.Decimals == 0
}

// fetchFromTokenList downloads the strict token list and matches by mint.
func (r *Resolver) fetchFromTokenList(ctx context.Context, mint string) (*Metadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.tokenListURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build token list request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token list fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token list returned status %d", resp.StatusCode)
	}

	var entries []listEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode token list: %w", err)
	}

	for _, entry := range entries {
		if entry.Address == mint {
			return &Metadata{
				Name:     entry.Name,
				Symbol:   entry.Symbol,
				Decimals: entry.Decimals,
				LogoURI:  entry.LogoURI,
			}, nil
		}
	}

	return nil, fmt.Errorf("mint %s not in token list", mint)
}

// store caches the metadata and returns it.
func (r *Resolver) store(mint string, md *Metadata) *Metadata {
	r.mu.Lock()
	r.cache[mint] = md
	r.mu.Unlock()
	return md
}

// fallbackMetadata is returned when every source fails for a mint.
func fallbackMetadata(mint string) *Metadata {
	symbol := mint
	if len(symbol) > 6 {
		symbol = symbol[:6] + "..."
	}
	return &Metadata{
		Name:     "Unknown Token",
		Symbol:   symbol,
		Decimals: defaultDecimals,
	}
}

// CacheSize returns the number of cached mints.
func (r *Resolver) CacheSize() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}
