package solana

import (
	"time"
)

// Transaction is a normalized wallet transaction ready for display.
// This is our domain model, independent of the RPC response format.
// It is created once per successfully parsed notification and is
// immutable after creation.
type Transaction struct {
	// ID is the full transaction signature.
	ID string `json:"id"`

	// Signature is the abbreviated signature for display.
	Signature string `json:"signature"`

	// Timestamp is the block time of the transaction.
	Timestamp time.Time `json:"timestamp"`

	// Token information resolved for the most significant balance change.
	TokenName   string `json:"token_name"`
	TokenTicker string `json:"token_ticker"`
	TokenAmount string `json:"token_amount"`

	// SolAmount is the absolute SOL balance change, formatted to 6 decimals.
	SolAmount string `json:"sol_amount"`

	// Wallet is the abbreviated tracked wallet address; FullWalletAddress
	// retains the complete address.
	Wallet            string `json:"wallet"`
	FullWalletAddress string `json:"full_wallet_address"`

	// Type is the classified category (Swap, Buy, Sell, Receive, Send, or a
	// venue-specific label such as "Raydium Swap").
	Type string `json:"type"`

	// Fee is the transaction fee in SOL, formatted to 6 decimals.
	Fee string `json:"fee"`

	// BlockHeight is the slot the transaction landed in.
	BlockHeight string `json:"block_height"`
}

// abbreviate shortens an address or signature for display.
func abbreviate(s string) string {
	if len(s) <= 8 {
		return s
	}
	return s[:8] + "..."
}
