package solana

import (
	"strings"

	"github.com/gagliardetto/solana-go"
)

// Well-known Solana program IDs used for transaction classification.
var (
	// JupiterProgramID is the Jupiter v6 aggregator program.
	JupiterProgramID = solana.MustPublicKeyFromBase58("JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4")

	// RaydiumProgramID is the Raydium AMM v4 program.
	RaydiumProgramID = solana.MustPublicKeyFromBase58("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")

	// OrcaProgramID is the Orca Whirlpool program.
	OrcaProgramID = solana.MustPublicKeyFromBase58("whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc")

	// PumpFunProgramID is the pump.fun bonding curve program.
	PumpFunProgramID = solana.MustPublicKeyFromBase58("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")

	// MoonshotProgramID is the Moonshot launch platform program.
	MoonshotProgramID = solana.MustPublicKeyFromBase58("MoonCVVNZFSYkqNXP6bxHLPL6QQJiMagDL3qcqUQTrG")
)

// Transaction categories.
const (
	TypeSwap    = "Swap"
	TypeBuy     = "Buy"
	TypeSell    = "Sell"
	TypeReceive = "Receive"
	TypeSend    = "Send"
)

// programLabels maps a venue program to its category label, checked in order.
var programLabels = []struct {
	id    solana.PublicKey
	label string
}{
	{JupiterProgramID, "Jupiter Swap"},
	{RaydiumProgramID, "Raydium Swap"},
	{OrcaProgramID, "Orca Swap"},
	{PumpFunProgramID, "Pump.fun"},
	{MoonshotProgramID, "Moonshot"},
}

// Classify assigns a category to a transaction from its log lines, the
// programs its instructions reference, and the tracked wallet's SOL delta.
//
// Precedence: a literal keyword in the logs (swap/buy/sell, case-insensitive)
// wins over any program-id match, which wins over the Receive/Send fallback
// derived from the sign of the SOL delta.
func Classify(logs []string, programIDs []solana.PublicKey, solDelta float64) string {
	for _, line := range logs {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "swap") {
			return TypeSwap
		}
		if strings.Contains(lower, "buy") {
			return TypeBuy
		}
		if strings.Contains(lower, "sell") {
			return TypeSell
		}
	}

	for _, id := range programIDs {
		for _, entry := range programLabels {
			if id.Equals(entry.id) {
				return entry.label
			}
		}
	}

	if solDelta > 0 {
		return TypeReceive
	}
	return TypeSend
}
