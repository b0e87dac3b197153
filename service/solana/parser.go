package solana

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/brojonat/solwatch/service/token"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

const (
	// lamportsPerSOL converts lamports to SOL.
	lamportsPerSOL = 1e9

	// balanceThreshold is the materiality floor: wallet SOL deltas below
	// this are treated as noise and skipped, not errors.
	balanceThreshold = 0.00001
)

// Sentinel errors for expected skips. These mark transactions that are not
// worth displaying; callers log them at debug level and move on.
var (
	// ErrTransactionFailed marks a transaction the cluster recorded as failed.
	ErrTransactionFailed = errors.New("transaction failed on chain")

	// ErrWalletNotInvolved marks a transaction whose account list does not
	// include the tracked wallet.
	ErrWalletNotInvolved = errors.New("wallet not in transaction accounts")

	// ErrBelowThreshold marks a transaction whose SOL delta for the tracked
	// wallet is below the materiality threshold.
	ErrBelowThreshold = errors.New("balance change below threshold")
)

// Launch platform log fields (pump.fun / Moonshot emit these in program logs).
var (
	logAmountRe = regexp.MustCompile(`amount:\s*(\d+(?:\.\d+)?)`)
	logSymbolRe = regexp.MustCompile(`symbol:\s*([A-Za-z0-9]+)`)
	logNameRe   = regexp.MustCompile(`name:\s*([A-Za-z0-9\s]+)`)
)

// MetadataResolver resolves a token mint to display metadata.
// Satisfied by *token.Resolver; tests inject fakes.
type MetadataResolver interface {
	Resolve(ctx context.Context, mint string) *token.Metadata
}

// Parser turns a raw getTransaction result into a normalized domain
// Transaction for one tracked wallet.
type Parser struct {
	resolver MetadataResolver
	logger   *slog.Logger
}

// NewParser creates a parser that consults the given resolver for token
// identity.
func NewParser(resolver MetadataResolver, logger *slog.Logger) *Parser {
	return &Parser{
		resolver: resolver,
		logger:   logger,
	}
}

// Parse extracts the balance delta, token transfer info, fee, and category
// for the tracked wallet from a full transaction record.
//
// Returns ErrTransactionFailed, ErrWalletNotInvolved, or ErrBelowThreshold
// for transactions that should be silently skipped.
func (p *Parser) Parse(ctx context.Context, result *rpc.GetTransactionResult, wallet solana.PublicKey) (*Transaction, error) {
	if result == nil || result.Meta == nil {
		return nil, ErrTransactionFailed
	}
	if result.Meta.Err != nil {
		return nil, ErrTransactionFailed
	}

	tx, err := result.Transaction.GetTransaction()
	if err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}
	if len(tx.Signatures) == 0 {
		return nil, fmt.Errorf("transaction has no signatures")
	}

	accountKeys := tx.Message.AccountKeys
	walletIndex := -1
	for i, key := range accountKeys {
		if key.Equals(wallet) {
			walletIndex = i
			break
		}
	}
	if walletIndex == -1 {
		return nil, ErrWalletNotInvolved
	}

	meta := result.Meta
	if walletIndex >= len(meta.PreBalances) || walletIndex >= len(meta.PostBalances) {
		return nil, ErrWalletNotInvolved
	}

	solDelta := (float64(meta.PostBalances[walletIndex]) - float64(meta.PreBalances[walletIndex])) / lamportsPerSOL
	if math.Abs(solDelta) < balanceThreshold {
		return nil, ErrBelowThreshold
	}

	logs := meta.LogMessages
	programIDs := instructionPrograms(tx.Message.Instructions, accountKeys)
	info := p.extractTokenInfo(ctx, meta, logs, programIDs, wallet)

	var blockTime time.Time
	if result.BlockTime != nil {
		blockTime = result.BlockTime.Time()
	}

	signature := tx.Signatures[0].String()
	walletAddr := wallet.String()

	return &Transaction{
		ID:                signature,
		Signature:         abbreviate(signature),
		Timestamp:         blockTime,
		TokenName:         info.name,
		TokenTicker:       info.symbol,
		TokenAmount:       info.amount,
		SolAmount:         strconv.FormatFloat(math.Abs(solDelta), 'f', 6, 64),
		Wallet:            abbreviate(walletAddr),
		FullWalletAddress: walletAddr,
		Type:              Classify(logs, programIDs, solDelta),
		Fee:               strconv.FormatFloat(float64(meta.Fee)/lamportsPerSOL, 'f', 6, 64),
		BlockHeight:       strconv.FormatUint(result.Slot, 10),
	}, nil
}

// tokenInfo is the display identity of the token side of a transaction.
type tokenInfo struct {
	name   string
	symbol string
	amount string
}

// extractTokenInfo finds the wallet-owned mint with the largest absolute
// balance change and resolves its identity. Log-derived hints take
// precedence over metadata, and launch-platform log fields take precedence
// over generic hints.
func (p *Parser) extractTokenInfo(ctx context.Context, meta *rpc.TransactionMeta, logs []string, programIDs []solana.PublicKey, wallet solana.PublicKey) tokenInfo {
	info := tokenInfo{name: "SOL Transaction", symbol: "SOL", amount: "N/A"}

	type balancePair struct {
		pre, post float64
	}
	pairs := make(map[string]*balancePair)
	firstMint := ""

	record := func(tb rpc.TokenBalance, post bool) {
		if tb.Owner == nil || !tb.Owner.Equals(wallet) {
			return
		}
		mint := tb.Mint.String()
		if firstMint == "" {
			firstMint = mint
		}
		pair, ok := pairs[mint]
		if !ok {
			pair = &balancePair{}
			pairs[mint] = pair
		}
		amount := 0.0
		if tb.UiTokenAmount != nil && tb.UiTokenAmount.UiAmount != nil {
			amount = *tb.UiTokenAmount.UiAmount
		}
		if post {
			pair.post = amount
		} else {
			pair.pre = amount
		}
	}
	for _, tb := range meta.PreTokenBalances {
		record(tb, false)
	}
	for _, tb := range meta.PostTokenBalances {
		record(tb, true)
	}

	// Pick the mint with the largest absolute change; fall back to the first
	// wallet-owned balance when nothing moved.
	bestMint := ""
	bestChange := 0.0
	for mint, pair := range pairs {
		change := math.Abs(pair.post - pair.pre)
		if change > bestChange {
			bestChange = change
			bestMint = mint
		}
	}
	if bestMint == "" {
		bestMint = firstMint
	}

	if bestMint != "" {
		if bestChange > 0 {
			info.amount = strconv.FormatFloat(bestChange, 'f', -1, 64)
		}
		md := p.resolver.Resolve(ctx, bestMint)
		info.name = md.Name
		info.symbol = md.Symbol
		if md.IsNFT {
			info.name = md.Name + " (NFT)"
			info.amount = "1"
		}
	}

	if name, symbol, ok := logTokenHint(logs); ok {
		info.name = name
		info.symbol = symbol
	}

	if isLaunchPlatform(programIDs, logs) {
		p.applyLaunchPlatformLogs(logs, &info)
	}

	return info
}

// logTokenHint scans log lines for protocol keywords and returns a
// display identity override when one matches.
func logTokenHint(logs []string) (name, symbol string, ok bool) {
	for _, line := range logs {
		if strings.Contains(line, "pump.fun") || strings.Contains(line, "Pump") {
			return "Pump.fun Token", "PUMP", true
		}
		if strings.Contains(line, "moonshot") || strings.Contains(line, "Moonshot") {
			return "Moonshot Token", "MOON", true
		}
		if strings.Contains(line, "Jupiter") {
			return "Jupiter Swap", "JUP", true
		}
		if strings.Contains(line, "Raydium") {
			return "Raydium Swap", "RAY", true
		}
		if strings.Contains(line, "Orca") {
			return "Orca Swap", "ORCA", true
		}
	}
	return "", "", false
}

// isLaunchPlatform reports whether the transaction touches a token launch
// platform, either by program reference or by log content.
func isLaunchPlatform(programIDs []solana.PublicKey, logs []string) bool {
	for _, id := range programIDs {
		if id.Equals(PumpFunProgramID) || id.Equals(MoonshotProgramID) {
			return true
		}
	}
	for _, line := range logs {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "pump") ||
			strings.Contains(lower, "moonshot") ||
			strings.Contains(lower, "bonding curve") {
			return true
		}
	}
	return false
}

// applyLaunchPlatformLogs parses amount/symbol/name fields that launch
// platforms write into program logs and overrides the token identity with
// whatever it finds.
func (p *Parser) applyLaunchPlatformLogs(logs []string, info *tokenInfo) {
	info.name = "Pump.fun Token"
	info.symbol = "PUMP"

	for _, line := range logs {
		if m := logAmountRe.FindStringSubmatch(line); m != nil {
			if amount, err := strconv.ParseFloat(m[1], 64); err == nil {
				info.amount = strconv.FormatFloat(amount, 'f', -1, 64)
			}
		}
		if m := logSymbolRe.FindStringSubmatch(line); m != nil {
			info.symbol = m[1]
		}
		if m := logNameRe.FindStringSubmatch(line); m != nil {
			info.name = strings.TrimSpace(m[1])
		}
		if strings.Contains(strings.ToLower(line), "moonshot") {
			info.name = "Moonshot Token"
			info.symbol = "MOON"
		}
	}
}

// instructionPrograms maps each instruction to the program it invokes.
func instructionPrograms(instructions []solana.CompiledInstruction, accountKeys []solana.PublicKey) []solana.PublicKey {
	programs := make([]solana.PublicKey, 0, len(instructions))
	for _, instruction := range instructions {
		if int(instruction.ProgramIDIndex) < len(accountKeys) {
			programs = append(programs, accountKeys[instruction.ProgramIDIndex])
		}
	}
	return programs
}
