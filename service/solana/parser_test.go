package solana

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/brojonat/solwatch/service/token"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testWallet  = solana.MustPublicKeyFromBase58("DbTVH1pNaSTLfWn62y4WUW1mNsaAk6U7L4Jp3aDrwi3x")
	testCounter = solana.MustPublicKeyFromBase58("2ynqgvWMCrqoLBaubx3rMfh1tV1BhHxyw5EehGW1wob7")
	testMint    = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	testSig     = solana.MustSignatureFromBase58("5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7")
)

// fakeResolver returns fixed metadata and counts lookups.
type fakeResolver struct {
	md    *token.Metadata
	calls int
}

func (f *fakeResolver) Resolve(ctx context.Context, mint string) *token.Metadata {
	f.calls++
	if f.md != nil {
		return f.md
	}
	return &token.Metadata{Name: "Unknown Token", Symbol: "UNK", Decimals: 6}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

// Helper function to create a TransactionResultEnvelope from a Transaction.
// Since TransactionResultEnvelope has unexported fields, we use JSON marshaling.
func makeTransactionEnvelope(t *testing.T, tx *solana.Transaction) *rpc.TransactionResultEnvelope {
	t.Helper()

	txJSON, err := json.Marshal(tx)
	require.NoError(t, err)

	var temp struct {
		Transaction json.RawMessage `json:"transaction"`
	}
	temp.Transaction = txJSON

	envelopeJSON, err := json.Marshal(temp)
	require.NoError(t, err)

	var result rpc.GetTransactionResult
	require.NoError(t, json.Unmarshal(envelopeJSON, &result))

	return result.Transaction
}

// makeResult assembles a full getTransaction result for the given accounts,
// instructions, balances and logs.
func makeResult(t *testing.T, accounts []solana.PublicKey, instructions []solana.CompiledInstruction, meta *rpc.TransactionMeta, slot uint64) *rpc.GetTransactionResult {
	t.Helper()

	tx := &solana.Transaction{
		Signatures: []solana.Signature{testSig},
		Message: solana.Message{
			AccountKeys:  accounts,
			Instructions: instructions,
		},
	}

	blockTime := solana.UnixTimeSeconds(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC).Unix())
	return &rpc.GetTransactionResult{
		Slot:        slot,
		BlockTime:   &blockTime,
		Transaction: makeTransactionEnvelope(t, tx),
		Meta:        meta,
	}
}

func TestParse_FailedTransactionSkipped(t *testing.T) {
	resolver := &fakeResolver{}
	parser := NewParser(resolver, testLogger())

	result := makeResult(t,
		[]solana.PublicKey{testWallet, testCounter},
		nil,
		&rpc.TransactionMeta{
			Err:          map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}},
			PreBalances:  []uint64{10_000_000_000, 0},
			PostBalances: []uint64{9_500_000_000, 500_000_000},
		},
		100,
	)

	_, err := parser.Parse(context.Background(), result, testWallet)
	assert.ErrorIs(t, err, ErrTransactionFailed)
	assert.Zero(t, resolver.calls)
}

func TestParse_NilMetaSkipped(t *testing.T) {
	parser := NewParser(&fakeResolver{}, testLogger())

	result := makeResult(t, []solana.PublicKey{testWallet}, nil, nil, 100)
	result.Meta = nil

	_, err := parser.Parse(context.Background(), result, testWallet)
	assert.ErrorIs(t, err, ErrTransactionFailed)
}

func TestParse_WalletNotInvolvedSkipped(t *testing.T) {
	parser := NewParser(&fakeResolver{}, testLogger())

	result := makeResult(t,
		[]solana.PublicKey{testCounter, testMint},
		nil,
		&rpc.TransactionMeta{
			PreBalances:  []uint64{10_000_000_000, 0},
			PostBalances: []uint64{9_000_000_000, 1_000_000_000},
		},
		100,
	)

	_, err := parser.Parse(context.Background(), result, testWallet)
	assert.ErrorIs(t, err, ErrWalletNotInvolved)
}

func TestParse_BelowThresholdSkipped(t *testing.T) {
	parser := NewParser(&fakeResolver{}, testLogger())

	// 5000 lamports is well under the 0.00001 SOL floor.
	result := makeResult(t,
		[]solana.PublicKey{testWallet, testCounter},
		nil,
		&rpc.TransactionMeta{
			PreBalances:  []uint64{10_000_000_000, 0},
			PostBalances: []uint64{10_000_000_000 - 5000, 5000},
		},
		100,
	)

	_, err := parser.Parse(context.Background(), result, testWallet)
	assert.ErrorIs(t, err, ErrBelowThreshold)
}

func TestParse_RaydiumSwap(t *testing.T) {
	resolver := &fakeResolver{md: &token.Metadata{Name: "USD Coin", Symbol: "USDC", Decimals: 6}}
	parser := NewParser(resolver, testLogger())

	preAmount := 0.0
	postAmount := 1000.0
	walletOwner := testWallet

	accounts := []solana.PublicKey{testWallet, testCounter, RaydiumProgramID}
	instructions := []solana.CompiledInstruction{
		{ProgramIDIndex: 2, Accounts: []uint16{0, 1}},
	}
	meta := &rpc.TransactionMeta{
		Fee:          5000,
		PreBalances:  []uint64{10_000_000_000, 0, 0},
		PostBalances: []uint64{9_500_000_000, 500_000_000, 0},
		PreTokenBalances: []rpc.TokenBalance{
			{Mint: testMint, Owner: &walletOwner, UiTokenAmount: &rpc.UiTokenAmount{UiAmount: &preAmount}},
		},
		PostTokenBalances: []rpc.TokenBalance{
			{Mint: testMint, Owner: &walletOwner, UiTokenAmount: &rpc.UiTokenAmount{UiAmount: &postAmount}},
		},
		LogMessages: []string{
			"Program 675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8 invoke [1]",
			"Program log: ray_log",
		},
	}

	txn, err := parser.Parse(context.Background(), makeResult(t, accounts, instructions, meta, 12345), testWallet)
	require.NoError(t, err)

	assert.Equal(t, testSig.String(), txn.ID)
	assert.Equal(t, testSig.String()[:8]+"...", txn.Signature)
	assert.Equal(t, "0.500000", txn.SolAmount)
	assert.Equal(t, "0.000005", txn.Fee)
	assert.Equal(t, "12345", txn.BlockHeight)
	assert.Equal(t, "Raydium Swap", txn.Type)
	assert.Equal(t, "USD Coin", txn.TokenName)
	assert.Equal(t, "USDC", txn.TokenTicker)
	assert.Equal(t, "1000", txn.TokenAmount)
	assert.Equal(t, testWallet.String(), txn.FullWalletAddress)
	assert.Equal(t, testWallet.String()[:8]+"...", txn.Wallet)
	assert.Equal(t, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), txn.Timestamp.UTC())
	assert.Equal(t, 1, resolver.calls)
}

func TestParse_VenueLogHintOverridesMetadata(t *testing.T) {
	resolver := &fakeResolver{md: &token.Metadata{Name: "USD Coin", Symbol: "USDC", Decimals: 6}}
	parser := NewParser(resolver, testLogger())

	preAmount := 0.0
	postAmount := 1000.0
	walletOwner := testWallet

	accounts := []solana.PublicKey{testWallet, testCounter, RaydiumProgramID}
	instructions := []solana.CompiledInstruction{
		{ProgramIDIndex: 2, Accounts: []uint16{0, 1}},
	}
	meta := &rpc.TransactionMeta{
		Fee:          5000,
		PreBalances:  []uint64{10_000_000_000, 0, 0},
		PostBalances: []uint64{9_500_000_000, 500_000_000, 0},
		PreTokenBalances: []rpc.TokenBalance{
			{Mint: testMint, Owner: &walletOwner, UiTokenAmount: &rpc.UiTokenAmount{UiAmount: &preAmount}},
		},
		PostTokenBalances: []rpc.TokenBalance{
			{Mint: testMint, Owner: &walletOwner, UiTokenAmount: &rpc.UiTokenAmount{UiAmount: &postAmount}},
		},
		LogMessages: []string{"Program log: Instruction: Raydium"},
	}

	txn, err := parser.Parse(context.Background(), makeResult(t, accounts, instructions, meta, 12345), testWallet)
	require.NoError(t, err)

	// The venue keyword in the logs overrides metadata-derived identity.
	assert.Equal(t, "0.500000", txn.SolAmount)
	assert.Equal(t, "Raydium Swap", txn.Type)
	assert.Equal(t, "Raydium Swap", txn.TokenName)
	assert.Equal(t, "RAY", txn.TokenTicker)
}

func TestParse_NFTTransfer(t *testing.T) {
	resolver := &fakeResolver{md: &token.Metadata{Name: "Mad Lad #123", Symbol: "MADLAD", IsNFT: true}}
	parser := NewParser(resolver, testLogger())

	preAmount := 0.0
	postAmount := 1.0
	walletOwner := testWallet

	accounts := []solana.PublicKey{testWallet, testCounter}
	meta := &rpc.TransactionMeta{
		Fee:          5000,
		PreBalances:  []uint64{10_000_000_000, 0},
		PostBalances: []uint64{9_990_000_000, 10_000_000},
		PreTokenBalances: []rpc.TokenBalance{
			{Mint: testMint, Owner: &walletOwner, UiTokenAmount: &rpc.UiTokenAmount{UiAmount: &preAmount}},
		},
		PostTokenBalances: []rpc.TokenBalance{
			{Mint: testMint, Owner: &walletOwner, UiTokenAmount: &rpc.UiTokenAmount{UiAmount: &postAmount}},
		},
	}

	txn, err := parser.Parse(context.Background(), makeResult(t, accounts, nil, meta, 200), testWallet)
	require.NoError(t, err)

	assert.Equal(t, "Mad Lad #123 (NFT)", txn.TokenName)
	assert.Equal(t, "1", txn.TokenAmount)
	// No venue program and negative delta falls through to Send.
	assert.Equal(t, TypeSend, txn.Type)
}

func TestParse_LaunchPlatformLogOverride(t *testing.T) {
	resolver := &fakeResolver{}
	parser := NewParser(resolver, testLogger())

	accounts := []solana.PublicKey{testWallet, testCounter, PumpFunProgramID}
	instructions := []solana.CompiledInstruction{
		{ProgramIDIndex: 2, Accounts: []uint16{0, 1}},
	}
	meta := &rpc.TransactionMeta{
		Fee:          5000,
		PreBalances:  []uint64{10_000_000_000, 0, 0},
		PostBalances: []uint64{9_900_000_000, 100_000_000, 0},
		LogMessages: []string{
			"Program log: Instruction: Buy",
			"Program log: pump.fun bonding curve",
			"Program log: amount: 42000",
			"Program log: symbol: WIF",
			"Program log: name: dogwifhat",
		},
	}

	txn, err := parser.Parse(context.Background(), makeResult(t, accounts, instructions, meta, 300), testWallet)
	require.NoError(t, err)

	// Log keyword wins over the program table for the category.
	assert.Equal(t, TypeBuy, txn.Type)

	// Launch platform log fields win over everything else for token identity.
	assert.Equal(t, "dogwifhat", txn.TokenName)
	assert.Equal(t, "WIF", txn.TokenTicker)
	assert.Equal(t, "42000", txn.TokenAmount)

	// No wallet-owned token balances, so metadata was never looked up.
	assert.Zero(t, resolver.calls)
}

func TestParse_PlainTransferUsesSolIdentity(t *testing.T) {
	resolver := &fakeResolver{}
	parser := NewParser(resolver, testLogger())

	accounts := []solana.PublicKey{testWallet, testCounter}
	meta := &rpc.TransactionMeta{
		Fee:          5000,
		PreBalances:  []uint64{10_000_000_000, 0},
		PostBalances: []uint64{11_000_000_000, 0},
	}

	txn, err := parser.Parse(context.Background(), makeResult(t, accounts, nil, meta, 400), testWallet)
	require.NoError(t, err)

	assert.Equal(t, "SOL Transaction", txn.TokenName)
	assert.Equal(t, "SOL", txn.TokenTicker)
	assert.Equal(t, "N/A", txn.TokenAmount)
	assert.Equal(t, TypeReceive, txn.Type)
	assert.Equal(t, "1.000000", txn.SolAmount)
	assert.Zero(t, resolver.calls)
}
