package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultWallets is the built-in set of tracked wallet addresses, used when
// WALLET_ADDRESSES is not provided.
var DefaultWallets = []string{
	"DbTVH1pNaSTLfWn62y4WUW1mNsaAk6U7L4Jp3aDrwi3x",
	"2ynqgvWMCrqoLBaubx3rMfh1tV1BhHxyw5EehGW1wob7",
	"9yYya3F5EJoLnBNKW6z4bZvyQytMXzDcpU5D6yYr4jqL",
	"96sErVjEN7LNJ6Uvj63bdRWZxNuBngj56fnT9biHLKBf",
	"BuhkHhM3j4viF71pMTd23ywxPhF35LUnc2QCLAvUxCdW",
	"ApRnQN2HkbCn7W2WWiT2FEKvuKJp9LugRyAE1a9Hdz1",
	"FAicXNV5FVqtfbpn4Zccs71XcfGeyxBSGbqLDyDJZjke",
	"CA4keXLtGJWBcsWivjtMFBghQ8pFsGRWFxLrRCtirzu5",
	"UxuuMeyX2pZPHmGZ2w3Q8MysvExCAquMtvEfqp2etvm",
	"AeLaMjzxErZt4drbWVWvcxpVyo8p94xu5vrg41eZPFe3",
	"4BdKaxN8G6ka4GYtQQWk4G4dZRUTX2vQH9GcXdBREFUk",
	"86AEJExyjeNNgcp7GrAvCXTDicf5aGWgoERbXFiG1EdD",
	"8deJ9xeUvXSJwicYptA9mHsU2rN2pDx37KWzkDkEXhU6",
	"3pZ59YENxDAcjaKa3sahZJBcgER4rGYi4v6BpPurmsGj",
	"GJA1HEbxGnqBhBifH9uQauzXSB53to5rhDrzmKxhSU65",
	"BCagckXeMChUKrHEd6fKFA1uiWDtcmCXMsqaheLiUPJd",
	"8MaVa9kdt3NW4Q5HyNAm1X5LbR8PQRVDc1W8NMVK88D5",
	"DZAa55HwXgv5hStwaTEJGXZz1DhHejvpb7Yr762urXam",
	"BaLxyjXzATAnfm7cc5AFhWBpiwnsb71THcnofDLTWAPK",
	"As7HjL7dzzvbRbaD3WCun47robib2kmAKRXMvjHkSMB5",
	"EKDDjxzJ39Bjkr47NiARGJDKFVxiiV9WNJ5XbtEhPEXP",
	"831yhv67QpKqLBJjbmw2xoDUeeFHGUx8RnuRj9imeoEs",
	"5B79fMkcFeRTiwm7ehsZsFiKsC7m7n1Bgv9yLxPp9q2X",
	"DYmsQudNqJyyDvq86XmzAvrU9T7xwfQEwh6gPQw9TPNF",
	"BtMBMPkoNbnLF9Xn552guQq528KKXcsNBNNBre3oaQtr",
	"3BLjRcxWGtR7WRshJ3hL25U3RjWr5Ud98wMcczQqk4Ei",
	"CvNiezB8hofusHCKqu8irJ6t2FKY7VjzpSckofMzk5mB",
	"9jyqFiLnruggwNn4EQwBNFXwpbLM9hrA4hV59ytyAVVz",
	"5B52w1ZW9tuwUduueP5J7HXz5AcGfruGoX6YoAudvyxG",
	"2iJNcbQ7hjwLzcRqoo37xYaTPCRMHzfcdeUmNZHbFs55",
	"G3g1CKqKWSVEVURZDNMazDBv7YAhMNTjhJBVRTiKZygk",
}

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	// Server configuration
	ServerAddr string
	LogLevel   string

	// Provider configuration
	HeliusAPIKey string
	SolanaRPCURL string
	SolanaWSURL  string
	TokenListURL string

	// NATS configuration
	NATSURL string

	// Tracking configuration
	Wallets         []string
	MaxTransactions int

	// Subscription tuning
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
	ConnectStagger       time.Duration
}

// Load reads configuration from environment variables and validates all
// required fields. Returns an error if any required configuration is missing
// or invalid. A missing HELIUS_API_KEY is a hard configuration error: the
// provider rejects unauthenticated subscriptions, so there is nothing useful
// the pipeline can do without it.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	// Server configuration
	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	// Provider configuration
	cfg.HeliusAPIKey = os.Getenv("HELIUS_API_KEY")
	if cfg.HeliusAPIKey == "" {
		errs = append(errs, fmt.Errorf("HELIUS_API_KEY is required"))
	}
	cfg.SolanaRPCURL = getEnvOrDefault("SOLANA_RPC_URL", "https://mainnet.helius-rpc.com")
	cfg.SolanaWSURL = getEnvOrDefault("SOLANA_WS_URL", "wss://mainnet.helius-rpc.com")
	cfg.TokenListURL = getEnvOrDefault("TOKEN_LIST_URL", "https://token.jup.ag/strict")

	// NATS configuration
	cfg.NATSURL = getEnvOrDefault("NATS_URL", "nats://localhost:4222")

	// Tracking configuration
	if wallets := os.Getenv("WALLET_ADDRESSES"); wallets != "" {
		for _, w := range strings.Split(wallets, ",") {
			w = strings.TrimSpace(w)
			if w != "" {
				cfg.Wallets = append(cfg.Wallets, w)
			}
		}
		if len(cfg.Wallets) == 0 {
			errs = append(errs, fmt.Errorf("WALLET_ADDRESSES is set but contains no addresses"))
		}
	} else {
		cfg.Wallets = append(cfg.Wallets, DefaultWallets...)
	}

	maxTxns, err := parseInt("MAX_TRANSACTIONS", 300)
	if err != nil {
		errs = append(errs, err)
	} else if maxTxns <= 0 {
		errs = append(errs, fmt.Errorf("MAX_TRANSACTIONS must be positive, got %d", maxTxns))
	} else {
		cfg.MaxTransactions = maxTxns
	}

	// Subscription tuning
	reconnectDelay, err := parseDuration("RECONNECT_DELAY", "2s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.ReconnectDelay = reconnectDelay
	}

	maxAttempts, err := parseInt("MAX_RECONNECT_ATTEMPTS", 3)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.MaxReconnectAttempts = maxAttempts
	}

	stagger, err := parseDuration("CONNECT_STAGGER", "500ms")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.ConnectStagger = stagger
	}

	// Return all validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for server initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.HeliusAPIKey == "" {
		errs = append(errs, fmt.Errorf("HeliusAPIKey is required"))
	}

	if c.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SolanaRPCURL is required"))
	}

	if c.SolanaWSURL == "" {
		errs = append(errs, fmt.Errorf("SolanaWSURL is required"))
	}

	if len(c.Wallets) == 0 {
		errs = append(errs, fmt.Errorf("at least one wallet address is required"))
	}

	if c.MaxTransactions <= 0 {
		errs = append(errs, fmt.Errorf("MaxTransactions must be positive"))
	}

	if c.ReconnectDelay < time.Millisecond {
		errs = append(errs, fmt.Errorf("ReconnectDelay must be at least 1ms"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// RPCEndpoint returns the HTTP RPC URL with the API key attached.
func (c *Config) RPCEndpoint() string {
	return fmt.Sprintf("%s/?api-key=%s", strings.TrimSuffix(c.SolanaRPCURL, "/"), c.HeliusAPIKey)
}

// WSEndpoint returns the websocket URL with the API key attached.
func (c *Config) WSEndpoint() string {
	return fmt.Sprintf("%s/?api-key=%s", strings.TrimSuffix(c.SolanaWSURL, "/"), c.HeliusAPIKey)
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}
