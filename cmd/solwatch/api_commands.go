package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	solsvc "github.com/brojonat/solwatch/service/solana"
	"github.com/urfave/cli/v2"
)

func transactionsCommand() *cli.Command {
	return &cli.Command{
		Name:    "transactions",
		Aliases: []string{"txns"},
		Usage:   "Fetch the current transaction display window",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output as JSON",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of transactions to show (0 = all)",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Request timeout",
				Value: 10 * time.Second,
			},
		},
		Action: func(c *cli.Context) error {
			serverURL := c.String("server-url")

			client := &http.Client{Timeout: c.Duration("timeout")}
			resp, err := client.Get(serverURL + "/api/v1/transactions")
			if err != nil {
				return fmt.Errorf("failed to fetch transactions: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("server returned status %d", resp.StatusCode)
			}

			var txns []solsvc.Transaction
			if err := json.NewDecoder(resp.Body).Decode(&txns); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}

			if limit := c.Int("limit"); limit > 0 && len(txns) > limit {
				txns = txns[:limit]
			}

			if c.Bool("json") {
				data, err := json.MarshalIndent(txns, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			if len(txns) == 0 {
				fmt.Println("No transactions yet")
				return nil
			}
			for _, txn := range txns {
				printTransaction(txn)
			}
			return nil
		},
	}
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show aggregated connection status",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output as JSON",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Request timeout",
				Value: 5 * time.Second,
			},
		},
		Action: func(c *cli.Context) error {
			serverURL := c.String("server-url")

			client := &http.Client{Timeout: c.Duration("timeout")}
			resp, err := client.Get(serverURL + "/api/v1/status")
			if err != nil {
				return fmt.Errorf("failed to fetch status: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("server returned status %d", resp.StatusCode)
			}

			var status struct {
				Status           string `json:"status"`
				ConnectedWallets int    `json:"connected_wallets"`
				TotalWallets     int    `json:"total_wallets"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}

			if c.Bool("json") {
				data, err := json.MarshalIndent(status, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			fmt.Printf("Status:    %s\n", status.Status)
			fmt.Printf("Connected: %d/%d wallets\n", status.ConnectedWallets, status.TotalWallets)
			return nil
		},
	}
}

func healthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check server health",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Request timeout",
				Value: 5 * time.Second,
			},
		},
		Action: func(c *cli.Context) error {
			serverURL := c.String("server-url")
			if serverURL == "" {
				return fmt.Errorf("server-url is required (set SOLWATCH_SERVER_URL env var or use --server-url)")
			}

			client := &http.Client{
				Timeout: c.Duration("timeout"),
			}

			healthURL := serverURL + "/health"
			resp, err := client.Get(healthURL)
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusOK {
				fmt.Printf("✓ Server is healthy (status: %d)\n", resp.StatusCode)
				fmt.Printf("  URL: %s\n", serverURL)
				return nil
			}

			return fmt.Errorf("server returned unhealthy status: %d", resp.StatusCode)
		},
	}
}

func printTransaction(txn solsvc.Transaction) {
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("Signature:  %s\n", txn.ID)
	fmt.Printf("Wallet:     %s\n", txn.FullWalletAddress)
	fmt.Printf("Type:       %s\n", txn.Type)
	fmt.Printf("Token:      %s (%s)\n", txn.TokenName, txn.TokenTicker)
	if txn.TokenAmount != "" {
		fmt.Printf("Amount:     %s\n", txn.TokenAmount)
	}
	fmt.Printf("SOL:        %s\n", txn.SolAmount)
	fmt.Printf("Fee:        %s\n", txn.Fee)
	fmt.Printf("Slot:       %s\n", txn.BlockHeight)
	if !txn.Timestamp.IsZero() {
		fmt.Printf("Block Time: %s\n", txn.Timestamp.Format(time.RFC3339))
	}
	fmt.Println()
}
