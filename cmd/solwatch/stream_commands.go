package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	solsvc "github.com/brojonat/solwatch/service/solana"
	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"
)

func streamCommand() *cli.Command {
	return &cli.Command{
		Name:      "stream",
		Usage:     "Stream live transactions via SSE",
		ArgsUsage: "[wallet_address]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Value:   "http://localhost:8080",
				Usage:   "HTTP server URL",
				EnvVars: []string{"SOLWATCH_SERVER_URL"},
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output transactions as JSON (one per line)",
			},
			&cli.StringSliceFlag{
				Name:    "filter",
				Aliases: []string{"f"},
				Usage:   "jq expression evaluated against each transaction; all filters must return true (e.g. '.type == \"Buy\"')",
			},
		},
		Action: func(c *cli.Context) error {
			serverURL := c.String("server")
			walletAddress := c.Args().First()
			jsonOutput := c.Bool("json")

			// Compile jq filters
			filters, err := compileFilters(c.StringSlice("filter"))
			if err != nil {
				return err
			}

			// Build SSE endpoint URL
			var url string
			if walletAddress != "" {
				url = fmt.Sprintf("%s/api/v1/stream/transactions/%s", serverURL, walletAddress)
			} else {
				url = fmt.Sprintf("%s/api/v1/stream/transactions", serverURL)
			}

			// Create context that cancels on interrupt
			ctx, cancel := context.WithCancel(c.Context)
			defer cancel()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-sigChan
				cancel()
			}()

			// Create HTTP request
			req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
			if err != nil {
				return fmt.Errorf("failed to create request: %w", err)
			}
			req.Header.Set("Accept", "text/event-stream")

			// Make request
			client := &http.Client{
				Timeout: 0, // No timeout for streaming
			}
			resp, err := client.Do(req)
			if err != nil {
				return fmt.Errorf("failed to connect to SSE endpoint: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("server returned status %d", resp.StatusCode)
			}

			// Print connection info
			if !jsonOutput {
				if walletAddress != "" {
					fmt.Fprintf(os.Stderr, "Connected to SSE stream for wallet: %s\n", walletAddress)
				} else {
					fmt.Fprintf(os.Stderr, "Connected to SSE stream for all wallets\n")
				}
				fmt.Fprintf(os.Stderr, "Streaming transactions... (Ctrl+C to stop)\n\n")
			}

			// Read SSE events
			scanner := bufio.NewScanner(resp.Body)
			var currentEvent, currentData string

			for scanner.Scan() {
				line := scanner.Text()

				// Empty line indicates end of event
				if line == "" {
					if currentEvent != "" && currentData != "" {
						if err := handleSSEEvent(currentEvent, currentData, jsonOutput, filters); err != nil {
							fmt.Fprintf(os.Stderr, "Error handling event: %v\n", err)
						}
					}
					currentEvent = ""
					currentData = ""
					continue
				}

				// Parse event line
				if strings.HasPrefix(line, "event:") {
					currentEvent = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
				} else if strings.HasPrefix(line, "data:") {
					currentData = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
				}
			}

			if err := scanner.Err(); err != nil {
				if ctx.Err() != nil {
					// Context cancelled (user interrupt)
					if !jsonOutput {
						fmt.Fprintf(os.Stderr, "\nDisconnected\n")
					}
					return nil
				}
				return fmt.Errorf("error reading SSE stream: %w", err)
			}

			return nil
		},
	}
}

// compileFilters parses and compiles jq expressions.
func compileFilters(exprs []string) ([]*gojq.Code, error) {
	compiled := make([]*gojq.Code, len(exprs))
	for i, expr := range exprs {
		query, err := gojq.Parse(expr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse jq filter %q: %w", expr, err)
		}
		compiled[i], err = gojq.Compile(query)
		if err != nil {
			return nil, fmt.Errorf("failed to compile jq filter %q: %w", expr, err)
		}
	}
	return compiled, nil
}

// matchesFilters reports whether every jq filter evaluates to true for the
// transaction JSON.
func matchesFilters(data string, filters []*gojq.Code) bool {
	if len(filters) == 0 {
		return true
	}

	var obj interface{}
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return false
	}

	for _, code := range filters {
		iter := code.Run(obj)
		v, ok := iter.Next()
		if !ok {
			// No result means filter failed
			return false
		}
		if _, isErr := v.(error); isErr {
			return false
		}
		if matched, ok := v.(bool); !ok || !matched {
			return false
		}
	}
	return true
}

func handleSSEEvent(eventType, data string, jsonOutput bool, filters []*gojq.Code) error {
	switch eventType {
	case "connected":
		if !jsonOutput {
			var info map[string]interface{}
			if err := json.Unmarshal([]byte(data), &info); err != nil {
				return err
			}
			if wallet, ok := info["wallet"].(string); ok {
				fmt.Fprintf(os.Stderr, "✓ Subscribed to wallet: %s\n\n", wallet)
			}
		}
		return nil

	case "transaction":
		if !matchesFilters(data, filters) {
			return nil
		}

		var txn solsvc.Transaction
		if err := json.Unmarshal([]byte(data), &txn); err != nil {
			return err
		}

		if jsonOutput {
			// Output raw JSON
			fmt.Println(data)
		} else {
			// Human-friendly format
			printTransaction(txn)
		}
		return nil

	case "error":
		var errInfo map[string]interface{}
		if err := json.Unmarshal([]byte(data), &errInfo); err != nil {
			return err
		}
		return fmt.Errorf("server error: %v", errInfo["error"])

	default:
		// Unknown event type, ignore
		return nil
	}
}
