package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/brojonat/solwatch/service/config"
	"github.com/urfave/cli/v2"
)

func walletsCommand() *cli.Command {
	return &cli.Command{
		Name:  "wallets",
		Usage: "List the tracked wallet addresses",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			// Same resolution order as the server: explicit env list, else the
			// built-in default set.
			wallets := config.DefaultWallets
			if env := os.Getenv("WALLET_ADDRESSES"); env != "" {
				wallets = nil
				for _, w := range strings.Split(env, ",") {
					w = strings.TrimSpace(w)
					if w != "" {
						wallets = append(wallets, w)
					}
				}
			}

			if c.Bool("json") {
				data, err := json.MarshalIndent(wallets, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			for _, w := range wallets {
				fmt.Println(w)
			}
			fmt.Fprintf(os.Stderr, "\n%d wallets tracked\n", len(wallets))
			return nil
		},
	}
}
