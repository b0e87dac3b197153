package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	app := &cli.App{
		Name:  "solwatch",
		Usage: "Solana wallet live transaction tracker CLI",
		Description: `A command-line tool for tailing and inspecting the solwatch service.

Use this CLI to stream live transactions over SSE, fetch the current display
window, and check connection status.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			streamCommand(),
			transactionsCommand(),
			statusCommand(),
			walletsCommand(),
			healthCommand(),
		},
		// Global flags available to all commands
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server-url",
				Usage:   "Server URL",
				EnvVars: []string{"SOLWATCH_SERVER_URL"},
				Value:   "http://localhost:8080",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
