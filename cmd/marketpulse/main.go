package main

import (
	"os"

	"github.com/wonny/marketpulse/cmd/marketpulse/commands"
)

// main is the entry point for the MarketPulse CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/marketpulse [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
