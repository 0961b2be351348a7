package main

import (
	"os"

	"github.com/wonny/tradeassist/cmd/assist/commands"
)

// main is the entry point for the trade assistant CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/assist [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
