package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/tradeassist/pkg/config"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "assist",
	Short: "반자동 매매 보조 시스템",
	Long: `Trade Assist Unified CLI

기준 가격/수량 관리, 단계별 매매 추적, 주문 조건, 시가 신뢰도 분석,
거래일 프로세스 관리를 제공하는 매매 보조 백엔드.

Usage:
  go run ./cmd/assist [command]

Examples:
  go run ./cmd/assist api
  go run ./cmd/assist worker start
  go run ./cmd/assist supervisor status
  go run ./cmd/assist cleanup open-prices`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig builds the runtime configuration, applying the global CLI flags
// on top of the environment.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFrom(configFile)
	if err != nil {
		return nil, err
	}

	if env != "" {
		if env != "development" && env != "staging" && env != "production" {
			return nil, fmt.Errorf("--env must be one of: development, staging, production")
		}
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	return cfg, nil
}
