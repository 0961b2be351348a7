package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/tradeassist/internal/baseline"
	"github.com/wonny/tradeassist/internal/quote"
	"github.com/wonny/tradeassist/internal/stepmanager"
	"github.com/wonny/tradeassist/pkg/database"
	"github.com/wonny/tradeassist/pkg/httputil"
	"github.com/wonny/tradeassist/pkg/logger"
	"github.com/wonny/tradeassist/pkg/redis"
)

// cleanupCmd represents the cleanup command
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "데이터 정리 도구",
	Long: `저장된 기준 데이터, 포지션, 시가 기록을 정리합니다.

Example:
  assist cleanup open-prices
  assist cleanup baselines --confirm
  assist cleanup stale --verify`,
}

var (
	cleanupConfirm bool
	cleanupVerify  bool
)

var cleanupOpenPricesCmd = &cobra.Command{
	Use:   "open-prices",
	Short: "기록된 시가 전체 삭제",
	Long: `Redis에 기록된 시가(open_price:*) 키를 모두 삭제합니다.

TTL로 자동 만료되지만, 세션 중 다시 기록해야 할 때 수동으로 비웁니다.

Example:
  assist cleanup open-prices`,
	RunE: runCleanupOpenPrices,
}

var cleanupBaselinesCmd = &cobra.Command{
	Use:   "baselines",
	Short: "기준 데이터 전체 삭제",
	RunE:  runCleanupBaselines,
}

var cleanupStepsCmd = &cobra.Command{
	Use:   "steps",
	Short: "스텝 매니저 전체 삭제",
	RunE:  runCleanupSteps,
}

var cleanupStaleCmd = &cobra.Command{
	Use:   "stale",
	Short: "시세 조회가 되지 않는 종목 정리",
	Long: `기준 데이터의 모든 종목을 Naver Finance에서 확인하고,
더 이상 조회되지 않는 종목(상장폐지 등)을 찾아냅니다.

기본은 목록만 출력하며, --confirm을 주면 해당 종목의
기준 데이터와 포지션을 삭제합니다.

Example:
  assist cleanup stale --verify
  assist cleanup stale --verify --confirm`,
	RunE: runCleanupStale,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
	cleanupCmd.AddCommand(cleanupOpenPricesCmd)
	cleanupCmd.AddCommand(cleanupBaselinesCmd)
	cleanupCmd.AddCommand(cleanupStepsCmd)
	cleanupCmd.AddCommand(cleanupStaleCmd)

	cleanupCmd.PersistentFlags().BoolVar(&cleanupConfirm, "confirm", false, "실제 삭제 수행")
	cleanupStaleCmd.Flags().BoolVar(&cleanupVerify, "verify", false, "Naver Finance로 종목 확인")
}

func runCleanupOpenPrices(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Open Price Cleanup ===")

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	redisClient, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()

	cache := redis.NewCache(redisClient, "tradeassist")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	keys, err := cache.Keys(ctx, "open_price:*")
	if err != nil {
		return fmt.Errorf("list open price keys: %w", err)
	}

	if len(keys) == 0 {
		fmt.Println("✅ 삭제할 시가 기록이 없습니다")
		return nil
	}

	deleted := 0
	for _, key := range keys {
		if err := cache.Delete(ctx, key); err != nil {
			log.WithError(err).WithFields(map[string]interface{}{
				"key": key,
			}).Error("Failed to delete open price key")
			continue
		}
		deleted++
	}

	fmt.Printf("✅ 시가 기록 %d건 삭제\n", deleted)
	return nil
}

func runCleanupBaselines(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Baseline Cleanup ===")

	if !cleanupConfirm {
		fmt.Println("⚠️  --confirm 없이 실행하면 삭제하지 않습니다")
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := baseline.NewRepository(db.Pool).DeleteAll(ctx)
	if err != nil {
		return fmt.Errorf("delete baselines: %w", err)
	}

	fmt.Printf("✅ 기준 데이터 %d건 삭제\n", count)
	return nil
}

func runCleanupSteps(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Step Manager Cleanup ===")

	if !cleanupConfirm {
		fmt.Println("⚠️  --confirm 없이 실행하면 삭제하지 않습니다")
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := stepmanager.NewRepository(db.Pool).DeleteAll(ctx)
	if err != nil {
		return fmt.Errorf("delete step managers: %w", err)
	}

	fmt.Printf("✅ 스텝 매니저 %d건 삭제\n", count)
	return nil
}

func runCleanupStale(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Stale Stock Cleanup ===")

	if !cleanupVerify {
		fmt.Println("⚠️  --verify를 주어야 종목 확인을 수행합니다")
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	baselineRepo := baseline.NewRepository(db.Pool)
	stepRepo := stepmanager.NewRepository(db.Pool)
	quoteClient := quote.NewClient(httputil.New(log), nil, log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	codes, err := baselineRepo.StockCodes(ctx)
	if err != nil {
		return fmt.Errorf("list stock codes: %w", err)
	}

	fmt.Printf("📊 확인 대상 종목: %d개\n", len(codes))

	var stale []string
	for _, code := range codes {
		if _, err := quoteClient.FetchStockInfo(ctx, code); err != nil {
			fmt.Printf("  ❌ %s: 조회 실패 (%v)\n", code, err)
			stale = append(stale, code)
		}
	}

	if len(stale) == 0 {
		fmt.Println("✅ 모든 종목이 정상 조회됩니다")
		return nil
	}

	if !cleanupConfirm {
		fmt.Printf("\n⚠️  %d개 종목이 조회되지 않습니다. --confirm을 주면 삭제합니다.\n", len(stale))
		return nil
	}

	for _, code := range stale {
		count, err := baselineRepo.DeleteByCode(ctx, code)
		if err != nil {
			log.WithError(err).WithFields(map[string]interface{}{
				"code": code,
			}).Error("Failed to delete stale baselines")
			continue
		}
		if err := stepRepo.DeleteByCode(ctx, code); err != nil && !errors.Is(err, stepmanager.ErrNotFound) {
			log.WithError(err).WithFields(map[string]interface{}{
				"code": code,
			}).Error("Failed to delete stale step manager")
		}
		fmt.Printf("  🗑  %s: 기준 데이터 %d건 삭제\n", code, count)
	}

	fmt.Printf("✅ 정리 완료 (%d개 종목)\n", len(stale))
	return nil
}
