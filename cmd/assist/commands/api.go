package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/tradeassist/internal/api"
	"github.com/wonny/tradeassist/internal/api/handlers"
	"github.com/wonny/tradeassist/internal/baseline"
	"github.com/wonny/tradeassist/internal/broadcast"
	"github.com/wonny/tradeassist/internal/confidence"
	"github.com/wonny/tradeassist/internal/ordercond"
	"github.com/wonny/tradeassist/internal/quote"
	"github.com/wonny/tradeassist/internal/stepmanager"
	"github.com/wonny/tradeassist/internal/supervisor"
	"github.com/wonny/tradeassist/internal/tradingday"
	"github.com/wonny/tradeassist/pkg/database"
	"github.com/wonny/tradeassist/pkg/httputil"
	"github.com/wonny/tradeassist/pkg/logger"
	"github.com/wonny/tradeassist/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

이 명령어는:
- HTTP API 서버 시작
- 기준 데이터 / 스텝 매니저 / 시가 신뢰도 / 주문 조건 엔드포인트 제공
- /ws/events 웹소켓 이벤트 스트림 제공

Example:
  go run ./cmd/assist api
  go run ./cmd/assist api --port 8087`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본값: 설정 파일)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Trade Assist API Server ===")

	// 1. Load config
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Override port if flag is set
	if apiPort != "" {
		cfg.Port = apiPort
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing API server")

	// 3. Connect to database
	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.EnsureSchema(ctx); err != nil {
		cancel()
		return fmt.Errorf("ensure schema: %w", err)
	}
	cancel()

	log.Info("Connected to database")

	// 4. Connect to Redis
	redisClient, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()

	cache := redis.NewCache(redisClient, "tradeassist")

	// 5. Create repositories and services
	baselineRepo := baseline.NewRepository(db.Pool)
	stepRepo := stepmanager.NewRepository(db.Pool)
	confidenceSvc := confidence.NewService(cache, log)

	// 6. Create quote client
	httpClient := httputil.New(log)
	quoteClient := quote.NewClient(httpClient, cache, log)

	// 7. Load order conditions
	orderManager := ordercond.NewManager(cfg.Orders.File, log)
	if err := orderManager.Load(); err != nil {
		return fmt.Errorf("load order conditions: %w", err)
	}
	defer orderManager.Shutdown()

	// 8. Trading calendar (임시휴장 체크는 설정된 경우에만)
	calendar := tradingday.NewCalendar()
	if cfg.Calendar.URL != "" {
		calendar = calendar.WithChecker(tradingday.NewKRXChecker(log, cfg.Calendar.URL))
	}

	var sup *supervisor.Supervisor
	if cfg.Supervisor.ProgramName != "" {
		sup = supervisor.New(cfg, calendar, log)
	}

	// 9. Start websocket hub
	hub := broadcast.NewHub(log)
	go hub.Run()
	defer hub.Stop()

	// 10. Create handlers
	h := api.Handlers{
		Baseline:    handlers.NewBaselineHandler(baselineRepo, hub, log),
		StepManager: handlers.NewStepManagerHandler(stepRepo, hub, log),
		Confidence:  handlers.NewConfidenceHandler(confidenceSvc, baselineRepo, quoteClient, hub, log),
		OrderCond:   handlers.NewOrderCondHandler(orderManager, hub, log),
		System:      handlers.NewSystemHandler(calendar, sup, log),
	}

	// 11. Create router and server
	router := api.NewRouter(cfg, h, hub, log)
	server := api.New(cfg, log, router)

	// 12. Start server with graceful shutdown
	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nEndpoint groups:")
	fmt.Println("  GET  /health")
	fmt.Println("  /api/baseline")
	fmt.Println("  /api/step_manager")
	fmt.Println("  /api/confidence")
	fmt.Println("  /api/orders")
	fmt.Println("  /ws/events")
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
