package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/tradeassist/internal/baseline"
	"github.com/wonny/tradeassist/internal/confidence"
	"github.com/wonny/tradeassist/internal/ordercond"
	"github.com/wonny/tradeassist/internal/quote"
	"github.com/wonny/tradeassist/internal/scheduler"
	"github.com/wonny/tradeassist/internal/scheduler/jobs"
	"github.com/wonny/tradeassist/internal/stepmanager"
	"github.com/wonny/tradeassist/internal/supervisor"
	"github.com/wonny/tradeassist/internal/tradingday"
	"github.com/wonny/tradeassist/pkg/database"
	"github.com/wonny/tradeassist/pkg/httputil"
	"github.com/wonny/tradeassist/pkg/logger"
	"github.com/wonny/tradeassist/pkg/redis"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "백그라운드 워커",
	Long: `크론 스케줄 기반 백그라운드 작업을 실행합니다.

등록되는 작업:
- confidence-sweep:     장중 매시간 시가 기록 점검
- condition-backup:     매일 18:00 주문 조건 파일 백업
- step-sync:            매일 16:00 trade_step 정합성 복구
- supervisor-reconcile: 평일 08:50 매매 프로그램 기동/정지

Example:
  go run ./cmd/assist worker start`,
}

// workerStartCmd represents the start subcommand
var workerStartCmd = &cobra.Command{
	Use:   "start",
	Short: "워커 시작",
	Long: `스케줄러를 시작하고 등록된 작업을 KST 기준으로 실행합니다.

Graceful shutdown (Ctrl+C)을 지원하며, 실패한 작업은 재시도됩니다.

Example:
  go run ./cmd/assist worker start`,
	RunE: runWorkerStart,
}

func init() {
	rootCmd.AddCommand(workerCmd)
	workerCmd.AddCommand(workerStartCmd)
}

func runWorkerStart(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Trade Assist Background Worker ===")

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

	redisClient, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()

	cache := redis.NewCache(redisClient, "tradeassist")

	baselineRepo := baseline.NewRepository(db.Pool)
	stepRepo := stepmanager.NewRepository(db.Pool)
	confidenceSvc := confidence.NewService(cache, log)
	quoteClient := quote.NewClient(httputil.New(log), cache, log)

	orderManager := ordercond.NewManager(cfg.Orders.File, log)
	if err := orderManager.Load(); err != nil {
		return fmt.Errorf("load order conditions: %w", err)
	}
	defer orderManager.Shutdown()

	calendar := tradingday.NewCalendar()
	if cfg.Calendar.URL != "" {
		calendar = calendar.WithChecker(tradingday.NewKRXChecker(log, cfg.Calendar.URL))
	}

	sched := scheduler.New(log)

	jobList := []scheduler.Job{
		jobs.NewConfidenceSweep(baselineRepo, confidenceSvc, quoteClient, calendar, log),
		jobs.NewConditionBackup(orderManager, log),
		jobs.NewStepSync(stepRepo, log),
	}
	if cfg.Supervisor.ProgramName != "" {
		sup := supervisor.New(cfg, calendar, log)
		jobList = append(jobList, jobs.NewSupervisorReconcile(sup, log))
	}

	for _, job := range jobList {
		if err := sched.AddJob(job); err != nil {
			return fmt.Errorf("register job %s: %w", job.Name(), err)
		}
	}

	sched.Start()

	fmt.Println("\n🚀 Worker started")
	fmt.Printf("   Jobs: %v\n", sched.JobNames())
	fmt.Println("   Press Ctrl+C to stop gracefully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\n⚠️  Shutdown signal received")
	sched.Stop()
	fmt.Println("✅ Worker stopped gracefully")
	return nil
}
