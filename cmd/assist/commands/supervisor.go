package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/tradeassist/internal/supervisor"
	"github.com/wonny/tradeassist/internal/tradingday"
	"github.com/wonny/tradeassist/pkg/logger"
)

// supervisorCmd represents the supervisor command group
var supervisorCmd = &cobra.Command{
	Use:   "supervisor",
	Short: "매매 프로그램 감독",
	Long: `거래일에만 매매 프로그램을 기동하고 상태를 관리합니다.

SUPERVISOR_PROGRAM_PATH / SUPERVISOR_PROGRAM_NAME 환경변수로
감독 대상 프로그램을 지정합니다.

Example:
  go run ./cmd/assist supervisor start
  go run ./cmd/assist supervisor status`,
}

var supervisorStartCmd = &cobra.Command{
	Use:   "start",
	Short: "매매 프로그램 시작 (거래일에만)",
	RunE: func(cmd *cobra.Command, args []string) error {
		sup, err := buildSupervisor()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := sup.Start(ctx); err != nil {
			if errors.Is(err, supervisor.ErrNotTradingDay) {
				fmt.Println("📅 오늘은 거래일이 아닙니다. 프로그램을 시작하지 않습니다.")
				return nil
			}
			return err
		}

		fmt.Println("✅ 매매 프로그램 시작")
		return nil
	},
}

var supervisorStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "매매 프로그램 중지",
	RunE: func(cmd *cobra.Command, args []string) error {
		sup, err := buildSupervisor()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := sup.Stop(ctx); err != nil {
			return err
		}

		fmt.Println("✅ 매매 프로그램 중지")
		return nil
	},
}

var supervisorCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "프로세스 실행 여부 확인",
	RunE: func(cmd *cobra.Command, args []string) error {
		sup, err := buildSupervisor()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if sup.IsRunning(ctx) {
			fmt.Println("🟢 실행 중")
		} else {
			fmt.Println("⚪ 실행되고 있지 않음")
		}
		return nil
	},
}

var supervisorStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "달력/프로그램 상태 요약",
	RunE: func(cmd *cobra.Command, args []string) error {
		sup, err := buildSupervisor()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		status := sup.Status(ctx)

		fmt.Println("=== Supervisor Status ===")
		fmt.Printf("날짜:         %s (%s)\n", status.Calendar.Date, status.Calendar.Weekday)
		fmt.Printf("거래일:       %v\n", status.Calendar.IsTradingDay)
		if status.Calendar.Holiday != "" {
			fmt.Printf("휴일:         %s\n", status.Calendar.Holiday)
		}
		fmt.Printf("장중:         %v\n", status.Calendar.IsMarketHours)
		fmt.Printf("다음 거래일:  %s\n", status.Calendar.NextTradingDay)
		fmt.Printf("프로그램:     %s (%s)\n", status.ProgramName, status.ProgramPath)
		fmt.Printf("존재:         %v\n", status.ProgramExists)
		fmt.Printf("실행 중:      %v\n", status.ProgramRunning)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(supervisorCmd)
	supervisorCmd.AddCommand(supervisorStartCmd)
	supervisorCmd.AddCommand(supervisorStopCmd)
	supervisorCmd.AddCommand(supervisorCheckCmd)
	supervisorCmd.AddCommand(supervisorStatusCmd)
}

func buildSupervisor() (*supervisor.Supervisor, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Supervisor.ProgramName == "" {
		return nil, fmt.Errorf("SUPERVISOR_PROGRAM_NAME is not set")
	}

	log := logger.New(cfg)

	calendar := tradingday.NewCalendar()
	if cfg.Calendar.URL != "" {
		calendar = calendar.WithChecker(tradingday.NewKRXChecker(log, cfg.Calendar.URL))
	}

	return supervisor.New(cfg, calendar, log), nil
}
