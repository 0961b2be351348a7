package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/wonny/tradeassist/internal/tradingday"
	"github.com/wonny/tradeassist/pkg/config"
	"github.com/wonny/tradeassist/pkg/logger"
)

// now is swappable in tests
var now = time.Now

// ErrNotTradingDay is returned when a start is requested on a non-trading day
var ErrNotTradingDay = errors.New("not a trading day")

// ErrProgramMissing is returned when the trading program binary is absent
var ErrProgramMissing = errors.New("trading program not found")

// Supervisor starts and stops the external trading program around trading
// days. Process discovery goes through pgrep/pkill by program name.
type Supervisor struct {
	programPath string
	programName string
	calendar    *tradingday.Calendar
	logger      *logger.Logger
}

// New creates a supervisor from config
func New(cfg *config.Config, cal *tradingday.Calendar, log *logger.Logger) *Supervisor {
	return &Supervisor{
		programPath: cfg.Supervisor.ProgramPath,
		programName: cfg.Supervisor.ProgramName,
		calendar:    cal,
		logger:      log,
	}
}

// IsRunning reports whether the trading program has a live process
func (s *Supervisor) IsRunning(ctx context.Context) bool {
	err := exec.CommandContext(ctx, "pgrep", "-f", s.programName).Run()
	return err == nil
}

// Start launches the trading program when today is a trading day and it is
// not already running. Starting an already-running program is not an error.
func (s *Supervisor) Start(ctx context.Context) error {
	today := now()
	if !s.calendar.IsTradingDay(ctx, today) {
		s.logger.WithField("date", today.In(tradingday.KST).Format("2006-01-02")).
			Info("휴장일이므로 프로그램을 시작하지 않습니다")
		return ErrNotTradingDay
	}

	if _, err := os.Stat(s.programPath); err != nil {
		return fmt.Errorf("%w: %s", ErrProgramMissing, s.programPath)
	}

	if s.IsRunning(ctx) {
		s.logger.WithField("program", s.programName).Info("프로그램이 이미 실행 중입니다")
		return nil
	}

	cmd := exec.Command(s.programPath)
	if strings.HasSuffix(s.programPath, ".py") {
		cmd = exec.Command("python3", s.programPath)
	}
	cmd.Dir = filepath.Dir(s.programPath)
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start trading program: %w", err)
	}
	// detach: the supervisor does not wait on the child
	if err := cmd.Process.Release(); err != nil {
		s.logger.WithError(err).Warn("프로세스 분리 실패")
	}

	s.logger.WithFields(map[string]interface{}{
		"program": s.programPath,
	}).Info("매매 프로그램 시작 완료")
	return nil
}

// Stop terminates the trading program. Stopping an already-stopped program
// is not an error.
func (s *Supervisor) Stop(ctx context.Context) error {
	if !s.IsRunning(ctx) {
		s.logger.WithField("program", s.programName).Info("프로그램이 실행 중이 아닙니다")
		return nil
	}

	if err := exec.CommandContext(ctx, "pkill", "-f", s.programName).Run(); err != nil {
		return fmt.Errorf("stop trading program: %w", err)
	}

	s.logger.WithField("program", s.programName).Info("매매 프로그램 종료 완료")
	return nil
}

// Status reports the supervisor view of today
type Status struct {
	Calendar       tradingday.Status `json:"calendar"`
	ProgramPath    string            `json:"program_path"`
	ProgramName    string            `json:"program_name"`
	ProgramExists  bool              `json:"program_exists"`
	ProgramRunning bool              `json:"program_running"`
}

// Status builds the current supervisor status
func (s *Supervisor) Status(ctx context.Context) Status {
	_, statErr := os.Stat(s.programPath)
	return Status{
		Calendar:       s.calendar.StatusFor(ctx, now()),
		ProgramPath:    s.programPath,
		ProgramName:    s.programName,
		ProgramExists:  statErr == nil,
		ProgramRunning: s.IsRunning(ctx),
	}
}

// Reconcile starts the program on trading days and stops it otherwise. Meant
// to run from the scheduler around market open and close.
func (s *Supervisor) Reconcile(ctx context.Context) error {
	if s.calendar.IsTradingDay(ctx, now()) {
		err := s.Start(ctx)
		if errors.Is(err, ErrNotTradingDay) {
			return nil
		}
		return err
	}
	return s.Stop(ctx)
}
