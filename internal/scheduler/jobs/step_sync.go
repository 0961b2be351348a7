package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/tradeassist/internal/stepmanager"
	"github.com/wonny/tradeassist/pkg/logger"
)

// StepSync repairs step managers whose trade_step drifted away from the
// recorded price list, forcing the invariant trade_step == len(trade_prices).
type StepSync struct {
	managers *stepmanager.Repository
	logger   *logger.Logger
}

// NewStepSync wires the daily step consistency repair
func NewStepSync(managers *stepmanager.Repository, log *logger.Logger) *StepSync {
	return &StepSync{managers: managers, logger: log}
}

func (j *StepSync) Name() string { return "step-sync" }

// Schedule fires daily at 16:00 KST, right after the close
func (j *StepSync) Schedule() string { return "0 0 16 * * *" }

func (j *StepSync) Run(ctx context.Context) error {
	all, err := j.managers.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("list step managers: %w", err)
	}

	issues := stepmanager.FindInconsistent(all)
	if len(issues) == 0 {
		j.logger.Debug("거래 단계 불일치 없음")
		return nil
	}

	var repaired int
	for _, issue := range issues {
		if _, err := j.managers.SyncTradeStep(ctx, issue.Code); err != nil {
			j.logger.WithError(err).WithField("code", issue.Code).Warn("거래 단계 동기화 실패")
			continue
		}
		j.logger.WithFields(map[string]interface{}{
			"code":        issue.Code,
			"trade_step":  issue.TradeStep,
			"price_count": issue.PriceCount,
		}).Info("거래 단계 동기화 완료")
		repaired++
	}

	if repaired < len(issues) {
		return fmt.Errorf("step sync repaired %d of %d managers", repaired, len(issues))
	}
	return nil
}
