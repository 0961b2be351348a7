package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/tradeassist/internal/ordercond"
	"github.com/wonny/tradeassist/pkg/logger"
)

// ConditionBackup rewrites the order-condition file after the close so the
// day's final state lands in the .backup rotation.
type ConditionBackup struct {
	manager *ordercond.Manager
	logger  *logger.Logger
}

// NewConditionBackup wires the daily condition-file backup
func NewConditionBackup(manager *ordercond.Manager, log *logger.Logger) *ConditionBackup {
	return &ConditionBackup{manager: manager, logger: log}
}

func (j *ConditionBackup) Name() string { return "condition-backup" }

// Schedule fires daily at 18:00 KST, after settlement
func (j *ConditionBackup) Schedule() string { return "0 0 18 * * *" }

func (j *ConditionBackup) Run(ctx context.Context) error {
	if err := j.manager.Backup(); err != nil {
		return fmt.Errorf("backup order conditions: %w", err)
	}

	j.logger.WithField("file", j.manager.File()).Info("주문 조건 백업 완료")
	return nil
}
