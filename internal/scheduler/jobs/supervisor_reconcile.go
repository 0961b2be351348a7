package jobs

import (
	"context"

	"github.com/wonny/tradeassist/internal/supervisor"
	"github.com/wonny/tradeassist/pkg/logger"
)

// SupervisorReconcile brings the trading program in line with the calendar
// before the open: started on trading days, stopped on holidays.
type SupervisorReconcile struct {
	supervisor *supervisor.Supervisor
	logger     *logger.Logger
}

// NewSupervisorReconcile wires the pre-open supervisor check
func NewSupervisorReconcile(sup *supervisor.Supervisor, log *logger.Logger) *SupervisorReconcile {
	return &SupervisorReconcile{supervisor: sup, logger: log}
}

func (j *SupervisorReconcile) Name() string { return "supervisor-reconcile" }

// Schedule fires weekdays at 08:50 KST, ten minutes before the open
func (j *SupervisorReconcile) Schedule() string { return "0 50 8 * * MON-FRI" }

func (j *SupervisorReconcile) Run(ctx context.Context) error {
	return j.supervisor.Reconcile(ctx)
}
