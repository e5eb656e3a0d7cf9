package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"shuttle-ledger/internal/apperr"
	"shuttle-ledger/internal/domain"
	"shuttle-ledger/internal/journal"
)

// Saga names
const (
	sagaPaymentCheck   = "payment_check"
	sagaInquiry        = "inquiry"
	sagaPickupChange   = "pickup_change"
	sagaShortageNotice = "shortage_notice"
	sagaResolveAlert   = "resolve_alert"
	sagaSchoolMatch    = "school_match"
)

// sagaRun a sequence of independent writes with no rollback. Each step is journaled;
// a failure after an earlier step committed comes back as apperr.SagaError.
type sagaRun struct {
	id        string
	name      string
	actor     domain.Actor
	journal   journal.Journal
	clock     domain.Clock
	logger    *zap.Logger
	completed []string
}

func startSaga(ctx context.Context, name string, actor domain.Actor, j journal.Journal, clock domain.Clock, logger *zap.Logger) *sagaRun {
	r := &sagaRun{
		id:      uuid.NewString(),
		name:    name,
		actor:   actor,
		journal: j,
		clock:   clock,
		logger:  logger.With(zap.String("saga", name)),
	}
	r.record(ctx, "", journal.StatusStarted, nil)
	return r
}

func (r *sagaRun) step(ctx context.Context, step string, fn func(ctx context.Context) error) error {
	if err := fn(ctx); err != nil {
		r.record(ctx, step, journal.StatusFailed, map[string]any{"error": err.Error()})
		r.logger.Error("saga step failed",
			zap.String("saga_id", r.id),
			zap.String("step", step),
			zap.Strings("completed", r.completed),
			zap.Error(err),
		)
		if len(r.completed) == 0 {
			return err
		}
		return apperr.SagaError{
			SagaID:    r.id,
			Saga:      r.name,
			Step:      step,
			Completed: append([]string(nil), r.completed...),
			Err:       err,
		}
	}
	r.completed = append(r.completed, step)
	r.record(ctx, step, journal.StatusStepOK, nil)
	return nil
}

func (r *sagaRun) finish(ctx context.Context) {
	r.record(ctx, "", journal.StatusFinished, nil)
}

func (r *sagaRun) record(ctx context.Context, step, status string, detail map[string]any) {
	r.journal.Record(ctx, journal.Entry{
		SagaID: r.id,
		Saga:   r.name,
		Step:   step,
		Status: status,
		Actor:  r.actor.UserID,
		Detail: detail,
		At:     r.clock.Now(),
	})
}
