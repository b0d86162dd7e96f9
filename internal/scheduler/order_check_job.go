package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/aristath/portfoliobot/internal/services"
	"github.com/aristath/portfoliobot/internal/utils"
	"github.com/rs/zerolog"
)

// OrderChecker runs evaluation passes
type OrderChecker interface {
	RunPass(ctx context.Context, trigger string) (*services.PassResult, error)
}

// OrderCheckJob runs one scheduled evaluation pass over pending orders
type OrderCheckJob struct {
	engine  OrderChecker
	timeout time.Duration
	log     zerolog.Logger
}

// NewOrderCheckJob creates a new OrderCheckJob.
// timeout bounds a single pass, including price fetch retries.
func NewOrderCheckJob(engine OrderChecker, timeout time.Duration, log zerolog.Logger) *OrderCheckJob {
	return &OrderCheckJob{
		engine:  engine,
		timeout: timeout,
		log:     log.With().Str("job", "order_check").Logger(),
	}
}

// Name returns the job name
func (j *OrderCheckJob) Name() string {
	return "order_check"
}

// Run executes one pass. A pass already started by another trigger is not an error.
func (j *OrderCheckJob) Run() error {
	ctx := context.Background()
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	// A pass using more than half its interval leaves little headroom for the next tick
	timer := utils.NewTimer("order_check", j.timeout/2, j.log)
	result, err := j.engine.RunPass(ctx, services.TriggerScheduled)
	timer.Stop()
	if errors.Is(err, services.ErrPassInProgress) {
		j.log.Debug().Msg("Pass already in progress, skipping")
		return nil
	}
	if err != nil {
		return err
	}

	if len(result.Executions) > 0 || len(result.TickersSkipped) > 0 {
		j.log.Info().
			Int("evaluated", result.Evaluated).
			Int("executed", len(result.Executions)).
			Int("tickers_skipped", len(result.TickersSkipped)).
			Msg("Scheduled order check completed")
	}

	return nil
}
