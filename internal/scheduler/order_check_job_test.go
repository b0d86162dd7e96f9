package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aristath/portfoliobot/internal/domain"
	"github.com/aristath/portfoliobot/internal/services"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type engineStub struct {
	triggers []string
	deadline bool
	result   *services.PassResult
	err      error
}

func (e *engineStub) RunPass(ctx context.Context, trigger string) (*services.PassResult, error) {
	e.triggers = append(e.triggers, trigger)
	_, e.deadline = ctx.Deadline()
	return e.result, e.err
}

func TestOrderCheckJob_Run(t *testing.T) {
	engine := &engineStub{result: &services.PassResult{
		Evaluated:  2,
		Executions: []domain.Execution{{}},
	}}
	job := NewOrderCheckJob(engine, time.Minute, zerolog.Nop())

	assert.Equal(t, "order_check", job.Name())
	assert.NoError(t, job.Run())
	assert.Equal(t, []string{services.TriggerScheduled}, engine.triggers)
	assert.True(t, engine.deadline)
}

func TestOrderCheckJob_PassInProgressIsNotAnError(t *testing.T) {
	engine := &engineStub{err: services.ErrPassInProgress}
	job := NewOrderCheckJob(engine, 0, zerolog.Nop())

	assert.NoError(t, job.Run())
	assert.False(t, engine.deadline)
}

func TestOrderCheckJob_PropagatesFailure(t *testing.T) {
	wantErr := errors.New("database is locked")
	job := NewOrderCheckJob(&engineStub{err: wantErr}, time.Minute, zerolog.Nop())

	assert.ErrorIs(t, job.Run(), wantErr)
}
