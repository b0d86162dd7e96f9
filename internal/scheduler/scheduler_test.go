package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcJob struct {
	name string
	fn   func() error
}

func (j *funcJob) Name() string { return j.name }
func (j *funcJob) Run() error   { return j.fn() }

func TestAddJob_InvalidSchedule(t *testing.T) {
	s := New(zerolog.Nop())

	err := s.AddJob("not a schedule", &funcJob{name: "bad", fn: func() error { return nil }})
	assert.Error(t, err)

	err = s.Every(0, &funcJob{name: "zero", fn: func() error { return nil }})
	assert.Error(t, err)
}

func TestEvery_Registers(t *testing.T) {
	s := New(zerolog.Nop())

	require.NoError(t, s.Every(30*time.Second, &funcJob{name: "tick", fn: func() error { return nil }}))
	assert.Len(t, s.cron.Entries(), 1)
}

func TestRunNow(t *testing.T) {
	s := New(zerolog.Nop())
	wantErr := errors.New("boom")

	err := s.RunNow(&funcJob{name: "now", fn: func() error { return wantErr }})
	assert.ErrorIs(t, err, wantErr)
}

func TestStop_WaitsForRunningJob(t *testing.T) {
	s := New(zerolog.Nop())

	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	var runs atomic.Int32

	require.NoError(t, s.AddJob("* * * * * *", &funcJob{name: "slow", fn: func() error {
		if runs.Add(1) == 1 {
			close(started)
			<-release
			finished.Store(true)
		}
		return nil
	}}))

	s.Start()

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job never started")
	}

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a job was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)

	select {
	case <-stopped:
	case <-time.After(3 * time.Second):
		t.Fatal("Stop did not return")
	}
	assert.True(t, finished.Load())
}
