package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmayes77/clientflow-sub001/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProcessor struct {
	calls   atomic.Int32
	summary *workflow.ProcessSummary
	err     error
	block   chan struct{}
}

func (f *fakeProcessor) ProcessPendingWorkflows(ctx context.Context) (*workflow.ProcessSummary, error) {
	f.calls.Add(1)

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
		}
	}

	return f.summary, f.err
}

func TestSweeper_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		schedule string
		wantErr  bool
	}{
		{name: "default", schedule: ""},
		{name: "descriptor", schedule: "@every 30s"},
		{name: "standard", schedule: "*/5 * * * *"},
		{name: "invalid", schedule: "every minute", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := NewSweeper(&fakeProcessor{}, slog.Default(), WithSchedule(tt.schedule))

			err := s.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSweeper_SweepReportsFinishedRuns(t *testing.T) {
	t.Parallel()

	processor := &fakeProcessor{summary: &workflow.ProcessSummary{
		Due:       1,
		Completed: 1,
		Runs:      []workflow.RunSummary{{RunID: "run-1", WorkflowID: "wf-1"}},
	}}

	var reported []workflow.RunSummary

	s := NewSweeper(processor, slog.Default(), WithReport(func(_ context.Context, runs []workflow.RunSummary) {
		reported = runs
	}))

	s.Sweep(context.Background())

	require.Len(t, reported, 1)
	assert.Equal(t, "run-1", reported[0].RunID)
}

func TestSweeper_SweepSurvivesErrors(t *testing.T) {
	t.Parallel()

	processor := &fakeProcessor{err: errors.New("database unavailable")}
	reports := 0

	s := NewSweeper(processor, slog.Default(), WithReport(func(context.Context, []workflow.RunSummary) {
		reports++
	}))

	s.Sweep(context.Background())

	assert.Equal(t, int32(1), processor.calls.Load())
	assert.Zero(t, reports)
}

func TestSweeper_StartRunsOnSchedule(t *testing.T) {
	t.Parallel()

	processor := &fakeProcessor{summary: &workflow.ProcessSummary{}}
	s := NewSweeper(processor, slog.Default(), WithSchedule("@every 1s"))

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyStarted)

	assert.Eventually(t, func() bool { return processor.calls.Load() >= 1 }, 5*time.Second, 50*time.Millisecond)

	s.Stop(context.Background())
}

func TestSweeper_SkipsOverlappingSweeps(t *testing.T) {
	t.Parallel()

	processor := &fakeProcessor{block: make(chan struct{})}
	s := NewSweeper(processor, slog.Default(), WithSchedule("@every 1s"))

	require.NoError(t, s.Start(context.Background()))

	time.Sleep(3500 * time.Millisecond)
	assert.Equal(t, int32(1), processor.calls.Load())

	close(processor.block)

	s.Stop(context.Background())
}
