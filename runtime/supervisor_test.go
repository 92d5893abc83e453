package runtime

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingWorker struct {
	runs      atomic.Int32
	panicOnce atomic.Bool
}

func (w *countingWorker) Run(ctx context.Context) error {
	w.runs.Add(1)
	if w.panicOnce.CompareAndSwap(false, true) {
		panic("boom")
	}
	<-ctx.Done()
	return nil
}

func Test_Supervisor_RestartsAfterPanic(t *testing.T) {
	req := require.New(t)

	worker := &countingWorker{}
	sup := NewSupervisor(slog.Default(), 10*time.Millisecond)
	sup.Add(worker)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(done)
	}()

	req.Eventually(func() bool {
		return worker.runs.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond, "worker should be restarted after the panic")

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not shut down")
	}
}

type finishingWorker struct {
	runs atomic.Int32
}

func (w *finishingWorker) Run(context.Context) error {
	w.runs.Add(1)
	return nil
}

func Test_Supervisor_CleanFinishIsFinal(t *testing.T) {
	req := require.New(t)

	worker := &finishingWorker{}
	sup := NewSupervisor(slog.Default(), time.Millisecond)
	sup.Add(worker)

	sup.Run(context.Background())

	req.Equal(int32(1), worker.runs.Load())
}

func Test_Supervisor_StopCancelsWorkers(t *testing.T) {
	sup := NewSupervisor(slog.Default(), time.Millisecond)
	sup.Add(&countingWorker{})

	done := make(chan struct{})
	go func() {
		sup.Run(context.Background())
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	sup.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not terminate the supervisor")
	}
}
