package runtime

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// Heartbeat periodically logs resource usage of the server process.
// Purely observational; losing a tick is harmless.
type Heartbeat struct {
	log      *slog.Logger
	interval time.Duration
}

func NewHeartbeat(log *slog.Logger, interval time.Duration) *Heartbeat {
	return &Heartbeat{log: log, interval: interval}
}

func (w *Heartbeat) Run(ctx context.Context) error {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping heartbeat")
			return nil
		case <-ticker.C:
			cpu, err := proc.CPUPercent()
			if err != nil {
				w.log.Error("Error while reading process cpu usage", "err", err)
				continue
			}
			ram, err := proc.MemoryPercent()
			if err != nil {
				w.log.Error("Error while reading process ram usage", "err", err)
				continue
			}
			w.log.Info("heartbeat", "cpu_percent", cpu, "ram_percent", ram)
		}
	}
}
