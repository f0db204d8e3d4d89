package log

import (
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/time/rate"
)

// StatusTicker periodically logs process resource usage, matching
// go-ethereum's habit of periodically logging progress/elapsed time
// (visible in the teacher's consensus/pob/snapshot.go "Reconstructing
// voting history" logging). Its cadence is driven by the simulator's
// log-frequency setting (spec.md §6 "log-frequency"), but is always
// additionally capped by a rate.Limiter so a pathologically small
// frequency cannot flood the log sink.
type StatusTicker struct {
	logger  *Logger
	limiter *rate.Limiter
	proc    *process.Process
	stop    chan struct{}
}

// NewStatusTicker builds a ticker that logs at most once per minInterval,
// reporting resident memory and CPU percent for the current process.
func NewStatusTicker(logger *Logger, minInterval time.Duration) *StatusTicker {
	st := &StatusTicker{
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
		stop:    make(chan struct{}),
	}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		st.proc = p
	}
	return st
}

// Tick reports current status if the rate limiter allows it; a no-op
// otherwise. Callers invoke this at step boundaries or on a timer;
// StatusTicker never spawns its own goroutine, keeping it subordinate
// to the simulator's single-threaded step loop (spec.md §5).
func (st *StatusTicker) Tick(step int64, label string) {
	if !st.limiter.Allow() {
		return
	}
	if st.proc == nil {
		st.logger.Info(label, "step", step)
		return
	}
	memInfo, err := st.proc.MemoryInfo()
	cpuPct, cpuErr := st.proc.CPUPercent()
	if err != nil || memInfo == nil {
		st.logger.Info(label, "step", step)
		return
	}
	if cpuErr != nil {
		st.logger.Info(label, "step", step, "rss_bytes", memInfo.RSS)
		return
	}
	st.logger.Info(label, "step", step, "rss_bytes", memInfo.RSS, "cpu_pct", cpuPct)
}
