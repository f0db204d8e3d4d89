// Package simulator composes TopController, StepExecutor, UpdateQueue
// and the scheduling bus into the external command surface spec.md
// §4.10 and §6 describe: the simulator façade. Everything outside this
// package that needs to drive the engine goes through a Simulator.
package simulator

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/opnetlab/opnet/bus"
	"github.com/opnetlab/opnet/common"
	"github.com/opnetlab/opnet/controller"
	"github.com/opnetlab/opnet/executor"
	"github.com/opnetlab/opnet/internal/log"
	"github.com/opnetlab/opnet/rng"
	"github.com/opnetlab/opnet/update"
)

// Status is the snapshot spec.md §4.10's getStatus returns.
type Status struct {
	Step           int64
	PayloadCount   int
	PendingUpdates int
	OperatorCount  int
	LayerCount     int
	Running        bool
}

// Simulator is the external-facing façade. All of its state is guarded
// by mu; spec.md §5 mandates this single-mutex design (choice (b)):
// the run loop acquires mu once per step and releases it between
// steps so façade calls can interpose.
type Simulator struct {
	mu sync.Mutex

	id         uuid.UUID
	logger     *log.Logger
	status     *log.StatusTicker
	opts       SimulatorOptions
	randomizer *rng.Randomizer

	controller *controller.TopController
	executor   *executor.StepExecutor
	updates    *update.Queue
	bus        *bus.Bus

	running       bool
	stopRequested atomic.Bool
	eg            *errgroup.Group
}

// New builds a Simulator with opts, an empty network, and a bound
// scheduling bus (spec.md §4.9: bound at construction, unbound at
// Close).
func New(opts SimulatorOptions) *Simulator {
	id := uuid.New()
	logger := log.Default.With("sim", id.String())

	ctrl := controller.New()
	b := bus.New()
	upd := update.NewQueue()
	exec := executor.New(ctrl, b)
	b.Bind(exec, exec, upd)

	seed := rng.SeedFromString(opts.Seed)
	randomizer := rng.NewRandomizer(rng.NewSeededSource(seed))

	return &Simulator{
		id:         id,
		logger:     logger,
		status:     log.NewStatusTicker(logger, time.Duration(opts.LogFrequencySeconds)*time.Second),
		opts:       opts,
		randomizer: randomizer,
		controller: ctrl,
		executor:   exec,
		updates:    upd,
		bus:        b,
	}
}

// Close unbinds the scheduling bus (spec.md §5 Ownership: "no cycles
// outlive the simulator").
func (s *Simulator) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bus.Unbind()
}

// ID returns the instance's log-attributable UUID.
func (s *Simulator) ID() uuid.UUID { return s.id }

// LoadConfiguration replaces the network from a configuration binary
// (spec.md §4.5 loadConfiguration / §6 load-config).
func (s *Simulator) LoadConfiguration(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.controller.LoadConfiguration(data); err != nil {
		s.logger.Warn("load-config failed", "err", err)
		return err
	}
	s.logger.Info("configuration loaded", "layers", s.controller.LayerCount(), "operators", s.controller.OperatorCount())
	return nil
}

// SaveConfiguration serializes the current network (spec.md §4.5
// saveConfiguration / §6 save-config).
func (s *Simulator) SaveConfiguration() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controller.SaveConfiguration()
}

// LoadState replaces the executor's transient buffers (spec.md §4.8
// loadState / §6 load-state).
func (s *Simulator) LoadState(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.executor.LoadState(data); err != nil {
		s.logger.Warn("load-state failed", "err", err)
		return err
	}
	return nil
}

// SaveState serializes the executor's transient buffers (spec.md §4.8
// saveState / §6 save-state).
func (s *Simulator) SaveState() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.executor.SaveState()
}

// CreateNewNetwork replaces the network with a freshly randomized one
// (spec.md §4.5 randomizeNetwork / §6 new-network).
func (s *Simulator) CreateNewNetwork(numInternal int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if numInternal < 0 {
		return common.ErrInvalidArgument
	}
	if err := s.controller.RandomizeNetwork(numInternal, s.randomizer, s.bus); err != nil {
		return err
	}
	s.logger.Info("new network created", "internal_operators", numInternal)
	return nil
}

// InputText forwards text to the INPUT layer's text channel (spec.md
// §4.5 inputText / §6 submit-text).
func (s *Simulator) InputText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controller.InputText(s.bus, text)
}

// GetOutput drains the OUTPUT layer's text channel (spec.md §6
// get-output).
func (s *Simulator) GetOutput() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controller.GetOutput()
}

// GetTextCount reports the OUTPUT layer's pending text-channel count
// (spec.md §6 get-text-count).
func (s *Simulator) GetTextCount() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controller.GetTextCount()
}

// ClearTextOutput clears the OUTPUT layer's text channel (spec.md §6
// clear-text-output).
func (s *Simulator) ClearTextOutput() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controller.ClearTextOutput()
}

// SetTextBatchSize adjusts the OUTPUT layer's drain batch size (spec.md
// §6 set-batch-size).
func (s *Simulator) SetTextBatchSize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controller.SetTextBatchSize(n)
}

// SetLogFrequency adjusts the status ticker's cadence (spec.md §6
// log-frequency). n must be positive.
func (s *Simulator) SetLogFrequency(n int) error {
	if n <= 0 {
		return common.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts.LogFrequencySeconds = n
	s.status = log.NewStatusTicker(s.logger, time.Duration(n)*time.Second)
	return nil
}

// GetStatus returns the snapshot spec.md §4.10 getStatus describes.
func (s *Simulator) GetStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Step:           s.executor.CurrentStep(),
		PayloadCount:   s.executor.PayloadCount(),
		PendingUpdates: s.updates.Len(),
		OperatorCount:  s.controller.OperatorCount(),
		LayerCount:     s.controller.LayerCount(),
		Running:        s.running,
	}
}

// isActiveLocked reports whether the system still has work to do: any
// in-flight payload, any operator flagged for processing, or any
// pending structural mutation. Called with mu held.
func (s *Simulator) isActiveLocked() bool {
	return s.executor.PayloadCount() > 0 || s.executor.PendingCount() > 0 || s.updates.Len() > 0
}

func (s *Simulator) beginRun() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return common.ErrInvalidState
	}
	s.running = true
	s.stopRequested.Store(false)
	return nil
}

func (s *Simulator) endRun() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// runLoop drives the core run() contract of spec.md §4.10: step,
// drain updates, advance, once per iteration, stopping early on
// inactivity or a cancellation request observed at the step boundary
// (spec.md §5 "consulted once per step boundary").
func (s *Simulator) runLoop(numSteps int64) {
	for i := int64(0); i < numSteps; i++ {
		s.mu.Lock()
		if s.stopRequested.Load() || !s.isActiveLocked() {
			s.mu.Unlock()
			return
		}
		s.executor.Step()
		s.updates.ProcessAll(s.controller)
		s.executor.Advance()
		step := s.executor.CurrentStep()
		s.mu.Unlock()

		s.status.Tick(step, "simulation running")
	}
}

// Run executes up to numSteps, blocking until the loop stops (either
// bound reached, system went idle, or RequestStop was observed). Fails
// with ErrInvalidState if a run is already in progress (spec.md §5:
// "only one run may be active at a time").
func (s *Simulator) Run(numSteps int64) error {
	if numSteps < 0 {
		return common.ErrInvalidArgument
	}
	if err := s.beginRun(); err != nil {
		return err
	}
	defer s.endRun()
	s.runLoop(numSteps)
	return nil
}

// RunDefault runs bounded by MaxRunSteps (spec.md §4.10's run()).
func (s *Simulator) RunDefault() error {
	s.mu.Lock()
	bound := s.opts.MaxRunSteps
	s.mu.Unlock()
	if bound <= 0 {
		bound = DefaultOptions().MaxRunSteps
	}
	return s.Run(bound)
}

// RunAsync starts the run loop on a background goroutine, matching the
// "run may be invoked from a worker thread" contract of spec.md §5 and
// the "start run worker" command of spec.md §6. Wait joins it.
func (s *Simulator) RunAsync(numSteps int64) error {
	if numSteps < 0 {
		return common.ErrInvalidArgument
	}
	if err := s.beginRun(); err != nil {
		return err
	}
	var eg errgroup.Group
	eg.Go(func() error {
		defer s.endRun()
		s.runLoop(numSteps)
		return nil
	})
	s.mu.Lock()
	s.eg = &eg
	s.mu.Unlock()
	return nil
}

// RunDefaultAsync is RunAsync bounded by MaxRunSteps, the async
// counterpart to RunDefault (spec.md §6's bare "run" command).
func (s *Simulator) RunDefaultAsync() error {
	s.mu.Lock()
	bound := s.opts.MaxRunSteps
	s.mu.Unlock()
	if bound <= 0 {
		bound = DefaultOptions().MaxRunSteps
	}
	return s.RunAsync(bound)
}

// Wait blocks until the most recently started RunAsync worker
// finishes, surfacing its terminal error if any.
func (s *Simulator) Wait() error {
	s.mu.Lock()
	eg := s.eg
	s.mu.Unlock()
	if eg == nil {
		return nil
	}
	return eg.Wait()
}

// RequestStop sets the cooperative cancellation flag consulted at the
// next step boundary (spec.md §5 Cancellation).
func (s *Simulator) RequestStop() {
	s.stopRequested.Store(true)
}
