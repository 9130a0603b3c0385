package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	stdsync "sync"
	"time"

	"github.com/google/uuid"

	"torgsync/internal/store"
)

// DefaultRunTimeout bounds a run unless Options.Timeout says otherwise.
var DefaultRunTimeout = 30 * time.Minute

// runRetention is how long a finished run stays queryable.
var runRetention = time.Hour

// ErrSyncActive is returned by StartSync while another run is in progress.
// Runs read and write the same file and tables, so they never overlap.
var ErrSyncActive = errors.New("a sync run is already in progress")

// ErrRunNotFound is returned for unknown or expired run IDs.
var ErrRunNotFound = errors.New("run not found")

// RunPhase is the lifecycle state of a run.
type RunPhase string

const (
	PhaseRunning   RunPhase = "running"
	PhaseCompleted RunPhase = "completed"
	PhaseFailed    RunPhase = "failed"
)

// RunStatus is a snapshot of one run.
type RunStatus struct {
	RunID      string     `json:"run_id"`
	Phase      RunPhase   `json:"phase"`
	FilePath   string     `json:"file_path"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

type activeRun struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Phase      RunPhase
	Cancel     context.CancelFunc
	Stats      *Stats
	Err        error
	Done       chan struct{}
}

// Service runs syncs in the background and tracks them by run ID. At most one
// run is active at a time; finished runs stay queryable for a while and are
// then dropped.
type Service struct {
	store store.Store
	log   *slog.Logger
	opts  Options

	mu   stdsync.RWMutex
	runs map[string]*activeRun
}

// NewService builds a sync service.
func NewService(st store.Store, log *slog.Logger, opts Options) *Service {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultRunTimeout
	}
	return &Service{
		store: st,
		log:   log,
		opts:  opts,
		runs:  make(map[string]*activeRun),
	}
}

// StartSync begins a background run and returns its ID immediately.
// Returns ErrSyncActive when a run is already in progress.
func (s *Service) StartSync(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, run := range s.runs {
		if run.Phase == PhaseRunning {
			return "", ErrSyncActive
		}
	}

	runID := uuid.New().String()
	runCtx, cancel := context.WithTimeout(context.Background(), s.opts.Timeout)

	run := &activeRun{
		ID:        runID,
		StartedAt: time.Now(),
		Phase:     PhaseRunning,
		Cancel:    cancel,
		Done:      make(chan struct{}),
	}
	s.runs[runID] = run

	go s.execute(runCtx, run)

	return runID, nil
}

func (s *Service) execute(ctx context.Context, run *activeRun) {
	defer run.Cancel()

	runner := NewRunner(s.store, s.log.With("run_id", run.ID), s.opts)
	stats, err := runner.Run(ctx)

	s.mu.Lock()
	run.Stats = stats
	run.Err = err
	run.FinishedAt = time.Now()
	if err != nil {
		run.Phase = PhaseFailed
	} else {
		run.Phase = PhaseCompleted
	}
	s.mu.Unlock()

	close(run.Done)
	s.cleanup(run.ID, runRetention)
}

// Status returns the current state of a run without blocking.
func (s *Service) Status(runID string) (RunStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[runID]
	if !ok {
		return RunStatus{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	status := RunStatus{
		RunID:     run.ID,
		Phase:     run.Phase,
		FilePath:  s.opts.FilePath,
		StartedAt: run.StartedAt,
	}
	if run.Phase != PhaseRunning {
		finished := run.FinishedAt
		status.FinishedAt = &finished
	}
	return status, nil
}

// Result blocks until the run finishes and returns its stats, or the error
// that failed it.
func (s *Service) Result(runID string) (*Stats, error) {
	s.mu.RLock()
	run, ok := s.runs[runID]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	<-run.Done
	return run.Stats, run.Err
}

// Cancel aborts an in-progress run.
func (s *Service) Cancel(runID string) error {
	s.mu.RLock()
	run, ok := s.runs[runID]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	run.Cancel()
	return nil
}

// cleanup drops a finished run from tracking after a delay.
func (s *Service) cleanup(runID string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.runs, runID)
		s.mu.Unlock()
	})
}
