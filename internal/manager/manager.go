// Package manager implements PlatformManager, the per-platform task loop:
// owns one ClientAdapter and one PlatformStore, paces
// calls through a golang.org/x/time/rate limiter (adapted from the
// donor's internal/social/ratelimiter.go, one limiter per platform
// instead of per platform+account since collection tasks are run
// sequentially per platform rather than per account), and drives the
// quota halt state machine through a quota.Registry.
package manager

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/techappsUT/social-queue/internal/adapter"
	"github.com/techappsUT/social-queue/internal/platformlog"
	"github.com/techappsUT/social-queue/internal/platformmetrics"
	"github.com/techappsUT/social-queue/internal/platformtypes"
	"github.com/techappsUT/social-queue/internal/quota"
	"github.com/techappsUT/social-queue/internal/store"
)

// RunState is the manager's cooperative run-loop state.
type RunState string

const (
	RunStateIdle    RunState = "idle"
	RunStateRunning RunState = "running"
)

// Config holds the per-platform knobs sourced from the run config
// ("platform -> {auth, pacing, progress_enabled, store_path,
// ignore_initial_quota_halt, ...}").
type Config struct {
	Active                 bool
	RequestDelay           time.Duration
	DelayRandomize         time.Duration
	IgnoreInitialQuotaHalt bool
}

// Sink is the optional downstream best-effort POST sink invoked after a
// successful InsertPosts. A Send failure is logged
// and never retried, never affects task status.
type Sink interface {
	Send(ctx context.Context, platform platformtypes.Platform, posts []platformtypes.Post) error
}

// TaskOutcome records what happened to one task during a ProcessAllTasks
// pass: Result is set on success (including test_data synthesis); Err is
// set when the adapter returned an error (as a CollectionError of any
// kind), or to the context's error when the pass was cancelled mid-task.
type TaskOutcome struct {
	Task   *platformtypes.Task
	Result *platformtypes.CollectionResult
	Err    error
}

// PlatformManager owns the per-platform loop.
type PlatformManager struct {
	platform      platformtypes.Platform
	client        adapter.ClientAdapter
	store         *store.PlatformStore
	quotaRegistry *quota.Registry
	cfg           Config
	logger        platformlog.Logger
	sink          Sink

	limiter *rate.Limiter

	mu          sync.Mutex
	clientReady bool
	runState    RunState
}

// New constructs a PlatformManager. sink may be nil.
func New(
	platform platformtypes.Platform,
	client adapter.ClientAdapter,
	ps *store.PlatformStore,
	quotaRegistry *quota.Registry,
	cfg Config,
	logger platformlog.Logger,
	sink Sink,
) *PlatformManager {
	limit := rate.Inf
	if cfg.RequestDelay > 0 {
		limit = rate.Every(cfg.RequestDelay)
	}
	return &PlatformManager{
		platform:      platform,
		client:        client,
		store:         ps,
		quotaRegistry: quotaRegistry,
		cfg:           cfg,
		logger:        platformlog.WithPlatform(logger, string(platform)),
		sink:          sink,
		limiter:       rate.NewLimiter(limit, 1),
	}
}

func (m *PlatformManager) Platform() platformtypes.Platform { return m.platform }

func (m *PlatformManager) Active() bool { return m.cfg.Active }

// Close releases the manager's owned PlatformStore.
func (m *PlatformManager) Close() error { return m.store.Close() }

// RunState reports the current loop state (idle or running).
func (m *PlatformManager) RunState() RunState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runState
}

// AddTasks validates and enqueues tasks ("AddTasks"): each
// task's abstract config is transformed by the adapter into a
// provider-specific serializable config; a task that fails transformation
// is marked INVALID_CONF and still persisted (so the failure is visible)
// but will never appear in PendingTasks since that status is excluded from
// the pending set.
func (m *PlatformManager) AddTasks(ctx context.Context, tasks []*platformtypes.Task) ([]string, error) {
	for _, t := range tasks {
		serialized, err := m.client.TransformConfigToSerializable(ctx, t.AbstractConfig)
		if err != nil {
			t.Status = platformtypes.StatusInvalidConf
			m.logger.Warn("task failed config transform, marking INVALID_CONF",
				"task", t.TaskName, "error", err)
			continue
		}
		t.PlatformConfig = serialized
		if t.Status == "" {
			t.Status = platformtypes.StatusInit
		}
	}
	return m.store.AddTasks(tasks)
}

// ResetRunningTasks forwards to the store; invoked at orchestrator startup
// to recover from an abrupt shutdown.
func (m *PlatformManager) ResetRunningTasks() error {
	return m.store.ResetRunningTasks()
}

// ResetNonDoneTasks forwards to the store; invoked by the operator-initiated
// `reset` CLI operation.
func (m *PlatformManager) ResetNonDoneTasks() (int64, error) {
	return m.store.ResetNonDoneTasks()
}

// ProcessAllTasks runs one pass of the task loop ("Task
// loop"). It is not reentrant: a second call while one is already running
// returns an error rather than racing the store.
func (m *PlatformManager) ProcessAllTasks(ctx context.Context) ([]TaskOutcome, error) {
	m.mu.Lock()
	if m.runState == RunStateRunning {
		m.mu.Unlock()
		return nil, fmt.Errorf("platform %s: ProcessAllTasks already running", m.platform)
	}
	m.runState = RunStateRunning
	m.mu.Unlock()
	platformmetrics.PlatformRunState.WithLabelValues(string(m.platform)).Set(platformmetrics.RunStateRunning)
	defer func() {
		m.mu.Lock()
		m.runState = RunStateIdle
		m.mu.Unlock()
		platformmetrics.PlatformRunState.WithLabelValues(string(m.platform)).Set(platformmetrics.RunStateIdle)
	}()

	if !m.cfg.IgnoreInitialQuotaHalt {
		halted, err := m.quotaRegistry.HasQuotaHalt(m.platform)
		if err != nil {
			return nil, fmt.Errorf("check quota halt: %w", err)
		}
		if halted {
			return nil, nil
		}
	}

	if !m.clientReady {
		if err := m.client.Setup(ctx); err != nil {
			m.logger.Error("adapter setup failed, will retry next pass", "error", err)
			return nil, nil
		}
		m.clientReady = true
	}

	pending, err := m.store.PendingTasks(false)
	if err != nil {
		return nil, fmt.Errorf("fetch pending tasks: %w", err)
	}

	outcomes := make([]TaskOutcome, 0, len(pending))
	for i, task := range pending {
		if err := m.store.UpdateTaskStatus(task.ID, platformtypes.StatusRunning); err != nil {
			return outcomes, fmt.Errorf("mark task %s running: %w", task.TaskName, err)
		}
		now := time.Now().UTC()
		if err := m.store.SetExecutionTS(task.ID, now); err != nil {
			return outcomes, fmt.Errorf("record execution_ts for %s: %w", task.TaskName, err)
		}
		task.ExecutionTS = &now

		var (
			result *platformtypes.CollectionResult
			cerr   *platformtypes.CollectionError
		)
		if len(task.TestData) > 0 {
			result = synthesizeResult(task)
		} else {
			start := time.Now()
			r, execErr := m.client.ExecuteTask(ctx, task)
			platformmetrics.CollectionDurationSeconds.WithLabelValues(string(m.platform)).Observe(time.Since(start).Seconds())
			if execErr != nil && ctx.Err() != nil {
				// Cancellation, not a task failure: the
				// in-flight task goes back to INIT, never ABORTED.
				if err := m.store.UpdateTaskStatus(task.ID, platformtypes.StatusInit); err != nil {
					m.logger.Error("failed to reset task to INIT after cancellation", "task", task.TaskName, "error", err)
				}
				outcomes = append(outcomes, TaskOutcome{Task: task, Err: ctx.Err()})
				return outcomes, nil
			}
			if execErr != nil {
				ce, ok := execErr.(*platformtypes.CollectionError)
				if !ok {
					ce = &platformtypes.CollectionError{Kind: platformtypes.ErrKindFatal, Cause: execErr}
				}
				cerr = ce
			} else {
				result = r
			}
		}

		if cerr != nil {
			switch cerr.Kind {
			case platformtypes.ErrKindQuotaExceeded:
				if err := m.quotaRegistry.StoreQuota(m.platform, cerr.ReleaseAt); err != nil {
					m.logger.Error("failed to persist quota halt", "error", err)
				}
				if err := m.store.UpdateTaskStatus(task.ID, platformtypes.StatusInit); err != nil {
					m.logger.Error("failed to reset task to INIT after quota halt", "task", task.TaskName, "error", err)
				}
				platformmetrics.QuotaHaltsTotal.WithLabelValues(string(m.platform)).Inc()
				outcomes = append(outcomes, TaskOutcome{Task: task, Err: cerr})
				m.logger.Warn("quota exceeded, halting platform", "release_at", cerr.ReleaseAt)
				return outcomes, nil

			case platformtypes.ErrKindFatal:
				if err := m.store.UpdateTaskStatus(task.ID, platformtypes.StatusAborted); err != nil {
					m.logger.Error("failed to mark task aborted", "task", task.TaskName, "error", err)
				}
				platformmetrics.TasksProcessedTotal.WithLabelValues(string(m.platform), "fatal").Inc()
				outcomes = append(outcomes, TaskOutcome{Task: task, Err: cerr})
				return outcomes, cerr

			default:
				if err := m.store.UpdateTaskStatus(task.ID, platformtypes.StatusAborted); err != nil {
					m.logger.Error("failed to mark task aborted", "task", task.TaskName, "error", err)
				}
				m.logger.Warn("task aborted", "task", task.TaskName, "error", cerr)
				platformmetrics.TasksProcessedTotal.WithLabelValues(string(m.platform), "aborted").Inc()
				outcomes = append(outcomes, TaskOutcome{Task: task, Err: cerr})
			}
		} else {
			if err := m.store.InsertPosts(result); err != nil {
				return outcomes, fmt.Errorf("insert posts for %s: %w", task.TaskName, err)
			}
			platformmetrics.TasksProcessedTotal.WithLabelValues(string(m.platform), "done").Inc()
			platformmetrics.PostsCollectedTotal.WithLabelValues(string(m.platform)).Add(float64(len(result.AddedPosts)))
			if m.sink != nil {
				if err := m.sink.Send(ctx, m.platform, result.AddedPosts); err != nil {
					m.logger.Warn("downstream sink post failed", "task", task.TaskName, "error", err)
				}
			}
			outcomes = append(outcomes, TaskOutcome{Task: task, Result: result})
		}

		if i < len(pending)-1 {
			if stop := m.pace(ctx); stop {
				return outcomes, nil
			}
		}
	}

	return outcomes, nil
}

// pace blocks for the rate limiter's next token plus rand[0,
// delay_randomize) jitter, returning true if the context was cancelled
// during the wait (cancellation during sleep aborts the loop cleanly,
// preserving already-committed results).
func (m *PlatformManager) pace(ctx context.Context) bool {
	if err := m.limiter.Wait(ctx); err != nil {
		return true
	}
	if m.cfg.DelayRandomize <= 0 {
		return false
	}
	jitter := time.Duration(rand.Int63n(int64(m.cfg.DelayRandomize)))
	select {
	case <-ctx.Done():
		return true
	case <-time.After(jitter):
		return false
	}
}

func synthesizeResult(task *platformtypes.Task) *platformtypes.CollectionResult {
	return &platformtypes.CollectionResult{
		Task:           task,
		Posts:          task.TestData,
		CollectedItems: len(task.TestData),
		ExecutionTS:    time.Now().UTC(),
	}
}
