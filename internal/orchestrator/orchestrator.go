// Package orchestrator implements Orchestrator, the top-level object
// owning every PlatformManager, grounded in the Python
// original's PlatformOrchestrator (original_source/src/platform_orchestration.py)
// but built around goroutine fan-out instead of asyncio.gather, the way
// the donor's cmd/worker processors run one goroutine per processor off
// a shared context (backend/cmd/worker/cleanup.go's ctx.Done()/ticker
// loop shape).
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/techappsUT/social-queue/internal/adapter"
	"github.com/techappsUT/social-queue/internal/config"
	"github.com/techappsUT/social-queue/internal/manager"
	"github.com/techappsUT/social-queue/internal/platformlog"
	"github.com/techappsUT/social-queue/internal/platformtypes"
	"github.com/techappsUT/social-queue/internal/quota"
	"github.com/techappsUT/social-queue/internal/store"
	"github.com/techappsUT/social-queue/internal/taskmanager"
	"github.com/techappsUT/social-queue/pkg/sinkclient"
)

// PlatformResult pairs a platform with the outcomes ProcessAllTasks
// produced for it, or the error that stopped its pass early.
type PlatformResult struct {
	Platform platformtypes.Platform
	Outcomes []manager.TaskOutcome
	Err      error
}

// Orchestrator owns one PlatformManager per configured client, the
// shared MetaStore catalog, and the TaskManager that feeds new tasks in
// from the filesystem.
type Orchestrator struct {
	meta     *store.MetaStore
	managers map[platformtypes.Platform]*manager.PlatformManager
	taskMgr  *taskmanager.TaskManager
	logger   platformlog.Logger
	loopCfg  config.LoopConfig
}

// openMetaStore dispatches to the sqlite- or postgres-backed MetaStore
// opener per config.MetaConfig.Kind, defaulting to sqlite the way the
// config's own validator tag does.
func openMetaStore(cfg config.MetaConfig) (*store.MetaStore, error) {
	if cfg.Kind == "postgres" {
		return store.OpenMetaStorePostgres(cfg.DSN)
	}
	return store.OpenMetaStore(cfg.DBPath)
}

// openPlatformStore dispatches to the sqlite- or postgres-backed
// PlatformStore opener per config.DBConfig.Kind.
func openPlatformStore(platform platformtypes.Platform, cfg config.DBConfig) (*store.PlatformStore, error) {
	if cfg.Kind == "postgres" {
		return store.OpenPlatformStorePostgres(platform, cfg.DSN)
	}
	return store.OpenPlatformStore(platform, cfg.DBPath)
}

// New builds an Orchestrator from a loaded run config: it opens (or
// creates) the meta store, opens one PlatformStore and one
// quota.Registry per configured client, constructs a PlatformManager
// wired to the adapter registered for that platform, and registers every
// configured platform in the catalog ("ensures every
// configured platform is catalog-registered", matching the original's
// add_platform_db call in initialize_platform_managers).
func New(cfg *config.RunConfig, adapters *adapter.Registry, logger platformlog.Logger) (*Orchestrator, error) {
	meta, err := openMetaStore(cfg.Meta)
	if err != nil {
		return nil, fmt.Errorf("open meta store: %w", err)
	}

	var sink manager.Sink
	if cfg.Sink.Enabled && cfg.Sink.URL != "" {
		sink = sinkclient.New(cfg.Sink.URL, cfg.Sink.Timeout)
	}

	managers := make(map[platformtypes.Platform]*manager.PlatformManager, len(cfg.Clients))
	for name, clientCfg := range cfg.Clients {
		platform := platformtypes.Platform(name)

		client, ok := adapters.Get(platform)
		if !ok {
			return nil, fmt.Errorf("no adapter registered for platform %q", name)
		}

		ps, err := openPlatformStore(platform, clientCfg.DB)
		if err != nil {
			return nil, fmt.Errorf("open store for %q: %w", name, err)
		}

		catalogPath := clientCfg.DB.DBPath
		if clientCfg.DB.Kind == "postgres" {
			catalogPath = clientCfg.DB.DSN
		}
		if err := meta.AddDatabase(platform, catalogPath, false); err != nil {
			return nil, fmt.Errorf("register platform %q in catalog: %w", name, err)
		}

		qr := quota.NewRegistry(catalogPath + ".quotas.json")

		mgrCfg := manager.Config{
			Active:                 clientCfg.Active,
			RequestDelay:           clientCfg.RequestDelay(),
			DelayRandomize:         clientCfg.DelayRandomize(),
			IgnoreInitialQuotaHalt: clientCfg.IgnoreInitialQuotaHalt,
		}
		managers[platform] = manager.New(platform, client, ps, qr, mgrCfg, logger, sink)
	}

	o := &Orchestrator{meta: meta, managers: managers, logger: logger, loopCfg: cfg.Loop}
	o.taskMgr = taskmanager.New(o, taskmanager.Config{
		TaskDir:            cfg.Tasks.Dir,
		ProcessedDir:       cfg.Tasks.ProcessedDir,
		MoveProcessedTasks: cfg.Tasks.MoveProcessedTasks,
	}, logger)

	return o, nil
}

// Submit validates and enqueues tasks submitted through the HTTP surface
// ("POST /submit"), grouping them by platform and delegating to
// each platform's PlatformManager the same way a task file does.
func (o *Orchestrator) Submit(ctx context.Context, tasks []*platformtypes.Task) ([]string, bool, error) {
	return o.taskMgr.AddTasks(ctx, tasks)
}

// Get satisfies taskmanager.ManagerLookup, letting TaskManager resolve a
// platform's owning manager without depending on Orchestrator directly.
func (o *Orchestrator) Get(platform platformtypes.Platform) (*manager.PlatformManager, bool) {
	m, ok := o.managers[platform]
	return m, ok
}

// ResetRunningTasks resets every platform's RUNNING tasks back to INIT,
// run once at startup to recover from an abrupt prior shutdown.
func (o *Orchestrator) ResetRunningTasks() error {
	for platform, m := range o.managers {
		if err := m.ResetRunningTasks(); err != nil {
			return fmt.Errorf("reset running tasks for %s: %w", platform, err)
		}
	}
	return nil
}

// ResetStuckTasks resets every platform's RUNNING tasks back to INIT,
// delegating to the same per-manager reset ResetRunningTasks uses. Unlike
// ResetRunningTasks, which bootstrap.New calls once at process startup to
// recover from an abrupt prior shutdown, ResetStuckTasks is invoked at the
// start of every Collect pass, so a task left RUNNING by a pass that was
// interrupted mid-run (not just a restarted process) is retried instead of
// stalling until the next restart.
func (o *Orchestrator) ResetStuckTasks() error {
	return o.ResetRunningTasks()
}

// ResetNonDoneTasks resets every platform's non-DONE tasks back to INIT
// ("reset non-DONE tasks to INIT"), returning the number of rows
// affected per platform.
func (o *Orchestrator) ResetNonDoneTasks() (map[platformtypes.Platform]int64, error) {
	affected := make(map[platformtypes.Platform]int64, len(o.managers))
	for platform, m := range o.managers {
		n, err := m.ResetNonDoneTasks()
		if err != nil {
			return affected, fmt.Errorf("reset non-done tasks for %s: %w", platform, err)
		}
		affected[platform] = n
	}
	return affected, nil
}

// CheckNewClientTasks delegates to the TaskManager.
func (o *Orchestrator) CheckNewClientTasks(ctx context.Context) ([]string, error) {
	return o.taskMgr.CheckNewClientTasks(ctx)
}

// ProgressTasks runs one ProcessAllTasks pass per active platform
// manager, concurrently, mirroring the original's
// asyncio.gather(*platform_tasks) with one goroutine per platform
// ("platforms run concurrently, tasks within a platform
// run sequentially"). A platform whose manager reports Active()==false is
// skipped, matching the original's `if not progress: continue`.
func (o *Orchestrator) ProgressTasks(ctx context.Context, only []platformtypes.Platform) ([]PlatformResult, error) {
	runID := uuid.NewString()
	logger := platformlog.WithField(o.logger, "run_id", runID)

	var targets []platformtypes.Platform
	if len(only) > 0 {
		targets = only
	} else {
		for p := range o.managers {
			targets = append(targets, p)
		}
	}

	logger.Info("progress pass starting", "platform_count", len(targets))

	results := make([]PlatformResult, len(targets))
	var wg sync.WaitGroup
	for i, platform := range targets {
		m, ok := o.managers[platform]
		if !ok {
			results[i] = PlatformResult{Platform: platform, Err: fmt.Errorf("no manager for platform %q", platform)}
			continue
		}
		if !m.Active() {
			logger.Info("progress deactivated for platform", "platform", platform)
			results[i] = PlatformResult{Platform: platform}
			continue
		}

		wg.Add(1)
		go func(i int, platform platformtypes.Platform, m *manager.PlatformManager) {
			defer wg.Done()
			outcomes, err := m.ProcessAllTasks(ctx)
			results[i] = PlatformResult{Platform: platform, Outcomes: outcomes, Err: err}
		}(i, platform, m)
	}
	wg.Wait()

	logger.Info("progress pass complete", "platform_count", len(targets))
	return results, nil
}

// Collect runs one full collection pass: it scans for new task files,
// resets any task left RUNNING by an interrupted previous pass, then
// progresses every active platform's pending tasks ("Collect(): one
// pass — invokes TaskManager.CheckNewClientTasks,
// Orchestrator.ResetStuckTasks, then ProgressTasks"). A scan failure is
// logged and does not abort the pass, matching RunCollectLoop's prior
// per-tick error handling; a reset failure does abort it, since
// progressing tasks against a store that just failed a write is unsafe.
func (o *Orchestrator) Collect(ctx context.Context) ([]PlatformResult, error) {
	if _, err := o.CheckNewClientTasks(ctx); err != nil {
		o.logger.Warn("task scan failed", "error", err)
	}
	if err := o.ResetStuckTasks(); err != nil {
		return nil, fmt.Errorf("reset stuck tasks: %w", err)
	}
	return o.ProgressTasks(ctx, nil)
}

// AbortTasks cancels an in-flight pass by cancelling ctx; callers invoke
// this through the context passed to ProgressTasks/RunCollectLoop rather
// than through a method here, since PlatformManager already commits the
// cancellation-to-INIT behavior this design requires. AbortTasks exists as
// the documented external entry point for that shutdown path.
func (o *Orchestrator) AbortTasks(cancel context.CancelFunc) {
	cancel()
}

// Status reports MetaStore.GeneralStatus for every registered platform
// ("GET /status").
func (o *Orchestrator) Status(includeTaskCounts bool) ([]store.StatusRow, error) {
	return o.meta.GeneralStatus(includeTaskCounts)
}

// Databases reports the catalog ("GET /databases").
func (o *Orchestrator) Databases() ([]store.CatalogEntry, error) {
	return o.meta.ListDatabases()
}

// RunCollectLoop calls Collect() then sleeps for a configured interval,
// repeating until ctx is cancelled ("RunCollectLoop(): calls
// Collect() then sleeps for a configured interval; repeats until
// canceled"). A second, faster ticker also drives Collect() off
// loop.task_scan_interval_seconds, so a task file dropped between two
// slow collect ticks is still picked up and processed promptly; both
// tickers run the identical composed pass (ticker shape grounded in
// backend/cmd/worker/cleanup.go's Run method).
func (o *Orchestrator) RunCollectLoop(ctx context.Context) error {
	collectInterval := o.loopCfg.Interval()
	if collectInterval <= 0 {
		collectInterval = time.Minute
	}
	scanInterval := o.loopCfg.TaskScanIntervalDuration()
	if scanInterval <= 0 {
		scanInterval = 30 * time.Second
	}

	collectTicker := time.NewTicker(collectInterval)
	defer collectTicker.Stop()
	scanTicker := time.NewTicker(scanInterval)
	defer scanTicker.Stop()

	o.logger.Info("collection loop started", "collect_interval", collectInterval, "scan_interval", scanInterval)

	runPass := func() {
		passID := uuid.NewString()
		logger := platformlog.WithField(o.logger, "run_id", passID)
		results, err := o.Collect(ctx)
		if err != nil {
			logger.Error("collect pass failed", "error", err)
			return
		}
		for _, r := range results {
			if r.Err != nil {
				logger.Warn("platform pass ended with error", "platform", r.Platform, "error", r.Err)
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("collection loop stopping", "reason", ctx.Err())
			return nil

		case <-scanTicker.C:
			runPass()

		case <-collectTicker.C:
			runPass()
		}
	}
}

// Close releases every owned PlatformStore.
func (o *Orchestrator) Close() {
	for platform, m := range o.managers {
		if err := m.Close(); err != nil {
			o.logger.Warn("failed to close platform store", "platform", platform, "error", err)
		}
	}
}
