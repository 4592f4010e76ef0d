// Package taskmanager implements the filesystem task intake: scan an
// inbound directory for task files, parse and group them by
// platform, and delegate to each platform's PlatformManager.AddTasks.
package taskmanager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/techappsUT/social-queue/internal/manager"
	"github.com/techappsUT/social-queue/internal/platformlog"
	"github.com/techappsUT/social-queue/internal/platformtypes"
	"github.com/techappsUT/social-queue/internal/taskparser"
)

// ManagerLookup resolves a platform symbol to its owning PlatformManager.
// Orchestrator satisfies this; it is narrowed here so TaskManager can be
// tested without spinning up a full Orchestrator.
type ManagerLookup interface {
	Get(platform platformtypes.Platform) (*manager.PlatformManager, bool)
}

// Config holds TaskManager's filesystem knobs.
type Config struct {
	TaskDir            string
	ProcessedDir       string
	MoveProcessedTasks bool
}

// TaskManager scans TaskDir for *.json task files and feeds them to the
// owning PlatformManagers.
type TaskManager struct {
	managers ManagerLookup
	cfg      Config
	logger   platformlog.Logger
}

func New(managers ManagerLookup, cfg Config, logger platformlog.Logger) *TaskManager {
	return &TaskManager{managers: managers, cfg: cfg, logger: logger}
}

// CheckNewClientTasks scans Config.TaskDir for *.json files and processes
// each one, returning the names of every task added across all files.
func (tm *TaskManager) CheckNewClientTasks(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(tm.cfg.TaskDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read task dir %s: %w", tm.cfg.TaskDir, err)
	}

	var added []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		path := filepath.Join(tm.cfg.TaskDir, e.Name())
		names, err := tm.HandleTaskFile(ctx, path)
		if err != nil {
			tm.logger.Error("failed to handle task file", "file", path, "error", err)
			continue
		}
		added = append(added, names...)
	}
	return added, nil
}

// HandleTaskFile parses one task file, enqueues its tasks, and moves the
// file to ProcessedDir only when every task in it was added and
// MoveProcessedTasks is set ("Partial acceptance does not
// move the file").
func (tm *TaskManager) HandleTaskFile(ctx context.Context, path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	tasks, err := taskparser.ParseTaskData(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	addedNames, allAdded, err := tm.AddTasks(ctx, tasks)
	if err != nil {
		return addedNames, err
	}

	if allAdded && tm.cfg.MoveProcessedTasks && tm.cfg.ProcessedDir != "" {
		dest := filepath.Join(tm.cfg.ProcessedDir, filepath.Base(path))
		if err := os.MkdirAll(tm.cfg.ProcessedDir, 0o755); err != nil {
			tm.logger.Error("failed to create processed dir", "dir", tm.cfg.ProcessedDir, "error", err)
		} else if err := os.Rename(path, dest); err != nil {
			tm.logger.Error("failed to move processed task file", "file", path, "error", err)
		}
	}

	tm.logger.Info("new tasks added", "file", path, "count", len(addedNames))
	return addedNames, nil
}

// AddTasks groups tasks by platform and delegates to each platform's
// manager, reporting whether every task was accepted, grounded in
// original_source/src/task_manager.py's add_tasks logic.
func (tm *TaskManager) AddTasks(ctx context.Context, tasks []*platformtypes.Task) (added []string, allAdded bool, err error) {
	allAdded = true
	missingPlatforms := map[platformtypes.Platform]bool{}
	grouped := map[platformtypes.Platform][]*platformtypes.Task{}

	for _, t := range tasks {
		if missingPlatforms[t.Platform] {
			allAdded = false
			continue
		}
		if _, ok := tm.managers.Get(t.Platform); !ok {
			tm.logger.Warn("no manager found for platform", "platform", t.Platform)
			allAdded = false
			missingPlatforms[t.Platform] = true
			continue
		}
		grouped[t.Platform] = append(grouped[t.Platform], t)
	}

	for platform, group := range grouped {
		mgr, _ := tm.managers.Get(platform)
		if !mgr.Active() {
			tm.logger.Warn("tasks added to inactive platform", "platform", platform)
		}
		names, err := mgr.AddTasks(ctx, group)
		if err != nil {
			return added, false, fmt.Errorf("add tasks for platform %s: %w", platform, err)
		}
		added = append(added, names...)
		if len(names) != len(group) {
			tm.logger.Warn("not all tasks added for platform", "platform", platform, "added", len(names), "total", len(group))
			allAdded = false
		}
	}

	return added, allAdded, nil
}
