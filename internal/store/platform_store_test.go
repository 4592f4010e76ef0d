package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/techappsUT/social-queue/internal/platformtypes"
)

func newTestStore(t *testing.T) *PlatformStore {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "p.sqlite")
	s, err := OpenPlatformStore("p", path)
	if err != nil {
		t.Fatalf("OpenPlatformStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAddTasksThenInsertPosts_HappyPath(t *testing.T) {
	s := newTestStore(t)

	task := &platformtypes.Task{TaskName: "t1", Platform: "p", Status: platformtypes.StatusInit}
	added, err := s.AddTasks([]*platformtypes.Task{task})
	if err != nil {
		t.Fatalf("AddTasks: %v", err)
	}
	if len(added) != 1 || added[0] != "t1" {
		t.Fatalf("expected [t1], got %v", added)
	}

	result := &platformtypes.CollectionResult{
		Task: task,
		Posts: []platformtypes.RawItem{
			{PlatformID: "1"}, {PlatformID: "2"}, {PlatformID: "3"},
		},
		CollectedItems: 3,
		DurationMs:     42,
	}
	if err := s.InsertPosts(result); err != nil {
		t.Fatalf("InsertPosts: %v", err)
	}

	count, err := s.CountPosts()
	if err != nil {
		t.Fatalf("CountPosts: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 posts, got %d", count)
	}

	pending, err := s.PendingTasks(false)
	if err != nil {
		t.Fatalf("PendingTasks: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending tasks after DONE, got %d", len(pending))
	}

	states, err := s.CountStates()
	if err != nil {
		t.Fatalf("CountStates: %v", err)
	}
	if states[platformtypes.StatusDone] != 1 {
		t.Fatalf("expected 1 DONE task, got %d", states[platformtypes.StatusDone])
	}
}

func TestAddTasks_DedupOnReRun(t *testing.T) {
	s := newTestStore(t)

	task := &platformtypes.Task{TaskName: "t1", Platform: "p"}
	if _, err := s.AddTasks([]*platformtypes.Task{task}); err != nil {
		t.Fatalf("AddTasks 1: %v", err)
	}

	again := &platformtypes.Task{TaskName: "t1", Platform: "p"}
	added, err := s.AddTasks([]*platformtypes.Task{again})
	if err != nil {
		t.Fatalf("AddTasks 2: %v", err)
	}
	if len(added) != 0 {
		t.Fatalf("expected empty added list on re-submission, got %v", added)
	}
}

func TestAddTasks_TestOverwriteDeletesExistingAndPosts(t *testing.T) {
	s := newTestStore(t)

	task := &platformtypes.Task{TaskName: "t1", Platform: "p"}
	if _, err := s.AddTasks([]*platformtypes.Task{task}); err != nil {
		t.Fatalf("AddTasks: %v", err)
	}
	if err := s.InsertPosts(&platformtypes.CollectionResult{
		Task:           task,
		Posts:          []platformtypes.RawItem{{PlatformID: "1"}},
		CollectedItems: 1,
	}); err != nil {
		t.Fatalf("InsertPosts: %v", err)
	}

	overwrite := &platformtypes.Task{TaskName: "t1", Platform: "p", Test: true, Overwrite: true}
	added, err := s.AddTasks([]*platformtypes.Task{overwrite})
	if err != nil {
		t.Fatalf("AddTasks overwrite: %v", err)
	}
	if len(added) != 1 {
		t.Fatalf("expected overwrite to insert, got %v", added)
	}

	count, _ := s.CountPosts()
	if count != 0 {
		t.Fatalf("expected old posts deleted on test&&overwrite, got %d", count)
	}
}

func TestAddTasks_OverwriteWithoutTestIsRejected(t *testing.T) {
	s := newTestStore(t)

	task := &platformtypes.Task{TaskName: "t1", Platform: "p"}
	if _, err := s.AddTasks([]*platformtypes.Task{task}); err != nil {
		t.Fatalf("AddTasks: %v", err)
	}

	overwrite := &platformtypes.Task{TaskName: "t1", Platform: "p", Overwrite: true}
	added, err := s.AddTasks([]*platformtypes.Task{overwrite})
	if err != nil {
		t.Fatalf("AddTasks overwrite-only: %v", err)
	}
	if len(added) != 0 {
		t.Fatalf("overwrite without test must not replace an existing task, got %v", added)
	}
}

func TestInsertPosts_TransientTaskDeletesRowKeepsPosts(t *testing.T) {
	s := newTestStore(t)

	task := &platformtypes.Task{TaskName: "t1", Platform: "p", Transient: true}
	if _, err := s.AddTasks([]*platformtypes.Task{task}); err != nil {
		t.Fatalf("AddTasks: %v", err)
	}

	result := &platformtypes.CollectionResult{
		Task:           task,
		Posts:          []platformtypes.RawItem{{PlatformID: "1"}, {PlatformID: "2"}},
		CollectedItems: 2,
	}
	if err := s.InsertPosts(result); err != nil {
		t.Fatalf("InsertPosts: %v", err)
	}

	count, _ := s.CountPosts()
	if count != 2 {
		t.Fatalf("expected posts to survive transient task deletion, got %d", count)
	}

	var rows []PostRow
	if err := s.db.Find(&rows).Error; err != nil {
		t.Fatalf("find posts: %v", err)
	}
	for _, r := range rows {
		if r.CollectionTaskID != nil {
			t.Fatalf("expected nulled collection_task_id for transient posts, got %v", *r.CollectionTaskID)
		}
	}

	var taskRows []TaskRow
	if err := s.db.Where("id = ?", task.ID).Find(&taskRows).Error; err != nil {
		t.Fatalf("find task: %v", err)
	}
	if len(taskRows) != 0 {
		t.Fatalf("expected transient task row to be deleted")
	}
}

func TestInsertPosts_DuplicatePlatformIDDropped(t *testing.T) {
	s := newTestStore(t)

	task1 := &platformtypes.Task{TaskName: "t1", Platform: "p"}
	if _, err := s.AddTasks([]*platformtypes.Task{task1}); err != nil {
		t.Fatalf("AddTasks: %v", err)
	}
	if err := s.InsertPosts(&platformtypes.CollectionResult{
		Task:           task1,
		Posts:          []platformtypes.RawItem{{PlatformID: "dup"}},
		CollectedItems: 1,
	}); err != nil {
		t.Fatalf("InsertPosts 1: %v", err)
	}

	task2 := &platformtypes.Task{TaskName: "t2", Platform: "p"}
	if _, err := s.AddTasks([]*platformtypes.Task{task2}); err != nil {
		t.Fatalf("AddTasks 2: %v", err)
	}
	if err := s.InsertPosts(&platformtypes.CollectionResult{
		Task:           task2,
		Posts:          []platformtypes.RawItem{{PlatformID: "dup"}, {PlatformID: "new"}},
		CollectedItems: 2,
	}); err != nil {
		t.Fatalf("InsertPosts 2: %v", err)
	}

	count, _ := s.CountPosts()
	if count != 2 {
		t.Fatalf("expected 2 unique posts total, got %d", count)
	}
}

func TestResetRunningTasks(t *testing.T) {
	s := newTestStore(t)

	task := &platformtypes.Task{TaskName: "t1", Platform: "p"}
	if _, err := s.AddTasks([]*platformtypes.Task{task}); err != nil {
		t.Fatalf("AddTasks: %v", err)
	}
	if err := s.UpdateTaskStatus(task.ID, platformtypes.StatusRunning); err != nil {
		t.Fatalf("UpdateTaskStatus: %v", err)
	}

	if err := s.ResetRunningTasks(); err != nil {
		t.Fatalf("ResetRunningTasks: %v", err)
	}

	pending, err := s.PendingTasks(false)
	if err != nil {
		t.Fatalf("PendingTasks: %v", err)
	}
	if len(pending) != 1 || pending[0].Status != platformtypes.StatusInit {
		t.Fatalf("expected task reset to INIT, got %+v", pending)
	}
}

func TestPendingTasks_FIFOOrder(t *testing.T) {
	s := newTestStore(t)

	for _, name := range []string{"a", "b", "c"} {
		if _, err := s.AddTasks([]*platformtypes.Task{{TaskName: name, Platform: "p"}}); err != nil {
			t.Fatalf("AddTasks %s: %v", name, err)
		}
	}

	pending, err := s.PendingTasks(false)
	if err != nil {
		t.Fatalf("PendingTasks: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("expected 3 pending tasks, got %d", len(pending))
	}
	for i := 1; i < len(pending); i++ {
		if pending[i].ID <= pending[i-1].ID {
			t.Fatalf("expected ascending id order, got %v", pending)
		}
	}
}

func TestFileSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "p.sqlite")
	s, err := OpenPlatformStore("p", path)
	if err != nil {
		t.Fatalf("OpenPlatformStore: %v", err)
	}
	defer s.Close()

	if _, err := s.AddTasks([]*platformtypes.Task{{TaskName: "t1", Platform: "p"}}); err != nil {
		t.Fatalf("AddTasks: %v", err)
	}

	size, err := s.FileSize()
	if err != nil {
		t.Fatalf("FileSize: %v", err)
	}
	if size <= 0 {
		t.Fatalf("expected non-zero file size, got %d", size)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected db file to exist on disk: %v", err)
	}
}

func TestInsertPosts_KeepsExecutionTSAndSetsDuration(t *testing.T) {
	s := newTestStore(t)
	task := &platformtypes.Task{TaskName: "t1", Platform: "p"}
	if _, err := s.AddTasks([]*platformtypes.Task{task}); err != nil {
		t.Fatalf("AddTasks: %v", err)
	}
	now := time.Now()
	if err := s.SetExecutionTS(task.ID, now); err != nil {
		t.Fatalf("SetExecutionTS: %v", err)
	}

	if err := s.InsertPosts(&platformtypes.CollectionResult{
		Task:           task,
		Posts:          []platformtypes.RawItem{{PlatformID: "1"}},
		CollectedItems: 1,
		DurationMs:     250,
	}); err != nil {
		t.Fatalf("InsertPosts: %v", err)
	}

	var row TaskRow
	if err := s.db.Where("id = ?", task.ID).First(&row).Error; err != nil {
		t.Fatalf("find task: %v", err)
	}
	if row.ExecutionTS == nil {
		t.Fatalf("expected execution_ts set before InsertPosts to be kept")
	}
	if row.CollectionDurationMs != 250 {
		t.Fatalf("expected duration 250, got %d", row.CollectionDurationMs)
	}
	if row.AddedItems != 1 || row.FoundItems != 1 {
		t.Fatalf("expected added=found=1, got added=%d found=%d", row.AddedItems, row.FoundItems)
	}
}

func TestResetNonDoneTasks(t *testing.T) {
	s := newTestStore(t)

	done := &platformtypes.Task{TaskName: "done", Platform: "p"}
	if _, err := s.AddTasks([]*platformtypes.Task{done}); err != nil {
		t.Fatalf("AddTasks done: %v", err)
	}
	if err := s.InsertPosts(&platformtypes.CollectionResult{
		Task:           done,
		Posts:          []platformtypes.RawItem{{PlatformID: "1"}},
		CollectedItems: 1,
	}); err != nil {
		t.Fatalf("InsertPosts: %v", err)
	}

	aborted := &platformtypes.Task{TaskName: "aborted", Platform: "p"}
	if _, err := s.AddTasks([]*platformtypes.Task{aborted}); err != nil {
		t.Fatalf("AddTasks aborted: %v", err)
	}
	if err := s.UpdateTaskStatus(aborted.ID, platformtypes.StatusAborted); err != nil {
		t.Fatalf("UpdateTaskStatus: %v", err)
	}

	affected, err := s.ResetNonDoneTasks()
	if err != nil {
		t.Fatalf("ResetNonDoneTasks: %v", err)
	}
	if affected != 1 {
		t.Fatalf("expected 1 row reset, got %d", affected)
	}

	states, err := s.CountStates()
	if err != nil {
		t.Fatalf("CountStates: %v", err)
	}
	if states[platformtypes.StatusDone] != 1 {
		t.Fatalf("expected DONE task untouched, got %+v", states)
	}
	if states[platformtypes.StatusInit] != 1 {
		t.Fatalf("expected aborted task reset to INIT, got %+v", states)
	}
}

func TestStats_GroupsByMonth(t *testing.T) {
	s := newTestStore(t)
	task := &platformtypes.Task{TaskName: "t1", Platform: "p"}
	if _, err := s.AddTasks([]*platformtypes.Task{task}); err != nil {
		t.Fatalf("AddTasks: %v", err)
	}
	if err := s.InsertPosts(&platformtypes.CollectionResult{
		Task: task,
		Posts: []platformtypes.RawItem{
			{PlatformID: "1", DateCreated: time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC)},
			{PlatformID: "2", DateCreated: time.Date(2023, 1, 20, 0, 0, 0, 0, time.UTC)},
			{PlatformID: "3", DateCreated: time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)},
		},
		CollectedItems: 3,
	}); err != nil {
		t.Fatalf("InsertPosts: %v", err)
	}

	rows, err := s.Stats(StatsByMonth)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 month buckets, got %+v", rows)
	}
	if rows[0].Bucket != "2023-01" || rows[0].Count != 2 {
		t.Fatalf("expected 2023-01 bucket with count 2, got %+v", rows[0])
	}
	if rows[1].Bucket != "2023-02" || rows[1].Count != 1 {
		t.Fatalf("expected 2023-02 bucket with count 1, got %+v", rows[1])
	}
}

func TestStats_UnknownBucketRejected(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Stats("fortnight"); err == nil {
		t.Fatalf("expected error for unknown bucket")
	}
}

func TestOverlapAndMergeFrom(t *testing.T) {
	a := newTestStore(t)
	b := newTestStore(t)

	taskA := &platformtypes.Task{TaskName: "a1", Platform: "p"}
	if _, err := a.AddTasks([]*platformtypes.Task{taskA}); err != nil {
		t.Fatalf("AddTasks a: %v", err)
	}
	if err := a.InsertPosts(&platformtypes.CollectionResult{
		Task:           taskA,
		Posts:          []platformtypes.RawItem{{PlatformID: "shared"}, {PlatformID: "a-only"}},
		CollectedItems: 2,
	}); err != nil {
		t.Fatalf("InsertPosts a: %v", err)
	}

	taskB := &platformtypes.Task{TaskName: "b1", Platform: "p"}
	if _, err := b.AddTasks([]*platformtypes.Task{taskB}); err != nil {
		t.Fatalf("AddTasks b: %v", err)
	}
	if err := b.InsertPosts(&platformtypes.CollectionResult{
		Task:           taskB,
		Posts:          []platformtypes.RawItem{{PlatformID: "shared"}, {PlatformID: "b-only"}},
		CollectedItems: 2,
	}); err != nil {
		t.Fatalf("InsertPosts b: %v", err)
	}

	overlap, err := a.Overlap(b)
	if err != nil {
		t.Fatalf("Overlap: %v", err)
	}
	if overlap != 1 {
		t.Fatalf("expected 1 overlapping post, got %d", overlap)
	}

	inserted, err := a.MergeFrom(b)
	if err != nil {
		t.Fatalf("MergeFrom: %v", err)
	}
	if inserted != 1 {
		t.Fatalf("expected 1 newly merged post, got %d", inserted)
	}

	count, err := a.CountPosts()
	if err != nil {
		t.Fatalf("CountPosts: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 posts after merge, got %d", count)
	}
}
