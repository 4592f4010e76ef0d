package manager

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/techappsUT/social-queue/internal/platformlog"
	"github.com/techappsUT/social-queue/internal/platformtypes"
	"github.com/techappsUT/social-queue/internal/quota"
	"github.com/techappsUT/social-queue/internal/store"
)

type fakeAdapter struct {
	platform    platformtypes.Platform
	setupErr    error
	executeFunc func(ctx context.Context, task *platformtypes.Task) (*platformtypes.CollectionResult, error)
	setupCalls  int
}

func (f *fakeAdapter) PlatformName() platformtypes.Platform { return f.platform }
func (f *fakeAdapter) Setup(ctx context.Context) error {
	f.setupCalls++
	return f.setupErr
}
func (f *fakeAdapter) TransformConfig(ctx context.Context, abstract platformtypes.AbstractConfig) (interface{}, error) {
	return map[string]interface{}{"query": abstract.Query}, nil
}
func (f *fakeAdapter) TransformConfigToSerializable(ctx context.Context, abstract platformtypes.AbstractConfig) (map[string]interface{}, error) {
	if abstract.Query == "" {
		return nil, &platformtypes.CollectionError{Kind: platformtypes.ErrKindInvalidConfig, Reason: "missing query"}
	}
	return map[string]interface{}{"query": abstract.Query}, nil
}
func (f *fakeAdapter) ExecuteTask(ctx context.Context, task *platformtypes.Task) (*platformtypes.CollectionResult, error) {
	return f.executeFunc(ctx, task)
}
func (f *fakeAdapter) CreatePostEntry(raw platformtypes.RawItem, task *platformtypes.Task) platformtypes.Post {
	return platformtypes.Post{Platform: f.platform, PlatformID: raw.PlatformID}
}

func newTestManager(t *testing.T, ad *fakeAdapter, cfg Config) (*PlatformManager, *store.PlatformStore, *quota.Registry) {
	t.Helper()
	dir := t.TempDir()
	ps, err := store.OpenPlatformStore(ad.platform, filepath.Join(dir, "p.sqlite"))
	if err != nil {
		t.Fatalf("OpenPlatformStore: %v", err)
	}
	t.Cleanup(func() { ps.Close() })

	qr := quota.NewRegistry(filepath.Join(dir, "quotas.json"))
	mgr := New(ad.platform, ad, ps, qr, cfg, platformlog.New("error"), nil)
	return mgr, ps, qr
}

func TestProcessAllTasks_HappyPath(t *testing.T) {
	ad := &fakeAdapter{
		platform: "p",
		executeFunc: func(ctx context.Context, task *platformtypes.Task) (*platformtypes.CollectionResult, error) {
			return &platformtypes.CollectionResult{
				Task:           task,
				Posts:          []platformtypes.RawItem{{PlatformID: "1"}},
				CollectedItems: 1,
			}, nil
		},
	}
	mgr, ps, _ := newTestManager(t, ad, Config{Active: true})

	added, err := mgr.AddTasks(context.Background(), []*platformtypes.Task{
		{TaskName: "t1", Platform: "p", AbstractConfig: platformtypes.AbstractConfig{Query: "golang"}},
	})
	if err != nil {
		t.Fatalf("AddTasks: %v", err)
	}
	if len(added) != 1 {
		t.Fatalf("expected 1 added task, got %v", added)
	}

	outcomes, err := mgr.ProcessAllTasks(context.Background())
	if err != nil {
		t.Fatalf("ProcessAllTasks: %v", err)
	}
	if len(outcomes) != 1 || outcomes[0].Err != nil || outcomes[0].Result == nil {
		t.Fatalf("unexpected outcomes: %+v", outcomes)
	}

	count, _ := ps.CountPosts()
	if count != 1 {
		t.Fatalf("expected 1 post persisted, got %d", count)
	}
	if ad.setupCalls != 1 {
		t.Fatalf("expected Setup called exactly once, got %d", ad.setupCalls)
	}
}

func TestAddTasks_InvalidConfigMarksInvalidConfAndSkipsProcessing(t *testing.T) {
	ad := &fakeAdapter{platform: "p", executeFunc: func(ctx context.Context, task *platformtypes.Task) (*platformtypes.CollectionResult, error) {
		t.Fatalf("should never execute an invalid-config task")
		return nil, nil
	}}
	mgr, _, _ := newTestManager(t, ad, Config{Active: true})

	added, err := mgr.AddTasks(context.Background(), []*platformtypes.Task{
		{TaskName: "bad", Platform: "p"},
	})
	if err != nil {
		t.Fatalf("AddTasks: %v", err)
	}
	if len(added) != 1 {
		t.Fatalf("expected task to still be persisted despite invalid config, got %v", added)
	}

	outcomes, err := mgr.ProcessAllTasks(context.Background())
	if err != nil {
		t.Fatalf("ProcessAllTasks: %v", err)
	}
	if len(outcomes) != 0 {
		t.Fatalf("expected INVALID_CONF task excluded from pending set, got %+v", outcomes)
	}
}

func TestProcessAllTasks_QuotaExceededHaltsLoop(t *testing.T) {
	releaseAt := time.Now().Add(time.Hour)
	calls := 0
	ad := &fakeAdapter{
		platform: "p",
		executeFunc: func(ctx context.Context, task *platformtypes.Task) (*platformtypes.CollectionResult, error) {
			calls++
			if task.TaskName == "t2" {
				return nil, &platformtypes.CollectionError{Kind: platformtypes.ErrKindQuotaExceeded, ReleaseAt: releaseAt}
			}
			return &platformtypes.CollectionResult{Task: task, Posts: []platformtypes.RawItem{{PlatformID: task.TaskName}}, CollectedItems: 1}, nil
		},
	}
	mgr, ps, qr := newTestManager(t, ad, Config{Active: true})

	for _, name := range []string{"t1", "t2", "t3"} {
		if _, err := mgr.AddTasks(context.Background(), []*platformtypes.Task{
			{TaskName: name, Platform: "p", AbstractConfig: platformtypes.AbstractConfig{Query: "x"}},
		}); err != nil {
			t.Fatalf("AddTasks %s: %v", name, err)
		}
	}

	outcomes, err := mgr.ProcessAllTasks(context.Background())
	if err != nil {
		t.Fatalf("ProcessAllTasks: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("expected processing to stop after t2's quota halt, got %d outcomes", len(outcomes))
	}
	if calls != 2 {
		t.Fatalf("expected exactly 2 adapter calls (t3 never attempted), got %d", calls)
	}

	halted, err := qr.HasQuotaHalt("p")
	if err != nil {
		t.Fatalf("HasQuotaHalt: %v", err)
	}
	if !halted {
		t.Fatalf("expected quota registry to record the halt")
	}

	states, err := ps.CountStates()
	if err != nil {
		t.Fatalf("CountStates: %v", err)
	}
	if states[platformtypes.StatusInit] != 2 {
		t.Fatalf("expected t2 and t3 back in INIT, got %+v", states)
	}
	if states[platformtypes.StatusDone] != 1 {
		t.Fatalf("expected t1 DONE, got %+v", states)
	}
}

func TestProcessAllTasks_RespectsExistingQuotaHalt(t *testing.T) {
	ad := &fakeAdapter{platform: "p", executeFunc: func(ctx context.Context, task *platformtypes.Task) (*platformtypes.CollectionResult, error) {
		t.Fatalf("should not execute while halted")
		return nil, nil
	}}
	mgr, _, qr := newTestManager(t, ad, Config{Active: true})

	if err := qr.StoreQuota("p", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("StoreQuota: %v", err)
	}
	if _, err := mgr.AddTasks(context.Background(), []*platformtypes.Task{
		{TaskName: "t1", Platform: "p", AbstractConfig: platformtypes.AbstractConfig{Query: "x"}},
	}); err != nil {
		t.Fatalf("AddTasks: %v", err)
	}

	outcomes, err := mgr.ProcessAllTasks(context.Background())
	if err != nil {
		t.Fatalf("ProcessAllTasks: %v", err)
	}
	if len(outcomes) != 0 {
		t.Fatalf("expected no processing while halted, got %+v", outcomes)
	}
}

func TestProcessAllTasks_TestDataBypassesAdapter(t *testing.T) {
	ad := &fakeAdapter{platform: "p", executeFunc: func(ctx context.Context, task *platformtypes.Task) (*platformtypes.CollectionResult, error) {
		t.Fatalf("test_data tasks must not call the adapter")
		return nil, nil
	}}
	mgr, ps, _ := newTestManager(t, ad, Config{Active: true})

	task := &platformtypes.Task{
		TaskName:       "t1",
		Platform:       "p",
		AbstractConfig: platformtypes.AbstractConfig{Query: "x"},
		TestData:       []platformtypes.RawItem{{PlatformID: "synth-1"}},
	}
	if _, err := mgr.AddTasks(context.Background(), []*platformtypes.Task{task}); err != nil {
		t.Fatalf("AddTasks: %v", err)
	}

	outcomes, err := mgr.ProcessAllTasks(context.Background())
	if err != nil {
		t.Fatalf("ProcessAllTasks: %v", err)
	}
	if len(outcomes) != 1 || outcomes[0].Result == nil || outcomes[0].Result.CollectedItems != 1 {
		t.Fatalf("unexpected outcomes: %+v", outcomes)
	}

	count, _ := ps.CountPosts()
	if count != 1 {
		t.Fatalf("expected synthesized post persisted, got %d", count)
	}
}

func TestProcessAllTasks_NonFatalErrorAbortsTaskAndContinues(t *testing.T) {
	ad := &fakeAdapter{
		platform: "p",
		executeFunc: func(ctx context.Context, task *platformtypes.Task) (*platformtypes.CollectionResult, error) {
			if task.TaskName == "t1" {
				return nil, &platformtypes.CollectionError{Kind: platformtypes.ErrKindTransientCollection}
			}
			return &platformtypes.CollectionResult{Task: task, Posts: []platformtypes.RawItem{{PlatformID: "2"}}, CollectedItems: 1}, nil
		},
	}
	mgr, ps, _ := newTestManager(t, ad, Config{Active: true})

	for _, name := range []string{"t1", "t2"} {
		if _, err := mgr.AddTasks(context.Background(), []*platformtypes.Task{
			{TaskName: name, Platform: "p", AbstractConfig: platformtypes.AbstractConfig{Query: "x"}},
		}); err != nil {
			t.Fatalf("AddTasks %s: %v", name, err)
		}
	}

	outcomes, err := mgr.ProcessAllTasks(context.Background())
	if err != nil {
		t.Fatalf("ProcessAllTasks: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("expected both tasks attempted, got %d", len(outcomes))
	}
	if outcomes[0].Err == nil {
		t.Fatalf("expected t1 to have an error outcome")
	}
	if outcomes[1].Result == nil {
		t.Fatalf("expected t2 to process successfully despite t1's abort")
	}

	states, err := ps.CountStates()
	if err != nil {
		t.Fatalf("CountStates: %v", err)
	}
	if states[platformtypes.StatusAborted] != 1 {
		t.Fatalf("expected t1 ABORTED, got %+v", states)
	}
}
