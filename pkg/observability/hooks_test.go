package observability

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Build hooks
	b := NoopBuildHooks{}
	b.OnStageStart(ctx, "guards")
	b.OnStageComplete(ctx, "guards", time.Second, nil)
	b.OnBuildComplete(ctx, 12, 24, time.Second, nil)

	// Visibility hooks
	v := NoopVisibilityHooks{}
	v.OnComputeStart(ctx, "exhaustive", 100)
	v.OnComputeComplete(ctx, "exhaustive", 100, time.Second, nil)

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "visibility")
	c.OnCacheMiss(ctx, "visibility")
	c.OnCacheSet(ctx, "visibility", 1024)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Build().(NoopBuildHooks); !ok {
		t.Error("Build() should return NoopBuildHooks by default")
	}
	if _, ok := Visibility().(NoopVisibilityHooks); !ok {
		t.Error("Visibility() should return NoopVisibilityHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}

	// Set custom hooks
	customBuild := &testBuildHooks{}
	SetBuildHooks(customBuild)
	if Build() != customBuild {
		t.Error("SetBuildHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Build().(NoopBuildHooks); !ok {
		t.Error("Reset() should restore NoopBuildHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testBuildHooks{}
	SetBuildHooks(custom)

	// Setting nil should be ignored
	SetBuildHooks(nil)

	if Build() != custom {
		t.Error("SetBuildHooks(nil) should be ignored")
	}

	Reset()
}

func TestRegisterPromHooks(t *testing.T) {
	Reset()
	defer Reset()

	p := NewPromHooks()
	Register(p)

	if Build() != BuildHooks(p) || Visibility() != VisibilityHooks(p) || Cache() != CacheHooks(p) {
		t.Fatal("Register should install PromHooks for every category")
	}

	// Only the cache category is implemented here.
	cacheOnly := &testCacheHooks{}
	Register(cacheOnly)
	if Cache() != cacheOnly {
		t.Error("Register should replace cache hooks")
	}
	if Build() != BuildHooks(p) {
		t.Error("Register should leave build hooks alone")
	}
}

func TestPromHooksRecords(t *testing.T) {
	ctx := context.Background()
	p := NewPromHooks()

	p.OnCacheHit(ctx, "visibility")
	p.OnCacheMiss(ctx, "visibility")
	p.OnCacheMiss(ctx, "visibility")
	p.OnCacheSet(ctx, "visibility", 512)
	p.OnStageComplete(ctx, "guards", time.Millisecond, nil)
	p.OnStageComplete(ctx, "partition", time.Millisecond, errors.New("boom"))
	p.OnBuildComplete(ctx, 7, 9, time.Second, nil)

	if got := testutil.ToFloat64(p.cacheEvents.WithLabelValues("visibility", "miss")); got != 2 {
		t.Errorf("miss count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(p.cacheBytes.WithLabelValues("visibility")); got != 512 {
		t.Errorf("bytes written = %v, want 512", got)
	}
	if got := testutil.ToFloat64(p.stageErrors.WithLabelValues("partition")); got != 1 {
		t.Errorf("partition errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(p.guardsLast); got != 7 {
		t.Errorf("guards gauge = %v, want 7", got)
	}

	path := filepath.Join(t.TempDir(), "metrics.prom")
	if err := p.WriteToTextfile(path); err != nil {
		t.Fatalf("WriteToTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "patrolgraph_builds_total") {
		t.Errorf("textfile missing builds counter:\n%s", data)
	}
}

// Test implementations
type testBuildHooks struct{ NoopBuildHooks }
type testCacheHooks struct{ NoopCacheHooks }
