package voicecache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ambiware-labs/pocketvox/internal/model"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestResolveLoadsOnce(t *testing.T) {
	ctx := context.Background()
	mock := model.NewMock(24000, 100)
	cache := New(mock, newLogger())

	first, err := cache.Resolve(ctx, "alba")
	if err != nil {
		t.Fatalf("resolve alba: %v", err)
	}
	second, err := cache.Resolve(ctx, "alba")
	if err != nil {
		t.Fatalf("resolve alba again: %v", err)
	}
	if first != second {
		t.Fatal("expected the identical cached state on repeat resolve")
	}
	if mock.Loads() != 1 {
		t.Fatalf("expected exactly one load, got %d", mock.Loads())
	}
}

func TestResolveAllPresets(t *testing.T) {
	ctx := context.Background()
	mock := model.NewMock(24000, 100)
	cache := New(mock, newLogger())

	for _, name := range []string{"alba", "marius", "javert", "jean", "fantine", "cosette", "eponine", "azelma"} {
		if _, err := cache.Resolve(ctx, name); err != nil {
			t.Fatalf("resolve %q: %v", name, err)
		}
	}
	if cache.Len() != 8 {
		t.Fatalf("expected 8 cached voices, got %d", cache.Len())
	}
}

func TestResolveUnknownVoice(t *testing.T) {
	cache := New(model.NewMock(24000, 100), newLogger())
	_, err := cache.Resolve(context.Background(), "valjean")
	if !errors.Is(err, ErrUnknownVoice) {
		t.Fatalf("expected ErrUnknownVoice, got %v", err)
	}
}

func TestResolveLoadFailureNotCached(t *testing.T) {
	ctx := context.Background()
	mock := model.NewMock(24000, 100)
	fail := true
	mock.FailLoad = func(model.Reference) error {
		if fail {
			return errors.New("download failed")
		}
		return nil
	}
	cache := New(mock, newLogger())

	if _, err := cache.Resolve(ctx, "alba"); err == nil {
		t.Fatal("expected load failure")
	}
	if _, ok := cache.Get("alba"); ok {
		t.Fatal("failed load must not leave a cache entry")
	}

	// First successful request retries the load.
	fail = false
	if _, err := cache.Resolve(ctx, "alba"); err != nil {
		t.Fatalf("resolve after recovery: %v", err)
	}
}

func TestConcurrentResolveSingleLoad(t *testing.T) {
	ctx := context.Background()
	mock := model.NewMock(24000, 100)
	cache := New(mock, newLogger())

	const callers = 16
	states := make([]model.VoiceState, callers)
	errs := make([]error, callers)

	var start, done sync.WaitGroup
	start.Add(1)
	done.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer done.Done()
			start.Wait()
			states[i], errs[i] = cache.Resolve(ctx, "fantine")
		}(i)
	}
	start.Done()
	done.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if states[i] != states[0] {
			t.Fatalf("caller %d observed a different state", i)
		}
	}
	if mock.Loads() != 1 {
		t.Fatalf("expected exactly one load under contention, got %d", mock.Loads())
	}
}

func TestPreloadFailureNonFatal(t *testing.T) {
	mock := model.NewMock(24000, 100)
	mock.FailLoad = func(model.Reference) error { return errors.New("no network") }
	cache := New(mock, newLogger())

	cache.Preload(context.Background(), "alba")
	if cache.Len() != 0 {
		t.Fatalf("expected empty cache after failed preload, got %d", cache.Len())
	}
}

func TestScanDirectory(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"grace.wav", "grace.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	mock := model.NewMock(24000, 100)
	cache := New(mock, newLogger())
	if n := cache.ScanDirectory(context.Background(), dir); n != 1 {
		t.Fatalf("expected 1 voice loaded, got %d", n)
	}
	if _, ok := cache.Get("grace"); !ok {
		t.Fatal("expected custom voice grace in the cache")
	}
	if mock.Loads() != 1 {
		t.Fatalf("expected one load, got %d", mock.Loads())
	}
}

func TestScanDirectorySkipsFailures(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"good.wav", "bad.mp3"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	mock := model.NewMock(24000, 100)
	mock.FailLoad = func(ref model.Reference) error {
		if filepath.Base(ref.Location) == "bad.mp3" {
			return fmt.Errorf("corrupt sample")
		}
		return nil
	}
	cache := New(mock, newLogger())
	if n := cache.ScanDirectory(context.Background(), dir); n != 1 {
		t.Fatalf("expected failing file skipped, got %d loaded", n)
	}
	if _, ok := cache.Get("good"); !ok {
		t.Fatal("expected good voice loaded")
	}
	if _, ok := cache.Get("bad"); ok {
		t.Fatal("expected bad voice skipped")
	}
}

func TestScanDirectoryMissingDir(t *testing.T) {
	cache := New(model.NewMock(24000, 100), newLogger())
	if n := cache.ScanDirectory(context.Background(), "/nonexistent/voices"); n != 0 {
		t.Fatalf("expected 0 voices from missing dir, got %d", n)
	}
}

func TestCustomVoiceShadowsPreset(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "alba.wav"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}

	mock := model.NewMock(24000, 100)
	cache := New(mock, newLogger())
	if n := cache.ScanDirectory(ctx, dir); n != 1 {
		t.Fatalf("expected custom alba loaded, got %d", n)
	}

	custom, _ := cache.Get("alba")
	resolved, err := cache.Resolve(ctx, "alba")
	if err != nil {
		t.Fatalf("resolve alba: %v", err)
	}
	if resolved != custom {
		t.Fatal("expected resolve to return the custom voice, not reload the preset")
	}
	if mock.Loads() != 1 {
		t.Fatalf("expected no preset load after scan, got %d loads", mock.Loads())
	}
}
