package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func TestConfigWatcher_ReloadOnWrite(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := writeFile(cfgPath, "debug: false\n"); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var reloads []string
	w := NewConfigWatcher(cfgPath, func(path string) {
		mu.Lock()
		reloads = append(reloads, path)
		mu.Unlock()
	}, WithDebounce(50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := writeFile(cfgPath, "debug: true\n"); err != nil {
		t.Fatal(err)
	}
	ok := waitFor(t, 3*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(reloads) >= 1
	})
	if !ok {
		t.Fatal("no reload after config write")
	}
	mu.Lock()
	got := reloads[0]
	mu.Unlock()
	if filepath.Clean(got) != filepath.Clean(cfgPath) {
		t.Errorf("reload path = %q, want %q", got, cfgPath)
	}
}

func TestConfigWatcher_DebouncesRapidWrites(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := writeFile(cfgPath, "debug: false\n"); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	count := 0
	w := NewConfigWatcher(cfgPath, func(string) {
		mu.Lock()
		count++
		mu.Unlock()
	}, WithDebounce(150*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	for i := 0; i < 5; i++ {
		if err := writeFile(cfgPath, "debug: true\n"); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	ok := waitFor(t, 3*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count >= 1
	})
	if !ok {
		t.Fatal("no reload after rapid writes")
	}
	// let any stray timers fire
	time.Sleep(300 * time.Millisecond)
	mu.Lock()
	got := count
	mu.Unlock()
	if got > 2 {
		t.Errorf("rapid writes produced %d reloads, want coalesced", got)
	}
}

func TestConfigWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := writeFile(cfgPath, "debug: false\n"); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	count := 0
	w := NewConfigWatcher(cfgPath, func(string) {
		mu.Lock()
		count++
		mu.Unlock()
	}, WithDebounce(50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := writeFile(filepath.Join(dir, "other.yaml"), "noise\n"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	mu.Lock()
	got := count
	mu.Unlock()
	if got != 0 {
		t.Errorf("unrelated file triggered %d reloads", got)
	}
}

func TestConfigWatcher_StopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := writeFile(cfgPath, "debug: false\n"); err != nil {
		t.Fatal(err)
	}
	w := NewConfigWatcher(cfgPath, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	w.Stop()
	w.Stop()
}

func TestConfigWatcher_StartTwice(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := writeFile(cfgPath, "debug: false\n"); err != nil {
		t.Fatal(err)
	}
	w := NewConfigWatcher(cfgPath, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	if err := w.Start(ctx); err != nil {
		t.Errorf("second Start should be a no-op, got %v", err)
	}
}
