package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu      sync.Mutex
	batches [][]string
}

func (r *recorder) submit(_ context.Context, paths []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, append([]string(nil), paths...))
	return nil
}

func (r *recorder) files() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	for _, batch := range r.batches {
		out = append(out, batch...)
	}
	return out
}

func TestWatcherSubmitsDroppedFiles(t *testing.T) {
	dir := t.TempDir()
	w, err := New(Config{
		Dir:      dir,
		Debounce: 100 * time.Millisecond,
		Filter:   func(name string) bool { return !strings.HasSuffix(name, ".sh") },
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	rec := &recorder{}
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, rec.submit) }()

	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("a"), 0o600))
	require.NoError(t, os.WriteFile(b, []byte("b"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.sh"), []byte("x"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o700))

	require.Eventually(t, func() bool {
		return len(rec.files()) == 2
	}, 5*time.Second, 20*time.Millisecond)
	require.ElementsMatch(t, []string{a, b}, rec.files())

	cancel()
	require.NoError(t, <-done)
}

func TestWatcherSkipsRemovedFiles(t *testing.T) {
	dir := t.TempDir()
	w, err := New(Config{Dir: dir, Debounce: 150 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := &recorder{}
	go func() { _ = w.Run(ctx, rec.submit) }()

	gone := filepath.Join(dir, "gone.pdf")
	kept := filepath.Join(dir, "kept.pdf")
	require.NoError(t, os.WriteFile(gone, []byte("x"), 0o600))
	require.NoError(t, os.Remove(gone))
	require.NoError(t, os.WriteFile(kept, []byte("y"), 0o600))

	require.Eventually(t, func() bool {
		return len(rec.files()) > 0
	}, 5*time.Second, 20*time.Millisecond)
	require.Equal(t, []string{kept}, rec.files())
}

func TestNewRejectsMissingDirectory(t *testing.T) {
	_, err := New(Config{Dir: filepath.Join(t.TempDir(), "absent")})
	require.Error(t, err)

	_, err = New(Config{})
	require.Error(t, err)
}

func TestDrainKeepsExistingFilesSorted(t *testing.T) {
	dir := t.TempDir()
	b := filepath.Join(dir, "b")
	a := filepath.Join(dir, "a")
	require.NoError(t, os.WriteFile(a, nil, 0o600))
	require.NoError(t, os.WriteFile(b, nil, 0o600))

	pending := map[string]struct{}{b: {}, a: {}, filepath.Join(dir, "missing"): {}}
	require.Equal(t, []string{a, b}, drain(pending))
	require.Empty(t, pending)
}
