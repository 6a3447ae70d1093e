package services

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type targetRecorder struct {
	mu   sync.Mutex
	seen map[string]int
}

func (r *targetRecorder) record(target string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seen == nil {
		r.seen = make(map[string]int)
	}
	r.seen[target]++
}

func (r *targetRecorder) has(target string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seen[target] > 0
}

func TestWatcherTargetOf(t *testing.T) {
	root := t.TempDir()
	iw, err := NewInventoryWatcher(root, nil)
	require.NoError(t, err)
	defer iw.Close()

	target, depth := iw.targetOf(filepath.Join(iw.root, "ECU-X", "1.0.0"))
	assert.Equal(t, "ECU-X", target)
	assert.Equal(t, 2, depth)
	target, _ = iw.targetOf(filepath.Join(iw.root, ".fota", "push_history.db"))
	assert.Equal(t, "", target)
	target, _ = iw.targetOf(filepath.Join(iw.root, "ECU-X", ".ledger.csv.123.tmp"))
	assert.Equal(t, "", target)
	target, _ = iw.targetOf(iw.root)
	assert.Equal(t, "", target)
	target, _ = iw.targetOf(filepath.Dir(iw.root))
	assert.Equal(t, "", target)
}

func TestWatcherInvalidatesSessions(t *testing.T) {
	f := newFixture(t)
	f.withTarget(t, "ECU-X", "1.0.0")

	sessions := NewSessionService(time.Hour, 0, nil)
	sess := sessions.Create(context.Background(), "alice", false)
	sess.CacheVersions("ECU-X", []string{"1.0.0"})

	rec := &targetRecorder{}
	iw, err := NewInventoryWatcher(f.root, func(target string) {
		rec.record(target)
		sessions.InvalidateVersions(target)
	})
	require.NoError(t, err)
	iw.Start()
	defer iw.Close()

	require.NoError(t, os.Mkdir(filepath.Join(f.root, "ECU-X", "2.0.0"), 0o755))
	assert.Eventually(t, func() bool { return rec.has("ECU-X") }, 2*time.Second, 10*time.Millisecond)
	_, ok := sess.CachedVersions("ECU-X")
	assert.False(t, ok)

	// a target type created after start is watched too
	require.NoError(t, os.Mkdir(filepath.Join(f.root, "ECU-Y"), 0o755))
	assert.Eventually(t, func() bool { return rec.has("ECU-Y") }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, os.Mkdir(filepath.Join(f.root, "ECU-Y", "0.1.0"), 0o755))
	assert.Eventually(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return rec.seen["ECU-Y"] >= 2
	}, 2*time.Second, 10*time.Millisecond)
}
