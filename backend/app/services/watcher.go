package services

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"fota-manager/backend/global"

	"github.com/fsnotify/fsnotify"
)

// InventoryWatcher reports which target type changed on disk. It watches the
// storage root and each target directory; version folders are picked up
// through their parent.
type InventoryWatcher struct {
	root     string
	watcher  *fsnotify.Watcher
	onChange func(target string)

	mu      sync.Mutex
	watched map[string]struct{}

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func NewInventoryWatcher(root string, onChange func(target string)) (*InventoryWatcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	iw := &InventoryWatcher{
		root:     filepath.Clean(abs),
		watcher:  w,
		onChange: onChange,
		watched:  make(map[string]struct{}),
		stop:     make(chan struct{}),
	}
	if err := iw.add(iw.root); err != nil {
		_ = w.Close()
		return nil, err
	}
	entries, err := os.ReadDir(iw.root)
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			if err := iw.add(filepath.Join(iw.root, e.Name())); err != nil {
				global.Logger.Warn().Err(err).Str("target", e.Name()).Msg("watch target type")
			}
		}
	}
	return iw, nil
}

// Start consumes events in the background until Close.
func (iw *InventoryWatcher) Start() {
	iw.wg.Add(1)
	go iw.loop()
}

func (iw *InventoryWatcher) Close() error {
	var err error
	iw.once.Do(func() {
		close(iw.stop)
		err = iw.watcher.Close()
		iw.wg.Wait()
	})
	return err
}

func (iw *InventoryWatcher) loop() {
	defer iw.wg.Done()
	for {
		select {
		case <-iw.stop:
			return
		case evt, ok := <-iw.watcher.Events:
			if !ok {
				return
			}
			iw.handle(evt)
		case err, ok := <-iw.watcher.Errors:
			if !ok {
				return
			}
			global.Logger.Error().Err(err).Msg("inventory watcher")
		}
	}
}

func (iw *InventoryWatcher) handle(evt fsnotify.Event) {
	path := filepath.Clean(evt.Name)
	target, depth := iw.targetOf(path)
	if target == "" {
		return
	}
	if depth == 1 {
		switch {
		case evt.Op&fsnotify.Create != 0:
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				if err := iw.add(path); err != nil {
					global.Logger.Warn().Err(err).Str("target", target).Msg("watch target type")
				}
			}
		case evt.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
			iw.forget(path)
		}
	}
	global.Logger.Debug().Str("target", target).Str("op", evt.Op.String()).Str("path", path).Msg("inventory changed")
	if iw.onChange != nil {
		iw.onChange(target)
	}
}

// targetOf maps path to its target type and its depth below the root.
// Hidden entries and paths outside the root map to "".
func (iw *InventoryWatcher) targetOf(path string) (string, int) {
	rel, err := filepath.Rel(iw.root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", 0
	}
	parts := strings.Split(rel, string(filepath.Separator))
	for _, p := range parts {
		if strings.HasPrefix(p, ".") {
			return "", 0
		}
	}
	return parts[0], len(parts)
}

func (iw *InventoryWatcher) add(dir string) error {
	iw.mu.Lock()
	defer iw.mu.Unlock()
	if _, ok := iw.watched[dir]; ok {
		return nil
	}
	if err := iw.watcher.Add(dir); err != nil {
		return err
	}
	iw.watched[dir] = struct{}{}
	return nil
}

func (iw *InventoryWatcher) forget(dir string) {
	iw.mu.Lock()
	defer iw.mu.Unlock()
	if _, ok := iw.watched[dir]; !ok {
		return
	}
	delete(iw.watched, dir)
	if err := iw.watcher.Remove(dir); err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) {
		global.Logger.Debug().Err(err).Str("dir", dir).Msg("unwatch")
	}
}
