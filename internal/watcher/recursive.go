package watcher

import (
	"io/fs"
	"path/filepath"
	"strconv"

	"vigil/internal/logging"
)

// watchTree registers a watch on root and every directory below it.
// Returns the number of watches added.
func (watcher *Watcher) watchTree(root string) (int, error) {
	dirs, err := collectDirs(root)
	if err != nil {
		return 0, err
	}

	added := 0
	for _, dir := range dirs {
		if err := watcher.addWatch(dir); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

func collectDirs(root string) ([]string, error) {
	dirs := []string{}
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !entry.IsDir() {
			return nil
		}
		dirs = append(dirs, path)
		return nil
	})
	return dirs, err
}

func (watcher *Watcher) addWatch(path string) error {
	watcher.mutex.Lock()
	if watcher.closed {
		watcher.mutex.Unlock()
		return nil
	}
	if _, watched := watcher.watchedDirs[path]; watched {
		watcher.mutex.Unlock()
		return nil
	}
	if watcher.activeWatches >= watcher.maxWatches {
		watcher.mutex.Unlock()
		return ErrMaxWatchesExceeded
	}
	watcher.activeWatches++
	watcher.watchedDirs[path] = struct{}{}
	activeCount := watcher.activeWatches
	watcher.mutex.Unlock()

	if err := watcher.watcher.Add(path); err != nil {
		watcher.mutex.Lock()
		delete(watcher.watchedDirs, path)
		if watcher.activeWatches > 0 {
			watcher.activeWatches--
		}
		watcher.mutex.Unlock()
		watcher.logger.Warn("watch add failed", map[string]string{
			"path":  path,
			"error": err.Error(),
		})
		return err
	}

	if watcher.logger.Enabled(logging.LevelDebug) {
		watcher.logger.Debug("watch added", map[string]string{
			"path":           path,
			"active_watches": strconv.Itoa(activeCount),
		})
	}
	return nil
}

// releaseWatch frees the accounting slot for a directory that no longer
// exists. The kernel drops its watch with the directory, so without this
// the counter would only ever grow and eventually starve new directories
// of watch slots.
func (watcher *Watcher) releaseWatch(path string) {
	watcher.mutex.Lock()
	_, watched := watcher.watchedDirs[path]
	if watched {
		delete(watcher.watchedDirs, path)
		if watcher.activeWatches > 0 {
			watcher.activeWatches--
		}
	}
	activeCount := watcher.activeWatches
	watcher.mutex.Unlock()

	if !watched {
		return
	}

	// Best effort; the watch is usually gone already.
	_ = watcher.watcher.Remove(path)

	if watcher.logger.Enabled(logging.LevelDebug) {
		watcher.logger.Debug("watch released", map[string]string{
			"path":           path,
			"active_watches": strconv.Itoa(activeCount),
		})
	}
}
