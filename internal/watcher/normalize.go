package watcher

import (
	"os"

	"github.com/fsnotify/fsnotify"
)

// kindForOp maps a raw fsnotify op onto an event kind. Chmod-only events
// carry no content change and are dropped. A rename whose path is gone is
// a delete; editors that rename a temp file over the target leave the path
// in place, which reads as a modify.
func kindForOp(op fsnotify.Op, path string) (Kind, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return KindCreated, true
	case op.Has(fsnotify.Write):
		return KindModified, true
	case op.Has(fsnotify.Remove):
		return KindDeleted, true
	case op.Has(fsnotify.Rename):
		if _, err := os.Stat(path); err != nil {
			return KindDeleted, true
		}
		return KindModified, true
	default:
		return "", false
	}
}
