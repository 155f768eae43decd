package watcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
)

func TestKindForOp(t *testing.T) {
	existing := filepath.Join(t.TempDir(), "present.txt")
	if err := os.WriteFile(existing, []byte("x"), 0600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	missing := filepath.Join(t.TempDir(), "gone.txt")

	cases := []struct {
		name string
		op   fsnotify.Op
		path string
		want Kind
		ok   bool
	}{
		{"create", fsnotify.Create, existing, KindCreated, true},
		{"write", fsnotify.Write, existing, KindModified, true},
		{"remove", fsnotify.Remove, missing, KindDeleted, true},
		{"rename missing is delete", fsnotify.Rename, missing, KindDeleted, true},
		{"rename existing is modify", fsnotify.Rename, existing, KindModified, true},
		{"chmod only dropped", fsnotify.Chmod, existing, "", false},
	}

	for _, tc := range cases {
		kind, ok := kindForOp(tc.op, tc.path)
		if ok != tc.ok || kind != tc.want {
			t.Fatalf("%s: got (%q, %v), want (%q, %v)", tc.name, kind, ok, tc.want, tc.ok)
		}
	}
}

func TestKindLabels(t *testing.T) {
	if KindCreated.Label() != "Created" || KindDeleted.Label() != "Deleted" {
		t.Fatal("unexpected kind labels")
	}
	if KindModified.Label() != "Modified" {
		t.Fatal("unexpected modify label")
	}
}
