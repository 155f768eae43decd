package command

import (
	"testing"

	"vigil/internal/watcher"
)

func TestForKindPrefersSpecificSlot(t *testing.T) {
	commands := Commands{
		OnModify: "cargo check",
		OnChange: "echo changed",
	}

	template, ok := commands.ForKind(watcher.KindModified)
	if !ok || template != "cargo check" {
		t.Fatalf("expected specific slot, got %q ok=%v", template, ok)
	}
}

func TestForKindFallsBackToOnChange(t *testing.T) {
	commands := Commands{OnChange: "echo changed"}

	for _, kind := range []watcher.Kind{watcher.KindCreated, watcher.KindModified, watcher.KindDeleted} {
		template, ok := commands.ForKind(kind)
		if !ok || template != "echo changed" {
			t.Fatalf("kind %s: expected fallback, got %q ok=%v", kind, template, ok)
		}
	}
}

func TestForKindWatchOnly(t *testing.T) {
	commands := Commands{}
	if !commands.WatchOnly() {
		t.Fatal("empty commands should be watch-only")
	}
	if _, ok := commands.ForKind(watcher.KindCreated); ok {
		t.Fatal("watch-only config should resolve no command")
	}

	configured := Commands{OnDelete: "echo gone"}
	if configured.WatchOnly() {
		t.Fatal("configured commands should not be watch-only")
	}
	if _, ok := configured.ForKind(watcher.KindCreated); ok {
		t.Fatal("create without fallback should resolve no command")
	}
}

func TestValidateRejectsBadQuoting(t *testing.T) {
	good := Commands{OnChange: `sh -c "echo {relative_path}"`}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected valid commands, got %v", err)
	}

	bad := Commands{OnCreate: `echo "unterminated`}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected validation error for unterminated quote")
	}
}
