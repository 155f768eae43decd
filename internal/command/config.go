package command

import (
	"fmt"

	"github.com/kballard/go-shellquote"

	"vigil/internal/watcher"
)

// Commands holds the per-kind command templates. A kind without its own
// template falls back to OnChange; with neither set the event is
// watch-only and nothing runs.
type Commands struct {
	OnCreate string `yaml:"on_create"`
	OnModify string `yaml:"on_modify"`
	OnDelete string `yaml:"on_delete"`
	OnChange string `yaml:"on_change"`
}

// ForKind resolves the template for an event kind. The second return is
// false when no command applies.
func (commands Commands) ForKind(kind watcher.Kind) (string, bool) {
	template := ""
	switch kind {
	case watcher.KindCreated:
		template = commands.OnCreate
	case watcher.KindModified:
		template = commands.OnModify
	case watcher.KindDeleted:
		template = commands.OnDelete
	}
	if template == "" {
		template = commands.OnChange
	}
	if template == "" {
		return "", false
	}
	return template, true
}

// WatchOnly reports whether no command template is configured at all.
func (commands Commands) WatchOnly() bool {
	return commands.OnCreate == "" && commands.OnModify == "" &&
		commands.OnDelete == "" && commands.OnChange == ""
}

// Validate checks that every configured template tokenizes. Placeholder
// values never introduce quoting, so a template that splits cleanly will
// still split after substitution.
func (commands Commands) Validate() error {
	for _, slot := range []struct {
		name     string
		template string
	}{
		{"on_create", commands.OnCreate},
		{"on_modify", commands.OnModify},
		{"on_delete", commands.OnDelete},
		{"on_change", commands.OnChange},
	} {
		if slot.template == "" {
			continue
		}
		words, err := shellquote.Split(slot.template)
		if err != nil {
			return fmt.Errorf("%s: %w", slot.name, err)
		}
		if len(words) == 0 {
			return fmt.Errorf("%s: empty command", slot.name)
		}
	}
	return nil
}
