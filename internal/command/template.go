package command

import (
	"strings"

	"vigil/internal/fsutil"
	"vigil/internal/watcher"
)

// Context carries the per-event values available to command templates.
// All paths use forward slashes.
type Context struct {
	FilePath     string
	RelativePath string
	AbsolutePath string
	EventType    string
}

func NewContext(event watcher.Event) Context {
	absolute := fsutil.NormalizeSlash(event.Path)
	return Context{
		FilePath:     absolute,
		RelativePath: event.RelPath,
		AbsolutePath: absolute,
		EventType:    string(event.Kind),
	}
}

// Expand substitutes {file_path}, {relative_path}, {absolute_path}, and
// {event_type} in a single left-to-right pass. Unknown {tokens} are left
// verbatim, and substituted values are never re-scanned.
func (ctx Context) Expand(template string) string {
	builder := strings.Builder{}
	builder.Grow(len(template))

	for i := 0; i < len(template); {
		open := strings.IndexByte(template[i:], '{')
		if open < 0 {
			builder.WriteString(template[i:])
			break
		}
		open += i
		builder.WriteString(template[i:open])

		end := strings.IndexByte(template[open:], '}')
		if end < 0 {
			builder.WriteString(template[open:])
			break
		}
		end += open

		if value, ok := ctx.lookup(template[open+1 : end]); ok {
			builder.WriteString(value)
		} else {
			builder.WriteString(template[open : end+1])
		}
		i = end + 1
	}
	return builder.String()
}

func (ctx Context) lookup(token string) (string, bool) {
	switch token {
	case "file_path":
		return ctx.FilePath, true
	case "relative_path":
		return ctx.RelativePath, true
	case "absolute_path":
		return ctx.AbsolutePath, true
	case "event_type":
		return ctx.EventType, true
	default:
		return "", false
	}
}
