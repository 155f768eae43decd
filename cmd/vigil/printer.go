package main

import (
	"io"

	"github.com/fatih/color"

	"vigil/internal/watcher"
)

// eventPrinter writes the human-facing event lines. Colors follow the
// fatih/color defaults, so NO_COLOR and non-TTY output stay plain.
type eventPrinter struct {
	out      io.Writer
	created  *color.Color
	modified *color.Color
	deleted  *color.Color
}

func newEventPrinter(out io.Writer) *eventPrinter {
	return &eventPrinter{
		out:      out,
		created:  color.New(color.FgGreen),
		modified: color.New(color.FgYellow),
		deleted:  color.New(color.FgRed),
	}
}

func (printer *eventPrinter) Print(event watcher.Event) {
	if printer == nil {
		return
	}
	painter := printer.modified
	switch event.Kind {
	case watcher.KindCreated:
		painter = printer.created
	case watcher.KindDeleted:
		painter = printer.deleted
	}
	painter.Fprintf(printer.out, "%s: %s\n", event.Kind.Label(), event.RelPath)
}
