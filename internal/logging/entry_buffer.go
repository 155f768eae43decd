package logging

import (
	"sync"

	"vigil/internal/buffer"
)

type EntryBuffer struct {
	mu      sync.Mutex
	entries *buffer.Ring[Entry]
}

func NewEntryBuffer(size int) *EntryBuffer {
	return &EntryBuffer{
		entries: buffer.NewRing[Entry](size),
	}
}

func (b *EntryBuffer) Add(entry Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.entries == nil {
		return
	}

	b.entries.Add(entry)
}

func (b *EntryBuffer) List() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.entries.List()
}

func (b *EntryBuffer) Last(count int) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.entries.Last(count)
}
