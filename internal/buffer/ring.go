package buffer

// Ring is a fixed-capacity ring that keeps the most recent entries.
type Ring[T any] struct {
	entries []T
	head    int
	length  int
}

func NewRing[T any](size int) *Ring[T] {
	if size <= 0 {
		size = 1
	}
	return &Ring[T]{
		entries: make([]T, size),
	}
}

func (r *Ring[T]) Add(entry T) {
	if r == nil || len(r.entries) == 0 {
		return
	}

	if r.length < len(r.entries) {
		index := (r.head + r.length) % len(r.entries)
		r.entries[index] = entry
		r.length++
		return
	}

	r.entries[r.head] = entry
	r.head = (r.head + 1) % len(r.entries)
}

func (r *Ring[T]) Len() int {
	if r == nil {
		return 0
	}
	return r.length
}

// List returns the stored entries oldest first.
func (r *Ring[T]) List() []T {
	if r == nil || r.length == 0 {
		return nil
	}

	out := make([]T, r.length)
	for i := 0; i < r.length; i++ {
		index := (r.head + i) % len(r.entries)
		out[i] = r.entries[index]
	}
	return out
}

// Last returns up to count of the most recent entries, oldest first.
func (r *Ring[T]) Last(count int) []T {
	if r == nil || r.length == 0 || count <= 0 {
		return nil
	}
	if count > r.length {
		count = r.length
	}
	out := make([]T, count)
	start := r.length - count
	for i := 0; i < count; i++ {
		index := (r.head + start + i) % len(r.entries)
		out[i] = r.entries[index]
	}
	return out
}
