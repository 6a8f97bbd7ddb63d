package artree

type iterEntry[V any] struct {
	key   []byte
	value V
}

// Iterator walks the keys under a prefix in ascending order. It does not hold
// the tree lock between calls: each refill takes the shared lock, copies up to
// the configured batch of entries that follow the last returned key, and
// releases it. Mutations made between refills are visible to later refills.
type Iterator[V any] struct {
	t       *Tree[V]
	prefix  []byte
	entries []iterEntry[V]
	idx     int
	last    []byte
	started bool
	done    bool
	key     []byte
	val     V
	err     error
	closed  bool
}

func (t *Tree[V]) NewIterator(prefix []byte) *Iterator[V] {
	return &Iterator[V]{
		t:      t,
		prefix: append([]byte(nil), prefix...),
		idx:    -1,
	}
}

func (it *Iterator[V]) Next() bool {
	if it == nil || it.closed || it.err != nil {
		return false
	}
	it.idx++
	if it.idx >= len(it.entries) {
		if it.done || !it.refill() {
			return false
		}
	}
	e := it.entries[it.idx]
	it.key = e.key
	it.val = e.value
	it.last = e.key
	return true
}

func (it *Iterator[V]) refill() bool {
	if it.t == nil {
		it.err = ErrClosed
		return false
	}
	from := it.prefix
	if it.started {
		from = make([]byte, len(it.last)+1)
		copy(from, it.last)
	}
	it.started = true

	limit := it.t.cfg.IterBatch
	entries := it.entries[:0]
	it.t.shared(func() {
		if it.t.closed {
			it.err = ErrClosed
			return
		}
		it.t.index.Seek(it.prefix, from, func(key []byte, value V) bool {
			entries = append(entries, iterEntry[V]{key: append([]byte(nil), key...), value: value})
			return len(entries) < limit
		})
	})
	it.entries = entries
	it.idx = 0
	if len(entries) < limit {
		it.done = true
	}
	return it.err == nil && len(entries) > 0
}

// Key returns a copy of the current key.
func (it *Iterator[V]) Key() []byte {
	if it == nil {
		return nil
	}
	return append([]byte(nil), it.key...)
}

func (it *Iterator[V]) Value() V {
	if it == nil {
		var zero V
		return zero
	}
	return it.val
}

func (it *Iterator[V]) Err() error {
	if it == nil {
		return ErrClosed
	}
	return it.err
}

func (it *Iterator[V]) Close() error {
	if it == nil {
		return nil
	}
	it.closed = true
	it.entries = nil
	return nil
}
