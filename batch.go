package artree

// Batch collects puts and deletes and applies them under a single exclusive
// hold, so readers see either none or all of them. The last write to a key
// wins. A Batch is not safe for concurrent use.
type Batch[V any] struct {
	t      *Tree[V]
	writes map[string]batchEntry[V]
	order  []string
	closed bool
}

type batchEntry[V any] struct {
	key     []byte
	value   V
	deleted bool
}

func (t *Tree[V]) NewBatch() *Batch[V] {
	if t == nil {
		return &Batch[V]{closed: true}
	}
	return &Batch[V]{
		t:      t,
		writes: make(map[string]batchEntry[V]),
	}
}

func (b *Batch[V]) ensureOpen() error {
	if b == nil || b.closed || b.t == nil {
		return ErrClosed
	}
	return nil
}

func (b *Batch[V]) Put(key []byte, value V) error {
	if err := b.ensureOpen(); err != nil {
		return err
	}
	if err := b.t.checkKey(key); err != nil {
		return err
	}
	b.store(batchEntry[V]{key: append([]byte(nil), key...), value: value})
	return nil
}

func (b *Batch[V]) Delete(key []byte) error {
	if err := b.ensureOpen(); err != nil {
		return err
	}
	if err := b.t.checkKey(key); err != nil {
		return err
	}
	b.store(batchEntry[V]{key: append([]byte(nil), key...), deleted: true})
	return nil
}

func (b *Batch[V]) store(entry batchEntry[V]) {
	k := string(entry.key)
	if _, ok := b.writes[k]; !ok {
		b.order = append(b.order, k)
	}
	b.writes[k] = entry
}

// Len returns the number of distinct keys written to the batch.
func (b *Batch[V]) Len() int {
	if b == nil {
		return 0
	}
	return len(b.order)
}

func (b *Batch[V]) Discard() {
	if b == nil {
		return
	}
	b.closed = true
	b.writes = nil
	b.order = nil
}

// Commit applies the batch and closes it. It returns the number of keys that
// were inserted or removed; replacing an existing value does not count.
func (b *Batch[V]) Commit() (changed int, err error) {
	if err := b.ensureOpen(); err != nil {
		return 0, err
	}
	t := b.t
	t.exclusive(func() {
		if t.closed {
			err = ErrClosed
			return
		}
		for _, k := range b.order {
			entry := b.writes[k]
			if entry.deleted {
				if _, ok := t.index.Delete(entry.key); ok {
					changed++
				}
				continue
			}
			if _, replaced := t.index.Insert(entry.key, entry.value); !replaced {
				changed++
			}
		}
	})
	if err != nil {
		return 0, err
	}
	b.Discard()
	return changed, nil
}
