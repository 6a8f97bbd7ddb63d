// Package artree is a concurrent in-memory ordered index: an adaptive radix
// tree guarded by a reader-writer ticket spin lock.
//
// Lookups and iteration take the lock in shared mode, mutations take it
// exclusively. Every operation releases the lock on all return paths.
package artree

import (
	"github.com/AfshinJalili/artree/internal/art"
	"github.com/AfshinJalili/artree/internal/rwlock"
)

// Tree maps byte string keys to values of type V.
type Tree[V any] struct {
	cfg    config
	lock   *rwlock.TicketLock
	index  *art.Tree[V]
	closed bool
}

// New returns an empty tree. Unless WithThreadSafe(false) is given the tree
// owns a ticket lock for its whole lifetime.
func New[V any](opts ...Option) *Tree[V] {
	cfg := applyOptions(opts)
	t := &Tree[V]{
		cfg:   cfg,
		index: art.New[V](),
	}
	if cfg.ThreadSafe {
		t.lock = rwlock.New()
	}
	return t
}

func (t *Tree[V]) shared(fn func()) {
	if t.lock != nil {
		t.lock.RLock()
		defer t.lock.RUnlock()
	}
	fn()
}

func (t *Tree[V]) exclusive(fn func()) {
	if t.lock != nil {
		t.lock.Lock()
		defer t.lock.Unlock()
	}
	fn()
}

func (t *Tree[V]) checkKey(key []byte) error {
	if len(key) > t.cfg.MaxKeySize {
		return ErrOversized
	}
	return nil
}

// Insert stores value under key. It returns the value it replaced, if any.
func (t *Tree[V]) Insert(key []byte, value V) (prev V, replaced bool, err error) {
	if t == nil {
		return prev, false, ErrClosed
	}
	if err := t.checkKey(key); err != nil {
		return prev, false, err
	}
	t.exclusive(func() {
		if t.closed {
			err = ErrClosed
			return
		}
		prev, replaced = t.index.Insert(key, value)
	})
	return prev, replaced, err
}

// InsertNoReplace stores value only when key is absent. If key is present the
// stored value is returned and left untouched.
func (t *Tree[V]) InsertNoReplace(key []byte, value V) (existing V, found bool, err error) {
	if t == nil {
		return existing, false, ErrClosed
	}
	if err := t.checkKey(key); err != nil {
		return existing, false, err
	}
	t.exclusive(func() {
		if t.closed {
			err = ErrClosed
			return
		}
		existing, found = t.index.InsertNoReplace(key, value)
	})
	return existing, found, err
}

func (t *Tree[V]) Lookup(key []byte) (value V, ok bool) {
	if t == nil {
		return value, false
	}
	t.shared(func() {
		if t.closed {
			return
		}
		value, ok = t.index.Search(key)
	})
	return value, ok
}

func (t *Tree[V]) Has(key []byte) bool {
	_, ok := t.Lookup(key)
	return ok
}

// Delete removes key and returns the value it held.
func (t *Tree[V]) Delete(key []byte) (value V, ok bool) {
	if t == nil {
		return value, false
	}
	t.exclusive(func() {
		if t.closed {
			return
		}
		value, ok = t.index.Delete(key)
	})
	return value, ok
}

// Scan calls fn for every key starting with prefix, in ascending order, while
// holding the shared lock for the whole traversal. fn must not call back into
// t. The key passed to fn is owned by the tree and is only valid during the
// call; copy it to keep it. Returning false stops the scan.
func (t *Tree[V]) Scan(prefix []byte, fn func(key []byte, value V) bool) error {
	if t == nil {
		return ErrClosed
	}
	var err error
	t.shared(func() {
		if t.closed {
			err = ErrClosed
			return
		}
		t.index.Walk(prefix, fn)
	})
	return err
}

// Min returns a copy of the smallest key and its value.
func (t *Tree[V]) Min() (key []byte, value V, ok bool) {
	if t == nil {
		return nil, value, false
	}
	t.shared(func() {
		if t.closed {
			return
		}
		key, value, ok = t.index.Minimum()
		key = append([]byte(nil), key...)
	})
	return key, value, ok
}

// Max returns a copy of the largest key and its value.
func (t *Tree[V]) Max() (key []byte, value V, ok bool) {
	if t == nil {
		return nil, value, false
	}
	t.shared(func() {
		if t.closed {
			return
		}
		key, value, ok = t.index.Maximum()
		key = append([]byte(nil), key...)
	})
	return key, value, ok
}

func (t *Tree[V]) Len() (n int) {
	if t == nil {
		return 0
	}
	t.shared(func() { n = t.index.Len() })
	return n
}

// Bytes returns the estimated memory held by the tree's nodes and leaves.
func (t *Tree[V]) Bytes() (n int64) {
	if t == nil {
		return 0
	}
	t.shared(func() { n = t.index.Bytes() })
	return n
}

func (t *Tree[V]) Stats() (s Stats) {
	if t == nil {
		return s
	}
	t.shared(func() { s = statsOf(t.index) })
	return s
}

// Close releases every node. Later mutations return ErrClosed and lookups
// report absent keys.
func (t *Tree[V]) Close() error {
	if t == nil {
		return nil
	}
	var (
		err  error
		keys int
	)
	t.exclusive(func() {
		if t.closed {
			err = ErrClosed
			return
		}
		keys = t.index.Len()
		t.index.Clear()
		t.closed = true
	})
	if err == nil {
		logf(t.cfg.Logger, "artree: closed tree with %d keys", keys)
	}
	return err
}
