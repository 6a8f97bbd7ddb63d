package artree

import (
	iradix "github.com/hashicorp/go-immutable-radix/v2"
)

// Snapshot is an immutable point-in-time copy of a tree. It needs no locking
// and is unaffected by later mutations of the tree it was taken from.
type Snapshot[V any] struct {
	tree *iradix.Tree[V]
}

// Snapshot copies every entry under one shared hold. A closed tree yields an
// empty snapshot.
func (t *Tree[V]) Snapshot() *Snapshot[V] {
	s, _ := t.snapshot()
	return s
}

// snapshot is Snapshot that reports ErrClosed, checked in the same hold that
// copies the entries.
func (t *Tree[V]) snapshot() (*Snapshot[V], error) {
	txn := iradix.New[V]().Txn()
	txn.TrackMutate(false)
	err := ErrClosed
	if t != nil {
		t.shared(func() {
			if t.closed {
				return
			}
			err = nil
			t.index.Walk(nil, func(key []byte, value V) bool {
				txn.Insert(append([]byte(nil), key...), value)
				return true
			})
		})
	}
	return &Snapshot[V]{tree: txn.Commit()}, err
}

func (s *Snapshot[V]) Get(key []byte) (V, bool) {
	return s.tree.Get(key)
}

func (s *Snapshot[V]) Len() int {
	return s.tree.Len()
}

// Walk visits the keys starting with prefix in ascending order until fn
// returns false.
func (s *Snapshot[V]) Walk(prefix []byte, fn func(key []byte, value V) bool) {
	s.tree.Root().WalkPrefix(prefix, func(key []byte, value V) bool {
		return !fn(key, value)
	})
}

func (s *Snapshot[V]) Min() ([]byte, V, bool) {
	return s.tree.Root().Minimum()
}

func (s *Snapshot[V]) Max() ([]byte, V, bool) {
	return s.tree.Root().Maximum()
}
