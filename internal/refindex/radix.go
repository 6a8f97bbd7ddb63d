package refindex

import (
	iradix "github.com/hashicorp/go-immutable-radix/v2"
)

// Radix adapts github.com/hashicorp/go-immutable-radix. Every write produces
// a new root, so Snapshot is free.
type Radix struct {
	tree *iradix.Tree[interface{}]
}

func NewRadix() *Radix {
	return &Radix{tree: iradix.New[interface{}]()}
}

func (r *Radix) Get(key []byte) (interface{}, bool) {
	return r.tree.Get(key)
}

func (r *Radix) Set(key []byte, value interface{}) (interface{}, bool) {
	k := append([]byte(nil), key...)
	tree, old, replaced := r.tree.Insert(k, value)
	r.tree = tree
	return old, replaced
}

func (r *Radix) Delete(key []byte) (interface{}, bool) {
	tree, old, ok := r.tree.Delete(key)
	r.tree = tree
	return old, ok
}

func (r *Radix) Len() int {
	return r.tree.Len()
}

func (r *Radix) Prefix(prefix []byte, fn Iterator) {
	r.tree.Root().WalkPrefix(prefix, func(key []byte, value interface{}) bool {
		return !fn(key, value)
	})
}

// Snapshot returns an independent copy that later writes do not affect.
func (r *Radix) Snapshot() *Radix {
	return &Radix{tree: r.tree}
}
