// Package art implements an adaptive radix tree over byte string keys.
//
// Inner nodes adapt between four capacities (4, 16, 48 and 256 children) and
// compress single-child chains into a stored prefix. A Tree is not safe for
// concurrent use; callers serialise access (see the root package).
package art

import (
	"bytes"
	"unsafe"
)

// Visitor receives entries during ordered traversal. The key slice is owned by
// the tree and must not be modified or retained. Returning false stops the walk.
type Visitor[V any] func(key []byte, value V) bool

type Tree[V any] struct {
	root   *node[V]
	size   int
	bytes  int64
	counts [Node256 + 1]int
	header int64
}

const ptrSize = int64(unsafe.Sizeof(uintptr(0)))

func New[V any]() *Tree[V] {
	return &Tree[V]{header: int64(unsafe.Sizeof(node[V]{}))}
}

// Len returns the number of stored keys.
func (t *Tree[V]) Len() int {
	return t.size
}

// Bytes returns the memory footprint estimate of all live nodes and leaves.
func (t *Tree[V]) Bytes() int64 {
	return t.bytes
}

// Counts returns the number of live nodes per kind, leaves included.
func (t *Tree[V]) Counts() [Node256 + 1]int {
	return t.counts
}

// Insert stores value under key, replacing any previous value. It returns the
// previous value and whether one existed.
func (t *Tree[V]) Insert(key []byte, value V) (V, bool) {
	old, found := t.insert(&t.root, key, 0, value, true)
	if !found {
		t.size++
	}
	return old, found
}

// InsertNoReplace stores value only if key is absent. When key exists the
// stored value is returned untouched along with true.
func (t *Tree[V]) InsertNoReplace(key []byte, value V) (V, bool) {
	old, found := t.insert(&t.root, key, 0, value, false)
	if !found {
		t.size++
	}
	return old, found
}

func (t *Tree[V]) Search(key []byte) (V, bool) {
	n := t.root
	depth := 0
	for n != nil {
		if n.kind == Leaf {
			if bytes.Equal(n.key, key) {
				return n.value, true
			}
			break
		}
		if !hasPrefixAt(key, depth, n.prefix) {
			break
		}
		depth += len(n.prefix)
		if depth == len(key) {
			if n.term != nil {
				return n.term.value, true
			}
			break
		}
		child := n.findChild(key[depth])
		if child == nil {
			break
		}
		n = *child
		depth++
	}
	var zero V
	return zero, false
}

// Delete removes key and returns its value.
func (t *Tree[V]) Delete(key []byte) (V, bool) {
	v, ok := t.delete(&t.root, key, 0)
	if ok {
		t.size--
	}
	return v, ok
}

// Minimum returns the smallest key and its value.
func (t *Tree[V]) Minimum() ([]byte, V, bool) {
	n := t.root
	for n != nil && n.kind != Leaf {
		if n.term != nil {
			n = n.term
			break
		}
		n = n.first()
	}
	if n == nil {
		var zero V
		return nil, zero, false
	}
	return n.key, n.value, true
}

// Maximum returns the largest key and its value.
func (t *Tree[V]) Maximum() ([]byte, V, bool) {
	n := t.root
	for n != nil && n.kind != Leaf {
		n = n.last()
	}
	if n == nil {
		var zero V
		return nil, zero, false
	}
	return n.key, n.value, true
}

// Clear releases every node and leaves the tree empty.
func (t *Tree[V]) Clear() {
	if t.root != nil {
		t.free(t.root)
	}
	t.root = nil
	t.size = 0
}

func (t *Tree[V]) free(n *node[V]) {
	t.release(n)
	if n.kind != Leaf {
		if n.term != nil {
			t.free(n.term)
			n.term = nil
		}
		n.each(func(_ byte, child *node[V]) bool {
			t.free(child)
			return true
		})
		n.children = nil
		n.keys = nil
	}
}

func (t *Tree[V]) insert(ref **node[V], key []byte, depth int, value V, replace bool) (V, bool) {
	var zero V
	n := *ref
	if n == nil {
		*ref = t.newLeaf(key, value)
		return zero, false
	}

	if n.kind == Leaf {
		if bytes.Equal(n.key, key) {
			old := n.value
			if replace {
				n.value = value
			}
			return old, true
		}
		l := t.newLeaf(key, value)
		p := commonPrefix(n.key[depth:], key[depth:])
		nn := t.newInner(Node4, key[depth:depth+p])
		nn.attach(n, depth+p)
		nn.attach(l, depth+p)
		*ref = nn
		return zero, false
	}

	if len(n.prefix) > 0 {
		p := commonPrefix(n.prefix, key[depth:])
		if p < len(n.prefix) {
			l := t.newLeaf(key, value)
			nn := t.newInner(Node4, n.prefix[:p])
			edge := n.prefix[p]
			t.setPrefix(n, n.prefix[p+1:])
			nn.addChild(edge, n)
			nn.attach(l, depth+p)
			*ref = nn
			return zero, false
		}
		depth += len(n.prefix)
	}

	if depth == len(key) {
		if n.term != nil {
			old := n.term.value
			if replace {
				n.term.value = value
			}
			return old, true
		}
		n.term = t.newLeaf(key, value)
		return zero, false
	}

	c := key[depth]
	if child := n.findChild(c); child != nil {
		return t.insert(child, key, depth+1, value, replace)
	}
	l := t.newLeaf(key, value)
	if n.full() {
		n = t.resize(n, n.kind+1)
		*ref = n
	}
	n.addChild(c, l)
	return zero, false
}

func (t *Tree[V]) delete(ref **node[V], key []byte, depth int) (V, bool) {
	var zero V
	n := *ref
	if n == nil {
		return zero, false
	}
	if n.kind == Leaf {
		if !bytes.Equal(n.key, key) {
			return zero, false
		}
		*ref = nil
		t.release(n)
		return n.value, true
	}

	if !hasPrefixAt(key, depth, n.prefix) {
		return zero, false
	}
	depth += len(n.prefix)
	if depth == len(key) {
		l := n.term
		if l == nil {
			return zero, false
		}
		n.term = nil
		t.release(l)
		t.compact(ref)
		return l.value, true
	}

	c := key[depth]
	child := n.findChild(c)
	if child == nil {
		return zero, false
	}
	if l := *child; l.kind == Leaf {
		if !bytes.Equal(l.key, key) {
			return zero, false
		}
		n.removeChild(c)
		t.release(l)
		t.compact(ref)
		return l.value, true
	}
	return t.delete(child, key, depth+1)
}

// compact restores the inner node invariants after an entry was removed from
// *ref: a node left with one entry is spliced out, an underfull node is
// demoted.
func (t *Tree[V]) compact(ref **node[V]) {
	n := *ref
	switch entries := n.entries(); {
	case entries == 0:
		*ref = nil
		t.release(n)
	case entries == 1 && n.term != nil:
		*ref = n.term
		t.release(n)
	case entries == 1:
		var (
			edge  byte
			child *node[V]
		)
		n.each(func(c byte, ch *node[V]) bool {
			edge, child = c, ch
			return false
		})
		if child.kind != Leaf {
			merged := make([]byte, 0, len(n.prefix)+1+len(child.prefix))
			merged = append(merged, n.prefix...)
			merged = append(merged, edge)
			merged = append(merged, child.prefix...)
			t.setPrefix(child, merged)
		}
		*ref = child
		t.release(n)
	default:
		if kind := n.shrinkKind(); kind != n.kind {
			*ref = t.resize(n, kind)
		}
	}
}

// resize copies n into a new node of the given kind. The caller links the
// result in place of n.
func (t *Tree[V]) resize(n *node[V], kind Kind) *node[V] {
	nn := t.newInner(kind, n.prefix)
	nn.term = n.term
	n.each(func(c byte, child *node[V]) bool {
		nn.addChild(c, child)
		return true
	})
	t.release(n)
	return nn
}

func (n *node[V]) attach(l *node[V], depth int) {
	if len(l.key) == depth {
		n.term = l
		return
	}
	n.addChild(l.key[depth], l)
}

func (t *Tree[V]) newLeaf(key []byte, value V) *node[V] {
	n := &node[V]{
		kind:  Leaf,
		key:   append([]byte(nil), key...),
		value: value,
	}
	t.account(n, 1)
	return n
}

func (t *Tree[V]) newInner(kind Kind, prefix []byte) *node[V] {
	n := &node[V]{kind: kind}
	if len(prefix) > 0 {
		n.prefix = append([]byte(nil), prefix...)
	}
	switch kind {
	case Node4, Node16:
		n.keys = make([]byte, kind.Capacity())
		n.children = make([]*node[V], kind.Capacity())
	case Node48:
		n.keys = make([]byte, 256)
		n.children = make([]*node[V], 48)
	case Node256:
		n.children = make([]*node[V], 256)
	}
	t.account(n, 1)
	return n
}

func (t *Tree[V]) release(n *node[V]) {
	t.account(n, -1)
}

func (t *Tree[V]) setPrefix(n *node[V], prefix []byte) {
	t.bytes += int64(len(prefix)) - int64(len(n.prefix))
	if len(prefix) == 0 {
		n.prefix = nil
		return
	}
	n.prefix = append([]byte(nil), prefix...)
}

func (t *Tree[V]) account(n *node[V], sign int) {
	t.bytes += int64(sign) * t.footprint(n)
	t.counts[n.kind] += sign
}

func (t *Tree[V]) footprint(n *node[V]) int64 {
	if n.kind == Leaf {
		return t.header + int64(len(n.key))
	}
	return t.header + int64(len(n.prefix)) + int64(len(n.keys)) + int64(len(n.children))*ptrSize
}
