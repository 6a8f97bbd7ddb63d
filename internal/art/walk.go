package art

import "bytes"

// Walk visits every key starting with prefix in ascending order. An empty
// prefix visits the whole tree.
func (t *Tree[V]) Walk(prefix []byte, fn Visitor[V]) {
	n := t.root
	depth := 0
	for n != nil {
		if n.kind == Leaf {
			if bytes.HasPrefix(n.key, prefix) {
				fn(n.key, n.value)
			}
			return
		}
		if depth == len(prefix) {
			walk(n, fn)
			return
		}
		rem := prefix[depth:]
		m := min(len(n.prefix), len(rem))
		if !bytes.Equal(n.prefix[:m], rem[:m]) {
			return
		}
		if len(rem) <= len(n.prefix) {
			walk(n, fn)
			return
		}
		depth += len(n.prefix)
		child := n.findChild(prefix[depth])
		if child == nil {
			return
		}
		n = *child
		depth++
	}
}

// Seek visits, in ascending order, the keys that are >= from and start with
// prefix. A from below prefix is raised to prefix.
func (t *Tree[V]) Seek(prefix, from []byte, fn Visitor[V]) {
	if t.root == nil {
		return
	}
	if bytes.Compare(from, prefix) < 0 {
		from = prefix
	}
	seek(t.root, from, 0, func(key []byte, value V) bool {
		if !bytes.HasPrefix(key, prefix) {
			return false
		}
		return fn(key, value)
	})
}

func walk[V any](n *node[V], fn Visitor[V]) bool {
	if n.kind == Leaf {
		return fn(n.key, n.value)
	}
	if n.term != nil && !fn(n.term.key, n.term.value) {
		return false
	}
	cont := true
	n.each(func(_ byte, child *node[V]) bool {
		cont = walk(child, fn)
		return cont
	})
	return cont
}

// seek walks the leaves of n whose keys are >= bound. Every key below n shares
// bound[:depth].
func seek[V any](n *node[V], bound []byte, depth int, fn Visitor[V]) bool {
	if n.kind == Leaf {
		if bytes.Compare(n.key, bound) >= 0 {
			return fn(n.key, n.value)
		}
		return true
	}
	rem := bound[depth:]
	for i, b := range n.prefix {
		if i == len(rem) || b > rem[i] {
			return walk(n, fn)
		}
		if b < rem[i] {
			return true
		}
	}
	depth += len(n.prefix)
	if depth == len(bound) {
		return walk(n, fn)
	}
	// The terminal leaf equals bound[:depth] and sorts before bound.
	c := bound[depth]
	cont := true
	n.eachFrom(int(c), func(edge byte, child *node[V]) bool {
		if edge == c {
			cont = seek(child, bound, depth+1, fn)
		} else {
			cont = walk(child, fn)
		}
		return cont
	})
	return cont
}
