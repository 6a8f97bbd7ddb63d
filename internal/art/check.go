package art

import (
	"bytes"
	"fmt"
)

// Check walks the whole tree and reports every broken structural invariant:
// variant capacity, sorted edges, prefix consistency, the two-entry minimum
// of inner nodes, and the size, byte and per-kind counters.
func (t *Tree[V]) Check() []error {
	c := checker[V]{t: t}
	if t.root != nil {
		c.visit(t.root, nil)
	}
	if c.leaves != t.size {
		c.errf("size %d but %d leaves reachable", t.size, c.leaves)
	}
	if c.bytes != t.bytes {
		c.errf("byte size %d but live nodes account for %d", t.bytes, c.bytes)
	}
	if c.counts != t.counts {
		c.errf("node counts %v but reachable %v", t.counts, c.counts)
	}
	return c.errs
}

type checker[V any] struct {
	t      *Tree[V]
	leaves int
	bytes  int64
	counts [Node256 + 1]int
	errs   []error
	last   []byte
}

func (c *checker[V]) errf(format string, args ...interface{}) {
	c.errs = append(c.errs, fmt.Errorf(format, args...))
}

func (c *checker[V]) visit(n *node[V], path []byte) {
	c.bytes += c.t.footprint(n)
	c.counts[n.kind]++
	if n.kind == Leaf {
		c.leaves++
		if !bytes.HasPrefix(n.key, path) {
			c.errf("leaf %q stored below path %q", n.key, path)
		}
		if c.leaves > 1 && bytes.Compare(c.last, n.key) >= 0 {
			c.errf("leaf %q out of order after %q", n.key, c.last)
		}
		c.last = n.key
		return
	}

	full := append(append([]byte(nil), path...), n.prefix...)
	if int(n.size) > n.kind.Capacity() {
		c.errf("%s at %q holds %d children", n.kind, full, n.size)
	}
	if n.entries() < 2 {
		c.errf("%s at %q has %d entries", n.kind, full, n.entries())
	}
	if n.term != nil {
		if n.term.kind != Leaf {
			c.errf("terminal of %q is a %s", full, n.term.kind)
		} else if !bytes.Equal(n.term.key, full) {
			c.errf("terminal %q stored at %q", n.term.key, full)
		}
		c.visit(n.term, full)
	}

	var (
		seen   int
		prev   = -1
		sorted = n.kind == Node4 || n.kind == Node16
	)
	n.each(func(edge byte, child *node[V]) bool {
		seen++
		if child == nil {
			c.errf("%s at %q has nil child for %d", n.kind, full, edge)
			return true
		}
		if sorted && int(edge) <= prev {
			c.errf("%s at %q edges not ascending", n.kind, full)
		}
		prev = int(edge)
		c.visit(child, append(full[:len(full):len(full)], edge))
		return true
	})
	if seen != int(n.size) {
		c.errf("%s at %q reports %d children, found %d", n.kind, full, n.size, seen)
	}
}
