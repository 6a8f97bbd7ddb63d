package art

// Kind is the node variant tag.
type Kind uint8

const (
	Leaf Kind = iota
	Node4
	Node16
	Node48
	Node256
)

func (k Kind) String() string {
	switch k {
	case Leaf:
		return "leaf"
	case Node4:
		return "node4"
	case Node16:
		return "node16"
	case Node48:
		return "node48"
	case Node256:
		return "node256"
	default:
		return "unknown"
	}
}

// Capacity is the number of children a node of kind k can hold.
func (k Kind) Capacity() int {
	switch k {
	case Node4:
		return 4
	case Node16:
		return 16
	case Node48:
		return 48
	case Node256:
		return 256
	default:
		return 0
	}
}

// node is a tagged union over all variants. Leaves use key and value, inner
// nodes use the rest.
//
// Node4 and Node16 keep keys sorted, keys[i] being the edge byte of
// children[i]. Node48 keeps a 256 entry index where keys[c] is slot+1 of the
// child for byte c (0 means absent) and children[0:size] is dense. Node256
// indexes children by byte and has no keys.
//
// term holds the leaf whose key ends exactly where prefix ends.
type node[V any] struct {
	kind Kind

	key   []byte
	value V

	prefix   []byte
	size     uint16
	term     *node[V]
	keys     []byte
	children []*node[V]
}

func (n *node[V]) full() bool {
	return int(n.size) >= n.kind.Capacity()
}

// entries counts children plus the terminal leaf.
func (n *node[V]) entries() int {
	if n.term != nil {
		return int(n.size) + 1
	}
	return int(n.size)
}

func (n *node[V]) findChild(c byte) **node[V] {
	switch n.kind {
	case Node4, Node16:
		for i := 0; i < int(n.size); i++ {
			if n.keys[i] == c {
				return &n.children[i]
			}
			if n.keys[i] > c {
				return nil
			}
		}
	case Node48:
		if i := n.keys[c]; i > 0 {
			return &n.children[i-1]
		}
	case Node256:
		if n.children[c] != nil {
			return &n.children[c]
		}
	}
	return nil
}

// addChild links child under edge byte c. The node must not be full and must
// not already have a child for c.
func (n *node[V]) addChild(c byte, child *node[V]) {
	if n.full() {
		panic("art: addChild on full " + n.kind.String())
	}
	switch n.kind {
	case Node4, Node16:
		size := int(n.size)
		i := 0
		for i < size && n.keys[i] < c {
			i++
		}
		copy(n.keys[i+1:size+1], n.keys[i:size])
		copy(n.children[i+1:size+1], n.children[i:size])
		n.keys[i] = c
		n.children[i] = child
	case Node48:
		n.children[n.size] = child
		n.keys[c] = byte(n.size + 1)
	case Node256:
		n.children[c] = child
	default:
		panic("art: addChild on leaf")
	}
	n.size++
}

func (n *node[V]) removeChild(c byte) {
	switch n.kind {
	case Node4, Node16:
		size := int(n.size)
		for i := 0; i < size; i++ {
			if n.keys[i] != c {
				continue
			}
			copy(n.keys[i:], n.keys[i+1:size])
			copy(n.children[i:], n.children[i+1:size])
			n.keys[size-1] = 0
			n.children[size-1] = nil
			n.size--
			return
		}
	case Node48:
		i := n.keys[c]
		if i == 0 {
			return
		}
		i--
		last := byte(n.size - 1)
		if i < last {
			n.children[i] = n.children[last]
			for b := range n.keys {
				if n.keys[b] == last+1 {
					n.keys[b] = i + 1
					break
				}
			}
		}
		n.children[last] = nil
		n.keys[c] = 0
		n.size--
	case Node256:
		if n.children[c] != nil {
			n.children[c] = nil
			n.size--
		}
	}
}

// eachFrom visits children whose edge byte is >= start in ascending byte
// order until fn returns false.
func (n *node[V]) eachFrom(start int, fn func(c byte, child *node[V]) bool) {
	switch n.kind {
	case Node4, Node16:
		for i := 0; i < int(n.size); i++ {
			if int(n.keys[i]) < start {
				continue
			}
			if !fn(n.keys[i], n.children[i]) {
				return
			}
		}
	case Node48:
		for c := start; c < 256; c++ {
			if i := n.keys[c]; i > 0 {
				if !fn(byte(c), n.children[i-1]) {
					return
				}
			}
		}
	case Node256:
		for c := start; c < 256; c++ {
			if child := n.children[c]; child != nil {
				if !fn(byte(c), child) {
					return
				}
			}
		}
	}
}

func (n *node[V]) each(fn func(c byte, child *node[V]) bool) {
	n.eachFrom(0, fn)
}

func (n *node[V]) first() *node[V] {
	var out *node[V]
	n.each(func(_ byte, child *node[V]) bool {
		out = child
		return false
	})
	return out
}

func (n *node[V]) last() *node[V] {
	switch n.kind {
	case Node4, Node16:
		if n.size > 0 {
			return n.children[n.size-1]
		}
	case Node48:
		for c := 255; c >= 0; c-- {
			if i := n.keys[c]; i > 0 {
				return n.children[i-1]
			}
		}
	case Node256:
		for c := 255; c >= 0; c-- {
			if n.children[c] != nil {
				return n.children[c]
			}
		}
	}
	return nil
}

// shrinkKind returns the variant n should be demoted to, or n.kind.
func (n *node[V]) shrinkKind() Kind {
	switch {
	case n.kind == Node256 && n.size <= 36:
		return Node48
	case n.kind == Node48 && n.size <= 12:
		return Node16
	case n.kind == Node16 && n.size <= 3:
		return Node4
	}
	return n.kind
}

func commonPrefix(a, b []byte) int {
	m := min(len(a), len(b))
	for i := 0; i < m; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return m
}

func hasPrefixAt(key []byte, depth int, prefix []byte) bool {
	if len(key)-depth < len(prefix) {
		return false
	}
	for i, b := range prefix {
		if key[depth+i] != b {
			return false
		}
	}
	return true
}
