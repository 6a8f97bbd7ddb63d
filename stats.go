package artree

import "github.com/AfshinJalili/artree/internal/art"

type Stats struct {
	Keys    int
	Bytes   int64
	Leaves  int
	Node4   int
	Node16  int
	Node48  int
	Node256 int
}

// Nodes returns the number of inner nodes.
func (s Stats) Nodes() int {
	return s.Node4 + s.Node16 + s.Node48 + s.Node256
}

func statsOf[V any](index *art.Tree[V]) Stats {
	counts := index.Counts()
	return Stats{
		Keys:    index.Len(),
		Bytes:   index.Bytes(),
		Leaves:  counts[art.Leaf],
		Node4:   counts[art.Node4],
		Node16:  counts[art.Node16],
		Node48:  counts[art.Node48],
		Node256: counts[art.Node256],
	}
}
