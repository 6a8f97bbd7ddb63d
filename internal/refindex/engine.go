package refindex

import (
	"math"

	"github.com/AfshinJalili/artree"
)

// Engine adapts artree.Tree.
type Engine struct {
	tree *artree.Tree[interface{}]
}

func NewEngine() *Engine {
	return &Engine{tree: artree.New[interface{}](artree.WithMaxKeySize(math.MaxInt32))}
}

func (e *Engine) Get(key []byte) (interface{}, bool) {
	return e.tree.Lookup(key)
}

func (e *Engine) Set(key []byte, value interface{}) (interface{}, bool) {
	old, replaced, _ := e.tree.Insert(key, value)
	return old, replaced
}

func (e *Engine) Delete(key []byte) (interface{}, bool) {
	return e.tree.Delete(key)
}

func (e *Engine) Len() int {
	return e.tree.Len()
}

func (e *Engine) Prefix(prefix []byte, fn Iterator) {
	_ = e.tree.Scan(prefix, fn)
}

// Tree exposes the wrapped tree for validation.
func (e *Engine) Tree() *artree.Tree[interface{}] {
	return e.tree
}
