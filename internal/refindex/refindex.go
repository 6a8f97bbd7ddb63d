// Package refindex puts the engine and two third-party radix trees behind one
// small interface, so they can be checked against each other and benchmarked
// side by side.
package refindex

import (
	"fmt"
	"sort"
)

type Iterator func(key []byte, value interface{}) bool

type Index interface {
	Get(key []byte) (interface{}, bool)
	Set(key []byte, value interface{}) (old interface{}, replaced bool)
	Delete(key []byte) (interface{}, bool)
	Len() int
	// Prefix visits the keys starting with prefix. Only the engine and Radix
	// guarantee ascending order.
	Prefix(prefix []byte, fn Iterator)
}

var constructors = map[string]func() Index{
	"engine": func() Index { return NewEngine() },
	"art":    func() Index { return NewART() },
	"radix":  func() Index { return NewRadix() },
}

// Names lists the available backends.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func New(name string) (Index, error) {
	ctor, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("refindex: unknown backend %q", name)
	}
	return ctor(), nil
}
