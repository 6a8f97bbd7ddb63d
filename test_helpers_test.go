package artree

import (
	"fmt"
	"testing"
)

func NewTestTree(tb testing.TB, opts ...Option) *Tree[int] {
	tb.Helper()
	t := New[int](opts...)
	if t == nil {
		tb.Fatalf("new returned nil")
	}
	return t
}

func WriteN(tb testing.TB, t *Tree[int], n int) {
	tb.Helper()
	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("key-%06d", i))
		if _, _, err := t.Insert(key, i); err != nil {
			tb.Fatalf("insert: %v", err)
		}
	}
}

func mustValidate(tb testing.TB, r Report) {
	tb.Helper()
	if r.HasErrors() {
		tb.Fatalf("invariants broken: %v", r.Errors)
	}
}
