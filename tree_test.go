package artree

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

func TestInsertLookupDelete(t *testing.T) {
	tr := NewTestTree(t)
	if _, ok := tr.Lookup([]byte("missing")); ok {
		t.Fatalf("expected miss on empty tree")
	}
	if _, replaced, err := tr.Insert([]byte("a"), 1); err != nil || replaced {
		t.Fatalf("insert: %v %v", replaced, err)
	}
	if !tr.Has([]byte("a")) {
		t.Fatalf("expected a present")
	}
	prev, replaced, err := tr.Insert([]byte("a"), 2)
	if err != nil || !replaced || prev != 1 {
		t.Fatalf("expected replace of 1, got %d %v %v", prev, replaced, err)
	}
	if tr.Len() != 1 {
		t.Fatalf("replace changed len to %d", tr.Len())
	}
	v, ok := tr.Delete([]byte("a"))
	if !ok || v != 2 {
		t.Fatalf("expected delete of 2, got %d %v", v, ok)
	}
	if _, ok := tr.Delete([]byte("a")); ok {
		t.Fatalf("double delete succeeded")
	}
	if tr.Len() != 0 || tr.Bytes() != 0 {
		t.Fatalf("expected empty tree, len=%d bytes=%d", tr.Len(), tr.Bytes())
	}
}

func TestInsertNoReplace(t *testing.T) {
	tr := NewTestTree(t)
	if _, found, err := tr.InsertNoReplace([]byte("k"), 1); err != nil || found {
		t.Fatalf("first insert: %v %v", found, err)
	}
	existing, found, err := tr.InsertNoReplace([]byte("k"), 2)
	if err != nil || !found || existing != 1 {
		t.Fatalf("expected existing 1, got %d %v %v", existing, found, err)
	}
	if v, _ := tr.Lookup([]byte("k")); v != 1 {
		t.Fatalf("value overwritten: %d", v)
	}
}

func TestEmptyKey(t *testing.T) {
	tr := NewTestTree(t)
	tr.Insert(nil, 7)
	tr.Insert([]byte("x"), 8)
	if v, ok := tr.Lookup([]byte{}); !ok || v != 7 {
		t.Fatalf("expected empty key stored")
	}
	k, _, ok := tr.Min()
	if !ok || len(k) != 0 {
		t.Fatalf("expected empty key as minimum, got %q", k)
	}
}

func TestOversizedKey(t *testing.T) {
	tr := NewTestTree(t, WithMaxKeySize(8))
	if _, _, err := tr.Insert([]byte(strings.Repeat("k", 9)), 1); err != ErrOversized {
		t.Fatalf("expected ErrOversized, got %v", err)
	}
	if _, _, err := tr.InsertNoReplace([]byte(strings.Repeat("k", 9)), 1); err != ErrOversized {
		t.Fatalf("expected ErrOversized, got %v", err)
	}
	if _, _, err := tr.Insert([]byte(strings.Repeat("k", 8)), 1); err != nil {
		t.Fatalf("insert at limit: %v", err)
	}
	if tr.Len() != 1 {
		t.Fatalf("expected 1 key, got %d", tr.Len())
	}
}

func TestRoundTripManyKeys(t *testing.T) {
	tr := NewTestTree(t)
	WriteN(t, tr, 5000)
	for i := 0; i < 5000; i++ {
		v, ok := tr.Lookup([]byte(fmt.Sprintf("key-%06d", i)))
		if !ok || v != i {
			t.Fatalf("lookup %d: got %d %v", i, v, ok)
		}
	}
	mustValidate(t, tr.Validate())
}

func TestFiveByteKeys(t *testing.T) {
	tr := NewTestTree(t)
	tr.Insert([]byte("00001"), 1)
	tr.Insert([]byte("00002"), 2)
	if tr.Len() != 2 {
		t.Fatalf("expected 2 entries")
	}
	if v, ok := tr.Delete([]byte("00002")); !ok || v != 2 {
		t.Fatalf("expected delete of 00002")
	}
	if tr.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", tr.Len())
	}
	if _, ok := tr.Lookup([]byte("00002")); ok {
		t.Fatalf("00002 still found")
	}
	if v, ok := tr.Lookup([]byte("00001")); !ok || v != 1 {
		t.Fatalf("00001 lost")
	}
	mustValidate(t, tr.Validate())
}

func TestNodeGrowthAndMerge(t *testing.T) {
	tr := NewTestTree(t)
	for i := 1; i <= 4; i++ {
		tr.Insert([]byte{'p', byte(i)}, i)
	}
	if s := tr.Stats(); s.Node4 != 1 || s.Node16 != 0 {
		t.Fatalf("expected one node4, got %+v", s)
	}
	tr.Insert([]byte{'p', 5}, 5)
	if s := tr.Stats(); s.Node4 != 0 || s.Node16 != 1 {
		t.Fatalf("expected promotion to node16, got %+v", s)
	}
	for i := 5; i >= 2; i-- {
		tr.Delete([]byte{'p', byte(i)})
	}
	s := tr.Stats()
	if s.Nodes() != 0 || s.Leaves != 1 || s.Keys != 1 {
		t.Fatalf("expected a single leaf, got %+v", s)
	}
	if v, ok := tr.Lookup([]byte{'p', 1}); !ok || v != 1 {
		t.Fatalf("surviving key lost")
	}
}

func TestScanOrderAndPrefix(t *testing.T) {
	tr := NewTestTree(t)
	for _, k := range []string{"b", "a2", "a1", "ab", "c"} {
		tr.Insert([]byte(k), 0)
	}
	var got []string
	err := tr.Scan([]byte("a"), func(key []byte, _ int) bool {
		got = append(got, string(key))
		return true
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if fmt.Sprint(got) != "[a1 a2 ab]" {
		t.Fatalf("unexpected scan: %v", got)
	}
	got = got[:0]
	tr.Scan(nil, func(key []byte, _ int) bool {
		got = append(got, string(key))
		return len(got) < 2
	})
	if fmt.Sprint(got) != "[a1 a2]" {
		t.Fatalf("unexpected early stop: %v", got)
	}
}

func TestScanKeysCopiedOutlastMutation(t *testing.T) {
	tr := NewTestTree(t)
	for _, k := range []string{"k1", "k2", "k3"} {
		tr.Insert([]byte(k), 0)
	}
	var kept [][]byte
	tr.Scan(nil, func(key []byte, _ int) bool {
		kept = append(kept, append([]byte(nil), key...))
		return true
	})
	for _, k := range []string{"k1", "k2", "k3"} {
		tr.Delete([]byte(k))
	}
	tr.Insert([]byte("zz"), 1)
	if fmt.Sprintf("%s", kept) != "[k1 k2 k3]" {
		t.Fatalf("copied keys changed: %s", kept)
	}
}

func TestMinMax(t *testing.T) {
	tr := NewTestTree(t)
	if _, _, ok := tr.Min(); ok {
		t.Fatalf("expected no min on empty tree")
	}
	if _, _, ok := tr.Max(); ok {
		t.Fatalf("expected no max on empty tree")
	}
	for i, k := range []string{"m", "zz", "a", "z"} {
		tr.Insert([]byte(k), i)
	}
	k, v, ok := tr.Min()
	if !ok || !bytes.Equal(k, []byte("a")) || v != 2 {
		t.Fatalf("min: %q %d %v", k, v, ok)
	}
	k, v, ok = tr.Max()
	if !ok || !bytes.Equal(k, []byte("zz")) || v != 1 {
		t.Fatalf("max: %q %d %v", k, v, ok)
	}
}

func TestStats(t *testing.T) {
	tr := NewTestTree(t)
	WriteN(t, tr, 100)
	s := tr.Stats()
	if s.Keys != 100 || s.Leaves != 100 {
		t.Fatalf("unexpected stats %+v", s)
	}
	if s.Bytes != tr.Bytes() || s.Bytes <= 0 {
		t.Fatalf("stats bytes %d, tree %d", s.Bytes, tr.Bytes())
	}
	if s.Nodes() == 0 {
		t.Fatalf("expected inner nodes")
	}
}

func TestClose(t *testing.T) {
	tr := NewTestTree(t)
	WriteN(t, tr, 10)
	if err := tr.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := tr.Close(); err != ErrClosed {
		t.Fatalf("expected ErrClosed on second close, got %v", err)
	}
	if _, _, err := tr.Insert([]byte("x"), 1); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, ok := tr.Lookup([]byte("key-000001")); ok {
		t.Fatalf("lookup after close found a key")
	}
	if err := tr.Scan(nil, func([]byte, int) bool { return true }); err != ErrClosed {
		t.Fatalf("expected ErrClosed from scan, got %v", err)
	}
	if tr.Len() != 0 || tr.Bytes() != 0 {
		t.Fatalf("expected nodes released")
	}
}

func TestNilTree(t *testing.T) {
	var tr *Tree[int]
	if _, _, err := tr.Insert([]byte("a"), 1); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, ok := tr.Lookup([]byte("a")); ok {
		t.Fatalf("nil tree lookup succeeded")
	}
	if tr.Len() != 0 || tr.Close() != nil {
		t.Fatalf("nil tree misbehaves")
	}
}

func TestUnlockedTree(t *testing.T) {
	tr := NewTestTree(t, WithThreadSafe(false))
	WriteN(t, tr, 300)
	for i := 0; i < 300; i += 3 {
		tr.Delete([]byte(fmt.Sprintf("key-%06d", i)))
	}
	if tr.Len() != 200 {
		t.Fatalf("expected 200 keys, got %d", tr.Len())
	}
	mustValidate(t, tr.Validate())
}

type recordingLogger struct {
	lines []string
}

func (l *recordingLogger) Printf(format string, args ...interface{}) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func TestCloseLogs(t *testing.T) {
	log := &recordingLogger{}
	tr := NewTestTree(t, WithLogger(log))
	WriteN(t, tr, 3)
	_ = tr.Close()
	if len(log.lines) != 1 || !strings.Contains(log.lines[0], "3 keys") {
		t.Fatalf("unexpected log lines %q", log.lines)
	}
}

func BenchmarkInsert(b *testing.B) {
	tr := New[int]()
	keys := make([][]byte, b.N)
	for i := range keys {
		keys[i] = []byte(fmt.Sprintf("key-%d", i))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := tr.Insert(keys[i], i); err != nil {
			b.Fatalf("insert: %v", err)
		}
	}
}

func BenchmarkLookup(b *testing.B) {
	tr := New[int]()
	keys := make([][]byte, 1000)
	for i := range keys {
		keys[i] = []byte(fmt.Sprintf("key-%d", i))
		tr.Insert(keys[i], i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, ok := tr.Lookup(keys[i%len(keys)]); !ok {
			b.Fatalf("lookup miss")
		}
	}
}

func BenchmarkLookupParallel(b *testing.B) {
	tr := New[int]()
	keys := make([][]byte, 1000)
	for i := range keys {
		keys[i] = []byte(fmt.Sprintf("key-%d", i))
		tr.Insert(keys[i], i)
	}
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			tr.Lookup(keys[i%len(keys)])
			i++
		}
	})
}
