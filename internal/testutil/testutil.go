package testutil

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/AfshinJalili/artree/internal/file"
)

// CorruptTail truncates the newest snapshot in dir by trim bytes.
func CorruptTail(tb testing.TB, dir string, trim int64) {
	tb.Helper()
	path := LatestSnapshot(tb, dir)
	info, err := os.Stat(path)
	if err != nil {
		tb.Fatalf("stat: %v", err)
	}
	if info.Size() <= trim {
		tb.Fatalf("file too small to truncate")
	}
	if err := os.Truncate(path, info.Size()-trim); err != nil {
		tb.Fatalf("truncate: %v", err)
	}
}

// FlipByte inverts the byte at offset in the newest snapshot in dir.
func FlipByte(tb testing.TB, dir string, offset int64) {
	tb.Helper()
	path := LatestSnapshot(tb, dir)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		tb.Fatalf("open snapshot: %v", err)
	}
	defer func() { _ = f.Close() }()
	buf := []byte{0}
	if _, err := f.ReadAt(buf, offset); err != nil {
		tb.Fatalf("read snapshot: %v", err)
	}
	buf[0] ^= 0xFF
	if _, err := f.WriteAt(buf, offset); err != nil {
		tb.Fatalf("write snapshot: %v", err)
	}
}

func LatestSnapshot(tb testing.TB, dir string) string {
	tb.Helper()
	names := Snapshots(tb, dir)
	if len(names) == 0 {
		tb.Fatalf("no snapshots in %s", dir)
	}
	return names[len(names)-1]
}

// Snapshots lists the snapshot files in dir, oldest first.
func Snapshots(tb testing.TB, dir string) []string {
	tb.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		tb.Fatalf("read dir: %v", err)
	}
	type named struct {
		seq  uint64
		path string
	}
	var out []named
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if seq, ok := file.ParseSeq(entry.Name()); ok {
			out = append(out, named{seq, filepath.Join(dir, entry.Name())})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	paths := make([]string, len(out))
	for i, n := range out {
		paths[i] = n.path
	}
	return paths
}

// RandomKey returns a key of up to maxLen bytes drawn from a small alphabet,
// so random workloads share prefixes and hit every node kind.
func RandomKey(r *rand.Rand, maxLen int) []byte {
	k := make([]byte, r.Intn(maxLen+1))
	for i := range k {
		k[i] = "abcdefgh"[r.Intn(8)]
	}
	return k
}

func Key(i int) []byte {
	return []byte(fmt.Sprintf("key-%06d", i))
}

func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
