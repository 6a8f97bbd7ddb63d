package main

import (
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"text/tabwriter"
	"time"

	"github.com/AfshinJalili/artree/internal/refindex"
)

type benchResult struct {
	backend string
	n       int
	insert  time.Duration
	lookup  time.Duration
	scan    time.Duration
	remove  time.Duration
}

func perOp(d time.Duration, n int) string {
	if n == 0 {
		return "-"
	}
	return (d / time.Duration(n)).String()
}

func cmdBench(args []string) error {
	fs := flag.NewFlagSet("bench", flag.ContinueOnError)
	n := fs.Int("n", 100000, "keys per backend")
	backend := fs.String("backend", "all", "backend to run (engine|art|radix|all)")
	seed := fs.Int64("seed", 1, "key shuffle seed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *n <= 0 {
		return fmt.Errorf("bench: -n must be positive")
	}
	names := refindex.Names()
	if *backend != "all" {
		names = []string{*backend}
	}
	keys := benchKeys(*n, *seed)
	results := make([]benchResult, 0, len(names))
	for _, name := range names {
		idx, err := refindex.New(name)
		if err != nil {
			return err
		}
		results = append(results, runBench(name, idx, keys))
	}
	return printBench(os.Stdout, results)
}

// benchKeys returns n distinct keys in shuffled order. Shared prefixes make
// the inner nodes of every backend do real work.
func benchKeys(n int, seed int64) [][]byte {
	keys := make([][]byte, n)
	for i := range keys {
		keys[i] = []byte(fmt.Sprintf("user:%04d:item:%08d", i%997, i))
	}
	r := rand.New(rand.NewSource(seed))
	r.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
	return keys
}

func runBench(name string, idx refindex.Index, keys [][]byte) benchResult {
	res := benchResult{backend: name, n: len(keys)}

	start := time.Now()
	for i, k := range keys {
		idx.Set(k, i)
	}
	res.insert = time.Since(start)

	start = time.Now()
	for _, k := range keys {
		idx.Get(k)
	}
	res.lookup = time.Since(start)

	start = time.Now()
	idx.Prefix(nil, func([]byte, interface{}) bool { return true })
	res.scan = time.Since(start)

	start = time.Now()
	for _, k := range keys {
		idx.Delete(k)
	}
	res.remove = time.Since(start)
	return res
}

func printBench(w io.Writer, results []benchResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "backend\tkeys\tinsert/op\tlookup/op\tscan/key\tdelete/op")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n", r.backend, r.n,
			perOp(r.insert, r.n), perOp(r.lookup, r.n), perOp(r.scan, r.n), perOp(r.remove, r.n))
	}
	return tw.Flush()
}
