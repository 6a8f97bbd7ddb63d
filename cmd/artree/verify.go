package main

import (
	"bytes"
	"flag"
	"fmt"
	"math/rand"
	"os"

	"github.com/AfshinJalili/artree/internal/refindex"
)

const checkEvery = 1000

// cmdVerify runs a random operation stream against the engine and an
// immutable radix tree, failing on the first disagreement or broken
// structural invariant.
func cmdVerify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	n := fs.Int("n", 100000, "operations to run")
	seed := fs.Int64("seed", 1, "random seed")
	maxLen := fs.Int("max-len", 6, "longest generated key")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := verify(*n, *seed, *maxLen); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "ok: %d operations, seed %d\n", *n, *seed)
	return nil
}

func verify(n int, seed int64, maxLen int) error {
	if maxLen < 0 {
		return fmt.Errorf("verify: -max-len must not be negative")
	}
	r := rand.New(rand.NewSource(seed))
	engine := refindex.NewEngine()
	ref := refindex.NewRadix()
	for i := 0; i < n; i++ {
		key := randomKey(r, maxLen)
		switch op := r.Intn(10); {
		case op < 5:
			gotOld, gotOK := engine.Set(key, i)
			wantOld, wantOK := ref.Set(key, i)
			if gotOK != wantOK || gotOld != wantOld {
				return fmt.Errorf("verify: op %d insert %q: got %v %v, want %v %v", i, key, gotOld, gotOK, wantOld, wantOK)
			}
		case op < 8:
			gotOld, gotOK := engine.Delete(key)
			wantOld, wantOK := ref.Delete(key)
			if gotOK != wantOK || gotOld != wantOld {
				return fmt.Errorf("verify: op %d delete %q: got %v %v, want %v %v", i, key, gotOld, gotOK, wantOld, wantOK)
			}
		default:
			got, gotOK := engine.Get(key)
			want, wantOK := ref.Get(key)
			if gotOK != wantOK || got != want {
				return fmt.Errorf("verify: op %d lookup %q: got %v %v, want %v %v", i, key, got, gotOK, want, wantOK)
			}
		}
		if (i+1)%checkEvery == 0 {
			if err := compare(engine, ref); err != nil {
				return fmt.Errorf("verify: after op %d: %w", i, err)
			}
		}
	}
	return compare(engine, ref)
}

func compare(engine *refindex.Engine, ref *refindex.Radix) error {
	if report := engine.Tree().Validate(); report.HasErrors() {
		return fmt.Errorf("invariants broken: %v", report.Errors)
	}
	if engine.Len() != ref.Len() {
		return fmt.Errorf("len %d, reference %d", engine.Len(), ref.Len())
	}
	var want [][]byte
	ref.Prefix(nil, func(key []byte, _ interface{}) bool {
		want = append(want, append([]byte(nil), key...))
		return true
	})
	i := 0
	var err error
	engine.Prefix(nil, func(key []byte, _ interface{}) bool {
		if i >= len(want) || !bytes.Equal(key, want[i]) {
			err = fmt.Errorf("order differs at position %d: %q", i, key)
			return false
		}
		i++
		return true
	})
	return err
}

// randomKey draws from a four letter alphabet so keys share prefixes and
// collide often.
func randomKey(r *rand.Rand, maxLen int) []byte {
	key := make([]byte, r.Intn(maxLen+1))
	for i := range key {
		key[i] = "abcd"[r.Intn(4)]
	}
	return key
}
