package artree

import (
	"fmt"

	"github.com/AfshinJalili/artree/internal/snapfile"
)

type Report struct {
	Keys           int
	Nodes          int
	Bytes          int64
	Records        int
	CorruptRecords int
	Errors         []error
}

func (r Report) HasErrors() bool {
	return r.CorruptRecords > 0 || len(r.Errors) > 0
}

// Validate checks the structural invariants of the index under the shared
// lock: node capacities, sorted edges, prefix consistency, the two-entry
// minimum of inner nodes, and the key, byte and node counters.
func (t *Tree[V]) Validate() Report {
	var r Report
	if t == nil {
		r.Errors = append(r.Errors, ErrClosed)
		return r
	}
	t.shared(func() {
		s := statsOf(t.index)
		r.Keys = s.Keys
		r.Nodes = s.Nodes()
		r.Bytes = s.Bytes
		r.Errors = append(r.Errors, t.index.Check()...)
	})
	return r
}

// ValidateFile reads a snapshot file, counts its records and checks the tree
// it rebuilds.
func ValidateFile(path string) (Report, error) {
	if path == "" {
		return Report{}, fmt.Errorf("artree: path required")
	}
	t := New[[]byte](WithThreadSafe(false), WithMaxKeySize(1<<30))
	dupes := 0
	info, err := snapfile.Read(path, true, func(key, value []byte) error {
		if _, replaced, err := t.Insert(key, value); err != nil {
			return err
		} else if replaced {
			dupes++
		}
		return nil
	})
	if err != nil {
		return Report{}, err
	}
	report := t.Validate()
	report.Records = info.Records
	if info.Truncated {
		report.CorruptRecords++
	}
	if dupes > 0 {
		report.Errors = append(report.Errors, fmt.Errorf("snapshot repeats %d keys", dupes))
	}
	return report, nil
}
