package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/AfshinJalili/artree"
)

// Set via GoReleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type commonFlags struct {
	dir      string
	maxKey   int
	sync     bool
	keep     int
	compress int
}

func (c *commonFlags) add(fs *flag.FlagSet) {
	fs.StringVar(&c.dir, "dir", "./data", "snapshot directory")
	fs.IntVar(&c.maxKey, "max-key", 1024, "max key size in bytes")
	fs.BoolVar(&c.sync, "sync", true, "fsync snapshot files")
	fs.IntVar(&c.keep, "keep", 2, "snapshots kept after a save")
	fs.IntVar(&c.compress, "compression-threshold", 256, "compress values at least this large")
}

func (c *commonFlags) options() []artree.Option {
	return []artree.Option{
		artree.WithMaxKeySize(c.maxKey),
		artree.WithSnapshotSync(c.sync),
		artree.WithSnapshotKeep(c.keep),
		artree.WithCompressionThreshold(c.compress),
	}
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cmd := os.Args[1]
	args := os.Args[2:]
	var err error
	switch cmd {
	case "get":
		err = cmdGet(args)
	case "put":
		err = cmdPut(args)
	case "del":
		err = cmdDel(args)
	case "dump":
		err = cmdDump(args)
	case "stats":
		err = cmdStats(args)
	case "load":
		err = cmdLoad(args)
	case "validate":
		err = cmdValidate(args)
	case "repair":
		err = cmdRepair(args)
	case "bench":
		err = cmdBench(args)
	case "verify":
		err = cmdVerify(args)
	case "version":
		fmt.Printf("artree %s (%s, %s)\n", version, commit, date)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func usage() {
	exe := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, "usage: %s <command> [args]\n", exe)
	fmt.Fprintln(os.Stderr, "commands: get, put, del, dump, stats, load, validate, repair, bench, verify, version")
}

// session is a tree loaded from the newest snapshot of a locked directory.
type session struct {
	store *artree.Store
	tree  *artree.Tree[[]byte]
}

func openSession(cfg *commonFlags) (*session, error) {
	opts := cfg.options()
	store, err := artree.OpenStore(cfg.dir, opts...)
	if err != nil {
		return nil, err
	}
	tree := artree.New[[]byte](opts...)
	if _, err := store.Load(tree); err != nil {
		_ = store.Close()
		return nil, err
	}
	return &session{store: store, tree: tree}, nil
}

func (s *session) save() error {
	_, err := s.store.Save(s.tree)
	return err
}

func (s *session) Close() error {
	_ = s.tree.Close()
	return s.store.Close()
}

func cmdGet(args []string) error {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	cfg := &commonFlags{}
	cfg.add(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("get: key required")
	}
	s, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	val, ok := s.tree.Lookup([]byte(fs.Arg(0)))
	if !ok {
		return fmt.Errorf("get: %q not found", fs.Arg(0))
	}
	_, err = os.Stdout.Write(val)
	return err
}

func cmdPut(args []string) error {
	fs := flag.NewFlagSet("put", flag.ContinueOnError)
	cfg := &commonFlags{}
	cfg.add(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("put: key and value required")
	}
	s, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	if _, _, err := s.tree.Insert([]byte(fs.Arg(0)), []byte(fs.Arg(1))); err != nil {
		return err
	}
	return s.save()
}

func cmdDel(args []string) error {
	fs := flag.NewFlagSet("del", flag.ContinueOnError)
	cfg := &commonFlags{}
	cfg.add(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("del: key required")
	}
	s, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	deleted := 0
	for _, key := range fs.Args() {
		if _, ok := s.tree.Delete([]byte(key)); ok {
			deleted++
		}
	}
	fmt.Fprintln(os.Stdout, deleted)
	if deleted == 0 {
		return nil
	}
	return s.save()
}

// cmdDump prints key<TAB>value lines from the newest snapshot. It reads the
// file directly, so it works while a server holds the directory.
func cmdDump(args []string) error {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	dir := fs.String("dir", "./data", "snapshot directory")
	file := fs.String("file", "", "snapshot file (default: newest in -dir)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path := *file
	if path == "" {
		p, err := newestSnapshot(*dir)
		if err != nil {
			return err
		}
		path = p
	}
	prefix := []byte(fs.Arg(0))
	w := bufio.NewWriter(os.Stdout)
	err := artree.ReadFile(path, func(key, value []byte) bool {
		if !bytes.HasPrefix(key, prefix) {
			// Entries are sorted, nothing after the prefix range can match.
			return bytes.Compare(key, prefix) < 0
		}
		fmt.Fprintf(w, "%s\t%s\n", key, value)
		return true
	})
	if err != nil {
		return err
	}
	return w.Flush()
}

func newestSnapshot(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.snap"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("dump: no snapshot in %s", dir)
	}
	// Names are zero padded sequence numbers, so the last one is the newest.
	return matches[len(matches)-1], nil
}

func cmdStats(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	cfg := &commonFlags{}
	cfg.add(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	return writeJSON(os.Stdout, s.tree.Stats())
}

// cmdLoad reads key<TAB>value lines from a file (or stdin for "-") and
// applies them as one batch before saving a new snapshot.
func cmdLoad(args []string) error {
	fs := flag.NewFlagSet("load", flag.ContinueOnError)
	cfg := &commonFlags{}
	cfg.add(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("load: input file required")
	}
	var in io.Reader = os.Stdin
	if name := fs.Arg(0); name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	s, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	batch := s.tree.NewBatch()
	n, err := readPairs(in, batch.Put)
	if err != nil {
		batch.Discard()
		return err
	}
	changed, err := batch.Commit()
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "read %d lines, %d keys changed\n", n, changed)
	return s.save()
}

func readPairs(r io.Reader, put func(key, value []byte) error) (int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64<<10), 16<<20)
	n := 0
	for sc.Scan() {
		n++
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		key, value, ok := bytes.Cut(line, []byte{'\t'})
		if !ok {
			return n, fmt.Errorf("load: line %d: missing tab", n)
		}
		if err := put(append([]byte(nil), key...), append([]byte(nil), value...)); err != nil {
			return n, fmt.Errorf("load: line %d: %w", n, err)
		}
	}
	return n, sc.Err()
}

type jsonReport struct {
	Keys           int      `json:"keys"`
	Nodes          int      `json:"nodes"`
	Bytes          int64    `json:"bytes"`
	Records        int      `json:"records"`
	CorruptRecords int      `json:"corrupt_records"`
	Errors         []string `json:"errors,omitempty"`
}

func toJSONReport(r artree.Report) jsonReport {
	out := jsonReport{
		Keys:           r.Keys,
		Nodes:          r.Nodes,
		Bytes:          r.Bytes,
		Records:        r.Records,
		CorruptRecords: r.CorruptRecords,
	}
	for _, err := range r.Errors {
		out.Errors = append(out.Errors, err.Error())
	}
	return out
}

var errInvalid = errors.New("validate: snapshot has errors")

func cmdValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	dir := fs.String("dir", "./data", "snapshot directory")
	file := fs.String("file", "", "snapshot file (default: newest in -dir)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path := *file
	if path == "" {
		p, err := newestSnapshot(*dir)
		if err != nil {
			return err
		}
		path = p
	}
	report, err := artree.ValidateFile(path)
	if err != nil {
		return err
	}
	if err := writeJSON(os.Stdout, toJSONReport(report)); err != nil {
		return err
	}
	if report.HasErrors() {
		return errInvalid
	}
	return nil
}

// cmdRepair loads the intact prefix of the newest snapshot and saves it as a
// new snapshot.
func cmdRepair(args []string) error {
	fs := flag.NewFlagSet("repair", flag.ContinueOnError)
	cfg := &commonFlags{}
	cfg.add(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	store, err := artree.OpenStore(cfg.dir, cfg.options()...)
	if err != nil {
		return err
	}
	defer store.Close()
	tree := artree.New[[]byte](cfg.options()...)
	defer tree.Close()
	n, err := store.Repair(tree)
	if err != nil {
		return err
	}
	path, err := store.Save(tree)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "kept %d keys in %s\n", n, path)
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(buf))
	return err
}
