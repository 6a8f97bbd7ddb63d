package main

import (
	"bufio"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AfshinJalili/artree"
	"github.com/tidwall/redcon"
)

type client struct {
	t    *testing.T
	conn net.Conn
	rd   *bufio.Reader
}

func (c *client) do(args ...string) {
	c.t.Helper()
	if err := writeRESP(c.conn, args...); err != nil {
		c.t.Fatalf("write %v: %v", args, err)
	}
}

func (c *client) line(args ...string) string {
	c.t.Helper()
	c.do(args...)
	return readLine(c.t, c.rd)
}

func (c *client) bulk(args ...string) (string, bool) {
	c.t.Helper()
	c.do(args...)
	return readBulk(c.t, c.rd)
}

func (c *client) array(args ...string) []string {
	c.t.Helper()
	c.do(args...)
	return readBulkArray(c.t, c.rd)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(dir string) *serverConfig {
	return &serverConfig{
		addr:      "127.0.0.1:0",
		dir:       dir,
		maxKey:    32,
		iterBatch: 2,
		keep:      2,
		compress:  256,
		logLevel:  "error",
	}
}

// startServer serves srv on a loopback port until the test ends.
func startServer(t *testing.T, srv *server) *client {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() { _ = redcon.Serve(ln, srv.handle, srv.accept, srv.closed) }()
	t.Cleanup(func() { _ = ln.Close() })
	conn := waitForConn(t, ln.Addr().String())
	t.Cleanup(func() { _ = conn.Close() })
	return &client{t: t, conn: conn, rd: bufio.NewReader(conn)}
}

func newTestServer(t *testing.T, dir string) (*server, *client) {
	t.Helper()
	srv, err := newServer(testConfig(dir), discardLogger())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(srv.close)
	return srv, startServer(t, srv)
}

func TestBasicCommands(t *testing.T) {
	_, c := newTestServer(t, "")

	if line := c.line("PING"); line != "+PONG" {
		t.Fatalf("unexpected ping response: %s", line)
	}
	if v, _ := c.bulk("PING", "hello"); v != "hello" {
		t.Fatalf("unexpected ping echo: %s", v)
	}
	if line := c.line("SET", "k", "v"); line != "+OK" {
		t.Fatalf("unexpected set response: %s", line)
	}
	if v, ok := c.bulk("GET", "k"); !ok || v != "v" {
		t.Fatalf("unexpected get value: %q %v", v, ok)
	}
	if _, ok := c.bulk("GET", "missing"); ok {
		t.Fatalf("expected null for missing key")
	}
	if line := c.line("SET", "k", "w", "NX"); line != "$-1" {
		t.Fatalf("expected null for NX on existing key, got %s", line)
	}
	if v, _ := c.bulk("GET", "k"); v != "v" {
		t.Fatalf("NX overwrote value: %s", v)
	}
	if line := c.line("SET", "n", "1", "nx"); line != "+OK" {
		t.Fatalf("unexpected NX set response: %s", line)
	}
	if line := c.line("EXISTS", "k", "n", "zz"); line != ":2" {
		t.Fatalf("unexpected exists response: %s", line)
	}
	if line := c.line("DEL", "k", "zz"); line != ":1" {
		t.Fatalf("unexpected del response: %s", line)
	}
	if line := c.line("DBSIZE"); line != ":1" {
		t.Fatalf("unexpected dbsize: %s", line)
	}
}

func TestErrorReplies(t *testing.T) {
	_, c := newTestServer(t, "")
	cases := [][]string{
		{"GET"},
		{"SET", "k"},
		{"SET", "k", "v", "XX"},
		{"SET", strings.Repeat("k", 33), "v"},
		{"SCAN", "x"},
		{"SCAN", "0", "COUNT", "0"},
		{"SCAN", "0", "MATCH"},
		{"KEYS", "["},
		{"SAVE"},
		{"NOPE"},
	}
	for _, args := range cases {
		if line := c.line(args...); !strings.HasPrefix(line, "-ERR") {
			t.Fatalf("%v: expected error reply, got %s", args, line)
		}
	}
}

func TestKeysAndScan(t *testing.T) {
	_, c := newTestServer(t, "")
	for _, k := range []string{"user:3", "user:1", "user:2", "item:1", "user"} {
		if line := c.line("SET", k, "x"); line != "+OK" {
			t.Fatalf("set %s: %s", k, line)
		}
	}
	got := c.array("KEYS", "user:*")
	if strings.Join(got, ",") != "user:1,user:2,user:3" {
		t.Fatalf("unexpected keys: %v", got)
	}
	if got := c.array("KEYS", "*:1"); strings.Join(got, ",") != "item:1,user:1" {
		t.Fatalf("unexpected suffix match: %v", got)
	}
	if got := c.array("KEYS"); len(got) != 5 {
		t.Fatalf("expected all 5 keys, got %v", got)
	}

	var seen []string
	cursor := "0"
	for {
		c.do("SCAN", cursor, "MATCH", "user*", "COUNT", "2")
		if n := readArrayLen(t, c.rd); n != 2 {
			t.Fatalf("expected 2 element scan reply, got %d", n)
		}
		cursor, _ = readBulk(t, c.rd)
		seen = append(seen, readBulkArray(t, c.rd)...)
		if cursor == "0" {
			break
		}
	}
	if strings.Join(seen, ",") != "user,user:1,user:2,user:3" {
		t.Fatalf("unexpected scan result: %v", seen)
	}
}

func TestPrefixAndBounds(t *testing.T) {
	_, c := newTestServer(t, "")
	if line := c.line("FIRSTKEY"); line != "$-1" {
		t.Fatalf("expected null on empty tree, got %s", line)
	}
	for _, kv := range [][2]string{{"b", "2"}, {"ab", "1"}, {"abc", "3"}, {"c", "4"}} {
		c.line("SET", kv[0], kv[1])
	}
	if got := c.array("PREFIX", "ab"); strings.Join(got, ",") != "ab,1,abc,3" {
		t.Fatalf("unexpected prefix pairs: %v", got)
	}
	if v, _ := c.bulk("FIRSTKEY"); v != "ab" {
		t.Fatalf("unexpected first key: %s", v)
	}
	if v, _ := c.bulk("LASTKEY"); v != "c" {
		t.Fatalf("unexpected last key: %s", v)
	}
	info, _ := c.bulk("INFO")
	if !strings.Contains(info, "keys:4\n") {
		t.Fatalf("unexpected info: %s", info)
	}
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	srv, c := newTestServer(t, dir)
	c.line("SET", "alpha", "1")
	c.line("SET", "beta", "2")
	if line := c.line("SAVE"); line != "+OK" {
		t.Fatalf("unexpected save response: %s", line)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "*.snap"))
	if len(matches) != 1 {
		t.Fatalf("expected one snapshot, got %v", matches)
	}
	srv.close()

	reopened, err := newServer(testConfig(dir), discardLogger())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.close()
	if v, ok := reopened.tree.Lookup([]byte("beta")); !ok || string(v) != "2" {
		t.Fatalf("expected beta=2 after reload, got %q %v", v, ok)
	}
	if reopened.tree.Len() != 2 {
		t.Fatalf("expected 2 keys, got %d", reopened.tree.Len())
	}
}

func TestReloadRepairsDamagedSnapshot(t *testing.T) {
	dir := t.TempDir()
	srv, err := newServer(testConfig(dir), discardLogger())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	for _, k := range []string{"a", "b", "c"} {
		if _, _, err := srv.tree.Insert([]byte(k), []byte(k)); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	p, err := srv.save()
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	srv.close()

	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := os.WriteFile(p, data[:len(data)-3], 0o644); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	reopened, err := newServer(testConfig(dir), discardLogger())
	if err != nil {
		t.Fatalf("expected repair on start, got %v", err)
	}
	defer reopened.close()
	if reopened.tree.Len() != 3 {
		t.Fatalf("expected 3 keys after repair, got %d", reopened.tree.Len())
	}
}

func TestDirectoryIsExclusive(t *testing.T) {
	dir := t.TempDir()
	srv, err := newServer(testConfig(dir), discardLogger())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	defer srv.close()
	cfg := testConfig(dir)
	if _, err := newServer(cfg, discardLogger()); err == nil {
		t.Fatalf("expected second server on %s to fail", dir)
	} else if !strings.Contains(err.Error(), artree.ErrLocked.Error()) {
		t.Fatalf("expected locked error, got %v", err)
	}
}

func TestLiteralPrefix(t *testing.T) {
	cases := map[string]string{
		"*":        "",
		"user:*":   "user:",
		"a?c":      "a",
		"x[ab]":    "x",
		`esc\*`:    "esc",
		"verbatim": "verbatim",
	}
	for pattern, want := range cases {
		if got := literalPrefix(pattern); got != want {
			t.Fatalf("literalPrefix(%q) = %q, want %q", pattern, got, want)
		}
	}
}
