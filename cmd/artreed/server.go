package main

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"

	"github.com/AfshinJalili/artree"
	"github.com/tidwall/redcon"
)

type server struct {
	tree  *artree.Tree[[]byte]
	store *artree.Store
	log   *slog.Logger
}

// newServer builds the tree and, with a snapshot directory configured, loads
// the newest snapshot into it. A damaged snapshot is repaired rather than
// refusing to start.
func newServer(cfg *serverConfig, logger *slog.Logger) (*server, error) {
	opts := append(cfg.options(), artree.WithLogger(slogLogger{log: logger}))
	s := &server{tree: artree.New[[]byte](opts...), log: logger}
	if cfg.dir == "" {
		return s, nil
	}
	store, err := artree.OpenStore(cfg.dir, opts...)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.dir, err)
	}
	s.store = store
	n, err := store.Load(s.tree)
	if errors.Is(err, artree.ErrCorrupt) {
		logger.Warn("snapshot damaged, repairing", "dir", cfg.dir, "err", err)
		n, err = store.Repair(s.tree)
	}
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("load: %w", err)
	}
	logger.Info("loaded snapshot", "keys", n, "dir", cfg.dir)
	return s, nil
}

// save writes a snapshot when a directory is configured. It returns "" when
// the server runs in memory only.
func (s *server) save() (string, error) {
	if s.store == nil {
		return "", nil
	}
	p, err := s.store.Save(s.tree)
	if err != nil {
		s.log.Error("save failed", "err", err)
		return "", err
	}
	s.log.Info("saved snapshot", "path", p, "keys", s.tree.Len())
	return p, nil
}

func (s *server) close() {
	_ = s.tree.Close()
	if s.store != nil {
		_ = s.store.Close()
	}
}

func (s *server) accept(conn redcon.Conn) bool {
	s.log.Debug("accepted", "remote", conn.RemoteAddr())
	return true
}

func (s *server) closed(conn redcon.Conn, err error) {
	if err != nil {
		s.log.Debug("connection closed", "remote", conn.RemoteAddr(), "err", err)
	}
}

func (s *server) handle(conn redcon.Conn, cmd redcon.Command) {
	if len(cmd.Args) == 0 {
		conn.WriteError("ERR empty command")
		return
	}
	name := strings.ToUpper(string(cmd.Args[0]))
	switch name {
	case "PING":
		if len(cmd.Args) > 1 {
			conn.WriteBulk(cmd.Args[1])
			return
		}
		conn.WriteString("PONG")
	case "GET":
		if len(cmd.Args) != 2 {
			wrongArgs(conn, name)
			return
		}
		val, ok := s.tree.Lookup(cmd.Args[1])
		if !ok {
			conn.WriteNull()
			return
		}
		conn.WriteBulk(val)
	case "SET":
		if len(cmd.Args) < 3 || len(cmd.Args) > 4 {
			wrongArgs(conn, name)
			return
		}
		// redcon reuses the argument buffers between commands.
		val := append([]byte(nil), cmd.Args[2]...)
		if len(cmd.Args) == 4 {
			if strings.ToUpper(string(cmd.Args[3])) != "NX" {
				conn.WriteError("ERR syntax error")
				return
			}
			_, found, err := s.tree.InsertNoReplace(cmd.Args[1], val)
			if err != nil {
				conn.WriteError("ERR " + err.Error())
				return
			}
			if found {
				conn.WriteNull()
				return
			}
			conn.WriteString("OK")
			return
		}
		if _, _, err := s.tree.Insert(cmd.Args[1], val); err != nil {
			conn.WriteError("ERR " + err.Error())
			return
		}
		conn.WriteString("OK")
	case "DEL":
		if len(cmd.Args) < 2 {
			wrongArgs(conn, name)
			return
		}
		deleted := 0
		for _, key := range cmd.Args[1:] {
			if _, ok := s.tree.Delete(key); ok {
				deleted++
			}
		}
		conn.WriteInt(deleted)
	case "EXISTS":
		if len(cmd.Args) < 2 {
			wrongArgs(conn, name)
			return
		}
		count := 0
		for _, key := range cmd.Args[1:] {
			if s.tree.Has(key) {
				count++
			}
		}
		conn.WriteInt(count)
	case "KEYS":
		pattern := "*"
		if len(cmd.Args) > 1 {
			pattern = string(cmd.Args[1])
		}
		keys, err := s.collectKeys(pattern)
		if err != nil {
			conn.WriteError("ERR " + err.Error())
			return
		}
		conn.WriteArray(len(keys))
		for _, k := range keys {
			conn.WriteBulk(k)
		}
	case "SCAN":
		s.scan(conn, cmd)
	case "PREFIX":
		if len(cmd.Args) != 2 {
			wrongArgs(conn, name)
			return
		}
		var pairs [][]byte
		err := s.tree.Scan(cmd.Args[1], func(key, value []byte) bool {
			pairs = append(pairs, append([]byte(nil), key...), value)
			return true
		})
		if err != nil {
			conn.WriteError("ERR " + err.Error())
			return
		}
		conn.WriteArray(len(pairs))
		for _, b := range pairs {
			conn.WriteBulk(b)
		}
	case "FIRSTKEY", "LASTKEY":
		var (
			key []byte
			ok  bool
		)
		if name == "FIRSTKEY" {
			key, _, ok = s.tree.Min()
		} else {
			key, _, ok = s.tree.Max()
		}
		if !ok {
			conn.WriteNull()
			return
		}
		conn.WriteBulk(key)
	case "DBSIZE":
		conn.WriteInt(s.tree.Len())
	case "INFO":
		st := s.tree.Stats()
		info := fmt.Sprintf("keys:%d\nbytes:%d\nleaves:%d\nnode4:%d\nnode16:%d\nnode48:%d\nnode256:%d\nversion:%s\n",
			st.Keys, st.Bytes, st.Leaves, st.Node4, st.Node16, st.Node48, st.Node256, version)
		conn.WriteBulkString(info)
	case "SAVE":
		if s.store == nil {
			conn.WriteError("ERR no snapshot directory configured")
			return
		}
		if _, err := s.save(); err != nil {
			conn.WriteError("ERR " + err.Error())
			return
		}
		conn.WriteString("OK")
	default:
		conn.WriteError("ERR unknown command '" + string(cmd.Args[0]) + "'")
	}
}

func wrongArgs(conn redcon.Conn, name string) {
	conn.WriteError("ERR wrong number of arguments for " + name)
}

func (s *server) scan(conn redcon.Conn, cmd redcon.Command) {
	if len(cmd.Args) < 2 {
		wrongArgs(conn, "SCAN")
		return
	}
	cursor, err := strconv.Atoi(string(cmd.Args[1]))
	if err != nil {
		conn.WriteError("ERR invalid cursor")
		return
	}
	pattern := "*"
	count := 10
	if (len(cmd.Args)-2)%2 != 0 {
		conn.WriteError("ERR syntax error")
		return
	}
	for i := 2; i < len(cmd.Args); i += 2 {
		switch strings.ToUpper(string(cmd.Args[i])) {
		case "MATCH":
			pattern = string(cmd.Args[i+1])
		case "COUNT":
			parsed, err := strconv.Atoi(string(cmd.Args[i+1]))
			if err != nil || parsed <= 0 {
				conn.WriteError("ERR invalid COUNT")
				return
			}
			count = parsed
		default:
			conn.WriteError("ERR unsupported option")
			return
		}
	}
	keys, err := s.collectKeys(pattern)
	if err != nil {
		conn.WriteError("ERR " + err.Error())
		return
	}
	if cursor < 0 || cursor >= len(keys) {
		cursor = 0
	}
	end := cursor + count
	next := 0
	if end < len(keys) {
		next = end
	} else {
		end = len(keys)
	}
	batch := keys[cursor:end]
	conn.WriteArray(2)
	conn.WriteBulkString(strconv.Itoa(next))
	conn.WriteArray(len(batch))
	for _, k := range batch {
		conn.WriteBulk(k)
	}
}

// collectKeys returns the keys matching a glob pattern in order. Only the
// subtree under the pattern's literal prefix is visited.
func (s *server) collectKeys(pattern string) ([][]byte, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, err
	}
	it := s.tree.NewIterator([]byte(literalPrefix(pattern)))
	defer it.Close()
	keys := make([][]byte, 0)
	for it.Next() {
		key := it.Key()
		if pattern != "*" {
			if ok, _ := path.Match(pattern, string(key)); !ok {
				continue
			}
		}
		keys = append(keys, key)
	}
	return keys, it.Err()
}

func literalPrefix(pattern string) string {
	if i := strings.IndexAny(pattern, `*?[\`); i >= 0 {
		return pattern[:i]
	}
	return pattern
}
