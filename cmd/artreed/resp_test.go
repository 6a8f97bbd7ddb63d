package main

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"
)

func freeAddr(t *testing.T) string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return addr
}

func waitForConn(t *testing.T, addr string) net.Conn {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 200*time.Millisecond)
		if err == nil {
			return conn
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start: %s", addr)
	return nil
}

func writeRESP(conn net.Conn, args ...string) error {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("*%d\r\n", len(args)))
	for _, arg := range args {
		b.WriteString(fmt.Sprintf("$%d\r\n%s\r\n", len(arg), arg))
	}
	_, err := conn.Write([]byte(b.String()))
	return err
}

func readLine(t *testing.T, rd *bufio.Reader) string {
	line, err := rd.ReadString('\n')
	if err != nil {
		t.Fatalf("read line: %v", err)
	}
	return strings.TrimRight(line, "\r\n")
}

// readBulk returns the bulk string and false for a null reply.
func readBulk(t *testing.T, rd *bufio.Reader) (string, bool) {
	line := readLine(t, rd)
	if !strings.HasPrefix(line, "$") {
		t.Fatalf("unexpected bulk header: %s", line)
	}
	n, err := strconv.Atoi(strings.TrimPrefix(line, "$"))
	if err != nil {
		t.Fatalf("parse bulk len: %v", err)
	}
	if n < 0 {
		return "", false
	}
	buf := make([]byte, n+2)
	if _, err := io.ReadFull(rd, buf); err != nil {
		t.Fatalf("read bulk: %v", err)
	}
	return string(buf[:n]), true
}

func readArrayLen(t *testing.T, rd *bufio.Reader) int {
	line := readLine(t, rd)
	if !strings.HasPrefix(line, "*") {
		t.Fatalf("unexpected array header: %s", line)
	}
	n, err := strconv.Atoi(strings.TrimPrefix(line, "*"))
	if err != nil {
		t.Fatalf("parse array len: %v", err)
	}
	return n
}

func readBulkArray(t *testing.T, rd *bufio.Reader) []string {
	n := readArrayLen(t, rd)
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		s, _ := readBulk(t, rd)
		out = append(out, s)
	}
	return out
}
