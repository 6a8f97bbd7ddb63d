package codec

import (
	"bytes"
	"testing"
)

func TestCodecRoundTrip(t *testing.T) {
	input := []byte("the quick brown fox jumps over the lazy dog")
	enc, err := Encode(Snappy, input)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	dec, err := Decode(Snappy, enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(dec) != string(input) {
		t.Fatalf("round trip mismatch")
	}
}

func TestCodecNone(t *testing.T) {
	input := []byte("plain")
	enc, err := Encode(None, input)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	dec, err := Decode(None, enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(dec) != string(input) {
		t.Fatalf("round trip mismatch")
	}
}

func TestPackThreshold(t *testing.T) {
	short := []byte("abc")
	if out, c := Pack(16, short); c != None || !bytes.Equal(out, short) {
		t.Fatalf("expected short value stored raw")
	}
	long := bytes.Repeat([]byte("a"), 4096)
	out, c := Pack(16, long)
	if c != Snappy || len(out) >= len(long) {
		t.Fatalf("expected compressed value, got codec %d len %d", c, len(out))
	}
	dec, err := Decode(c, out)
	if err != nil || !bytes.Equal(dec, long) {
		t.Fatalf("pack round trip failed: %v", err)
	}
	enc, err := Encode(Snappy, long)
	if err != nil || !bytes.Equal(enc, out) {
		t.Fatalf("pack and encode disagree: %v", err)
	}
}

func TestPackIncompressible(t *testing.T) {
	src := make([]byte, 64)
	for i := range src {
		src[i] = byte(i*151 + 7)
	}
	if _, c := Pack(1, src); c != None {
		t.Fatalf("expected incompressible input stored raw")
	}
}
