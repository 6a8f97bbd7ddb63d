package record

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	rec := Record{
		Key:   []byte("hello"),
		Value: []byte("world"),
		Flags: FlagCompressed,
		Codec: 1,
	}
	buf := Encode(rec)
	if len(buf) != Size(5, 5) {
		t.Fatalf("unexpected size %d", len(buf))
	}
	got, n, err := DecodeFrom(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if n != len(buf) {
		t.Fatalf("expected %d bytes consumed, got %d", len(buf), n)
	}
	if string(got.Key) != "hello" || string(got.Value) != "world" {
		t.Fatalf("payload mismatch")
	}
	if got.Flags != FlagCompressed || got.Codec != 1 {
		t.Fatalf("header mismatch")
	}
}

func TestAppendSequence(t *testing.T) {
	var buf []byte
	buf = Append(buf, Record{Key: []byte("a"), Value: []byte("1")})
	buf = Append(buf, Record{Key: []byte(""), Value: nil})
	buf = Append(buf, Trailer(2))

	r := bytes.NewReader(buf)
	for _, want := range []string{"a", ""} {
		rec, _, err := DecodeFrom(r)
		if err != nil {
			t.Fatalf("decode %q: %v", want, err)
		}
		if string(rec.Key) != want {
			t.Fatalf("expected key %q, got %q", want, rec.Key)
		}
	}
	rec, _, err := DecodeFrom(r)
	if err != nil {
		t.Fatalf("decode trailer: %v", err)
	}
	n, err := TrailerCount(rec)
	if err != nil || n != 2 {
		t.Fatalf("expected trailer count 2, got %d %v", n, err)
	}
	if _, _, err := DecodeFrom(r); err != io.EOF {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestDecodeDetectsCorruption(t *testing.T) {
	buf := Encode(Record{Key: []byte("k"), Value: []byte("v")})
	buf[len(buf)-1] ^= 0xFF
	_, _, err := DecodeFrom(bytes.NewReader(buf))
	if err != ErrCorrupt {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestDecodeTruncated(t *testing.T) {
	buf := Encode(Record{Key: []byte("key"), Value: []byte("value")})
	_, _, err := DecodeFrom(bytes.NewReader(buf[:len(buf)-2]))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected unexpected EOF, got %v", err)
	}
	_, _, err = DecodeFrom(bytes.NewReader(buf[:HeaderSize-1]))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected unexpected EOF for short header, got %v", err)
	}
}

func TestDecodeRejectsHugeLength(t *testing.T) {
	buf := Encode(Record{Key: []byte("k")})
	buf[7] = 0xFF
	if _, _, err := DecodeFrom(bytes.NewReader(buf)); err != ErrCorrupt {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestTrailerCountRejectsData(t *testing.T) {
	if _, err := TrailerCount(Record{Key: []byte("k"), Value: []byte{1}}); err != ErrCorrupt {
		t.Fatalf("expected ErrCorrupt for data record")
	}
	if _, err := TrailerCount(Record{Flags: FlagTrailer, Value: []byte{0x80}}); err != ErrCorrupt {
		t.Fatalf("expected ErrCorrupt for bad varint")
	}
}
