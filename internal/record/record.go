// Package record implements the checksummed record framing of snapshot files.
package record

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
)

const (
	FlagCompressed uint8 = 1 << 0
	// FlagTrailer marks the closing record of a file. Its value is the
	// uvarint count of the records before it.
	FlagTrailer uint8 = 1 << 1
)

// Layout: crc32c(4) | key length(4) | value length(4) | flags(1) | codec(1) |
// reserved(2), then key and value. The checksum covers everything after it.
const HeaderSize = 16

// MaxPayload bounds key plus value length so a damaged header cannot trigger
// a huge allocation.
const MaxPayload = 1 << 30

var ErrCorrupt = errors.New("record: corrupt")

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

type Record struct {
	Key   []byte
	Value []byte
	Flags uint8
	Codec uint8
}

func Size(keyLen, valueLen int) int {
	return HeaderSize + keyLen + valueLen
}

// Append encodes rec onto dst.
func Append(dst []byte, rec Record) []byte {
	start := len(dst)
	total := Size(len(rec.Key), len(rec.Value))
	if cap(dst)-start < total {
		grown := make([]byte, start, start+total)
		copy(grown, dst)
		dst = grown
	}
	dst = dst[:start+total]
	buf := dst[start:]
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(rec.Key)))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(rec.Value)))
	buf[12] = rec.Flags
	buf[13] = rec.Codec
	buf[14], buf[15] = 0, 0
	copy(buf[HeaderSize:], rec.Key)
	copy(buf[HeaderSize+len(rec.Key):], rec.Value)
	binary.LittleEndian.PutUint32(buf[0:4], crc32.Checksum(buf[4:], castagnoli))
	return dst
}

func Encode(rec Record) []byte {
	return Append(nil, rec)
}

// DecodeFrom reads one record. A clean end of input yields io.EOF, a record
// cut short yields io.ErrUnexpectedEOF.
func DecodeFrom(r io.Reader) (Record, int, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return Record{}, 0, err
	}
	keyLen := int(binary.LittleEndian.Uint32(header[4:8]))
	valLen := int(binary.LittleEndian.Uint32(header[8:12]))
	if keyLen > MaxPayload || valLen > MaxPayload-keyLen {
		return Record{}, 0, ErrCorrupt
	}
	payload := make([]byte, keyLen+valLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Record{}, 0, err
	}
	crc := crc32.Update(crc32.Checksum(header[4:], castagnoli), castagnoli, payload)
	if crc != binary.LittleEndian.Uint32(header[0:4]) {
		return Record{}, 0, ErrCorrupt
	}
	rec := Record{
		Key:   payload[:keyLen:keyLen],
		Value: payload[keyLen:],
		Flags: header[12],
		Codec: header[13],
	}
	return rec, HeaderSize + keyLen + valLen, nil
}

// Trailer builds the closing record for a file holding count records.
func Trailer(count uint64) Record {
	return Record{
		Value: binary.AppendUvarint(nil, count),
		Flags: FlagTrailer,
	}
}

// TrailerCount decodes the record count carried by a trailer.
func TrailerCount(rec Record) (uint64, error) {
	if rec.Flags&FlagTrailer == 0 || len(rec.Key) != 0 {
		return 0, ErrCorrupt
	}
	n, size := binary.Uvarint(rec.Value)
	if size <= 0 || size != len(rec.Value) {
		return 0, ErrCorrupt
	}
	return n, nil
}
