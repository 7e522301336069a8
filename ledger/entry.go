package ledger

import (
	"bufio"
	"encoding/binary"
	"hash/crc32"
	goio "io"

	"github.com/klauspost/compress/snappy"
)

// Entry is a single keyed record in a topic log. Offsets are assigned
// by the owning TopicLog and are strictly increasing within a topic.
type Entry struct {
	Offset    uint64
	Key       string
	HasKey    bool
	Payload   []byte
	Timestamp int64
}

// Tombstone reports whether the entry marks its key as deleted: a
// present key with a zero-length payload. A zero-length payload is
// distinct from an absent one on the read path.
func (e *Entry) Tombstone() bool {
	return e.HasKey && len(e.Payload) == 0
}

/*
	On-disk record framing, shared by raw segments and compacted logs:

	flag(1) | offset(8) | timestamp(8) | keyLen(2) | key | payloadLen(4) | payload | crc32(4)

	All integers are big endian. The checksum covers every preceding
	byte of the record. Payloads may be snappy-compressed (flag bit);
	empty payloads are never compressed so that a tombstone stays a
	zero-length record on disk.
*/

const (
	flagHasKey     = 1 << 0
	flagCompressed = 1 << 1

	recordHeaderSize = 1 + 8 + 8 + 2

	// maxAppendPayload caps payloads accepted on the write path.
	maxAppendPayload = 1 << 28
	// maxRecordPayload bounds the decoded payload length field. It
	// leaves headroom over maxAppendPayload for snappy expansion; a
	// larger value can only come from a corrupt record and must be
	// rejected before the length is trusted for an allocation.
	maxRecordPayload = 1 << 29
)

// AppendEntry frames the entry and appends it to buf, returning the
// extended buffer.
func AppendEntry(buf []byte, e *Entry, compress bool) []byte {
	start := len(buf)

	var flag byte
	if e.HasKey {
		flag |= flagHasKey
	}
	payload := e.Payload
	if compress && len(payload) > 0 {
		flag |= flagCompressed
		payload = snappy.Encode(nil, payload)
	}

	buf = append(buf, flag)
	buf = binary.BigEndian.AppendUint64(buf, e.Offset)
	buf = binary.BigEndian.AppendUint64(buf, uint64(e.Timestamp))
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(e.Key)))
	buf = append(buf, e.Key...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(payload)))
	buf = append(buf, payload...)
	buf = binary.BigEndian.AppendUint32(buf, crc32.ChecksumIEEE(buf[start:]))
	return buf
}

// ReadRecord decodes the next framed entry from r. It returns io.EOF
// cleanly only when r is positioned exactly at the end of the stream;
// a record cut short partway surfaces as ShortReadError.
func ReadRecord(r *bufio.Reader) (*Entry, error) {
	header := make([]byte, recordHeaderSize)
	if _, err := goio.ReadFull(r, header); err != nil {
		if err == goio.EOF {
			return nil, goio.EOF
		}
		return nil, ShortReadError("ReadRecord/header")
	}

	flag := header[0]
	keyLen := int(binary.BigEndian.Uint16(header[recordHeaderSize-2:]))

	body := make([]byte, keyLen+4)
	if _, err := goio.ReadFull(r, body); err != nil {
		return nil, ShortReadError("ReadRecord/key")
	}
	payloadLen := int(binary.BigEndian.Uint32(body[keyLen:]))
	if payloadLen > maxRecordPayload {
		return nil, ChecksumError("ReadRecord/payload length")
	}

	tail := make([]byte, payloadLen+4)
	if _, err := goio.ReadFull(r, tail); err != nil {
		return nil, ShortReadError("ReadRecord/payload")
	}

	sum := crc32.NewIEEE()
	sum.Write(header)
	sum.Write(body)
	sum.Write(tail[:payloadLen])
	if sum.Sum32() != binary.BigEndian.Uint32(tail[payloadLen:]) {
		return nil, ChecksumError("ReadRecord")
	}

	e := &Entry{
		Offset:    binary.BigEndian.Uint64(header[1:]),
		Timestamp: int64(binary.BigEndian.Uint64(header[9:])),
		Key:       string(body[:keyLen]),
		HasKey:    flag&flagHasKey != 0,
	}

	payload := tail[:payloadLen:payloadLen]
	if flag&flagCompressed != 0 {
		decoded, err := snappy.Decode(nil, payload)
		if err != nil {
			return nil, ChecksumError("ReadRecord/snappy: " + err.Error())
		}
		payload = decoded
	}
	e.Payload = payload

	return e, nil
}
