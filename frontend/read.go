package frontend

import (
	"net/http"
	"sync/atomic"
)

type ReadRequest struct {
	Topic string `msgpack:"topic"`
	// Start is the first offset of interest.
	Start uint64 `msgpack:"start"`
	// Limit caps the number of returned entries. Defaults to 100.
	Limit int `msgpack:"limit"`
	// ReadCompacted serves the deduplicated view below the snapshot
	// boundary instead of the raw history. Default false.
	ReadCompacted bool `msgpack:"read_compacted"`
}

type EntryResult struct {
	Offset uint64  `msgpack:"offset"`
	Key    *string `msgpack:"key"`
	// Payload is nil only when the entry carries no value at all;
	// a tombstone has a present, zero-length payload.
	Payload   []byte `msgpack:"payload"`
	Tombstone bool   `msgpack:"tombstone"`
	Timestamp int64  `msgpack:"timestamp"`
}

type ReadResponse struct {
	Entries []EntryResult `msgpack:"entries"`
	// NextOffset is where a follow-up read should resume.
	NextOffset uint64 `msgpack:"next_offset"`
	Version    string `msgpack:"version"`
}

const defaultReadLimit = 100

func (s *DataService) Read(_ *http.Request, req *ReadRequest, response *ReadResponse) error {
	if atomic.LoadUint32(&Queryable) != 1 {
		return queryableError
	}
	if req == nil {
		return argsNilError
	}

	t, err := s.catalogDir.GetTopic(req.Topic)
	if err != nil {
		return err
	}

	limit := req.Limit
	if limit < 1 {
		limit = defaultReadLimit
	}

	entries, next, err := t.Read(req.Start, limit, req.ReadCompacted)
	if err != nil {
		return err
	}

	response.Entries = make([]EntryResult, 0, len(entries))
	for _, e := range entries {
		res := EntryResult{
			Offset:    e.Offset,
			Payload:   e.Payload,
			Tombstone: e.Tombstone(),
			Timestamp: e.Timestamp,
		}
		if e.HasKey {
			key := e.Key
			res.Key = &key
		}
		if res.Payload == nil {
			// Keep the empty-vs-absent payload distinction stable
			// across the wire.
			res.Payload = []byte{}
		}
		response.Entries = append(response.Entries, res)
	}
	response.NextOffset = next
	return nil
}
