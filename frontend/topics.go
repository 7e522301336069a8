package frontend

import (
	"net/http"

	"github.com/streamstore/streamstore/utils"
)

type ListTopicsRequest struct {
	// Pattern is a glob over topic names; empty matches everything.
	Pattern string `msgpack:"pattern"`
}

type ListTopicsResponse struct {
	Topics  []string `msgpack:"topics"`
	Version string   `msgpack:"version"`
}

func (s *DataService) ListTopics(_ *http.Request, req *ListTopicsRequest, response *ListTopicsResponse) error {
	if req == nil {
		return argsNilError
	}
	topics, err := s.catalogDir.ListTopics(req.Pattern)
	if err != nil {
		return err
	}
	response.Topics = topics
	response.Version = utils.GitHash
	return nil
}

type StatsRequest struct {
	Topic string `msgpack:"topic"`
}

type StatsResponse struct {
	Topic             string `msgpack:"topic"`
	EndOffset         uint64 `msgpack:"end_offset"`
	Segments          int    `msgpack:"segments"`
	RawEntries        int64  `msgpack:"raw_entries"`
	RawBytes          int64  `msgpack:"raw_bytes"`
	CompactedID       int64  `msgpack:"compacted_id"`
	CompactedBoundary uint64 `msgpack:"compacted_boundary"`
	CompactedEntries  int64  `msgpack:"compacted_entries"`
	Version           string `msgpack:"version"`
}

// GetInternalStats reports the internal shape of a topic: segment and
// entry counts plus the published compacted log, if any. Read-only.
func (s *DataService) GetInternalStats(_ *http.Request, req *StatsRequest, response *StatsResponse) error {
	if req == nil {
		return argsNilError
	}
	t, err := s.catalogDir.GetTopic(req.Topic)
	if err != nil {
		return err
	}
	st, err := t.Stats()
	if err != nil {
		return err
	}

	response.Topic = st.Name
	response.EndOffset = st.EndOffset
	response.Segments = st.Segments
	response.RawEntries = st.RawEntries
	response.RawBytes = st.RawBytes
	response.CompactedID = st.CompactedID
	response.CompactedBoundary = st.CompactedBoundary
	response.CompactedEntries = st.CompactedEntries
	response.Version = utils.GitHash
	return nil
}
