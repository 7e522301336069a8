package frontend

import (
	"net/http"

	"github.com/streamstore/streamstore/catalog"
	"github.com/streamstore/streamstore/frontend/stream"
	"github.com/streamstore/streamstore/metrics"
	"github.com/streamstore/streamstore/utils"
)

type WriteRequest struct {
	Topic string `msgpack:"topic"`
	// Key is optional; a nil key makes the entry invisible to
	// compaction. A present key with an empty payload is a tombstone.
	Key     *string `msgpack:"key"`
	Payload []byte  `msgpack:"payload"`
}

type MultiWriteRequest struct {
	Requests []WriteRequest `msgpack:"requests"`
}

type WriteResponse struct {
	Topic   string `msgpack:"topic"`
	Offset  uint64 `msgpack:"offset"`
	Error   string `msgpack:"error"`
	Version string `msgpack:"version"` // Server Version
}

type MultiWriteResponse struct {
	Responses []WriteResponse `msgpack:"responses"`
}

func (s *DataService) Write(_ *http.Request, reqs *MultiWriteRequest, response *MultiWriteResponse) error {
	if reqs == nil {
		return argsNilError
	}

	synced := map[string]*catalog.Topic{}
	for _, req := range reqs.Requests {
		t, err := s.topicForWrite(req.Topic)
		if err != nil {
			appendErrorResponse(req.Topic, err, response)
			continue
		}

		var key string
		if req.Key != nil {
			key = *req.Key
		}
		offset, err := t.Append(key, req.Key != nil, req.Payload)
		if err != nil {
			appendErrorResponse(req.Topic, err, response)
			continue
		}
		metrics.WrittenEntriesTotal.Inc()
		synced[req.Topic] = t

		stream.Push(stream.Payload{
			Topic:     req.Topic,
			Offset:    offset,
			Key:       req.Key,
			Data:      req.Payload,
			Tombstone: req.Key != nil && len(req.Payload) == 0,
		})

		response.Responses = append(response.Responses, WriteResponse{
			Topic:   req.Topic,
			Offset:  offset,
			Version: utils.GitHash,
		})
	}

	for _, t := range synced {
		if err := t.Log.Sync(); err != nil {
			appendErrorResponse(t.Name, err, response)
		}
	}
	return nil
}

func (s *DataService) topicForWrite(name string) (*catalog.Topic, error) {
	if s.enableAdd {
		return s.catalogDir.GetOrCreateTopic(name)
	}
	return s.catalogDir.GetTopic(name)
}

func appendErrorResponse(topic string, err error, response *MultiWriteResponse) {
	response.Responses = append(response.Responses,
		WriteResponse{
			Topic:   topic,
			Error:   err.Error(),
			Version: utils.GitHash,
		},
	)
}
