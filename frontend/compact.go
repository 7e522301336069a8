package frontend

import (
	"net/http"

	"github.com/streamstore/streamstore/utils"
)

type CompactRequest struct {
	Topic string `msgpack:"topic"`
}

type CompactResponse struct {
	// Boundary is the snapshot boundary the published compacted log
	// covers after this run.
	Boundary uint64 `msgpack:"boundary"`
	// Entries is the number of entries in the published compacted log.
	Entries int64  `msgpack:"entries"`
	Version string `msgpack:"version"`
}

// Compact triggers one compaction run for the topic and blocks until
// the run has published or failed. Runs for the same topic are
// serialized by the executor, so concurrent calls queue up rather
// than overlap.
func (s *DataService) Compact(_ *http.Request, req *CompactRequest, response *CompactResponse) error {
	if req == nil {
		return argsNilError
	}

	t, err := s.catalogDir.GetTopic(req.Topic)
	if err != nil {
		return err
	}

	if err := s.exec.Compact(t).Wait(); err != nil {
		return err
	}

	if cl := t.Compactor().Pointer().Load(); cl != nil {
		response.Boundary = cl.Boundary
		response.Entries = cl.Entries
	}
	response.Version = utils.GitHash
	return nil
}
