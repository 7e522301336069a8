package catalog

import (
	"errors"

	"github.com/streamstore/streamstore/compactor"
	"github.com/streamstore/streamstore/ledger"
)

// Topic bundles one topic's raw log with its compaction state.
type Topic struct {
	Name string
	Log  *ledger.TopicLog

	comp *compactor.Compactor
}

func openTopic(name, dir string, opts ledger.Options) (*Topic, error) {
	tl, err := ledger.OpenTopicLog(dir, opts)
	if err != nil {
		return nil, err
	}
	ptr, err := compactor.OpenPointer(dir)
	if err != nil {
		return nil, err
	}
	return &Topic{
		Name: name,
		Log:  tl,
		comp: compactor.New(name, tl, ptr, opts.Compress),
	}, nil
}

// Compactor returns the topic's compactor. Serialization of runs is
// the scheduler's job, not the topic's.
func (t *Topic) Compactor() *compactor.Compactor {
	return t.comp
}

// Append writes one entry to the raw log.
func (t *Topic) Append(key string, hasKey bool, payload []byte) (uint64, error) {
	return t.Log.Append(key, hasKey, payload)
}

/*
	Read returns up to limit entries starting at offset start.

	With readCompacted set, offsets below the published snapshot
	boundary are served from the compacted log (one entry per key,
	tombstoned keys absent, original offsets preserved) and the raw
	tail from the boundary onward is appended. Without it, the raw
	log is returned in full, every rewrite and tombstone included.

	The returned next offset is where a subsequent Read should resume.
*/
func (t *Topic) Read(start uint64, limit int, readCompacted bool) ([]*ledger.Entry, uint64, error) {
	if limit < 1 {
		limit = 1
	}

	var entries []*ledger.Entry
	next := start

	if readCompacted {
		for {
			cl := t.comp.Pointer().Load()
			if cl == nil {
				break
			}
			var err error
			entries, next, err = t.readCompactedHead(cl, start, limit)
			if err != nil {
				// The loaded log was superseded and reclaimed before we
				// opened it; the reloaded pointer has the successor.
				if errors.As(err, new(compactor.LogRetiredError)) {
					continue
				}
				return nil, start, err
			}
			if len(entries) >= limit {
				return entries, next, nil
			}
			if next < cl.Boundary {
				next = cl.Boundary
			}
			break
		}
	}

	end := t.Log.EndOffset()
	if next >= end {
		return entries, next, nil
	}

	r, err := t.Log.NewReader(next, end)
	if err != nil {
		return nil, start, err
	}
	defer r.Close()

	for len(entries) < limit {
		e, err := r.Next()
		if err != nil {
			return nil, start, err
		}
		if e == nil {
			break
		}
		entries = append(entries, e)
		next = e.Offset + 1
	}
	return entries, next, nil
}

// readCompactedHead serves the sub-boundary part of a compacted read.
func (t *Topic) readCompactedHead(cl *compactor.CompactedLog, start uint64, limit int,
) ([]*ledger.Entry, uint64, error) {
	cr, err := cl.NewReader()
	if err != nil {
		return nil, start, err
	}
	defer cr.Close()

	var entries []*ledger.Entry
	next := start
	for len(entries) < limit {
		e, err := cr.Next()
		if err != nil {
			return nil, start, err
		}
		if e == nil {
			break
		}
		if e.Offset < start {
			continue
		}
		entries = append(entries, e)
		next = e.Offset + 1
	}
	return entries, next, nil
}

// Stats reports the topic's internal shape for the admin surface.
type TopicStats struct {
	Name              string
	EndOffset         uint64
	Segments          int
	RawEntries        int64
	RawBytes          int64
	CompactedID       int64
	CompactedBoundary uint64
	CompactedEntries  int64
}

func (t *Topic) Stats() (TopicStats, error) {
	st, err := t.Log.Stats()
	if err != nil {
		return TopicStats{}, err
	}
	ts := TopicStats{
		Name:       t.Name,
		EndOffset:  t.Log.EndOffset(),
		Segments:   st.SegmentCount,
		RawEntries: st.EntryCount,
		RawBytes:   st.SizeBytes,
	}
	if cl := t.comp.Pointer().Load(); cl != nil {
		ts.CompactedID = cl.ID
		ts.CompactedBoundary = cl.Boundary
		ts.CompactedEntries = cl.Entries
	}
	return ts, nil
}
