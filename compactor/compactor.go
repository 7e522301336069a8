package compactor

import (
	"bufio"
	"os"
	"time"

	"github.com/streamstore/streamstore/ledger"
	"github.com/streamstore/streamstore/utils/log"
)

/*
	Compactor runs two-phase compaction for one topic:

	  1. capture the snapshot boundary (the log's current end offset),
	  2. phase one: scan [0, boundary) and index each key's winning
	     offset, O(distinct keys) memory,
	  3. phase two: re-scan the same range and copy only the winning,
	     non-tombstoned entries into a fresh compacted log,
	  4. seal the output and atomically swap the published pointer.

	Two sequential scans are deliberate: the winner for a key is not
	known until the whole range has been seen, and buffering payloads
	per key would cost memory proportional to the log, not to the key
	set. The boundary is fixed before either scan, so appends racing
	with the run land beyond it and are picked up by the next run.

	Compactor assumes at most one run per topic at a time; that mutual
	exclusion is owned by the executor driving it, not taken here.
*/
type Compactor struct {
	topic    string
	raw      *ledger.TopicLog
	ptr      *Pointer
	compress bool
}

func New(topic string, raw *ledger.TopicLog, ptr *Pointer, compress bool) *Compactor {
	return &Compactor{
		topic:    topic,
		raw:      raw,
		ptr:      ptr,
		compress: compress,
	}
}

// Pointer exposes the published compacted log reference for readers.
func (c *Compactor) Pointer() *Pointer { return c.ptr }

// Compact performs one full compaction run. On any failure the
// previously published compacted log remains in place and the partial
// output is discarded.
func (c *Compactor) Compact() error {
	start := time.Now()
	boundary := c.raw.EndOffset()

	r1, err := c.raw.NewReader(0, boundary)
	if err != nil {
		return ReadError{Err: err}
	}
	idx, err := buildIndex(r1)
	if err != nil {
		return err
	}

	cl, err := c.rewrite(idx, boundary)
	if err != nil {
		return err
	}

	if err := c.ptr.swap(cl); err != nil {
		cl.remove()
		return err
	}

	log.Info("compacted topic %s: boundary=%d keys=%d entries=%d in %s",
		c.topic, boundary, len(idx), cl.Entries, time.Since(start))
	return nil
}

// rewrite is phase two: the second scan over the identical range,
// emitting exactly the entries whose offset matches their key's
// winning offset and whose key is not tombstoned. Original offsets
// and timestamps are preserved.
func (c *Compactor) rewrite(idx keyIndex, boundary uint64) (*CompactedLog, error) {
	r, err := c.raw.NewReader(0, boundary)
	if err != nil {
		return nil, ReadError{Err: err}
	}
	defer r.Close()

	cl := &CompactedLog{
		ID:       time.Now().UTC().UnixNano(),
		Boundary: boundary,
	}
	cl.path = c.ptr.logPath(cl.ID)
	tmpPath := cl.path + ".tmp"

	fp, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o660)
	if err != nil {
		return nil, WriteError{Err: err}
	}
	discard := func() {
		fp.Close()
		os.Remove(tmpPath)
	}

	w := bufio.NewWriter(fp)
	var buf []byte
	for {
		e, err := r.Next()
		if err != nil {
			discard()
			return nil, ReadError{Err: err}
		}
		if e == nil {
			break
		}
		if !e.HasKey {
			continue
		}
		rec := idx[e.Key]
		if rec.offset != e.Offset || rec.tombstone {
			continue
		}

		buf = ledger.AppendEntry(buf[:0], e, c.compress)
		if _, err := w.Write(buf); err != nil {
			discard()
			return nil, WriteError{Err: err}
		}
		cl.Entries++
	}

	// Seal: flush, fsync, rename into place. The log only becomes
	// loadable under its final name once fully durable.
	if err := w.Flush(); err != nil {
		discard()
		return nil, WriteError{Err: err}
	}
	if err := fp.Sync(); err != nil {
		discard()
		return nil, WriteError{Err: err}
	}
	if err := fp.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, WriteError{Err: err}
	}
	if err := os.Rename(tmpPath, cl.path); err != nil {
		os.Remove(tmpPath)
		return nil, WriteError{Err: err}
	}

	return cl, nil
}
