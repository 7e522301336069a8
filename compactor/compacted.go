package compactor

import (
	"bufio"
	goio "io"
	"os"
	"sync/atomic"

	"github.com/streamstore/streamstore/ledger"
	"github.com/streamstore/streamstore/utils/log"
)

/*
	CompactedLog is one sealed output of a compaction run: an ordered
	entry stream with at most one entry per key and no tombstones,
	framed identically to a raw segment so the regular record reader
	can consume it. Immutable once sealed.

	A superseded log is kept on disk until every in-flight reader has
	released it, then unlinked.
*/
type CompactedLog struct {
	// ID is the creation timestamp in nanoseconds, unique per topic
	// because runs are serialized.
	ID int64
	// Boundary is the exclusive upper offset this log covers. Raw
	// entries at or beyond it were not considered by the run.
	Boundary uint64
	// Entries is the number of records in the sealed file.
	Entries int64

	path    string
	refs    int64
	retired int32
}

// Path returns the sealed file location.
func (cl *CompactedLog) Path() string { return cl.path }

// Acquire registers an in-flight reader. It fails once the log has
// been retired, since the file may already be reclaimed; callers
// holding a stale pointer reload it and retry.
func (cl *CompactedLog) Acquire() bool {
	atomic.AddInt64(&cl.refs, 1)
	if atomic.LoadInt32(&cl.retired) == 1 {
		cl.Release()
		return false
	}
	return true
}

// Release drops a reader reference and reclaims the file when this
// log has been superseded and no reader remains.
func (cl *CompactedLog) Release() {
	if atomic.AddInt64(&cl.refs, -1) == 0 && atomic.LoadInt32(&cl.retired) == 1 {
		cl.remove()
	}
}

// retire marks the log superseded. The file is unlinked immediately
// when unreferenced, otherwise by the last Release.
func (cl *CompactedLog) retire() {
	atomic.StoreInt32(&cl.retired, 1)
	if atomic.LoadInt64(&cl.refs) == 0 {
		cl.remove()
	}
}

func (cl *CompactedLog) remove() {
	if err := os.Remove(cl.path); err != nil && !os.IsNotExist(err) {
		log.Warn("failed to remove superseded compacted log %s: %v", cl.path, err)
	}
}

// NewReader opens a cursor over the sealed entries, holding a
// reference until Close.
func (cl *CompactedLog) NewReader() (*CompactedReader, error) {
	if !cl.Acquire() {
		return nil, LogRetiredError(cl.path)
	}
	fp, err := os.Open(cl.path)
	if err != nil {
		cl.Release()
		return nil, ReadError{Err: err}
	}
	return &CompactedReader{cl: cl, fp: fp, r: bufio.NewReader(fp)}, nil
}

// CompactedReader iterates a sealed compacted log in offset order.
type CompactedReader struct {
	cl     *CompactedLog
	fp     *os.File
	r      *bufio.Reader
	closed bool
}

// Next returns the next entry, or (nil, nil) at the end of the log.
func (cr *CompactedReader) Next() (*ledger.Entry, error) {
	if cr.closed {
		return nil, nil
	}
	e, err := ledger.ReadRecord(cr.r)
	if err == goio.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, ReadError{Err: err}
	}
	return e, nil
}

// Close releases the underlying file and the reader's reference.
func (cr *CompactedReader) Close() {
	if cr.closed {
		return
	}
	cr.closed = true
	cr.fp.Close()
	cr.cl.Release()
}
