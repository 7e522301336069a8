package ledger

import (
	"bufio"
	"fmt"
	goio "io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/streamstore/streamstore/utils/log"
)

const segmentSuffix = ".seg"

// Options control segment rollover and on-disk compression for a
// TopicLog.
type Options struct {
	// SegmentMaxEntries is the entry count at which the active segment
	// is rolled over. Values < 1 fall back to a single huge segment.
	SegmentMaxEntries int
	// Compress enables snappy compression of payloads on disk.
	Compress bool
}

/*
	TopicLog is the raw, append-only log of one topic: an ordered set
	of segment files under the topic directory, named by the offset of
	their first entry:

		<dir>/segment.0000000000.seg
		<dir>/segment.0000050000.seg
		...

	Entries are only ever appended; segments are never rewritten.
	Access to the append path is serialized by the embedded mutex,
	readers open their own file handles and never touch shared state
	after construction.
*/
type TopicLog struct {
	sync.Mutex

	dir  string
	opts Options

	// bases holds the first offset of every segment, ascending. The
	// last element is the active segment.
	bases       []uint64
	file        *os.File
	fileEntries int
	nextOffset  uint64

	buf []byte
}

// OpenTopicLog opens (or creates) the topic directory and recovers the
// next offset by replaying the newest segment.
func OpenTopicLog(dir string, opts Options) (*TopicLog, error) {
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return nil, fmt.Errorf("create topic dir %s: %w", dir, err)
	}

	tl := &TopicLog{dir: dir, opts: opts}
	if err := tl.loadSegments(); err != nil {
		return nil, err
	}
	return tl, nil
}

func (tl *TopicLog) loadSegments() error {
	dirlist, err := os.ReadDir(tl.dir)
	if err != nil {
		return fmt.Errorf("read topic dir %s: %w", tl.dir, err)
	}

	for _, f := range dirlist {
		name := f.Name()
		if f.IsDir() || !strings.HasPrefix(name, "segment.") || !strings.HasSuffix(name, segmentSuffix) {
			continue
		}
		baseStr := strings.TrimSuffix(strings.TrimPrefix(name, "segment."), segmentSuffix)
		base, err := strconv.ParseUint(baseStr, 10, 64)
		if err != nil {
			log.Warn("ignoring unparseable segment file %s: %v", name, err)
			continue
		}
		tl.bases = append(tl.bases, base)
	}
	sort.Slice(tl.bases, func(i, j int) bool { return tl.bases[i] < tl.bases[j] })

	if len(tl.bases) == 0 {
		return nil
	}

	// Replay the newest segment to find the end offset and the entry
	// count for rollover accounting.
	last := tl.bases[len(tl.bases)-1]
	tl.nextOffset = last
	fp, err := os.Open(tl.segmentPath(last))
	if err != nil {
		return SegmentNotFoundError(tl.segmentPath(last))
	}
	defer fp.Close()

	r := bufio.NewReader(fp)
	for {
		e, err := ReadRecord(r)
		if err == goio.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("replay segment %d of %s: %w", last, tl.dir, err)
		}
		tl.nextOffset = e.Offset + 1
		tl.fileEntries++
	}
	return nil
}

func (tl *TopicLog) segmentPath(base uint64) string {
	return filepath.Join(tl.dir, fmt.Sprintf("segment.%010d%s", base, segmentSuffix))
}

// Append writes one entry at the end of the log and returns its
// assigned offset. The entry's Offset and Timestamp fields are set by
// the log.
func (tl *TopicLog) Append(key string, hasKey bool, payload []byte) (uint64, error) {
	tl.Lock()
	defer tl.Unlock()

	if len(payload) > maxAppendPayload {
		return 0, AppendError(fmt.Sprintf("%s: payload of %d bytes exceeds the %d byte limit",
			tl.dir, len(payload), maxAppendPayload))
	}

	if tl.file == nil || (tl.opts.SegmentMaxEntries > 0 && tl.fileEntries >= tl.opts.SegmentMaxEntries) {
		if err := tl.rollover(); err != nil {
			return 0, err
		}
	}

	e := Entry{
		Offset:    tl.nextOffset,
		Key:       key,
		HasKey:    hasKey,
		Payload:   payload,
		Timestamp: time.Now().UnixNano(),
	}

	tl.buf = AppendEntry(tl.buf[:0], &e, tl.opts.Compress)
	if _, err := tl.file.Write(tl.buf); err != nil {
		return 0, AppendError(tl.file.Name() + ": " + err.Error())
	}

	tl.nextOffset++
	tl.fileEntries++
	return e.Offset, nil
}

// rollover closes the active segment and opens a fresh one whose base
// is the next offset to be written. Caller holds the lock.
func (tl *TopicLog) rollover() error {
	if tl.file != nil {
		if err := tl.file.Sync(); err != nil {
			return AppendError(tl.file.Name() + ": " + err.Error())
		}
		if err := tl.file.Close(); err != nil {
			return AppendError(tl.file.Name() + ": " + err.Error())
		}
		tl.file = nil
	}

	base := tl.nextOffset
	if len(tl.bases) > 0 && tl.bases[len(tl.bases)-1] == base {
		// Reopening the recovered active segment for append.
		fp, err := os.OpenFile(tl.segmentPath(base), os.O_WRONLY|os.O_APPEND, 0o660)
		if err != nil {
			return SegmentCreateError(tl.segmentPath(base) + ": " + err.Error())
		}
		tl.file = fp
		return nil
	}

	// Recovered mid-segment: keep appending to the newest segment
	// until it fills up.
	if len(tl.bases) > 0 && tl.fileEntries > 0 &&
		(tl.opts.SegmentMaxEntries < 1 || tl.fileEntries < tl.opts.SegmentMaxEntries) {
		last := tl.bases[len(tl.bases)-1]
		fp, err := os.OpenFile(tl.segmentPath(last), os.O_WRONLY|os.O_APPEND, 0o660)
		if err != nil {
			return SegmentCreateError(tl.segmentPath(last) + ": " + err.Error())
		}
		tl.file = fp
		return nil
	}

	fp, err := os.OpenFile(tl.segmentPath(base), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o660)
	if err != nil {
		return SegmentCreateError(tl.segmentPath(base) + ": " + err.Error())
	}
	tl.file = fp
	tl.fileEntries = 0
	tl.bases = append(tl.bases, base)
	return nil
}

// EndOffset returns the offset one past the last written entry. It is
// the snapshot boundary a compaction run captures before scanning.
func (tl *TopicLog) EndOffset() uint64 {
	tl.Lock()
	defer tl.Unlock()
	return tl.nextOffset
}

// Sync flushes the active segment to stable storage.
func (tl *TopicLog) Sync() error {
	tl.Lock()
	defer tl.Unlock()
	if tl.file == nil {
		return nil
	}
	return tl.file.Sync()
}

// Close releases the active segment file handle.
func (tl *TopicLog) Close() error {
	tl.Lock()
	defer tl.Unlock()
	if tl.file == nil {
		return nil
	}
	err := tl.file.Close()
	tl.file = nil
	return err
}

// NewReader returns a forward-only cursor over [start, end). The
// segment set is snapshotted at creation; appends past end never
// affect the cursor.
func (tl *TopicLog) NewReader(start, end uint64) (*EntryReader, error) {
	tl.Lock()
	defer tl.Unlock()

	if end > tl.nextOffset {
		return nil, OffsetOutOfRangeError(fmt.Sprintf("%s: end %d > %d", tl.dir, end, tl.nextOffset))
	}
	if tl.file != nil {
		// Readers open their own handles, make sure they see every
		// committed byte.
		if err := tl.file.Sync(); err != nil {
			return nil, AppendError(tl.file.Name() + ": " + err.Error())
		}
	}

	bases := make([]uint64, len(tl.bases))
	copy(bases, tl.bases)
	return newEntryReader(tl.dir, bases, start, end), nil
}

// SegmentStats describes the on-disk shape of the raw log for the
// introspection API.
type SegmentStats struct {
	SegmentCount int
	EntryCount   int64
	SizeBytes    int64
}

// Stats walks every segment and counts entries. Read-only, intended
// for the admin surface, not the hot path.
func (tl *TopicLog) Stats() (SegmentStats, error) {
	tl.Lock()
	bases := make([]uint64, len(tl.bases))
	copy(bases, tl.bases)
	tl.Unlock()

	var st SegmentStats
	st.SegmentCount = len(bases)
	for _, base := range bases {
		path := tl.segmentPath(base)
		info, err := os.Stat(path)
		if err != nil {
			return st, SegmentNotFoundError(path)
		}
		st.SizeBytes += info.Size()

		fp, err := os.Open(path)
		if err != nil {
			return st, SegmentNotFoundError(path)
		}
		r := bufio.NewReader(fp)
		for {
			_, err := ReadRecord(r)
			if err == goio.EOF {
				break
			}
			if err != nil {
				fp.Close()
				return st, fmt.Errorf("stats scan %s: %w", path, err)
			}
			st.EntryCount++
		}
		fp.Close()
	}
	return st, nil
}
