package ledger

import (
	"bufio"
	"fmt"
	goio "io"
	"os"
	"path/filepath"
	"sort"
)

/*
	EntryReader is a lazy, forward-only, non-restartable cursor over
	the half-open offset range [start, end) of a topic log. It crosses
	segment boundaries transparently and owns its file handles; the
	TopicLog it was created from is never touched again.
*/
type EntryReader struct {
	dir   string
	bases []uint64
	start uint64
	end   uint64

	segIdx     int
	nextWanted uint64
	fp         *os.File
	r          *bufio.Reader
	done       bool
}

func newEntryReader(dir string, bases []uint64, start, end uint64) *EntryReader {
	er := &EntryReader{
		dir:        dir,
		bases:      bases,
		start:      start,
		end:        end,
		nextWanted: start,
	}
	if start >= end {
		er.done = true
		return er
	}

	// Position at the segment containing start: the last base <= start.
	er.segIdx = sort.Search(len(bases), func(i int) bool { return bases[i] > start })
	if er.segIdx > 0 {
		er.segIdx--
	}
	return er
}

// Next returns the next entry in strictly increasing offset order, or
// (nil, nil) once the range is exhausted. Any storage problem is
// surfaced as an error and the reader becomes unusable.
func (er *EntryReader) Next() (*Entry, error) {
	if er.done {
		return nil, nil
	}

	for {
		if er.r == nil {
			if er.segIdx >= len(er.bases) {
				if er.nextWanted >= er.end {
					er.Close()
					return nil, nil
				}
				// Ran out of segments before reaching end. The range
				// was valid at snapshot time, so something was
				// truncated underneath us.
				er.Close()
				return nil, SegmentNotFoundError(fmt.Sprintf("%s: offsets >= %d", er.dir, er.nextWanted))
			}
			path := filepath.Join(er.dir, fmt.Sprintf("segment.%010d%s", er.bases[er.segIdx], segmentSuffix))
			fp, err := os.Open(path)
			if err != nil {
				er.Close()
				return nil, SegmentNotFoundError(path)
			}
			er.fp = fp
			er.r = bufio.NewReader(fp)
		}

		e, err := ReadRecord(er.r)
		if err == goio.EOF {
			er.fp.Close()
			er.fp, er.r = nil, nil
			er.segIdx++
			continue
		}
		if err != nil {
			er.Close()
			return nil, err
		}

		if e.Offset < er.start {
			continue
		}
		if e.Offset >= er.end {
			er.Close()
			return nil, nil
		}
		er.nextWanted = e.Offset + 1
		return e, nil
	}
}

// Close releases the current segment handle. Safe to call repeatedly.
func (er *EntryReader) Close() {
	if er.fp != nil {
		er.fp.Close()
		er.fp, er.r = nil, nil
	}
	er.done = true
}
