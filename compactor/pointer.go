package compactor

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/streamstore/streamstore/utils/log"
)

const (
	compactedDirName = "compacted"
	currentFileName  = "CURRENT"
)

/*
	Pointer is the per-topic published reference to the newest sealed
	compacted log. Readers load it with a single atomic pointer read;
	a compaction run replaces it with a single atomic store after the
	durable CURRENT file has been renamed into place. It never
	references a partially written log.
*/
type Pointer struct {
	dir string
	cur atomic.Pointer[CompactedLog]
}

// OpenPointer prepares the compacted subdirectory of a topic and
// republishes the log recorded in CURRENT, if any.
func OpenPointer(topicDir string) (*Pointer, error) {
	dir := filepath.Join(topicDir, compactedDirName)
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return nil, fmt.Errorf("create compacted dir %s: %w", dir, err)
	}

	p := &Pointer{dir: dir}

	data, err := os.ReadFile(filepath.Join(dir, currentFileName))
	if os.IsNotExist(err) {
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Join(dir, currentFileName), err)
	}

	cl := &CompactedLog{}
	if _, err := fmt.Sscanf(string(data), "%d %d %d", &cl.ID, &cl.Boundary, &cl.Entries); err != nil {
		return nil, fmt.Errorf("parse CURRENT of %s: %w", topicDir, err)
	}
	cl.path = p.logPath(cl.ID)
	if _, err := os.Stat(cl.path); err != nil {
		// CURRENT references a log that is gone. Treat the topic as
		// never compacted rather than failing every read.
		log.Warn("CURRENT of %s references missing compacted log %s, ignoring", topicDir, cl.path)
		return p, nil
	}

	p.cur.Store(cl)
	return p, nil
}

func (p *Pointer) logPath(id int64) string {
	return filepath.Join(p.dir, fmt.Sprintf("compacted.%d.seg", id))
}

// Load returns the currently published compacted log, or nil when the
// topic has never been compacted.
func (p *Pointer) Load() *CompactedLog {
	return p.cur.Load()
}

// swap durably records cl as the topic's compacted log, publishes it
// to readers, and retires the previous one. This is the run's single
// publication point.
func (p *Pointer) swap(cl *CompactedLog) error {
	tmp := filepath.Join(p.dir, currentFileName+".tmp")
	content := fmt.Sprintf("%d %d %d\n", cl.ID, cl.Boundary, cl.Entries)

	if err := os.WriteFile(tmp, []byte(content), 0o660); err != nil {
		return PointerSwapError{Err: err}
	}
	if err := os.Rename(tmp, filepath.Join(p.dir, currentFileName)); err != nil {
		os.Remove(tmp)
		return PointerSwapError{Err: err}
	}

	prev := p.cur.Swap(cl)
	if prev != nil {
		prev.retire()
	}
	return nil
}
