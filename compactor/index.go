package compactor

import (
	"github.com/streamstore/streamstore/ledger"
)

// keyRecord is the per-key outcome of the first scan: the offset of
// the key's latest entry at or below the snapshot boundary, and
// whether that entry is a tombstone.
type keyRecord struct {
	offset    uint64
	tombstone bool
}

// keyIndex holds exactly one record per distinct key, regardless of
// how many times a key was rewritten. Scoped to a single run.
type keyIndex map[string]keyRecord

// buildIndex is phase one: a single forward scan of [0, boundary)
// that unconditionally overwrites each key's record, so the scan's
// last write for a key wins. Keyless entries are not indexed.
func buildIndex(r *ledger.EntryReader) (keyIndex, error) {
	defer r.Close()

	idx := keyIndex{}
	for {
		e, err := r.Next()
		if err != nil {
			return nil, ReadError{Err: err}
		}
		if e == nil {
			return idx, nil
		}
		if !e.HasKey {
			continue
		}
		idx[e.Key] = keyRecord{offset: e.Offset, tombstone: e.Tombstone()}
	}
}
