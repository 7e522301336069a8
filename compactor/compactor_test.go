package compactor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamstore/streamstore/ledger"
)

func setup(t *testing.T) (string, *ledger.TopicLog, *Compactor) {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "topic")
	// Tiny segments so every test crosses segment boundaries.
	tl, err := ledger.OpenTopicLog(dir, ledger.Options{SegmentMaxEntries: 2})
	require.NoError(t, err)
	t.Cleanup(func() { tl.Close() })

	ptr, err := OpenPointer(dir)
	require.NoError(t, err)

	return dir, tl, New("topic", tl, ptr, false)
}

func compactedKV(t *testing.T, c *Compactor) map[string]string {
	t.Helper()

	cl := c.Pointer().Load()
	require.NotNil(t, cl)
	r, err := cl.NewReader()
	require.NoError(t, err)
	defer r.Close()

	kv := map[string]string{}
	var prev uint64
	for {
		e, err := r.Next()
		require.NoError(t, err)
		if e == nil {
			break
		}
		require.True(t, e.HasKey)
		require.False(t, e.Tombstone())
		if len(kv) > 0 {
			require.Greater(t, e.Offset, prev)
		}
		prev = e.Offset
		_, dup := kv[e.Key]
		require.False(t, dup, "key %s appears twice in compacted log", e.Key)
		kv[e.Key] = string(e.Payload)
	}
	return kv
}

func TestLastWriteWins(t *testing.T) {
	_, tl, c := setup(t)

	for i := 0; i < 5; i++ {
		_, err := tl.Append("a", true, []byte{'0' + byte(i)})
		require.NoError(t, err)
	}
	_, err := tl.Append("b", true, []byte("only"))
	require.NoError(t, err)

	require.NoError(t, c.Compact())

	assert.Equal(t, map[string]string{"a": "4", "b": "only"}, compactedKV(t, c))
	assert.Equal(t, uint64(6), c.Pointer().Load().Boundary)
}

func TestTombstoneRemoval(t *testing.T) {
	_, tl, c := setup(t)

	_, err := tl.Append("keep", true, []byte("v"))
	require.NoError(t, err)
	_, err = tl.Append("drop", true, []byte("v"))
	require.NoError(t, err)
	_, err = tl.Append("drop", true, []byte{})
	require.NoError(t, err)

	require.NoError(t, c.Compact())

	assert.Equal(t, map[string]string{"keep": "v"}, compactedKV(t, c))
}

func TestTombstoneBeforeAnyCompaction(t *testing.T) {
	_, tl, c := setup(t)

	// The key's only write is its tombstone.
	_, err := tl.Append("ghost", true, nil)
	require.NoError(t, err)

	require.NoError(t, c.Compact())

	assert.Empty(t, compactedKV(t, c))
	assert.Equal(t, uint64(1), c.Pointer().Load().Boundary)
}

func TestKeylessEntriesNotCarried(t *testing.T) {
	_, tl, c := setup(t)

	_, err := tl.Append("", false, []byte("no key"))
	require.NoError(t, err)
	_, err = tl.Append("k", true, []byte("v"))
	require.NoError(t, err)

	require.NoError(t, c.Compact())

	assert.Equal(t, map[string]string{"k": "v"}, compactedKV(t, c))
	assert.Equal(t, int64(1), c.Pointer().Load().Entries)
}

func TestIdempotence(t *testing.T) {
	_, tl, c := setup(t)

	for _, k := range []string{"a", "b", "a", "c"} {
		_, err := tl.Append(k, true, []byte(k+"-v"))
		require.NoError(t, err)
	}

	require.NoError(t, c.Compact())
	first := compactedKV(t, c)
	firstBoundary := c.Pointer().Load().Boundary

	require.NoError(t, c.Compact())
	second := compactedKV(t, c)

	assert.Equal(t, first, second)
	assert.Equal(t, firstBoundary, c.Pointer().Load().Boundary)
}

func TestSecondRunExtendsBoundary(t *testing.T) {
	_, tl, c := setup(t)

	_, err := tl.Append("a", true, []byte("1"))
	require.NoError(t, err)
	require.NoError(t, c.Compact())

	_, err = tl.Append("b", true, []byte("1"))
	require.NoError(t, err)
	_, err = tl.Append("a", true, []byte("2"))
	require.NoError(t, err)
	require.NoError(t, c.Compact())

	assert.Equal(t, map[string]string{"a": "2", "b": "1"}, compactedKV(t, c))
	assert.Equal(t, uint64(3), c.Pointer().Load().Boundary)
}

func TestEmptyTopicCompacts(t *testing.T) {
	_, _, c := setup(t)

	require.NoError(t, c.Compact())

	cl := c.Pointer().Load()
	require.NotNil(t, cl)
	assert.Equal(t, uint64(0), cl.Boundary)
	assert.Equal(t, int64(0), cl.Entries)
}

func TestIndexBoundedByDistinctKeys(t *testing.T) {
	_, tl, _ := setup(t)

	// Two keys, many rewrites: the index must hold two records.
	for i := 0; i < 100; i++ {
		_, err := tl.Append("x", true, []byte{byte(i)})
		require.NoError(t, err)
		_, err = tl.Append("y", true, []byte{byte(i)})
		require.NoError(t, err)
	}

	r, err := tl.NewReader(0, tl.EndOffset())
	require.NoError(t, err)
	idx, err := buildIndex(r)
	require.NoError(t, err)

	assert.Len(t, idx, 2)
	assert.Equal(t, keyRecord{offset: 198, tombstone: false}, idx["x"])
	assert.Equal(t, keyRecord{offset: 199, tombstone: false}, idx["y"])
}

func TestFailedRunLeavesPointerUntouched(t *testing.T) {
	dir, tl, c := setup(t)

	_, err := tl.Append("a", true, []byte("1"))
	require.NoError(t, err)
	require.NoError(t, c.Compact())
	published := c.Pointer().Load()

	// Grow the log past the published boundary, then truncate a raw
	// segment so the next run's scans fail.
	for i := 0; i < 4; i++ {
		_, err = tl.Append("b", true, []byte("2"))
		require.NoError(t, err)
	}
	require.NoError(t, os.Remove(filepath.Join(dir, "segment.0000000000.seg")))

	err = c.Compact()
	require.Error(t, err)
	assert.ErrorAs(t, err, &ReadError{})

	// The previously published compacted log is still the one readers see.
	assert.Same(t, published, c.Pointer().Load())
	kv := compactedKV(t, c)
	assert.Equal(t, map[string]string{"a": "1"}, kv)
}

func TestPointerReload(t *testing.T) {
	dir, tl, c := setup(t)

	_, err := tl.Append("a", true, []byte("1"))
	require.NoError(t, err)
	require.NoError(t, c.Compact())
	want := compactedKV(t, c)

	// A fresh pointer (a restarted process) republishes the sealed log.
	ptr, err := OpenPointer(dir)
	require.NoError(t, err)
	c2 := New("topic", tl, ptr, false)

	assert.Equal(t, want, compactedKV(t, c2))
	assert.Equal(t, c.Pointer().Load().ID, ptr.Load().ID)
}

func TestStaleLogRejectsNewReaders(t *testing.T) {
	_, tl, c := setup(t)

	_, err := tl.Append("a", true, []byte("1"))
	require.NoError(t, err)
	require.NoError(t, c.Compact())
	old := c.Pointer().Load()

	_, err = tl.Append("a", true, []byte("2"))
	require.NoError(t, err)
	require.NoError(t, c.Compact())

	// The superseded log was reclaimed; a stale pointer must fail the
	// acquisition rather than surface a missing-file read error.
	_, err = old.NewReader()
	require.Error(t, err)
	assert.ErrorAs(t, err, new(LogRetiredError))
}

func TestSupersededLogRetainedWhileRead(t *testing.T) {
	_, tl, c := setup(t)

	_, err := tl.Append("a", true, []byte("1"))
	require.NoError(t, err)
	require.NoError(t, c.Compact())

	old := c.Pointer().Load()
	r, err := old.NewReader()
	require.NoError(t, err)

	_, err = tl.Append("a", true, []byte("2"))
	require.NoError(t, err)
	require.NoError(t, c.Compact())

	// The superseded file must survive until the reader is done.
	_, statErr := os.Stat(old.Path())
	assert.NoError(t, statErr)

	e, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "1", string(e.Payload))
	r.Close()

	_, statErr = os.Stat(old.Path())
	assert.True(t, os.IsNotExist(statErr))

	// The new log is unaffected.
	assert.Equal(t, map[string]string{"a": "2"}, compactedKV(t, c))
}
