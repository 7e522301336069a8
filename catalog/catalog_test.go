package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamstore/streamstore/catalog"
	"github.com/streamstore/streamstore/ledger"
)

func setup(t *testing.T) (string, *catalog.Directory) {
	t.Helper()

	rootDir := t.TempDir()
	d, err := catalog.NewDirectory(rootDir, ledger.Options{SegmentMaxEntries: 2})
	if err != nil {
		t.Fatal("failed to create a catalog dir.err=" + err.Error())
	}
	t.Cleanup(d.Close)

	return rootDir, d
}

func TestGetOrCreateTopic(t *testing.T) {
	_, d := setup(t)

	topic, err := d.GetOrCreateTopic("orders")
	require.NoError(t, err)
	assert.Equal(t, "orders", topic.Name)

	// Same instance on repeated lookups.
	again, err := d.GetOrCreateTopic("orders")
	require.NoError(t, err)
	assert.Same(t, topic, again)

	got, err := d.GetTopic("orders")
	require.NoError(t, err)
	assert.Same(t, topic, got)
}

func TestGetTopicNotFound(t *testing.T) {
	_, d := setup(t)

	_, err := d.GetTopic("missing")
	assert.ErrorAs(t, err, new(catalog.TopicNotFound))
}

func TestInvalidTopicNames(t *testing.T) {
	_, d := setup(t)

	for _, name := range []string{"", ".", "..", ".hidden", "a/b"} {
		_, err := d.GetOrCreateTopic(name)
		assert.Error(t, err, "name %q", name)
	}
}

func TestListTopics(t *testing.T) {
	_, d := setup(t)

	for _, name := range []string{"orders", "orders-dlq", "users"} {
		_, err := d.GetOrCreateTopic(name)
		require.NoError(t, err)
	}

	all, err := d.ListTopics("")
	require.NoError(t, err)
	assert.Equal(t, []string{"orders", "orders-dlq", "users"}, all)

	matched, err := d.ListTopics("orders*")
	require.NoError(t, err)
	assert.Equal(t, []string{"orders", "orders-dlq"}, matched)
}

func TestReloadDiscoversTopics(t *testing.T) {
	rootDir, d := setup(t)

	topic, err := d.GetOrCreateTopic("orders")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := topic.Append("k", true, []byte{byte(i)})
		require.NoError(t, err)
	}
	require.NoError(t, topic.Log.Sync())
	d.Close()

	d2, err := catalog.NewDirectory(rootDir, ledger.Options{SegmentMaxEntries: 2})
	require.NoError(t, err)
	defer d2.Close()

	reloaded, err := d2.GetTopic("orders")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), reloaded.Log.EndOffset())
}

func TestRawReadReturnsFullHistory(t *testing.T) {
	_, d := setup(t)

	topic, err := d.GetOrCreateTopic("orders")
	require.NoError(t, err)

	_, err = topic.Append("a", true, []byte("1"))
	require.NoError(t, err)
	_, err = topic.Append("a", true, []byte("2"))
	require.NoError(t, err)
	_, err = topic.Append("a", true, nil) // tombstone
	require.NoError(t, err)

	entries, next, err := topic.Read(0, 100, false)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, uint64(3), next)
	assert.Equal(t, "1", string(entries[0].Payload))
	assert.Equal(t, "2", string(entries[1].Payload))
	assert.True(t, entries[2].Tombstone())
}

func TestCompactedReadMergesRawTail(t *testing.T) {
	_, d := setup(t)

	topic, err := d.GetOrCreateTopic("orders")
	require.NoError(t, err)

	_, err = topic.Append("a", true, []byte("1"))
	require.NoError(t, err)
	_, err = topic.Append("a", true, []byte("2"))
	require.NoError(t, err)
	require.NoError(t, topic.Compactor().Compact())

	// Appends past the boundary stay raw until the next run.
	_, err = topic.Append("a", true, []byte("3"))
	require.NoError(t, err)

	entries, next, err := topic.Read(0, 100, true)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// The compacted head hides the superseded first write.
	assert.Equal(t, uint64(1), entries[0].Offset)
	assert.Equal(t, "2", string(entries[0].Payload))
	// The raw tail beyond the boundary is visible as written.
	assert.Equal(t, uint64(2), entries[1].Offset)
	assert.Equal(t, "3", string(entries[1].Payload))
	assert.Equal(t, uint64(3), next)
}

func TestCompactedReadWithoutCompaction(t *testing.T) {
	_, d := setup(t)

	topic, err := d.GetOrCreateTopic("orders")
	require.NoError(t, err)
	_, err = topic.Append("a", true, []byte("1"))
	require.NoError(t, err)

	// No compacted log published yet: read-compacted serves raw.
	entries, _, err := topic.Read(0, 100, true)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "1", string(entries[0].Payload))
}

func TestCompactedReadWhileCompacting(t *testing.T) {
	_, d := setup(t)

	topic, err := d.GetOrCreateTopic("orders")
	require.NoError(t, err)
	_, err = topic.Append("a", true, []byte{0})
	require.NoError(t, err)
	require.NoError(t, topic.Compactor().Compact())

	// Reads racing pointer swaps must never fail, even when the log
	// they loaded is reclaimed before they open it.
	done := make(chan error, 1)
	go func() {
		for i := 1; i <= 50; i++ {
			if _, err := topic.Append("a", true, []byte{byte(i)}); err != nil {
				done <- err
				return
			}
			if err := topic.Compactor().Compact(); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()

	for {
		select {
		case err := <-done:
			require.NoError(t, err)
			return
		default:
		}
		entries, _, err := topic.Read(0, 100, true)
		require.NoError(t, err)
		require.NotEmpty(t, entries)
	}
}

func TestReadResumesFromNextOffset(t *testing.T) {
	_, d := setup(t)

	topic, err := d.GetOrCreateTopic("orders")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := topic.Append("k", true, []byte{'0' + byte(i)})
		require.NoError(t, err)
	}

	var got []byte
	next := uint64(0)
	for {
		entries, n, err := topic.Read(next, 2, false)
		require.NoError(t, err)
		if len(entries) == 0 {
			break
		}
		for _, e := range entries {
			got = append(got, e.Payload[0])
		}
		next = n
	}
	assert.Equal(t, "01234", string(got))
}

func TestStats(t *testing.T) {
	_, d := setup(t)

	topic, err := d.GetOrCreateTopic("orders")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := topic.Append("k", true, []byte("v"))
		require.NoError(t, err)
	}
	require.NoError(t, topic.Compactor().Compact())

	st, err := topic.Stats()
	require.NoError(t, err)
	assert.Equal(t, uint64(5), st.EndOffset)
	assert.Equal(t, 3, st.Segments)
	assert.Equal(t, int64(5), st.RawEntries)
	assert.Equal(t, uint64(5), st.CompactedBoundary)
	assert.Equal(t, int64(1), st.CompactedEntries)
	assert.Greater(t, st.RawBytes, int64(0))
}
