package manifeststore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUpsertGetDelete(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.Upsert(ctx, "a.go", "hash1", now))
	entry, ok, err := s.Get(ctx, "a.go")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "hash1", entry.Hash)

	require.NoError(t, s.Upsert(ctx, "a.go", "hash2", now.Add(time.Second)))
	entry, ok, err = s.Get(ctx, "a.go")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "hash2", entry.Hash)

	require.NoError(t, s.Delete(ctx, "a.go"))
	_, ok, err = s.Get(ctx, "a.go")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestListPaginatesAcrossManyEntries(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	now := time.Now().UTC()
	const n = 2500 // exceeds pageSize to exercise pagination
	for i := 0; i < n; i++ {
		require.NoError(t, s.Upsert(ctx, pathFor(i), "h", now))
	}

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, n)
}

func pathFor(i int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	return string(letters[i%26]) + string(rune('0'+i/260)) + string(rune('0'+i/26%10)) + "/file.go"
}
