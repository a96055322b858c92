package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
)

func newDBStorage(t *testing.T, bucket string) Storage {
	t.Helper()
	bdb, err := bbolt.Open(filepath.Join(t.TempDir(), bucket+".bolt"), 0o600, nil)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, bdb.Close()) })
	s, err := NewDBStorage(bdb, bucket)
	require.NoError(t, err)
	return s
}

func TestDBStorage_putGetDel(t *testing.T) {
	ctx := context.Background()
	s := newDBStorage(t, "files")

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, "id1", []byte("hello")))
	got, err := s.Get(ctx, "id1")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)

	require.NoError(t, s.Del(ctx, "id1"))
	_, err = s.Get(ctx, "id1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPutDiffGetDiff(t *testing.T) {
	ctx := context.Background()
	s := newDBStorage(t, "files")

	d := StoredDiff{
		Patch:    "@@ -1 +1 @@\n-a\n+b\n",
		Filename: "f.go",
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, PutDiff(ctx, s, "id1", d))

	got, err := GetDiff(ctx, s, "id1")
	require.NoError(t, err)
	assert.Equal(t, d.Patch, got.Patch)
	assert.Equal(t, d.Filename, got.Filename)
	assert.True(t, d.CreatedAt.Equal(got.CreatedAt))
}

func TestPutDiffIfAbsent(t *testing.T) {
	ctx := context.Background()
	s := newDBStorage(t, "files")

	first := StoredDiff{Patch: "@@ -1 +1 @@\n-a\n+b\n", Filename: "f.go"}
	wrote, err := PutDiffIfAbsent(ctx, s, "id1", first)
	require.NoError(t, err)
	assert.True(t, wrote, "first submission of id1 must write")

	second := StoredDiff{Patch: "@@ -1 +1 @@\n-a\n+c\n", Filename: "f.go"}
	wrote, err = PutDiffIfAbsent(ctx, s, "id1", second)
	require.NoError(t, err)
	assert.False(t, wrote, "resubmission of the same id must not overwrite")

	got, err := GetDiff(ctx, s, "id1")
	require.NoError(t, err)
	assert.Equal(t, first.Patch, got.Patch, "the original content must survive the resubmission")
}

func TestCachedStorage_writeThroughAndFallback(t *testing.T) {
	ctx := context.Background()
	cacheDB, err := bbolt.Open(filepath.Join(t.TempDir(), "cache.bolt"), 0o600, nil)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, cacheDB.Close()) })
	cacheStore, err := NewDBStorage(cacheDB, "cache")
	require.NoError(t, err)

	permanent := newDBStorage(t, "permanent")

	cs, err := NewCachedStorage(cacheStore.(ListStorage), permanent, 1<<20)
	require.NoError(t, err)

	require.NoError(t, cs.Put(ctx, "id1", []byte("payload")))

	// Visible directly through the permanent tier too (write-through).
	permVal, err := permanent.Get(ctx, "id1")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), permVal)

	got, err := cs.Get(ctx, "id1")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	require.NoError(t, cs.Del(ctx, "id1"))
	_, err = cs.Get(ctx, "id1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCachedStorage_seedsFromExistingCache(t *testing.T) {
	ctx := context.Background()
	cacheDB, err := bbolt.Open(filepath.Join(t.TempDir(), "cache.bolt"), 0o600, nil)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, cacheDB.Close()) })
	cacheStore, err := NewDBStorage(cacheDB, "cache")
	require.NoError(t, err)
	require.NoError(t, cacheStore.Put(ctx, "preexisting", []byte("x")))

	permanent := newDBStorage(t, "permanent")

	cs, err := NewCachedStorage(cacheStore.(ListStorage), permanent, 1<<20)
	require.NoError(t, err)

	got, err := cs.Get(ctx, "preexisting")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), got)
}
