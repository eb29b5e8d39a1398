package wipe

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"securewipe/internal/storage"
)

func sampleTree() *storage.MemoryProvider {
	p := storage.NewMemoryProvider()
	p.AddFile("z.txt", []byte("z"))
	p.AddFile("a.txt", []byte("a"))
	p.AddFile("d1/b.txt", []byte("bb"))
	p.AddFile("d1/d2/c.txt", []byte("ccc"))
	p.AddDir("d1/empty")
	p.AddDir("e1/e2/e3")
	return p
}

func collectPaths(t *testing.T, w *TreeWalker, root storage.Handle) ([]string, []error) {
	t.Helper()
	var paths []string
	var errs []error
	for h, err := range w.CollectFiles(context.Background(), root) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		paths = append(paths, h.Path)
	}
	return paths, errs
}

func TestCollectFilesDepthFirst(t *testing.T) {
	p := sampleTree()
	w := NewTreeWalker(p)

	paths, errs := collectPaths(t, w, rootOf(p))
	assert.Empty(t, errs)
	assert.Equal(t, []string{"a.txt", "d1/b.txt", "d1/d2/c.txt", "z.txt"}, paths)

	again, _ := collectPaths(t, w, rootOf(p))
	assert.Equal(t, paths, again, "order is deterministic for a fixed tree")
}

func TestCollectFilesReportsSizes(t *testing.T) {
	p := sampleTree()
	sizes := map[string]int64{}
	for h, err := range NewTreeWalker(p).CollectFiles(context.Background(), rootOf(p)) {
		require.NoError(t, err)
		assert.False(t, h.Dir)
		sizes[h.Path] = h.Size
	}
	assert.Equal(t, map[string]int64{"a.txt": 1, "d1/b.txt": 2, "d1/d2/c.txt": 3, "z.txt": 1}, sizes)
}

func TestCollectFilesContinuesAfterListError(t *testing.T) {
	p := sampleTree()
	p.SetFault("d1/d2", storage.Fault{List: errors.New("permission denied")})

	paths, errs := collectPaths(t, NewTreeWalker(p), rootOf(p))
	assert.Equal(t, []string{"a.txt", "d1/b.txt", "z.txt"}, paths)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrAccess)
}

func TestCollectFilesStopsEarly(t *testing.T) {
	p := sampleTree()
	n := 0
	for range NewTreeWalker(p).CollectFiles(context.Background(), rootOf(p)) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestCollectFilesEmptyRoot(t *testing.T) {
	p := storage.NewMemoryProvider()
	paths, errs := collectPaths(t, NewTreeWalker(p), rootOf(p))
	assert.Empty(t, paths)
	assert.Empty(t, errs)
}

func TestPruneEmptyDirectoriesPostOrder(t *testing.T) {
	p := sampleTree()
	w := NewTreeWalker(p)

	n, err := w.PruneEmptyDirectories(context.Background(), rootOf(p))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	var deleted []string
	for _, op := range p.Journal() {
		if op.Kind == storage.OpDelete {
			deleted = append(deleted, op.Path)
		}
	}
	assert.Equal(t, []string{"d1/empty", "e1/e2/e3", "e1/e2", "e1"}, deleted)
	assert.True(t, p.Exists("d1/d2"))
	assert.True(t, p.Exists("."))

	n, err = w.PruneEmptyDirectories(context.Background(), rootOf(p))
	require.NoError(t, err)
	assert.Zero(t, n, "second prune is a no-op")
}

func TestPruneNeverDeletesRoot(t *testing.T) {
	p := storage.NewMemoryProvider()
	n, err := NewTreeWalker(p).PruneEmptyDirectories(context.Background(), rootOf(p))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.True(t, p.Exists("."))
}

func TestPruneCollectsErrors(t *testing.T) {
	p := storage.NewMemoryProvider()
	p.AddDir("x/y")
	p.AddDir("w")
	p.SetFault("x/y", storage.Fault{Delete: errors.New("busy")})

	n, err := NewTreeWalker(p).PruneEmptyDirectories(context.Background(), rootOf(p))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPrune)
	assert.Equal(t, 1, n, "w is still pruned")
	assert.True(t, p.Exists("x"), "parent of a failed directory stays")
	assert.False(t, p.Exists("w"))
}

func TestScanDoesNotModifyTree(t *testing.T) {
	p := sampleTree()
	p.SetFault("e1/e2", storage.Fault{List: errors.New("permission denied")})

	files, unreadable, err := NewTreeWalker(p).Scan(context.Background(), rootOf(p))
	require.NoError(t, err)
	assert.Equal(t, []WipeRecord{
		{Name: "a.txt", Length: 1},
		{Name: "d1/b.txt", Length: 2},
		{Name: "d1/d2/c.txt", Length: 3},
		{Name: "z.txt", Length: 1},
	}, files)
	require.Len(t, unreadable, 1)
	assert.Equal(t, "e1/e2", unreadable[0].Name)

	for _, op := range p.Journal() {
		assert.Equal(t, storage.OpList, op.Kind)
	}
}

func TestScanRootInaccessible(t *testing.T) {
	p := sampleTree()
	p.SetFault(".", storage.Fault{List: errors.New("gone")})

	_, _, err := NewTreeWalker(p).Scan(context.Background(), rootOf(p))
	assert.ErrorIs(t, err, ErrAccess)
}
