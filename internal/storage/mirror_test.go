package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMirrorCopiesShape(t *testing.T) {
	src := NewMemoryProvider()
	src.AddFile("a.txt", []byte("hello"))
	src.AddFile("d/b.bin", []byte{1, 2, 3})
	src.AddDir("d/empty")
	denied := errors.New("permission denied")
	src.AddFile("locked/x", []byte("x"))
	src.SetFault("locked", Fault{List: denied})

	m, err := Mirror(context.Background(), src, 0)
	require.NoError(t, err)

	data, ok := m.ReadFile("a.txt")
	require.True(t, ok)
	assert.Equal(t, make([]byte, 5), data, "content is not copied")
	data, ok = m.ReadFile("d/b.bin")
	require.True(t, ok)
	assert.Len(t, data, 3)
	assert.True(t, m.Exists("d/empty"))
	assert.True(t, m.Exists("locked"))

	_, err = m.ListChildren(context.Background(), Handle{Path: "locked", Dir: true})
	assert.ErrorIs(t, err, denied)

	for _, op := range src.Journal() {
		assert.Equal(t, OpList, op.Kind, "source is only listed")
	}
}

func TestMirrorLimit(t *testing.T) {
	src := NewMemoryProvider()
	src.AddFile("a", make([]byte, 10))
	src.AddFile("b", make([]byte, 10))

	_, err := Mirror(context.Background(), src, 15)
	assert.ErrorIs(t, err, ErrMirrorTooLarge)

	_, err = Mirror(context.Background(), src, 20)
	assert.NoError(t, err)
}

func TestMirrorRootError(t *testing.T) {
	src := NewMemoryProvider()
	src.SetFault(".", Fault{List: errors.New("gone")})
	_, err := Mirror(context.Background(), src, 0)
	assert.Error(t, err)
}
