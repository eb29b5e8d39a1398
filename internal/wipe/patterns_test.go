package wipe

import (
	"bytes"
	"errors"
	"regexp"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOrderAndContent(t *testing.T) {
	g := NewPatternGenerator(testID)
	patterns, err := g.Generate(10240)
	require.NoError(t, err)
	defer ReleasePatterns(patterns)

	require.Len(t, patterns, 4)
	for i, p := range patterns {
		assert.Equal(t, PassOrder[i], p.Tag)
		assert.Len(t, p.Block, BlockSize)
	}

	assert.Equal(t, make([]byte, BlockSize), patterns[0].Block)
	assert.Equal(t, bytes.Repeat([]byte{0xFF}, BlockSize), patterns[2].Block)
	assert.False(t, bytes.Equal(patterns[1].Block, make([]byte, BlockSize)))

	id := []byte(testID)
	stamp := patterns[3].Block
	assert.Equal(t, id, stamp[:len(id)])
	assert.Equal(t, id, stamp[len(id):2*len(id)])
	tail := BlockSize % len(id)
	assert.Equal(t, id[:tail], stamp[BlockSize-tail:])
}

func TestGenerateFreshRandomPerCall(t *testing.T) {
	g := NewPatternGenerator(testID)

	first, err := g.Generate(BlockSize)
	require.NoError(t, err)
	firstRandom := bytes.Clone(first[1].Block)
	ReleasePatterns(first)

	second, err := g.Generate(BlockSize)
	require.NoError(t, err)
	defer ReleasePatterns(second)

	assert.False(t, bytes.Equal(firstRandom, second[1].Block), "random block reused across files")

	other, err := NewPatternGenerator(NewCertificateID()).Generate(BlockSize)
	require.NoError(t, err)
	defer ReleasePatterns(other)
	assert.False(t, bytes.Equal(second[1].Block, other[1].Block), "random block reused across sessions")
}

func TestGenerateZeroBlockAfterPoolReuse(t *testing.T) {
	g := NewPatternGenerator(testID)
	for i := 0; i < 5; i++ {
		patterns, err := g.Generate(1)
		require.NoError(t, err)
		assert.Equal(t, make([]byte, BlockSize), patterns[0].Block)
		ReleasePatterns(patterns)
	}
}

func TestGenerateErrors(t *testing.T) {
	_, err := NewPatternGenerator(testID).Generate(-1)
	assert.Error(t, err)

	_, err = NewPatternGenerator("").Generate(1)
	assert.Error(t, err)

	g := NewPatternGenerator(testID)
	g.random = iotest.ErrReader(errors.New("entropy exhausted"))
	_, err = g.Generate(1)
	assert.ErrorContains(t, err, "entropy exhausted")
}

func TestCertificateIDFormat(t *testing.T) {
	re := regexp.MustCompile(`^CERT-\d+-[0-9a-f]{8}$`)
	seen := map[CertificateID]bool{}
	for i := 0; i < 100; i++ {
		id := NewCertificateID()
		assert.Regexp(t, re, id.String())
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}

	at := time.UnixMilli(1700000000123)
	assert.Contains(t, newCertificateID(at).String(), "CERT-1700000000123-")
}

func TestBlockPoolClearsOnPut(t *testing.T) {
	buf := getBlock()
	require.Len(t, buf, BlockSize)
	fillBlock(buf, 0xAB)
	putBlock(buf)

	for i := 0; i < 3; i++ {
		b := getBlock()
		assert.Equal(t, make([]byte, BlockSize), b)
		putBlock(b)
	}

	// Блок чужого размера в пул не попадает
	odd := make([]byte, 100)
	fillBlock(odd, 0xCD)
	putBlock(odd)
	assert.Len(t, getBlock(), BlockSize)
}
