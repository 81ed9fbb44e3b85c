package mmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLogicalBlockSize(t *testing.T) {
	original := LogicalBlockSize()
	defer SetLogicalBlockSize(original)

	t.Run("rejects non power of two", func(t *testing.T) {
		ok := SetLogicalBlockSize(1000)
		assert.False(t, ok)
		assert.Equal(t, original, LogicalBlockSize())
	})

	t.Run("accepts power of two", func(t *testing.T) {
		ok := SetLogicalBlockSize(4096)
		require.True(t, ok)
		assert.EqualValues(t, 4096, LogicalBlockSize())
	})

	t.Run("rejects zero", func(t *testing.T) {
		ok := SetLogicalBlockSize(0)
		assert.False(t, ok)
	})
}

func TestOpen_CreatesOneBlock(t *testing.T) {
	SetLogicalBlockSize(4096)
	defer SetLogicalBlockSize(defaultLogicalBlockSize)

	path := filepath.Join(t.TempDir(), "fresh.dat")

	m, err := Open(path)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, 4096, m.Size())
	assert.Len(t, m.Pointer(), 4096)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.EqualValues(t, 4096, info.Size())
}

func TestOpen_ReopensExisting(t *testing.T) {
	SetLogicalBlockSize(4096)
	defer SetLogicalBlockSize(defaultLogicalBlockSize)

	path := filepath.Join(t.TempDir(), "reopen.dat")

	m1, err := Open(path)
	require.NoError(t, err)
	m1.Pointer()[0] = 0xAB
	require.NoError(t, m1.Close())

	m2, err := Open(path)
	require.NoError(t, err)
	defer m2.Close()

	assert.Equal(t, byte(0xAB), m2.Pointer()[0])
}

func TestGrow_ExtendsByOneBlock(t *testing.T) {
	SetLogicalBlockSize(4096)
	defer SetLogicalBlockSize(defaultLogicalBlockSize)

	path := filepath.Join(t.TempDir(), "grow.dat")

	m, err := Open(path)
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Grow())
	assert.Equal(t, 8192, m.Size())
	assert.Len(t, m.Pointer(), 8192)

	// The new bytes must be zero.
	for _, b := range m.Pointer()[4096:] {
		require.Zero(t, b)
	}
}

func TestGrowUntil_GrowsRepeatedly(t *testing.T) {
	SetLogicalBlockSize(4096)
	defer SetLogicalBlockSize(defaultLogicalBlockSize)

	path := filepath.Join(t.TempDir(), "growuntil.dat")

	m, err := Open(path)
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.GrowUntil(10000))
	assert.Equal(t, 12288, m.Size())
}

func TestTryGrow_FailsWhenLocked(t *testing.T) {
	SetLogicalBlockSize(4096)
	defer SetLogicalBlockSize(defaultLogicalBlockSize)

	path := filepath.Join(t.TempDir(), "trygrow.dat")

	m, err := Open(path)
	require.NoError(t, err)
	defer m.Close()

	m.growMu.Lock()
	ok, err := m.TryGrow()
	m.growMu.Unlock()

	require.NoError(t, err)
	assert.False(t, ok)
}
