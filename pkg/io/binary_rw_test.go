package io

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// badRW is a writer/reader that always fails.
type badRW struct{}

func (w *badRW) Write(p []byte) (int, error) {
	return 0, errors.New("it always fails")
}

func (w *badRW) Read(p []byte) (int, error) {
	return w.Write(p)
}

func TestWriteU64LE(t *testing.T) {
	var val uint64 = 0xbadc0de15a11dead
	bin := NewBufBinWriter()
	bin.WriteU64LE(val)
	assert.Nil(t, bin.Err)
	wrote := bin.Bytes()

	br := NewBinReaderFromBuf(wrote)
	readval := br.ReadU64LE()
	assert.Nil(t, br.Err)
	assert.Equal(t, val, readval)
}

func TestVarUint(t *testing.T) {
	values := []uint64{0, 1, 0xfc, 0xfd, 0x1000, 0xfffe, 0xffff, 0x10000, 0xfffffffe, 0xffffffff, 0x100000000, 1<<64 - 1}
	for _, val := range values {
		bin := NewBufBinWriter()
		bin.WriteVarUint(val)
		require.NoError(t, bin.Err)

		br := NewBinReaderFromBuf(bin.Bytes())
		require.Equal(t, val, br.ReadVarUint())
		require.NoError(t, br.Err)
	}
}

func TestVarBytesAndString(t *testing.T) {
	bin := NewBufBinWriter()
	bin.WriteVarBytes([]byte{0xde, 0xad})
	bin.WriteString("compact")
	require.NoError(t, bin.Err)

	br := NewBinReaderFromBuf(bin.Bytes())
	require.Equal(t, []byte{0xde, 0xad}, br.ReadVarBytes())
	require.Equal(t, "compact", br.ReadString())
	require.NoError(t, br.Err)

	t.Run("oversized", func(t *testing.T) {
		br := NewBinReaderFromBuf([]byte{0x05, 'a', 'b'})
		_ = br.ReadVarBytes(2)
		require.Error(t, br.Err)
	})
}

func TestWriterErrorLatching(t *testing.T) {
	bin := NewBinWriterFromIO(&badRW{})
	bin.WriteB(1)
	require.Error(t, bin.Err)

	err := bin.Err
	bin.WriteU64LE(42)
	bin.WriteString("more")
	// The first error sticks, further writes are no-ops.
	require.Equal(t, err, bin.Err)
}

func TestReaderErrorLatching(t *testing.T) {
	br := NewBinReaderFromIO(&badRW{})
	require.Equal(t, uint64(0), br.ReadU64LE())
	require.Error(t, br.Err)

	err := br.Err
	require.False(t, br.ReadBool())
	require.Equal(t, "", br.ReadString())
	require.Equal(t, err, br.Err)
}

func TestBufBinWriterReset(t *testing.T) {
	bin := NewBufBinWriter()
	bin.WriteU32LE(1)
	require.NotEmpty(t, bin.Bytes())

	// Drained buffer rejects writes until Reset.
	bin.WriteU32LE(2)
	require.Error(t, bin.Err)

	bin.Reset()
	bin.WriteU32LE(3)
	require.NoError(t, bin.Err)
	require.Len(t, bin.Bytes(), 4)
}
