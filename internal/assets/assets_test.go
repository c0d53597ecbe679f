package assets

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"
)

func spirv(words ...uint32) []byte {
	b := make([]byte, 4*(len(words)+1))
	binary.LittleEndian.PutUint32(b, spirvMagic)
	for i, w := range words {
		binary.LittleEndian.PutUint32(b[4*(i+1):], w)
	}
	return b
}

func TestBytesToBytecode(t *testing.T) {
	code, err := BytesToBytecode(spirv(0x00010000, 0xdeadbeef))
	require.NoError(t, err)
	require.Equal(t, []uint32{spirvMagic, 0x00010000, 0xdeadbeef}, code)
}

func TestBytesToBytecodeRejects(t *testing.T) {
	for _, tc := range []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"unaligned", []byte{0x03, 0x02, 0x23}},
		{"magic", []byte{1, 2, 3, 4}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := BytesToBytecode(tc.data)
			require.Error(t, err)
		})
	}
}

func TestReadShaderMissing(t *testing.T) {
	_, err := ReadShader(filepath.Join(t.TempDir(), "missing.spv"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestWatcherFlagsSpirvWrites(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir, log.New(io.Discard))
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shader.frag.spv"), spirv(), 0o644))

	require.Eventually(t, w.TakeDirty, 5*time.Second, 10*time.Millisecond)
}
