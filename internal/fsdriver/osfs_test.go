package fsdriver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ashgrove/miniftpd/internal/fsapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOsFS_MkdirStatUnlink(t *testing.T) {
	dir := t.TempDir()
	fsys, err := Open(dir)
	require.NoError(t, err)
	defer fsys.Close()

	require.NoError(t, fsys.Mkdir("/sub"))

	info, err := fsys.Stat("/sub")
	require.NoError(t, err)
	assert.True(t, info.IsDir)

	require.NoError(t, fsys.Unlink("/sub"))
	_, err = fsys.Stat("/sub")
	assert.ErrorIs(t, err, fsapi.ErrNotExist)
}

func TestOsFS_WriteReadRename(t *testing.T) {
	dir := t.TempDir()
	fsys, err := Open(dir)
	require.NoError(t, err)
	defer fsys.Close()

	f, err := fsys.Open("/a.bin", fsapi.ModeWriteCreate)
	require.NoError(t, err)
	_, err = f.Write([]byte("hello world"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, fsys.Rename("/a.bin", "/b.bin"))

	rf, err := fsys.Open("/b.bin", fsapi.ModeRead)
	require.NoError(t, err)
	buf := make([]byte, 32)
	n, err := rf.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(buf[:n]))
	require.NoError(t, rf.Close())
}

func TestOsFS_OpenDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.bin"), []byte("xx"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))

	fsys, err := Open(dir)
	require.NoError(t, err)
	defer fsys.Close()

	h, err := fsys.OpenDir("/")
	require.NoError(t, err)
	defer h.Close()

	names := map[string]bool{}
	for {
		info, err := h.ReadDir()
		require.NoError(t, err)
		if info.Name == "" {
			break
		}
		names[info.Name] = true
	}
	assert.True(t, names["file.bin"])
	assert.True(t, names["sub"])
}

func TestOsFS_GetFree(t *testing.T) {
	dir := t.TempDir()
	fsys, err := Open(dir)
	require.NoError(t, err)
	defer fsys.Close()

	free, err := fsys.GetFree("")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, free.TotalClusters, uint32(0))
}
