package ftpd_test

import (
	"errors"
	"sync"

	"github.com/ashgrove/miniftpd/internal/fsapi"
)

// recordingFS is a minimal fsapi.Filesystem that records the size of every
// Write call, used to verify the STOR buffering invariant (testable
// property 6 / scenario S3) precisely, independent of the real OS
// filesystem's own write-coalescing behavior.
type recordingFS struct {
	mu     sync.Mutex
	writes []int
}

func (f *recordingFS) Stat(path string) (fsapi.Info, error) {
	return fsapi.Info{}, fsapi.ErrNotExist
}

func (f *recordingFS) OpenDir(path string) (fsapi.DirHandle, error) {
	return nil, errors.New("recordingFS: OpenDir not supported")
}

func (f *recordingFS) Open(path string, mode fsapi.OpenMode) (fsapi.File, error) {
	return &recordingFile{fs: f}, nil
}

func (f *recordingFS) Unlink(path string) error { return fsapi.ErrNotExist }
func (f *recordingFS) Mkdir(path string) error  { return errors.New("recordingFS: Mkdir not supported") }
func (f *recordingFS) Rename(oldPath, newPath string) error {
	return errors.New("recordingFS: Rename not supported")
}
func (f *recordingFS) Utime(path string, info fsapi.Info) error {
	return errors.New("recordingFS: Utime not supported")
}
func (f *recordingFS) GetFree(drive string) (fsapi.FreeSpace, error) {
	return fsapi.FreeSpace{}, errors.New("recordingFS: GetFree not supported")
}

type recordingFile struct {
	fs *recordingFS
}

func (r *recordingFile) Read(buf []byte) (int, error) { return 0, nil }

func (r *recordingFile) Write(buf []byte) (int, error) {
	r.fs.mu.Lock()
	r.fs.writes = append(r.fs.writes, len(buf))
	r.fs.mu.Unlock()
	return len(buf), nil
}

func (r *recordingFile) Close() error { return nil }
