// Package fsdriver adapts the local operating-system filesystem to the
// fsapi.Filesystem contract, jailing every operation inside a root
// directory the way the source's single-mount embedded filesystem jails
// every path under its one drive letter.
//
// This is the default Filesystem implementation used by cmd/miniftpd and by
// the engine's own tests; a real embedded deployment would instead plug in
// a FAT/SD-card driver satisfying the same interface.
package fsdriver

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ashgrove/miniftpd/internal/fsapi"
)

// OsFS roots all Filesystem operations at rootPath using os.Root, which
// provides kernel-enforced containment against ../ escapes even if a
// caller's path algebra lets one slip through.
type OsFS struct {
	root *os.Root
}

// Open creates a filesystem rooted at rootPath. rootPath must already exist
// and be a directory.
func Open(rootPath string) (*OsFS, error) {
	info, err := os.Stat(rootPath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.New("fsdriver: root path is not a directory")
	}
	resolved, err := filepath.EvalSymlinks(rootPath)
	if err != nil {
		return nil, err
	}
	root, err := os.OpenRoot(resolved)
	if err != nil {
		return nil, err
	}
	return &OsFS{root: root}, nil
}

// Close releases the root directory handle.
func (o *OsFS) Close() error {
	return o.root.Close()
}

// rel converts an absolute virtual path ("/a/b") into a path relative to
// the root handle ("a/b", or "." for the root itself).
func rel(path string) string {
	p := strings.TrimPrefix(path, "/")
	if p == "" {
		return "."
	}
	return p
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return fsapi.ErrNotExist
	case errors.Is(err, fs.ErrExist):
		return fsapi.ErrExist
	case errors.Is(err, fs.ErrPermission):
		return fsapi.ErrPermission
	default:
		return err
	}
}

func toInfo(name string, fi fs.FileInfo) fsapi.Info {
	date, tm := packModTime(fi.ModTime())
	return fsapi.Info{
		Name:  name,
		Size:  fi.Size(),
		Date:  date,
		Time:  tm,
		IsDir: fi.IsDir(),
	}
}

func packModTime(t time.Time) (uint16, uint16) {
	t = t.UTC()
	year := t.Year()
	if year < 1980 {
		year = 1980
	}
	date := uint16((year-1980)<<9 | int(t.Month())<<5 | t.Day())
	tm := uint16(t.Hour()<<11 | t.Minute()<<5 | t.Second()/2)
	return date, tm
}

func unpackModTime(date, tm uint16) time.Time {
	year := int(date>>9) + 1980
	month := int((date >> 5) & 0x0F)
	day := int(date & 0x1F)
	hour := int(tm >> 11)
	min := int((tm >> 5) & 0x3F)
	sec := int(tm&0x1F) * 2
	if month == 0 {
		month = 1
	}
	if day == 0 {
		day = 1
	}
	return time.Date(year, time.Month(month), day, hour, min, sec, 0, time.UTC)
}

// Stat implements fsapi.Filesystem.
func (o *OsFS) Stat(path string) (fsapi.Info, error) {
	fi, err := o.root.Stat(rel(path))
	if err != nil {
		return fsapi.Info{}, translate(err)
	}
	return toInfo(filepath.Base(path), fi), nil
}

type dirHandle struct {
	entries []fs.DirEntry
	idx     int
	f       *os.File
}

func (d *dirHandle) ReadDir() (fsapi.Info, error) {
	if d.idx >= len(d.entries) {
		return fsapi.Info{}, nil // sentinel: empty Name means end
	}
	entry := d.entries[d.idx]
	d.idx++
	fi, err := entry.Info()
	if err != nil {
		return fsapi.Info{}, translate(err)
	}
	return toInfo(entry.Name(), fi), nil
}

func (d *dirHandle) Close() error {
	return d.f.Close()
}

// OpenDir implements fsapi.Filesystem.
func (o *OsFS) OpenDir(path string) (fsapi.DirHandle, error) {
	f, err := o.root.Open(rel(path))
	if err != nil {
		return nil, translate(err)
	}
	entries, err := f.ReadDir(-1)
	if err != nil {
		f.Close()
		return nil, translate(err)
	}
	return &dirHandle{entries: entries, f: f}, nil
}

type osFile struct {
	f *os.File
}

func (o *osFile) Read(buf []byte) (int, error) {
	n, err := o.f.Read(buf)
	if errors.Is(err, io.EOF) {
		// io.EOF surfaces as (0, nil) per the fsapi.File contract.
		return n, nil
	}
	return n, err
}

func (o *osFile) Write(buf []byte) (int, error) {
	return o.f.Write(buf)
}

func (o *osFile) Close() error {
	return o.f.Close()
}

// Open implements fsapi.Filesystem.
func (o *OsFS) Open(path string, mode fsapi.OpenMode) (fsapi.File, error) {
	var flag int
	switch mode {
	case fsapi.ModeRead:
		flag = os.O_RDONLY
	case fsapi.ModeWriteCreate:
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := o.root.OpenFile(rel(path), flag, 0644)
	if err != nil {
		return nil, translate(err)
	}
	return &osFile{f: f}, nil
}

// Unlink implements fsapi.Filesystem. It removes files and empty
// directories alike, matching the source's single unlink() entry point.
func (o *OsFS) Unlink(path string) error {
	return translate(o.root.Remove(rel(path)))
}

// Mkdir implements fsapi.Filesystem.
func (o *OsFS) Mkdir(path string) error {
	return translate(o.root.Mkdir(rel(path), 0755))
}

// Rename implements fsapi.Filesystem.
func (o *OsFS) Rename(oldPath, newPath string) error {
	return translate(o.root.Rename(rel(oldPath), rel(newPath)))
}

// Utime implements fsapi.Filesystem, setting a file's modification time
// from a packed FAT date/time pair.
func (o *OsFS) Utime(path string, info fsapi.Info) error {
	t := unpackModTime(info.Date, info.Time)
	f, err := o.root.OpenFile(rel(path), os.O_RDONLY, 0)
	if err != nil {
		return translate(err)
	}
	defer f.Close()
	return translate(f.Chtimes(t, t))
}

// GetFree implements fsapi.Filesystem. drive is ignored: OsFS serves a
// single mounted root, the way the source serves a single drive letter.
func (o *OsFS) GetFree(drive string) (fsapi.FreeSpace, error) {
	var stat statfsResult
	if err := statfs(o.root.Name(), &stat); err != nil {
		return fsapi.FreeSpace{}, err
	}
	return stat.toFreeSpace(), nil
}
