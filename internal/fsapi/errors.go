package fsapi

import "errors"

// Sentinel errors a Filesystem implementation should return (or wrap) so
// the engine can translate failures into the right FTP reply code.
var (
	ErrNotExist    = errors.New("fsapi: path does not exist")
	ErrExist       = errors.New("fsapi: path already exists")
	ErrPermission  = errors.New("fsapi: permission denied")
	ErrNotEmpty    = errors.New("fsapi: directory not empty")
	ErrIsDirectory = errors.New("fsapi: path is a directory")
)
