//go:build !linux

package fsdriver

import "github.com/ashgrove/miniftpd/internal/fsapi"

type statfsResult struct{}

func statfs(path string, out *statfsResult) error {
	return nil
}

func (s statfsResult) toFreeSpace() fsapi.FreeSpace {
	return fsapi.FreeSpace{}
}
