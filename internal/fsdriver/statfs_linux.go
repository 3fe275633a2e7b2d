//go:build linux

package fsdriver

import (
	"syscall"

	"github.com/ashgrove/miniftpd/internal/fsapi"
)

type statfsResult struct {
	freeBlocks  uint64
	blockSize   int64
	totalBlocks uint64
}

func statfs(path string, out *statfsResult) error {
	var s syscall.Statfs_t
	if err := syscall.Statfs(path, &s); err != nil {
		return err
	}
	out.freeBlocks = s.Bfree
	out.blockSize = s.Bsize
	out.totalBlocks = s.Blocks
	return nil
}

func (s statfsResult) toFreeSpace() fsapi.FreeSpace {
	// A "cluster" here is one filesystem block; cluster_sectors scales it
	// to fsapi.SectorSize-sized units the way SITE FREE expects.
	sectorsPerCluster := uint32(1)
	if s.blockSize > fsapi.SectorSize {
		sectorsPerCluster = uint32(s.blockSize / fsapi.SectorSize)
	}
	return fsapi.FreeSpace{
		FreeClusters:   uint32(s.freeBlocks),
		ClusterSectors: sectorsPerCluster,
		TotalClusters:  uint32(s.totalBlocks),
	}
}
