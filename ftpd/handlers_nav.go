package ftpd

import (
	"fmt"
	"strings"

	"github.com/ashgrove/miniftpd/internal/fsapi"
	"github.com/ashgrove/miniftpd/internal/pathutil"
	"github.com/ashgrove/miniftpd/internal/wire"
)

func handlePWD(sess *Session, _ string) Result {
	return sess.reply(257, fmt.Sprintf("%q is your current directory", sess.cwd))
}

func handleCWD(sess *Session, arg string) Result {
	next, ok := pathutil.Build(sess.cwd, arg, maxCwdLen)
	if !ok {
		return sess.reply(550, "Path too long")
	}
	if next != pathutil.Root {
		info, err := sess.server.fs.Stat(next)
		if err != nil || !info.IsDir {
			return sess.reply(550, "Failed to change directory")
		}
	}
	sess.cwd = next
	return sess.reply(250, "Directory successfully changed")
}

// handleCDUP hard-resets cwd to root rather than going up one level — this
// deviates from RFC 959 but matches what both source variants do.
func handleCDUP(sess *Session, _ string) Result {
	sess.cwd = pathutil.Root
	return sess.reply(250, "Directory successfully changed")
}

func handleTYPE(sess *Session, arg string) Result {
	switch arg {
	case "A", "I":
		sess.transferType = arg[0]
		return sess.reply(200, "Type set to "+arg)
	default:
		return sess.reply(504, "Unsupported type")
	}
}

func handleSTRU(sess *Session, arg string) Result {
	if arg != "F" {
		return sess.reply(504, "Unsupported structure")
	}
	return sess.reply(200, "Structure set to F")
}

func handleMODE(sess *Session, arg string) Result {
	if arg != "S" {
		return sess.reply(504, "Unsupported mode")
	}
	return sess.reply(200, "Mode set to S")
}

func handleMKD(sess *Session, arg string) Result {
	path := pathutil.Join(sess.cwd, arg)
	if _, err := sess.server.fs.Stat(path); err == nil {
		return sess.reply(521, "Directory already exists")
	}
	if err := sess.server.fs.Mkdir(path); err != nil {
		return sess.reply(550, "Failed to create directory")
	}
	return sess.reply(257, fmt.Sprintf("%q created", path))
}

func handleRMD(sess *Session, arg string) Result {
	path := pathutil.Join(sess.cwd, arg)
	info, err := sess.server.fs.Stat(path)
	if err != nil {
		return sess.reply(550, "Directory not found")
	}
	if !info.IsDir {
		return sess.reply(501, "Not a directory")
	}
	if err := sess.server.fs.Unlink(path); err != nil {
		return sess.reply(550, "Failed to remove directory")
	}
	return sess.reply(250, "Directory successfully removed")
}

func handleDELE(sess *Session, arg string) Result {
	path := pathutil.Join(sess.cwd, arg)
	info, err := sess.server.fs.Stat(path)
	if err != nil {
		return sess.reply(550, "File not found")
	}
	if info.IsDir {
		return sess.reply(450, "Cannot delete a directory")
	}
	if err := sess.server.fs.Unlink(path); err != nil {
		return sess.reply(550, "Failed to delete file")
	}
	return sess.reply(250, "File successfully deleted")
}

func handleRNFR(sess *Session, arg string) Result {
	path := pathutil.Join(sess.cwd, arg)
	if _, err := sess.server.fs.Stat(path); err != nil {
		return sess.reply(550, "File not found")
	}
	sess.renameFrom = path
	return sess.reply(350, "File exists, ready for destination name")
}

func handleRNTO(sess *Session, arg string) Result {
	if sess.renameFrom == "" {
		return sess.reply(503, "Need RNFR before RNTO")
	}
	dest := pathutil.Join(sess.cwd, arg)
	err := sess.server.fs.Rename(sess.renameFrom, dest)
	sess.renameFrom = ""
	if err != nil {
		return sess.reply(553, "Rename failed")
	}
	return sess.reply(250, "File successfully renamed or moved")
}

// handleMDTM either sets a file's modification time (argument begins with a
// 14-digit timestamp) or queries it (bare filename).
func handleMDTM(sess *Session, arg string) Result {
	dt, filename, err := wire.ParseMDTMArg(arg)
	path := pathutil.Join(sess.cwd, filename)

	if err != nil {
		info, serr := sess.server.fs.Stat(path)
		if serr != nil {
			return sess.reply(550, "File not found")
		}
		return sess.reply(213, wire.FormatMDTM(wire.FATDateTime{Date: info.Date, Time: info.Time}))
	}

	if uerr := sess.server.fs.Utime(path, fsapi.Info{Date: dt.Date, Time: dt.Time}); uerr != nil {
		return sess.reply(550, "Failed to set modification time")
	}
	return sess.reply(200, "Ok")
}

func handleSIZE(sess *Session, arg string) Result {
	path := pathutil.Join(sess.cwd, arg)
	info, err := sess.server.fs.Stat(path)
	if err != nil || info.IsDir {
		return sess.reply(550, "Could not get file size")
	}
	return sess.reply(213, fmt.Sprintf("%d", info.Size))
}

// handleSITE implements only the FREE subcommand, reporting free/total
// space derived from the filesystem collaborator's cluster accounting.
func handleSITE(sess *Session, arg string) Result {
	if strings.ToUpper(strings.TrimSpace(arg)) != "FREE" {
		return sess.reply(500, "Unknown SITE command")
	}
	free, err := sess.server.fs.GetFree("/")
	if err != nil {
		return sess.reply(550, "Failed to get free space")
	}
	freeMB := uint64(free.FreeClusters) * uint64(free.ClusterSectors) * fsapi.SectorSize / (1024 * 1024)
	totalMB := uint64(free.TotalClusters) * uint64(free.ClusterSectors) * fsapi.SectorSize / (1024 * 1024)
	return sess.reply(211, fmt.Sprintf("%d MB free of %d MB", freeMB, totalMB))
}
