package ftpd

import (
	"fmt"

	"github.com/ashgrove/miniftpd/internal/fsapi"
	"github.com/ashgrove/miniftpd/internal/wire"
)

// dirEntryFormatter renders one directory entry's listing line, including
// its trailing CRLF.
type dirEntryFormatter func(fsapi.Info) string

// streamDirectory opens the current working directory and the negotiated
// data channel, then writes one formatted line per entry before sending the
// terminal control reply. Shared by LIST, NLST and MLSD, which differ only
// in line format (§9, "LIST vs NLST").
func (sess *Session) streamDirectory(format dirEntryFormatter) Result {
	dh, err := sess.server.fs.OpenDir(sess.cwd)
	if err != nil {
		return sess.reply(450, "Could not list directory")
	}
	defer dh.Close()

	conn, res, ok := sess.openDataForWrite("Opening data connection")
	if !ok {
		return res
	}
	defer func() {
		conn.Close()
		sess.data.Close()
	}()

	for {
		info, err := dh.ReadDir()
		if err != nil {
			return sess.reply(451, "Error reading directory")
		}
		if info.Name == "" {
			break
		}
		if _, err := conn.Write([]byte(format(info))); err != nil {
			return sess.reply(426, "Connection closed; transfer aborted")
		}
	}
	return sess.reply(226, "Directory send OK.")
}

// handleLIST emits the EPLF-like format: directories as "+/,\t<name>",
// files as "+r,s<size>,\t<name>".
func handleLIST(sess *Session, _ string) Result {
	return sess.streamDirectory(func(info fsapi.Info) string {
		if info.IsDir {
			return fmt.Sprintf("+/,\t%s\r\n", info.Name)
		}
		return fmt.Sprintf("+r,s%d,\t%s\r\n", info.Size, info.Name)
	})
}

// handleNLST emits bare names only, one per line.
func handleNLST(sess *Session, _ string) Result {
	return sess.streamDirectory(func(info fsapi.Info) string {
		return fmt.Sprintf("%s\r\n", info.Name)
	})
}

// handleMLSD emits the RFC 3659 machine-listing fact set.
func handleMLSD(sess *Session, _ string) Result {
	return sess.streamDirectory(func(info fsapi.Info) string {
		kind := "file"
		if info.IsDir {
			kind = "dir"
		}
		ts := wire.FormatMDTM(wire.FATDateTime{Date: info.Date, Time: info.Time})
		return fmt.Sprintf("Type=%s;Size=%d;Modify=%s; %s\r\n", kind, info.Size, ts, info.Name)
	})
}
