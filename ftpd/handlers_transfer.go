package ftpd

import (
	"fmt"
	"io"
	"net"
	"time"

	"github.com/ashgrove/miniftpd/internal/datachan"
	"github.com/ashgrove/miniftpd/internal/fsapi"
	"github.com/ashgrove/miniftpd/internal/pathutil"
	"github.com/ashgrove/miniftpd/internal/ratelimit"
	"github.com/ashgrove/miniftpd/internal/wire"
)

func handlePASV(sess *Session, _ string) Result {
	if !sess.server.cfg.UsePassiveMode {
		return sess.reply(421, "Passive mode not available")
	}
	if _, err := sess.data.ListenPassive(int(sess.dataPort)); err != nil {
		sess.server.setError(ErrDataListenerBind)
		return sess.reply(425, "Can't open passive connection")
	}

	var quartet [4]byte
	if ip4 := sess.serverIP.To4(); ip4 != nil {
		copy(quartet[:], ip4)
	}
	return sess.reply(227, fmt.Sprintf("Entering Passive Mode (%s).", wire.FormatPASVTuple(quartet, sess.dataPort)))
}

func handlePORT(sess *Session, arg string) Result {
	ip, port, err := wire.ParsePORTTuple(arg)
	if err != nil {
		return sess.reply(501, "Malformed PORT argument")
	}
	sess.data.SetActive(net.IP(ip[:]), int(port))
	return sess.reply(200, "PORT command successful")
}

// openDataForWrite sends the 150 reply and opens the negotiated data
// connection. ok is false if the caller should return res as-is without
// attempting a transfer.
func (sess *Session) openDataForWrite(message string) (conn net.Conn, res Result, ok bool) {
	if sess.data.Mode() == datachan.ModeUnset {
		return nil, sess.reply(425, "Use PORT or PASV first"), false
	}
	sess.reply(150, message)
	conn, err := sess.data.Open()
	if err != nil {
		sess.data.Close()
		return nil, sess.reply(425, "Can't open data connection"), false
	}
	return conn, ResultOk, true
}

// handleRETR streams a file to the data channel in chunks sized to the
// session's transfer buffer (§4.5, "RETR streaming").
func handleRETR(sess *Session, arg string) Result {
	path := pathutil.Join(sess.cwd, arg)
	info, err := sess.server.fs.Stat(path)
	if err != nil || info.IsDir {
		return sess.reply(550, "File not found")
	}

	f, err := sess.server.fs.Open(path, fsapi.ModeRead)
	if err != nil {
		return sess.reply(550, "Failed to open file")
	}
	defer f.Close()

	conn, res, ok := sess.openDataForWrite(fmt.Sprintf("Connected to port %d, %d bytes", sess.dataPort, info.Size))
	if !ok {
		return res
	}
	defer func() {
		conn.Close()
		sess.data.Close()
	}()

	var w io.Writer = conn
	if sess.server.globalLimiter != nil {
		w = ratelimit.NewWriter(w, sess.server.globalLimiter)
	}
	if sess.sessionLimiter != nil {
		w = ratelimit.NewWriter(w, sess.sessionLimiter)
	}

	for {
		n, rerr := f.Read(sess.xferBuf)
		if n > 0 {
			if _, werr := w.Write(sess.xferBuf[:n]); werr != nil {
				sess.server.stats.FilesSentFail.Add(1)
				return sess.reply(426, "Connection closed; transfer aborted")
			}
			sess.bytesTransferred += int64(n)
		}
		if rerr != nil {
			sess.server.stats.FilesSentFail.Add(1)
			return sess.reply(451, "Local error reading file")
		}
		if n == 0 {
			break
		}
	}

	sess.server.stats.FilesSentOK.Add(1)
	return sess.reply(226, "File successfully transferred")
}

// handleSTOR receives a file from the data channel, accumulating segments
// into the sector-aligned transfer buffer and writing only full buffers
// except at end-of-stream (§4.5, "STOR streaming").
func handleSTOR(sess *Session, arg string) Result {
	path := pathutil.Join(sess.cwd, arg)
	f, err := sess.server.fs.Open(path, fsapi.ModeWriteCreate)
	if err != nil {
		return sess.reply(550, "Failed to create file")
	}

	conn, res, ok := sess.openDataForWrite(fmt.Sprintf("Connected to port %d", sess.dataPort))
	if !ok {
		f.Close()
		return res
	}
	defer func() {
		conn.Close()
		sess.data.Close()
	}()

	_ = conn.SetReadDeadline(time.Now().Add(sess.server.cfg.StorRecvTimeout))

	var r io.Reader = conn
	if sess.server.globalLimiter != nil {
		r = ratelimit.NewReader(r, sess.server.globalLimiter)
	}
	if sess.sessionLimiter != nil {
		r = ratelimit.NewReader(r, sess.sessionLimiter)
	}

	bufCap := len(sess.xferBuf)
	fill := 0
	fail := false

	flush := func() {
		if fill == 0 || fail {
			return
		}
		if _, werr := f.Write(sess.xferBuf[:fill]); werr != nil {
			fail = true
			return
		}
		fill = 0
	}

	segment := make([]byte, 64*1024)
readLoop:
	for {
		_ = conn.SetReadDeadline(time.Now().Add(sess.server.cfg.StorRecvTimeout))
		n, rerr := r.Read(segment)
		if n > 0 {
			data := segment[:n]
			sess.bytesTransferred += int64(n)
			for len(data) > 0 && !fail {
				if fill == 0 && len(data) >= bufCap {
					if _, werr := f.Write(data[:bufCap]); werr != nil {
						fail = true
						break
					}
					data = data[bufCap:]
					continue
				}
				space := bufCap - fill
				take := space
				if take > len(data) {
					take = len(data)
				}
				copy(sess.xferBuf[fill:], data[:take])
				fill += take
				data = data[take:]
				if fill == bufCap {
					flush()
				}
			}
		}
		if fail {
			break readLoop
		}
		if rerr != nil {
			if rerr == io.EOF {
				break readLoop
			}
			if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				fail = true
				break readLoop
			}
			fail = true
			break readLoop
		}
		if n == 0 {
			break readLoop
		}
	}

	if !fail {
		flush()
	}
	f.Close()

	if fail {
		sess.server.stats.FilesReceivedFail.Add(1)
		return sess.reply(426, "Connection closed; transfer aborted")
	}
	sess.server.stats.FilesReceivedOK.Add(1)
	return sess.reply(226, "File successfully transferred")
}
