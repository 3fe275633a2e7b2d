package ftpd

import (
	"bufio"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ashgrove/miniftpd/internal/datachan"
	"github.com/ashgrove/miniftpd/internal/ratelimit"
	"github.com/ashgrove/miniftpd/internal/wire"
)

// userState is the login sub-state machine USER/PASS drive.
type userState int

const (
	stateAnonymous userState = iota
	stateAwaitingPassword
	stateLoggedIn
)

// maxArgLen bounds a command argument, matching the source's LFN+8 scratch
// buffers for cwd/rename_from/command_args.
const maxArgLen = 255 + 8

// maxCwdLen bounds the working-directory buffer the path algebra commits
// into.
const maxCwdLen = 255 + 8

// Session is a single client's per-connection state (§3). Every field is
// exclusively owned by the worker goroutine running serve(); the
// supervisor only reads busy and writes stopFlag/pending through the slot,
// never through the Session itself.
type Session struct {
	server *Server
	slot   *slot
	conn   net.Conn
	reader *bufio.Reader

	// id identifies this session in hook callbacks and log lines; it has no
	// protocol meaning and is never sent to the client.
	id string

	serverIP net.IP
	clientIP net.IP

	dataPort uint16
	data     *datachan.Manager

	user      string
	userState userState

	cwd        string
	renameFrom string

	transferType byte // 'A' or 'I'

	xferBuf []byte

	sessionLimiter *ratelimit.Limiter

	bytesTransferred int64
}

func newSession(server *Server, sl *slot, conn net.Conn) *Session {
	host, _, _ := net.SplitHostPort(conn.RemoteAddr().String())
	localHost, _, _ := net.SplitHostPort(conn.LocalAddr().String())

	var limiter *ratelimit.Limiter
	if server.cfg.BandwidthLimitPerSession > 0 {
		limiter = ratelimit.New(server.cfg.BandwidthLimitPerSession)
	}

	return &Session{
		server:       server,
		slot:         sl,
		conn:         conn,
		id:           uuid.NewString(),
		reader:       bufio.NewReader(conn),
		serverIP:     net.ParseIP(localHost),
		clientIP:     net.ParseIP(host),
		dataPort:     sl.nextDataPort(server.cfg.DataPortBase),
		data: datachan.New(datachan.Config{
			ListenTimeout: server.cfg.PassiveListenTimeout,
			AcceptTimeout: server.cfg.PassiveAcceptTimeout,
			DialTimeout:   server.cfg.ServerReadTimeout,
		}),
		userState:      stateAnonymous,
		cwd:            "/",
		transferType:   'I',
		xferBuf:        make([]byte, server.cfg.BufferSize()),
		sessionLimiter: limiter,
	}
}

// serve runs the control-channel command loop until the session ends,
// then tears everything down (§4.6).
func (sess *Session) serve() {
	defer sess.close()

	remote := ""
	if sess.clientIP != nil {
		remote = sess.clientIP.String()
	}
	sess.server.hooks.connected(remote)
	sess.server.hooks.logf("session %s: accepted from %s", sess.id, remote)

	sess.reply(220, "-> CMS FTP Server, FTP Version 2020-08-20")

	for {
		line, result := sess.readCommand()
		if result != ResultOk {
			return
		}

		cmd, err := wire.ParseCommand(line, maxArgLen)
		if err != nil {
			// Oversize argument: session terminates without a reply (§7).
			return
		}

		quit, result := sess.dispatch(cmd)
		if quit || result != ResultOk {
			return
		}
	}
}

// readCommand implements the read_command contract: poll with a bounded
// per-iteration deadline up to InactiveIterations times, checking the
// supervisor's stop flag, the server's error status, and the link-layer
// probe on every iteration.
func (sess *Session) readCommand() (string, Result) {
	for i := 0; i < sess.server.cfg.InactiveIterations; i++ {
		if sess.slot.stopFlag.Load() {
			return "", ResultError
		}
		if sess.server.Status() == StatusError || sess.server.Status() == StatusErrorStopping {
			return "", ResultError
		}
		if !sess.server.hooks.linkUp() {
			return "", ResultError
		}

		_ = sess.conn.SetReadDeadline(time.Now().Add(sess.server.cfg.ServerReadTimeout))
		line, err := sess.reader.ReadString('\n')
		if err == nil {
			return strings.TrimRight(line, "\r\n"), ResultOk
		}
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			continue
		}
		// Any other error (EOF, reset, closed) ends the session silently.
		return "", ResultError
	}
	return "", ResultTimeout
}

// netconnWrite wraps the control-socket write the way the source's
// netconn_write helper does: a bounded wait for completion. A timeout
// returns ResultTimeout; any other transport error flags the global error
// bitmap and returns ResultError.
func (sess *Session) netconnWrite(b []byte) Result {
	_ = sess.conn.SetWriteDeadline(time.Now().Add(sess.server.cfg.ServerWriteTimeout))
	_, err := sess.conn.Write(b)
	if err == nil {
		return ResultOk
	}
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return ResultTimeout
	}
	sess.server.setError(ErrClientSocketWrite)
	return ResultError
}

// reply sends a single-line reply, formatted through the wire codec.
func (sess *Session) reply(code int, message string) Result {
	return sess.netconnWrite([]byte(wire.FormatReply(code, message)))
}

// replyMultiline sends a multi-line reply.
func (sess *Session) replyMultiline(code int, lines []string) Result {
	return sess.netconnWrite([]byte(wire.FormatMultilineReply(code, lines)))
}

func (sess *Session) close() {
	sess.data.Close()
	sess.data.CloseListener()
	_ = sess.conn.Close()

	remote := ""
	if sess.clientIP != nil {
		remote = sess.clientIP.String()
	}
	sess.server.hooks.disconnected(remote)
}
