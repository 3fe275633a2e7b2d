package ftpd

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ashgrove/miniftpd/internal/fsapi"
	"github.com/ashgrove/miniftpd/internal/ratelimit"
)

// Server is the top-level supervisor: it owns the control-channel listener,
// the fixed worker pool, and the process-wide singleton state (status,
// error bitmap, stats, credentials). One Server serves one FTP endpoint.
type Server struct {
	cfg   Config
	fs    fsapi.Filesystem
	creds *Credentials
	hooks Hooks

	status atomic.Int32 // Status
	errors errorBitmap
	stats  Stats

	initialized atomic.Bool

	mu       sync.Mutex
	listener net.Listener
	slots    []*slot

	globalLimiter *ratelimit.Limiter

	stopCh   chan struct{}
	stopOnce sync.Once
}

// New builds a Server from options. WithFilesystem is required.
func New(options ...Option) (*Server, error) {
	s := &Server{
		cfg:   DefaultConfig(),
		creds: NewCredentials("", ""),
	}
	for _, opt := range options {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.fs == nil {
		return nil, fmt.Errorf("ftpd: a filesystem is required (use WithFilesystem)")
	}
	s.stats.ClientsMax = int32(s.cfg.NumClients)
	if s.cfg.BandwidthLimitGlobal > 0 {
		s.globalLimiter = ratelimit.New(s.cfg.BandwidthLimitGlobal)
	}
	s.initialized.Store(true)
	return s, nil
}

// Status returns the current lifecycle state.
func (s *Server) Status() Status {
	return Status(s.status.Load())
}

// Stats returns a point-in-time snapshot of the server's counters.
func (s *Server) Stats() Snapshot {
	return s.stats.Snapshot()
}

// ErrorBitmap returns the current process-level error bitmap.
func (s *Server) ErrorBitmap() uint32 {
	return s.errors.load()
}

// ClearErrors resets the error bitmap, but only while the server is in
// StatusError — it is a no-op otherwise, matching the source's
// clear_errors() contract (§7).
func (s *Server) ClearErrors() {
	if s.Status() == StatusError {
		s.errors.clear()
	}
}

// setError records a process-level failure and, if the server is currently
// Running, drives it onto the ErrorStopping -> Error drain path (§4.3,
// §7: "Any set bit drives the supervisor into the ErrorStopping -> Error
// drain path"). A worker reporting a bit (e.g. a PASV listener bind
// collision) is as much a trigger as a failure inside Start/Stop
// themselves.
func (s *Server) setError(bit ErrorBit) {
	s.errors.set(bit)
	s.triggerErrorStop()
}

// triggerErrorStop moves a Running server onto StatusErrorStopping and
// drains it asynchronously. It must not drain synchronously: setError is
// commonly called from inside a worker's own session, and drain waits for
// that same worker's slot to go idle, so draining inline would deadlock
// the caller against itself.
func (s *Server) triggerErrorStop() {
	if !s.status.CompareAndSwap(int32(StatusRunning), int32(StatusErrorStopping)) {
		return
	}
	go func() {
		s.drain()
		s.setStatus(StatusError)
	}()
}

func (s *Server) setStatus(st Status) {
	s.status.Store(int32(st))
}

// Start transitions Idle|Error -> Starting -> Running, binding the control
// listener and launching the fixed worker pool. It returns once the
// listener is up and the accept loop goroutine has been launched; Start
// does not block for the server's lifetime — the server keeps serving
// until Stop is called or the process exits.
func (s *Server) Start() error {
	cur := s.Status()
	if cur != StatusIdle && cur != StatusError {
		return fmt.Errorf("ftpd: cannot start from status %s", cur)
	}

	s.setStatus(StatusStarting)

	if s.cfg.ServerPort == 0 {
		s.setError(ErrBindPortZero)
		s.setStatus(StatusErrorStopping)
		s.drain()
		s.setStatus(StatusError)
		return fmt.Errorf("ftpd: listen port is zero")
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.ServerPort))
	if err != nil {
		s.setError(ErrListenerBind)
		s.setStatus(StatusErrorStopping)
		s.drain()
		s.setStatus(StatusError)
		return fmt.Errorf("ftpd: listen: %w", err)
	}

	s.mu.Lock()
	s.listener = ln
	s.slots = make([]*slot, s.cfg.NumClients)
	for i := range s.slots {
		s.slots[i] = newSlot(i)
	}
	s.mu.Unlock()

	s.stopCh = make(chan struct{})

	for _, sl := range s.slots {
		go s.runWorker(sl)
	}

	s.setStatus(StatusRunning)
	go s.acceptLoop(ln)

	s.hooks.logf("ftpd: listening on :%d with %d worker slots", s.cfg.ServerPort, s.cfg.NumClients)
	return nil
}

// acceptLoop is the supervisor's own blocking point: accept with a bounded
// timeout, dispatch to a free slot, or reject with 421 when the pool is
// full (§4.7, "Running").
func (s *Server) acceptLoop(ln net.Listener) {
	if tl, ok := ln.(*net.TCPListener); ok {
		_ = tl.SetDeadline(time.Time{})
	}
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		if tl, ok := ln.(*net.TCPListener); ok {
			_ = tl.SetDeadline(time.Now().Add(s.cfg.PassiveAcceptTimeout))
		}
		conn, err := ln.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			select {
			case <-s.stopCh:
				return
			default:
			}
			continue
		}

		if !s.dispatchToSlot(conn) {
			fmt.Fprintf(conn, "421 No more connections allowed\r\n")
			conn.Close()
			time.Sleep(500 * time.Millisecond)
		}
	}
}

// dispatchToSlot finds the first free slot (not busy) and publishes conn
// into it so its worker picks it up. It returns false if every slot is
// busy.
func (s *Server) dispatchToSlot(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sl := range s.slots {
		if sl.stopFlag.Load() {
			continue
		}
		if sl.busy.CompareAndSwap(false, true) {
			sl.pending <- conn
			s.stats.ClientsConnected.Add(1)
			return true
		}
	}
	return false
}

func (s *Server) runWorker(sl *slot) {
	for conn := range sl.pending {
		s.stats.ClientsActive.Add(1)
		sess := newSession(s, sl, conn)
		sess.serve()
		s.stats.ClientsActive.Add(-1)
		s.stats.ClientsDisconnected.Add(1)
		sl.busy.Store(false)
		if sl.stopFlag.Load() {
			return
		}
	}
}

// Stop transitions Running -> Stopping -> Idle (or -> Error if draining
// fails): it stops accepting new connections, signals every busy slot's
// stop flag, and waits up to 6 seconds for all workers to go idle.
func (s *Server) Stop() error {
	cur := s.Status()
	if cur != StatusRunning {
		return fmt.Errorf("ftpd: cannot stop from status %s", cur)
	}
	s.setStatus(StatusStopping)
	ok := s.drain()
	if ok {
		s.setStatus(StatusIdle)
		return nil
	}
	s.setError(ErrWorkersNotDrained)
	s.setStatus(StatusError)
	return fmt.Errorf("ftpd: not all workers drained within timeout")
}

// drain closes the listener, signals every busy slot to stop, and polls for up
// to 6 seconds until all workers report idle. It returns true if the drain
// completed cleanly.
func (s *Server) drain() bool {
	s.mu.Lock()
	ln := s.listener
	s.listener = nil
	slots := s.slots
	s.mu.Unlock()

	if s.stopCh != nil {
		s.stopOnce.Do(func() { close(s.stopCh) })
	}
	if ln != nil {
		if err := ln.Close(); err != nil {
			s.setError(ErrListenerDelete)
		}
	}

	for _, sl := range slots {
		if sl.busy.Load() {
			sl.stopFlag.Store(true)
		}
	}

	deadline := time.Now().Add(6 * time.Second)
	for time.Now().Before(deadline) {
		allIdle := true
		for _, sl := range slots {
			if sl.busy.Load() {
				allIdle = false
				break
			}
		}
		if allIdle {
			return true
		}
		time.Sleep(50 * time.Millisecond)
	}

	for _, sl := range slots {
		if sl.busy.Load() {
			return false
		}
	}
	return true
}

// slot is one fixed worker-pool position. pending is the producer-consumer
// channel the supervisor publishes an accepted control socket into; busy
// and stopFlag are the only fields the supervisor and the worker share
// (§3, "Session ownership").
type slot struct {
	index    int
	pending  chan net.Conn
	busy     atomic.Bool
	stopFlag atomic.Bool
	// offset rotates mod 25 across sessions run on this slot, spreading
	// passive-port reuse across a 25-port window (§4.3).
	offset atomic.Int32
}

func newSlot(index int) *slot {
	return &slot{index: index, pending: make(chan net.Conn, 1)}
}

// nextDataPort computes this slot's passive data port for a new session and
// rotates the offset for next time.
func (sl *slot) nextDataPort(base uint16) uint16 {
	offset := sl.offset.Load()
	sl.offset.Store((offset + 1) % 25)
	return base + uint16(offset) + uint16(sl.index)*25
}
