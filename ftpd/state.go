// Package ftpd is the FTP protocol engine: a fixed pool of per-client
// workers fed by a single accept loop, each running the control-channel
// command loop, data-channel negotiation, and the verb handlers over a
// pluggable filesystem collaborator.
package ftpd

import "sync/atomic"

// Status is the server lifecycle state, forming the DAG described in the
// supervisor design: Idle -> Starting -> Running -> Stopping -> Idle, with
// ErrorStopping/Error branches on failure.
type Status int32

const (
	StatusIdle Status = iota
	StatusStarting
	StatusRunning
	StatusStopping
	StatusErrorStopping
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusStarting:
		return "starting"
	case StatusRunning:
		return "running"
	case StatusStopping:
		return "stopping"
	case StatusErrorStopping:
		return "error_stopping"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// ErrorBit names one bit of the process-level error bitmap. Each kind of
// failure the supervisor or a worker can hit owns exactly one bit, and the
// bitmap is monotonic within a run — it's only cleared by ClearErrors while
// status is StatusError.
type ErrorBit uint32

const (
	ErrListenerCreate ErrorBit = 1 << iota
	ErrListenerBind
	ErrListenerListen
	ErrListenerDelete
	ErrClientSocketWrite
	ErrClientSocketDelete
	ErrDataListenerNew
	ErrDataListenerBind
	ErrDataListenerListen
	ErrDataListenerClose
	ErrDataListenerDelete
	ErrDataSocketNew
	ErrDataSocketBind
	ErrDataSocketClose
	ErrDataSocketDelete
	ErrBindPortZero
	ErrWorkersNotDrained
)

// Stats holds the monotonic counters and gauges the supervisor and workers
// maintain. All fields are updated with atomic operations; exact counts
// are not guaranteed under concurrent failure (§5, "shared-resource
// policy"), so readers should treat them as advisory.
type Stats struct {
	ClientsActive        atomic.Int32
	ClientsMax           int32
	ClientsConnected     atomic.Uint64
	ClientsDisconnected  atomic.Uint64
	FilesSentOK          atomic.Uint64
	FilesSentFail        atomic.Uint64
	FilesReceivedOK      atomic.Uint64
	FilesReceivedFail    atomic.Uint64
}

// Snapshot is a point-in-time copy of Stats, safe to hand to callers outside
// the engine (e.g. a STAT handler or a metrics endpoint).
type Snapshot struct {
	ClientsActive       int32
	ClientsMax          int32
	ClientsConnected    uint64
	ClientsDisconnected uint64
	FilesSentOK         uint64
	FilesSentFail       uint64
	FilesReceivedOK     uint64
	FilesReceivedFail   uint64
}

// Snapshot takes a consistent-enough read of every counter.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		ClientsActive:       s.ClientsActive.Load(),
		ClientsMax:          s.ClientsMax,
		ClientsConnected:    s.ClientsConnected.Load(),
		ClientsDisconnected: s.ClientsDisconnected.Load(),
		FilesSentOK:         s.FilesSentOK.Load(),
		FilesSentFail:       s.FilesSentFail.Load(),
		FilesReceivedOK:     s.FilesReceivedOK.Load(),
		FilesReceivedFail:   s.FilesReceivedFail.Load(),
	}
}

// errorBitmap is a monotonic-within-a-run set of ErrorBit flags, stored as
// a single atomic word so the supervisor and any worker can set a bit
// without a lock (§5: "Implementations must make these updates atomic at
// the field level").
type errorBitmap struct {
	bits atomic.Uint32
}

func (b *errorBitmap) set(bit ErrorBit) {
	for {
		old := b.bits.Load()
		next := old | uint32(bit)
		if old == next || b.bits.CompareAndSwap(old, next) {
			return
		}
	}
}

func (b *errorBitmap) load() uint32 {
	return b.bits.Load()
}

func (b *errorBitmap) clear() {
	b.bits.Store(0)
}
