package ftpd

import (
	"fmt"
	"time"

	"github.com/ashgrove/miniftpd/internal/fsapi"
)

// Config is the boot-time configuration surface (§6). DefaultConfig returns
// the defaults the source ships with; New starts from DefaultConfig and
// Options such as WithConfig or WithServerPort override it.
type Config struct {
	// ServerPort is the control-channel listen port.
	ServerPort uint16
	// DataPortBase is the base passive-mode data port; the effective port
	// for a given slot/session also folds in a rotating per-session offset
	// and a per-slot stride (§4.3).
	DataPortBase uint16
	// NumClients is the size of the fixed worker pool.
	NumClients int

	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	// InactiveIterations is the number of ServerReadTimeout iterations a
	// session may go without a command before it is disconnected as idle.
	InactiveIterations int

	PassiveAcceptTimeout time.Duration
	PassiveListenTimeout time.Duration
	StorRecvTimeout      time.Duration

	UsePassiveMode bool
	// BufSizeMult scales the 1024-byte transfer buffer unit; the buffer is
	// 1024*BufSizeMult bytes, sector-aligned.
	BufSizeMult int

	// BandwidthLimitGlobal/PerSession bound transfer throughput in bytes
	// per second; 0 disables the corresponding limit.
	BandwidthLimitGlobal    int64
	BandwidthLimitPerSession int64
}

// DefaultConfig returns the configuration surface's documented defaults.
func DefaultConfig() Config {
	return Config{
		ServerPort:           21,
		DataPortBase:         55600,
		NumClients:           1,
		ServerReadTimeout:    1000 * time.Millisecond,
		ServerWriteTimeout:   3000 * time.Millisecond,
		InactiveIterations:   60,
		PassiveAcceptTimeout: 500 * time.Millisecond,
		PassiveListenTimeout: 5000 * time.Millisecond,
		StorRecvTimeout:      5000 * time.Millisecond,
		UsePassiveMode:       true,
		BufSizeMult:          32,
	}
}

// BufferSize is the session transfer buffer size in bytes: 1024*BufSizeMult,
// always a multiple of fsapi.SectorSize.
func (c Config) BufferSize() int {
	return 1024 * c.BufSizeMult
}

// Option configures a Server at construction time, following the same
// functional-options shape the teacher library's server package uses.
type Option func(*Server) error

// WithFilesystem sets the filesystem collaborator. Required.
func WithFilesystem(fs fsapi.Filesystem) Option {
	return func(s *Server) error {
		s.fs = fs
		return nil
	}
}

// WithCredentials sets the single (username, password) pair sessions
// authenticate against. Defaults to DefaultUsername/DefaultPassword.
func WithCredentials(creds *Credentials) Option {
	return func(s *Server) error {
		s.creds = creds
		return nil
	}
}

// WithConfig overrides the full configuration surface.
func WithConfig(cfg Config) Option {
	return func(s *Server) error {
		s.cfg = cfg
		return nil
	}
}

// WithHooks wires the optional observability callbacks.
func WithHooks(h Hooks) Option {
	return func(s *Server) error {
		s.hooks = h
		return nil
	}
}

// WithNumClients overrides the worker pool size (NBR_CLIENTS).
func WithNumClients(n int) Option {
	return func(s *Server) error {
		if n <= 0 {
			return fmt.Errorf("ftpd: NumClients must be positive, got %d", n)
		}
		s.cfg.NumClients = n
		return nil
	}
}

// WithServerPort overrides the control-channel listen port.
func WithServerPort(port uint16) Option {
	return func(s *Server) error {
		s.cfg.ServerPort = port
		return nil
	}
}
