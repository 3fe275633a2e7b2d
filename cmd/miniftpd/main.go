// Command miniftpd hosts the ftpd protocol engine against a local directory,
// wiring flags, logging and signal handling the way the library's own
// examples wire a server.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashgrove/miniftpd/ftpd"
	"github.com/ashgrove/miniftpd/internal/fsdriver"
)

func main() {
	var (
		root        = flag.String("root", ".", "directory served as the FTP root")
		port        = flag.Uint("port", 21, "control channel listen port")
		dataPort    = flag.Uint("data-port", 55600, "base passive-mode data port")
		numClients  = flag.Int("clients", 2, "fixed worker pool size")
		username    = flag.String("user", ftpd.DefaultUsername, "login username")
		password    = flag.String("pass", ftpd.DefaultPassword, "login password")
		bufSizeMult = flag.Int("buf-mult", 32, "transfer buffer size, in units of 1024 bytes")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	fs, err := fsdriver.Open(*root)
	if err != nil {
		logger.Error("opening filesystem root", "root", *root, "error", err)
		os.Exit(1)
	}
	defer fs.Close()

	cfg := ftpd.DefaultConfig()
	cfg.ServerPort = uint16(*port)
	cfg.DataPortBase = uint16(*dataPort)
	cfg.NumClients = *numClients
	cfg.BufSizeMult = *bufSizeMult

	hooks := ftpd.Hooks{
		Connected:    func(ip string) { logger.Info("client connected", "ip", ip) },
		Disconnected: func(ip string) { logger.Info("client disconnected", "ip", ip) },
		LogPrint: func(format string, args ...any) {
			logger.Info(fmt.Sprintf(format, args...))
		},
	}

	srv, err := ftpd.New(
		ftpd.WithFilesystem(fs),
		ftpd.WithCredentials(ftpd.NewCredentials(*username, *password)),
		ftpd.WithConfig(cfg),
		ftpd.WithHooks(hooks),
	)
	if err != nil {
		logger.Error("building server", "error", err)
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("starting server", "error", err)
		os.Exit(1)
	}
	logger.Info("miniftpd listening", "port", *port, "root", *root, "workers", *numClients)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	stopped := make(chan error, 1)
	go func() { stopped <- srv.Stop() }()

	select {
	case err := <-stopped:
		if err != nil {
			logger.Error("stop completed with error", "error", err, "error_bitmap", srv.ErrorBitmap())
			os.Exit(1)
		}
	case <-time.After(10 * time.Second):
		logger.Error("stop did not complete in time")
		os.Exit(1)
	}
}
