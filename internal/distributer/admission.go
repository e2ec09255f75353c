// Package distributer implements the producer side of the pipeline: the
// admission listener, heartbeat supervisor, paged reader, dispatcher, and
// driver loop that together turn a relational source table into a stream
// of chunks fanned out to a registered pool of processors.
package distributer

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/flowmesh/distributer/internal/registry"
)

// commandBufferSize is the read buffer for one control command. There is
// no internal framing below this: one read, one command.
const commandBufferSize = 1024

// RunAdmissionListener binds listen and accepts control connections until
// ctx is cancelled. Each connection gets its own long-lived command
// reader; no accept-loop error is fatal to the listener, matching the
// ambient-component failure policy every other core loop follows.
func RunAdmissionListener(ctx context.Context, listen string, reg *registry.Registry, logger *slog.Logger) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", listen)
	if err != nil {
		return fmt.Errorf("admission listener: listening on %s: %w", listen, err)
	}
	defer ln.Close()

	logger.Info("admission listener started", "address", listen)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	consecutiveErrors := 0
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				logger.Info("admission listener shut down")
				return nil
			default:
			}
			consecutiveErrors++
			logger.Error("admission accept failed", "error", err, "consecutive_errors", consecutiveErrors)
			if consecutiveErrors > 5 {
				time.Sleep(backoff(consecutiveErrors))
			}
			continue
		}
		consecutiveErrors = 0
		go handleControlConnection(conn, reg, logger)
	}
}

func backoff(consecutiveErrors int) time.Duration {
	d := time.Duration(consecutiveErrors) * 100 * time.Millisecond
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

// handleControlConnection reads one command per read from conn until EOF
// or a read error, applying connect/disconnect to the registry. Each
// control connection tracks the one endpoint it registered (if any) so
// that disconnect removes exactly that entry rather than every entry
// sharing the peer's IP, which would deregister every other processor
// running on the same host.
func handleControlConnection(conn net.Conn, reg *registry.Registry, logger *slog.Logger) {
	defer conn.Close()

	peerIP, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		peerIP = conn.RemoteAddr().String()
	}

	connLogger := logger.With("component", "admission", "peer", peerIP)
	buf := make([]byte, commandBufferSize)
	var registeredEndpoint string

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			cmd := strings.TrimSpace(string(buf[:n]))
			switch {
			case cmd == "disconnect":
				if registeredEndpoint != "" {
					reg.Remove(registeredEndpoint)
					connLogger.Info("disconnect", "endpoint", registeredEndpoint)
					registeredEndpoint = ""
				}
			case strings.HasPrefix(cmd, "connect "):
				port := strings.TrimSpace(strings.TrimPrefix(cmd, "connect "))
				if _, convErr := strconv.Atoi(port); convErr != nil {
					if _, writeErr := conn.Write([]byte("invalid command")); writeErr != nil {
						connLogger.Warn("writing invalid-command response failed", "error", writeErr)
						return
					}
					continue
				}
				endpoint := net.JoinHostPort(peerIP, port)
				reg.Add(endpoint)
				registeredEndpoint = endpoint
				connLogger.Info("connect", "endpoint", endpoint)
			default:
				if _, writeErr := conn.Write([]byte("invalid command")); writeErr != nil {
					connLogger.Warn("writing invalid-command response failed", "error", writeErr)
					return
				}
			}
		}
		if err != nil {
			if registeredEndpoint != "" {
				connLogger.Debug("control connection closed with registration still active", "endpoint", registeredEndpoint)
			}
			return
		}
	}
}
