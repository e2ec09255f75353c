package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"time"

	"github.com/flowmesh/distributer/internal/flow"
	"github.com/flowmesh/distributer/internal/wire"
)

// ingressChannelCapacity is the bounded capacity of the channel feeding
// the validator pool.
const ingressChannelCapacity = 1000

// IngressListener binds a random ephemeral port in [portMin, portMax) and
// demultiplexes chunk and health frames on every accepted connection.
type IngressListener struct {
	Port   int
	ln     net.Listener
	out    chan flow.Batch
	logger *slog.Logger
}

// ListenIngress picks a free port in [portMin, portMax) and starts
// listening. Ports already in use are skipped; callers get back the port
// that was actually bound.
func ListenIngress(portMin, portMax int, logger *slog.Logger) (*IngressListener, error) {
	if portMax <= portMin {
		return nil, fmt.Errorf("ingress: empty port range [%d, %d)", portMin, portMax)
	}

	span := portMax - portMin
	start := rand.Intn(span)
	for i := 0; i < span; i++ {
		port := portMin + (start+i)%span
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err == nil {
			return &IngressListener{
				Port:   port,
				ln:     ln,
				out:    make(chan flow.Batch, ingressChannelCapacity),
				logger: logger.With("component", "ingress", "port", port),
			}, nil
		}
	}
	return nil, fmt.Errorf("ingress: no free port in [%d, %d)", portMin, portMax)
}

// Batches returns the channel the validator pool consumes from.
func (l *IngressListener) Batches() <-chan flow.Batch {
	return l.out
}

// Close stops accepting new connections.
func (l *IngressListener) Close() error {
	return l.ln.Close()
}

// Run accepts connections until ctx is cancelled, closing the output
// channel once the listener itself stops.
func (l *IngressListener) Run(ctx context.Context) {
	l.logger.Info("ingress listener started")

	go func() {
		<-ctx.Done()
		l.ln.Close()
	}()

	defer close(l.out)

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				l.logger.Info("ingress listener shut down")
			default:
				l.logger.Error("ingress accept failed", "error", err)
			}
			return
		}
		go l.handleConnection(conn)
	}
}

// handleConnection demultiplexes one or more frames in sequence on conn:
// chunk frames are decoded and published to the validator channel; health
// frames are answered inline. Any protocol violation or I/O error closes
// the connection.
func (l *IngressListener) handleConnection(conn net.Conn) {
	defer conn.Close()

	for {
		kind, err := wire.ReadFrameKind(conn)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				l.logger.Debug("ingress connection ended", "error", err)
			}
			return
		}

		switch kind {
		case wire.FrameChunk:
			batch, err := wire.ReadChunkBody(conn)
			if err != nil {
				l.logger.Warn("chunk frame rejected", "error", err)
				return
			}
			select {
			case l.out <- batch:
			case <-time.After(5 * time.Second):
				l.logger.Error("validator channel full, dropping batch")
			}
		case wire.FrameHealth:
			if err := wire.ReadHealthSuffix(conn); err != nil {
				l.logger.Warn("health frame rejected", "error", err)
				return
			}
			if err := wire.WriteHealthyResponse(conn); err != nil {
				l.logger.Warn("writing healthy response failed", "error", err)
				return
			}
		default:
			l.logger.Warn("unknown frame magic, closing connection")
			return
		}
	}
}
