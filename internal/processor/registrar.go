package processor

import (
	"fmt"
	"log/slog"
	"net"
	"time"
)

// registerDialTimeout bounds the one-shot control connection opened at
// startup.
const registerDialTimeout = 5 * time.Second

// Register dials the distributer's control port and announces this
// processor's ingress port. Connect failure here is fatal to the
// processor: nothing downstream can function without registration.
func Register(distributerAddr string, ingressPort int, logger *slog.Logger) error {
	conn, err := net.DialTimeout("tcp", distributerAddr, registerDialTimeout)
	if err != nil {
		return fmt.Errorf("registrar: dialing %s: %w", distributerAddr, err)
	}
	defer conn.Close()

	cmd := fmt.Sprintf("connect %d", ingressPort)
	if _, err := conn.Write([]byte(cmd)); err != nil {
		return fmt.Errorf("registrar: sending %q: %w", cmd, err)
	}

	logger.Info("registered with distributer", "distributer", distributerAddr, "ingress_port", ingressPort)
	return nil
}
