package db

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// NewNATSConn connects to NATS, reconnecting forever after the first
// successful dial.
func NewNATSConn(url, name string, timeout time.Duration) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(timeout),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("nats.Connect: %w", err)
	}
	return nc, nil
}
