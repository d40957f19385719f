package messagebroker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// NatsClient wraps a core NATS connection used for fire-and-forget events.
type NatsClient struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// NewNatsClient connects to NATS with unlimited reconnects.
// natsURL example: "nats://localhost:4222"
func NewNatsClient(natsURL, appName string, logger *slog.Logger) (*NatsClient, error) {
	log := logger.With("component", "nats_client")
	nc, err := nats.Connect(natsURL,
		nats.Name(appName),
		nats.Timeout(5*time.Second),
		nats.PingInterval(20*time.Second),
		nats.MaxPingsOutstanding(3),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
		nats.ClosedHandler(func(c *nats.Conn) {
			log.Info("NATS connection closed", "last_error", c.LastError())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NatsClient{conn: nc, logger: log}, nil
}

// Publish sends data on subject. The context is only checked before publishing;
// core NATS publishes are buffered and never block on the server.
func (c *NatsClient) Publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (c *NatsClient) Close() {
	if c.conn == nil || c.conn.IsClosed() {
		return
	}
	if err := c.conn.Drain(); err != nil {
		c.logger.Warn("NATS drain failed", "error", err)
		c.conn.Close()
	}
}
