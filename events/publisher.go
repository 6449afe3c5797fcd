// events/publisher.go
package events

import (
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/wfunc/rpsarena/logger"
)

// Publisher mirrors room events to an external bus.
type Publisher interface {
	Publish(subject string, data []byte) error
	Close()
}

// NopPublisher drops everything. Used when no bus is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(string, []byte) error { return nil }
func (NopPublisher) Close()                       {}

// Subject builds "<prefix>.rooms.<roomID>.<event>". An empty roomID yields
// "<prefix>.lobby.<event>".
func Subject(prefix, roomID, event string) string {
	parts := []string{}
	if prefix != "" {
		parts = append(parts, prefix)
	}
	if roomID == "" {
		parts = append(parts, "lobby")
	} else {
		parts = append(parts, "rooms", roomID)
	}
	parts = append(parts, event)
	return strings.Join(parts, ".")
}

const (
	natsMaxReconnects = -1
	natsReconnectWait = 2 * time.Second
)

// NATSPublisher publishes on core NATS subjects.
type NATSPublisher struct {
	nc *nats.Conn
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name("rps-arena"),
		nats.MaxReconnects(natsMaxReconnects),
		nats.ReconnectWait(natsReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Log.Errorf("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Log.Infof("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			logger.Log.Errorf("NATS error: %v", err)
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	logger.Log.Infof("Connected to NATS at %s", nc.ConnectedUrl())
	return &NATSPublisher{nc: nc}, nil
}

func (p *NATSPublisher) Publish(subject string, data []byte) error {
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	if err := p.nc.Drain(); err != nil {
		logger.Log.Warnf("NATS drain: %v", err)
		p.nc.Close()
	}
}
