// Package bus runs the internal NATS event bus. By default an embedded
// server is started on a random port; an external server can be used
// instead for multi-process setups.
package bus

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Subjects used on the bus.
const (
	// SubjectStateUpdate carries full state snapshots from the core engine.
	SubjectStateUpdate = "companion.state.update"
	// SubjectVoiceEvent carries voice pipeline events.
	SubjectVoiceEvent = "companion.voice.event"
)

const readyTimeout = 5 * time.Second

// Bus owns the NATS connection and, when embedded, the server itself.
type Bus struct {
	embedded *server.Server
	conn     *nats.Conn
	js       jetstream.JetStream
	logger   *slog.Logger
}

// Options configures the bus.
type Options struct {
	// URL of an external NATS server. Ignored when Embedded is true.
	URL string
	// Embedded starts an in-process server on a random port.
	Embedded bool
}

// Start brings up the bus: embedded server (or external connection) plus a
// JetStream context.
func Start(opts Options, logger *slog.Logger) (*Bus, error) {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bus{logger: logger}

	if opts.URL != "" && !opts.Embedded {
		logger.Info("Connecting to NATS", "url", opts.URL)
		conn, err := nats.Connect(opts.URL)
		if err != nil {
			return nil, fmt.Errorf("connect to NATS: %w", err)
		}
		b.conn = conn
	} else {
		ns, err := server.NewServer(&server.Options{
			Port:      -1, // random available port
			JetStream: true,
			NoLog:     true,
			NoSigs:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("create embedded NATS server: %w", err)
		}

		go ns.Start()
		if !ns.ReadyForConnections(readyTimeout) {
			ns.Shutdown()
			return nil, fmt.Errorf("embedded NATS server failed to start")
		}
		b.embedded = ns

		conn, err := nats.Connect(ns.ClientURL())
		if err != nil {
			ns.Shutdown()
			return nil, fmt.Errorf("connect to embedded NATS: %w", err)
		}
		b.conn = conn
		logger.Info("Embedded NATS server started", "url", ns.ClientURL())
	}

	js, err := jetstream.New(b.conn)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}
	b.js = js
	return b, nil
}

// Conn returns the NATS connection.
func (b *Bus) Conn() *nats.Conn { return b.conn }

// JetStream returns the JetStream context.
func (b *Bus) JetStream() jetstream.JetStream { return b.js }

// Publish sends a message on a subject.
func (b *Bus) Publish(subject string, data []byte) error {
	return b.conn.Publish(subject, data)
}

// Subscribe registers a handler for a subject.
func (b *Bus) Subscribe(subject string, handler nats.MsgHandler) (*nats.Subscription, error) {
	return b.conn.Subscribe(subject, handler)
}

// Close drains the connection and shuts down the embedded server.
func (b *Bus) Close() {
	if b.conn != nil {
		if err := b.conn.Drain(); err != nil {
			b.logger.Warn("NATS drain failed", "error", err)
		}
	}
	if b.embedded != nil {
		b.embedded.Shutdown()
		b.embedded.WaitForShutdown()
	}
	b.logger.Info("Bus stopped")
}
