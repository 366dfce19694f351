// Package natsink publishes SBS lines to a NATS subject.
package natsink

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// DefaultSubject is used when none is configured
const DefaultSubject = "adsb.sbs"

// Config holds the connection settings
type Config struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// Publisher is a hub sink that forwards every line to NATS
type Publisher struct {
	conn    *nats.Conn
	subject string
	logger  *logrus.Logger
}

// Connect dials the NATS server. The client reconnects on its own; lines
// published while disconnected are buffered by the client library.
func Connect(cfg Config, logger *logrus.Logger) (*Publisher, error) {
	subject := cfg.Subject
	if subject == "" {
		subject = DefaultSubject
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name("adsbtranslator"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.WithError(err).Warn("Disconnected from NATS")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.WithField("url", c.ConnectedUrl()).Info("Reconnected to NATS")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}

	logger.WithFields(logrus.Fields{
		"url":     conn.ConnectedUrl(),
		"subject": subject,
	}).Info("Publishing SBS lines to NATS")

	return &Publisher{conn: conn, subject: subject, logger: logger}, nil
}

// Send publishes one line
func (p *Publisher) Send(line string) error {
	if err := p.conn.Publish(p.subject, []byte(line)); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.subject, err)
	}
	return nil
}

// Close flushes pending lines and closes the connection
func (p *Publisher) Close() error {
	if err := p.conn.FlushTimeout(2 * time.Second); err != nil {
		p.logger.WithError(err).Debug("Failed to flush NATS connection")
	}
	p.conn.Close()
	return nil
}

func (p *Publisher) String() string {
	return "nats://" + p.subject
}
