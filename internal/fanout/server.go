package fanout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// writeTimeout bounds a single line write to a client
const writeTimeout = 5 * time.Second

// Server accepts SBS clients and subscribes each one to the hub
type Server struct {
	address  string
	hub      *Hub
	logger   *logrus.Logger
	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a server for address, for example ":30003"
func NewServer(address string, hub *Hub, logger *logrus.Logger) *Server {
	return &Server{address: address, hub: hub, logger: logger}
}

// Listen binds the listening socket
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.address, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	return nil
}

// Addr returns the bound address, or nil before Listen
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts clients until ctx is cancelled
func (s *Server) Serve(ctx context.Context) error {
	if s.Addr() == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	s.logger.WithField("address", s.Addr().String()).Info("SBS output server listening")

	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("failed to accept client: %w", err)
		}
		s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	id := s.hub.Subscribe(&connSink{conn: conn}, Options{QueueSize: DefaultQueueSize})

	// Clients never send anything useful; EOF means they went away.
	go func() {
		io.Copy(io.Discard, conn)
		s.hub.Unsubscribe(id)
	}()
}

type connSink struct {
	conn net.Conn
}

func (c *connSink) Send(line string) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, err := io.WriteString(c.conn, line+"\r\n")
	return err
}

func (c *connSink) Close() error {
	return c.conn.Close()
}

func (c *connSink) String() string {
	return "tcp://" + c.conn.RemoteAddr().String()
}

// Close stops accepting clients
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	err := s.listener.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
