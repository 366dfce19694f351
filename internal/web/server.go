// Package web serves the HTTP status API and the websocket SBS stream.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Tom4hawk/ADSBTranslatorService/internal/adsb"
	"github.com/Tom4hawk/ADSBTranslatorService/internal/fanout"
	"github.com/Tom4hawk/ADSBTranslatorService/internal/feed"
	"github.com/Tom4hawk/ADSBTranslatorService/internal/translator"
)

const (
	shutdownTimeout = 5 * time.Second
	wsWriteTimeout  = 5 * time.Second
)

// Tracker exposes translator state
type Tracker interface {
	Stats() translator.Stats
	Aircraft() []adsb.AircraftInfo
}

// Broker hands out SBS line subscriptions
type Broker interface {
	Subscribe(sink fanout.Sink, opts fanout.Options) uuid.UUID
	Unsubscribe(id uuid.UUID)
	Stats() fanout.Stats
}

// FeedMonitor exposes upstream feed counters
type FeedMonitor interface {
	Stats() feed.Stats
}

// StatsResponse is the body of /api/stats
type StatsResponse struct {
	Feed       feed.Stats       `json:"feed"`
	Translator translator.Stats `json:"translator"`
	Output     fanout.Stats     `json:"output"`
}

// Server is the HTTP front end
type Server struct {
	address  string
	tracker  Tracker
	broker   Broker
	feed     FeedMonitor
	logger   *logrus.Logger
	router   *chi.Mux
	upgrader websocket.Upgrader
}

// NewServer creates the server and its routes
func NewServer(address string, tracker Tracker, broker Broker, monitor FeedMonitor, logger *logrus.Logger) *Server {
	s := &Server{
		address: address,
		tracker: tracker,
		broker:  broker,
		feed:    monitor,
		logger:  logger,
		router:  chi.NewRouter(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", s.handleStats)
		r.Get("/aircraft", s.handleAircraft)
		r.Get("/aircraft/{icao}", s.handleAircraftByICAO)
	})

	r.Get("/ws", s.handleWebSocket)
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("address", s.address).Info("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve HTTP: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	return nil
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, StatsResponse{
		Feed:       s.feed.Stats(),
		Translator: s.tracker.Stats(),
		Output:     s.broker.Stats(),
	})
}

func (s *Server) handleAircraft(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.tracker.Aircraft())
}

func (s *Server) handleAircraftByICAO(w http.ResponseWriter, r *http.Request) {
	icao := strings.ToUpper(chi.URLParam(r, "icao"))

	for _, aircraft := range s.tracker.Aircraft() {
		if aircraft.ICAO == icao {
			respondJSON(w, http.StatusOK, aircraft)
			return
		}
	}
	http.Error(w, "Aircraft not found", http.StatusNotFound)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Debug("Failed to upgrade websocket")
		return
	}

	id := s.broker.Subscribe(&wsSink{conn: conn}, fanout.Options{QueueSize: fanout.DefaultQueueSize})

	// Inbound messages are ignored; a read error means the client left.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.logger.WithError(err).Debug("Websocket client read failed")
				}
				s.broker.Unsubscribe(id)
				return
			}
		}
	}()
}

type wsSink struct {
	conn *websocket.Conn
}

func (s *wsSink) Send(line string) error {
	s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, []byte(line))
}

func (s *wsSink) Close() error {
	s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return s.conn.Close()
}

func (s *wsSink) String() string {
	return "ws://" + s.conn.RemoteAddr().String()
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start).String(),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("HTTP request")
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
