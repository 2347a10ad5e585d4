// Package server exposes the card room over WebSocket. Each client
// holds one connection, authenticates with a player ID, and can join
// tables, act, and receive the hand event stream for tables it watches.
package server

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"

	"github.com/openfelt/cardroom/internal/config"
	"github.com/openfelt/cardroom/internal/history"
	"github.com/openfelt/cardroom/internal/table"
)

// Server owns the HTTP listener and the room's tables.
type Server struct {
	cfg    *config.Config
	logger *log.Logger

	upgrader websocket.Upgrader

	mu          sync.RWMutex
	tables      map[string]*table.Table
	connections map[*Connection]bool

	httpServer *http.Server
}

// New builds a server and spins up one table runtime per configured
// table. The clock is injectable for tests.
func New(cfg *config.Config, clock quartz.Clock, rng *rand.Rand, writer history.Writer, ledger table.LedgerNotifier, logger *log.Logger) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		tables:      make(map[string]*table.Table),
		connections: make(map[*Connection]bool),
	}
	for _, tc := range cfg.Tables {
		runtime, err := tc.Runtime()
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", tc.Name, err)
		}
		tbl, err := table.New(tc.Name, runtime, clock, rng, writer, ledger, logger.With("table", tc.Name))
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", tc.Name, err)
		}
		s.tables[tc.Name] = tbl
	}
	return s, nil
}

// Handler returns the HTTP routes, exposed for tests that mount the
// server on an ephemeral listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Start serves until the listener fails or Stop is called.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Address(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("listening", "address", s.cfg.Address(), "tables", len(s.tables))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts down the listener, drops every connection and closes the
// tables, refunding any hand in progress.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Warn("http shutdown", "error", err)
		}
	}

	s.mu.Lock()
	conns := make([]*Connection, 0, len(s.connections))
	for c := range s.connections {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	for _, c := range conns {
		c.Close()
	}

	var firstErr error
	for name, tbl := range s.tables {
		if err := tbl.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close table %s: %w", name, err)
		}
	}
	return firstErr
}

// Table looks up a table by ID.
func (s *Server) Table(id string) (*table.Table, bool) {
	tbl, ok := s.tables[id]
	return tbl, ok
}

func (s *Server) listTables() (TableListData, error) {
	out := TableListData{Tables: make([]TableInfo, 0, len(s.tables))}
	for _, tc := range s.cfg.Tables {
		tbl := s.tables[tc.Name]
		st, err := tbl.State()
		if err != nil {
			return TableListData{}, err
		}
		seated := 0
		for _, seat := range st.Seats {
			if seat.PlayerID != "" {
				seated++
			}
		}
		out.Tables = append(out.Tables, TableInfo{
			ID:        tc.Name,
			Variant:   tc.Variant,
			Structure: tc.Structure,
			Stakes:    fmt.Sprintf("%d/%d", tc.SmallBlind, tc.BigBlind),
			Seated:    seated,
			MaxSeats:  tc.MaxSeats,
		})
	}
	return out, nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}
	conn := newConnection(ws, s, s.logger)
	s.register(conn)
	conn.Start()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "ok")
}

func (s *Server) register(c *Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connections[c] = true
}

func (s *Server) unregister(c *Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.connections, c)
}
