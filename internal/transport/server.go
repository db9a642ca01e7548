package transport

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"github.com/saiputravu/marketsim/internal/bookmodel"
	"github.com/saiputravu/marketsim/internal/registry"
	"github.com/saiputravu/marketsim/internal/session"
	"github.com/saiputravu/marketsim/internal/wspool"
)

const subscribeReadTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 4 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server upgrades incoming HTTP connections to websockets and runs one
// session.Run loop per connection, fanning the accepted sockets across
// a bounded worker pool.
type Server struct {
	reg  *registry.Registry
	pool *wspool.Pool
}

// NewServer creates a transport server backed by reg, serving up to
// maxConcurrent subscriber connections at a time. Further connections
// are still upgraded but wait in the pool's queue until a worker frees.
func NewServer(reg *registry.Registry, maxConcurrent int) *Server {
	return &Server{reg: reg, pool: wspool.New(maxConcurrent)}
}

// ServeHTTP implements http.Handler, upgrading the request to a
// websocket and enqueuing it for a worker to drive.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	s.pool.Submit(conn)
}

// Run starts the worker pool under t; call this before serving traffic.
func (s *Server) Run(t *tomb.Tomb) {
	s.pool.Run(t, s.handleConnection)
}

func (s *Server) handleConnection(t *tomb.Tomb, conn *websocket.Conn) error {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(subscribeReadTimeout))
	var req subscriptionRequest
	if err := conn.ReadJSON(&req); err != nil {
		log.Warn().Err(err).Msg("failed to read subscription request")
		return nil
	}
	conn.SetReadDeadline(time.Time{})

	ctx, cancel := context.WithCancel(t.Context(nil))
	defer cancel()

	// A subscriber connection is read-only from the client's side once
	// subscribed; watch for its close so the session loop can unblock.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	sender := &connSender{conn: conn}
	instrument := bookmodel.InstrumentID(req.InstrumentID)
	if err := session.Run(ctx, s.reg, instrument, sender); err != nil {
		log.Info().
			Str("instrument", req.InstrumentID).
			Err(err).
			Msg("subscriber session ended")
	}
	return nil
}

// connSender implements session.Sender over one websocket connection. A
// mutex guards concurrent writes since gorilla/websocket connections
// permit only one writer at a time.
type connSender struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *connSender) SendSnapshot(snap bookmodel.Snapshot) error {
	return s.send(envelope{Type: messageSnapshot, Snapshot: toWireSnapshot(snap)})
}

func (s *connSender) SendUpdate(u bookmodel.LevelUpdate) error {
	return s.send(envelope{Type: messageUpdate, Update: toWireUpdate(u)})
}

func (s *connSender) send(e envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(e)
}
