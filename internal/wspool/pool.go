// Package wspool supervises inbound subscriber connections with a
// bounded pool of workers pulling accepted websocket connections off a
// shared task queue.
package wspool

import (
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const taskChanSize = 100

// HandlerFunc processes one accepted connection to completion.
type HandlerFunc func(t *tomb.Tomb, conn *websocket.Conn) error

// Pool maintains a fixed number of goroutines draining a queue of
// accepted connections, capping how many subscriber sessions run
// concurrently.
type Pool struct {
	n     int
	tasks chan *websocket.Conn
}

// New creates a pool sized to run up to n connections concurrently.
func New(n int) *Pool {
	return &Pool{
		n:     n,
		tasks: make(chan *websocket.Conn, taskChanSize),
	}
}

// Submit enqueues an accepted connection for handling. It blocks if the
// queue is full.
func (p *Pool) Submit(conn *websocket.Conn) {
	p.tasks <- conn
}

// Run starts n workers under t, each pulling connections off the queue
// and passing them to handle until t is dying.
func (p *Pool) Run(t *tomb.Tomb, handle HandlerFunc) {
	log.Info().Int("workers", p.n).Msg("starting subscriber worker pool")
	for i := 0; i < p.n; i++ {
		t.Go(func() error {
			return p.worker(t, handle)
		})
	}
}

func (p *Pool) worker(t *tomb.Tomb, handle HandlerFunc) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case conn := <-p.tasks:
			if err := handle(t, conn); err != nil {
				log.Error().Err(err).Msg("subscriber connection handler returned error")
			}
		}
	}
}
