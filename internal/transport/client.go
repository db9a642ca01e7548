package transport

import (
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/saiputravu/marketsim/internal/bookmodel"
	"github.com/saiputravu/marketsim/internal/clientbook"
)

// Client subscribes to one instrument's market-data stream over a
// websocket and keeps a clientbook.Book in sync with it.
type Client struct {
	conn *websocket.Conn
	book *clientbook.Book
}

// Dial opens a websocket to addr and subscribes to instrument.
func Dial(addr string, instrument bookmodel.InstrumentID) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	if err := conn.WriteJSON(subscriptionRequest{InstrumentID: string(instrument)}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send subscription request: %w", err)
	}
	return &Client{conn: conn, book: clientbook.New()}, nil
}

// Book returns the replica this client keeps up to date. It is only
// safe to read between calls to Next.
func (c *Client) Book() *clientbook.Book { return c.book }

// Next blocks for the next message on the stream, applies it to the
// local replica, and reports which kind it was.
func (c *Client) Next() (isSnapshot bool, err error) {
	var e envelope
	if err := c.conn.ReadJSON(&e); err != nil {
		return false, err
	}
	switch e.Type {
	case messageSnapshot:
		if e.Snapshot == nil {
			return false, fmt.Errorf("transport: snapshot envelope missing body")
		}
		c.book.ApplySnapshot(fromWireSnapshot(e.Snapshot))
		return true, nil
	case messageUpdate:
		if e.Update == nil {
			return false, fmt.Errorf("transport: update envelope missing body")
		}
		c.book.ApplyUpdate(fromWireUpdate(e.Update))
		return false, nil
	default:
		return false, fmt.Errorf("transport: unrecognized message type %q", e.Type)
	}
}

// Close terminates the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
