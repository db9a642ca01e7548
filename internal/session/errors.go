package session

import "errors"

// errDropped is returned when a subscriber's buffer has overflowed and
// the session is closing so the client can reconnect and resynchronize
// with a fresh snapshot.
var errDropped = errors.New("session: subscriber buffer overflowed, closing for resync")
