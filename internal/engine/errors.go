package engine

import "errors"

// ErrInvalidOrder is returned by Submit for any validation failure. The
// book is left untouched and no notifications are emitted.
var ErrInvalidOrder = errors.New("engine: invalid order")

// ErrBookQuarantined is returned by Submit once a book has observed an
// internal invariant violation. A quarantined book never accepts
// another order.
var ErrBookQuarantined = errors.New("engine: book quarantined after invariant violation")
