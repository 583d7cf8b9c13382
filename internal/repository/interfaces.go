package repository

import "context"

// Document is a versioned JSON document addressed by collection and id.
//
// Version is the value observed when the document was read; zero means the
// document is expected not to exist yet. Indexes holds the field/value pairs
// List can match on.
type Document struct {
	Collection string
	ID         string
	Version    int64
	Indexes    map[string]string
	Body       []byte
}

// Reader provides read access to documents.
type Reader interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	List(ctx context.Context, collection, field, value string) ([]Document, error)
}

// Tx is the handle passed to a transaction function. Reads are tracked and
// writes are buffered until commit, where every tracked version is checked.
type Tx interface {
	Reader
	Put(ctx context.Context, doc Document) error
	Delete(ctx context.Context, collection, id string) error
}

// TxFunc is a unit of work run inside a transaction.
type TxFunc func(ctx context.Context, tx Tx) error

// Store is the persistence port every workflow runs against.
//
// RunTransaction commits the writes made by fn atomically, or returns
// ErrConflict when any document read or written by fn changed underneath it.
// Errors returned by fn abort the transaction and are returned unchanged.
type Store interface {
	Reader
	RunTransaction(ctx context.Context, fn TxFunc) error
}
