package database

import "context"

// Transactor runs fn inside a transaction carried by the context handed to
// fn. Repositories pick the transaction up from that context. A call made
// with a context that already carries a transaction joins it.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(txCtx context.Context) error) error
}
