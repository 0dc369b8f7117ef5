package domain

import "context"

// Transactor runs fn so that every store call made with the derived context
// commits or rolls back together.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
