package memory

import (
	"context"

	"github.com/NordCoder/enotary/internal/domain"
)

var _ domain.Transactor = Transactor{}

// Transactor runs fn directly without isolation; each store is individually
// linearizable.
type Transactor struct{}

func (Transactor) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
