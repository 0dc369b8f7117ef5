package request

import (
	"context"
	"io"

	"github.com/google/uuid"
)

type Repo interface {
	Create(ctx context.Context, r *Request) error
	GetByID(ctx context.Context, id uuid.UUID) (*Request, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]*Request, error)
	ListByStatus(ctx context.Context, status Status) ([]*Request, error)
	ListByNotaryAndStatus(ctx context.Context, notaryID uuid.UUID, status Status) ([]*Request, error)
	// Update writes r only while the stored row is still in state prev and
	// returns domain.ErrConflict otherwise.
	Update(ctx context.Context, r *Request, prev State) error
}

type DocumentRepo interface {
	Create(ctx context.Context, d *Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*Document, error)
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*Document, error)
}

type FileStore interface {
	Save(ctx context.Context, name string, r io.Reader) (StoredFile, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Remove(ctx context.Context, path string) error
}
