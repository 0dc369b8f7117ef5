package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/NordCoder/enotary/internal/domain"
	"github.com/NordCoder/enotary/internal/domain/request"
	"github.com/google/uuid"
)

var (
	_ request.Repo         = (*RequestRepo)(nil)
	_ request.DocumentRepo = (*DocumentRepo)(nil)
)

type RequestRepo struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]request.Request
}

func NewRequestRepo() *RequestRepo {
	return &RequestRepo{rows: make(map[uuid.UUID]request.Request)}
}

func (r *RequestRepo) Create(_ context.Context, req *request.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	req.UpdatedAt = req.CreatedAt
	r.rows[req.ID] = *req
	return nil
}

func (r *RequestRepo) GetByID(_ context.Context, id uuid.UUID) (*request.Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, ok := r.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &req, nil
}

func (r *RequestRepo) ListByClient(_ context.Context, clientID uuid.UUID) ([]*request.Request, error) {
	out := r.filter(func(req *request.Request) bool { return req.ClientID == clientID })
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *RequestRepo) ListByStatus(_ context.Context, status request.Status) ([]*request.Request, error) {
	return r.filter(func(req *request.Request) bool { return req.Status == status }), nil
}

func (r *RequestRepo) ListByNotaryAndStatus(_ context.Context, notaryID uuid.UUID, status request.Status) ([]*request.Request, error) {
	return r.filter(func(req *request.Request) bool {
		return req.NotaryID != nil && *req.NotaryID == notaryID && req.Status == status
	}), nil
}

func (r *RequestRepo) Update(_ context.Context, req *request.Request, prev request.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.rows[req.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.State() != prev {
		return domain.ErrConflict
	}
	r.rows[req.ID] = *req
	return nil
}

func (r *RequestRepo) filter(keep func(*request.Request) bool) []*request.Request {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*request.Request
	for _, row := range r.rows {
		req := row
		if keep(&req) {
			out = append(out, &req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

type DocumentRepo struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]request.Document
}

func NewDocumentRepo() *DocumentRepo {
	return &DocumentRepo{rows: make(map[uuid.UUID]request.Document)}
}

func (r *DocumentRepo) Create(_ context.Context, d *request.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	r.rows[d.ID] = *d
	return nil
}

func (r *DocumentRepo) GetByID(_ context.Context, id uuid.UUID) (*request.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &d, nil
}

func (r *DocumentRepo) ListByRequest(_ context.Context, requestID uuid.UUID) ([]*request.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*request.Document
	for _, row := range r.rows {
		if row.RequestID == requestID {
			d := row
			out = append(out, &d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
