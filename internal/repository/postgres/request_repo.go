package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/NordCoder/enotary/internal/domain/request"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var _ request.Repo = (*RequestRepo)(nil)

type RequestRepo struct{ db *DB }

func NewRequestRepo(db *DB) *RequestRepo { return &RequestRepo{db: db} }

const requestSelect = `
SELECT r.id, r.client_id, c.email, r.notary_id, COALESCE(n.email, ''),
       r.service_type, r.contract_type, r.description, r.status, r.created_at, r.updated_at
FROM notary_requests r
JOIN users c ON c.id = r.client_id
LEFT JOIN users n ON n.id = r.notary_id`

const (
	qReqInsert = `
INSERT INTO notary_requests (id, client_id, notary_id, service_type, contract_type, description, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8);`

	qReqByID           = requestSelect + ` WHERE r.id = $1;`
	qReqByClient       = requestSelect + ` WHERE r.client_id = $1 ORDER BY r.created_at DESC;`
	qReqByStatus       = requestSelect + ` WHERE r.status = $1 ORDER BY r.created_at;`
	qReqByNotaryStatus = requestSelect + ` WHERE r.notary_id = $1 AND r.status = $2 ORDER BY r.created_at;`

	qReqUpdate = `
UPDATE notary_requests
SET notary_id     = $2,
    service_type  = $3,
    contract_type = $4,
    description   = $5,
    status        = $6,
    updated_at    = NOW()
WHERE id = $1
  AND status = $7
  AND notary_id IS NOT DISTINCT FROM $8
RETURNING updated_at;`
)

func (r *RequestRepo) Create(ctx context.Context, req *request.Request) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	_, err := r.db.execQueryer(ctx).Exec(ctx, qReqInsert,
		req.ID, req.ClientID, req.NotaryID, string(req.ServiceType), string(req.ContractType),
		req.Description, string(req.Status), req.CreatedAt)
	if err != nil {
		return fmt.Errorf("request insert: %w", err)
	}
	req.UpdatedAt = req.CreatedAt
	return nil
}

func (r *RequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*request.Request, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var req request.Request
	if err := scanRequest(r.db.execQueryer(ctx).QueryRow(ctx, qReqByID, id), &req); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

func (r *RequestRepo) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*request.Request, error) {
	return r.list(ctx, qReqByClient, clientID)
}

func (r *RequestRepo) ListByStatus(ctx context.Context, status request.Status) ([]*request.Request, error) {
	return r.list(ctx, qReqByStatus, string(status))
}

func (r *RequestRepo) ListByNotaryAndStatus(ctx context.Context, notaryID uuid.UUID, status request.Status) ([]*request.Request, error) {
	return r.list(ctx, qReqByNotaryStatus, notaryID, string(status))
}

func (r *RequestRepo) list(ctx context.Context, q string, args ...any) ([]*request.Request, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.execQueryer(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("request list: %w", err)
	}
	defer rows.Close()

	var out []*request.Request
	for rows.Next() {
		var req request.Request
		if err := scanRequest(rows, &req); err != nil {
			return nil, err
		}
		out = append(out, &req)
	}
	return out, rows.Err()
}

// Update returns ErrConflict when the row left state prev after it was read.
func (r *RequestRepo) Update(ctx context.Context, req *request.Request, prev request.State) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	err := r.db.execQueryer(ctx).QueryRow(ctx, qReqUpdate,
		req.ID, req.NotaryID, string(req.ServiceType), string(req.ContractType),
		req.Description, string(req.Status), string(prev.Status), prev.NotaryID).Scan(&req.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrConflict
		}
		return fmt.Errorf("request update: %w", err)
	}
	return nil
}

func scanRequest(row pgx.Row, out *request.Request) error {
	var (
		notary                    uuid.NullUUID
		service, contract, status string
	)
	err := row.Scan(&out.ID, &out.ClientID, &out.ClientEmail, &notary, &out.NotaryEmail,
		&service, &contract, &out.Description, &status, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		return fmt.Errorf("scan request: %w", err)
	}
	if notary.Valid {
		id := notary.UUID
		out.NotaryID = &id
	}
	out.ServiceType = request.ServiceType(service)
	out.ContractType = request.ContractType(contract)
	out.Status = request.Status(status)
	return nil
}
