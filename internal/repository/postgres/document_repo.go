package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/NordCoder/enotary/internal/domain/request"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var _ request.DocumentRepo = (*DocumentRepo)(nil)

type DocumentRepo struct{ db *DB }

func NewDocumentRepo(db *DB) *DocumentRepo { return &DocumentRepo{db: db} }

const (
	qDocInsert = `
INSERT INTO documents (id, request_id, doc_type, file_name, path, sha256, size_bytes, uploaded_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);`

	qDocByID = `
SELECT id, request_id, doc_type, file_name, path, sha256, size_bytes, uploaded_by, created_at
FROM documents
WHERE id = $1;`

	qDocByRequest = `
SELECT id, request_id, doc_type, file_name, path, sha256, size_bytes, uploaded_by, created_at
FROM documents
WHERE request_id = $1
ORDER BY created_at;`
)

func (r *DocumentRepo) Create(ctx context.Context, d *request.Document) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	_, err := r.db.execQueryer(ctx).Exec(ctx, qDocInsert,
		d.ID, d.RequestID, string(d.DocType), d.FileName, d.Path, d.SHA256, d.Size, d.UploadedBy, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("document insert: %w", err)
	}
	return nil
}

func (r *DocumentRepo) GetByID(ctx context.Context, id uuid.UUID) (*request.Document, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var d request.Document
	if err := scanDocument(r.db.execQueryer(ctx).QueryRow(ctx, qDocByID, id), &d); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *DocumentRepo) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*request.Document, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.execQueryer(ctx).Query(ctx, qDocByRequest, requestID)
	if err != nil {
		return nil, fmt.Errorf("document list: %w", err)
	}
	defer rows.Close()

	var out []*request.Document
	for rows.Next() {
		var d request.Document
		if err := scanDocument(rows, &d); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

func scanDocument(row pgx.Row, d *request.Document) error {
	var docType string
	err := row.Scan(&d.ID, &d.RequestID, &docType, &d.FileName, &d.Path, &d.SHA256, &d.Size, &d.UploadedBy, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		return fmt.Errorf("scan document: %w", err)
	}
	d.DocType = request.DocType(docType)
	return nil
}
