package request

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/NordCoder/enotary/internal/authz"
	"github.com/NordCoder/enotary/internal/domain"
	"github.com/NordCoder/enotary/internal/domain/request"
	"github.com/NordCoder/enotary/internal/obs"
	"github.com/NordCoder/enotary/internal/services/api-gateway/httpx"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
)

const multipartMemory = 8 << 20

type Service interface {
	Create(ctx context.Context, p *authz.Principal, in CreateInput) (*request.Request, error)
	Get(ctx context.Context, p *authz.Principal, id uuid.UUID) (*Details, error)
	ListMine(ctx context.Context, p *authz.Principal) ([]*request.Request, error)
	ListForNotary(ctx context.Context, p *authz.Principal, status request.Status) ([]*request.Request, error)
	Assign(ctx context.Context, p *authz.Principal, id uuid.UUID, notaryID *uuid.UUID) (*request.Request, error)
	UpdateStatus(ctx context.Context, p *authz.Principal, id uuid.UUID, status request.Status) (*request.Request, error)
	Cancel(ctx context.Context, p *authz.Principal, id uuid.UUID) (*request.Request, error)
	UploadDocument(ctx context.Context, p *authz.Principal, id uuid.UUID, up Upload) (*request.Document, error)
	OpenDocument(ctx context.Context, p *authz.Principal, docID uuid.UUID) (*request.Document, io.ReadCloser, error)
}

type Handler struct {
	svc Service
	log *zap.Logger
}

func NewHandler(svc Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log.With(zap.String("component", "request.http"))}
}

func (h *Handler) Register(mux *runtime.ServeMux) error {
	for _, rt := range []struct {
		method, path string
		fn           runtime.HandlerFunc
	}{
		{http.MethodPost, "/api/requests", h.create},
		{http.MethodGet, "/api/requests/{id}", h.get},
		{http.MethodPost, "/api/requests/{id}/assign", h.assign},
		{http.MethodPost, "/api/requests/{id}/status", h.updateStatus},
		{http.MethodPost, "/api/requests/{id}/cancel", h.cancel},
		{http.MethodPost, "/api/requests/{id}/documents", h.upload},
		{http.MethodGet, "/api/notary/requests", h.listForNotary},
		{http.MethodGet, "/api/documents/{id}", h.download},
	} {
		if err := mux.HandlePath(rt.method, rt.path, rt.fn); err != nil {
			return err
		}
	}
	return nil
}

type requestResponse struct {
	RequestID    uuid.UUID            `json:"requestId"`
	ClientID     uuid.UUID            `json:"clientId"`
	NotaryID     *uuid.UUID           `json:"notaryId"`
	ServiceType  request.ServiceType  `json:"serviceType"`
	ContractType request.ContractType `json:"contractType"`
	Description  string               `json:"description"`
	Status       request.Status       `json:"status"`
	CreatedAt    time.Time            `json:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`
	DocumentIDs  []string             `json:"documentIds"`
}

func toRequestResponse(r *request.Request, docs []*request.Document) requestResponse {
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID.String())
	}
	return requestResponse{
		RequestID:    r.ID,
		ClientID:     r.ClientID,
		NotaryID:     r.NotaryID,
		ServiceType:  r.ServiceType,
		ContractType: r.ContractType,
		Description:  r.Description,
		Status:       r.Status,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		DocumentIDs:  ids,
	}
}

func toRequestList(rs []*request.Request) []requestResponse {
	out := make([]requestResponse, 0, len(rs))
	for _, r := range rs {
		out = append(out, toRequestResponse(r, nil))
	}
	return out
}

type documentResponse struct {
	DocumentID uuid.UUID       `json:"documentId"`
	RequestID  uuid.UUID       `json:"requestId"`
	FileName   string          `json:"fileName"`
	FilePath   string          `json:"filePath"`
	DocType    request.DocType `json:"docType"`
	FileHash   string          `json:"fileHash"`
	Size       int64           `json:"size"`
	CreatedAt  time.Time       `json:"createdAt"`
}

func toDocumentResponse(d *request.Document) documentResponse {
	return documentResponse{
		DocumentID: d.ID,
		RequestID:  d.RequestID,
		FileName:   d.FileName,
		FilePath:   d.Path,
		DocType:    d.DocType,
		FileHash:   d.SHA256,
		Size:       d.Size,
		CreatedAt:  d.CreatedAt,
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	httpx.WriteError(w, r, h.log, err)
}

// principal writes 401 and returns nil when the caller is anonymous.
func (h *Handler) principal(w http.ResponseWriter, r *http.Request) *authz.Principal {
	p := httpx.Principal(r)
	if p == nil {
		h.fail(w, r, domain.ErrUnauthenticated)
	}
	return p
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	var in CreateInput
	if err := httpx.DecodeJSON(r, &in, false); err != nil {
		h.fail(w, r, err)
		return
	}
	created, err := h.svc.Create(r.Context(), p, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/requests/"+created.ID.String())
	httpx.WriteJSON(w, http.StatusCreated, toRequestResponse(created, nil))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request, params map[string]string) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	if params["id"] == "me" {
		list, err := h.svc.ListMine(r.Context(), p)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toRequestList(list))
		return
	}
	id, err := httpx.PathUUID(params, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	d, err := h.svc.Get(r.Context(), p, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toRequestResponse(d.Request, d.Documents))
}

func (h *Handler) listForNotary(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	status := request.Status(r.URL.Query().Get("status"))
	if status == "" {
		status = request.StatusNew
	}
	list, err := h.svc.ListForNotary(r.Context(), p, status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toRequestList(list))
}

type assignRequest struct {
	NotaryID *uuid.UUID `json:"notaryId"`
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request, params map[string]string) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	id, err := httpx.PathUUID(params, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req assignRequest
	if err := httpx.DecodeJSON(r, &req, true); err != nil {
		h.fail(w, r, err)
		return
	}
	updated, err := h.svc.Assign(r.Context(), p, id, req.NotaryID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toRequestResponse(updated, nil))
}

type statusRequest struct {
	Status request.Status `json:"status"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request, params map[string]string) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	id, err := httpx.PathUUID(params, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req, false); err != nil {
		h.fail(w, r, err)
		return
	}
	updated, err := h.svc.UpdateStatus(r.Context(), p, id, req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toRequestResponse(updated, nil))
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request, params map[string]string) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	id, err := httpx.PathUUID(params, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	updated, err := h.svc.Cancel(r.Context(), p, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toRequestResponse(updated, nil))
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request, params map[string]string) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	id, err := httpx.PathUUID(params, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(w, r, domain.Invalid("file", "file is too large"))
			return
		}
		h.fail(w, r, domain.Invalid("file", "expected multipart/form-data with a file part"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.fail(w, r, domain.Invalid("file", "must not be empty"))
		return
	}
	defer file.Close()

	doc, err := h.svc.UploadDocument(r.Context(), p, id, Upload{
		FileName: header.Filename,
		DocType:  request.DocType(r.FormValue("docType")),
		Body:     file,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/documents/"+doc.ID.String())
	httpx.WriteJSON(w, http.StatusCreated, toDocumentResponse(doc))
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request, params map[string]string) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	id, err := httpx.PathUUID(params, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	doc, rc, err := h.svc.OpenDocument(r.Context(), p, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.FileName}))
	w.Header().Set("Content-Length", strconv.FormatInt(doc.Size, 10))
	w.Header().Set("X-Content-SHA256", doc.SHA256)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		obs.WithTrace(r.Context(), h.log).Warn("document stream interrupted",
			zap.String("document", doc.ID.String()), zap.Error(fmt.Errorf("copy: %w", err)))
	}
}
