package request

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/NordCoder/enotary/internal/authz"
	"github.com/NordCoder/enotary/internal/domain"
	"github.com/NordCoder/enotary/internal/domain/request"
	"github.com/NordCoder/enotary/internal/domain/user"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const maxDescriptionLen = 1000

var requestActions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "notary_request_actions_total",
	Help: "Notary request state changes by action.",
}, []string{"action"})

// progression is the forward order a handler moves a request through.
var progression = map[request.Status]int{
	request.StatusNew:             0,
	request.StatusProcessing:      1,
	request.StatusScheduled:       2,
	request.StatusAwaitingPayment: 3,
	request.StatusCompleted:       4,
}

type CreateInput struct {
	ServiceType  request.ServiceType  `json:"serviceType"`
	ContractType request.ContractType `json:"contractType"`
	Description  string               `json:"description"`
}

type Upload struct {
	FileName string
	DocType  request.DocType
	Body     io.Reader
}

// Details is a request together with its documents.
type Details struct {
	Request   *request.Request
	Documents []*request.Document
}

type Usecase struct {
	requests request.Repo
	docs     request.DocumentRepo
	files    request.FileStore
	users    user.Repo
	tx       domain.Transactor
	log      *zap.Logger
	now      func() time.Time
}

func NewUseCase(requests request.Repo, docs request.DocumentRepo, files request.FileStore, users user.Repo, tx domain.Transactor, log *zap.Logger) *Usecase {
	return &Usecase{
		requests: requests,
		docs:     docs,
		files:    files,
		users:    users,
		tx:       tx,
		log:      log.With(zap.String("component", "request.usecase")),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (u *Usecase) Create(ctx context.Context, p *authz.Principal, in CreateInput) (*request.Request, error) {
	if err := authz.CanCreateRequest(p); err != nil {
		return nil, err
	}
	var ve *domain.ValidationError
	if !in.ServiceType.Valid() {
		ve = ve.Add("serviceType", "must be ONLINE or OFFLINE")
	}
	if !in.ContractType.Valid() {
		ve = ve.Add("contractType", "unknown contract type")
	}
	if utf8.RuneCountInString(in.Description) > maxDescriptionLen {
		ve = ve.Add("description", fmt.Sprintf("must be at most %d characters", maxDescriptionLen))
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}

	now := u.now()
	r := &request.Request{
		ID:           uuid.New(),
		ClientID:     p.UserID,
		ClientEmail:  p.Email,
		ServiceType:  in.ServiceType,
		ContractType: in.ContractType,
		Description:  strings.TrimSpace(in.Description),
		Status:       request.StatusNew,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := u.requests.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	requestActions.WithLabelValues("create").Inc()
	u.log.Info("request created", zap.String("id", r.ID.String()), zap.String("client", p.Email))
	return r, nil
}

func (u *Usecase) Get(ctx context.Context, p *authz.Principal, id uuid.UUID) (*Details, error) {
	if p == nil {
		return nil, domain.ErrUnauthenticated
	}
	r, err := u.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.CanAccessRequest(p, authz.RequestResource(r)); err != nil {
		return nil, err
	}
	docs, err := u.docs.ListByRequest(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return &Details{Request: r, Documents: docs}, nil
}

// ListMine returns the caller's own requests, newest first.
func (u *Usecase) ListMine(ctx context.Context, p *authz.Principal) ([]*request.Request, error) {
	if p == nil {
		return nil, domain.ErrUnauthenticated
	}
	return u.requests.ListByClient(ctx, p.UserID)
}

// ListForNotary lists the unassigned pool for NEW and the caller's assigned
// requests for any other status. Admins see every request in that status.
func (u *Usecase) ListForNotary(ctx context.Context, p *authz.Principal, status request.Status) ([]*request.Request, error) {
	if err := authz.RequireRole(p, user.RoleNotary, user.RoleAdmin); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, domain.Invalid("status", "unknown status")
	}
	if status == request.StatusNew || p.Role == user.RoleAdmin {
		return u.requests.ListByStatus(ctx, status)
	}
	return u.requests.ListByNotaryAndStatus(ctx, p.UserID, status)
}

// Assign hands a request to a notary. A notary may only claim a NEW request
// for itself; an admin may assign any notary to a live request.
func (u *Usecase) Assign(ctx context.Context, p *authz.Principal, id uuid.UUID, notaryID *uuid.UUID) (*request.Request, error) {
	if err := authz.RequireRole(p, user.RoleNotary, user.RoleAdmin); err != nil {
		return nil, err
	}

	var out *request.Request
	err := u.tx.WithTx(ctx, func(ctx context.Context) error {
		r, err := u.requests.GetByID(ctx, id)
		if err != nil {
			return err
		}
		prev := r.State()

		var notary *user.User
		switch p.Role {
		case user.RoleNotary:
			if notaryID != nil && *notaryID != p.UserID {
				return fmt.Errorf("%w: notaries can only assign themselves", domain.ErrForbidden)
			}
			if r.Status != request.StatusNew || r.NotaryID != nil {
				return domain.Detail(domain.ErrConflict, "Request is already assigned.")
			}
			notary = &user.User{ID: p.UserID, Email: p.Email, Role: user.RoleNotary}
		default:
			if notaryID == nil {
				return domain.Invalid("notaryId", "must not be empty")
			}
			if r.Status.Terminal() {
				return domain.Detail(domain.ErrBadRequest, "Request is already closed.")
			}
			notary, err = u.users.GetByID(ctx, *notaryID)
			if err != nil {
				return err
			}
			if notary.Role != user.RoleNotary {
				return domain.Invalid("notaryId", "user is not a notary")
			}
		}

		r.NotaryID = &notary.ID
		r.NotaryEmail = notary.Email
		if r.Status == request.StatusNew {
			r.Status = request.StatusProcessing
		}
		r.UpdatedAt = u.now()
		if err := u.save(ctx, r, prev); err != nil {
			return fmt.Errorf("assign request: %w", err)
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	requestActions.WithLabelValues("assign").Inc()
	u.log.Info("request assigned", zap.String("id", id.String()), zap.String("notary", out.NotaryEmail), zap.String("by", p.Email))
	return out, nil
}

// UpdateStatus moves a request forward through its processing stages.
func (u *Usecase) UpdateStatus(ctx context.Context, p *authz.Principal, id uuid.UUID, status request.Status) (*request.Request, error) {
	if p == nil {
		return nil, domain.ErrUnauthenticated
	}
	target, ok := progression[status]
	if !ok || status == request.StatusNew {
		return nil, domain.Invalid("status", "must be PROCESSING, SCHEDULED, AWAITING_PAYMENT or COMPLETED")
	}

	var out *request.Request
	err := u.tx.WithTx(ctx, func(ctx context.Context) error {
		r, err := u.requests.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := authz.CanHandleRequest(p, authz.RequestResource(r)); err != nil {
			return err
		}
		prev := r.State()
		if r.Status.Terminal() {
			return domain.Detail(domain.ErrBadRequest, "Request is already closed.")
		}
		if r.NotaryID == nil {
			return domain.Detail(domain.ErrBadRequest, "Request has no assigned notary.")
		}
		if target <= progression[r.Status] {
			return domain.Detail(domain.ErrBadRequest, fmt.Sprintf("Cannot move request from %s to %s.", r.Status, status))
		}
		r.Status = status
		r.UpdatedAt = u.now()
		if err := u.save(ctx, r, prev); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	requestActions.WithLabelValues(strings.ToLower(string(status))).Inc()
	return out, nil
}

// Cancel is allowed to the owner or an admin unless the request is completed.
func (u *Usecase) Cancel(ctx context.Context, p *authz.Principal, id uuid.UUID) (*request.Request, error) {
	if p == nil {
		return nil, domain.ErrUnauthenticated
	}
	var out *request.Request
	err := u.tx.WithTx(ctx, func(ctx context.Context) error {
		r, err := u.requests.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := authz.CanCancelRequest(p, authz.RequestResource(r), r.Status); err != nil {
			if errors.Is(err, domain.ErrBadRequest) {
				return domain.Detail(err, "Completed request cannot be cancelled.")
			}
			return err
		}
		prev := r.State()
		r.Status = request.StatusCancelled
		r.UpdatedAt = u.now()
		if err := u.save(ctx, r, prev); err != nil {
			return fmt.Errorf("cancel request: %w", err)
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	requestActions.WithLabelValues("cancel").Inc()
	u.log.Info("request cancelled", zap.String("id", id.String()), zap.String("by", p.Email))
	return out, nil
}

// save writes r unless another transition landed since it was read as prev.
func (u *Usecase) save(ctx context.Context, r *request.Request, prev request.State) error {
	err := u.requests.Update(ctx, r, prev)
	if errors.Is(err, domain.ErrConflict) {
		return domain.Detail(err, "Request was changed by someone else, reload and retry.")
	}
	return err
}

func (u *Usecase) UploadDocument(ctx context.Context, p *authz.Principal, id uuid.UUID, up Upload) (*request.Document, error) {
	if p == nil {
		return nil, domain.ErrUnauthenticated
	}
	r, err := u.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.CanAccessRequest(p, authz.RequestResource(r)); err != nil {
		return nil, err
	}
	var ve *domain.ValidationError
	if !up.DocType.Valid() {
		ve = ve.Add("docType", "unknown document type")
	}
	if strings.TrimSpace(up.FileName) == "" || up.Body == nil {
		ve = ve.Add("file", "must not be empty")
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}

	stored, err := u.files.Save(ctx, up.FileName, up.Body)
	if err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}
	doc := &request.Document{
		ID:         uuid.New(),
		RequestID:  r.ID,
		DocType:    up.DocType,
		FileName:   up.FileName,
		Path:       stored.Path,
		SHA256:     stored.SHA256,
		Size:       stored.Size,
		UploadedBy: p.UserID,
		CreatedAt:  u.now(),
	}
	if err := u.docs.Create(ctx, doc); err != nil {
		if rerr := u.files.Remove(context.WithoutCancel(ctx), stored.Path); rerr != nil {
			u.log.Warn("remove unrecorded document", zap.String("path", stored.Path), zap.Error(rerr))
		}
		return nil, fmt.Errorf("record document: %w", err)
	}
	requestActions.WithLabelValues("upload").Inc()
	u.log.Info("document uploaded",
		zap.String("request", r.ID.String()), zap.String("document", doc.ID.String()),
		zap.Int64("size", doc.Size), zap.String("by", p.Email))
	return doc, nil
}

// OpenDocument returns the document metadata and its bytes. The caller closes
// the reader.
func (u *Usecase) OpenDocument(ctx context.Context, p *authz.Principal, docID uuid.UUID) (*request.Document, io.ReadCloser, error) {
	if p == nil {
		return nil, nil, domain.ErrUnauthenticated
	}
	doc, err := u.docs.GetByID(ctx, docID)
	if err != nil {
		return nil, nil, err
	}
	r, err := u.requests.GetByID(ctx, doc.RequestID)
	if err != nil {
		return nil, nil, err
	}
	if err := authz.CanAccessRequest(p, authz.RequestResource(r)); err != nil {
		return nil, nil, err
	}
	rc, err := u.files.Open(ctx, doc.Path)
	if err != nil {
		return nil, nil, err
	}
	return doc, rc, nil
}
