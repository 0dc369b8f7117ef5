package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jwtauth "github.com/NordCoder/enotary/internal/auth"
	"github.com/NordCoder/enotary/internal/authz"
	"github.com/NordCoder/enotary/internal/domain"
	domainauth "github.com/NordCoder/enotary/internal/domain/auth"
	"github.com/NordCoder/enotary/internal/domain/user"
	"github.com/NordCoder/enotary/internal/obs"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	loginTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_login_total",
		Help: "Login attempts by outcome.",
	}, []string{"result"})
	refreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_refresh_total",
		Help: "Refresh attempts by outcome.",
	}, []string{"result"})
	revokedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_revoked_total",
		Help: "Tokens revoked by kind.",
	}, []string{"kind"})
)

var errSession = fmt.Errorf("refresh: %w", domain.ErrSessionExpiredOrRevoked)

type Config struct {
	RevokeAllOnReuse bool
	Now              func() time.Time
}

type LoginResult struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	Email        string    `json:"email"`
	Role         user.Role `json:"role"`
}

type RefreshResult struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	Email        string `json:"email"`
}

type Usecase struct {
	codec   *jwtauth.Codec
	users   user.Repo
	refresh domainauth.RefreshTokenRepo
	revoked domainauth.RevokedTokenRepo
	tx      domain.Transactor
	events  domainauth.EventSink
	log     *zap.Logger
	cfg     Config
}

type Deps struct {
	Codec   *jwtauth.Codec
	Users   user.Repo
	Refresh domainauth.RefreshTokenRepo
	Revoked domainauth.RevokedTokenRepo
	Tx      domain.Transactor
	Events  domainauth.EventSink
	Log     *zap.Logger
}

func NewUseCase(d Deps, cfg Config) *Usecase {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Usecase{
		codec:   d.Codec,
		users:   d.Users,
		refresh: d.Refresh,
		revoked: d.Revoked,
		tx:      d.Tx,
		events:  d.Events,
		log:     log.With(zap.String("component", "auth.usecase")),
		cfg:     cfg,
	}
}

func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Login verifies the password before looking at account state.
func (u *Usecase) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = NormalizeEmail(email)
	usr, err := u.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			u.loginFailed(ctx, email, "unknown_email")
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(usr.PasswordHash), []byte(password)) != nil {
		u.loginFailed(ctx, email, "bad_password")
		return nil, domain.ErrInvalidCredentials
	}

	now := u.cfg.Now()
	switch {
	case usr.IsLocked(now):
		u.loginFailed(ctx, email, "locked")
		return nil, domain.ErrAccountLocked
	case usr.Disabled:
		u.loginFailed(ctx, email, "disabled")
		return nil, domain.ErrAccountDisabled
	case usr.CredentialsExpired(now):
		u.loginFailed(ctx, email, "credentials_expired")
		return nil, domain.ErrCredentialsExpired
	}

	access, err := u.codec.IssueAccessToken(usr.Email, string(usr.Role), usr.ID.String())
	if err != nil {
		return nil, err
	}

	var refresh jwtauth.Issued
	err = u.tx.WithTx(ctx, func(ctx context.Context) error {
		refresh, err = u.issueRefresh(ctx, usr.Email)
		if err != nil {
			return err
		}
		return u.record(ctx, domainauth.Event{Type: domainauth.EventLoginSucceeded, Email: usr.Email, JTI: refresh.JTI})
	})
	if err != nil {
		loginTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	loginTotal.WithLabelValues("ok").Inc()
	obs.WithTrace(ctx, u.log).Info("login", zap.String("email", usr.Email), zap.String("role", string(usr.Role)))
	return &LoginResult{
		AccessToken:  access.Token,
		RefreshToken: refresh.Token,
		Email:        usr.Email,
		Role:         usr.Role,
	}, nil
}

// Refresh rotates a refresh token. Of two concurrent calls presenting the
// same token exactly one succeeds.
func (u *Usecase) Refresh(ctx context.Context, raw string) (*RefreshResult, error) {
	claims, err := u.codec.ParseAndVerify(raw)
	switch {
	case errors.Is(err, domain.ErrExpiredToken):
		refreshTotal.WithLabelValues("expired").Inc()
		return nil, errSession
	case err != nil:
		refreshTotal.WithLabelValues("invalid").Inc()
		return nil, err
	case claims.Kind != jwtauth.KindRefresh:
		refreshTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: not a refresh token", jwtauth.ErrInvalidToken)
	}

	var (
		res    RefreshResult
		reused bool
	)
	err = u.tx.WithTx(ctx, func(ctx context.Context) error {
		rec, err := u.refresh.FindByJTI(ctx, claims.JTI())
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return errSession
			}
			return fmt.Errorf("find refresh: %w", err)
		}
		if rec.Revoked {
			reused = true
			return errSession
		}
		if !u.cfg.Now().Before(rec.ExpiresAt) {
			return errSession
		}

		changed, err := u.refresh.MarkRevoked(ctx, rec.JTI)
		if err != nil {
			return fmt.Errorf("revoke refresh: %w", err)
		}
		if !changed {
			return errSession
		}

		next, err := u.issueRefresh(ctx, rec.Email)
		if err != nil {
			return err
		}
		access, err := u.CreateAccessTokenForEmail(ctx, rec.Email)
		if err != nil {
			return err
		}
		res = RefreshResult{AccessToken: access, RefreshToken: next.Token, Email: rec.Email}
		return u.record(ctx, domainauth.Event{Type: domainauth.EventRefreshRotated, Email: rec.Email, JTI: next.JTI})
	})
	if err != nil {
		if reused {
			refreshTotal.WithLabelValues("reused").Inc()
			u.onReuse(ctx, claims.Subject, claims.JTI())
		} else {
			refreshTotal.WithLabelValues("rejected").Inc()
		}
		return nil, err
	}

	refreshTotal.WithLabelValues("ok").Inc()
	return &res, nil
}

// CreateAccessTokenForEmail re-reads the account so the token carries its
// current role and id.
func (u *Usecase) CreateAccessTokenForEmail(ctx context.Context, email string) (string, error) {
	usr, err := u.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", errSession
		}
		return "", fmt.Errorf("get user: %w", err)
	}
	issued, err := u.codec.IssueAccessToken(usr.Email, string(usr.Role), usr.ID.String())
	if err != nil {
		return "", err
	}
	return issued.Token, nil
}

// Logout handles the access and refresh branches independently. Unknown or
// malformed tokens are ignored.
func (u *Usecase) Logout(ctx context.Context, accessToken, refreshToken string) error {
	var errs []error

	if accessToken != "" {
		if claims, err := u.codec.ParseAllowExpired(accessToken); err == nil && claims.Kind == jwtauth.KindAccess {
			exp := claims.Expiry()
			if exp.IsZero() {
				exp = u.cfg.Now().Add(u.codec.AccessTTL())
			}
			if err := u.revoked.Add(ctx, claims.JTI(), exp); err != nil {
				errs = append(errs, fmt.Errorf("deny access jti: %w", err))
			} else {
				revokedTotal.WithLabelValues("access").Inc()
				u.recordBestEffort(ctx, domainauth.Event{Type: domainauth.EventLogout, Email: claims.Subject, JTI: claims.JTI(), Reason: "access"})
			}
			if refreshToken == "" {
				if _, err := u.RevokeAllForEmail(ctx, claims.Subject); err != nil {
					errs = append(errs, err)
				}
			}
		}
	}

	if refreshToken != "" {
		if err := u.revokeRefresh(ctx, refreshToken); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (u *Usecase) revokeRefresh(ctx context.Context, raw string) error {
	var jti, email string
	if claims, err := u.codec.ParseAllowExpired(raw); err == nil && claims.Kind == jwtauth.KindRefresh {
		jti, email = claims.JTI(), claims.Subject
	} else {
		rec, err := u.refresh.FindByToken(ctx, raw)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return nil
		case err != nil:
			return fmt.Errorf("find refresh by token: %w", err)
		}
		jti, email = rec.JTI, rec.Email
	}

	changed, err := u.refresh.MarkRevoked(ctx, jti)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("revoke refresh: %w", err)
	}
	if changed {
		revokedTotal.WithLabelValues("refresh").Inc()
		u.recordBestEffort(ctx, domainauth.Event{Type: domainauth.EventLogout, Email: email, JTI: jti, Reason: "refresh"})
	}
	return nil
}

// RevokeAllForEmail revokes every active refresh record of email and returns
// how many this call flipped.
func (u *Usecase) RevokeAllForEmail(ctx context.Context, email string) (int, error) {
	email = NormalizeEmail(email)
	count := 0
	err := u.tx.WithTx(ctx, func(ctx context.Context) error {
		count = 0
		recs, err := u.refresh.ListByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("list refresh: %w", err)
		}
		now := u.cfg.Now()
		for _, rec := range recs {
			if !rec.Active(now) {
				continue
			}
			changed, err := u.refresh.MarkRevoked(ctx, rec.JTI)
			if err != nil {
				return fmt.Errorf("revoke refresh %s: %w", rec.JTI, err)
			}
			if changed {
				count++
			}
		}
		if count == 0 {
			return nil
		}
		return u.record(ctx, domainauth.Event{Type: domainauth.EventRevokedAll, Email: email, Count: count})
	})
	if err != nil {
		return 0, err
	}
	revokedTotal.WithLabelValues("refresh").Add(float64(count))
	return count, nil
}

// Authenticate resolves a bearer access token to the current identity.
func (u *Usecase) Authenticate(ctx context.Context, token string) (*authz.Principal, error) {
	claims, err := u.codec.ParseAndVerify(token)
	if err != nil {
		return nil, err
	}
	if claims.Kind != jwtauth.KindAccess {
		return nil, fmt.Errorf("%w: not an access token", jwtauth.ErrInvalidToken)
	}
	denied, err := u.revoked.Exists(ctx, claims.JTI())
	if err != nil {
		return nil, fmt.Errorf("check denylist: %w", err)
	}
	if denied {
		return nil, fmt.Errorf("%w: revoked", jwtauth.ErrInvalidToken)
	}
	usr, err := u.users.GetByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &authz.Principal{UserID: usr.ID, Email: usr.Email, Role: usr.Role}, nil
}

func (u *Usecase) issueRefresh(ctx context.Context, email string) (jwtauth.Issued, error) {
	issued, err := u.codec.IssueRefreshToken(email)
	if err != nil {
		return jwtauth.Issued{}, err
	}
	rec := &domainauth.RefreshToken{
		ID:        uuid.New(),
		JTI:       issued.JTI,
		Email:     email,
		Token:     issued.Token,
		ExpiresAt: issued.ExpiresAt,
		CreatedAt: issued.IssuedAt,
	}
	if err := u.refresh.Create(ctx, rec); err != nil {
		return jwtauth.Issued{}, fmt.Errorf("save refresh: %w", err)
	}
	return issued, nil
}

func (u *Usecase) onReuse(ctx context.Context, email, jti string) {
	obs.WithTrace(ctx, u.log).Warn("refresh token reuse", zap.String("email", email), zap.String("jti", jti))
	u.recordBestEffort(ctx, domainauth.Event{Type: domainauth.EventRefreshReused, Email: email, JTI: jti})
	if !u.cfg.RevokeAllOnReuse {
		return
	}
	if _, err := u.RevokeAllForEmail(ctx, email); err != nil {
		obs.WithTrace(ctx, u.log).Error("revoke all after reuse", zap.String("email", email), zap.Error(err))
	}
}

func (u *Usecase) loginFailed(ctx context.Context, email, reason string) {
	loginTotal.WithLabelValues(reason).Inc()
	u.recordBestEffort(ctx, domainauth.Event{Type: domainauth.EventLoginFailed, Email: email, Reason: reason})
}

func (u *Usecase) record(ctx context.Context, ev domainauth.Event) error {
	if u.events == nil {
		return nil
	}
	ev.ID = uuid.New()
	ev.At = u.cfg.Now()
	if err := u.events.Record(ctx, ev); err != nil {
		return fmt.Errorf("record %s event: %w", ev.Type, err)
	}
	return nil
}

func (u *Usecase) recordBestEffort(ctx context.Context, ev domainauth.Event) {
	if err := u.record(ctx, ev); err != nil {
		obs.WithTrace(ctx, u.log).Warn("security event dropped", zap.Error(err))
	}
}
