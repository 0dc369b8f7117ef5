package user

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/NordCoder/enotary/internal/authz"
	"github.com/NordCoder/enotary/internal/domain"
	"github.com/NordCoder/enotary/internal/domain/user"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 6

var (
	phonePattern      = regexp.MustCompile(`^0\d{9}$`)
	phoneSeparators   = regexp.MustCompile(`[\s\-()]+`)
	phoneDisallowed   = regexp.MustCompile(`[^+0-9]`)
	nationalIDPattern = regexp.MustCompile(`^\d{12}$`)
)

type SignUp struct {
	Email    string `json:"email"`
	Phone    string `json:"phoneNumber"`
	Password string `json:"password"`
	FullName string `json:"fullName,omitempty"`
}

type ProfileInput struct {
	FullName    string
	DateOfBirth *time.Time
	Address     string
	NationalID  string
}

type AdminSeed struct {
	Email    string
	Password string
	Phone    string
}

type Usecase struct {
	users user.Repo
	tx    domain.Transactor
	log   *zap.Logger
	cost  int
	now   func() time.Time
}

func NewUseCase(users user.Repo, tx domain.Transactor, bcryptCost int, log *zap.Logger) *Usecase {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Usecase{
		users: users,
		tx:    tx,
		log:   log.With(zap.String("component", "user.usecase")),
		cost:  bcryptCost,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func NormalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// NormalizePhone strips separators and rewrites a +84 prefix to 0.
func NormalizePhone(s string) string {
	s = phoneSeparators.ReplaceAllString(s, "")
	s = phoneDisallowed.ReplaceAllString(s, "")
	if rest, ok := strings.CutPrefix(s, "+84"); ok {
		return "0" + rest
	}
	return s
}

func (u *Usecase) RegisterClient(ctx context.Context, in SignUp) (*user.User, error) {
	return u.register(ctx, in, user.RoleClient, user.StatusPending)
}

// CreateNotary is admin-only; notaries start verified.
func (u *Usecase) CreateNotary(ctx context.Context, p *authz.Principal, in SignUp) (*user.User, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return nil, err
	}
	created, err := u.register(ctx, in, user.RoleNotary, user.StatusVerified)
	if err != nil {
		return nil, err
	}
	u.log.Info("notary created", zap.String("email", created.Email), zap.String("by", p.Email))
	return created, nil
}

func (u *Usecase) register(ctx context.Context, in SignUp, role user.Role, status user.VerificationStatus) (*user.User, error) {
	email := NormalizeEmail(in.Email)
	phone := NormalizePhone(in.Phone)

	var ve *domain.ValidationError
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		ve = ve.Add("email", "must be a valid email address")
	}
	if !phonePattern.MatchString(phone) {
		ve = ve.Add("phoneNumber", "must start with 0 or +84 followed by 9 digits")
	}
	if len(in.Password) < minPasswordLen {
		ve = ve.Add("password", fmt.Sprintf("must be at least %d characters", minPasswordLen))
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), u.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := u.now()
	created := &user.User{
		Email:        email,
		Phone:        phone,
		PasswordHash: string(hash),
		Role:         role,
		Status:       status,
		Profile:      user.Profile{FullName: strings.TrimSpace(in.FullName)},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = u.tx.WithTx(ctx, func(ctx context.Context) error {
		taken, err := u.users.ExistsByEmail(ctx, email)
		if err != nil {
			return err
		}
		if taken {
			return domain.Detail(domain.ErrConflict, "Email already registered.")
		}
		taken, err = u.users.ExistsByPhone(ctx, phone)
		if err != nil {
			return err
		}
		if taken {
			return domain.Detail(domain.ErrConflict, "Phone number already registered.")
		}
		if err := u.users.Create(ctx, created); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return domain.Detail(domain.ErrConflict, "Email or phone number already registered.")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (u *Usecase) GetProfile(ctx context.Context, p *authz.Principal) (*user.User, error) {
	if p == nil {
		return nil, domain.ErrUnauthenticated
	}
	return u.users.GetByID(ctx, p.UserID)
}

// UpdateProfile replaces the caller's profile and marks the account verified.
func (u *Usecase) UpdateProfile(ctx context.Context, p *authz.Principal, in ProfileInput) (*user.User, error) {
	if err := authz.RequireRole(p, user.RoleClient); err != nil {
		return nil, err
	}

	now := u.now()
	var ve *domain.ValidationError
	if strings.TrimSpace(in.FullName) == "" {
		ve = ve.Add("fullName", "must not be blank")
	}
	if !nationalIDPattern.MatchString(in.NationalID) {
		ve = ve.Add("nationalId", "must be exactly 12 digits")
	}
	if in.DateOfBirth == nil || !in.DateOfBirth.Before(now) {
		ve = ve.Add("dateOfBirth", "must be a date in the past")
	}
	if l := len([]rune(strings.TrimSpace(in.Address))); l < 5 || l > 255 {
		ve = ve.Add("address", "must be between 5 and 255 characters")
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}

	var updated *user.User
	err := u.tx.WithTx(ctx, func(ctx context.Context) error {
		cur, err := u.users.GetByID(ctx, p.UserID)
		if err != nil {
			return err
		}
		cur.Profile = user.Profile{
			FullName:    strings.TrimSpace(in.FullName),
			DateOfBirth: in.DateOfBirth,
			Address:     strings.TrimSpace(in.Address),
			NationalID:  in.NationalID,
		}
		cur.Status = user.StatusVerified
		if err := u.users.Update(ctx, cur); err != nil {
			return err
		}
		updated = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// EnsureDefaultAdmin promotes or creates the configured admin when no ADMIN
// account exists yet.
func (u *Usecase) EnsureDefaultAdmin(ctx context.Context, seed AdminSeed) error {
	log := u.log.With(zap.String("admin", seed.Email))

	present, err := u.users.ExistsByRole(ctx, user.RoleAdmin)
	if err != nil {
		return fmt.Errorf("check admin: %w", err)
	}
	if present {
		log.Info("admin present")
		return nil
	}
	email := NormalizeEmail(seed.Email)
	if email == "" {
		log.Warn("no admin email configured, skipping admin bootstrap")
		return nil
	}

	phone, err := u.adminPhone(ctx, NormalizePhone(seed.Phone))
	if err != nil {
		return err
	}

	var hash string
	if seed.Password != "" {
		b, err := bcrypt.GenerateFromPassword([]byte(seed.Password), u.cost)
		if err != nil {
			return fmt.Errorf("hash admin password: %w", err)
		}
		hash = string(b)
	}

	return u.tx.WithTx(ctx, func(ctx context.Context) error {
		existing, err := u.users.GetByEmail(ctx, email)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			now := u.now()
			admin := &user.User{
				Email:        email,
				Phone:        phone,
				PasswordHash: hash,
				Role:         user.RoleAdmin,
				Status:       user.StatusVerified,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := u.users.Create(ctx, admin); err != nil {
				return fmt.Errorf("create admin: %w", err)
			}
			log.Info("admin created")
			return nil
		case err != nil:
			return fmt.Errorf("get admin: %w", err)
		}

		existing.Role = user.RoleAdmin
		existing.Status = user.StatusVerified
		if hash != "" {
			existing.PasswordHash = hash
		}
		if existing.Phone == "" {
			existing.Phone = phone
		}
		if err := u.users.Update(ctx, existing); err != nil {
			return fmt.Errorf("promote admin: %w", err)
		}
		log.Info("existing user promoted to admin")
		return nil
	})
}

func (u *Usecase) adminPhone(ctx context.Context, configured string) (string, error) {
	if configured != "" {
		taken, err := u.users.ExistsByPhone(ctx, configured)
		if err != nil {
			return "", err
		}
		if !taken {
			return configured, nil
		}
		u.log.Warn("configured admin phone already in use", zap.String("phone", configured))
	}
	for i := 0; i < 50; i++ {
		gen := fmt.Sprintf("096%07d", rand.IntN(10_000_000))
		taken, err := u.users.ExistsByPhone(ctx, gen)
		if err != nil {
			return "", err
		}
		if !taken {
			return gen, nil
		}
	}
	return "", errors.New("no free phone number for admin")
}
