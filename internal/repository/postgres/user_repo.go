package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/NordCoder/enotary/internal/domain/user"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var _ user.Repo = (*UserRepo)(nil)

type UserRepo struct {
	db *DB
}

func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, email, phone, password_hash, role, status,
       full_name, date_of_birth, address, national_id,
       disabled, locked_until, password_expires_at, created_at, updated_at`

const (
	qUserInsert = `
INSERT INTO users (id, email, phone, password_hash, role, status,
                   full_name, date_of_birth, address, national_id,
                   disabled, locked_until, password_expires_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14);`

	qUserByID = `
SELECT ` + userColumns + `
FROM users
WHERE id = $1;`

	qUserByEmail = `
SELECT ` + userColumns + `
FROM users
WHERE email = $1;`

	qUserExistsEmail = `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1);`
	qUserExistsPhone = `SELECT EXISTS (SELECT 1 FROM users WHERE phone = $1);`
	qUserExistsRole  = `SELECT EXISTS (SELECT 1 FROM users WHERE role = $1);`

	qUserUpdate = `
UPDATE users
SET email               = $2,
    phone               = $3,
    password_hash       = $4,
    role                = $5,
    status              = $6,
    full_name           = $7,
    date_of_birth       = $8,
    address             = $9,
    national_id         = $10,
    disabled            = $11,
    locked_until        = $12,
    password_expires_at = $13,
    updated_at          = NOW()
WHERE id = $1
RETURNING updated_at;`
)

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	p := u.Profile
	_, err := r.db.execQueryer(ctx).Exec(ctx, qUserInsert,
		u.ID, u.Email, u.Phone, u.PasswordHash, string(u.Role), string(u.Status),
		p.FullName, p.DateOfBirth, p.Address, p.NationalID,
		u.Disabled, u.LockedUntil, u.PasswordExpiresAt, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("user insert: %w", err)
	}
	u.UpdatedAt = u.CreatedAt
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var u user.User
	if err := scanUser(r.db.execQueryer(ctx).QueryRow(ctx, qUserByID, id), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var u user.User
	if err := scanUser(r.db.execQueryer(ctx).QueryRow(ctx, qUserByEmail, email), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, qUserExistsEmail, email)
}

func (r *UserRepo) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	return r.exists(ctx, qUserExistsPhone, phone)
}

func (r *UserRepo) ExistsByRole(ctx context.Context, role user.Role) (bool, error) {
	return r.exists(ctx, qUserExistsRole, string(role))
}

func (r *UserRepo) exists(ctx context.Context, q string, arg any) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var ok bool
	if err := r.db.execQueryer(ctx).QueryRow(ctx, q, arg).Scan(&ok); err != nil {
		return false, fmt.Errorf("user exists: %w", err)
	}
	return ok, nil
}

func (r *UserRepo) Update(ctx context.Context, u *user.User) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	p := u.Profile
	err := r.db.execQueryer(ctx).QueryRow(ctx, qUserUpdate,
		u.ID, u.Email, u.Phone, u.PasswordHash, string(u.Role), string(u.Status),
		p.FullName, p.DateOfBirth, p.Address, p.NationalID,
		u.Disabled, u.LockedUntil, u.PasswordExpiresAt).
		Scan(&u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("user update: %w", err)
	}
	return nil
}

func scanUser(row pgx.Row, out *user.User) error {
	var role, status string
	err := row.Scan(&out.ID, &out.Email, &out.Phone, &out.PasswordHash, &role, &status,
		&out.Profile.FullName, &out.Profile.DateOfBirth, &out.Profile.Address, &out.Profile.NationalID,
		&out.Disabled, &out.LockedUntil, &out.PasswordExpiresAt, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("scan user: %w", err)
	}
	out.Role = user.Role(role)
	out.Status = user.VerificationStatus(status)
	return nil
}
