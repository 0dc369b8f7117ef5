package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/NordCoder/enotary/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSecretLen is the HS512 key size in bytes.
const MinSecretLen = 64

var (
	ErrInvalidToken = fmt.Errorf("token: %w", domain.ErrInvalidToken)
	ErrExpiredToken = fmt.Errorf("token: %w", domain.ErrExpiredToken)
)

type Config struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
	Now        func() time.Time
}

type Codec struct {
	cfg     Config
	strict  *jwt.Parser
	lenient *jwt.Parser
}

func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.Secret) < MinSecretLen {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes, got %d", MinSecretLen, len(cfg.Secret))
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	methods := jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()})
	strictOpts := []jwt.ParserOption{methods, jwt.WithTimeFunc(cfg.Now), jwt.WithExpirationRequired(), jwt.WithIssuedAt()}
	if cfg.Issuer != "" {
		strictOpts = append(strictOpts, jwt.WithIssuer(cfg.Issuer))
	}
	return &Codec{
		cfg:     cfg,
		strict:  jwt.NewParser(strictOpts...),
		lenient: jwt.NewParser(methods, jwt.WithoutClaimsValidation()),
	}, nil
}

func (c *Codec) AccessTTL() time.Duration  { return c.cfg.AccessTTL }
func (c *Codec) RefreshTTL() time.Duration { return c.cfg.RefreshTTL }

func (c *Codec) IssueAccessToken(subject, role, userID string) (Issued, error) {
	return c.issue(Claims{Role: role, UserID: userID, Kind: KindAccess}, subject, c.cfg.AccessTTL)
}

func (c *Codec) IssueRefreshToken(subject string) (Issued, error) {
	return c.issue(Claims{Kind: KindRefresh}, subject, c.cfg.RefreshTTL)
}

func (c *Codec) issue(claims Claims, subject string, ttl time.Duration) (Issued, error) {
	now := c.cfg.Now().Truncate(time.Second)
	exp := now.Add(ttl)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   subject,
		Issuer:    c.cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(c.cfg.Secret)
	if err != nil {
		return Issued{}, fmt.Errorf("sign %s token: %w", claims.Kind, err)
	}
	return Issued{Token: signed, JTI: claims.ID, IssuedAt: now, ExpiresAt: exp}, nil
}

// ParseAndVerify validates signature, algorithm and time claims. An expired
// token with a good signature yields ErrExpiredToken, anything else wrong
// yields ErrInvalidToken.
func (c *Codec) ParseAndVerify(token string) (*Claims, error) {
	var claims Claims
	_, err := c.strict.ParseWithClaims(token, &claims, c.key)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, ErrExpiredToken
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing jti or sub", ErrInvalidToken)
	}
	return &claims, nil
}

// ParseAllowExpired verifies the signature but skips time checks, so claims of
// an expired token can still be read.
func (c *Codec) ParseAllowExpired(token string) (*Claims, error) {
	var claims Claims
	if _, err := c.lenient.ParseWithClaims(token, &claims, c.key); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing jti or sub", ErrInvalidToken)
	}
	return &claims, nil
}

func (c *Codec) key(*jwt.Token) (any, error) { return c.cfg.Secret, nil }
