package auth

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	jwtauth "github.com/NordCoder/enotary/internal/auth"
	"github.com/NordCoder/enotary/internal/domain"
	domainauth "github.com/NordCoder/enotary/internal/domain/auth"
	"github.com/NordCoder/enotary/internal/domain/user"
	"github.com/NordCoder/enotary/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingSink struct {
	mu     sync.Mutex
	events []domainauth.Event
}

func (s *recordingSink) Record(_ context.Context, ev domainauth.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSink) types() []domainauth.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domainauth.EventType, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	uc      *Usecase
	codec   *jwtauth.Codec
	clock   *clock
	users   *memory.UserRepo
	refresh *memory.RefreshTokenRepo
	revoked *memory.RevokedTokenRepo
	events  *recordingSink
}

const testPassword = "s3cret-pass"

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	clk := &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	codec, err := jwtauth.NewCodec(jwtauth.Config{
		Secret:     []byte(strings.Repeat("x", jwtauth.MinSecretLen)),
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
		Now:        clk.Now,
	})
	require.NoError(t, err)

	f := &fixture{
		codec:   codec,
		clock:   clk,
		users:   memory.NewUserRepo(),
		refresh: memory.NewRefreshTokenRepo(),
		revoked: memory.NewRevokedTokenRepo(),
		events:  &recordingSink{},
	}
	cfg.Now = clk.Now
	f.uc = NewUseCase(Deps{
		Codec:   codec,
		Users:   f.users,
		Refresh: f.refresh,
		Revoked: f.revoked,
		Tx:      memory.Transactor{},
		Events:  f.events,
	}, cfg)
	return f
}

func (f *fixture) addUser(t *testing.T, email string, role user.Role, mutate ...func(*user.User)) *user.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	u := &user.User{
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Status:       user.StatusVerified,
		CreatedAt:    f.clock.Now(),
	}
	for _, m := range mutate {
		m(u)
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func TestLogin_Success(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	u := f.addUser(t, "alice@example.com", user.RoleClient)

	res, err := f.uc.Login(ctx, "  Alice@Example.com ", testPassword)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", res.Email)
	assert.Equal(t, user.RoleClient, res.Role)

	access, err := f.codec.ParseAndVerify(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", access.Subject)
	assert.Equal(t, string(user.RoleClient), access.Role)
	assert.Equal(t, u.ID.String(), access.UserID)
	assert.Equal(t, jwtauth.KindAccess, access.Kind)

	refresh, err := f.codec.ParseAndVerify(res.RefreshToken)
	require.NoError(t, err)
	rec, err := f.refresh.FindByJTI(ctx, refresh.JTI())
	require.NoError(t, err)
	assert.False(t, rec.Revoked)
	assert.Equal(t, "alice@example.com", rec.Email)

	assert.Equal(t, []domainauth.EventType{domainauth.EventLoginSucceeded}, f.events.types())
}

func TestLogin_Failures(t *testing.T) {
	f := newFixture(t, Config{})
	now := f.clock.Now()
	later := now.Add(time.Hour)
	earlier := now.Add(-time.Hour)

	f.addUser(t, "ok@example.com", user.RoleClient)
	f.addUser(t, "locked@example.com", user.RoleClient, func(u *user.User) { u.LockedUntil = &later })
	f.addUser(t, "off@example.com", user.RoleClient, func(u *user.User) { u.Disabled = true })
	f.addUser(t, "old@example.com", user.RoleClient, func(u *user.User) { u.PasswordExpiresAt = &earlier })

	cases := []struct {
		name, email, password string
		want                  error
	}{
		{"unknown email", "nobody@example.com", testPassword, domain.ErrInvalidCredentials},
		{"wrong password", "ok@example.com", "nope", domain.ErrInvalidCredentials},
		{"locked", "locked@example.com", testPassword, domain.ErrAccountLocked},
		{"disabled", "off@example.com", testPassword, domain.ErrAccountDisabled},
		{"credentials expired", "old@example.com", testPassword, domain.ErrCredentialsExpired},
		{"wrong password on locked account", "locked@example.com", "nope", domain.ErrInvalidCredentials},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.uc.Login(context.Background(), tc.email, tc.password)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestRefresh_RotatesAndRevokesOld(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.addUser(t, "bob@example.com", user.RoleClient)

	login, err := f.uc.Login(ctx, "bob@example.com", testPassword)
	require.NoError(t, err)

	res, err := f.uc.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", res.Email)
	assert.NotEqual(t, login.RefreshToken, res.RefreshToken)

	old, err := f.codec.ParseAndVerify(login.RefreshToken)
	require.NoError(t, err)
	oldRec, err := f.refresh.FindByJTI(ctx, old.JTI())
	require.NoError(t, err)
	assert.True(t, oldRec.Revoked)

	next, err := f.codec.ParseAndVerify(res.RefreshToken)
	require.NoError(t, err)
	nextRec, err := f.refresh.FindByJTI(ctx, next.JTI())
	require.NoError(t, err)
	assert.False(t, nextRec.Revoked)

	_, err = f.uc.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrSessionExpiredOrRevoked)

	_, err = f.uc.Refresh(ctx, res.RefreshToken)
	assert.NoError(t, err)
}

func TestRefresh_ConcurrentSameTokenOneWins(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.addUser(t, "race@example.com", user.RoleClient)

	login, err := f.uc.Login(ctx, "race@example.com", testPassword)
	require.NoError(t, err)

	const n = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, fail int
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.uc.Refresh(ctx, login.RefreshToken)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else {
				assert.ErrorIs(t, err, domain.ErrSessionExpiredOrRevoked)
				fail++
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, fail)

	recs, err := f.refresh.ListByEmail(ctx, "race@example.com")
	require.NoError(t, err)
	active := 0
	for _, r := range recs {
		if !r.Revoked {
			active++
		}
	}
	assert.Equal(t, 1, active)
}

func TestRefresh_Rejections(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.addUser(t, "carol@example.com", user.RoleClient)
	login, err := f.uc.Login(ctx, "carol@example.com", testPassword)
	require.NoError(t, err)

	_, err = f.uc.Refresh(ctx, "garbage")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	_, err = f.uc.Refresh(ctx, login.AccessToken)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	stray, err := f.codec.IssueRefreshToken("carol@example.com")
	require.NoError(t, err)
	_, err = f.uc.Refresh(ctx, stray.Token)
	assert.ErrorIs(t, err, domain.ErrSessionExpiredOrRevoked)

	f.clock.Advance(25 * time.Hour)
	_, err = f.uc.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrSessionExpiredOrRevoked)
}

func TestRefresh_PicksUpRoleChange(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	u := f.addUser(t, "dave@example.com", user.RoleClient)

	login, err := f.uc.Login(ctx, "dave@example.com", testPassword)
	require.NoError(t, err)

	u.Role = user.RoleNotary
	require.NoError(t, f.users.Update(ctx, u))

	res, err := f.uc.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	claims, err := f.codec.ParseAndVerify(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, string(user.RoleNotary), claims.Role)
}

func TestRefresh_ReuseRevokesAllWhenEnabled(t *testing.T) {
	for _, revokeAll := range []bool{false, true} {
		f := newFixture(t, Config{RevokeAllOnReuse: revokeAll})
		ctx := context.Background()
		f.addUser(t, "erin@example.com", user.RoleClient)

		login, err := f.uc.Login(ctx, "erin@example.com", testPassword)
		require.NoError(t, err)
		rotated, err := f.uc.Refresh(ctx, login.RefreshToken)
		require.NoError(t, err)

		_, err = f.uc.Refresh(ctx, login.RefreshToken)
		require.ErrorIs(t, err, domain.ErrSessionExpiredOrRevoked)
		assert.Contains(t, f.events.types(), domainauth.EventRefreshReused)

		_, err = f.uc.Refresh(ctx, rotated.RefreshToken)
		if revokeAll {
			assert.ErrorIs(t, err, domain.ErrSessionExpiredOrRevoked)
		} else {
			assert.NoError(t, err)
		}
	}
}

func TestLogout_AccessOnlyRevokesEverything(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.addUser(t, "frank@example.com", user.RoleClient)

	first, err := f.uc.Login(ctx, "frank@example.com", testPassword)
	require.NoError(t, err)
	second, err := f.uc.Login(ctx, "frank@example.com", testPassword)
	require.NoError(t, err)

	_, err = f.uc.Authenticate(ctx, first.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.uc.Logout(ctx, first.AccessToken, ""))

	_, err = f.uc.Authenticate(ctx, first.AccessToken)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	_, err = f.uc.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrSessionExpiredOrRevoked)
	_, err = f.uc.Refresh(ctx, second.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrSessionExpiredOrRevoked)
}

func TestLogout_RefreshOnlyKeepsOtherSessions(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.addUser(t, "gina@example.com", user.RoleClient)

	first, err := f.uc.Login(ctx, "gina@example.com", testPassword)
	require.NoError(t, err)
	second, err := f.uc.Login(ctx, "gina@example.com", testPassword)
	require.NoError(t, err)

	require.NoError(t, f.uc.Logout(ctx, "", first.RefreshToken))

	_, err = f.uc.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrSessionExpiredOrRevoked)
	_, err = f.uc.Refresh(ctx, second.RefreshToken)
	assert.NoError(t, err)

	_, err = f.uc.Authenticate(ctx, first.AccessToken)
	assert.NoError(t, err)
}

func TestLogout_ExpiredAccessStillDenylisted(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.addUser(t, "hank@example.com", user.RoleClient)

	login, err := f.uc.Login(ctx, "hank@example.com", testPassword)
	require.NoError(t, err)
	claims, err := f.codec.ParseAndVerify(login.AccessToken)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	require.NoError(t, f.uc.Logout(ctx, login.AccessToken, login.RefreshToken))

	denied, err := f.revoked.Exists(ctx, claims.JTI())
	require.NoError(t, err)
	assert.True(t, denied)
}

func TestLogout_IdempotentAndTolerant(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.addUser(t, "ivy@example.com", user.RoleClient)

	login, err := f.uc.Login(ctx, "ivy@example.com", testPassword)
	require.NoError(t, err)

	require.NoError(t, f.uc.Logout(ctx, login.AccessToken, login.RefreshToken))
	require.NoError(t, f.uc.Logout(ctx, login.AccessToken, login.RefreshToken))
	require.NoError(t, f.uc.Logout(ctx, "not-a-jwt", "also-not-a-jwt"))
	require.NoError(t, f.uc.Logout(ctx, "", ""))
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	u := f.addUser(t, "jane@example.com", user.RoleClient)

	login, err := f.uc.Login(ctx, "jane@example.com", testPassword)
	require.NoError(t, err)

	p, err := f.uc.Authenticate(ctx, login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, p.UserID)
	assert.Equal(t, user.RoleClient, p.Role)

	u.Role = user.RoleAdmin
	require.NoError(t, f.users.Update(ctx, u))
	p, err = f.uc.Authenticate(ctx, login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, p.Role)

	_, err = f.uc.Authenticate(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	f.clock.Advance(16 * time.Minute)
	_, err = f.uc.Authenticate(ctx, login.AccessToken)
	assert.ErrorIs(t, err, domain.ErrExpiredToken)
}

func TestRevokeAllForEmail(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.addUser(t, "kim@example.com", user.RoleClient)

	for i := 0; i < 3; i++ {
		_, err := f.uc.Login(ctx, "kim@example.com", testPassword)
		require.NoError(t, err)
	}
	n, err := f.uc.RevokeAllForEmail(ctx, "KIM@example.com")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = f.uc.RevokeAllForEmail(ctx, "kim@example.com")
	require.NoError(t, err)
	assert.Zero(t, n)
}
