//go:build integration

package integration

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"
)

type tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	Email        string `json:"email"`
	Role         string `json:"role"`
}

func decodeTokens(t *testing.T, b []byte) tokens {
	t.Helper()
	var out tokens
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal tokens: %v body=%s", err, string(b))
	}
	if out.AccessToken == "" || out.RefreshToken == "" {
		t.Fatalf("missing tokens: %s", string(b))
	}
	return out
}

func jtiOf(t *testing.T, token string) string {
	t.Helper()
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("not a compact JWS: %q", token)
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatalf("decode claims: %v", err)
	}
	var claims struct {
		JTI string `json:"jti"`
	}
	if err := json.Unmarshal(raw, &claims); err != nil {
		t.Fatalf("unmarshal claims: %v", err)
	}
	return claims.JTI
}

func TestAuth_SessionLifecycle(t *testing.T) {
	cfg := LoadCfg()
	WaitHealthz(t, cfg.AGHealthURL, 60*time.Second)
	db := DBOpen(t, cfg.DBDSN)
	defer db.Close()

	base := cfg.AGBaseURL
	email := UniqueEmail("it-session")
	phone := fmt.Sprintf("09%08d", time.Now().UnixNano()%100_000_000)
	pass := "supersecret"

	HTTPDo(t, http.MethodPost, base+"/api/users", "", map[string]string{
		"email": email, "phoneNumber": phone, "password": pass,
	}, http.StatusCreated)

	HTTPDo(t, http.MethodPost, base+"/api/auth/login", "", map[string]string{
		"email": email, "password": "wrong-password",
	}, http.StatusUnauthorized)

	first := decodeTokens(t, HTTPDo(t, http.MethodPost, base+"/api/auth/login", "", map[string]string{
		"email": email, "password": pass,
	}, http.StatusOK))
	if first.Role != "CLIENT" {
		t.Fatalf("role = %q, want CLIENT", first.Role)
	}
	HTTPDo(t, http.MethodGet, base+"/api/requests/me", first.AccessToken, nil, http.StatusOK)
	HTTPDo(t, http.MethodGet, base+"/api/requests/me", "", nil, http.StatusUnauthorized)

	second := decodeTokens(t, HTTPDo(t, http.MethodPost, base+"/api/auth/refresh", "", map[string]string{
		"refreshToken": first.RefreshToken,
	}, http.StatusOK))
	if second.RefreshToken == first.RefreshToken {
		t.Fatalf("refresh token was not rotated")
	}
	if got := CountRefreshTokens(t, db, email, true); got != 1 {
		t.Fatalf("revoked refresh tokens = %d, want 1", got)
	}

	// Presenting the rotated-out token again is rejected.
	HTTPDo(t, http.MethodPost, base+"/api/auth/refresh", "", map[string]string{
		"refreshToken": first.RefreshToken,
	}, http.StatusUnauthorized)

	HTTPDo(t, http.MethodPost, base+"/api/auth/logout", second.AccessToken, map[string]string{
		"refreshToken": second.RefreshToken,
	}, http.StatusNoContent)

	if !RevokedJTIExists(t, db, jtiOf(t, second.AccessToken)) {
		t.Fatalf("access token jti not denylisted after logout")
	}
	if got := CountRefreshTokens(t, db, email, false); got != 0 {
		t.Fatalf("active refresh tokens after logout = %d, want 0", got)
	}
	HTTPDo(t, http.MethodGet, base+"/api/requests/me", second.AccessToken, nil, http.StatusUnauthorized)
	HTTPDo(t, http.MethodPost, base+"/api/auth/refresh", "", map[string]string{
		"refreshToken": second.RefreshToken,
	}, http.StatusUnauthorized)

	// Logout is idempotent.
	HTTPDo(t, http.MethodPost, base+"/api/auth/logout", second.AccessToken, map[string]string{
		"refreshToken": second.RefreshToken,
	}, http.StatusNoContent)

	if cfg.KafkaBootstrap == "" {
		t.Log("[it] IT_BOOTSTRAP not set, skipping security event check")
		return
	}
	want := []string{"login_failed", "login_succeeded", "refresh_rotated", "refresh_reused", "logout"}
	seen := ReadSecurityEvents(t, cfg.KafkaBootstrap, cfg.SecurityTopic, email, want, 30*time.Second)
	for _, w := range want {
		if !seen[w] {
			t.Errorf("security event %q not relayed; seen=%v", w, seen)
		}
	}
}

func TestUsers_ConcurrentDuplicateRegistration(t *testing.T) {
	cfg := LoadCfg()
	WaitHealthz(t, cfg.AGHealthURL, 60*time.Second)
	db := DBOpen(t, cfg.DBDSN)
	defer db.Close()

	email := UniqueEmail("it-dup")
	phone := fmt.Sprintf("08%08d", time.Now().UnixNano()%100_000_000)
	statuses := Parallel(t, 8, http.MethodPost, cfg.AGBaseURL+"/api/users", "", map[string]string{
		"email": "  " + strings.ToUpper(email) + " ", "phoneNumber": phone, "password": "supersecret",
	})
	if CountStatus(statuses, http.StatusCreated) != 1 || CountStatus(statuses, http.StatusConflict) != len(statuses)-1 {
		t.Fatalf("statuses = %v, want one 201 and the rest 409", statuses)
	}

	// A later case variant is rejected too.
	HTTPDo(t, http.MethodPost, cfg.AGBaseURL+"/api/users", "", map[string]string{
		"email": strings.ToUpper(email), "phoneNumber": fmt.Sprintf("06%08d", time.Now().UnixNano()%100_000_000), "password": "supersecret",
	}, http.StatusConflict)

	var n int
	if err := db.QueryRow(`select count(*) from users where email = $1`, email).Scan(&n); err != nil {
		t.Fatalf("[db] count users: %v", err)
	}
	if n != 1 {
		t.Fatalf("users with %s = %d, want 1", email, n)
	}
}

func TestAuth_ConcurrentRefreshSingleWinner(t *testing.T) {
	cfg := LoadCfg()
	WaitHealthz(t, cfg.AGHealthURL, 60*time.Second)
	db := DBOpen(t, cfg.DBDSN)
	defer db.Close()

	base := cfg.AGBaseURL
	email := UniqueEmail("it-refresh-race")
	phone := fmt.Sprintf("07%08d", time.Now().UnixNano()%100_000_000)
	HTTPDo(t, http.MethodPost, base+"/api/users", "", map[string]string{
		"email": email, "phoneNumber": phone, "password": "supersecret",
	}, http.StatusCreated)
	session := decodeTokens(t, HTTPDo(t, http.MethodPost, base+"/api/auth/login", "", map[string]string{
		"email": email, "password": "supersecret",
	}, http.StatusOK))

	statuses := Parallel(t, 8, http.MethodPost, base+"/api/auth/refresh", "", map[string]string{
		"refreshToken": session.RefreshToken,
	})
	if CountStatus(statuses, http.StatusOK) != 1 || CountStatus(statuses, http.StatusUnauthorized) != len(statuses)-1 {
		t.Fatalf("statuses = %v, want one 200 and the rest 401", statuses)
	}
	// The login token plus exactly one rotation.
	issued := CountRefreshTokens(t, db, email, false) + CountRefreshTokens(t, db, email, true)
	if issued != 2 {
		t.Fatalf("refresh tokens issued = %d, want 2", issued)
	}
}

func TestAuth_UnknownRouteIsJSON(t *testing.T) {
	cfg := LoadCfg()
	WaitHealthz(t, cfg.AGHealthURL, 60*time.Second)

	body := HTTPDo(t, http.MethodGet, cfg.AGBaseURL+"/api/nope", "", nil, http.StatusNotFound)
	var e struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(body, &e); err != nil || e.Status != http.StatusNotFound {
		t.Fatalf("unexpected 404 body: %s", string(body))
	}
}
