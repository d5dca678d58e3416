package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
)

func TestRegisterAndLogin(t *testing.T) {
	r, db := testServer(t)

	accessToken, userID := registerUser(t, r, db, "test-api-auth")

	// Duplicate registration conflicts.
	rec := doJSON(t, r, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "test-api-auth",
		"email":    "other@handler-test.local",
		"password": "testpass123",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate register: got %d, want 409: %s", rec.Code, rec.Body.String())
	}

	// Wrong password.
	rec = doJSON(t, r, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "test-api-auth",
		"password": "wrong-password",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: got %d, want 401", rec.Code)
	}

	// Unknown user gets the same 401 as a wrong password.
	rec = doJSON(t, r, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "test-api-no-such-user",
		"password": "testpass123",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unknown user: got %d, want 401", rec.Code)
	}

	// Correct credentials.
	rec = doJSON(t, r, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "test-api-auth",
		"password": "testpass123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: got %d: %s", rec.Code, rec.Body.String())
	}
	var login struct {
		AccessToken string `json:"access_token"`
		User        struct {
			ID       int    `json:"id"`
			Username string `json:"username"`
			Email    string `json:"email"`
		} `json:"user"`
	}
	decodeBody(t, rec, &login)
	if login.AccessToken == "" {
		t.Error("expected an access token")
	}
	if login.User.ID != userID || login.User.Username != "test-api-auth" {
		t.Errorf("user payload: %+v", login.User)
	}

	// The token works against /auth/me.
	rec = doJSON(t, r, http.MethodGet, "/auth/me", accessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: got %d: %s", rec.Code, rec.Body.String())
	}
	var me struct {
		Username string `json:"username"`
	}
	decodeBody(t, rec, &me)
	if me.Username != "test-api-auth" {
		t.Errorf("me username: got %q", me.Username)
	}
}

func TestRegisterValidation(t *testing.T) {
	r, _ := testServer(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"short username", map[string]string{"username": "ab", "email": "a@b.co", "password": "testpass123"}},
		{"bad email", map[string]string{"username": "test-api-bademail", "email": "not-an-email", "password": "testpass123"}},
		{"short password", map[string]string{"username": "test-api-shortpw", "email": "a@b.co", "password": "12345"}},
		{"missing fields", map[string]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, r, http.MethodPost, "/auth/register", "", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("got %d, want 400: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r, _ := testServer(t)

	paths := []struct {
		method, path string
	}{
		{http.MethodGet, "/categories"},
		{http.MethodGet, "/products"},
		{http.MethodGet, "/auth/me"},
		{http.MethodPost, "/upload/image"},
	}

	for _, p := range paths {
		rec := doJSON(t, r, p.method, p.path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without token: got %d, want 401", p.method, p.path, rec.Code)
		}
	}
}

// Full 2FA lifecycle: setup, enable, then login requires a code exchange.
func TestTwoFactorFlow(t *testing.T) {
	r, db := testServer(t)

	accessToken, _ := registerUser(t, r, db, "test-api-2fa")

	// Enroll.
	rec := doJSON(t, r, http.MethodPost, "/auth/2fa/setup", accessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("2fa setup: got %d: %s", rec.Code, rec.Body.String())
	}
	var enrollment struct {
		Secret string `json:"secret"`
		URL    string `json:"url"`
		QRCode string `json:"qrCode"`
	}
	decodeBody(t, rec, &enrollment)
	if enrollment.Secret == "" || enrollment.QRCode == "" {
		t.Fatalf("incomplete enrollment: %s", rec.Body.String())
	}

	// A wrong code must not enable 2FA.
	rec = doJSON(t, r, http.MethodPost, "/auth/2fa/enable", accessToken, map[string]string{"code": "000000"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("2fa enable with wrong code: got %d, want 400", rec.Code)
	}

	code, err := totp.GenerateCode(enrollment.Secret, time.Now())
	if err != nil {
		t.Fatalf("generate totp code: %v", err)
	}
	rec = doJSON(t, r, http.MethodPost, "/auth/2fa/enable", accessToken, map[string]string{"code": code})
	if rec.Code != http.StatusOK {
		t.Fatalf("2fa enable: got %d: %s", rec.Code, rec.Body.String())
	}

	// Password login now yields a pending token instead of an access token.
	rec = doJSON(t, r, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "test-api-2fa",
		"password": "testpass123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: got %d: %s", rec.Code, rec.Body.String())
	}
	var pending struct {
		Requires2FA  bool   `json:"requires_2fa"`
		PendingToken string `json:"pending_token"`
		AccessToken  string `json:"access_token"`
	}
	decodeBody(t, rec, &pending)
	if !pending.Requires2FA || pending.PendingToken == "" {
		t.Fatalf("expected a pending 2fa challenge, got %s", rec.Body.String())
	}
	if pending.AccessToken != "" {
		t.Error("login must not return an access token while 2fa is pending")
	}

	// The pending token is not valid for the API.
	rec = doJSON(t, r, http.MethodGet, "/auth/me", pending.PendingToken, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("pending token on /auth/me: got %d, want 401", rec.Code)
	}

	// Exchange it with a fresh code.
	code, err = totp.GenerateCode(enrollment.Secret, time.Now())
	if err != nil {
		t.Fatalf("generate totp code: %v", err)
	}
	rec = doJSON(t, r, http.MethodPost, "/auth/2fa/verify", "", map[string]string{
		"pendingToken": pending.PendingToken,
		"code":         code,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("2fa verify: got %d: %s", rec.Code, rec.Body.String())
	}
	var verified struct {
		AccessToken string `json:"access_token"`
	}
	decodeBody(t, rec, &verified)
	if verified.AccessToken == "" {
		t.Fatal("expected an access token after 2fa verification")
	}

	rec = doJSON(t, r, http.MethodGet, "/auth/me", verified.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("me with verified token: got %d", rec.Code)
	}
}

// Without a revocation backend logout succeeds but reports revoked=false.
func TestLogoutWithoutRevocation(t *testing.T) {
	r, db := testServer(t)

	accessToken, _ := registerUser(t, r, db, "test-api-logout")

	rec := doJSON(t, r, http.MethodPost, "/auth/logout", accessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Revoked bool `json:"revoked"`
	}
	decodeBody(t, rec, &resp)
	if resp.Revoked {
		t.Error("expected revoked=false with no revocation backend")
	}
}
