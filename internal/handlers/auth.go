package handlers

import (
	"log/slog"
	"net/http"

	"shopdesk/internal/middleware"
	"shopdesk/internal/models"
	"shopdesk/internal/store"
	"shopdesk/internal/token"
)

// totpIssuer is the issuer name shown in authenticator apps.
const totpIssuer = "shopdesk"

// Auth groups all authentication-related HTTP handlers.
type Auth struct {
	users  *store.UserStore
	tokens *token.Manager
}

// NewAuth creates a new Auth handler group.
func NewAuth(users *store.UserStore, tokens *token.Manager) *Auth {
	return &Auth{users: users, tokens: tokens}
}

// tokenResponse is the successful login/register payload.
type tokenResponse struct {
	AccessToken string            `json:"access_token"`
	User        models.PublicUser `json:"user"`
}

// Register creates a new account and logs it in immediately.
func (a *Auth) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationError(err))
		return
	}

	user, err := a.users.Create(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	access, err := a.tokens.Issue(user.ID, user.Username)
	if err != nil {
		slog.Error("issue token after register", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, tokenResponse{AccessToken: access, User: user.Public()})
}

// Login verifies credentials. Accounts with 2FA enabled get a short-lived
// pending token to exchange at /auth/2fa/verify; everyone else gets a
// full access token.
func (a *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationError(err))
		return
	}

	user, err := a.users.FindByUsername(r.Context(), req.Username)
	if err != nil {
		slog.Error("login lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if user == nil || !a.users.CheckPassword(user, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	if user.TOTPEnabled {
		pending, err := a.tokens.IssuePending(user.ID, user.Username)
		if err != nil {
			slog.Error("issue pending token", "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"requires_2fa":  true,
			"pending_token": pending,
		})
		return
	}

	access, err := a.tokens.Issue(user.ID, user.Username)
	if err != nil {
		slog.Error("issue token after login", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: access, User: user.Public()})
}

// TwoFAVerify exchanges a pending token plus a valid TOTP code for a full
// access token.
func (a *Auth) TwoFAVerify(w http.ResponseWriter, r *http.Request) {
	var req twoFAVerifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationError(err))
		return
	}

	claims, err := a.tokens.VerifyPending(r.Context(), req.PendingToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired pending token")
		return
	}
	userID, err := claims.UserID()
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired pending token")
		return
	}

	user, err := a.users.FindByID(r.Context(), userID)
	if err != nil {
		slog.Error("2fa verify lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if user == nil || user.TOTPSecret == nil || !token.ValidateTOTP(req.Code, *user.TOTPSecret) {
		writeError(w, http.StatusUnauthorized, "invalid 2fa code")
		return
	}

	access, err := a.tokens.Issue(user.ID, user.Username)
	if err != nil {
		slog.Error("issue token after 2fa", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: access, User: user.Public()})
}

// TwoFASetup generates a fresh TOTP secret for the authenticated user and
// returns the enrollment QR code. 2FA stays disabled until the user
// confirms a code via TwoFAEnable.
func (a *Auth) TwoFASetup(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromCtx(r.Context())

	user, err := a.users.FindByID(r.Context(), userID)
	if err != nil || user == nil {
		slog.Error("2fa setup lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	enrollment, err := token.GenerateTOTP(totpIssuer, user.Username)
	if err != nil {
		slog.Error("totp generate failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := a.users.SetTOTPSecret(r.Context(), user.ID, enrollment.Secret); err != nil {
		slog.Error("save totp secret failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, enrollment)
}

// TwoFAEnable confirms the setup code and turns 2FA on for the account.
func (a *Auth) TwoFAEnable(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromCtx(r.Context())

	var req twoFACodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationError(err))
		return
	}

	user, err := a.users.FindByID(r.Context(), userID)
	if err != nil || user == nil {
		slog.Error("2fa enable lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if user.TOTPSecret == nil || !token.ValidateTOTP(req.Code, *user.TOTPSecret) {
		writeError(w, http.StatusBadRequest, "invalid 2fa code")
		return
	}

	if err := a.users.EnableTOTP(r.Context(), user.ID); err != nil {
		slog.Error("enable totp failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"enabled": true})
}

// Logout revokes the presented token until its natural expiry. When no
// revocation backend is configured the token simply ages out.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromCtx(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}

	if err := a.tokens.Revoke(r.Context(), claims); err != nil {
		slog.Error("revoke token failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"revoked": a.tokens.CanRevoke()})
}

// Me returns the authenticated user's identity.
func (a *Auth) Me(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromCtx(r.Context())

	user, err := a.users.FindByID(r.Context(), userID)
	if err != nil {
		slog.Error("me lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	writeJSON(w, http.StatusOK, user.Public())
}
