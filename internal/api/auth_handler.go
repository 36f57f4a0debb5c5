package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tasknest/tasknest/internal/api/shared"
	"github.com/tasknest/tasknest/internal/domain"
	"github.com/tasknest/tasknest/internal/service/auth"
	"github.com/tasknest/tasknest/internal/store"
)

// AuthHandler handles authentication and account management requests.
type AuthHandler struct {
	userStore store.UserStore
	tokens    auth.TokenService
	hasher    auth.PasswordHasher
	verifier  auth.PasswordVerifier
	notifier  Notifier
	validator *validator.Validate
	logger    *slog.Logger
	timeFunc  func() time.Time
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(
	userStore store.UserStore,
	tokens auth.TokenService,
	hasher auth.PasswordHasher,
	verifier auth.PasswordVerifier,
	notifier Notifier,
	logger *slog.Logger,
) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		userStore: userStore,
		tokens:    tokens,
		hasher:    hasher,
		verifier:  verifier,
		notifier:  notifier,
		validator: validator.New(),
		logger:    logger.With(slog.String("component", "auth_handler")),
		timeFunc:  time.Now,
	}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error", ValidationMessages(err)...)
		return
	}

	user, err := domain.NewUser(req.Email, req.Password)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	user.DisplayName = req.DisplayName

	hashed, err := h.hasher.Hash(req.Password)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create account")
		return
	}
	user.HashedPassword = hashed
	user.Password = ""

	if err := h.userStore.Create(r.Context(), user); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	token, expiresAt, err := h.tokens.Issue(r.Context(), user.ID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to issue authentication token")
		return
	}

	h.notifier.SendWelcome(user)

	shared.RespondWithData(w, r, http.StatusCreated, AuthResponse{
		User:      newUserResponse(user),
		Token:     token,
		ExpiresAt: expiresAt,
	})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error", ValidationMessages(err)...)
		return
	}

	user, err := h.userStore.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			// Same response as a wrong password, so emails cannot be probed.
			HandleAPIError(w, r, auth.ErrInvalidCredentials, "")
			return
		}
		HandleAPIError(w, r, err, "Failed to authenticate")
		return
	}

	if err := h.verifier.Compare(user.HashedPassword, req.Password); err != nil {
		HandleAPIError(w, r, auth.ErrInvalidCredentials, "")
		return
	}

	token, expiresAt, err := h.tokens.Issue(r.Context(), user.ID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to issue authentication token")
		return
	}

	if err := h.userStore.TouchLogin(r.Context(), user.ID, h.timeFunc().UTC()); err != nil {
		h.logger.Warn("failed to record login time",
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID.String()))
	}

	shared.RespondWithData(w, r, http.StatusOK, AuthResponse{
		User:      newUserResponse(user),
		Token:     token,
		ExpiresAt: expiresAt,
	})
}

// Logout handles POST /api/auth/logout. It revokes exactly the token that
// authenticated this request.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	token, ok := r.Context().Value(shared.TokenContextKey).(string)
	if !ok || token == "" {
		HandleAPIError(w, r, auth.ErrMissingToken, "")
		return
	}

	if err := h.tokens.Revoke(r.Context(), token); err != nil {
		HandleAPIError(w, r, err, "Failed to log out")
		return
	}

	if err := h.userStore.TouchLogout(r.Context(), userID, h.timeFunc().UTC()); err != nil {
		h.logger.Warn("failed to record logout time",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
	}

	shared.RespondWithMessage(w, r, http.StatusOK, "Logged out")
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(shared.UserContextKey).(*domain.User)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	shared.RespondWithData(w, r, http.StatusOK, newUserResponse(user))
}

// UpdateProfile handles PUT /api/auth/profile.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	var req UpdateProfileRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error", ValidationMessages(err)...)
		return
	}

	if err := h.userStore.UpdateProfile(r.Context(), userID, req.Email, req.DisplayName); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	user, err := h.userStore.GetByID(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithData(w, r, http.StatusOK, newUserResponse(user))
}

// ChangePassword handles PUT /api/auth/password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	var req ChangePasswordRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error", ValidationMessages(err)...)
		return
	}

	user, err := h.userStore.GetByID(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.verifier.Compare(user.HashedPassword, req.CurrentPassword); err != nil {
		HandleAPIError(w, r, auth.ErrInvalidCredentials, "Current password is incorrect")
		return
	}

	hashed, err := h.hasher.Hash(req.NewPassword)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to change password")
		return
	}

	if err := h.userStore.UpdatePassword(r.Context(), userID, hashed); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithMessage(w, r, http.StatusOK, "Password changed")
}

// ForgotPassword handles POST /api/auth/forgot-password. The response is
// identical whether or not the email is registered, so accounts cannot be
// enumerated through this endpoint.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error", ValidationMessages(err)...)
		return
	}

	const accepted = "If that email is registered, a reset link has been sent"

	user, err := h.userStore.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, store.ErrUserNotFound) {
			h.logger.Error("reset token lookup failed",
				slog.String("error", err.Error()))
		}
		shared.RespondWithMessage(w, r, http.StatusOK, accepted)
		return
	}

	plaintext, hash, err := auth.GenerateResetToken()
	if err != nil {
		HandleAPIError(w, r, err, "Failed to issue reset token")
		return
	}

	expiresAt := h.timeFunc().UTC().Add(auth.ResetTokenTTL)
	if err := h.userStore.SetResetToken(r.Context(), user.ID, hash, &expiresAt); err != nil {
		HandleAPIError(w, r, err, "Failed to issue reset token")
		return
	}

	if err := h.notifier.SendPasswordReset(r.Context(), user, plaintext); err != nil {
		// The token is useless if its email never went out. Clear it so a
		// later attempt starts fresh.
		if clearErr := h.userStore.SetResetToken(r.Context(), user.ID, "", nil); clearErr != nil {
			h.logger.Error("failed to clear reset token after send failure",
				slog.String("error", clearErr.Error()),
				slog.String("user_id", user.ID.String()))
		}
		HandleAPIError(w, r, err, "Failed to send reset email")
		return
	}

	shared.RespondWithMessage(w, r, http.StatusOK, accepted)
}

// ResetPassword handles POST /api/auth/reset-password.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error", ValidationMessages(err)...)
		return
	}

	user, err := h.userStore.GetByResetTokenHash(r.Context(), auth.HashResetToken(req.Token), h.timeFunc().UTC())
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid or expired reset token")
			return
		}
		HandleAPIError(w, r, err, "Failed to reset password")
		return
	}

	hashed, err := h.hasher.Hash(req.NewPassword)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to reset password")
		return
	}

	// UpdatePassword clears the reset token in the same statement, so the
	// token is single-use.
	if err := h.userStore.UpdatePassword(r.Context(), user.ID, hashed); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithMessage(w, r, http.StatusOK, "Password reset")
}
