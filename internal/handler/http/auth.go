package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/videohub/internal/domain"
	"github.com/utafrali/videohub/internal/service"
	"github.com/utafrali/videohub/pkg/httputil"
)

// AuthHandler serves registration and the session lifecycle.
type AuthHandler struct {
	sessions *service.SessionManager
	cookies  CookieConfig
	logger   *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(sessions *service.SessionManager, cookies CookieConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{sessions: sessions, cookies: cookies, logger: logger}
}

// --- Request DTOs ---

// RegisterRequest carries the text fields of a registration. Files arrive as
// multipart parts named avatar and coverImage.
type RegisterRequest struct {
	FullName string `json:"fullname"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest accepts either a username or an email.
type LoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest is the fallback when no refreshToken cookie is sent.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// ChangePasswordRequest is the body of POST /change-password.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// --- Response types ---

// LoginResponse is the data of a successful login.
type LoginResponse struct {
	User         *domain.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

// --- Handlers ---

// Register handles POST /api/v1/users/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	input := service.RegisterInput{}

	if isMultipart(r) {
		if !parseMultipart(w, r) {
			return
		}
		req = RegisterRequest{
			FullName: r.FormValue("fullname"),
			Email:    r.FormValue("email"),
			Username: r.FormValue("username"),
			Password: r.FormValue("password"),
		}

		avatar, avatarFile, err := formFile(r, "avatar")
		if err != nil {
			writeBodyError(w, err)
			return
		}
		cover, coverFile, err := formFile(r, "coverImage")
		if err != nil {
			closeFiles(avatarFile)
			writeBodyError(w, err)
			return
		}
		defer closeFiles(avatarFile, coverFile)
		input.Avatar, input.CoverImage = avatar, cover
	} else if !decodeJSON(w, r, &req) {
		return
	}

	input.FullName = req.FullName
	input.Email = req.Email
	input.Username = req.Username
	input.Password = req.Password

	user, err := h.sessions.Register(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.Write(w, http.StatusCreated, user, "User registered Successfully")
}

// Login handles POST /api/v1/users/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.sessions.Login(r.Context(), service.LoginInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.cookies.setSession(w, session.Tokens)
	httputil.Write(w, http.StatusOK, LoginResponse{
		User:         session.User,
		AccessToken:  session.Tokens.AccessToken,
		RefreshToken: session.Tokens.RefreshToken,
	}, "User logged in Successfully")
}

// RefreshToken handles POST /api/v1/users/refresh-token
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var presented string
	if c, err := r.Cookie(RefreshTokenCookie); err == nil {
		presented = c.Value
	}
	if presented == "" {
		var req RefreshTokenRequest
		if !decodeOptionalJSON(w, r, &req) {
			return
		}
		presented = req.RefreshToken
	}

	tokens, err := h.sessions.Refresh(r.Context(), presented)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.cookies.setSession(w, tokens)
	httputil.Write(w, http.StatusOK, tokens, "Access token refreshed")
}

// Logout handles POST /api/v1/users/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.sessions.Logout(r.Context(), user.ID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.cookies.clearSession(w)
	httputil.Write(w, http.StatusOK, struct{}{}, "User logged Out Successfully")
}

// ChangePassword handles POST /api/v1/users/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.sessions.ChangePassword(r.Context(), user.ID, service.ChangePasswordInput{
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	}); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.Write(w, http.StatusOK, struct{}{}, "Password changed successfully")
}
