package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/utafrali/videohub/internal/domain"
	"github.com/utafrali/videohub/internal/service"
	"github.com/utafrali/videohub/pkg/httputil"
)

// UserHandler serves the signed-in user's profile.
type UserHandler struct {
	profiles *service.ProfileService
	logger   *slog.Logger
}

// NewUserHandler creates a new user HTTP handler.
func NewUserHandler(profiles *service.ProfileService, logger *slog.Logger) *UserHandler {
	return &UserHandler{profiles: profiles, logger: logger}
}

// UpdateAccountRequest is the body of PATCH /update-account.
type UpdateAccountRequest struct {
	FullName string `json:"fullname"`
	Email    string `json:"email"`
}

// CurrentUser handles GET /api/v1/users/current-user
func (h *UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	httputil.Write(w, http.StatusOK, user, "Current user fetched successfully")
}

// UpdateAccount handles PATCH /api/v1/users/update-account
func (h *UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}

	var req UpdateAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.profiles.UpdateAccount(r.Context(), user.ID, service.UpdateAccountInput{
		FullName: req.FullName,
		Email:    req.Email,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.Write(w, http.StatusOK, updated, "Account details updated successfully")
}

// UpdateAvatar handles PATCH /api/v1/users/avatar
func (h *UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "avatar", h.profiles.UpdateAvatar, "Avatar image updated successfully")
}

// UpdateCoverImage handles PATCH /api/v1/users/cover-image
func (h *UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "coverImage", h.profiles.UpdateCoverImage, "Cover image updated successfully")
}

type imageUpdater func(ctx context.Context, userID string, file *service.FileUpload) (*domain.User, error)

func (h *UserHandler) updateImage(w http.ResponseWriter, r *http.Request, field string, update imageUpdater, message string) {
	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}

	var upload *service.FileUpload
	if isMultipart(r) {
		if !parseMultipart(w, r) {
			return
		}
		f, file, err := formFile(r, field)
		if err != nil {
			writeBodyError(w, err)
			return
		}
		defer closeFiles(file)
		upload = f
	}

	updated, err := update(r.Context(), user.ID, upload)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.Write(w, http.StatusOK, updated, message)
}
