package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hoas/apiserver/internal/services"
	"github.com/hoas/apiserver/internal/storage"
	"github.com/hoas/apiserver/types"
)

const (
	maxAvatarMemory = 8 << 20
	maxAvatarBytes  = 5 << 20
	formFieldAvatar = "avatar"
)

// UserHandler provides HTTP handlers for profile records and the
// approval workflow.
type UserHandler struct {
	userService     *services.UserService
	approvalService *services.ApprovalService
	accountService  *services.AccountService
	avatars         *storage.AvatarStore
}

// NewUserHandler constructs a handler with the provided dependencies.
// avatars may be nil, which disables the avatar endpoints.
func NewUserHandler(userService *services.UserService, approvalService *services.ApprovalService, accountService *services.AccountService, avatars *storage.AvatarStore) *UserHandler {
	return &UserHandler{
		userService:     userService,
		approvalService: approvalService,
		accountService:  accountService,
		avatars:         avatars,
	}
}

// UserRouter registers user routes on the given router. Every route
// requires an authenticated session.
func UserRouter(r chi.Router, handler *UserHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Use(authMiddleware)

	r.Post("/profile", handler.RegisterProfile)
	r.Get("/me", handler.Me)
	r.Route("/{userID}", func(r chi.Router) {
		r.Get("/", handler.GetUser)
		r.Delete("/", handler.DeleteUser)
		r.Patch("/profile", handler.UpdateProfile)
		r.Post("/approve", handler.Approve)
		r.Post("/deny", handler.Deny)
		r.Post("/restore", handler.Restore)
		r.Put("/avatar", handler.PutAvatar)
		r.Get("/avatar", handler.GetAvatar)
	})
}

// RegisterProfileRequest is the one-time role selection payload.
type RegisterProfileRequest struct {
	Role         string        `json:"role"`
	ManagementID string        `json:"management_id"`
	Profile      types.Profile `json:"profile"`
}

// DenyRequest carries the optional denial reason.
type DenyRequest struct {
	Reason string `json:"reason"`
}

// TransitionResponse is returned by approve/deny/restore.
type TransitionResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	User    types.User `json:"user"`
}

// RegisterProfile creates the caller's profile record with the
// selected role, in the pending state.
func (h *UserHandler) RegisterProfile(w http.ResponseWriter, r *http.Request) {
	session, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req RegisterProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	role, ok := types.ParseRole(strings.TrimSpace(req.Role))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid role")
		return
	}

	account, err := h.accountService.GetByID(r.Context(), session.ActorID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	user, err := h.userService.Register(r.Context(), session, account, services.RegisterProfile{
		Role:         role,
		ManagementID: strings.TrimSpace(req.ManagementID),
		Profile:      req.Profile,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// Me returns the caller's own profile record.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	session, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.userService.Get(r.Context(), session, session.ActorID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// GetUser returns a single record; owner or admin.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	session, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.userService.Get(r.Context(), session, chi.URLParam(r, "userID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateProfile replaces the free-form profile fields of a record.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	session, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var profile types.Profile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), session, chi.URLParam(r, "userID"), profile)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Approve transitions a pending record to approved.
func (h *UserHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(session types.Session, targetID string) (types.User, error) {
		return h.approvalService.Approve(r.Context(), session, targetID)
	}, "user approved")
}

// Deny transitions a pending record to denied.
func (h *UserHandler) Deny(w http.ResponseWriter, r *http.Request) {
	var req DenyRequest
	if r.Body != nil {
		// The reason is optional; an empty body is fine.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	h.transition(w, r, func(session types.Session, targetID string) (types.User, error) {
		return h.approvalService.Deny(r.Context(), session, targetID, strings.TrimSpace(req.Reason))
	}, "user denied")
}

// Restore transitions a denied record back to approved.
func (h *UserHandler) Restore(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(session types.Session, targetID string) (types.User, error) {
		return h.approvalService.Restore(r.Context(), session, targetID)
	}, "user restored")
}

func (h *UserHandler) transition(w http.ResponseWriter, r *http.Request, apply func(types.Session, string) (types.User, error), message string) {
	session, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := apply(session, chi.URLParam(r, "userID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, TransitionResponse{
		Success: true,
		Message: message,
		User:    user,
	})
}

// DeleteUser removes a single record; admin only.
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	session, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	targetID := chi.URLParam(r, "userID")
	if err := h.userService.Delete(r.Context(), session, targetID); err != nil {
		writeServiceError(w, err)
		return
	}

	// The avatar object goes with the record. Storage failures leave
	// an orphan object behind but never fail the delete.
	if h.avatars != nil {
		_ = h.avatars.Delete(r.Context(), targetID)
	}
	w.WriteHeader(http.StatusNoContent)
}

// PutAvatar stores the uploaded avatar in object storage and points
// the record's photo URL at it.
func (h *UserHandler) PutAvatar(w http.ResponseWriter, r *http.Request) {
	if h.avatars == nil {
		writeError(w, http.StatusNotImplemented, "avatar storage is not configured")
		return
	}

	session, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	targetID := chi.URLParam(r, "userID")

	if err := r.ParseMultipartForm(maxAvatarMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	files := r.MultipartForm.File[formFieldAvatar]
	if len(files) != 1 {
		writeError(w, http.StatusBadRequest, "exactly one avatar file is required")
		return
	}

	fileHeader := files[0]
	file, err := fileHeader.Open()
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read avatar file")
		return
	}
	data, err := readFileLimited(file, maxAvatarBytes)
	_ = file.Close()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	photoURL := fmt.Sprintf("/users/%s/avatar", targetID)

	// Authorize through the service before touching storage.
	if err := h.userService.SetPhotoURL(r.Context(), session, targetID, photoURL); err != nil {
		writeServiceError(w, err)
		return
	}

	if err := h.avatars.Put(r.Context(), targetID, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store avatar")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"photo_url": photoURL})
}

// GetAvatar streams a user's avatar from object storage.
func (h *UserHandler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	if h.avatars == nil {
		writeError(w, http.StatusNotImplemented, "avatar storage is not configured")
		return
	}

	reader, err := h.avatars.Get(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "avatar not found")
		return
	}
	defer reader.Close()

	if _, err := io.Copy(w, reader); err != nil && !errors.Is(err, io.EOF) {
		return
	}
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("uploaded file too large")
	}
	return data, nil
}
