package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hoas/apiserver/internal/services"
	"github.com/hoas/apiserver/internal/storage"
	"github.com/hoas/apiserver/types"
)

// CollegeHandler provides HTTP handlers for college-scoped
// operations: listings, stats and the cascade delete.
type CollegeHandler struct {
	collegeService *services.CollegeService
	avatars        *storage.AvatarStore
}

// NewCollegeHandler constructs a handler with the provided
// dependencies. avatars may be nil.
func NewCollegeHandler(collegeService *services.CollegeService, avatars *storage.AvatarStore) *CollegeHandler {
	return &CollegeHandler{collegeService: collegeService, avatars: avatars}
}

// CollegeRouter registers college routes on the given router. Every
// route requires an authenticated session.
func CollegeRouter(r chi.Router, handler *CollegeHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Use(authMiddleware)

	r.Get("/", handler.ListColleges)
	r.Route("/{collegeID}", func(r chi.Router) {
		r.Delete("/", handler.DeleteCollege)
		r.Get("/users", handler.ListCollegeUsers)
		r.Get("/stats", handler.Stats)
	})
}

// CollegeListResponse wraps the management record listing.
type CollegeListResponse struct {
	Colleges []types.User `json:"colleges"`
}

// CollegeUsersResponse wraps a dependent-record listing.
type CollegeUsersResponse struct {
	Users []types.User `json:"users"`
}

// CascadeResponse is returned by the cascade delete.
type CascadeResponse struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	WardensDeleted  int    `json:"wardens_deleted"`
	StudentsDeleted int    `json:"students_deleted"`
}

// ListColleges returns every management record. Admin only.
func (h *CollegeHandler) ListColleges(w http.ResponseWriter, r *http.Request) {
	session, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	colleges, err := h.collegeService.List(r.Context(), session)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CollegeListResponse{Colleges: colleges})
}

// ListCollegeUsers returns the college's dependent records, filtered
// by the optional role and status query parameters.
func (h *CollegeHandler) ListCollegeUsers(w http.ResponseWriter, r *http.Request) {
	session, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var role types.Role
	if raw := strings.TrimSpace(r.URL.Query().Get("role")); raw != "" {
		parsed, ok := types.ParseRole(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid role filter")
			return
		}
		role = parsed
	}

	var status types.Status
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		parsed, ok := types.ParseStatus(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid status filter")
			return
		}
		status = parsed
	}

	users, err := h.collegeService.Users(r.Context(), session, chi.URLParam(r, "collegeID"), role, status)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CollegeUsersResponse{Users: users})
}

// Stats returns the college's dependent records counted by status.
func (h *CollegeHandler) Stats(w http.ResponseWriter, r *http.Request) {
	session, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	stats, err := h.collegeService.Stats(r.Context(), session, chi.URLParam(r, "collegeID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// DeleteCollege removes a management record and all of its dependent
// records in one atomic operation. Admin only.
func (h *CollegeHandler) DeleteCollege(w http.ResponseWriter, r *http.Request) {
	session, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	collegeID := chi.URLParam(r, "collegeID")

	// Snapshot the dependent ids before the cascade so their avatar
	// objects can be dropped with the records.
	var dependentIDs []string
	if h.avatars != nil {
		if dependents, err := h.collegeService.Users(r.Context(), session, collegeID, "", ""); err == nil {
			for _, dependent := range dependents {
				dependentIDs = append(dependentIDs, dependent.ID)
			}
		}
	}

	result, err := h.collegeService.Delete(r.Context(), session, collegeID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if h.avatars != nil {
		for _, id := range append(dependentIDs, collegeID) {
			_ = h.avatars.Delete(r.Context(), id)
		}
	}

	writeJSON(w, http.StatusOK, CascadeResponse{
		Success:         true,
		Message:         "college deleted",
		WardensDeleted:  result.WardensDeleted,
		StudentsDeleted: result.StudentsDeleted,
	})
}
