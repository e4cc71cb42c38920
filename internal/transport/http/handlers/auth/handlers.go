package authhandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"hrm-payroll/internal/domain/auth"
	"hrm-payroll/internal/transport/http/api"
	"hrm-payroll/internal/transport/http/middleware"
)

type Handler struct {
	Perms middleware.PermissionStore
}

func NewHandler(perms middleware.PermissionStore) *Handler {
	return &Handler{Perms: perms}
}

type meResponse struct {
	UserID       string   `json:"userId"`
	Role         string   `json:"role"`
	EmployeeCode string   `json:"employeeCode,omitempty"`
	Permissions  []string `json:"permissions"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/auth/me", h.HandleMe)
}

// HandleMe reports the caller and the permissions their role resolves to.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}

	perms := make([]string, 0, len(auth.DefaultPermissions))
	for _, perm := range auth.DefaultPermissions {
		allowed, err := h.Perms.HasPermission(r.Context(), user.Role, perm)
		if err != nil {
			api.FailError(w, err, requestID)
			return
		}
		if allowed {
			perms = append(perms, perm)
		}
	}
	api.Success(w, meResponse{
		UserID:       user.UserID,
		Role:         user.Role,
		EmployeeCode: user.EmployeeCode,
		Permissions:  perms,
	}, requestID)
}
