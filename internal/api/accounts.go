package api

import (
	"net/http"

	"github.com/safar/framely/internal/httpx"
	"github.com/safar/framely/internal/service"
)

type registerRequest struct {
	FullName    string `json:"fullName"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phoneNumber"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type adminPasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}

	if _, err := h.accounts.Register(r.Context(), service.RegisterInput{
		FullName:    req.FullName,
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
	}); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "User registered successfully"})
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, result)
}

func (h *handlers) resetAdminPassword(w http.ResponseWriter, r *http.Request) {
	var req adminPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.accounts.ChangeAdminPassword(r.Context(), caller(r), req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "Password changed successfully"})
}

// decode reads the body into dst, writing a 400 and returning false when the
// body is unreadable or fails struct validation.
func (h *handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	violations, err := decodeJSON(w, r, dst)
	if err != nil {
		writeBadRequest(w, r, err.Error())
		return false
	}
	if len(violations) > 0 {
		httpx.WriteError(r.Context(), w, httpx.NewError("validation_failed", "Validation failed", http.StatusBadRequest).WithViolations(violations))
		return false
	}
	return true
}
