package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/adapters/middleware"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/domain"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/ports"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/validation"
)

type RegistrationHandler struct {
	registrationService ports.RegistrationService
	log                 *zap.Logger
}

func NewRegistrationHandler(registration ports.RegistrationService, log *zap.Logger) *RegistrationHandler {
	return &RegistrationHandler{registrationService: registration, log: log}
}

type RegistrationResponse struct {
	Message string        `json:"message"`
	Staff   *domain.Staff `json:"staff"`
}

// Register handles staff self-registration. The account stays unusable
// until an administrator approves it.
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req validation.StaffRegistration
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	staff, err := h.registrationService.Register(r.Context(), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, h.log, http.StatusCreated, RegistrationResponse{
		Message: "Registration received. An administrator must approve the account before login.",
		Staff:   staff,
	})
}

func (h *RegistrationHandler) Pending(w http.ResponseWriter, r *http.Request) {
	staff, err := h.registrationService.ListPending(r.Context(), middleware.SessionFrom(r.Context()))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, staff)
}

func (h *RegistrationHandler) Approved(w http.ResponseWriter, r *http.Request) {
	staff, err := h.registrationService.ListApproved(r.Context(), middleware.SessionFrom(r.Context()))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, staff)
}

func (h *RegistrationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	if err := h.registrationService.Approve(r.Context(), middleware.SessionFrom(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, MessageResponse{Message: "Staff approved"})
}

// Reject deletes a pending registration.
func (h *RegistrationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	if err := h.registrationService.Reject(r.Context(), middleware.SessionFrom(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, MessageResponse{Message: "Registration rejected"})
}
