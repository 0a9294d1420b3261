package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/adapters/middleware"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/ports"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/validation"
)

// PatientHandler serves the staff patient list. Every call is scoped to the
// clinic of the logged-in staff member.
type PatientHandler struct {
	patients ports.PatientService
	log      *zap.Logger
}

func NewPatientHandler(patients ports.PatientService, log *zap.Logger) *PatientHandler {
	return &PatientHandler{patients: patients, log: log}
}

// List handles GET /staff/patients?search=...
func (h *PatientHandler) List(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFrom(r.Context())
	patients, err := h.patients.List(r.Context(), session.Staff.ClinicID, r.URL.Query().Get("search"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, patients)
}

func (h *PatientHandler) Get(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFrom(r.Context())
	patient, err := h.patients.Get(r.Context(), session.Staff.ClinicID, r.PathValue("id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, patient)
}

func (h *PatientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req validation.NewPatient
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	session := middleware.SessionFrom(r.Context())
	patient, err := h.patients.Create(r.Context(), session.Staff.ClinicID, req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusCreated, patient)
}

// RefreshPasscode issues a new passcode valid for the next 60 minutes.
func (h *PatientHandler) RefreshPasscode(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFrom(r.Context())
	patient, err := h.patients.RefreshPasscode(r.Context(), session.Staff.ClinicID, r.PathValue("id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, patient)
}
