package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/adapters/middleware"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/domain"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/ports"
)

type PlanHandler struct {
	plans    ports.TreatmentPlanService
	patients ports.PatientService
	log      *zap.Logger
}

func NewPlanHandler(plans ports.TreatmentPlanService, patients ports.PatientService, log *zap.Logger) *PlanHandler {
	return &PlanHandler{plans: plans, patients: patients, log: log}
}

// PatientPlan handles GET /patient/treatment-plan for the logged-in patient.
func (h *PlanHandler) PatientPlan(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFrom(r.Context())
	view, err := h.plans.ForPatient(r.Context(), session.User.PatientID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, view)
}

func (h *PlanHandler) StaffPlan(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFrom(r.Context())
	patient, err := h.patients.Get(r.Context(), session.Staff.ClinicID, r.PathValue("id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	view, err := h.plans.ForPatient(r.Context(), patient.ID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, view)
}

func (h *PlanHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.PlanInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	plan, err := h.plans.Create(r.Context(), middleware.SessionFrom(r.Context()), r.PathValue("id"), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusCreated, plan)
}

// Save replaces a plan's header and item list.
func (h *PlanHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req domain.PlanInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	plan, err := h.plans.Save(r.Context(), middleware.SessionFrom(r.Context()), r.PathValue("id"), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, plan)
}
