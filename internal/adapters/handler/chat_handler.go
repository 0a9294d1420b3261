package handler

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/adapters/middleware"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/domain"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/ports"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/validation"
)

type ChatHandler struct {
	chat     ports.ChatService
	patients ports.PatientService
	log      *zap.Logger
}

func NewChatHandler(chat ports.ChatService, patients ports.PatientService, log *zap.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, patients: patients, log: log}
}

type ChatResponse struct {
	Response string `json:"response"`
}

// Chat handles POST /api/chat. A completion outage still answers 200 with
// the apology text; only storage failures surface as errors.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req validation.ChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := h.authorize(r.Context(), req.PatientID); err != nil {
		writeError(w, h.log, err)
		return
	}

	reply, err := h.chat.Send(r.Context(), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, ChatResponse{Response: reply})
}

// PatientTranscript handles GET /patient/chat.
func (h *ChatHandler) PatientTranscript(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFrom(r.Context())
	h.transcript(w, r, session.User.PatientID)
}

func (h *ChatHandler) StaffTranscript(w http.ResponseWriter, r *http.Request) {
	patientID := r.PathValue("id")
	if err := h.authorize(r.Context(), patientID); err != nil {
		writeError(w, h.log, err)
		return
	}
	h.transcript(w, r, patientID)
}

func (h *ChatHandler) transcript(w http.ResponseWriter, r *http.Request, patientID string) {
	messages, err := h.chat.Transcript(r.Context(), patientID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if messages == nil {
		messages = []domain.ChatMessage{}
	}
	writeJSON(w, h.log, http.StatusOK, messages)
}

func (h *ChatHandler) Summaries(w http.ResponseWriter, r *http.Request) {
	patientID := r.PathValue("id")
	if err := h.authorize(r.Context(), patientID); err != nil {
		writeError(w, h.log, err)
		return
	}

	summaries, err := h.chat.Summaries(r.Context(), patientID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if summaries == nil {
		summaries = []domain.ChatSummary{}
	}
	writeJSON(w, h.log, http.StatusOK, summaries)
}

func (h *ChatHandler) GenerateSummary(w http.ResponseWriter, r *http.Request) {
	patientID := r.PathValue("id")
	if err := h.authorize(r.Context(), patientID); err != nil {
		writeError(w, h.log, err)
		return
	}

	summary, err := h.chat.GenerateSummary(r.Context(), middleware.SessionFrom(r.Context()), patientID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusCreated, summary)
}

// authorize lets a patient reach only their own conversation and staff only
// patients of their clinic.
func (h *ChatHandler) authorize(ctx context.Context, patientID string) error {
	session := middleware.SessionFrom(ctx)
	switch {
	case session.IsPatient():
		if session.User.PatientID != patientID {
			return domain.ErrForbidden
		}
		return nil
	case session.IsStaff():
		_, err := h.patients.Get(ctx, session.Staff.ClinicID, patientID)
		return err
	default:
		return domain.ErrForbidden
	}
}
