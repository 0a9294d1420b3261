package handler

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/adapters/middleware"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/domain"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/ports"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/treatmentcsv"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/validation"
)

const (
	maxUploadBytes = 5 << 20
	csvUploadField = "file"
)

type CatalogHandler struct {
	catalog ports.CatalogService
	log     *zap.Logger
}

func NewCatalogHandler(catalog ports.CatalogService, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, log: log}
}

type ImportResponse struct {
	Message string                 `json:"message"`
	Count   int                    `json:"count"`
	Items   []domain.TreatmentItem `json:"items"`
}

func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.List(r.Context(), clinicOf(r))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, items)
}

func (h *CatalogHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req validation.NewTreatmentItem
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	item, err := h.catalog.Create(r.Context(), clinicOf(r), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusCreated, item)
}

func (h *CatalogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Delete(r.Context(), clinicOf(r), r.PathValue("id")); err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	item, err := h.catalog.ToggleActive(r.Context(), clinicOf(r), r.PathValue("id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, item)
}

// Import accepts either a multipart form with a "file" field or a raw
// text/csv body.
func (h *CatalogHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	body, err := csvBody(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	defer body.Close()

	items, err := h.catalog.Import(r.Context(), clinicOf(r), body)
	if err != nil {
		writeError(w, h.log, csvError(err))
		return
	}
	writeJSON(w, h.log, http.StatusCreated, ImportResponse{
		Message: "Import complete",
		Count:   len(items),
		Items:   items,
	})
}

func (h *CatalogHandler) Export(w http.ResponseWriter, r *http.Request) {
	// Buffer so a failed export still gets a proper error status.
	var buf bytes.Buffer
	if err := h.catalog.Export(r.Context(), clinicOf(r), &buf); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeCSV(w, h.log, treatmentcsv.ExportFilename, buf.Bytes())
}

func (h *CatalogHandler) Template(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := treatmentcsv.WriteTemplate(&buf); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeCSV(w, h.log, treatmentcsv.TemplateFilename, buf.Bytes())
}

func writeCSV(w http.ResponseWriter, log *zap.Logger, filename string, data []byte) {
	w.Header().Set("Content-Type", treatmentcsv.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Warn("failed to write csv response", zap.Error(err))
	}
}

func csvBody(r *http.Request) (io.ReadCloser, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch {
	case mediaType == "multipart/form-data":
		file, _, err := r.FormFile(csvUploadField)
		if err != nil {
			var errs validation.Errors
			errs.Add(csvUploadField, "a CSV file is required")
			return nil, errs.Err()
		}
		return file, nil
	case strings.HasPrefix(mediaType, "text/"):
		return r.Body, nil
	default:
		var errs validation.Errors
		errs.Add(csvUploadField, "upload must be multipart/form-data or text/csv")
		return nil, errs.Err()
	}
}

// csvError turns parse failures into field errors so they surface as 400s.
func csvError(err error) error {
	var (
		missing *treatmentcsv.MissingColumnsError
		parse   *csv.ParseError
		errs    validation.Errors
	)
	switch {
	case errors.As(err, &missing):
		for _, col := range missing.Columns {
			errs.Add(col, "required column is missing")
		}
	case errors.Is(err, treatmentcsv.ErrEmpty):
		errs.Add(csvUploadField, err.Error())
	case errors.As(err, &parse):
		errs.Add(csvUploadField, parse.Error())
	default:
		return err
	}
	return errs.Err()
}

func clinicOf(r *http.Request) string {
	return middleware.SessionFrom(r.Context()).Staff.ClinicID
}
