package services

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/domain"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/ports"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/treatmentcsv"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/validation"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/metrics"
)

// CatalogService manages a clinic's treatment items.
type CatalogService struct {
	items   ports.TreatmentItemRepository
	metrics *metrics.Collector
	log     *zap.Logger
	now     func() time.Time
}

var _ ports.CatalogService = (*CatalogService)(nil)

func NewCatalogService(items ports.TreatmentItemRepository, collector *metrics.Collector, log *zap.Logger) *CatalogService {
	return &CatalogService{items: items, metrics: collector, log: log, now: time.Now}
}

func (s *CatalogService) List(ctx context.Context, clinicID string) ([]domain.TreatmentItem, error) {
	items, err := s.items.ListByClinic(ctx, clinicID)
	if err != nil {
		return nil, domain.External("list treatment items", err)
	}
	return items, nil
}

func (s *CatalogService) Create(ctx context.Context, clinicID string, in validation.NewTreatmentItem) (*domain.TreatmentItem, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	count, err := s.items.Count(ctx, clinicID)
	if err != nil {
		return nil, domain.External("count treatment items", err)
	}

	now := s.now()
	item := domain.TreatmentItem{
		ID:           uuid.NewString(),
		ClinicID:     clinicID,
		InternalName: strings.TrimSpace(in.InternalName),
		PatientName:  strings.TrimSpace(in.PatientName),
		Category:     strings.TrimSpace(in.Category),
		Description:  strings.TrimSpace(in.Description),
		Order:        count + 1,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.items.Create(ctx, item); err != nil {
		return nil, domain.External("create treatment item", err)
	}
	return &item, nil
}

func (s *CatalogService) Delete(ctx context.Context, clinicID, id string) error {
	if _, err := s.find(ctx, clinicID, id); err != nil {
		return err
	}
	if err := s.items.Delete(ctx, id); err != nil {
		return domain.External("delete treatment item", err)
	}
	return nil
}

func (s *CatalogService) ToggleActive(ctx context.Context, clinicID, id string) (*domain.TreatmentItem, error) {
	item, err := s.find(ctx, clinicID, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	item.Active = !item.Active
	item.UpdatedAt = now
	if err := s.items.SetActive(ctx, id, item.Active, now); err != nil {
		return nil, domain.External("toggle treatment item", err)
	}
	return item, nil
}

// Import appends the items of a CSV file after the existing catalog. Parse
// errors (missing columns, empty file) are returned unchanged.
func (s *CatalogService) Import(ctx context.Context, clinicID string, r io.Reader) ([]domain.TreatmentItem, error) {
	rows, err := treatmentcsv.Parse(r)
	if err != nil {
		return nil, err
	}

	count, err := s.items.Count(ctx, clinicID)
	if err != nil {
		return nil, domain.External("count treatment items", err)
	}

	items := treatmentcsv.ToItems(rows, clinicID, count+1, s.now())
	if len(items) == 0 {
		return items, nil
	}
	if err := s.items.Create(ctx, items...); err != nil {
		return nil, domain.External("import treatment items", err)
	}
	if s.metrics != nil {
		s.metrics.CSVImportedItems.Add(float64(len(items)))
	}

	s.log.Info("treatment items imported", zap.String("clinic_id", clinicID), zap.Int("count", len(items)))
	return items, nil
}

func (s *CatalogService) Export(ctx context.Context, clinicID string, w io.Writer) error {
	items, err := s.List(ctx, clinicID)
	if err != nil {
		return err
	}
	return treatmentcsv.Export(w, items)
}

func (s *CatalogService) find(ctx context.Context, clinicID, id string) (*domain.TreatmentItem, error) {
	items, err := s.List(ctx, clinicID)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID == id {
			return &items[i], nil
		}
	}
	return nil, domain.ErrNotFound
}
