package inventory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/epp-ledger/internal/domain"
	"github.com/jhoicas/epp-ledger/internal/domain/entity"
	"github.com/jhoicas/epp-ledger/internal/domain/repository"
)

// ThresholdStatus estado de una variante con umbral configurado.
type ThresholdStatus struct {
	Variant     entity.ProductVariant
	MinQuantity int64
	Available   int64
	Critical    bool
}

// CriticalReport resultado de Evaluate. Solo incluye variantes con umbral.
type CriticalReport struct {
	CriticalCount int
	Items         []ThresholdStatus
}

// Critical solo los ítems marcados como críticos.
func (r *CriticalReport) Critical() []ThresholdStatus {
	out := make([]ThresholdStatus, 0, r.CriticalCount)
	for _, it := range r.Items {
		if it.Critical {
			out = append(out, it)
		}
	}
	return out
}

// ThresholdRegistry umbrales críticos por variante y su evaluación contra el disponible.
type ThresholdRegistry struct {
	thresholdRepo repository.ThresholdRepository
	lotRepo       repository.LotRepository
	now           func() time.Time
}

// NewThresholdRegistry construye el registro.
func NewThresholdRegistry(thresholdRepo repository.ThresholdRepository, lotRepo repository.LotRepository) *ThresholdRegistry {
	return &ThresholdRegistry{thresholdRepo: thresholdRepo, lotRepo: lotRepo, now: time.Now}
}

// SetThreshold crea o reemplaza el mínimo de una variante.
func (r *ThresholdRegistry) SetThreshold(ctx context.Context, companyID, userID string, variant entity.ProductVariant, minQuantity int64) (*entity.CriticalThreshold, error) {
	if err := validateVariant("", variant); err != nil {
		return nil, err
	}
	if minQuantity < 0 {
		return nil, domain.NewValidationError("minQuantity", "el mínimo no puede ser negativo")
	}
	t := &entity.CriticalThreshold{
		CompanyID:   companyID,
		Variant:     variant.Normalize(),
		MinQuantity: minQuantity,
		UpdatedBy:   userID,
		UpdatedAt:   r.now().UTC(),
	}
	if err := r.thresholdRepo.Upsert(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Evaluate suma el disponible de cada variante con umbral (todos los centros) y la marca crítica
// si total <= mínimo. Variantes sin umbral no aparecen.
func (r *ThresholdRegistry) Evaluate(ctx context.Context, companyID string) (*CriticalReport, error) {
	thresholds, err := r.thresholdRepo.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	report := &CriticalReport{Items: make([]ThresholdStatus, 0, len(thresholds))}
	if len(thresholds) == 0 {
		return report, nil
	}

	stock, err := r.lotRepo.SumAvailable(ctx, companyID, nil)
	if err != nil {
		return nil, err
	}
	available := make(map[string]int64, len(stock))
	for _, s := range stock {
		available[s.Variant.Key()] += s.Available
	}

	for _, t := range thresholds {
		total := available[t.Variant.Key()]
		st := ThresholdStatus{
			Variant:     t.Variant,
			MinQuantity: t.MinQuantity,
			Available:   total,
			Critical:    total <= t.MinQuantity,
		}
		if st.Critical {
			report.CriticalCount++
		}
		report.Items = append(report.Items, st)
	}
	sort.Slice(report.Items, func(i, j int) bool {
		return report.Items[i].Variant.Key() < report.Items[j].Variant.Key()
	})
	return report, nil
}

// Companies empresas con umbrales (para el barrido programado).
func (r *ThresholdRegistry) Companies(ctx context.Context) ([]string, error) {
	return r.thresholdRepo.ListCompanies(ctx)
}
