package repository

import (
	"context"

	"github.com/jhoicas/epp-ledger/internal/domain/entity"
)

// ThresholdRepository umbrales críticos por variante.
type ThresholdRepository interface {
	Upsert(ctx context.Context, t *entity.CriticalThreshold) error
	ListByCompany(ctx context.Context, companyID string) ([]*entity.CriticalThreshold, error)
	// ListCompanies empresas con al menos un umbral configurado (barrido de alertas).
	ListCompanies(ctx context.Context) ([]string, error)
}
