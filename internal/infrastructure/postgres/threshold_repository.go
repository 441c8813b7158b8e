package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/epp-ledger/internal/domain/entity"
	"github.com/jhoicas/epp-ledger/internal/domain/repository"
)

var _ repository.ThresholdRepository = (*ThresholdRepo)(nil)

// ThresholdRepo umbrales críticos sobre PostgreSQL. La talla se guarda como '' (parte de la PK).
type ThresholdRepo struct {
	q Querier
}

// NewThresholdRepository construye el adaptador de umbrales.
func NewThresholdRepository(q Querier) *ThresholdRepo {
	return &ThresholdRepo{q: q}
}

// Upsert crea o reemplaza el umbral de la variante.
func (r *ThresholdRepo) Upsert(ctx context.Context, t *entity.CriticalThreshold) error {
	query := `
		INSERT INTO critical_thresholds (company_id, category, product_name, size, min_quantity, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (company_id, category, product_name, size)
		DO UPDATE SET min_quantity = EXCLUDED.min_quantity, updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at`
	_, err := r.q.Exec(ctx, query,
		t.CompanyID, t.Variant.Category, t.Variant.ProductName, t.Variant.Size, t.MinQuantity, t.UpdatedBy, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert threshold: %w", err)
	}
	return nil
}

// ListByCompany umbrales configurados de la empresa.
func (r *ThresholdRepo) ListByCompany(ctx context.Context, companyID string) ([]*entity.CriticalThreshold, error) {
	rows, err := r.q.Query(ctx, `
		SELECT company_id, category, product_name, size, min_quantity, updated_by, updated_at
		FROM critical_thresholds WHERE company_id = $1
		ORDER BY category, product_name, size`, companyID)
	if err != nil {
		return nil, fmt.Errorf("list thresholds: %w", err)
	}
	defer rows.Close()
	var list []*entity.CriticalThreshold
	for rows.Next() {
		var t entity.CriticalThreshold
		if err := rows.Scan(&t.CompanyID, &t.Variant.Category, &t.Variant.ProductName, &t.Variant.Size,
			&t.MinQuantity, &t.UpdatedBy, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan threshold: %w", err)
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}

// ListCompanies empresas con al menos un umbral.
func (r *ThresholdRepo) ListCompanies(ctx context.Context) ([]string, error) {
	rows, err := r.q.Query(ctx, `SELECT DISTINCT company_id::text FROM critical_thresholds ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("list threshold companies: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan threshold company: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
