package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/epp-ledger/internal/domain"
	"github.com/jhoicas/epp-ledger/internal/domain/entity"
	"github.com/jhoicas/epp-ledger/internal/domain/repository"
	"github.com/jhoicas/epp-ledger/pkg/logger"
)

// MaxQuantity tope de unidades por ingreso, edición o línea. Mantiene las sumas por variante
// lejos del desborde de int64.
const MaxQuantity int64 = 1_000_000_000

// validateQuantity cantidad entera en (0, MaxQuantity].
func validateQuantity(field string, q int64) error {
	if q <= 0 {
		return domain.NewValidationError(field, "la cantidad debe ser mayor que cero")
	}
	if q > MaxQuantity {
		return domain.NewValidationError(field, fmt.Sprintf("la cantidad no puede superar %d", MaxQuantity))
	}
	return nil
}

// validateVariant aplica las reglas comunes de variante con un prefijo de campo (ej. "lines[2].").
func validateVariant(prefix string, v entity.ProductVariant) error {
	if field, reason := v.Validate(); field != "" {
		return domain.NewValidationError(prefix+field, reason)
	}
	return nil
}

// resolveCenter valida que el centro exista y pertenezca a la empresa. "" es la bodega central.
func resolveCenter(ctx context.Context, repo repository.CenterRepository, log *logger.Logger, companyID, field, centerID string) error {
	centerID = strings.TrimSpace(centerID)
	if centerID == "" {
		return nil
	}
	center, err := repo.GetByID(ctx, centerID)
	if err != nil {
		return err
	}
	if center == nil {
		return domain.NewValidationError(field, "centro no encontrado")
	}
	if center.CompanyID != companyID {
		return tenantMismatch(log, companyID, "center", centerID)
	}
	return nil
}

// tenantMismatch registra el intento de acceso cruzado y devuelve el error tipado.
func tenantMismatch(log *logger.Logger, companyID, entityName, id string) error {
	log.Tenant(companyID).Warn().
		Str("entity", entityName).
		Str("entity_id", id).
		Msg("acceso a entidad de otra empresa")
	return &domain.TenantMismatchError{Entity: entityName, ID: id}
}
