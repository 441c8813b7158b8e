package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/epp-ledger/internal/domain"
	"github.com/jhoicas/epp-ledger/internal/domain/entity"
	"github.com/jhoicas/epp-ledger/internal/domain/repository"
	"github.com/jhoicas/epp-ledger/pkg/logger"
)

// AuditGuard protege la mutabilidad de los lotes: solo un lote intacto se edita o anula.
type AuditGuard struct {
	txRunner TxRunner
	log      *logger.Logger
	now      func() time.Time
}

// NewAuditGuard construye el guardián.
func NewAuditGuard(txRunner TxRunner, log *logger.Logger) *AuditGuard {
	return &AuditGuard{txRunner: txRunner, log: log, now: time.Now}
}

// EditLotInput campos editables. nil = sin cambio.
type EditLotInput struct {
	IngestionDate   *time.Time
	UnitCost        *decimal.Decimal
	QuantityInitial *int64
}

// IsEditable un lote acreditado por traslado nunca es editable: sus unidades salieron del lote de origen.
func IsEditable(lot *entity.Lot) bool {
	return lot.IsEditable() && !lot.IsTransferCredit()
}

func notEditable(lot *entity.Lot) error {
	return &domain.AlreadyConsumedError{LotID: lot.ID, Voided: lot.Voided}
}

// lockLot relee el lote bloqueado dentro de la tx y verifica empresa y editabilidad.
func (g *AuditGuard) lockLot(ctx context.Context, lotRepo repository.LotRepository, companyID, lotID string) (*entity.Lot, error) {
	lot, err := lotRepo.GetByIDForUpdate(ctx, lotID)
	if err != nil {
		return nil, err
	}
	if lot == nil {
		return nil, domain.ErrNotFound
	}
	if lot.CompanyID != companyID {
		return nil, tenantMismatch(g.log, companyID, "lot", lotID)
	}
	if !IsEditable(lot) {
		return nil, notEditable(lot)
	}
	return lot, nil
}

// VoidLot anula un lote intacto. La razón es obligatoria.
func (g *AuditGuard) VoidLot(ctx context.Context, companyID, userID, lotID, reason string) (*entity.Lot, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.NewValidationError("reason", "la razón de anulación es obligatoria")
	}

	var out *entity.Lot
	err := g.txRunner.Run(ctx, func(lotRepo repository.LotRepository, _ repository.DeliveryRepository) error {
		lot, err := g.lockLot(ctx, lotRepo, companyID, lotID)
		if err != nil {
			return err
		}
		now := g.now().UTC()
		lot.Voided = true
		lot.VoidReason = reason
		lot.VoidedBy = userID
		lot.VoidedAt = &now
		lot.UpdatedAt = now
		if err := lotRepo.Update(ctx, lot); err != nil {
			return err
		}
		out = lot
		return nil
	})
	if err != nil {
		return nil, err
	}

	g.log.Tenant(companyID).Info().
		Str(logger.FieldLotID, lotID).
		Str("user_id", userID).
		Msg("lote anulado")
	return out, nil
}

// EditLot corrige fecha, costo o cantidad de un lote intacto. El disponible vuelve a igualar al inicial.
func (g *AuditGuard) EditLot(ctx context.Context, companyID, userID, lotID string, in EditLotInput) (*entity.Lot, error) {
	if in.QuantityInitial != nil {
		if err := validateQuantity("quantityInitial", *in.QuantityInitial); err != nil {
			return nil, err
		}
	}
	if in.UnitCost != nil && in.UnitCost.IsNegative() {
		return nil, domain.NewValidationError("unitCost", "el costo unitario no puede ser negativo")
	}
	if in.IngestionDate != nil && in.IngestionDate.IsZero() {
		return nil, domain.NewValidationError("ingestionDate", "fecha de ingreso inválida")
	}

	var out *entity.Lot
	err := g.txRunner.Run(ctx, func(lotRepo repository.LotRepository, _ repository.DeliveryRepository) error {
		lot, err := g.lockLot(ctx, lotRepo, companyID, lotID)
		if err != nil {
			return err
		}
		if in.IngestionDate != nil {
			lot.IngestionDate = entity.TruncateDate(*in.IngestionDate)
		}
		if in.UnitCost != nil {
			lot.UnitCost = *in.UnitCost
		}
		if in.QuantityInitial != nil {
			lot.QuantityInitial = *in.QuantityInitial
		}
		lot.QuantityAvailable = lot.QuantityInitial
		lot.UpdatedAt = g.now().UTC()
		if err := lotRepo.Update(ctx, lot); err != nil {
			return err
		}
		out = lot
		return nil
	})
	if err != nil {
		return nil, err
	}

	g.log.Tenant(companyID).Info().
		Str(logger.FieldLotID, lotID).
		Str("user_id", userID).
		Msg("lote editado")
	return out, nil
}
