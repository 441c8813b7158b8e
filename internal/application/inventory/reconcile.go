package inventory

import (
	"context"
	"sort"

	"github.com/jhoicas/epp-ledger/internal/domain/entity"
	"github.com/jhoicas/epp-ledger/internal/domain/repository"
	"github.com/jhoicas/epp-ledger/pkg/logger"
)

// reconcilePage tamaño de página al recorrer los lotes.
const reconcilePage = 500

// LotDiscrepancy lote cuyo consumo no cuadra con lo asignado en entregas.
type LotDiscrepancy struct {
	LotID     string
	Variant   entity.ProductVariant
	Consumed  int64 // inicial - disponible
	Allocated int64 // suma de asignaciones confirmadas
}

// ReconcileReport resultado de la conciliación de una empresa.
type ReconcileReport struct {
	LotsChecked   int
	Discrepancies []LotDiscrepancy
}

// Balanced true si todos los lotes cuadran.
func (r *ReconcileReport) Balanced() bool { return len(r.Discrepancies) == 0 }

// Reconciler verifica que, por lote, inicial - disponible sea igual a lo asignado.
type Reconciler struct {
	lotRepo      repository.LotRepository
	deliveryRepo repository.DeliveryRepository
	log          *logger.Logger
}

// NewReconciler construye el verificador (repos de lectura).
func NewReconciler(lotRepo repository.LotRepository, deliveryRepo repository.DeliveryRepository, log *logger.Logger) *Reconciler {
	return &Reconciler{lotRepo: lotRepo, deliveryRepo: deliveryRepo, log: log}
}

// Reconcile recorre todos los lotes de la empresa, anulados incluidos.
func (r *Reconciler) Reconcile(ctx context.Context, companyID string) (*ReconcileReport, error) {
	allocated, err := r.deliveryRepo.DeliveredByLot(ctx, companyID)
	if err != nil {
		return nil, err
	}
	report := &ReconcileReport{}
	seen := make(map[string]bool, len(allocated))
	for offset := 0; ; offset += reconcilePage {
		lots, _, err := r.lotRepo.List(ctx, companyID, entity.LotFilter{
			IncludeVoided:    true,
			IncludeTransfers: true,
			Limit:            reconcilePage,
			Offset:           offset,
		})
		if err != nil {
			return nil, err
		}
		for _, l := range lots {
			seen[l.ID] = true
			report.LotsChecked++
			consumed := l.QuantityInitial - l.QuantityAvailable
			if consumed != allocated[l.ID] {
				report.Discrepancies = append(report.Discrepancies, LotDiscrepancy{
					LotID: l.ID, Variant: l.Variant, Consumed: consumed, Allocated: allocated[l.ID],
				})
			}
		}
		if len(lots) < reconcilePage {
			break
		}
	}
	// asignaciones contra lotes que ya no aparecen
	for lotID, qty := range allocated {
		if !seen[lotID] {
			report.Discrepancies = append(report.Discrepancies, LotDiscrepancy{LotID: lotID, Allocated: qty})
		}
	}
	sort.Slice(report.Discrepancies, func(i, j int) bool {
		return report.Discrepancies[i].LotID < report.Discrepancies[j].LotID
	})

	if !report.Balanced() {
		r.log.Tenant(companyID).Error().
			Int("discrepancies", len(report.Discrepancies)).
			Msg("conciliación de lotes no cuadra")
	}
	return report, nil
}
