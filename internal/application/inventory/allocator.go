package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/epp-ledger/internal/domain/entity"
	fifo "github.com/jhoicas/epp-ledger/internal/domain/inventory"
	"github.com/jhoicas/epp-ledger/internal/domain/repository"
)

// AllocationResult resultado explícito de asignar una variante: porciones por lote y lotes debitados
// (mismo orden que Allocations).
type AllocationResult struct {
	Variant     entity.ProductVariant
	Requested   int64
	Allocations []entity.Allocation
	Lots        []*entity.Lot
	TotalCost   decimal.Decimal
}

// FIFOAllocator convierte (variante, cantidad) en asignaciones por lote dentro de la transacción del caller.
// Es el único camino que decrementa QuantityAvailable.
type FIFOAllocator struct {
	now func() time.Time
}

// NewFIFOAllocator construye el asignador.
func NewFIFOAllocator() *FIFOAllocator { return &FIFOAllocator{now: time.Now} }

// Allocate bloquea los lotes disponibles de la variante en el pool (centerID "" = bodega central),
// los consume en orden FIFO y persiste los decrementos con lotRepo (atado a la tx).
// Con saldo insuficiente devuelve *domain.InsufficientStockError y no escribe nada.
func (a *FIFOAllocator) Allocate(
	ctx context.Context,
	lotRepo repository.LotRepository,
	companyID string,
	variant entity.ProductVariant,
	centerID string,
	quantity int64,
) (*AllocationResult, error) {
	if err := validateQuantity("quantity", quantity); err != nil {
		return nil, err
	}
	variant = variant.Normalize()

	// SELECT ... FOR UPDATE: otra transacción sobre la misma variante espera aquí.
	lots, err := lotRepo.ListAvailableForUpdate(ctx, companyID, variant, centerID)
	if err != nil {
		return nil, err
	}

	allocations, err := fifo.Allocate(variant.Key(), lots, quantity)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*entity.Lot, len(lots))
	for _, l := range lots {
		byID[l.ID] = l
	}
	now := a.now().UTC()
	debited := make([]*entity.Lot, 0, len(allocations))
	for _, alloc := range allocations {
		lot := byID[alloc.LotID]
		lot.UpdatedAt = now
		if err := lotRepo.Update(ctx, lot); err != nil {
			return nil, err
		}
		debited = append(debited, lot)
	}

	return &AllocationResult{
		Variant:     variant,
		Requested:   quantity,
		Allocations: allocations,
		Lots:        debited,
		TotalCost:   fifo.WeightedCost(allocations),
	}, nil
}
