package inventory

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/epp-ledger/internal/domain"
	"github.com/jhoicas/epp-ledger/internal/domain/entity"
)

// SortFIFO ordena los lotes en orden de consumo (fecha de ingreso, luego creación).
func SortFIFO(lots []*entity.Lot) {
	sort.SliceStable(lots, func(i, j int) bool { return entity.FIFOBefore(lots[i], lots[j]) })
}

// Available suma el saldo de los lotes asignables.
func Available(lots []*entity.Lot) int64 {
	var total int64
	for _, l := range lots {
		if l.Allocatable() {
			total += l.QuantityAvailable
		}
	}
	return total
}

// Allocate descuenta quantity de los lotes en orden FIFO y devuelve la asignación.
// Si el saldo total no alcanza devuelve *domain.InsufficientStockError sin modificar ningún lote.
// Los lotes se modifican en memoria; persistirlos es responsabilidad del caller (misma transacción).
func Allocate(variantKey string, lots []*entity.Lot, quantity int64) ([]entity.Allocation, error) {
	if quantity <= 0 {
		return nil, domain.NewValidationError("quantity", "la cantidad debe ser mayor que cero")
	}
	available := Available(lots)
	if available < quantity {
		return nil, &domain.InsufficientStockError{
			VariantKey: variantKey,
			Requested:  quantity,
			Available:  available,
			Shortfall:  quantity - available,
		}
	}

	ordered := make([]*entity.Lot, 0, len(lots))
	for _, l := range lots {
		if l.Allocatable() {
			ordered = append(ordered, l)
		}
	}
	SortFIFO(ordered)

	remaining := quantity
	allocations := make([]entity.Allocation, 0, 2)
	for _, lot := range ordered {
		if remaining == 0 {
			break
		}
		take := min(lot.QuantityAvailable, remaining)
		lot.QuantityAvailable -= take
		remaining -= take
		allocations = append(allocations, entity.Allocation{
			LotID:    lot.ID,
			Quantity: take,
			UnitCost: lot.UnitCost,
		})
	}
	return allocations, nil
}

// WeightedCost costo ponderado de una asignación: Σ(cantidad_i x costo_i).
func WeightedCost(allocations []entity.Allocation) decimal.Decimal {
	total := decimal.Zero
	for _, a := range allocations {
		total = total.Add(a.Cost())
	}
	return total
}
