package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jhoicas/epp-ledger/internal/domain"
	"github.com/jhoicas/epp-ledger/internal/domain/entity"
	"github.com/jhoicas/epp-ledger/internal/domain/repository"
	"github.com/jhoicas/epp-ledger/pkg/textnorm"
)

var _ repository.LotRepository = (*LotRepo)(nil)

// LotRepo lotes en memoria. Con tx != nil opera dentro de Store.Run y registra el deshacer.
type LotRepo struct {
	s  *Store
	tx *txState
}

func (r *LotRepo) put(lot *entity.Lot) {
	if r.tx != nil {
		r.tx.touchLot(r.s, lot.ID)
	}
	r.s.lots[lot.ID] = cloneLot(lot)
}

// Create persiste un lote nuevo.
func (r *LotRepo) Create(ctx context.Context, lot *entity.Lot) error {
	return r.s.with(ctx, r.tx, "insert lot", func() error {
		if _, exists := r.s.lots[lot.ID]; exists {
			return domain.ErrDuplicate
		}
		r.put(lot)
		return nil
	})
}

// CreateBatch inserta todos los lotes o ninguno.
func (r *LotRepo) CreateBatch(ctx context.Context, lots []*entity.Lot) error {
	return r.s.with(ctx, r.tx, "insert lot batch", func() error {
		for _, l := range lots {
			if _, exists := r.s.lots[l.ID]; exists {
				return domain.ErrDuplicate
			}
		}
		for _, l := range lots {
			r.put(l)
		}
		return nil
	})
}

// GetByID obtiene un lote (copia) o nil.
func (r *LotRepo) GetByID(ctx context.Context, id string) (*entity.Lot, error) {
	var out *entity.Lot
	err := r.s.with(ctx, r.tx, "get lot", func() error {
		if l, ok := r.s.lots[id]; ok {
			out = cloneLot(l)
		}
		return nil
	})
	return out, err
}

// GetByIDForUpdate igual que GetByID: dentro de Store.Run el cerrojo ya es exclusivo.
func (r *LotRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.Lot, error) {
	return r.GetByID(ctx, id)
}

// Update reemplaza el lote.
func (r *LotRepo) Update(ctx context.Context, lot *entity.Lot) error {
	return r.s.with(ctx, r.tx, "update lot", func() error {
		if _, ok := r.s.lots[lot.ID]; !ok {
			return fmt.Errorf("update lot %s: no existe", lot.ID)
		}
		if lot.QuantityAvailable < 0 || lot.QuantityAvailable > lot.QuantityInitial {
			return fmt.Errorf("update lot %s: saldo fuera de rango", lot.ID)
		}
		r.put(lot)
		return nil
	})
}

// ListAvailableForUpdate lotes asignables de la variante en el pool, en orden FIFO.
func (r *LotRepo) ListAvailableForUpdate(ctx context.Context, companyID string, variant entity.ProductVariant, centerID string) ([]*entity.Lot, error) {
	key := variant.Key()
	var out []*entity.Lot
	err := r.s.with(ctx, r.tx, "lock lots", func() error {
		for _, l := range r.s.lots {
			if l.CompanyID == companyID && l.CenterID == centerID && l.Variant.Key() == key && l.Allocatable() {
				out = append(out, cloneLot(l))
			}
		}
		return nil
	})
	sortFIFO(out)
	return out, err
}

func matchesFilter(l *entity.Lot, f entity.LotFilter) bool {
	switch {
	case !f.IncludeVoided && l.Voided:
		return false
	case !f.IncludeTransfers && l.IsTransferCredit():
		return false
	case f.Category != "" && l.Variant.Category != strings.TrimSpace(f.Category):
		return false
	case f.ProductName != "" && l.Variant.ProductName != strings.TrimSpace(f.ProductName):
		return false
	case f.Size != "" && l.Variant.Size != strings.TrimSpace(f.Size):
		return false
	case f.CenterID != nil && l.CenterID != *f.CenterID:
		return false
	case f.From != nil && l.IngestionDate.Before(entity.TruncateDate(*f.From)):
		return false
	case f.To != nil && l.IngestionDate.After(entity.TruncateDate(*f.To)):
		return false
	}
	return textnorm.Contains(l.SearchText(), f.Query)
}

// List historial filtrado, más reciente primero.
func (r *LotRepo) List(ctx context.Context, companyID string, f entity.LotFilter) ([]*entity.Lot, int, error) {
	var all []*entity.Lot
	err := r.s.with(ctx, r.tx, "list lots", func() error {
		for _, l := range r.s.lots {
			if l.CompanyID == companyID && matchesFilter(l, f) {
				all = append(all, cloneLot(l))
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(all, func(i, j int) bool { return entity.FIFOBefore(all[j], all[i]) })
	return paginate(all, f.Limit, f.Offset), len(all), nil
}

// SumAvailable disponible por variante (y centro si se indica).
func (r *LotRepo) SumAvailable(ctx context.Context, companyID string, centerID *string) ([]entity.VariantStock, error) {
	agg := make(map[string]*entity.VariantStock)
	err := r.s.with(ctx, r.tx, "sum available", func() error {
		for _, l := range r.s.lots {
			if l.CompanyID != companyID || !l.Allocatable() {
				continue
			}
			if centerID != nil && l.CenterID != *centerID {
				continue
			}
			k := l.Variant.Key()
			st, ok := agg[k]
			if !ok {
				st = &entity.VariantStock{Variant: l.Variant}
				if centerID != nil {
					st.CenterID = *centerID
				}
				agg[k] = st
			}
			st.Available += l.QuantityAvailable
			st.LotCount++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]entity.VariantStock, 0, len(agg))
	for _, st := range agg {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Variant.Key() < out[j].Variant.Key() })
	return out, nil
}
