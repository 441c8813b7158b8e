package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhoicas/epp-ledger/internal/domain/entity"
	"github.com/jhoicas/epp-ledger/internal/domain/repository"
)

var _ repository.DeliveryRepository = (*DeliveryRepo)(nil)

// DeliveryRepo entregas en memoria.
type DeliveryRepo struct {
	s  *Store
	tx *txState
}

// Reserve registra la cabecera si la clave está libre.
func (r *DeliveryRepo) Reserve(ctx context.Context, d *entity.Delivery) (bool, error) {
	reserved := false
	err := r.s.with(ctx, r.tx, "reserve delivery", func() error {
		idx := idempotencyIndex(d.CompanyID, d.IdempotencyKey)
		if _, taken := r.s.byKey[idx]; taken {
			return nil
		}
		r.s.byKey[idx] = d.ID
		r.s.deliveries[d.ID] = cloneDelivery(d)
		if r.tx != nil {
			r.tx.reserved = append(r.tx.reserved, d.ID)
		}
		reserved = true
		return nil
	})
	return reserved, err
}

// Complete guarda el agregado completo.
func (r *DeliveryRepo) Complete(ctx context.Context, d *entity.Delivery) error {
	return r.s.with(ctx, r.tx, "complete delivery", func() error {
		if _, ok := r.s.deliveries[d.ID]; !ok {
			return fmt.Errorf("complete delivery %s: no reservada", d.ID)
		}
		r.s.deliveries[d.ID] = cloneDelivery(d)
		return nil
	})
}

func (r *DeliveryRepo) committed(id string) *entity.Delivery {
	d, ok := r.s.deliveries[id]
	if !ok || d.Status != entity.DeliveryCommitted {
		return nil
	}
	return cloneDelivery(d)
}

// GetByID entrega confirmada o nil.
func (r *DeliveryRepo) GetByID(ctx context.Context, id string) (*entity.Delivery, error) {
	var out *entity.Delivery
	err := r.s.with(ctx, r.tx, "get delivery", func() error {
		out = r.committed(id)
		return nil
	})
	return out, err
}

// GetByIdempotencyKey entrega confirmada de la clave o nil.
func (r *DeliveryRepo) GetByIdempotencyKey(ctx context.Context, companyID, key string) (*entity.Delivery, error) {
	var out *entity.Delivery
	err := r.s.with(ctx, r.tx, "get delivery", func() error {
		if id, ok := r.s.byKey[idempotencyIndex(companyID, key)]; ok {
			out = r.committed(id)
		}
		return nil
	})
	return out, err
}

// ListByCompany entregas confirmadas, más recientes primero.
func (r *DeliveryRepo) ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.Delivery, error) {
	var all []*entity.Delivery
	err := r.s.with(ctx, r.tx, "list deliveries", func() error {
		for id, d := range r.s.deliveries {
			if d.CompanyID == companyID {
				if c := r.committed(id); c != nil {
					all = append(all, c)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	return paginate(all, limit, offset), nil
}

// DeliveredByLot suma asignada por lote en entregas confirmadas.
func (r *DeliveryRepo) DeliveredByLot(ctx context.Context, companyID string) (map[string]int64, error) {
	out := make(map[string]int64)
	err := r.s.with(ctx, r.tx, "delivered by lot", func() error {
		for _, d := range r.s.deliveries {
			if d.CompanyID != companyID || d.Status != entity.DeliveryCommitted {
				continue
			}
			for _, l := range d.Lines {
				for _, a := range l.Allocations {
					out[a.LotID] += a.Quantity
				}
			}
		}
		return nil
	})
	return out, err
}
