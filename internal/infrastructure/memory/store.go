// Package memory implementa los puertos de persistencia en proceso. Las transacciones se
// serializan con un único cerrojo y se revierten con un registro de deshacer.
package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/epp-ledger/internal/application/inventory"
	"github.com/jhoicas/epp-ledger/internal/domain"
	"github.com/jhoicas/epp-ledger/internal/domain/entity"
	"github.com/jhoicas/epp-ledger/internal/domain/repository"
)

var _ inventory.TxRunner = (*Store)(nil)

// Store estado completo del ledger en memoria.
type Store struct {
	sem chan struct{} // cerrojo global consciente de ctx

	lots       map[string]*entity.Lot
	deliveries map[string]*entity.Delivery
	byKey      map[string]string // company|key -> delivery id
	thresholds map[string]map[string]*entity.CriticalThreshold
	centers    map[string]*entity.Center
	workers    map[string]*entity.Worker
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{
		sem:        make(chan struct{}, 1),
		lots:       make(map[string]*entity.Lot),
		deliveries: make(map[string]*entity.Delivery),
		byKey:      make(map[string]string),
		thresholds: make(map[string]map[string]*entity.CriticalThreshold),
		centers:    make(map[string]*entity.Center),
		workers:    make(map[string]*entity.Worker),
	}
}

// acquire toma el cerrojo o falla con conflicto si ctx vence antes (equivalente a lock_timeout).
func (s *Store) acquire(ctx context.Context, op string) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return &domain.ConcurrencyConflictError{Op: op, Err: ctx.Err()}
	}
}

func (s *Store) release() { <-s.sem }

// txState registro de deshacer de una transacción.
type txState struct {
	lotsBefore map[string]*entity.Lot // nil = creado en esta tx
	reserved   []string               // ids de entregas reservadas
}

func (t *txState) touchLot(s *Store, id string) {
	if _, seen := t.lotsBefore[id]; seen {
		return
	}
	if cur, ok := s.lots[id]; ok {
		t.lotsBefore[id] = cloneLot(cur)
	} else {
		t.lotsBefore[id] = nil
	}
}

func (s *Store) rollback(t *txState) {
	for id, before := range t.lotsBefore {
		if before == nil {
			delete(s.lots, id)
		} else {
			s.lots[id] = before
		}
	}
	for _, id := range t.reserved {
		if d, ok := s.deliveries[id]; ok {
			delete(s.byKey, idempotencyIndex(d.CompanyID, d.IdempotencyKey))
			delete(s.deliveries, id)
		}
	}
}

// Run ejecuta fn con repos atados a la transacción. Error de fn o ctx vencido = rollback completo.
func (s *Store) Run(ctx context.Context, fn func(
	lotRepo repository.LotRepository,
	deliveryRepo repository.DeliveryRepository,
) error) error {
	if err := s.acquire(ctx, "begin"); err != nil {
		return err
	}
	defer s.release()

	tx := &txState{lotsBefore: make(map[string]*entity.Lot)}
	err := fn(&LotRepo{s: s, tx: tx}, &DeliveryRepo{s: s, tx: tx})
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		s.rollback(tx)
		return err
	}
	return nil
}

// LotRepository repos de lectura/escritura fuera de transacción.
func (s *Store) LotRepository() *LotRepo { return &LotRepo{s: s} }

// DeliveryRepository repo de entregas fuera de transacción.
func (s *Store) DeliveryRepository() *DeliveryRepo { return &DeliveryRepo{s: s} }

// ThresholdRepository repo de umbrales.
func (s *Store) ThresholdRepository() *ThresholdRepo { return &ThresholdRepo{s: s} }

// CenterRepository repo de centros.
func (s *Store) CenterRepository() *CenterRepo { return &CenterRepo{s: s} }

// WorkerRepository repo de trabajadores.
func (s *Store) WorkerRepository() *WorkerRepo { return &WorkerRepo{s: s} }

// with ejecuta fn bajo el cerrojo salvo que ya se esté dentro de una transacción.
func (s *Store) with(ctx context.Context, tx *txState, op string, fn func() error) error {
	if tx != nil {
		return fn()
	}
	if err := s.acquire(ctx, op); err != nil {
		return err
	}
	defer s.release()
	return fn()
}

func idempotencyIndex(companyID, key string) string {
	return companyID + "|" + key
}

func cloneLot(l *entity.Lot) *entity.Lot {
	c := *l
	if l.VoidedAt != nil {
		t := *l.VoidedAt
		c.VoidedAt = &t
	}
	return &c
}

func cloneDelivery(d *entity.Delivery) *entity.Delivery {
	c := *d
	c.Lines = make([]entity.DeliveryLine, len(d.Lines))
	for i, l := range d.Lines {
		c.Lines[i] = l
		c.Lines[i].Allocations = append([]entity.Allocation(nil), l.Allocations...)
	}
	return &c
}

func paginate[T any](list []T, limit, offset int) []T {
	if offset >= len(list) {
		return nil
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}

func sortFIFO(lots []*entity.Lot) {
	sort.Slice(lots, func(i, j int) bool { return entity.FIFOBefore(lots[i], lots[j]) })
}

