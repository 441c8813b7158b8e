package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/epp-ledger/internal/domain"
	"github.com/jhoicas/epp-ledger/internal/domain/entity"
	"github.com/jhoicas/epp-ledger/internal/domain/repository"
)

var (
	_ repository.ThresholdRepository = (*ThresholdRepo)(nil)
	_ repository.CenterRepository    = (*CenterRepo)(nil)
	_ repository.WorkerRepository    = (*WorkerRepo)(nil)
)

// ThresholdRepo umbrales en memoria.
type ThresholdRepo struct{ s *Store }

// Upsert crea o reemplaza el umbral.
func (r *ThresholdRepo) Upsert(ctx context.Context, t *entity.CriticalThreshold) error {
	return r.s.with(ctx, nil, "upsert threshold", func() error {
		byVariant, ok := r.s.thresholds[t.CompanyID]
		if !ok {
			byVariant = make(map[string]*entity.CriticalThreshold)
			r.s.thresholds[t.CompanyID] = byVariant
		}
		c := *t
		byVariant[t.Variant.Key()] = &c
		return nil
	})
}

// ListByCompany umbrales de la empresa ordenados por variante.
func (r *ThresholdRepo) ListByCompany(ctx context.Context, companyID string) ([]*entity.CriticalThreshold, error) {
	var out []*entity.CriticalThreshold
	err := r.s.with(ctx, nil, "list thresholds", func() error {
		for _, t := range r.s.thresholds[companyID] {
			c := *t
			out = append(out, &c)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Variant.Key() < out[j].Variant.Key() })
	return out, err
}

// ListCompanies empresas con umbrales.
func (r *ThresholdRepo) ListCompanies(ctx context.Context) ([]string, error) {
	var out []string
	err := r.s.with(ctx, nil, "list threshold companies", func() error {
		for id, m := range r.s.thresholds {
			if len(m) > 0 {
				out = append(out, id)
			}
		}
		return nil
	})
	sort.Strings(out)
	return out, err
}

// CenterRepo centros en memoria.
type CenterRepo struct{ s *Store }

// Create persiste un centro.
func (r *CenterRepo) Create(ctx context.Context, c *entity.Center) error {
	return r.s.with(ctx, nil, "insert center", func() error {
		if _, exists := r.s.centers[c.ID]; exists {
			return domain.ErrDuplicate
		}
		cp := *c
		r.s.centers[c.ID] = &cp
		return nil
	})
}

// GetByID centro o nil.
func (r *CenterRepo) GetByID(ctx context.Context, id string) (*entity.Center, error) {
	var out *entity.Center
	err := r.s.with(ctx, nil, "get center", func() error {
		if c, ok := r.s.centers[id]; ok {
			cp := *c
			out = &cp
		}
		return nil
	})
	return out, err
}

// ListByCompany centros de la empresa por nombre.
func (r *CenterRepo) ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.Center, error) {
	var all []*entity.Center
	err := r.s.with(ctx, nil, "list centers", func() error {
		for _, c := range r.s.centers {
			if c.CompanyID == companyID {
				cp := *c
				all = append(all, &cp)
			}
		}
		return nil
	})
	sort.Slice(all, func(i, j int) bool {
		if all[i].Name != all[j].Name {
			return all[i].Name < all[j].Name
		}
		return all[i].ID < all[j].ID
	})
	return paginate(all, limit, offset), err
}

// WorkerRepo trabajadores en memoria.
type WorkerRepo struct{ s *Store }

// Create persiste un trabajador.
func (r *WorkerRepo) Create(ctx context.Context, w *entity.Worker) error {
	return r.s.with(ctx, nil, "insert worker", func() error {
		if _, exists := r.s.workers[w.ID]; exists {
			return domain.ErrDuplicate
		}
		cp := *w
		r.s.workers[w.ID] = &cp
		return nil
	})
}

// GetByID trabajador o nil.
func (r *WorkerRepo) GetByID(ctx context.Context, id string) (*entity.Worker, error) {
	var out *entity.Worker
	err := r.s.with(ctx, nil, "get worker", func() error {
		if w, ok := r.s.workers[id]; ok {
			cp := *w
			out = &cp
		}
		return nil
	})
	return out, err
}

// ListByCompany trabajadores de la empresa por nombre.
func (r *WorkerRepo) ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.Worker, error) {
	var all []*entity.Worker
	err := r.s.with(ctx, nil, "list workers", func() error {
		for _, w := range r.s.workers {
			if w.CompanyID == companyID {
				cp := *w
				all = append(all, &cp)
			}
		}
		return nil
	})
	sort.Slice(all, func(i, j int) bool {
		if all[i].Name != all[j].Name {
			return all[i].Name < all[j].Name
		}
		return all[i].ID < all[j].ID
	})
	return paginate(all, limit, offset), err
}
