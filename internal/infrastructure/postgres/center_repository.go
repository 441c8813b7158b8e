package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/epp-ledger/internal/domain"
	"github.com/jhoicas/epp-ledger/internal/domain/entity"
	"github.com/jhoicas/epp-ledger/internal/domain/repository"
)

var (
	_ repository.CenterRepository = (*CenterRepo)(nil)
	_ repository.WorkerRepository = (*WorkerRepo)(nil)
)

// CenterRepo implementación del puerto CenterRepository sobre PostgreSQL.
type CenterRepo struct {
	q Querier
}

// NewCenterRepository construye el adaptador de persistencia para centros.
func NewCenterRepository(q Querier) *CenterRepo {
	return &CenterRepo{q: q}
}

// Create persiste un nuevo centro.
func (r *CenterRepo) Create(ctx context.Context, center *entity.Center) error {
	query := `
		INSERT INTO centers (id, company_id, name, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q.Exec(ctx, query,
		center.ID, center.CompanyID, center.Name, center.Address,
		center.CreatedAt, center.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert center: %w", err)
	}
	return nil
}

// GetByID obtiene un centro por ID.
func (r *CenterRepo) GetByID(ctx context.Context, id string) (*entity.Center, error) {
	query := `
		SELECT id, company_id, name, address, created_at, updated_at
		FROM centers WHERE id::text = $1`
	var c entity.Center
	err := r.q.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.CompanyID, &c.Name, &c.Address, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get center: %w", err)
	}
	return &c, nil
}

// ListByCompany lista centros por empresa con paginación.
func (r *CenterRepo) ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.Center, error) {
	query := `
		SELECT id, company_id, name, address, created_at, updated_at
		FROM centers WHERE company_id = $1 ORDER BY name, id LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, companyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list centers: %w", err)
	}
	defer rows.Close()
	var list []*entity.Center
	for rows.Next() {
		var c entity.Center
		if err := rows.Scan(&c.ID, &c.CompanyID, &c.Name, &c.Address, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan center: %w", err)
		}
		list = append(list, &c)
	}
	return list, rows.Err()
}

// WorkerRepo implementación del puerto WorkerRepository sobre PostgreSQL.
type WorkerRepo struct {
	q Querier
}

// NewWorkerRepository construye el adaptador de persistencia para trabajadores.
func NewWorkerRepository(q Querier) *WorkerRepo {
	return &WorkerRepo{q: q}
}

// Create persiste un trabajador.
func (r *WorkerRepo) Create(ctx context.Context, w *entity.Worker) error {
	query := `
		INSERT INTO workers (id, company_id, center_id, name, document_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q.Exec(ctx, query, w.ID, w.CompanyID, nullable(w.CenterID), w.Name, w.DocumentID, w.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert worker: %w", err)
	}
	return nil
}

// GetByID obtiene un trabajador por ID.
func (r *WorkerRepo) GetByID(ctx context.Context, id string) (*entity.Worker, error) {
	query := `
		SELECT id, company_id, center_id, name, document_id, created_at
		FROM workers WHERE id::text = $1`
	var (
		w        entity.Worker
		centerID *string
	)
	err := r.q.QueryRow(ctx, query, id).Scan(&w.ID, &w.CompanyID, &centerID, &w.Name, &w.DocumentID, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get worker: %w", err)
	}
	w.CenterID = deref(centerID)
	return &w, nil
}

// ListByCompany lista trabajadores por empresa con paginación.
func (r *WorkerRepo) ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.Worker, error) {
	query := `
		SELECT id, company_id, center_id, name, document_id, created_at
		FROM workers WHERE company_id = $1 ORDER BY name, id LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, companyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	defer rows.Close()
	var list []*entity.Worker
	for rows.Next() {
		var (
			w        entity.Worker
			centerID *string
		)
		if err := rows.Scan(&w.ID, &w.CompanyID, &centerID, &w.Name, &w.DocumentID, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan worker: %w", err)
		}
		w.CenterID = deref(centerID)
		list = append(list, &w)
	}
	return list, rows.Err()
}
