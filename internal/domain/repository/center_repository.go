package repository

import (
	"context"

	"github.com/jhoicas/epp-ledger/internal/domain/entity"
)

// CenterRepository define el puerto de persistencia para centros (DIP).
type CenterRepository interface {
	Create(ctx context.Context, center *entity.Center) error
	GetByID(ctx context.Context, id string) (*entity.Center, error)
	ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.Center, error)
}

// WorkerRepository define el puerto de persistencia para trabajadores.
type WorkerRepository interface {
	Create(ctx context.Context, worker *entity.Worker) error
	GetByID(ctx context.Context, id string) (*entity.Worker, error)
	ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.Worker, error)
}
