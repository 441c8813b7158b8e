package repository

import (
	"context"

	"github.com/jhoicas/epp-ledger/internal/domain/entity"
)

// LotRepository define el puerto de persistencia de lotes. Usado con pool (lecturas) o dentro
// de una transacción (TxRunner) para las mutaciones.
type LotRepository interface {
	Create(ctx context.Context, lot *entity.Lot) error
	CreateBatch(ctx context.Context, lots []*entity.Lot) error
	// GetByID devuelve (nil, nil) si no existe. No filtra por empresa: el caso de uso compara.
	GetByID(ctx context.Context, id string) (*entity.Lot, error)
	// GetByIDForUpdate igual que GetByID pero bloquea la fila (SELECT FOR UPDATE).
	GetByIDForUpdate(ctx context.Context, id string) (*entity.Lot, error)
	Update(ctx context.Context, lot *entity.Lot) error
	// ListAvailableForUpdate lotes no anulados con saldo de la variante en el pool indicado
	// ("" = bodega central), bloqueados y en orden FIFO. Uso exclusivo del asignador.
	ListAvailableForUpdate(ctx context.Context, companyID string, variant entity.ProductVariant, centerID string) ([]*entity.Lot, error)
	List(ctx context.Context, companyID string, filter entity.LotFilter) ([]*entity.Lot, int, error)
	// SumAvailable disponible agregado por variante (y centro). centerID nil = todos los centros agregados.
	SumAvailable(ctx context.Context, companyID string, centerID *string) ([]entity.VariantStock, error)
}
