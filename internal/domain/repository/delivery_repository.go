package repository

import (
	"context"

	"github.com/jhoicas/epp-ledger/internal/domain/entity"
)

// DeliveryRepository persistencia del agregado Delivery (cabecera + líneas + asignaciones).
type DeliveryRepository interface {
	// Reserve inserta la cabecera si (empresa, idempotency key) está libre. Devuelve false si la
	// clave ya existe. Debe ejecutarse dentro de la transacción de la entrega.
	Reserve(ctx context.Context, d *entity.Delivery) (bool, error)
	// Complete escribe líneas, asignaciones y totales y marca la entrega como confirmada.
	Complete(ctx context.Context, d *entity.Delivery) error
	GetByID(ctx context.Context, id string) (*entity.Delivery, error)
	GetByIdempotencyKey(ctx context.Context, companyID, key string) (*entity.Delivery, error)
	ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.Delivery, error)
	// DeliveredByLot suma las cantidades asignadas contra cada lote de la empresa (auditoría de conservación).
	DeliveredByLot(ctx context.Context, companyID string) (map[string]int64, error)
}
