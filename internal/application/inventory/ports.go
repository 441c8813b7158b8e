package inventory

import (
	"context"

	"github.com/jhoicas/epp-ledger/internal/domain/entity"
	"github.com/jhoicas/epp-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Si fn retorna error se hace Rollback y ningún cambio sobrevive; si no, Commit.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		lotRepo repository.LotRepository,
		deliveryRepo repository.DeliveryRepository,
	) error) error
}

// DeliveryNotifier efecto secundario posterior al commit (webhook, tableros, correo).
// Es best-effort: su error se registra y nunca revierte ni duplica la entrega.
type DeliveryNotifier interface {
	DeliveryCommitted(ctx context.Context, d *entity.Delivery) error
}

// AlertPublisher publica el resultado de una evaluación de stock crítico.
type AlertPublisher interface {
	CriticalStock(ctx context.Context, companyID string, report *CriticalReport) error
}
