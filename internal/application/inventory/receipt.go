package inventory

import (
	"context"

	"github.com/jhoicas/epp-ledger/internal/domain/entity"
	"github.com/jhoicas/epp-ledger/internal/domain/repository"
)

// ReceiptData entrega confirmada más los nombres que se imprimen en el comprobante.
type ReceiptData struct {
	Delivery         *entity.Delivery
	WorkerName       string
	WorkerDocument   string
	CenterName       string
	SourceCenterName string
	FromCenterName   string
	ToCenterName     string
}

// ReceiptRenderer genera el documento del comprobante (PDF).
type ReceiptRenderer interface {
	RenderDeliveryReceipt(ctx context.Context, data ReceiptData) ([]byte, error)
}

// ReceiptUseCase arma el comprobante de una entrega ya confirmada. Es un derivado: no modifica el ledger.
type ReceiptUseCase struct {
	coordinator *DeliveryCoordinator
	workerRepo  repository.WorkerRepository
	centerRepo  repository.CenterRepository
	renderer    ReceiptRenderer
}

// NewReceiptUseCase construye el caso de uso.
func NewReceiptUseCase(
	coordinator *DeliveryCoordinator,
	workerRepo repository.WorkerRepository,
	centerRepo repository.CenterRepository,
	renderer ReceiptRenderer,
) *ReceiptUseCase {
	return &ReceiptUseCase{
		coordinator: coordinator,
		workerRepo:  workerRepo,
		centerRepo:  centerRepo,
		renderer:    renderer,
	}
}

// Render devuelve los bytes del comprobante de la entrega de la empresa.
func (uc *ReceiptUseCase) Render(ctx context.Context, companyID, deliveryID string) ([]byte, error) {
	d, err := uc.coordinator.Get(ctx, companyID, deliveryID)
	if err != nil {
		return nil, err
	}
	data := ReceiptData{Delivery: d}
	if d.Destination.WorkerID != "" {
		w, err := uc.workerRepo.GetByID(ctx, d.Destination.WorkerID)
		if err != nil {
			return nil, err
		}
		if w != nil {
			data.WorkerName = w.Name
			data.WorkerDocument = w.DocumentID
		}
	}
	names := []struct {
		id  string
		dst *string
	}{
		{d.Destination.CenterID, &data.CenterName},
		{d.Destination.SourceCenterID, &data.SourceCenterName},
		{d.Destination.FromCenterID, &data.FromCenterName},
		{d.Destination.ToCenterID, &data.ToCenterName},
	}
	for _, n := range names {
		if n.id == "" {
			continue
		}
		c, err := uc.centerRepo.GetByID(ctx, n.id)
		if err != nil {
			return nil, err
		}
		if c != nil {
			*n.dst = c.Name
		}
	}
	return uc.renderer.RenderDeliveryReceipt(ctx, data)
}
