package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/epp-ledger/internal/domain/entity"
)

// VariantDTO (categoría, producto, talla). Size vacío = sin talla.
type VariantDTO struct {
	Category    string `json:"category"`
	ProductName string `json:"productName"`
	Size        string `json:"size,omitempty"`
}

// ToEntity convierte a la variante de dominio.
func (v VariantDTO) ToEntity() entity.ProductVariant {
	return entity.ProductVariant{Category: v.Category, ProductName: v.ProductName, Size: v.Size}
}

func variantDTO(v entity.ProductVariant) VariantDTO {
	return VariantDTO{Category: v.Category, ProductName: v.ProductName, Size: v.Size}
}

// IntakeRequest body de POST /stock/intake y de cada fila del ingreso masivo.
// IngestionDate en formato YYYY-MM-DD; vacío = hoy.
type IntakeRequest struct {
	Variant       VariantDTO      `json:"variant"`
	CenterID      string          `json:"centerId,omitempty"`
	Quantity      int64           `json:"quantity"`
	UnitCost      decimal.Decimal `json:"unitCost"`
	IngestionDate string          `json:"ingestionDate,omitempty"`
	DocumentRef   string          `json:"documentRef,omitempty"`
}

// BulkIntakeRequest body de POST /stock/intake/bulk.
type BulkIntakeRequest struct {
	Items []IntakeRequest `json:"items"`
}

// BulkIntakeResponse resultado del ingreso masivo (todo o nada).
type BulkIntakeResponse struct {
	InsertedCount int           `json:"insertedCount"`
	Rows          []LotResponse `json:"rows"`
}

// EditLotRequest body de PATCH /stock/intake/{lotId}. Campos ausentes no cambian.
type EditLotRequest struct {
	IngestionDate   *string          `json:"ingestionDate,omitempty"`
	UnitCost        *decimal.Decimal `json:"unitCost,omitempty"`
	QuantityInitial *int64           `json:"quantityInitial,omitempty"`
}

// VoidLotRequest body de POST /stock/intake/{lotId}/void.
type VoidLotRequest struct {
	Reason string `json:"reason"`
}

// LotResponse salida de un lote.
type LotResponse struct {
	ID                string          `json:"id"`
	Variant           VariantDTO      `json:"variant"`
	CenterID          string          `json:"centerId,omitempty"`
	QuantityInitial   int64           `json:"quantityInitial"`
	QuantityAvailable int64           `json:"quantityAvailable"`
	UnitCost          decimal.Decimal `json:"unitCost"`
	IngestionDate     string          `json:"ingestionDate"`
	DocumentRef       string          `json:"documentRef,omitempty"`
	OriginLotID       string          `json:"originLotId,omitempty"`
	Editable          bool            `json:"editable"`
	Voided            bool            `json:"voided"`
	VoidReason        string          `json:"voidReason,omitempty"`
	VoidedBy          string          `json:"voidedBy,omitempty"`
	VoidedAt          *time.Time      `json:"voidedAt,omitempty"`
	CreatedBy         string          `json:"createdBy"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// LotListResponse historial paginado de ingresos.
type LotListResponse struct {
	Items []LotResponse `json:"items"`
	Page  PageResponse  `json:"page"`
}

// NewLotResponse mapea un lote. editable lo decide el caller (AuditGuard).
func NewLotResponse(l *entity.Lot, editable bool) LotResponse {
	return LotResponse{
		ID:                l.ID,
		Variant:           variantDTO(l.Variant),
		CenterID:          l.CenterID,
		QuantityInitial:   l.QuantityInitial,
		QuantityAvailable: l.QuantityAvailable,
		UnitCost:          l.UnitCost,
		IngestionDate:     l.IngestionDate.Format(entity.DateLayout),
		DocumentRef:       l.DocumentRef,
		OriginLotID:       l.OriginLotID,
		Editable:          editable,
		Voided:            l.Voided,
		VoidReason:        l.VoidReason,
		VoidedBy:          l.VoidedBy,
		VoidedAt:          l.VoidedAt,
		CreatedBy:         l.CreatedBy,
		CreatedAt:         l.CreatedAt,
		UpdatedAt:         l.UpdatedAt,
	}
}

// DestinationDTO destino de una entrega. Los centros vacíos son la bodega central.
type DestinationDTO struct {
	WorkerID       string `json:"workerId,omitempty"`
	CenterID       string `json:"centerId,omitempty"`
	SourceCenterID string `json:"sourceCenterId,omitempty"`
	FromCenterID   string `json:"fromCenterId,omitempty"`
	ToCenterID     string `json:"toCenterId,omitempty"`
}

// DeliveryLineRequest línea solicitada.
type DeliveryLineRequest struct {
	Category    string `json:"category"`
	ProductName string `json:"productName"`
	Size        string `json:"size,omitempty"`
	Quantity    int64  `json:"quantity"`
}

// CreateDeliveryRequest body de POST /deliveries (la clave va en el encabezado Idempotency-Key).
type CreateDeliveryRequest struct {
	Destination DestinationDTO        `json:"destination"`
	Reference   string                `json:"reference,omitempty"`
	Lines       []DeliveryLineRequest `json:"lines"`
}

// TransferRequest body de POST /stock/transfer. Centro vacío = bodega central.
type TransferRequest struct {
	FromCenter string     `json:"fromCenter,omitempty"`
	ToCenter   string     `json:"toCenter,omitempty"`
	Variant    VariantDTO `json:"variant"`
	Quantity   int64      `json:"quantity"`
	Reference  string     `json:"reference,omitempty"`
}

// AllocationResponse porción de una línea tomada de un lote.
type AllocationResponse struct {
	LotID       string          `json:"lotId"`
	Quantity    int64           `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unitCost"`
	Cost        decimal.Decimal `json:"cost"`
	TargetLotID string          `json:"targetLotId,omitempty"`
}

// DeliveryLineResponse línea confirmada con su asignación FIFO.
type DeliveryLineResponse struct {
	Variant          VariantDTO           `json:"variant"`
	Quantity         int64                `json:"quantity"`
	Allocations      []AllocationResponse `json:"allocations"`
	TotalCost        decimal.Decimal      `json:"totalCost"`
	WeightedUnitCost decimal.Decimal      `json:"weightedUnitCost"`
}

// DeliveryResponse entrega o traslado confirmado. Es la misma respuesta en la primera llamada y en
// cada reintento con la misma clave.
type DeliveryResponse struct {
	ID             string                 `json:"id"`
	IdempotencyKey string                 `json:"idempotencyKey"`
	Kind           string                 `json:"kind"`
	Status         string                 `json:"status"`
	ActorID        string                 `json:"actorId"`
	Destination    DestinationDTO         `json:"destination"`
	Reference      string                 `json:"reference,omitempty"`
	Lines          []DeliveryLineResponse `json:"lines"`
	TotalUnits     int64                  `json:"totalUnits"`
	TotalCost      decimal.Decimal        `json:"totalCost"`
	CreatedAt      time.Time              `json:"createdAt"`
}

// DeliveryListResponse lista paginada de entregas.
type DeliveryListResponse struct {
	Items []DeliveryResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// NewDeliveryResponse mapea el agregado.
func NewDeliveryResponse(d *entity.Delivery) DeliveryResponse {
	lines := make([]DeliveryLineResponse, 0, len(d.Lines))
	for _, l := range d.Lines {
		allocs := make([]AllocationResponse, 0, len(l.Allocations))
		for _, a := range l.Allocations {
			allocs = append(allocs, AllocationResponse{
				LotID:       a.LotID,
				Quantity:    a.Quantity,
				UnitCost:    a.UnitCost,
				Cost:        a.Cost(),
				TargetLotID: a.TargetLotID,
			})
		}
		lines = append(lines, DeliveryLineResponse{
			Variant:          variantDTO(l.Variant),
			Quantity:         l.Quantity,
			Allocations:      allocs,
			TotalCost:        l.TotalCost,
			WeightedUnitCost: l.WeightedUnitCost(),
		})
	}
	return DeliveryResponse{
		ID:             d.ID,
		IdempotencyKey: d.IdempotencyKey,
		Kind:           d.Kind,
		Status:         string(d.Status),
		ActorID:        d.ActorID,
		Destination: DestinationDTO{
			WorkerID:       d.Destination.WorkerID,
			CenterID:       d.Destination.CenterID,
			SourceCenterID: d.Destination.SourceCenterID,
			FromCenterID:   d.Destination.FromCenterID,
			ToCenterID:     d.Destination.ToCenterID,
		},
		Reference:  d.Reference,
		Lines:      lines,
		TotalUnits: d.TotalUnits,
		TotalCost:  d.TotalCost,
		CreatedAt:  d.CreatedAt,
	}
}

// StockItemResponse disponible de una variante.
type StockItemResponse struct {
	Key       string     `json:"key"`
	Variant   VariantDTO `json:"variant"`
	CenterID  string     `json:"centerId,omitempty"`
	Available int64      `json:"available"`
	LotCount  int        `json:"lotCount"`
}

// StockResponse respuesta de GET /stock.
type StockResponse struct {
	Items []StockItemResponse `json:"items"`
}

// NewStockResponse mapea el disponible agregado.
func NewStockResponse(items []entity.VariantStock) StockResponse {
	out := StockResponse{Items: make([]StockItemResponse, 0, len(items))}
	for _, s := range items {
		out.Items = append(out.Items, StockItemResponse{
			Key:       s.Variant.Key(),
			Variant:   variantDTO(s.Variant),
			CenterID:  s.CenterID,
			Available: s.Available,
			LotCount:  s.LotCount,
		})
	}
	return out
}

// SetThresholdRequest body de PATCH /stock/{variantKey}/critical-threshold.
type SetThresholdRequest struct {
	MinQuantity *int64 `json:"minQuantity"`
}

// ThresholdStatusResponse estado de una variante con umbral.
type ThresholdStatusResponse struct {
	Key         string     `json:"key"`
	Variant     VariantDTO `json:"variant"`
	MinQuantity int64      `json:"minQuantity"`
	Available   int64      `json:"available"`
	Critical    bool       `json:"critical"`
}

// CriticalReportResponse respuesta de GET /stock/critical.
type CriticalReportResponse struct {
	CriticalCount int                       `json:"criticalCount"`
	Items         []ThresholdStatusResponse `json:"items"`
}

// NewThresholdStatusResponse mapea un ítem del reporte.
func NewThresholdStatusResponse(v entity.ProductVariant, minQuantity, available int64, critical bool) ThresholdStatusResponse {
	return ThresholdStatusResponse{
		Key:         v.Key(),
		Variant:     variantDTO(v),
		MinQuantity: minQuantity,
		Available:   available,
		Critical:    critical,
	}
}

// LotDiscrepancyResponse lote cuyo consumo no cuadra con sus asignaciones.
type LotDiscrepancyResponse struct {
	LotID     string     `json:"lotId"`
	Variant   VariantDTO `json:"variant"`
	Consumed  int64      `json:"consumed"`
	Allocated int64      `json:"allocated"`
}

// ReconcileResponse respuesta de GET /stock/reconcile.
type ReconcileResponse struct {
	Balanced      bool                     `json:"balanced"`
	LotsChecked   int                      `json:"lotsChecked"`
	Discrepancies []LotDiscrepancyResponse `json:"discrepancies"`
}

// NewLotDiscrepancyResponse mapea una diferencia de conciliación.
func NewLotDiscrepancyResponse(lotID string, v entity.ProductVariant, consumed, allocated int64) LotDiscrepancyResponse {
	return LotDiscrepancyResponse{LotID: lotID, Variant: variantDTO(v), Consumed: consumed, Allocated: allocated}
}
