package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/epp-ledger/pkg/textnorm"
)

// DateLayout formato de fecha de ingreso (sin hora).
const DateLayout = "2006-01-02"

// Lot representa un ingreso de stock: un lote fechado y costeado de una variante.
// Invariante: 0 <= QuantityAvailable <= QuantityInitial. Nunca se borra; la anulación es lógica.
type Lot struct {
	ID                string
	CompanyID         string
	Variant           ProductVariant
	CenterID          string // "" = bodega central
	QuantityInitial   int64
	QuantityAvailable int64
	UnitCost          decimal.Decimal // con impuestos incluidos
	IngestionDate     time.Time       // fecha (UTC, sin hora)
	DocumentRef       string          // factura/guía del proveedor
	OriginLotID       string          // lote de origen si se acreditó por traslado
	Voided            bool
	VoidReason        string
	VoidedBy          string
	VoidedAt          *time.Time
	CreatedBy         string
	CreatedAt         time.Time // desempate FIFO
	UpdatedAt         time.Time
}

// Touched indica que el lote tuvo al menos una unidad consumida.
func (l *Lot) Touched() bool {
	return l.QuantityAvailable < l.QuantityInitial
}

// IsTransferCredit indica que el lote se creó al acreditar un traslado (no es un ingreso).
func (l *Lot) IsTransferCredit() bool {
	return l.OriginLotID != ""
}

// IsEditable un lote admite edición o anulación solo si no está anulado ni tocado.
func (l *Lot) IsEditable() bool {
	return !l.Voided && l.QuantityAvailable == l.QuantityInitial
}

// Allocatable indica si el lote puede participar en una asignación FIFO.
func (l *Lot) Allocatable() bool {
	return !l.Voided && l.QuantityAvailable > 0
}

// SearchText texto plegado (sin tildes, minúsculas) sobre variante, fecha y documento.
func (l *Lot) SearchText() string {
	return textnorm.Join(
		l.Variant.Category, l.Variant.ProductName, l.Variant.Size,
		l.IngestionDate.Format(DateLayout), l.DocumentRef,
	)
}

// FIFOBefore orden lógico de consumo: fecha de ingreso ascendente, luego CreatedAt, luego ID
// para que el orden sea total y determinista.
func FIFOBefore(a, b *Lot) bool {
	if !a.IngestionDate.Equal(b.IngestionDate) {
		return a.IngestionDate.Before(b.IngestionDate)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// TruncateDate reduce un instante a su fecha UTC.
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// LotFilter filtros del historial de ingresos. Los créditos de traslado quedan fuera salvo
// IncludeTransfers: no son ingresos, solo reubican unidades de un lote de origen.
type LotFilter struct {
	Query            string // texto libre sobre variante, fecha y documento
	Category         string
	ProductName      string
	Size             string
	CenterID         *string // nil = todos; "" = bodega central
	From             *time.Time
	To               *time.Time
	IncludeVoided    bool
	IncludeTransfers bool
	Limit            int
	Offset           int
}
