package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento de salida.
const (
	DeliveryKindDelivery = "DELIVERY" // entrega a trabajador
	DeliveryKindTransfer = "TRANSFER" // traslado entre centros
)

// DeliveryStatus estado del ciclo de vida de una entrega.
// Requested -> Allocating -> Committed, o Requested/Allocating -> Failed. No existe estado parcial.
type DeliveryStatus string

const (
	DeliveryRequested  DeliveryStatus = "REQUESTED"
	DeliveryAllocating DeliveryStatus = "ALLOCATING"
	DeliveryCommitted  DeliveryStatus = "COMMITTED"
	DeliveryFailed     DeliveryStatus = "FAILED"
)

// CanTransition valida las transiciones permitidas.
func (s DeliveryStatus) CanTransition(to DeliveryStatus) bool {
	switch s {
	case DeliveryRequested:
		return to == DeliveryAllocating || to == DeliveryFailed
	case DeliveryAllocating:
		return to == DeliveryCommitted || to == DeliveryFailed
	}
	return false
}

// Terminal indica si el estado ya no cambia.
func (s DeliveryStatus) Terminal() bool {
	return s == DeliveryCommitted || s == DeliveryFailed
}

// Destination destino de la salida: trabajador+centro para entregas, origen/destino para traslados.
// Los centros vacíos significan bodega central.
type Destination struct {
	WorkerID       string `json:"workerId,omitempty"`
	CenterID       string `json:"centerId,omitempty"`
	SourceCenterID string `json:"sourceCenterId,omitempty"` // pool del que se descuenta una entrega
	FromCenterID   string `json:"fromCenterId,omitempty"`
	ToCenterID     string `json:"toCenterId,omitempty"`
}

// Allocation porción de una línea tomada de un lote, al costo vigente del lote.
type Allocation struct {
	LotID       string
	Quantity    int64
	UnitCost    decimal.Decimal
	TargetLotID string // lote acreditado en destino (solo traslados)
}

// Cost costo de la porción.
func (a Allocation) Cost() decimal.Decimal {
	return a.UnitCost.Mul(decimal.NewFromInt(a.Quantity))
}

// DeliveryLine una variante solicitada y su asignación FIFO.
type DeliveryLine struct {
	Variant     ProductVariant
	Quantity    int64
	Allocations []Allocation
	TotalCost   decimal.Decimal // Σ cantidad x costo
}

// Allocated suma de cantidades asignadas; debe igualar Quantity en una entrega confirmada.
func (l DeliveryLine) Allocated() int64 {
	var n int64
	for _, a := range l.Allocations {
		n += a.Quantity
	}
	return n
}

// WeightedUnitCost costo unitario ponderado de la línea.
func (l DeliveryLine) WeightedUnitCost() decimal.Decimal {
	if l.Quantity <= 0 {
		return decimal.Zero
	}
	return l.TotalCost.Div(decimal.NewFromInt(l.Quantity)).Round(2)
}

// Delivery agregado inmutable de una entrega o traslado confirmado.
type Delivery struct {
	ID             string
	CompanyID      string
	IdempotencyKey string
	Kind           string
	Status         DeliveryStatus
	ActorID        string
	Destination    Destination
	Reference      string // firma / referencia del comprobante
	Fingerprint    string // huella de la petición original
	Lines          []DeliveryLine
	TotalUnits     int64
	TotalCost      decimal.Decimal
	CreatedAt      time.Time
}

// Advance mueve la entrega al estado to si la transición es válida.
func (d *Delivery) Advance(to DeliveryStatus) error {
	if d.Status.Terminal() {
		return fmt.Errorf("entrega %s en estado terminal %s", d.ID, d.Status)
	}
	if !d.Status.CanTransition(to) {
		return fmt.Errorf("entrega %s: transición %s -> %s no permitida", d.ID, d.Status, to)
	}
	d.Status = to
	return nil
}

// Recalculate recomputa totales a partir de las líneas.
func (d *Delivery) Recalculate() {
	d.TotalUnits = 0
	d.TotalCost = decimal.Zero
	for i := range d.Lines {
		line := &d.Lines[i]
		line.TotalCost = decimal.Zero
		for _, a := range line.Allocations {
			line.TotalCost = line.TotalCost.Add(a.Cost())
		}
		d.TotalUnits += line.Quantity
		d.TotalCost = d.TotalCost.Add(line.TotalCost)
	}
}

// Balanced verifica la conservación: cada línea asignada por completo.
func (d *Delivery) Balanced() bool {
	for _, l := range d.Lines {
		if l.Allocated() != l.Quantity {
			return false
		}
	}
	return true
}
