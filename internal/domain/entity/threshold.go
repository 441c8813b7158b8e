package entity

import "time"

// CriticalThreshold cantidad mínima por variante. Sin registro = sin umbral configurado.
type CriticalThreshold struct {
	CompanyID   string
	Variant     ProductVariant
	MinQuantity int64
	UpdatedBy   string
	UpdatedAt   time.Time
}

// VariantStock disponible agregado de una variante (lotes no anulados con saldo).
type VariantStock struct {
	Variant   ProductVariant
	CenterID  string
	Available int64
	LotCount  int
}
