package entity

import (
	"strings"
)

// variantKeySep separa los campos de la clave de variante; no puede aparecer en los nombres.
const variantKeySep = "|"

// ProductVariant clave de agrupación de lotes, umbrales y líneas de entrega:
// (categoría, producto, talla). Size vacío equivale a "sin talla". No es una fila almacenada.
type ProductVariant struct {
	Category    string `json:"category"`
	ProductName string `json:"productName"`
	Size        string `json:"size,omitempty"`
}

// Normalize recorta espacios de los tres campos.
func (v ProductVariant) Normalize() ProductVariant {
	return ProductVariant{
		Category:    strings.TrimSpace(v.Category),
		ProductName: strings.TrimSpace(v.ProductName),
		Size:        strings.TrimSpace(v.Size),
	}
}

// Validate devuelve el nombre del campo inválido, o "" si la variante es válida.
func (v ProductVariant) Validate() (field, reason string) {
	n := v.Normalize()
	switch {
	case n.Category == "":
		return "category", "categoría requerida"
	case n.ProductName == "":
		return "productName", "nombre de producto requerido"
	case strings.Contains(n.Category, variantKeySep),
		strings.Contains(n.ProductName, variantKeySep),
		strings.Contains(n.Size, variantKeySep):
		return "variant", "los campos no pueden contener '" + variantKeySep + "'"
	}
	return "", ""
}

// Key representación estable "categoría|producto|talla" usada en mapas, URLs y orden de bloqueo.
func (v ProductVariant) Key() string {
	n := v.Normalize()
	return n.Category + variantKeySep + n.ProductName + variantKeySep + n.Size
}

// ParseVariantKey inversa de Key.
func ParseVariantKey(key string) (ProductVariant, bool) {
	parts := strings.Split(key, variantKeySep)
	if len(parts) != 3 {
		return ProductVariant{}, false
	}
	v := ProductVariant{Category: parts[0], ProductName: parts[1], Size: parts[2]}.Normalize()
	if f, _ := v.Validate(); f != "" {
		return ProductVariant{}, false
	}
	return v, true
}

// SizePtr devuelve nil si no hay talla (columna NULL).
func (v ProductVariant) SizePtr() *string {
	if v.Size == "" {
		return nil
	}
	s := v.Size
	return &s
}
