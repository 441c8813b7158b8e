// Package pdf genera el comprobante de entrega de EPP firmado por el trabajador.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Comprobante + Tipo       │  N° entrega + Fecha      │
//	│  ─────────────────────────────────────────────────────────  │
//	│  DESTINO: Trabajador / Centro  (o Origen -> Destino)         │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Cant | Categoría | Producto | Talla | C.Unit | Total │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: Unidades / Costo total                             │
//	│  FIRMA + QR con el ID de la entrega                          │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/epp-ledger/internal/application/inventory"
	"github.com/jhoicas/epp-ledger/internal/domain/entity"
)

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

var _ inventory.ReceiptRenderer = (*ReceiptGenerator)(nil)

// ReceiptGenerator implementa inventory.ReceiptRenderer usando Maroto v2.
type ReceiptGenerator struct{}

// NewReceiptGenerator construye el generador.
func NewReceiptGenerator() *ReceiptGenerator { return &ReceiptGenerator{} }

// RenderDeliveryReceipt genera el PDF y devuelve sus bytes.
func (g *ReceiptGenerator) RenderDeliveryReceipt(_ context.Context, data inventory.ReceiptData) ([]byte, error) {
	d := data.Delivery
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Comprobante de entrega de EPP", true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(d))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(destinationRow(data))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableRows(d)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRows(d)...)
	m.AddRows(line.NewRow(6))
	m.AddRows(signatureRow(d))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar comprobante: %w", err)
	}
	return doc.GetBytes(), nil
}

func headerRow(d *entity.Delivery) core.Row {
	title := "COMPROBANTE DE ENTREGA DE EPP"
	if d.Kind == entity.DeliveryKindTransfer {
		title = "COMPROBANTE DE TRASLADO ENTRE CENTROS"
	}
	return row.New(18).Add(
		col.New(7).Add(
			text.New(title, props.Text{
				Style: fontstyle.Bold, Size: 12, Color: colorPrimary, Top: 1,
			}),
			text.New("Ref: "+nonEmpty(d.Reference, "-"), props.Text{
				Size: 8, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New(shortID(d.ID), props.Text{
				Style: fontstyle.Bold, Size: 11, Align: align.Right, Top: 1,
			}),
			text.New("Fecha: "+d.CreatedAt.Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 9, Color: colorGray,
			}),
		),
	)
}

func destinationRow(data inventory.ReceiptData) core.Row {
	var detail string
	if data.Delivery.Kind == entity.DeliveryKindTransfer {
		detail = fmt.Sprintf("Origen: %s   ->   Destino: %s",
			nonEmpty(data.FromCenterName, "Bodega central"),
			nonEmpty(data.ToCenterName, "Bodega central"),
		)
	} else {
		detail = fmt.Sprintf("Trabajador: %s (%s)   |   Centro: %s   |   Retiro desde: %s",
			nonEmpty(data.WorkerName, "-"),
			nonEmpty(data.WorkerDocument, "-"),
			nonEmpty(data.CenterName, "-"),
			nonEmpty(data.SourceCenterName, "Bodega central"),
		)
	}
	return row.New(13).Add(
		col.New(12).Add(
			text.New("DESTINO", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(detail, props.Text{Size: 9, Top: 7}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Cant.", 1, align.Center),
		h("Categoría", 2, align.Left),
		h("Producto", 4, align.Left),
		h("Talla", 1, align.Center),
		h("C. Unit.", 2, align.Right),
		h("Total", 2, align.Right),
	)
}

func tableRows(d *entity.Delivery) []core.Row {
	result := make([]core.Row, 0, len(d.Lines))
	for _, l := range d.Lines {
		result = append(result, row.New(7).Add(
			col.New(1).Add(text.New(fmt.Sprintf("%d", l.Quantity),
				props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(2).Add(text.New(l.Variant.Category,
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1})),
			col.New(4).Add(text.New(l.Variant.ProductName,
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1})),
			col.New(1).Add(text.New(nonEmpty(l.Variant.Size, "-"),
				props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(2).Add(text.New("$"+formatMoney(l.WeightedUnitCost().StringFixed(0)),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(2).Add(text.New("$"+formatMoney(l.TotalCost.StringFixed(0)),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		))
	}
	return result
}

func totalsRows(d *entity.Delivery) []core.Row {
	label := func(s string) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2, Top: 1})
	}
	value := func(s string) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 1, Top: 1, Color: colorPrimary})
	}
	return []core.Row{
		row.New(6).Add(
			col.New(6),
			col.New(3).Add(label("Unidades:")),
			col.New(3).Add(value(fmt.Sprintf("%d", d.TotalUnits))),
		),
		row.New(6).Add(
			col.New(6),
			col.New(3).Add(label("Costo total:")),
			col.New(3).Add(value("$"+formatMoney(d.TotalCost.StringFixed(0)))),
		),
	}
}

func signatureRow(d *entity.Delivery) core.Row {
	return row.New(40).Add(
		col.New(8).Add(
			text.New("Recibí conforme los elementos de protección personal detallados.", props.Text{
				Size: 8, Top: 4, Color: colorGray,
			}),
			text.New("______________________________", props.Text{Size: 9, Top: 24}),
			text.New("Firma", props.Text{Size: 8, Top: 30, Color: colorGray}),
		),
		col.New(4).Add(code.NewQr(d.ID, props.Rect{Percent: 90, Center: true})),
	)
}

func nonEmpty(s, fallback string) string {
	if strings.TrimSpace(s) != "" {
		return s
	}
	return fallback
}

func shortID(id string) string {
	if len(id) > 8 {
		return "N° " + strings.ToUpper(id[:8])
	}
	return "N° " + strings.ToUpper(id)
}

// formatMoney inserta puntos de miles en un string numérico sin decimales.
// Ej: "25000" -> "25.000", "1000000" -> "1.000.000"
func formatMoney(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(s) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return string(buf)
}
