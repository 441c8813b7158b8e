package http

import (
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jhoicas/epp-ledger/internal/application/dto"
	"github.com/jhoicas/epp-ledger/internal/application/inventory"
	"github.com/jhoicas/epp-ledger/internal/domain"
	"github.com/jhoicas/epp-ledger/internal/domain/entity"
	"github.com/jhoicas/epp-ledger/pkg/logger"
)

// centralCenter valor de ?center_id= que selecciona la bodega central.
const centralCenter = "central"

// StockHandler ingresos, auditoría de lotes, disponible, umbrales y traslados.
type StockHandler struct {
	intake      *inventory.IntakeUseCase
	guard       *inventory.AuditGuard
	thresholds  *inventory.ThresholdRegistry
	coordinator *inventory.DeliveryCoordinator
	reconciler  *inventory.Reconciler
	log         *logger.Logger
}

// NewStockHandler construye el handler.
func NewStockHandler(
	intake *inventory.IntakeUseCase,
	guard *inventory.AuditGuard,
	thresholds *inventory.ThresholdRegistry,
	coordinator *inventory.DeliveryCoordinator,
	reconciler *inventory.Reconciler,
	log *logger.Logger,
) *StockHandler {
	return &StockHandler{
		intake:      intake,
		guard:       guard,
		thresholds:  thresholds,
		coordinator: coordinator,
		reconciler:  reconciler,
		log:         log,
	}
}

// parseDate acepta YYYY-MM-DD o RFC3339. Vacío = nil.
func parseDate(field, s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(entity.DateLayout, s); err == nil {
		return &t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	return nil, domain.NewValidationError(field, "fecha inválida, formato YYYY-MM-DD")
}

func toIntakeInput(field string, in dto.IntakeRequest) (inventory.IntakeInput, error) {
	date, err := parseDate(field+"ingestionDate", in.IngestionDate)
	if err != nil {
		return inventory.IntakeInput{}, err
	}
	return inventory.IntakeInput{
		Variant:       in.Variant.ToEntity(),
		CenterID:      in.CenterID,
		Quantity:      in.Quantity,
		UnitCost:      in.UnitCost,
		IngestionDate: date,
		DocumentRef:   in.DocumentRef,
	}, nil
}

// centerQuery lee ?center_id=: ausente = todos, "central" = bodega central, si no un UUID.
func centerQuery(c *fiber.Ctx) (*string, error) {
	raw := strings.TrimSpace(c.Query("center_id"))
	switch raw {
	case "":
		return nil, nil
	case centralCenter:
		central := ""
		return &central, nil
	}
	if _, err := uuid.Parse(raw); err != nil {
		return nil, domain.NewValidationError("center_id", `debe ser un UUID o "central"`)
	}
	return &raw, nil
}

func lotID(c *fiber.Ctx) (string, bool) {
	id := c.Params("lotId")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

// CreateIntake godoc
// @Summary      Registrar ingreso de stock (lote)
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.IntakeRequest  true  "Lote"
// @Success      201   {object}  dto.LotResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/stock/intake [post]
func (h *StockHandler) CreateIntake(c *fiber.Ctx) error {
	var body dto.IntakeRequest
	if err := c.BodyParser(&body); err != nil {
		return badBody(c)
	}
	in, err := toIntakeInput("", body)
	if err != nil {
		return writeError(c, h.log, err)
	}
	in.CompanyID = GetCompanyID(c)
	in.UserID = GetUserID(c)
	lot, err := h.intake.CreateLot(c.UserContext(), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewLotResponse(lot, inventory.IsEditable(lot)))
}

// CreateIntakeBulk godoc
// @Summary      Ingreso masivo (todo o nada)
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.BulkIntakeRequest  true  "Filas"
// @Success      200   {object}  dto.BulkIntakeResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/stock/intake/bulk [post]
func (h *StockHandler) CreateIntakeBulk(c *fiber.Ctx) error {
	var body dto.BulkIntakeRequest
	if err := c.BodyParser(&body); err != nil {
		return badBody(c)
	}
	rows := make([]inventory.IntakeInput, len(body.Items))
	for i, item := range body.Items {
		in, err := toIntakeInput("items["+itoa(i)+"].", item)
		if err != nil {
			return writeError(c, h.log, err)
		}
		rows[i] = in
	}
	lots, err := h.intake.CreateLotsBulk(c.UserContext(), GetCompanyID(c), GetUserID(c), rows)
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := dto.BulkIntakeResponse{InsertedCount: len(lots), Rows: make([]dto.LotResponse, 0, len(lots))}
	for _, l := range lots {
		out.Rows = append(out.Rows, dto.NewLotResponse(l, inventory.IsEditable(l)))
	}
	return c.JSON(out)
}

// ListIntake godoc
// @Summary      Historial de ingresos
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        q               query  string  false  "Texto libre (variante, fecha, documento)"
// @Param        category        query  string  false  "Categoría"
// @Param        product         query  string  false  "Producto"
// @Param        size            query  string  false  "Talla"
// @Param        center_id       query  string  false  "Centro (\"central\" = bodega central; ausente = todos)"
// @Param        from            query  string  false  "Desde (YYYY-MM-DD)"
// @Param        to              query  string  false  "Hasta (YYYY-MM-DD)"
// @Param        include_voided  query  bool    false  "Incluir anulados"
// @Param        include_transfers  query  bool  false  "Incluir créditos de traslado"
// @Param        limit           query  int     false  "Límite"  default(50)
// @Param        offset          query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.LotListResponse
// @Router       /api/stock/intake [get]
func (h *StockHandler) ListIntake(c *fiber.Ctx) error {
	from, err := parseDate("from", c.Query("from"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	to, err := parseDate("to", c.Query("to"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	center, err := centerQuery(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	filter := entity.LotFilter{
		Query:         c.Query("q"),
		Category:      c.Query("category"),
		ProductName:   c.Query("product"),
		Size:          c.Query("size"),
		CenterID:         center,
		From:             from,
		To:               to,
		IncludeVoided:    c.QueryBool("include_voided", false),
		IncludeTransfers: c.QueryBool("include_transfers", false),
		Limit:            c.QueryInt("limit", 50),
		Offset:           c.QueryInt("offset", 0),
	}
	lots, total, err := h.intake.ListLots(c.UserContext(), GetCompanyID(c), filter)
	if err != nil {
		return writeError(c, h.log, err)
	}
	items := make([]dto.LotResponse, 0, len(lots))
	for _, l := range lots {
		items = append(items, dto.NewLotResponse(l, inventory.IsEditable(l)))
	}
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return c.JSON(dto.LotListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: filter.Offset, Total: total},
	})
}

// GetLot godoc
// @Summary      Obtener lote
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        lotId  path  string  true  "ID del lote"
// @Success      200  {object}  dto.LotResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock/intake/{lotId} [get]
func (h *StockHandler) GetLot(c *fiber.Ctx) error {
	id, ok := lotID(c)
	if !ok {
		return notFound(c, "lote no encontrado")
	}
	lot, err := h.intake.GetLot(c.UserContext(), GetCompanyID(c), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewLotResponse(lot, inventory.IsEditable(lot)))
}

// EditLot godoc
// @Summary      Corregir un lote intacto
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        lotId  path  string              true  "ID del lote"
// @Param        body   body  dto.EditLotRequest  true  "Campos a corregir"
// @Success      200  {object}  dto.LotResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/stock/intake/{lotId} [patch]
func (h *StockHandler) EditLot(c *fiber.Ctx) error {
	id, ok := lotID(c)
	if !ok {
		return notFound(c, "lote no encontrado")
	}
	var body dto.EditLotRequest
	if err := c.BodyParser(&body); err != nil {
		return badBody(c)
	}
	in := inventory.EditLotInput{UnitCost: body.UnitCost, QuantityInitial: body.QuantityInitial}
	if body.IngestionDate != nil {
		date, err := parseDate("ingestionDate", *body.IngestionDate)
		if err != nil {
			return writeError(c, h.log, err)
		}
		in.IngestionDate = date
	}
	lot, err := h.guard.EditLot(c.UserContext(), GetCompanyID(c), GetUserID(c), id, in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewLotResponse(lot, inventory.IsEditable(lot)))
}

// VoidLot godoc
// @Summary      Anular un lote intacto
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        lotId  path  string              true  "ID del lote"
// @Param        body   body  dto.VoidLotRequest  true  "Razón"
// @Success      200  {object}  dto.LotResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/stock/intake/{lotId}/void [post]
func (h *StockHandler) VoidLot(c *fiber.Ctx) error {
	id, ok := lotID(c)
	if !ok {
		return notFound(c, "lote no encontrado")
	}
	var body dto.VoidLotRequest
	if err := c.BodyParser(&body); err != nil {
		return badBody(c)
	}
	lot, err := h.guard.VoidLot(c.UserContext(), GetCompanyID(c), GetUserID(c), id, body.Reason)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewLotResponse(lot, false))
}

// Availability godoc
// @Summary      Disponible actual por variante
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        center_id  query  string  false  "Centro (\"central\" = bodega central; ausente = todos)"
// @Success      200  {object}  dto.StockResponse
// @Router       /api/stock [get]
func (h *StockHandler) Availability(c *fiber.Ctx) error {
	center, err := centerQuery(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	items, err := h.intake.Availability(c.UserContext(), GetCompanyID(c), center)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewStockResponse(items))
}

// SetThreshold godoc
// @Summary      Fijar umbral crítico de una variante
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        variantKey  path  string                   true  "categoría|producto|talla (URL-encoded)"
// @Param        body        body  dto.SetThresholdRequest  true  "Mínimo"
// @Success      200  {object}  dto.OKResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stock/{variantKey}/critical-threshold [patch]
func (h *StockHandler) SetThreshold(c *fiber.Ctx) error {
	raw, err := url.PathUnescape(c.Params("variantKey"))
	if err != nil {
		return writeError(c, h.log, domain.NewValidationError("variantKey", "clave mal codificada"))
	}
	variant, ok := entity.ParseVariantKey(raw)
	if !ok {
		return writeError(c, h.log, domain.NewValidationError("variantKey", "formato categoría|producto|talla"))
	}
	var body dto.SetThresholdRequest
	if err := c.BodyParser(&body); err != nil {
		return badBody(c)
	}
	if body.MinQuantity == nil {
		return writeError(c, h.log, domain.NewValidationError("minQuantity", "requerido"))
	}
	if _, err := h.thresholds.SetThreshold(c.UserContext(), GetCompanyID(c), GetUserID(c), variant, *body.MinQuantity); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.OKResponse{OK: true})
}

// Critical godoc
// @Summary      Variantes con umbral y su estado crítico
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.CriticalReportResponse
// @Router       /api/stock/critical [get]
func (h *StockHandler) Critical(c *fiber.Ctx) error {
	report, err := h.thresholds.Evaluate(c.UserContext(), GetCompanyID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := dto.CriticalReportResponse{
		CriticalCount: report.CriticalCount,
		Items:         make([]dto.ThresholdStatusResponse, 0, len(report.Items)),
	}
	for _, it := range report.Items {
		out.Items = append(out.Items, dto.NewThresholdStatusResponse(it.Variant, it.MinQuantity, it.Available, it.Critical))
	}
	return c.JSON(out)
}

// Transfer godoc
// @Summary      Trasladar stock entre centros (FIFO, conserva costo y fecha)
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string               false  "Clave de idempotencia"
// @Param        body             body    dto.TransferRequest  true   "Traslado"
// @Success      200  {object}  dto.DeliveryResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/stock/transfer [post]
func (h *StockHandler) Transfer(c *fiber.Ctx) error {
	var body dto.TransferRequest
	if err := c.BodyParser(&body); err != nil {
		return badBody(c)
	}
	res, err := h.coordinator.Transfer(c.UserContext(), inventory.TransferInput{
		CompanyID:      GetCompanyID(c),
		UserID:         GetUserID(c),
		IdempotencyKey: c.Get(HeaderIdempotencyKey),
		FromCenterID:   body.FromCenter,
		ToCenterID:     body.ToCenter,
		Reference:      body.Reference,
		Variant:        body.Variant.ToEntity(),
		Quantity:       body.Quantity,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewDeliveryResponse(res.Delivery))
}

// Reconcile godoc
// @Summary      Conciliar consumo de lotes contra asignaciones
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.ReconcileResponse
// @Router       /api/stock/reconcile [get]
func (h *StockHandler) Reconcile(c *fiber.Ctx) error {
	report, err := h.reconciler.Reconcile(c.UserContext(), GetCompanyID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := dto.ReconcileResponse{
		Balanced:      report.Balanced(),
		LotsChecked:   report.LotsChecked,
		Discrepancies: make([]dto.LotDiscrepancyResponse, 0, len(report.Discrepancies)),
	}
	for _, d := range report.Discrepancies {
		out.Discrepancies = append(out.Discrepancies, dto.NewLotDiscrepancyResponse(d.LotID, d.Variant, d.Consumed, d.Allocated))
	}
	return c.JSON(out)
}
