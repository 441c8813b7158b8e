package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jhoicas/epp-ledger/internal/application/dto"
	"github.com/jhoicas/epp-ledger/internal/application/inventory"
	"github.com/jhoicas/epp-ledger/internal/domain/entity"
	"github.com/jhoicas/epp-ledger/pkg/logger"
)

// DeliveryHandler entregas de EPP a trabajadores y su comprobante.
type DeliveryHandler struct {
	coordinator *inventory.DeliveryCoordinator
	receipts    *inventory.ReceiptUseCase
	log         *logger.Logger
}

// NewDeliveryHandler construye el handler.
func NewDeliveryHandler(coordinator *inventory.DeliveryCoordinator, receipts *inventory.ReceiptUseCase, log *logger.Logger) *DeliveryHandler {
	return &DeliveryHandler{coordinator: coordinator, receipts: receipts, log: log}
}

func deliveryID(c *fiber.Ctx) (string, bool) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

// Create godoc
// @Summary      Registrar entrega (idempotente)
// @Description  Asigna cada línea FIFO sobre los lotes del centro de origen. Reintentar con la misma
// @Description  Idempotency-Key devuelve la entrega ya confirmada sin volver a descontar.
// @Tags         deliveries
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string                     true  "Clave de idempotencia"
// @Param        body             body    dto.CreateDeliveryRequest  true  "Entrega"
// @Success      201  {object}  dto.DeliveryResponse
// @Success      200  {object}  dto.DeliveryResponse  "Reintento con clave ya confirmada"
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/deliveries [post]
func (h *DeliveryHandler) Create(c *fiber.Ctx) error {
	var body dto.CreateDeliveryRequest
	if err := c.BodyParser(&body); err != nil {
		return badBody(c)
	}
	lines := make([]inventory.LineInput, 0, len(body.Lines))
	for _, l := range body.Lines {
		lines = append(lines, inventory.LineInput{
			Variant:  entity.ProductVariant{Category: l.Category, ProductName: l.ProductName, Size: l.Size},
			Quantity: l.Quantity,
		})
	}
	res, err := h.coordinator.Submit(c.UserContext(), inventory.SubmitInput{
		CompanyID:      GetCompanyID(c),
		UserID:         GetUserID(c),
		IdempotencyKey: c.Get(HeaderIdempotencyKey),
		Kind:           entity.DeliveryKindDelivery,
		Destination: entity.Destination{
			WorkerID:       body.Destination.WorkerID,
			CenterID:       body.Destination.CenterID,
			SourceCenterID: body.Destination.SourceCenterID,
		},
		Reference: body.Reference,
		Lines:     lines,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	status := fiber.StatusCreated
	if res.Replayed {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(dto.NewDeliveryResponse(res.Delivery))
}

// GetByID godoc
// @Summary      Obtener entrega
// @Tags         deliveries
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la entrega"
// @Success      200  {object}  dto.DeliveryResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/deliveries/{id} [get]
func (h *DeliveryHandler) GetByID(c *fiber.Ctx) error {
	id, ok := deliveryID(c)
	if !ok {
		return notFound(c, "entrega no encontrada")
	}
	d, err := h.coordinator.Get(c.UserContext(), GetCompanyID(c), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewDeliveryResponse(d))
}

// List godoc
// @Summary      Listar entregas y traslados
// @Tags         deliveries
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "Límite"   default(20)
// @Param        offset  query  int  false  "Offset"   default(0)
// @Success      200     {object}  dto.DeliveryListResponse
// @Router       /api/deliveries [get]
func (h *DeliveryHandler) List(c *fiber.Ctx) error {
	limit, offset := pageParams(c)
	list, err := h.coordinator.List(c.UserContext(), GetCompanyID(c), limit, offset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	items := make([]dto.DeliveryResponse, 0, len(list))
	for _, d := range list {
		items = append(items, dto.NewDeliveryResponse(d))
	}
	return c.JSON(dto.DeliveryListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	})
}

// Receipt godoc
// @Summary      Comprobante PDF de la entrega
// @Tags         deliveries
// @Security     Bearer
// @Produce      application/pdf
// @Param        id   path  string  true  "ID de la entrega"
// @Success      200  {file}    binary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/deliveries/{id}/receipt [get]
func (h *DeliveryHandler) Receipt(c *fiber.Ctx) error {
	id, ok := deliveryID(c)
	if !ok {
		return notFound(c, "entrega no encontrada")
	}
	pdf, err := h.receipts.Render(c.UserContext(), GetCompanyID(c), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="entrega-`+id+`.pdf"`)
	return c.Send(pdf)
}
