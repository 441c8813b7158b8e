package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jhoicas/epp-ledger/internal/application/dto"
	"github.com/jhoicas/epp-ledger/internal/application/usecase"
	"github.com/jhoicas/epp-ledger/pkg/logger"
)

// CenterHandler maneja las peticiones HTTP para centros de trabajo y trabajadores (protegido).
type CenterHandler struct {
	uc  *usecase.CenterUseCase
	log *logger.Logger
}

// NewCenterHandler construye el handler.
func NewCenterHandler(uc *usecase.CenterUseCase, log *logger.Logger) *CenterHandler {
	return &CenterHandler{uc: uc, log: log}
}

func pageParams(c *fiber.Ctx) (int, int) {
	p := dto.PageRequest{Limit: c.QueryInt("limit", 20), Offset: c.QueryInt("offset", 0)}
	p.DefaultPage()
	return p.Limit, p.Offset
}

// Create godoc
// @Summary      Crear centro de trabajo
// @Tags         centers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateCenterRequest  true  "Datos del centro"
// @Success      201   {object}  dto.CenterResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/centers [post]
func (h *CenterHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateCenterRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.Create(c.UserContext(), GetCompanyID(c), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID godoc
// @Summary      Obtener centro por ID
// @Tags         centers
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del centro"
// @Success      200  {object}  dto.CenterResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/centers/{id} [get]
func (h *CenterHandler) GetByID(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return notFound(c, "centro no encontrado")
	}
	out, err := h.uc.GetByID(c.UserContext(), GetCompanyID(c), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	if out == nil {
		return notFound(c, "centro no encontrado")
	}
	return c.JSON(out)
}

// List godoc
// @Summary      Listar centros
// @Tags         centers
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "Límite"   default(20)
// @Param        offset  query  int  false  "Offset"   default(0)
// @Success      200     {object}  dto.CenterListResponse
// @Router       /api/centers [get]
func (h *CenterHandler) List(c *fiber.Ctx) error {
	limit, offset := pageParams(c)
	out, err := h.uc.List(c.UserContext(), GetCompanyID(c), limit, offset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// CreateWorker godoc
// @Summary      Registrar trabajador
// @Tags         workers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateWorkerRequest  true  "Datos del trabajador"
// @Success      201   {object}  dto.WorkerResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/workers [post]
func (h *CenterHandler) CreateWorker(c *fiber.Ctx) error {
	var in dto.CreateWorkerRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.CreateWorker(c.UserContext(), GetCompanyID(c), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// ListWorkers godoc
// @Summary      Listar trabajadores
// @Tags         workers
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "Límite"   default(20)
// @Param        offset  query  int  false  "Offset"   default(0)
// @Success      200     {object}  dto.WorkerListResponse
// @Router       /api/workers [get]
func (h *CenterHandler) ListWorkers(c *fiber.Ctx) error {
	limit, offset := pageParams(c)
	out, err := h.uc.ListWorkers(c.UserContext(), GetCompanyID(c), limit, offset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}
