package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/epp-ledger/internal/application/inventory"
	"github.com/jhoicas/epp-ledger/internal/application/usecase"
	"github.com/jhoicas/epp-ledger/pkg/jwt"
	"github.com/jhoicas/epp-ledger/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	IntakeUC    *inventory.IntakeUseCase
	AuditGuard  *inventory.AuditGuard
	Thresholds  *inventory.ThresholdRegistry
	Coordinator *inventory.DeliveryCoordinator
	Receipts    *inventory.ReceiptUseCase
	Reconciler  *inventory.Reconciler
	CenterUC    *usecase.CenterUseCase
	Verifier    *jwt.Verifier
	Logger      *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api", AuthMiddleware(deps.Verifier))

	readers := RequireRole(RoleAdmin, RoleBodeguero, RoleSupervisor)
	writers := RequireRole(RoleAdmin, RoleBodeguero)
	admins := RequireRole(RoleAdmin)

	// Stock: ingresos, auditoría, disponible, umbrales, traslados
	stockHandler := NewStockHandler(deps.IntakeUC, deps.AuditGuard, deps.Thresholds, deps.Coordinator, deps.Reconciler, log)
	stock := api.Group("/stock")
	stock.Get("/", readers, stockHandler.Availability)
	stock.Get("/critical", readers, stockHandler.Critical)
	stock.Get("/reconcile", RequireRole(RoleAdmin, RoleSupervisor), stockHandler.Reconcile)
	stock.Post("/intake", writers, stockHandler.CreateIntake)
	stock.Post("/intake/bulk", writers, stockHandler.CreateIntakeBulk)
	stock.Get("/intake", readers, stockHandler.ListIntake)
	stock.Get("/intake/:lotId", readers, stockHandler.GetLot)
	stock.Patch("/intake/:lotId", admins, stockHandler.EditLot)
	stock.Post("/intake/:lotId/void", admins, stockHandler.VoidLot)
	stock.Post("/transfer", writers, stockHandler.Transfer)
	stock.Patch("/:variantKey/critical-threshold", admins, stockHandler.SetThreshold)

	// Entregas
	deliveryHandler := NewDeliveryHandler(deps.Coordinator, deps.Receipts, log)
	deliveries := api.Group("/deliveries")
	deliveries.Post("/", writers, deliveryHandler.Create)
	deliveries.Get("/", readers, deliveryHandler.List)
	deliveries.Get("/:id", readers, deliveryHandler.GetByID)
	deliveries.Get("/:id/receipt", readers, deliveryHandler.Receipt)

	// Centros y trabajadores
	centerHandler := NewCenterHandler(deps.CenterUC, log)
	centers := api.Group("/centers")
	centers.Post("/", admins, centerHandler.Create)
	centers.Get("/", readers, centerHandler.List)
	centers.Get("/:id", readers, centerHandler.GetByID)

	workers := api.Group("/workers")
	workers.Post("/", writers, centerHandler.CreateWorker)
	workers.Get("/", readers, centerHandler.ListWorkers)
}
