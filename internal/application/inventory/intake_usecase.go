package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/jhoicas/epp-ledger/internal/domain"
	"github.com/jhoicas/epp-ledger/internal/domain/entity"
	"github.com/jhoicas/epp-ledger/internal/domain/repository"
	"github.com/jhoicas/epp-ledger/pkg/logger"
)

// DefaultMaxBulkRows tope de filas por ingreso masivo para acotar el tamaño de la transacción.
const DefaultMaxBulkRows = 500

// IntakeUseCase registra ingresos de stock como lotes (LotStore) y expone sus lecturas.
type IntakeUseCase struct {
	txRunner    TxRunner
	lotRepo     repository.LotRepository
	centerRepo  repository.CenterRepository
	log         *logger.Logger
	maxBulkRows int
	now         func() time.Time
}

// NewIntakeUseCase construye el caso de uso. maxBulkRows <= 0 usa DefaultMaxBulkRows.
func NewIntakeUseCase(
	txRunner TxRunner,
	lotRepo repository.LotRepository,
	centerRepo repository.CenterRepository,
	log *logger.Logger,
	maxBulkRows int,
) *IntakeUseCase {
	if maxBulkRows <= 0 {
		maxBulkRows = DefaultMaxBulkRows
	}
	return &IntakeUseCase{
		txRunner:    txRunner,
		lotRepo:     lotRepo,
		centerRepo:  centerRepo,
		log:         log,
		maxBulkRows: maxBulkRows,
		now:         time.Now,
	}
}

// IntakeInput entrada de un ingreso. IngestionDate nil = hoy.
type IntakeInput struct {
	CompanyID     string
	UserID        string
	Variant       entity.ProductVariant
	CenterID      string
	Quantity      int64
	UnitCost      decimal.Decimal
	IngestionDate *time.Time
	DocumentRef   string
}

// validateIntake reglas únicas para ingreso simple y masivo.
func validateIntake(prefix string, in IntakeInput) error {
	if err := validateVariant(prefix, in.Variant); err != nil {
		return err
	}
	if err := validateQuantity(prefix+"quantity", in.Quantity); err != nil {
		return err
	}
	if in.UnitCost.IsNegative() {
		return domain.NewValidationError(prefix+"unitCost", "el costo unitario no puede ser negativo")
	}
	if in.IngestionDate != nil && in.IngestionDate.IsZero() {
		return domain.NewValidationError(prefix+"ingestionDate", "fecha de ingreso inválida")
	}
	return nil
}

func (uc *IntakeUseCase) buildLot(in IntakeInput, createdAt time.Time) *entity.Lot {
	ingestion := entity.TruncateDate(createdAt)
	if in.IngestionDate != nil {
		ingestion = entity.TruncateDate(*in.IngestionDate)
	}
	return &entity.Lot{
		ID:                uuid.New().String(),
		CompanyID:         in.CompanyID,
		Variant:           in.Variant.Normalize(),
		CenterID:          strings.TrimSpace(in.CenterID),
		QuantityInitial:   in.Quantity,
		QuantityAvailable: in.Quantity,
		UnitCost:          in.UnitCost,
		IngestionDate:     ingestion,
		DocumentRef:       strings.TrimSpace(in.DocumentRef),
		CreatedBy:         in.UserID,
		CreatedAt:         createdAt,
		UpdatedAt:         createdAt,
	}
}

// CreateLot valida y persiste un lote nuevo.
func (uc *IntakeUseCase) CreateLot(ctx context.Context, in IntakeInput) (*entity.Lot, error) {
	if err := validateIntake("", in); err != nil {
		return nil, err
	}
	if err := resolveCenter(ctx, uc.centerRepo, uc.log, in.CompanyID, "centerId", in.CenterID); err != nil {
		return nil, err
	}
	lot := uc.buildLot(in, uc.now().UTC())
	if err := uc.lotRepo.Create(ctx, lot); err != nil {
		return nil, err
	}
	return lot, nil
}

// CreateLotsBulk inserta todas las filas o ninguna. Las filas conservan su orden en el desempate FIFO.
func (uc *IntakeUseCase) CreateLotsBulk(ctx context.Context, companyID, userID string, rows []IntakeInput) ([]*entity.Lot, error) {
	if len(rows) == 0 {
		return nil, domain.NewValidationError("items", "se requiere al menos una fila")
	}
	if len(rows) > uc.maxBulkRows {
		return nil, domain.NewValidationError("items", fmt.Sprintf("máximo %d filas por ingreso masivo", uc.maxBulkRows))
	}

	checked := make(map[string]bool)
	for i := range rows {
		rows[i].CompanyID = companyID
		rows[i].UserID = userID
		prefix := fmt.Sprintf("items[%d].", i)
		if err := validateIntake(prefix, rows[i]); err != nil {
			return nil, err
		}
		center := strings.TrimSpace(rows[i].CenterID)
		if center != "" && !checked[center] {
			if err := resolveCenter(ctx, uc.centerRepo, uc.log, companyID, prefix+"centerId", center); err != nil {
				return nil, err
			}
			checked[center] = true
		}
	}

	base := uc.now().UTC()
	lots := make([]*entity.Lot, len(rows))
	for i, in := range rows {
		lots[i] = uc.buildLot(in, base.Add(time.Duration(i)*time.Microsecond))
	}

	err := uc.txRunner.Run(ctx, func(lotRepo repository.LotRepository, _ repository.DeliveryRepository) error {
		return lotRepo.CreateBatch(ctx, lots)
	})
	if err != nil {
		return nil, err
	}
	return lots, nil
}

// GetLot obtiene un lote verificando la empresa.
func (uc *IntakeUseCase) GetLot(ctx context.Context, companyID, lotID string) (*entity.Lot, error) {
	lot, err := uc.lotRepo.GetByID(ctx, lotID)
	if err != nil {
		return nil, err
	}
	if lot == nil {
		return nil, domain.ErrNotFound
	}
	if lot.CompanyID != companyID {
		return nil, tenantMismatch(uc.log, companyID, "lot", lotID)
	}
	return lot, nil
}

// ListLots historial de ingresos con filtros de texto libre.
func (uc *IntakeUseCase) ListLots(ctx context.Context, companyID string, filter entity.LotFilter) ([]*entity.Lot, int, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return uc.lotRepo.List(ctx, companyID, filter)
}

// Availability disponible actual por variante. centerID nil agrega todos los centros.
func (uc *IntakeUseCase) Availability(ctx context.Context, companyID string, centerID *string) ([]entity.VariantStock, error) {
	return uc.lotRepo.SumAvailable(ctx, companyID, centerID)
}
