package inventory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/epp-ledger/internal/domain"
	"github.com/jhoicas/epp-ledger/internal/domain/entity"
	"github.com/jhoicas/epp-ledger/internal/domain/repository"
	"github.com/jhoicas/epp-ledger/pkg/logger"
)

// maxIdempotencyKeyLen largo máximo aceptado para la Idempotency-Key.
const maxIdempotencyKeyLen = 128

// notifyTimeout tiempo máximo de los efectos posteriores al commit.
const notifyTimeout = 15 * time.Second

// errKeyTaken la clave de idempotencia ya fue reservada por otra transacción confirmada.
var errKeyTaken = errors.New("idempotency key reservada")

// CoordinatorConfig límites de la transacción de entrega.
type CoordinatorConfig struct {
	TxTimeout  time.Duration
	MaxRetries int
}

// DeliveryCoordinator convierte una petición de entrega o traslado en exactamente una Delivery
// confirmada, de forma atómica e idempotente.
type DeliveryCoordinator struct {
	txRunner     TxRunner
	allocator    *FIFOAllocator
	deliveryRepo repository.DeliveryRepository
	workerRepo   repository.WorkerRepository
	centerRepo   repository.CenterRepository
	notifiers    []DeliveryNotifier
	cfg          CoordinatorConfig
	log          *logger.Logger
	now          func() time.Time
	pending      sync.WaitGroup // notificaciones en curso
}

// NewDeliveryCoordinator construye el coordinador. deliveryRepo es el de lectura (pool).
func NewDeliveryCoordinator(
	txRunner TxRunner,
	allocator *FIFOAllocator,
	deliveryRepo repository.DeliveryRepository,
	workerRepo repository.WorkerRepository,
	centerRepo repository.CenterRepository,
	cfg CoordinatorConfig,
	log *logger.Logger,
	notifiers ...DeliveryNotifier,
) *DeliveryCoordinator {
	if cfg.TxTimeout <= 0 {
		cfg.TxTimeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &DeliveryCoordinator{
		txRunner:     txRunner,
		allocator:    allocator,
		deliveryRepo: deliveryRepo,
		workerRepo:   workerRepo,
		centerRepo:   centerRepo,
		notifiers:    notifiers,
		cfg:          cfg,
		log:          log,
		now:          time.Now,
	}
}

// LineInput una línea solicitada.
type LineInput struct {
	Variant  entity.ProductVariant
	Quantity int64
}

// SubmitInput petición de entrega (Kind DELIVERY) o traslado (Kind TRANSFER).
type SubmitInput struct {
	CompanyID      string
	UserID         string
	IdempotencyKey string
	Kind           string
	Destination    entity.Destination
	Reference      string
	Lines          []LineInput
}

// SubmitResult la entrega confirmada; Replayed indica que la clave ya existía y no se reasignó nada.
type SubmitResult struct {
	Delivery *entity.Delivery
	Replayed bool
}

// TransferInput traslado de una variante entre dos pools (centro vacío = bodega central).
type TransferInput struct {
	CompanyID      string
	UserID         string
	IdempotencyKey string // opcional: sin clave se genera una y el traslado no es reintentable
	FromCenterID   string
	ToCenterID     string
	Reference      string
	Variant        entity.ProductVariant
	Quantity       int64
}

// Transfer mueve unidades entre centros con la misma lógica de Submit.
func (c *DeliveryCoordinator) Transfer(ctx context.Context, in TransferInput) (*SubmitResult, error) {
	key := strings.TrimSpace(in.IdempotencyKey)
	if key == "" {
		key = "transfer-" + uuid.New().String()
	}
	return c.Submit(ctx, SubmitInput{
		CompanyID:      in.CompanyID,
		UserID:         in.UserID,
		IdempotencyKey: key,
		Kind:           entity.DeliveryKindTransfer,
		Destination: entity.Destination{
			FromCenterID: strings.TrimSpace(in.FromCenterID),
			ToCenterID:   strings.TrimSpace(in.ToCenterID),
		},
		Reference: in.Reference,
		Lines:     []LineInput{{Variant: in.Variant, Quantity: in.Quantity}},
	})
}

// Submit flujo completo:
//  1. clave ya confirmada -> se devuelve la entrega guardada (sin reasignar ni notificar)
//  2. validación de líneas y destino (misma empresa)
//  3. una transacción: reserva de la clave, asignación FIFO por línea, persistencia del agregado
//  4. efectos posteriores al commit (best-effort)
func (c *DeliveryCoordinator) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	in.IdempotencyKey = strings.TrimSpace(in.IdempotencyKey)
	if in.IdempotencyKey == "" {
		return nil, domain.NewValidationError("Idempotency-Key", "encabezado requerido")
	}
	if len(in.IdempotencyKey) > maxIdempotencyKeyLen {
		return nil, domain.NewValidationError("Idempotency-Key", fmt.Sprintf("máximo %d caracteres", maxIdempotencyKeyLen))
	}
	if in.Kind == "" {
		in.Kind = entity.DeliveryKindDelivery
	}
	fingerprint := requestFingerprint(in)

	existing, err := c.deliveryRepo.GetByIdempotencyKey(ctx, in.CompanyID, in.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return c.replay(existing, in.Kind, fingerprint)
	}

	if err := c.validate(ctx, in); err != nil {
		return nil, err
	}

	var delivery *entity.Delivery
	for attempt := 0; ; attempt++ {
		delivery, err = c.commit(ctx, in, fingerprint)
		if err == nil || !errors.Is(err, domain.ErrConcurrencyConflict) || attempt >= c.cfg.MaxRetries {
			break
		}
		c.log.Debug().Err(err).Str("idempotency_key", in.IdempotencyKey).Int("attempt", attempt+1).Msg("reintento por conflicto")
	}

	if errors.Is(err, errKeyTaken) {
		existing, getErr := c.deliveryRepo.GetByIdempotencyKey(ctx, in.CompanyID, in.IdempotencyKey)
		if getErr != nil {
			return nil, getErr
		}
		if existing == nil {
			return nil, &domain.ConcurrencyConflictError{Op: "submit", Err: err}
		}
		return c.replay(existing, in.Kind, fingerprint)
	}
	if err != nil {
		c.log.Tenant(in.CompanyID).Info().
			Err(err).
			Str("idempotency_key", in.IdempotencyKey).
			Str("status", string(entity.DeliveryFailed)).
			Msg("entrega no confirmada")
		return nil, err
	}

	c.log.Tenant(delivery.CompanyID).Info().
		Str(logger.FieldDeliveryID, delivery.ID).
		Str("kind", delivery.Kind).
		Int64("total_units", delivery.TotalUnits).
		Str("total_cost", delivery.TotalCost.StringFixed(2)).
		Msg("entrega confirmada")

	c.notify(ctx, delivery)
	return &SubmitResult{Delivery: delivery}, nil
}

// Get obtiene una entrega verificando la empresa.
func (c *DeliveryCoordinator) Get(ctx context.Context, companyID, id string) (*entity.Delivery, error) {
	d, err := c.deliveryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, domain.ErrNotFound
	}
	if d.CompanyID != companyID {
		return nil, tenantMismatch(c.log, companyID, "delivery", id)
	}
	return d, nil
}

// List entregas y traslados de la empresa, más recientes primero.
func (c *DeliveryCoordinator) List(ctx context.Context, companyID string, limit, offset int) ([]*entity.Delivery, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return c.deliveryRepo.ListByCompany(ctx, companyID, limit, offset)
}

// replay devuelve la entrega ya confirmada con la clave. Una clave usada por otro tipo de
// movimiento (entrega vs traslado) es un conflicto, no un reintento.
func (c *DeliveryCoordinator) replay(existing *entity.Delivery, kind, fingerprint string) (*SubmitResult, error) {
	if existing.Kind != kind {
		c.log.Tenant(existing.CompanyID).Warn().
			Str(logger.FieldDeliveryID, existing.ID).
			Str("idempotency_key", existing.IdempotencyKey).
			Str("stored_kind", existing.Kind).
			Str("kind", kind).
			Msg("Idempotency-Key reutilizada por otro tipo de movimiento")
		return nil, fmt.Errorf("%w: la Idempotency-Key %q ya corresponde a un movimiento %s",
			domain.ErrConflict, existing.IdempotencyKey, existing.Kind)
	}
	mismatch := existing.Fingerprint != "" && existing.Fingerprint != fingerprint
	log := c.log.Tenant(existing.CompanyID)
	ev := log.Info
	if mismatch {
		ev = log.Warn
	}
	ev().Str(logger.FieldDeliveryID, existing.ID).
		Str("idempotency_key", existing.IdempotencyKey).
		Bool("payload_mismatch", mismatch).
		Msg("reintento de entrega ya confirmada")
	return &SubmitResult{Delivery: existing, Replayed: true}, nil
}

func (c *DeliveryCoordinator) validate(ctx context.Context, in SubmitInput) error {
	if len(in.Lines) == 0 {
		return domain.NewValidationError("lines", "se requiere al menos una línea")
	}
	for i, line := range in.Lines {
		prefix := fmt.Sprintf("lines[%d].", i)
		if err := validateVariant(prefix, line.Variant); err != nil {
			return err
		}
		if err := validateQuantity(prefix+"quantity", line.Quantity); err != nil {
			return err
		}
	}

	dest := in.Destination
	switch in.Kind {
	case entity.DeliveryKindDelivery:
		return c.validateDeliveryDestination(ctx, in.CompanyID, dest)
	case entity.DeliveryKindTransfer:
		if strings.TrimSpace(dest.FromCenterID) == strings.TrimSpace(dest.ToCenterID) {
			return domain.NewValidationError("toCenterId", "el centro de origen y destino deben ser distintos")
		}
		if err := resolveCenter(ctx, c.centerRepo, c.log, in.CompanyID, "fromCenterId", dest.FromCenterID); err != nil {
			return err
		}
		return resolveCenter(ctx, c.centerRepo, c.log, in.CompanyID, "toCenterId", dest.ToCenterID)
	default:
		return domain.NewValidationError("kind", "tipo de salida desconocido")
	}
}

func (c *DeliveryCoordinator) validateDeliveryDestination(ctx context.Context, companyID string, dest entity.Destination) error {
	workerID := strings.TrimSpace(dest.WorkerID)
	centerID := strings.TrimSpace(dest.CenterID)
	if workerID == "" {
		return domain.NewValidationError("destination.workerId", "trabajador requerido")
	}
	if centerID == "" {
		return domain.NewValidationError("destination.centerId", "centro requerido")
	}
	worker, err := c.workerRepo.GetByID(ctx, workerID)
	if err != nil {
		return err
	}
	if worker == nil {
		return domain.NewValidationError("destination.workerId", "trabajador no encontrado")
	}
	if worker.CompanyID != companyID {
		return tenantMismatch(c.log, companyID, "worker", workerID)
	}
	if err := resolveCenter(ctx, c.centerRepo, c.log, companyID, "destination.centerId", centerID); err != nil {
		return err
	}
	if worker.CenterID != "" && worker.CenterID != centerID {
		return domain.NewValidationError("destination.centerId", "el trabajador no pertenece al centro indicado")
	}
	return resolveCenter(ctx, c.centerRepo, c.log, companyID, "destination.sourceCenterId", dest.SourceCenterID)
}

// commit ejecuta un intento completo dentro de una transacción acotada por TxTimeout.
func (c *DeliveryCoordinator) commit(ctx context.Context, in SubmitInput, fingerprint string) (*entity.Delivery, error) {
	txCtx, cancel := context.WithTimeout(ctx, c.cfg.TxTimeout)
	defer cancel()

	now := c.now().UTC()
	d := &entity.Delivery{
		ID:             uuid.New().String(),
		CompanyID:      in.CompanyID,
		IdempotencyKey: in.IdempotencyKey,
		Kind:           in.Kind,
		Status:         entity.DeliveryRequested,
		ActorID:        in.UserID,
		Destination:    trimDestination(in.Destination),
		Reference:      strings.TrimSpace(in.Reference),
		Fingerprint:    fingerprint,
		Lines:          make([]entity.DeliveryLine, len(in.Lines)),
		CreatedAt:      now,
	}
	for i, line := range in.Lines {
		d.Lines[i] = entity.DeliveryLine{Variant: line.Variant.Normalize(), Quantity: line.Quantity}
	}

	err := c.txRunner.Run(txCtx, func(lotRepo repository.LotRepository, deliveryRepo repository.DeliveryRepository) error {
		if err := d.Advance(entity.DeliveryAllocating); err != nil {
			return err
		}
		reserved, err := deliveryRepo.Reserve(txCtx, d)
		if err != nil {
			return err
		}
		if !reserved {
			return errKeyTaken
		}

		source := d.Destination.SourceCenterID
		if d.Kind == entity.DeliveryKindTransfer {
			source = d.Destination.FromCenterID
		}

		// Orden de bloqueo consistente entre transacciones: por clave de variante.
		for _, idx := range lockOrder(d.Lines) {
			line := &d.Lines[idx]
			res, err := c.allocator.Allocate(txCtx, lotRepo, d.CompanyID, line.Variant, source, line.Quantity)
			if err != nil {
				return err
			}
			line.Allocations = res.Allocations
			if d.Kind == entity.DeliveryKindTransfer {
				if err := c.creditTransfer(txCtx, lotRepo, d, line, res); err != nil {
					return err
				}
			}
		}

		d.Recalculate()
		if !d.Balanced() {
			return fmt.Errorf("entrega %s desbalanceada", d.ID)
		}
		if err := d.Advance(entity.DeliveryCommitted); err != nil {
			return err
		}
		return deliveryRepo.Complete(txCtx, d)
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, &domain.ConcurrencyConflictError{Op: "submit", Err: err}
		}
		return nil, err
	}
	return d, nil
}

// creditTransfer acredita en el centro destino un lote por cada porción debitada, conservando costo,
// fecha de ingreso y CreatedAt del lote de origen para mantener su posición FIFO.
func (c *DeliveryCoordinator) creditTransfer(
	ctx context.Context,
	lotRepo repository.LotRepository,
	d *entity.Delivery,
	line *entity.DeliveryLine,
	res *AllocationResult,
) error {
	for i := range line.Allocations {
		origin := res.Lots[i]
		alloc := &line.Allocations[i]
		credit := &entity.Lot{
			ID:                uuid.New().String(),
			CompanyID:         d.CompanyID,
			Variant:           origin.Variant,
			CenterID:          d.Destination.ToCenterID,
			QuantityInitial:   alloc.Quantity,
			QuantityAvailable: alloc.Quantity,
			UnitCost:          alloc.UnitCost,
			IngestionDate:     origin.IngestionDate,
			DocumentRef:       origin.DocumentRef,
			OriginLotID:       origin.ID,
			CreatedBy:         d.ActorID,
			CreatedAt:         origin.CreatedAt,
			UpdatedAt:         d.CreatedAt,
		}
		if err := lotRepo.Create(ctx, credit); err != nil {
			return err
		}
		alloc.TargetLotID = credit.ID
	}
	return nil
}

// notify despacha los efectos posteriores al commit en segundo plano, con un contexto
// desligado del request: la respuesta no espera los reintentos del webhook.
func (c *DeliveryCoordinator) notify(ctx context.Context, d *entity.Delivery) {
	if len(c.notifiers) == 0 {
		return
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		defer cancel()
		for _, n := range c.notifiers {
			if err := n.DeliveryCommitted(nctx, d); err != nil {
				c.log.Tenant(d.CompanyID).Error().
					Err(err).
					Str(logger.FieldDeliveryID, d.ID).
					Msg("efecto posterior a la entrega falló")
			}
		}
	}()
}

// Wait bloquea hasta que terminen las notificaciones despachadas o venza ctx.
func (c *DeliveryCoordinator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func lockOrder(lines []entity.DeliveryLine) []int {
	idx := make([]int, len(lines))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return lines[idx[a]].Variant.Key() < lines[idx[b]].Variant.Key()
	})
	return idx
}

func trimDestination(d entity.Destination) entity.Destination {
	return entity.Destination{
		WorkerID:       strings.TrimSpace(d.WorkerID),
		CenterID:       strings.TrimSpace(d.CenterID),
		SourceCenterID: strings.TrimSpace(d.SourceCenterID),
		FromCenterID:   strings.TrimSpace(d.FromCenterID),
		ToCenterID:     strings.TrimSpace(d.ToCenterID),
	}
}

// requestFingerprint huella SHA-256 del contenido normalizado de la petición.
func requestFingerprint(in SubmitInput) string {
	dest := trimDestination(in.Destination)
	lines := make([]string, len(in.Lines))
	for i, l := range in.Lines {
		lines[i] = fmt.Sprintf("%s=%d", l.Variant.Key(), l.Quantity)
	}
	sort.Strings(lines)
	raw := strings.Join([]string{
		in.Kind, dest.WorkerID, dest.CenterID, dest.SourceCenterID, dest.FromCenterID, dest.ToCenterID,
		strings.TrimSpace(in.Reference), strings.Join(lines, ";"),
	}, "\x1f")
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
