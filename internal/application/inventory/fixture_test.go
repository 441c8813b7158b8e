package inventory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/epp-ledger/internal/application/inventory"
	"github.com/jhoicas/epp-ledger/internal/domain/entity"
	"github.com/jhoicas/epp-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/epp-ledger/pkg/logger"
)

const (
	companyA = "11111111-1111-1111-1111-111111111111"
	companyB = "22222222-2222-2222-2222-222222222222"
	userID   = "33333333-3333-3333-3333-333333333333"
)

var casco = entity.ProductVariant{Category: "Cabeza", ProductName: "Casco", Size: "M"}

// ledger arma todos los casos de uso sobre un store en memoria.
type ledger struct {
	store       *memory.Store
	intake      *inventory.IntakeUseCase
	guard       *inventory.AuditGuard
	thresholds  *inventory.ThresholdRegistry
	coordinator *inventory.DeliveryCoordinator
	reconciler  *inventory.Reconciler
	notifier    *recordingNotifier
}

func newLedger(t *testing.T) *ledger {
	t.Helper()
	store := memory.NewStore()
	log := logger.Nop()
	n := &recordingNotifier{}
	return &ledger{
		store:      store,
		intake:     inventory.NewIntakeUseCase(store, store.LotRepository(), store.CenterRepository(), log, 5),
		guard:      inventory.NewAuditGuard(store, log),
		thresholds: inventory.NewThresholdRegistry(store.ThresholdRepository(), store.LotRepository()),
		coordinator: inventory.NewDeliveryCoordinator(
			store, inventory.NewFIFOAllocator(),
			store.DeliveryRepository(), store.WorkerRepository(), store.CenterRepository(),
			inventory.CoordinatorConfig{TxTimeout: 5 * time.Second, MaxRetries: 1},
			log, n,
		),
		reconciler: inventory.NewReconciler(store.LotRepository(), store.DeliveryRepository(), log),
		notifier:   n,
	}
}

func date(s string) *time.Time {
	t, err := time.Parse(entity.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func (l *ledger) addLot(t *testing.T, companyID, centerID string, v entity.ProductVariant, qty int64, cost, day string) *entity.Lot {
	t.Helper()
	lot, err := l.intake.CreateLot(context.Background(), inventory.IntakeInput{
		CompanyID:     companyID,
		UserID:        userID,
		Variant:       v,
		CenterID:      centerID,
		Quantity:      qty,
		UnitCost:      decimal.RequireFromString(cost),
		IngestionDate: date(day),
	})
	require.NoError(t, err)
	return lot
}

func (l *ledger) addCenter(t *testing.T, companyID, name string) *entity.Center {
	t.Helper()
	c := &entity.Center{ID: uuid.New().String(), CompanyID: companyID, Name: name, CreatedAt: time.Now().UTC()}
	require.NoError(t, l.store.CenterRepository().Create(context.Background(), c))
	return c
}

func (l *ledger) addWorker(t *testing.T, companyID, centerID, name string) *entity.Worker {
	t.Helper()
	w := &entity.Worker{ID: uuid.New().String(), CompanyID: companyID, CenterID: centerID, Name: name, CreatedAt: time.Now().UTC()}
	require.NoError(t, l.store.WorkerRepository().Create(context.Background(), w))
	return w
}

func (l *ledger) lot(t *testing.T, id string) *entity.Lot {
	t.Helper()
	lot, err := l.store.LotRepository().GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, lot)
	return lot
}

// deliveryTo petición de entrega de una sola línea desde la bodega central.
func deliveryTo(w *entity.Worker, key string, v entity.ProductVariant, qty int64) inventory.SubmitInput {
	return inventory.SubmitInput{
		CompanyID:      w.CompanyID,
		UserID:         userID,
		IdempotencyKey: key,
		Destination:    entity.Destination{WorkerID: w.ID, CenterID: w.CenterID},
		Lines:          []inventory.LineInput{{Variant: v, Quantity: qty}},
	}
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (n *recordingNotifier) DeliveryCommitted(_ context.Context, d *entity.Delivery) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, d.ID)
	return n.err
}

// notified espera las notificaciones despachadas y devuelve cuántas llegaron.
func (l *ledger) notified(t *testing.T) int {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, l.coordinator.Wait(ctx))
	return l.notifier.count()
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

// blockingNotifier retiene cada notificación hasta que se cierra release.
type blockingNotifier struct {
	release <-chan struct{}
	recordingNotifier
}

func (n *blockingNotifier) DeliveryCommitted(ctx context.Context, d *entity.Delivery) error {
	select {
	case <-n.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return n.recordingNotifier.DeliveryCommitted(ctx, d)
}
