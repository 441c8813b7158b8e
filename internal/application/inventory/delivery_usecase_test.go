package inventory_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/epp-ledger/internal/application/inventory"
	"github.com/jhoicas/epp-ledger/internal/domain"
	"github.com/jhoicas/epp-ledger/internal/domain/entity"
	"github.com/jhoicas/epp-ledger/pkg/logger"
)

func TestSubmit_ConsumeLotesEnOrdenFIFO(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	// El segundo lote se registra antes pero tiene fecha posterior: manda la fecha de ingreso.
	lot2 := l.addLot(t, companyA, "", casco, 5, "1200", "2024-01-05")
	lot1 := l.addLot(t, companyA, "", casco, 10, "1000", "2024-01-01")
	center := l.addCenter(t, companyA, "Faena Norte")
	worker := l.addWorker(t, companyA, center.ID, "Ana Pérez")

	res, err := l.coordinator.Submit(ctx, deliveryTo(worker, "k-1", casco, 12))
	require.NoError(t, err)
	require.False(t, res.Replayed)

	d := res.Delivery
	assert.Equal(t, entity.DeliveryCommitted, d.Status)
	require.Len(t, d.Lines, 1)
	allocs := d.Lines[0].Allocations
	require.Len(t, allocs, 2)
	assert.Equal(t, lot1.ID, allocs[0].LotID)
	assert.Equal(t, int64(10), allocs[0].Quantity)
	assert.True(t, allocs[0].UnitCost.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, lot2.ID, allocs[1].LotID)
	assert.Equal(t, int64(2), allocs[1].Quantity)
	assert.True(t, allocs[1].UnitCost.Equal(decimal.NewFromInt(1200)))
	assert.True(t, d.TotalCost.Equal(decimal.NewFromInt(12400)), "total=%s", d.TotalCost)
	assert.Equal(t, int64(12), d.TotalUnits)
	assert.Equal(t, "1033.33", d.Lines[0].WeightedUnitCost().StringFixed(2))

	assert.Equal(t, int64(0), l.lot(t, lot1.ID).QuantityAvailable)
	assert.Equal(t, int64(3), l.lot(t, lot2.ID).QuantityAvailable)
	assert.Equal(t, 1, l.notified(t))
}

func TestSubmit_StockInsuficienteNoDescuentaNada(t *testing.T) {
	l := newLedger(t)
	lot := l.addLot(t, companyA, "", casco, 4, "1000", "2024-01-01")
	// "Altura|Arnés|" se asigna antes que el casco por orden de clave.
	arnes := entity.ProductVariant{Category: "Altura", ProductName: "Arnés"}
	aLot := l.addLot(t, companyA, "", arnes, 10, "300", "2024-01-01")
	worker := l.addWorker(t, companyA, l.addCenter(t, companyA, "Planta").ID, "Luis")

	in := deliveryTo(worker, "k-short", arnes, 2)
	in.Lines = append(in.Lines, inventory.LineInput{Variant: casco, Quantity: 7})
	_, err := l.coordinator.Submit(context.Background(), in)

	var shortage *domain.InsufficientStockError
	require.ErrorAs(t, err, &shortage)
	assert.Equal(t, int64(3), shortage.Shortfall)
	assert.Equal(t, casco.Key(), shortage.VariantKey)
	assert.Equal(t, int64(4), l.lot(t, lot.ID).QuantityAvailable)
	assert.Equal(t, int64(10), l.lot(t, aLot.ID).QuantityAvailable, "la línea ya asignada debe revertirse")
	assert.Equal(t, 0, l.notified(t))

	// La clave no queda tomada: un reintento válido la usa.
	in.Lines = in.Lines[:1]
	res, err := l.coordinator.Submit(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, res.Replayed)
}

func TestSubmit_ReintentoConMismaClaveDevuelveLaMismaEntrega(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	lot := l.addLot(t, companyA, "", casco, 10, "1000", "2024-01-01")
	worker := l.addWorker(t, companyA, l.addCenter(t, companyA, "Planta").ID, "Luis")

	first, err := l.coordinator.Submit(ctx, deliveryTo(worker, "k-idem", casco, 3))
	require.NoError(t, err)
	second, err := l.coordinator.Submit(ctx, deliveryTo(worker, "k-idem", casco, 3))
	require.NoError(t, err)

	assert.False(t, first.Replayed)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Delivery.ID, second.Delivery.ID)
	assert.Equal(t, first.Delivery.Lines, second.Delivery.Lines)
	assert.True(t, first.Delivery.TotalCost.Equal(second.Delivery.TotalCost))
	assert.Equal(t, int64(7), l.lot(t, lot.ID).QuantityAvailable, "un solo descuento")
	assert.Equal(t, 1, l.notified(t), "el reintento no notifica")

	// Otro payload con la misma clave: se devuelve la entrega original sin tocar stock.
	third, err := l.coordinator.Submit(ctx, deliveryTo(worker, "k-idem", casco, 5))
	require.NoError(t, err)
	assert.True(t, third.Replayed)
	assert.Equal(t, int64(3), third.Delivery.TotalUnits)
	assert.Equal(t, int64(7), l.lot(t, lot.ID).QuantityAvailable)
}

func TestSubmit_ReintentosConcurrentesConMismaClave(t *testing.T) {
	l := newLedger(t)
	lot := l.addLot(t, companyA, "", casco, 10, "1000", "2024-01-01")
	worker := l.addWorker(t, companyA, l.addCenter(t, companyA, "Planta").ID, "Luis")

	const n = 8
	var wg sync.WaitGroup
	ids := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := l.coordinator.Submit(context.Background(), deliveryTo(worker, "k-race", casco, 2))
			errs[i] = err
			if err == nil {
				ids[i] = res.Delivery.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	assert.Equal(t, int64(8), l.lot(t, lot.ID).QuantityAvailable)
}

func TestSubmit_SinSobreventaBajoConcurrencia(t *testing.T) {
	l := newLedger(t)
	l.addLot(t, companyA, "", casco, 6, "1000", "2024-01-01")
	l.addLot(t, companyA, "", casco, 4, "1100", "2024-01-02")
	worker := l.addWorker(t, companyA, l.addCenter(t, companyA, "Planta").ID, "Luis")

	const n = 25
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok, short int
		other     []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := l.coordinator.Submit(context.Background(), deliveryTo(worker, fmt.Sprintf("k-%d", i), casco, 1))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrInsufficientStock):
				short++
			default:
				other = append(other, err)
			}
		}(i)
	}
	wg.Wait()

	assert.Empty(t, other)
	assert.Equal(t, 10, ok)
	assert.Equal(t, n-10, short)

	stock, err := l.intake.Availability(context.Background(), companyA, nil)
	require.NoError(t, err)
	assert.Empty(t, stock)

	report, err := l.reconciler.Reconcile(context.Background(), companyA)
	require.NoError(t, err)
	assert.True(t, report.Balanced(), "%+v", report.Discrepancies)
	assert.Equal(t, 2, report.LotsChecked)
}

func TestSubmit_Validaciones(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	center := l.addCenter(t, companyA, "Planta")
	worker := l.addWorker(t, companyA, center.ID, "Luis")
	otherCenter := l.addCenter(t, companyA, "Bodega Sur")

	cases := []struct {
		name  string
		mod   func(in *inventory.SubmitInput)
		field string
	}{
		{"sin clave", func(in *inventory.SubmitInput) { in.IdempotencyKey = "  " }, "Idempotency-Key"},
		{"sin líneas", func(in *inventory.SubmitInput) { in.Lines = nil }, "lines"},
		{"cantidad cero", func(in *inventory.SubmitInput) { in.Lines[0].Quantity = 0 }, "lines[0].quantity"},
		{"cantidad sobre el tope", func(in *inventory.SubmitInput) { in.Lines[0].Quantity = inventory.MaxQuantity + 1 }, "lines[0].quantity"},
		{"sin producto", func(in *inventory.SubmitInput) { in.Lines[0].Variant.ProductName = "" }, "lines[0].productName"},
		{"sin trabajador", func(in *inventory.SubmitInput) { in.Destination.WorkerID = "" }, "destination.workerId"},
		{"sin centro", func(in *inventory.SubmitInput) { in.Destination.CenterID = "" }, "destination.centerId"},
		{"trabajador inexistente", func(in *inventory.SubmitInput) { in.Destination.WorkerID = "nope" }, "destination.workerId"},
		{"centro distinto al del trabajador", func(in *inventory.SubmitInput) { in.Destination.CenterID = otherCenter.ID }, "destination.centerId"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := deliveryTo(worker, "k-val", casco, 1)
			tc.mod(&in)
			_, err := l.coordinator.Submit(ctx, in)
			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func TestSubmit_TrabajadorDeOtraEmpresa(t *testing.T) {
	l := newLedger(t)
	l.addLot(t, companyA, "", casco, 10, "1000", "2024-01-01")
	foreign := l.addWorker(t, companyB, "", "Intruso")
	center := l.addCenter(t, companyA, "Planta")

	in := deliveryTo(foreign, "k-x", casco, 1)
	in.CompanyID = companyA
	in.Destination.CenterID = center.ID
	_, err := l.coordinator.Submit(context.Background(), in)

	var tm *domain.TenantMismatchError
	require.ErrorAs(t, err, &tm)
	assert.Equal(t, "worker", tm.Entity)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestSubmit_LotesDeOtraEmpresaNoSeConsumen(t *testing.T) {
	l := newLedger(t)
	l.addLot(t, companyB, "", casco, 10, "1000", "2024-01-01")
	worker := l.addWorker(t, companyA, l.addCenter(t, companyA, "Planta").ID, "Luis")

	_, err := l.coordinator.Submit(context.Background(), deliveryTo(worker, "k-1", casco, 1))
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestSubmit_FalloDeNotificacionNoRevierte(t *testing.T) {
	l := newLedger(t)
	lot := l.addLot(t, companyA, "", casco, 10, "1000", "2024-01-01")
	worker := l.addWorker(t, companyA, l.addCenter(t, companyA, "Planta").ID, "Luis")
	l.notifier.err = errors.New("webhook caído")

	res, err := l.coordinator.Submit(context.Background(), deliveryTo(worker, "k-1", casco, 2))
	require.NoError(t, err)
	assert.Equal(t, entity.DeliveryCommitted, res.Delivery.Status)
	assert.Equal(t, int64(8), l.lot(t, lot.ID).QuantityAvailable)
	assert.Equal(t, 1, l.notified(t))
}

// La respuesta no espera al notificador: la entrega vuelve confirmada aunque el webhook siga en curso.
func TestSubmit_NotificacionNoBloqueaLaRespuesta(t *testing.T) {
	l := newLedger(t)
	release := make(chan struct{})
	slow := &blockingNotifier{release: release}
	coordinator := inventory.NewDeliveryCoordinator(
		l.store, inventory.NewFIFOAllocator(),
		l.store.DeliveryRepository(), l.store.WorkerRepository(), l.store.CenterRepository(),
		inventory.CoordinatorConfig{TxTimeout: 5 * time.Second},
		logger.Nop(), slow,
	)
	l.addLot(t, companyA, "", casco, 10, "1000", "2024-01-01")
	worker := l.addWorker(t, companyA, l.addCenter(t, companyA, "Planta").ID, "Luis")

	done := make(chan error, 1)
	go func() {
		_, err := coordinator.Submit(context.Background(), deliveryTo(worker, "k-lento", casco, 1))
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Submit esperó al notificador")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, coordinator.Wait(ctx), context.DeadlineExceeded)

	close(release)
	require.NoError(t, coordinator.Wait(context.Background()))
	assert.Equal(t, 1, slow.count())
}

func TestSubmit_ClaveDeTrasladoNoSirveParaEntrega(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	lot := l.addLot(t, companyA, "", casco, 10, "1000", "2024-01-01")
	norte := l.addCenter(t, companyA, "Faena Norte")
	worker := l.addWorker(t, companyA, norte.ID, "Ana")

	tr, err := l.coordinator.Transfer(ctx, inventory.TransferInput{
		CompanyID: companyA, UserID: userID, IdempotencyKey: "k-compartida",
		ToCenterID: norte.ID, Variant: casco, Quantity: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.DeliveryKindTransfer, tr.Delivery.Kind)

	_, err = l.coordinator.Submit(ctx, deliveryTo(worker, "k-compartida", casco, 1))
	require.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, int64(6), l.lot(t, lot.ID).QuantityAvailable)

	// El mismo traslado con la misma clave sí es un reintento.
	again, err := l.coordinator.Transfer(ctx, inventory.TransferInput{
		CompanyID: companyA, UserID: userID, IdempotencyKey: "k-compartida",
		ToCenterID: norte.ID, Variant: casco, Quantity: 4,
	})
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, tr.Delivery.ID, again.Delivery.ID)
}

func TestGet_EntregaDeOtraEmpresa(t *testing.T) {
	l := newLedger(t)
	l.addLot(t, companyA, "", casco, 10, "1000", "2024-01-01")
	worker := l.addWorker(t, companyA, l.addCenter(t, companyA, "Planta").ID, "Luis")
	res, err := l.coordinator.Submit(context.Background(), deliveryTo(worker, "k-1", casco, 2))
	require.NoError(t, err)

	got, err := l.coordinator.Get(context.Background(), companyA, res.Delivery.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Delivery.ID, got.ID)

	_, err = l.coordinator.Get(context.Background(), companyB, res.Delivery.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = l.coordinator.Get(context.Background(), companyA, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := l.coordinator.List(context.Background(), companyA, 0, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestTransfer_AcreditaConservandoCostoYPosicionFIFO(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	norte := l.addCenter(t, companyA, "Faena Norte")
	old := l.addLot(t, companyA, "", casco, 3, "900", "2024-01-01")
	newer := l.addLot(t, companyA, "", casco, 5, "1000", "2024-02-01")
	// Stock propio del centro con fecha intermedia.
	local := l.addLot(t, companyA, norte.ID, casco, 2, "950", "2024-01-15")

	res, err := l.coordinator.Transfer(ctx, inventory.TransferInput{
		CompanyID:  companyA,
		UserID:     userID,
		ToCenterID: norte.ID,
		Variant:    casco,
		Quantity:   4,
	})
	require.NoError(t, err)
	d := res.Delivery
	assert.Equal(t, entity.DeliveryKindTransfer, d.Kind)
	assert.Contains(t, d.IdempotencyKey, "transfer-")
	require.Len(t, d.Lines[0].Allocations, 2)
	assert.Equal(t, int64(0), l.lot(t, old.ID).QuantityAvailable)
	assert.Equal(t, int64(4), l.lot(t, newer.ID).QuantityAvailable)

	credit1 := l.lot(t, d.Lines[0].Allocations[0].TargetLotID)
	assert.Equal(t, norte.ID, credit1.CenterID)
	assert.Equal(t, old.ID, credit1.OriginLotID)
	assert.Equal(t, int64(3), credit1.QuantityInitial)
	assert.True(t, credit1.UnitCost.Equal(old.UnitCost))
	assert.True(t, credit1.IngestionDate.Equal(old.IngestionDate))
	credit2 := l.lot(t, d.Lines[0].Allocations[1].TargetLotID)
	assert.Equal(t, int64(1), credit2.QuantityInitial)

	// Total disponible de la empresa no cambia con un traslado.
	all, err := l.intake.Availability(ctx, companyA, nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(10), all[0].Available)

	// En el centro: crédito de enero 1, lote local de enero 15, crédito de febrero.
	worker := l.addWorker(t, companyA, norte.ID, "Ana")
	in := deliveryTo(worker, "k-norte", casco, 4)
	in.Destination.SourceCenterID = norte.ID
	del, err := l.coordinator.Submit(ctx, in)
	require.NoError(t, err)
	allocs := del.Delivery.Lines[0].Allocations
	require.Len(t, allocs, 2)
	assert.Equal(t, credit1.ID, allocs[0].LotID)
	assert.Equal(t, int64(3), allocs[0].Quantity)
	assert.Equal(t, local.ID, allocs[1].LotID)
	assert.Equal(t, int64(1), allocs[1].Quantity)

	// Un lote acreditado no es editable aunque esté intacto.
	assert.False(t, inventory.IsEditable(l.lot(t, credit2.ID)))
	_, err = l.guard.VoidLot(ctx, companyA, userID, credit2.ID, "error")
	assert.ErrorIs(t, err, domain.ErrAlreadyConsumed)

	report, err := l.reconciler.Reconcile(ctx, companyA)
	require.NoError(t, err)
	assert.True(t, report.Balanced(), "%+v", report.Discrepancies)
	assert.Equal(t, 5, report.LotsChecked, "los créditos también se concilian")
}

func TestTransfer_HistorialDeIngresosNoCambia(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	norte := l.addCenter(t, companyA, "Faena Norte")
	lot := l.addLot(t, companyA, "", casco, 10, "1000", "2024-01-01")

	_, err := l.coordinator.Transfer(ctx, inventory.TransferInput{
		CompanyID: companyA, UserID: userID, ToCenterID: norte.ID, Variant: casco, Quantity: 4,
	})
	require.NoError(t, err)

	lots, total, err := l.intake.ListLots(ctx, companyA, entity.LotFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, lots, 1)
	assert.Equal(t, lot.ID, lots[0].ID)
	assert.Equal(t, int64(10), lots[0].QuantityInitial)

	inNorte, _, err := l.intake.ListLots(ctx, companyA, entity.LotFilter{CenterID: &norte.ID})
	require.NoError(t, err)
	assert.Empty(t, inNorte)

	withCredits, total, err := l.intake.ListLots(ctx, companyA, entity.LotFilter{IncludeTransfers: true})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	var credit *entity.Lot
	for _, row := range withCredits {
		if row.IsTransferCredit() {
			credit = row
		}
	}
	require.NotNil(t, credit)
	assert.Equal(t, lot.ID, credit.OriginLotID)
	assert.Equal(t, norte.ID, credit.CenterID)
}

func TestTransfer_MismoCentroEsInvalido(t *testing.T) {
	l := newLedger(t)
	norte := l.addCenter(t, companyA, "Faena Norte")
	_, err := l.coordinator.Transfer(context.Background(), inventory.TransferInput{
		CompanyID: companyA, UserID: userID,
		FromCenterID: norte.ID, ToCenterID: " " + norte.ID,
		Variant: casco, Quantity: 1,
	})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "toCenterId", ve.Field)
}

func TestTransfer_CentroDeOtraEmpresa(t *testing.T) {
	l := newLedger(t)
	l.addLot(t, companyA, "", casco, 5, "1000", "2024-01-01")
	foreign := l.addCenter(t, companyB, "Ajeno")
	_, err := l.coordinator.Transfer(context.Background(), inventory.TransferInput{
		CompanyID: companyA, UserID: userID, ToCenterID: foreign.ID, Variant: casco, Quantity: 1,
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
