package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/epp-ledger/internal/domain"
	"github.com/jhoicas/epp-ledger/internal/domain/entity"
	"github.com/jhoicas/epp-ledger/internal/domain/repository"
	"github.com/jhoicas/epp-ledger/internal/infrastructure/memory"
)

const company = "11111111-1111-1111-1111-111111111111"

func newLot(id string, qty int64) *entity.Lot {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &entity.Lot{
		ID:                id,
		CompanyID:         company,
		Variant:           entity.ProductVariant{Category: "Cabeza", ProductName: "Casco"},
		QuantityInitial:   qty,
		QuantityAvailable: qty,
		UnitCost:          decimal.NewFromInt(100),
		IngestionDate:     now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func TestRun_RollbackDeshaceLotesYReservas(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, s.LotRepository().Create(ctx, newLot("lot-1", 10)))

	boom := errors.New("boom")
	err := s.Run(ctx, func(lots repository.LotRepository, deliveries repository.DeliveryRepository) error {
		l, err := lots.GetByIDForUpdate(ctx, "lot-1")
		require.NoError(t, err)
		l.QuantityAvailable = 2
		require.NoError(t, lots.Update(ctx, l))
		require.NoError(t, lots.Create(ctx, newLot("lot-2", 5)))
		ok, err := deliveries.Reserve(ctx, &entity.Delivery{ID: "d-1", CompanyID: company, IdempotencyKey: "k"})
		require.NoError(t, err)
		require.True(t, ok)
		return boom
	})
	require.ErrorIs(t, err, boom)

	l, err := s.LotRepository().GetByID(ctx, "lot-1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), l.QuantityAvailable)

	l2, err := s.LotRepository().GetByID(ctx, "lot-2")
	require.NoError(t, err)
	assert.Nil(t, l2)

	// La clave quedó libre.
	err = s.Run(ctx, func(_ repository.LotRepository, deliveries repository.DeliveryRepository) error {
		ok, err := deliveries.Reserve(ctx, &entity.Delivery{ID: "d-2", CompanyID: company, IdempotencyKey: "k"})
		require.NoError(t, err)
		assert.True(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func TestRun_ReservaDuplicadaDevuelveFalse(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	reserve := func(id string) bool {
		var ok bool
		require.NoError(t, s.Run(ctx, func(_ repository.LotRepository, deliveries repository.DeliveryRepository) error {
			var err error
			ok, err = deliveries.Reserve(ctx, &entity.Delivery{ID: id, CompanyID: company, IdempotencyKey: "same"})
			return err
		}))
		return ok
	}
	assert.True(t, reserve("d-1"))
	assert.False(t, reserve("d-2"))
}

func TestRun_CerrojoOcupadoEsConflicto(t *testing.T) {
	s := memory.NewStore()
	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = s.Run(context.Background(), func(repository.LotRepository, repository.DeliveryRepository) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.Run(ctx, func(repository.LotRepository, repository.DeliveryRepository) error { return nil })
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)
}

func TestUpdate_SaldoFueraDeRango(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, s.LotRepository().Create(ctx, newLot("lot-1", 3)))

	l := newLot("lot-1", 3)
	l.QuantityAvailable = 4
	assert.Error(t, s.LotRepository().Update(ctx, l))
	l.QuantityAvailable = -1
	assert.Error(t, s.LotRepository().Update(ctx, l))
}

func TestListAvailableForUpdate_OrdenFIFOYPool(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	a := newLot("b-lot", 1)
	b := newLot("a-lot", 1) // misma fecha y CreatedAt: desempata el ID
	c := newLot("c-lot", 1)
	c.IngestionDate = c.IngestionDate.AddDate(0, 0, -1)
	d := newLot("d-lot", 1)
	d.CenterID = "norte"
	for _, l := range []*entity.Lot{a, b, c, d} {
		require.NoError(t, s.LotRepository().Create(ctx, l))
	}

	got, err := s.LotRepository().ListAvailableForUpdate(ctx, company, a.Variant, "")
	require.NoError(t, err)
	ids := make([]string, len(got))
	for i, l := range got {
		ids[i] = l.ID
	}
	assert.Equal(t, []string{"c-lot", "a-lot", "b-lot"}, ids)
}
