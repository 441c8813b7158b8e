package inventory_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/epp-ledger/internal/domain"
	"github.com/jhoicas/epp-ledger/internal/domain/entity"
	"github.com/jhoicas/epp-ledger/internal/domain/inventory"
)

func day(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

func lot(id string, ingested time.Time, qty int64, cost int64) *entity.Lot {
	return &entity.Lot{
		ID: id, IngestionDate: ingested, CreatedAt: ingested.Add(time.Hour),
		QuantityInitial: qty, QuantityAvailable: qty, UnitCost: decimal.NewFromInt(cost),
	}
}

// Escenario de referencia: 10@1000 el 01-01 y 5@1200 el 01-05; entregar 12.
func TestAllocate_EscenarioCasco(t *testing.T) {
	l1 := lot("l1", day(1), 10, 1000)
	l2 := lot("l2", day(5), 5, 1200)

	allocs, err := inventory.Allocate("Cabeza|Casco X|", []*entity.Lot{l2, l1}, 12)
	require.NoError(t, err)
	require.Len(t, allocs, 2)

	assert.Equal(t, "l1", allocs[0].LotID)
	assert.Equal(t, int64(10), allocs[0].Quantity)
	assert.Equal(t, "l2", allocs[1].LotID)
	assert.Equal(t, int64(2), allocs[1].Quantity)
	assert.True(t, decimal.NewFromInt(12400).Equal(inventory.WeightedCost(allocs)))
	assert.Equal(t, int64(0), l1.QuantityAvailable)
	assert.Equal(t, int64(3), l2.QuantityAvailable)
}

func TestAllocate_OrdenFIFONuncaInverso(t *testing.T) {
	l1 := lot("l1", day(1), 5, 100)
	l2 := lot("l2", day(2), 5, 100)

	allocs, err := inventory.Allocate("k", []*entity.Lot{l2, l1}, 7)
	require.NoError(t, err)
	assert.Equal(t, []entity.Allocation{
		{LotID: "l1", Quantity: 5, UnitCost: l1.UnitCost},
		{LotID: "l2", Quantity: 2, UnitCost: l2.UnitCost},
	}, allocs)
}

func TestAllocate_DesempatePorCreacion(t *testing.T) {
	a := lot("a", day(3), 4, 10)
	b := lot("b", day(3), 4, 20)
	a.CreatedAt = day(3).Add(2 * time.Hour)
	b.CreatedAt = day(3).Add(1 * time.Hour)

	allocs, err := inventory.Allocate("k", []*entity.Lot{a, b}, 5)
	require.NoError(t, err)
	assert.Equal(t, "b", allocs[0].LotID, "el lote creado primero se consume primero")
	assert.Equal(t, int64(4), allocs[0].Quantity)
	assert.Equal(t, "a", allocs[1].LotID)
}

func TestAllocate_IgnoraAnuladosYAgotados(t *testing.T) {
	voided := lot("v", day(1), 50, 1)
	voided.Voided = true
	empty := lot("e", day(1), 5, 1)
	empty.QuantityAvailable = 0
	ok := lot("ok", day(9), 3, 7)

	allocs, err := inventory.Allocate("k", []*entity.Lot{voided, empty, ok}, 3)
	require.NoError(t, err)
	require.Len(t, allocs, 1)
	assert.Equal(t, "ok", allocs[0].LotID)
	assert.Equal(t, int64(50), voided.QuantityAvailable)
}

func TestAllocate_StockInsuficienteNoTocaLotes(t *testing.T) {
	l1 := lot("l1", day(1), 5, 100)
	l2 := lot("l2", day(2), 5, 100)

	_, err := inventory.Allocate("Manos|Guante|9", []*entity.Lot{l1, l2}, 13)
	require.Error(t, err)

	var insufficient *domain.InsufficientStockError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, int64(3), insufficient.Shortfall)
	assert.Equal(t, int64(10), insufficient.Available)
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))
	assert.Equal(t, int64(5), l1.QuantityAvailable, "no debe quedar consumo parcial")
	assert.Equal(t, int64(5), l2.QuantityAvailable)
}

func TestAllocate_SinLotes(t *testing.T) {
	_, err := inventory.Allocate("k", nil, 4)
	var insufficient *domain.InsufficientStockError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, int64(4), insufficient.Shortfall)
}

func TestAllocate_CantidadNoPositiva(t *testing.T) {
	l1 := lot("l1", day(1), 5, 100)
	for _, q := range []int64{0, -3} {
		_, err := inventory.Allocate("k", []*entity.Lot{l1}, q)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput), "cantidad %d", q)
	}
	assert.Equal(t, int64(5), l1.QuantityAvailable)
}
