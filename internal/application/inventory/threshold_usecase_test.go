package inventory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/epp-ledger/internal/domain"
	"github.com/jhoicas/epp-ledger/internal/domain/entity"
)

func TestEvaluate_SoloVariantesConUmbral(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	guante := entity.ProductVariant{Category: "Manos", ProductName: "Guante", Size: "9"}
	tapon := entity.ProductVariant{Category: "Oídos", ProductName: "Tapón"}
	l.addLot(t, companyA, "", casco, 5, "1000", "2024-01-01")
	l.addLot(t, companyA, "", guante, 40, "300", "2024-01-01")
	l.addLot(t, companyA, "", tapon, 100, "20", "2024-01-01")

	_, err := l.thresholds.SetThreshold(ctx, companyA, userID, casco, 5)
	require.NoError(t, err)
	_, err = l.thresholds.SetThreshold(ctx, companyA, userID, guante, 10)
	require.NoError(t, err)

	report, err := l.thresholds.Evaluate(ctx, companyA)
	require.NoError(t, err)
	require.Len(t, report.Items, 2, "el tapón no tiene umbral y no aparece")
	assert.Equal(t, 1, report.CriticalCount)

	byKey := map[string]bool{}
	for _, it := range report.Items {
		byKey[it.Variant.Key()] = it.Critical
	}
	assert.True(t, byKey[casco.Key()], "disponible igual al mínimo es crítico")
	assert.False(t, byKey[guante.Key()])

	critical := report.Critical()
	require.Len(t, critical, 1)
	assert.Equal(t, casco.Key(), critical[0].Variant.Key())
}

func TestEvaluate_VarianteSinStockConUmbral(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	_, err := l.thresholds.SetThreshold(ctx, companyA, userID, casco, 0)
	require.NoError(t, err)

	report, err := l.thresholds.Evaluate(ctx, companyA)
	require.NoError(t, err)
	require.Len(t, report.Items, 1)
	assert.Equal(t, int64(0), report.Items[0].Available)
	assert.True(t, report.Items[0].Critical)
}

func TestEvaluate_SumaTodosLosCentros(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	norte := l.addCenter(t, companyA, "Norte")
	l.addLot(t, companyA, "", casco, 3, "1000", "2024-01-01")
	l.addLot(t, companyA, norte.ID, casco, 3, "1000", "2024-01-01")
	_, err := l.thresholds.SetThreshold(ctx, companyA, userID, casco, 5)
	require.NoError(t, err)

	report, err := l.thresholds.Evaluate(ctx, companyA)
	require.NoError(t, err)
	assert.Zero(t, report.CriticalCount)
	assert.Equal(t, int64(6), report.Items[0].Available)
}

func TestSetThreshold_ReemplazaYValida(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	_, err := l.thresholds.SetThreshold(ctx, companyA, userID, casco, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = l.thresholds.SetThreshold(ctx, companyA, userID, casco, 5)
	require.NoError(t, err)
	_, err = l.thresholds.SetThreshold(ctx, companyA, userID, entity.ProductVariant{Category: " Cabeza ", ProductName: "Casco ", Size: "M"}, 2)
	require.NoError(t, err)

	report, err := l.thresholds.Evaluate(ctx, companyA)
	require.NoError(t, err)
	require.Len(t, report.Items, 1)
	assert.Equal(t, int64(2), report.Items[0].MinQuantity)

	companies, err := l.thresholds.Companies(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{companyA}, companies)

	other, err := l.thresholds.Evaluate(ctx, companyB)
	require.NoError(t, err)
	assert.Empty(t, other.Items)
}
