package textnorm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/epp-ledger/pkg/textnorm"
)

func TestFold_QuitaTildesYMayusculas(t *testing.T) {
	assert.Equal(t, "proteccion auditiva", textnorm.Fold("  Protección   AUDITIVA "))
	assert.Equal(t, "guantes nitrilo n°9", textnorm.Fold("Guantes Nitrilo N°9"))
	assert.Equal(t, "", textnorm.Fold("   "))
}

func TestJoin_OmiteVacios(t *testing.T) {
	got := textnorm.Join("Cabeza", "", "Casco Ñandú", "2024-01-05")
	assert.Equal(t, "cabeza casco nandu 2024-01-05", got)
}

func TestContains(t *testing.T) {
	hay := textnorm.Join("Cabeza", "Casco X", "FAC-001")
	assert.True(t, textnorm.Contains(hay, "CASCO"))
	assert.True(t, textnorm.Contains(hay, "fac-001"))
	assert.True(t, textnorm.Contains(hay, ""))
	assert.False(t, textnorm.Contains(hay, "guante"))
}
