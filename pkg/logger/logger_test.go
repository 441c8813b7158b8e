package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/epp-ledger/pkg/logger"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, logger.ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, logger.ParseLevel(" WARN "))
	assert.Equal(t, zerolog.InfoLevel, logger.ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, logger.ParseLevel("ruidoso"))
}

func TestTenantYNamed(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWriter(&buf, "info").Named("coordinator").Tenant("c-1")
	log.Info().Str(logger.FieldDeliveryID, "d-1").Msg("entrega confirmada")
	log.Debug().Msg("no se escribe")

	var ev map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &ev))
	assert.Equal(t, "coordinator", ev[logger.FieldComponent])
	assert.Equal(t, "c-1", ev[logger.FieldCompanyID])
	assert.Equal(t, "d-1", ev[logger.FieldDeliveryID])
	assert.Equal(t, "entrega confirmada", ev["message"])
}

func TestTenantVacioNoAgregaCampo(t *testing.T) {
	var buf bytes.Buffer
	base := logger.NewWriter(&buf, "info")
	assert.Same(t, base, base.Tenant(""))
}
