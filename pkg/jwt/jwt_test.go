package jwt_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/epp-ledger/pkg/jwt"
)

const secret = "clave-de-prueba"

var bodeguero = jwt.Identity{UserID: "u-1", CompanyID: "c-1", Role: "bodeguero"}

func verifier(t *testing.T, issuer string) *jwt.Verifier {
	t.Helper()
	v, err := jwt.NewVerifier(secret, issuer)
	require.NoError(t, err)
	return v
}

func TestVerify_IdaYVuelta(t *testing.T) {
	tok, err := jwt.Issue(secret, "identidad", bodeguero, time.Hour)
	require.NoError(t, err)

	id, err := verifier(t, "identidad").Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, bodeguero, id)
}

func TestVerify_Rechazos(t *testing.T) {
	good, err := jwt.Issue(secret, "identidad", bodeguero, time.Hour)
	require.NoError(t, err)
	expired, err := jwt.Issue(secret, "identidad", bodeguero, -time.Hour)
	require.NoError(t, err)
	noTenant, err := jwt.Issue(secret, "identidad", jwt.Identity{UserID: "u-1"}, time.Hour)
	require.NoError(t, err)
	noSubject, err := jwt.Issue(secret, "identidad", jwt.Identity{CompanyID: "c-1"}, time.Hour)
	require.NoError(t, err)

	_, err = verifier(t, "identidad").Verify(expired)
	assert.Error(t, err, "expirado")

	_, err = verifier(t, "otro-emisor").Verify(good)
	assert.Error(t, err, "emisor distinto")

	other, err := jwt.NewVerifier("otra-clave", "")
	require.NoError(t, err)
	_, err = other.Verify(good)
	assert.Error(t, err, "firma")

	_, err = verifier(t, "").Verify(noTenant)
	assert.ErrorIs(t, err, jwt.ErrNoTenant)

	_, err = verifier(t, "").Verify(noSubject)
	assert.ErrorIs(t, err, jwt.ErrNoSubject)

	_, err = verifier(t, "").Verify("no.es.jwt")
	assert.Error(t, err)
}

func TestNewVerifier_SecretVacio(t *testing.T) {
	_, err := jwt.NewVerifier("", "x")
	assert.ErrorIs(t, err, jwt.ErrEmptySecret)

	_, err = jwt.Issue("", "x", bodeguero, time.Minute)
	assert.ErrorIs(t, err, jwt.ErrEmptySecret)
}
