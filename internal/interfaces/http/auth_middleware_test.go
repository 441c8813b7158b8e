package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/epp-ledger/internal/application/dto"
	apphttp "github.com/jhoicas/epp-ledger/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/epp-ledger/pkg/jwt"
)

const (
	testJWTSecret = "test-secret-key-for-unit-tests"
	testUserID    = "00000000-0000-0000-0000-000000000001"
	testCompanyID = "00000000-0000-0000-0000-000000000002"
	testIssuer    = "epp-ledger-test"
)

func testVerifier(t *testing.T) *pkgjwt.Verifier {
	t.Helper()
	v, err := pkgjwt.NewVerifier(testJWTSecret, testIssuer)
	require.NoError(t, err)
	return v
}

// bearer firma un token de una hora para el rol y la empresa indicados.
func bearer(t *testing.T, companyID, role string) string {
	t.Helper()
	tok, err := pkgjwt.Issue(testJWTSecret, testIssuer, pkgjwt.Identity{UserID: testUserID, CompanyID: companyID, Role: role}, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

// guardedApp expone GET /guarded con AuthMiddleware + RequireRole(allowed...) y devuelve los locals.
func guardedApp(t *testing.T, allowed ...string) *fiber.App {
	app := fiber.New()
	app.Get("/guarded",
		apphttp.AuthMiddleware(testVerifier(t)),
		apphttp.RequireRole(allowed...),
		func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{
				"user_id":    apphttp.GetUserID(c),
				"company_id": apphttp.GetCompanyID(c),
				"role":       apphttp.GetRole(c),
			})
		},
	)
	return app
}

func call(t *testing.T, app *fiber.App, authHeader string) (int, dto.ErrorResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	var body dto.ErrorResponse
	if resp.StatusCode != http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	}
	return resp.StatusCode, body
}

// Matriz de permisos del ledger: quién pasa por cada grupo de rutas.
func TestRequireRole_MatrizDePermisos(t *testing.T) {
	readers := []string{apphttp.RoleAdmin, apphttp.RoleBodeguero, apphttp.RoleSupervisor}
	writers := []string{apphttp.RoleAdmin, apphttp.RoleBodeguero}
	admins := []string{apphttp.RoleAdmin}

	cases := []struct {
		group   string
		allowed []string
		role    string
		status  int
	}{
		{"lectura", readers, apphttp.RoleSupervisor, http.StatusOK},
		{"lectura", readers, apphttp.RoleBodeguero, http.StatusOK},
		{"escritura", writers, apphttp.RoleBodeguero, http.StatusOK},
		{"escritura", writers, apphttp.RoleSupervisor, http.StatusForbidden},
		{"auditoría", admins, apphttp.RoleAdmin, http.StatusOK},
		{"auditoría", admins, apphttp.RoleBodeguero, http.StatusForbidden},
		{"auditoría", admins, apphttp.RoleSupervisor, http.StatusForbidden},
		{"lectura", readers, "vendedor", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.group+"/"+tc.role, func(t *testing.T) {
			status, body := call(t, guardedApp(t, tc.allowed...), bearer(t, testCompanyID, tc.role))
			assert.Equal(t, tc.status, status)
			if tc.status == http.StatusForbidden {
				assert.Equal(t, "FORBIDDEN", body.Code)
			}
		})
	}
}

func TestRequireRole_RolEnMayusculas(t *testing.T) {
	status, _ := call(t, guardedApp(t, apphttp.RoleAdmin), bearer(t, testCompanyID, "ADMIN"))
	assert.Equal(t, http.StatusOK, status)
}

func TestRequireRole_TokenSinRol(t *testing.T) {
	status, body := call(t, guardedApp(t, apphttp.RoleAdmin), bearer(t, testCompanyID, ""))
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "MISSING_ROLE", body.Code)
}

func TestAuthMiddleware_TokensRechazados(t *testing.T) {
	foreign, err := pkgjwt.Issue(testJWTSecret, "otro-emisor", pkgjwt.Identity{UserID: testUserID, CompanyID: testCompanyID, Role: "admin"}, time.Hour)
	require.NoError(t, err)
	expired, err := pkgjwt.Issue(testJWTSecret, testIssuer, pkgjwt.Identity{UserID: testUserID, CompanyID: testCompanyID, Role: "admin"}, -time.Hour)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		code   string
	}{
		{"sin encabezado", "", "MISSING_TOKEN"},
		{"esquema distinto", "Basic abc", "INVALID_TOKEN"},
		{"malformado", "Bearer token.invalido.aqui", "INVALID_TOKEN"},
		{"otro emisor", "Bearer " + foreign, "INVALID_TOKEN"},
		{"expirado", "Bearer " + expired, "INVALID_TOKEN"},
		{"sin empresa", bearer(t, "", "admin"), "INVALID_TOKEN"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := call(t, guardedApp(t, apphttp.RoleAdmin), tc.header)
			assert.Equal(t, http.StatusUnauthorized, status)
			assert.Equal(t, tc.code, body.Code)
		})
	}
}

func TestAuthMiddleware_TenantDesdeElToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/guarded?company_id=intruso", nil)
	req.Header.Set("Authorization", bearer(t, testCompanyID, apphttp.RoleBodeguero))
	resp, err := guardedApp(t, apphttp.RoleBodeguero).Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, testUserID, body["user_id"])
	assert.Equal(t, testCompanyID, body["company_id"])
	assert.Equal(t, apphttp.RoleBodeguero, body["role"])
}
