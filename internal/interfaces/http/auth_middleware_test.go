package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apphttp "github.com/jhoicas/stockledger-api/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/stockledger-api/pkg/jwt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	testJWTSecret = "test-secret-key-for-unit-tests"
	testUserID    = "00000000-0000-0000-0000-000000000001"
	testTenantID  = "00000000-0000-0000-0000-000000000002"
	testIssuer    = "stockledger-test"
	testExpMin    = 60
)

// buildAuthApp app mínima con el middleware y un handler que devuelve los locals.
func buildAuthApp(mode string) *fiber.App {
	app := fiber.New()
	app.Get("/me", apphttp.AuthMiddleware(mode, testJWTSecret), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user_id":   apphttp.GetUserID(c),
			"tenant_id": apphttp.GetTenantID(c),
		})
	})
	return app
}

func bearer(t *testing.T, userID, tenantID string, expMin int) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, userID, tenantID, testIssuer, expMin)
	require.NoError(t, err, "debe generarse un token JWT válido")
	return "Bearer " + tok
}

func get(t *testing.T, app *fiber.App, headers map[string]string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// ──────────────────────────────────────────────────────────────────────────────
// Modo JWT
// ──────────────────────────────────────────────────────────────────────────────

func TestAuthMiddleware_JWT_ExtraeClaims(t *testing.T) {
	app := buildAuthApp(apphttp.AuthModeJWT)
	resp := get(t, app, map[string]string{"Authorization": bearer(t, testUserID, testTenantID, testExpMin)})
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, testUserID, body["user_id"])
	assert.Equal(t, testTenantID, body["tenant_id"])
}

func TestAuthMiddleware_JWT_Rechazos(t *testing.T) {
	cases := []struct {
		name   string
		header string
	}{
		{"sin header", ""},
		{"sin esquema Bearer", "Token abc"},
		{"token vacío", "Bearer   "},
		{"token malformado", "Bearer token.invalido.aqui"},
	}
	app := buildAuthApp(apphttp.AuthModeJWT)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			headers := map[string]string{}
			if tc.header != "" {
				headers["Authorization"] = tc.header
			}
			resp := get(t, app, headers)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			body, _ := io.ReadAll(resp.Body)
			assert.Contains(t, string(body), "UNAUTHORIZED")
		})
	}
}

func TestAuthMiddleware_JWT_TokenExpirado(t *testing.T) {
	app := buildAuthApp(apphttp.AuthModeJWT)
	resp := get(t, app, map[string]string{"Authorization": bearer(t, testUserID, testTenantID, -1)})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthMiddleware_JWT_SinTenant(t *testing.T) {
	app := buildAuthApp(apphttp.AuthModeJWT)
	resp := get(t, app, map[string]string{"Authorization": bearer(t, testUserID, "", testExpMin)})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "un token sin tenant_id no autoriza")
}

func TestAuthMiddleware_JWT_IgnoraHeadersDeTenant(t *testing.T) {
	app := buildAuthApp(apphttp.AuthModeJWT)
	resp := get(t, app, map[string]string{apphttp.HeaderTenantID: testTenantID})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Modo header
// ──────────────────────────────────────────────────────────────────────────────

func TestAuthMiddleware_Header(t *testing.T) {
	app := buildAuthApp(apphttp.AuthModeHeader)
	resp := get(t, app, map[string]string{
		apphttp.HeaderTenantID: "tenant-a",
		apphttp.HeaderUserID:   "user-a",
	})
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "tenant-a", body["tenant_id"])
	assert.Equal(t, "user-a", body["user_id"])
}

func TestAuthMiddleware_Header_SinTenant(t *testing.T) {
	app := buildAuthApp(apphttp.AuthModeHeader)
	resp := get(t, app, map[string]string{apphttp.HeaderUserID: "user-a"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// JWT pkg
// ──────────────────────────────────────────────────────────────────────────────

func TestJWT_GenerateAndParse(t *testing.T) {
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, testTenantID, testIssuer, testExpMin)
	require.NoError(t, err)

	userID, tenantID, err := pkgjwt.Parse(testJWTSecret, tok)
	require.NoError(t, err)
	assert.Equal(t, testUserID, userID)
	assert.Equal(t, testTenantID, tenantID)
}

func TestJWT_SecretIncorrecto_RetornaError(t *testing.T) {
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, testTenantID, testIssuer, testExpMin)
	require.NoError(t, err)

	_, _, err = pkgjwt.Parse("otro-secret-completamente-distinto", tok)
	assert.Error(t, err, "secret incorrecto debe invalidar el token")
}
