package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stockledger-api/internal/application/dto"
	"github.com/jhoicas/stockledger-api/pkg/jwt"
)

// Locals keys para TenantID y UserID en Fiber.
const (
	LocalUserID   = "user_id"
	LocalTenantID = "tenant_id"
)

// Headers del modo "header" (gateway de confianza delante de la API).
const (
	HeaderTenantID = "X-Tenant-ID"
	HeaderUserID   = "X-User-ID"
)

// Modos de autenticación.
const (
	AuthModeJWT    = "jwt"
	AuthModeHeader = "header"
)

// AuthMiddleware resuelve tenant y usuario según el modo y los deja en c.Locals.
// Cualquier modo desconocido se trata como jwt.
func AuthMiddleware(mode, jwtSecret string) fiber.Handler {
	if mode == AuthModeHeader {
		return headerAuth
	}
	return jwtAuth(jwtSecret)
}

func jwtAuth(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return unauthorized(c, "Authorization header requerido")
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return unauthorized(c, "formato: Bearer <token>")
		}
		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			return unauthorized(c, "token vacío")
		}
		userID, tenantID, err := jwt.Parse(jwtSecret, tokenString)
		if err != nil {
			return unauthorized(c, "token inválido o expirado")
		}
		c.Locals(LocalUserID, userID)
		c.Locals(LocalTenantID, tenantID)
		return c.Next()
	}
}

func headerAuth(c *fiber.Ctx) error {
	tenantID := strings.TrimSpace(c.Get(HeaderTenantID))
	if tenantID == "" {
		return unauthorized(c, HeaderTenantID+" requerido")
	}
	c.Locals(LocalTenantID, tenantID)
	c.Locals(LocalUserID, strings.TrimSpace(c.Get(HeaderUserID)))
	return c.Next()
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: msg})
}

// GetUserID devuelve el UserID del contexto (después del middleware de auth).
func GetUserID(c *fiber.Ctx) string {
	s, _ := c.Locals(LocalUserID).(string)
	return s
}

// GetTenantID devuelve el TenantID del contexto (después del middleware de auth).
func GetTenantID(c *fiber.Ctx) string {
	s, _ := c.Locals(LocalTenantID).(string)
	return s
}
