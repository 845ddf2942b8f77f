package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stockledger-api/internal/application/dto"
	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/pkg/logger"
)

// ErrorHandler único punto de traducción error -> HTTP. Los handlers devuelven el
// error de dominio tal cual; los 500 se registran aquí y el mensaje no sale al cliente.
func ErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	if log == nil {
		log = logger.Nop()
	}
	return func(c *fiber.Ctx, err error) error {
		status, body := mapError(err)
		if status == fiber.StatusServiceUnavailable {
			c.Set(fiber.HeaderRetryAfter, "1")
		}
		if status >= fiber.StatusInternalServerError && status != fiber.StatusServiceUnavailable {
			log.Error().Err(err).
				Str("method", c.Method()).
				Str("path", c.Path()).
				Str("tenant_id", GetTenantID(c)).
				Msg("error no controlado")
		}
		return c.Status(status).JSON(body)
	}
}

func mapError(err error) (int, dto.ErrorResponse) {
	var (
		ve  *domain.ValidationError
		ise *domain.InsufficientStockError
		ree *domain.ReturnExceedsPurchaseError
		nfe *domain.NotFoundError
		ce  *domain.ConflictError
		fe  *fiber.Error
	)
	switch {
	case errors.As(err, &ve):
		return fiber.StatusBadRequest, dto.ErrorResponse{
			Code: "VALIDATION_ERROR", Message: ve.Error(),
			Details: map[string]any{"field": ve.Field, "reason": ve.Reason},
		}
	case errors.As(err, &ise):
		return fiber.StatusConflict, dto.ErrorResponse{
			Code: "INSUFFICIENT_STOCK", Message: ise.Error(),
			Details: map[string]any{
				"product_id":   ise.ProductID,
				"warehouse_id": ise.WarehouseID,
				"available":    ise.Available,
				"requested":    ise.Requested,
			},
		}
	case errors.As(err, &ree):
		return fiber.StatusUnprocessableEntity, dto.ErrorResponse{
			Code: "RETURN_EXCEEDS_PURCHASE", Message: ree.Error(),
			Details: map[string]any{
				"customer_id":  ree.CustomerID,
				"product_id":   ree.ProductID,
				"warehouse_id": ree.WarehouseID,
				"returnable":   ree.Returnable,
				"requested":    ree.Requested,
			},
		}
	case errors.As(err, &nfe):
		return fiber.StatusNotFound, dto.ErrorResponse{
			Code: "NOT_FOUND", Message: nfe.Error(),
			Details: map[string]any{"resource": nfe.Resource, "id": nfe.ID},
		}
	case errors.As(err, &ce):
		if ce.Transient {
			return fiber.StatusServiceUnavailable, dto.ErrorResponse{
				Code: "TX_CONFLICT", Message: ce.Error(),
				Details: map[string]any{"attempts": ce.Attempts},
			}
		}
		return fiber.StatusConflict, dto.ErrorResponse{
			Code: "IDEMPOTENCY_CONFLICT", Message: ce.Error(),
			Details: map[string]any{"idempotency_key": ce.IdempotencyKey},
		}
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized, dto.ErrorResponse{Code: "UNAUTHORIZED", Message: err.Error()}
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: "VALIDATION_ERROR", Message: err.Error()}
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()}
	case errors.As(err, &fe):
		return fe.Code, dto.ErrorResponse{Code: fiberCode(fe.Code), Message: fe.Message}
	default:
		return fiber.StatusInternalServerError, dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"}
	}
}

// fiberCode errores propios de fiber (ruta inexistente, body demasiado grande...).
func fiberCode(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return "NOT_FOUND"
	case fiber.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case fiber.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case fiber.StatusBadRequest:
		return "VALIDATION_ERROR"
	default:
		if status >= fiber.StatusInternalServerError {
			return "INTERNAL"
		}
		return "HTTP_ERROR"
	}
}
