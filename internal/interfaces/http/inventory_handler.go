package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stockledger-api/internal/application/dto"
	"github.com/jhoicas/stockledger-api/internal/application/inventory"
)

// InventoryHandler movimientos, traslados y saldos (protegido).
type InventoryHandler struct {
	movements *inventory.MovementUseCase
	balances  *inventory.BalanceProjector
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(movements *inventory.MovementUseCase, balances *inventory.BalanceProjector) *InventoryHandler {
	return &InventoryHandler{movements: movements, balances: balances}
}

// RegisterMovement godoc
// @Summary      Registrar movimiento de inventario
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterMovementRequest  true  "product_id, warehouse_id, type (IN|OUT|ADJUSTMENT), quantity"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/v1/stock-movements [post]
func (h *InventoryHandler) RegisterMovement(c *fiber.Ctx) error {
	var in dto.RegisterMovementRequest
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	out, err := h.movements.RegisterMovement(c.UserContext(), GetTenantID(c), GetUserID(c), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// ListMovements GET /api/v1/stock-movements?product_id&warehouse_id&type&limit&offset
func (h *InventoryHandler) ListMovements(c *fiber.Ctx) error {
	var in dto.MovementListRequest
	if err := bindQuery(c, &in); err != nil {
		return err
	}
	out, err := h.movements.ListMovements(c.UserContext(), GetTenantID(c), in)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// Transfer godoc
// @Summary      Trasladar stock entre bodegas
// @Description  Un solo movimiento atómico: TRANSFER negativo en origen y positivo en destino.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TransferRequest  true  "product_id, from_warehouse_id, to_warehouse_id, quantity"
// @Success      201   {object}  dto.TransferResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/v1/stock-transfers [post]
func (h *InventoryHandler) Transfer(c *fiber.Ctx) error {
	var in dto.TransferRequest
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	out, err := h.movements.Transfer(c.UserContext(), GetTenantID(c), GetUserID(c), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetBalance GET /api/v1/stock-balance?product_id&warehouse_id[&verify=true]
// Con verify=true recalcula el saldo desde el ledger y reporta si coincide.
func (h *InventoryHandler) GetBalance(c *fiber.Ctx) error {
	productID, err := requiredQuery(c, "product_id")
	if err != nil {
		return err
	}
	warehouseID, err := requiredQuery(c, "warehouse_id")
	if err != nil {
		return err
	}
	out, err := h.balances.GetBalance(c.UserContext(), GetTenantID(c), productID, warehouseID, c.QueryBool("verify"))
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// GetBalancesByWarehouse GET /api/v1/stock-balance-by-warehouse?product_id
// Incluye las bodegas del tenant sin movimientos (cantidad 0).
func (h *InventoryHandler) GetBalancesByWarehouse(c *fiber.Ctx) error {
	productID, err := requiredQuery(c, "product_id")
	if err != nil {
		return err
	}
	list, err := h.balances.GetBalancesByWarehouse(c.UserContext(), GetTenantID(c), productID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"product_id": productID, "items": list})
}

// GetTotalBalance GET /api/v1/stock-balance-total?product_id
func (h *InventoryHandler) GetTotalBalance(c *fiber.Ctx) error {
	productID, err := requiredQuery(c, "product_id")
	if err != nil {
		return err
	}
	out, err := h.balances.GetTotalBalance(c.UserContext(), GetTenantID(c), productID)
	if err != nil {
		return err
	}
	return c.JSON(out)
}
