package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stockledger-api/internal/application/dto"
	"github.com/jhoicas/stockledger-api/internal/application/returns"
)

// ReturnHandler devoluciones de clientes (protegido).
type ReturnHandler struct {
	uc *returns.UseCase
}

// NewReturnHandler construye el handler.
func NewReturnHandler(uc *returns.UseCase) *ReturnHandler {
	return &ReturnHandler{uc: uc}
}

// Create godoc
// @Summary      Registrar devolución de cliente
// @Description  Reingresa stock a la bodega. La cantidad no puede superar lo comprado
//
//	menos lo ya devuelto por el cliente para ese producto y bodega.
//
// @Tags         returns
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateReturnRequest  true  "customer_id, product_id, warehouse_id, quantity, unit_price"
// @Success      201   {object}  dto.ReturnResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/v1/returns [post]
func (h *ReturnHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateReturnRequest
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	out, err := h.uc.CreateReturn(c.UserContext(), GetTenantID(c), GetUserID(c), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List GET /api/v1/returns?limit&offset
func (h *ReturnHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := bindQuery(c, &page); err != nil {
		return err
	}
	out, err := h.uc.ListReturns(c.UserContext(), GetTenantID(c), page)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// CustomerPurchases GET /api/v1/returns/customer-purchases/:customer_id
func (h *ReturnHandler) CustomerPurchases(c *fiber.Ctx) error {
	customerID := c.Params("customer_id")
	list, err := h.uc.GetCustomerPurchases(c.UserContext(), GetTenantID(c), customerID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"customer_id": customerID, "items": list})
}
