package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stockledger-api/internal/application/analytics"
	"github.com/jhoicas/stockledger-api/internal/application/dto"
)

// CustomerLedgerHandler libro de ventas y devoluciones por cliente.
type CustomerLedgerHandler struct {
	uc  *analytics.CustomerLedgerUseCase
	loc *time.Location
}

// NewCustomerLedgerHandler loc interpreta las fechas YYYY-MM-DD de from/to.
func NewCustomerLedgerHandler(uc *analytics.CustomerLedgerUseCase, loc *time.Location) *CustomerLedgerHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &CustomerLedgerHandler{uc: uc, loc: loc}
}

// GetLedger godoc
// @Summary      Libro de cliente por período
// @Description  Suma facturas y devoluciones del cliente en buckets de día, semana ISO o mes,
//
//	ordenados del más reciente al más antiguo. net_amount = ventas - devoluciones.
//
// @Tags         customers
// @Security     Bearer
// @Produce      json
// @Param        id      path   string  true   "ID del cliente"
// @Param        period  query  string  false  "day | week | month (default day)"
// @Param        from    query  string  false  "Inicio inclusivo (RFC3339 o YYYY-MM-DD)"
// @Param        to      query  string  false  "Fin (RFC3339 exclusivo, o YYYY-MM-DD incluyendo ese día)"
// @Success      200  {object}  dto.CustomerLedgerResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/v1/customers/{id}/ledger [get]
func (h *CustomerLedgerHandler) GetLedger(c *fiber.Ctx) error {
	var in dto.CustomerLedgerRequest
	if err := bindQuery(c, &in); err != nil {
		return err
	}
	from, err := parseTimeQuery(c, "from", h.loc, false)
	if err != nil {
		return err
	}
	to, err := parseTimeQuery(c, "to", h.loc, true)
	if err != nil {
		return err
	}
	in.From, in.To = from, to

	out, err := h.uc.GetCustomerLedger(c.UserContext(), GetTenantID(c), c.Params("id"), in)
	if err != nil {
		return err
	}
	return c.JSON(out)
}
