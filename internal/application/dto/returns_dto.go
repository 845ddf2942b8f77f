package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateReturnRequest body de POST /returns.
type CreateReturnRequest struct {
	CustomerID  string          `json:"customer_id" validate:"required"`
	ProductID   string          `json:"product_id" validate:"required"`
	WarehouseID string          `json:"warehouse_id" validate:"required"`
	Quantity    int64           `json:"quantity" validate:"gt=0,lte=1000000000"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Reason      *string         `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// ReturnResponse devolución registrada.
type ReturnResponse struct {
	ID          string          `json:"id"`
	CustomerID  string          `json:"customer_id"`
	ProductID   string          `json:"product_id"`
	WarehouseID string          `json:"warehouse_id"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
	Reason      *string         `json:"reason,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ReturnListResponse listado paginado de devoluciones.
type ReturnListResponse struct {
	Items []ReturnResponse `json:"items"`
	Page  PageResponse     `json:"page"`
}

// CustomerPurchaseResponse fila de GET /returns/customer-purchases/:customer_id.
type CustomerPurchaseResponse struct {
	ProductID     string          `json:"product_id"`
	ProductName   string          `json:"product_name"`
	WarehouseID   string          `json:"warehouse_id"`
	WarehouseName string          `json:"warehouse_name"`
	PurchasedQty  int64           `json:"purchased_qty"`
	ReturnedQty   int64           `json:"returned_qty"`
	ReturnableQty int64           `json:"returnable_qty"`
	LastUnitPrice decimal.Decimal `json:"last_unit_price"`
}
