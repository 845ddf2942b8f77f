package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustomerReturn devolución de un cliente; repone stock con un movimiento IN.
type CustomerReturn struct {
	ID          string
	TenantID    string
	CustomerID  string
	ProductID   string
	WarehouseID string
	Quantity    int64
	UnitPrice   decimal.Decimal
	Total       decimal.Decimal
	Reason      *string
	CreatedBy   string
	CreatedAt   time.Time
}

// CustomerPurchaseSummary comprado vs devuelto por (cliente, producto, bodega).
type CustomerPurchaseSummary struct {
	CustomerID    string
	ProductID     string
	ProductName   string
	WarehouseID   string
	WarehouseName string
	PurchasedQty  int64
	ReturnedQty   int64
	ReturnableQty int64
	LastUnitPrice decimal.Decimal
}
