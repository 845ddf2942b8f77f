package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice cabecera de factura. Se crea en la misma transacción que sus líneas y
// sus movimientos SALE; inmutable después.
type Invoice struct {
	ID             string
	TenantID       string
	InvoiceNumber  string // INV-<año>-<consecutivo>
	CustomerID     string
	WarehouseID    string
	Subtotal       decimal.Decimal
	TaxTotal       decimal.Decimal
	TotalAmount    decimal.Decimal
	IdempotencyKey string
	RequestHash    string // huella SHA-256 del payload que creó la factura
	CreatedBy      string
	CreatedAt      time.Time
	Items          []*InvoiceLineItem
}

// InvoiceLineItem línea de factura.
type InvoiceLineItem struct {
	ID        string
	InvoiceID string
	ProductID string
	Quantity  int64
	UnitPrice decimal.Decimal
	TaxRate   decimal.Decimal // porcentaje, 0 por defecto
	LineTotal decimal.Decimal // Quantity × UnitPrice
	TaxAmount decimal.Decimal
}

// InvoiceView factura con nombres resueltos para lectura.
type InvoiceView struct {
	Invoice
	CustomerName  string
	WarehouseName string
	ProductNames  map[string]string
}
