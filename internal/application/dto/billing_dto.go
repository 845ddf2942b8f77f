package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceItemRequest línea de POST /invoices.
type InvoiceItemRequest struct {
	ProductID string          `json:"product_id" validate:"required"`
	Quantity  int64           `json:"quantity" validate:"gt=0,lte=1000000000"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	TaxRate   decimal.Decimal `json:"tax_rate"` // porcentaje; 0 si se omite
}

// CreateInvoiceRequest body de POST /invoices.
type CreateInvoiceRequest struct {
	CustomerID     string               `json:"customer_id" validate:"required"`
	WarehouseID    string               `json:"warehouse_id" validate:"required"`
	IdempotencyKey string               `json:"idempotency_key" validate:"required,max=255"`
	Items          []InvoiceItemRequest `json:"items" validate:"required,min=1,dive"`
}

// InvoiceItemResponse línea de factura.
type InvoiceItemResponse struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	LineTotal   decimal.Decimal `json:"line_total"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
}

// InvoiceResponse factura con líneas. Replayed = la respuesta corresponde a una
// factura ya existente para la misma idempotency key.
type InvoiceResponse struct {
	ID             string                `json:"id"`
	InvoiceNumber  string                `json:"invoice_number"`
	CustomerID     string                `json:"customer_id"`
	CustomerName   string                `json:"customer_name,omitempty"`
	WarehouseID    string                `json:"warehouse_id"`
	WarehouseName  string                `json:"warehouse_name,omitempty"`
	Subtotal       decimal.Decimal       `json:"subtotal"`
	TaxTotal       decimal.Decimal       `json:"tax_total"`
	TotalAmount    decimal.Decimal       `json:"total_amount"`
	IdempotencyKey string                `json:"idempotency_key"`
	CreatedAt      time.Time             `json:"created_at"`
	Items          []InvoiceItemResponse `json:"items,omitempty"`
	Replayed       bool                  `json:"replayed,omitempty"`
}

// InvoiceListResponse listado paginado de facturas (sin líneas).
type InvoiceListResponse struct {
	Items []InvoiceResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}
