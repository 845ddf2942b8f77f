package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ActivityKind origen de un importe en el libro de cliente.
type ActivityKind string

const (
	ActivitySale   ActivityKind = "SALE"
	ActivityReturn ActivityKind = "RETURN"
)

// CustomerActivity importe fechado de una factura o devolución del cliente.
type CustomerActivity struct {
	Kind       ActivityKind
	DocumentID string
	Amount     decimal.Decimal
	At         time.Time
}

// CustomerLedgerEntry bucket del libro de cliente.
type CustomerLedgerEntry struct {
	PeriodStart  time.Time
	SalesAmount  decimal.Decimal
	ReturnAmount decimal.Decimal
	NetAmount    decimal.Decimal
	InvoiceCount int
	ReturnCount  int
}
