package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustomerLedgerRequest query de GET /customers/:id/ledger.
type CustomerLedgerRequest struct {
	Period string     `query:"period" validate:"omitempty,oneof=day week month"`
	From   *time.Time `query:"-"`
	To     *time.Time `query:"-"`
}

// CustomerLedgerEntryResponse bucket del libro de cliente.
type CustomerLedgerEntryResponse struct {
	PeriodStart  time.Time       `json:"period_start"`
	SalesAmount  decimal.Decimal `json:"sales_amount"`
	ReturnAmount decimal.Decimal `json:"return_amount"`
	NetAmount    decimal.Decimal `json:"net_amount"`
	InvoiceCount int             `json:"invoice_count"`
	ReturnCount  int             `json:"return_count"`
}

// CustomerLedgerResponse libro agregado de un cliente.
type CustomerLedgerResponse struct {
	CustomerID string                        `json:"customer_id"`
	Period     string                        `json:"period"`
	Timezone   string                        `json:"timezone"`
	Entries    []CustomerLedgerEntryResponse `json:"entries"`
}
