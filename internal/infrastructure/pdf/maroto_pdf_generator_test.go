package pdf

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockledger-api/internal/application/dto"
)

func TestMoney(t *testing.T) {
	cases := map[string]string{
		"0":           "$0,00",
		"999.5":       "$999,50",
		"25000":       "$25.000,00",
		"1234567.891": "$1.234.567,89",
		"-1500":       "-$1.500,00",
	}
	for in, want := range cases {
		assert.Equal(t, want, money(decimal.RequireFromString(in)), in)
	}
}

func TestGenerateInvoicePDF(t *testing.T) {
	inv := &dto.InvoiceResponse{
		ID:             "inv-1",
		InvoiceNumber:  "INV-2026-00001",
		CustomerName:   "Cliente Uno",
		WarehouseName:  "Principal",
		Subtotal:       decimal.RequireFromString("200"),
		TaxTotal:       decimal.RequireFromString("38"),
		TotalAmount:    decimal.RequireFromString("238"),
		IdempotencyKey: "k-1",
		CreatedAt:      time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Items: []dto.InvoiceItemResponse{{
			ProductID: "p1", ProductName: "Tornillo", Quantity: 2,
			UnitPrice: decimal.RequireFromString("100"), TaxRate: decimal.RequireFromString("19"),
			LineTotal: decimal.RequireFromString("200"), TaxAmount: decimal.RequireFromString("38"),
		}},
	}

	b, err := NewMarotoPDFGenerator("").GenerateInvoicePDF(context.Background(), inv)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("%PDF")))
}

func TestGenerateInvoicePDF_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMarotoPDFGenerator("x").GenerateInvoicePDF(ctx, &dto.InvoiceResponse{})
	assert.ErrorIs(t, err, context.Canceled)
}
