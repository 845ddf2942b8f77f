package ledger_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/ledger"
)

// ── ValidateMovement ─────────────────────────────────────────────────────────

func TestValidateMovement(t *testing.T) {
	base := func() *entity.StockMovement {
		return &entity.StockMovement{
			TenantID: "t1", ProductID: "p1", WarehouseID: "w1",
			Quantity: 5, Type: entity.MovementIn,
		}
	}

	require.NoError(t, ledger.ValidateMovement(base()))

	cases := map[string]struct {
		mutate func(m *entity.StockMovement)
		field  string
	}{
		"cantidad cero":    {func(m *entity.StockMovement) { m.Quantity = 0 }, "quantity"},
		"tipo desconocido": {func(m *entity.StockMovement) { m.Type = "LOAN" }, "type"},
		"sin producto":     {func(m *entity.StockMovement) { m.ProductID = "" }, "product_id"},
		"sin bodega":       {func(m *entity.StockMovement) { m.WarehouseID = "" }, "warehouse_id"},
		"sin tenant":       {func(m *entity.StockMovement) { m.TenantID = "" }, "tenant_id"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			m := base()
			tc.mutate(m)
			err := ledger.ValidateMovement(m)
			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
			assert.True(t, errors.Is(err, domain.ErrInvalidInput))
		})
	}
}

// ── Orden de locks ───────────────────────────────────────────────────────────

func TestSortKeys_OrdersAndDeduplicates(t *testing.T) {
	keys := []entity.StockKey{
		{ProductID: "p2", WarehouseID: "w1"},
		{ProductID: "p1", WarehouseID: "w2"},
		{ProductID: "p1", WarehouseID: "w1"},
		{ProductID: "p2", WarehouseID: "w1"},
	}
	got := ledger.SortKeys(keys)
	assert.Equal(t, []entity.StockKey{
		{ProductID: "p1", WarehouseID: "w1"},
		{ProductID: "p1", WarehouseID: "w2"},
		{ProductID: "p2", WarehouseID: "w1"},
	}, got)
}

func TestCheckAvailable_ReportsFirstShortKeyInLockOrder(t *testing.T) {
	a := entity.StockKey{ProductID: "a", WarehouseID: "w"}
	b := entity.StockKey{ProductID: "b", WarehouseID: "w"}
	keys := []entity.StockKey{a, b}

	err := ledger.CheckAvailable(keys,
		map[entity.StockKey]int64{a: 10, b: 0},
		map[entity.StockKey]int64{a: 5, b: 1},
	)
	var ise *domain.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, "b", ise.ProductID)
	assert.Equal(t, int64(0), ise.Available)
	assert.Equal(t, int64(1), ise.Requested)

	require.NoError(t, ledger.CheckAvailable(keys,
		map[entity.StockKey]int64{a: 5, b: 1},
		map[entity.StockKey]int64{a: 5, b: 1},
	))
}

func TestDemand_SumsRepeatedProducts(t *testing.T) {
	d := ledger.Demand("w1", []ledger.LineInput{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p2", Quantity: 1},
		{ProductID: "p1", Quantity: 3},
	})
	assert.Equal(t, int64(5), d[entity.StockKey{ProductID: "p1", WarehouseID: "w1"}])
	assert.Equal(t, int64(1), d[entity.StockKey{ProductID: "p2", WarehouseID: "w1"}])
}

// ── Períodos ─────────────────────────────────────────────────────────────────

func TestPeriodStart(t *testing.T) {
	bogota, err := time.LoadLocation("America/Bogota")
	require.NoError(t, err)

	// Jueves 2026-01-01 02:30 UTC = miércoles 2025-12-31 21:30 en Bogotá (UTC-5)
	ts := time.Date(2026, 1, 1, 2, 30, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), ledger.PeriodStart(ts, ledger.PeriodDay, time.UTC))
	assert.Equal(t, time.Date(2025, 12, 29, 0, 0, 0, 0, time.UTC), ledger.PeriodStart(ts, ledger.PeriodWeek, time.UTC))
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), ledger.PeriodStart(ts, ledger.PeriodMonth, time.UTC))

	assert.True(t, time.Date(2025, 12, 31, 0, 0, 0, 0, bogota).Equal(ledger.PeriodStart(ts, ledger.PeriodDay, bogota)))
	assert.True(t, time.Date(2025, 12, 1, 0, 0, 0, 0, bogota).Equal(ledger.PeriodStart(ts, ledger.PeriodMonth, bogota)))
}

func TestPeriodStart_SundayBelongsToPreviousISOWeek(t *testing.T) {
	sunday := time.Date(2026, 3, 8, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), ledger.PeriodStart(sunday, ledger.PeriodWeek, time.UTC))
}

func TestParsePeriod(t *testing.T) {
	p, err := ledger.ParsePeriod("")
	require.NoError(t, err)
	assert.Equal(t, ledger.PeriodDay, p)

	p, err = ledger.ParsePeriod("month")
	require.NoError(t, err)
	assert.Equal(t, ledger.PeriodMonth, p)

	_, err = ledger.ParsePeriod("year")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ── Idempotencia ─────────────────────────────────────────────────────────────

func TestInvoiceFingerprint_NormalizesDecimals(t *testing.T) {
	l1 := []ledger.LineInput{{ProductID: "p1", Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")}}
	l2 := []ledger.LineInput{{ProductID: "p1", Quantity: 2, UnitPrice: decimal.RequireFromString("10")}}
	l3 := []ledger.LineInput{{ProductID: "p1", Quantity: 3, UnitPrice: decimal.RequireFromString("10")}}

	assert.Equal(t, ledger.InvoiceFingerprint("c", "w", l1), ledger.InvoiceFingerprint("c", "w", l2))
	assert.NotEqual(t, ledger.InvoiceFingerprint("c", "w", l1), ledger.InvoiceFingerprint("c", "w", l3))
	assert.NotEqual(t, ledger.InvoiceFingerprint("c", "w", l1), ledger.InvoiceFingerprint("c", "w2", l1))
}

func TestValidateIdempotencyKey(t *testing.T) {
	assert.NoError(t, ledger.ValidateIdempotencyKey("order-2026_0001"))
	assert.Error(t, ledger.ValidateIdempotencyKey(""))
	assert.Error(t, ledger.ValidateIdempotencyKey("con espacio"))
	long := make([]byte, 256)
	for i := range long {
		long[i] = 'a'
	}
	assert.Error(t, ledger.ValidateIdempotencyKey(string(long)))
}

// ── Límites ──────────────────────────────────────────────────────────────────

func TestValidateQuantity(t *testing.T) {
	assert.NoError(t, ledger.ValidateQuantity("quantity", 1))
	assert.NoError(t, ledger.ValidateQuantity("quantity", ledger.MaxQuantity))
	for _, q := range []int64{0, -1, ledger.MaxQuantity + 1, math.MaxInt64} {
		var ve *domain.ValidationError
		require.ErrorAs(t, ledger.ValidateQuantity("items[2].quantity", q), &ve, "%d", q)
		assert.Equal(t, "items[2].quantity", ve.Field)
	}
}

func TestDemand_SaturatesInsteadOfWrapping(t *testing.T) {
	d := ledger.Demand("w1", []ledger.LineInput{
		{ProductID: "p1", Quantity: math.MaxInt64},
		{ProductID: "p1", Quantity: math.MaxInt64},
	})
	key := entity.StockKey{ProductID: "p1", WarehouseID: "w1"}
	assert.Equal(t, int64(math.MaxInt64), d[key])

	err := ledger.CheckAvailable([]entity.StockKey{key}, map[entity.StockKey]int64{key: 10}, d)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestValidatePriceAndTaxRate(t *testing.T) {
	ok := []string{"0", "1", "1.5", "1.05", "1.0500", "9999999999999.99"}
	for _, v := range ok {
		assert.NoError(t, ledger.ValidatePrice("unit_price", decimal.RequireFromString(v)), v)
	}
	bad := []string{"-0.01", "1.005", "0.001", "10000000000000"}
	for _, v := range bad {
		assert.ErrorIs(t, ledger.ValidatePrice("unit_price", decimal.RequireFromString(v)), domain.ErrInvalidInput, v)
	}

	assert.NoError(t, ledger.ValidateTaxRate("tax_rate", decimal.RequireFromString("19")))
	assert.NoError(t, ledger.ValidateTaxRate("tax_rate", decimal.RequireFromString("100")))
	for _, v := range []string{"-1", "100.01", "19.125"} {
		assert.ErrorIs(t, ledger.ValidateTaxRate("tax_rate", decimal.RequireFromString(v)), domain.ErrInvalidInput, v)
	}

	assert.NoError(t, ledger.ValidateTotal("items", decimal.RequireFromString("9999999999999.99")))
	assert.ErrorIs(t, ledger.ValidateTotal("items", ledger.MaxAmount), domain.ErrInvalidInput)
}
