package analytics_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockledger-api/internal/application/analytics"
	"github.com/jhoicas/stockledger-api/internal/application/billing"
	"github.com/jhoicas/stockledger-api/internal/application/dto"
	"github.com/jhoicas/stockledger-api/internal/application/inventory"
	"github.com/jhoicas/stockledger-api/internal/application/returns"
	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/ledger"
	"github.com/jhoicas/stockledger-api/internal/infrastructure/memory"
	"github.com/jhoicas/stockledger-api/internal/infrastructure/txretry"
)

const tenant = "tenant-1"

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// ── Aggregate ────────────────────────────────────────────────────────────────

func TestAggregate_BucketsAndNet(t *testing.T) {
	activity := []entity.CustomerActivity{
		{Kind: entity.ActivitySale, Amount: dec("100"), At: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)},
		{Kind: entity.ActivitySale, Amount: dec("50"), At: time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)},
		{Kind: entity.ActivityReturn, Amount: dec("30"), At: time.Date(2026, 3, 2, 20, 0, 0, 0, time.UTC)},
		{Kind: entity.ActivitySale, Amount: dec("10"), At: time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)},
	}

	days := analytics.Aggregate(activity, ledger.PeriodDay, time.UTC)
	require.Len(t, days, 2)
	assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), days[0].PeriodStart, "más reciente primero")
	first := days[1]
	assert.True(t, first.SalesAmount.Equal(dec("150")))
	assert.True(t, first.ReturnAmount.Equal(dec("30")))
	assert.True(t, first.NetAmount.Equal(dec("120")))
	assert.Equal(t, 2, first.InvoiceCount)
	assert.Equal(t, 1, first.ReturnCount)

	weeks := analytics.Aggregate(activity, ledger.PeriodWeek, time.UTC)
	require.Len(t, weeks, 1)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), weeks[0].PeriodStart)
	assert.True(t, weeks[0].NetAmount.Equal(dec("130")))
}

func TestAggregate_ReturnsOnlyBucketHasNegativeNet(t *testing.T) {
	activity := []entity.CustomerActivity{
		{Kind: entity.ActivityReturn, Amount: dec("12.5"), At: time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)},
	}
	months := analytics.Aggregate(activity, ledger.PeriodMonth, time.UTC)
	require.Len(t, months, 1)
	assert.True(t, months[0].SalesAmount.IsZero())
	assert.True(t, months[0].NetAmount.Equal(dec("-12.5")))
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), months[0].PeriodStart)
}

func TestAggregate_UsesReferenceTimezone(t *testing.T) {
	bogota, err := time.LoadLocation("America/Bogota")
	require.NoError(t, err)
	// 02:00 UTC del día 3 es todavía el día 2 en Bogotá (UTC-5)
	activity := []entity.CustomerActivity{
		{Kind: entity.ActivitySale, Amount: dec("1"), At: time.Date(2026, 3, 3, 2, 0, 0, 0, time.UTC)},
	}
	out := analytics.Aggregate(activity, ledger.PeriodDay, bogota)
	require.Len(t, out, 1)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, bogota), out[0].PeriodStart)
}

func TestAggregate_Empty(t *testing.T) {
	assert.Empty(t, analytics.Aggregate(nil, ledger.PeriodDay, time.UTC))
}

// ── GetCustomerLedger ────────────────────────────────────────────────────────

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func TestGetCustomerLedger_FromCommittedDocuments(t *testing.T) {
	clk := &clock{now: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
	store := memory.NewStore(memory.WithClock(clk.Now))
	store.AddCustomer(entity.Customer{ID: "c1", TenantID: tenant, Name: "Ana"})
	store.AddWarehouse(entity.Warehouse{ID: "w1", TenantID: tenant, Name: "Central"})
	store.AddProduct(entity.Product{ID: "p1", TenantID: tenant, Name: "Tornillo"})

	runner := memory.NewTxRunner(store, txretry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}, nil)
	led := inventory.NewLedger(nil)
	movements := inventory.NewMovementUseCase(runner, led, store.Movements(), store.Products(), store.Warehouses())
	invoices := billing.NewCreateInvoiceUseCase(runner, led, nil, store.Customers(), store.Products(), store.Warehouses(), store.Invoices(), nil)
	rets := returns.NewUseCase(runner, led, store.Returns(), store.Customers(), store.Products(), store.Warehouses(), nil)
	uc := analytics.NewCustomerLedgerUseCase(store.Activity(), store.Customers(), nil)
	ctx := context.Background()

	_, err := movements.RegisterMovement(ctx, tenant, "u", dto.RegisterMovementRequest{ProductID: "p1", WarehouseID: "w1", Quantity: 100, Type: "IN"})
	require.NoError(t, err)
	_, err = invoices.CreateInvoice(ctx, tenant, "u", dto.CreateInvoiceRequest{
		CustomerID: "c1", WarehouseID: "w1", IdempotencyKey: "k-1",
		Items: []dto.InvoiceItemRequest{{ProductID: "p1", Quantity: 10, UnitPrice: dec("5")}},
	})
	require.NoError(t, err)

	clk.Set(time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC))
	_, err = rets.CreateReturn(ctx, tenant, "u", dto.CreateReturnRequest{
		CustomerID: "c1", ProductID: "p1", WarehouseID: "w1", Quantity: 2, UnitPrice: dec("5"),
	})
	require.NoError(t, err)

	clk.Set(time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC))
	_, err = invoices.CreateInvoice(ctx, tenant, "u", dto.CreateInvoiceRequest{
		CustomerID: "c1", WarehouseID: "w1", IdempotencyKey: "k-2",
		Items: []dto.InvoiceItemRequest{{ProductID: "p1", Quantity: 1, UnitPrice: dec("7")}},
	})
	require.NoError(t, err)

	weekly, err := uc.GetCustomerLedger(ctx, tenant, "c1", dto.CustomerLedgerRequest{Period: "week"})
	require.NoError(t, err)
	assert.Equal(t, "week", weekly.Period)
	assert.Equal(t, "UTC", weekly.Timezone)
	require.Len(t, weekly.Entries, 2)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), weekly.Entries[0].PeriodStart)
	assert.True(t, weekly.Entries[0].SalesAmount.Equal(dec("7")))
	assert.True(t, weekly.Entries[1].SalesAmount.Equal(dec("50")))
	assert.True(t, weekly.Entries[1].ReturnAmount.Equal(dec("10")))
	assert.True(t, weekly.Entries[1].NetAmount.Equal(dec("40")))

	// rango [from, to): deja fuera la segunda factura
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	daily, err := uc.GetCustomerLedger(ctx, tenant, "c1", dto.CustomerLedgerRequest{From: &from, To: &to})
	require.NoError(t, err)
	assert.Equal(t, "day", daily.Period)
	require.Len(t, daily.Entries, 2)
	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), daily.Entries[0].PeriodStart)
}

func TestGetCustomerLedger_Errors(t *testing.T) {
	store := memory.NewStore()
	store.AddCustomer(entity.Customer{ID: "c1", TenantID: tenant, Name: "Ana"})
	uc := analytics.NewCustomerLedgerUseCase(store.Activity(), store.Customers(), time.UTC)
	ctx := context.Background()

	_, err := uc.GetCustomerLedger(ctx, tenant, "c1", dto.CustomerLedgerRequest{Period: "year"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = uc.GetCustomerLedger(ctx, tenant, "ghost", dto.CustomerLedgerRequest{})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	from := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	to := from
	_, err = uc.GetCustomerLedger(ctx, tenant, "c1", dto.CustomerLedgerRequest{From: &from, To: &to})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	empty, err := uc.GetCustomerLedger(ctx, tenant, "c1", dto.CustomerLedgerRequest{Period: "month"})
	require.NoError(t, err)
	assert.Empty(t, empty.Entries)
}
