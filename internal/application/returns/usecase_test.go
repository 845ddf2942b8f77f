package returns_test

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockledger-api/internal/application/billing"
	"github.com/jhoicas/stockledger-api/internal/application/dto"
	"github.com/jhoicas/stockledger-api/internal/application/inventory"
	"github.com/jhoicas/stockledger-api/internal/application/returns"
	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/infrastructure/memory"
	"github.com/jhoicas/stockledger-api/internal/infrastructure/txretry"
)

const (
	tenant = "tenant-1"
	user   = "user-1"
)

type fixture struct {
	store     *memory.Store
	returns   *returns.UseCase
	invoices  *billing.CreateInvoiceUseCase
	movements *inventory.MovementUseCase
	balances  *inventory.BalanceProjector
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	store.AddCustomer(entity.Customer{ID: "c1", TenantID: tenant, Name: "Ana"})
	store.AddCustomer(entity.Customer{ID: "c2", TenantID: tenant, Name: "Beto"})
	store.AddWarehouse(entity.Warehouse{ID: "w1", TenantID: tenant, Name: "Bodega Central"})
	store.AddWarehouse(entity.Warehouse{ID: "w2", TenantID: tenant, Name: "Bodega Norte"})
	store.AddProduct(entity.Product{ID: "p1", TenantID: tenant, SKU: "TOR-01", Name: "Tornillo"})

	runner := memory.NewTxRunner(store, txretry.Policy{MaxAttempts: 10, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}, nil)
	led := inventory.NewLedger(nil)
	return &fixture{
		store:     store,
		returns:   returns.NewUseCase(runner, led, store.Returns(), store.Customers(), store.Products(), store.Warehouses(), nil),
		invoices:  billing.NewCreateInvoiceUseCase(runner, led, nil, store.Customers(), store.Products(), store.Warehouses(), store.Invoices(), nil),
		movements: inventory.NewMovementUseCase(runner, led, store.Movements(), store.Products(), store.Warehouses()),
		balances:  inventory.NewBalanceProjector(store.Balances(), store.Movements(), store.Products(), store.Warehouses()),
	}
}

func (f *fixture) stockIn(t *testing.T, wh string, qty int64) {
	t.Helper()
	_, err := f.movements.RegisterMovement(context.Background(), tenant, user, dto.RegisterMovementRequest{
		ProductID: "p1", WarehouseID: wh, Quantity: qty, Type: "IN",
	})
	require.NoError(t, err)
}

func (f *fixture) sell(customer, wh, key string, qty int64, price string) error {
	_, err := f.invoices.CreateInvoice(context.Background(), tenant, user, dto.CreateInvoiceRequest{
		CustomerID: customer, WarehouseID: wh, IdempotencyKey: key,
		Items: []dto.InvoiceItemRequest{{ProductID: "p1", Quantity: qty, UnitPrice: decimal.RequireFromString(price)}},
	})
	return err
}

func (f *fixture) giveBack(customer, wh string, qty int64) (*dto.ReturnResponse, error) {
	return f.returns.CreateReturn(context.Background(), tenant, user, dto.CreateReturnRequest{
		CustomerID: customer, ProductID: "p1", WarehouseID: wh, Quantity: qty, UnitPrice: decimal.NewFromInt(2),
	})
}

func (f *fixture) balance(t *testing.T, wh string) int64 {
	t.Helper()
	b, err := f.balances.GetBalance(context.Background(), tenant, "p1", wh, false)
	require.NoError(t, err)
	return b.Quantity
}

func (f *fixture) purchases(t *testing.T, customer string) map[string]dto.CustomerPurchaseResponse {
	t.Helper()
	rows, err := f.returns.GetCustomerPurchases(context.Background(), tenant, customer)
	require.NoError(t, err)
	out := map[string]dto.CustomerPurchaseResponse{}
	for _, r := range rows {
		out[r.WarehouseID] = r
	}
	return out
}

// Entrada de 100, venta de 30, venta rechazada de 80, devolución de 30.
func TestReturns_FullCycleFromEmptyWarehouse(t *testing.T) {
	f := newFixture(t)
	f.stockIn(t, "w1", 100)

	require.NoError(t, f.sell("c1", "w1", "k-1", 30, "2"))
	assert.Equal(t, int64(70), f.balance(t, "w1"))

	err := f.sell("c1", "w1", "k-2", 80, "2")
	var ise *domain.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, int64(70), ise.Available)
	assert.Equal(t, int64(80), ise.Requested)

	ret, err := f.giveBack("c1", "w1", 30)
	require.NoError(t, err)
	assert.True(t, ret.Total.Equal(decimal.NewFromInt(60)))
	assert.Equal(t, int64(100), f.balance(t, "w1"))

	p := f.purchases(t, "c1")["w1"]
	assert.Equal(t, int64(30), p.PurchasedQty)
	assert.Equal(t, int64(30), p.ReturnedQty)
	assert.Equal(t, int64(0), p.ReturnableQty)
	assert.Equal(t, "Tornillo", p.ProductName)

	_, err = f.giveBack("c1", "w1", 1)
	var ree *domain.ReturnExceedsPurchaseError
	require.ErrorAs(t, err, &ree)
	assert.Equal(t, int64(0), ree.Returnable)
}

func TestReturns_BoundIsPerCustomerAndWarehouse(t *testing.T) {
	f := newFixture(t)
	f.stockIn(t, "w1", 50)
	f.stockIn(t, "w2", 50)
	require.NoError(t, f.sell("c1", "w1", "k-a", 5, "1"))

	// otro cliente no compró nada
	_, err := f.giveBack("c2", "w1", 1)
	assert.ErrorIs(t, err, domain.ErrReturnExceedsPurchase)

	// el mismo cliente no compró en w2
	_, err = f.giveBack("c1", "w2", 1)
	assert.ErrorIs(t, err, domain.ErrReturnExceedsPurchase)

	_, err = f.giveBack("c1", "w1", 6)
	var ree *domain.ReturnExceedsPurchaseError
	require.ErrorAs(t, err, &ree)
	assert.Equal(t, int64(5), ree.Returnable)
	assert.Equal(t, int64(6), ree.Requested)
	assert.Equal(t, int64(45), f.balance(t, "w1"))
}

func TestReturns_ConcurrentReturnsNeverExceedPurchase(t *testing.T) {
	f := newFixture(t)
	f.stockIn(t, "w1", 20)
	require.NoError(t, f.sell("c1", "w1", "k-c", 10, "1"))

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < 15; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.giveBack("c1", "w1", 1)
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, domain.ErrReturnExceedsPurchase)
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, accepted)
	assert.Equal(t, int64(20), f.balance(t, "w1"))
	assert.Equal(t, int64(0), f.purchases(t, "c1")["w1"].ReturnableQty)
}

func TestReturns_LastUnitPriceFollowsLatestInvoice(t *testing.T) {
	f := newFixture(t)
	f.stockIn(t, "w1", 10)
	require.NoError(t, f.sell("c1", "w1", "k-old", 1, "3.00"))
	require.NoError(t, f.sell("c1", "w1", "k-new", 2, "4.50"))

	p := f.purchases(t, "c1")["w1"]
	assert.Equal(t, int64(3), p.PurchasedQty)
	assert.True(t, p.LastUnitPrice.Equal(decimal.RequireFromString("4.5")))
}

func TestReturns_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.giveBack("c1", "w1", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.giveBack("ghost", "w1", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.returns.GetCustomerPurchases(context.Background(), tenant, "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.returns.CreateReturn(context.Background(), tenant, user, dto.CreateReturnRequest{
		CustomerID: "c1", ProductID: "p1", WarehouseID: "w1", Quantity: 1, UnitPrice: decimal.NewFromInt(-1),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestListReturns_NewestFirst(t *testing.T) {
	f := newFixture(t)
	f.stockIn(t, "w1", 10)
	require.NoError(t, f.sell("c1", "w1", "k-l", 5, "1"))
	for i := 1; i <= 3; i++ {
		_, err := f.giveBack("c1", "w1", int64(i%2+1))
		require.NoError(t, err, fmt.Sprintf("devolución %d", i))
	}

	list, err := f.returns.ListReturns(context.Background(), tenant, dto.PageRequest{Limit: 2})
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	assert.Equal(t, int64(2), list.Items[0].Quantity)
	assert.Equal(t, int64(1), list.Items[1].Quantity)
}

func TestReturns_QuantityAndPriceBounds(t *testing.T) {
	f := newFixture(t)
	f.stockIn(t, "w1", 10)
	require.NoError(t, f.sell("c1", "w1", "k-1", 5, "2"))

	_, err := f.giveBack("c1", "w1", math.MaxInt64)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "quantity", ve.Field)
	assert.NotErrorIs(t, err, domain.ErrReturnExceedsPurchase)

	_, err = f.returns.CreateReturn(context.Background(), tenant, user, dto.CreateReturnRequest{
		CustomerID: "c1", ProductID: "p1", WarehouseID: "w1", Quantity: 1, UnitPrice: decimal.RequireFromString("1.005"),
	})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "unit_price", ve.Field)
	assert.Equal(t, int64(5), f.balance(t, "w1"))

	ret, err := f.returns.CreateReturn(context.Background(), tenant, user, dto.CreateReturnRequest{
		CustomerID: "c1", ProductID: "p1", WarehouseID: "w1", Quantity: 3, UnitPrice: decimal.RequireFromString("1.01"),
	})
	require.NoError(t, err)
	assert.True(t, ret.Total.Equal(decimal.RequireFromString("3.03")))
}
