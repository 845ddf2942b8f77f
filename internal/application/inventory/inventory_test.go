package inventory_test

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockledger-api/internal/application/dto"
	"github.com/jhoicas/stockledger-api/internal/application/inventory"
	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/ledger"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
	"github.com/jhoicas/stockledger-api/internal/infrastructure/memory"
	"github.com/jhoicas/stockledger-api/internal/infrastructure/txretry"
)

const (
	tenant = "tenant-1"
	user   = "user-1"
)

type countingObserver struct {
	mu       sync.Mutex
	appended map[entity.MovementType]int
	rejected map[string]int
}

func (o *countingObserver) MovementAppended(t entity.MovementType, _ int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.appended[t]++
}

func (o *countingObserver) StockRejected(op string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rejected[op]++
}

type fixture struct {
	store     *memory.Store
	runner    *memory.TxRunner
	ledger    *inventory.Ledger
	observer  *countingObserver
	movements *inventory.MovementUseCase
	balances  *inventory.BalanceProjector
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	store.AddWarehouse(entity.Warehouse{ID: "w1", TenantID: tenant, Name: "Bodega Central"})
	store.AddWarehouse(entity.Warehouse{ID: "w2", TenantID: tenant, Name: "Bodega Norte"})
	store.AddProduct(entity.Product{ID: "p1", TenantID: tenant, SKU: "TOR-01", Name: "Tornillo"})

	obs := &countingObserver{appended: map[entity.MovementType]int{}, rejected: map[string]int{}}
	runner := memory.NewTxRunner(store, txretry.Policy{MaxAttempts: 10, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}, nil)
	led := inventory.NewLedger(obs)
	return &fixture{
		store:     store,
		runner:    runner,
		ledger:    led,
		observer:  obs,
		movements: inventory.NewMovementUseCase(runner, led, store.Movements(), store.Products(), store.Warehouses()),
		balances:  inventory.NewBalanceProjector(store.Balances(), store.Movements(), store.Products(), store.Warehouses()),
	}
}

func (f *fixture) register(typ string, wh string, qty int64) (*dto.MovementResponse, error) {
	return f.movements.RegisterMovement(context.Background(), tenant, user, dto.RegisterMovementRequest{
		ProductID: "p1", WarehouseID: wh, Quantity: qty, Type: typ,
	})
}

func (f *fixture) balance(t *testing.T, wh string) int64 {
	t.Helper()
	b, err := f.balances.GetBalance(context.Background(), tenant, "p1", wh, false)
	require.NoError(t, err)
	return b.Quantity
}

// ── RegisterMovement ─────────────────────────────────────────────────────────

func TestRegisterMovement_InOutAdjustment(t *testing.T) {
	f := newFixture(t)

	in, err := f.register("IN", "w1", 100)
	require.NoError(t, err)
	require.NotNil(t, in.Balance)
	assert.Equal(t, int64(100), *in.Balance)
	assert.Equal(t, int64(100), in.Quantity)
	assert.NotEmpty(t, in.ID)
	assert.False(t, in.CreatedAt.IsZero())

	out, err := f.register("out", "w1", 30)
	require.NoError(t, err)
	assert.Equal(t, int64(-30), out.Quantity, "OUT se guarda negativo")
	assert.Equal(t, int64(70), *out.Balance)

	adj, err := f.register("ADJUSTMENT", "w1", -5)
	require.NoError(t, err)
	assert.Equal(t, int64(65), *adj.Balance)

	assert.Equal(t, int64(65), f.balance(t, "w1"))
	assert.Equal(t, 1, f.observer.appended[entity.MovementOut])
	assert.Len(t, f.store.AuditEntries(), 3)
}

func TestRegisterMovement_OutBeyondBalanceIsRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.register("IN", "w1", 10)
	require.NoError(t, err)

	_, err = f.register("OUT", "w1", 11)

	var ise *domain.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, int64(10), ise.Available)
	assert.Equal(t, int64(11), ise.Requested)
	assert.Equal(t, int64(10), f.balance(t, "w1"))
	assert.Equal(t, 1, f.observer.rejected["OUT"])

	list, err := f.store.Movements().List(context.Background(), tenant, repository.MovementFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRegisterMovement_NegativeAdjustmentCannotGoBelowZero(t *testing.T) {
	f := newFixture(t)
	_, err := f.register("ADJUSTMENT", "w1", -1)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, int64(0), f.balance(t, "w1"))
}

func TestRegisterMovement_Validation(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name string
		typ  string
		wh   string
		qty  int64
	}{
		{"IN con cero", "IN", "w1", 0},
		{"IN negativo", "IN", "w1", -3},
		{"OUT negativo", "OUT", "w1", -3},
		{"ajuste cero", "ADJUSTMENT", "w1", 0},
		{"SALE manual", "SALE", "w1", 1},
		{"TRANSFER manual", "TRANSFER", "w1", 1},
		{"tipo desconocido", "GIFT", "w1", 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.register(tc.typ, tc.wh, tc.qty)
			var ve *domain.ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}

	_, err := f.register("IN", "w-ghost", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListMovements_NewestFirstAndFiltered(t *testing.T) {
	f := newFixture(t)
	_, err := f.register("IN", "w1", 5)
	require.NoError(t, err)
	_, err = f.register("IN", "w2", 7)
	require.NoError(t, err)
	_, err = f.register("OUT", "w1", 2)
	require.NoError(t, err)

	all, err := f.movements.ListMovements(context.Background(), tenant, dto.MovementListRequest{})
	require.NoError(t, err)
	require.Len(t, all.Items, 3)
	assert.Equal(t, "OUT", all.Items[0].Type)
	assert.Equal(t, 50, all.Page.Limit)

	onlyW1, err := f.movements.ListMovements(context.Background(), tenant, dto.MovementListRequest{WarehouseID: "w1"})
	require.NoError(t, err)
	assert.Len(t, onlyW1.Items, 2)

	_, err = f.movements.ListMovements(context.Background(), tenant, dto.MovementListRequest{Type: "NOPE"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ── Transfer ─────────────────────────────────────────────────────────────────

func TestTransfer_MovesStockBetweenWarehouses(t *testing.T) {
	f := newFixture(t)
	_, err := f.register("IN", "w1", 20)
	require.NoError(t, err)

	resp, err := f.movements.Transfer(context.Background(), tenant, user, dto.TransferRequest{
		ProductID: "p1", FromWarehouseID: "w1", ToWarehouseID: "w2", Quantity: 8,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(12), resp.FromBalance)
	assert.Equal(t, int64(8), resp.ToBalance)
	require.Len(t, resp.Movements, 2)
	assert.Equal(t, int64(-8), resp.Movements[0].Quantity)
	assert.Equal(t, int64(8), resp.Movements[1].Quantity)
	assert.Equal(t, resp.TransferID, *resp.Movements[0].ReferenceID)
	assert.Equal(t, resp.TransferID, *resp.Movements[1].ReferenceID)

	total, err := f.balances.GetTotalBalance(context.Background(), tenant, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(20), total.Quantity)
}

func TestTransfer_InsufficientOrInvalid(t *testing.T) {
	f := newFixture(t)
	_, err := f.register("IN", "w1", 3)
	require.NoError(t, err)

	_, err = f.movements.Transfer(context.Background(), tenant, user, dto.TransferRequest{
		ProductID: "p1", FromWarehouseID: "w1", ToWarehouseID: "w2", Quantity: 4,
	})
	var ise *domain.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, "w1", ise.WarehouseID)
	assert.Equal(t, int64(3), f.balance(t, "w1"))
	assert.Equal(t, int64(0), f.balance(t, "w2"))

	_, err = f.movements.Transfer(context.Background(), tenant, user, dto.TransferRequest{
		ProductID: "p1", FromWarehouseID: "w1", ToWarehouseID: "w1", Quantity: 1,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTransfer_OppositeDirectionsConcurrently(t *testing.T) {
	f := newFixture(t)
	_, err := f.register("IN", "w1", 500)
	require.NoError(t, err)
	_, err = f.register("IN", "w2", 500)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := dto.TransferRequest{ProductID: "p1", FromWarehouseID: "w1", ToWarehouseID: "w2", Quantity: 1}
			if i%2 == 1 {
				req.FromWarehouseID, req.ToWarehouseID = "w2", "w1"
			}
			_, err := f.movements.Transfer(context.Background(), tenant, user, req)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(500), f.balance(t, "w1"))
	assert.Equal(t, int64(500), f.balance(t, "w2"))
}

// ── Balance projector ────────────────────────────────────────────────────────

func TestBalances_ByWarehouseIncludesEmptyWarehouses(t *testing.T) {
	f := newFixture(t)
	_, err := f.register("IN", "w1", 4)
	require.NoError(t, err)

	rows, err := f.balances.GetBalancesByWarehouse(context.Background(), tenant, "p1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	byID := map[string]int64{}
	for _, r := range rows {
		byID[r.WarehouseID] = r.Quantity
	}
	assert.Equal(t, int64(4), byID["w1"])
	assert.Equal(t, int64(0), byID["w2"])

	_, err = f.balances.GetBalancesByWarehouse(context.Background(), tenant, "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBalances_NeverTouchedKeyIsZero(t *testing.T) {
	f := newFixture(t)
	b, err := f.balances.GetBalance(context.Background(), tenant, "p1", "w2", true)
	require.NoError(t, err)
	assert.Equal(t, int64(0), b.Quantity)
	require.NotNil(t, b.Consistent)
	assert.True(t, *b.Consistent)
}

// El saldo materializado siempre coincide con la suma del ledger.
func TestBalances_MatchLedgerReplayAfterRandomOperations(t *testing.T) {
	f := newFixture(t)
	rng := rand.New(rand.NewSource(42))
	ctx := context.Background()

	for i := 0; i < 300; i++ {
		wh := []string{"w1", "w2"}[rng.Intn(2)]
		qty := int64(rng.Intn(20) + 1)
		switch rng.Intn(4) {
		case 0, 1:
			_, _ = f.register("IN", wh, qty)
		case 2:
			_, _ = f.register("OUT", wh, qty)
		case 3:
			other := map[string]string{"w1": "w2", "w2": "w1"}[wh]
			_, _ = f.movements.Transfer(ctx, tenant, user, dto.TransferRequest{
				ProductID: "p1", FromWarehouseID: wh, ToWarehouseID: other, Quantity: qty,
			})
		}
	}

	for _, wh := range []string{"w1", "w2"} {
		b, err := f.balances.GetBalance(ctx, tenant, "p1", wh, true)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, b.Quantity, int64(0))
		assert.True(t, *b.Consistent, "bodega %s: saldo %d, ledger %d", wh, b.Quantity, *b.LedgerQuantity)

		replayed, err := f.balances.ReplayBalance(ctx, tenant, "p1", wh)
		require.NoError(t, err)
		assert.Equal(t, b.Quantity, replayed)
	}
}

// ── Ledger ───────────────────────────────────────────────────────────────────

func TestLedger_AppendRequiresLockedKey(t *testing.T) {
	f := newFixture(t)
	err := f.runner.Run(context.Background(), func(tx repository.Tx) error {
		_, err := f.ledger.AppendInTx(context.Background(), tx, &entity.StockMovement{
			TenantID: tenant, ProductID: "p1", WarehouseID: "w1", Quantity: 1, Type: entity.MovementIn,
		})
		return err
	})
	assert.ErrorIs(t, err, repository.ErrKeyNotLocked)
}

func TestLedger_AppendRejectsZeroQuantity(t *testing.T) {
	f := newFixture(t)
	err := f.runner.Run(context.Background(), func(tx repository.Tx) error {
		_, err := f.ledger.AppendInTx(context.Background(), tx, &entity.StockMovement{
			TenantID: tenant, ProductID: "p1", WarehouseID: "w1", Quantity: 0, Type: entity.MovementAdjustment,
		})
		return err
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLedger_AppendBelowZeroReportsAvailable(t *testing.T) {
	f := newFixture(t)
	_, err := f.register("IN", "w1", 2)
	require.NoError(t, err)
	key := entity.StockKey{ProductID: "p1", WarehouseID: "w1"}

	err = f.runner.Run(context.Background(), func(tx repository.Tx) error {
		if _, err := tx.Balances.LockForUpdate(context.Background(), tenant, []entity.StockKey{key}); err != nil {
			return err
		}
		_, err := f.ledger.AppendInTx(context.Background(), tx, &entity.StockMovement{
			TenantID: tenant, ProductID: "p1", WarehouseID: "w1", Quantity: -5, Type: entity.MovementOut,
		})
		return err
	})
	var ise *domain.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, int64(2), ise.Available)
	assert.Equal(t, int64(5), ise.Requested)
}

// ── Límites de cantidad ──────────────────────────────────────────────────────

func TestRegisterMovement_QuantityAboveMaximumIsValidationError(t *testing.T) {
	f := newFixture(t)
	_, err := f.register("IN", "w1", 10)
	require.NoError(t, err)

	cases := []struct {
		typ string
		qty int64
	}{
		{"IN", math.MaxInt64},
		{"IN", ledger.MaxQuantity + 1},
		{"OUT", math.MaxInt64},
		{"ADJUSTMENT", math.MaxInt64},
		{"ADJUSTMENT", math.MinInt64},
		{"ADJUSTMENT", -ledger.MaxQuantity - 1},
	}
	for _, tc := range cases {
		_, err := f.register(tc.typ, "w1", tc.qty)
		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve, "%s %d", tc.typ, tc.qty)
		assert.Equal(t, "quantity", ve.Field)
		assert.NotErrorIs(t, err, domain.ErrInsufficientStock)
	}

	in, err := f.register("IN", "w1", ledger.MaxQuantity)
	require.NoError(t, err)
	assert.Equal(t, ledger.MaxQuantity+10, *in.Balance)
}

func TestTransfer_QuantityAboveMaximumIsValidationError(t *testing.T) {
	f := newFixture(t)
	_, err := f.movements.Transfer(context.Background(), tenant, user, dto.TransferRequest{
		ProductID: "p1", FromWarehouseID: "w1", ToWarehouseID: "w2", Quantity: math.MaxInt64,
	})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "quantity", ve.Field)
}

func TestLedger_AppendRejectsQuantityAboveMaximum(t *testing.T) {
	f := newFixture(t)
	key := entity.StockKey{ProductID: "p1", WarehouseID: "w1"}
	err := f.runner.Run(context.Background(), func(tx repository.Tx) error {
		if _, err := tx.Balances.LockForUpdate(context.Background(), tenant, []entity.StockKey{key}); err != nil {
			return err
		}
		_, err := f.ledger.AppendInTx(context.Background(), tx, &entity.StockMovement{
			TenantID: tenant, ProductID: "p1", WarehouseID: "w1", Quantity: math.MaxInt64, Type: entity.MovementIn,
		})
		return err
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestBalances_ApplyDeltaDetectsOverflow(t *testing.T) {
	f := newFixture(t)
	_, err := f.register("IN", "w1", 10)
	require.NoError(t, err)
	key := entity.StockKey{ProductID: "p1", WarehouseID: "w1"}

	err = f.runner.Run(context.Background(), func(tx repository.Tx) error {
		if _, err := tx.Balances.LockForUpdate(context.Background(), tenant, []entity.StockKey{key}); err != nil {
			return err
		}
		_, err := tx.Balances.ApplyDelta(context.Background(), tenant, key, math.MaxInt64)
		return err
	})
	assert.ErrorIs(t, err, repository.ErrBalanceOverflow)
	assert.Equal(t, int64(10), f.balance(t, "w1"))
}
