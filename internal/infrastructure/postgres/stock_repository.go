package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
)

var _ repository.StockBalanceRepository = (*StockBalanceRepo)(nil)

// StockBalanceRepo saldos materializados en stock_balances (usable con pool o tx).
// Recuerda qué claves bloqueó en su tx para que ApplyDelta no escriba sin lock.
type StockBalanceRepo struct {
	q      Querier
	locked map[lockedKey]struct{}
}

type lockedKey struct {
	tenant string
	key    entity.StockKey
}

// NewStockBalanceRepository construye el adaptador de saldos. Pasar pool o tx (Querier).
func NewStockBalanceRepository(q Querier) *StockBalanceRepo {
	return &StockBalanceRepo{q: q, locked: map[lockedKey]struct{}{}}
}

// Get saldo actual; 0 si la fila no existe.
func (r *StockBalanceRepo) Get(ctx context.Context, tenantID string, key entity.StockKey) (int64, error) {
	const query = `
		SELECT quantity FROM stock_balances
		WHERE tenant_id = $1 AND product_id = $2 AND warehouse_id = $3`
	var qty int64
	err := r.q.QueryRow(ctx, query, tenantID, key.ProductID, key.WarehouseID).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get stock balance: %w", err)
	}
	return qty, nil
}

// ListByProduct una fila por bodega del tenant, con 0 donde no hay saldo.
func (r *StockBalanceRepo) ListByProduct(ctx context.Context, tenantID, productID string) ([]entity.WarehouseBalance, error) {
	const query = `
		SELECT w.id, w.name, COALESCE(b.quantity, 0)
		FROM warehouses w
		LEFT JOIN stock_balances b
		       ON b.tenant_id = w.tenant_id AND b.warehouse_id = w.id AND b.product_id = $2
		WHERE w.tenant_id = $1
		ORDER BY w.name, w.id`
	rows, err := r.q.Query(ctx, query, tenantID, productID)
	if err != nil {
		return nil, fmt.Errorf("list balances by product: %w", err)
	}
	defer rows.Close()
	var out []entity.WarehouseBalance
	for rows.Next() {
		var wb entity.WarehouseBalance
		if err := rows.Scan(&wb.WarehouseID, &wb.WarehouseName, &wb.Quantity); err != nil {
			return nil, fmt.Errorf("scan warehouse balance: %w", err)
		}
		out = append(out, wb)
	}
	return out, rows.Err()
}

// TotalByProduct suma de todas las bodegas.
func (r *StockBalanceRepo) TotalByProduct(ctx context.Context, tenantID, productID string) (int64, error) {
	const query = `
		SELECT COALESCE(SUM(quantity), 0)::BIGINT FROM stock_balances
		WHERE tenant_id = $1 AND product_id = $2`
	var total int64
	if err := r.q.QueryRow(ctx, query, tenantID, productID).Scan(&total); err != nil {
		return 0, fmt.Errorf("total balance by product: %w", err)
	}
	return total, nil
}

// LockForUpdate crea las filas que falten en 0 y las bloquea con SELECT ... FOR UPDATE,
// una por una en el orden recibido (el caller las pasa ordenadas).
func (r *StockBalanceRepo) LockForUpdate(ctx context.Context, tenantID string, keys []entity.StockKey) (map[entity.StockKey]int64, error) {
	const ensure = `
		INSERT INTO stock_balances (tenant_id, product_id, warehouse_id, quantity)
		VALUES ($1, $2, $3, 0)
		ON CONFLICT (tenant_id, product_id, warehouse_id) DO NOTHING`
	const lock = `
		SELECT quantity FROM stock_balances
		WHERE tenant_id = $1 AND product_id = $2 AND warehouse_id = $3
		FOR UPDATE`

	out := make(map[entity.StockKey]int64, len(keys))
	for _, k := range keys {
		if _, err := r.q.Exec(ctx, ensure, tenantID, k.ProductID, k.WarehouseID); err != nil {
			return nil, fmt.Errorf("ensure stock balance row: %w", err)
		}
		var qty int64
		if err := r.q.QueryRow(ctx, lock, tenantID, k.ProductID, k.WarehouseID).Scan(&qty); err != nil {
			return nil, fmt.Errorf("lock stock balance: %w", err)
		}
		out[k] = qty
		r.locked[lockedKey{tenant: tenantID, key: k}] = struct{}{}
	}
	return out, nil
}

// ApplyDelta UPDATE condicional: si el saldo quedaría negativo no toca la fila y
// devuelve ErrNegativeBalance sin abortar la transacción. El CHECK de la tabla
// queda como última barrera.
func (r *StockBalanceRepo) ApplyDelta(ctx context.Context, tenantID string, key entity.StockKey, delta int64) (int64, error) {
	if _, ok := r.locked[lockedKey{tenant: tenantID, key: key}]; !ok {
		return 0, repository.ErrKeyNotLocked
	}
	const query = `
		UPDATE stock_balances
		SET quantity = quantity + $4, updated_at = now()
		WHERE tenant_id = $1 AND product_id = $2 AND warehouse_id = $3
		  AND quantity + $4 >= 0
		RETURNING quantity`
	var qty int64
	err := r.q.QueryRow(ctx, query, tenantID, key.ProductID, key.WarehouseID, delta).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, repository.ErrNegativeBalance
		}
		if isConstraint(err, "ck_stock_balances_non_negative") {
			return 0, repository.ErrNegativeBalance
		}
		if pgCode(err) == codeNumericOutOfRange {
			return 0, repository.ErrBalanceOverflow
		}
		return 0, fmt.Errorf("apply stock delta: %w", err)
	}
	return qty, nil
}
