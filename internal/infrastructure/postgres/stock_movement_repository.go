package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo ledger stock_movements (usable con pool o tx). Solo INSERT y SELECT.
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

// Append inserta el movimiento y completa CreatedAt con el valor de la base.
func (r *StockMovementRepo) Append(ctx context.Context, m *entity.StockMovement) error {
	const query = `
		INSERT INTO stock_movements (id, tenant_id, product_id, warehouse_id, quantity, type,
		                             reference_id, reference_type, note, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`
	err := r.q.QueryRow(ctx, query,
		m.ID, m.TenantID, m.ProductID, m.WarehouseID, m.Quantity, string(m.Type),
		m.ReferenceID, m.ReferenceType, m.Note, m.CreatedBy,
	).Scan(&m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert stock movement: %w", err)
	}
	return nil
}

// List movimientos del tenant, más recientes primero.
func (r *StockMovementRepo) List(ctx context.Context, tenantID string, f repository.MovementFilter) ([]*entity.StockMovement, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, tenant_id, product_id, warehouse_id, quantity, type,
		       reference_id, reference_type, note, created_by, created_at
		FROM stock_movements WHERE tenant_id = $1`)
	args := []any{tenantID}
	add := func(cond string, v any) {
		args = append(args, v)
		fmt.Fprintf(&sb, " AND %s = $%d", cond, len(args))
	}
	if f.ProductID != "" {
		add("product_id", f.ProductID)
	}
	if f.WarehouseID != "" {
		add("warehouse_id", f.WarehouseID)
	}
	if f.Type != "" {
		add("type", string(f.Type))
	}
	sb.WriteString(" ORDER BY seq DESC")
	if f.Limit > 0 {
		args = append(args, f.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}

	rows, err := r.q.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockMovement
	for rows.Next() {
		var m entity.StockMovement
		var typ string
		if err := rows.Scan(&m.ID, &m.TenantID, &m.ProductID, &m.WarehouseID, &m.Quantity, &typ,
			&m.ReferenceID, &m.ReferenceType, &m.Note, &m.CreatedBy, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		m.Type = entity.MovementType(typ)
		list = append(list, &m)
	}
	return list, rows.Err()
}

// SumByKey recalcula el saldo desde el historial.
func (r *StockMovementRepo) SumByKey(ctx context.Context, tenantID string, key entity.StockKey) (int64, error) {
	const query = `
		SELECT COALESCE(SUM(quantity), 0)::BIGINT FROM stock_movements
		WHERE tenant_id = $1 AND product_id = $2 AND warehouse_id = $3`
	var sum int64
	if err := r.q.QueryRow(ctx, query, tenantID, key.ProductID, key.WarehouseID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum stock movements: %w", err)
	}
	return sum, nil
}
