package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
)

var _ repository.ReturnRepository = (*ReturnRepo)(nil)

// ReturnRepo devoluciones de clientes y resumen comprado/devuelto (usable con pool o tx).
type ReturnRepo struct {
	q Querier
}

// NewReturnRepository construye el adaptador. Pasar pool o tx (Querier).
func NewReturnRepository(q Querier) *ReturnRepo {
	return &ReturnRepo{q: q}
}

// Create persiste la devolución y completa CreatedAt.
func (r *ReturnRepo) Create(ctx context.Context, ret *entity.CustomerReturn) error {
	const query = `
		INSERT INTO customer_returns (id, tenant_id, customer_id, product_id, warehouse_id,
		                              quantity, unit_price, total, reason, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`
	err := r.q.QueryRow(ctx, query,
		ret.ID, ret.TenantID, ret.CustomerID, ret.ProductID, ret.WarehouseID,
		ret.Quantity, ret.UnitPrice, ret.Total, ret.Reason, ret.CreatedBy,
	).Scan(&ret.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert customer return: %w", err)
	}
	return nil
}

// List devoluciones del tenant, más recientes primero.
func (r *ReturnRepo) List(ctx context.Context, tenantID string, limit, offset int) ([]*entity.CustomerReturn, error) {
	const query = `
		SELECT id, tenant_id, customer_id, product_id, warehouse_id,
		       quantity, unit_price, total, reason, created_by, created_at
		FROM customer_returns WHERE tenant_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list customer returns: %w", err)
	}
	defer rows.Close()
	var list []*entity.CustomerReturn
	for rows.Next() {
		var ret entity.CustomerReturn
		if err := rows.Scan(&ret.ID, &ret.TenantID, &ret.CustomerID, &ret.ProductID, &ret.WarehouseID,
			&ret.Quantity, &ret.UnitPrice, &ret.Total, &ret.Reason, &ret.CreatedBy, &ret.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan customer return: %w", err)
		}
		list = append(list, &ret)
	}
	return list, rows.Err()
}

// purchaseSummaryQuery comprado (líneas de factura), devuelto y último precio por
// (producto, bodega). $3/$4 vacíos = todas las claves.
const purchaseSummaryQuery = `
	WITH purchased AS (
	    SELECT ii.product_id, i.warehouse_id, SUM(ii.quantity)::BIGINT AS qty
	    FROM invoice_items ii
	    JOIN invoices i ON i.id = ii.invoice_id
	    WHERE i.tenant_id = $1 AND i.customer_id = $2
	      AND ($3 = '' OR ii.product_id = $3)
	      AND ($4 = '' OR i.warehouse_id = $4)
	    GROUP BY ii.product_id, i.warehouse_id
	),
	returned AS (
	    SELECT product_id, warehouse_id, SUM(quantity)::BIGINT AS qty
	    FROM customer_returns
	    WHERE tenant_id = $1 AND customer_id = $2
	      AND ($3 = '' OR product_id = $3)
	      AND ($4 = '' OR warehouse_id = $4)
	    GROUP BY product_id, warehouse_id
	),
	last_price AS (
	    SELECT DISTINCT ON (ii.product_id, i.warehouse_id)
	           ii.product_id, i.warehouse_id, ii.unit_price
	    FROM invoice_items ii
	    JOIN invoices i ON i.id = ii.invoice_id
	    WHERE i.tenant_id = $1 AND i.customer_id = $2
	      AND ($3 = '' OR ii.product_id = $3)
	      AND ($4 = '' OR i.warehouse_id = $4)
	    ORDER BY ii.product_id, i.warehouse_id, i.created_at DESC, ii.line_no DESC
	)
	SELECT p.product_id, pr.name, p.warehouse_id, w.name,
	       p.qty, COALESCE(r.qty, 0), COALESCE(lp.unit_price, 0)
	FROM purchased p
	JOIN products   pr ON pr.tenant_id = $1 AND pr.id = p.product_id
	JOIN warehouses w  ON w.tenant_id  = $1 AND w.id  = p.warehouse_id
	LEFT JOIN returned   r  ON r.product_id  = p.product_id AND r.warehouse_id  = p.warehouse_id
	LEFT JOIN last_price lp ON lp.product_id = p.product_id AND lp.warehouse_id = p.warehouse_id
	ORDER BY pr.name, w.name`

func (r *ReturnRepo) summaries(ctx context.Context, tenantID, customerID, productID, warehouseID string) ([]entity.CustomerPurchaseSummary, error) {
	rows, err := r.q.Query(ctx, purchaseSummaryQuery, tenantID, customerID, productID, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("purchase summary: %w", err)
	}
	defer rows.Close()
	var out []entity.CustomerPurchaseSummary
	for rows.Next() {
		s := entity.CustomerPurchaseSummary{CustomerID: customerID}
		if err := rows.Scan(&s.ProductID, &s.ProductName, &s.WarehouseID, &s.WarehouseName,
			&s.PurchasedQty, &s.ReturnedQty, &s.LastUnitPrice); err != nil {
			return nil, fmt.Errorf("scan purchase summary: %w", err)
		}
		s.ReturnableQty = s.PurchasedQty - s.ReturnedQty
		if s.ReturnableQty < 0 {
			s.ReturnableQty = 0
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// PurchaseSummary una sola clave; cantidades en cero si el cliente nunca la compró.
func (r *ReturnRepo) PurchaseSummary(ctx context.Context, tenantID, customerID string, key entity.StockKey) (entity.CustomerPurchaseSummary, error) {
	list, err := r.summaries(ctx, tenantID, customerID, key.ProductID, key.WarehouseID)
	if err != nil {
		return entity.CustomerPurchaseSummary{}, err
	}
	if len(list) > 0 {
		return list[0], nil
	}
	return entity.CustomerPurchaseSummary{
		CustomerID:    customerID,
		ProductID:     key.ProductID,
		WarehouseID:   key.WarehouseID,
		LastUnitPrice: decimal.Zero,
	}, nil
}

// ListPurchaseSummaries una fila por (producto, bodega) comprada alguna vez.
func (r *ReturnRepo) ListPurchaseSummaries(ctx context.Context, tenantID, customerID string) ([]entity.CustomerPurchaseSummary, error) {
	return r.summaries(ctx, tenantID, customerID, "", "")
}
