package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de persistencia para productos. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

// Upsert crea o actualiza un producto (seed y tests).
func (r *ProductRepo) Upsert(ctx context.Context, p *entity.Product) error {
	const query = `
		INSERT INTO products (id, tenant_id, sku, name, unit)
		VALUES ($1, $2, $3, $4, COALESCE(NULLIF($5, ''), 'unit'))
		ON CONFLICT (tenant_id, id) DO UPDATE
		SET sku = EXCLUDED.sku, name = EXCLUDED.name, unit = EXCLUDED.unit`
	if _, err := r.q.Exec(ctx, query, p.ID, p.TenantID, p.SKU, p.Name, p.Unit); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("sku %q duplicado: %w", p.SKU, err)
		}
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}

// GetByID obtiene un producto del tenant por ID.
func (r *ProductRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.Product, error) {
	const query = `
		SELECT id, tenant_id, sku, name, unit, created_at
		FROM products WHERE tenant_id = $1 AND id = $2`
	var p entity.Product
	err := r.q.QueryRow(ctx, query, tenantID, id).Scan(
		&p.ID, &p.TenantID, &p.SKU, &p.Name, &p.Unit, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// GetByIDs productos encontrados, indexados por id.
func (r *ProductRepo) GetByIDs(ctx context.Context, tenantID string, ids []string) (map[string]*entity.Product, error) {
	out := make(map[string]*entity.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	const query = `
		SELECT id, tenant_id, sku, name, unit, created_at
		FROM products WHERE tenant_id = $1 AND id = ANY($2)`
	rows, err := r.q.Query(ctx, query, tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p entity.Product
		if err := rows.Scan(&p.ID, &p.TenantID, &p.SKU, &p.Name, &p.Unit, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out[p.ID] = &p
	}
	return out, rows.Err()
}
