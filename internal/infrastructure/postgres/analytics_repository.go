package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
)

var _ repository.CustomerActivityRepository = (*AnalyticsRepo)(nil)

// AnalyticsRepo consultas de solo lectura para el libro de cliente.
type AnalyticsRepo struct {
	pool *pgxpool.Pool
}

// NewAnalyticsRepository construye el adaptador de analítica.
func NewAnalyticsRepository(pool *pgxpool.Pool) *AnalyticsRepo {
	return &AnalyticsRepo{pool: pool}
}

// ListCustomerActivity importes de facturas (total_amount) y devoluciones (total)
// del cliente en [from, to). La agregación por período la hace la capa de aplicación
// para que los buckets respeten la zona horaria configurada.
func (r *AnalyticsRepo) ListCustomerActivity(
	ctx context.Context,
	tenantID, customerID string,
	from, to *time.Time,
) ([]entity.CustomerActivity, error) {
	const query = `
	SELECT 'SALE'         AS kind, i.id, i.total_amount, i.created_at
	FROM invoices i
	WHERE i.tenant_id = $1 AND i.customer_id = $2
	  AND ($3::TIMESTAMPTZ IS NULL OR i.created_at >= $3)
	  AND ($4::TIMESTAMPTZ IS NULL OR i.created_at <  $4)
	UNION ALL
	SELECT 'RETURN'       AS kind, r.id, r.total, r.created_at
	FROM customer_returns r
	WHERE r.tenant_id = $1 AND r.customer_id = $2
	  AND ($3::TIMESTAMPTZ IS NULL OR r.created_at >= $3)
	  AND ($4::TIMESTAMPTZ IS NULL OR r.created_at <  $4)
	ORDER BY 4`

	rows, err := r.pool.Query(ctx, query, tenantID, customerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("analytics.ListCustomerActivity: %w", err)
	}
	defer rows.Close()

	var results []entity.CustomerActivity
	for rows.Next() {
		var a entity.CustomerActivity
		var kind string
		if err := rows.Scan(&kind, &a.DocumentID, &a.Amount, &a.At); err != nil {
			return nil, fmt.Errorf("analytics.ListCustomerActivity scan: %w", err)
		}
		a.Kind = entity.ActivityKind(kind)
		results = append(results, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("analytics.ListCustomerActivity rows: %w", err)
	}
	return results, nil
}
