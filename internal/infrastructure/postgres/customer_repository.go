package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
)

var _ repository.CustomerRepository = (*CustomerRepo)(nil)

// CustomerRepo implementación de CustomerRepository (usable con pool o tx).
type CustomerRepo struct {
	q Querier
}

// NewCustomerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCustomerRepository(q Querier) *CustomerRepo {
	return &CustomerRepo{q: q}
}

// Upsert crea o actualiza un cliente. Lo usan el seed y los tests de integración;
// la API no escribe datos maestros.
func (r *CustomerRepo) Upsert(ctx context.Context, c *entity.Customer) error {
	const query = `
		INSERT INTO customers (id, tenant_id, name, tax_id, email)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tenant_id, id) DO UPDATE
		SET name = EXCLUDED.name, tax_id = EXCLUDED.tax_id, email = EXCLUDED.email`
	if _, err := r.q.Exec(ctx, query, c.ID, c.TenantID, c.Name, c.TaxID, c.Email); err != nil {
		return fmt.Errorf("upsert customer: %w", err)
	}
	return nil
}

// GetByID obtiene un cliente del tenant por ID.
func (r *CustomerRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.Customer, error) {
	const query = `
		SELECT id, tenant_id, name, tax_id, email, created_at
		FROM customers WHERE tenant_id = $1 AND id = $2`
	var c entity.Customer
	err := r.q.QueryRow(ctx, query, tenantID, id).Scan(
		&c.ID, &c.TenantID, &c.Name, &c.TaxID, &c.Email, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return &c, nil
}
