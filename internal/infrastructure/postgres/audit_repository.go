package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
)

var _ repository.AuditRepository = (*AuditRepo)(nil)

// AuditRepo audit_logs (solo inserción).
type AuditRepo struct {
	q Querier
}

// NewAuditRepository construye el adaptador. Pasar pool o tx (Querier).
func NewAuditRepository(q Querier) *AuditRepo {
	return &AuditRepo{q: q}
}

// Create inserta el registro; corre en la tx de la operación auditada.
func (r *AuditRepo) Create(ctx context.Context, e *entity.AuditEntry) error {
	const query = `
		INSERT INTO audit_logs (id, tenant_id, user_id, action, entity_type, entity_id, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`
	var payload any
	if len(e.Payload) > 0 {
		payload = string(e.Payload)
	}
	err := r.q.QueryRow(ctx, query, e.ID, e.TenantID, e.UserID, e.Action, e.EntityType, e.EntityID, payload).
		Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}
