// Package audit arma los registros de audit_logs que cada coordinador escribe
// dentro de su propia transacción.
package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
)

// Record serializa payload y lo inserta con el repositorio de la transacción en curso.
func Record(ctx context.Context, repo repository.AuditRepository, tenantID, userID, action, entityType, entityID string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("audit: payload %s: %w", action, err)
	}
	entry := &entity.AuditEntry{
		ID:         uuid.New().String(),
		TenantID:   tenantID,
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Payload:    raw,
	}
	if err := repo.Create(ctx, entry); err != nil {
		return fmt.Errorf("audit: %s: %w", action, err)
	}
	return nil
}
