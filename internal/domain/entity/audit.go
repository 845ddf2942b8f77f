package entity

import (
	"encoding/json"
	"time"
)

// Acciones registradas en audit_logs.
const (
	AuditInvoiceCreated  = "INVOICE_CREATED"
	AuditReturnCreated   = "RETURN_CREATED"
	AuditTransferCreated = "TRANSFER_CREATED"
	AuditMovementCreated = "MOVEMENT_CREATED"
)

// AuditEntry registro de auditoría escrito en la misma transacción que la operación.
type AuditEntry struct {
	ID         string
	TenantID   string
	UserID     string
	Action     string
	EntityType string
	EntityID   string
	Payload    json.RawMessage
	CreatedAt  time.Time
}
