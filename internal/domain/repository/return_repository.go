package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stockledger-api/internal/domain/entity"
)

// ReturnRepository devoluciones de clientes y el resumen comprado/devuelto.
type ReturnRepository interface {
	Create(ctx context.Context, ret *entity.CustomerReturn) error
	List(ctx context.Context, tenantID string, limit, offset int) ([]*entity.CustomerReturn, error)
	// PurchaseSummary una sola clave; cantidades en cero si nunca compró.
	PurchaseSummary(ctx context.Context, tenantID, customerID string, key entity.StockKey) (entity.CustomerPurchaseSummary, error)
	// ListPurchaseSummaries una fila por (producto, bodega) comprada alguna vez.
	ListPurchaseSummaries(ctx context.Context, tenantID, customerID string) ([]entity.CustomerPurchaseSummary, error)
}

// CustomerActivityRepository lectura de importes de facturas y devoluciones de un cliente.
type CustomerActivityRepository interface {
	// ListCustomerActivity from/to nil = sin límite; to es exclusivo.
	ListCustomerActivity(ctx context.Context, tenantID, customerID string, from, to *time.Time) ([]entity.CustomerActivity, error)
}

// AuditRepository registros de auditoría (solo inserción).
type AuditRepository interface {
	Create(ctx context.Context, entry *entity.AuditEntry) error
}
