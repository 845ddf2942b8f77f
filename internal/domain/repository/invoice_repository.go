package repository

import (
	"context"

	"github.com/jhoicas/stockledger-api/internal/domain/entity"
)

// InvoiceRepository puerto de persistencia para facturas y sus líneas.
type InvoiceRepository interface {
	// NextNumber reserva el siguiente consecutivo del tenant para el año (INV-2026-00001).
	NextNumber(ctx context.Context, tenantID string, year int) (string, error)
	// Create inserta cabecera y líneas. ErrDuplicateIdempotencyKey si la key ya existe.
	Create(ctx context.Context, invoice *entity.Invoice) error
	// GetByID devuelve la factura con sus líneas, o (nil, nil).
	GetByID(ctx context.Context, tenantID, id string) (*entity.Invoice, error)
	GetByIdempotencyKey(ctx context.Context, tenantID, key string) (*entity.Invoice, error)
	// List devuelve cabeceras (sin líneas), más recientes primero.
	List(ctx context.Context, tenantID string, limit, offset int) ([]*entity.Invoice, error)
}
