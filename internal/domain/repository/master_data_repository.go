package repository

import (
	"context"

	"github.com/jhoicas/stockledger-api/internal/domain/entity"
)

// Datos maestros: este servicio solo los lee. GetByID devuelve (nil, nil) si no existe
// o pertenece a otro tenant.

// CustomerRepository puerto de lectura de clientes.
type CustomerRepository interface {
	GetByID(ctx context.Context, tenantID, id string) (*entity.Customer, error)
}

// ProductRepository puerto de lectura de productos.
type ProductRepository interface {
	GetByID(ctx context.Context, tenantID, id string) (*entity.Product, error)
	// GetByIDs devuelve solo los encontrados, indexados por id.
	GetByIDs(ctx context.Context, tenantID string, ids []string) (map[string]*entity.Product, error)
}

// WarehouseRepository puerto de lectura de bodegas.
type WarehouseRepository interface {
	GetByID(ctx context.Context, tenantID, id string) (*entity.Warehouse, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*entity.Warehouse, error)
}
