package repository

import (
	"context"

	"github.com/jhoicas/stockledger-api/internal/domain/entity"
)

// MovementFilter filtros de listado de movimientos; campos vacíos no filtran.
type MovementFilter struct {
	ProductID   string
	WarehouseID string
	Type        entity.MovementType
	Limit       int
	Offset      int
}

// StockMovementRepository ledger append-only. No existe Update ni Delete.
type StockMovementRepository interface {
	// Append inserta el movimiento; el adaptador asigna CreatedAt.
	Append(ctx context.Context, m *entity.StockMovement) error
	List(ctx context.Context, tenantID string, f MovementFilter) ([]*entity.StockMovement, error)
	// SumByKey recalcula el saldo sumando el historial (replay).
	SumByKey(ctx context.Context, tenantID string, key entity.StockKey) (int64, error)
}

// StockBalanceRepository saldos materializados por (producto, bodega).
type StockBalanceRepository interface {
	Get(ctx context.Context, tenantID string, key entity.StockKey) (int64, error)
	// ListByProduct incluye todas las bodegas del tenant, con 0 donde no hay saldo.
	ListByProduct(ctx context.Context, tenantID, productID string) ([]entity.WarehouseBalance, error)
	TotalByProduct(ctx context.Context, tenantID, productID string) (int64, error)
	// LockForUpdate bloquea las filas en el orden recibido (creándolas en 0 si
	// faltan) y devuelve la cantidad actual de cada una.
	LockForUpdate(ctx context.Context, tenantID string, keys []entity.StockKey) (map[entity.StockKey]int64, error)
	// ApplyDelta suma delta a una fila ya bloqueada y devuelve el saldo nuevo.
	// ErrNegativeBalance si el resultado fuese negativo.
	ApplyDelta(ctx context.Context, tenantID string, key entity.StockKey, delta int64) (int64, error)
}
