package inventory

import (
	"context"

	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Los fallos transitorios (serialización, deadlock, lock timeout) se reintentan dentro de Run;
// fn debe poder ejecutarse más de una vez.
type TxRunner interface {
	Run(ctx context.Context, fn func(tx repository.Tx) error) error
}

// Observer recibe eventos del ledger (métricas). Las implementaciones no deben bloquear.
type Observer interface {
	MovementAppended(movementType entity.MovementType, quantity int64)
	StockRejected(operation string)
}

type nopObserver struct{}

func (nopObserver) MovementAppended(entity.MovementType, int64) {}
func (nopObserver) StockRejected(string)                        {}
