package returns

import (
	"context"

	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
)

// TxRunner ejecuta fn en una transacción con los repositorios atados a ella.
type TxRunner interface {
	Run(ctx context.Context, fn func(tx repository.Tx) error) error
}

// StockLedger escritura de movimientos dentro de la transacción del caller.
type StockLedger interface {
	AppendInTx(ctx context.Context, tx repository.Tx, m *entity.StockMovement) (int64, error)
}
