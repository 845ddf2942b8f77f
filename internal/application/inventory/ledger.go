package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/ledger"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
)

// Ledger es el único punto de escritura de movimientos. Facturas, devoluciones,
// traslados y movimientos manuales terminan en AppendInTx.
type Ledger struct {
	observer Observer
}

// NewLedger construye el ledger. observer puede ser nil.
func NewLedger(observer Observer) *Ledger {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Ledger{observer: observer}
}

// AppendInTx valida el movimiento, aplica el delta sobre el saldo (que el caller ya
// bloqueó con LockForUpdate en la misma tx) e inserta el movimiento. Devuelve el
// saldo resultante. Si el saldo quedaría negativo no se escribe nada y se devuelve
// InsufficientStockError.
func (l *Ledger) AppendInTx(ctx context.Context, tx repository.Tx, m *entity.StockMovement) (int64, error) {
	if err := ledger.ValidateMovement(m); err != nil {
		return 0, err
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	key := m.Key()

	balance, err := tx.Balances.ApplyDelta(ctx, m.TenantID, key, m.Quantity)
	if errors.Is(err, repository.ErrNegativeBalance) {
		available, gerr := tx.Balances.Get(ctx, m.TenantID, key)
		if gerr != nil {
			return 0, fmt.Errorf("ledger: leer saldo tras rechazo: %w", gerr)
		}
		l.observer.StockRejected(string(m.Type))
		return 0, &domain.InsufficientStockError{
			ProductID:   key.ProductID,
			WarehouseID: key.WarehouseID,
			Available:   available,
			Requested:   -m.Quantity,
		}
	}
	if errors.Is(err, repository.ErrBalanceOverflow) {
		return 0, domain.NewValidationError("quantity", "el saldo resultante excede el rango permitido")
	}
	if err != nil {
		return 0, fmt.Errorf("ledger: aplicar delta: %w", err)
	}

	if err := tx.Movements.Append(ctx, m); err != nil {
		return 0, fmt.Errorf("ledger: insertar movimiento: %w", err)
	}
	l.observer.MovementAppended(m.Type, m.Quantity)
	return balance, nil
}

// Rejected notifica un rechazo por stock detectado antes de llegar a AppendInTx.
func (l *Ledger) Rejected(operation string) {
	l.observer.StockRejected(operation)
}
