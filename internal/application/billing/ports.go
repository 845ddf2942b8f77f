package billing

import (
	"context"

	"github.com/jhoicas/stockledger-api/internal/application/dto"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
)

// TxRunner ejecuta fn en una transacción con repositorios de inventario y facturación.
type TxRunner interface {
	Run(ctx context.Context, fn func(tx repository.Tx) error) error
}

// StockLedger integra facturación con el ledger de inventario.
// AppendInTx escribe el movimiento con los repositorios del caller (misma transacción).
// Si retorna error (ej: InsufficientStockError), el caller debe hacer rollback.
type StockLedger interface {
	AppendInTx(ctx context.Context, tx repository.Tx, m *entity.StockMovement) (int64, error)
	Rejected(operation string)
}

// IdempotencyCache atajo para reintentos de clientes: idempotency key -> factura.
// La base de datos sigue siendo la fuente de verdad; un fallo de caché nunca es fatal.
type IdempotencyCache interface {
	Get(ctx context.Context, tenantID, key string) (invoiceID, requestHash string, found bool, err error)
	Put(ctx context.Context, tenantID, key, invoiceID, requestHash string) error
}

// InvoicePDFGenerator genera la representación gráfica de una factura.
type InvoicePDFGenerator interface {
	GenerateInvoicePDF(ctx context.Context, invoice *dto.InvoiceResponse) ([]byte, error)
}
