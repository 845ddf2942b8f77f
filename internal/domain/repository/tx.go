package repository

// Tx agrupa los repositorios atados a una misma transacción. Lo construye el
// TxRunner de cada adaptador y solo vive dentro del callback.
type Tx struct {
	Movements StockMovementRepository
	Balances  StockBalanceRepository
	Invoices  InvoiceRepository
	Returns   ReturnRepository
	Audit     AuditRepository
}
