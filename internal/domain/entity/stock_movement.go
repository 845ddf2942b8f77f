package entity

import "time"

// MovementType tipo de movimiento de stock.
type MovementType string

// Tipos de movimiento admitidos por el ledger.
const (
	MovementIn         MovementType = "IN"         // entrada (compra, reposición, devolución de cliente)
	MovementOut        MovementType = "OUT"        // salida manual
	MovementSale       MovementType = "SALE"       // salida por factura
	MovementTransfer   MovementType = "TRANSFER"   // par OUT/IN entre bodegas
	MovementAdjustment MovementType = "ADJUSTMENT" // corrección de inventario (signo libre)
)

// Valid indica si t es un tipo conocido.
func (t MovementType) Valid() bool {
	switch t {
	case MovementIn, MovementOut, MovementSale, MovementTransfer, MovementAdjustment:
		return true
	}
	return false
}

// Tipos de referencia de un movimiento.
const (
	ReferenceInvoice  = "INVOICE"
	ReferenceReturn   = "RETURN"
	ReferenceTransfer = "TRANSFER"
	ReferenceManual   = "MANUAL"
)

// StockMovement cambio de cantidad firmado contra (producto, bodega). Inmutable:
// las correcciones son movimientos compensatorios nuevos.
type StockMovement struct {
	ID            string
	TenantID      string
	ProductID     string
	WarehouseID   string
	Quantity      int64 // positivo = entrada, negativo = salida
	Type          MovementType
	ReferenceID   *string
	ReferenceType *string
	Note          string
	CreatedBy     string // UserID
	CreatedAt     time.Time
}

// Key devuelve la clave (producto, bodega) del movimiento.
func (m *StockMovement) Key() StockKey {
	return StockKey{ProductID: m.ProductID, WarehouseID: m.WarehouseID}
}
