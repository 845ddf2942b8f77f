package entity

import "time"

// StockKey identifica un saldo: producto en bodega.
type StockKey struct {
	ProductID   string
	WarehouseID string
}

// Less orden total usado para adquirir locks: producto y luego bodega.
func (k StockKey) Less(o StockKey) bool {
	if k.ProductID != o.ProductID {
		return k.ProductID < o.ProductID
	}
	return k.WarehouseID < o.WarehouseID
}

// StockBalance saldo materializado de (producto, bodega). Siempre igual a la suma
// de los movimientos de esa clave y nunca negativo.
type StockBalance struct {
	TenantID    string
	ProductID   string
	WarehouseID string
	Quantity    int64
	UpdatedAt   time.Time
}

// WarehouseBalance saldo de un producto en una bodega con su nombre (vista de lectura).
type WarehouseBalance struct {
	WarehouseID   string
	WarehouseName string
	Quantity      int64
}
