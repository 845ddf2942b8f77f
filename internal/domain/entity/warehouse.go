package entity

import "time"

// Warehouse bodega o sucursal donde se almacena inventario (dato maestro, solo lectura).
type Warehouse struct {
	ID        string
	TenantID  string
	Name      string
	Address   string
	CreatedAt time.Time
}
