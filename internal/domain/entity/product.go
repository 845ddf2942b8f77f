package entity

import "time"

// Product producto o SKU (dato maestro, solo lectura).
type Product struct {
	ID        string
	TenantID  string
	SKU       string // único por tenant
	Name      string
	Unit      string
	CreatedAt time.Time
}
