package entity

import "time"

// Customer cliente del tenant (dato maestro, solo lectura para este servicio).
type Customer struct {
	ID        string
	TenantID  string
	Name      string
	TaxID     string
	Email     string
	CreatedAt time.Time
}
