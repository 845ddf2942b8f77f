// Package seed carga datos maestros (clientes, productos, bodegas) desde un JSON.
// La API no administra datos maestros; este paquete los deja listos para pruebas
// locales y para el driver en memoria.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/infrastructure/memory"
	"github.com/jhoicas/stockledger-api/internal/infrastructure/postgres"
)

// File formato del archivo:
//
//	{"tenants": [{"id": "t1", "customers": [...], "products": [...], "warehouses": [...]}]}
type File struct {
	Tenants []Tenant `json:"tenants"`
}

// Tenant datos maestros de un tenant.
type Tenant struct {
	ID         string      `json:"id"`
	Customers  []Customer  `json:"customers"`
	Products   []Product   `json:"products"`
	Warehouses []Warehouse `json:"warehouses"`
}

type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	TaxID string `json:"tax_id"`
	Email string `json:"email"`
}

type Product struct {
	ID   string `json:"id"`
	SKU  string `json:"sku"`
	Name string `json:"name"`
	Unit string `json:"unit"`
}

type Warehouse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Sink destino de los datos maestros.
type Sink interface {
	PutCustomer(ctx context.Context, c entity.Customer) error
	PutProduct(ctx context.Context, p entity.Product) error
	PutWarehouse(ctx context.Context, w entity.Warehouse) error
}

// Load lee y valida el archivo.
func Load(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed: leer %s: %w", path, err)
	}
	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("seed: JSON inválido en %s: %w", path, err)
	}
	for i, t := range f.Tenants {
		if t.ID == "" {
			return nil, fmt.Errorf("seed: tenants[%d] sin id", i)
		}
	}
	return &f, nil
}

// Counts totales aplicados.
type Counts struct {
	Customers, Products, Warehouses int
}

// Apply escribe todo en el sink. Es idempotente si el sink hace upsert.
func (f *File) Apply(ctx context.Context, sink Sink) (Counts, error) {
	var n Counts
	for _, t := range f.Tenants {
		for _, w := range t.Warehouses {
			if err := sink.PutWarehouse(ctx, entity.Warehouse{ID: w.ID, TenantID: t.ID, Name: w.Name, Address: w.Address}); err != nil {
				return n, fmt.Errorf("seed: bodega %s: %w", w.ID, err)
			}
			n.Warehouses++
		}
		for _, p := range t.Products {
			if err := sink.PutProduct(ctx, entity.Product{ID: p.ID, TenantID: t.ID, SKU: p.SKU, Name: p.Name, Unit: p.Unit}); err != nil {
				return n, fmt.Errorf("seed: producto %s: %w", p.ID, err)
			}
			n.Products++
		}
		for _, c := range t.Customers {
			if err := sink.PutCustomer(ctx, entity.Customer{ID: c.ID, TenantID: t.ID, Name: c.Name, TaxID: c.TaxID, Email: c.Email}); err != nil {
				return n, fmt.Errorf("seed: cliente %s: %w", c.ID, err)
			}
			n.Customers++
		}
	}
	return n, nil
}

// MemorySink escribe en el store en memoria.
type MemorySink struct{ Store *memory.Store }

func (s MemorySink) PutCustomer(_ context.Context, c entity.Customer) error {
	s.Store.AddCustomer(c)
	return nil
}

func (s MemorySink) PutProduct(_ context.Context, p entity.Product) error {
	s.Store.AddProduct(p)
	return nil
}

func (s MemorySink) PutWarehouse(_ context.Context, w entity.Warehouse) error {
	s.Store.AddWarehouse(w)
	return nil
}

// PostgresSink hace upsert con los repositorios de postgres (pool o tx).
type PostgresSink struct{ Q postgres.Querier }

func (s PostgresSink) PutCustomer(ctx context.Context, c entity.Customer) error {
	return postgres.NewCustomerRepository(s.Q).Upsert(ctx, &c)
}

func (s PostgresSink) PutProduct(ctx context.Context, p entity.Product) error {
	return postgres.NewProductRepository(s.Q).Upsert(ctx, &p)
}

func (s PostgresSink) PutWarehouse(ctx context.Context, w entity.Warehouse) error {
	return postgres.NewWarehouseRepository(s.Q).Upsert(ctx, &w)
}
