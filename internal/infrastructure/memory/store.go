// Package memory implementa los repositorios y el TxRunner en memoria. Se usa en
// tests y con LEDGER_STORAGE=memory para desarrollo local.
//
// Concurrencia: cada saldo (tenant, producto, bodega) y cada consecutivo de
// facturas tiene su propio lock, tomado dentro de la transacción y liberado al
// terminarla. Las escrituras de una tx quedan pendientes y se aplican juntas al
// confirmar, bajo el mutex del store durante un tiempo corto.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/stockledger-api/internal/domain/entity"
)

// ErrLockTimeout no se obtuvo un lock dentro del plazo; la tx se puede reintentar.
var ErrLockTimeout = errors.New("memory: timeout esperando lock")

const defaultLockTimeout = 2 * time.Second

type tenantID = string

type balanceKey struct {
	tenant tenantID
	key    entity.StockKey
}

// Store estado confirmado. Los datos maestros se cargan con Add*.
type Store struct {
	mu sync.RWMutex

	customers  map[string]*entity.Customer // tenant|id
	products   map[string]*entity.Product
	warehouses map[string]*entity.Warehouse

	movements    []*entity.StockMovement
	balances     map[balanceKey]int64
	invoices     []*entity.Invoice
	invoiceByID  map[string]*entity.Invoice // tenant|id
	invoiceByKey map[string]*entity.Invoice // tenant|idempotency key
	returns      []*entity.CustomerReturn
	audit        []*entity.AuditEntry
	sequences    map[string]int64 // tenant|año

	locksMu sync.Mutex
	locks   map[string]chan struct{}

	lockTimeout time.Duration
	now         func() time.Time
}

// Option configura el Store.
type Option func(*Store)

// WithLockTimeout plazo máximo de espera por un lock.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// WithClock reloj para created_at (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore crea un store vacío.
func NewStore(opts ...Option) *Store {
	s := &Store{
		customers:    map[string]*entity.Customer{},
		products:     map[string]*entity.Product{},
		warehouses:   map[string]*entity.Warehouse{},
		balances:     map[balanceKey]int64{},
		invoiceByID:  map[string]*entity.Invoice{},
		invoiceByKey: map[string]*entity.Invoice{},
		sequences:    map[string]int64{},
		locks:        map[string]chan struct{}{},
		lockTimeout:  defaultLockTimeout,
		now:          time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func scoped(tenant, id string) string { return tenant + "|" + id }

// AddCustomer carga un cliente.
func (s *Store) AddCustomer(c entity.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[scoped(c.TenantID, c.ID)] = &c
}

// AddProduct carga un producto.
func (s *Store) AddProduct(p entity.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[scoped(p.TenantID, p.ID)] = &p
}

// AddWarehouse carga una bodega.
func (s *Store) AddWarehouse(w entity.Warehouse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warehouses[scoped(w.TenantID, w.ID)] = &w
}

// ── locks ────────────────────────────────────────────────────────────────────

func balanceLockName(k balanceKey) string {
	return fmt.Sprintf("b|%s|%s|%s", k.tenant, k.key.ProductID, k.key.WarehouseID)
}

func sequenceLockName(tenant string, year int) string {
	return fmt.Sprintf("s|%s|%d", tenant, year)
}

func (s *Store) lockChan(name string) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	ch, ok := s.locks[name]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[name] = ch
	}
	return ch
}

func (s *Store) acquire(ctx context.Context, name string) error {
	ch := s.lockChan(name)
	timer := time.NewTimer(s.lockTimeout)
	defer timer.Stop()
	select {
	case ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("%w: %s", ErrLockTimeout, name)
	}
}

func (s *Store) release(name string) {
	<-s.lockChan(name)
}
