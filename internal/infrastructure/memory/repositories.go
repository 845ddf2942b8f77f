package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/ledger"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
)

var (
	_ repository.CustomerRepository         = (*CustomerRepo)(nil)
	_ repository.ProductRepository          = (*ProductRepo)(nil)
	_ repository.WarehouseRepository        = (*WarehouseRepo)(nil)
	_ repository.StockMovementRepository    = (*MovementRepo)(nil)
	_ repository.StockBalanceRepository     = (*BalanceRepo)(nil)
	_ repository.InvoiceRepository          = (*InvoiceRepo)(nil)
	_ repository.ReturnRepository           = (*ReturnRepo)(nil)
	_ repository.CustomerActivityRepository = (*ActivityRepo)(nil)
	_ repository.AuditRepository            = (*AuditRepo)(nil)
)

// Repos de lectura sobre el estado confirmado (sin tx).

// Customers repositorio de clientes.
func (s *Store) Customers() *CustomerRepo { return &CustomerRepo{s: s} }

// Products repositorio de productos.
func (s *Store) Products() *ProductRepo { return &ProductRepo{s: s} }

// Warehouses repositorio de bodegas.
func (s *Store) Warehouses() *WarehouseRepo { return &WarehouseRepo{s: s} }

// Movements ledger fuera de transacción (solo lectura).
func (s *Store) Movements() *MovementRepo { return &MovementRepo{s: s} }

// Balances saldos fuera de transacción (solo lectura).
func (s *Store) Balances() *BalanceRepo { return &BalanceRepo{s: s} }

// Invoices facturas fuera de transacción (solo lectura).
func (s *Store) Invoices() *InvoiceRepo { return &InvoiceRepo{s: s} }

// Returns devoluciones fuera de transacción (solo lectura).
func (s *Store) Returns() *ReturnRepo { return &ReturnRepo{s: s} }

// Activity lectura para el libro de cliente.
func (s *Store) Activity() *ActivityRepo { return &ActivityRepo{s: s} }

// AuditEntries copia de audit_logs (tests).
func (s *Store) AuditEntries() []entity.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entity.AuditEntry, 0, len(s.audit))
	for _, a := range s.audit {
		out = append(out, *a)
	}
	return out
}

func errReadOnly(op string) error {
	return fmt.Errorf("memory: %s requiere una transacción", op)
}

// ── master data ──────────────────────────────────────────────────────────────

// CustomerRepo clientes.
type CustomerRepo struct{ s *Store }

func (r *CustomerRepo) GetByID(_ context.Context, tenantID, id string) (*entity.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.customers[scoped(tenantID, id)]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

// ProductRepo productos.
type ProductRepo struct{ s *Store }

func (r *ProductRepo) GetByID(_ context.Context, tenantID, id string) (*entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.products[scoped(tenantID, id)]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *ProductRepo) GetByIDs(_ context.Context, tenantID string, ids []string) (map[string]*entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make(map[string]*entity.Product, len(ids))
	for _, id := range ids {
		if p, ok := r.s.products[scoped(tenantID, id)]; ok {
			cp := *p
			out[id] = &cp
		}
	}
	return out, nil
}

// WarehouseRepo bodegas.
type WarehouseRepo struct{ s *Store }

func (r *WarehouseRepo) GetByID(_ context.Context, tenantID, id string) (*entity.Warehouse, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	w, ok := r.s.warehouses[scoped(tenantID, id)]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *WarehouseRepo) ListByTenant(_ context.Context, tenantID string) ([]*entity.Warehouse, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.warehousesOf(tenantID), nil
}

// warehousesOf requiere s.mu tomado.
func (s *Store) warehousesOf(tenantID string) []*entity.Warehouse {
	var out []*entity.Warehouse
	for _, w := range s.warehouses {
		if w.TenantID == tenantID {
			cp := *w
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ── ledger ───────────────────────────────────────────────────────────────────

// MovementRepo ledger append-only.
type MovementRepo struct {
	s  *Store
	tx *txState
}

func (r *MovementRepo) Append(_ context.Context, m *entity.StockMovement) error {
	if r.tx == nil {
		return errReadOnly("Append")
	}
	r.tx.movements = append(r.tx.movements, m)
	return nil
}

func (r *MovementRepo) List(_ context.Context, tenantID string, f repository.MovementFilter) ([]*entity.StockMovement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entity.StockMovement
	skipped := 0
	for i := len(r.s.movements) - 1; i >= 0; i-- {
		m := r.s.movements[i]
		if m.TenantID != tenantID ||
			(f.ProductID != "" && m.ProductID != f.ProductID) ||
			(f.WarehouseID != "" && m.WarehouseID != f.WarehouseID) ||
			(f.Type != "" && m.Type != f.Type) {
			continue
		}
		if skipped < f.Offset {
			skipped++
			continue
		}
		cp := *m
		out = append(out, &cp)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

func (r *MovementRepo) SumByKey(_ context.Context, tenantID string, key entity.StockKey) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var sum int64
	for _, m := range r.s.movements {
		if m.TenantID == tenantID && m.Key() == key {
			sum += m.Quantity
		}
	}
	if r.tx != nil {
		for _, m := range r.tx.movements {
			if m.TenantID == tenantID && m.Key() == key {
				sum += m.Quantity
			}
		}
	}
	return sum, nil
}

// BalanceRepo saldos materializados.
type BalanceRepo struct {
	s  *Store
	tx *txState
}

func (r *BalanceRepo) Get(_ context.Context, tenantID string, key entity.StockKey) (int64, error) {
	bk := balanceKey{tenant: tenantID, key: key}
	r.s.mu.RLock()
	qty := r.s.balances[bk]
	r.s.mu.RUnlock()
	if r.tx != nil {
		qty += r.tx.deltas[bk]
	}
	return qty, nil
}

func (r *BalanceRepo) ListByProduct(_ context.Context, tenantID, productID string) ([]entity.WarehouseBalance, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	whs := r.s.warehousesOf(tenantID)
	out := make([]entity.WarehouseBalance, 0, len(whs))
	for _, w := range whs {
		bk := balanceKey{tenant: tenantID, key: entity.StockKey{ProductID: productID, WarehouseID: w.ID}}
		out = append(out, entity.WarehouseBalance{
			WarehouseID:   w.ID,
			WarehouseName: w.Name,
			Quantity:      r.s.balances[bk],
		})
	}
	return out, nil
}

func (r *BalanceRepo) TotalByProduct(_ context.Context, tenantID, productID string) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var total int64
	for k, q := range r.s.balances {
		if k.tenant == tenantID && k.key.ProductID == productID {
			total += q
		}
	}
	return total, nil
}

func (r *BalanceRepo) LockForUpdate(ctx context.Context, tenantID string, keys []entity.StockKey) (map[entity.StockKey]int64, error) {
	if r.tx == nil {
		return nil, errReadOnly("LockForUpdate")
	}
	out := make(map[entity.StockKey]int64, len(keys))
	for _, k := range ledger.SortKeys(keys) {
		bk := balanceKey{tenant: tenantID, key: k}
		if err := r.tx.lock(ctx, balanceLockName(bk)); err != nil {
			return nil, err
		}
		qty, _ := r.Get(ctx, tenantID, k)
		out[k] = qty
	}
	return out, nil
}

func (r *BalanceRepo) ApplyDelta(ctx context.Context, tenantID string, key entity.StockKey, delta int64) (int64, error) {
	if r.tx == nil {
		return 0, errReadOnly("ApplyDelta")
	}
	bk := balanceKey{tenant: tenantID, key: key}
	if !r.tx.holds(balanceLockName(bk)) {
		return 0, repository.ErrKeyNotLocked
	}
	current, _ := r.Get(ctx, tenantID, key)
	if delta > 0 && current > math.MaxInt64-delta {
		return 0, repository.ErrBalanceOverflow
	}
	next := current + delta
	if next < 0 {
		return 0, repository.ErrNegativeBalance
	}
	r.tx.deltas[bk] += delta
	return next, nil
}

// ── facturas ─────────────────────────────────────────────────────────────────

// InvoiceRepo facturas y líneas.
type InvoiceRepo struct {
	s  *Store
	tx *txState
}

func (r *InvoiceRepo) NextNumber(ctx context.Context, tenantID string, year int) (string, error) {
	if r.tx == nil {
		return "", errReadOnly("NextNumber")
	}
	name := sequenceLockName(tenantID, year)
	if err := r.tx.lock(ctx, name); err != nil {
		return "", err
	}
	seqKey := fmt.Sprintf("%s|%d", tenantID, year)
	last, ok := r.tx.sequences[seqKey]
	if !ok {
		r.s.mu.RLock()
		last = r.s.sequences[seqKey]
		r.s.mu.RUnlock()
	}
	last++
	r.tx.sequences[seqKey] = last
	return fmt.Sprintf("INV-%d-%05d", year, last), nil
}

func (r *InvoiceRepo) Create(_ context.Context, inv *entity.Invoice) error {
	if r.tx == nil {
		return errReadOnly("Create")
	}
	for _, p := range r.tx.invoices {
		if p.TenantID == inv.TenantID && p.IdempotencyKey == inv.IdempotencyKey {
			return repository.ErrDuplicateIdempotencyKey
		}
	}
	r.s.mu.RLock()
	_, dup := r.s.invoiceByKey[scoped(inv.TenantID, inv.IdempotencyKey)]
	r.s.mu.RUnlock()
	if dup {
		return repository.ErrDuplicateIdempotencyKey
	}
	r.tx.invoices = append(r.tx.invoices, inv)
	return nil
}

func (r *InvoiceRepo) GetByID(_ context.Context, tenantID, id string) (*entity.Invoice, error) {
	if r.tx != nil {
		for _, p := range r.tx.invoices {
			if p.TenantID == tenantID && p.ID == id {
				return cloneInvoice(p), nil
			}
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	inv, ok := r.s.invoiceByID[scoped(tenantID, id)]
	if !ok {
		return nil, nil
	}
	return cloneInvoice(inv), nil
}

func (r *InvoiceRepo) GetByIdempotencyKey(_ context.Context, tenantID, key string) (*entity.Invoice, error) {
	if r.tx != nil {
		for _, p := range r.tx.invoices {
			if p.TenantID == tenantID && p.IdempotencyKey == key {
				return cloneInvoice(p), nil
			}
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	inv, ok := r.s.invoiceByKey[scoped(tenantID, key)]
	if !ok {
		return nil, nil
	}
	return cloneInvoice(inv), nil
}

func (r *InvoiceRepo) List(_ context.Context, tenantID string, limit, offset int) ([]*entity.Invoice, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entity.Invoice
	skipped := 0
	for i := len(r.s.invoices) - 1; i >= 0; i-- {
		inv := r.s.invoices[i]
		if inv.TenantID != tenantID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		cp := *inv
		cp.Items = nil
		out = append(out, &cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// ── devoluciones ─────────────────────────────────────────────────────────────

// ReturnRepo devoluciones y resumen comprado/devuelto.
type ReturnRepo struct {
	s  *Store
	tx *txState
}

func (r *ReturnRepo) Create(_ context.Context, ret *entity.CustomerReturn) error {
	if r.tx == nil {
		return errReadOnly("Create")
	}
	r.tx.returns = append(r.tx.returns, ret)
	return nil
}

func (r *ReturnRepo) List(_ context.Context, tenantID string, limit, offset int) ([]*entity.CustomerReturn, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entity.CustomerReturn
	skipped := 0
	for i := len(r.s.returns) - 1; i >= 0; i-- {
		ret := r.s.returns[i]
		if ret.TenantID != tenantID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		cp := *ret
		out = append(out, &cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *ReturnRepo) PurchaseSummary(_ context.Context, tenantID, customerID string, key entity.StockKey) (entity.CustomerPurchaseSummary, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	all := r.summaries(tenantID, customerID)
	if s, ok := all[key]; ok {
		return *s, nil
	}
	return entity.CustomerPurchaseSummary{
		CustomerID:    customerID,
		ProductID:     key.ProductID,
		WarehouseID:   key.WarehouseID,
		LastUnitPrice: decimal.Zero,
	}, nil
}

func (r *ReturnRepo) ListPurchaseSummaries(_ context.Context, tenantID, customerID string) ([]entity.CustomerPurchaseSummary, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	all := r.summaries(tenantID, customerID)
	out := make([]entity.CustomerPurchaseSummary, 0, len(all))
	for _, s := range all {
		if p, ok := r.s.products[scoped(tenantID, s.ProductID)]; ok {
			s.ProductName = p.Name
		}
		if w, ok := r.s.warehouses[scoped(tenantID, s.WarehouseID)]; ok {
			s.WarehouseName = w.Name
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductName != out[j].ProductName {
			return out[i].ProductName < out[j].ProductName
		}
		return out[i].WarehouseName < out[j].WarehouseName
	})
	return out, nil
}

// summaries requiere s.mu tomado. Incluye lo pendiente de la tx propia.
func (r *ReturnRepo) summaries(tenantID, customerID string) map[entity.StockKey]*entity.CustomerPurchaseSummary {
	out := map[entity.StockKey]*entity.CustomerPurchaseSummary{}
	get := func(k entity.StockKey) *entity.CustomerPurchaseSummary {
		s, ok := out[k]
		if !ok {
			s = &entity.CustomerPurchaseSummary{
				CustomerID:    customerID,
				ProductID:     k.ProductID,
				WarehouseID:   k.WarehouseID,
				LastUnitPrice: decimal.Zero,
			}
			out[k] = s
		}
		return s
	}

	invoices := r.s.invoices
	returns := r.s.returns
	if r.tx != nil {
		invoices = append(append([]*entity.Invoice{}, invoices...), r.tx.invoices...)
		returns = append(append([]*entity.CustomerReturn{}, returns...), r.tx.returns...)
	}
	// en orden de confirmación: la última línea vista fija LastUnitPrice
	for _, inv := range invoices {
		if inv.TenantID != tenantID || inv.CustomerID != customerID {
			continue
		}
		for _, it := range inv.Items {
			s := get(entity.StockKey{ProductID: it.ProductID, WarehouseID: inv.WarehouseID})
			s.PurchasedQty += it.Quantity
			s.LastUnitPrice = it.UnitPrice
		}
	}
	for _, ret := range returns {
		if ret.TenantID != tenantID || ret.CustomerID != customerID {
			continue
		}
		k := entity.StockKey{ProductID: ret.ProductID, WarehouseID: ret.WarehouseID}
		if s, ok := out[k]; ok {
			s.ReturnedQty += ret.Quantity
		}
	}
	for _, s := range out {
		s.ReturnableQty = s.PurchasedQty - s.ReturnedQty
		if s.ReturnableQty < 0 {
			s.ReturnableQty = 0
		}
	}
	return out
}

// ── libro de cliente y auditoría ─────────────────────────────────────────────

// ActivityRepo importes de facturas y devoluciones por cliente.
type ActivityRepo struct{ s *Store }

func (r *ActivityRepo) ListCustomerActivity(_ context.Context, tenantID, customerID string, from, to *time.Time) ([]entity.CustomerActivity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	inRange := func(t time.Time) bool {
		return (from == nil || !t.Before(*from)) && (to == nil || t.Before(*to))
	}
	var out []entity.CustomerActivity
	for _, inv := range r.s.invoices {
		if inv.TenantID == tenantID && inv.CustomerID == customerID && inRange(inv.CreatedAt) {
			out = append(out, entity.CustomerActivity{
				Kind: entity.ActivitySale, DocumentID: inv.ID, Amount: inv.TotalAmount, At: inv.CreatedAt,
			})
		}
	}
	for _, ret := range r.s.returns {
		if ret.TenantID == tenantID && ret.CustomerID == customerID && inRange(ret.CreatedAt) {
			out = append(out, entity.CustomerActivity{
				Kind: entity.ActivityReturn, DocumentID: ret.ID, Amount: ret.Total, At: ret.CreatedAt,
			})
		}
	}
	return out, nil
}

// AuditRepo audit_logs.
type AuditRepo struct {
	s  *Store
	tx *txState
}

func (r *AuditRepo) Create(_ context.Context, e *entity.AuditEntry) error {
	if r.tx == nil {
		return errReadOnly("Create")
	}
	r.tx.audit = append(r.tx.audit, e)
	return nil
}
