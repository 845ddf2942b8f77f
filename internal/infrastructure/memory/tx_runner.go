package memory

import (
	"context"
	"errors"

	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
	"github.com/jhoicas/stockledger-api/internal/infrastructure/txretry"
)

// TxRunner ejecuta callbacks dentro de una transacción en memoria y reintenta los
// timeouts de lock con la misma política que el adaptador PostgreSQL.
type TxRunner struct {
	store   *Store
	policy  txretry.Policy
	onRetry func(attempt int, err error)
}

// NewTxRunner construye el runner. onRetry puede ser nil.
func NewTxRunner(store *Store, policy txretry.Policy, onRetry func(attempt int, err error)) *TxRunner {
	return &TxRunner{store: store, policy: policy, onRetry: onRetry}
}

// Run ejecuta fn con repos atados a una tx nueva por intento; Commit si fn no falla.
func (r *TxRunner) Run(ctx context.Context, fn func(tx repository.Tx) error) error {
	return txretry.Do(ctx, r.policy, isTransient, r.onRetry, func() error {
		t := newTxState(r.store)
		defer t.releaseAll()
		if err := fn(t.repos()); err != nil {
			return err
		}
		return t.commit()
	})
}

func isTransient(err error) bool {
	return errors.Is(err, ErrLockTimeout)
}

// txState escrituras pendientes y locks tomados por una transacción.
type txState struct {
	s *Store

	held      map[string]struct{}
	heldOrder []string

	deltas    map[balanceKey]int64
	movements []*entity.StockMovement
	invoices  []*entity.Invoice
	returns   []*entity.CustomerReturn
	audit     []*entity.AuditEntry
	sequences map[string]int64
}

func newTxState(s *Store) *txState {
	return &txState{
		s:         s,
		held:      map[string]struct{}{},
		deltas:    map[balanceKey]int64{},
		sequences: map[string]int64{},
	}
}

func (t *txState) repos() repository.Tx {
	return repository.Tx{
		Movements: &MovementRepo{s: t.s, tx: t},
		Balances:  &BalanceRepo{s: t.s, tx: t},
		Invoices:  &InvoiceRepo{s: t.s, tx: t},
		Returns:   &ReturnRepo{s: t.s, tx: t},
		Audit:     &AuditRepo{s: t.s, tx: t},
	}
}

// lock es reentrante dentro de la misma tx.
func (t *txState) lock(ctx context.Context, name string) error {
	if _, ok := t.held[name]; ok {
		return nil
	}
	if err := t.s.acquire(ctx, name); err != nil {
		return err
	}
	t.held[name] = struct{}{}
	t.heldOrder = append(t.heldOrder, name)
	return nil
}

func (t *txState) holds(name string) bool {
	_, ok := t.held[name]
	return ok
}

func (t *txState) releaseAll() {
	for i := len(t.heldOrder) - 1; i >= 0; i-- {
		t.s.release(t.heldOrder[i])
	}
	t.heldOrder = nil
	t.held = map[string]struct{}{}
}

// commit aplica todo bajo el mutex del store. Los locks siguen tomados hasta
// releaseAll, así nadie lee un saldo a medio aplicar.
func (t *txState) commit() error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, inv := range t.invoices {
		if _, dup := s.invoiceByKey[scoped(inv.TenantID, inv.IdempotencyKey)]; dup {
			return repository.ErrDuplicateIdempotencyKey
		}
	}
	for k, d := range t.deltas {
		if s.balances[k]+d < 0 {
			return repository.ErrNegativeBalance
		}
	}

	now := s.now()
	for k, d := range t.deltas {
		s.balances[k] += d
	}
	for name, last := range t.sequences {
		s.sequences[name] = last
	}
	for _, m := range t.movements {
		m.CreatedAt = now
		cp := *m
		s.movements = append(s.movements, &cp)
	}
	for _, inv := range t.invoices {
		inv.CreatedAt = now
		cp := cloneInvoice(inv)
		s.invoices = append(s.invoices, cp)
		s.invoiceByID[scoped(cp.TenantID, cp.ID)] = cp
		s.invoiceByKey[scoped(cp.TenantID, cp.IdempotencyKey)] = cp
	}
	for _, r := range t.returns {
		r.CreatedAt = now
		cp := *r
		s.returns = append(s.returns, &cp)
	}
	for _, a := range t.audit {
		a.CreatedAt = now
		cp := *a
		s.audit = append(s.audit, &cp)
	}
	return nil
}

func cloneInvoice(inv *entity.Invoice) *entity.Invoice {
	cp := *inv
	cp.Items = make([]*entity.InvoiceLineItem, 0, len(inv.Items))
	for _, it := range inv.Items {
		c := *it
		cp.Items = append(cp.Items, &c)
	}
	return &cp
}
