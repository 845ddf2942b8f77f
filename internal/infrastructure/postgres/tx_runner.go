package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/stockledger-api/internal/application/billing"
	"github.com/jhoicas/stockledger-api/internal/application/inventory"
	"github.com/jhoicas/stockledger-api/internal/application/returns"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
	"github.com/jhoicas/stockledger-api/internal/infrastructure/txretry"
)

var (
	_ inventory.TxRunner = (*TxRunner)(nil)
	_ billing.TxRunner   = (*TxRunner)(nil)
	_ returns.TxRunner   = (*TxRunner)(nil)
)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL (READ COMMITTED;
// la exclusión la dan los SELECT ... FOR UPDATE sobre stock_balances).
type TxRunner struct {
	pool             *pgxpool.Pool
	policy           txretry.Policy
	lockTimeout      time.Duration
	statementTimeout time.Duration
	onRetry          func(attempt int, err error)
}

// TxOption configura el TxRunner.
type TxOption func(*TxRunner)

// WithRetryPolicy presupuesto de reintentos ante contención.
func WithRetryPolicy(p txretry.Policy) TxOption {
	return func(r *TxRunner) { r.policy = p }
}

// WithTimeouts lock_timeout y statement_timeout aplicados con SET LOCAL en cada tx.
func WithTimeouts(lock, statement time.Duration) TxOption {
	return func(r *TxRunner) {
		r.lockTimeout = lock
		r.statementTimeout = statement
	}
}

// WithRetryHook se invoca en cada reintento (métricas, logs).
func WithRetryHook(fn func(attempt int, err error)) TxOption {
	return func(r *TxRunner) { r.onRetry = fn }
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool, opts ...TxOption) *TxRunner {
	r := &TxRunner{pool: pool, policy: txretry.DefaultPolicy}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// Serialización, deadlock y lock timeout reintentan fn completa en una tx nueva.
func (r *TxRunner) Run(ctx context.Context, fn func(tx repository.Tx) error) error {
	return txretry.Do(ctx, r.policy, isTransient, r.onRetry, func() error {
		return r.runOnce(ctx, fn)
	})
}

func (r *TxRunner) runOnce(ctx context.Context, fn func(tx repository.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := r.setLocalTimeouts(ctx, tx); err != nil {
		return err
	}

	repos := repository.Tx{
		Movements: NewStockMovementRepository(tx),
		Balances:  NewStockBalanceRepository(tx),
		Invoices:  NewInvoiceRepository(tx),
		Returns:   NewReturnRepository(tx),
		Audit:     NewAuditRepository(tx),
	}
	if err := fn(repos); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *TxRunner) setLocalTimeouts(ctx context.Context, tx pgx.Tx) error {
	if r.lockTimeout <= 0 && r.statementTimeout <= 0 {
		return nil
	}
	const q = `SELECT set_config('lock_timeout', $1, true), set_config('statement_timeout', $2, true)`
	_, err := tx.Exec(ctx, q, millis(r.lockTimeout), millis(r.statementTimeout))
	if err != nil {
		return fmt.Errorf("set local timeouts: %w", err)
	}
	return nil
}

// millis formato aceptado por lock_timeout; "0" desactiva el límite.
func millis(d time.Duration) string {
	return fmt.Sprintf("%dms", d.Milliseconds())
}
