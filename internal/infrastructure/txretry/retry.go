// Package txretry reintenta transacciones que fallaron por contención
// (serialización, deadlock, lock timeout) con backoff exponencial acotado.
package txretry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/jhoicas/stockledger-api/internal/domain"
)

// Policy presupuesto de reintentos.
type Policy struct {
	MaxAttempts int           // intentos totales, incluido el primero
	BaseDelay   time.Duration // espera antes del segundo intento
	MaxDelay    time.Duration
}

// DefaultPolicy valores usados si la configuración no define otros.
var DefaultPolicy = Policy{MaxAttempts: 5, BaseDelay: 20 * time.Millisecond, MaxDelay: time.Second}

// Do ejecuta fn hasta que tenga éxito, devuelva un error no transitorio o se agote
// el presupuesto. Agotado el presupuesto devuelve ConflictError{Transient: true}.
// onRetry (opcional) se llama por cada fallo transitorio.
func Do(ctx context.Context, p Policy, isTransient func(error) bool, onRetry func(attempt int, err error), fn func() error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultPolicy.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultPolicy.MaxDelay
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.BaseDelay
	eb.MaxInterval = p.MaxDelay
	eb.MaxElapsedTime = 0 // el límite lo pone MaxAttempts

	attempts := 0
	op := func() error {
		attempts++
		err := fn()
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return backoff.Permanent(err)
		}
		if onRetry != nil {
			onRetry(attempts, err)
		}
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(p.MaxAttempts-1)), ctx)
	err := backoff.Retry(op, b)
	if err != nil && isTransient(err) {
		return &domain.ConflictError{
			Reason:    domain.ConflictTxContention,
			Attempts:  attempts,
			Transient: true,
			Err:       err,
		}
	}
	return err
}
