package repository

import "errors"

// Errores que los adaptadores devuelven para que la capa de aplicación decida.
var (
	// ErrNegativeBalance el delta dejaría el saldo bajo cero (CHECK quantity >= 0).
	ErrNegativeBalance = errors.New("repository: saldo negativo")
	// ErrBalanceOverflow el saldo resultante no cabe en BIGINT.
	ErrBalanceOverflow = errors.New("repository: saldo fuera de rango")
	// ErrDuplicateIdempotencyKey ya existe una factura del tenant con esa key.
	ErrDuplicateIdempotencyKey = errors.New("repository: idempotency key duplicada")
	// ErrKeyNotLocked se intentó mover un saldo sin bloquearlo antes en la tx.
	ErrKeyNotLocked = errors.New("repository: saldo no bloqueado en la transacción")
)
