package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas). Son las "clases" de error;
// los tipos estructurados de abajo envuelven una de ellas vía Unwrap, de modo que
// errors.Is(err, ErrInsufficientStock) funciona y errors.As recupera los campos.
var (
	ErrNotFound              = errors.New("recurso no encontrado")
	ErrInvalidInput          = errors.New("entrada inválida")
	ErrUnauthorized          = errors.New("no autorizado")
	ErrConflict              = errors.New("conflicto con el estado actual")
	ErrInsufficientStock     = errors.New("stock insuficiente")
	ErrReturnExceedsPurchase = errors.New("la devolución excede lo comprado")
)

// Motivos de ConflictError.
const (
	ConflictIdempotencyMismatch = "idempotency_payload_mismatch"
	ConflictTxContention        = "tx_contention"
)

// ValidationError entrada mal formada. No hubo efectos secundarios.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("entrada inválida: %s", e.Reason)
	}
	return fmt.Sprintf("entrada inválida: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// NewValidationError atajo usado por casos de uso y handlers.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// InsufficientStockError la operación dejaría el saldo de (producto, bodega) por debajo de cero.
type InsufficientStockError struct {
	ProductID   string
	WarehouseID string
	Available   int64
	Requested   int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente: producto %s en bodega %s (disponible %d, solicitado %d)",
		e.ProductID, e.WarehouseID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// ReturnExceedsPurchaseError la cantidad a devolver supera comprado - devuelto.
type ReturnExceedsPurchaseError struct {
	CustomerID  string
	ProductID   string
	WarehouseID string
	Returnable  int64
	Requested   int64
}

func (e *ReturnExceedsPurchaseError) Error() string {
	return fmt.Sprintf("devolución excede lo comprado: máximo devolvible %d, solicitado %d",
		e.Returnable, e.Requested)
}

func (e *ReturnExceedsPurchaseError) Unwrap() error { return ErrReturnExceedsPurchase }

// NotFoundError recurso inexistente (o de otro tenant, que es lo mismo).
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s no encontrado", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFound atajo para NotFoundError.
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ConflictError dos variantes: reuso de idempotency key con otro payload (definitivo)
// o contención que agotó los reintentos (Transient, el cliente puede reintentar).
type ConflictError struct {
	Reason         string
	IdempotencyKey string
	Attempts       int
	Transient      bool
	Err            error
}

func (e *ConflictError) Error() string {
	switch e.Reason {
	case ConflictIdempotencyMismatch:
		return fmt.Sprintf("conflicto: la idempotency key %q ya se usó con otro contenido", e.IdempotencyKey)
	case ConflictTxContention:
		return fmt.Sprintf("conflicto: contención transaccional tras %d intentos", e.Attempts)
	default:
		return "conflicto: " + e.Reason
	}
}

// Unwrap expone la clase y la causa original (si existe).
func (e *ConflictError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrConflict, e.Err}
	}
	return []error{ErrConflict}
}

// IsTransient indica si err es un conflicto reintentable por el cliente.
func IsTransient(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce) && ce.Transient
}
