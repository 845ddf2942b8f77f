// Package ledger reúne las reglas puras del libro de movimientos: validación de
// movimientos, orden de locks, buckets de período e idempotencia. No hace I/O.
package ledger

import (
	"fmt"
	"math"
	"sort"

	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
)

// MaxQuantity tope de unidades por movimiento, línea, traslado o devolución.
const MaxQuantity int64 = 1_000_000_000

// ValidateQuantity exige 0 < q <= MaxQuantity.
func ValidateQuantity(field string, q int64) error {
	if q <= 0 {
		return domain.NewValidationError(field, "debe ser mayor que cero")
	}
	if q > MaxQuantity {
		return domain.NewValidationError(field, fmt.Sprintf("máximo %d", MaxQuantity))
	}
	return nil
}

// ValidateMovement verifica un movimiento antes de anexarlo al ledger.
func ValidateMovement(m *entity.StockMovement) error {
	if m == nil {
		return domain.NewValidationError("movement", "requerido")
	}
	if m.TenantID == "" {
		return domain.NewValidationError("tenant_id", "requerido")
	}
	if m.ProductID == "" {
		return domain.NewValidationError("product_id", "requerido")
	}
	if m.WarehouseID == "" {
		return domain.NewValidationError("warehouse_id", "requerido")
	}
	if m.Quantity == 0 {
		return domain.NewValidationError("quantity", "no puede ser cero")
	}
	if m.Quantity > MaxQuantity || m.Quantity < -MaxQuantity {
		return domain.NewValidationError("quantity", fmt.Sprintf("máximo %d en valor absoluto", MaxQuantity))
	}
	if !m.Type.Valid() {
		return domain.NewValidationError("type", "tipo de movimiento desconocido: "+string(m.Type))
	}
	return nil
}

// SortKeys devuelve las claves sin duplicados ordenadas por producto y bodega.
// Todo el que bloquea saldos lo hace en este orden, así dos facturas con claves
// solapadas nunca se esperan en ciclo.
func SortKeys(keys []entity.StockKey) []entity.StockKey {
	seen := make(map[entity.StockKey]struct{}, len(keys))
	out := make([]entity.StockKey, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Demand suma la cantidad pedida por clave. Varias líneas del mismo producto
// compiten por el mismo saldo y deben chequearse juntas. La suma satura en
// math.MaxInt64 en lugar de desbordar.
func Demand(warehouseID string, lines []LineInput) map[entity.StockKey]int64 {
	out := make(map[entity.StockKey]int64, len(lines))
	for _, l := range lines {
		k := entity.StockKey{ProductID: l.ProductID, WarehouseID: warehouseID}
		out[k] = AddSaturating(out[k], l.Quantity)
	}
	return out
}

// AddSaturating a+b para cantidades no negativas, acotado a math.MaxInt64.
func AddSaturating(a, b int64) int64 {
	if b > 0 && a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

// CheckAvailable compara lo pedido con lo disponible en el orden de keys y
// devuelve el primer faltante como InsufficientStockError.
func CheckAvailable(keys []entity.StockKey, available, requested map[entity.StockKey]int64) error {
	for _, k := range keys {
		req := requested[k]
		if req <= 0 {
			continue
		}
		if have := available[k]; have < req {
			return &domain.InsufficientStockError{
				ProductID:   k.ProductID,
				WarehouseID: k.WarehouseID,
				Available:   have,
				Requested:   req,
			}
		}
	}
	return nil
}
