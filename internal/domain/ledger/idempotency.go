package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stockledger-api/internal/domain"
)

const maxIdempotencyKeyLength = 255

// LineInput línea de factura tal como llega del cliente.
type LineInput struct {
	ProductID string
	Quantity  int64
	UnitPrice decimal.Decimal
	TaxRate   decimal.Decimal
}

// ValidateIdempotencyKey exige 1..255 caracteres [A-Za-z0-9_-].
func ValidateIdempotencyKey(key string) error {
	if key == "" {
		return domain.NewValidationError("idempotency_key", "requerido")
	}
	if len(key) > maxIdempotencyKeyLength {
		return domain.NewValidationError("idempotency_key", "máximo 255 caracteres")
	}
	for _, r := range key {
		if !isKeyChar(r) {
			return domain.NewValidationError("idempotency_key", "solo letras, dígitos, '-' y '_'")
		}
	}
	return nil
}

func isKeyChar(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') ||
		r == '-' || r == '_'
}

type fingerprintLine struct {
	ProductID string `json:"p"`
	Quantity  int64  `json:"q"`
	UnitPrice string `json:"u"`
	TaxRate   string `json:"t"`
}

type fingerprintBody struct {
	CustomerID  string            `json:"c"`
	WarehouseID string            `json:"w"`
	Lines       []fingerprintLine `json:"l"`
}

// InvoiceFingerprint huella SHA-256 (hex) del contenido de una factura. Los
// decimales se normalizan para que "10" y "10.00" den la misma huella.
func InvoiceFingerprint(customerID, warehouseID string, lines []LineInput) string {
	body := fingerprintBody{CustomerID: customerID, WarehouseID: warehouseID}
	for _, l := range lines {
		body.Lines = append(body.Lines, fingerprintLine{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.String(),
			TaxRate:   l.TaxRate.String(),
		})
	}
	raw, _ := json.Marshal(body)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
