package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stockledger-api/internal/domain"
)

// MoneyScale decimales de precios e importes (NUMERIC(15,2)).
const MoneyScale = 2

var (
	// MaxAmount límite exclusivo de precios e importes almacenables.
	MaxAmount  = decimal.New(1, 13)
	maxTaxRate = decimal.NewFromInt(100)
)

// ValidatePrice precio unitario: no negativo, a lo sumo dos decimales, menor que MaxAmount.
func ValidatePrice(field string, v decimal.Decimal) error {
	switch {
	case v.IsNegative():
		return domain.NewValidationError(field, "no puede ser negativo")
	case !hasScale(v, MoneyScale):
		return domain.NewValidationError(field, "admite a lo sumo 2 decimales")
	case v.GreaterThanOrEqual(MaxAmount):
		return domain.NewValidationError(field, "excede el monto máximo")
	}
	return nil
}

// ValidateTaxRate porcentaje entre 0 y 100 con a lo sumo dos decimales.
func ValidateTaxRate(field string, v decimal.Decimal) error {
	if v.IsNegative() || v.GreaterThan(maxTaxRate) {
		return domain.NewValidationError(field, "debe estar entre 0 y 100")
	}
	if !hasScale(v, MoneyScale) {
		return domain.NewValidationError(field, "admite a lo sumo 2 decimales")
	}
	return nil
}

// ValidateTotal importe calculado dentro del rango almacenable.
func ValidateTotal(field string, v decimal.Decimal) error {
	if v.GreaterThanOrEqual(MaxAmount) {
		return domain.NewValidationError(field, "el importe excede el monto máximo")
	}
	return nil
}

func hasScale(v decimal.Decimal, places int32) bool {
	return v.Equal(v.Round(places))
}
