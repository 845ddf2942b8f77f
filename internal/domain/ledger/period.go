package ledger

import (
	"time"

	"github.com/jhoicas/stockledger-api/internal/domain"
)

// Period granularidad del libro de cliente.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// ParsePeriod acepta day|week|month; vacío equivale a day.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "":
		return PeriodDay, nil
	case PeriodDay, PeriodWeek, PeriodMonth:
		return Period(s), nil
	}
	return "", domain.NewValidationError("period", "debe ser day, week o month")
}

// PeriodStart inicio del bucket que contiene t en la zona loc: medianoche del día,
// lunes de la semana ISO o día 1 del mes.
func PeriodStart(t time.Time, p Period, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	lt := t.In(loc)
	day := time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
	switch p {
	case PeriodWeek:
		// time.Weekday: domingo = 0; ISO: lunes = 1 ... domingo = 7
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case PeriodMonth:
		return time.Date(lt.Year(), lt.Month(), 1, 0, 0, 0, 0, loc)
	default:
		return day
	}
}
