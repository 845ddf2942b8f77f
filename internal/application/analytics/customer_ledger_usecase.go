// Package analytics contiene los reportes de solo lectura; hoy, el libro de
// ventas y devoluciones por cliente.
package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stockledger-api/internal/application/dto"
	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/ledger"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
)

// CustomerLedgerUseCase agrega importes de facturas y devoluciones de un cliente
// en buckets de día, semana ISO o mes.
//
// Fuente de datos: CustomerActivityRepository (consultas read-only). No escribe nada.
type CustomerLedgerUseCase struct {
	activityRepo repository.CustomerActivityRepository
	customerRepo repository.CustomerRepository
	loc          *time.Location
}

// NewCustomerLedgerUseCase construye el caso de uso. loc es la zona de referencia
// de los buckets (nil = UTC).
func NewCustomerLedgerUseCase(
	activityRepo repository.CustomerActivityRepository,
	customerRepo repository.CustomerRepository,
	loc *time.Location,
) *CustomerLedgerUseCase {
	if loc == nil {
		loc = time.UTC
	}
	return &CustomerLedgerUseCase{activityRepo: activityRepo, customerRepo: customerRepo, loc: loc}
}

// GetCustomerLedger devuelve los buckets ordenados por period_start descendente.
// net_amount = sales_amount - return_amount.
func (uc *CustomerLedgerUseCase) GetCustomerLedger(ctx context.Context, tenantID, customerID string, in dto.CustomerLedgerRequest) (*dto.CustomerLedgerResponse, error) {
	period, err := ledger.ParsePeriod(in.Period)
	if err != nil {
		return nil, err
	}
	if in.From != nil && in.To != nil && !in.From.Before(*in.To) {
		return nil, domain.NewValidationError("from", "debe ser anterior a to")
	}
	customer, err := uc.customerRepo.GetByID(ctx, tenantID, customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, domain.NewNotFound("customer", customerID)
	}

	activity, err := uc.activityRepo.ListCustomerActivity(ctx, tenantID, customerID, in.From, in.To)
	if err != nil {
		return nil, err
	}
	entries := Aggregate(activity, period, uc.loc)

	out := &dto.CustomerLedgerResponse{
		CustomerID: customerID,
		Period:     string(period),
		Timezone:   uc.loc.String(),
		Entries:    make([]dto.CustomerLedgerEntryResponse, 0, len(entries)),
	}
	for _, e := range entries {
		out.Entries = append(out.Entries, dto.CustomerLedgerEntryResponse{
			PeriodStart:  e.PeriodStart,
			SalesAmount:  e.SalesAmount,
			ReturnAmount: e.ReturnAmount,
			NetAmount:    e.NetAmount,
			InvoiceCount: e.InvoiceCount,
			ReturnCount:  e.ReturnCount,
		})
	}
	return out, nil
}

// Aggregate agrupa la actividad por inicio de período en loc.
func Aggregate(activity []entity.CustomerActivity, period ledger.Period, loc *time.Location) []entity.CustomerLedgerEntry {
	buckets := make(map[time.Time]*entity.CustomerLedgerEntry)
	for _, a := range activity {
		start := ledger.PeriodStart(a.At, period, loc)
		b, ok := buckets[start]
		if !ok {
			b = &entity.CustomerLedgerEntry{
				PeriodStart:  start,
				SalesAmount:  decimal.Zero,
				ReturnAmount: decimal.Zero,
			}
			buckets[start] = b
		}
		switch a.Kind {
		case entity.ActivitySale:
			b.SalesAmount = b.SalesAmount.Add(a.Amount)
			b.InvoiceCount++
		case entity.ActivityReturn:
			b.ReturnAmount = b.ReturnAmount.Add(a.Amount)
			b.ReturnCount++
		}
	}

	out := make([]entity.CustomerLedgerEntry, 0, len(buckets))
	for _, b := range buckets {
		b.NetAmount = b.SalesAmount.Sub(b.ReturnAmount)
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodStart.After(out[j].PeriodStart) })
	return out
}
