package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stockledger-api/internal/application/audit"
	"github.com/jhoicas/stockledger-api/internal/application/dto"
	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/ledger"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
	"github.com/jhoicas/stockledger-api/pkg/logger"
)

var (
	hundred = decimal.NewFromInt(100)
)

// errAlreadyCommitted corta la transacción cuando, tras bloquear los saldos, se
// descubre que otra request con la misma key ya confirmó su factura.
var errAlreadyCommitted = errors.New("billing: idempotency key ya confirmada")

// CreateInvoiceUseCase crea una factura y descuenta el inventario en una sola transacción.
type CreateInvoiceUseCase struct {
	txRunner      TxRunner
	ledger        StockLedger
	cache         IdempotencyCache
	customerRepo  repository.CustomerRepository
	productRepo   repository.ProductRepository
	warehouseRepo repository.WarehouseRepository
	invoiceRepo   repository.InvoiceRepository
	log           *logger.Logger
	now           func() time.Time
}

// NewCreateInvoiceUseCase construye el caso de uso. cache puede ser nil.
func NewCreateInvoiceUseCase(
	txRunner TxRunner,
	ledger StockLedger,
	cache IdempotencyCache,
	customerRepo repository.CustomerRepository,
	productRepo repository.ProductRepository,
	warehouseRepo repository.WarehouseRepository,
	invoiceRepo repository.InvoiceRepository,
	log *logger.Logger,
) *CreateInvoiceUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &CreateInvoiceUseCase{
		txRunner:      txRunner,
		ledger:        ledger,
		cache:         cache,
		customerRepo:  customerRepo,
		productRepo:   productRepo,
		warehouseRepo: warehouseRepo,
		invoiceRepo:   invoiceRepo,
		log:           log.Named("billing"),
		now:           time.Now,
	}
}

// CreateInvoice crea la factura con exactamente-una-vez por idempotency key:
//  1. Misma key y mismo contenido que una factura confirmada: devuelve esa factura sin efectos.
//  2. Misma key con otro contenido: ConflictError.
//  3. Si no, en una transacción: bloquea los saldos (orden producto, bodega), verifica
//     stock de todas las líneas, numera, inserta cabecera y líneas y un SALE por línea.
//
// Cualquier fallo deja la base como estaba: ni movimientos ni factura.
func (uc *CreateInvoiceUseCase) CreateInvoice(ctx context.Context, tenantID, userID string, in dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	lines, err := validateInvoiceRequest(in)
	if err != nil {
		return nil, err
	}
	fingerprint := ledger.InvoiceFingerprint(in.CustomerID, in.WarehouseID, lines)

	if resp, err := uc.replay(ctx, tenantID, in.IdempotencyKey, fingerprint); err != nil || resp != nil {
		return resp, err
	}

	// Datos maestros (fuera de la tx, solo lectura)
	customer, warehouse, products, err := uc.loadMasterData(ctx, tenantID, in)
	if err != nil {
		return nil, err
	}

	inv, err := buildInvoice(tenantID, userID, in, lines, fingerprint)
	if err != nil {
		return nil, err
	}
	demand := ledger.Demand(in.WarehouseID, lines)
	keys := make([]entity.StockKey, 0, len(demand))
	for k := range demand {
		keys = append(keys, k)
	}
	keys = ledger.SortKeys(keys)

	err = uc.txRunner.Run(ctx, func(tx repository.Tx) error {
		available, err := tx.Balances.LockForUpdate(ctx, tenantID, keys)
		if err != nil {
			return err
		}
		// Con los saldos bloqueados, una request concurrente con la misma key ya terminó.
		prev, err := tx.Invoices.GetByIdempotencyKey(ctx, tenantID, in.IdempotencyKey)
		if err != nil {
			return err
		}
		if prev != nil {
			return errAlreadyCommitted
		}
		if err := ledger.CheckAvailable(keys, available, demand); err != nil {
			uc.ledger.Rejected(string(entity.MovementSale))
			return err
		}

		number, err := tx.Invoices.NextNumber(ctx, tenantID, uc.now().Year())
		if err != nil {
			return err
		}
		inv.InvoiceNumber = number
		if err := tx.Invoices.Create(ctx, inv); err != nil {
			return err
		}

		ref := entity.ReferenceInvoice
		for _, item := range inv.Items {
			m := &entity.StockMovement{
				TenantID:      tenantID,
				ProductID:     item.ProductID,
				WarehouseID:   inv.WarehouseID,
				Quantity:      -item.Quantity,
				Type:          entity.MovementSale,
				ReferenceID:   &inv.ID,
				ReferenceType: &ref,
				CreatedBy:     userID,
			}
			if _, err := uc.ledger.AppendInTx(ctx, tx, m); err != nil {
				return err
			}
		}
		return audit.Record(ctx, tx.Audit, tenantID, userID, entity.AuditInvoiceCreated, "invoice", inv.ID, map[string]any{
			"invoice_number":  inv.InvoiceNumber,
			"customer_id":     inv.CustomerID,
			"warehouse_id":    inv.WarehouseID,
			"total_amount":    inv.TotalAmount,
			"idempotency_key": inv.IdempotencyKey,
			"lines":           len(inv.Items),
		})
	})
	if errors.Is(err, errAlreadyCommitted) || errors.Is(err, repository.ErrDuplicateIdempotencyKey) {
		resp, rerr := uc.replay(ctx, tenantID, in.IdempotencyKey, fingerprint)
		if rerr != nil {
			return nil, rerr
		}
		if resp == nil {
			return nil, fmt.Errorf("billing: factura de la key %q no encontrada tras duplicado", in.IdempotencyKey)
		}
		return resp, nil
	}
	if err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("tenant_id", tenantID).
		Str("invoice_id", inv.ID).
		Str("invoice_number", inv.InvoiceNumber).
		Int("lines", len(inv.Items)).
		Str("total", inv.TotalAmount.StringFixed(2)).
		Msg("factura creada")

	if uc.cache != nil {
		if err := uc.cache.Put(ctx, tenantID, inv.IdempotencyKey, inv.ID, inv.RequestHash); err != nil {
			uc.log.Warn().Err(err).Str("idempotency_key", inv.IdempotencyKey).Msg("no se pudo cachear la idempotency key")
		}
	}

	productNames := make(map[string]string, len(products))
	for id, p := range products {
		productNames[id] = p.Name
	}
	return toResponse(&entity.InvoiceView{
		Invoice:       *inv,
		CustomerName:  customer.Name,
		WarehouseName: warehouse.Name,
		ProductNames:  productNames,
	}), nil
}

// replay busca una factura ya confirmada con la key. (nil, nil) si no existe.
func (uc *CreateInvoiceUseCase) replay(ctx context.Context, tenantID, key, fingerprint string) (*dto.InvoiceResponse, error) {
	var inv *entity.Invoice

	if uc.cache != nil {
		invoiceID, hash, found, err := uc.cache.Get(ctx, tenantID, key)
		if err != nil {
			uc.log.Warn().Err(err).Str("idempotency_key", key).Msg("caché de idempotencia no disponible")
		} else if found {
			if hash != fingerprint {
				return nil, &domain.ConflictError{Reason: domain.ConflictIdempotencyMismatch, IdempotencyKey: key}
			}
			if inv, err = uc.invoiceRepo.GetByID(ctx, tenantID, invoiceID); err != nil {
				return nil, err
			}
		}
	}
	if inv == nil {
		var err error
		if inv, err = uc.invoiceRepo.GetByIdempotencyKey(ctx, tenantID, key); err != nil {
			return nil, err
		}
		if inv == nil {
			return nil, nil
		}
	}
	if inv.RequestHash != fingerprint {
		return nil, &domain.ConflictError{Reason: domain.ConflictIdempotencyMismatch, IdempotencyKey: key}
	}

	view, err := uc.view(ctx, tenantID, inv)
	if err != nil {
		return nil, err
	}
	resp := toResponse(view)
	resp.Replayed = true
	return resp, nil
}

// GetInvoice obtiene una factura por ID con nombres de cliente, bodega y productos.
func (uc *CreateInvoiceUseCase) GetInvoice(ctx context.Context, tenantID, id string) (*dto.InvoiceResponse, error) {
	inv, err := uc.invoiceRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.NewNotFound("invoice", id)
	}
	view, err := uc.view(ctx, tenantID, inv)
	if err != nil {
		return nil, err
	}
	return toResponse(view), nil
}

// ListInvoices cabeceras de facturas del tenant, más recientes primero.
func (uc *CreateInvoiceUseCase) ListInvoices(ctx context.Context, tenantID string, page dto.PageRequest) (*dto.InvoiceListResponse, error) {
	page.DefaultPage()
	list, err := uc.invoiceRepo.List(ctx, tenantID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := &dto.InvoiceListResponse{
		Items: make([]dto.InvoiceResponse, 0, len(list)),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}
	for _, inv := range list {
		out.Items = append(out.Items, *toResponse(&entity.InvoiceView{Invoice: *inv}))
	}
	return out, nil
}

func (uc *CreateInvoiceUseCase) view(ctx context.Context, tenantID string, inv *entity.Invoice) (*entity.InvoiceView, error) {
	v := &entity.InvoiceView{Invoice: *inv, ProductNames: map[string]string{}}
	customer, err := uc.customerRepo.GetByID(ctx, tenantID, inv.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer != nil {
		v.CustomerName = customer.Name
	}
	wh, err := uc.warehouseRepo.GetByID(ctx, tenantID, inv.WarehouseID)
	if err != nil {
		return nil, err
	}
	if wh != nil {
		v.WarehouseName = wh.Name
	}
	ids := make([]string, 0, len(inv.Items))
	for _, it := range inv.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := uc.productRepo.GetByIDs(ctx, tenantID, ids)
	if err != nil {
		return nil, err
	}
	for id, p := range products {
		v.ProductNames[id] = p.Name
	}
	return v, nil
}

func (uc *CreateInvoiceUseCase) loadMasterData(ctx context.Context, tenantID string, in dto.CreateInvoiceRequest) (*entity.Customer, *entity.Warehouse, map[string]*entity.Product, error) {
	customer, err := uc.customerRepo.GetByID(ctx, tenantID, in.CustomerID)
	if err != nil {
		return nil, nil, nil, err
	}
	if customer == nil {
		return nil, nil, nil, domain.NewNotFound("customer", in.CustomerID)
	}
	warehouse, err := uc.warehouseRepo.GetByID(ctx, tenantID, in.WarehouseID)
	if err != nil {
		return nil, nil, nil, err
	}
	if warehouse == nil {
		return nil, nil, nil, domain.NewNotFound("warehouse", in.WarehouseID)
	}
	ids := make([]string, 0, len(in.Items))
	for _, it := range in.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := uc.productRepo.GetByIDs(ctx, tenantID, ids)
	if err != nil {
		return nil, nil, nil, err
	}
	for _, id := range ids {
		if _, ok := products[id]; !ok {
			return nil, nil, nil, domain.NewNotFound("product", id)
		}
	}
	return customer, warehouse, products, nil
}

func validateInvoiceRequest(in dto.CreateInvoiceRequest) ([]ledger.LineInput, error) {
	if err := ledger.ValidateIdempotencyKey(in.IdempotencyKey); err != nil {
		return nil, err
	}
	if in.CustomerID == "" {
		return nil, domain.NewValidationError("customer_id", "requerido")
	}
	if in.WarehouseID == "" {
		return nil, domain.NewValidationError("warehouse_id", "requerido")
	}
	if len(in.Items) == 0 {
		return nil, domain.NewValidationError("items", "la factura necesita al menos una línea")
	}
	lines := make([]ledger.LineInput, 0, len(in.Items))
	for i, it := range in.Items {
		field := fmt.Sprintf("items[%d]", i)
		if it.ProductID == "" {
			return nil, domain.NewValidationError(field+".product_id", "requerido")
		}
		if err := ledger.ValidateQuantity(field+".quantity", it.Quantity); err != nil {
			return nil, err
		}
		if err := ledger.ValidatePrice(field+".unit_price", it.UnitPrice); err != nil {
			return nil, err
		}
		if err := ledger.ValidateTaxRate(field+".tax_rate", it.TaxRate); err != nil {
			return nil, err
		}
		lines = append(lines, ledger.LineInput{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			TaxRate:   it.TaxRate,
		})
	}
	return lines, nil
}

// buildInvoice calcula totales: line_total = cantidad × precio, IVA plano por línea.
// Los precios ya vienen con dos decimales, así que line_total es exacto.
func buildInvoice(tenantID, userID string, in dto.CreateInvoiceRequest, lines []ledger.LineInput, fingerprint string) (*entity.Invoice, error) {
	inv := &entity.Invoice{
		ID:             uuid.New().String(),
		TenantID:       tenantID,
		CustomerID:     in.CustomerID,
		WarehouseID:    in.WarehouseID,
		IdempotencyKey: in.IdempotencyKey,
		RequestHash:    fingerprint,
		CreatedBy:      userID,
		Subtotal:       decimal.Zero,
		TaxTotal:       decimal.Zero,
	}
	for _, l := range lines {
		lineTotal := l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity)).Round(2)
		taxAmount := lineTotal.Mul(l.TaxRate).Div(hundred).Round(2)
		inv.Items = append(inv.Items, &entity.InvoiceLineItem{
			ID:        uuid.New().String(),
			InvoiceID: inv.ID,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			TaxRate:   l.TaxRate,
			LineTotal: lineTotal,
			TaxAmount: taxAmount,
		})
		inv.Subtotal = inv.Subtotal.Add(lineTotal)
		inv.TaxTotal = inv.TaxTotal.Add(taxAmount)
	}
	inv.TotalAmount = inv.Subtotal.Add(inv.TaxTotal)
	if err := ledger.ValidateTotal("items", inv.TotalAmount); err != nil {
		return nil, err
	}
	return inv, nil
}

func toResponse(v *entity.InvoiceView) *dto.InvoiceResponse {
	resp := &dto.InvoiceResponse{
		ID:             v.ID,
		InvoiceNumber:  v.InvoiceNumber,
		CustomerID:     v.CustomerID,
		CustomerName:   v.CustomerName,
		WarehouseID:    v.WarehouseID,
		WarehouseName:  v.WarehouseName,
		Subtotal:       v.Subtotal,
		TaxTotal:       v.TaxTotal,
		TotalAmount:    v.TotalAmount,
		IdempotencyKey: v.IdempotencyKey,
		CreatedAt:      v.CreatedAt,
	}
	for _, it := range v.Items {
		resp.Items = append(resp.Items, dto.InvoiceItemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: v.ProductNames[it.ProductID],
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TaxRate:     it.TaxRate,
			LineTotal:   it.LineTotal,
			TaxAmount:   it.TaxAmount,
		})
	}
	return resp
}
