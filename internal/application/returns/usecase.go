// Package returns registra devoluciones de clientes acotadas por lo que el cliente
// compró y aún no devolvió en esa bodega.
package returns

import (
	"context"

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

// UseCase coordinador de devoluciones.
type UseCase struct {
	txRunner      TxRunner
	ledger        StockLedger
	returnRepo    repository.ReturnRepository
	customerRepo  repository.CustomerRepository
	productRepo   repository.ProductRepository
	warehouseRepo repository.WarehouseRepository
	log           *logger.Logger
}

// NewUseCase construye el caso de uso.
func NewUseCase(
	txRunner TxRunner,
	ledger StockLedger,
	returnRepo repository.ReturnRepository,
	customerRepo repository.CustomerRepository,
	productRepo repository.ProductRepository,
	warehouseRepo repository.WarehouseRepository,
	log *logger.Logger,
) *UseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &UseCase{
		txRunner:      txRunner,
		ledger:        ledger,
		returnRepo:    returnRepo,
		customerRepo:  customerRepo,
		productRepo:   productRepo,
		warehouseRepo: warehouseRepo,
		log:           log.Named("returns"),
	}
}

// CreateReturn registra la devolución y repone el stock con un IN.
// El saldo (producto, bodega) se bloquea antes de leer lo devolvible, así dos
// devoluciones concurrentes del mismo producto no pueden superar lo comprado.
// No modifica la factura original.
func (uc *UseCase) CreateReturn(ctx context.Context, tenantID, userID string, in dto.CreateReturnRequest) (*dto.ReturnResponse, error) {
	if err := ledger.ValidateQuantity("quantity", in.Quantity); err != nil {
		return nil, err
	}
	if err := ledger.ValidatePrice("unit_price", in.UnitPrice); err != nil {
		return nil, err
	}
	total := in.UnitPrice.Mul(decimal.NewFromInt(in.Quantity))
	if err := ledger.ValidateTotal("quantity", total); err != nil {
		return nil, err
	}
	if err := uc.ensureExists(ctx, tenantID, in.CustomerID, in.ProductID, in.WarehouseID); err != nil {
		return nil, err
	}

	key := entity.StockKey{ProductID: in.ProductID, WarehouseID: in.WarehouseID}
	ret := &entity.CustomerReturn{
		ID:          uuid.New().String(),
		TenantID:    tenantID,
		CustomerID:  in.CustomerID,
		ProductID:   in.ProductID,
		WarehouseID: in.WarehouseID,
		Quantity:    in.Quantity,
		UnitPrice:   in.UnitPrice,
		Total:       total,
		Reason:      in.Reason,
		CreatedBy:   userID,
	}

	err := uc.txRunner.Run(ctx, func(tx repository.Tx) error {
		if _, err := tx.Balances.LockForUpdate(ctx, tenantID, []entity.StockKey{key}); err != nil {
			return err
		}
		summary, err := tx.Returns.PurchaseSummary(ctx, tenantID, in.CustomerID, key)
		if err != nil {
			return err
		}
		if in.Quantity > summary.ReturnableQty {
			return &domain.ReturnExceedsPurchaseError{
				CustomerID:  in.CustomerID,
				ProductID:   in.ProductID,
				WarehouseID: in.WarehouseID,
				Returnable:  summary.ReturnableQty,
				Requested:   in.Quantity,
			}
		}
		if err := tx.Returns.Create(ctx, ret); err != nil {
			return err
		}
		ref := entity.ReferenceReturn
		if _, err := uc.ledger.AppendInTx(ctx, tx, &entity.StockMovement{
			TenantID:      tenantID,
			ProductID:     in.ProductID,
			WarehouseID:   in.WarehouseID,
			Quantity:      in.Quantity,
			Type:          entity.MovementIn,
			ReferenceID:   &ret.ID,
			ReferenceType: &ref,
			CreatedBy:     userID,
		}); err != nil {
			return err
		}
		return audit.Record(ctx, tx.Audit, tenantID, userID, entity.AuditReturnCreated, "customer_return", ret.ID, in)
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("tenant_id", tenantID).
		Str("return_id", ret.ID).
		Str("customer_id", ret.CustomerID).
		Int64("quantity", ret.Quantity).
		Msg("devolución registrada")

	resp := toReturnResponse(ret)
	return &resp, nil
}

// GetCustomerPurchases comprado/devuelto/devolvible por (producto, bodega) del cliente.
func (uc *UseCase) GetCustomerPurchases(ctx context.Context, tenantID, customerID string) ([]dto.CustomerPurchaseResponse, error) {
	if err := uc.ensureCustomer(ctx, tenantID, customerID); err != nil {
		return nil, err
	}
	rows, err := uc.returnRepo.ListPurchaseSummaries(ctx, tenantID, customerID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.CustomerPurchaseResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.CustomerPurchaseResponse{
			ProductID:     r.ProductID,
			ProductName:   r.ProductName,
			WarehouseID:   r.WarehouseID,
			WarehouseName: r.WarehouseName,
			PurchasedQty:  r.PurchasedQty,
			ReturnedQty:   r.ReturnedQty,
			ReturnableQty: r.ReturnableQty,
			LastUnitPrice: r.LastUnitPrice,
		})
	}
	return out, nil
}

// ListReturns devoluciones del tenant, más recientes primero.
func (uc *UseCase) ListReturns(ctx context.Context, tenantID string, page dto.PageRequest) (*dto.ReturnListResponse, error) {
	page.DefaultPage()
	list, err := uc.returnRepo.List(ctx, tenantID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := &dto.ReturnListResponse{
		Items: make([]dto.ReturnResponse, 0, len(list)),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}
	for _, r := range list {
		out.Items = append(out.Items, toReturnResponse(r))
	}
	return out, nil
}

func (uc *UseCase) ensureCustomer(ctx context.Context, tenantID, customerID string) error {
	if customerID == "" {
		return domain.NewValidationError("customer_id", "requerido")
	}
	c, err := uc.customerRepo.GetByID(ctx, tenantID, customerID)
	if err != nil {
		return err
	}
	if c == nil {
		return domain.NewNotFound("customer", customerID)
	}
	return nil
}

func (uc *UseCase) ensureExists(ctx context.Context, tenantID, customerID, productID, warehouseID string) error {
	if err := uc.ensureCustomer(ctx, tenantID, customerID); err != nil {
		return err
	}
	if productID == "" {
		return domain.NewValidationError("product_id", "requerido")
	}
	p, err := uc.productRepo.GetByID(ctx, tenantID, productID)
	if err != nil {
		return err
	}
	if p == nil {
		return domain.NewNotFound("product", productID)
	}
	if warehouseID == "" {
		return domain.NewValidationError("warehouse_id", "requerido")
	}
	w, err := uc.warehouseRepo.GetByID(ctx, tenantID, warehouseID)
	if err != nil {
		return err
	}
	if w == nil {
		return domain.NewNotFound("warehouse", warehouseID)
	}
	return nil
}

func toReturnResponse(r *entity.CustomerReturn) dto.ReturnResponse {
	return dto.ReturnResponse{
		ID:          r.ID,
		CustomerID:  r.CustomerID,
		ProductID:   r.ProductID,
		WarehouseID: r.WarehouseID,
		Quantity:    r.Quantity,
		UnitPrice:   r.UnitPrice,
		Total:       r.Total,
		Reason:      r.Reason,
		CreatedAt:   r.CreatedAt,
	}
}
