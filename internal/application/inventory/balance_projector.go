package inventory

import (
	"context"

	"github.com/jhoicas/stockledger-api/internal/application/dto"
	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
)

// BalanceProjector lecturas de saldo. Consulta siempre la base primaria, así que
// ve el último commit; el chequeo de stock para escribir no pasa por aquí sino por
// LockForUpdate dentro de la transacción.
type BalanceProjector struct {
	balanceRepo   repository.StockBalanceRepository
	movementRepo  repository.StockMovementRepository
	productRepo   repository.ProductRepository
	warehouseRepo repository.WarehouseRepository
}

// NewBalanceProjector construye el proyector de saldos.
func NewBalanceProjector(
	balanceRepo repository.StockBalanceRepository,
	movementRepo repository.StockMovementRepository,
	productRepo repository.ProductRepository,
	warehouseRepo repository.WarehouseRepository,
) *BalanceProjector {
	return &BalanceProjector{
		balanceRepo:   balanceRepo,
		movementRepo:  movementRepo,
		productRepo:   productRepo,
		warehouseRepo: warehouseRepo,
	}
}

// GetBalance saldo de (producto, bodega); 0 si nunca hubo movimientos.
// Con verify=true además suma el ledger y reporta si coincide.
func (p *BalanceProjector) GetBalance(ctx context.Context, tenantID, productID, warehouseID string, verify bool) (*dto.StockBalanceResponse, error) {
	if err := p.ensureProduct(ctx, tenantID, productID); err != nil {
		return nil, err
	}
	if warehouseID == "" {
		return nil, domain.NewValidationError("warehouse_id", "requerido")
	}
	wh, err := p.warehouseRepo.GetByID(ctx, tenantID, warehouseID)
	if err != nil {
		return nil, err
	}
	if wh == nil {
		return nil, domain.NewNotFound("warehouse", warehouseID)
	}

	key := entity.StockKey{ProductID: productID, WarehouseID: warehouseID}
	qty, err := p.balanceRepo.Get(ctx, tenantID, key)
	if err != nil {
		return nil, err
	}
	resp := &dto.StockBalanceResponse{ProductID: productID, WarehouseID: warehouseID, Quantity: qty}
	if verify {
		sum, err := p.movementRepo.SumByKey(ctx, tenantID, key)
		if err != nil {
			return nil, err
		}
		consistent := sum == qty
		resp.LedgerQuantity = &sum
		resp.Consistent = &consistent
	}
	return resp, nil
}

// ReplayBalance recalcula el saldo sumando todos los movimientos de la clave.
func (p *BalanceProjector) ReplayBalance(ctx context.Context, tenantID, productID, warehouseID string) (int64, error) {
	return p.movementRepo.SumByKey(ctx, tenantID, entity.StockKey{ProductID: productID, WarehouseID: warehouseID})
}

// GetBalancesByWarehouse saldo del producto en cada bodega del tenant.
func (p *BalanceProjector) GetBalancesByWarehouse(ctx context.Context, tenantID, productID string) ([]dto.WarehouseBalanceResponse, error) {
	if err := p.ensureProduct(ctx, tenantID, productID); err != nil {
		return nil, err
	}
	rows, err := p.balanceRepo.ListByProduct(ctx, tenantID, productID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.WarehouseBalanceResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.WarehouseBalanceResponse{
			WarehouseID:   r.WarehouseID,
			WarehouseName: r.WarehouseName,
			Quantity:      r.Quantity,
		})
	}
	return out, nil
}

// GetTotalBalance suma del producto en todas las bodegas.
func (p *BalanceProjector) GetTotalBalance(ctx context.Context, tenantID, productID string) (*dto.TotalBalanceResponse, error) {
	if err := p.ensureProduct(ctx, tenantID, productID); err != nil {
		return nil, err
	}
	total, err := p.balanceRepo.TotalByProduct(ctx, tenantID, productID)
	if err != nil {
		return nil, err
	}
	return &dto.TotalBalanceResponse{ProductID: productID, Quantity: total}, nil
}

func (p *BalanceProjector) ensureProduct(ctx context.Context, tenantID, productID string) error {
	if productID == "" {
		return domain.NewValidationError("product_id", "requerido")
	}
	product, err := p.productRepo.GetByID(ctx, tenantID, productID)
	if err != nil {
		return err
	}
	if product == nil {
		return domain.NewNotFound("product", productID)
	}
	return nil
}
