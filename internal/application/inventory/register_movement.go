package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/stockledger-api/internal/application/audit"
	"github.com/jhoicas/stockledger-api/internal/application/dto"
	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/ledger"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
)

// MovementUseCase registra movimientos manuales (IN, OUT, ADJUSTMENT) y traslados
// entre bodegas, siempre en una transacción con la fila de saldo bloqueada.
type MovementUseCase struct {
	txRunner      TxRunner
	ledger        *Ledger
	movementRepo  repository.StockMovementRepository
	productRepo   repository.ProductRepository
	warehouseRepo repository.WarehouseRepository
}

// NewMovementUseCase construye el caso de uso.
func NewMovementUseCase(
	txRunner TxRunner,
	ledger *Ledger,
	movementRepo repository.StockMovementRepository,
	productRepo repository.ProductRepository,
	warehouseRepo repository.WarehouseRepository,
) *MovementUseCase {
	return &MovementUseCase{
		txRunner:      txRunner,
		ledger:        ledger,
		movementRepo:  movementRepo,
		productRepo:   productRepo,
		warehouseRepo: warehouseRepo,
	}
}

// RegisterMovement anexa un movimiento manual:
//   - IN: cantidad > 0, se guarda positiva.
//   - OUT: cantidad > 0, se guarda negada; falla con InsufficientStockError si excede el saldo.
//   - ADJUSTMENT: cantidad con signo, distinta de cero.
//
// SALE y TRANSFER no se aceptan aquí: los generan facturas y traslados.
func (uc *MovementUseCase) RegisterMovement(ctx context.Context, tenantID, userID string, in dto.RegisterMovementRequest) (*dto.MovementResponse, error) {
	typ := entity.MovementType(strings.ToUpper(strings.TrimSpace(in.Type)))
	qty, err := signedQuantity(typ, in.Quantity)
	if err != nil {
		return nil, err
	}
	if err := uc.ensureProductAndWarehouses(ctx, tenantID, in.ProductID, in.WarehouseID); err != nil {
		return nil, err
	}

	ref := entity.ReferenceManual
	m := &entity.StockMovement{
		TenantID:      tenantID,
		ProductID:     in.ProductID,
		WarehouseID:   in.WarehouseID,
		Quantity:      qty,
		Type:          typ,
		ReferenceType: &ref,
		Note:          in.Note,
		CreatedBy:     userID,
	}
	if err := ledger.ValidateMovement(m); err != nil {
		return nil, err
	}

	var balance int64
	err = uc.txRunner.Run(ctx, func(tx repository.Tx) error {
		key := m.Key()
		current, err := tx.Balances.LockForUpdate(ctx, tenantID, []entity.StockKey{key})
		if err != nil {
			return err
		}
		if qty < 0 && current[key]+qty < 0 {
			uc.ledger.Rejected(string(typ))
			return &domain.InsufficientStockError{
				ProductID:   key.ProductID,
				WarehouseID: key.WarehouseID,
				Available:   current[key],
				Requested:   -qty,
			}
		}
		balance, err = uc.ledger.AppendInTx(ctx, tx, m)
		if err != nil {
			return err
		}
		return audit.Record(ctx, tx.Audit, tenantID, userID, entity.AuditMovementCreated, "stock_movement", m.ID, map[string]any{
			"product_id":   m.ProductID,
			"warehouse_id": m.WarehouseID,
			"type":         m.Type,
			"quantity":     m.Quantity,
		})
	})
	if err != nil {
		return nil, err
	}

	resp := toMovementResponse(m)
	resp.Balance = &balance
	return &resp, nil
}

// ListMovements lista el ledger del tenant, más recientes primero.
func (uc *MovementUseCase) ListMovements(ctx context.Context, tenantID string, in dto.MovementListRequest) (*dto.MovementListResponse, error) {
	in.DefaultPage()
	filter := repository.MovementFilter{
		ProductID:   in.ProductID,
		WarehouseID: in.WarehouseID,
		Limit:       in.Limit,
		Offset:      in.Offset,
	}
	if in.Type != "" {
		filter.Type = entity.MovementType(strings.ToUpper(in.Type))
		if !filter.Type.Valid() {
			return nil, domain.NewValidationError("type", "tipo de movimiento desconocido")
		}
	}
	list, err := uc.movementRepo.List(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}
	out := &dto.MovementListResponse{
		Items: make([]dto.MovementResponse, 0, len(list)),
		Page:  dto.PageResponse{Limit: in.Limit, Offset: in.Offset},
	}
	for _, m := range list {
		out.Items = append(out.Items, toMovementResponse(m))
	}
	return out, nil
}

func signedQuantity(typ entity.MovementType, qty int64) (int64, error) {
	switch typ {
	case entity.MovementIn:
		if err := ledger.ValidateQuantity("quantity", qty); err != nil {
			return 0, err
		}
		return qty, nil
	case entity.MovementOut:
		if err := ledger.ValidateQuantity("quantity", qty); err != nil {
			return 0, err
		}
		return -qty, nil
	case entity.MovementAdjustment:
		if qty == 0 {
			return 0, domain.NewValidationError("quantity", "no puede ser cero")
		}
		if qty > ledger.MaxQuantity || qty < -ledger.MaxQuantity {
			return 0, domain.NewValidationError("quantity", fmt.Sprintf("máximo %d en valor absoluto", ledger.MaxQuantity))
		}
		return qty, nil
	case entity.MovementSale, entity.MovementTransfer:
		return 0, domain.NewValidationError("type", "SALE y TRANSFER solo se generan desde facturas y traslados")
	default:
		return 0, domain.NewValidationError("type", "tipo de movimiento desconocido: "+string(typ))
	}
}

func (uc *MovementUseCase) ensureProductAndWarehouses(ctx context.Context, tenantID, productID string, warehouseIDs ...string) error {
	if productID == "" {
		return domain.NewValidationError("product_id", "requerido")
	}
	product, err := uc.productRepo.GetByID(ctx, tenantID, productID)
	if err != nil {
		return err
	}
	if product == nil {
		return domain.NewNotFound("product", productID)
	}
	for _, id := range warehouseIDs {
		if id == "" {
			return domain.NewValidationError("warehouse_id", "requerido")
		}
		wh, err := uc.warehouseRepo.GetByID(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if wh == nil {
			return domain.NewNotFound("warehouse", id)
		}
	}
	return nil
}

func toMovementResponse(m *entity.StockMovement) dto.MovementResponse {
	return dto.MovementResponse{
		ID:            m.ID,
		ProductID:     m.ProductID,
		WarehouseID:   m.WarehouseID,
		Quantity:      m.Quantity,
		Type:          string(m.Type),
		ReferenceID:   m.ReferenceID,
		ReferenceType: m.ReferenceType,
		Note:          m.Note,
		CreatedBy:     m.CreatedBy,
		CreatedAt:     m.CreatedAt,
	}
}
