package inventory

import (
	"context"

	"github.com/google/uuid"

	"github.com/jhoicas/stockledger-api/internal/application/audit"
	"github.com/jhoicas/stockledger-api/internal/application/dto"
	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/ledger"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
)

// Transfer mueve stock entre dos bodegas en una sola transacción: TRANSFER negativo
// en origen y TRANSFER positivo en destino, ambos con el mismo transfer id como referencia.
func (uc *MovementUseCase) Transfer(ctx context.Context, tenantID, userID string, in dto.TransferRequest) (*dto.TransferResponse, error) {
	if err := ledger.ValidateQuantity("quantity", in.Quantity); err != nil {
		return nil, err
	}
	if in.FromWarehouseID == in.ToWarehouseID {
		return nil, domain.NewValidationError("to_warehouse_id", "debe ser distinta de la bodega origen")
	}
	if err := uc.ensureProductAndWarehouses(ctx, tenantID, in.ProductID, in.FromWarehouseID, in.ToWarehouseID); err != nil {
		return nil, err
	}

	transferID := uuid.New().String()
	ref := entity.ReferenceTransfer
	from := entity.StockKey{ProductID: in.ProductID, WarehouseID: in.FromWarehouseID}
	to := entity.StockKey{ProductID: in.ProductID, WarehouseID: in.ToWarehouseID}

	var out, inMov *entity.StockMovement
	resp := &dto.TransferResponse{
		TransferID:      transferID,
		ProductID:       in.ProductID,
		FromWarehouseID: in.FromWarehouseID,
		ToWarehouseID:   in.ToWarehouseID,
		Quantity:        in.Quantity,
	}

	err := uc.txRunner.Run(ctx, func(tx repository.Tx) error {
		current, err := tx.Balances.LockForUpdate(ctx, tenantID, ledger.SortKeys([]entity.StockKey{from, to}))
		if err != nil {
			return err
		}
		if current[from] < in.Quantity {
			uc.ledger.Rejected(string(entity.MovementTransfer))
			return &domain.InsufficientStockError{
				ProductID:   from.ProductID,
				WarehouseID: from.WarehouseID,
				Available:   current[from],
				Requested:   in.Quantity,
			}
		}

		out = &entity.StockMovement{
			TenantID: tenantID, ProductID: in.ProductID, WarehouseID: in.FromWarehouseID,
			Quantity: -in.Quantity, Type: entity.MovementTransfer,
			ReferenceID: &transferID, ReferenceType: &ref, Note: in.Note, CreatedBy: userID,
		}
		if resp.FromBalance, err = uc.ledger.AppendInTx(ctx, tx, out); err != nil {
			return err
		}
		inMov = &entity.StockMovement{
			TenantID: tenantID, ProductID: in.ProductID, WarehouseID: in.ToWarehouseID,
			Quantity: in.Quantity, Type: entity.MovementTransfer,
			ReferenceID: &transferID, ReferenceType: &ref, Note: in.Note, CreatedBy: userID,
		}
		if resp.ToBalance, err = uc.ledger.AppendInTx(ctx, tx, inMov); err != nil {
			return err
		}
		return audit.Record(ctx, tx.Audit, tenantID, userID, entity.AuditTransferCreated, "transfer", transferID, in)
	})
	if err != nil {
		return nil, err
	}

	resp.Movements = []dto.MovementResponse{toMovementResponse(out), toMovementResponse(inMov)}
	return resp, nil
}
