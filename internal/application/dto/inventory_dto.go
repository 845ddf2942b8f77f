package dto

import "time"

// RegisterMovementRequest body para POST /stock-movements.
// OUT e IN llevan cantidad positiva; ADJUSTMENT admite signo.
type RegisterMovementRequest struct {
	ProductID   string `json:"product_id" validate:"required"`
	WarehouseID string `json:"warehouse_id" validate:"required"`
	Quantity    int64  `json:"quantity" validate:"required,gte=-1000000000,lte=1000000000"`
	Type        string `json:"type" validate:"required,oneof=IN OUT ADJUSTMENT SALE TRANSFER"`
	Note        string `json:"note,omitempty" validate:"max=500"`
}

// TransferRequest body para POST /stock-transfers.
type TransferRequest struct {
	ProductID       string `json:"product_id" validate:"required"`
	FromWarehouseID string `json:"from_warehouse_id" validate:"required"`
	ToWarehouseID   string `json:"to_warehouse_id" validate:"required,nefield=FromWarehouseID"`
	Quantity        int64  `json:"quantity" validate:"required,gt=0,lte=1000000000"`
	Note            string `json:"note,omitempty" validate:"max=500"`
}

// MovementListRequest query de GET /stock-movements.
type MovementListRequest struct {
	PageRequest
	ProductID   string `query:"product_id"`
	WarehouseID string `query:"warehouse_id"`
	Type        string `query:"type" validate:"omitempty,oneof=IN OUT SALE TRANSFER ADJUSTMENT"`
}

// MovementResponse movimiento del ledger.
type MovementResponse struct {
	ID            string    `json:"id"`
	ProductID     string    `json:"product_id"`
	WarehouseID   string    `json:"warehouse_id"`
	Quantity      int64     `json:"quantity"`
	Type          string    `json:"type"`
	ReferenceID   *string   `json:"reference_id,omitempty"`
	ReferenceType *string   `json:"reference_type,omitempty"`
	Note          string    `json:"note,omitempty"`
	CreatedBy     string    `json:"created_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	Balance       *int64    `json:"balance,omitempty"` // saldo resultante (solo en la respuesta del POST)
}

// MovementListResponse listado paginado de movimientos.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// TransferResponse resultado de un traslado: los dos movimientos y los saldos finales.
type TransferResponse struct {
	TransferID      string             `json:"transfer_id"`
	ProductID       string             `json:"product_id"`
	FromWarehouseID string             `json:"from_warehouse_id"`
	ToWarehouseID   string             `json:"to_warehouse_id"`
	Quantity        int64              `json:"quantity"`
	FromBalance     int64              `json:"from_balance"`
	ToBalance       int64              `json:"to_balance"`
	Movements       []MovementResponse `json:"movements"`
}

// StockBalanceResponse respuesta de GET /stock-balance.
type StockBalanceResponse struct {
	ProductID      string `json:"product_id"`
	WarehouseID    string `json:"warehouse_id"`
	Quantity       int64  `json:"quantity"`
	LedgerQuantity *int64 `json:"ledger_quantity,omitempty"` // solo con verify=true
	Consistent     *bool  `json:"consistent,omitempty"`
}

// WarehouseBalanceResponse fila de GET /stock-balance-by-warehouse.
type WarehouseBalanceResponse struct {
	WarehouseID   string `json:"warehouse_id"`
	WarehouseName string `json:"warehouse_name"`
	Quantity      int64  `json:"quantity"`
}

// TotalBalanceResponse respuesta de GET /stock-balance-total.
type TotalBalanceResponse struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}
