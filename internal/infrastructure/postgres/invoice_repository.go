package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

// NextNumber incrementa el consecutivo (tenant, año). El upsert bloquea la fila
// hasta el commit, así dos facturas concurrentes nunca reciben el mismo número y
// un rollback no deja huecos.
func (r *InvoiceRepo) NextNumber(ctx context.Context, tenantID string, year int) (string, error) {
	const query = `
		INSERT INTO invoice_sequences (tenant_id, year, last_number)
		VALUES ($1, $2, 1)
		ON CONFLICT (tenant_id, year)
		DO UPDATE SET last_number = invoice_sequences.last_number + 1
		RETURNING last_number`
	var n int64
	if err := r.q.QueryRow(ctx, query, tenantID, year).Scan(&n); err != nil {
		return "", fmt.Errorf("next invoice number: %w", err)
	}
	return fmt.Sprintf("INV-%d-%05d", year, n), nil
}

// Create persiste cabecera y líneas (en batch).
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	const header = `
		INSERT INTO invoices (id, tenant_id, invoice_number, customer_id, warehouse_id,
		                      subtotal, tax_total, total_amount, idempotency_key, request_hash, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at`
	err := r.q.QueryRow(ctx, header,
		inv.ID, inv.TenantID, inv.InvoiceNumber, inv.CustomerID, inv.WarehouseID,
		inv.Subtotal, inv.TaxTotal, inv.TotalAmount, inv.IdempotencyKey, inv.RequestHash, inv.CreatedBy,
	).Scan(&inv.CreatedAt)
	if err != nil {
		if isConstraint(err, "uq_invoices_tenant_idempotency_key") {
			return repository.ErrDuplicateIdempotencyKey
		}
		if isUniqueViolation(err) {
			return fmt.Errorf("invoice number already exists: %w", err)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}

	const item = `
		INSERT INTO invoice_items (id, tenant_id, invoice_id, line_no, product_id, quantity,
		                           unit_price, tax_rate, line_total, tax_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	batch := &pgx.Batch{}
	for i, it := range inv.Items {
		batch.Queue(item, it.ID, inv.TenantID, inv.ID, i+1, it.ProductID, it.Quantity,
			it.UnitPrice, it.TaxRate, it.LineTotal, it.TaxAmount)
	}
	br := r.q.SendBatch(ctx, batch)
	for range inv.Items {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("insert invoice item: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("insert invoice items: %w", err)
	}
	return nil
}

const invoiceColumns = `
	id, tenant_id, invoice_number, customer_id, warehouse_id,
	subtotal, tax_total, total_amount, idempotency_key, request_hash, created_by, created_at`

func scanInvoice(row pgx.Row) (*entity.Invoice, error) {
	var inv entity.Invoice
	err := row.Scan(&inv.ID, &inv.TenantID, &inv.InvoiceNumber, &inv.CustomerID, &inv.WarehouseID,
		&inv.Subtotal, &inv.TaxTotal, &inv.TotalAmount, &inv.IdempotencyKey, &inv.RequestHash,
		&inv.CreatedBy, &inv.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// GetByID obtiene la factura con sus líneas.
func (r *InvoiceRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE tenant_id = $1 AND id = $2`
	return r.getOne(ctx, query, tenantID, id)
}

// GetByIdempotencyKey factura creada con esa key, con líneas, o (nil, nil).
func (r *InvoiceRepo) GetByIdempotencyKey(ctx context.Context, tenantID, key string) (*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE tenant_id = $1 AND idempotency_key = $2`
	return r.getOne(ctx, query, tenantID, key)
}

func (r *InvoiceRepo) getOne(ctx context.Context, query string, args ...any) (*entity.Invoice, error) {
	inv, err := scanInvoice(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	if inv.Items, err = r.items(ctx, inv.ID); err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *InvoiceRepo) items(ctx context.Context, invoiceID string) ([]*entity.InvoiceLineItem, error) {
	const query = `
		SELECT id, invoice_id, product_id, quantity, unit_price, tax_rate, line_total, tax_amount
		FROM invoice_items WHERE invoice_id = $1 ORDER BY line_no`
	rows, err := r.q.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list invoice items: %w", err)
	}
	defer rows.Close()
	var list []*entity.InvoiceLineItem
	for rows.Next() {
		var it entity.InvoiceLineItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.ProductID, &it.Quantity,
			&it.UnitPrice, &it.TaxRate, &it.LineTotal, &it.TaxAmount); err != nil {
			return nil, fmt.Errorf("scan invoice item: %w", err)
		}
		list = append(list, &it)
	}
	return list, rows.Err()
}

// List cabeceras del tenant, más recientes primero.
func (r *InvoiceRepo) List(ctx context.Context, tenantID string, limit, offset int) ([]*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + `
		FROM invoices WHERE tenant_id = $1
		ORDER BY created_at DESC, invoice_number DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()
	var list []*entity.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}
