package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/epp-ledger/internal/domain/entity"
	"github.com/jhoicas/epp-ledger/internal/domain/repository"
)

var _ repository.DeliveryRepository = (*DeliveryRepo)(nil)

// DeliveryRepo implementación de DeliveryRepository sobre PostgreSQL (usable con pool o tx).
type DeliveryRepo struct {
	q Querier
}

// NewDeliveryRepository construye el adaptador de entregas. Pasar pool o tx (Querier).
func NewDeliveryRepository(q Querier) *DeliveryRepo {
	return &DeliveryRepo{q: q}
}

const deliveryColumns = `
	id, company_id, idempotency_key, kind, status, actor_id,
	worker_id, center_id, source_center_id, from_center_id, to_center_id,
	reference, fingerprint, total_units, total_cost, created_at`

// Reserve inserta la cabecera. ON CONFLICT sobre (company_id, idempotency_key): si otra tx ya
// confirmó la clave no se inserta nada; si está en curso, esta sentencia espera a que termine.
func (r *DeliveryRepo) Reserve(ctx context.Context, d *entity.Delivery) (bool, error) {
	query := `
		INSERT INTO deliveries (` + deliveryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 0, 0, $14)
		ON CONFLICT (company_id, idempotency_key) DO NOTHING`
	dest := d.Destination
	cmd, err := r.q.Exec(ctx, query,
		d.ID, d.CompanyID, d.IdempotencyKey, d.Kind, string(d.Status), d.ActorID,
		nullable(dest.WorkerID), nullable(dest.CenterID), nullable(dest.SourceCenterID),
		nullable(dest.FromCenterID), nullable(dest.ToCenterID),
		d.Reference, d.Fingerprint, d.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, classify("reserve delivery", fmt.Errorf("reserve delivery: %w", err))
	}
	return cmd.RowsAffected() == 1, nil
}

// Complete escribe líneas y asignaciones y cierra la cabecera con totales y estado.
func (r *DeliveryRepo) Complete(ctx context.Context, d *entity.Delivery) error {
	batch := &pgx.Batch{}
	for i, line := range d.Lines {
		batch.Queue(`
			INSERT INTO delivery_lines (delivery_id, line_no, category, product_name, size, quantity, total_cost)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			d.ID, i, line.Variant.Category, line.Variant.ProductName, line.Variant.SizePtr(), line.Quantity, line.TotalCost,
		)
		for j, a := range line.Allocations {
			batch.Queue(`
				INSERT INTO delivery_allocations (delivery_id, line_no, seq, lot_id, quantity, unit_cost, target_lot_id)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				d.ID, i, j, a.LotID, a.Quantity, a.UnitCost, nullable(a.TargetLotID),
			)
		}
	}
	batch.Queue(`
		UPDATE deliveries SET status = $2, total_units = $3, total_cost = $4
		WHERE id = $1`,
		d.ID, string(d.Status), d.TotalUnits, d.TotalCost,
	)

	br := r.q.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return classify("complete delivery", fmt.Errorf("complete delivery: %w", err))
		}
	}
	if err := br.Close(); err != nil {
		return classify("complete delivery", fmt.Errorf("complete delivery: %w", err))
	}
	return nil
}

func scanDelivery(row pgx.Row) (*entity.Delivery, error) {
	var (
		d                                  entity.Delivery
		status                             string
		worker, center, source, fromC, toC *string
	)
	err := row.Scan(
		&d.ID, &d.CompanyID, &d.IdempotencyKey, &d.Kind, &status, &d.ActorID,
		&worker, &center, &source, &fromC, &toC,
		&d.Reference, &d.Fingerprint, &d.TotalUnits, &d.TotalCost, &d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.Status = entity.DeliveryStatus(status)
	d.Destination = entity.Destination{
		WorkerID:       deref(worker),
		CenterID:       deref(center),
		SourceCenterID: deref(source),
		FromCenterID:   deref(fromC),
		ToCenterID:     deref(toC),
	}
	return &d, nil
}

// GetByID obtiene una entrega confirmada con líneas y asignaciones.
func (r *DeliveryRepo) GetByID(ctx context.Context, id string) (*entity.Delivery, error) {
	return r.getOne(ctx, `SELECT`+deliveryColumns+` FROM deliveries WHERE id = $1 AND status = 'COMMITTED'`, id)
}

// GetByIdempotencyKey obtiene la entrega confirmada de la clave, o nil.
func (r *DeliveryRepo) GetByIdempotencyKey(ctx context.Context, companyID, key string) (*entity.Delivery, error) {
	return r.getOne(ctx, `SELECT`+deliveryColumns+` FROM deliveries
		WHERE company_id = $1 AND idempotency_key = $2 AND status = 'COMMITTED'`, companyID, key)
}

func (r *DeliveryRepo) getOne(ctx context.Context, query string, args ...any) (*entity.Delivery, error) {
	d, err := scanDelivery(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get delivery: %w", err)
	}
	if err := r.loadLines(ctx, []*entity.Delivery{d}); err != nil {
		return nil, err
	}
	return d, nil
}

// ListByCompany entregas confirmadas de la empresa, más recientes primero.
func (r *DeliveryRepo) ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.Delivery, error) {
	query := `SELECT` + deliveryColumns + ` FROM deliveries
		WHERE company_id = $1 AND status = 'COMMITTED'
		ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, companyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close()
	var list []*entity.Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		list = append(list, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	if err := r.loadLines(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

// loadLines completa líneas y asignaciones de las entregas indicadas.
func (r *DeliveryRepo) loadLines(ctx context.Context, list []*entity.Delivery) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]string, len(list))
	byID := make(map[string]*entity.Delivery, len(list))
	for i, d := range list {
		ids[i] = d.ID
		byID[d.ID] = d
	}

	rows, err := r.q.Query(ctx, `
		SELECT delivery_id, line_no, category, product_name, size, quantity, total_cost
		FROM delivery_lines WHERE delivery_id::text = ANY($1)
		ORDER BY delivery_id, line_no`, ids)
	if err != nil {
		return fmt.Errorf("list delivery lines: %w", err)
	}
	for rows.Next() {
		var (
			deliveryID string
			lineNo     int
			size       *string
			line       entity.DeliveryLine
		)
		if err := rows.Scan(&deliveryID, &lineNo, &line.Variant.Category, &line.Variant.ProductName, &size, &line.Quantity, &line.TotalCost); err != nil {
			rows.Close()
			return fmt.Errorf("scan delivery line: %w", err)
		}
		line.Variant.Size = deref(size)
		d := byID[deliveryID]
		d.Lines = append(d.Lines, line)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("list delivery lines: %w", err)
	}

	rows, err = r.q.Query(ctx, `
		SELECT delivery_id, line_no, lot_id, quantity, unit_cost, target_lot_id
		FROM delivery_allocations WHERE delivery_id::text = ANY($1)
		ORDER BY delivery_id, line_no, seq`, ids)
	if err != nil {
		return fmt.Errorf("list delivery allocations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			deliveryID string
			lineNo     int
			target     *string
			a          entity.Allocation
		)
		if err := rows.Scan(&deliveryID, &lineNo, &a.LotID, &a.Quantity, &a.UnitCost, &target); err != nil {
			return fmt.Errorf("scan delivery allocation: %w", err)
		}
		a.TargetLotID = deref(target)
		d := byID[deliveryID]
		if lineNo < len(d.Lines) {
			d.Lines[lineNo].Allocations = append(d.Lines[lineNo].Allocations, a)
		}
	}
	return rows.Err()
}

// DeliveredByLot suma asignada por lote (entregas y traslados confirmados).
func (r *DeliveryRepo) DeliveredByLot(ctx context.Context, companyID string) (map[string]int64, error) {
	rows, err := r.q.Query(ctx, `
		SELECT a.lot_id, SUM(a.quantity)
		FROM delivery_allocations a
		JOIN deliveries d ON d.id = a.delivery_id
		WHERE d.company_id = $1 AND d.status = 'COMMITTED'
		GROUP BY a.lot_id`, companyID)
	if err != nil {
		return nil, fmt.Errorf("delivered by lot: %w", err)
	}
	defer rows.Close()
	out := make(map[string]int64)
	for rows.Next() {
		var (
			lotID string
			qty   int64
		)
		if err := rows.Scan(&lotID, &qty); err != nil {
			return nil, fmt.Errorf("scan delivered by lot: %w", err)
		}
		out[lotID] = qty
	}
	return out, rows.Err()
}
