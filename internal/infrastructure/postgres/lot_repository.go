package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/epp-ledger/internal/domain/entity"
	"github.com/jhoicas/epp-ledger/internal/domain/repository"
	"github.com/jhoicas/epp-ledger/pkg/textnorm"
)

var _ repository.LotRepository = (*LotRepo)(nil)

// LotRepo implementación de LotRepository sobre PostgreSQL (usable con pool o tx).
type LotRepo struct {
	q Querier
}

// NewLotRepository construye el adaptador de lotes. Pasar pool o tx (Querier).
func NewLotRepository(q Querier) *LotRepo {
	return &LotRepo{q: q}
}

const lotColumns = `
	id, company_id, category, product_name, size, center_id,
	quantity_initial, quantity_available, unit_cost, ingestion_date, document_ref, origin_lot_id,
	voided, void_reason, voided_by, voided_at, created_by, created_at, updated_at`

const insertLotSQL = `
	INSERT INTO stock_lots (
		id, company_id, category, product_name, size, center_id,
		quantity_initial, quantity_available, unit_cost, ingestion_date, document_ref, origin_lot_id,
		search_text, voided, void_reason, voided_by, voided_at, created_by, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

func insertLotArgs(l *entity.Lot) []any {
	return []any{
		l.ID, l.CompanyID, l.Variant.Category, l.Variant.ProductName, l.Variant.SizePtr(), nullable(l.CenterID),
		l.QuantityInitial, l.QuantityAvailable, l.UnitCost, l.IngestionDate, l.DocumentRef, nullable(l.OriginLotID),
		l.SearchText(), l.Voided, l.VoidReason, l.VoidedBy, l.VoidedAt, l.CreatedBy, l.CreatedAt, l.UpdatedAt,
	}
}

// scanLot lee las columnas de lotColumns; extra recibe columnas adicionales al final.
func scanLot(row pgx.Row, extra ...any) (*entity.Lot, error) {
	var (
		l                        entity.Lot
		size, centerID, originID *string
	)
	dest := []any{
		&l.ID, &l.CompanyID, &l.Variant.Category, &l.Variant.ProductName, &size, &centerID,
		&l.QuantityInitial, &l.QuantityAvailable, &l.UnitCost, &l.IngestionDate, &l.DocumentRef, &originID,
		&l.Voided, &l.VoidReason, &l.VoidedBy, &l.VoidedAt, &l.CreatedBy, &l.CreatedAt, &l.UpdatedAt,
	}
	err := row.Scan(append(dest, extra...)...)
	if err != nil {
		return nil, err
	}
	l.Variant.Size = deref(size)
	l.CenterID = deref(centerID)
	l.OriginLotID = deref(originID)
	l.IngestionDate = entity.TruncateDate(l.IngestionDate)
	return &l, nil
}

func collectLots(rows pgx.Rows) ([]*entity.Lot, error) {
	defer rows.Close()
	var list []*entity.Lot
	for rows.Next() {
		l, err := scanLot(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, l)
	}
	return list, rows.Err()
}

// Create persiste un lote nuevo.
func (r *LotRepo) Create(ctx context.Context, lot *entity.Lot) error {
	if _, err := r.q.Exec(ctx, insertLotSQL, insertLotArgs(lot)...); err != nil {
		return classify("insert lot", fmt.Errorf("insert lot: %w", err))
	}
	return nil
}

// CreateBatch inserta varios lotes en un solo viaje. Debe usarse dentro de una tx para que sea todo o nada.
func (r *LotRepo) CreateBatch(ctx context.Context, lots []*entity.Lot) error {
	if len(lots) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, l := range lots {
		batch.Queue(insertLotSQL, insertLotArgs(l)...)
	}
	br := r.q.SendBatch(ctx, batch)
	for i := range lots {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return classify("insert lot batch", fmt.Errorf("insert lot batch row %d: %w", i, err))
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("insert lot batch: %w", err)
	}
	return nil
}

// GetByID obtiene un lote por ID.
func (r *LotRepo) GetByID(ctx context.Context, id string) (*entity.Lot, error) {
	return r.get(ctx, `SELECT`+lotColumns+` FROM stock_lots WHERE id = $1`, id)
}

// GetByIDForUpdate obtiene el lote y bloquea la fila (SELECT FOR UPDATE).
func (r *LotRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.Lot, error) {
	return r.get(ctx, `SELECT`+lotColumns+` FROM stock_lots WHERE id = $1 FOR UPDATE`, id)
}

func (r *LotRepo) get(ctx context.Context, query, id string) (*entity.Lot, error) {
	l, err := scanLot(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify("get lot", fmt.Errorf("get lot: %w", err))
	}
	return l, nil
}

// Update reescribe los campos mutables del lote (saldo, corrección de auditoría, anulación).
func (r *LotRepo) Update(ctx context.Context, lot *entity.Lot) error {
	query := `
		UPDATE stock_lots SET
			quantity_initial = $2, quantity_available = $3, unit_cost = $4, ingestion_date = $5,
			search_text = $6, voided = $7, void_reason = $8, voided_by = $9, voided_at = $10, updated_at = $11
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query,
		lot.ID, lot.QuantityInitial, lot.QuantityAvailable, lot.UnitCost, lot.IngestionDate,
		lot.SearchText(), lot.Voided, lot.VoidReason, lot.VoidedBy, lot.VoidedAt, lot.UpdatedAt,
	)
	if err != nil {
		return classify("update lot", fmt.Errorf("update lot: %w", err))
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("update lot %s: no existe", lot.ID)
	}
	return nil
}

// ListAvailableForUpdate lotes asignables de la variante en el pool, bloqueados en orden FIFO.
func (r *LotRepo) ListAvailableForUpdate(ctx context.Context, companyID string, variant entity.ProductVariant, centerID string) ([]*entity.Lot, error) {
	query := `SELECT` + lotColumns + `
		FROM stock_lots
		WHERE company_id = $1 AND category = $2 AND product_name = $3
		  AND size IS NOT DISTINCT FROM $4 AND center_id IS NOT DISTINCT FROM $5
		  AND NOT voided AND quantity_available > 0
		ORDER BY ingestion_date, created_at, id
		FOR UPDATE`
	rows, err := r.q.Query(ctx, query, companyID, variant.Category, variant.ProductName, variant.SizePtr(), nullable(centerID))
	if err != nil {
		return nil, classify("lock lots", fmt.Errorf("lock lots: %w", err))
	}
	list, err := collectLots(rows)
	if err != nil {
		return nil, classify("lock lots", fmt.Errorf("lock lots: %w", err))
	}
	return list, nil
}

// List historial de ingresos con filtros; devuelve la página y el total.
func (r *LotRepo) List(ctx context.Context, companyID string, f entity.LotFilter) ([]*entity.Lot, int, error) {
	where := []string{"company_id = $1"}
	args := []any{companyID}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if !f.IncludeVoided {
		where = append(where, "NOT voided")
	}
	if !f.IncludeTransfers {
		where = append(where, "origin_lot_id IS NULL")
	}
	if q := textnorm.Fold(f.Query); q != "" {
		add("search_text LIKE '%%' || $%d || '%%'", q)
	}
	if f.Category != "" {
		add("category = $%d", strings.TrimSpace(f.Category))
	}
	if f.ProductName != "" {
		add("product_name = $%d", strings.TrimSpace(f.ProductName))
	}
	if f.Size != "" {
		add("size = $%d", strings.TrimSpace(f.Size))
	}
	if f.CenterID != nil {
		add("center_id IS NOT DISTINCT FROM $%d", nullable(*f.CenterID))
	}
	if f.From != nil {
		add("ingestion_date >= $%d", entity.TruncateDate(*f.From))
	}
	if f.To != nil {
		add("ingestion_date <= $%d", entity.TruncateDate(*f.To))
	}
	args = append(args, f.Limit, f.Offset)
	query := fmt.Sprintf(`SELECT`+lotColumns+`, count(*) OVER()
		FROM stock_lots WHERE %s
		ORDER BY ingestion_date DESC, created_at DESC, id
		LIMIT $%d OFFSET $%d`, strings.Join(where, " AND "), len(args)-1, len(args))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list lots: %w", err)
	}
	defer rows.Close()
	var (
		list  []*entity.Lot
		total int
	)
	for rows.Next() {
		l, err := scanLot(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan lot: %w", err)
		}
		list = append(list, l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list lots: %w", err)
	}
	return list, total, nil
}

// SumAvailable disponible por variante. Con centerID nil agrega todos los centros.
func (r *LotRepo) SumAvailable(ctx context.Context, companyID string, centerID *string) ([]entity.VariantStock, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if centerID == nil {
		rows, err = r.q.Query(ctx, `
			SELECT category, product_name, size, NULL::uuid, SUM(quantity_available), COUNT(*)
			FROM stock_lots
			WHERE company_id = $1 AND NOT voided AND quantity_available > 0
			GROUP BY category, product_name, size
			ORDER BY category, product_name, size NULLS FIRST`, companyID)
	} else {
		rows, err = r.q.Query(ctx, `
			SELECT category, product_name, size, center_id, SUM(quantity_available), COUNT(*)
			FROM stock_lots
			WHERE company_id = $1 AND center_id IS NOT DISTINCT FROM $2 AND NOT voided AND quantity_available > 0
			GROUP BY category, product_name, size, center_id
			ORDER BY category, product_name, size NULLS FIRST`, companyID, nullable(*centerID))
	}
	if err != nil {
		return nil, fmt.Errorf("sum available: %w", err)
	}
	defer rows.Close()
	var out []entity.VariantStock
	for rows.Next() {
		var (
			s          entity.VariantStock
			size, cent *string
		)
		if err := rows.Scan(&s.Variant.Category, &s.Variant.ProductName, &size, &cent, &s.Available, &s.LotCount); err != nil {
			return nil, fmt.Errorf("scan available: %w", err)
		}
		s.Variant.Size = deref(size)
		s.CenterID = deref(cent)
		out = append(out, s)
	}
	return out, rows.Err()
}
