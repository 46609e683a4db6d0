package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"spazapos/backend/internal/domain"
	"spazapos/backend/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const productColumns = `id, name, COALESCE(barcode,''), category, cost_price, sell_price,
	vat_rate, vat_inclusive, current_stock, target_stock, min_stock, expiry_date,
	archived, created_at, updated_at`

func scanProduct(row interface{ Scan(dest ...any) error }) (*domain.Product, error) {
	var p domain.Product
	var expiry sql.NullTime
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Barcode,
		&p.Category,
		&p.CostPrice,
		&p.SellPrice,
		&p.VATRate,
		&p.VATInclusive,
		&p.CurrentStock,
		&p.TargetStock,
		&p.MinStock,
		&expiry,
		&p.Archived,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	if expiry.Valid {
		e := nowDateUTC(expiry.Time.UTC())
		p.ExpiryDate = &e
	}
	return &p, nil
}

// ---- Catalog ----

// CreateProduct inserts the product row and the opening ledger movement, when
// one is given, inside a single transaction.
func (s *Store) CreateProduct(ctx context.Context, product domain.Product, initial *domain.StockMovement) (*domain.Product, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		INSERT INTO products (
			name, barcode, category, cost_price, sell_price, vat_rate, vat_inclusive,
			current_stock, target_stock, min_stock, expiry_date, archived, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,0,$8,$9,$10,false,now(),now())
		RETURNING `+productColumns+`
	`, product.Name, nullIfEmpty(product.Barcode), product.Category, product.CostPrice,
		product.SellPrice, product.VATRate, product.VATInclusive,
		product.TargetStock, product.MinStock, nullDate(product.ExpiryDate))

	created, err := scanProduct(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicateBarcode
		}
		return nil, err
	}

	if initial != nil {
		m := *initial
		m.ProductID = created.ID
		applied, err := applyMovementTx(ctx, tx, m, false)
		if err != nil {
			return nil, err
		}
		created.CurrentStock = applied.StockAfter
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE products
		SET name = $2, barcode = $3, category = $4, cost_price = $5, sell_price = $6,
			vat_rate = $7, vat_inclusive = $8, target_stock = $9, min_stock = $10,
			expiry_date = $11, updated_at = now()
		WHERE id = $1
		RETURNING `+productColumns+`
	`, product.ID, product.Name, nullIfEmpty(product.Barcode), product.Category,
		product.CostPrice, product.SellPrice, product.VATRate, product.VATInclusive,
		product.TargetStock, product.MinStock, nullDate(product.ExpiryDate))

	updated, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicateBarcode
		}
		return nil, err
	}
	return updated, nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1
	`, id)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return product, nil
}

func (s *Store) GetProductByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE barcode = $1 AND archived = false
	`, barcode)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return product, nil
}

func (s *Store) GetProductsByIDs(ctx context.Context, ids []int64) (map[int64]domain.Product, error) {
	result := make(map[int64]domain.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result[p.ID] = *p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) SearchProducts(ctx context.Context, query string, category domain.Category, includeArchived bool) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR barcode LIKE '%' || $1 || '%')
			AND ($2 = '' OR category = $2)
			AND ($3 OR archived = false)
		ORDER BY name
	`, query, string(category), includeArchived)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) SetProductArchived(ctx context.Context, id int64, archived bool) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE products
		SET archived = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+productColumns+`
	`, id, archived)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return product, nil
}

// ---- Stock ledger ----

func (s *Store) ApplyMovement(ctx context.Context, m domain.StockMovement, allowNegative bool) (*domain.StockMovement, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	created, err := applyMovementTx(ctx, tx, m, allowNegative)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return created, nil
}

// applyMovementTx locks the product row, captures before/after and writes the
// ledger row and the new counter inside the caller's transaction.
func applyMovementTx(ctx context.Context, tx *sql.Tx, m domain.StockMovement, allowNegative bool) (*domain.StockMovement, error) {
	var name string
	var current int
	err := tx.QueryRowContext(ctx, `
		SELECT name, current_stock
		FROM products
		WHERE id = $1
		FOR UPDATE
	`, m.ProductID).Scan(&name, &current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	m.StockBefore = current
	m.StockAfter = current + m.Delta
	if m.StockAfter < 0 && !allowNegative {
		return nil, fmt.Errorf("%w: %s", store.ErrInsufficientStock, name)
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO stock_movements (
			product_id, kind, delta, stock_before, stock_after, user_id, reason, sale_id, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id
	`, m.ProductID, m.Kind, m.Delta, m.StockBefore, m.StockAfter, m.UserID,
		strings.TrimSpace(m.Reason), nullInt64(m.SaleID), m.CreatedAt).Scan(&m.ID)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE products
		SET current_stock = $2, updated_at = now()
		WHERE id = $1
	`, m.ProductID, m.StockAfter)
	if err != nil {
		return nil, err
	}

	created := m
	return &created, nil
}

func (s *Store) ListMovements(ctx context.Context, productID int64, from *time.Time, to *time.Time) ([]domain.StockMovement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, kind, delta, stock_before, stock_after, user_id,
			COALESCE(reason,''), sale_id, created_at
		FROM stock_movements
		WHERE product_id = $1
			AND ($2::timestamptz IS NULL OR created_at >= $2)
			AND ($3::timestamptz IS NULL OR created_at < $3)
		ORDER BY created_at ASC, id ASC
	`, productID, nullTime(from), nullTime(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movements := make([]domain.StockMovement, 0, 32)
	for rows.Next() {
		var m domain.StockMovement
		var saleID sql.NullInt64
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Kind, &m.Delta, &m.StockBefore, &m.StockAfter, &m.UserID, &m.Reason, &saleID, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.CreatedAt = m.CreatedAt.UTC()
		if saleID.Valid {
			id := saleID.Int64
			m.SaleID = &id
		}
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return movements, nil
}

func (s *Store) LowStockProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE archived = false AND current_stock <= min_stock
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 16)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

// ---- Sales ----

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if len(sale.Items) == 0 {
		return nil, store.ErrValidation
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}

	err = pgTx.QueryRowContext(ctx, `
		INSERT INTO sales (
			ref, user_id, subtotal, vat, total, payment_method, cash_tendered,
			card_amount, change_given, voided, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,false,$10)
		RETURNING id
	`, sale.Ref, sale.UserID, sale.Subtotal, sale.VAT, sale.Total, sale.PaymentMethod,
		sale.CashTendered, sale.CardAmount, sale.ChangeGiven, sale.CreatedAt).Scan(&sale.ID)
	if err != nil {
		return nil, err
	}

	for i := range sale.Items {
		item := &sale.Items[i]
		item.SaleID = sale.ID
		err = pgTx.QueryRowContext(ctx, `
			INSERT INTO sale_items (
				sale_id, product_id, product_name, qty, unit_price, vat_rate,
				vat_inclusive, line_total, vat_amount
			)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			RETURNING id
		`, item.SaleID, item.ProductID, item.ProductName, item.Qty, item.UnitPrice,
			item.VATRate, item.VATInclusive, item.LineTotal, item.VATAmount).Scan(&item.ID)
		if err != nil {
			return nil, err
		}

		saleID := sale.ID
		if _, err := applyMovementTx(ctx, pgTx, domain.StockMovement{
			ProductID: item.ProductID,
			Kind:      domain.MovementSale,
			Delta:     -item.Qty,
			UserID:    sale.UserID,
			Reason:    "sale " + sale.Ref,
			SaleID:    &saleID,
			CreatedAt: sale.CreatedAt,
		}, false); err != nil {
			return nil, err
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	created := sale
	return &created, nil
}

const saleColumns = `id, ref, user_id, subtotal, vat, total, payment_method, cash_tendered,
	card_amount, change_given, voided, voided_by, voided_at, COALESCE(void_reason,''), created_at`

func scanSale(row interface{ Scan(dest ...any) error }) (*domain.Sale, error) {
	var sale domain.Sale
	var voidedBy sql.NullInt64
	var voidedAt sql.NullTime
	err := row.Scan(
		&sale.ID,
		&sale.Ref,
		&sale.UserID,
		&sale.Subtotal,
		&sale.VAT,
		&sale.Total,
		&sale.PaymentMethod,
		&sale.CashTendered,
		&sale.CardAmount,
		&sale.ChangeGiven,
		&sale.Voided,
		&voidedBy,
		&voidedAt,
		&sale.VoidReason,
		&sale.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	sale.CreatedAt = sale.CreatedAt.UTC()
	if voidedBy.Valid {
		id := voidedBy.Int64
		sale.VoidedBy = &id
	}
	if voidedAt.Valid {
		at := voidedAt.Time.UTC()
		sale.VoidedAt = &at
	}
	return &sale, nil
}

func (s *Store) loadSaleItems(ctx context.Context, saleIDs []int64) (map[int64][]domain.SaleItem, error) {
	result := make(map[int64][]domain.SaleItem, len(saleIDs))
	if len(saleIDs) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sale_id, product_id, product_name, qty, unit_price, vat_rate,
			vat_inclusive, line_total, vat_amount
		FROM sale_items
		WHERE sale_id = ANY($1)
		ORDER BY id ASC
	`, saleIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.SaleItem
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.ProductName, &item.Qty, &item.UnitPrice, &item.VATRate, &item.VATInclusive, &item.LineTotal, &item.VATAmount); err != nil {
			return nil, err
		}
		result[item.SaleID] = append(result[item.SaleID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) GetSale(ctx context.Context, id int64) (*domain.Sale, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+saleColumns+`
		FROM sales
		WHERE id = $1
	`, id)
	sale, err := scanSale(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	items, err := s.loadSaleItems(ctx, []int64{sale.ID})
	if err != nil {
		return nil, err
	}
	sale.Items = items[sale.ID]
	return sale, nil
}

func (s *Store) VoidSale(ctx context.Context, id int64, userID int64, reason string, at time.Time) (*domain.Sale, error) {
	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	var ref string
	var voided bool
	err = pgTx.QueryRowContext(ctx, `
		SELECT ref, voided
		FROM sales
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&ref, &voided)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if voided {
		return nil, store.ErrAlreadyVoided
	}

	itemRows, err := pgTx.QueryContext(ctx, `
		SELECT product_id, qty
		FROM sale_items
		WHERE sale_id = $1
		ORDER BY id ASC
	`, id)
	if err != nil {
		return nil, err
	}
	type voidLine struct {
		productID int64
		qty       int
	}
	lines := make([]voidLine, 0, 8)
	for itemRows.Next() {
		var line voidLine
		if err := itemRows.Scan(&line.productID, &line.qty); err != nil {
			_ = itemRows.Close()
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := itemRows.Err(); err != nil {
		_ = itemRows.Close()
		return nil, err
	}
	_ = itemRows.Close()

	saleID := id
	for _, line := range lines {
		if _, err := applyMovementTx(ctx, pgTx, domain.StockMovement{
			ProductID: line.productID,
			Kind:      domain.MovementVoidReversal,
			Delta:     line.qty,
			UserID:    userID,
			Reason:    "void " + ref + ": " + reason,
			SaleID:    &saleID,
			CreatedAt: at,
		}, true); err != nil {
			return nil, err
		}
	}

	_, err = pgTx.ExecContext(ctx, `
		UPDATE sales
		SET voided = true, voided_by = $2, voided_at = $3, void_reason = $4
		WHERE id = $1 AND voided = false
	`, id, userID, at, reason)
	if err != nil {
		return nil, err
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	return s.GetSale(ctx, id)
}

func (s *Store) ListSalesByDate(ctx context.Context, day time.Time) ([]domain.Sale, error) {
	start := nowDateUTC(day)
	end := start.Add(24 * time.Hour)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+saleColumns+`
		FROM sales
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at ASC, id ASC
	`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 32)
	ids := make([]int64, 0, 32)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, *sale)
		ids = append(ids, sale.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	items, err := s.loadSaleItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range sales {
		sales[i].Items = items[sales[i].ID]
	}
	return sales, nil
}

// ---- Cash reconciliation ----

const dailyCashColumns = `date, opening_amount, cash_sales, card_sales, withdrawals,
	expected_closing, opened_by, actual_closing, variance, reconciled, reconciled_by,
	reconciled_at, COALESCE(notes,'')`

func scanDailyCash(row interface{ Scan(dest ...any) error }) (*domain.DailyCash, error) {
	var dc domain.DailyCash
	var date time.Time
	var actual decimal.NullDecimal
	var variance decimal.NullDecimal
	var reconciledBy sql.NullInt64
	var reconciledAt sql.NullTime
	err := row.Scan(
		&date,
		&dc.OpeningAmount,
		&dc.CashSales,
		&dc.CardSales,
		&dc.Withdrawals,
		&dc.ExpectedClosing,
		&dc.OpenedBy,
		&actual,
		&variance,
		&dc.Reconciled,
		&reconciledBy,
		&reconciledAt,
		&dc.Notes,
	)
	if err != nil {
		return nil, err
	}
	dc.Date = date.UTC().Format("2006-01-02")
	if actual.Valid {
		a := actual.Decimal
		dc.ActualClosing = &a
	}
	if variance.Valid {
		v := variance.Decimal
		dc.Variance = &v
	}
	if reconciledBy.Valid {
		id := reconciledBy.Int64
		dc.ReconciledBy = &id
	}
	if reconciledAt.Valid {
		at := reconciledAt.Time.UTC()
		dc.ReconciledAt = &at
	}
	return &dc, nil
}

func (s *Store) GetDailyCash(ctx context.Context, date string) (*domain.DailyCash, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+dailyCashColumns+`
		FROM daily_cash
		WHERE date = $1
	`, date)
	dc, err := scanDailyCash(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotOpened
		}
		return nil, err
	}
	return dc, nil
}

func (s *Store) CreateDailyCash(ctx context.Context, dc domain.DailyCash) (*domain.DailyCash, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO daily_cash (
			date, opening_amount, cash_sales, card_sales, withdrawals,
			expected_closing, opened_by, reconciled, notes, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,false,$8,now(),now())
		RETURNING `+dailyCashColumns+`
	`, dc.Date, dc.OpeningAmount, dc.CashSales, dc.CardSales, dc.Withdrawals,
		dc.ExpectedClosing, dc.OpenedBy, dc.Notes)
	created, err := scanDailyCash(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrAlreadyOpened
		}
		return nil, err
	}
	return created, nil
}

func (s *Store) UpdateDailyCash(ctx context.Context, dc domain.DailyCash) (*domain.DailyCash, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE daily_cash
		SET cash_sales = $2, card_sales = $3, withdrawals = $4, expected_closing = $5,
			actual_closing = $6, variance = $7, reconciled = $8, reconciled_by = $9,
			reconciled_at = $10, notes = $11, updated_at = now()
		WHERE date = $1
		RETURNING `+dailyCashColumns+`
	`, dc.Date, dc.CashSales, dc.CardSales, dc.Withdrawals, dc.ExpectedClosing,
		nullDecimal(dc.ActualClosing), nullDecimal(dc.Variance), dc.Reconciled,
		nullInt64(dc.ReconciledBy), nullTime(dc.ReconciledAt), dc.Notes)
	updated, err := scanDailyCash(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotOpened
		}
		return nil, err
	}
	return updated, nil
}

func (s *Store) SalesTotalsByPayment(ctx context.Context, day time.Time) (domain.PaymentTotals, error) {
	start := nowDateUTC(day)
	end := start.Add(24 * time.Hour)

	totals := domain.PaymentTotals{Cash: decimal.Zero, Card: decimal.Zero}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN payment_method = 'cash' THEN total
				WHEN payment_method = 'mixed' THEN cash_tendered ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN payment_method IN ('card','mixed') THEN card_amount ELSE 0 END), 0)
		FROM sales
		WHERE voided = false AND created_at >= $1 AND created_at < $2
	`, start, end).Scan(&totals.Cash, &totals.Card)
	if err != nil {
		return domain.PaymentTotals{}, err
	}
	return totals, nil
}

// ---- Users ----

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrValidation
	}
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrValidation
		}
		return err
	}
	return nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error) {
	var user domain.UserAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password, role, active, created_at
		FROM app_users
		WHERE username = $1
	`, strings.ToLower(strings.TrimSpace(username))).Scan(
		&user.ID, &user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, password, role, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.ID, &user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrValidation
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ---- helpers ----

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nowDateUTC(t time.Time) time.Time {
	return time.Date(t.UTC().Year(), t.UTC().Month(), t.UTC().Day(), 0, 0, 0, 0, time.UTC)
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullDate(val *time.Time) any {
	if val == nil {
		return nil
	}
	return nowDateUTC(*val)
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}

func nullInt64(val *int64) any {
	if val == nil {
		return nil
	}
	return *val
}

func nullDecimal(val *decimal.Decimal) any {
	if val == nil {
		return nil
	}
	return *val
}
