package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"spazapos/backend/internal/cache"
	"spazapos/backend/internal/domain"
	"spazapos/backend/internal/store"
	"spazapos/backend/internal/txref"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

const dateLayout = "2006-01-02"

var hundred = decimal.NewFromInt(100)

// Service is the transaction and stock-ledger engine: product catalog, stock
// ledger, sale commit/void, and daily cash reconciliation. It validates at the
// boundary and returns the typed failures from the store package; it never
// logs.
type Service struct {
	repo           store.Repository
	products       cache.ProductCache
	cacheTTL       time.Duration
	defaultVATRate decimal.Decimal
}

// New wires the engine. defaultVATPercent applies to products created without
// an explicit rate; values outside 0-100 fall back to the standard 15%.
func New(repo store.Repository, products cache.ProductCache, cacheTTL time.Duration, defaultVATPercent int) *Service {
	if products == nil {
		products = cache.NoopProductCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	if defaultVATPercent < 0 || defaultVATPercent > 100 {
		defaultVATPercent = 15
	}
	return &Service{
		repo:           repo,
		products:       products,
		cacheTTL:       cacheTTL,
		defaultVATRate: decimal.NewFromInt(int64(defaultVATPercent)),
	}
}

// ---- Product catalog ----

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Barcode = strings.TrimSpace(req.Barcode)

	if req.Name == "" || len(req.Name) > 100 {
		return domain.Product{}, fmt.Errorf("%w: product name", store.ErrValidation)
	}
	if !domain.ValidCategory(req.Category) {
		return domain.Product{}, fmt.Errorf("%w: unknown category %q", store.ErrValidation, req.Category)
	}
	if !validAmount(req.CostPrice) || !validAmount(req.SellPrice) {
		return domain.Product{}, fmt.Errorf("%w: prices must be non-negative with at most 2 decimal places", store.ErrValidation)
	}
	if req.Barcode != "" && !validBarcode(req.Barcode) {
		return domain.Product{}, fmt.Errorf("%w: barcode must be 8-18 digits", store.ErrValidation)
	}
	if req.InitialStock < 0 || req.TargetStock < 0 || req.MinStock < 0 {
		return domain.Product{}, fmt.Errorf("%w: stock levels must be non-negative", store.ErrValidation)
	}

	vatRate := s.defaultVATRate
	if req.VATRate != nil {
		vatRate = *req.VATRate
	}
	if vatRate.IsNegative() || vatRate.GreaterThan(hundred) {
		return domain.Product{}, fmt.Errorf("%w: vat rate must be between 0 and 100", store.ErrValidation)
	}
	vatInclusive := true
	if req.VATInclusive != nil {
		vatInclusive = *req.VATInclusive
	}

	var expiry *time.Time
	if req.ExpiryDate != "" {
		parsed, err := time.Parse(dateLayout, req.ExpiryDate)
		if err != nil {
			return domain.Product{}, fmt.Errorf("%w: expiry date", store.ErrValidation)
		}
		e := parsed.UTC()
		expiry = &e
	}

	// Initial stock arrives through the ledger so the very first movement row
	// documents where the count came from; the store writes product and
	// movement as one unit.
	var initial *domain.StockMovement
	if req.InitialStock > 0 {
		initial = &domain.StockMovement{
			Kind:      domain.MovementAddition,
			Delta:     req.InitialStock,
			UserID:    actor.UserID,
			Reason:    "initial stock",
			CreatedAt: time.Now().UTC(),
		}
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{
		Name:         req.Name,
		Barcode:      req.Barcode,
		Category:     req.Category,
		CostPrice:    req.CostPrice,
		SellPrice:    req.SellPrice,
		VATRate:      vatRate,
		VATInclusive: vatInclusive,
		TargetStock:  req.TargetStock,
		MinStock:     req.MinStock,
		ExpiryDate:   expiry,
		CreatedAt:    time.Now().UTC(),
	}, initial)
	if err != nil {
		return domain.Product{}, err
	}

	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, req domain.ProductUpdateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	existing, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" || len(name) > 100 {
			return domain.Product{}, fmt.Errorf("%w: product name", store.ErrValidation)
		}
		updated.Name = name
	}
	if req.Barcode != nil {
		barcode := strings.TrimSpace(*req.Barcode)
		if barcode != "" && !validBarcode(barcode) {
			return domain.Product{}, fmt.Errorf("%w: barcode must be 8-18 digits", store.ErrValidation)
		}
		updated.Barcode = barcode
	}
	if req.Category != nil {
		if !domain.ValidCategory(*req.Category) {
			return domain.Product{}, fmt.Errorf("%w: unknown category %q", store.ErrValidation, *req.Category)
		}
		updated.Category = *req.Category
	}
	if req.CostPrice != nil {
		if !validAmount(*req.CostPrice) {
			return domain.Product{}, fmt.Errorf("%w: cost price", store.ErrValidation)
		}
		updated.CostPrice = *req.CostPrice
	}
	if req.SellPrice != nil {
		if !validAmount(*req.SellPrice) {
			return domain.Product{}, fmt.Errorf("%w: sell price", store.ErrValidation)
		}
		updated.SellPrice = *req.SellPrice
	}
	if req.VATRate != nil {
		if req.VATRate.IsNegative() || req.VATRate.GreaterThan(hundred) {
			return domain.Product{}, fmt.Errorf("%w: vat rate must be between 0 and 100", store.ErrValidation)
		}
		updated.VATRate = *req.VATRate
	}
	if req.VATInclusive != nil {
		updated.VATInclusive = *req.VATInclusive
	}
	if req.TargetStock != nil {
		if *req.TargetStock < 0 {
			return domain.Product{}, fmt.Errorf("%w: target stock", store.ErrValidation)
		}
		updated.TargetStock = *req.TargetStock
	}
	if req.MinStock != nil {
		if *req.MinStock < 0 {
			return domain.Product{}, fmt.Errorf("%w: minimum stock", store.ErrValidation)
		}
		updated.MinStock = *req.MinStock
	}
	if req.ExpiryDate != nil {
		if strings.TrimSpace(*req.ExpiryDate) == "" {
			updated.ExpiryDate = nil
		} else {
			parsed, err := time.Parse(dateLayout, *req.ExpiryDate)
			if err != nil {
				return domain.Product{}, fmt.Errorf("%w: expiry date", store.ErrValidation)
			}
			e := parsed.UTC()
			updated.ExpiryDate = &e
		}
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}
	s.invalidateProduct(ctx, existing.Barcode, saved.Barcode)
	return *saved, nil
}

func (s *Service) ArchiveProduct(ctx context.Context, id int64) (domain.Product, error) {
	return s.setArchived(ctx, id, true)
}

func (s *Service) RestoreProduct(ctx context.Context, id int64) (domain.Product, error) {
	return s.setArchived(ctx, id, false)
}

func (s *Service) setArchived(ctx context.Context, id int64, archived bool) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	saved, err := s.repo.SetProductArchived(ctx, id, archived)
	if err != nil {
		return domain.Product{}, err
	}
	s.invalidateProduct(ctx, saved.Barcode)
	return *saved, nil
}

func (s *Service) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *p, nil
}

// FindByBarcode serves the scan hot path at the till; hits go through the
// product cache when one is configured.
func (s *Service) FindByBarcode(ctx context.Context, barcode string) (domain.Product, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return domain.Product{}, fmt.Errorf("%w: barcode", store.ErrValidation)
	}

	if cached, ok, err := s.products.Get(ctx, barcode); err == nil && ok {
		return *cached, nil
	}

	p, err := s.repo.GetProductByBarcode(ctx, barcode)
	if err != nil {
		return domain.Product{}, err
	}
	_ = s.products.Set(ctx, barcode, p, s.cacheTTL)
	return *p, nil
}

func (s *Service) SearchProducts(ctx context.Context, query string, category domain.Category, includeArchived bool) ([]domain.Product, error) {
	if category != "" && !domain.ValidCategory(category) {
		return nil, fmt.Errorf("%w: unknown category %q", store.ErrValidation, category)
	}
	return s.repo.SearchProducts(ctx, strings.TrimSpace(query), category, includeArchived)
}

func (s *Service) invalidateProduct(ctx context.Context, barcodes ...string) {
	for _, code := range barcodes {
		if code != "" {
			_ = s.products.Delete(ctx, code)
		}
	}
}

// ---- Stock ledger ----

func (s *Service) ApplyMovement(ctx context.Context, req domain.MovementRequest) (domain.StockMovement, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.StockMovement{}, fmt.Errorf("authenticated actor required")
	}

	if !domain.ValidMovementKind(req.Kind) {
		return domain.StockMovement{}, fmt.Errorf("%w: unknown movement kind %q", store.ErrValidation, req.Kind)
	}
	if req.Kind == domain.MovementSale || req.Kind == domain.MovementVoidReversal {
		return domain.StockMovement{}, fmt.Errorf("%w: %s movements are written by the transaction engine", store.ErrValidation, req.Kind)
	}
	if req.Delta == 0 {
		return domain.StockMovement{}, fmt.Errorf("%w: delta must be non-zero", store.ErrValidation)
	}
	if req.Kind == domain.MovementAddition && req.Delta < 0 {
		return domain.StockMovement{}, fmt.Errorf("%w: addition delta must be positive", store.ErrValidation)
	}

	allowNegative := req.Kind == domain.MovementAddition ||
		(req.Kind == domain.MovementAdjustment && req.AllowNegative)

	movement, err := s.repo.ApplyMovement(ctx, domain.StockMovement{
		ProductID: req.ProductID,
		Kind:      req.Kind,
		Delta:     req.Delta,
		UserID:    actor.UserID,
		Reason:    strings.TrimSpace(req.Reason),
		CreatedAt: time.Now().UTC(),
	}, allowNegative)
	if err != nil {
		return domain.StockMovement{}, err
	}
	return *movement, nil
}

// StockHistory returns a product's movements oldest-first, optionally bounded
// by dates (inclusive from, exclusive to+1d).
func (s *Service) StockHistory(ctx context.Context, productID int64, fromDate string, toDate string) ([]domain.StockMovement, error) {
	if _, err := s.repo.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	var from, to *time.Time
	if fromDate != "" {
		parsed, err := time.Parse(dateLayout, fromDate)
		if err != nil {
			return nil, fmt.Errorf("%w: from date", store.ErrValidation)
		}
		f := parsed.UTC()
		from = &f
	}
	if toDate != "" {
		parsed, err := time.Parse(dateLayout, toDate)
		if err != nil {
			return nil, fmt.Errorf("%w: to date", store.ErrValidation)
		}
		t := parsed.UTC().Add(24 * time.Hour)
		to = &t
	}

	return s.repo.ListMovements(ctx, productID, from, to)
}

func (s *Service) LowStock(ctx context.Context) ([]domain.Product, error) {
	return s.repo.LowStockProducts(ctx)
}

// ---- Transaction engine ----

// CreateSale commits a cart as one atomic unit: price/VAT snapshots, payment
// validation, sale + items + per-line stock movements. Any short line aborts
// the whole sale.
func (s *Service) CreateSale(ctx context.Context, req domain.SaleRequest) (domain.Sale, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Sale{}, fmt.Errorf("authenticated actor required")
	}

	lines, err := normalizeCart(req.Items)
	if err != nil {
		return domain.Sale{}, err
	}
	if len(lines) == 0 {
		return domain.Sale{}, fmt.Errorf("%w: cart is empty", store.ErrValidation)
	}

	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	products, err := s.repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return domain.Sale{}, err
	}

	subtotal := decimal.Zero
	vatTotal := decimal.Zero
	items := make([]domain.SaleItem, 0, len(lines))
	for _, line := range lines {
		product, exists := products[line.ProductID]
		if !exists || product.Archived {
			return domain.Sale{}, fmt.Errorf("%w: unknown product %d", store.ErrNotFound, line.ProductID)
		}

		net, vat := lineAmounts(product.SellPrice, decimal.NewFromInt(int64(line.Qty)), product.VATRate, product.VATInclusive)
		items = append(items, domain.SaleItem{
			ProductID:    product.ID,
			ProductName:  product.Name,
			Qty:          line.Qty,
			UnitPrice:    product.SellPrice,
			VATRate:      product.VATRate,
			VATInclusive: product.VATInclusive,
			LineTotal:    net,
			VATAmount:    vat,
		})
		subtotal = subtotal.Add(net)
		vatTotal = vatTotal.Add(vat)
	}
	total := subtotal.Add(vatTotal)

	sale := domain.Sale{
		Ref:           txref.New(),
		UserID:        actor.UserID,
		Subtotal:      subtotal,
		VAT:           vatTotal,
		Total:         total,
		PaymentMethod: req.Payment.Method,
		CreatedAt:     time.Now().UTC(),
		Items:         items,
	}
	if err := applyPayment(&sale, req.Payment); err != nil {
		return domain.Sale{}, err
	}

	created, err := s.repo.CreateSale(ctx, sale)
	if err != nil {
		return domain.Sale{}, err
	}

	// Cached scans would otherwise show stale stock until the TTL runs out.
	barcodes := make([]string, 0, len(lines))
	for _, line := range lines {
		barcodes = append(barcodes, products[line.ProductID].Barcode)
	}
	s.invalidateProduct(ctx, barcodes...)

	return *created, nil
}

func (s *Service) VoidSale(ctx context.Context, saleID int64, reason string) (domain.Sale, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.Sale{}, fmt.Errorf("admin role required")
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unspecified"
	}

	voided, err := s.repo.VoidSale(ctx, saleID, actor.UserID, reason, time.Now().UTC())
	if err != nil {
		return domain.Sale{}, err
	}

	ids := make([]int64, 0, len(voided.Items))
	for _, item := range voided.Items {
		ids = append(ids, item.ProductID)
	}
	if restocked, err := s.repo.GetProductsByIDs(ctx, ids); err == nil {
		barcodes := make([]string, 0, len(restocked))
		for _, p := range restocked {
			barcodes = append(barcodes, p.Barcode)
		}
		s.invalidateProduct(ctx, barcodes...)
	}

	return *voided, nil
}

func (s *Service) GetSale(ctx context.Context, saleID int64) (domain.Sale, error) {
	sale, err := s.repo.GetSale(ctx, saleID)
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

func (s *Service) ListSalesByDate(ctx context.Context, date string) ([]domain.Sale, error) {
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("%w: date", store.ErrValidation)
	}
	return s.repo.ListSalesByDate(ctx, day.UTC())
}

// ---- Cash reconciliation ----

func (s *Service) RecordOpening(ctx context.Context, req domain.OpeningRequest) (domain.DailyCash, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.DailyCash{}, fmt.Errorf("authenticated actor required")
	}
	date, err := normalizeDate(req.Date)
	if err != nil {
		return domain.DailyCash{}, err
	}
	if !validAmount(req.Amount) {
		return domain.DailyCash{}, fmt.Errorf("%w: opening amount", store.ErrValidation)
	}

	row, err := s.repo.CreateDailyCash(ctx, domain.DailyCash{
		Date:            date,
		OpeningAmount:   req.Amount,
		CashSales:       decimal.Zero,
		CardSales:       decimal.Zero,
		Withdrawals:     decimal.Zero,
		ExpectedClosing: req.Amount,
		OpenedBy:        actor.UserID,
	})
	if err != nil {
		return domain.DailyCash{}, err
	}
	return *row, nil
}

func (s *Service) RecordWithdrawal(ctx context.Context, req domain.WithdrawalRequest) (domain.DailyCash, error) {
	if _, ok := ActorFromContext(ctx); !ok {
		return domain.DailyCash{}, fmt.Errorf("authenticated actor required")
	}
	date, err := normalizeDate(req.Date)
	if err != nil {
		return domain.DailyCash{}, err
	}
	if !validAmount(req.Amount) || req.Amount.IsZero() {
		return domain.DailyCash{}, fmt.Errorf("%w: withdrawal amount", store.ErrValidation)
	}

	row, err := s.refreshTotals(ctx, date)
	if err != nil {
		return domain.DailyCash{}, err
	}

	row.Withdrawals = row.Withdrawals.Add(req.Amount)
	row.ExpectedClosing = row.OpeningAmount.Add(row.CashSales).Sub(row.Withdrawals)
	saved, err := s.repo.UpdateDailyCash(ctx, row)
	if err != nil {
		return domain.DailyCash{}, err
	}
	return *saved, nil
}

// ComputeExpected refreshes the day's sales totals and returns
// opening + cash takings - withdrawals.
func (s *Service) ComputeExpected(ctx context.Context, date string) (decimal.Decimal, error) {
	date, err := normalizeDate(date)
	if err != nil {
		return decimal.Zero, err
	}
	row, err := s.refreshTotals(ctx, date)
	if err != nil {
		return decimal.Zero, err
	}
	return row.ExpectedClosing, nil
}

// Reconcile records the counted cash against the expected figure. Running it
// again for the same date overwrites the previous count; this is the
// correction workflow, and the underlying sales are never touched.
func (s *Service) Reconcile(ctx context.Context, req domain.ReconcileRequest) (domain.DailyCash, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.DailyCash{}, fmt.Errorf("authenticated actor required")
	}
	date, err := normalizeDate(req.Date)
	if err != nil {
		return domain.DailyCash{}, err
	}
	if !validAmount(req.ActualAmount) {
		return domain.DailyCash{}, fmt.Errorf("%w: actual amount", store.ErrValidation)
	}

	row, err := s.refreshTotals(ctx, date)
	if err != nil {
		return domain.DailyCash{}, err
	}

	actual := req.ActualAmount
	variance := actual.Sub(row.ExpectedClosing)
	now := time.Now().UTC()
	userID := actor.UserID

	row.ActualClosing = &actual
	row.Variance = &variance
	row.Reconciled = true
	row.ReconciledBy = &userID
	row.ReconciledAt = &now
	row.Notes = strings.TrimSpace(req.Notes)

	saved, err := s.repo.UpdateDailyCash(ctx, row)
	if err != nil {
		return domain.DailyCash{}, err
	}
	return *saved, nil
}

func (s *Service) CashSummary(ctx context.Context, date string) (domain.DailyCash, error) {
	date, err := normalizeDate(date)
	if err != nil {
		return domain.DailyCash{}, err
	}
	return s.refreshTotals(ctx, date)
}

// refreshTotals re-aggregates the date's committed sales into the DailyCash
// row so the expected figure always reflects the ledger, no matter how many
// sales or voids happened since the till was opened.
func (s *Service) refreshTotals(ctx context.Context, date string) (domain.DailyCash, error) {
	row, err := s.repo.GetDailyCash(ctx, date)
	if err != nil {
		return domain.DailyCash{}, err
	}

	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return domain.DailyCash{}, fmt.Errorf("%w: date", store.ErrValidation)
	}
	totals, err := s.repo.SalesTotalsByPayment(ctx, day.UTC())
	if err != nil {
		return domain.DailyCash{}, err
	}

	row.CashSales = totals.Cash
	row.CardSales = totals.Card
	row.ExpectedClosing = row.OpeningAmount.Add(row.CashSales).Sub(row.Withdrawals)

	saved, err := s.repo.UpdateDailyCash(ctx, *row)
	if err != nil {
		return domain.DailyCash{}, err
	}
	return *saved, nil
}

// ---- helpers ----

// lineAmounts splits a line into its VAT-exclusive total and VAT component.
// A VAT-inclusive unit price already contains the tax, so the component is
// gross*rate/(100+rate); an exclusive price has it added on top.
func lineAmounts(unitPrice decimal.Decimal, qty decimal.Decimal, rate decimal.Decimal, inclusive bool) (net decimal.Decimal, vat decimal.Decimal) {
	gross := unitPrice.Mul(qty)
	if rate.IsZero() {
		return gross, decimal.Zero
	}
	if inclusive {
		vat = gross.Mul(rate).Div(hundred.Add(rate)).Round(2)
		return gross.Sub(vat), vat
	}
	vat = gross.Mul(rate).Div(hundred).Round(2)
	return gross, vat
}

// applyPayment validates the tender against the sale total and fills the
// tender fields. Mixed tenders must sum exactly to the total; change is only
// ever given on pure cash sales.
func applyPayment(sale *domain.Sale, payment domain.PaymentSpec) error {
	if payment.CashTendered.IsNegative() || payment.CardAmount.IsNegative() {
		return fmt.Errorf("%w: negative tender amount", store.ErrValidation)
	}

	switch payment.Method {
	case domain.PaymentCash:
		if payment.CashTendered.LessThan(sale.Total) {
			return fmt.Errorf("%w: cash tendered %s is less than total %s", store.ErrValidation, payment.CashTendered, sale.Total)
		}
		sale.CashTendered = payment.CashTendered
		sale.CardAmount = decimal.Zero
		sale.ChangeGiven = payment.CashTendered.Sub(sale.Total)
	case domain.PaymentCard:
		if !payment.CardAmount.Equal(sale.Total) {
			return fmt.Errorf("%w: card amount must equal total %s", store.ErrValidation, sale.Total)
		}
		sale.CashTendered = decimal.Zero
		sale.CardAmount = payment.CardAmount
		sale.ChangeGiven = decimal.Zero
	case domain.PaymentMixed:
		if !payment.CashTendered.Add(payment.CardAmount).Equal(sale.Total) {
			return fmt.Errorf("%w: mixed payment must sum exactly to total %s", store.ErrValidation, sale.Total)
		}
		sale.CashTendered = payment.CashTendered
		sale.CardAmount = payment.CardAmount
		sale.ChangeGiven = decimal.Zero
	default:
		return fmt.Errorf("%w: unknown payment method %q", store.ErrValidation, payment.Method)
	}
	return nil
}

// normalizeCart merges duplicate product lines. A malformed line fails the
// whole cart rather than being skipped.
func normalizeCart(items []domain.CartItem) ([]domain.CartItem, error) {
	merged := make(map[int64]int, len(items))
	order := make([]int64, 0, len(items))
	for _, item := range items {
		if item.ProductID < 1 {
			return nil, fmt.Errorf("%w: product id", store.ErrValidation)
		}
		if item.Qty < 1 {
			return nil, fmt.Errorf("%w: quantity must be at least 1 for product %d", store.ErrValidation, item.ProductID)
		}
		if _, seen := merged[item.ProductID]; !seen {
			order = append(order, item.ProductID)
		}
		merged[item.ProductID] += item.Qty
	}

	out := make([]domain.CartItem, 0, len(order))
	for _, id := range order {
		out = append(out, domain.CartItem{ProductID: id, Qty: merged[id]})
	}
	return out, nil
}

func normalizeDate(date string) (string, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return time.Now().UTC().Format(dateLayout), nil
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return "", fmt.Errorf("%w: date must be YYYY-MM-DD", store.ErrValidation)
	}
	return date, nil
}

// validAmount accepts non-negative values with at most 2 decimal places.
func validAmount(d decimal.Decimal) bool {
	return !d.IsNegative() && d.Equal(d.Round(2))
}

func validBarcode(barcode string) bool {
	if len(barcode) < 8 || len(barcode) > 18 {
		return false
	}
	for _, r := range barcode {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
