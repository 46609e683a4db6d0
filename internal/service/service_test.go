package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"spazapos/backend/internal/cache"
	"spazapos/backend/internal/domain"
	"spazapos/backend/internal/store"
	"spazapos/backend/internal/store/memory"
)

func newTestService() *Service {
	return New(memory.New(), cache.NoopProductCache{}, 5*time.Second, 15)
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{UserID: 1, Username: "admin", Role: domain.RoleAdmin})
}

func cashierCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{UserID: 2, Username: "cashier", Role: domain.RoleCashier})
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func mustCreateProduct(t *testing.T, svc *Service, name, price, vatRate string, inclusive bool, stock int) domain.Product {
	t.Helper()
	rate := decimal.RequireFromString(vatRate)
	p, err := svc.CreateProduct(adminCtx(), domain.ProductCreateRequest{
		Name:         name,
		Category:     domain.CategoryFood,
		CostPrice:    decimal.RequireFromString("1.00"),
		SellPrice:    decimal.RequireFromString(price),
		VATRate:      &rate,
		VATInclusive: &inclusive,
		InitialStock: stock,
		TargetStock:  stock,
		MinStock:     2,
	})
	if err != nil {
		t.Fatalf("create product %s: %v", name, err)
	}
	return p
}

// ---- Catalog ----

func TestCreateProductRequiresAdmin(t *testing.T) {
	svc := newTestService()
	_, err := svc.CreateProduct(cashierCtx(), domain.ProductCreateRequest{
		Name:      "Bread",
		Category:  domain.CategoryFood,
		SellPrice: dec(t, "15.00"),
	})
	if err == nil {
		t.Fatalf("expected cashier create to be rejected")
	}
}

func TestCreateProductWritesInitialStockMovement(t *testing.T) {
	svc := newTestService()
	p := mustCreateProduct(t, svc, "White Bread 700g", "15.00", "15", true, 10)

	if p.CurrentStock != 10 {
		t.Fatalf("expected current stock 10, got %d", p.CurrentStock)
	}
	history, err := svc.StockHistory(adminCtx(), p.ID, "", "")
	if err != nil {
		t.Fatalf("stock history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 movement, got %d", len(history))
	}
	m := history[0]
	if m.Kind != domain.MovementAddition || m.Delta != 10 || m.StockBefore != 0 || m.StockAfter != 10 {
		t.Fatalf("unexpected initial movement: %+v", m)
	}
}

func TestCreateProductValidation(t *testing.T) {
	svc := newTestService()
	cases := []struct {
		name string
		req  domain.ProductCreateRequest
	}{
		{"empty name", domain.ProductCreateRequest{Category: domain.CategoryFood, SellPrice: dec(t, "1.00")}},
		{"bad category", domain.ProductCreateRequest{Name: "X", Category: "Electronics", SellPrice: dec(t, "1.00")}},
		{"negative price", domain.ProductCreateRequest{Name: "X", Category: domain.CategoryFood, SellPrice: dec(t, "-1.00")}},
		{"sub-cent price", domain.ProductCreateRequest{Name: "X", Category: domain.CategoryFood, SellPrice: dec(t, "1.005")}},
		{"short barcode", domain.ProductCreateRequest{Name: "X", Category: domain.CategoryFood, SellPrice: dec(t, "1.00"), Barcode: "1234"}},
		{"alpha barcode", domain.ProductCreateRequest{Name: "X", Category: domain.CategoryFood, SellPrice: dec(t, "1.00"), Barcode: "12345678AB"}},
		{"bad expiry", domain.ProductCreateRequest{Name: "X", Category: domain.CategoryFood, SellPrice: dec(t, "1.00"), ExpiryDate: "31-12-2026"}},
	}
	for _, tc := range cases {
		if _, err := svc.CreateProduct(adminCtx(), tc.req); !errors.Is(err, store.ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestCreateProductAppliesDefaultVATRate(t *testing.T) {
	svc := newTestService()
	p, err := svc.CreateProduct(adminCtx(), domain.ProductCreateRequest{
		Name:      "Matches",
		Category:  domain.CategoryOther,
		SellPrice: dec(t, "3.50"),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !p.VATRate.Equal(dec(t, "15")) || !p.VATInclusive {
		t.Fatalf("expected default 15%% inclusive, got rate %s inclusive %v", p.VATRate, p.VATInclusive)
	}
}

func TestCreateProductRejectsDuplicateBarcode(t *testing.T) {
	svc := newTestService()
	req := domain.ProductCreateRequest{
		Name:      "Cola 330ml",
		Barcode:   "5449000000996",
		Category:  domain.CategoryCooldrinks,
		SellPrice: dec(t, "12.00"),
	}
	if _, err := svc.CreateProduct(adminCtx(), req); err != nil {
		t.Fatalf("first create: %v", err)
	}
	req.Name = "Cola Copy"
	if _, err := svc.CreateProduct(adminCtx(), req); !errors.Is(err, store.ErrDuplicateBarcode) {
		t.Fatalf("expected duplicate barcode error, got %v", err)
	}
}

func TestArchivedProductNotSellableButRestorable(t *testing.T) {
	svc := newTestService()
	p := mustCreateProduct(t, svc, "Soap Bar", "13.50", "15", true, 5)

	if _, err := svc.ArchiveProduct(adminCtx(), p.ID); err != nil {
		t.Fatalf("archive: %v", err)
	}
	_, err := svc.CreateSale(cashierCtx(), domain.SaleRequest{
		Items:   []domain.CartItem{{ProductID: p.ID, Qty: 1}},
		Payment: domain.PaymentSpec{Method: domain.PaymentCash, CashTendered: dec(t, "20.00")},
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected archived product to be unsellable, got %v", err)
	}

	if _, err := svc.RestoreProduct(adminCtx(), p.ID); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if _, err := svc.CreateSale(cashierCtx(), domain.SaleRequest{
		Items:   []domain.CartItem{{ProductID: p.ID, Qty: 1}},
		Payment: domain.PaymentSpec{Method: domain.PaymentCash, CashTendered: dec(t, "20.00")},
	}); err != nil {
		t.Fatalf("sale after restore: %v", err)
	}
}

func TestSearchProductsOrdersByName(t *testing.T) {
	svc := newTestService()
	for _, p := range []struct {
		name     string
		category domain.Category
	}{
		{"Zam-Buk Balm", domain.CategoryFood},
		{"Apricot Sweets 100g", domain.CategorySweets},
		{"Marie Biscuits", domain.CategoryHousehold},
	} {
		if _, err := svc.CreateProduct(adminCtx(), domain.ProductCreateRequest{
			Name:      p.name,
			Category:  p.category,
			SellPrice: dec(t, "10.00"),
		}); err != nil {
			t.Fatalf("create %s: %v", p.name, err)
		}
	}

	products, err := svc.SearchProducts(cashierCtx(), "", "", false)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	want := []string{"Apricot Sweets 100g", "Marie Biscuits", "Zam-Buk Balm"}
	if len(products) != len(want) {
		t.Fatalf("expected %d products, got %d", len(want), len(products))
	}
	for i, name := range want {
		if products[i].Name != name {
			t.Fatalf("position %d: got %q, want %q", i, products[i].Name, name)
		}
	}
}

// ---- VAT math ----

func TestSaleInclusiveVATSplit(t *testing.T) {
	svc := newTestService()
	// 15.00 gross at 15% inclusive: two units → 30.00 gross,
	// VAT 30*15/115 = 3.91, net 26.09.
	p := mustCreateProduct(t, svc, "White Bread 700g", "15.00", "15", true, 10)

	sale, err := svc.CreateSale(cashierCtx(), domain.SaleRequest{
		Items:   []domain.CartItem{{ProductID: p.ID, Qty: 2}},
		Payment: domain.PaymentSpec{Method: domain.PaymentCash, CashTendered: dec(t, "50.00")},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if !sale.Subtotal.Equal(dec(t, "26.09")) {
		t.Fatalf("subtotal: got %s, want 26.09", sale.Subtotal)
	}
	if !sale.VAT.Equal(dec(t, "3.91")) {
		t.Fatalf("vat: got %s, want 3.91", sale.VAT)
	}
	if !sale.Total.Equal(dec(t, "30.00")) {
		t.Fatalf("total: got %s, want 30.00", sale.Total)
	}
	if !sale.ChangeGiven.Equal(dec(t, "20.00")) {
		t.Fatalf("change: got %s, want 20.00", sale.ChangeGiven)
	}
	if len(sale.Items) != 1 || !sale.Items[0].LineTotal.Equal(sale.Subtotal) {
		t.Fatalf("line totals must sum to subtotal: %+v", sale.Items)
	}
}

func TestSaleExclusiveVATAddedOnTop(t *testing.T) {
	svc := newTestService()
	// 10.00 net at 15% exclusive → VAT 1.50, total 11.50.
	p := mustCreateProduct(t, svc, "Airtime Voucher", "10.00", "15", false, 10)

	sale, err := svc.CreateSale(cashierCtx(), domain.SaleRequest{
		Items:   []domain.CartItem{{ProductID: p.ID, Qty: 1}},
		Payment: domain.PaymentSpec{Method: domain.PaymentCard, CardAmount: dec(t, "11.50")},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if !sale.Subtotal.Equal(dec(t, "10.00")) || !sale.VAT.Equal(dec(t, "1.50")) || !sale.Total.Equal(dec(t, "11.50")) {
		t.Fatalf("got subtotal %s vat %s total %s", sale.Subtotal, sale.VAT, sale.Total)
	}
}

func TestSaleZeroRatedProduct(t *testing.T) {
	svc := newTestService()
	// Maize meal is zero-rated: no VAT either way.
	p := mustCreateProduct(t, svc, "Maize Meal 2.5kg", "36.00", "0", true, 10)

	sale, err := svc.CreateSale(cashierCtx(), domain.SaleRequest{
		Items:   []domain.CartItem{{ProductID: p.ID, Qty: 1}},
		Payment: domain.PaymentSpec{Method: domain.PaymentCash, CashTendered: dec(t, "36.00")},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if !sale.VAT.IsZero() || !sale.Total.Equal(dec(t, "36.00")) {
		t.Fatalf("got vat %s total %s", sale.VAT, sale.Total)
	}
}

// ---- Payments ----

func TestPaymentValidation(t *testing.T) {
	svc := newTestService()
	p := mustCreateProduct(t, svc, "Cola 330ml Can", "12.00", "15", true, 50)
	line := []domain.CartItem{{ProductID: p.ID, Qty: 1}} // total 12.00

	cases := []struct {
		name    string
		payment domain.PaymentSpec
	}{
		{"cash short", domain.PaymentSpec{Method: domain.PaymentCash, CashTendered: dec(t, "10.00")}},
		{"card mismatch", domain.PaymentSpec{Method: domain.PaymentCard, CardAmount: dec(t, "11.00")}},
		{"mixed short", domain.PaymentSpec{Method: domain.PaymentMixed, CashTendered: dec(t, "5.00"), CardAmount: dec(t, "5.00")}},
		{"mixed over", domain.PaymentSpec{Method: domain.PaymentMixed, CashTendered: dec(t, "10.00"), CardAmount: dec(t, "5.00")}},
		{"negative tender", domain.PaymentSpec{Method: domain.PaymentCash, CashTendered: dec(t, "-5.00")}},
		{"unknown method", domain.PaymentSpec{Method: "eft"}},
	}
	for _, tc := range cases {
		_, err := svc.CreateSale(cashierCtx(), domain.SaleRequest{Items: line, Payment: tc.payment})
		if !errors.Is(err, store.ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestMixedPaymentExactSumGivesNoChange(t *testing.T) {
	svc := newTestService()
	p := mustCreateProduct(t, svc, "Cola 330ml Can", "12.00", "15", true, 50)

	sale, err := svc.CreateSale(cashierCtx(), domain.SaleRequest{
		Items:   []domain.CartItem{{ProductID: p.ID, Qty: 2}}, // total 24.00
		Payment: domain.PaymentSpec{Method: domain.PaymentMixed, CashTendered: dec(t, "14.00"), CardAmount: dec(t, "10.00")},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if !sale.ChangeGiven.IsZero() {
		t.Fatalf("mixed payment must not give change, got %s", sale.ChangeGiven)
	}
	if !sale.CashTendered.Equal(dec(t, "14.00")) || !sale.CardAmount.Equal(dec(t, "10.00")) {
		t.Fatalf("tender fields not recorded: %+v", sale)
	}
}

// ---- Atomicity ----

func TestMultiLineSaleIsAtomicOnInsufficientStock(t *testing.T) {
	svc := newTestService()
	plenty := mustCreateProduct(t, svc, "Milk 1L", "18.50", "15", true, 20)
	scarce := mustCreateProduct(t, svc, "Candles 6 Pack", "16.50", "15", true, 1)

	_, err := svc.CreateSale(cashierCtx(), domain.SaleRequest{
		Items: []domain.CartItem{
			{ProductID: plenty.ID, Qty: 2},
			{ProductID: scarce.ID, Qty: 3},
		},
		Payment: domain.PaymentSpec{Method: domain.PaymentCash, CashTendered: dec(t, "200.00")},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	// The first line must not have been decremented.
	got, err := svc.GetProduct(cashierCtx(), plenty.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if got.CurrentStock != 20 {
		t.Fatalf("aborted sale leaked a decrement: stock %d", got.CurrentStock)
	}
	history, err := svc.StockHistory(cashierCtx(), plenty.ID, "", "")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 { // only the initial addition
		t.Fatalf("aborted sale wrote movements: %d", len(history))
	}
}

func TestCartMergesDuplicateLines(t *testing.T) {
	svc := newTestService()
	p := mustCreateProduct(t, svc, "Chocolate Bar 80g", "14.99", "15", true, 10)

	sale, err := svc.CreateSale(cashierCtx(), domain.SaleRequest{
		Items: []domain.CartItem{
			{ProductID: p.ID, Qty: 1},
			{ProductID: p.ID, Qty: 2},
		},
		Payment: domain.PaymentSpec{Method: domain.PaymentCash, CashTendered: dec(t, "50.00")},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if len(sale.Items) != 1 || sale.Items[0].Qty != 3 {
		t.Fatalf("expected one merged line of qty 3, got %+v", sale.Items)
	}
}

func TestEmptyCartRejected(t *testing.T) {
	svc := newTestService()
	_, err := svc.CreateSale(cashierCtx(), domain.SaleRequest{
		Payment: domain.PaymentSpec{Method: domain.PaymentCash},
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for empty cart, got %v", err)
	}
}

func TestMalformedCartLineFailsWholeCart(t *testing.T) {
	svc := newTestService()
	p := mustCreateProduct(t, svc, "Chocolate Bar 80g", "14.99", "15", true, 10)

	cases := []struct {
		name  string
		items []domain.CartItem
	}{
		{"zero qty", []domain.CartItem{{ProductID: p.ID, Qty: 2}, {ProductID: p.ID, Qty: 0}}},
		{"negative qty", []domain.CartItem{{ProductID: p.ID, Qty: -5}, {ProductID: p.ID, Qty: 2}}},
		{"bad product id", []domain.CartItem{{ProductID: 0, Qty: 1}}},
	}
	for _, tc := range cases {
		_, err := svc.CreateSale(cashierCtx(), domain.SaleRequest{
			Items:   tc.items,
			Payment: domain.PaymentSpec{Method: domain.PaymentCash, CashTendered: dec(t, "100.00")},
		})
		if !errors.Is(err, store.ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}

	// No partial honoring: nothing was sold.
	got, err := svc.GetProduct(cashierCtx(), p.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if got.CurrentStock != 10 {
		t.Fatalf("rejected cart moved stock: %d", got.CurrentStock)
	}
}

type recordingCache struct {
	deleted []string
}

func (c *recordingCache) Get(_ context.Context, _ string) (*domain.Product, bool, error) {
	return nil, false, nil
}

func (c *recordingCache) Set(_ context.Context, _ string, _ *domain.Product, _ time.Duration) error {
	return nil
}

func (c *recordingCache) Delete(_ context.Context, barcode string) error {
	c.deleted = append(c.deleted, barcode)
	return nil
}

func TestSaleAndVoidInvalidateBarcodeCache(t *testing.T) {
	rc := &recordingCache{}
	svc := New(memory.New(), rc, time.Second, 15)

	rate := decimal.RequireFromString("15")
	inclusive := true
	p, err := svc.CreateProduct(adminCtx(), domain.ProductCreateRequest{
		Name:         "Full Cream Milk 1L",
		Barcode:      "6001240100123",
		Category:     domain.CategoryFood,
		SellPrice:    dec(t, "18.50"),
		VATRate:      &rate,
		VATInclusive: &inclusive,
		InitialStock: 5,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	sale, err := svc.CreateSale(cashierCtx(), domain.SaleRequest{
		Items:   []domain.CartItem{{ProductID: p.ID, Qty: 1}},
		Payment: domain.PaymentSpec{Method: domain.PaymentCash, CashTendered: dec(t, "20.00")},
	})
	if err != nil {
		t.Fatalf("sale: %v", err)
	}

	countDeleted := func() int {
		n := 0
		for _, code := range rc.deleted {
			if code == p.Barcode {
				n++
			}
		}
		return n
	}
	if countDeleted() == 0 {
		t.Fatalf("sale did not invalidate the cached barcode")
	}

	before := countDeleted()
	if _, err := svc.VoidSale(adminCtx(), sale.ID, "misring"); err != nil {
		t.Fatalf("void: %v", err)
	}
	if countDeleted() <= before {
		t.Fatalf("void did not invalidate the cached barcode")
	}
}

// ---- Void ----

func TestVoidSaleRestoresStockAndIsAdminOnly(t *testing.T) {
	svc := newTestService()
	p := mustCreateProduct(t, svc, "Orange Squash 2L", "28.50", "15", true, 10)

	sale, err := svc.CreateSale(cashierCtx(), domain.SaleRequest{
		Items:   []domain.CartItem{{ProductID: p.ID, Qty: 4}},
		Payment: domain.PaymentSpec{Method: domain.PaymentCash, CashTendered: dec(t, "120.00")},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}

	if _, err := svc.VoidSale(cashierCtx(), sale.ID, "misring"); err == nil {
		t.Fatalf("expected cashier void to be rejected")
	}

	voided, err := svc.VoidSale(adminCtx(), sale.ID, "misring")
	if err != nil {
		t.Fatalf("void: %v", err)
	}
	if !voided.Voided || voided.VoidReason != "misring" {
		t.Fatalf("void not recorded: %+v", voided)
	}

	got, err := svc.GetProduct(adminCtx(), p.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if got.CurrentStock != 10 {
		t.Fatalf("void must restore stock: got %d, want 10", got.CurrentStock)
	}

	if _, err := svc.VoidSale(adminCtx(), sale.ID, "again"); !errors.Is(err, store.ErrAlreadyVoided) {
		t.Fatalf("expected already-voided error, got %v", err)
	}
}

// ---- Ledger ----

func TestMovementChainAndNegativeStockRules(t *testing.T) {
	svc := newTestService()
	p := mustCreateProduct(t, svc, "Sunlight Soap Bar", "13.50", "15", true, 5)
	ctx := adminCtx()

	if _, err := svc.ApplyMovement(ctx, domain.MovementRequest{
		ProductID: p.ID, Kind: domain.MovementDamage, Delta: -2, Reason: "dropped box",
	}); err != nil {
		t.Fatalf("damage movement: %v", err)
	}

	// Damage below zero is refused even though adjustment could force it.
	if _, err := svc.ApplyMovement(ctx, domain.MovementRequest{
		ProductID: p.ID, Kind: domain.MovementTheft, Delta: -10,
	}); !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	// Adjustment with the override may drive stock negative.
	if _, err := svc.ApplyMovement(ctx, domain.MovementRequest{
		ProductID: p.ID, Kind: domain.MovementAdjustment, Delta: -10, Reason: "count correction", AllowNegative: true,
	}); err != nil {
		t.Fatalf("forced adjustment: %v", err)
	}

	history, err := svc.StockHistory(ctx, p.ID, "", "")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 movements, got %d", len(history))
	}
	for i := 1; i < len(history); i++ {
		if history[i].StockBefore != history[i-1].StockAfter {
			t.Fatalf("broken before/after chain at %d: %+v", i, history)
		}
	}
	if last := history[len(history)-1]; last.StockAfter != -7 {
		t.Fatalf("expected final stock -7, got %d", last.StockAfter)
	}
}

func TestManualSaleMovementsRejected(t *testing.T) {
	svc := newTestService()
	p := mustCreateProduct(t, svc, "Milk 1L", "18.50", "15", true, 5)

	for _, kind := range []domain.MovementKind{domain.MovementSale, domain.MovementVoidReversal} {
		_, err := svc.ApplyMovement(adminCtx(), domain.MovementRequest{ProductID: p.ID, Kind: kind, Delta: -1})
		if !errors.Is(err, store.ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", kind, err)
		}
	}
	if _, err := svc.ApplyMovement(adminCtx(), domain.MovementRequest{ProductID: p.ID, Kind: domain.MovementAddition, Delta: -1}); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("negative addition must be rejected")
	}
	if _, err := svc.ApplyMovement(adminCtx(), domain.MovementRequest{ProductID: p.ID, Kind: domain.MovementAdjustment, Delta: 0}); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("zero delta must be rejected")
	}
}

func TestLowStockListsProductsAtOrBelowMinimum(t *testing.T) {
	svc := newTestService()
	low := mustCreateProduct(t, svc, "Candles 6 Pack", "16.50", "15", true, 2)
	mustCreateProduct(t, svc, "Cola 330ml Can", "12.00", "15", true, 48)

	products, err := svc.LowStock(cashierCtx())
	if err != nil {
		t.Fatalf("low stock: %v", err)
	}
	if len(products) != 1 || products[0].ID != low.ID {
		t.Fatalf("expected only %q low, got %+v", low.Name, products)
	}
}

// ---- Cash reconciliation ----

func TestCashDayLifecycle(t *testing.T) {
	svc := newTestService()
	today := time.Now().UTC().Format("2006-01-02")

	if _, err := svc.RecordOpening(cashierCtx(), domain.OpeningRequest{Amount: dec(t, "100.00")}); err != nil {
		t.Fatalf("open till: %v", err)
	}
	if _, err := svc.RecordOpening(cashierCtx(), domain.OpeningRequest{Amount: dec(t, "50.00")}); !errors.Is(err, store.ErrAlreadyOpened) {
		t.Fatalf("expected already-opened error, got %v", err)
	}

	p := mustCreateProduct(t, svc, "Maize Meal 2.5kg", "50.00", "0", true, 20)
	if _, err := svc.CreateSale(cashierCtx(), domain.SaleRequest{
		Items:   []domain.CartItem{{ProductID: p.ID, Qty: 5}}, // 250.00 cash
		Payment: domain.PaymentSpec{Method: domain.PaymentCash, CashTendered: dec(t, "250.00")},
	}); err != nil {
		t.Fatalf("cash sale: %v", err)
	}

	if _, err := svc.RecordWithdrawal(cashierCtx(), domain.WithdrawalRequest{Amount: dec(t, "30.00"), Reason: "airtime float"}); err != nil {
		t.Fatalf("withdrawal: %v", err)
	}

	expected, err := svc.ComputeExpected(cashierCtx(), today)
	if err != nil {
		t.Fatalf("expected: %v", err)
	}
	if !expected.Equal(dec(t, "320.00")) { // 100 + 250 - 30
		t.Fatalf("expected closing: got %s, want 320.00", expected)
	}

	row, err := svc.Reconcile(adminCtx(), domain.ReconcileRequest{ActualAmount: dec(t, "310.00"), Notes: "short"})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if row.Variance == nil || !row.Variance.Equal(dec(t, "-10.00")) {
		t.Fatalf("variance: got %v, want -10.00", row.Variance)
	}
	if !row.Reconciled || row.ReconciledBy == nil || *row.ReconciledBy != 1 {
		t.Fatalf("reconciliation attribution missing: %+v", row)
	}

	// Re-counting overwrites the previous figure.
	row, err = svc.Reconcile(adminCtx(), domain.ReconcileRequest{ActualAmount: dec(t, "320.00"), Notes: "recount"})
	if err != nil {
		t.Fatalf("re-reconcile: %v", err)
	}
	if row.Variance == nil || !row.Variance.IsZero() {
		t.Fatalf("recount variance: got %v, want 0", row.Variance)
	}
}

func TestCashOperationsRequireOpenTill(t *testing.T) {
	svc := newTestService()
	if _, err := svc.RecordWithdrawal(cashierCtx(), domain.WithdrawalRequest{Amount: dec(t, "10.00")}); !errors.Is(err, store.ErrNotOpened) {
		t.Fatalf("withdrawal: expected not-opened, got %v", err)
	}
	if _, err := svc.ComputeExpected(cashierCtx(), ""); !errors.Is(err, store.ErrNotOpened) {
		t.Fatalf("expected: expected not-opened, got %v", err)
	}
	if _, err := svc.Reconcile(adminCtx(), domain.ReconcileRequest{ActualAmount: dec(t, "1.00")}); !errors.Is(err, store.ErrNotOpened) {
		t.Fatalf("reconcile: expected not-opened, got %v", err)
	}
}

func TestVoidedSalesExcludedFromCashTotals(t *testing.T) {
	svc := newTestService()
	if _, err := svc.RecordOpening(cashierCtx(), domain.OpeningRequest{Amount: dec(t, "100.00")}); err != nil {
		t.Fatalf("open till: %v", err)
	}

	p := mustCreateProduct(t, svc, "Cola 330ml Can", "12.00", "0", true, 50)
	sale, err := svc.CreateSale(cashierCtx(), domain.SaleRequest{
		Items:   []domain.CartItem{{ProductID: p.ID, Qty: 1}},
		Payment: domain.PaymentSpec{Method: domain.PaymentCash, CashTendered: dec(t, "12.00")},
	})
	if err != nil {
		t.Fatalf("sale: %v", err)
	}
	if _, err := svc.VoidSale(adminCtx(), sale.ID, "test void"); err != nil {
		t.Fatalf("void: %v", err)
	}

	expected, err := svc.ComputeExpected(cashierCtx(), "")
	if err != nil {
		t.Fatalf("expected: %v", err)
	}
	if !expected.Equal(dec(t, "100.00")) {
		t.Fatalf("voided sale leaked into totals: got %s, want 100.00", expected)
	}
}

func TestMixedSaleSplitsCashAndCardTotals(t *testing.T) {
	svc := newTestService()
	if _, err := svc.RecordOpening(cashierCtx(), domain.OpeningRequest{Amount: dec(t, "0.00")}); err != nil {
		t.Fatalf("open till: %v", err)
	}

	p := mustCreateProduct(t, svc, "Orange Squash 2L", "30.00", "0", true, 10)
	if _, err := svc.CreateSale(cashierCtx(), domain.SaleRequest{
		Items:   []domain.CartItem{{ProductID: p.ID, Qty: 1}},
		Payment: domain.PaymentSpec{Method: domain.PaymentMixed, CashTendered: dec(t, "20.00"), CardAmount: dec(t, "10.00")},
	}); err != nil {
		t.Fatalf("mixed sale: %v", err)
	}

	row, err := svc.CashSummary(cashierCtx(), "")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !row.CashSales.Equal(dec(t, "20.00")) || !row.CardSales.Equal(dec(t, "10.00")) {
		t.Fatalf("mixed split wrong: cash %s card %s", row.CashSales, row.CardSales)
	}
	if !row.ExpectedClosing.Equal(dec(t, "20.00")) {
		t.Fatalf("expected closing counts only the cash leg: got %s", row.ExpectedClosing)
	}
}

// ---- Sales listing / history filters ----

func TestListSalesByDateAndStockHistoryBounds(t *testing.T) {
	svc := newTestService()
	p := mustCreateProduct(t, svc, "Milk 1L", "18.50", "0", true, 10)

	if _, err := svc.CreateSale(cashierCtx(), domain.SaleRequest{
		Items:   []domain.CartItem{{ProductID: p.ID, Qty: 1}},
		Payment: domain.PaymentSpec{Method: domain.PaymentCash, CashTendered: dec(t, "18.50")},
	}); err != nil {
		t.Fatalf("sale: %v", err)
	}

	today := time.Now().UTC().Format("2006-01-02")
	sales, err := svc.ListSalesByDate(cashierCtx(), today)
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(sales) != 1 {
		t.Fatalf("expected 1 sale today, got %d", len(sales))
	}
	if sales, err = svc.ListSalesByDate(cashierCtx(), "2000-01-01"); err != nil || len(sales) != 0 {
		t.Fatalf("expected no sales on 2000-01-01, got %d (%v)", len(sales), err)
	}
	if _, err := svc.ListSalesByDate(cashierCtx(), "not-a-date"); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for bad date, got %v", err)
	}

	// History bounded to today includes both movements; a window in the past
	// is empty.
	history, err := svc.StockHistory(cashierCtx(), p.ID, today, today)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 movements today, got %d", len(history))
	}
	history, err = svc.StockHistory(cashierCtx(), p.ID, "2000-01-01", "2000-01-02")
	if err != nil {
		t.Fatalf("bounded history: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected empty history for past window, got %d", len(history))
	}
	if _, err := svc.StockHistory(cashierCtx(), 9999, "", ""); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not-found for unknown product, got %v", err)
	}
}
