package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"spazapos/backend/internal/domain"
	"spazapos/backend/internal/store"
)

// Store is the in-memory Repository used for dev/demo mode and tests. All
// mutating methods take the write lock for their whole body, which gives the
// same all-or-nothing behavior the SQL implementation gets from transactions.
type Store struct {
	mu              sync.RWMutex
	nextProductID   int64
	nextMovementID  int64
	nextSaleID      int64
	nextItemID      int64
	nextUserID      int64
	products        map[int64]domain.Product
	movements       []domain.StockMovement
	salesByID       map[int64]*domain.Sale
	dailyCashByDate map[string]domain.DailyCash
	usersByUsername map[string]domain.UserAccount
}

func New() *Store {
	return &Store{
		products:        make(map[int64]domain.Product),
		movements:       make([]domain.StockMovement, 0, 256),
		salesByID:       make(map[int64]*domain.Sale),
		dailyCashByDate: make(map[string]domain.DailyCash),
		usersByUsername: make(map[string]domain.UserAccount),
	}
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD
// environment variables. If unset, hardcoded dev defaults are used with a
// warning printed to stdout. These credentials are never used in production
// (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for i, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, domain.RoleAdmin},
		{"cashier", cashierPwd, domain.RoleCashier},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			ID:        int64(i + 1),
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	s := New()
	s.usersByUsername = seedUsers()
	s.nextUserID = int64(len(s.usersByUsername))

	now := time.Now().UTC()
	seed := []domain.Product{
		{Name: "White Bread 700g", Barcode: "6001087340014", Category: domain.CategoryFood, CostPrice: dec("11.50"), SellPrice: dec("15.00"), VATRate: dec("15"), VATInclusive: true, TargetStock: 30, MinStock: 8},
		{Name: "Full Cream Milk 1L", Barcode: "6001240100123", Category: domain.CategoryFood, CostPrice: dec("14.20"), SellPrice: dec("18.50"), VATRate: dec("15"), VATInclusive: true, TargetStock: 24, MinStock: 6},
		{Name: "Maize Meal 2.5kg", Barcode: "6001069101503", Category: domain.CategoryFood, CostPrice: dec("28.00"), SellPrice: dec("36.00"), VATRate: dec("0"), VATInclusive: true, TargetStock: 20, MinStock: 5},
		{Name: "Sunlight Soap Bar", Barcode: "6001085002631", Category: domain.CategoryHousehold, CostPrice: dec("9.80"), SellPrice: dec("13.50"), VATRate: dec("15"), VATInclusive: true, TargetStock: 40, MinStock: 10},
		{Name: "Chocolate Bar 80g", Barcode: "6001068595305", Category: domain.CategorySweets, CostPrice: dec("10.40"), SellPrice: dec("14.99"), VATRate: dec("15"), VATInclusive: true, TargetStock: 36, MinStock: 12},
		{Name: "Cola 330ml Can", Barcode: "5449000000996", Category: domain.CategoryCooldrinks, CostPrice: dec("8.10"), SellPrice: dec("12.00"), VATRate: dec("15"), VATInclusive: true, TargetStock: 48, MinStock: 12},
		{Name: "Orange Squash 2L", Barcode: "6001240202186", Category: domain.CategoryCooldrinks, CostPrice: dec("21.00"), SellPrice: dec("28.50"), VATRate: dec("15"), VATInclusive: true, TargetStock: 18, MinStock: 4},
		{Name: "Candles 6 Pack", Barcode: "6009510800012", Category: domain.CategoryOther, CostPrice: dec("12.00"), SellPrice: dec("16.50"), VATRate: dec("15"), VATInclusive: true, TargetStock: 25, MinStock: 6},
	}
	for i := range seed {
		s.nextProductID++
		p := seed[i]
		p.ID = s.nextProductID
		p.CurrentStock = p.TargetStock
		p.CreatedAt = now
		p.UpdatedAt = now
		s.products[p.ID] = p
	}
	return s
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// ---- Catalog ----

func (s *Store) CreateProduct(_ context.Context, product domain.Product, initial *domain.StockMovement) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.Barcode != "" {
		for _, existing := range s.products {
			if existing.Barcode == product.Barcode {
				return nil, store.ErrDuplicateBarcode
			}
		}
	}

	s.nextProductID++
	product.ID = s.nextProductID
	product.CurrentStock = 0
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	product.UpdatedAt = product.CreatedAt
	s.products[product.ID] = product

	if initial != nil {
		m := *initial
		m.ProductID = product.ID
		applied, err := s.applyMovementLocked(m, false)
		if err != nil {
			delete(s.products, product.ID)
			return nil, err
		}
		product = s.products[product.ID]
		product.CurrentStock = applied.StockAfter
	}

	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.products[product.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if product.Barcode != "" {
		for id, other := range s.products {
			if id != product.ID && other.Barcode == product.Barcode {
				return nil, store.ErrDuplicateBarcode
			}
		}
	}

	// Stock only moves through the ledger.
	product.CurrentStock = existing.CurrentStock
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = time.Now().UTC()

	s.products[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) GetProductByBarcode(_ context.Context, barcode string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, product := range s.products {
		if product.Barcode == barcode && !product.Archived {
			copyProduct := product
			return &copyProduct, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetProductsByIDs(_ context.Context, ids []int64) (map[int64]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[int64]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			result[id] = p
		}
	}
	return result, nil
}

func (s *Store) SearchProducts(_ context.Context, query string, category domain.Category, includeArchived bool) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query = strings.ToLower(query)
	result := make([]domain.Product, 0, len(s.products))
	for _, product := range s.products {
		if product.Archived && !includeArchived {
			continue
		}
		if category != "" && product.Category != category {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(product.Name), query) && !strings.Contains(product.Barcode, query) {
			continue
		}
		result = append(result, product)
	}

	slices.SortFunc(result, func(a, b domain.Product) int {
		return cmpString(a.Name, b.Name)
	})
	return result, nil
}

func (s *Store) SetProductArchived(_ context.Context, id int64, archived bool) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	product.Archived = archived
	product.UpdatedAt = time.Now().UTC()
	s.products[id] = product
	copyProduct := product
	return &copyProduct, nil
}

// ---- Stock ledger ----

func (s *Store) ApplyMovement(_ context.Context, m domain.StockMovement, allowNegative bool) (*domain.StockMovement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.applyMovementLocked(m, allowNegative)
}

// applyMovementLocked is the single write path into the ledger; callers hold
// the write lock.
func (s *Store) applyMovementLocked(m domain.StockMovement, allowNegative bool) (*domain.StockMovement, error) {
	product, exists := s.products[m.ProductID]
	if !exists {
		return nil, store.ErrNotFound
	}

	before := product.CurrentStock
	after := before + m.Delta
	if after < 0 && !allowNegative {
		return nil, fmt.Errorf("%w: %s", store.ErrInsufficientStock, product.Name)
	}

	s.nextMovementID++
	m.ID = s.nextMovementID
	m.StockBefore = before
	m.StockAfter = after
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	product.CurrentStock = after
	product.UpdatedAt = m.CreatedAt
	s.products[m.ProductID] = product
	s.movements = append(s.movements, m)

	created := m
	return &created, nil
}

func (s *Store) ListMovements(_ context.Context, productID int64, from *time.Time, to *time.Time) ([]domain.StockMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.StockMovement, 0, 32)
	for _, m := range s.movements {
		if m.ProductID != productID {
			continue
		}
		if from != nil && m.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && !m.CreatedAt.Before(*to) {
			continue
		}
		result = append(result, m)
	}

	slices.SortFunc(result, func(a, b domain.StockMovement) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return int(a.ID - b.ID)
		}
		if a.CreatedAt.Before(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return result, nil
}

func (s *Store) LowStockProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Product, 0, 16)
	for _, product := range s.products {
		if product.Archived {
			continue
		}
		if product.CurrentStock <= product.MinStock {
			result = append(result, product)
		}
	}
	slices.SortFunc(result, func(a, b domain.Product) int {
		return cmpString(a.Name, b.Name)
	})
	return result, nil
}

// ---- Sales ----

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(sale.Items) == 0 {
		return nil, store.ErrValidation
	}

	// Re-check every line before touching anything so a short line leaves the
	// ledger untouched.
	for _, item := range sale.Items {
		product, exists := s.products[item.ProductID]
		if !exists || product.Archived {
			return nil, fmt.Errorf("%w: product %d", store.ErrNotFound, item.ProductID)
		}
		if product.CurrentStock < item.Qty {
			return nil, fmt.Errorf("%w: %s", store.ErrInsufficientStock, product.Name)
		}
	}

	s.nextSaleID++
	sale.ID = s.nextSaleID
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	for i := range sale.Items {
		s.nextItemID++
		sale.Items[i].ID = s.nextItemID
		sale.Items[i].SaleID = sale.ID
	}

	saleID := sale.ID
	for _, item := range sale.Items {
		if _, err := s.applyMovementLocked(domain.StockMovement{
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

	s.salesByID[sale.ID] = cloneSale(&sale)
	return cloneSale(&sale), nil
}

func (s *Store) GetSale(_ context.Context, id int64) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, exists := s.salesByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	return cloneSale(sale), nil
}

func (s *Store) VoidSale(_ context.Context, id int64, userID int64, reason string, at time.Time) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, exists := s.salesByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	if sale.Voided {
		return nil, store.ErrAlreadyVoided
	}

	saleID := sale.ID
	for _, item := range sale.Items {
		if _, err := s.applyMovementLocked(domain.StockMovement{
			ProductID: item.ProductID,
			Kind:      domain.MovementVoidReversal,
			Delta:     item.Qty,
			UserID:    userID,
			Reason:    "void " + sale.Ref + ": " + reason,
			SaleID:    &saleID,
			CreatedAt: at,
		}, true); err != nil {
			return nil, err
		}
	}

	sale.Voided = true
	sale.VoidedBy = &userID
	sale.VoidedAt = &at
	sale.VoidReason = reason

	return cloneSale(sale), nil
}

func (s *Store) ListSalesByDate(_ context.Context, day time.Time) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := nowDateUTC(day)
	end := start.Add(24 * time.Hour)

	result := make([]domain.Sale, 0, 32)
	for _, sale := range s.salesByID {
		if sale.CreatedAt.Before(start) || !sale.CreatedAt.Before(end) {
			continue
		}
		result = append(result, *cloneSale(sale))
	}
	slices.SortFunc(result, func(a, b domain.Sale) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return int(a.ID - b.ID)
		}
		if a.CreatedAt.Before(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return result, nil
}

// ---- Cash reconciliation ----

func (s *Store) GetDailyCash(_ context.Context, date string) (*domain.DailyCash, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, exists := s.dailyCashByDate[date]
	if !exists {
		return nil, store.ErrNotOpened
	}
	copyRow := row
	return &copyRow, nil
}

func (s *Store) CreateDailyCash(_ context.Context, row domain.DailyCash) (*domain.DailyCash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.dailyCashByDate[row.Date]; exists {
		return nil, store.ErrAlreadyOpened
	}
	s.dailyCashByDate[row.Date] = row
	copyRow := row
	return &copyRow, nil
}

func (s *Store) UpdateDailyCash(_ context.Context, row domain.DailyCash) (*domain.DailyCash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.dailyCashByDate[row.Date]; !exists {
		return nil, store.ErrNotOpened
	}
	s.dailyCashByDate[row.Date] = row
	copyRow := row
	return &copyRow, nil
}

func (s *Store) SalesTotalsByPayment(_ context.Context, day time.Time) (domain.PaymentTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := nowDateUTC(day)
	end := start.Add(24 * time.Hour)

	totals := domain.PaymentTotals{Cash: decimal.Zero, Card: decimal.Zero}
	for _, sale := range s.salesByID {
		if sale.Voided {
			continue
		}
		if sale.CreatedAt.Before(start) || !sale.CreatedAt.Before(end) {
			continue
		}
		switch sale.PaymentMethod {
		case domain.PaymentCash:
			totals.Cash = totals.Cash.Add(sale.Total)
		case domain.PaymentCard:
			totals.Card = totals.Card.Add(sale.CardAmount)
		case domain.PaymentMixed:
			totals.Cash = totals.Cash.Add(sale.CashTendered)
			totals.Card = totals.Card.Add(sale.CardAmount)
		}
	}
	return totals, nil
}

// ---- Users ----

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrValidation
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrValidation
	}
	user.Username = username
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.nextUserID++
	user.ID = s.nextUserID
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.usersByUsername[strings.ToLower(strings.TrimSpace(username))]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyUser := user
	return &copyUser, nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrValidation
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

// ---- helpers ----

func nowDateUTC(t time.Time) time.Time {
	return time.Date(t.UTC().Year(), t.UTC().Month(), t.UTC().Day(), 0, 0, 0, 0, time.UTC)
}

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}

func cloneSale(src *domain.Sale) *domain.Sale {
	if src == nil {
		return nil
	}
	dup := *src
	items := make([]domain.SaleItem, len(src.Items))
	copy(items, src.Items)
	dup.Items = items
	return &dup
}
