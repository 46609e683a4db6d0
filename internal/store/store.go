package store

import (
	"context"
	"errors"
	"time"

	"spazapos/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrAlreadyVoided     = errors.New("sale already voided")
	ErrAlreadyOpened     = errors.New("till already opened for date")
	ErrNotOpened         = errors.New("till not opened for date")
	ErrDuplicateBarcode  = errors.New("barcode already in use")
)

// Repository is the durable store behind the engine. Implementations must make
// each mutating call atomic: CreateSale commits the sale, its items, the
// per-line stock movements and the stock decrements as one unit, or nothing.
type Repository interface {
	// Catalog. Product.CurrentStock is never written through these calls;
	// stock changes only through ApplyMovement and CreateSale/VoidSale.
	// CreateProduct inserts the product and, when initial is non-nil, writes
	// the opening ledger row in the same unit of work.
	CreateProduct(ctx context.Context, product domain.Product, initial *domain.StockMovement) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	GetProductByBarcode(ctx context.Context, barcode string) (*domain.Product, error)
	GetProductsByIDs(ctx context.Context, ids []int64) (map[int64]domain.Product, error)
	SearchProducts(ctx context.Context, query string, category domain.Category, includeArchived bool) ([]domain.Product, error)
	SetProductArchived(ctx context.Context, id int64, archived bool) (*domain.Product, error)

	// Stock ledger. ApplyMovement captures before/after under lock and rejects
	// a negative result with ErrInsufficientStock unless allowNegative is set.
	ApplyMovement(ctx context.Context, m domain.StockMovement, allowNegative bool) (*domain.StockMovement, error)
	ListMovements(ctx context.Context, productID int64, from *time.Time, to *time.Time) ([]domain.StockMovement, error)
	LowStockProducts(ctx context.Context) ([]domain.Product, error)

	// Sales. CreateSale re-resolves stock under lock; any short line aborts the
	// whole unit with ErrInsufficientStock wrapping the product name.
	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	GetSale(ctx context.Context, id int64) (*domain.Sale, error)
	VoidSale(ctx context.Context, id int64, userID int64, reason string, at time.Time) (*domain.Sale, error)
	ListSalesByDate(ctx context.Context, day time.Time) ([]domain.Sale, error)

	// Cash reconciliation. One DailyCash row per date.
	GetDailyCash(ctx context.Context, date string) (*domain.DailyCash, error)
	CreateDailyCash(ctx context.Context, row domain.DailyCash) (*domain.DailyCash, error)
	UpdateDailyCash(ctx context.Context, row domain.DailyCash) (*domain.DailyCash, error)
	SalesTotalsByPayment(ctx context.Context, day time.Time) (domain.PaymentTotals, error)

	// Auth support for the transport layer.
	CreateUser(ctx context.Context, user domain.UserAccount) error
	GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error)
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
