package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category is the fixed product category set.
type Category string

const (
	CategoryFood       Category = "Food"
	CategoryHousehold  Category = "Household"
	CategorySweets     Category = "Sweets"
	CategoryCooldrinks Category = "Cooldrinks"
	CategoryOther      Category = "Other"
)

var Categories = []Category{CategoryFood, CategoryHousehold, CategorySweets, CategoryCooldrinks, CategoryOther}

func ValidCategory(c Category) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type Product struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Barcode      string          `json:"barcode,omitempty"`
	Category     Category        `json:"category"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	SellPrice    decimal.Decimal `json:"sell_price"`
	VATRate      decimal.Decimal `json:"vat_rate"`
	VATInclusive bool            `json:"vat_inclusive"`
	CurrentStock int             `json:"current_stock"`
	TargetStock  int             `json:"target_stock"`
	MinStock     int             `json:"min_stock"`
	ExpiryDate   *time.Time      `json:"expiry_date,omitempty"`
	Archived     bool            `json:"archived"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type ProductCreateRequest struct {
	Name         string           `json:"name"`
	Barcode      string           `json:"barcode,omitempty"`
	Category     Category         `json:"category"`
	CostPrice    decimal.Decimal  `json:"cost_price"`
	SellPrice    decimal.Decimal  `json:"sell_price"`
	VATRate      *decimal.Decimal `json:"vat_rate,omitempty"`
	VATInclusive *bool            `json:"vat_inclusive,omitempty"`
	InitialStock int              `json:"initial_stock"`
	TargetStock  int              `json:"target_stock"`
	MinStock     int              `json:"min_stock"`
	ExpiryDate   string           `json:"expiry_date,omitempty"`
}

type ProductUpdateRequest struct {
	Name         *string          `json:"name,omitempty"`
	Barcode      *string          `json:"barcode,omitempty"`
	Category     *Category        `json:"category,omitempty"`
	CostPrice    *decimal.Decimal `json:"cost_price,omitempty"`
	SellPrice    *decimal.Decimal `json:"sell_price,omitempty"`
	VATRate      *decimal.Decimal `json:"vat_rate,omitempty"`
	VATInclusive *bool            `json:"vat_inclusive,omitempty"`
	TargetStock  *int             `json:"target_stock,omitempty"`
	MinStock     *int             `json:"min_stock,omitempty"`
	ExpiryDate   *string          `json:"expiry_date,omitempty"`
}

// MovementKind tags why a product's stock changed.
type MovementKind string

const (
	MovementSale         MovementKind = "sale"
	MovementAdjustment   MovementKind = "adjustment"
	MovementAddition     MovementKind = "addition"
	MovementDamage       MovementKind = "damage"
	MovementTheft        MovementKind = "theft"
	MovementExpiry       MovementKind = "expiry"
	MovementVoidReversal MovementKind = "void_reversal"
)

func ValidMovementKind(k MovementKind) bool {
	switch k {
	case MovementSale, MovementAdjustment, MovementAddition, MovementDamage, MovementTheft, MovementExpiry, MovementVoidReversal:
		return true
	}
	return false
}

// StockMovement is one append-only ledger entry. StockBefore and StockAfter
// are captured at write time and never recomputed.
type StockMovement struct {
	ID          int64        `json:"id"`
	ProductID   int64        `json:"product_id"`
	Kind        MovementKind `json:"kind"`
	Delta       int          `json:"delta"`
	StockBefore int          `json:"stock_before"`
	StockAfter  int          `json:"stock_after"`
	UserID      int64        `json:"user_id"`
	Reason      string       `json:"reason,omitempty"`
	SaleID      *int64       `json:"sale_id,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

type MovementRequest struct {
	ProductID int64        `json:"product_id"`
	Kind      MovementKind `json:"kind"`
	Delta     int          `json:"delta"`
	Reason    string       `json:"reason"`
	// AllowNegative permits an adjustment to drive stock below zero; the
	// movement is still recorded, which keeps the ledger honest about it.
	AllowNegative bool `json:"allow_negative,omitempty"`
}

type PaymentMethod string

const (
	PaymentCash  PaymentMethod = "cash"
	PaymentCard  PaymentMethod = "card"
	PaymentMixed PaymentMethod = "mixed"
)

type CartItem struct {
	ProductID int64 `json:"product_id"`
	Qty       int   `json:"qty"`
}

type PaymentSpec struct {
	Method       PaymentMethod   `json:"method"`
	CashTendered decimal.Decimal `json:"cash_tendered"`
	CardAmount   decimal.Decimal `json:"card_amount"`
}

// SaleItem snapshots unit price and VAT terms at sale time. LineTotal is the
// VAT-exclusive line amount, so summing LineTotal over a sale gives Subtotal.
type SaleItem struct {
	ID           int64           `json:"id"`
	SaleID       int64           `json:"sale_id"`
	ProductID    int64           `json:"product_id"`
	ProductName  string          `json:"product_name"`
	Qty          int             `json:"qty"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	VATRate      decimal.Decimal `json:"vat_rate"`
	VATInclusive bool            `json:"vat_inclusive"`
	LineTotal    decimal.Decimal `json:"line_total"`
	VATAmount    decimal.Decimal `json:"vat_amount"`
}

type Sale struct {
	ID            int64           `json:"id"`
	Ref           string          `json:"ref"`
	UserID        int64           `json:"user_id"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	VAT           decimal.Decimal `json:"vat"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	CashTendered  decimal.Decimal `json:"cash_tendered"`
	CardAmount    decimal.Decimal `json:"card_amount"`
	ChangeGiven   decimal.Decimal `json:"change_given"`
	Voided        bool            `json:"voided"`
	VoidedBy      *int64          `json:"voided_by,omitempty"`
	VoidedAt      *time.Time      `json:"voided_at,omitempty"`
	VoidReason    string          `json:"void_reason,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	Items         []SaleItem      `json:"items"`
}

type SaleRequest struct {
	Items   []CartItem  `json:"items"`
	Payment PaymentSpec `json:"payment"`
}

// DailyCash is one till-reconciliation row per calendar date
// (Date is "2006-01-02").
type DailyCash struct {
	Date            string           `json:"date"`
	OpeningAmount   decimal.Decimal  `json:"opening_amount"`
	CashSales       decimal.Decimal  `json:"cash_sales"`
	CardSales       decimal.Decimal  `json:"card_sales"`
	Withdrawals     decimal.Decimal  `json:"withdrawals"`
	ExpectedClosing decimal.Decimal  `json:"expected_closing"`
	OpenedBy        int64            `json:"opened_by"`
	ActualClosing   *decimal.Decimal `json:"actual_closing,omitempty"`
	Variance        *decimal.Decimal `json:"variance,omitempty"`
	Reconciled      bool             `json:"reconciled"`
	ReconciledBy    *int64           `json:"reconciled_by,omitempty"`
	ReconciledAt    *time.Time       `json:"reconciled_at,omitempty"`
	Notes           string           `json:"notes,omitempty"`
}

// PaymentTotals aggregates a day's committed, non-voided takings by tender.
// Mixed sales contribute their cash portion to Cash and card portion to Card.
type PaymentTotals struct {
	Cash decimal.Decimal `json:"cash"`
	Card decimal.Decimal `json:"card"`
}

type OpeningRequest struct {
	Date   string          `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}

type WithdrawalRequest struct {
	Date   string          `json:"date"`
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
}

type ReconcileRequest struct {
	Date         string          `json:"date"`
	ActualAmount decimal.Decimal `json:"actual_amount"`
	Notes        string          `json:"notes"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

// Actor identifies the till operator acting on the engine.
type Actor struct {
	UserID   int64
	Username string
	Role     string
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	ID        int64
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)
