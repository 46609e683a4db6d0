package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"spazapos/backend/internal/domain"
	"spazapos/backend/internal/modules"
	"spazapos/backend/internal/service"
	"spazapos/backend/internal/store"
)

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	loginLimiter  *attemptLimiter
}

func New(svc *service.Service, auth *AuthManager, allowedOrigin string) *API {
	return &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: allowedOrigin,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
	}
}

// attemptLimiter is a per-key sliding-window counter used to slow down
// credential guessing on the login endpoint.
type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	return &attemptLimiter{
		max:     max,
		window:  window,
		entries: make(map[string][]time.Time),
	}
}

func (l *attemptLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-l.window)
	kept := l.entries[key][:0]
	for _, t := range l.entries[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	l.entries[key] = append(kept, now)
	return true
}

// clientKey extracts the remote IP for rate limiting. RemoteAddr is the
// direct peer; the till runs on a LAN so no proxy headers are trusted.
func clientKey(r *http.Request) string {
	if addrPort, err := netip.ParseAddrPort(r.RemoteAddr); err == nil {
		return addrPort.Addr().String()
	}
	if idx := strings.LastIndex(r.RemoteAddr, ":"); idx > 0 {
		return r.RemoteAddr[:idx]
	}
	return r.RemoteAddr
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/v1/auth/login", a.handleLogin)

	mux.HandleFunc("/api/v1/products", a.requireAuth(a.handleProducts, "cashier", "admin"))
	mux.HandleFunc("/api/v1/products/", a.requireAuth(a.handleProductActions, "cashier", "admin"))

	mux.HandleFunc("/api/v1/stock/movements", a.requireAuth(a.handleMovements, "cashier", "admin"))
	mux.HandleFunc("/api/v1/stock/low", a.requireAuth(a.handleLowStock, "cashier", "admin"))

	mux.HandleFunc("/api/v1/sales", a.requireAuth(a.handleSales, "cashier", "admin"))
	mux.HandleFunc("/api/v1/sales/", a.requireAuth(a.handleSaleActions, "cashier", "admin"))

	mux.HandleFunc("/api/v1/cash/open", a.requireAuth(a.handleCashOpen, "cashier", "admin"))
	mux.HandleFunc("/api/v1/cash/withdrawals", a.requireAuth(a.handleCashWithdrawal, "cashier", "admin"))
	mux.HandleFunc("/api/v1/cash/expected", a.requireAuth(a.handleCashExpected, "cashier", "admin"))
	mux.HandleFunc("/api/v1/cash/reconcile", a.requireAuth(a.handleCashReconcile, "admin"))
	mux.HandleFunc("/api/v1/cash/summary", a.requireAuth(a.handleCashSummary, "cashier", "admin"))

	mux.HandleFunc("/api/v1/modules", a.requireAuth(a.handleModules, "cashier", "admin"))
	mux.HandleFunc("/api/v1/users/cashiers", a.requireAuth(a.handleCashiers, "admin"))

	return a.withMiddleware(mux)
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		if a.allowedOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type")
			w.Header().Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if r.Method == http.MethodPost || r.Method == http.MethodPatch {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		allowed := false
		for _, role := range roles {
			if actor.Role == role {
				allowed = true
				break
			}
		}
		if !allowed {
			writeError(w, http.StatusForbidden, "insufficient role")
			return
		}
		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

// ---- Auth ----

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, "too many login attempts, try again later")
		return
	}
	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, errInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, errInvalidCredentials.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ---- Product catalog ----

func (a *API) handleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		query := strings.TrimSpace(r.URL.Query().Get("q"))
		category := domain.Category(strings.TrimSpace(r.URL.Query().Get("category")))
		includeArchived := r.URL.Query().Get("include_archived") == "true"
		products, err := a.service.SearchProducts(r.Context(), query, category, includeArchived)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, products)
	case http.MethodPost:
		var req domain.ProductCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		product, err := a.service.CreateProduct(r.Context(), req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, product)
	default:
		writeMethodNotAllowed(w)
	}
}

// handleProductActions dispatches /api/v1/products/{id}[/...] and
// /api/v1/products/barcode/{code}.
func (a *API) handleProductActions(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/products/")

	if code, ok := strings.CutPrefix(rest, "barcode/"); ok {
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		product, err := a.service.FindByBarcode(r.Context(), code)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, product)
		return
	}

	idPart, action, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			product, err := a.service.GetProduct(r.Context(), id)
			if err != nil {
				a.writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, product)
		case http.MethodPatch:
			var req domain.ProductUpdateRequest
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			product, err := a.service.UpdateProduct(r.Context(), id, req)
			if err != nil {
				a.writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, product)
		default:
			writeMethodNotAllowed(w)
		}
	case "archive", "restore":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		var product domain.Product
		if action == "archive" {
			product, err = a.service.ArchiveProduct(r.Context(), id)
		} else {
			product, err = a.service.RestoreProduct(r.Context(), id)
		}
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, product)
	case "history":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		from := r.URL.Query().Get("from")
		to := r.URL.Query().Get("to")
		history, err := a.service.StockHistory(r.Context(), id, from, to)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, history)
	default:
		writeError(w, http.StatusNotFound, "unknown product action")
	}
}

// ---- Stock ledger ----

func (a *API) handleMovements(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	var req domain.MovementRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	movement, err := a.service.ApplyMovement(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, movement)
}

func (a *API) handleLowStock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	products, err := a.service.LowStock(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// ---- Sales ----

func (a *API) handleSales(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req domain.SaleRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		sale, err := a.service.CreateSale(r.Context(), req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, sale)
	case http.MethodGet:
		sales, err := a.service.ListSalesByDate(r.Context(), r.URL.Query().Get("date"))
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sales)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleSaleActions(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/sales/")
	idPart, action, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "invalid sale id")
		return
	}

	switch action {
	case "":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		sale, err := a.service.GetSale(r.Context(), id)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sale)
	case "void":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		var req struct {
			Reason string `json:"reason"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		sale, err := a.service.VoidSale(r.Context(), id, req.Reason)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sale)
	default:
		writeError(w, http.StatusNotFound, "unknown sale action")
	}
}

// ---- Cash reconciliation ----

func (a *API) handleCashOpen(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	var req domain.OpeningRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cash, err := a.service.RecordOpening(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cash)
}

func (a *API) handleCashWithdrawal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	var req domain.WithdrawalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cash, err := a.service.RecordWithdrawal(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cash)
}

func (a *API) handleCashExpected(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	date := r.URL.Query().Get("date")
	expected, err := a.service.ComputeExpected(r.Context(), date)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":             date,
		"expected_closing": expected,
	})
}

func (a *API) handleCashReconcile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	var req domain.ReconcileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cash, err := a.service.Reconcile(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cash)
}

func (a *API) handleCashSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	cash, err := a.service.CashSummary(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cash)
}

// ---- Modules ----

func (a *API) handleModules(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	if raw := r.URL.Query().Get("tier"); raw != "" {
		tier, err := strconv.Atoi(raw)
		if err != nil || tier < 1 {
			writeError(w, http.StatusBadRequest, "invalid tier")
			return
		}
		writeJSON(w, http.StatusOK, modules.ByTier(tier))
		return
	}
	writeJSON(w, http.StatusOK, modules.All())
}

// ---- Users ----

func (a *API) handleCashiers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		accounts, err := a.auth.ListCashiers(r.Context())
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, accounts)
	case http.MethodPost:
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		account, err := a.auth.CreateCashier(r.Context(), req.Username, req.Password)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, account)
	default:
		writeMethodNotAllowed(w)
	}
}

// ---- Health ----

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ---- Plumbing ----

// writeServiceError maps engine errors onto HTTP statuses. Anything
// unrecognized is a server fault and gets logged with a generic body.
func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrNotOpened):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrInsufficientStock),
		errors.Is(err, store.ErrAlreadyVoided),
		errors.Is(err, store.ErrAlreadyOpened),
		errors.Is(err, store.ErrDuplicateBarcode):
		writeError(w, http.StatusConflict, err.Error())
	case strings.Contains(err.Error(), "admin role required"):
		writeError(w, http.StatusForbidden, err.Error())
	case strings.Contains(err.Error(), "authenticated actor required"):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeError(w http.ResponseWriter, status int, message string) {
	if status >= 500 {
		log.Printf("internal error: %s", message)
		message = "internal server error"
	}
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}
