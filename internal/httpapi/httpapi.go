package httpapi

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
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

	"foodyar/backend/internal/advisor"
	"foodyar/backend/internal/domain"
	"foodyar/backend/internal/realtime"
	"foodyar/backend/internal/service"
	"foodyar/backend/internal/store"
)

const (
	maxJSONBody   = 1 << 20
	maxUploadBody = 10 << 20
)

type API struct {
	service       *service.Service
	auth          *AuthManager
	hub           *realtime.Hub
	allowedOrigin string
	loginLimiter  *attemptLimiter
	pinLimiter    *attemptLimiter
	csrfSecret    []byte
}

func New(svc *service.Service, auth *AuthManager, hub *realtime.Hub, allowedOrigin string) *API {
	csrfSecret := make([]byte, 32)
	if _, err := rand.Read(csrfSecret); err != nil {
		csrfSecret = []byte("csrf-fallback-secret-change-me!!")
	}
	return &API{
		service:       svc,
		auth:          auth,
		hub:           hub,
		allowedOrigin: allowedOrigin,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
		pinLimiter:    newAttemptLimiter(8, time.Minute),
		csrfSecret:    csrfSecret,
	}
}

// csrfTokenForHour computes an HMAC-SHA256 token for the given hour bucket
// (expressed as Unix time truncated to the hour). The token is hex-encoded.
func (a *API) csrfTokenForHour(hourBucket int64) string {
	h := hmac.New(sha256.New, a.csrfSecret)
	fmt.Fprintf(h, "%d", hourBucket)
	return hex.EncodeToString(h.Sum(nil))
}

func (a *API) generateCSRFToken() string {
	return a.csrfTokenForHour(time.Now().UTC().Truncate(time.Hour).Unix())
}

// validateCSRFToken accepts the current and the previous hour bucket.
func (a *API) validateCSRFToken(token string) bool {
	if token == "" {
		return false
	}
	current := time.Now().UTC().Truncate(time.Hour).Unix()
	return hmac.Equal([]byte(token), []byte(a.csrfTokenForHour(current))) ||
		hmac.Equal([]byte(token), []byte(a.csrfTokenForHour(current-3600)))
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	l.entries[key] = append(kept, now)
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

const (
	manager = domain.RoleManager
	cashier = domain.RoleCashier
	chef    = domain.RoleChef
)

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/ws", a.requireAuth(a.handleWebSocket, manager, cashier, chef))
	mux.HandleFunc("/api/v1/auth/login", a.handleLogin)
	mux.HandleFunc("/api/v1/auth/csrf-token", a.handleCSRFToken)

	mux.HandleFunc("/api/v1/ingredients", a.requireAuth(a.handleIngredients, manager, chef))
	mux.HandleFunc("/api/v1/ingredients/low-stock", a.requireAuth(a.handleLowStock, manager, chef))
	mux.HandleFunc("/api/v1/ingredients/{id}", a.requireAuth(a.handleIngredient, manager, chef))
	mux.HandleFunc("/api/v1/ingredients/{id}/restock", a.requireAuth(a.handleRestock, manager, chef))

	mux.HandleFunc("/api/v1/prep-tasks", a.requireAuth(a.handlePrepTasks, manager, chef))
	mux.HandleFunc("/api/v1/prep-tasks/shortfall", a.requireAuth(a.handlePrepShortfall, manager, chef))
	mux.HandleFunc("/api/v1/prep-tasks/{id}", a.requireAuth(a.handlePrepTask, manager, chef))
	mux.HandleFunc("/api/v1/prep-tasks/{id}/recipe", a.requireAuth(a.handlePrepRecipe, manager, chef))
	mux.HandleFunc("/api/v1/prep-tasks/{id}/on-hand", a.requireAuth(a.handlePrepOnHand, manager, chef))
	mux.HandleFunc("/api/v1/prep-tasks/{id}/produce", a.requireAuth(a.handleProduce, manager, chef))

	mux.HandleFunc("/api/v1/menu", a.requireAuth(a.handleMenu, manager, cashier, chef))
	mux.HandleFunc("/api/v1/menu/{id}", a.requireAuth(a.handleMenuItem, manager, chef))
	mux.HandleFunc("/api/v1/menu/{id}/cost", a.requireAuth(a.handleMenuCost, manager, chef))

	mux.HandleFunc("/api/v1/checkout", a.requireAuth(a.handleCheckout, manager, cashier))
	mux.HandleFunc("/api/v1/sales", a.requireAuth(a.handleSales, manager, cashier))
	mux.HandleFunc("/api/v1/sales/{id}", a.requireAuth(a.handleSale, manager, cashier))
	mux.HandleFunc("/api/v1/sales/{id}/status", a.requireAuth(a.handleSaleStatus, manager, cashier, chef))

	mux.HandleFunc("/api/v1/shifts", a.requireAuth(a.handleShifts, manager))
	mux.HandleFunc("/api/v1/shifts/current", a.requireAuth(a.handleShiftCurrent, manager, cashier))
	mux.HandleFunc("/api/v1/shifts/open", a.requireAuth(a.handleShiftOpen, manager, cashier))
	mux.HandleFunc("/api/v1/shifts/close", a.requireAuth(a.handleShiftClose, manager, cashier))

	mux.HandleFunc("/api/v1/waste", a.requireAuth(a.handleWaste, manager, chef))

	mux.HandleFunc("/api/v1/suppliers", a.requireAuth(a.handleSuppliers, manager, chef))
	mux.HandleFunc("/api/v1/suppliers/{id}", a.requireAuth(a.handleSupplier, manager, chef))
	mux.HandleFunc("/api/v1/invoices", a.requireAuth(a.handleInvoices, manager, chef))
	mux.HandleFunc("/api/v1/invoices/extract", a.requireAuth(a.handleInvoiceExtract, manager, chef))
	mux.HandleFunc("/api/v1/invoices/{id}/pay", a.requireAuth(a.handleInvoicePay, manager))

	mux.HandleFunc("/api/v1/expenses", a.requireAuth(a.handleExpenses, manager))
	mux.HandleFunc("/api/v1/expenses/{id}", a.requireAuth(a.handleExpense, manager))
	mux.HandleFunc("/api/v1/reports/profit-loss", a.requireAuth(a.handleProfitAndLoss, manager))
	mux.HandleFunc("/api/v1/reports/dashboard", a.requireAuth(a.handleDashboard, manager, cashier))

	mux.HandleFunc("/api/v1/analytics/menu-engineering", a.requireAuth(a.handleMenuEngineering, manager, chef))
	mux.HandleFunc("/api/v1/analytics/procurement", a.requireAuth(a.handleProcurementForecast, manager, chef))
	mux.HandleFunc("/api/v1/analytics/prep-plan", a.requireAuth(a.handlePrepPlan, manager, chef))

	mux.HandleFunc("/api/v1/advisor/ask", a.requireAuth(a.handleAdvisorAsk, manager))
	mux.HandleFunc("/api/v1/advisor/daily-special", a.requireAuth(a.handleDailySpecial, manager, chef))
	mux.HandleFunc("/api/v1/advisor/recipes/{id}/analysis", a.requireAuth(a.handleRecipeAnalysis, manager, chef))

	mux.HandleFunc("/api/v1/imports/sales/preview", a.requireAuth(a.handleSalesImportPreview, manager))
	mux.HandleFunc("/api/v1/imports/sales", a.requireAuth(a.handleSalesImport, manager))

	mux.HandleFunc("/api/v1/users", a.requireAuth(a.handleUsers, manager))
	mux.HandleFunc("/api/v1/users/{username}/active", a.requireAuth(a.handleUserActive, manager))
	mux.HandleFunc("/api/v1/users/{username}/pin", a.requireAuth(a.handleUserPIN, manager))
	mux.HandleFunc("/api/v1/audit-logs", a.requireAuth(a.handleAuditLogs, manager))

	return a.withMiddleware(mux)
}

// bearerToken reads the Authorization header. Browsers cannot set headers on
// a websocket handshake, so upgrade requests may pass access_token instead.
func bearerToken(r *http.Request) (string, bool) {
	authorization := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
		return strings.TrimSpace(authorization[len("Bearer "):]), true
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		if token := strings.TrimSpace(r.URL.Query().Get("access_token")); token != "" {
			return token, true
		}
	}
	return "", false
}

func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

// allowWrite narrows a route to the roles that may change it. Reads on the
// same route stay open to the roles requireAuth admitted.
func allowWrite(w http.ResponseWriter, r *http.Request, roles ...string) bool {
	actor, ok := service.ActorFromContext(r.Context())
	if !ok || !isRoleAllowed(actor.Role, roles) {
		writeError(w, http.StatusForbidden, errors.New("forbidden role"))
		return false
	}
	return true
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	payload := map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	}
	if a.hub != nil {
		payload["ws_clients"] = a.hub.Clients()
	}
	writeJSON(w, http.StatusOK, payload)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCSRFToken returns a stateless token valid for the current hour bucket.
// Clients send it in X-CSRF-Token on every mutating request.
func (a *API) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"csrf_token": a.generateCSRFToken(),
	})
}

// Login is called before a token can be fetched.
var csrfExemptPaths = []string{
	"/api/v1/auth/login",
}

func (a *API) checkCSRF(w http.ResponseWriter, r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return true
	}
	for _, exempt := range csrfExemptPaths {
		if r.URL.Path == exempt {
			return true
		}
	}
	token := strings.TrimSpace(r.Header.Get("X-CSRF-Token"))
	if !a.validateCSRFToken(token) {
		writeError(w, http.StatusForbidden, errors.New("missing or invalid CSRF token"))
		return false
	}
	return true
}

func (a *API) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if a.hub == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("realtime hub is not running"))
		return
	}
	a.hub.ServeWS(w, r)
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-CSRF-Token")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut {
			limit := int64(maxJSONBody)
			if strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data") {
				limit = maxUploadBody
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if !a.checkCSRF(w, r) {
			return
		}

		startedAt := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(startedAt))
	})
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

// parseDate accepts a calendar date or an RFC3339 timestamp. A calendar
// date used as an upper bound covers the whole day.
func parseDate(raw string, upper bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if day, err := time.Parse("2006-01-02", raw); err == nil {
		if upper {
			return day.AddDate(0, 0, 1), nil
		}
		return day, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, use YYYY-MM-DD or RFC3339", raw)
	}
	return ts.UTC(), nil
}

func parseRange(r *http.Request) (time.Time, time.Time, error) {
	from, err := parseDate(r.URL.Query().Get("from"), false)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parseDate(r.URL.Query().Get("to"), true)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

// writeServiceError maps service and store errors onto statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, err)
	case errors.Is(err, store.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, advisor.ErrOracleUnavailable):
		writeAdvisorError(w, http.StatusServiceUnavailable, "the AI advisor is not configured", err)
	case errors.Is(err, advisor.ErrOracleAuth):
		writeAdvisorError(w, http.StatusBadGateway, "the AI advisor rejected its api key", err)
	case errors.Is(err, advisor.ErrMalformedResponse):
		writeAdvisorError(w, http.StatusBadGateway, "the AI advisor returned an unusable answer, try again", err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

// writeAdvisorError keeps a readable message on upstream failures, which
// writeError would otherwise mask.
func writeAdvisorError(w http.ResponseWriter, status int, msg string, err error) {
	log.Printf("[advisor] WARN: %v", err)
	writeJSON(w, status, map[string]any{"error": msg})
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 5xx bodies never carry internal details.
	msg := err.Error()
	if status >= 500 {
		log.Printf("internal error (status %d): %v", status, err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
