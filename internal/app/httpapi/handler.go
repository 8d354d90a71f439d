// Package httpapi exposes the loyalty platform's REST surface.
package httpapi

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	app "github.com/Turistty/Simplifique-Application/internal/app"
	"github.com/Turistty/Simplifique-Application/internal/app/domain/order"
	cartsvc "github.com/Turistty/Simplifique-Application/internal/app/services/cart"
	catalogsvc "github.com/Turistty/Simplifique-Application/internal/app/services/catalog"
	identitysvc "github.com/Turistty/Simplifique-Application/internal/app/services/identity"
	orderssvc "github.com/Turistty/Simplifique-Application/internal/app/services/orders"
	pointssvc "github.com/Turistty/Simplifique-Application/internal/app/services/points"
	"github.com/Turistty/Simplifique-Application/internal/middleware"
)

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app          *app.Application
	guard        *middleware.Guard
	audit        *auditTrail
	cookieSecure bool
}

// Options configures the REST surface.
type Options struct {
	// AuditFile, when set, receives audit entries as JSONL in addition to
	// the bounded in-memory log.
	AuditFile string
	// CookieSecure marks the session cookie Secure; enable behind TLS.
	CookieSecure bool
}

// NewHandler returns a mux exposing the core REST API.
func NewHandler(application *app.Application, guard *middleware.Guard, opts Options) (http.Handler, error) {
	var sink auditSink
	if opts.AuditFile != "" {
		fileSink, err := newFileAuditSink(opts.AuditFile)
		if err != nil {
			return nil, fmt.Errorf("open audit file: %w", err)
		}
		sink = fileSink
	}

	h := &handler{
		app:          application,
		guard:        guard,
		audit:        newAuditTrail(0, sink),
		cookieSecure: opts.CookieSecure,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.healthz)
	mux.HandleFunc("/api/login", h.login)
	mux.HandleFunc("/api/logout", h.logout)

	authed := func(fn http.HandlerFunc) http.Handler {
		return guard.RequireSession(h.audited(fn))
	}
	admin := func(fn http.HandlerFunc) http.Handler {
		return guard.RequireAdmin(h.audited(fn))
	}

	mux.Handle("/api/me", authed(h.me))
	mux.Handle("/api/pontos", authed(h.pontos))
	mux.Handle("/api/brindes", authed(h.brindes))
	mux.Handle("/api/brindes/", authed(h.brindeResources))
	mux.Handle("/api/carrinho", authed(h.carrinho))
	mux.Handle("/api/carrinho/", authed(h.carrinhoActions))
	mux.Handle("/api/movimentacoes", authed(h.movimentacoes))
	mux.Handle("/api/movimentacoes/resgate", authed(h.resgate))
	mux.Handle("/api/movimentacoes/confirmar", admin(h.confirmar))
	mux.Handle("/audit", admin(h.auditEntries))
	return mux, nil
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

var cookieMaxAge = int((8 * time.Hour).Seconds())

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		NP    string `json:"np"`
		Senha string `json:"senha"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	user, err := h.app.Identity.Authenticate(r.Context(), payload.NP, payload.Senha)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	token, err := h.app.Identity.IssueToken(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   cookieMaxAge,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{
		"id":   user.ID,
		"nome": user.Name,
		"role": user.Role,
	})
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFromContext(r.Context())
	user, err := h.app.Identity.Me(r.Context(), session)
	if err != nil {
		// A valid token for a vanished account behaves as unauthenticated.
		writeError(w, http.StatusUnauthorized, errors.New("unauthorized"))
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *handler) pontos(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	session, _ := middleware.SessionFromContext(r.Context())
	balance, err := h.app.Points.Balance(r.Context(), session.UserID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, errors.New("unauthorized"))
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

func (h *handler) brindes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	items, err := h.app.Catalog.ListVariations(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *handler) brindeResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/brindes"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if parts[0] == "produtos" {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		grouped, err := h.app.Catalog.GroupedProducts(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, grouped)
		return
	}

	variantID, err := strconv.Atoi(parts[0])
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if len(parts) == 2 && parts[1] == "estoque" {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		stock, err := h.app.Catalog.VariantStock(r.Context(), variantID)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, catalogsvc.ErrVariantNotFound) {
				status = http.StatusNotFound
			}
			writeError(w, status, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"estoque": stock})
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *handler) carrinho(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFromContext(r.Context())
	switch r.Method {
	case http.MethodGet:
		items := h.app.Cart.Items(session.UserID)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"items": items,
			"total": h.app.Cart.Total(session.UserID),
			"count": h.app.Cart.Count(session.UserID),
		})
	case http.MethodPost:
		var payload struct {
			ProductID int    `json:"productId"`
			VariantID int    `json:"variantId"`
			Size      string `json:"selectedSize"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		// A product id resolves through the size label; an omitted or
		// unmatched size lands on the product's first variant. A variant id
		// addresses the row directly.
		if payload.ProductID != 0 {
			item, err := h.app.Cart.AddProduct(r.Context(), session.UserID, payload.ProductID, payload.Size)
			if err != nil {
				writeError(w, cartStatus(err), err)
				return
			}
			writeJSON(w, http.StatusCreated, item)
			return
		}
		item, err := h.app.Cart.Add(r.Context(), session.UserID, payload.VariantID, payload.Size)
		if err != nil {
			writeError(w, cartStatus(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, item)
	case http.MethodDelete:
		h.app.Cart.Clear(session.UserID)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) carrinhoActions(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFromContext(r.Context())
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/carrinho"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch parts[0] {
	case "checkout":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		movs, err := h.app.Cart.Checkout(r.Context(), session.UserID)
		if err != nil {
			writeError(w, cartStatus(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, movs)
	case "notificacao":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if notice, ok := h.app.Cart.Notifier().Current(session.UserID); ok {
			writeJSON(w, http.StatusOK, notice)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		// Remaining actions address one cart entry by key.
		key := parts[0]
		if len(parts) == 1 && r.Method == http.MethodDelete {
			if err := h.app.Cart.Remove(session.UserID, key); err != nil {
				writeError(w, cartStatus(err), err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if len(parts) != 2 || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var item interface{}
		var err error
		switch parts[1] {
		case "incrementar":
			item, err = h.app.Cart.Increment(r.Context(), session.UserID, key)
		case "decrementar":
			item, err = h.app.Cart.Decrement(session.UserID, key)
		default:
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err != nil {
			writeError(w, cartStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

func (h *handler) movimentacoes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	session, _ := middleware.SessionFromContext(r.Context())
	userID := session.UserID
	if session.IsAdmin() && r.URL.Query().Get("todos") == "1" {
		userID = ""
	}
	movs, err := h.app.Orders.ListMovements(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, movs)
}

func (h *handler) resgate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	session, _ := middleware.SessionFromContext(r.Context())
	var payload struct {
		Items []order.RedemptionItem `json:"items"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	movs, err := h.app.Orders.CreateRedemption(r.Context(), session.UserID, payload.Items)
	if err != nil {
		writeError(w, redemptionStatus(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, movs)
}

func (h *handler) confirmar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		MovementID string `json:"mov_id"`
		Cancel     bool   `json:"cancelar"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(payload.MovementID) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("mov_id is required"))
		return
	}

	var mov order.Movement
	var err error
	if payload.Cancel {
		mov, err = h.app.Orders.Cancel(r.Context(), payload.MovementID)
	} else {
		mov, err = h.app.Orders.Confirm(r.Context(), payload.MovementID)
	}
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, sql.ErrNoRows) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, mov)
}

func (h *handler) auditEntries(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}
	writeJSON(w, http.StatusOK, h.audit.tail(limit))
}

// audited records authenticated requests in the bounded audit trail.
func (h *handler) audited(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		session, _ := middleware.SessionFromContext(r.Context())
		resource, resourceID := classifyResource(r.URL.Path)
		h.audit.record(auditRecord{
			Time:       time.Now().UTC(),
			User:       session.UserID,
			Role:       session.Role,
			Method:     r.Method,
			Path:       r.URL.Path,
			Resource:   resource,
			ResourceID: resourceID,
			Status:     rec.status,
			RemoteAddr: r.RemoteAddr,
		})
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func cartStatus(err error) int {
	switch {
	case errors.Is(err, cartsvc.ErrEmptyCart), errors.Is(err, cartsvc.ErrItemNotInCart):
		return http.StatusBadRequest
	default:
		return redemptionStatus(err)
	}
}

func redemptionStatus(err error) int {
	switch {
	case errors.Is(err, orderssvc.ErrOutOfStock):
		return http.StatusConflict
	case errors.Is(err, orderssvc.ErrUnpriced):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pointssvc.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, catalogsvc.ErrVariantNotFound):
		return http.StatusNotFound
	case errors.Is(err, identitysvc.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusBadRequest
	}
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
