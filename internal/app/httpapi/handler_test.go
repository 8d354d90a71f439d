package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	app "github.com/Turistty/Simplifique-Application/internal/app"
	"github.com/Turistty/Simplifique-Application/internal/app/domain/identity"
	"github.com/Turistty/Simplifique-Application/internal/app/domain/order"
	"github.com/Turistty/Simplifique-Application/internal/app/domain/points"
	"github.com/Turistty/Simplifique-Application/internal/app/domain/reward"
	"github.com/Turistty/Simplifique-Application/internal/middleware"
	"github.com/Turistty/Simplifique-Application/pkg/logger"
)

type env struct {
	app     *app.Application
	handler http.Handler
	user    identity.User
	admin   identity.User
}

func newEnv(t *testing.T) *env {
	t.Helper()

	application, err := app.New(app.Stores{}, app.Options{
		TokenSecret: "test-secret",
		TokenTTL:    time.Hour,
	}, logger.NewDefault("httpapi-test"))
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}

	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()
	user, err := application.Users.Create(ctx, "NP100", "senha-user", "Ana", "ana@example.com", "TI", identity.RoleUser)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	admin, err := application.Users.Create(ctx, "NP900", "senha-admin", "Root", "", "", identity.RoleAdmin)
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}

	guard := middleware.NewGuard(application.Identity, nil, nil)
	handler, err := NewHandler(application, guard, Options{})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	return &env{app: application, handler: handler, user: user, admin: admin}
}

func (e *env) cookieFor(t *testing.T, user identity.User) *http.Cookie {
	t.Helper()
	token, err := e.app.Identity.IssueToken(user)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return &http.Cookie{Name: middleware.AuthCookieName, Value: token}
}

func (e *env) do(t *testing.T, method, path string, body interface{}, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func TestLoginSetsCookie(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodPost, "/api/login", map[string]string{"np": "NP100", "senha": "senha-user"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}

	var found bool
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == middleware.AuthCookieName && cookie.Value != "" && cookie.HttpOnly {
			found = true
		}
	}
	if !found {
		t.Fatal("login must set an http-only auth cookie")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodPost, "/api/login", map[string]string{"np": "NP100", "senha": "errada"}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAuthenticatedRoutesRequireCookie(t *testing.T) {
	e := newEnv(t)

	for _, path := range []string{"/api/me", "/api/pontos", "/api/brindes", "/api/carrinho"} {
		rec := e.do(t, http.MethodGet, path, nil, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("GET %s without cookie = %d, want 401", path, rec.Code)
		}
	}
}

func TestPontosReturnsBalance(t *testing.T) {
	e := newEnv(t)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()
	if _, err := e.app.Points.Credit(ctx, e.user.ID, 750, "campanha", "", "admin"); err != nil {
		t.Fatalf("credit: %v", err)
	}

	rec := e.do(t, http.MethodGet, "/api/pontos", nil, e.cookieFor(t, e.user))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}

	var balance points.Balance
	if err := json.Unmarshal(rec.Body.Bytes(), &balance); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if balance.Available != 750 {
		t.Fatalf("saldo_atual = %d, want 750", balance.Available)
	}
}

func TestBrindesEndpoints(t *testing.T) {
	e := newEnv(t)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()
	item, err := e.app.Catalog.CreateItem(ctx, reward.Item{ProductID: 1, Name: "Camiseta - P", Size: "P", PointsCost: 700, StockInitial: 5})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if _, err := e.app.Catalog.CreateItem(ctx, reward.Item{ProductID: 1, Name: "Camiseta - GG", Size: "GG", PointsCost: 650, StockInitial: 3}); err != nil {
		t.Fatalf("create item: %v", err)
	}

	cookie := e.cookieFor(t, e.user)

	rec := e.do(t, http.MethodGet, "/api/brindes", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("brindes status = %d", rec.Code)
	}
	var items []reward.Item
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}

	rec = e.do(t, http.MethodGet, "/api/brindes/produtos", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("produtos status = %d", rec.Code)
	}
	var grouped []reward.Reward
	if err := json.Unmarshal(rec.Body.Bytes(), &grouped); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(grouped) != 1 || grouped[0].Name != "Camiseta" || grouped[0].Stock != 8 {
		t.Fatalf("grouped = %+v", grouped)
	}

	rec = e.do(t, http.MethodGet, fmt.Sprintf("/api/brindes/%d/estoque", item.ID), nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("estoque status = %d", rec.Code)
	}
	var stock map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &stock); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stock["estoque"] != 5 {
		t.Fatalf("estoque = %d, want 5", stock["estoque"])
	}

	rec = e.do(t, http.MethodGet, "/api/brindes/9999/estoque", nil, cookie)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown variant status = %d, want 404", rec.Code)
	}
}

func TestResgateFlow(t *testing.T) {
	e := newEnv(t)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()
	item, err := e.app.Catalog.CreateItem(ctx, reward.Item{ProductID: 1, Name: "Caneca", PointsCost: 400, StockInitial: 5})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if _, err := e.app.Points.Credit(ctx, e.user.ID, 1000, "campanha", "", "admin"); err != nil {
		t.Fatalf("credit: %v", err)
	}

	userCookie := e.cookieFor(t, e.user)

	rec := e.do(t, http.MethodPost, "/api/movimentacoes/resgate", map[string]interface{}{
		"items": []map[string]int{{"variantId": item.ID, "quantity": 2}},
	}, userCookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("resgate status = %d body=%s", rec.Code, rec.Body.String())
	}
	var movs []order.Movement
	if err := json.Unmarshal(rec.Body.Bytes(), &movs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(movs) != 1 || movs[0].Status != order.StatusProcessing {
		t.Fatalf("movements = %+v", movs)
	}

	// Confirmation is an admin operation.
	rec = e.do(t, http.MethodPost, "/api/movimentacoes/confirmar", map[string]string{"mov_id": movs[0].ID}, userCookie)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("user confirm status = %d, want 403", rec.Code)
	}

	rec = e.do(t, http.MethodPost, "/api/movimentacoes/confirmar", map[string]string{"mov_id": movs[0].ID}, e.cookieFor(t, e.admin))
	if rec.Code != http.StatusOK {
		t.Fatalf("admin confirm status = %d body=%s", rec.Code, rec.Body.String())
	}

	rec = e.do(t, http.MethodGet, fmt.Sprintf("/api/brindes/%d/estoque", item.ID), nil, userCookie)
	var stock map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &stock); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stock["estoque"] != 3 {
		t.Fatalf("estoque = %d, want 3 after confirmed redemption", stock["estoque"])
	}
}

func TestResgateInsufficientBalance(t *testing.T) {
	e := newEnv(t)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()
	item, err := e.app.Catalog.CreateItem(ctx, reward.Item{ProductID: 1, Name: "Caneca", PointsCost: 400, StockInitial: 5})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}

	rec := e.do(t, http.MethodPost, "/api/movimentacoes/resgate", map[string]interface{}{
		"items": []map[string]int{{"variantId": item.ID, "quantity": 1}},
	}, e.cookieFor(t, e.user))
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402", rec.Code)
	}
}

func TestCarrinhoFlow(t *testing.T) {
	e := newEnv(t)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()
	item, err := e.app.Catalog.CreateItem(ctx, reward.Item{ProductID: 1, Name: "Caneca", PointsCost: 400, StockInitial: 5})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if _, err := e.app.Points.Credit(ctx, e.user.ID, 1000, "campanha", "", "admin"); err != nil {
		t.Fatalf("credit: %v", err)
	}
	cookie := e.cookieFor(t, e.user)

	rec := e.do(t, http.MethodPost, "/api/carrinho", map[string]interface{}{"variantId": item.ID}, cookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add status = %d body=%s", rec.Code, rec.Body.String())
	}

	rec = e.do(t, http.MethodGet, "/api/carrinho", nil, cookie)
	var view struct {
		Total int `json:"total"`
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.Total != 400 || view.Count != 1 {
		t.Fatalf("cart view = %+v", view)
	}

	rec = e.do(t, http.MethodPost, "/api/carrinho/checkout", nil, cookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("checkout status = %d body=%s", rec.Code, rec.Body.String())
	}

	rec = e.do(t, http.MethodGet, "/api/carrinho", nil, cookie)
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.Count != 0 {
		t.Fatalf("cart must be empty after checkout, got count %d", view.Count)
	}
}

func TestCarrinhoAddByProductResolvesSize(t *testing.T) {
	e := newEnv(t)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()
	small, err := e.app.Catalog.CreateItem(ctx, reward.Item{ProductID: 7, Name: "Camiseta - P", Size: "P", PointsCost: 650, StockInitial: 3})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if _, err := e.app.Catalog.CreateItem(ctx, reward.Item{ProductID: 7, Name: "Camiseta - M", Size: "M", PointsCost: 650, StockInitial: 3}); err != nil {
		t.Fatalf("create item: %v", err)
	}
	if _, err := e.app.Points.Credit(ctx, e.user.ID, 2000, "campanha", "", "admin"); err != nil {
		t.Fatalf("credit: %v", err)
	}
	cookie := e.cookieFor(t, e.user)

	// An unmatched size lands on the product's first variant.
	rec := e.do(t, http.MethodPost, "/api/carrinho", map[string]interface{}{"productId": 7, "selectedSize": "GG"}, cookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add status = %d body=%s", rec.Code, rec.Body.String())
	}
	var item struct {
		VariantID int    `json:"variantId"`
		Size      string `json:"selectedSize"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &item); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if item.VariantID != small.ID || item.Size != "P" {
		t.Fatalf("resolved item = %+v, want first variant %d size P", item, small.ID)
	}
}

func TestCarrinhoAddRejectsWithoutBalance(t *testing.T) {
	e := newEnv(t)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()
	item, err := e.app.Catalog.CreateItem(ctx, reward.Item{ProductID: 1, Name: "Caneca", PointsCost: 400, StockInitial: 5})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}

	rec := e.do(t, http.MethodPost, "/api/carrinho", map[string]interface{}{"variantId": item.ID}, e.cookieFor(t, e.user))
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402 for unaffordable add", rec.Code)
	}
}

func TestAuditEndpoint(t *testing.T) {
	e := newEnv(t)
	userCookie := e.cookieFor(t, e.user)
	adminCookie := e.cookieFor(t, e.admin)

	e.do(t, http.MethodGet, "/api/pontos", nil, userCookie)

	rec := e.do(t, http.MethodGet, "/audit", nil, userCookie)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("user audit status = %d, want 403", rec.Code)
	}

	rec = e.do(t, http.MethodGet, "/audit", nil, adminCookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin audit status = %d", rec.Code)
	}
	var entries []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("audit log should hold the recorded request")
	}
	if entries[0]["resource"] != "pontos" {
		t.Fatalf("resource = %v, want pontos", entries[0]["resource"])
	}
}

func TestHealthz(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodGet, "/healthz", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
