package httpapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	app "github.com/Turistty/Simplifique-Application/internal/app"
	"github.com/Turistty/Simplifique-Application/internal/app/domain/reward"
	"github.com/Turistty/Simplifique-Application/pkg/logger"
)

func newAdminEnv(t *testing.T) (*app.Application, http.Handler) {
	t.Helper()
	application, err := app.New(app.Stores{}, app.Options{
		TokenSecret: "test-secret",
		TokenTTL:    time.Hour,
	}, logger.NewDefault("admin-test"))
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	return application, NewAdminRouter(application)
}

func TestAdminItemLifecycle(t *testing.T) {
	_, router := newAdminEnv(t)

	body, _ := json.Marshal(reward.Item{ProductID: 1, Name: "Caneca", PointsCost: 400, StockInitial: 10})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/brindes", bytes.NewReader(body)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", rec.Code, rec.Body.String())
	}
	var created reward.Item
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/brindes", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}

	body, _ = json.Marshal(map[string]int{"quantidade": 5})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/brindes/"+strconv.Itoa(created.ID)+"/estoque", bytes.NewReader(body)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("restock status = %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestAdminUserImport(t *testing.T) {
	application, router := newAdminEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("arquivo", "usuarios.csv")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	part.Write([]byte("np,name,email,points\nNP1,Ana,ana@example.com,500\nNP2,Bruno,bruno@example.com,0\n"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/admin/usuarios/importar", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d body=%s", rec.Code, rec.Body.String())
	}

	users, err := application.Users.List(req.Context())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("users = %d, want 2", len(users))
	}
}

func TestAdminKPIs(t *testing.T) {
	_, router := newAdminEnv(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/kpis", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("kpis status = %d", rec.Code)
	}
	var kpis map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &kpis); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := kpis["usuarios"]; !ok {
		t.Fatalf("kpis = %v", kpis)
	}
}
