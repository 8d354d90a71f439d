package users

import (
	"context"
	"strings"
	"testing"

	"github.com/Turistty/Simplifique-Application/internal/app/domain/identity"
	"github.com/Turistty/Simplifique-Application/internal/app/services/points"
	"github.com/Turistty/Simplifique-Application/internal/app/storage/memory"
	"github.com/Turistty/Simplifique-Application/pkg/logger"
)

func newTestService(t *testing.T) (*Service, *points.Service) {
	t.Helper()
	store := memory.New()
	log := logger.NewDefault("users-test")
	pts := points.New(store, log)
	return New(store, pts, log), pts
}

func TestCreateAndUpdate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Create(ctx, "NP1", "senha", "Ana", "ana@example.com", "TI", identity.RoleUser)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !user.Active || user.Role != identity.RoleUser {
		t.Fatalf("user = %+v", user)
	}
	if user.PasswordHash == "senha" || user.PasswordHash == "" {
		t.Fatal("password must be stored hashed")
	}

	if _, err := svc.Create(ctx, "NP1", "outra", "Bia", "", "", identity.RoleUser); err == nil {
		t.Fatal("duplicate NP must be rejected")
	}

	inactive := false
	updated, err := svc.Update(ctx, user.ID, "Ana Maria", "", "", identity.RoleAdmin, &inactive)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != "Ana Maria" || updated.Role != identity.RoleAdmin || updated.Active {
		t.Fatalf("updated = %+v", updated)
	}
	if updated.Email != "ana@example.com" {
		t.Fatalf("blank email must keep stored value, got %q", updated.Email)
	}
}

func TestCreateRequiresNPAndName(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, " ", "senha", "Ana", "", "", ""); err == nil {
		t.Fatal("expected error for blank np")
	}
	if _, err := svc.Create(ctx, "NP1", "senha", " ", "", "", ""); err == nil {
		t.Fatal("expected error for blank name")
	}
}

func TestImportCSV(t *testing.T) {
	svc, pts := newTestService(t)
	ctx := context.Background()

	csvData := strings.Join([]string{
		"np,name,email,points",
		"NP1,Ana,ana@example.com,500",
		"NP2,Bruno,bruno@example.com",
		"NP3,Carla",
		"NP1,Duplicada,dup@example.com,100",
		"NP4,Davi,davi@example.com,abc",
	}, "\n")

	report, err := svc.ImportCSV(ctx, strings.NewReader(csvData), "admin")
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}

	if report.Imported != 3 {
		t.Errorf("imported = %d, want 3 (NP1, NP2, NP4)", report.Imported)
	}
	if report.Credited != 1 {
		t.Errorf("credited = %d, want 1 (only NP1 has valid points)", report.Credited)
	}
	if report.Skipped != 2 {
		t.Errorf("skipped = %d, want 2 (short row and duplicate)", report.Skipped)
	}

	users, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("users = %d, want 3", len(users))
	}

	var ana identity.User
	for _, u := range users {
		if u.NP == "NP1" {
			ana = u
		}
	}
	if ana.ID == "" {
		t.Fatal("NP1 not imported")
	}
	balance, err := pts.Balance(ctx, ana.ID)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance.Available != 500 {
		t.Fatalf("imported balance = %d, want 500", balance.Available)
	}
}

func TestImportCSVWithoutHeader(t *testing.T) {
	svc, _ := newTestService(t)

	report, err := svc.ImportCSV(context.Background(), strings.NewReader("NP9,Eva,eva@example.com,0\n"), "admin")
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if report.Imported != 1 || report.Credited != 0 {
		t.Fatalf("report = %+v, want 1 imported and 0 credited", report)
	}
}
