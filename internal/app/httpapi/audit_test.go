package httpapi

import "testing"

func TestClassifyResource(t *testing.T) {
	cases := []struct {
		path     string
		resource string
		id       string
	}{
		{"/api/pontos", "pontos", ""},
		{"/api/me", "conta", ""},
		{"/api/brindes", "brinde", ""},
		{"/api/brindes/42/estoque", "brinde", "42"},
		{"/api/carrinho", "carrinho", ""},
		{"/api/carrinho/7_M/incrementar", "carrinho", "7_M"},
		{"/api/carrinho/checkout", "carrinho", "checkout"},
		{"/api/movimentacoes/resgate", "movimentacao", "resgate"},
		{"/audit", "audit", ""},
	}
	for _, tc := range cases {
		resource, id := classifyResource(tc.path)
		if resource != tc.resource || id != tc.id {
			t.Errorf("classifyResource(%q) = (%q, %q), want (%q, %q)",
				tc.path, resource, id, tc.resource, tc.id)
		}
	}
}

func TestAuditTrailKeepsMostRecent(t *testing.T) {
	trail := newAuditTrail(3, nil)
	for _, user := range []string{"u1", "u2", "u3", "u4", "u5"} {
		trail.record(auditRecord{User: user, Path: "/api/pontos"})
	}

	records := trail.tail(0)
	if len(records) != 3 {
		t.Fatalf("retained = %d, want 3", len(records))
	}
	if records[0].User != "u3" || records[2].User != "u5" {
		t.Fatalf("retained window = %q..%q, want u3..u5", records[0].User, records[2].User)
	}

	if got := trail.tail(2); len(got) != 2 || got[0].User != "u4" {
		t.Fatalf("tail(2) = %+v, want the two newest", got)
	}
}
