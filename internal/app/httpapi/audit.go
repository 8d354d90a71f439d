package httpapi

import (
	"encoding/json"
	"os"
	"strings"
	"sync"
	"time"
)

// auditRecord captures one authenticated request, tagged with the loyalty
// resource it touched so an admin can trace a cart mutation or a movement
// transition back to its actor.
type auditRecord struct {
	Time       time.Time `json:"time"`
	User       string    `json:"user"`
	Role       string    `json:"role"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Resource   string    `json:"resource,omitempty"`
	ResourceID string    `json:"resource_id,omitempty"`
	Status     int       `json:"status"`
	RemoteAddr string    `json:"remote_addr,omitempty"`
}

// classifyResource maps an API path onto the loyalty resource it addresses
// and, when the path carries one, the identifier acted on: a variant id, a
// cart key or a movement action.
func classifyResource(path string) (resource, id string) {
	trimmed := strings.Trim(strings.TrimPrefix(path, "/api"), "/")
	if trimmed == "" {
		return "", ""
	}
	parts := strings.Split(trimmed, "/")
	switch parts[0] {
	case "brindes":
		resource = "brinde"
	case "carrinho":
		resource = "carrinho"
	case "movimentacoes":
		resource = "movimentacao"
	case "pontos":
		resource = "pontos"
	case "me":
		resource = "conta"
	default:
		resource = parts[0]
	}
	if len(parts) > 1 {
		id = parts[1]
	}
	return resource, id
}

// auditTrail is a bounded in-memory record of authenticated requests,
// optionally mirrored to a JSONL sink.
type auditTrail struct {
	mu      sync.Mutex
	records []auditRecord
	keep    int
	sink    auditSink
}

type auditSink interface {
	Write(rec auditRecord) error
}

func newAuditTrail(keep int, sink auditSink) *auditTrail {
	if keep <= 0 {
		keep = 200
	}
	return &auditTrail{keep: keep, sink: sink}
}

func (t *auditTrail) record(rec auditRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = append(t.records, rec)
	if len(t.records) > t.keep {
		t.records = t.records[len(t.records)-t.keep:]
	}
	if t.sink != nil {
		// The sink must never stall request handling.
		_ = t.sink.Write(rec)
	}
}

// tail returns the most recent records, oldest first. A non-positive limit
// returns everything retained.
func (t *auditTrail) tail(limit int) []auditRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	if limit <= 0 || limit > t.keep {
		limit = t.keep
	}
	records := t.records
	if len(records) > limit {
		records = records[len(records)-limit:]
	}
	out := make([]auditRecord, len(records))
	copy(out, records)
	return out
}

// fileAuditSink appends records to a file as JSON lines.
type fileAuditSink struct {
	mu  sync.Mutex
	out *os.File
}

func newFileAuditSink(path string) (*fileAuditSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, err
	}
	return &fileAuditSink{out: f}, nil
}

func (s *fileAuditSink) Write(rec auditRecord) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.out.Write(append(line, '\n'))
	return err
}
