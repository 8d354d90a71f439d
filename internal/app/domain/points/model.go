// Package points holds the ledger model backing user point balances.
package points

import "time"

// Entry kinds.
const (
	KindCredit = "credito"
	KindDebit  = "debito"
)

// Entry statuses.
const (
	StatusConfirmed  = "confirmado"
	StatusProcessing = "processando"
	StatusCanceled   = "cancelado"
)

// Entry is a single point movement in a user's ledger.
type Entry struct {
	ID         string    `json:"id"`
	UserID     string    `json:"usuario_id"`
	Kind       string    `json:"tipo"`
	Quantity   int       `json:"quantidade"`
	Status     string    `json:"status"`
	Origin     string    `json:"origem,omitempty"`
	Reference  string    `json:"referencia_id,omitempty"`
	Note       string    `json:"observacao,omitempty"`
	MovedAt    time.Time `json:"data_movimento"`
	RecordedBy string    `json:"registrado_por,omitempty"`
}

// Balance is the computed balance view for a user. All figures derive from
// the ledger; callers never compute them independently.
type Balance struct {
	Available  int     `json:"saldo_atual"`
	Processing int     `json:"em_processamento"`
	Total      int     `json:"total"`
	Withdrawn  int     `json:"retirado"`
	History    []Entry `json:"historico"`
}
