package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProjectStatusPlanned is the status of every project created by promotion.
const ProjectStatusPlanned = "planned"

// Project is the execution record created from an approved revision.
type Project struct {
	ID            int             `json:"id"`
	ClientID      int             `json:"client_id"`
	Name          string          `json:"name"`
	OrderNumber   string          `json:"order_number"`
	Status        string          `json:"status"`
	Approved      bool            `json:"approved"`
	ContractValue decimal.Decimal `json:"contract_value"`
	Location      Location        `json:"location"`
	RevisionID    int             `json:"revision_id"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ProjectInput is what the promotion workflow hands to the project store.
type ProjectInput struct {
	ClientID      int
	Name          string
	OrderNumber   string
	Status        string
	Approved      bool
	ContractValue decimal.Decimal
	Location      Location
	RevisionID    int
}
