package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RevisionStatus is the lifecycle state of a budget revision.
//
//	DRAFT → SENT → APPROVED | REJECTED
//	DRAFT | SENT → CANCELED
type RevisionStatus string

const (
	RevisionDraft    RevisionStatus = "DRAFT"
	RevisionSent     RevisionStatus = "SENT"
	RevisionApproved RevisionStatus = "APPROVED"
	RevisionRejected RevisionStatus = "REJECTED"
	RevisionCanceled RevisionStatus = "CANCELED"
)

// AllRevisionStatuses lists every status in lifecycle order.
var AllRevisionStatuses = []RevisionStatus{RevisionDraft, RevisionSent, RevisionApproved, RevisionRejected, RevisionCanceled}

// ParseRevisionStatus accepts the canonical names case-insensitively.
func ParseRevisionStatus(s string) (RevisionStatus, error) {
	st := RevisionStatus(strings.ToUpper(strings.TrimSpace(s)))
	for _, v := range AllRevisionStatuses {
		if v == st {
			return v, nil
		}
	}
	return "", &ValidationError{Field: "status", Message: fmt.Sprintf("unknown revision status %q", s)}
}

// Budget is the parent of a chain of revisions.
// ClientID is the customer company the budget is addressed to.
type Budget struct {
	ID        int       `json:"id"`
	CompanyID int       `json:"company_id"`
	ClientID  int       `json:"client_id"`
	RegionID  *int      `json:"region_id,omitempty"`
	WorkName  string    `json:"work_name"`
	Location  Location  `json:"location"`
	CreatedAt time.Time `json:"created_at"`
}

// Location is the work site address, copied onto the project at promotion.
type Location struct {
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
}

// BudgetRevision is one numbered version of a budget.
// ProjectID is written once, on promotion of an APPROVED revision.
type BudgetRevision struct {
	ID             int            `json:"id"`
	BudgetID       int            `json:"budget_id"`
	RevisionNumber int            `json:"revision_number"`
	Status         RevisionStatus `json:"status"`
	ProjectID      *int           `json:"projeto_id,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// BudgetLine is a priced quantity of one item in a revision.
// UnitPrice is nil until resolved, and stays nil when no pricebook applies.
type BudgetLine struct {
	Item           ItemRef          `json:"item"`
	ManufacturerID *int             `json:"manufacturer_id,omitempty"`
	Quantity       decimal.Decimal  `json:"quantity"`
	WBSCode        string           `json:"wbs_code,omitempty"`
	MarkupOverride *decimal.Decimal `json:"markup_override,omitempty"`
	UnitPrice      *EffectivePrice  `json:"unit_price,omitempty"`
}
