package app

import (
	"time"

	"budget-engine/internal/core"

	"github.com/shopspring/decimal"
)

// ResolvePriceRequest is the input for a single price lookup.
// AsOf is YYYY-MM-DD; empty means today.
type ResolvePriceRequest struct {
	ItemType       string `json:"item_type"`
	ItemID         int    `json:"item_id"`
	CompanyID      *int   `json:"company_id,omitempty"`
	RegionID       *int   `json:"region_id,omitempty"`
	ManufacturerID *int   `json:"manufacturer_id,omitempty"`
	AsOf           string `json:"as_of,omitempty"`
}

// CreateBudgetRequest is the input for creating a budget.
type CreateBudgetRequest struct {
	CompanyID int           `json:"company_id"`
	ClientID  int           `json:"client_id"`
	RegionID  *int          `json:"region_id,omitempty"`
	WorkName  string        `json:"work_name"`
	Location  core.Location `json:"location"`
}

// LineInput is one item quantity in a summary or promotion request.
type LineInput struct {
	ItemType       string           `json:"item_type"`
	ItemID         int              `json:"item_id"`
	ManufacturerID *int             `json:"manufacturer_id,omitempty"`
	Quantity       decimal.Decimal  `json:"quantity"`
	WBSCode        string           `json:"wbs_code,omitempty"`
	MarkupOverride *decimal.Decimal `json:"markup_override,omitempty"`
}

// SummaryRequest asks for the priced totals of a revision.
type SummaryRequest struct {
	RevisionID int         `json:"revision_id"`
	AsOf       string      `json:"as_of,omitempty"`
	Lines      []LineInput `json:"lines"`
}

// PromoteRequest asks to promote a revision. Without lines the contract value is zero.
type PromoteRequest struct {
	RevisionID int         `json:"revision_id"`
	AsOf       string      `json:"as_of,omitempty"`
	Lines      []LineInput `json:"lines,omitempty"`
}

// PricebookImport is the document accepted by ImportPricebooks.
type PricebookImport struct {
	Pricebooks []PricebookImportItem `json:"pricebooks" jsonschema:"required"`
}

// PricebookImportItem is one pricebook with its entries. Entry pricebook ids are ignored.
type PricebookImportItem struct {
	core.PricebookInput
	Entries []core.PriceEntryInput `json:"entries"`
}

func parseAsOf(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return now, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, &core.ValidationError{Field: "as_of", Message: "expected YYYY-MM-DD"}
	}
	return t, nil
}

func toBudgetLines(in []LineInput) ([]core.BudgetLine, error) {
	lines := make([]core.BudgetLine, 0, len(in))
	for _, l := range in {
		t, err := core.ParseItemType(l.ItemType)
		if err != nil {
			return nil, err
		}
		if l.Quantity.IsNegative() {
			return nil, &core.ValidationError{Field: "quantity", Message: "must be >= 0"}
		}
		lines = append(lines, core.BudgetLine{
			Item:           core.ItemRef{Type: t, ID: l.ItemID},
			ManufacturerID: l.ManufacturerID,
			Quantity:       l.Quantity,
			WBSCode:        l.WBSCode,
			MarkupOverride: l.MarkupOverride,
		})
	}
	return lines, nil
}
