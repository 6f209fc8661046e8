package app

import "budget-engine/internal/core"

// PriceResult is returned by ResolvePrice. Price is nil when Found is false.
type PriceResult struct {
	Item    core.ItemRef         `json:"item"`
	Found   bool                 `json:"found"`
	Price   *core.EffectivePrice `json:"price,omitempty"`
	Message string               `json:"message,omitempty"`
}

// PermissionsResult is a permission set plus the reason for every blocked action.
type PermissionsResult struct {
	Permissions core.PermissionSet     `json:"permissions"`
	Blocked     map[core.Action]string `json:"blocked"`
}

// BudgetResult is returned by budget operations.
type BudgetResult struct {
	Budget    *core.Budget          `json:"budget"`
	Revisions []core.BudgetRevision `json:"revisions,omitempty"`
}

// RevisionResult is returned by revision lifecycle operations.
type RevisionResult struct {
	Revision    *core.BudgetRevision `json:"revision"`
	Permissions *PermissionsResult   `json:"permissions"`
}

// MarkupResult is returned by markup operations. Rule is nil when none is set.
type MarkupResult struct {
	RevisionID int              `json:"revision_id"`
	Rule       *core.MarkupRule `json:"rule"`
}

// SummaryResult is returned by ComputeSummary.
type SummaryResult struct {
	RevisionID int                `json:"revision_id"`
	Lines      []core.BudgetLine  `json:"lines"`
	Summary    core.BudgetSummary `json:"summary"`
	Markup     *core.MarkupRule   `json:"markup,omitempty"`
}

// ProjectResult is returned by promotion operations.
type ProjectResult struct {
	Project *core.Project       `json:"project"`
	Summary *core.BudgetSummary `json:"summary,omitempty"`
}

// ImportResult is returned by ImportPricebooks.
type ImportResult struct {
	Pricebooks []core.Pricebook `json:"pricebooks"`
	Entries    int              `json:"entries"`
}

func permissionsResult(p core.PermissionSet) *PermissionsResult {
	blocked := make(map[core.Action]string)
	for _, a := range core.AllActions {
		if reason := p.Reason(a); reason != "" {
			blocked[a] = reason
		}
	}
	return &PermissionsResult{Permissions: p, Blocked: blocked}
}
