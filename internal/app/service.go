package app

import (
	"context"
	"time"

	"budget-engine/internal/core"
)

// ApplicationService is the single interface all UI adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println and no display logic of any kind.
type ApplicationService interface {
	// ResolvePrice returns the effective price of an item. A miss is reported in the
	// result with Found=false, not as an error.
	ResolvePrice(ctx context.Context, req ResolvePriceRequest) (*PriceResult, error)

	// StatusPermissions returns the permission set of a status, without touching storage.
	StatusPermissions(status core.RevisionStatus) *PermissionsResult

	// RevisionPermissions returns what the stored revision currently allows.
	RevisionPermissions(ctx context.Context, revisionID int) (*PermissionsResult, error)

	CreateBudget(ctx context.Context, req CreateBudgetRequest) (*BudgetResult, error)
	GetBudget(ctx context.Context, budgetID int) (*BudgetResult, error)

	// CreateRevision branches a new DRAFT revision, optionally from an existing one.
	CreateRevision(ctx context.Context, budgetID int, fromRevisionID *int) (*RevisionResult, error)
	GetRevision(ctx context.Context, revisionID int) (*RevisionResult, error)

	// TransitionRevision moves a revision to target status.
	TransitionRevision(ctx context.Context, revisionID int, target core.RevisionStatus) (*RevisionResult, error)

	// PerformAction applies send/approve/reject/cancel to a revision.
	PerformAction(ctx context.Context, revisionID int, action core.Action) (*RevisionResult, error)

	// GetMarkup returns the revision's markup rule; Rule is nil when none is set.
	GetMarkup(ctx context.Context, revisionID int) (*MarkupResult, error)

	// UpsertMarkup writes the markup rule after checking the revision is editable.
	UpsertMarkup(ctx context.Context, revisionID int, in core.MarkupInput) (*MarkupResult, error)

	// ComputeSummary resolves the lines against the budget's scope and applies markup.
	ComputeSummary(ctx context.Context, req SummaryRequest) (*SummaryResult, error)

	// Promote creates a project from an APPROVED revision.
	Promote(ctx context.Context, req PromoteRequest) (*ProjectResult, error)

	// RetryLink re-runs the link step after a promotion failed with a LinkError.
	RetryLink(ctx context.Context, revisionID, projectID int) (*ProjectResult, error)

	CreatePricebook(ctx context.Context, in core.PricebookInput) (*core.Pricebook, error)
	AddPriceEntry(ctx context.Context, in core.PriceEntryInput) (*core.PriceListEntry, error)
	ListPricebooks(ctx context.Context, itemType *core.ItemType) ([]core.Pricebook, error)
	SetPricebookActive(ctx context.Context, pricebookID int, active bool) error

	// SetPricebookValidity replaces a pricebook's validity window. A nil bound is open.
	SetPricebookValidity(ctx context.Context, pricebookID int, from, to *time.Time) error

	// ImportPricebooks creates every pricebook in doc together with its entries.
	ImportPricebooks(ctx context.Context, doc PricebookImport) (*ImportResult, error)
}
