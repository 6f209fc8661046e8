package app

import (
	"context"
	"fmt"
	"time"

	"budget-engine/internal/core"
)

type appService struct {
	catalog   core.CatalogStore
	resolver  core.PriceResolver
	revisions core.RevisionService
	markups   core.MarkupService
	promotion core.PromotionService
	projects  core.ProjectStore
	now       func() time.Time
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(
	catalog core.CatalogStore,
	resolver core.PriceResolver,
	revisions core.RevisionService,
	markups core.MarkupService,
	promotion core.PromotionService,
	projects core.ProjectStore,
) ApplicationService {
	return &appService{
		catalog:   catalog,
		resolver:  resolver,
		revisions: revisions,
		markups:   markups,
		promotion: promotion,
		projects:  projects,
		now:       time.Now,
	}
}

// ResolvePrice returns the effective price of one item.
func (s *appService) ResolvePrice(ctx context.Context, req ResolvePriceRequest) (*PriceResult, error) {
	itemType, err := core.ParseItemType(req.ItemType)
	if err != nil {
		return nil, err
	}
	asOf, err := parseAsOf(req.AsOf, s.now())
	if err != nil {
		return nil, err
	}
	item := core.ItemRef{Type: itemType, ID: req.ItemID}
	rc := core.ResolutionContext{
		CompanyID:      req.CompanyID,
		RegionID:       req.RegionID,
		ManufacturerID: req.ManufacturerID,
		AsOf:           asOf,
	}

	price, ok, err := s.resolver.Resolve(ctx, item, rc)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &PriceResult{Item: item, Found: false, Message: "no price available for " + item.String()}, nil
	}
	return &PriceResult{Item: item, Found: true, Price: &price}, nil
}

// StatusPermissions returns the permission set of a status.
func (s *appService) StatusPermissions(status core.RevisionStatus) *PermissionsResult {
	return permissionsResult(core.Permissions(status))
}

// RevisionPermissions returns what the stored revision allows.
func (s *appService) RevisionPermissions(ctx context.Context, revisionID int) (*PermissionsResult, error) {
	rev, err := s.revisions.GetRevision(ctx, revisionID)
	if err != nil {
		return nil, err
	}
	return permissionsResult(core.RevisionPermissions(*rev)), nil
}

// CreateBudget creates a budget; revisions are created separately.
func (s *appService) CreateBudget(ctx context.Context, req CreateBudgetRequest) (*BudgetResult, error) {
	b, err := s.revisions.CreateBudget(ctx, core.Budget{
		CompanyID: req.CompanyID,
		ClientID:  req.ClientID,
		RegionID:  req.RegionID,
		WorkName:  req.WorkName,
		Location:  req.Location,
	})
	if err != nil {
		return nil, err
	}
	return &BudgetResult{Budget: b}, nil
}

// GetBudget returns a budget with all its revisions.
func (s *appService) GetBudget(ctx context.Context, budgetID int) (*BudgetResult, error) {
	b, err := s.revisions.GetBudget(ctx, budgetID)
	if err != nil {
		return nil, err
	}
	revs, err := s.revisions.ListRevisions(ctx, budgetID)
	if err != nil {
		return nil, err
	}
	return &BudgetResult{Budget: b, Revisions: revs}, nil
}

// CreateRevision branches a new DRAFT revision.
func (s *appService) CreateRevision(ctx context.Context, budgetID int, fromRevisionID *int) (*RevisionResult, error) {
	rev, err := s.revisions.CreateRevision(ctx, budgetID, fromRevisionID)
	if err != nil {
		return nil, err
	}
	return revisionResult(rev), nil
}

// GetRevision returns a revision with its permissions.
func (s *appService) GetRevision(ctx context.Context, revisionID int) (*RevisionResult, error) {
	rev, err := s.revisions.GetRevision(ctx, revisionID)
	if err != nil {
		return nil, err
	}
	return revisionResult(rev), nil
}

// TransitionRevision moves a revision to target status.
func (s *appService) TransitionRevision(ctx context.Context, revisionID int, target core.RevisionStatus) (*RevisionResult, error) {
	rev, err := s.revisions.TransitionRevision(ctx, revisionID, target)
	if err != nil {
		return nil, err
	}
	return revisionResult(rev), nil
}

// PerformAction maps a lifecycle action to its target status and applies it.
func (s *appService) PerformAction(ctx context.Context, revisionID int, action core.Action) (*RevisionResult, error) {
	target, ok := core.TargetStatus(action)
	if !ok {
		return nil, &core.ValidationError{Field: "action", Message: fmt.Sprintf("%q is not a status transition", action)}
	}
	rev, err := s.revisions.GetRevision(ctx, revisionID)
	if err != nil {
		return nil, err
	}
	if err := core.CheckAction(*rev, action); err != nil {
		return nil, err
	}
	return s.TransitionRevision(ctx, revisionID, target)
}

// GetMarkup returns the revision's markup rule.
func (s *appService) GetMarkup(ctx context.Context, revisionID int) (*MarkupResult, error) {
	rule, err := s.markups.Get(ctx, revisionID)
	if err != nil {
		return nil, err
	}
	return &MarkupResult{RevisionID: revisionID, Rule: rule}, nil
}

// UpsertMarkup checks canEdit, then writes the markup rule.
func (s *appService) UpsertMarkup(ctx context.Context, revisionID int, in core.MarkupInput) (*MarkupResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	rev, err := s.revisions.GetRevision(ctx, revisionID)
	if err != nil {
		return nil, err
	}
	if err := core.CheckAction(*rev, core.ActionEdit); err != nil {
		return nil, err
	}
	rule, err := s.markups.Upsert(ctx, revisionID, in)
	if err != nil {
		return nil, err
	}
	return &MarkupResult{RevisionID: revisionID, Rule: rule}, nil
}

// ComputeSummary prices the lines in the budget's scope and applies the revision markup.
func (s *appService) ComputeSummary(ctx context.Context, req SummaryRequest) (*SummaryResult, error) {
	rev, budget, err := s.loadRevision(ctx, req.RevisionID)
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, rev, budget, req.AsOf, req.Lines)
}

// Promote creates a project from an APPROVED revision. The revision guards run before
// any line is priced.
func (s *appService) Promote(ctx context.Context, req PromoteRequest) (*ProjectResult, error) {
	rev, budget, err := s.loadRevision(ctx, req.RevisionID)
	if err != nil {
		return nil, err
	}
	if err := s.promotion.CheckPromotable(*rev); err != nil {
		return nil, err
	}

	var summary *core.BudgetSummary
	if len(req.Lines) > 0 {
		res, err := s.summarize(ctx, rev, budget, req.AsOf, req.Lines)
		if err != nil {
			return nil, err
		}
		if n := len(res.Summary.MissingPrices); n > 0 {
			return nil, &core.ValidationError{Field: "lines",
				Message: fmt.Sprintf("%d line(s) have no price available", n)}
		}
		if n := len(res.Summary.CurrencyMismatches); n > 0 {
			return nil, &core.ValidationError{Field: "lines",
				Message: fmt.Sprintf("%d line(s) are priced in a currency other than %s", n, res.Summary.Currency)}
		}
		summary = &res.Summary
	}

	project, err := s.promotion.Promote(ctx, *budget, *rev, summary)
	if err != nil {
		return nil, err
	}
	return &ProjectResult{Project: project, Summary: summary}, nil
}

// RetryLink re-links a revision to the project a failed promotion created.
// The project must have been created for that revision.
func (s *appService) RetryLink(ctx context.Context, revisionID, projectID int) (*ProjectResult, error) {
	project, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.RevisionID != revisionID {
		return nil, &core.ValidationError{Field: "project_id",
			Message: fmt.Sprintf("project %d was created for revision %d", project.ID, project.RevisionID)}
	}
	project, err = s.promotion.RetryLink(ctx, &core.LinkError{RevisionID: revisionID, Project: project})
	if err != nil {
		return nil, err
	}
	return &ProjectResult{Project: project}, nil
}

func (s *appService) CreatePricebook(ctx context.Context, in core.PricebookInput) (*core.Pricebook, error) {
	return s.catalog.CreatePricebook(ctx, in)
}

func (s *appService) AddPriceEntry(ctx context.Context, in core.PriceEntryInput) (*core.PriceListEntry, error) {
	return s.catalog.AddEntry(ctx, in)
}

func (s *appService) ListPricebooks(ctx context.Context, itemType *core.ItemType) ([]core.Pricebook, error) {
	return s.catalog.ListPricebooks(ctx, itemType)
}

func (s *appService) SetPricebookActive(ctx context.Context, pricebookID int, active bool) error {
	return s.catalog.SetPricebookActive(ctx, pricebookID, active)
}

func (s *appService) SetPricebookValidity(ctx context.Context, pricebookID int, from, to *time.Time) error {
	if err := core.ValidateWindow(from, to); err != nil {
		return err
	}
	return s.catalog.SetPricebookValidity(ctx, pricebookID, from, to)
}

// ImportPricebooks validates the whole document first, then creates pricebooks and entries.
func (s *appService) ImportPricebooks(ctx context.Context, doc PricebookImport) (*ImportResult, error) {
	if len(doc.Pricebooks) == 0 {
		return nil, &core.ValidationError{Field: "pricebooks", Message: "document is empty"}
	}
	for i, item := range doc.Pricebooks {
		if err := item.PricebookInput.Validate(); err != nil {
			return nil, fmt.Errorf("pricebook %d: %w", i+1, err)
		}
		shape := core.Pricebook{Type: item.Type, ValidFrom: item.ValidFrom, ValidTo: item.ValidTo}
		for j, e := range item.Entries {
			if err := e.ValidateAgainst(shape); err != nil {
				return nil, fmt.Errorf("pricebook %d entry %d: %w", i+1, j+1, err)
			}
		}
	}

	result := &ImportResult{}
	for i, item := range doc.Pricebooks {
		pb, err := s.catalog.CreatePricebook(ctx, item.PricebookInput)
		if err != nil {
			return result, fmt.Errorf("pricebook %d: %w", i+1, err)
		}
		result.Pricebooks = append(result.Pricebooks, *pb)
		for j, e := range item.Entries {
			e.PricebookID = pb.ID
			if _, err := s.catalog.AddEntry(ctx, e); err != nil {
				return result, fmt.Errorf("pricebook %d entry %d: %w", i+1, j+1, err)
			}
			result.Entries++
		}
	}
	return result, nil
}

func (s *appService) loadRevision(ctx context.Context, revisionID int) (*core.BudgetRevision, *core.Budget, error) {
	rev, err := s.revisions.GetRevision(ctx, revisionID)
	if err != nil {
		return nil, nil, err
	}
	budget, err := s.revisions.GetBudget(ctx, rev.BudgetID)
	if err != nil {
		return nil, nil, err
	}
	return rev, budget, nil
}

func (s *appService) summarize(ctx context.Context, rev *core.BudgetRevision, budget *core.Budget, asOfStr string, in []LineInput) (*SummaryResult, error) {
	asOf, err := parseAsOf(asOfStr, s.now())
	if err != nil {
		return nil, err
	}
	lines, err := toBudgetLines(in)
	if err != nil {
		return nil, err
	}

	companyID := budget.CompanyID
	rc := core.ResolutionContext{CompanyID: &companyID, RegionID: budget.RegionID, AsOf: asOf}
	priced, err := s.resolver.ResolveLines(ctx, lines, rc)
	if err != nil {
		return nil, err
	}

	rule, err := s.markups.Get(ctx, rev.ID)
	if err != nil {
		return nil, err
	}
	return &SummaryResult{
		RevisionID: rev.ID,
		Lines:      priced,
		Summary:    core.ComputeSummary(priced, rule),
		Markup:     rule,
	}, nil
}

func revisionResult(rev *core.BudgetRevision) *RevisionResult {
	return &RevisionResult{Revision: rev, Permissions: permissionsResult(core.RevisionPermissions(*rev))}
}
