package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// PromotionService turns an approved revision into a project.
//
// Promotion is a three-step saga with no surrounding transaction:
//
//	1. allocate an order number (at most once)
//	2. create the project
//	3. link the revision to the project
//
// A failure in step 3 leaves an orphan project; the caller retries the link with
// RetryLink and must not call Promote again.
type PromotionService interface {
	// CheckPromotable runs the guards Promote runs before step 1: NotApproved, then
	// AlreadyLinked. Callers that do work before Promote run it first.
	CheckPromotable(rev BudgetRevision) error
	Promote(ctx context.Context, budget Budget, rev BudgetRevision, summary *BudgetSummary) (*Project, error)
	RetryLink(ctx context.Context, failed *LinkError) (*Project, error)
}

// PromotionObserver is notified of promotion outcomes. Used for metrics.
type PromotionObserver interface {
	ObservePromotion(outcome string)
}

// Promotion outcomes reported to the observer.
const (
	PromotionSucceeded      = "succeeded"
	PromotionNotApproved    = "not_approved"
	PromotionAlreadyLinked  = "already_linked"
	PromotionSequenceFailed = "sequence_error"
	PromotionCreateFailed   = "create_error"
	PromotionLinkFailed     = "link_error"
)

type promotionService struct {
	sequence OrderNumberGenerator
	projects ProjectStore
	linker   RevisionLinker
	observer PromotionObserver
}

// NewPromotionService wires the saga collaborators. observer may be nil.
func NewPromotionService(sequence OrderNumberGenerator, projects ProjectStore, linker RevisionLinker, observer PromotionObserver) PromotionService {
	return &promotionService{sequence: sequence, projects: projects, linker: linker, observer: observer}
}

func (s *promotionService) CheckPromotable(rev BudgetRevision) error {
	if rev.Status != RevisionApproved {
		s.observe(PromotionNotApproved)
		return fmt.Errorf("revision %d has status %s: %w", rev.ID, rev.Status, ErrNotApproved)
	}
	if rev.ProjectID != nil {
		s.observe(PromotionAlreadyLinked)
		return fmt.Errorf("revision %d is linked to project %d: %w", rev.ID, *rev.ProjectID, ErrAlreadyLinked)
	}
	return nil
}

func (s *promotionService) Promote(ctx context.Context, budget Budget, rev BudgetRevision, summary *BudgetSummary) (*Project, error) {
	if err := s.CheckPromotable(rev); err != nil {
		return nil, err
	}

	orderNumber, err := s.sequence.NextOrderNumber(ctx, budget.CompanyID)
	if err != nil {
		s.observe(PromotionSequenceFailed)
		return nil, &SequenceError{Err: err}
	}
	if orderNumber == "" {
		s.observe(PromotionSequenceFailed)
		return nil, &SequenceError{Err: errors.New("sequence returned an empty order number")}
	}

	contractValue := decimal.Zero
	if summary != nil {
		contractValue = summary.SellPrice
	}

	project, err := s.projects.CreateProject(ctx, ProjectInput{
		ClientID:      budget.ClientID,
		Name:          budget.WorkName,
		OrderNumber:   orderNumber,
		Status:        ProjectStatusPlanned,
		Approved:      false,
		ContractValue: contractValue,
		Location:      budget.Location,
		RevisionID:    rev.ID,
	})
	if err != nil {
		s.observe(PromotionCreateFailed)
		return nil, &ProjectCreateError{OrderNumber: orderNumber, Err: err}
	}

	if err := s.linker.LinkProject(ctx, rev.ID, project.ID); err != nil {
		s.observe(PromotionLinkFailed)
		return nil, &LinkError{RevisionID: rev.ID, Project: project, Err: err}
	}

	s.observe(PromotionSucceeded)
	return project, nil
}

// RetryLink re-runs only the link step of a failed promotion.
func (s *promotionService) RetryLink(ctx context.Context, failed *LinkError) (*Project, error) {
	if failed == nil || failed.Project == nil {
		return nil, &ValidationError{Message: "nothing to relink"}
	}
	if err := s.linker.LinkProject(ctx, failed.RevisionID, failed.Project.ID); err != nil {
		s.observe(PromotionLinkFailed)
		return nil, &LinkError{RevisionID: failed.RevisionID, Project: failed.Project, Err: err}
	}
	s.observe(PromotionSucceeded)
	return failed.Project, nil
}

func (s *promotionService) observe(outcome string) {
	if s.observer != nil {
		s.observer.ObservePromotion(outcome)
	}
}
