package core

import (
	"errors"
	"fmt"
)

// Promotion guard failures. Both are checked before any collaborator is called.
var (
	ErrNotApproved   = errors.New("revision is not APPROVED")
	ErrAlreadyLinked = errors.New("revision is already linked to a project")
)

// ErrNotFound is wrapped by store lookups that find no row.
var ErrNotFound = errors.New("not found")

// ValidationError reports bad input rejected before anything is persisted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

// InvalidTransitionError is returned when a status change is not an edge of the
// revision state machine.
type InvalidTransitionError struct {
	From RevisionStatus
	To   RevisionStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s -> %s", e.From, e.To)
}

// ActionBlockedError is returned when an action is not permitted in the revision's status.
type ActionBlockedError struct {
	Action Action
	Status RevisionStatus
	Reason string
}

func (e *ActionBlockedError) Error() string {
	return fmt.Sprintf("%s not allowed (status %s): %s", e.Action, e.Status, e.Reason)
}

// SequenceError means the order number could not be allocated. Nothing was created.
type SequenceError struct {
	Err error
}

func (e *SequenceError) Error() string {
	return "order number allocation failed: " + e.Err.Error()
}

func (e *SequenceError) Unwrap() error { return e.Err }

// ProjectCreateError means an order number was allocated but the project insert failed.
// The number is consumed; OrderNumber is kept for manual reconciliation.
type ProjectCreateError struct {
	OrderNumber string
	Err         error
}

func (e *ProjectCreateError) Error() string {
	return fmt.Sprintf("project creation failed (order number %s allocated): %v", e.OrderNumber, e.Err)
}

func (e *ProjectCreateError) Unwrap() error { return e.Err }

// LinkError means the project exists but the revision was not linked to it.
// Retry with PromotionService.RetryLink; do not promote again.
type LinkError struct {
	RevisionID int
	Project    *Project
	Err        error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("linking revision %d to project %d failed: %v", e.RevisionID, e.Project.ID, e.Err)
}

func (e *LinkError) Unwrap() error { return e.Err }
