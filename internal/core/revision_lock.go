package core

import "fmt"

// Action is a user-facing operation guarded by the revision status.
type Action string

const (
	ActionEdit              Action = "edit"
	ActionSend              Action = "send"
	ActionApprove           Action = "approve"
	ActionReject            Action = "reject"
	ActionCancel            Action = "cancel"
	ActionCreateProject     Action = "create_project"
	ActionCreateNewRevision Action = "create_new_revision"
)

// AllActions lists every guarded action.
var AllActions = []Action{
	ActionEdit, ActionSend, ActionApprove, ActionReject,
	ActionCancel, ActionCreateProject, ActionCreateNewRevision,
}

// PermissionSet is what a revision in a given status allows.
type PermissionSet struct {
	Status               RevisionStatus `json:"status"`
	CanEdit              bool           `json:"can_edit"`
	CanSend              bool           `json:"can_send"`
	CanApprove           bool           `json:"can_approve"`
	CanReject            bool           `json:"can_reject"`
	CanCancel            bool           `json:"can_cancel"`
	CanCreateProject     bool           `json:"can_create_project"`
	CanCreateNewRevision bool           `json:"can_create_new_revision"`

	linked bool
}

// Permissions maps a status to its permission set. It has no side effects.
// An unrecognised status allows nothing except branching a new revision.
func Permissions(status RevisionStatus) PermissionSet {
	p := PermissionSet{Status: status, CanCreateNewRevision: true}
	switch status {
	case RevisionDraft:
		p.CanEdit, p.CanSend, p.CanCancel = true, true, true
	case RevisionSent:
		p.CanApprove, p.CanReject, p.CanCancel = true, true, true
	case RevisionApproved:
		p.CanCreateProject = true
	case RevisionRejected, RevisionCanceled:
	}
	return p
}

// RevisionPermissions is Permissions narrowed by the revision's project link.
func RevisionPermissions(rev BudgetRevision) PermissionSet {
	p := Permissions(rev.Status)
	if rev.ProjectID != nil {
		p.CanCreateProject = false
		p.linked = true
	}
	return p
}

// Allows reports whether action is permitted.
func (p PermissionSet) Allows(action Action) bool {
	switch action {
	case ActionEdit:
		return p.CanEdit
	case ActionSend:
		return p.CanSend
	case ActionApprove:
		return p.CanApprove
	case ActionReject:
		return p.CanReject
	case ActionCancel:
		return p.CanCancel
	case ActionCreateProject:
		return p.CanCreateProject
	case ActionCreateNewRevision:
		return p.CanCreateNewRevision
	}
	return false
}

// Reason explains why action is blocked. It returns "" when the action is allowed.
func (p PermissionSet) Reason(action Action) string {
	if p.Allows(action) {
		return ""
	}
	if action == ActionCreateProject && p.linked {
		return "a project has already been created from this revision"
	}
	switch p.Status {
	case RevisionDraft:
		switch action {
		case ActionApprove, ActionReject:
			return "revision is still a draft; send it for approval first"
		case ActionCreateProject:
			return "only approved revisions can become projects"
		}
	case RevisionSent:
		switch action {
		case ActionEdit:
			return "revision was sent for approval and is locked; create a new revision to make changes"
		case ActionSend:
			return "revision has already been sent for approval"
		case ActionCreateProject:
			return "revision is awaiting approval"
		}
	case RevisionApproved:
		return "revision is approved and locked; create a new revision to make changes"
	case RevisionRejected:
		return "revision was rejected; create a new revision to make changes"
	case RevisionCanceled:
		return "revision was canceled; create a new revision to make changes"
	}
	if action == "" || !knownAction(action) {
		return fmt.Sprintf("unknown action %q", action)
	}
	return fmt.Sprintf("unknown revision status %q", p.Status)
}

// CheckAction returns an *ActionBlockedError when the revision does not allow action.
func CheckAction(rev BudgetRevision, action Action) error {
	p := RevisionPermissions(rev)
	if p.Allows(action) {
		return nil
	}
	return &ActionBlockedError{Action: action, Status: rev.Status, Reason: p.Reason(action)}
}

// CanTransition reports whether from → to is an edge of the state machine.
func CanTransition(from, to RevisionStatus) bool {
	switch from {
	case RevisionDraft:
		return to == RevisionSent || to == RevisionCanceled
	case RevisionSent:
		return to == RevisionApproved || to == RevisionRejected || to == RevisionCanceled
	case RevisionApproved, RevisionRejected, RevisionCanceled:
		return false
	}
	return false
}

// Transition returns rev moved to target, or an *InvalidTransitionError.
// rev itself is not modified.
func Transition(rev BudgetRevision, target RevisionStatus) (BudgetRevision, error) {
	if !CanTransition(rev.Status, target) {
		return rev, &InvalidTransitionError{From: rev.Status, To: target}
	}
	rev.Status = target
	return rev, nil
}

// TargetStatus maps a transition action to the status it leads to.
func TargetStatus(action Action) (RevisionStatus, bool) {
	switch action {
	case ActionSend:
		return RevisionSent, true
	case ActionApprove:
		return RevisionApproved, true
	case ActionReject:
		return RevisionRejected, true
	case ActionCancel:
		return RevisionCanceled, true
	}
	return "", false
}

func knownAction(a Action) bool {
	for _, v := range AllActions {
		if v == a {
			return true
		}
	}
	return false
}
