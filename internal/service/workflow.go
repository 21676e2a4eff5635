package service

import (
	"fmt"
	"strings"

	"portalwarga/internal/identity"
	"portalwarga/internal/model"
)

// Action is an operation a caller may attempt on a purchase request.
type Action string

const (
	ActionEdit            Action = "edit"
	ActionApprove         Action = "approve"
	ActionReject          Action = "reject"
	ActionRequestRevision Action = "request_revision"
	ActionBeginProcessing Action = "process"
	ActionComplete        Action = "complete"
	ActionCancel          Action = "cancel"
	ActionDelete          Action = "delete"
)

var allActions = []Action{
	ActionEdit, ActionApprove, ActionReject, ActionRequestRevision,
	ActionBeginProcessing, ActionComplete, ActionCancel, ActionDelete,
}

// Default history notes for actions whose note is optional.
var defaultNotes = map[Action]string{
	ActionApprove:         "Pengajuan disetujui",
	ActionBeginProcessing: "Pembayaran sedang diproses",
	ActionComplete:        "Pembayaran selesai",
	ActionCancel:          "Pengajuan dibatalkan",
}

const (
	noteCreated     = "Pengajuan dibuat"
	noteResubmitted = "Pengajuan diajukan ulang setelah revisi"
)

// RolePolicy decides who may do what to a purchase request. Admins pass every role check.
type RolePolicy struct {
	admins     map[string]bool
	approvers  map[string]bool
	processors map[string]bool
}

func NewRolePolicy(admins, approvers, processors []string) RolePolicy {
	return RolePolicy{
		admins:     toSet(admins),
		approvers:  toSet(approvers),
		processors: toSet(processors),
	}
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			set[v] = true
		}
	}
	return set
}

func (p RolePolicy) IsAdmin(role string) bool {
	return p.admins[role]
}

func (p RolePolicy) IsApprover(role string) bool {
	return p.admins[role] || p.approvers[role]
}

func (p RolePolicy) IsProcessor(role string) bool {
	return p.admins[role] || p.processors[role]
}

// Transition returns the status req moves to when actor performs action. Role and ownership are
// checked before the source state. Delete returns an empty status because nothing remains.
func (p RolePolicy) Transition(actor identity.Actor, req *model.PurchaseRequest, action Action) (string, error) {
	owner := actor.ID == req.RequesterID
	editable := req.Status == model.StatusSubmitted || req.Status == model.StatusNeedsRevision

	switch action {
	case ActionEdit:
		if !owner {
			return "", fmt.Errorf("%w: only the requester can edit this request", ErrForbidden)
		}
		if !editable {
			return "", invalidTransition(req.Status, action)
		}
		return model.StatusSubmitted, nil

	case ActionApprove, ActionReject, ActionRequestRevision:
		if !p.IsApprover(actor.Role) {
			return "", fmt.Errorf("%w: role %q cannot %s", ErrForbidden, actor.Role, action)
		}
		if req.Status != model.StatusSubmitted {
			return "", invalidTransition(req.Status, action)
		}
		switch action {
		case ActionApprove:
			return model.StatusApproved, nil
		case ActionReject:
			return model.StatusRejected, nil
		default:
			return model.StatusNeedsRevision, nil
		}

	case ActionBeginProcessing:
		if !p.IsProcessor(actor.Role) {
			return "", fmt.Errorf("%w: role %q cannot %s", ErrForbidden, actor.Role, action)
		}
		if req.Status != model.StatusApproved {
			return "", invalidTransition(req.Status, action)
		}
		return model.StatusProcessing, nil

	case ActionComplete:
		if !p.IsProcessor(actor.Role) {
			return "", fmt.Errorf("%w: role %q cannot %s", ErrForbidden, actor.Role, action)
		}
		if req.Status != model.StatusProcessing {
			return "", invalidTransition(req.Status, action)
		}
		return model.StatusCompleted, nil

	case ActionCancel:
		if !owner && !p.IsApprover(actor.Role) {
			return "", fmt.Errorf("%w: only the requester or an approver can cancel", ErrForbidden)
		}
		if !editable {
			return "", invalidTransition(req.Status, action)
		}
		return model.StatusCancelled, nil

	case ActionDelete:
		if p.IsAdmin(actor.Role) {
			return "", nil
		}
		if !owner && !p.IsApprover(actor.Role) {
			return "", fmt.Errorf("%w: only the requester, an approver or an admin can delete", ErrForbidden)
		}
		if !editable {
			return "", invalidTransition(req.Status, action)
		}
		return "", nil
	}

	return "", fmt.Errorf("%w: unknown action %q", ErrValidation, action)
}

// AllowedActions lists every action Transition would accept right now.
func (p RolePolicy) AllowedActions(actor identity.Actor, req *model.PurchaseRequest) []Action {
	allowed := make([]Action, 0, len(allActions))
	for _, a := range allActions {
		if _, err := p.Transition(actor, req, a); err == nil {
			allowed = append(allowed, a)
		}
	}
	return allowed
}

func invalidTransition(from string, action Action) error {
	return fmt.Errorf("%w: cannot %s a request in status %s", ErrInvalidTransition, action, from)
}

// resolveNote trims the caller's note and falls back to the action default. Reject and
// request-revision have no default and must be given a note.
func resolveNote(action Action, note string) (string, error) {
	note = strings.TrimSpace(note)
	if note != "" {
		return note, nil
	}
	if action == ActionReject || action == ActionRequestRevision {
		return "", validationError("a note is required to %s", action)
	}
	return defaultNotes[action], nil
}
