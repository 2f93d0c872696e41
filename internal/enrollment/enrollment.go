// Package enrollment runs the subject access workflow: students request,
// teachers approve or deny, and pending requests can be cancelled.
package enrollment

import (
	"errors"
	"fmt"
	"time"
)

// Status is the state of a student's access to a subject.
type Status string

const (
	StatusNone     Status = "none"
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
)

// Action is a workflow step.
type Action string

const (
	ActionRequest Action = "request"
	ActionCancel  Action = "cancel"
	ActionApprove Action = "approve"
	ActionDeny    Action = "deny"
)

// ErrInvalidTransition is returned for steps the workflow does not allow.
var ErrInvalidTransition = errors.New("invalid enrollment transition")

var transitions = map[Status]map[Action]Status{
	StatusNone:    {ActionRequest: StatusPending},
	StatusPending: {ActionApprove: StatusApproved, ActionDeny: StatusDenied, ActionCancel: StatusNone},
}

// Next returns the status reached by applying a to from. Approved and denied
// are terminal.
func Next(from Status, a Action) (Status, error) {
	if from == "" {
		from = StatusNone
	}
	to, ok := transitions[from][a]
	if !ok {
		return from, fmt.Errorf("%w: cannot %s from %s", ErrInvalidTransition, a, from)
	}
	return to, nil
}

// Request is a student's enrollment request for a subject. A request that is
// not yet stored has an empty ID.
type Request struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	SubjectID string    `json:"subject_id"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// StatusOf returns the status of userID for subjectID in rows, or none.
func StatusOf(rows []Request, userID, subjectID string) Status {
	for _, r := range rows {
		if r.UserID == userID && r.SubjectID == subjectID {
			return r.Status
		}
	}
	return StatusNone
}
