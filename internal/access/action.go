package access

import (
	"strings"

	id "siwarga/pkg/domain"
	dErrors "siwarga/pkg/domain-errors"
)

// Action is an operation an actor attempts on a resource.
type Action string

const (
	ActionView   Action = "view"
	ActionSubmit Action = "submit"
	// ActionSelfUpdate edits the actor's own profile. Identity fields are
	// editable and reset verification. Locality and family are not.
	ActionSelfUpdate Action = "self-update"
	ActionFile       Action = "file"

	ActionCreate   Action = "create"
	ActionUpdate   Action = "update"
	ActionVerify   Action = "verify"
	ActionReject   Action = "reject"
	ActionProcess  Action = "process"
	ActionApprove  Action = "approve"
	ActionSign     Action = "sign"
	ActionComplete Action = "complete"
	ActionRespond  Action = "respond"
	ActionEnroll   Action = "enroll"
	ActionAnnounce Action = "announce"

	ActionDelete          Action = "delete"
	ActionCorrectLocality Action = "correct-locality"
	ActionReassignFamily  Action = "reassign-family"
)

var actionFloors = map[Action]id.Role{
	ActionView:       id.RoleWarga,
	ActionSubmit:     id.RoleWarga,
	ActionSelfUpdate: id.RoleWarga,
	ActionFile:       id.RoleWarga,

	ActionCreate:   id.RoleRT,
	ActionUpdate:   id.RoleRT,
	ActionVerify:   id.RoleRT,
	ActionReject:   id.RoleRT,
	ActionProcess:  id.RoleRT,
	ActionApprove:  id.RoleRT,
	ActionSign:     id.RoleRT,
	ActionComplete: id.RoleRT,
	ActionRespond:  id.RoleRT,
	ActionEnroll:   id.RoleRT,
	ActionAnnounce: id.RoleRT,

	ActionDelete:          id.RoleRW,
	ActionCorrectLocality: id.RoleRW,
	ActionReassignFamily:  id.RoleRW,
}

// ParseAction validates an action name from an untrusted source.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := actionFloors[a]; !ok {
		return "", dErrors.New(dErrors.CodeBadRequest, "unknown action: "+s)
	}
	return a, nil
}

// Floor is the minimum role allowed to perform the action.
func (a Action) Floor() (id.Role, bool) {
	r, ok := actionFloors[a]
	return r, ok
}

func (a Action) String() string {
	return string(a)
}
