package records

import "github.com/dimidiyP/shinomontaz-base/internal/auth"

// Status is the lifecycle stage of a record. The values are the exact
// strings the backend stores.
type Status string

const (
	StatusNew       Status = "Новая"
	StatusInStorage Status = "Взята на хранение"
	StatusReleased  Status = "Выдана с хранения"
)

// Transition names a status change the backend performs.
type Transition string

const (
	TransitionTakeToStorage Transition = "take_storage"
	TransitionRelease       Transition = "release"
)

// From returns the only status a transition may start from.
func (t Transition) From() Status {
	switch t {
	case TransitionTakeToStorage:
		return StatusNew
	case TransitionRelease:
		return StatusInStorage
	}
	return ""
}

// To returns the status a transition ends in.
func (t Transition) To() Status {
	switch t {
	case TransitionTakeToStorage:
		return StatusInStorage
	case TransitionRelease:
		return StatusReleased
	}
	return ""
}

// Capability returns the permission required to request t.
func (t Transition) Capability() auth.Capability {
	if t == TransitionRelease {
		return auth.CapRelease
	}
	return auth.CapStore
}

// Next returns the transition that leaves s, if any.
func (s Status) Next() (Transition, bool) {
	switch s {
	case StatusNew:
		return TransitionTakeToStorage, true
	case StatusInStorage:
		return TransitionRelease, true
	}
	return "", false
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusReleased
}

// ActionSet lists what the dashboard may offer for one record.
type ActionSet struct {
	TakeToStorage bool
	Release       bool
	Delete        bool
	PrintAct      bool
}

// Allows reports whether t is offered.
func (a ActionSet) Allows(t Transition) bool {
	switch t {
	case TransitionTakeToStorage:
		return a.TakeToStorage
	case TransitionRelease:
		return a.Release
	}
	return false
}

// Actions gates record actions by status and by the identity's
// capabilities. The backend enforces the same rules; this only decides
// what to show.
func Actions(r Record, id *auth.Identity) ActionSet {
	return ActionSet{
		TakeToStorage: r.Status == TransitionTakeToStorage.From() && auth.HasPermission(id, auth.CapStore),
		Release:       r.Status == TransitionRelease.From() && auth.HasPermission(id, auth.CapRelease),
		Delete:        auth.HasPermission(id, auth.CapDeleteRecords),
		PrintAct:      auth.HasPermission(id, auth.CapStore),
	}
}
