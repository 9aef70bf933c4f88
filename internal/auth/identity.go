// Package auth holds the signed-in identity and its capability checks.
package auth

import (
	"errors"
	"strings"
)

// Capability is a named authorization tag gating one dashboard action.
type Capability string

const (
	CapStore                Capability = "store"
	CapRelease              Capability = "release"
	CapView                 Capability = "view"
	CapUserManagement       Capability = "user_management"
	CapFormManagement       Capability = "form_management"
	CapPDFManagement        Capability = "pdf_management"
	CapDeleteRecords        Capability = "delete_records"
	CapCalculatorManagement Capability = "calculator_management"
)

var allCapabilities = []Capability{
	CapStore,
	CapRelease,
	CapView,
	CapUserManagement,
	CapFormManagement,
	CapPDFManagement,
	CapDeleteRecords,
	CapCalculatorManagement,
}

// AllCapabilities returns the capability vocabulary in canonical order.
func AllCapabilities() []Capability {
	out := make([]Capability, len(allCapabilities))
	copy(out, allCapabilities)
	return out
}

// ParseCapability normalizes s and rejects tags outside the vocabulary.
func ParseCapability(s string) (Capability, error) {
	c := Capability(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range allCapabilities {
		if c == known {
			return c, nil
		}
	}
	return "", errors.New("unknown capability: " + s)
}

// Role is the coarse account kind reported by the backend.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// AdminUsername is the built-in account the backend refuses to modify.
const AdminUsername = "admin"

// Identity is the signed-in actor.
type Identity struct {
	Username    string       `json:"username"`
	Role        Role         `json:"role"`
	Permissions []Capability `json:"permissions"`
}

// HasPermission reports whether id may use capability c.
// A nil identity (logged out) has no permissions.
func HasPermission(id *Identity, c Capability) bool {
	if id == nil {
		return false
	}
	for _, p := range id.Permissions {
		if p == c {
			return true
		}
	}
	return false
}

// IsAdmin reports whether id carries the admin role.
func (id *Identity) IsAdmin() bool {
	return id != nil && id.Role == RoleAdmin
}

// WithPermission returns a copy of perms with c toggled on or off,
// preserving canonical order.
func WithPermission(perms []Capability, c Capability, on bool) []Capability {
	set := make(map[Capability]bool, len(perms)+1)
	for _, p := range perms {
		set[p] = true
	}
	set[c] = on
	out := make([]Capability, 0, len(set))
	for _, known := range allCapabilities {
		if set[known] {
			out = append(out, known)
		}
	}
	return out
}
