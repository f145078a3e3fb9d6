package services

import (
	"github.com/ogzhnbygl/vivolearn/model"
)

// Caller is the identity of the person invoking an operation. It is resolved
// once per request and passed explicitly into every core operation.
type Caller struct {
	ProfileID uint
	Email     string
	FullName  string
	Role      model.Role
}

// NewCaller builds a Caller from a loaded profile
func NewCaller(p *model.Profile) *Caller {
	return &Caller{
		ProfileID: p.ID,
		Email:     p.Email,
		FullName:  p.FullName,
		Role:      p.Role,
	}
}

// IsAdmin reports whether the caller holds the admin role
func (c *Caller) IsAdmin() bool {
	return c != nil && c.Role == model.RoleAdmin
}

// HasRole reports whether the caller holds one of roles
func (c *Caller) HasRole(roles ...model.Role) bool {
	if c == nil {
		return false
	}
	for _, r := range roles {
		if c.Role == r {
			return true
		}
	}
	return false
}
