package domain

import (
	"strings"
	"time"
)

type Role string

const (
	RoleSales            Role = "sales"
	RoleAccountant       Role = "accountant"
	RoleWarehouseManager Role = "warehouse_manager"
	RoleShipper          Role = "shipper"
	RoleAdmin            Role = "admin"
)

var roles = []Role{RoleSales, RoleAccountant, RoleWarehouseManager, RoleShipper, RoleAdmin}

func (r Role) Valid() bool {
	for _, known := range roles {
		if r == known {
			return true
		}
	}
	return false
}

func ParseRole(s string) (Role, bool) {
	r := Role(strings.TrimSpace(strings.ToLower(s)))
	return r, r.Valid()
}

// Profile binds an authenticated principal to exactly one role.
type Profile struct {
	ID        string
	UserID    string
	Email     string
	Name      string
	Role      Role
	CreatedAt time.Time
}

// Actor is the resolved caller of a core operation. It is resolved once at
// the request boundary and passed down explicitly.
type Actor struct {
	ID   string
	Name string
	Role Role
}

func (p Profile) Actor() Actor {
	return Actor{ID: p.ID, Name: p.Name, Role: p.Role}
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
