package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// UserRole represents the per-institution roles for the RBAC system.
type UserRole string

const (
	RoleStudent   UserRole = "student"
	RoleProfessor UserRole = "professor"
	RoleAdmin     UserRole = "admin"
)

// Valid reports whether the value is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleStudent, RoleProfessor, RoleAdmin:
		return true
	}
	return false
}

// RoleMap maps an institution id to the roles a user holds there.
type RoleMap map[string][]UserRole

// Has reports whether the user holds any of the given roles at the institution.
func (m RoleMap) Has(institutionID string, roles ...UserRole) bool {
	held := m[institutionID]
	for _, h := range held {
		for _, want := range roles {
			if h == want {
				return true
			}
		}
	}
	return false
}

// Grant adds a role for the institution, deduplicating.
func (m RoleMap) Grant(institutionID string, role UserRole) RoleMap {
	if m == nil {
		m = RoleMap{}
	}
	for _, held := range m[institutionID] {
		if held == role {
			return m
		}
	}
	m[institutionID] = append(m[institutionID], role)
	return m
}

// Revoke removes a role for the institution; empty institutions are dropped.
func (m RoleMap) Revoke(institutionID string, role UserRole) {
	held := m[institutionID]
	kept := held[:0]
	for _, h := range held {
		if h != role {
			kept = append(kept, h)
		}
	}
	if len(kept) == 0 {
		delete(m, institutionID)
		return
	}
	m[institutionID] = kept
}

// Value serialises the role map for a JSONB column.
func (m RoleMap) Value() (driver.Value, error) {
	if m == nil {
		return json.Marshal(RoleMap{})
	}
	return json.Marshal(m)
}

// Scan reads the role map back from a JSONB column.
func (m *RoleMap) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*m = RoleMap{}
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	}
	return fmt.Errorf("unsupported role map source %T", src)
}

// User represents an application user stored in the users table. Professors are users
// holding the professor role for an institution; students list their groups.
type User struct {
	ID             string         `db:"id" json:"id"`
	Email          string         `db:"email" json:"email"`
	FullName       string         `db:"full_name" json:"full_name"`
	HashedPassword string         `db:"hashed_password" json:"-"`
	UserRoles      RoleMap        `db:"user_roles" json:"user_roles"`
	GroupIDs       pq.StringArray `db:"group_ids" json:"group_ids"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	InstitutionID string
	Search        string
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
