package dto

// RegisterUserRequest creates a new user account.
type RegisterUserRequest struct {
	Email    string   `json:"email" validate:"required,email"`
	FullName string   `json:"full_name" validate:"required"`
	Password string   `json:"password" validate:"required,min=8"`
	GroupIDs []string `json:"group_ids"`
}

// UpdateUserRequest replaces a user's profile fields. Email is immutable.
type UpdateUserRequest struct {
	FullName string   `json:"full_name" validate:"required"`
	GroupIDs []string `json:"group_ids"`
}

// ChangePasswordRequest replaces a user's password after verifying the current one.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// RoleRequest grants a per-institution role.
type RoleRequest struct {
	Role string `json:"role" validate:"required,oneof=student professor admin"`
}

// UserListQuery filters user listings.
type UserListQuery struct {
	InstitutionID string `form:"institution_id"`
	Search        string `form:"search"`
	Page          int    `form:"page"`
	PageSize      int    `form:"page_size"`
}
