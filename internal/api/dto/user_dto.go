package dto

import (
	"time"

	"github.com/civicfix/civicfix-server/internal/domain"
)

// UserRegisterRequest payload for new users.
type UserRegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	PhotoURL string `json:"photo_url"`
}

// UserLoginRequest payload for login.
type UserLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateRoleRequest payload for PATCH /api/admin/users/:id/role.
type UpdateRoleRequest struct {
	Role string `json:"role"`
}

// SetBlockedRequest payload for PATCH /api/admin/users/:id/block.
type SetBlockedRequest struct {
	Blocked *bool `json:"blocked"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserResponse is the public view of an account. The password hash never leaves the server.
type UserResponse struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Email      string      `json:"email"`
	PhotoURL   string      `json:"photo_url,omitempty"`
	Role       domain.Role `json:"role"`
	IssueCount int         `json:"issue_count"`
	IsPremium  bool        `json:"is_premium"`
	IsBlocked  bool        `json:"is_blocked"`
	CreatedAt  time.Time   `json:"created_at"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:         user.ID,
		Name:       user.Name,
		Email:      user.Email,
		PhotoURL:   user.PhotoURL,
		Role:       user.Role,
		IssueCount: user.IssueCount,
		IsPremium:  user.IsPremium,
		IsBlocked:  user.IsBlocked,
		CreatedAt:  user.CreatedAt,
	}
}

// NewUserResponses maps a slice of users.
func NewUserResponses(users []domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, NewUserResponse(&users[i]))
	}
	return out
}
