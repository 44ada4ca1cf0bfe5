package dto

import "time"

// LoginRequest carries credentials.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the issued session.
type LoginResponse struct {
	UserID      string    `json:"userId"`
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Name        string    `json:"name"`
	Company     string    `json:"company"`
	Branch      string    `json:"branch"`
	Roles       []string  `json:"roles"`
}

// RegisterRequest creates a new account within the caller's company.
type RegisterRequest struct {
	Email    string   `json:"email" binding:"required"`
	Name     string   `json:"name"`
	Password string   `json:"password" binding:"required"`
	BranchID string   `json:"branchId"`
	Roles    []string `json:"roles"`
}
