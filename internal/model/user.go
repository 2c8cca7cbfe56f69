package model

import (
	"time"
)

type UserStatus string

const (
	UserStatusActive UserStatus = "active"
	UserStatusLocked UserStatus = "locked"
)

type UserRole string

const (
	UserRoleAdmin       UserRole = "admin"
	UserRoleCoordinator UserRole = "coordinator"
	UserRoleViewer      UserRole = "viewer"
)

var UserRoles = []string{
	string(UserRoleAdmin),
	string(UserRoleCoordinator),
	string(UserRoleViewer),
}

// User is a credentialing staff account, not a physician.
type User struct {
	Base
	Email            string     `db:"email" json:"email"`
	Name             string     `db:"name" json:"name"`
	Password         string     `db:"-" json:"password,omitempty"`
	PasswordHash     string     `db:"password_hash" json:"-"`
	Role             UserRole   `db:"role" json:"role"`
	Status           UserStatus `db:"status" json:"status"`
	LoginAttempts    int        `db:"login_attempts" json:"-"`
	LastLoginAttempt time.Time  `db:"last_login_attempt" json:"-"`
	LastLoginAt      *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}
